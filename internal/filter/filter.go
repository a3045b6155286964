// Package filter turns command-line criteria into describe filters.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// ErrInvalidTag is returned when a tag expression is not key=value[,value...].
var ErrInvalidTag = errors.New("invalid tag expression")

// SplitList splits a comma separated argument. Items are trimmed and
// empty items dropped.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseTag parses "key=value1,value2" into the tag key and its values.
func ParseTag(expr string) (string, []string, error) {
	key, rest, ok := strings.Cut(expr, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("%w: %q (want key=value1,value2)", ErrInvalidTag, expr)
	}
	values := SplitList(rest)
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: %q has no values", ErrInvalidTag, expr)
	}
	return key, values, nil
}

// EC2 builds an EC2 describe filter matching any of values.
func EC2(name string, values []string) ec2types.Filter {
	return ec2types.Filter{
		Name:   aws.String(name),
		Values: values,
	}
}

// Tag builds the EC2 filter for a tag key.
func Tag(key string, values []string) ec2types.Filter {
	return EC2("tag:"+key, values)
}

// Set is an exact-match membership set.
type Set map[string]struct{}

// NewSet creates a set from values.
func NewSet(values []string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports whether v is in the set.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// IsEmpty returns true if the set has no members.
func (s Set) IsEmpty() bool {
	return len(s) == 0
}
