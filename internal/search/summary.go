package search

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Outcome classifies how one session ended.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Empty     Outcome = "empty"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "error"
)

var outcomeOrder = []Outcome{Succeeded, Empty, Skipped, Failed}

// SessionOutcome is the result of one (profile, region) pair.
type SessionOutcome struct {
	Profile string
	Region  string
	Outcome Outcome
	Records int
	Err     error
}

// Summary collects the outcome of every session in a sweep, in enumeration order.
type Summary struct {
	Sessions []SessionOutcome
}

func (s *Summary) add(o SessionOutcome) {
	s.Sessions = append(s.Sessions, o)
}

// Count returns the number of sessions with outcome o.
func (s Summary) Count(o Outcome) int {
	n := 0
	for _, so := range s.Sessions {
		if so.Outcome == o {
			n++
		}
	}
	return n
}

// Records returns the total number of records emitted.
func (s Summary) Records() int {
	n := 0
	for _, so := range s.Sessions {
		n += so.Records
	}
	return n
}

// Failures returns the skipped and failed sessions.
func (s Summary) Failures() []SessionOutcome {
	var out []SessionOutcome
	for _, so := range s.Sessions {
		if so.Err != nil {
			out = append(out, so)
		}
	}
	return out
}

// String renders e.g. "7 succeeded, 2 skipped: invalid credentials, 1 error: throttled".
// Outcomes with no sessions are left out.
func (s Summary) String() string {
	var parts []string
	for _, o := range outcomeOrder {
		n := s.Count(o)
		if n == 0 {
			continue
		}
		part := fmt.Sprintf("%d %s", n, o)
		if reasons := s.reasons(o); len(reasons) > 0 {
			part += ": " + strings.Join(reasons, "; ")
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "no sessions"
	}
	return strings.Join(parts, ", ")
}

// reasons returns the distinct error messages for outcome o.
func (s Summary) reasons(o Outcome) []string {
	seen := make(map[string]bool)
	var out []string
	for _, so := range s.Sessions {
		if so.Outcome != o || so.Err == nil {
			continue
		}
		msg := so.Err.Error()
		if !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}
	return out
}

// MarshalZerologObject adds the outcome counts to a log event.
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	for _, o := range outcomeOrder {
		e.Int(string(o), s.Count(o))
	}
	e.Int("records", s.Records())
}
