package resource

import (
	"slices"
	"strings"
)

// SortField orders records by one named field.
type SortField struct {
	Name      string
	Ascending bool
}

// SortKey is an ordered list of sort fields, most significant first.
type SortKey []SortField

var sortKeys = map[Kind]SortKey{
	KindEC2Instance:      {{Name: "InstanceState", Ascending: true}, {Name: "InstanceName", Ascending: true}},
	KindNetworkInterface: {{Name: "PrivateIp", Ascending: true}},
	KindLoadBalancer:     {{Name: "LoadBalancerName", Ascending: true}},
	KindImage:            {{Name: "CreationDate", Ascending: false}, {Name: "Name", Ascending: true}},
}

// SortKeyFor returns the default sort key for kind.
func SortKeyFor(kind Kind) SortKey {
	return sortKeys[kind]
}

// Sort returns records ordered by key. The sort is stable, so ties keep
// discovery order. Null values go last in either direction. The input
// slice is not modified.
func Sort(records []Record, key SortKey) []Record {
	if len(records) == 0 || len(key) == 0 {
		return records
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return compare(a, b, key)
	})
	return sorted
}

func compare(a, b Record, key SortKey) int {
	for _, f := range key {
		va, _ := a.Get(f.Name)
		vb, _ := b.Get(f.Name)

		switch {
		case va == nil && vb == nil:
			continue
		case va == nil:
			return 1
		case vb == nil:
			return -1
		}

		c := strings.Compare(*va, *vb)
		if !f.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
