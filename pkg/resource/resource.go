// Package resource defines the normalized record model for search results.
package resource

import (
	"bytes"
	"encoding/json"
)

// Kind identifies the resource family a record was built from.
type Kind string

const (
	KindUnknown          Kind = ""
	KindEC2Instance      Kind = "ec2"
	KindNetworkInterface Kind = "eni"
	KindLoadBalancer     Kind = "elb"
	KindImage            Kind = "ami"
)

// Column names per kind, in display order.
var columns = map[Kind][]string{
	KindEC2Instance: {
		"InstanceState",
		"InstanceName",
		"InstanceId",
		"InstanceType",
		"AvailabilityZone",
		"PrivateIpAddress",
		"PublicIpAddress",
	},
	KindNetworkInterface: {
		"PrivateIp",
		"PublicIp",
		"NetworkInterfaceId",
		"InterfaceType",
		"InstanceId",
		"AvailabilityZone",
		"Status",
	},
	KindLoadBalancer: {
		"LoadBalancerName",
		"DNSName",
		"Type",
		"Scheme",
		"LoadBalancerArn",
	},
	KindImage: {
		"ImageId",
		"Name",
		"CreationDate",
	},
}

// Columns returns the fixed field names for kind, or nil for an unknown kind.
func Columns(kind Kind) []string {
	cols, ok := columns[kind]
	if !ok {
		return nil
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Field is one named value of a record. A nil Value means the source had no data.
type Field struct {
	Name  string
	Value *string
}

// Record is a normalized resource. Field order is fixed per kind and is
// the column order used for rendering.
type Record []Field

// Get returns the value of the named field.
func (r Record) Get(name string) (*string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value of the named field, or "" when absent or null.
func (r Record) String(name string) string {
	v, _ := r.Get(name)
	if v == nil {
		return ""
	}
	return *v
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON encodes the record as an object, keeping field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func newRecord(kind Kind, values ...*string) Record {
	names := columns[kind]
	r := make(Record, len(names))
	for i, name := range names {
		r[i] = Field{Name: name}
		if i < len(values) {
			r[i].Value = values[i]
		}
	}
	return r
}
