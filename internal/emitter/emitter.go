// Package emitter defines the output interface for search results.
package emitter

import (
	"context"
	"fmt"
	"io"

	"github.com/opsharness/harness/pkg/resource"
)

// Output formats accepted by New.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Result is the sorted record set of one session.
type Result struct {
	Profile string
	Region  string
	Kind    resource.Kind
	Records []resource.Record
}

// Emitter outputs search results to a backend.
type Emitter interface {
	// Emit outputs one session's result.
	Emit(ctx context.Context, result Result) error

	// Close cleans up resources.
	Close() error
}

// New returns the writer-backed emitter for format.
func New(format string, w io.Writer) (Emitter, error) {
	switch format {
	case FormatTable:
		return NewTableEmitter(w), nil
	case FormatJSON:
		return NewJSONEmitter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatTable, FormatJSON)
	}
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to all emitters, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, result Result) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all emitters.
func (m *MultiEmitter) Close() error {
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}
