package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opsharness/harness/pkg/resource"
)

// document is the JSON shape printed per session.
type document struct {
	Profile string            `json:"profile"`
	Region  string            `json:"region"`
	Data    []resource.Record `json:"data"`
}

// JSONEmitter prints one indented JSON document per session. Documents are
// concatenated, not wrapped in an array.
type JSONEmitter struct {
	w io.Writer
}

// NewJSONEmitter creates a JSON emitter writing to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{w: w}
}

// Emit writes the document for result.
func (e *JSONEmitter) Emit(_ context.Context, result Result) error {
	doc := document{
		Profile: result.Profile,
		Region:  result.Region,
		Data:    result.Records,
	}
	if doc.Data == nil {
		doc.Data = []resource.Record{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = fmt.Fprintf(e.w, "%s\n", data)
	return err
}

// Close is a no-op for the JSON emitter.
func (e *JSONEmitter) Close() error {
	return nil
}
