package emitter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/opsharness/harness/pkg/resource"
)

// TableEmitter prints a banner and an aligned table per session.
type TableEmitter struct {
	w io.Writer
}

// NewTableEmitter creates a table emitter writing to w.
func NewTableEmitter(w io.Writer) *TableEmitter {
	return &TableEmitter{w: w}
}

// Emit prints the session banner followed by the records. Null values are
// printed as empty cells.
func (e *TableEmitter) Emit(_ context.Context, result Result) error {
	if _, err := fmt.Fprintf(e.w, "[+] Session created for profile '%s' and region '%s'\n", result.Profile, result.Region); err != nil {
		return err
	}

	headers := resource.Columns(result.Kind)
	if headers == nil && len(result.Records) > 0 {
		headers = result.Records[0].Names()
	}
	if len(headers) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(e.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	row := make([]string, len(headers))
	for _, rec := range result.Records {
		for i, h := range headers {
			row[i] = rec.String(h)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

// Close is a no-op for the table emitter.
func (e *TableEmitter) Close() error {
	return nil
}
