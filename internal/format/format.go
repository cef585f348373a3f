// Package format renders command output as JSON or aligned text tables.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes one JSON document per payload.
type JSONFormatter struct {
	Indent bool
}

// Write writes JSON payload to a writer.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(payload)
}

// Table is a header plus rows of cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Append adds one row. Values are rendered with %v.
func (t *Table) Append(values ...any) {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	t.Rows = append(t.Rows, row)
}

// TableFormatter writes a *Table as tab-aligned columns.
type TableFormatter struct{}

// Write writes payload, which must be a *Table or Table.
func (TableFormatter) Write(w io.Writer, payload any) error {
	var table *Table
	switch v := payload.(type) {
	case *Table:
		table = v
	case Table:
		table = &v
	default:
		return fmt.Errorf("table formatter: unsupported payload %T", payload)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(table.Header) > 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(table.Header, "\t")); err != nil {
			return err
		}
	}
	for _, row := range table.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
