package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"weblogd/internal/format"
)

var (
	outputWriter    io.Writer        = os.Stdout
	outputFormatter format.Formatter = format.JSONFormatter{Indent: true}
	tableFormatter  format.Formatter = format.TableFormatter{}
)

func writeJSON(payload any) error {
	return outputFormatter.Write(outputWriter, payload)
}

func writeTable(table *format.Table) error {
	return tableFormatter.Write(outputWriter, table)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(outputWriter, format, args...)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func enabledLabel(disabled bool) string {
	if disabled {
		return "disabled"
	}
	return "enabled"
}
