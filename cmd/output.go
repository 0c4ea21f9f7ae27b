// File: cmd/output.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML output: %w", err)
		}
		return enc.Close()
	}
	return validateFormat(format)
}

func renderReports(w io.Writer, format string, reports []schemas.LibraryReport) error {
	if format != formatTable {
		return writeStructured(w, format, reports)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Library", "Source", "State", "Status", "Enabled", "Issues"})
	for _, r := range reports {
		name := r.LibraryName
		if name == "" {
			name = "-"
		}
		t.AppendRow(table.Row{name, r.ProvenanceKey, r.FinalState, r.Status, r.Enabled, joinIssues(r.Issues)})
	}
	t.Render()
	return nil
}

func renderCandidates(w io.Writer, format string, entries []lifecycle.Entry) error {
	type candidate struct {
		Key    string `json:"key" yaml:"key"`
		Kind   string `json:"kind" yaml:"kind"`
		Active bool   `json:"active" yaml:"active"`
	}
	rows := make([]candidate, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, candidate{Key: e.Provenance.Key(), Kind: string(e.Provenance.Kind()), Active: e.Active})
	}
	if format != formatTable {
		return writeStructured(w, format, rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Source", "Kind", "Active"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, r.Key, r.Kind, r.Active})
	}
	t.Render()
	return nil
}

func joinIssues(issues []schemas.LifecycleIssue) string {
	parts := make([]string, 0, len(issues))
	for _, i := range issues {
		parts = append(parts, i.String())
	}
	return strings.Join(parts, "\n")
}
