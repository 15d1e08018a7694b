package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ryotapoi/mdport/internal/core"
)

// parseFields splits a comma-separated field string into a slice.
// Returns nil for empty input.
func parseFields(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validateFormat checks that format is "json" or "text".
func validateFormat(format string) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid format: %q (must be json or text)", format)
	}
	return nil
}

// validateFields checks that all fields are in the valid set.
// name is used in the error message (e.g. "lookup", "stats").
func validateFields(fields []string, valid map[string]bool, name string) error {
	for _, f := range fields {
		if !valid[f] {
			return fmt.Errorf("unknown %s field: %s", name, f)
		}
	}
	return nil
}

// fieldSet returns a set of fields to show. If fields is nil/empty, all valid fields are shown.
func fieldSet(fields []string, valid map[string]bool) map[string]bool {
	if len(fields) == 0 {
		all := make(map[string]bool)
		for k := range valid {
			all[k] = true
		}
		return all
	}
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// --- Migrate output ---

func printMigrateText(w io.Writer, r *core.MigrateResult, logPath string) error {
	fmt.Fprintf(w, "run_id: %s\n", r.RunID)
	if r.BackupDir != "" {
		fmt.Fprintf(w, "backup_dir: %s\n", r.BackupDir)
	}
	fmt.Fprintf(w, "files: %d\n", r.Files)
	fmt.Fprintf(w, "files_changed: %d\n", r.FilesChanged)
	fmt.Fprintf(w, "blocks: %d\n", r.Blocks)
	fmt.Fprintf(w, "refs_resolved: %d\n", r.RefsResolved)
	fmt.Fprintf(w, "refs_unresolved: %d\n", r.RefsUnresolved)
	fmt.Fprintf(w, "lines_deleted: %d\n", r.LinesDeleted)
	fmt.Fprintf(w, "headers_added: %d\n", r.HeadersAdded)
	fmt.Fprintf(w, "errors: %d\n", r.Errors)
	if logPath != "" {
		fmt.Fprintf(w, "log: %s\n", logPath)
	}
	return nil
}

func printMigrateJSON(w io.Writer, r *core.MigrateResult, logPath string) error {
	m := map[string]any{
		"run_id":          r.RunID,
		"files":           r.Files,
		"files_changed":   r.FilesChanged,
		"blocks":          r.Blocks,
		"refs_resolved":   r.RefsResolved,
		"refs_unresolved": r.RefsUnresolved,
		"lines_deleted":   r.LinesDeleted,
		"headers_added":   r.HeadersAdded,
		"errors":          r.Errors,
	}
	if r.BackupDir != "" {
		m["backup_dir"] = r.BackupDir
	}
	if logPath != "" {
		m["log"] = logPath
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// --- Scan output ---

func printScanText(w io.Writer, r *core.ScanResult, logPath string) error {
	fmt.Fprintf(w, "run_id: %s\n", r.RunID)
	fmt.Fprintf(w, "files: %d\n", r.Files)
	fmt.Fprintf(w, "blocks: %d\n", r.Blocks)
	fmt.Fprintf(w, "definitions: %d\n", r.Definitions)
	fmt.Fprintf(w, "refs: %d\n", r.Refs)
	fmt.Fprintf(w, "unresolved: %d\n", r.Unresolved)
	fmt.Fprintf(w, "duplicates: %d\n", r.Duplicates)
	fmt.Fprintf(w, "read_errors: %d\n", r.ReadErrors)
	if logPath != "" {
		fmt.Fprintf(w, "log: %s\n", logPath)
	}
	return nil
}

func printScanJSON(w io.Writer, r *core.ScanResult) error {
	m := map[string]any{
		"run_id":      r.RunID,
		"files":       r.Files,
		"blocks":      r.Blocks,
		"definitions": r.Definitions,
		"refs":        r.Refs,
		"unresolved":  r.Unresolved,
		"duplicates":  r.Duplicates,
		"read_errors": r.ReadErrors,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// --- Aliases output ---

func printAliasText(w io.Writer, r *core.AliasResult, logPath string) error {
	fmt.Fprintf(w, "files: %d\n", r.Files)
	fmt.Fprintf(w, "files_changed: %d\n", r.FilesChanged)
	fmt.Fprintf(w, "errors: %d\n", r.Errors)
	if logPath != "" {
		fmt.Fprintf(w, "log: %s\n", logPath)
	}
	return nil
}

// --- Lookup output ---

var validLookupFields = map[string]bool{
	"id":   true,
	"text": true,
	"path": true,
	"line": true,
	"page": true,
	"defs": true,
	"refs": true,
}

func printLookupJSON(w io.Writer, r *core.LookupResult, fields []string) error {
	m := buildLookupMap(r, fields)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func printLookupText(w io.Writer, r *core.LookupResult, fields []string) error {
	show := fieldSet(fields, validLookupFields)

	if show["id"] {
		fmt.Fprintf(w, "id: %s\n", r.ID)
	}
	if show["text"] {
		fmt.Fprintf(w, "text: %s\n", r.Text)
	}
	if show["path"] {
		fmt.Fprintf(w, "path: %s\n", r.Path)
	}
	if show["line"] {
		fmt.Fprintf(w, "line: %d\n", r.Line)
	}
	if show["page"] && r.Page != "" {
		fmt.Fprintf(w, "page: %s\n", r.Page)
	}
	if show["defs"] {
		fmt.Fprintf(w, "defs: %d\n", r.Defs)
	}
	if show["refs"] {
		fmt.Fprintf(w, "refs: %d\n", r.Refs)
	}
	return nil
}

func buildLookupMap(r *core.LookupResult, fields []string) map[string]any {
	show := fieldSet(fields, validLookupFields)
	m := make(map[string]any)
	if show["id"] {
		m["id"] = r.ID
	}
	if show["text"] {
		m["text"] = r.Text
	}
	if show["path"] {
		m["path"] = r.Path
	}
	if show["line"] {
		m["line"] = r.Line
	}
	if show["page"] && r.Page != "" {
		m["page"] = r.Page
	}
	if show["defs"] {
		m["defs"] = r.Defs
	}
	if show["refs"] {
		m["refs"] = r.Refs
	}
	return m
}

// --- Stats output ---

var validStatsFieldsCLI = map[string]bool{
	"blocks":      true,
	"definitions": true,
	"refs":        true,
	"unresolved":  true,
	"duplicates":  true,
	"last_run":    true,
}

func printStatsJSON(w io.Writer, r *core.StatsResult, fields []string) error {
	show := fieldSet(fields, validStatsFieldsCLI)
	m := make(map[string]any)
	if show["blocks"] {
		m["blocks"] = r.Blocks
	}
	if show["definitions"] {
		m["definitions"] = r.Definitions
	}
	if show["refs"] {
		m["refs"] = r.Refs
	}
	if show["unresolved"] {
		m["unresolved"] = r.Unresolved
	}
	if show["duplicates"] {
		m["duplicates"] = r.Duplicates
	}
	if show["last_run"] && r.LastRunID != "" {
		m["last_run"] = map[string]string{"id": r.LastRunID, "kind": r.LastRunKind}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func printStatsText(w io.Writer, r *core.StatsResult, fields []string) error {
	show := fieldSet(fields, validStatsFieldsCLI)
	if show["blocks"] {
		fmt.Fprintf(w, "blocks: %d\n", r.Blocks)
	}
	if show["definitions"] {
		fmt.Fprintf(w, "definitions: %d\n", r.Definitions)
	}
	if show["refs"] {
		fmt.Fprintf(w, "refs: %d\n", r.Refs)
	}
	if show["unresolved"] {
		fmt.Fprintf(w, "unresolved: %d\n", r.Unresolved)
	}
	if show["duplicates"] {
		fmt.Fprintf(w, "duplicates: %d\n", r.Duplicates)
	}
	if show["last_run"] && r.LastRunID != "" {
		fmt.Fprintf(w, "last_run_id: %s\n", r.LastRunID)
		fmt.Fprintf(w, "last_run_kind: %s\n", r.LastRunKind)
	}
	return nil
}

// --- Diagnose output ---

var validDiagnoseFieldsCLI = map[string]bool{
	"duplicates": true,
	"unresolved": true,
}

type diagnoseJSONDefinition struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

type diagnoseJSONDuplicate struct {
	ID          string                   `json:"id"`
	Definitions []diagnoseJSONDefinition `json:"definitions"`
}

type diagnoseJSONReference struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Line int    `json:"line"`
}

func printDiagnoseJSON(w io.Writer, r *core.DiagnoseResult, fields []string) error {
	show := fieldSet(fields, validDiagnoseFieldsCLI)
	m := make(map[string]any)
	if show["duplicates"] {
		groups := make([]diagnoseJSONDuplicate, len(r.Duplicates))
		for i, g := range r.Duplicates {
			defs := make([]diagnoseJSONDefinition, len(g.Definitions))
			for j, d := range g.Definitions {
				defs[j] = diagnoseJSONDefinition{Path: d.Path, Line: d.Line, Text: d.Text}
			}
			groups[i] = diagnoseJSONDuplicate{ID: g.ID, Definitions: defs}
		}
		m["duplicates"] = groups
	}
	if show["unresolved"] {
		refs := make([]diagnoseJSONReference, len(r.Unresolved))
		for i, ref := range r.Unresolved {
			refs[i] = diagnoseJSONReference{ID: ref.ID, Path: ref.Path, Line: ref.Line}
		}
		m["unresolved"] = refs
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func printDiagnoseText(w io.Writer, r *core.DiagnoseResult, fields []string) error {
	show := fieldSet(fields, validDiagnoseFieldsCLI)
	if show["duplicates"] {
		fmt.Fprintln(w, "duplicates:")
		for _, g := range r.Duplicates {
			fmt.Fprintf(w, "- id: %s\n", g.ID)
			fmt.Fprintln(w, "  definitions:")
			for _, d := range g.Definitions {
				fmt.Fprintf(w, "  - %s:%d: %s\n", d.Path, d.Line, d.Text)
			}
		}
	}
	if show["unresolved"] {
		fmt.Fprintln(w, "unresolved:")
		for _, ref := range r.Unresolved {
			fmt.Fprintf(w, "- %s:%d: %s\n", ref.Path, ref.Line, ref.ID)
		}
	}
	return nil
}
