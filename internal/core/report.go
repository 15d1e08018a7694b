package core

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
)

// errNoIndex is returned by read-side operations when no index has been built.
func errNoIndex() error {
	return fmt.Errorf("index not found: run 'mdport scan' first")
}

func openIndex(vaultPath string) (*sql.DB, error) {
	p := dbPath(vaultPath)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return nil, errNoIndex()
	}
	return openDBAt(p)
}

// isFieldActive returns true if the field is requested (or if fields is
// empty, meaning all).
func isFieldActive(field string, fields []string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// LookupResult describes one identifier in the persisted index.
type LookupResult struct {
	ID   string
	Text string
	Path string
	Line int
	Page string
	Defs int // definition occurrences
	Refs int // reference occurrences
}

// Lookup resolves one block identifier from the persisted index.
func Lookup(vaultPath, id string) (*LookupResult, error) {
	if !IsBlockID(id) {
		return nil, fmt.Errorf("invalid identifier: %q", id)
	}

	db, err := openIndex(vaultPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	result := &LookupResult{ID: id}
	row := db.QueryRow(`SELECT text, path, line, page FROM blocks WHERE id = ?`, id)
	if err := row.Scan(&result.Text, &result.Path, &result.Line, &result.Page); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("identifier not found: %s", id)
		}
		return nil, err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM definitions WHERE block_id = ?`, id).Scan(&result.Defs); err != nil {
		return nil, err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM refs WHERE block_id = ?`, id).Scan(&result.Refs); err != nil {
		return nil, err
	}
	return result, nil
}

// StatsOptions controls which fields to return.
type StatsOptions struct {
	Fields []string // nil/empty = all
}

// StatsResult contains aggregate statistics for the persisted index.
type StatsResult struct {
	Blocks      int
	Definitions int
	Refs        int
	Unresolved  int
	Duplicates  int
	LastRunID   string
	LastRunKind string
}

var validStatsFields = map[string]bool{
	"blocks":      true,
	"definitions": true,
	"refs":        true,
	"unresolved":  true,
	"duplicates":  true,
	"last_run":    true,
}

func validateStatsFields(fields []string) error {
	for _, f := range fields {
		if !validStatsFields[f] {
			return fmt.Errorf("unknown stats field: %s", f)
		}
	}
	return nil
}

// Stats returns aggregate statistics for the persisted index.
func Stats(vaultPath string, opts StatsOptions) (*StatsResult, error) {
	if err := validateStatsFields(opts.Fields); err != nil {
		return nil, err
	}

	db, err := openIndex(vaultPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	result := &StatsResult{}

	if isFieldActive("blocks", opts.Fields) {
		if err := db.QueryRow(`SELECT COUNT(*) FROM blocks`).Scan(&result.Blocks); err != nil {
			return nil, err
		}
	}
	if isFieldActive("definitions", opts.Fields) {
		if err := db.QueryRow(`SELECT COUNT(*) FROM definitions`).Scan(&result.Definitions); err != nil {
			return nil, err
		}
	}
	if isFieldActive("refs", opts.Fields) {
		if err := db.QueryRow(`SELECT COUNT(*) FROM refs`).Scan(&result.Refs); err != nil {
			return nil, err
		}
	}
	if isFieldActive("unresolved", opts.Fields) {
		err := db.QueryRow(
			`SELECT COUNT(*) FROM refs r LEFT JOIN blocks b ON b.id = r.block_id WHERE b.id IS NULL`,
		).Scan(&result.Unresolved)
		if err != nil {
			return nil, err
		}
	}
	if isFieldActive("duplicates", opts.Fields) {
		err := db.QueryRow(
			`SELECT COUNT(*) FROM (
				SELECT block_id FROM definitions GROUP BY block_id HAVING COUNT(*) > 1
			)`,
		).Scan(&result.Duplicates)
		if err != nil {
			return nil, err
		}
	}
	if isFieldActive("last_run", opts.Fields) {
		row := db.QueryRow(`SELECT id, kind FROM runs ORDER BY finished_at DESC, id LIMIT 1`)
		if err := row.Scan(&result.LastRunID, &result.LastRunKind); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	return result, nil
}

// DiagnoseOptions controls which fields to return.
type DiagnoseOptions struct {
	Fields []string // nil/empty = all
}

// DuplicateGroup lists every definition site of an identifier defined more
// than once. The last site wins during migration.
type DuplicateGroup struct {
	ID          string
	Definitions []Definition
}

// DiagnoseResult contains diagnostic information about the persisted index.
type DiagnoseResult struct {
	Duplicates []DuplicateGroup // ordered by identifier
	Unresolved []Reference      // ordered by path, line
}

var validDiagnoseFields = map[string]bool{
	"duplicates": true,
	"unresolved": true,
}

func validateDiagnoseFields(fields []string) error {
	for _, f := range fields {
		if !validDiagnoseFields[f] {
			return fmt.Errorf("unknown diagnose field: %s", f)
		}
	}
	return nil
}

// Diagnose reports ambiguous identifier definitions and references that no
// definition resolves.
func Diagnose(vaultPath string, opts DiagnoseOptions) (*DiagnoseResult, error) {
	if err := validateDiagnoseFields(opts.Fields); err != nil {
		return nil, err
	}

	db, err := openIndex(vaultPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	result := &DiagnoseResult{}

	if isFieldActive("duplicates", opts.Fields) {
		rows, err := db.Query(
			`SELECT block_id, text, path, line FROM definitions
			 WHERE block_id IN (
				SELECT block_id FROM definitions GROUP BY block_id HAVING COUNT(*) > 1
			 )
			 ORDER BY block_id, id`,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var current *DuplicateGroup
		for rows.Next() {
			var d Definition
			if err := rows.Scan(&d.ID, &d.Text, &d.Path, &d.Line); err != nil {
				return nil, err
			}
			if current == nil || current.ID != d.ID {
				result.Duplicates = append(result.Duplicates, DuplicateGroup{ID: d.ID})
				current = &result.Duplicates[len(result.Duplicates)-1]
			}
			current.Definitions = append(current.Definitions, d)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	if isFieldActive("unresolved", opts.Fields) {
		rows, err := db.Query(
			`SELECT r.block_id, r.path, r.line FROM refs r
			 LEFT JOIN blocks b ON b.id = r.block_id
			 WHERE b.id IS NULL
			 ORDER BY r.path, r.line`,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var r Reference
			if err := rows.Scan(&r.ID, &r.Path, &r.Line); err != nil {
				return nil, err
			}
			result.Unresolved = append(result.Unresolved, r)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return result, nil
}
