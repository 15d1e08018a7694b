package core

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	dataDirName = ".mdport"
	dbFileName  = "index.sqlite"
	logsDirName = "logs"
)

func dbPath(vaultPath string) string {
	return filepath.Join(vaultPath, dataDirName, dbFileName)
}

// LogDir returns the directory for run logs inside the vault data dir.
func LogDir(vaultPath string) string {
	return filepath.Join(vaultPath, dataDirName, logsDirName)
}

func ensureDataDir(vaultPath string) (string, error) {
	dir := filepath.Join(vaultPath, dataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func openDBAt(path string) (*sql.DB, error) {
	return sql.Open("sqlite", fmt.Sprintf("file:%s", path))
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blocks (
			id   TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			path TEXT NOT NULL,
			line INTEGER NOT NULL,
			page TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS definitions (
			id       INTEGER PRIMARY KEY,
			block_id TEXT NOT NULL,
			text     TEXT NOT NULL,
			path     TEXT NOT NULL,
			line     INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_definitions_block ON definitions(block_id);`,
		`CREATE TABLE IF NOT EXISTS refs (
			id       INTEGER PRIMARY KEY,
			block_id TEXT NOT NULL,
			path     TEXT NOT NULL,
			line     INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_refs_block ON refs(block_id);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			files       INTEGER NOT NULL,
			blocks      INTEGER NOT NULL,
			refs        INTEGER NOT NULL,
			unresolved  INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RunInfo describes the scan or migrate run that produced an index.
type RunInfo struct {
	ID         string
	Kind       string // "scan" or "migrate"
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int
	Unresolved int
}

// saveIndex persists the identifier database to .mdport/index.sqlite. The
// index is written to a temporary file first and renamed into place, so a
// failed save never leaves a truncated index behind.
func saveIndex(vaultPath string, ix *BlockIndex, run RunInfo) error {
	if _, err := ensureDataDir(vaultPath); err != nil {
		return err
	}

	tmpPath := dbPath(vaultPath) + ".tmp"
	_ = os.Remove(tmpPath)
	defer os.Remove(tmpPath)

	db, err := openDBAt(tmpPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := initSchema(db); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := insertIndex(tx, ix, run); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if err := db.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dbPath(vaultPath))
}

func insertIndex(tx *sql.Tx, ix *BlockIndex, run RunInfo) error {
	for _, d := range ix.Definitions() {
		if _, err := tx.Exec(
			`INSERT INTO definitions (block_id, text, path, line) VALUES (?, ?, ?, ?)`,
			d.ID, d.Text, d.Path, d.Line,
		); err != nil {
			return err
		}
	}
	for id, d := range ix.entries {
		if _, err := tx.Exec(
			`INSERT INTO blocks (id, text, path, line, page) VALUES (?, ?, ?, ?, ?)`,
			id, d.Text, d.Path, d.Line, d.Page,
		); err != nil {
			return err
		}
	}
	for _, r := range ix.References() {
		if _, err := tx.Exec(
			`INSERT INTO refs (block_id, path, line) VALUES (?, ?, ?)`,
			r.ID, r.Path, r.Line,
		); err != nil {
			return err
		}
	}
	_, err := tx.Exec(
		`INSERT INTO runs (id, kind, started_at, finished_at, files, blocks, refs, unresolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Files, ix.Len(), len(ix.References()), run.Unresolved,
	)
	return err
}
