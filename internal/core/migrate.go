package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MigrateOptions controls the migrate operation.
type MigrateOptions struct {
	NoBackup bool
	DryRun   bool
}

// MigrateResult reports the outcome of a migration run.
type MigrateResult struct {
	RunID          string
	BackupDir      string
	Files          int
	Blocks         int
	FilesChanged   int
	RefsResolved   int
	RefsUnresolved int
	LinesDeleted   int
	HeadersAdded   int
	Errors         int
}

// Migrate runs the full two-phase migration: back everything up, build the
// identifier database (read-only), then rewrite every file in one
// read-transform-write cycle. Per-file failures are logged and skipped;
// backup failure aborts before any file is touched.
func Migrate(vaultPath string, opts MigrateOptions, logger *zap.Logger) (*MigrateResult, error) {
	cfg, err := LoadConfig(vaultPath)
	if err != nil {
		return nil, err
	}

	files, err := CollectMarkdownFiles(vaultPath)
	if err != nil {
		return nil, err
	}
	files = filterExcluded(files, cfg.Exclude.Paths)

	res := &MigrateResult{RunID: uuid.NewString(), Files: len(files)}
	if len(files) == 0 {
		logger.Warn("no markdown files found", zap.String("vault", vaultPath))
		return res, nil
	}
	logger.Info("migration starting",
		zap.String("run_id", res.RunID),
		zap.String("vault", vaultPath),
		zap.Int("files", len(files)))

	switch {
	case opts.DryRun:
		logger.Info("dry run: no backup, no writes")
	case opts.NoBackup:
		logger.Info("skipping backup")
	default:
		dir, err := CreateBackup(vaultPath, files, logger)
		if err != nil {
			return nil, fmt.Errorf("backup failed: %w", err)
		}
		res.BackupDir = dir
	}

	started := time.Now()
	sidecars := NewSidecarKeys(cfg.Migrate.SidecarKeys)
	ix, readErrors := ScanFiles(vaultPath, files, sidecars, logger)
	res.Blocks = ix.Len()
	res.Errors += readErrors
	logger.Info("identifier database built", zap.Int("blocks", ix.Len()))

	for _, rel := range files {
		full := filepath.Join(vaultPath, rel)
		info, err := os.Stat(full)
		if err != nil {
			logger.Error("stat failed", zap.String("path", rel), zap.Error(err))
			res.Errors++
			continue
		}
		content, err := os.ReadFile(full)
		if err != nil {
			logger.Error("read failed", zap.String("path", rel), zap.Error(err))
			res.Errors++
			continue
		}

		out, stats := rewriteContent(string(content), ix, sidecars)
		res.RefsResolved += stats.refsResolved
		res.RefsUnresolved += stats.refsUnresolved
		res.LinesDeleted += stats.linesDeleted
		if stats.headerLines > 0 {
			res.HeadersAdded++
		}
		if out == string(content) {
			continue
		}
		res.FilesChanged++
		if opts.DryRun {
			logger.Info("would rewrite", zap.String("path", rel))
			continue
		}
		if err := writeFilePreservePerm(full, []byte(out), info.Mode().Perm()); err != nil {
			logger.Error("write failed", zap.String("path", rel), zap.Error(err))
			res.Errors++
			continue
		}
	}

	if !opts.DryRun {
		run := RunInfo{
			ID:         res.RunID,
			Kind:       "migrate",
			StartedAt:  started,
			FinishedAt: time.Now(),
			Files:      res.Files,
			Unresolved: len(ix.Unresolved()),
		}
		if err := saveIndex(vaultPath, ix, run); err != nil {
			logger.Warn("index save failed", zap.Error(err))
		}
	}

	logger.Info("migration complete",
		zap.Int("files_changed", res.FilesChanged),
		zap.Int("refs_resolved", res.RefsResolved),
		zap.Int("refs_unresolved", res.RefsUnresolved),
		zap.Int("errors", res.Errors))
	return res, nil
}

// rewriteStats counts the transformations applied to one file.
type rewriteStats struct {
	refsResolved   int
	refsUnresolved int
	fused          int
	linesDeleted   int
	headerLines    int
}

// rewriteContent transforms one file's content against the identifier
// database: header conversion first, then per line (over the converted
// sequence) reference substitution and one-line-lookahead fusion. Lines
// consumed by fusion are only marked; survivors are filtered into a fresh
// slice at the end. The function never touches the filesystem.
func rewriteContent(content string, ix *BlockIndex, sidecars SidecarKeys) (string, rewriteStats) {
	var stats rewriteStats
	lines, headerLen := convertProperties(strings.Split(content, "\n"))
	stats.headerLines = headerLen

	deleted := make([]bool, len(lines))
	for i := range lines {
		line, resolved, unresolved := replaceRefs(lines[i], ix)
		lines[i] = line
		stats.refsResolved += resolved
		stats.refsUnresolved += unresolved

		if i+1 >= len(lines) {
			continue
		}
		id, ok := findBlockID(lines[i+1])
		if !ok {
			continue
		}
		text, ok := ix.Resolve(id)
		if !ok {
			// Unknown identifier: the declaration and its sidecars stay.
			continue
		}
		lines[i] = listMarkerPrefix(lines[i]) + "[[" + text + "]]"
		stats.fused++
		deleted[i+1] = true
		for j := i + 2; j < len(lines) && sidecars.isSidecar(strings.TrimSpace(lines[j])); j++ {
			deleted[j] = true
		}
	}

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if deleted[i] {
			stats.linesDeleted++
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), stats
}

// listMarkerPrefix returns the leading indentation plus list marker of line
// (the `\s*-\s*` run), or "" when the line does not start with a list marker.
func listMarkerPrefix(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i >= len(line) || line[i] != '-' {
		return ""
	}
	i++
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

// writeFilePreservePerm writes data to path with the given permission bits.
// os.WriteFile applies umask on file creation, so os.Chmod is called to
// ensure the exact permission bits are set.
func writeFilePreservePerm(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	return os.Chmod(path, perm)
}
