package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// pageKey is the sidecar property whose value becomes the " page-<N>" suffix
// on rendered link text.
const pageKey = "hl-page"

// defaultSidecarKeys are the annotation properties recognized out of the box.
var defaultSidecarKeys = []string{"ls-type", pageKey, "hl-color"}

// SidecarKeys matches the annotation lines that ride along under an id::
// declaration. The scanner's backward walk passes over them and the rewriter
// deletes them together with the declaration.
type SidecarKeys struct {
	prefixes []string
}

// NewSidecarKeys returns the default key set extended with extra keys from
// configuration. A trailing "::" on an extra key is tolerated.
func NewSidecarKeys(extra []string) SidecarKeys {
	var s SidecarKeys
	seen := make(map[string]bool)
	keys := append(append([]string{}, defaultSidecarKeys...), extra...)
	for _, k := range keys {
		k = strings.TrimSuffix(strings.TrimSpace(k), "::")
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		s.prefixes = append(s.prefixes, k+"::")
	}
	return s
}

func (s SidecarKeys) isSidecar(trimmed string) bool {
	for _, p := range s.prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func (s SidecarKeys) isPage(trimmed string) bool {
	return strings.HasPrefix(trimmed, pageKey+"::")
}

// pageValue extracts the trimmed value of an hl-page:: line.
func pageValue(trimmed string) string {
	parts := strings.Split(trimmed, "::")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Definition records one id:: declaration and its rendered link text.
type Definition struct {
	ID   string
	Text string
	Path string // vault-relative defining file
	Line int    // 1-based line of the declaration
	Page string // captured hl-page value, "" if none
}

// Reference records one ((id)) token occurrence.
type Reference struct {
	ID   string
	Path string
	Line int
}

// BlockIndex is the identifier database built by ScanFiles. It is a snapshot:
// fully populated during the scan phase, read-only during the rewrite phase.
type BlockIndex struct {
	entries map[string]Definition
	defs    []Definition
	refs    []Reference
}

func newBlockIndex() *BlockIndex {
	return &BlockIndex{entries: make(map[string]Definition)}
}

// Resolve returns the rendered link text for id.
func (ix *BlockIndex) Resolve(id string) (string, bool) {
	e, ok := ix.entries[id]
	return e.Text, ok
}

// Entry returns the effective (last-wins) definition for id.
func (ix *BlockIndex) Entry(id string) (Definition, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

// Len returns the number of distinct identifiers.
func (ix *BlockIndex) Len() int {
	return len(ix.entries)
}

// Definitions returns every definition occurrence in scan order.
func (ix *BlockIndex) Definitions() []Definition {
	return ix.defs
}

// References returns every reference occurrence in scan order.
func (ix *BlockIndex) References() []Reference {
	return ix.refs
}

// Unresolved returns the references whose identifiers have no definition.
func (ix *BlockIndex) Unresolved() []Reference {
	var out []Reference
	for _, r := range ix.refs {
		if _, ok := ix.entries[r.ID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// DuplicateCount returns the number of identifiers defined more than once.
func (ix *BlockIndex) DuplicateCount() int {
	counts := make(map[string]int, len(ix.defs))
	for _, d := range ix.defs {
		counts[d.ID]++
	}
	n := 0
	for _, c := range counts {
		if c > 1 {
			n++
		}
	}
	return n
}

// ScanFiles builds the identifier database for the given files (the read-only
// phase). It never writes; a file that cannot be read is logged and skipped.
// The second return value is the number of files skipped that way.
func ScanFiles(vaultPath string, files []string, sidecars SidecarKeys, logger *zap.Logger) (*BlockIndex, int) {
	ix := newBlockIndex()
	readErrors := 0
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(vaultPath, rel))
		if err != nil {
			logger.Error("scan: read failed", zap.String("path", rel), zap.Error(err))
			readErrors++
			continue
		}
		scanLines(ix, rel, strings.Split(string(data), "\n"), sidecars, logger)
	}
	return ix, readErrors
}

// scanLines records every reference token and every identifier definition in
// one file. For a definition it walks backward from the id:: line, skipping
// blanks and sidecar annotations (capturing the hl-page value on the way), to
// the block's content line. Sidecars may also trail the declaration, so when
// the walk saw no page value the contiguous sidecar run below it is checked
// too. Declarations with no content line, or whose content is itself a bare
// reference token, produce no entry.
func scanLines(ix *BlockIndex, path string, lines []string, sidecars SidecarKeys, logger *zap.Logger) {
	for i, line := range lines {
		for _, id := range refTokenIDs(line) {
			ix.refs = append(ix.refs, Reference{ID: id, Path: path, Line: i + 1})
		}

		id, ok := findBlockID(line)
		if !ok {
			continue
		}

		page := ""
		contentIdx := -1
		for j := i - 1; j >= 0; j-- {
			t := strings.TrimSpace(lines[j])
			if t == "" {
				continue
			}
			if sidecars.isPage(t) {
				page = pageValue(t)
				continue
			}
			if sidecars.isSidecar(t) {
				continue
			}
			contentIdx = j
			break
		}
		if contentIdx < 0 {
			continue
		}
		if page == "" {
			for j := i + 1; j < len(lines); j++ {
				t := strings.TrimSpace(lines[j])
				if !sidecars.isSidecar(t) {
					break
				}
				if sidecars.isPage(t) {
					page = pageValue(t)
					break
				}
			}
		}

		text := strings.TrimSpace(lines[contentIdx])
		if strings.HasPrefix(text, "- ") {
			text = strings.TrimSpace(text[2:])
		}
		if isRefToken(text) {
			continue
		}
		if page != "" {
			text += " page-" + page
		}
		text = SanitizeLinkText(text)

		if prev, dup := ix.entries[id]; dup && prev.Text != text {
			logger.Warn("identifier redefined",
				zap.String("id", id),
				zap.String("path", path),
				zap.String("previous_path", prev.Path))
		}
		def := Definition{ID: id, Text: text, Path: path, Line: i + 1, Page: page}
		ix.entries[id] = def
		ix.defs = append(ix.defs, def)
	}
}

// ScanResult reports the outcome of a scan run.
type ScanResult struct {
	RunID       string
	Files       int
	Blocks      int
	Definitions int
	Refs        int
	Unresolved  int
	Duplicates  int
	ReadErrors  int
}

// Scan builds the identifier database for the whole vault and persists it to
// .mdport/index.sqlite. Unlike Migrate it never touches vault files.
func Scan(vaultPath string, logger *zap.Logger) (*ScanResult, error) {
	cfg, err := LoadConfig(vaultPath)
	if err != nil {
		return nil, err
	}

	files, err := CollectMarkdownFiles(vaultPath)
	if err != nil {
		return nil, err
	}
	files = filterExcluded(files, cfg.Exclude.Paths)
	if len(files) == 0 {
		logger.Warn("no markdown files found", zap.String("vault", vaultPath))
	}

	started := time.Now()
	sidecars := NewSidecarKeys(cfg.Migrate.SidecarKeys)
	ix, readErrors := ScanFiles(vaultPath, files, sidecars, logger)

	res := &ScanResult{
		RunID:       uuid.NewString(),
		Files:       len(files),
		Blocks:      ix.Len(),
		Definitions: len(ix.Definitions()),
		Refs:        len(ix.References()),
		Unresolved:  len(ix.Unresolved()),
		Duplicates:  ix.DuplicateCount(),
		ReadErrors:  readErrors,
	}

	run := RunInfo{
		ID:         res.RunID,
		Kind:       "scan",
		StartedAt:  started,
		FinishedAt: time.Now(),
		Files:      res.Files,
		Unresolved: res.Unresolved,
	}
	if err := saveIndex(vaultPath, ix, run); err != nil {
		return nil, err
	}
	logger.Info("scan complete",
		zap.String("run_id", res.RunID),
		zap.Int("files", res.Files),
		zap.Int("blocks", res.Blocks),
		zap.Int("unresolved", res.Unresolved))
	return res, nil
}
