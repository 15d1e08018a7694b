package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ryotapoi/mdport/internal/testutil"
)

func testIndex() *BlockIndex {
	ix := newBlockIndex()
	ix.entries[idOne] = Definition{ID: idOne, Text: "Some fact page-5"}
	return ix
}

func TestRewriteContentFusion(t *testing.T) {
	in := "- Some fact\nid:: " + idOne + "\nhl-page:: 5\n"
	out, stats := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	if out != "- [[Some fact page-5]]\n" {
		t.Errorf("content = %q, want %q", out, "- [[Some fact page-5]]\n")
	}
	if stats.fused != 1 {
		t.Errorf("fused = %d, want 1", stats.fused)
	}
	if stats.linesDeleted != 2 {
		t.Errorf("lines deleted = %d, want 2", stats.linesDeleted)
	}
}

func TestRewriteContentIndentedListMarker(t *testing.T) {
	in := "  - Some fact\n    id:: " + idOne + "\nnext"
	out, _ := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	want := "  - [[Some fact page-5]]\nnext"
	if out != want {
		t.Errorf("content = %q, want %q", out, want)
	}
}

func TestRewriteContentNoListMarker(t *testing.T) {
	// A content line without a list marker is replaced by the bare link.
	in := "Some text\nid:: " + idOne + "\n"
	out, _ := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	if out != "[[Some fact page-5]]\n" {
		t.Errorf("content = %q, want %q", out, "[[Some fact page-5]]\n")
	}
}

func TestRewriteContentSidecarSweepStopsAtContent(t *testing.T) {
	in := "- A\nid:: " + idOne + "\nhl-color:: red\nhl-page:: 9\n- B\n"
	out, stats := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	want := "- [[Some fact page-5]]\n- B\n"
	if out != want {
		t.Errorf("content = %q, want %q", out, want)
	}
	if stats.linesDeleted != 3 {
		t.Errorf("lines deleted = %d, want 3", stats.linesDeleted)
	}
}

func TestRewriteContentUnknownIdentifierUntouched(t *testing.T) {
	in := "- Mystery\nid:: " + idTwo + "\nhl-page:: 4\n"
	out, stats := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	if out != in {
		t.Errorf("content = %q, want unchanged", out)
	}
	if stats.fused != 0 || stats.linesDeleted != 0 {
		t.Errorf("stats = %+v, want no fusion and no deletions", stats)
	}
}

func TestRewriteContentRefSubstitution(t *testing.T) {
	in := "see ((" + idOne + ")) and ((" + idTwo + "))\n"
	out, stats := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	want := "see [[Some fact page-5]] and ((" + idTwo + "))\n"
	if out != want {
		t.Errorf("content = %q, want %q", out, want)
	}
	if stats.refsResolved != 1 {
		t.Errorf("refs resolved = %d, want 1", stats.refsResolved)
	}
	if stats.refsUnresolved != 1 {
		t.Errorf("refs unresolved = %d, want 1", stats.refsUnresolved)
	}
}

func TestRewriteContentHeaderConversion(t *testing.T) {
	in := "title:: Doc\n\n- see ((" + idOne + "))\n"
	out, stats := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	want := "---\ntitle:\n  - \"Doc\"\n---\n\n- see [[Some fact page-5]]\n"
	if out != want {
		t.Errorf("content = %q, want %q", out, want)
	}
	if stats.headerLines != 4 {
		t.Errorf("header lines = %d, want 4", stats.headerLines)
	}
}

func TestRewriteContentPlainFileUnchanged(t *testing.T) {
	in := "# Title\n\nplain text\n"
	out, stats := rewriteContent(in, testIndex(), NewSidecarKeys(nil))

	if out != in {
		t.Errorf("content = %q, want unchanged", out)
	}
	if stats != (rewriteStats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestListMarkerPrefix(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"- item", "- "},
		{"  - item", "  - "},
		{"\t- item", "\t- "},
		{"-item", "-"},
		{"- ", "- "},
		{"no marker", ""},
		{"  indented", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := listMarkerPrefix(tt.line); got != tt.want {
			t.Errorf("listMarkerPrefix(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func hasDirWithPrefix(t *testing.T, root, prefix string) bool {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("readdir %s: %v", root, err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return true
		}
	}
	return false
}

func TestMigrateEndToEnd(t *testing.T) {
	vault := t.TempDir()
	facts := "- Some fact\nid:: " + idOne + "\nhl-page:: 5\n"
	notes := "Check ((" + idOne + ")) now\n"
	testutil.WriteVault(t, vault, map[string]string{
		"pages/facts.md": facts,
		"pages/notes.md": notes,
	})

	res, err := Migrate(vault, MigrateOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if got := testutil.ReadFile(t, vault, "pages/facts.md"); got != "- [[Some fact page-5]]\n" {
		t.Errorf("facts.md = %q, want %q", got, "- [[Some fact page-5]]\n")
	}
	if got := testutil.ReadFile(t, vault, "pages/notes.md"); got != "Check [[Some fact page-5]] now\n" {
		t.Errorf("notes.md = %q, want %q", got, "Check [[Some fact page-5]] now\n")
	}

	if res.Files != 2 {
		t.Errorf("files = %d, want 2", res.Files)
	}
	if res.Blocks != 1 {
		t.Errorf("blocks = %d, want 1", res.Blocks)
	}
	if res.FilesChanged != 2 {
		t.Errorf("files changed = %d, want 2", res.FilesChanged)
	}
	if res.RefsResolved != 1 {
		t.Errorf("refs resolved = %d, want 1", res.RefsResolved)
	}
	if res.RefsUnresolved != 0 {
		t.Errorf("refs unresolved = %d, want 0", res.RefsUnresolved)
	}
	if res.LinesDeleted != 2 {
		t.Errorf("lines deleted = %d, want 2", res.LinesDeleted)
	}
	if res.Errors != 0 {
		t.Errorf("errors = %d, want 0", res.Errors)
	}
	if res.RunID == "" {
		t.Error("run id is empty")
	}

	// The backup holds the originals.
	backup := testutil.FindDir(t, vault, "mdport_backup_")
	if res.BackupDir != backup {
		t.Errorf("backup dir = %q, want %q", res.BackupDir, backup)
	}
	if got := testutil.ReadFile(t, backup, "pages/facts.md"); got != facts {
		t.Errorf("backup facts.md = %q, want original", got)
	}
	if got := testutil.ReadFile(t, backup, "pages/notes.md"); got != notes {
		t.Errorf("backup notes.md = %q, want original", got)
	}

	if _, err := os.Stat(dbPath(vault)); err != nil {
		t.Errorf("index not persisted: %v", err)
	}
}

func TestMigrateHeaderAndMixedRefs(t *testing.T) {
	vault := t.TempDir()
	facts := "title:: My *Page*\n- Some fact\nid:: " + idOne + "\nhl-page:: 5\n"
	notes := "Check ((" + idOne + ")) now\nmissing ((" + idTwo + ")) here\n"
	testutil.WriteVault(t, vault, map[string]string{
		"facts.md": facts,
		"notes.md": notes,
	})

	res, err := Migrate(vault, MigrateOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	wantFacts := "---\ntitle:\n  - \"My *Page*\"\n---\n- [[Some fact page-5]]\n"
	if got := testutil.ReadFile(t, vault, "facts.md"); got != wantFacts {
		t.Errorf("facts.md = %q, want %q", got, wantFacts)
	}
	wantNotes := "Check [[Some fact page-5]] now\nmissing ((" + idTwo + ")) here\n"
	if got := testutil.ReadFile(t, vault, "notes.md"); got != wantNotes {
		t.Errorf("notes.md = %q, want %q", got, wantNotes)
	}

	if res.Files != 2 {
		t.Errorf("files = %d, want 2", res.Files)
	}
	if res.Blocks != 1 {
		t.Errorf("blocks = %d, want 1", res.Blocks)
	}
	if res.FilesChanged != 2 {
		t.Errorf("files changed = %d, want 2", res.FilesChanged)
	}
	if res.RefsResolved != 1 {
		t.Errorf("refs resolved = %d, want 1", res.RefsResolved)
	}
	if res.RefsUnresolved != 1 {
		t.Errorf("refs unresolved = %d, want 1", res.RefsUnresolved)
	}
	if res.LinesDeleted != 2 {
		t.Errorf("lines deleted = %d, want 2", res.LinesDeleted)
	}
	if res.HeadersAdded != 1 {
		t.Errorf("headers added = %d, want 1", res.HeadersAdded)
	}
	if res.Errors != 0 {
		t.Errorf("errors = %d, want 0", res.Errors)
	}

	backup := testutil.FindDir(t, vault, "mdport_backup_")
	if got := testutil.ReadFile(t, backup, "facts.md"); got != facts {
		t.Errorf("backup facts.md = %q, want original", got)
	}
	if got := testutil.ReadFile(t, backup, "notes.md"); got != notes {
		t.Errorf("backup notes.md = %q, want original", got)
	}
}

func TestMigrateUnresolvedAndOrphanDeclaration(t *testing.T) {
	vault := t.TempDir()
	refs := "see ((" + idTwo + ")) later\n"
	decl := "# Notes\n- ((" + idTwo + "))\nid:: " + idThree + "\nhl-page:: 4\n"
	testutil.WriteVault(t, vault, map[string]string{
		"refs.md": refs,
		"decl.md": decl,
	})

	res, err := Migrate(vault, MigrateOptions{NoBackup: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if got := testutil.ReadFile(t, vault, "refs.md"); got != refs {
		t.Errorf("refs.md = %q, want unchanged", got)
	}
	if got := testutil.ReadFile(t, vault, "decl.md"); got != decl {
		t.Errorf("decl.md = %q, want unchanged", got)
	}
	if res.FilesChanged != 0 {
		t.Errorf("files changed = %d, want 0", res.FilesChanged)
	}
	if res.Blocks != 0 {
		t.Errorf("blocks = %d, want 0", res.Blocks)
	}
	if res.RefsUnresolved != 2 {
		t.Errorf("refs unresolved = %d, want 2", res.RefsUnresolved)
	}
}

func TestMigrateDryRun(t *testing.T) {
	vault := t.TempDir()
	facts := "- Some fact\nid:: " + idOne + "\n"
	testutil.WriteVault(t, vault, map[string]string{"facts.md": facts})

	res, err := Migrate(vault, MigrateOptions{DryRun: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if got := testutil.ReadFile(t, vault, "facts.md"); got != facts {
		t.Errorf("facts.md = %q, want unchanged", got)
	}
	if res.FilesChanged != 1 {
		t.Errorf("files changed = %d, want 1", res.FilesChanged)
	}
	if hasDirWithPrefix(t, vault, "mdport_backup_") {
		t.Error("dry run created a backup directory")
	}
	if _, err := os.Stat(filepath.Join(vault, dataDirName)); !os.IsNotExist(err) {
		t.Error("dry run created the data directory")
	}
}

func TestMigrateNoBackup(t *testing.T) {
	vault := t.TempDir()
	testutil.WriteVault(t, vault, map[string]string{
		"facts.md": "- Some fact\nid:: " + idOne + "\n",
	})

	res, err := Migrate(vault, MigrateOptions{NoBackup: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if res.BackupDir != "" {
		t.Errorf("backup dir = %q, want empty", res.BackupDir)
	}
	if hasDirWithPrefix(t, vault, "mdport_backup_") {
		t.Error("backup directory created despite NoBackup")
	}
	if got := testutil.ReadFile(t, vault, "facts.md"); got != "- [[Some fact]]\n" {
		t.Errorf("facts.md = %q, want %q", got, "- [[Some fact]]\n")
	}
}

func TestMigrateBackupFailureAborts(t *testing.T) {
	vault := t.TempDir()
	good := "- Some fact\nid:: " + idOne + "\n"
	testutil.WriteVault(t, vault, map[string]string{"good.md": good})
	// A dangling symlink is collected as a markdown file but cannot be
	// copied, so the backup fails before any file is rewritten.
	if err := os.Symlink(filepath.Join(vault, "nonexistent"), filepath.Join(vault, "broken.md")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	_, err := Migrate(vault, MigrateOptions{}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "backup failed") {
		t.Errorf("error = %q, want containing %q", err.Error(), "backup failed")
	}
	if got := testutil.ReadFile(t, vault, "good.md"); got != good {
		t.Errorf("good.md = %q, want untouched", got)
	}
}

func TestMigrateEmptyVault(t *testing.T) {
	vault := t.TempDir()

	res, err := Migrate(vault, MigrateOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if res.Files != 0 {
		t.Errorf("files = %d, want 0", res.Files)
	}
	if hasDirWithPrefix(t, vault, "mdport_backup_") {
		t.Error("backup directory created for empty vault")
	}
}

func TestMigrateCountsHeaders(t *testing.T) {
	vault := t.TempDir()
	testutil.WriteVault(t, vault, map[string]string{
		"a.md": "title:: Foo\n\nbody\n",
		"b.md": "plain\n",
	})

	res, err := Migrate(vault, MigrateOptions{NoBackup: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if res.HeadersAdded != 1 {
		t.Errorf("headers added = %d, want 1", res.HeadersAdded)
	}
	want := "---\ntitle:\n  - \"Foo\"\n---\n\nbody\n"
	if got := testutil.ReadFile(t, vault, "a.md"); got != want {
		t.Errorf("a.md = %q, want %q", got, want)
	}
}

func TestMigrateConfiguredSidecarKey(t *testing.T) {
	vault := t.TempDir()
	testutil.WriteVault(t, vault, map[string]string{
		"mdport.yaml": "migrate:\n  sidecar_keys:\n    - hl-stamp\n",
		"facts.md":    "- Some fact\nid:: " + idOne + "\nhl-stamp:: 1700000000\n",
	})

	_, err := Migrate(vault, MigrateOptions{NoBackup: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if got := testutil.ReadFile(t, vault, "facts.md"); got != "- [[Some fact]]\n" {
		t.Errorf("facts.md = %q, want %q", got, "- [[Some fact]]\n")
	}
}

func TestMigrateExcludedGlob(t *testing.T) {
	vault := t.TempDir()
	draft := "- Draft fact\nid:: " + idOne + "\n"
	keep := "- Keep fact\nid:: " + idTwo + "\nsee ((" + idOne + ")) maybe\n"
	testutil.WriteVault(t, vault, map[string]string{
		"mdport.yaml":    "exclude:\n  paths:\n    - drafts/*\n",
		"drafts/skip.md": draft,
		"notes/keep.md":  keep,
	})

	res, err := Migrate(vault, MigrateOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if res.Files != 1 {
		t.Errorf("files = %d, want 1", res.Files)
	}
	if got := testutil.ReadFile(t, vault, "drafts/skip.md"); got != draft {
		t.Errorf("drafts/skip.md = %q, want untouched", got)
	}

	// The excluded declaration is invisible to the scanner, so the
	// reference to it stays unresolved.
	wantKeep := "- [[Keep fact]]\nsee ((" + idOne + ")) maybe\n"
	if got := testutil.ReadFile(t, vault, "notes/keep.md"); got != wantKeep {
		t.Errorf("notes/keep.md = %q, want %q", got, wantKeep)
	}
	if res.Blocks != 1 {
		t.Errorf("blocks = %d, want 1", res.Blocks)
	}
	if res.RefsUnresolved != 1 {
		t.Errorf("refs unresolved = %d, want 1", res.RefsUnresolved)
	}

	backup := testutil.FindDir(t, vault, "mdport_backup_")
	if _, err := os.Stat(filepath.Join(backup, "drafts", "skip.md")); !os.IsNotExist(err) {
		t.Errorf("excluded file backed up: stat err = %v", err)
	}
	if got := testutil.ReadFile(t, backup, "notes/keep.md"); got != keep {
		t.Errorf("backup keep.md = %q, want original", got)
	}

	if _, err := Lookup(vault, idOne); err == nil || !strings.Contains(err.Error(), "identifier not found") {
		t.Errorf("lookup of excluded identifier: err = %v, want identifier not found", err)
	}
	if _, err := Lookup(vault, idTwo); err != nil {
		t.Errorf("lookup of kept identifier: %v", err)
	}
}
