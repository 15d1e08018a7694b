package core

import (
	"strings"
	"testing"
)

func linesEqual(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConvertPropertiesBasic(t *testing.T) {
	in := strings.Split("title:: Foo\ntags:: a, b\n\n- body", "\n")
	got, n := convertProperties(in)
	want := []string{
		"---",
		"title:",
		`  - "Foo"`,
		"tags:",
		`  - "a"`,
		`  - "b"`,
		"---",
		"",
		"- body",
	}
	linesEqual(t, got, want)
	if n != 7 {
		t.Errorf("header lines = %d, want 7", n)
	}
}

func TestConvertPropertiesNoHeader(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"heading first", "# Title\nkey:: value"},
		{"list line first", "- key:: value"},
		{"blank first", "\nkey:: value"},
		{"plain text", "just text"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.Split(tt.in, "\n")
			got, n := convertProperties(in)
			if n != 0 {
				t.Errorf("header lines = %d, want 0", n)
			}
			linesEqual(t, got, in)
		})
	}
}

func TestConvertPropertiesAliasRename(t *testing.T) {
	got, _ := convertProperties([]string{"alias:: A, B", "body"})
	want := []string{"---", "aliases:", `  - "A"`, `  - "B"`, "---", "body"}
	linesEqual(t, got, want)
}

func TestConvertPropertiesRepeatedKeyLastWins(t *testing.T) {
	got, n := convertProperties([]string{"tags:: a", "tags:: b, c", "body"})
	want := []string{"---", "tags:", `  - "b"`, `  - "c"`, "---", "body"}
	linesEqual(t, got, want)
	if n != 5 {
		t.Errorf("header lines = %d, want 5", n)
	}
}

func TestConvertPropertiesKeyOrderPreserved(t *testing.T) {
	got, _ := convertProperties([]string{"zebra:: z", "apple:: a", "body"})
	want := []string{"---", "zebra:", `  - "z"`, "apple:", `  - "a"`, "---", "body"}
	linesEqual(t, got, want)
}

func TestConvertPropertiesEmptyValue(t *testing.T) {
	// A property with no value still emits its key line.
	got, _ := convertProperties([]string{"title::", "body"})
	want := []string{"---", "title:", "---", "body"}
	linesEqual(t, got, want)
}

func TestConvertPropertiesEmptyKeySkipped(t *testing.T) {
	// ":: value" has no key; the line is passed over without closing the block.
	got, _ := convertProperties([]string{"title:: Foo", ":: orphan", "tags:: a", "body"})
	want := []string{"---", "title:", `  - "Foo"`, "tags:", `  - "a"`, "---", "body"}
	linesEqual(t, got, want)
}

func TestConvertPropertiesBlankInsideBlock(t *testing.T) {
	// Properties resume after a blank line; the blank inside the consumed
	// range is swallowed.
	got, n := convertProperties([]string{"a:: 1", "", "b:: 2", "- x"})
	want := []string{"---", "a:", `  - "1"`, "b:", `  - "2"`, "---", "- x"}
	linesEqual(t, got, want)
	if n != 6 {
		t.Errorf("header lines = %d, want 6", n)
	}
}

func TestConvertPropertiesTrailingBlankStaysInBody(t *testing.T) {
	got, _ := convertProperties([]string{"a:: 1", "", "", "- x"})
	want := []string{"---", "a:", `  - "1"`, "---", "", "", "- x"}
	linesEqual(t, got, want)
}

func TestConvertPropertiesWholeFile(t *testing.T) {
	got, n := convertProperties([]string{"a:: 1", "b:: 2"})
	want := []string{"---", "a:", `  - "1"`, "b:", `  - "2"`, "---"}
	linesEqual(t, got, want)
	if n != 6 {
		t.Errorf("header lines = %d, want 6", n)
	}
}

func TestFrontmatterFences(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantStart int
		wantEnd   int
	}{
		{"well-formed", "---\naliases:\n  - \"A\"\n---\nbody", 0, 3},
		{"no frontmatter", "# Title\nbody", -1, -1},
		{"unclosed fence", "---\naliases:", -1, -1},
		{"empty file", "", -1, -1},
		{"empty frontmatter", "---\n---\nbody", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := frontmatterFences(strings.Split(tt.content, "\n"))
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("frontmatterFences = (%d, %d), want (%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
