package core

import (
	"strings"
	"unicode"
)

// Block identifiers are 36 characters over [a-f0-9-], the shape Logseq
// assigns to blocks. They appear in two forms: an `id:: <identifier>`
// declaration line and an embedded `((<identifier>))` reference token.
const (
	blockIDLen  = 36
	refTokenLen = blockIDLen + 4
)

func isBlockIDByte(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

// blockIDAt returns the identifier starting at the beginning of s when its
// first 36 bytes are all identifier characters.
func blockIDAt(s string) (string, bool) {
	if len(s) < blockIDLen {
		return "", false
	}
	for i := 0; i < blockIDLen; i++ {
		if !isBlockIDByte(s[i]) {
			return "", false
		}
	}
	return s[:blockIDLen], true
}

// IsBlockID reports whether s is exactly one block identifier.
func IsBlockID(s string) bool {
	if len(s) != blockIDLen {
		return false
	}
	_, ok := blockIDAt(s)
	return ok
}

// findBlockID finds an `id::` declaration anywhere in line and returns its
// identifier. Whitespace between the separator and the identifier is allowed;
// later `id::` occurrences are tried when an earlier one is not followed by a
// well-formed identifier.
func findBlockID(line string) (string, bool) {
	for start := 0; start < len(line); {
		idx := strings.Index(line[start:], "id::")
		if idx < 0 {
			return "", false
		}
		rest := strings.TrimLeftFunc(line[start+idx+4:], unicode.IsSpace)
		if id, ok := blockIDAt(rest); ok {
			return id, true
		}
		start += idx + 1
	}
	return "", false
}

// refTokenAt returns the identifier of the ((id)) token starting at i.
func refTokenAt(line string, i int) (string, bool) {
	if i+refTokenLen > len(line) || line[i] != '(' || line[i+1] != '(' {
		return "", false
	}
	id, ok := blockIDAt(line[i+2:])
	if !ok {
		return "", false
	}
	if line[i+2+blockIDLen] != ')' || line[i+3+blockIDLen] != ')' {
		return "", false
	}
	return id, true
}

// isRefToken reports whether s is exactly one ((id)) token.
func isRefToken(s string) bool {
	if len(s) != refTokenLen {
		return false
	}
	_, ok := refTokenAt(s, 0)
	return ok
}

// refTokenIDs returns the identifiers of every ((id)) token in line, in order.
func refTokenIDs(line string) []string {
	if !strings.Contains(line, "((") {
		return nil
	}
	var ids []string
	for i := 0; i < len(line); {
		if id, ok := refTokenAt(line, i); ok {
			ids = append(ids, id)
			i += refTokenLen
			continue
		}
		i++
	}
	return ids
}

// replaceRefs substitutes every ((id)) token resolvable through ix with a
// [[text]] link and returns the new line plus resolved/unresolved counts.
// Unresolvable tokens pass through unchanged. The function is pure: it only
// reads the index.
func replaceRefs(line string, ix *BlockIndex) (string, int, int) {
	if !strings.Contains(line, "((") {
		return line, 0, 0
	}
	var b strings.Builder
	b.Grow(len(line))
	resolved, unresolved := 0, 0
	for i := 0; i < len(line); {
		id, ok := refTokenAt(line, i)
		if !ok {
			b.WriteByte(line[i])
			i++
			continue
		}
		if text, found := ix.Resolve(id); found {
			b.WriteString("[[")
			b.WriteString(text)
			b.WriteString("]]")
			resolved++
		} else {
			b.WriteString(line[i : i+refTokenLen])
			unresolved++
		}
		i += refTokenLen
	}
	return b.String(), resolved, unresolved
}
