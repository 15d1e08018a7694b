package core

import "strings"

// convertProperties turns a leading run of Logseq `key:: value` lines into
// YAML frontmatter. It returns the new line sequence and the number of header
// lines produced; when no property block opens at the top of the file the
// input is returned unchanged with a zero count.
//
// A line belongs to the block when it contains "::", its trimmed form does
// not start with a list marker, and it is the first line, or the block is
// already open, or the previous line is blank. Blank lines inside an open
// block are passed over without extending the consumed range, so trailing
// blanks stay in the body.
func convertProperties(lines []string) ([]string, int) {
	values := make(map[string][]string)
	var order []string
	consumed := 0
	inBlock := false

loop:
	for i, line := range lines {
		t := strings.TrimSpace(line)
		isProp := strings.Contains(t, "::") && !strings.HasPrefix(t, "- ")
		switch {
		case isProp && (i == 0 || inBlock || strings.TrimSpace(lines[i-1]) == ""):
			inBlock = true
		case t == "" && inBlock:
			continue
		case !inBlock:
			return lines, 0
		default:
			break loop
		}

		key, rest, _ := strings.Cut(t, "::")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if key == "alias" {
			key = "aliases"
		}
		var vals []string
		for _, v := range strings.Split(strings.TrimSpace(rest), ",") {
			if v = strings.TrimSpace(v); v != "" {
				vals = append(vals, v)
			}
		}
		if _, ok := values[key]; !ok {
			order = append(order, key)
		}
		values[key] = vals
		consumed = i + 1
	}

	if len(order) == 0 {
		return lines, 0
	}

	header := make([]string, 0, len(order)*2+2)
	header = append(header, "---")
	for _, key := range order {
		header = append(header, key+":")
		for _, v := range values[key] {
			header = append(header, `  - "`+v+`"`)
		}
	}
	header = append(header, "---")

	out := make([]string, 0, len(header)+len(lines)-consumed)
	out = append(out, header...)
	out = append(out, lines[consumed:]...)
	return out, len(header)
}

// frontmatterFences returns the indices of the opening and closing "---"
// lines of YAML frontmatter, or (-1, -1) when the file has none.
func frontmatterFences(lines []string) (int, int) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return -1, -1
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return 0, i
		}
	}
	return -1, -1
}
