package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// AliasOptions controls the aliases operation.
type AliasOptions struct {
	DryRun bool
}

// AliasResult reports the outcome of an alias normalization run.
type AliasResult struct {
	Files        int
	FilesChanged int
	Errors       int
}

// NormalizeAliases splits comma-joined frontmatter aliases across the whole
// vault. It first verifies itself against two literal fixtures; a self-test
// failure aborts before any vault file is touched. Per-file failures are
// logged and skipped.
func NormalizeAliases(vaultPath string, opts AliasOptions, logger *zap.Logger) (*AliasResult, error) {
	if err := aliasSelfTest(); err != nil {
		return nil, fmt.Errorf("self-test failed: %w", err)
	}

	cfg, err := LoadConfig(vaultPath)
	if err != nil {
		return nil, err
	}
	files, err := CollectMarkdownFiles(vaultPath)
	if err != nil {
		return nil, err
	}
	files = filterExcluded(files, cfg.Exclude.Paths)

	res := &AliasResult{Files: len(files)}
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
		out, changed, err := normalizeAliasContent(string(content))
		if err != nil {
			logger.Warn("skipping file", zap.String("path", rel), zap.Error(err))
			res.Errors++
			continue
		}
		if !changed {
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
		logger.Info("aliases normalized", zap.String("path", rel))
	}
	logger.Info("alias normalization complete",
		zap.Int("files", res.Files),
		zap.Int("files_changed", res.FilesChanged),
		zap.Int("errors", res.Errors))
	return res, nil
}

// normalizeAliasContent splits comma-joined items of a frontmatter `aliases`
// list. When no item needs splitting the content is returned byte-for-byte
// unchanged; otherwise the header is re-encoded (every alias double-quoted,
// one per line) and the body is carried over untouched. A second run over
// the output is a no-op.
func normalizeAliasContent(content string) (string, bool, error) {
	lines := strings.Split(content, "\n")
	start, end := frontmatterFences(lines)
	if start < 0 {
		return content, false, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(strings.Join(lines[start+1:end], "\n")), &doc); err != nil {
		return content, false, fmt.Errorf("frontmatter: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return content, false, nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return content, false, nil
	}

	var seq *yaml.Node
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == "aliases" {
			seq = mapping.Content[i+1]
			break
		}
	}
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return content, false, nil
	}

	modified := false
	items := make([]*yaml.Node, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind == yaml.ScalarNode && item.Tag == "!!str" && strings.ContainsAny(item.Value, ",，") {
			for _, part := range splitAliasItem(item.Value) {
				items = append(items, quotedScalar(part))
			}
			modified = true
			continue
		}
		items = append(items, item)
	}
	if !modified {
		return content, false, nil
	}

	// Once the list is rewritten, every alias renders double-quoted.
	for i, item := range items {
		if item.Kind == yaml.ScalarNode {
			items[i] = quotedScalar(item.Value)
		}
	}
	seq.Content = items
	seq.Style = 0

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return content, false, fmt.Errorf("frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return content, false, fmt.Errorf("frontmatter: %w", err)
	}

	body := strings.Join(lines[end+1:], "\n")
	return "---\n" + buf.String() + "---\n" + body, true, nil
}

// splitAliasItem splits a comma-joined alias on fullwidth commas, ASCII
// commas and pipes, trimming the parts and dropping empties.
func splitAliasItem(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '，' || r == '|' || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func quotedScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Tag: "!!str", Value: value}
}

// aliasSelfTest runs the normalizer against two literal fixtures and checks
// that every expected quoted alias appears in the output.
func aliasSelfTest() error {
	fixtures := []struct {
		name    string
		content string
		expect  []string
	}{
		{
			name: "single item, fullwidth comma",
			content: `---
aliases:
  - "Aleksandr Lyubishchev，柳比歇夫"
tags: [test, person]
---
# 内容
`,
			expect: []string{`"Aleksandr Lyubishchev"`, `"柳比歇夫"`},
		},
		{
			name: "two items split",
			content: `---
aliases:
  - "扩张三角形，Expanding Triangles"
  - "ET，扩三"
tags: [new]
---
`,
			expect: []string{`"扩张三角形"`, `"Expanding Triangles"`, `"ET"`, `"扩三"`},
		},
	}
	for _, fx := range fixtures {
		out, changed, err := normalizeAliasContent(fx.content)
		if err != nil {
			return fmt.Errorf("%s: %w", fx.name, err)
		}
		if !changed {
			return fmt.Errorf("%s: no modification", fx.name)
		}
		for _, want := range fx.expect {
			if !strings.Contains(out, want) {
				return fmt.Errorf("%s: output missing %s", fx.name, want)
			}
		}
	}
	return nil
}
