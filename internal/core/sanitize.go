package core

import "strings"

// linkTextReplacer swaps characters that carry syntax inside a [[...]] target
// for fullwidth or lookalike glyphs. "**" is listed before "*" so a bold
// marker collapses to a single star instead of two.
var linkTextReplacer = strings.NewReplacer(
	"**", "★",
	"*", "★",
	":", "：",
	"?", "？",
	"<", "〈",
	">", "〉",
	`"`, "“",
	"|", "｜",
	`\`, "、",
	"/", "-",
)

// SanitizeLinkText rewrites characters that would break a wiki link target.
func SanitizeLinkText(s string) string {
	return linkTextReplacer.Replace(s)
}
