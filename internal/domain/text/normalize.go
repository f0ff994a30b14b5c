// Package text holds the canonical cleanup applied to article and query text
// before it reaches an embedding model.
package text

import (
	"regexp"
	"strings"
)

var punctuation = strings.NewReplacer(
	// typographic quotes
	"“", `"`, "”", `"`, "‘", `"`, "’", `"`,
	"„", `"`, "‟", `"`, "‚", `"`, "‛", `"`,
	// figure dash, en dash, em dash, horizontal bar
	"‒", "-", "–", "-", "—", "-", "―", "-",
	// ellipsis
	"…", "...",
)

var (
	periodRun   = regexp.MustCompile(`\.{3,}`)
	exclaimRun  = regexp.MustCompile(`!{2,}`)
	questionRun = regexp.MustCompile(`\?{2,}`)
)

// Normalize collapses whitespace, folds typographic punctuation to ASCII and
// squeezes repeated terminal punctuation. It is total and idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// Fields splits on unicode.IsSpace, which collapses runs and trims both ends.
	s = strings.Join(strings.Fields(s), " ")
	s = punctuation.Replace(s)
	s = periodRun.ReplaceAllLiteralString(s, "...")
	s = exclaimRun.ReplaceAllLiteralString(s, "!")
	s = questionRun.ReplaceAllLiteralString(s, "?")

	return strings.TrimSpace(s)
}
