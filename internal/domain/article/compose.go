package article

import (
	"strings"

	"github.com/kailas-cloud/newsrec/internal/domain/text"
)

// Composition defaults.
const (
	DefaultMaxContentChars = 600
	DefaultMinBoundary     = 300
)

var sentenceEnds = []string{". ", "! ", "? "}

// ComposeOptions bounds how much article content goes into the embedded text.
// Zero values resolve to the defaults.
type ComposeOptions struct {
	MaxContentChars int
	MinBoundary     int
}

func (o ComposeOptions) withDefaults() ComposeOptions {
	if o.MaxContentChars <= 0 {
		o.MaxContentChars = DefaultMaxContentChars
	}
	if o.MinBoundary <= 0 {
		o.MinBoundary = DefaultMinBoundary
	}
	return o
}

// Compose builds the exact string fed to the embedding model:
//
//	{heading}. {content} [Category: {category}]
//
// Heading and content are normalized first. Content longer than
// MaxContentChars characters is cut to that length, then pulled back to the
// last sentence end if one exists at or after MinBoundary.
func Compose(a Article, opts ComposeOptions) string {
	opts = opts.withDefaults()

	heading := text.Normalize(a.Heading)
	content := Truncate(text.Normalize(a.Content), opts.MaxContentChars, opts.MinBoundary)

	var b strings.Builder
	b.Grow(len(heading) + len(content) + len(a.Category) + 16)
	b.WriteString(heading)
	b.WriteString(". ")
	b.WriteString(content)
	b.WriteString(" [Category: ")
	b.WriteString(a.Category)
	b.WriteString("]")
	return b.String()
}

// Truncate limits s to maxChars characters, preferring to end on a sentence
// terminator at character offset minBoundary or later. The terminator itself
// is kept, the following space is not.
func Truncate(s string, maxChars, minBoundary int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}

	head := string(runes[:maxChars])

	end := -1
	for _, sep := range sentenceEnds {
		if i := strings.LastIndex(head, sep); i > end {
			end = i
		}
	}
	if end < 0 {
		return head
	}

	// LastIndex reports a byte offset; the boundary rule counts characters.
	if len([]rune(head[:end])) >= minBoundary {
		return head[:end+1]
	}
	return head
}
