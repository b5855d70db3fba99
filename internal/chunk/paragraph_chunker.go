package chunk

import (
	"regexp"
	"strings"
)

// headingPattern matches plain-text MediaWiki headings such as "== Early life ==".
var headingPattern = regexp.MustCompile(`^(={2,6})\s*(.*?)\s*(={2,6})$`)

// ParagraphChunkerOptions configures paragraph splitting.
type ParagraphChunkerOptions struct {
	// SkipHeadings drops heading lines instead of emitting them as paragraphs.
	SkipHeadings bool
}

// ParagraphChunker splits extract text into paragraphs: blocks separated by
// blank lines, then each block by line, trimmed, with empties dropped.
type ParagraphChunker struct {
	options ParagraphChunkerOptions
}

// NewParagraphChunker creates a chunker.
func NewParagraphChunker(opts ParagraphChunkerOptions) *ParagraphChunker {
	return &ParagraphChunker{options: opts}
}

// Chunk splits a page into paragraphs with ids and positions assigned.
func (c *ParagraphChunker) Chunk(pageURL, pageTitle, content string) []Paragraph {
	var (
		out     []Paragraph
		section string
	)

	for _, text := range Split(content) {
		if title, ok := parseHeading(text); ok {
			section = title
			if c.options.SkipHeadings {
				continue
			}
		}

		pos := len(out) + 1
		out = append(out, Paragraph{
			ID:        ParagraphID(pageURL, pos),
			PageURL:   pageURL,
			PageTitle: pageTitle,
			Position:  pos,
			Section:   section,
			Content:   text,
		})
	}
	return out
}

// Split returns the trimmed non-empty paragraphs of content.
func Split(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var out []string
	for _, block := range strings.Split(content, "\n\n") {
		for _, line := range strings.Split(block, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

func parseHeading(line string) (string, bool) {
	m := headingPattern.FindStringSubmatch(line)
	if m == nil || len(m[1]) != len(m[3]) || m[2] == "" {
		return "", false
	}
	return m[2], true
}
