// Package chunk splits page text into paragraphs and assigns their ids.
package chunk

import "fmt"

// Paragraph is one chunk of a page, in page order.
type Paragraph struct {
	ID        string // {page_url}_para_{position}
	PageURL   string
	PageTitle string
	Position  int    // 1-indexed within the page
	Section   string // nearest enclosing MediaWiki heading, "" before the first
	Content   string
}

// ParagraphID returns the stable id of the paragraph at a 1-indexed position.
func ParagraphID(pageURL string, position int) string {
	return fmt.Sprintf("%s_para_%d", pageURL, position)
}
