package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/wikigraph/internal/search"
)

// FormatResults renders hits as markdown. hybrid selects the score shown.
func FormatResults(query string, hits []search.Hit, hybrid bool) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No paragraphs found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d paragraph", len(hits))
	if len(hits) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for _, h := range hits {
		if hybrid {
			fmt.Fprintf(&sb, "### %d. %s (score: %.4f, bm25: %.4f, rrf: %.4f)\n", h.Rank, h.PageTitle, h.Score, h.Lexical, h.VectorRRF)
		} else {
			fmt.Fprintf(&sb, "### %d. %s (distance: %.4f)\n", h.Rank, h.PageTitle, h.Distance)
		}
		fmt.Fprintf(&sb, "`%s`\n\n%s\n\n", h.ID, h.Content)
	}
	return sb.String()
}

// ToResultOutputs converts engine hits to the tool output format.
func ToResultOutputs(hits []search.Hit) []ResultOutput {
	out := make([]ResultOutput, len(hits))
	for i, h := range hits {
		out[i] = ResultOutput{
			Rank:      h.Rank,
			ID:        h.ID,
			PageTitle: h.PageTitle,
			PageURL:   h.PageURL,
			Content:   h.Content,
			Score:     h.Score,
			Distance:  h.Distance,
			Lexical:   h.Lexical,
			VectorRRF: h.VectorRRF,
		}
	}
	return out
}

// clampLimit applies the default to 0 and caps large limits. Negative values
// pass through so the engine rejects them.
func clampLimit(limit, defaultVal, maxVal int) int {
	if limit == 0 {
		return defaultVal
	}
	return min(limit, maxVal)
}
