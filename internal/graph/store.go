// Package graph is the Paragraph Store: Page and Paragraph nodes joined by
// HAS_PARAGRAPH relationships.
//
// Neo4jStore is the production implementation. MemoryStore keeps the same
// contract in process and backs tests and offline runs.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/wikigraph/internal/chunk"
	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// DefaultBatchSize is the number of paragraphs written per transaction.
const DefaultBatchSize = 100

// Paragraph is a stored paragraph with its page.
type Paragraph struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	PageURL   string    `json:"page_url"`
	PageTitle string    `json:"page_title"`
	Position  int       `json:"position"`
	Section   string    `json:"section,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats counts stored nodes.
type Stats struct {
	Pages      int `json:"pages"`
	Paragraphs int `json:"paragraphs"`
}

// Store is the Paragraph Store contract.
type Store interface {
	// EnsureSchema creates constraints and indexes. It is idempotent.
	EnsureSchema(ctx context.Context) error

	// SaveParagraphs writes paragraphs with their pages, one transaction per
	// batch. Existing paragraphs are left unchanged. It returns the number
	// of paragraphs processed.
	SaveParagraphs(ctx context.Context, paras []chunk.Paragraph, batchSize int) (int, error)

	// FetchAll returns every paragraph ordered by page URL then position.
	FetchAll(ctx context.Context) ([]Paragraph, error)

	// FetchByID returns one paragraph. A missing id is a schema mismatch.
	FetchByID(ctx context.Context, id string) (Paragraph, error)

	// FetchByIDs returns paragraphs in the order of ids. Any missing id
	// fails the whole call with a schema mismatch naming the missing ids.
	FetchByIDs(ctx context.Context, ids []string) ([]Paragraph, error)

	// AllIDs returns every paragraph id, sorted.
	AllIDs(ctx context.Context) ([]string, error)

	// Stats counts pages and paragraphs.
	Stats(ctx context.Context) (Stats, error)

	// DeleteAll removes every Page and Paragraph node and returns how many
	// nodes were deleted.
	DeleteAll(ctx context.Context) (int, error)

	// VerifyConnectivity checks that the store is reachable.
	VerifyConnectivity(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// MissingIDsError builds the schema-mismatch error for ids absent from the store.
func MissingIDsError(missing []string) error {
	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)
	shown := sorted
	if len(shown) > 5 {
		shown = shown[:5]
	}
	return wgerrors.New(wgerrors.ErrCodeSchemaMismatch,
		fmt.Sprintf("%d paragraph id(s) missing from the paragraph store: %s", len(missing), strings.Join(shown, ", ")), nil).
		WithDetail("missing", fmt.Sprint(len(missing))).
		WithSuggestion("The vector index and paragraph store are out of sync; run 'wikigraph verify'")
}

func orderByIDs(ids []string, found map[string]Paragraph) ([]Paragraph, error) {
	out := make([]Paragraph, 0, len(ids))
	var missing []string
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, p)
	}
	if len(missing) > 0 {
		return nil, MissingIDsError(missing)
	}
	return out, nil
}

func batchBounds(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var b [][2]int
	for start := 0; start < n; start += size {
		b = append(b, [2]int{start, min(start+size, n)})
	}
	return b
}
