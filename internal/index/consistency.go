package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/wikigraph/internal/graph"
	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/search"
)

// InconsistencyType categorizes detected issues.
type InconsistencyType int

const (
	// InconsistencyMissingVector is a stored paragraph without a vector.
	InconsistencyMissingVector InconsistencyType = iota
	// InconsistencyOrphanVector is a vector whose paragraph is not stored.
	InconsistencyOrphanVector
	// InconsistencyDimensionMismatch is an index built at another width than
	// the embedder produces.
	InconsistencyDimensionMismatch
	// InconsistencyModelMismatch is an index built with another embedding model.
	InconsistencyModelMismatch
	// InconsistencyStaleLexical is a BM25 model built from another corpus. It
	// is rebuilt on the next hybrid query, so it is only a warning.
	InconsistencyStaleLexical
)

// String returns a stable name for the inconsistency type.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyMissingVector:
		return "missing_vector"
	case InconsistencyOrphanVector:
		return "orphan_vector"
	case InconsistencyDimensionMismatch:
		return "dimension_mismatch"
	case InconsistencyModelMismatch:
		return "model_mismatch"
	case InconsistencyStaleLexical:
		return "stale_lexical"
	default:
		return "unknown"
	}
}

// Warning reports whether the issue resolves itself without a rebuild.
func (t InconsistencyType) Warning() bool {
	return t == InconsistencyStaleLexical
}

// Inconsistency represents a detected cross-store issue.
type Inconsistency struct {
	Type        InconsistencyType `json:"-"`
	Kind        string            `json:"type"`
	ParagraphID string            `json:"paragraph_id,omitempty"`
	Details     string            `json:"details"`
}

func issue(t InconsistencyType, id, details string) Inconsistency {
	return Inconsistency{Type: t, Kind: t.String(), ParagraphID: id, Details: details}
}

// CheckResult contains the outcome of a consistency check.
type CheckResult struct {
	Paragraphs      int             `json:"paragraphs"`
	Vectors         int             `json:"vectors"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	Duration        time.Duration   `json:"duration_ns"`
}

// Consistent reports whether no issue other than a warning was found.
func (r *CheckResult) Consistent() bool {
	for _, i := range r.Inconsistencies {
		if !i.Type.Warning() {
			return false
		}
	}
	return true
}

// Count returns the number of issues of type t.
func (r *CheckResult) Count(t InconsistencyType) int {
	n := 0
	for _, i := range r.Inconsistencies {
		if i.Type == t {
			n++
		}
	}
	return n
}

// VectorIDs is the part of the Vector Index the checker reads.
// store.VectorIndex satisfies it.
type VectorIDs interface {
	AllIDs() []string
	Count() int
}

// EmbedderInfo describes the embedder queries will use.
type EmbedderInfo struct {
	Model      string
	Dimensions int
}

// ConsistencyChecker compares the Vector Index and the BM25 model against
// the Paragraph Store, which is the source of truth.
type ConsistencyChecker struct {
	paragraphs graph.Store
	vectors    VectorIDs

	// Index holds what the vector index was built with; Embedder what
	// queries will use. Zero values skip the comparison.
	Index    EmbedderInfo
	Embedder EmbedderInfo

	// LexicalModelPath and LexicalConfig enable the BM25 model check.
	LexicalModelPath string
	LexicalConfig    lexical.Config
}

// NewConsistencyChecker creates a checker over the given stores.
func NewConsistencyChecker(paragraphs graph.Store, vectors VectorIDs) *ConsistencyChecker {
	return &ConsistencyChecker{paragraphs: paragraphs, vectors: vectors}
}

// Check scans both stores for inconsistencies. Issues are ordered by type,
// then paragraph id.
func (c *ConsistencyChecker) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()
	var issues []Inconsistency

	storedIDs, err := c.paragraphs.AllIDs(ctx)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]bool, len(storedIDs))
	for _, id := range storedIDs {
		stored[id] = true
	}

	vectorIDs := c.vectors.AllIDs()
	indexed := make(map[string]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		indexed[id] = true
	}

	for _, id := range storedIDs {
		if !indexed[id] {
			issues = append(issues, issue(InconsistencyMissingVector, id, "paragraph has no vector"))
		}
	}
	for _, id := range vectorIDs {
		if !stored[id] {
			issues = append(issues, issue(InconsistencyOrphanVector, id, "vector has no paragraph"))
		}
	}

	if c.Index.Dimensions > 0 && c.Embedder.Dimensions > 0 && c.Index.Dimensions != c.Embedder.Dimensions {
		issues = append(issues, issue(InconsistencyDimensionMismatch, "",
			fmt.Sprintf("vector index has %d dimensions, embedder produces %d", c.Index.Dimensions, c.Embedder.Dimensions)))
	}
	if c.Index.Model != "" && c.Embedder.Model != "" && c.Index.Model != c.Embedder.Model {
		issues = append(issues, issue(InconsistencyModelMismatch, "",
			fmt.Sprintf("vector index was built with %s, embedder is %s", c.Index.Model, c.Embedder.Model)))
	}

	if c.LexicalModelPath != "" {
		stale, err := c.lexicalStale(ctx)
		if err != nil {
			return nil, err
		}
		if stale != "" {
			issues = append(issues, issue(InconsistencyStaleLexical, "", stale))
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Type != issues[j].Type {
			return issues[i].Type < issues[j].Type
		}
		return issues[i].ParagraphID < issues[j].ParagraphID
	})

	return &CheckResult{
		Paragraphs:      len(storedIDs),
		Vectors:         len(vectorIDs),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}, nil
}

// lexicalStale returns why the persisted BM25 model does not match the
// current corpus, or "".
func (c *ConsistencyChecker) lexicalStale(ctx context.Context) (string, error) {
	m, err := lexical.LoadOkapi(c.LexicalModelPath)
	switch {
	case errors.Is(err, lexical.ErrModelNotFound):
		return "lexical model not found", nil
	case errors.Is(err, lexical.ErrModelIncompatible):
		return "lexical model has an incompatible format", nil
	case err != nil:
		return "", err
	}

	paras, err := c.paragraphs.FetchAll(ctx)
	if err != nil {
		return "", err
	}
	if m.Fingerprint() != lexical.Fingerprint(search.Corpus(paras)) {
		return "lexical model was built from a different corpus", nil
	}
	if m.Config() != c.LexicalConfig {
		return "lexical model was built with different BM25 parameters", nil
	}
	return "", nil
}

// QuickCheck compares counts only. Returns true if the paragraph and vector
// counts match.
func (c *ConsistencyChecker) QuickCheck(ctx context.Context) (bool, error) {
	stats, err := c.paragraphs.Stats(ctx)
	if err != nil {
		return false, err
	}
	vectors := c.vectors.Count()
	if stats.Paragraphs != vectors {
		slog.Debug("index counts mismatch",
			slog.String("component", "index"),
			slog.Int("paragraphs", stats.Paragraphs),
			slog.Int("vectors", vectors))
		return false, nil
	}
	return true, nil
}
