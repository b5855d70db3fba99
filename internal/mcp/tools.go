package mcp

import "github.com/Aman-CERP/wikigraph/internal/telemetry"

// QueryInput defines the input schema for the query and hybrid_query tools.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to search for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of paragraphs, default 5"`
}

// QueryOutput defines the output schema for the query and hybrid_query tools.
type QueryOutput struct {
	Results []ResultOutput `json:"results" jsonschema:"ranked paragraphs, best first"`
}

// ResultOutput is one ranked paragraph.
type ResultOutput struct {
	Rank      int     `json:"rank"`
	ID        string  `json:"id" jsonschema:"paragraph id: page url, _para_, 1-based position"`
	PageTitle string  `json:"page_title"`
	PageURL   string  `json:"page_url"`
	Content   string  `json:"content"`
	Score     float64 `json:"score,omitempty" jsonschema:"combined RRF and BM25 score (hybrid_query only)"`
	Distance  float32 `json:"distance,omitempty" jsonschema:"vector distance to the query, lower is closer"`
	Lexical   float64 `json:"lexical,omitempty" jsonschema:"BM25 score (hybrid_query only)"`
	VectorRRF float64 `json:"vector_rrf,omitempty" jsonschema:"reciprocal rank fusion score of the vector rank (hybrid_query only)"`
}

// CorpusStatsInput defines the input schema for the corpus_stats tool (no parameters).
type CorpusStatsInput struct{}

// CorpusStatsOutput defines the output schema for the corpus_stats tool.
type CorpusStatsOutput struct {
	Pages      int  `json:"pages"`
	Paragraphs int  `json:"paragraphs"`
	Vectors    int  `json:"vectors"`
	Consistent bool `json:"consistent" jsonschema:"true when every paragraph has a vector"`

	Embeddings EmbeddingInfo `json:"embeddings"`

	// Queries is present when the server collects query metrics.
	Queries *telemetry.Snapshot `json:"queries,omitempty"`
}

// EmbeddingInfo describes the query embedder and the model the index was built with.
type EmbeddingInfo struct {
	Model           string `json:"model"`
	Dimensions      int    `json:"dimensions"`
	IndexModel      string `json:"index_model,omitempty"`
	IndexDimensions int    `json:"index_dimensions"`
	Metric          string `json:"metric"`
}

const (
	defaultLimit = 5
	maxLimit     = 50
)

// toolDescriptions are shared by ListTools and tool registration.
var toolDescriptions = map[string]string{
	"query": "Vector search over Wikipedia paragraphs. Returns the paragraphs whose embeddings are " +
		"closest to the query, with their distance. Good for paraphrased or conceptual questions.",
	"hybrid_query": "Hybrid search over Wikipedia paragraphs. Combines vector neighbours (reciprocal rank fusion) " +
		"with BM25 keyword scores over the whole corpus. Prefer this when the query contains names or rare terms.",
	"corpus_stats": "Report how many pages, paragraphs and vectors are indexed and which embedding model is in use.",
}

// toolOrder is the registration and listing order.
var toolOrder = []string{"query", "hybrid_query", "corpus_stats"}
