// Package telemetry aggregates query statistics for a long-running server.
// Nothing leaves the process; the MCP corpus_stats tool reports a snapshot.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Mode is the ranker that answered a query.
type Mode string

const (
	ModeVector Mode = "vector"
	ModeHybrid Mode = "hybrid"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one answered (or failed) query.
type QueryEvent struct {
	Query       string
	Mode        Mode
	ResultCount int
	Latency     time.Duration

	// ErrorCode is the WikigraphError code of a failed query, or "".
	ErrorCode string
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // next write position
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity), capacity: capacity}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	out := make([]T, b.size)
	if b.size < b.capacity {
		copy(out, b.items[:b.size])
	} else {
		n := copy(out, b.items[b.head:])
		copy(out[n:], b.items[:b.head])
	}
	return out
}

// ExtractTerms lowercases the query and keeps words of three or more bytes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a query term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ModeCounts          map[Mode]int64          `json:"mode_counts"`
	ErrorCounts         map[string]int64        `json:"error_counts,omitempty"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	TopTerms            []TermCount             `json:"top_terms"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	Since               string                  `json:"since"` // RFC 3339
}

// Config sizes the bounded collections.
type Config struct {
	TopTermsCapacity    int // default 100
	ZeroResultsCapacity int // default 50
	TopTermsReported    int // default 10
}

// QueryMetrics collects query statistics. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	cfg         Config
	total       int64
	modes       map[Mode]int64
	errors      map[string]int64
	zeroCount   int64
	zeroResults *CircularBuffer[string]
	terms       *lru.Cache[string, int64]
	latencies   map[LatencyBucket]int64
	start       time.Time
}

// NewQueryMetrics creates an empty collector.
func NewQueryMetrics(cfg Config) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 50
	}
	if cfg.TopTermsReported <= 0 {
		cfg.TopTermsReported = 10
	}
	terms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	return &QueryMetrics{
		cfg:         cfg,
		modes:       make(map[Mode]int64),
		errors:      make(map[string]int64),
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		terms:       terms,
		latencies:   make(map[LatencyBucket]int64),
		start:       time.Now(),
	}
}

// Record adds one query. Failed queries count toward totals, modes and
// errors but not toward zero results or latency.
func (m *QueryMetrics) Record(e QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.modes[e.Mode]++
	for _, t := range ExtractTerms(e.Query) {
		n, _ := m.terms.Get(t)
		m.terms.Add(t, n+1)
	}

	if e.ErrorCode != "" {
		m.errors[e.ErrorCode]++
		return
	}
	if e.ResultCount == 0 {
		m.zeroCount++
		m.zeroResults.Add(e.Query)
	}
	m.latencies[LatencyToBucket(e.Latency)]++
}

// Snapshot copies the current metrics. Top terms are ordered by count, then
// alphabetically.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	terms := make([]TermCount, 0, m.terms.Len())
	for _, k := range m.terms.Keys() {
		if n, ok := m.terms.Peek(k); ok {
			terms = append(terms, TermCount{Term: k, Count: n})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > m.cfg.TopTermsReported {
		terms = terms[:m.cfg.TopTermsReported]
	}

	return Snapshot{
		TotalQueries:        m.total,
		ModeCounts:          copyMap(m.modes),
		ErrorCounts:         copyMap(m.errors),
		ZeroResultCount:     m.zeroCount,
		ZeroResultQueries:   m.zeroResults.Items(),
		TopTerms:            terms,
		LatencyDistribution: copyMap(m.latencies),
		Since:               m.start.UTC().Format(time.RFC3339),
	}
}

func copyMap[K comparable](in map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
