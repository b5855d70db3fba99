package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{250 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.d), tt.d.String())
	}
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	// Given: a buffer of three
	b := NewCircularBuffer[int](3)

	// When: adding five items
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}

	// Then: the newest three remain, oldest first
	assert.Equal(t, []int{3, 4, 5}, b.Items())
}

func TestCircularBuffer_PartiallyFilled(t *testing.T) {
	b := NewCircularBuffer[string](4)
	b.Add("a")
	b.Add("b")
	assert.Equal(t, []string{"a", "b"}, b.Items())
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"genghis", "khan's", "father"}, ExtractTerms("  Genghis Khan's  FATHER of ok "))
	assert.Nil(t, ExtractTerms("a an of"))
}

func TestQueryMetrics_Record(t *testing.T) {
	// Given: a collector
	m := NewQueryMetrics(Config{})

	// When: recording successful, empty and failed queries
	m.Record(QueryEvent{Query: "Genghis Khan", Mode: ModeHybrid, ResultCount: 5, Latency: 3 * time.Millisecond})
	m.Record(QueryEvent{Query: "genghis empire", Mode: ModeVector, ResultCount: 0, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "khan", Mode: ModeHybrid, ErrorCode: "ERR_502_CORPUS_EMPTY"})
	s := m.Snapshot()

	// Then: each aggregate reflects its events
	assert.Equal(t, int64(3), s.TotalQueries)
	assert.Equal(t, map[Mode]int64{ModeHybrid: 2, ModeVector: 1}, s.ModeCounts)
	assert.Equal(t, map[string]int64{"ERR_502_CORPUS_EMPTY": 1}, s.ErrorCounts)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, []string{"genghis empire"}, s.ZeroResultQueries)
	assert.Equal(t, map[LatencyBucket]int64{BucketP10: 1, BucketP50: 1}, s.LatencyDistribution)

	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "genghis", Count: 2}, s.TopTerms[0])
	assert.Equal(t, TermCount{Term: "khan", Count: 2}, s.TopTerms[1])
}

func TestQueryMetrics_TopTermsTruncated(t *testing.T) {
	// Given: a collector reporting two terms
	m := NewQueryMetrics(Config{TopTermsReported: 2})

	// When: recording many distinct terms
	for i := 0; i < 10; i++ {
		m.Record(QueryEvent{Query: fmt.Sprintf("term%02d", i), Mode: ModeVector, ResultCount: 1})
	}

	// Then: only two are reported
	assert.Len(t, m.Snapshot().TopTerms, 2)
}

func TestQueryMetrics_SnapshotIsCopy(t *testing.T) {
	m := NewQueryMetrics(Config{})
	m.Record(QueryEvent{Query: "yesugei", Mode: ModeHybrid, ResultCount: 1})
	s := m.Snapshot()
	s.ModeCounts[ModeHybrid] = 99

	assert.Equal(t, int64(1), m.Snapshot().ModeCounts[ModeHybrid])
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	// Given: a collector shared by many goroutines
	m := NewQueryMetrics(Config{})
	var wg sync.WaitGroup

	// When: recording concurrently
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(QueryEvent{Query: "naimans tribe", Mode: ModeHybrid, ResultCount: 1})
		}()
	}
	wg.Wait()

	// Then: every event is counted
	assert.Equal(t, int64(50), m.Snapshot().TotalQueries)
}
