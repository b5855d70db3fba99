package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// HNSWStore implements VectorIndex on top of coder/hnsw.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorIndexConfig

	// ID mapping (string <-> uint64)
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// hnswMetadata is written next to the graph file as <path>.meta.
type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  VectorIndexConfig
}

// NewHNSWStore creates an empty index.
func NewHNSWStore(cfg VectorIndexConfig) (*HNSWStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("invalid dimensions %d", cfg.Dimensions)
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricL2
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	graph, err := newGraph(cfg)
	if err != nil {
		return nil, err
	}

	return &HNSWStore{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}, nil
}

func newGraph(cfg VectorIndexConfig) (*hnsw.Graph[uint64], error) {
	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case MetricL2:
		graph.Distance = hnsw.EuclideanDistance
	case MetricCosine:
		graph.Distance = hnsw.CosineDistance
	default:
		return nil, fmt.Errorf("unknown metric %q (supported: l2, cos)", cfg.Metric)
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph, nil
}

// Add inserts vectors as one batch. All vectors are validated before any is
// inserted. A re-added ID orphans its old node, which Search then skips.
func (s *HNSWStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		if existingKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if s.config.Metric == MetricCosine {
			normalizeVectorInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}

	return nil
}

// Search returns up to k neighbours of query, ascending by distance. Equal
// distances keep the order the graph returned them in.
func (s *HNSWStore) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if k <= 0 || s.graph.Len() == 0 {
		return []VectorResult{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if s.config.Metric == MetricCosine {
		normalizeVectorInPlace(q)
	}

	// Orphaned nodes can occupy slots; widen the search by their count.
	orphans := s.graph.Len() - len(s.idMap)
	nodes := s.graph.Search(q, k+orphans)

	results := make([]VectorResult, 0, k)
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue
		}
		d := s.graph.Distance(q, node.Value)
		results = append(results, VectorResult{
			ID:       id,
			Distance: d,
			Score:    distanceToScore(d, s.config.Metric),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// AllIDs implements VectorIndex.
func (s *HNSWStore) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil
	}

	ids := make([]string, 0, len(s.idMap))
	for id := range s.idMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contains implements VectorIndex.
func (s *HNSWStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	_, ok := s.idMap[id]
	return ok
}

// Count implements VectorIndex.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Config implements VectorIndex.
func (s *HNSWStore) Config() VectorIndexConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Save writes the graph to path and the id mapping to path+".meta".
// Both files are written to a temp name first and renamed into place.
func (s *HNSWStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	w := bufio.NewWriter(file)
	if err := s.graph.Export(w); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	if err := s.saveMetadata(MetaPath(path)); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	slog.Debug("vector index saved",
		slog.String("path", path),
		slog.Int("count", len(s.idMap)))
	return nil
}

func (s *HNSWStore) saveMetadata(path string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}

	meta := hnswMetadata{IDMap: s.idMap, NextKey: s.nextKey, Config: s.config}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close temp file during cleanup", slog.String("error", closeErr.Error()))
		}
		_ = os.Remove(tmp)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmp, path)
}

// OpenHNSWStore loads an index written by Save. A missing index returns an
// ErrCodeIndexNotFound error; an unreadable one returns ErrCodeIndexCorrupt.
func OpenHNSWStore(path string) (*HNSWStore, error) {
	meta, err := readMetadata(MetaPath(path))
	if err != nil {
		return nil, err
	}

	graph, err := newGraph(meta.Config)
	if err != nil {
		return nil, wgerrors.New(wgerrors.ErrCodeIndexCorrupt, "vector index metadata is invalid", err).
			WithDetail("path", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(path)
		}
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Import needs an io.ByteReader.
	if err := graph.Import(bufio.NewReader(file)); err != nil {
		return nil, wgerrors.New(wgerrors.ErrCodeIndexCorrupt, "failed to import vector index", err).
			WithDetail("path", path).
			WithSuggestion("Run 'wikigraph cleanup' then 'wikigraph setup' to rebuild the index")
	}

	s := &HNSWStore{
		graph:   graph,
		config:  meta.Config,
		idMap:   meta.IDMap,
		keyMap:  make(map[uint64]string, len(meta.IDMap)),
		nextKey: meta.NextKey,
	}
	if s.idMap == nil {
		s.idMap = make(map[string]uint64)
	}
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return s, nil
}

func readMetadata(path string) (*hnswMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(path)
		}
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("failed to close metadata file", slog.String("error", err.Error()))
		}
	}()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return nil, wgerrors.New(wgerrors.ErrCodeIndexCorrupt, "failed to decode vector index metadata", err).
			WithDetail("path", path)
	}
	return &meta, nil
}

func notFound(path string) error {
	return wgerrors.New(wgerrors.ErrCodeIndexNotFound, "vector index not found", nil).
		WithDetail("path", path).
		WithSuggestion("Run 'wikigraph setup' to build the index")
}

// ReadConfig reads the configuration recorded with a saved index without
// loading the graph.
func ReadConfig(path string) (VectorIndexConfig, error) {
	meta, err := readMetadata(MetaPath(path))
	if err != nil {
		return VectorIndexConfig{}, err
	}
	return meta.Config, nil
}

// MetaPath returns the id-mapping file that accompanies an index file.
func MetaPath(path string) string { return path + ".meta" }

// Remove deletes a saved index and its metadata. Missing files are ignored.
func Remove(path string) error {
	for _, p := range []string{path, MetaPath(path)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// Close implements VectorIndex.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

var _ VectorIndex = (*HNSWStore)(nil)

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore maps cosine distance [0,2] to 1-d/2 and L2 distance to 1/(1+d).
func distanceToScore(distance float32, metric string) float32 {
	if metric == MetricCosine {
		return 1.0 - distance/2.0
	}
	return 1.0 / (1.0 + distance)
}
