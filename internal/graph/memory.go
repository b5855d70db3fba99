package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Aman-CERP/wikigraph/internal/chunk"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	paras  map[string]Paragraph
	pages  map[string]string // url -> title
	closed bool

	// now is replaced in tests.
	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		paras: make(map[string]Paragraph),
		pages: make(map[string]string),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// EnsureSchema implements Store.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

// SaveParagraphs implements Store.
func (s *MemoryStore) SaveParagraphs(ctx context.Context, paras []chunk.Paragraph, batchSize int) (int, error) {
	done := 0
	for _, b := range batchBounds(len(paras), batchSize) {
		s.mu.Lock()
		if err := s.check(ctx); err != nil {
			s.mu.Unlock()
			return done, err
		}
		for _, p := range paras[b[0]:b[1]] {
			if _, ok := s.pages[p.PageURL]; !ok {
				s.pages[p.PageURL] = p.PageTitle
			}
			if _, ok := s.paras[p.ID]; ok {
				continue
			}
			s.paras[p.ID] = Paragraph{
				ID:        p.ID,
				Content:   p.Content,
				PageURL:   p.PageURL,
				PageTitle: s.pages[p.PageURL],
				Position:  p.Position,
				Section:   p.Section,
				CreatedAt: s.now(),
			}
		}
		s.mu.Unlock()
		done = b[1]
	}
	return done, nil
}

// FetchAll implements Store.
func (s *MemoryStore) FetchAll(ctx context.Context) ([]Paragraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make([]Paragraph, 0, len(s.paras))
	for _, p := range s.paras {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PageURL != out[j].PageURL {
			return out[i].PageURL < out[j].PageURL
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// FetchByID implements Store.
func (s *MemoryStore) FetchByID(ctx context.Context, id string) (Paragraph, error) {
	ps, err := s.FetchByIDs(ctx, []string{id})
	if err != nil {
		return Paragraph{}, err
	}
	return ps[0], nil
}

// FetchByIDs implements Store.
func (s *MemoryStore) FetchByIDs(ctx context.Context, ids []string) ([]Paragraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return orderByIDs(ids, s.paras)
}

// AllIDs implements Store.
func (s *MemoryStore) AllIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.paras))
	for id := range s.paras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return Stats{}, err
	}
	return Stats{Pages: len(s.pages), Paragraphs: len(s.paras)}, nil
}

// DeleteAll implements Store.
func (s *MemoryStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	n := len(s.pages) + len(s.paras)
	s.pages = make(map[string]string)
	s.paras = make(map[string]Paragraph)
	return n, nil
}

// VerifyConnectivity implements Store.
func (s *MemoryStore) VerifyConnectivity(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
