package lexical

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go driver with FTS5
)

// SQLiteScorer scores with an in-memory SQLite FTS5 table.
// Content is pre-tokenized so FTS5 sees the same terms as the other backends.
type SQLiteScorer struct {
	mu        sync.Mutex
	db        *sql.DB
	tokenizer *Tokenizer
	count     int
	closed    bool
}

var _ Scorer = (*SQLiteScorer)(nil)

// NewSQLiteScorer loads docs into a fresh in-memory FTS5 table.
func NewSQLiteScorer(ctx context.Context, docs []Document, cfg Config) (*SQLiteScorer, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteScorer{db: db, tokenizer: NewTokenizer(cfg), count: len(docs)}

	if _, err := db.ExecContext(ctx, `
		CREATE VIRTUAL TABLE fts_content USING fts5(
			doc_id UNINDEXED,
			content,
			tokenize='unicode61'
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.load(ctx, docs); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteScorer) load(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fts_content(doc_id, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		content := strings.Join(s.tokenizer.Tokenize(d.Content), " ")
		if _, err := stmt.ExecContext(ctx, d.ID, content); err != nil {
			return fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Score implements Scorer. Query terms are OR-ed; bm25() is negated so that
// higher is better.
func (s *SQLiteScorer) Score(ctx context.Context, query string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	scores := make(map[string]float64)
	match := ftsMatchExpr(s.tokenizer.Tokenize(query))
	if match == "" {
		return scores, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, bm25(fts_content) FROM fts_content WHERE fts_content MATCH ?`, match)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		scores[id] = -score
	}
	return scores, rows.Err()
}

// ftsMatchExpr quotes each distinct term and joins them with OR.
func ftsMatchExpr(terms []string) string {
	seen := make(map[string]struct{}, len(terms))
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// Len implements Scorer.
func (s *SQLiteScorer) Len() int { return s.count }

// Close implements Scorer.
func (s *SQLiteScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
