package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/Aman-CERP/wikigraph/internal/chunk"
	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// Neo4jConfig configures the Neo4j connection.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string

	MaxConnectionPoolSize int
	ConnectTimeout        time.Duration
}

// Neo4jStore implements Store on a Neo4j database.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

var _ Store = (*Neo4jStore)(nil)

const paragraphReturn = `
	RETURN para.id AS id, para.content AS content, para.position AS position,
	       para.section AS section, para.created_at AS created_at,
	       p.url AS url, p.title AS title`

// NewNeo4jStore creates the driver. It does not contact the server; call
// VerifyConnectivity for that.
func NewNeo4jStore(cfg Neo4jConfig) (*Neo4jStore, error) {
	if cfg.URI == "" {
		return nil, wgerrors.ConfigError("neo4j.uri must not be empty", nil)
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		if cfg.Password == "" {
			return nil, wgerrors.New(wgerrors.ErrCodeCredentialsMissing, "Neo4j password is not set", nil).
				WithDetail("username", cfg.Username).
				WithSuggestion("Export WIKIGRAPH_NEO4J_PASSWORD or NEO4J_PASSWORD")
		}
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4jconfig.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.ConnectTimeout > 0 {
			c.SocketConnectTimeout = cfg.ConnectTimeout
		}
	})
	if err != nil {
		return nil, wgerrors.ConfigError(fmt.Sprintf("failed to create neo4j driver: %v", err), err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{client: driver, database: database}, nil
}

func (n *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: mode})
}

// wrap maps driver connectivity failures to TransportFailure and leaves
// query errors and context errors untouched.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return wgerrors.TransportError("neo4j", err).WithDetail("operation", op)
	}
	return fmt.Errorf("neo4j %s: %w", op, err)
}

// VerifyConnectivity implements Store.
func (n *Neo4jStore) VerifyConnectivity(ctx context.Context) error {
	if err := n.client.VerifyConnectivity(ctx); err != nil {
		return wgerrors.TransportError("neo4j", err).
			WithSuggestion("Check neo4j.uri and that the database is running")
	}
	return nil
}

// EnsureSchema implements Store.
func (n *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT paragraph_id_unique IF NOT EXISTS FOR (p:Paragraph) REQUIRE p.id IS UNIQUE",
		"CREATE INDEX page_url IF NOT EXISTS FOR (p:Page) ON (p.url)",
	}
	for _, stmt := range statements {
		res, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil && !strings.Contains(err.Error(), "An equivalent") {
			return wrap("ensure schema", err)
		}
	}
	return nil
}

// SaveParagraphs implements Store.
func (n *Neo4jStore) SaveParagraphs(ctx context.Context, paras []chunk.Paragraph, batchSize int) (int, error) {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	const query = `
		UNWIND $rows AS row
		MERGE (p:Page {url: row.url})
		  ON CREATE SET p.title = row.title
		MERGE (para:Paragraph {id: row.id})
		  ON CREATE SET para.content = row.content,
		                para.position = row.position,
		                para.section = row.section,
		                para.created_at = datetime()
		MERGE (p)-[:HAS_PARAGRAPH]->(para)`

	done := 0
	for _, b := range batchBounds(len(paras), batchSize) {
		rows := make([]map[string]any, 0, b[1]-b[0])
		for _, p := range paras[b[0]:b[1]] {
			rows = append(rows, map[string]any{
				"url":      p.PageURL,
				"title":    p.PageTitle,
				"id":       p.ID,
				"content":  p.Content,
				"position": p.Position,
				"section":  p.Section,
			})
		}

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, map[string]any{"rows": rows})
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return done, wrap("save paragraphs", err)
		}
		done = b[1]
		slog.Debug("paragraph batch written", slog.Int("done", done), slog.Int("total", len(paras)))
	}
	return done, nil
}

// FetchAll implements Store.
func (n *Neo4jStore) FetchAll(ctx context.Context) ([]Paragraph, error) {
	records, err := n.read(ctx, `
		MATCH (p:Page)-[:HAS_PARAGRAPH]->(para:Paragraph)`+paragraphReturn+`
		ORDER BY p.url, para.position`, nil)
	if err != nil {
		return nil, wrap("fetch all", err)
	}

	out := make([]Paragraph, 0, len(records))
	for _, r := range records {
		out = append(out, paragraphFromRecord(r))
	}
	return out, nil
}

// FetchByID implements Store.
func (n *Neo4jStore) FetchByID(ctx context.Context, id string) (Paragraph, error) {
	ps, err := n.FetchByIDs(ctx, []string{id})
	if err != nil {
		return Paragraph{}, err
	}
	return ps[0], nil
}

// FetchByIDs implements Store.
func (n *Neo4jStore) FetchByIDs(ctx context.Context, ids []string) ([]Paragraph, error) {
	if len(ids) == 0 {
		return []Paragraph{}, nil
	}

	records, err := n.read(ctx, `
		MATCH (para:Paragraph) WHERE para.id IN $ids
		OPTIONAL MATCH (p:Page)-[:HAS_PARAGRAPH]->(para)`+paragraphReturn,
		map[string]any{"ids": ids})
	if err != nil {
		return nil, wrap("fetch by ids", err)
	}

	found := make(map[string]Paragraph, len(records))
	for _, r := range records {
		p := paragraphFromRecord(r)
		found[p.ID] = p
	}
	return orderByIDs(ids, found)
}

// AllIDs implements Store.
func (n *Neo4jStore) AllIDs(ctx context.Context) ([]string, error) {
	records, err := n.read(ctx, `MATCH (para:Paragraph) RETURN para.id AS id ORDER BY id`, nil)
	if err != nil {
		return nil, wrap("all ids", err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, stringValue(r, "id"))
	}
	return ids, nil
}

// Stats implements Store.
func (n *Neo4jStore) Stats(ctx context.Context) (Stats, error) {
	records, err := n.read(ctx, `
		CALL { MATCH (p:Page) RETURN count(p) AS pages }
		CALL { MATCH (para:Paragraph) RETURN count(para) AS paragraphs }
		RETURN pages, paragraphs`, nil)
	if err != nil {
		return Stats{}, wrap("stats", err)
	}
	if len(records) == 0 {
		return Stats{}, nil
	}
	return Stats{
		Pages:      intValue(records[0], "pages"),
		Paragraphs: intValue(records[0], "paragraphs"),
	}, nil
}

// DeleteAll implements Store. Nodes are removed in batches so a large graph
// does not build one huge transaction.
func (n *Neo4jStore) DeleteAll(ctx context.Context) (int, error) {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	total := 0
	for {
		result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, `
				MATCH (n) WHERE n:Page OR n:Paragraph
				WITH n LIMIT $limit
				DETACH DELETE n
				RETURN count(*) AS deleted`, map[string]any{"limit": DefaultBatchSize * 10})
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			return intValue(record, "deleted"), nil
		})
		if err != nil {
			return total, wrap("delete all", err)
		}
		deleted, _ := result.(int)
		total += deleted
		if deleted == 0 {
			return total, nil
		}
	}
}

// Close implements Store.
func (n *Neo4jStore) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}

func (n *Neo4jStore) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records, _ := result.([]*neo4j.Record)
	return records, nil
}

func paragraphFromRecord(r *neo4j.Record) Paragraph {
	p := Paragraph{
		ID:        stringValue(r, "id"),
		Content:   stringValue(r, "content"),
		PageURL:   stringValue(r, "url"),
		PageTitle: stringValue(r, "title"),
		Position:  intValue(r, "position"),
		Section:   stringValue(r, "section"),
	}
	if v, ok := r.Get("created_at"); ok {
		if t, ok := v.(time.Time); ok {
			p.CreatedAt = t
		}
	}
	return p
}

func stringValue(r *neo4j.Record, key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

func intValue(r *neo4j.Record, key string) int {
	v, _ := r.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
