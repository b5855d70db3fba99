package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/graph"
	"github.com/Aman-CERP/wikigraph/internal/search"
	"github.com/Aman-CERP/wikigraph/internal/store"
	"github.com/Aman-CERP/wikigraph/internal/telemetry"
	"github.com/Aman-CERP/wikigraph/pkg/version"
)

// Searcher answers queries. search.Engine satisfies it.
type Searcher interface {
	Query(ctx context.Context, query string, limit int) ([]search.Hit, error)
	HybridQuery(ctx context.Context, query string, limit int) ([]search.Hit, error)
}

// StatsSource reports Paragraph Store counts. graph.Store satisfies it.
type StatsSource interface {
	Stats(ctx context.Context) (graph.Stats, error)
}

// VectorInfo reports Vector Index size and build settings. store.VectorIndex
// satisfies it.
type VectorInfo interface {
	Count() int
	Config() store.VectorIndexConfig
}

// ModelInfo describes the query embedder. embed.Embedder satisfies it.
type ModelInfo interface {
	ModelName() string
	Dimensions() int
}

// Dependencies contains the injected dependencies for Server.
type Dependencies struct {
	Engine     Searcher
	Paragraphs StatsSource
	Vectors    VectorInfo
	Embedder   ModelInfo

	// Metrics is optional. When set, every query is recorded and
	// corpus_stats reports a snapshot.
	Metrics *telemetry.QueryMetrics
}

// Server is the MCP server for wikigraph. It exposes the query engine as
// tools to AI clients.
type Server struct {
	mcp    *mcp.Server
	deps   Dependencies
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("search engine is required")
	}
	if deps.Paragraphs == nil {
		return nil, errors.New("paragraph store is required")
	}
	if deps.Vectors == nil {
		return nil, errors.New("vector index is required")
	}

	s := &Server{deps: deps, logger: slog.Default()}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "wikigraph", Version: version.Version},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "wikigraph", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	tools := make([]ToolInfo, len(toolOrder))
	for i, name := range toolOrder {
		tools[i] = ToolInfo{Name: name, Description: toolDescriptions[name]}
	}
	return tools
}

// CallTool invokes a tool by name with JSON-decoded arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "query", "hybrid_query":
		in, err := queryInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		out, _, err := s.runQuery(ctx, name, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	case "corpus_stats":
		return s.corpusStats(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func queryInputFromArgs(args map[string]any) (QueryInput, error) {
	query, ok := args["query"].(string)
	if !ok {
		return QueryInput{}, NewInvalidParamsError("query parameter is required and must be a string")
	}
	in := QueryInput{Query: query}
	switch l := args["limit"].(type) {
	case nil:
	case float64:
		in.Limit = int(l)
	case int:
		in.Limit = l
	default:
		return QueryInput{}, NewInvalidParamsError("limit must be a number")
	}
	return in, nil
}

// runQuery executes a query tool and returns the structured output and its
// markdown rendering.
func (s *Server) runQuery(ctx context.Context, tool string, in QueryInput) (QueryOutput, string, error) {
	if strings.TrimSpace(in.Query) == "" {
		s.record(tool, in.Query, 0, 0, search.ErrEmptyQuery)
		return QueryOutput{}, "", MapError(search.ErrEmptyQuery)
	}

	start := time.Now()
	requestID := generateRequestID()
	limit := clampLimit(in.Limit, defaultLimit, maxLimit)

	s.logger.Info(tool+" started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("limit", limit))

	var (
		hits []search.Hit
		err  error
	)
	hybrid := tool == "hybrid_query"
	if hybrid {
		hits, err = s.deps.Engine.HybridQuery(ctx, in.Query, limit)
	} else {
		hits, err = s.deps.Engine.Query(ctx, in.Query, limit)
	}
	duration := time.Since(start)
	s.record(tool, in.Query, len(hits), duration, err)
	if err != nil {
		s.logger.Error(tool+" failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return QueryOutput{}, "", MapError(err)
	}

	s.logger.Info(tool+" completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(hits)))

	return QueryOutput{Results: ToResultOutputs(hits)}, FormatResults(in.Query, hits, hybrid), nil
}

func (s *Server) record(tool, query string, results int, latency time.Duration, err error) {
	if s.deps.Metrics == nil {
		return
	}
	mode := telemetry.ModeVector
	if tool == "hybrid_query" {
		mode = telemetry.ModeHybrid
	}
	ev := telemetry.QueryEvent{Query: query, Mode: mode, ResultCount: results, Latency: latency}
	if err != nil {
		ev.ErrorCode = wgerrors.GetCode(err)
	}
	s.deps.Metrics.Record(ev)
}

func (s *Server) corpusStats(ctx context.Context) (*CorpusStatsOutput, error) {
	stats, err := s.deps.Paragraphs.Stats(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	vcfg := s.deps.Vectors.Config()
	out := &CorpusStatsOutput{
		Pages:      stats.Pages,
		Paragraphs: stats.Paragraphs,
		Vectors:    s.deps.Vectors.Count(),
		Embeddings: EmbeddingInfo{
			IndexModel:      vcfg.Model,
			IndexDimensions: vcfg.Dimensions,
			Metric:          vcfg.Metric,
		},
	}
	out.Consistent = out.Paragraphs == out.Vectors
	if s.deps.Embedder != nil {
		out.Embeddings.Model = s.deps.Embedder.ModelName()
		out.Embeddings.Dimensions = s.deps.Embedder.Dimensions()
	}
	if s.deps.Metrics != nil {
		snap := s.deps.Metrics.Snapshot()
		out.Queries = &snap
	}
	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	for _, name := range []string{"query", "hybrid_query"} {
		mcp.AddTool(s.mcp, &mcp.Tool{Name: name, Description: toolDescriptions[name]}, s.queryHandler(name))
	}
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "corpus_stats", Description: toolDescriptions["corpus_stats"]}, s.mcpCorpusStatsHandler)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(toolOrder)))
}

func (s *Server) queryHandler(tool string) mcp.ToolHandlerFor[QueryInput, QueryOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
		out, md, err := s.runQuery(ctx, tool, in)
		if err != nil {
			return nil, QueryOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: md}},
		}, out, nil
	}
}

func (s *Server) mcpCorpusStatsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ CorpusStatsInput) (
	*mcp.CallToolResult,
	*CorpusStatsOutput,
	error,
) {
	out, err := s.corpusStats(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve runs the server on the specified transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
