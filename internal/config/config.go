// Package config loads wikigraph configuration.
//
// Precedence, lowest to highest: built-in defaults, user config
// (~/.config/wikigraph/config.yaml), project config (.wikigraph.yaml in the
// working directory), WIKIGRAPH_* environment variables.
//
// Secrets are never read from or written to YAML. The Neo4j password and the
// OpenAI API key come from the environment only.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// Project config file names, in lookup order.
const (
	ProjectConfigFile    = ".wikigraph.yaml"
	ProjectConfigFileAlt = ".wikigraph.yml"
)

// Lexical backends.
const (
	LexicalOkapi  = "okapi"
	LexicalBleve  = "bleve"
	LexicalSQLite = "sqlite"
)

// Score normalization modes applied before fusion.
const (
	NormalizeNone   = "none"
	NormalizeMinMax = "minmax"
)

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Config represents the complete wikigraph configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	DataDir    string           `yaml:"data_dir" json:"data_dir"`
	Neo4j      Neo4jConfig      `yaml:"neo4j" json:"neo4j"`
	Vector     VectorConfig     `yaml:"vector" json:"vector"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Lexical    LexicalConfig    `yaml:"lexical" json:"lexical"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Scrape     ScrapeConfig     `yaml:"scrape" json:"scrape"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// Neo4jConfig configures the Paragraph Store connection.
type Neo4jConfig struct {
	URI      string `yaml:"uri" json:"uri"`
	Username string `yaml:"username" json:"username"`
	Database string `yaml:"database" json:"database"`

	// Password is populated from WIKIGRAPH_NEO4J_PASSWORD or NEO4J_PASSWORD.
	Password string `yaml:"-" json:"-"`

	MaxConnectionPoolSize int    `yaml:"max_connection_pool_size" json:"max_connection_pool_size"`
	ConnectTimeout        string `yaml:"connect_timeout" json:"connect_timeout"`
}

// VectorConfig configures the HNSW vector index.
type VectorConfig struct {
	// Metric is "l2" (default) or "cos".
	Metric   string `yaml:"metric" json:"metric"`
	M        int    `yaml:"m" json:"m"`
	EfSearch int    `yaml:"ef_search" json:"ef_search"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	Workers    int    `yaml:"workers" json:"workers"`
	Timeout    string `yaml:"timeout" json:"timeout"`

	// CacheSize bounds the in-memory query embedding cache. Zero disables it.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	OllamaHost    string `yaml:"ollama_host" json:"ollama_host"`
	OpenAIBaseURL string `yaml:"openai_base_url" json:"openai_base_url"`

	// OpenAIAPIKey is populated from WIKIGRAPH_OPENAI_API_KEY or OPENAI_API_KEY.
	OpenAIAPIKey string `yaml:"-" json:"-"`
}

// LexicalConfig configures BM25 scoring.
type LexicalConfig struct {
	Backend        string  `yaml:"backend" json:"backend"`
	K1             float64 `yaml:"k1" json:"k1"`
	B              float64 `yaml:"b" json:"b"`
	MinTokenLength int     `yaml:"min_token_length" json:"min_token_length"`
	StopWords      bool    `yaml:"stop_words" json:"stop_words"`
}

// SearchConfig configures score fusion.
// The defaults reproduce a plain unweighted sum of the RRF and BM25 scores.
type SearchConfig struct {
	RRFConstant   int     `yaml:"rrf_constant" json:"rrf_constant"`
	VectorWeight  float64 `yaml:"vector_weight" json:"vector_weight"`
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`
	Normalization string  `yaml:"normalization" json:"normalization"`
	DefaultLimit  int     `yaml:"default_limit" json:"default_limit"`
}

// ScrapeConfig configures the MediaWiki scraper.
type ScrapeConfig struct {
	APIEndpoint       string   `yaml:"api_endpoint" json:"api_endpoint"`
	URLs              []string `yaml:"urls" json:"urls"`
	Concurrency       int      `yaml:"concurrency" json:"concurrency"`
	RequestsPerSecond float64  `yaml:"requests_per_second" json:"requests_per_second"`
	UserAgent         string   `yaml:"user_agent" json:"user_agent"`
	Timeout           string   `yaml:"timeout" json:"timeout"`
}

// IngestConfig configures setup.
type IngestConfig struct {
	BatchSize    int  `yaml:"batch_size" json:"batch_size"`
	SkipHeadings bool `yaml:"skip_headings" json:"skip_headings"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// DefaultURLs is the article list scraped when none is configured.
var DefaultURLs = []string{
	"https://en.wikipedia.org/wiki/Genghis_Khan",
	"https://en.wikipedia.org/wiki/Mongol_Empire",
	"https://en.wikipedia.org/wiki/Khan_(title)",
	"https://en.wikipedia.org/wiki/Yesugei",
	"https://en.wikipedia.org/wiki/Naimans",
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: "./data",
		Neo4j: Neo4jConfig{
			URI:                   "neo4j://localhost:7687",
			Username:              "neo4j",
			Database:              "neo4j",
			MaxConnectionPoolSize: 10,
			ConnectTimeout:        "10s",
		},
		Vector: VectorConfig{
			Metric:   "l2",
			M:        16,
			EfSearch: 64,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   ProviderOllama,
			Model:      "all-minilm",
			Dimensions: 384,
			BatchSize:  32,
			Workers:    2,
			Timeout:    "60s",
			CacheSize:  256,
		},
		Lexical: LexicalConfig{
			Backend:        LexicalOkapi,
			K1:             1.5,
			B:              0.75,
			MinTokenLength: 2,
		},
		Search: SearchConfig{
			RRFConstant:   60,
			VectorWeight:  1.0,
			LexicalWeight: 1.0,
			Normalization: NormalizeNone,
			DefaultLimit:  5,
		},
		Scrape: ScrapeConfig{
			APIEndpoint:       "https://en.wikipedia.org/w/api.php",
			URLs:              append([]string(nil), DefaultURLs...),
			Concurrency:       2,
			RequestsPerSecond: 2,
			UserAgent:         "wikigraph/1.0 (https://github.com/Aman-CERP/wikigraph)",
			Timeout:           "30s",
		},
		Ingest: IngestConfig{
			BatchSize: 100,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the user config path, honouring XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wikigraph", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "wikigraph", "config.yaml")
	}
	return filepath.Join(home, ".config", "wikigraph", "config.yaml")
}

// ProjectConfigPath returns the project config file in dir, or "" if none exists.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigFile, ProjectConfigFileAlt} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// Load builds the effective configuration for a working directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if projectPath := ProjectConfigPath(dir); projectPath != "" {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes a file over the current values. Keys absent from the
// file keep their current value; unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wgerrors.New(wgerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return wgerrors.ConfigError(fmt.Sprintf("failed to parse config file %s: %v", path, err), err).
			WithDetail("path", path)
	}
	return nil
}

// applyEnvOverrides applies WIKIGRAPH_* variables and the secret variables.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"WIKIGRAPH_DATA_DIR":             &c.DataDir,
		"WIKIGRAPH_NEO4J_URI":            &c.Neo4j.URI,
		"WIKIGRAPH_NEO4J_USERNAME":       &c.Neo4j.Username,
		"WIKIGRAPH_NEO4J_DATABASE":       &c.Neo4j.Database,
		"WIKIGRAPH_EMBEDDER":             &c.Embeddings.Provider,
		"WIKIGRAPH_EMBEDDINGS_MODEL":     &c.Embeddings.Model,
		"WIKIGRAPH_OLLAMA_HOST":          &c.Embeddings.OllamaHost,
		"WIKIGRAPH_OPENAI_BASE_URL":      &c.Embeddings.OpenAIBaseURL,
		"WIKIGRAPH_LEXICAL_BACKEND":      &c.Lexical.Backend,
		"WIKIGRAPH_SEARCH_NORMALIZATION": &c.Search.Normalization,
		"WIKIGRAPH_LOG_LEVEL":            &c.Logging.Level,
		"WIKIGRAPH_SCRAPE_API_ENDPOINT":  &c.Scrape.APIEndpoint,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	c.Neo4j.Password = firstEnv("WIKIGRAPH_NEO4J_PASSWORD", "NEO4J_PASSWORD")
	c.Embeddings.OpenAIAPIKey = firstEnv("WIKIGRAPH_OPENAI_API_KEY", "OPENAI_API_KEY")

	floats := map[string]*float64{
		"WIKIGRAPH_VECTOR_WEIGHT":  &c.Search.VectorWeight,
		"WIKIGRAPH_LEXICAL_WEIGHT": &c.Search.LexicalWeight,
	}
	for key, dst := range floats {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return wgerrors.ConfigError(fmt.Sprintf("%s must be a number, got %q", key, v), err)
		}
		*dst = f
	}

	ints := map[string]*int{
		"WIKIGRAPH_RRF_CONSTANT":          &c.Search.RRFConstant,
		"WIKIGRAPH_EMBEDDINGS_DIMENSIONS": &c.Embeddings.Dimensions,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return wgerrors.ConfigError(fmt.Sprintf("%s must be an integer, got %q", key, v), err)
		}
		*dst = n
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return wgerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.DataDir == "" {
		return invalid("data_dir must not be empty")
	}
	if c.Search.RRFConstant <= 0 {
		return invalid("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.VectorWeight < 0 || c.Search.LexicalWeight < 0 {
		return invalid("search weights must be non-negative, got vector=%g lexical=%g",
			c.Search.VectorWeight, c.Search.LexicalWeight)
	}
	if c.Search.VectorWeight == 0 && c.Search.LexicalWeight == 0 {
		return invalid("at least one of search.vector_weight and search.lexical_weight must be positive")
	}
	switch c.Search.Normalization {
	case NormalizeNone, NormalizeMinMax:
	default:
		return invalid("search.normalization must be %q or %q, got %q", NormalizeNone, NormalizeMinMax, c.Search.Normalization)
	}
	if c.Search.DefaultLimit <= 0 {
		return invalid("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}

	switch c.Lexical.Backend {
	case LexicalOkapi, LexicalBleve, LexicalSQLite:
	default:
		return invalid("lexical.backend must be one of okapi, bleve, sqlite; got %q", c.Lexical.Backend)
	}
	if c.Lexical.K1 < 0 {
		return invalid("lexical.k1 must be non-negative, got %g", c.Lexical.K1)
	}
	if c.Lexical.B < 0 || c.Lexical.B > 1 {
		return invalid("lexical.b must be between 0 and 1, got %g", c.Lexical.B)
	}

	switch c.Embeddings.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderStatic:
	default:
		return invalid("embeddings.provider must be one of ollama, openai, static; got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return invalid("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return invalid("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	switch c.Vector.Metric {
	case "l2", "cos":
	default:
		return invalid("vector.metric must be l2 or cos, got %q", c.Vector.Metric)
	}

	for key, v := range map[string]string{
		"neo4j.connect_timeout": c.Neo4j.ConnectTimeout,
		"embeddings.timeout":    c.Embeddings.Timeout,
		"scrape.timeout":        c.Scrape.Timeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return invalid("%s must be a duration like 30s, got %q", key, v)
		}
	}

	if c.Ingest.BatchSize <= 0 {
		return invalid("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if c.Scrape.Concurrency <= 0 {
		return invalid("scrape.concurrency must be positive, got %d", c.Scrape.Concurrency)
	}
	if c.Scrape.RequestsPerSecond <= 0 {
		return invalid("scrape.requests_per_second must be positive, got %g", c.Scrape.RequestsPerSecond)
	}
	return nil
}

// Paths derived from DataDir.

func (c *Config) DatasetPath() string { return filepath.Join(c.DataDir, "wikipedia_content.json") }
func (c *Config) VectorIndexPath() string { return filepath.Join(c.DataDir, "vectors.hnsw") }
func (c *Config) LexicalModelPath() string { return filepath.Join(c.DataDir, "bm25.model") }
func (c *Config) LockPath() string { return filepath.Join(c.DataDir, ".wikigraph.lock") }

// WriteYAML writes the configuration to a YAML file. Secrets are never written.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DurationOr parses s as a time.Duration, returning def when s is empty or
// malformed. Validate has already rejected malformed values for loaded configs.
func DurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
