package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// ErrPageMissing is returned when the API reports no such article.
var ErrPageMissing = errors.New("wiki: page missing")

// ClientConfig configures the MediaWiki API client.
type ClientConfig struct {
	// Endpoint is the api.php URL.
	Endpoint  string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond caps request rate across all goroutines.
	RequestsPerSecond float64

	Retry wgerrors.RetryConfig
}

// Client fetches article extracts.
type Client struct {
	http    *http.Client
	config  ClientConfig
	limiter *rate.Limiter
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = wgerrors.DefaultRetryConfig()
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string  `json:"title"`
			Extract *string `json:"extract"`
			Missing *string `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// FetchExtract returns the canonical title and plain-text extract of an article.
func (c *Client) FetchExtract(ctx context.Context, title string) (string, string, error) {
	type result struct{ title, extract string }

	r, err := wgerrors.RetryWithResult(ctx, c.config.Retry, func() (result, error) {
		t, e, err := c.fetchOnce(ctx, title)
		return result{t, e}, err
	})
	if err != nil {
		return "", "", err
	}
	return r.title, r.extract, nil
}

func (c *Client) fetchOnce(ctx context.Context, title string) (string, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", err
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("prop", "extracts")
	q.Set("explaintext", "true")
	q.Set("redirects", "1")
	q.Set("titles", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", wgerrors.TransportError("mediawiki", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := fmt.Sprintf("mediawiki returned status %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", "", wgerrors.New(wgerrors.ErrCodeTransportFailure, msg, nil)
		}
		return "", "", wgerrors.New(wgerrors.ErrCodeRemoteStatus, msg, nil)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("failed to decode mediawiki response: %w", err)
	}

	for _, p := range parsed.Query.Pages {
		if p.Missing != nil || p.Extract == nil {
			return "", "", fmt.Errorf("%w: %s", ErrPageMissing, title)
		}
		slog.Debug("fetched extract", slog.String("title", p.Title), slog.Int("bytes", len(*p.Extract)))
		return p.Title, *p.Extract, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrPageMissing, title)
}
