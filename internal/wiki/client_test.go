package wiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

func testClient(endpoint string) *Client {
	return NewClient(ClientConfig{
		Endpoint:          endpoint,
		UserAgent:         "wikigraph-test",
		RequestsPerSecond: 1000,
		Retry: wgerrors.RetryConfig{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
			ShouldRetry:  wgerrors.IsRetryable,
		},
	})
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"https://en.wikipedia.org/wiki/Genghis_Khan", "Genghis_Khan", false},
		{"https://en.wikipedia.org/wiki/Khan_(title)", "Khan_(title)", false},
		{"https://en.wikipedia.org/wiki/Caf%C3%A9", "Café", false},
		{"https://en.wikipedia.org/w/index.php", "", true},
		{"https://en.wikipedia.org/wiki/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := TitleFromURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_FetchExtract(t *testing.T) {
	// Given: a MediaWiki stub
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "extracts", r.URL.Query().Get("prop"))
		assert.Equal(t, "true", r.URL.Query().Get("explaintext"))
		assert.Equal(t, "Yesugei", r.URL.Query().Get("titles"))
		assert.Equal(t, "wikigraph-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"query":{"pages":{"123":{"pageid":123,"title":"Yesugei","extract":"Yesugei was a chief."}}}}`))
	}))
	defer srv.Close()

	// When: fetching
	title, extract, err := testClient(srv.URL).FetchExtract(context.Background(), "Yesugei")

	// Then: title and extract are returned
	require.NoError(t, err)
	assert.Equal(t, "Yesugei", title)
	assert.Equal(t, "Yesugei was a chief.", extract)
}

func TestClient_FetchExtract_Missing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"ns":0,"title":"Nope","missing":""}}}}`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).FetchExtract(context.Background(), "Nope")

	assert.ErrorIs(t, err, ErrPageMissing)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	// Given: a server that fails once with 503
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"query":{"pages":{"1":{"title":"A","extract":"text"}}}}`))
	}))
	defer srv.Close()

	// When: fetching
	_, extract, err := testClient(srv.URL).FetchExtract(context.Background(), "A")

	// Then: the second attempt succeeds
	require.NoError(t, err)
	assert.Equal(t, "text", extract)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).FetchExtract(context.Background(), "A")

	require.Error(t, err)
	assert.Equal(t, wgerrors.ErrCodeRemoteStatus, wgerrors.GetCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, _, err := testClient(endpoint).FetchExtract(context.Background(), "A")

	require.Error(t, err)
	assert.True(t, wgerrors.HasCode(err, wgerrors.ErrCodeTransportFailure))
}

type fakeFetcher struct {
	pages map[string][2]string
	err   error
}

func (f *fakeFetcher) FetchExtract(_ context.Context, title string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	p, ok := f.pages[title]
	if !ok {
		return "", "", ErrPageMissing
	}
	return p[0], p[1], nil
}

func TestScraper_PreservesOrderAndSkipsMissing(t *testing.T) {
	// Given: three urls, one missing and one empty
	f := &fakeFetcher{pages: map[string][2]string{
		"A": {"Alpha", "alpha text"},
		"C": {"Gamma", "gamma text"},
		"E": {"Empty", "   "},
	}}
	urls := []string{
		"https://en.wikipedia.org/wiki/C",
		"https://en.wikipedia.org/wiki/B",
		"https://en.wikipedia.org/wiki/E",
		"https://en.wikipedia.org/wiki/A",
	}

	// When: scraping with concurrency
	pages, err := NewScraper(f, 3).Scrape(context.Background(), urls)

	// Then: found pages come back in input order
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Gamma", pages[0].Title)
	assert.Equal(t, urls[0], pages[0].URL)
	assert.Equal(t, "Alpha", pages[1].Title)
}

func TestScraper_AbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewScraper(&fakeFetcher{err: boom}, 2).
		Scrape(context.Background(), []string{"https://en.wikipedia.org/wiki/A"})

	assert.ErrorIs(t, err, boom)
}

func TestSaveAndLoadPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wikipedia_content.json")
	pages := []Page{{Title: "A", URL: "u", Content: "c"}}

	require.NoError(t, SavePages(path, pages))
	got, err := LoadPages(path)

	require.NoError(t, err)
	assert.Equal(t, pages, got)
}

func TestLoadPages_Missing(t *testing.T) {
	_, err := LoadPages(filepath.Join(t.TempDir(), "absent.json"))

	require.Error(t, err)
	assert.Equal(t, wgerrors.ErrCodeFileNotFound, wgerrors.GetCode(err))
}
