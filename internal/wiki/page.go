// Package wiki fetches plain-text Wikipedia articles through the MediaWiki
// API and persists them as a JSON dataset.
package wiki

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// Page is one scraped article.
type Page struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// TitleFromURL extracts the article title from a /wiki/ URL.
func TitleFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid article url %q: %w", raw, err)
	}
	_, title, ok := strings.Cut(u.Path, "/wiki/")
	if !ok || title == "" {
		return "", fmt.Errorf("article url %q has no /wiki/ title", raw)
	}
	return title, nil
}

// LoadPages reads a dataset written by SavePages.
func LoadPages(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wgerrors.New(wgerrors.ErrCodeFileNotFound,
				fmt.Sprintf("dataset %s not found", path), err).
				WithSuggestion("run 'wikigraph scrape' first")
		}
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var pages []Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, wgerrors.New(wgerrors.ErrCodeFileCorrupt,
			fmt.Sprintf("dataset %s is not valid JSON", path), err)
	}
	return pages, nil
}

// SavePages writes pages as indented JSON, replacing path atomically.
func SavePages(path string, pages []Page) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	data, err := json.MarshalIndent(pages, "", "    ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename dataset: %w", err)
	}
	return nil
}
