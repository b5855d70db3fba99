package wiki

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Fetcher is the subset of Client used by Scraper.
type Fetcher interface {
	FetchExtract(ctx context.Context, title string) (string, string, error)
}

// Scraper fetches a list of article URLs concurrently.
type Scraper struct {
	fetcher     Fetcher
	concurrency int
}

// NewScraper creates a Scraper running at most concurrency fetches at once.
func NewScraper(f Fetcher, concurrency int) *Scraper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scraper{fetcher: f, concurrency: concurrency}
}

// Scrape fetches every URL and returns pages in input order. Missing or empty
// articles are skipped with a warning; any other error aborts the scrape.
func (s *Scraper) Scrape(ctx context.Context, urls []string) ([]Page, error) {
	results := make([]*Page, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			title, err := TitleFromURL(u)
			if err != nil {
				return err
			}

			pageTitle, content, err := s.fetcher.FetchExtract(gctx, title)
			if errors.Is(err, ErrPageMissing) {
				slog.Warn("skipping missing article", slog.String("url", u))
				return nil
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(content) == "" {
				slog.Warn("skipping article with empty extract", slog.String("url", u))
				return nil
			}

			results[i] = &Page{Title: pageTitle, URL: u, Content: content}
			slog.Info("extracted article", slog.String("url", u), slog.Int("bytes", len(content)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(urls))
	for _, p := range results {
		if p != nil {
			pages = append(pages, *p)
		}
	}
	return pages, nil
}
