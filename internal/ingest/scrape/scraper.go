// Package scrape reads NFL odds straight from sportsbook pages. It is a
// best-effort fallback for when the aggregator is unavailable: pages change
// often, and a scraper that finds nothing returns an empty list.
package scrape

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/ingest"
	"github.com/fortuna/gridiron/internal/odds"
)

// Scraper is the ingest.Source for a single sportsbook
type Scraper struct {
	book    Book
	fetcher Fetcher
	logger  *zap.Logger
}

var _ ingest.Source = (*Scraper)(nil)

// New creates a scraper for book using fetcher to load pages
func New(book Book, fetcher Fetcher, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		book:    book,
		fetcher: fetcher,
		logger:  logger.With(zap.String("book", book.Key)),
	}
}

// NewAll creates a scraper for every listed book key. Unknown keys are an error.
func NewAll(keys []string, fetcher Fetcher, logger *zap.Logger) ([]*Scraper, error) {
	if len(keys) == 0 {
		for _, b := range Books {
			keys = append(keys, b.Key)
		}
	}

	scrapers := make([]*Scraper, 0, len(keys))
	for _, key := range keys {
		book, ok := LookupBook(key)
		if !ok {
			return nil, fmt.Errorf("unknown sportsbook %q", key)
		}
		scrapers = append(scrapers, New(book, fetcher, logger))
	}
	return scrapers, nil
}

// Name is the sportsbook key
func (s *Scraper) Name() string {
	return s.book.Key
}

// Title is the sportsbook display name
func (s *Scraper) Title() string {
	return s.book.Title
}

// Games loads the book's NFL page and parses the requested markets
func (s *Scraper) Games(ctx context.Context, q ingest.Query) ([]odds.Game, error) {
	s.logger.Info("scraping NFL odds", zap.String("url", s.book.URL))

	html, err := s.fetcher.Fetch(ctx, s.book.URL)
	if err != nil {
		s.logger.Error("failed to fetch page", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", odds.ErrUpstreamUnavailable, s.book.Key, err)
	}

	doc, err := ParseHTML(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", odds.ErrUpstreamUnavailable, s.book.Key, err)
	}

	return ParseGames(doc, s.book, q.Markets, s.logger), nil
}
