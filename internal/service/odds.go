// Package service orchestrates the odds sources, the normalizer, the cache
// and the comparison engine behind the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/cache"
	"github.com/fortuna/gridiron/internal/compare"
	"github.com/fortuna/gridiron/internal/ingest"
	"github.com/fortuna/gridiron/internal/metrics"
	"github.com/fortuna/gridiron/internal/normalize"
	"github.com/fortuna/gridiron/internal/odds"
	"github.com/fortuna/gridiron/internal/reconciliation"
)

// SourceScrapers labels results assembled from the sportsbook scrapers
const SourceScrapers = "scrapers"

// Result is the response of a fetch. On failure Games is empty and Error
// carries a human-readable message; nothing is cached.
type Result struct {
	Games     []odds.Game `json:"games"`
	Count     int         `json:"count"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source,omitempty"`
	Cached    bool        `json:"cached"`
	Error     string      `json:"error,omitempty"`

	err error
}

// Err returns the underlying error of a failed result
func (r *Result) Err() error {
	return r.err
}

// Option configures a Service
type Option func(*Service)

// WithScrapers registers the sportsbook scrapers in fallback order
func WithScrapers(sources ...ingest.Source) Option {
	return func(s *Service) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			s.scrapers = append(s.scrapers, src)
			s.scraperByName[src.Name()] = src
		}
	}
}

// WithFallback enables scraping when the aggregator is unavailable
func WithFallback(enabled bool) Option {
	return func(s *Service) { s.fallback = enabled }
}

// WithMetrics attaches prometheus collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithReconciler replaces the default SmartMerge engine. The replacement
// should carry its own recorder.
func WithReconciler(e *reconciliation.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.reconciler = e
		}
	}
}

// WithListener registers a snapshot listener
func WithListener(l Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the query entry point. All calls are synchronous: one cache
// hit or one upstream call per request.
type Service struct {
	feed          ingest.Feed
	scrapers      []ingest.Source
	scraperByName map[string]ingest.Source
	fallback      bool

	cache      *cache.Cache
	reconciler *reconciliation.Engine
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// New creates the service. feed is the aggregator; c may be shared with
// other services.
func New(feed ingest.Feed, c *cache.Cache, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	s := &Service{
		feed:          feed,
		scraperByName: make(map[string]ingest.Source),
		cache:         c,
		logger:        logger.With(zap.String("component", "odds-service")),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reconciler == nil {
		s.reconciler = reconciliation.NewEngine(reconciliation.SmartMerge, logger,
			reconciliation.WithRecorder(s.metrics))
	}
	return s
}

// Configured reports whether the aggregator has a credential
func (s *Service) Configured() bool {
	return s.feed != nil && s.feed.Configured()
}

// Fetch returns normalized NFL games for the requested markets and
// bookmaker filter. Empty markets means all markets.
func (s *Service) Fetch(ctx context.Context, markets []odds.MarketType, bookmakers []string) *Result {
	bookmakers = bookmakerKeys(bookmakers)
	q := ingest.Query{Markets: markets, Bookmakers: bookmakers}
	key := cache.Key(cache.NamespaceOddsAPI, "odds", q.MarketKeys(), bookmakers)

	if res, ok := s.cached(cache.NamespaceOddsAPI, key); ok {
		return res
	}

	games, err := s.fetchFeed(ctx, q)
	if err != nil {
		if s.fallback && errors.Is(err, odds.ErrUpstreamUnavailable) && len(s.scrapers) > 0 {
			s.logger.Warn("aggregator unavailable, falling back to scrapers", zap.Error(err))
			if res, ok := s.fetchScrapers(ctx, q); ok {
				return res
			}
		}
		return s.failed(err)
	}

	return s.store(ctx, key, s.feed.Name(), games)
}

// FetchOne returns the odds of a single event. It is not cached.
func (s *Service) FetchOne(ctx context.Context, eventID string) (*odds.Game, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("aggregator: %w", odds.ErrNotConfigured)
	}

	start := time.Now()
	raw, err := s.feed.FetchEvent(ctx, eventID, ingest.Query{})
	s.metrics.Upstream(s.feed.Name(), outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	game, err := normalize.Event(raw, nil)
	if err != nil {
		s.metrics.Skipped("malformed", 1)
		s.logger.Warn("skipping malformed event", zap.String("event_id", eventID), zap.Error(err))
		return nil, fmt.Errorf("%w: event %s: %w", odds.ErrUpstreamUnavailable, eventID, err)
	}
	return &game, nil
}

// Compare finds the game matching home (or else away) among the current
// odds and returns its best prices.
func (s *Service) Compare(ctx context.Context, home, away string) (*compare.Result, error) {
	if home == "" && away == "" {
		return nil, fmt.Errorf("%w: home_team or away_team is required", odds.ErrInvalidQuery)
	}

	res := s.Fetch(ctx, nil, nil)
	if err := res.Err(); err != nil {
		return nil, err
	}

	game, ok := compare.FindGame(res.Games, home, away)
	if !ok {
		return nil, fmt.Errorf("game home=%q away=%q: %w", home, away, odds.ErrNotFound)
	}

	out := compare.Game(game)
	return &out, nil
}

// Scrape runs the named sportsbook scraper, cached per book
func (s *Service) Scrape(ctx context.Context, book string) *Result {
	src, ok := s.scraperByName[book]
	if !ok {
		return s.failed(fmt.Errorf("sportsbook %q: %w", book, odds.ErrNotFound))
	}

	namespace := cache.NamespaceScrape + ":" + book
	key := cache.Key(namespace, "odds", ingest.Query{}.MarketKeys(), nil)
	if res, ok := s.cached(namespace, key); ok {
		return res
	}

	start := time.Now()
	games, err := src.Games(ctx, ingest.Query{})
	s.metrics.Upstream(src.Name(), outcome(err), time.Since(start))
	if err != nil {
		s.logger.Error("scrape failed", zap.String("book", book), zap.Error(err))
		return s.failed(err)
	}

	return s.store(ctx, key, src.Name(), games)
}

// Scrapers lists the registered scraper names in order
func (s *Service) Scrapers() []string {
	names := make([]string, len(s.scrapers))
	for i, src := range s.scrapers {
		names[i] = src.Name()
	}
	return names
}

func (s *Service) fetchFeed(ctx context.Context, q ingest.Query) ([]odds.Game, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("aggregator: %w", odds.ErrNotConfigured)
	}

	start := time.Now()
	raw, err := s.feed.FetchOdds(ctx, q)
	s.metrics.Upstream(s.feed.Name(), outcome(err), time.Since(start))
	if err != nil {
		s.logger.Error("error fetching odds", zap.String("source", s.feed.Name()), zap.Error(err))
		return nil, err
	}

	games, skipped := normalize.Batch(raw, q.Markets, s.logger)
	s.metrics.Skipped("malformed", len(skipped))
	s.logger.Info("normalized odds",
		zap.Int("events", len(raw)),
		zap.Int("games", len(games)),
		zap.Int("skipped", len(skipped)),
	)
	return games, nil
}

// fetchScrapers runs every scraper matching the bookmaker filter and merges
// their games. It reports false when no scraper produced anything.
func (s *Service) fetchScrapers(ctx context.Context, q ingest.Query) (*Result, bool) {
	key := cache.Key(cache.NamespaceScrape, "fallback", q.MarketKeys(), q.Bookmakers)
	if res, ok := s.cached(cache.NamespaceScrape, key); ok {
		return res, true
	}

	wanted := make(map[string]bool, len(q.Bookmakers))
	for _, b := range q.Bookmakers {
		wanted[b] = true
	}

	var lists [][]odds.Game
	for _, src := range s.scrapers {
		if len(wanted) > 0 && !wanted[src.Name()] {
			continue
		}
		start := time.Now()
		games, err := src.Games(ctx, q)
		s.metrics.Upstream(src.Name(), outcome(err), time.Since(start))
		if err != nil {
			s.logger.Warn("scraper failed", zap.String("book", src.Name()), zap.Error(err))
			continue
		}
		lists = append(lists, games)
	}

	merged := s.reconciler.Reconcile(lists...)
	if len(merged) == 0 {
		return nil, false
	}
	return s.store(ctx, key, SourceScrapers, merged), true
}

func (s *Service) cached(namespace, key string) (*Result, bool) {
	entry, ok := s.cache.Get(key)
	s.metrics.CacheResult(namespace, ok)
	if !ok {
		return nil, false
	}
	s.logger.Debug("returning cached data", zap.String("key", key))
	return &Result{
		Games:     entry.Games,
		Count:     len(entry.Games),
		Timestamp: entry.FetchedAt,
		Source:    entry.Source,
		Cached:    true,
	}, true
}

// store caches a fresh result and hands it to the listeners
func (s *Service) store(ctx context.Context, key, source string, games []odds.Game) *Result {
	if games == nil {
		games = []odds.Game{}
	}
	fetchedAt := s.now().UTC()
	s.cache.Set(key, cache.Entry{Games: games, FetchedAt: fetchedAt, Source: source})

	s.notify(ctx, Snapshot{Source: source, Games: games, FetchedAt: fetchedAt})

	return &Result{
		Games:     games,
		Count:     len(games),
		Timestamp: fetchedAt,
		Source:    source,
	}
}

func (s *Service) failed(err error) *Result {
	return &Result{
		Games:     []odds.Game{},
		Timestamp: s.now().UTC(),
		Error:     Message(err),
		err:       err,
	}
}

// Message turns a domain error into the text shown to API clients
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, odds.ErrNotConfigured):
		return "No API key configured - set ODDS_API_KEY"
	default:
		return err.Error()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, odds.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, odds.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// bookmakerKeys lowercases the filter so the upstream request matches the
// cache key it is stored under.
func bookmakerKeys(books []string) []string {
	if len(books) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(books))
	out := make([]string, 0, len(books))
	for _, b := range books {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}
