// Package reconciliation merges the games reported by several sources into
// one list with a single Game per event and every source's bookmaker quotes.
package reconciliation

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/odds"
)

// Strategy defines how matched games are combined
type Strategy string

const (
	// SmartMerge unions the bookmaker quotes of matched games (default)
	SmartMerge Strategy = "smart_merge"

	// PreferAuthoritative keeps the first source's game and drops later
	// quotes for it
	PreferAuthoritative Strategy = "prefer_authoritative"
)

// ParseStrategy maps a configured name onto a Strategy. Empty means
// SmartMerge.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return SmartMerge, nil
	case SmartMerge, PreferAuthoritative:
		return s, nil
	}
	return "", fmt.Errorf("unknown reconcile strategy %q", name)
}

// Recorder receives the counts of each reconciliation run
type Recorder interface {
	Reconciled(matched, conflicts int)
}

// Option configures an Engine
type Option func(*Engine)

// WithRecorder reports every run to r
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// Engine reconciles games from multiple sources. It holds no per-run state
// and is safe for concurrent use.
type Engine struct {
	strategy Strategy
	recorder Recorder
	logger   *zap.Logger
}

// NewEngine creates a new reconciliation engine
func NewEngine(strategy Strategy, logger *zap.Logger, opts ...Option) *Engine {
	if strategy == "" {
		strategy = SmartMerge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		strategy: strategy,
		logger:   logger.With(zap.String("component", "reconciliation")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile merges the game lists in source order. The first source to
// report an event provides its identity; later sources contribute
// bookmakers not already quoted. A repeated bookmaker key counts as a
// conflict and the earlier quote is kept.
func (e *Engine) Reconcile(sources ...[]odds.Game) []odds.Game {
	merged := []odds.Game{}
	var matched, conflicts int

	for _, games := range sources {
		for _, g := range games {
			idx := FindMatchingGame(g, merged)
			if idx < 0 {
				merged = append(merged, g.Clone())
				continue
			}

			matched++
			if e.strategy == PreferAuthoritative {
				continue
			}
			conflicts += mergeBookmakers(&merged[idx], g)
		}
	}

	if e.recorder != nil {
		e.recorder.Reconciled(matched, conflicts)
	}

	e.logger.Info("reconciled games",
		zap.Int("sources", len(sources)),
		zap.Int("games", len(merged)),
		zap.Int("matched", matched),
		zap.Int("conflicts", conflicts),
		zap.String("strategy", string(e.strategy)),
	)

	return merged
}

// mergeBookmakers appends the quotes of src that dst lacks and returns how
// many were dropped as duplicates
func mergeBookmakers(dst *odds.Game, src odds.Game) int {
	have := make(map[string]bool, len(dst.Bookmakers))
	for _, b := range dst.Bookmakers {
		have[b.Key] = true
	}

	conflicts := 0
	for _, b := range src.Bookmakers {
		if have[b.Key] {
			conflicts++
			continue
		}
		have[b.Key] = true
		dst.Bookmakers = append(dst.Bookmakers, b.Clone())
	}
	return conflicts
}
