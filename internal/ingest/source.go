// Package ingest defines the contracts every odds source implements.
package ingest

import (
	"context"

	"github.com/fortuna/gridiron/internal/odds"
)

// DefaultRegion is the aggregator region used when a query names none
const DefaultRegion = "us"

// Query narrows what a source fetches. Empty Markets means every supported
// market; empty Bookmakers means no filter.
type Query struct {
	Markets    []odds.MarketType
	Regions    string
	Bookmakers []string
}

// MarketKeys returns the wire keys of the requested markets, defaulting to all
func (q Query) MarketKeys() []string {
	markets := q.Markets
	if len(markets) == 0 {
		markets = odds.AllMarkets
	}
	keys := make([]string, len(markets))
	for i, m := range markets {
		keys[i] = string(m)
	}
	return keys
}

// Region returns the requested region or DefaultRegion
func (q Query) Region() string {
	if q.Regions == "" {
		return DefaultRegion
	}
	return q.Regions
}

// Feed is an upstream that returns raw event payloads still to be normalized.
// Implementations return odds.ErrNotConfigured before touching the network
// when a credential is missing, and wrap transport failures in
// odds.ErrUpstreamUnavailable.
type Feed interface {
	Name() string
	Configured() bool
	FetchOdds(ctx context.Context, q Query) ([]map[string]interface{}, error)
	FetchEvent(ctx context.Context, eventID string, q Query) (map[string]interface{}, error)
}

// Source produces zero or more normalized games, or fails as a whole.
// Each sportsbook scraper is an independent Source.
type Source interface {
	Name() string
	Games(ctx context.Context, q Query) ([]odds.Game, error)
}
