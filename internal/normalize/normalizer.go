// Package normalize converts aggregator event payloads into the canonical
// odds model. Payloads arrive as decoded JSON (nested maps) so the parser is
// independent of the provider's Go types.
package normalize

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/odds"
)

const (
	outcomeOver  = "Over"
	outcomeUnder = "Under"
)

// Skipped records an event dropped from a batch
type Skipped struct {
	EventID string
	Reason  error
}

// Event normalizes a single raw event. Only the requested markets are kept;
// an empty market list keeps every supported market. Missing identity
// fields fail with odds.ErrMalformedRecord.
func Event(raw map[string]interface{}, markets []odds.MarketType) (odds.Game, error) {
	return newParser(markets, nil).event(raw)
}

// Batch normalizes a list of raw events. Malformed events are logged and
// skipped; they never abort the rest of the batch.
func Batch(raw []map[string]interface{}, markets []odds.MarketType, logger *zap.Logger) ([]odds.Game, []Skipped) {
	p := newParser(markets, logger)

	games := make([]odds.Game, 0, len(raw))
	var skipped []Skipped
	for _, event := range raw {
		game, err := p.event(event)
		if err != nil {
			eventID := extractString(event, "id")
			p.log.Warn("skipping malformed event",
				zap.String("event_id", eventID),
				zap.Error(err),
			)
			skipped = append(skipped, Skipped{EventID: eventID, Reason: err})
			continue
		}
		games = append(games, game)
	}

	return games, skipped
}

type parser struct {
	wanted map[odds.MarketType]bool
	log    *zap.Logger
}

func newParser(markets []odds.MarketType, logger *zap.Logger) *parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	wanted := make(map[odds.MarketType]bool)
	if len(markets) == 0 {
		markets = odds.AllMarkets
	}
	for _, m := range markets {
		wanted[m] = true
	}
	return &parser{wanted: wanted, log: logger}
}

func (p *parser) event(raw map[string]interface{}) (odds.Game, error) {
	if raw == nil {
		return odds.Game{}, fmt.Errorf("%w: empty event", odds.ErrMalformedRecord)
	}

	game := odds.Game{
		ID:       extractString(raw, "id"),
		SportKey: fallbackString(extractString(raw, "sport_key"), odds.SportNFL),
		HomeTeam: extractString(raw, "home_team"),
		AwayTeam: extractString(raw, "away_team"),
	}

	if ts := extractString(raw, "commence_time"); ts != "" {
		t, err := parseTime(ts)
		if err != nil {
			return odds.Game{}, fmt.Errorf("%w: event %s commence_time %q", odds.ErrMalformedRecord, game.ID, ts)
		}
		game.CommenceTime = t
	}

	if err := game.Validate(); err != nil {
		return odds.Game{}, err
	}

	seen := make(map[string]bool)
	for _, item := range extractArray(raw, "bookmakers") {
		book, ok := item.(map[string]interface{})
		if !ok {
			p.log.Debug("skipping non-object bookmaker", zap.String("event_id", game.ID))
			continue
		}
		quote, err := p.bookmaker(game, book)
		if err != nil {
			p.log.Debug("skipping bookmaker", zap.String("event_id", game.ID), zap.Error(err))
			continue
		}
		if seen[quote.Key] {
			p.log.Debug("skipping duplicate bookmaker", zap.String("event_id", game.ID), zap.String("bookmaker", quote.Key))
			continue
		}
		seen[quote.Key] = true
		game.Bookmakers = append(game.Bookmakers, quote)
	}

	if game.Bookmakers == nil {
		game.Bookmakers = []odds.BookmakerQuote{}
	}

	return game, nil
}

func (p *parser) bookmaker(game odds.Game, raw map[string]interface{}) (odds.BookmakerQuote, error) {
	quote := odds.BookmakerQuote{
		Key:     extractString(raw, "key"),
		Title:   extractString(raw, "title"),
		Markets: make(map[odds.MarketType]odds.MarketLine),
	}
	if quote.Key == "" {
		return odds.BookmakerQuote{}, fmt.Errorf("%w: bookmaker without key", odds.ErrMalformedRecord)
	}
	if quote.Title == "" {
		quote.Title = quote.Key
	}
	if ts := extractString(raw, "last_update"); ts != "" {
		if t, err := parseTime(ts); err == nil {
			quote.LastUpdate = t
		}
	}

	for _, item := range extractArray(raw, "markets") {
		market, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		key := extractString(market, "key")
		mt, ok := odds.ParseMarketType(key)
		if !ok || !p.wanted[mt] {
			continue
		}
		if _, dup := quote.Markets[mt]; dup {
			p.log.Debug("skipping duplicate market",
				zap.String("event_id", game.ID),
				zap.String("bookmaker", quote.Key),
				zap.String("market", key),
			)
			continue
		}
		line := p.marketLine(game, quote.Key, mt, extractArray(market, "outcomes"))
		if len(line) > 0 {
			quote.Markets[mt] = line
		}
	}

	return quote, nil
}

func (p *parser) marketLine(game odds.Game, bookKey string, mt odds.MarketType, outcomes []interface{}) odds.MarketLine {
	line := make(odds.MarketLine)
	for _, item := range outcomes {
		raw, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name := extractString(raw, "name")
		side, ok := resolveSide(game, mt, name)
		if !ok {
			p.log.Debug("dropping outcome with unknown side",
				zap.String("event_id", game.ID),
				zap.String("bookmaker", bookKey),
				zap.String("market", string(mt)),
				zap.String("outcome", name),
			)
			continue
		}
		if _, dup := line[side]; dup {
			continue
		}

		outcome := odds.Outcome{Name: name}
		if v, present := raw["price"]; present {
			price, err := parsePrice(v)
			if err != nil {
				p.log.Debug("ignoring price", zap.String("event_id", game.ID), zap.String("bookmaker", bookKey), zap.Error(err))
			}
			outcome.Price = price
		}
		if mt != odds.MarketMoneyline {
			if v, present := raw["point"]; present {
				point, err := parsePoint(v)
				if err != nil {
					p.log.Debug("ignoring point", zap.String("event_id", game.ID), zap.String("bookmaker", bookKey), zap.Error(err))
				}
				outcome.Point = point
			}
			if mt == odds.MarketTotal && outcome.Point.Valid && outcome.Point.Value.IsNegative() {
				p.log.Debug("dropping negative total", zap.String("event_id", game.ID), zap.String("bookmaker", bookKey))
				continue
			}
		}

		line[side] = outcome
	}
	return line
}

// resolveSide maps a provider outcome name onto a canonical side using an
// exact string match. Unknown names are reported as not ok.
func resolveSide(game odds.Game, mt odds.MarketType, name string) (odds.Side, bool) {
	if mt == odds.MarketTotal {
		switch name {
		case outcomeOver:
			return odds.SideOver, true
		case outcomeUnder:
			return odds.SideUnder, true
		}
		return "", false
	}

	switch name {
	case game.HomeTeam:
		return odds.SideHome, true
	case game.AwayTeam:
		return odds.SideAway, true
	}
	return "", false
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// some feeds omit seconds
		t, err = time.Parse("2006-01-02T15:04Z07:00", s)
	}
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
