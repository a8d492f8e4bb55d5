package scrape

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/odds"
)

// State locates the JSON state a sportsbook page ships inside a script tag.
// Paths are dot-separated object keys relative to one event; an empty Events
// path means the decoded root.
type State struct {
	Script string // selector for candidate script tags
	Marker string // text the script must contain, optional
	Prefix string // assignment before the JSON, optional

	// Events resolves to an array of events or an object keyed by event id
	Events    string
	HomeTeam  string
	AwayTeam  string
	StartTime string
	Cells     map[odds.MarketType]map[odds.Side]StateCell
}

// StateCell holds the paths of one market side inside an event
type StateCell struct {
	Price string
	Point string
}

// parseState reads the games of the book's embedded state. It returns nil
// when the book has no state or none of its scripts decode.
func parseState(doc *goquery.Document, book Book, markets []odds.MarketType, logger *zap.Logger) []odds.Game {
	st := book.State
	if st.Script == "" {
		return nil
	}

	var games []odds.Game
	seen := make(map[string]bool)

	doc.Find(st.Script).Each(func(i int, s *goquery.Selection) {
		raw := s.Text()
		if st.Marker != "" && !strings.Contains(raw, st.Marker) {
			return
		}
		data, err := decodeState(raw, st.Prefix)
		if err != nil {
			logger.Debug("skipping script", zap.String("book", book.Key), zap.Int("index", i), zap.Error(err))
			return
		}

		for _, ev := range stateEvents(lookup(data, st.Events)) {
			game, err := stateGame(ev, book, markets)
			if err != nil {
				logger.Debug("skipping state event", zap.String("book", book.Key), zap.Error(err))
				continue
			}
			if seen[game.ID] {
				continue
			}
			seen[game.ID] = true
			games = append(games, game)
		}
	})
	return games
}

// decodeState decodes the first JSON value after prefix. Trailing script
// text such as a semicolon is ignored.
func decodeState(raw, prefix string) (interface{}, error) {
	if prefix != "" {
		idx := strings.Index(raw, prefix)
		if idx < 0 {
			return nil, fmt.Errorf("prefix %q not found", prefix)
		}
		raw = raw[idx+len(prefix):]
	}

	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.UseNumber()
	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return data, nil
}

func lookup(v interface{}, path string) interface{} {
	if path == "" {
		return v
	}
	for _, key := range strings.Split(path, ".") {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// stateEvents lists the event objects of an array, or of an object keyed by
// id in key order
func stateEvents(v interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if ev, ok := item.(map[string]interface{}); ok {
				out = append(out, ev)
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if ev, ok := val[k].(map[string]interface{}); ok {
				out = append(out, ev)
			}
		}
	}
	return out
}

func stateGame(ev map[string]interface{}, book Book, markets []odds.MarketType) (odds.Game, error) {
	st := book.State
	game := odds.Game{
		SportKey:     odds.SportNFL,
		HomeTeam:     stateString(lookup(ev, st.HomeTeam)),
		AwayTeam:     stateString(lookup(ev, st.AwayTeam)),
		CommenceTime: stateTime(lookup(ev, st.StartTime)),
	}
	game.ID = gameID(book.Key, game)

	if err := game.Validate(); err != nil {
		return odds.Game{}, err
	}

	quote := odds.BookmakerQuote{
		Key:     book.Key,
		Title:   book.Title,
		Markets: make(map[odds.MarketType]odds.MarketLine),
	}
	for _, mt := range markets {
		line := make(odds.MarketLine)
		for side, cell := range st.Cells[mt] {
			outcome, ok := stateOutcome(ev, cell, mt)
			if !ok {
				continue
			}
			outcome.Name = outcomeName(game, mt, side)
			line[side] = outcome
		}
		if len(line) > 0 {
			quote.Markets[mt] = line
		}
	}
	game.Bookmakers = []odds.BookmakerQuote{quote}

	return game, nil
}

func stateOutcome(ev map[string]interface{}, cell StateCell, mt odds.MarketType) (odds.Outcome, bool) {
	if cell.Price == "" {
		return odds.Outcome{}, false
	}

	var price odds.Price
	switch v := lookup(ev, cell.Price).(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil || !odds.ValidAmerican(int(i)) {
			return odds.Outcome{}, false
		}
		price = odds.NewPrice(int(i))
	case string:
		p, err := odds.ParseAmerican(v)
		if err != nil {
			return odds.Outcome{}, false
		}
		price = p
	default:
		return odds.Outcome{}, false
	}

	outcome := odds.Outcome{Price: price}
	if cell.Point == "" || mt == odds.MarketMoneyline {
		return outcome, true
	}

	var point odds.Point
	switch v := lookup(ev, cell.Point).(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return odds.Outcome{}, false
		}
		point = odds.NewPoint(d)
	case string:
		p, ok := ParsePoint(v)
		if !ok {
			return odds.Outcome{}, false
		}
		point = p
	default:
		return odds.Outcome{}, false
	}
	if mt == odds.MarketTotal && point.Value.IsNegative() {
		return odds.Outcome{}, false
	}
	outcome.Point = point
	return outcome, true
}

func stateString(v interface{}) string {
	s, _ := v.(string)
	return strings.Join(strings.Fields(s), " ")
}

// stateTime accepts RFC 3339 strings and epoch milliseconds
func stateTime(v interface{}) time.Time {
	switch val := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(val)); err == nil {
			return t.UTC()
		}
	case json.Number:
		if ms, err := val.Int64(); err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Time{}
}
