package odds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SportNFL is the aggregator sport key for the NFL.
const SportNFL = "americanfootball_nfl"

// MarketType identifies a betting market by its wire key
type MarketType string

const (
	MarketMoneyline MarketType = "h2h"
	MarketSpread    MarketType = "spreads"
	MarketTotal     MarketType = "totals"
)

// AllMarkets lists the supported markets in display order
var AllMarkets = []MarketType{MarketMoneyline, MarketSpread, MarketTotal}

// ParseMarketType maps a wire key onto a known market
func ParseMarketType(key string) (MarketType, bool) {
	switch MarketType(key) {
	case MarketMoneyline, MarketSpread, MarketTotal:
		return MarketType(key), true
	}
	return "", false
}

// Sides returns the canonical sides of the market.
func (m MarketType) Sides() []Side {
	if m == MarketTotal {
		return []Side{SideOver, SideUnder}
	}
	return []Side{SideHome, SideAway}
}

// Side is the canonical side of a market line
type Side string

const (
	SideHome  Side = "home"
	SideAway  Side = "away"
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// Price is an optional American odds price. The zero value is unset.
type Price struct {
	Value int
	Valid bool
}

// NewPrice returns a set price
func NewPrice(v int) Price {
	return Price{Value: v, Valid: true}
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%d", p.Value)), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = Price{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = NewPrice(v)
	return nil
}

// Point is an optional handicap or total line.
type Point struct {
	Value decimal.Decimal
	Valid bool
}

// NewPoint returns a set point
func NewPoint(v decimal.Decimal) Point {
	return Point{Value: v, Valid: true}
}

// PointFromFloat returns a set point from a float
func PointFromFloat(f float64) Point {
	return NewPoint(decimal.NewFromFloat(f))
}

func (p Point) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return []byte(p.Value.String()), nil
}

func (p *Point) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = Point{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	*p = NewPoint(d)
	return nil
}

// Outcome is one side of a market line as offered by a bookmaker
type Outcome struct {
	Name  string `json:"name"`
	Price Price  `json:"price"`
	Point Point  `json:"point"`
}

// MarketLine holds the outcomes of a single market keyed by canonical side
type MarketLine map[Side]Outcome

// BookmakerQuote is one bookmaker's lines for a game
type BookmakerQuote struct {
	Key        string                    `json:"key"`
	Title      string                    `json:"title"`
	LastUpdate time.Time                 `json:"last_update"`
	Markets    map[MarketType]MarketLine `json:"markets"`
}

// Game is a single NFL event with quotes from zero or more bookmakers
type Game struct {
	ID           string           `json:"id"`
	SportKey     string           `json:"sport_key"`
	CommenceTime time.Time        `json:"commence_time"`
	HomeTeam     string           `json:"home_team"`
	AwayTeam     string           `json:"away_team"`
	Bookmakers   []BookmakerQuote `json:"bookmakers"`
}

// Validate checks the identity invariants of a game
func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if g.HomeTeam == "" || g.AwayTeam == "" {
		return fmt.Errorf("%w: event %s missing home_team or away_team", ErrMalformedRecord, g.ID)
	}
	if g.HomeTeam == g.AwayTeam {
		return fmt.Errorf("%w: event %s has identical teams %q", ErrMalformedRecord, g.ID, g.HomeTeam)
	}
	if g.CommenceTime.IsZero() {
		return fmt.Errorf("%w: event %s missing commence_time", ErrMalformedRecord, g.ID)
	}
	return nil
}

// TeamName returns the team name for a moneyline/spread side
func (g Game) TeamName(side Side) string {
	switch side {
	case SideHome:
		return g.HomeTeam
	case SideAway:
		return g.AwayTeam
	}
	return ""
}

// Clone returns a deep copy of the game
func (g Game) Clone() Game {
	out := g
	if g.Bookmakers == nil {
		return out
	}
	out.Bookmakers = make([]BookmakerQuote, len(g.Bookmakers))
	for i, b := range g.Bookmakers {
		out.Bookmakers[i] = b.Clone()
	}
	return out
}

// Clone returns a deep copy of the quote
func (b BookmakerQuote) Clone() BookmakerQuote {
	out := b
	if b.Markets == nil {
		return out
	}
	out.Markets = make(map[MarketType]MarketLine, len(b.Markets))
	for mt, line := range b.Markets {
		copied := make(MarketLine, len(line))
		for side, o := range line {
			copied[side] = o
		}
		out.Markets[mt] = copied
	}
	return out
}

// CloneGames deep-copies a slice of games
func CloneGames(games []Game) []Game {
	if games == nil {
		return nil
	}
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = g.Clone()
	}
	return out
}
