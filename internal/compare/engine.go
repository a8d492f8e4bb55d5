// Package compare finds the best available price per market and side across
// the bookmakers quoting a game.
package compare

import (
	"time"

	"github.com/fortuna/gridiron/internal/odds"
)

// BestPrice is the winning quote for one market side
type BestPrice struct {
	Bookmaker          string     `json:"bookmaker"`
	BookmakerKey       string     `json:"bookmaker_key"`
	Price              int        `json:"price"`
	Point              odds.Point `json:"point"`
	ImpliedProbability float64    `json:"implied_probability"`
	DecimalOdds        float64    `json:"decimal_odds"`
}

// TeamSides holds the best prices for a home/away market
type TeamSides struct {
	Home *BestPrice `json:"home"`
	Away *BestPrice `json:"away"`
}

// TotalSides holds the best prices for an over/under market
type TotalSides struct {
	Over  *BestPrice `json:"over"`
	Under *BestPrice `json:"under"`
}

// BestOdds groups the best prices of every supported market
type BestOdds struct {
	Moneyline TeamSides  `json:"moneyline"`
	Spread    TeamSides  `json:"spread"`
	Total     TotalSides `json:"total"`
}

// GameSummary identifies the compared game
type GameSummary struct {
	ID           string    `json:"id"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
}

// Result is the comparison for a single game
type Result struct {
	Game       GameSummary `json:"game"`
	BestOdds   BestOdds    `json:"best_odds"`
	Bookmakers int         `json:"bookmakers_compared"`
}

// Game compares every market of g. A side no bookmaker offers is nil.
func Game(g odds.Game) Result {
	return Result{
		Game: GameSummary{
			ID:           g.ID,
			HomeTeam:     g.HomeTeam,
			AwayTeam:     g.AwayTeam,
			CommenceTime: g.CommenceTime,
		},
		BestOdds: BestOdds{
			Moneyline: TeamSides{
				Home: Best(g, odds.MarketMoneyline, odds.SideHome),
				Away: Best(g, odds.MarketMoneyline, odds.SideAway),
			},
			Spread: TeamSides{
				Home: Best(g, odds.MarketSpread, odds.SideHome),
				Away: Best(g, odds.MarketSpread, odds.SideAway),
			},
			Total: TotalSides{
				Over:  Best(g, odds.MarketTotal, odds.SideOver),
				Under: Best(g, odds.MarketTotal, odds.SideUnder),
			},
		},
		Bookmakers: len(g.Bookmakers),
	}
}

// Best scans the bookmakers in order and returns the highest price offered
// for the market side. Ties keep the first bookmaker seen. Points are carried
// along but do not take part in the comparison.
func Best(g odds.Game, market odds.MarketType, side odds.Side) *BestPrice {
	var best *BestPrice
	for _, book := range g.Bookmakers {
		line, ok := book.Markets[market]
		if !ok {
			continue
		}
		outcome, ok := line[side]
		if !ok || !outcome.Price.Valid {
			continue
		}
		if best != nil && outcome.Price.Value <= best.Price {
			continue
		}
		best = &BestPrice{
			Bookmaker:          book.Title,
			BookmakerKey:       book.Key,
			Price:              outcome.Price.Value,
			Point:              outcome.Point,
			ImpliedProbability: odds.ImpliedProbability(outcome.Price.Value),
			DecimalOdds:        odds.DecimalOdds(outcome.Price.Value),
		}
	}
	return best
}

// FindGame returns the first game whose home team equals home or, failing
// that check, whose away team equals away. Empty names never match.
func FindGame(games []odds.Game, home, away string) (odds.Game, bool) {
	if home == "" && away == "" {
		return odds.Game{}, false
	}
	for _, g := range games {
		if home != "" && g.HomeTeam == home {
			return g, true
		}
		if away != "" && g.AwayTeam == away {
			return g, true
		}
	}
	return odds.Game{}, false
}
