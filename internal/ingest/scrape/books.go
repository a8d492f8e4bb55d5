package scrape

import "github.com/fortuna/gridiron/internal/odds"

// Cell locates the price and point of one market side inside an event
// container. Empty selectors are skipped.
type Cell struct {
	Price string
	Point string
}

// Layout describes where a sportsbook page keeps its NFL events
type Layout struct {
	Event     string
	HomeTeam  string
	AwayTeam  string
	StartTime string // element carrying a datetime attribute
	Cells     map[odds.MarketType]map[odds.Side]Cell
}

// Book is a scrapable sportsbook
type Book struct {
	Key    string
	Title  string
	URL    string
	State  State
	Layout Layout
}

const jsonScript = `script[type="application/json"]`

// cells builds the common row layout: one container per market with
// data-side children holding .price and .line spans.
func cells(marketSel map[odds.MarketType]string) map[odds.MarketType]map[odds.Side]Cell {
	out := make(map[odds.MarketType]map[odds.Side]Cell, len(marketSel))
	for mt, sel := range marketSel {
		sides := make(map[odds.Side]Cell)
		for _, side := range mt.Sides() {
			base := sel + ` [data-side="` + string(side) + `"]`
			cell := Cell{Price: base + " .price"}
			if mt != odds.MarketMoneyline {
				cell.Point = base + " .line"
			}
			sides[side] = cell
		}
		out[mt] = sides
	}
	return out
}

var (
	DraftKings = Book{
		Key:   "draftkings",
		Title: "DraftKings",
		URL:   "https://sportsbook.draftkings.com/leagues/football/nfl",
		State: State{
			Script:    jsonScript,
			Marker:    "eventGroup",
			Events:    "events",
			HomeTeam:  "teamName2",
			AwayTeam:  "teamName1",
			StartTime: "startDate",
		},
		Layout: Layout{
			Event:     "div.event-cell, div.sportsbook-event-accordion__wrapper",
			HomeTeam:  "div.event-cell__home .event-cell__name",
			AwayTeam:  "div.event-cell__away .event-cell__name",
			StartTime: "time.event-cell__start-time",
			Cells: cells(map[odds.MarketType]string{
				odds.MarketMoneyline: "div.sportsbook-outcome--moneyline",
				odds.MarketSpread:    "div.sportsbook-outcome--spread",
				odds.MarketTotal:     "div.sportsbook-outcome--total",
			}),
		},
	}

	FanDuel = Book{
		Key:   "fanduel",
		Title: "FanDuel",
		URL:   "https://sportsbook.fanduel.com/navigation/nfl",
		State: State{
			Script:    "script",
			Marker:    "window.__INITIAL_STATE__",
			Prefix:    "window.__INITIAL_STATE__=",
			Events:    "events",
			HomeTeam:  "homeTeamName",
			AwayTeam:  "awayTeamName",
			StartTime: "openDate",
		},
		Layout: Layout{
			Event:     `div[aria-label*="vs"], div[aria-label*="@"]`,
			HomeTeam:  `[data-team="home"]`,
			AwayTeam:  `[data-team="away"]`,
			StartTime: "time",
			Cells: cells(map[odds.MarketType]string{
				odds.MarketMoneyline: `[data-market="moneyline"]`,
				odds.MarketSpread:    `[data-market="spread"]`,
				odds.MarketTotal:     `[data-market="total"]`,
			}),
		},
	}

	BetMGM = Book{
		Key:   "betmgm",
		Title: "BetMGM",
		URL:   "https://sports.betmgm.com/en/sports/football-11/betting/usa-9/nfl-35",
		State: State{
			Script:    jsonScript,
			Marker:    "fixture",
			HomeTeam:  "homeTeam.name",
			AwayTeam:  "awayTeam.name",
			StartTime: "startTime",
		},
		Layout: Layout{
			Event:     "div.grid-event, div.event-row",
			HomeTeam:  "div.participant.home",
			AwayTeam:  "div.participant.away",
			StartTime: "time.starting-time",
			Cells: cells(map[odds.MarketType]string{
				odds.MarketMoneyline: "div.option-group.moneyline",
				odds.MarketSpread:    "div.option-group.spread",
				odds.MarketTotal:     "div.option-group.total",
			}),
		},
	}

	Caesars = Book{
		Key:   "caesars",
		Title: "Caesars",
		URL:   "https://sportsbook.caesars.com/us/nfl",
		State: State{
			Script:    "script#__NEXT_DATA__",
			Events:    "props.pageProps.events",
			HomeTeam:  "homeCompetitor.name",
			AwayTeam:  "awayCompetitor.name",
			StartTime: "startTime",
		},
		Layout: Layout{
			Event:     "div.event-item, div.game-line",
			HomeTeam:  ".competitor.home .name",
			AwayTeam:  ".competitor.away .name",
			StartTime: "time",
			Cells: cells(map[odds.MarketType]string{
				odds.MarketMoneyline: ".market.money-line",
				odds.MarketSpread:    ".market.spread",
				odds.MarketTotal:     ".market.total",
			}),
		},
	}
)

// Books lists every scrapable sportsbook in display order
var Books = []Book{DraftKings, FanDuel, BetMGM, Caesars}

// LookupBook finds a scrapable book by key
func LookupBook(key string) (Book, bool) {
	for _, b := range Books {
		if b.Key == key {
			return b, true
		}
	}
	return Book{}, false
}
