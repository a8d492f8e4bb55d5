package scrape

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/odds"
)

var pointReplacer = strings.NewReplacer(
	"−", "-",
	"–", "-",
	"+", "",
	"½", ".5",
)

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseGames extracts the games of a sportsbook page. The book's embedded
// state is read first; the HTML layout is parsed only when the state yields
// nothing. Events without both teams or a start time are skipped. Each game
// carries a single BookmakerQuote for the book.
func ParseGames(doc *goquery.Document, book Book, markets []odds.MarketType, logger *zap.Logger) []odds.Game {
	if logger == nil {
		logger = zap.NewNop()
	}
	wanted := odds.AllMarkets
	if len(markets) > 0 {
		wanted = markets
	}

	if games := parseState(doc, book, wanted, logger); len(games) > 0 {
		logger.Info("parsed games",
			zap.String("book", book.Key),
			zap.String("from", "state"),
			zap.Int("count", len(games)),
		)
		return games
	}

	games := []odds.Game{}
	seen := make(map[string]bool)

	doc.Find(book.Layout.Event).Each(func(i int, s *goquery.Selection) {
		game, err := parseEvent(s, book, wanted)
		if err != nil {
			logger.Debug("skipping event container",
				zap.String("book", book.Key),
				zap.Int("index", i),
				zap.Error(err),
			)
			return
		}
		if seen[game.ID] {
			return
		}
		seen[game.ID] = true
		games = append(games, game)
	})

	logger.Info("parsed games",
		zap.String("book", book.Key),
		zap.String("from", "markup"),
		zap.Int("count", len(games)),
	)
	return games
}

func parseEvent(s *goquery.Selection, book Book, markets []odds.MarketType) (odds.Game, error) {
	layout := book.Layout
	game := odds.Game{
		SportKey: odds.SportNFL,
		HomeTeam: text(s, layout.HomeTeam),
		AwayTeam: text(s, layout.AwayTeam),
	}

	if raw, ok := s.Find(layout.StartTime).First().Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
			game.CommenceTime = t.UTC()
		}
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
		for side, cell := range layout.Cells[mt] {
			outcome, ok := parseCell(s, cell, mt)
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

// parseCell reads one market side. A side is kept only when its price parses.
func parseCell(s *goquery.Selection, cell Cell, mt odds.MarketType) (odds.Outcome, bool) {
	if cell.Price == "" {
		return odds.Outcome{}, false
	}
	price, err := odds.ParseAmerican(text(s, cell.Price))
	if err != nil {
		return odds.Outcome{}, false
	}

	outcome := odds.Outcome{Price: price}
	if cell.Point != "" && mt != odds.MarketMoneyline {
		point, ok := ParsePoint(text(s, cell.Point))
		if !ok {
			return odds.Outcome{}, false
		}
		if mt == odds.MarketTotal && point.Value.IsNegative() {
			return odds.Outcome{}, false
		}
		outcome.Point = point
	}
	return outcome, true
}

// ParsePoint parses a displayed handicap such as "-2.5", "+3", "−7½",
// "O 47.5", "U 47.5" or "PK".
func ParsePoint(s string) (odds.Point, bool) {
	cleaned := strings.TrimSpace(pointReplacer.Replace(s))
	upper := strings.ToUpper(cleaned)
	switch {
	case upper == "":
		return odds.Point{}, false
	case upper == "PK" || upper == "PICK":
		return odds.NewPoint(decimal.Zero), true
	case strings.HasPrefix(upper, "O"), strings.HasPrefix(upper, "U"):
		cleaned = strings.TrimLeft(cleaned[1:], "vVeErRnNdD ")
	}

	d, err := decimal.NewFromString(strings.TrimSpace(cleaned))
	if err != nil {
		return odds.Point{}, false
	}
	return odds.NewPoint(d), true
}

func outcomeName(g odds.Game, mt odds.MarketType, side odds.Side) string {
	if mt == odds.MarketTotal {
		if side == odds.SideOver {
			return "Over"
		}
		return "Under"
	}
	return g.TeamName(side)
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}

// gameID creates a stable id from the book, date and team names
func gameID(book string, g odds.Game) string {
	dateStr := g.CommenceTime.Format("20060102")
	homeTeam := strings.ReplaceAll(strings.ToLower(g.HomeTeam), " ", "")
	awayTeam := strings.ReplaceAll(strings.ToLower(g.AwayTeam), " ", "")
	return fmt.Sprintf("%s_%s_%s_%s", book, dateStr, awayTeam, homeTeam)
}
