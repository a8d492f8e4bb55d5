package compare

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fortuna/gridiron/internal/odds"
)

func moneylineBook(key, title string, home, away *int) odds.BookmakerQuote {
	line := odds.MarketLine{}
	if home != nil {
		line[odds.SideHome] = odds.Outcome{Price: odds.NewPrice(*home)}
	}
	if away != nil {
		line[odds.SideAway] = odds.Outcome{Price: odds.NewPrice(*away)}
	}
	return odds.BookmakerQuote{
		Key:     key,
		Title:   title,
		Markets: map[odds.MarketType]odds.MarketLine{odds.MarketMoneyline: line},
	}
}

func intp(v int) *int { return &v }

func testGame(books ...odds.BookmakerQuote) odds.Game {
	return odds.Game{
		ID:           "evt1",
		HomeTeam:     "Chiefs",
		AwayTeam:     "Bills",
		CommenceTime: time.Date(2026, 9, 10, 0, 20, 0, 0, time.UTC),
		Bookmakers:   books,
	}
}

func TestBestPicksHighestPrice(t *testing.T) {
	g := testGame(
		moneylineBook("a", "BookA", intp(-110), nil),
		moneylineBook("b", "BookB", intp(150), nil),
		moneylineBook("c", "BookC", intp(-120), nil),
	)

	best := Best(g, odds.MarketMoneyline, odds.SideHome)
	if best == nil {
		t.Fatal("expected a best price")
	}
	if best.Price != 150 || best.Bookmaker != "BookB" || best.BookmakerKey != "b" {
		t.Errorf("got %+v, want +150 from BookB", best)
	}
	if best.ImpliedProbability != 40 {
		t.Errorf("implied probability = %v, want 40", best.ImpliedProbability)
	}
	if best.DecimalOdds != 2.5 {
		t.Errorf("decimal odds = %v, want 2.5", best.DecimalOdds)
	}

	if got := Best(g, odds.MarketMoneyline, odds.SideAway); got != nil {
		t.Errorf("no bookmaker offers the away side, got %+v", got)
	}
}

func TestBestTieKeepsFirst(t *testing.T) {
	g := testGame(
		moneylineBook("x", "BookX", intp(-105), nil),
		moneylineBook("y", "BookY", intp(120), nil),
		moneylineBook("z", "BookZ", intp(120), nil),
	)

	for i := 0; i < 50; i++ {
		best := Best(g, odds.MarketMoneyline, odds.SideHome)
		if best == nil || best.Bookmaker != "BookY" {
			t.Fatalf("run %d: expected BookY, got %+v", i, best)
		}
	}
}

func TestBestSkipsUnsetPrices(t *testing.T) {
	g := testGame(
		odds.BookmakerQuote{
			Key:   "a",
			Title: "BookA",
			Markets: map[odds.MarketType]odds.MarketLine{
				odds.MarketMoneyline: {odds.SideHome: odds.Outcome{Name: "Chiefs"}},
			},
		},
		moneylineBook("b", "BookB", intp(-300), nil),
	)

	best := Best(g, odds.MarketMoneyline, odds.SideHome)
	if best == nil || best.Bookmaker != "BookB" {
		t.Errorf("unset price must not compete, got %+v", best)
	}
}

func TestGameNoBookmakers(t *testing.T) {
	res := Game(testGame())

	b := res.BestOdds
	for name, slot := range map[string]*BestPrice{
		"moneyline.home": b.Moneyline.Home,
		"moneyline.away": b.Moneyline.Away,
		"spread.home":    b.Spread.Home,
		"spread.away":    b.Spread.Away,
		"total.over":     b.Total.Over,
		"total.under":    b.Total.Under,
	} {
		if slot != nil {
			t.Errorf("%s should be nil, got %+v", name, slot)
		}
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"moneyline":{"home":null,"away":null}`) {
		t.Errorf("expected null slots in %s", data)
	}
}

func TestGameChiefsBills(t *testing.T) {
	g := testGame(
		moneylineBook("booka", "BookA", intp(-150), intp(130)),
		moneylineBook("bookb", "BookB", intp(-140), intp(140)),
	)

	res := Game(g)
	home, away := res.BestOdds.Moneyline.Home, res.BestOdds.Moneyline.Away
	if home == nil || home.Bookmaker != "BookB" || home.Price != -140 {
		t.Errorf("moneyline.home = %+v, want BookB -140", home)
	}
	if away == nil || away.Bookmaker != "BookB" || away.Price != 140 {
		t.Errorf("moneyline.away = %+v, want BookB +140", away)
	}
	if res.Game.HomeTeam != "Chiefs" || res.Bookmakers != 2 {
		t.Errorf("unexpected summary %+v", res)
	}
}

func TestGameAllMarkets(t *testing.T) {
	book := func(key string, spreadHome, over int, total float64) odds.BookmakerQuote {
		return odds.BookmakerQuote{
			Key:   key,
			Title: strings.ToUpper(key),
			Markets: map[odds.MarketType]odds.MarketLine{
				odds.MarketSpread: {
					odds.SideHome: odds.Outcome{Price: odds.NewPrice(spreadHome), Point: odds.PointFromFloat(-2.5)},
					odds.SideAway: odds.Outcome{Price: odds.NewPrice(-110), Point: odds.PointFromFloat(2.5)},
				},
				odds.MarketTotal: {
					odds.SideOver:  odds.Outcome{Price: odds.NewPrice(over), Point: odds.PointFromFloat(total)},
					odds.SideUnder: odds.Outcome{Price: odds.NewPrice(-110), Point: odds.PointFromFloat(total)},
				},
			},
		}
	}

	res := Game(testGame(book("dk", -115, -105, 47.5), book("fd", -105, -112, 48)))

	if s := res.BestOdds.Spread.Home; s == nil || s.BookmakerKey != "fd" || s.Price != -105 {
		t.Errorf("spread.home = %+v", s)
	}
	if s := res.BestOdds.Spread.Away; s == nil || s.BookmakerKey != "dk" {
		t.Errorf("spread.away tie should keep dk, got %+v", s)
	}
	over := res.BestOdds.Total.Over
	if over == nil || over.BookmakerKey != "dk" || over.Point.Value.String() != "47.5" {
		t.Errorf("total.over = %+v", over)
	}
	if res.BestOdds.Moneyline.Home != nil {
		t.Error("no moneyline quoted, slot should be nil")
	}
}

func TestGameDoesNotMutateInput(t *testing.T) {
	g := testGame(moneylineBook("a", "BookA", intp(-110), intp(100)))
	before := g.Clone()

	_ = Game(g)

	if g.Bookmakers[0].Markets[odds.MarketMoneyline][odds.SideHome] != before.Bookmakers[0].Markets[odds.MarketMoneyline][odds.SideHome] {
		t.Error("input game was mutated")
	}
	if len(g.Bookmakers) != len(before.Bookmakers) {
		t.Error("bookmakers slice changed")
	}
}

func TestFindGame(t *testing.T) {
	games := []odds.Game{
		{ID: "1", HomeTeam: "Chiefs", AwayTeam: "Bills"},
		{ID: "2", HomeTeam: "Eagles", AwayTeam: "Cowboys"},
	}

	tests := []struct {
		name   string
		home   string
		away   string
		wantID string
		wantOK bool
	}{
		{"home match", "Eagles", "", "2", true},
		{"away match", "", "Bills", "1", true},
		{"home takes precedence per game order", "Chiefs", "Cowboys", "1", true},
		{"away only when home differs", "Jets", "Cowboys", "2", true},
		{"no match", "Jets", "Giants", "", false},
		{"neither given", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok := FindGame(games, tt.home, tt.away)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && g.ID != tt.wantID {
				t.Errorf("id = %s, want %s", g.ID, tt.wantID)
			}
		})
	}
}
