package odds

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testGame() Game {
	return Game{
		ID:           "evt-1",
		SportKey:     SportNFL,
		CommenceTime: time.Date(2026, 9, 13, 17, 0, 0, 0, time.UTC),
		HomeTeam:     "Kansas City Chiefs",
		AwayTeam:     "Buffalo Bills",
		Bookmakers: []BookmakerQuote{{
			Key:   "draftkings",
			Title: "DraftKings",
			Markets: map[MarketType]MarketLine{
				MarketMoneyline: {
					SideHome: {Name: "Kansas City Chiefs", Price: NewPrice(-150)},
					SideAway: {Name: "Buffalo Bills", Price: NewPrice(130)},
				},
				MarketSpread: {
					SideHome: {Name: "Kansas City Chiefs", Price: NewPrice(-110), Point: PointFromFloat(-2.5)},
				},
			},
		}},
	}
}

func TestGame_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Game)
		ok     bool
	}{
		{"valid", func(g *Game) {}, true},
		{"missing id", func(g *Game) { g.ID = "" }, false},
		{"missing home", func(g *Game) { g.HomeTeam = "" }, false},
		{"missing away", func(g *Game) { g.AwayTeam = "" }, false},
		{"same teams", func(g *Game) { g.AwayTeam = g.HomeTeam }, false},
		{"zero commence time", func(g *Game) { g.CommenceTime = time.Time{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGame()
			tt.mutate(&g)
			err := g.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("err = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestGame_CloneIsDeep(t *testing.T) {
	g := testGame()
	c := g.Clone()

	c.Bookmakers[0].Title = "changed"
	c.Bookmakers[0].Markets[MarketMoneyline][SideHome] = Outcome{Name: "x", Price: NewPrice(500)}
	delete(c.Bookmakers[0].Markets, MarketSpread)

	if g.Bookmakers[0].Title != "DraftKings" {
		t.Errorf("title aliased: %q", g.Bookmakers[0].Title)
	}
	if got := g.Bookmakers[0].Markets[MarketMoneyline][SideHome].Price.Value; got != -150 {
		t.Errorf("outcome aliased: price %d", got)
	}
	if _, ok := g.Bookmakers[0].Markets[MarketSpread]; !ok {
		t.Error("markets map aliased")
	}
}

func TestPrice_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Set   Price `json:"set"`
		Unset Price `json:"unset"`
	}{Set: NewPrice(-110)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"set":-110,"unset":null}` {
		t.Errorf("got %s", b)
	}

	var decoded struct {
		A Price `json:"a"`
		B Price `json:"b"`
		C Price `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":150,"b":null}`), &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.A.Valid || decoded.A.Value != 150 {
		t.Errorf("a = %+v", decoded.A)
	}
	if decoded.B.Valid || decoded.C.Valid {
		t.Errorf("null and missing prices must stay unset: b=%+v c=%+v", decoded.B, decoded.C)
	}
}

func TestPoint_JSON(t *testing.T) {
	b, err := json.Marshal(Outcome{Name: "Over", Price: NewPrice(-105), Point: NewPoint(decimal.RequireFromString("47.5"))})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"name":"Over","price":-105,"point":47.5}` {
		t.Errorf("got %s", b)
	}

	var o Outcome
	if err := json.Unmarshal([]byte(`{"name":"Chiefs","price":-110,"point":-3}`), &o); err != nil {
		t.Fatal(err)
	}
	if !o.Point.Valid || !o.Point.Value.Equal(decimal.NewFromInt(-3)) {
		t.Errorf("point = %+v", o.Point)
	}
}

func TestMarketType(t *testing.T) {
	if _, ok := ParseMarketType("player_props"); ok {
		t.Error("unknown market accepted")
	}
	if m, ok := ParseMarketType("totals"); !ok || m != MarketTotal {
		t.Errorf("ParseMarketType(totals) = %q, %v", m, ok)
	}
	if sides := MarketTotal.Sides(); sides[0] != SideOver || sides[1] != SideUnder {
		t.Errorf("total sides = %v", sides)
	}
	if sides := MarketSpread.Sides(); sides[0] != SideHome || sides[1] != SideAway {
		t.Errorf("spread sides = %v", sides)
	}
}
