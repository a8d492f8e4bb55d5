package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/fortuna/gridiron/internal/ingest"
	"github.com/fortuna/gridiron/internal/odds"
)

const draftKingsPage = `<html><body>
<div class="event-cell">
  <time class="event-cell__start-time" datetime="2026-09-10T00:20:00Z">Thu 8:20 PM</time>
  <div class="event-cell__away"><span class="event-cell__name">Baltimore Ravens</span></div>
  <div class="event-cell__home"><span class="event-cell__name">Kansas City   Chiefs</span></div>
  <div class="sportsbook-outcome--moneyline">
    <div data-side="away"><span class="price">+130</span></div>
    <div data-side="home"><span class="price">−150</span></div>
  </div>
  <div class="sportsbook-outcome--spread">
    <div data-side="away"><span class="line">+2.5</span><span class="price">-110</span></div>
    <div data-side="home"><span class="line">−2½</span><span class="price">-110</span></div>
  </div>
  <div class="sportsbook-outcome--total">
    <div data-side="over"><span class="line">O 47.5</span><span class="price">EVEN</span></div>
    <div data-side="under"><span class="line">U 47.5</span><span class="price"></span></div>
  </div>
</div>
<div class="event-cell">
  <div class="event-cell__away"><span class="event-cell__name">Green Bay Packers</span></div>
  <div class="event-cell__home"><span class="event-cell__name">Philadelphia Eagles</span></div>
</div>
<div class="event-cell">
  <time class="event-cell__start-time" datetime="2026-09-14T17:00:00Z"></time>
  <div class="event-cell__home"><span class="event-cell__name">Detroit Lions</span></div>
</div>
</body></html>`

type staticFetcher struct {
	html string
	err  error
	urls []string
}

func (f *staticFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.html, f.err
}

func TestParseGames(t *testing.T) {
	doc, err := ParseHTML(draftKingsPage)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}

	games := ParseGames(doc, DraftKings, nil, nil)
	if len(games) != 1 {
		t.Fatalf("expected 1 complete event, got %d", len(games))
	}

	g := games[0]
	if g.HomeTeam != "Kansas City Chiefs" || g.AwayTeam != "Baltimore Ravens" {
		t.Errorf("teams = %q vs %q", g.AwayTeam, g.HomeTeam)
	}
	if g.ID != "draftkings_20260910_baltimoreravens_kansascitychiefs" {
		t.Errorf("id = %s", g.ID)
	}
	if len(g.Bookmakers) != 1 || g.Bookmakers[0].Key != "draftkings" {
		t.Fatalf("unexpected bookmakers %+v", g.Bookmakers)
	}

	m := g.Bookmakers[0].Markets
	if got := m[odds.MarketMoneyline][odds.SideHome]; got.Price != odds.NewPrice(-150) || got.Name != "Kansas City Chiefs" {
		t.Errorf("moneyline home = %+v", got)
	}
	if got := m[odds.MarketMoneyline][odds.SideAway].Price; got != odds.NewPrice(130) {
		t.Errorf("moneyline away = %+v", got)
	}
	if got := m[odds.MarketSpread][odds.SideHome].Point.Value.String(); got != "-2.5" {
		t.Errorf("spread home point = %s", got)
	}
	over := m[odds.MarketTotal][odds.SideOver]
	if over.Price != odds.NewPrice(100) || over.Point.Value.String() != "47.5" || over.Name != "Over" {
		t.Errorf("total over = %+v", over)
	}
	if _, ok := m[odds.MarketTotal][odds.SideUnder]; ok {
		t.Error("a side without a price should be dropped")
	}
}

func TestParseGamesMarketFilter(t *testing.T) {
	doc, err := ParseHTML(draftKingsPage)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}

	games := ParseGames(doc, DraftKings, []odds.MarketType{odds.MarketSpread}, nil)
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	markets := games[0].Bookmakers[0].Markets
	if len(markets) != 1 {
		t.Errorf("expected only spreads, got %v", markets)
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"-2.5", "-2.5", true},
		{"+3", "3", true},
		{"−7½", "-7.5", true},
		{"O 47.5", "47.5", true},
		{"U 41", "41", true},
		{"Over 44.5", "44.5", true},
		{"Under 44.5", "44.5", true},
		{"PK", "0", true},
		{"", "", false},
		{"n/a", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, ok := ParsePoint(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && p.Value.String() != tt.want {
				t.Errorf("ParsePoint(%q) = %s, want %s", tt.in, p.Value.String(), tt.want)
			}
		})
	}
}

func TestScraperGames(t *testing.T) {
	fetcher := &staticFetcher{html: draftKingsPage}
	s := New(DraftKings, fetcher, nil)

	games, err := s.Games(context.Background(), ingest.Query{})
	if err != nil {
		t.Fatalf("Games() error = %v", err)
	}
	if len(games) != 1 {
		t.Errorf("expected 1 game, got %d", len(games))
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != DraftKings.URL {
		t.Errorf("fetched %v", fetcher.urls)
	}
}

func TestScraperEmptyPage(t *testing.T) {
	s := New(FanDuel, &staticFetcher{html: "<html><body><p>maintenance</p></body></html>"}, nil)

	games, err := s.Games(context.Background(), ingest.Query{})
	if err != nil {
		t.Fatalf("Games() error = %v", err)
	}
	if games == nil || len(games) != 0 {
		t.Errorf("expected an empty list, got %#v", games)
	}
}

func TestScraperFetchError(t *testing.T) {
	s := New(BetMGM, &staticFetcher{err: errors.New("net::ERR_TIMED_OUT")}, nil)

	_, err := s.Games(context.Background(), ingest.Query{})
	if !errors.Is(err, odds.ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestNewAll(t *testing.T) {
	all, err := NewAll(nil, &staticFetcher{}, nil)
	if err != nil {
		t.Fatalf("NewAll() error = %v", err)
	}
	if len(all) != len(Books) {
		t.Errorf("expected %d scrapers, got %d", len(Books), len(all))
	}

	some, err := NewAll([]string{"caesars"}, &staticFetcher{}, nil)
	if err != nil || len(some) != 1 || some[0].Title() != "Caesars" {
		t.Errorf("NewAll(caesars) = %v, %v", some, err)
	}

	if _, err := NewAll([]string{"draftkings", "unknownbook"}, &staticFetcher{}, nil); err == nil {
		t.Error("expected an error for an unknown book")
	}
}
