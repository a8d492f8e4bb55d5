package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/cache"
	"github.com/fortuna/gridiron/internal/ingest"
	"github.com/fortuna/gridiron/internal/metrics"
	"github.com/fortuna/gridiron/internal/odds"
	"github.com/fortuna/gridiron/internal/service"
)

type stubFeed struct {
	configured bool
	events     []map[string]interface{}
	err        error
}

func (f *stubFeed) Name() string     { return "oddsapi" }
func (f *stubFeed) Configured() bool { return f.configured }

func (f *stubFeed) FetchOdds(context.Context, ingest.Query) ([]map[string]interface{}, error) {
	return f.events, f.err
}

func (f *stubFeed) FetchEvent(_ context.Context, id string, _ ingest.Query) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, e := range f.events {
		if e["id"] == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("event %s: %w", id, odds.ErrNotFound)
}

type stubSource struct {
	name  string
	games []odds.Game
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Games(context.Context, ingest.Query) ([]odds.Game, error) {
	return s.games, s.err
}

func book(key, title, home, away string, homePrice, awayPrice float64) map[string]interface{} {
	return map[string]interface{}{
		"key":   key,
		"title": title,
		"markets": []interface{}{
			map[string]interface{}{
				"key": "h2h",
				"outcomes": []interface{}{
					map[string]interface{}{"name": home, "price": homePrice},
					map[string]interface{}{"name": away, "price": awayPrice},
				},
			},
		},
	}
}

func chiefsBills() map[string]interface{} {
	return map[string]interface{}{
		"id":            "e1",
		"commence_time": "2026-09-10T00:20:00Z",
		"home_team":     "Kansas City Chiefs",
		"away_team":     "Buffalo Bills",
		"bookmakers": []interface{}{
			book("draftkings", "DraftKings", "Kansas City Chiefs", "Buffalo Bills", -150, 130),
			book("fanduel", "FanDuel", "Kansas City Chiefs", "Buffalo Bills", -140, 125),
		},
	}
}

type fixture struct {
	handler http.Handler
	metrics *metrics.Metrics
}

func newFixture(feed ingest.Feed, opts ...service.Option) fixture {
	m := metrics.New()
	svc := service.New(feed, cache.New(time.Minute), nil, opts...)
	srv := NewServer(0, svc, nil, m, nil)
	return fixture{handler: srv.Handler(), metrics: m}
}

func (f fixture) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid json %q: %v", path, rec.Body.String(), err)
		}
	}
	return rec, body
}

func TestIndex(t *testing.T) {
	f := newFixture(&stubFeed{})
	rec, body := f.get(t, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["name"] != serviceName {
		t.Errorf("name = %v", body["name"])
	}
	if _, ok := body["endpoints"].(map[string]interface{}); !ok {
		t.Errorf("endpoints missing: %v", body)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		configured bool
		message    string
	}{
		{"configured", true, "API is running"},
		{"not configured", false, "API key not configured - set ODDS_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&stubFeed{configured: tt.configured})
			rec, body := f.get(t, "/api/health")

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if body["status"] != "healthy" || body["api_configured"] != tt.configured || body["message"] != tt.message {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestGetNFLOdds(t *testing.T) {
	f := newFixture(&stubFeed{configured: true, events: []map[string]interface{}{chiefsBills()}})

	rec, body := f.get(t, "/api/odds/nfl?markets=h2h&bookmakers=draftkings,fanduel")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v", body["count"])
	}
	games, _ := body["games"].([]interface{})
	if len(games) != 1 {
		t.Fatalf("games = %v", body["games"])
	}
	if _, ok := body["timestamp"].(string); !ok {
		t.Errorf("timestamp missing")
	}
	if _, ok := body["error"]; ok {
		t.Errorf("unexpected error field %v", body["error"])
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if got := testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("/api/odds/nfl", "200")); got != 1 {
		t.Errorf("http request counter = %v", got)
	}
}

func TestGetNFLOddsErrors(t *testing.T) {
	tests := []struct {
		name   string
		feed   *stubFeed
		path   string
		status int
		error  string
	}{
		{
			name:   "invalid market",
			feed:   &stubFeed{configured: true},
			path:   "/api/odds/nfl?markets=h2h,props",
			status: http.StatusBadRequest,
			error:  "Invalid markets (use h2h, spreads, totals)",
		},
		{
			name:   "not configured",
			feed:   &stubFeed{err: fmt.Errorf("odds api key: %w", odds.ErrNotConfigured)},
			path:   "/api/odds/nfl",
			status: http.StatusServiceUnavailable,
			error:  "No API key configured - set ODDS_API_KEY",
		},
		{
			name:   "upstream down",
			feed:   &stubFeed{configured: true, err: fmt.Errorf("%w: status 500", odds.ErrUpstreamUnavailable)},
			path:   "/api/odds/nfl",
			status: http.StatusBadGateway,
			error:  "upstream unavailable: status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.feed)
			rec, body := f.get(t, tt.path)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if body["error"] != tt.error {
				t.Errorf("error = %v, want %q", body["error"], tt.error)
			}
		})
	}
}

func TestGetEventOdds(t *testing.T) {
	f := newFixture(&stubFeed{configured: true, events: []map[string]interface{}{chiefsBills()}})

	rec, body := f.get(t, "/api/odds/nfl/e1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if body["id"] != "e1" || body["home_team"] != "Kansas City Chiefs" {
		t.Errorf("body = %v", body)
	}

	rec, _ = f.get(t, "/api/odds/nfl/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing event status = %d", rec.Code)
	}
}

func TestCompareOdds(t *testing.T) {
	f := newFixture(&stubFeed{configured: true, events: []map[string]interface{}{chiefsBills()}})

	rec, body := f.get(t, "/api/odds/compare?home_team=Kansas+City+Chiefs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	best := body["best_odds"].(map[string]interface{})
	ml := best["moneyline"].(map[string]interface{})
	home := ml["home"].(map[string]interface{})
	away := ml["away"].(map[string]interface{})
	if home["bookmaker"] != "FanDuel" || home["price"] != float64(-140) {
		t.Errorf("home = %v", home)
	}
	if away["bookmaker"] != "DraftKings" || away["price"] != float64(130) {
		t.Errorf("away = %v", away)
	}
	if best["spread"].(map[string]interface{})["home"] != nil {
		t.Errorf("spread should be empty: %v", best["spread"])
	}
}

func TestCompareOddsErrors(t *testing.T) {
	f := newFixture(&stubFeed{configured: true, events: []map[string]interface{}{chiefsBills()}})

	rec, body := f.get(t, "/api/odds/compare?home_team=New+York+Jets")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["error"] != "Game not found" || body["home_team"] != "New York Jets" {
		t.Errorf("body = %v", body)
	}

	rec, _ = f.get(t, "/api/odds/compare")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", rec.Code)
	}

	down := newFixture(&stubFeed{err: fmt.Errorf("odds api key: %w", odds.ErrNotConfigured)})
	rec, _ = down.get(t, "/api/odds/compare?away_team=Buffalo+Bills")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not configured status = %d", rec.Code)
	}
}

func TestGetSportsbooks(t *testing.T) {
	f := newFixture(&stubFeed{})
	rec, body := f.get(t, "/api/sportsbooks")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["count"] != float64(8) {
		t.Errorf("count = %v", body["count"])
	}
	first := body["sportsbooks"].([]interface{})[0].(map[string]interface{})
	if first["key"] != "draftkings" || first["name"] != "DraftKings" {
		t.Errorf("first = %v", first)
	}
}

func TestScrape(t *testing.T) {
	game := odds.Game{
		ID:       "draftkings_20260910_buf_kc",
		SportKey: odds.SportNFL,
		HomeTeam: "KC Chiefs",
		AwayTeam: "BUF Bills",
	}
	f := newFixture(&stubFeed{}, service.WithScrapers(
		&stubSource{name: "draftkings", games: []odds.Game{game}},
		&stubSource{name: "fanduel", err: fmt.Errorf("%w: blocked", odds.ErrUpstreamUnavailable)},
	))

	rec, body := f.get(t, "/api/scrape/DraftKings")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if body["sportsbook"] != "DraftKings" || body["count"] != float64(1) {
		t.Errorf("body = %v", body)
	}

	if rec, _ := f.get(t, "/api/scrape/fanduel"); rec.Code != http.StatusBadGateway {
		t.Errorf("failed scrape status = %d", rec.Code)
	}
	if rec, _ := f.get(t, "/api/scrape/pinnacle"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown book status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(&stubFeed{})
	f.get(t, "/api/health")

	rec, _ := f.get(t, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `gridiron_http_requests_total{route="/api/health",status="200"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(&stubFeed{})

	req := httptest.NewRequest(http.MethodOptions, "/api/odds/nfl", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestParseMarkets(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"h2h", 1, false},
		{" h2h , spreads,totals ", 3, false},
		{"h2h,,", 1, false},
		{"outrights", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMarkets(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", odds.ErrInvalidQuery), http.StatusBadRequest},
		{fmt.Errorf("x: %w", odds.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", odds.ErrNotConfigured), http.StatusServiceUnavailable},
		{fmt.Errorf("x: %w", odds.ErrUpstreamUnavailable), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
