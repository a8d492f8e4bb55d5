package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/odds"
	"github.com/fortuna/gridiron/internal/service"
)

const (
	serviceName    = "Gridiron - NFL Odds API"
	serviceVersion = "1.0.0"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Index describes the API
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        serviceName,
		"version":     serviceVersion,
		"description": "Real-time NFL odds from popular sportsbooks",
		"endpoints": map[string]string{
			"/api/odds/nfl":            "Get all NFL game odds",
			"/api/odds/nfl/{event_id}": "Get specific game odds",
			"/api/odds/compare":        "Compare odds across sportsbooks",
			"/api/sportsbooks":         "List available sportsbooks",
			"/api/scrape/{sportsbook}": "Scrape a sportsbook directly",
			"/api/health":              "API health check",
			"/metrics":                 "Prometheus metrics",
		},
	})
}

// HealthCheck reports liveness and whether the aggregator is configured
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	configured := h.svc.Configured()
	message := "API is running"
	if !configured {
		message = "API key not configured - set ODDS_API_KEY"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"api_configured": configured,
		"message":        message,
	})
}

// GetNFLOdds returns every game, optionally filtered by markets and bookmakers
func (h *Handler) GetNFLOdds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	markets, err := parseMarkets(q.Get("markets"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid markets (use h2h, spreads, totals)", err)
		return
	}

	res := h.svc.Fetch(r.Context(), markets, parseList(q.Get("bookmakers")))
	if err := res.Err(); err != nil {
		h.logger.Error("error fetching nfl odds", zap.Error(err))
		respondJSON(w, statusFor(err), res)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// GetEventOdds returns the odds of a single event
func (h *Handler) GetEventOdds(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventID"]

	game, err := h.svc.FetchOne(r.Context(), eventID)
	if err != nil {
		h.logger.Error("error fetching event odds", zap.String("event_id", eventID), zap.Error(err))
		respondError(w, statusFor(err), service.Message(err), nil)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

// CompareOdds returns the best prices of the game matching home_team, or
// else away_team
func (h *Handler) CompareOdds(w http.ResponseWriter, r *http.Request) {
	home := strings.TrimSpace(r.URL.Query().Get("home_team"))
	away := strings.TrimSpace(r.URL.Query().Get("away_team"))

	result, err := h.svc.Compare(r.Context(), home, away)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, result)
	case errors.Is(err, odds.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":     "Game not found",
			"home_team": home,
			"away_team": away,
		})
	default:
		h.logger.Error("error comparing odds", zap.Error(err))
		respondError(w, statusFor(err), service.Message(err), nil)
	}
}

// GetSportsbooks lists the supported sportsbooks
func (h *Handler) GetSportsbooks(w http.ResponseWriter, r *http.Request) {
	books := h.svc.Sportsbooks()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sportsbooks": books,
		"count":       len(books),
	})
}

// Scrape runs one sportsbook scraper
func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	book := strings.ToLower(mux.Vars(r)["book"])

	res := h.svc.Scrape(r.Context(), book)
	if err := res.Err(); err != nil {
		h.logger.Error("error scraping sportsbook", zap.String("book", book), zap.Error(err))
		respondError(w, statusFor(err), res.Error, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sportsbook": h.bookName(book),
		"games":      res.Games,
		"count":      res.Count,
		"timestamp":  res.Timestamp,
		"cached":     res.Cached,
	})
}

func (h *Handler) bookName(key string) string {
	for _, b := range h.svc.Sportsbooks() {
		if b.Key == key {
			return b.Name
		}
	}
	return key
}

// parseMarkets reads a comma separated market list. Empty means all.
func parseMarkets(s string) ([]odds.MarketType, error) {
	keys := parseList(s)
	if len(keys) == 0 {
		return nil, nil
	}

	markets := make([]odds.MarketType, 0, len(keys))
	for _, k := range keys {
		m, ok := odds.ParseMarketType(k)
		if !ok {
			return nil, fmt.Errorf("%w: unknown market %q", odds.ErrInvalidQuery, k)
		}
		markets = append(markets, m)
	}
	return markets, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// statusFor maps a domain error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, odds.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, odds.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, odds.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, odds.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
