// Package oddsapi is the client for The Odds API v4 aggregator.
package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/ingest"
	"github.com/fortuna/gridiron/internal/odds"
)

const (
	BaseURL        = "https://api.the-odds-api.com/v4"
	DefaultTimeout = 10 * time.Second

	// maxBody caps how much of a response is read
	maxBody = 16 << 20
)

// DefaultBookmakers are the US books the aggregator carries
var DefaultBookmakers = []string{
	"draftkings",
	"fanduel",
	"betmgm",
	"caesars",
	"pointsbetus",
	"bovada",
	"mybookieag",
	"betus",
	"lowvig",
	"williamhill_us",
}

// Config holds the client settings
type Config struct {
	APIKey  string
	BaseURL string
	Regions string
	Timeout time.Duration

	// HTTPClient overrides the default client; its Timeout is left alone
	HTTPClient *http.Client
}

// Sport is an entry of the /sports listing
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// Client talks to the aggregator over HTTPS
type Client struct {
	apiKey  string
	baseURL string
	regions string
	http    *http.Client
	logger  *zap.Logger
}

var _ ingest.Feed = (*Client)(nil)

// New creates an aggregator client. A missing API key is allowed; every
// call then fails with odds.ErrNotConfigured.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	if cfg.APIKey == "" {
		logger.Warn("no odds api key provided, set ODDS_API_KEY")
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		regions: cfg.Regions,
		http:    httpClient,
		logger:  logger.With(zap.String("component", "oddsapi")),
	}
}

// Name identifies the source in logs and metrics
func (c *Client) Name() string {
	return "oddsapi"
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// FetchOdds returns the raw NFL events with bookmaker odds
func (c *Client) FetchOdds(ctx context.Context, q ingest.Query) ([]map[string]interface{}, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("odds api key: %w", odds.ErrNotConfigured)
	}

	params := c.oddsParams(q)
	params.Set("dateFormat", "iso")
	if len(q.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(q.Bookmakers, ","))
	}

	c.logger.Info("fetching NFL odds",
		zap.Strings("markets", q.MarketKeys()),
		zap.Strings("bookmakers", q.Bookmakers),
	)

	var events []map[string]interface{}
	if err := c.get(ctx, "/sports/"+odds.SportNFL+"/odds", params, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []map[string]interface{}{}
	}
	return events, nil
}

// FetchEvent returns the raw odds of one event. An unknown id yields
// odds.ErrNotFound.
func (c *Client) FetchEvent(ctx context.Context, eventID string, q ingest.Query) (map[string]interface{}, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("odds api key: %w", odds.ErrNotConfigured)
	}
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("event %q: %w", eventID, odds.ErrNotFound)
	}

	path := "/sports/" + odds.SportNFL + "/events/" + url.PathEscape(eventID) + "/odds"

	var event map[string]interface{}
	if err := c.get(ctx, path, c.oddsParams(q), &event); err != nil {
		return nil, err
	}
	if len(event) == 0 {
		return nil, fmt.Errorf("event %s: %w", eventID, odds.ErrNotFound)
	}
	return event, nil
}

// ListSports returns the sports the aggregator currently covers
func (c *Client) ListSports(ctx context.Context) ([]Sport, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("odds api key: %w", odds.ErrNotConfigured)
	}

	var sports []Sport
	if err := c.get(ctx, "/sports", url.Values{}, &sports); err != nil {
		return nil, err
	}
	return sports, nil
}

func (c *Client) oddsParams(q ingest.Query) url.Values {
	params := url.Values{}
	params.Set("regions", fallback(q.Regions, c.regions, ingest.DefaultRegion))
	params.Set("markets", strings.Join(q.MarketKeys(), ","))
	params.Set("oddsFormat", "american")
	return params
}

// get performs the request and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("apiKey", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", zap.String("path", path), zap.Error(redact(err, c.apiKey)))
		return fmt.Errorf("%w: %s: %v", odds.ErrUpstreamUnavailable, path, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	c.logger.Info("api requests",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("used", resp.Header.Get("x-requests-used")),
		zap.String("remaining", resp.Header.Get("x-requests-remaining")),
		zap.Duration("elapsed", time.Since(start)),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", odds.ErrUpstreamUnavailable, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, odds.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s returned %d: %s", odds.ErrUpstreamUnavailable, path, resp.StatusCode, apiMessage(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", odds.ErrUpstreamUnavailable, path, err)
	}
	return nil
}

// apiMessage extracts the aggregator's {"message": ...} error text
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}

// redact keeps the API key out of errors that embed the request URL
func redact(err error, key string) error {
	if key == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, key) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, key, "REDACTED"))
}

func fallback(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
