package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/api/rest"
	"github.com/fortuna/gridiron/internal/api/websocket"
	"github.com/fortuna/gridiron/internal/cache"
	"github.com/fortuna/gridiron/internal/config"
	"github.com/fortuna/gridiron/internal/ingest"
	"github.com/fortuna/gridiron/internal/ingest/oddsapi"
	"github.com/fortuna/gridiron/internal/ingest/scrape"
	"github.com/fortuna/gridiron/internal/logging"
	"github.com/fortuna/gridiron/internal/metrics"
	"github.com/fortuna/gridiron/internal/publisher"
	"github.com/fortuna/gridiron/internal/reconciliation"
	"github.com/fortuna/gridiron/internal/service"
)

const (
	serviceName    = "gridiron"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(serviceName, cfg.Server.Env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("version", serviceVersion))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	feed := oddsapi.New(oddsapi.Config{
		APIKey:  cfg.OddsAPI.APIKey,
		BaseURL: cfg.OddsAPI.BaseURL,
		Regions: cfg.OddsAPI.Regions,
		Timeout: cfg.OddsAPI.Timeout,
	}, logger)

	opts := []service.Option{
		service.WithMetrics(m),
		service.WithFallback(cfg.Scrape.Fallback),
	}

	if cfg.Scrape.Enabled {
		browser := scrape.NewBrowser(scrape.BrowserConfig{
			Timeout:     cfg.Scrape.Timeout,
			MinInterval: cfg.Scrape.MinInterval,
		}, logger)
		defer browser.Close()

		scrapers, err := scrape.NewAll(cfg.Scrape.Books, browser, logger)
		if err != nil {
			logger.Fatal("failed to create scrapers", zap.Error(err))
		}
		sources := make([]ingest.Source, len(scrapers))
		for i, s := range scrapers {
			sources[i] = s
		}
		strategy, err := reconciliation.ParseStrategy(cfg.Scrape.ReconcileStrategy)
		if err != nil {
			logger.Fatal("invalid reconcile strategy", zap.Error(err))
		}
		opts = append(opts,
			service.WithScrapers(sources...),
			service.WithReconciler(reconciliation.NewEngine(strategy, logger, reconciliation.WithRecorder(m))),
		)
		logger.Info("scrapers enabled",
			zap.Int("books", len(sources)),
			zap.Bool("fallback", cfg.Scrape.Fallback),
			zap.String("reconcile_strategy", string(strategy)),
		)
	}

	hub := websocket.NewHub(logger, m)
	go hub.Run(ctx)
	opts = append(opts, service.WithListener(hub))

	if cfg.Redis.URL != "" {
		pub, err := publisher.Connect(ctx, cfg.Redis.URL, cfg.Redis.Stream, logger)
		if err != nil {
			logger.Warn("redis publisher disabled", zap.Error(err))
		} else {
			defer pub.Close()
			opts = append(opts, service.WithListener(pub))
			logger.Info("publishing snapshots", zap.String("stream", pub.Stream()))
		}
	}

	svc := service.New(feed, cache.New(cfg.Cache.TTL), logger, opts...)
	if !cfg.APIConfigured() {
		logger.Warn("odds api not configured, odds endpoints will return 503")
	}

	restServer := rest.NewServer(cfg.Server.Port, svc, cfg.Server.CORSOrigins, m, logger)
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rest server error", zap.Error(err))
		}
	}()

	wsServer := websocket.NewServer(cfg.Server.WSPort, hub, cfg.Server.CORSOrigins, logger)
	go func() {
		if err := wsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket server error", zap.Error(err))
		}
	}()

	logger.Info("started",
		zap.String("rest", fmt.Sprintf("http://0.0.0.0:%d", cfg.Server.Port)),
		zap.String("websocket", fmt.Sprintf("ws://0.0.0.0:%d/ws/odds", cfg.Server.WSPort)),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("rest server shutdown error", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("websocket server shutdown error", zap.Error(err))
	}

	logger.Info("stopped")
}
