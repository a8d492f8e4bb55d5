// Package rest exposes the odds service over HTTP.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/metrics"
	"github.com/fortuna/gridiron/internal/service"
)

// Server represents the REST API server
type Server struct {
	server  *http.Server
	handler http.Handler
	logger  *zap.Logger
}

// NewServer wires the routes. m may be nil, in which case /metrics is not
// served.
func NewServer(port int, svc *service.Service, corsOrigins []string, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "rest"))

	handler := NewHandler(svc, logger)

	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(MetricsMiddleware(m))

	router.HandleFunc("/", handler.Index).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	api.HandleFunc("/sportsbooks", handler.GetSportsbooks).Methods("GET")

	// compare must be registered before {eventID}
	api.HandleFunc("/odds/compare", handler.CompareOdds).Methods("GET")
	api.HandleFunc("/odds/nfl", handler.GetNFLOdds).Methods("GET")
	api.HandleFunc("/odds/nfl/{eventID}", handler.GetEventOdds).Methods("GET")

	api.HandleFunc("/scrape/{book}", handler.Scrape).Methods("GET")

	if m != nil {
		router.Handle("/metrics", m.Handler()).Methods("GET")
	}

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	h := cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})(router)

	return &Server{
		handler: h,
		logger:  logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler, CORS included
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	s.logger.Info("rest server listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
