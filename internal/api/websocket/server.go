// Package websocket streams fresh odds snapshots to browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server is the websocket listener, separate from the REST port
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	server   *http.Server
	port     int
	logger   *zap.Logger
}

// NewServer creates a server for hub on port. allowedOrigins follows the
// REST CORS list; "*" or an empty list accepts every origin.
func NewServer(port int, hub *Hub, allowedOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin(allowedOrigins),
		},
		port:   port,
		logger: logger.With(zap.String("component", "ws-server")),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the websocket routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/odds", s.handleOdds)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start listens until Shutdown. After Shutdown it returns
// http.ErrServerClosed immediately.
func (s *Server) Start() error {
	s.logger.Info("websocket server listening", zap.Int("port", s.port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := newClient(conn, s.hub)
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

func allowOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowed) == 0 || allowed[origin]
	}
}
