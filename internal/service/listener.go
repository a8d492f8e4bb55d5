package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/odds"
)

// Snapshot is a freshly fetched, successful result. Cache hits never
// produce snapshots.
type Snapshot struct {
	Source    string      `json:"source"`
	Games     []odds.Game `json:"games"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Listener receives every snapshot. Errors are logged by the service and
// never reach the caller of the fetch.
type Listener interface {
	OnSnapshot(ctx context.Context, snap Snapshot) error
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(ctx context.Context, snap Snapshot) error

// OnSnapshot calls f
func (f ListenerFunc) OnSnapshot(ctx context.Context, snap Snapshot) error {
	return f(ctx, snap)
}

// AddListener registers l after construction
func (s *Service) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// notify hands each listener its own copy of the games
func (s *Service) notify(ctx context.Context, snap Snapshot) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		if l == nil {
			continue
		}
		copied := snap
		copied.Games = odds.CloneGames(snap.Games)
		if err := l.OnSnapshot(ctx, copied); err != nil {
			s.logger.Warn("snapshot listener failed",
				zap.String("source", snap.Source),
				zap.Error(err),
			)
		}
	}
}
