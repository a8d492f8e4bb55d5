// Package publisher fans fresh odds snapshots out to Redis streams for
// downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/service"
)

const (
	// DefaultStream is used when no stream name is configured
	DefaultStream = "odds.nfl.snapshots"
	// DefaultMaxLen caps the stream length (approximate trimming)
	DefaultMaxLen = 1000

	pingTimeout = 5 * time.Second
)

// StreamPublisher appends every snapshot to a Redis stream. It implements
// service.Listener.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher creates a publisher from an existing client
func NewStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: DefaultMaxLen,
		logger: logger.With(zap.String("component", "publisher"), zap.String("stream", stream)),
	}
}

// Connect parses redisURL, checks the server is reachable and returns a
// publisher owning the connection.
func Connect(ctx context.Context, redisURL, stream string, logger *zap.Logger) (*StreamPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}

	return NewStreamPublisher(client, stream, logger), nil
}

// Stream returns the target stream name
func (p *StreamPublisher) Stream() string {
	return p.stream
}

// OnSnapshot publishes snap as one stream entry
func (p *StreamPublisher) OnSnapshot(ctx context.Context, snap service.Snapshot) error {
	values, err := message(snap)
	if err != nil {
		return err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}

	p.logger.Debug("published snapshot",
		zap.String("id", id),
		zap.String("source", snap.Source),
		zap.Int("games", len(snap.Games)),
	)
	return nil
}

// Close closes the Redis connection
func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

func message(snap service.Snapshot) (map[string]interface{}, error) {
	data, err := json.Marshal(snap.Games)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	return map[string]interface{}{
		"data":      string(data),
		"source":    snap.Source,
		"count":     len(snap.Games),
		"timestamp": snap.FetchedAt.Unix(),
	}, nil
}
