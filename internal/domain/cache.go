package domain

import (
	"context"
	"time"
)

// MarketCache caches market snapshots for read paths. Entries are
// invalidated on every bet placement and resolution; stale reads are
// acceptable only for presentation, never for the bet ledger itself.
type MarketCache interface {
	Get(ctx context.Context, id int64) (Market, error)
	Set(ctx context.Context, m Market) error
	Invalidate(ctx context.Context, id int64) error
}

// LockManager provides distributed advisory locks.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL, returning an
	// unlock function. Returns ErrLockHeld if another party holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter applies sliding-window rate limits keyed by arbitrary strings.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage is a single durable message read from a stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus distributes platform events: ephemeral pub/sub for live
// consumers (the websocket hub) and durable streams for replayable feeds.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
