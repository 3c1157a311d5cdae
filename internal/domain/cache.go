package domain

import (
	"context"
	"time"
)

// MarketCache caches provider listing responses so overlapping scans and
// the transport layer do not refetch within the TTL.
type MarketCache interface {
	SetListings(ctx context.Context, source string, tokens []Token) error
	GetListings(ctx context.Context, source string) ([]Token, error)
	Invalidate(ctx context.Context, source string) error
}

// LockManager provides distributed locking. The scan loop uses it as a
// single-flight guard so overlapping passes never run concurrently.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub for pipeline events (opportunities found,
// positions opened/closed) consumed by the transport layer.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
