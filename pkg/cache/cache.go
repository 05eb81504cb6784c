// Package cache deduplicates analysis requests. Verdicts are cached by a
// deliberately low-cardinality fingerprint (session id + message prefix);
// collisions across prefix-equal messages are the accepted cost of cheap
// deduplication, so callers must not assume exact-text matching.
//
// The store is bounded: the in-memory implementation combines a fixed
// capacity with LRU eviction, and every entry carries a TTL so stale
// verdicts age out as conversational context shifts. For multi-node
// deployments a Redis-backed store is provided.
package cache

import (
	"context"
	"time"
)

// KeyPrefixLen is how much of the message text participates in the
// fingerprint.
const KeyPrefixLen = 50

// Key builds the cache fingerprint for a (session, text) pair.
func Key(sessionID, text string) string {
	runes := []rune(text)
	if len(runes) > KeyPrefixLen {
		runes = runes[:KeyPrefixLen]
	}
	return sessionID + ":" + string(runes)
}

// Store is the verdict cache contract. Values are opaque bytes (the engine
// stores marshalled verdicts) so backends never need to know verdict shape.
type Store interface {
	// Get returns the cached value for key, or ok=false on miss/expiry.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)

	// Set stores a value with the given retention. A ttl <= 0 is rejected
	// silently (nothing is cached) - unbounded retention is not supported.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// InvalidateSession drops every entry fingerprinted under the session,
	// giving subsequent messages a fresh namespace after a chat switch.
	InvalidateSession(ctx context.Context, sessionID string) error

	// Close releases backend resources.
	Close() error
}
