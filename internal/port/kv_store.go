package port

import (
	"context"
	"time"
)

// KeyValueStore is the four-operation contract over the external store. The
// store is assumed linearizable for a single key; SetIfAbsent is the only
// primitive the locking protocol's correctness depends on.
//
// Implementations perform no retries and no interpretation of business state:
// connection failures propagate to the caller as-is.
type KeyValueStore interface {
	// SetIfAbsent atomically creates the key with the given value and expiry
	// only if it does not already exist, and reports whether creation
	// happened. Must be a single indivisible operation.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the current value; ok is false when the key is absent or
	// already expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Delete removes the key and reports whether a key actually existed.
	Delete(ctx context.Context, key string) (bool, error)

	// RemainingTTL reports the time left before the key expires, clamped to
	// zero. Absent keys and keys without expiry both report zero.
	RemainingTTL(ctx context.Context, key string) (time.Duration, error)
}
