package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/domain"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/port"
)

const lockKeyPrefix = "lock:sku:"

// LockManager owns the hold/release protocol for a single SKU key.
// Acquisition correctness rests entirely on the store's atomic conditional
// create; no in-process locking is layered on top, and expiry is
// store-enforced, observed lazily on the next read.
type LockManager struct {
	store port.KeyValueStore
}

func NewLockManager(store port.KeyValueStore) *LockManager {
	return &LockManager{store: store}
}

func lockKey(skuID string) string {
	return lockKeyPrefix + skuID
}

// Acquire attempts to create the lock for skuID on behalf of claimant. When
// the key is already held, the result carries a best-effort snapshot of the
// current lock so the caller can report the holder and its remaining TTL;
// the snapshot is informational only and may already be stale.
func (m *LockManager) Acquire(ctx context.Context, skuID string, claimant domain.Claimant, ttl time.Duration) (domain.AcquireResult, error) {
	payload := domain.LockPayload{
		SKUID:     skuID,
		UserID:    claimant.UserID,
		CartID:    claimant.CartID,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.AcquireResult{}, fmt.Errorf("marshal lock payload: %w", err)
	}

	created, err := m.store.SetIfAbsent(ctx, lockKey(skuID), string(raw), ttl)
	if err != nil {
		return domain.AcquireResult{}, fmt.Errorf("acquire lock: %w", err)
	}

	if !created {
		current, err := m.Get(ctx, skuID)
		if err != nil {
			return domain.AcquireResult{}, err
		}
		return domain.AcquireResult{Acquired: false, Lock: current}, nil
	}

	remaining, err := m.store.RemainingTTL(ctx, lockKey(skuID))
	if err != nil {
		return domain.AcquireResult{}, fmt.Errorf("read lock ttl: %w", err)
	}

	return domain.AcquireResult{
		Acquired: true,
		Lock: &domain.Lock{
			Payload:             payload,
			TTLSecondsRemaining: int64(remaining / time.Second),
		},
	}, nil
}

// Get reads the current lock for skuID; it returns nil if the lock expired or
// was never created.
func (m *LockManager) Get(ctx context.Context, skuID string) (*domain.Lock, error) {
	raw, ok, err := m.store.Get(ctx, lockKey(skuID))
	if err != nil {
		return nil, fmt.Errorf("read lock: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var payload domain.LockPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode lock payload: %w", err)
	}

	remaining, err := m.store.RemainingTTL(ctx, lockKey(skuID))
	if err != nil {
		return nil, fmt.Errorf("read lock ttl: %w", err)
	}

	return &domain.Lock{
		Payload:             payload,
		TTLSecondsRemaining: int64(remaining / time.Second),
	}, nil
}

// Release unconditionally deletes the lock. Releasing an expired or
// nonexistent lock is not an error; it reports false.
func (m *LockManager) Release(ctx context.Context, skuID string) (bool, error) {
	removed, err := m.store.Delete(ctx, lockKey(skuID))
	if err != nil {
		return false, fmt.Errorf("release lock: %w", err)
	}
	return removed, nil
}
