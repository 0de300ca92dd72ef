package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/domain"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/port"
)

const reservedKeyPrefix = "reserved:sku:"

var (
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrSKUConsumed       = errors.New("sku already consumed")
	ErrSKULocked         = errors.New("sku locked by another claimant")
	ErrLockMissing       = errors.New("sku lock missing")
	ErrLockNotFound      = errors.New("sku lock not found")
	ErrOwnershipMismatch = errors.New("sku lock ownership mismatch")
	ErrAlreadyReserved   = errors.New("sku already reserved")
)

// LockHeldError reports a hold rejected because another claimant owns the
// lock. Holder is a best-effort snapshot and may be nil if the winning lock
// expired between the failed acquire and the read-back.
type LockHeldError struct {
	Holder *domain.Lock
}

func (e *LockHeldError) Error() string {
	if e.Holder == nil {
		return ErrSKULocked.Error()
	}
	return fmt.Sprintf("%s (ttl %ds remaining)", ErrSKULocked, e.Holder.TTLSecondsRemaining)
}

func (e *LockHeldError) Unwrap() error { return ErrSKULocked }

// HoldReceipt is returned on a successful hold.
type HoldReceipt struct {
	SKUID               string
	TTLSecondsRemaining int64
}

// Config carries the tunables and collaborators of the reservation workflow.
// Zero values fall back to sensible defaults.
type Config struct {
	DefaultTTL time.Duration // hold TTL when the request does not specify one
	Retention  time.Duration // consumed-record lifetime
	QueueSize  int           // journal queue capacity
	Metrics    port.MetricsRecorder
	Logger     *zap.Logger
}

// ReservationService orchestrates hold, confirm and cancel for one SKU at a
// time. It keeps no state of its own: the workflow state is inferred at
// request time from the lock and the consumed record.
type ReservationService struct {
	locks      *LockManager
	store      port.KeyValueStore
	metrics    port.MetricsRecorder
	logger     *zap.Logger
	defaultTTL time.Duration
	retention  time.Duration
	journal    chan domain.ConsumedRecord
}

func NewReservationService(locks *LockManager, store port.KeyValueStore, cfg Config) *ReservationService {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 900 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Metrics == nil {
		cfg.Metrics = port.NopMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &ReservationService{
		locks:      locks,
		store:      store,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		defaultTTL: cfg.DefaultTTL,
		retention:  cfg.Retention,
		journal:    make(chan domain.ConsumedRecord, cfg.QueueSize),
	}
}

func reservedKey(skuID string) string {
	return reservedKeyPrefix + skuID
}

// Hold acquires a time-bounded exclusive hold on skuID. A ttlSeconds of zero
// uses the service default.
func (s *ReservationService) Hold(ctx context.Context, skuID, userID, cartID string, ttlSeconds int) (HoldReceipt, error) {
	start := time.Now()

	if !validIdentifiers(skuID, userID, cartID) {
		return HoldReceipt{}, ErrInvalidPayload
	}

	// Existence check and the acquire below are not transactional; a consume
	// landing between them is a known, accepted gap.
	consumed, err := s.isConsumed(ctx, skuID)
	if err != nil {
		return HoldReceipt{}, err
	}
	if consumed {
		return HoldReceipt{}, ErrSKUConsumed
	}

	ttl := s.defaultTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	result, err := s.locks.Acquire(ctx, skuID, domain.Claimant{UserID: userID, CartID: cartID}, ttl)
	s.metrics.ObserveHoldLatency(time.Since(start))
	if err != nil {
		return HoldReceipt{}, err
	}

	if !result.Acquired {
		s.metrics.HoldRejected()
		s.logger.Warn("hold rejected",
			zap.String("skuId", skuID),
			zap.Int64("ttlSecondsRemaining", holderTTL(result.Lock)),
		)
		return HoldReceipt{}, &LockHeldError{Holder: result.Lock}
	}

	s.metrics.HoldCreated()
	s.logger.Info("hold created",
		zap.String("skuId", skuID),
		zap.Int64("ttlSecondsRemaining", result.Lock.TTLSecondsRemaining),
	)
	return HoldReceipt{SKUID: skuID, TTLSecondsRemaining: result.Lock.TTLSecondsRemaining}, nil
}

// Confirm converts a live hold into a permanent consumed record. It must be
// called by the same claimant that created the hold.
func (s *ReservationService) Confirm(ctx context.Context, skuID, userID, cartID string) error {
	start := time.Now()

	if !validIdentifiers(skuID, userID, cartID) {
		return ErrInvalidPayload
	}

	lock, err := s.locks.Get(ctx, skuID)
	if err != nil {
		return err
	}
	if lock == nil {
		return ErrLockMissing
	}
	if !lock.Payload.OwnedBy(domain.Claimant{UserID: userID, CartID: cartID}) {
		return ErrOwnershipMismatch
	}

	record := domain.ConsumedRecord{
		SKUID:       skuID,
		UserID:      userID,
		CartID:      cartID,
		ConfirmedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal consumed record: %w", err)
	}

	// Conditional even though the lock invariant should make a race here
	// impossible: two confirms would need two live holds.
	created, err := s.store.SetIfAbsent(ctx, reservedKey(skuID), string(raw), s.retention)
	if err != nil {
		return fmt.Errorf("mark reserved: %w", err)
	}
	if !created {
		return ErrAlreadyReserved
	}

	// The consumed record is authoritative from here on. If the release
	// fails the lock simply runs out its TTL, so the confirm still stands.
	if _, err := s.locks.Release(ctx, skuID); err != nil {
		s.logger.Error("lock release after confirm failed",
			zap.String("skuId", skuID),
			zap.Error(err),
		)
	}

	s.metrics.ObserveConfirmLatency(time.Since(start))
	s.metrics.ConfirmSucceeded()
	s.logger.Info("reservation confirmed", zap.String("skuId", skuID))

	s.journal <- record
	return nil
}

// Cancel releases a live hold early. It must be called by the claimant that
// created the hold.
func (s *ReservationService) Cancel(ctx context.Context, skuID, userID, cartID string) error {
	if !validIdentifiers(skuID, userID, cartID) {
		return ErrInvalidPayload
	}

	lock, err := s.locks.Get(ctx, skuID)
	if err != nil {
		return err
	}
	if lock == nil {
		return ErrLockNotFound
	}
	if !lock.Payload.OwnedBy(domain.Claimant{UserID: userID, CartID: cartID}) {
		return ErrOwnershipMismatch
	}

	if _, err := s.locks.Release(ctx, skuID); err != nil {
		return err
	}

	s.logger.Info("reservation canceled", zap.String("skuId", skuID))
	return nil
}

// Journal exposes the stream of confirmed reservations for the journal
// worker pool.
func (s *ReservationService) Journal() <-chan domain.ConsumedRecord {
	return s.journal
}

// Close closes the journal stream. Call only after all in-flight confirms
// have finished.
func (s *ReservationService) Close() {
	close(s.journal)
}

func (s *ReservationService) isConsumed(ctx context.Context, skuID string) (bool, error) {
	_, ok, err := s.store.Get(ctx, reservedKey(skuID))
	if err != nil {
		return false, fmt.Errorf("read consumed record: %w", err)
	}
	return ok, nil
}

func validIdentifiers(ids ...string) bool {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return false
		}
	}
	return true
}

func holderTTL(lock *domain.Lock) int64 {
	if lock == nil {
		return 0
	}
	return lock.TTLSecondsRemaining
}
