package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/adapter/storage"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestIntegration_FullReservationFlow(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	skuID := fmt.Sprintf("SKU-IT-%d", time.Now().UnixNano())

	client.Del(ctx, "lock:sku:"+skuID)
	client.Del(ctx, "reserved:sku:"+skuID)

	store := storage.NewRedisStore(client)
	svc := NewReservationService(NewLockManager(store), store, Config{QueueSize: 100})
	defer svc.Close()

	go func() {
		for range svc.Journal() {
		}
	}()

	totalRequests := 20
	var created, locked atomic.Int32
	var mu sync.Mutex
	var winnerUser, winnerCart string

	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			userID := fmt.Sprintf("user-%d", n)
			cartID := fmt.Sprintf("cart-%d", n)
			_, err := svc.Hold(ctx, skuID, userID, cartID, 900)
			switch {
			case err == nil:
				created.Add(1)
				mu.Lock()
				winnerUser, winnerCart = userID, cartID
				mu.Unlock()
			case errors.Is(err, ErrSKULocked):
				locked.Add(1)
			default:
				t.Errorf("unexpected hold error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("expected exactly 1 hold created, got %d", created.Load())
	}
	if locked.Load() != int32(totalRequests-1) {
		t.Fatalf("expected %d rejections, got %d", totalRequests-1, locked.Load())
	}

	// The stored lock belongs to the winner.
	raw, err := client.Get(ctx, "lock:sku:"+skuID).Result()
	if err != nil {
		t.Fatalf("lock key missing: %v", err)
	}
	if !containsAll(raw, winnerUser, winnerCart) {
		t.Errorf("lock payload %q does not name winner %s/%s", raw, winnerUser, winnerCart)
	}

	if err := svc.Confirm(ctx, skuID, winnerUser, winnerCart); err != nil {
		t.Fatalf("confirm by winner failed: %v", err)
	}

	// Lock gone, consumed record present with a retention expiry.
	if err := client.Get(ctx, "lock:sku:"+skuID).Err(); err != redis.Nil {
		t.Errorf("expected lock key deleted, got: %v", err)
	}
	ttl, err := client.TTL(ctx, "reserved:sku:"+skuID).Result()
	if err != nil || ttl <= 0 {
		t.Errorf("expected consumed record with expiry, ttl=%v err=%v", ttl, err)
	}

	if _, err := svc.Hold(ctx, skuID, "late-user", "late-cart", 900); !errors.Is(err, ErrSKUConsumed) {
		t.Errorf("expected ErrSKUConsumed after confirm, got: %v", err)
	}

	client.Del(ctx, "reserved:sku:"+skuID)
}

func TestIntegration_ExpiryReacquisition(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	skuID := fmt.Sprintf("SKU-IT-EXP-%d", time.Now().UnixNano())
	client.Del(ctx, "lock:sku:"+skuID)

	store := storage.NewRedisStore(client)
	svc := NewReservationService(NewLockManager(store), store, Config{QueueSize: 10})
	defer svc.Close()

	if _, err := svc.Hold(ctx, skuID, "user-1", "cart-A", 1); err != nil {
		t.Fatalf("first hold failed: %v", err)
	}

	time.Sleep(1200 * time.Millisecond)

	receipt, err := svc.Hold(ctx, skuID, "user-2", "cart-B", 1)
	if err != nil {
		t.Fatalf("expected hold after expiry to succeed, got: %v", err)
	}
	if receipt.SKUID != skuID {
		t.Errorf("unexpected receipt: %+v", receipt)
	}

	client.Del(ctx, "lock:sku:"+skuID)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
