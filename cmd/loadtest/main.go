// Command loadtest fires concurrent hold attempts at a live Redis and checks
// that exactly one wins, then walks the winner through confirm and verifies
// the SKU is refused afterward.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/adapter/storage"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/service"
)

const (
	defaultRedisAddr = "localhost:6379"
	skuID            = "SKU-LOADTEST-1"
	attempts         = 50
)

func main() {
	ctx := context.Background()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = defaultRedisAddr
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous run state.
	rdb.Del(ctx, "lock:sku:"+skuID)
	rdb.Del(ctx, "reserved:sku:"+skuID)

	store := storage.NewRedisStore(rdb)
	locks := service.NewLockManager(store)
	reservations := service.NewReservationService(locks, store, service.Config{QueueSize: attempts})
	defer reservations.Close()

	// Drain the journal; this run has no database behind it.
	go func() {
		for range reservations.Journal() {
		}
	}()

	var created, locked, others atomic.Int32
	var winnerMu sync.Mutex
	var winnerUser, winnerCart string

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			userID := fmt.Sprintf("user-%d", n+1)
			cartID := fmt.Sprintf("cart-%d", n+1)

			_, err := reservations.Hold(ctx, skuID, userID, cartID, 900)
			switch {
			case err == nil:
				created.Add(1)
				winnerMu.Lock()
				winnerUser, winnerCart = userID, cartID
				winnerMu.Unlock()
			case errors.Is(err, service.ErrSKULocked):
				locked.Add(1)
			default:
				others.Add(1)
				log.Printf("unexpected hold error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	log.Printf("attempts=%d created=%d locked=%d others=%d", attempts, created.Load(), locked.Load(), others.Load())

	if created.Load() != 1 || locked.Load() != attempts-1 || others.Load() != 0 {
		log.Fatal("concurrency expectation failed: want exactly one winner")
	}

	if err := reservations.Confirm(ctx, skuID, winnerUser, winnerCart); err != nil {
		log.Fatalf("confirm by winner failed: %v", err)
	}

	if _, err := reservations.Hold(ctx, skuID, "late-user", "late-cart", 900); !errors.Is(err, service.ErrSKUConsumed) {
		log.Fatalf("expected SKU_CONSUMED after confirm, got: %v", err)
	}

	log.Print("concurrency expectation passed: one hold created, all others rejected, confirm sealed the SKU")
}
