package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryStore_SetIfAbsent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.SetIfAbsent(ctx, "k", "first", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected first create to succeed")
	}

	created, _ = store.SetIfAbsent(ctx, "k", "second", time.Minute)
	if created {
		t.Error("expected second create to fail")
	}

	val, ok, _ := store.Get(ctx, "k")
	if !ok || val != "first" {
		t.Errorf("expected 'first', got %q (ok=%v)", val, ok)
	}
}

func TestMemoryStore_SetIfAbsent_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			created, err := store.SetIfAbsent(ctx, "race", fmt.Sprintf("v%d", n), time.Minute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if created {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.SetIfAbsent(ctx, "k", "val", 50*time.Millisecond); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Fatal("expected key to be live before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("expected key to be gone after expiry")
	}

	// Expiry frees the key for a new conditional create.
	created, _ := store.SetIfAbsent(ctx, "k", "new", time.Minute)
	if !created {
		t.Error("expected create after expiry to succeed")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.SetIfAbsent(ctx, "k", "val", time.Minute)

	removed, _ := store.Delete(ctx, "k")
	if !removed {
		t.Error("expected delete to report true")
	}

	removed, _ = store.Delete(ctx, "k")
	if removed {
		t.Error("expected delete of absent key to report false")
	}
}

func TestMemoryStore_RemainingTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.SetIfAbsent(ctx, "k", "val", 20*time.Second)

	ttl, err := store.RemainingTTL(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl <= 0 || ttl > 20*time.Second {
		t.Errorf("unexpected ttl: %v", ttl)
	}

	// Absent and unexpiring keys report zero.
	ttl, _ = store.RemainingTTL(ctx, "absent")
	if ttl != 0 {
		t.Errorf("expected 0 for absent key, got %v", ttl)
	}

	store.SetIfAbsent(ctx, "forever", "val", 0)
	ttl, _ = store.RemainingTTL(ctx, "forever")
	if ttl != 0 {
		t.Errorf("expected 0 for key without expiry, got %v", ttl)
	}
}
