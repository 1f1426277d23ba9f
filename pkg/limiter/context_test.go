package limiter

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Forwarding(t *testing.T) {
	ctx := context.Background()

	s, err := NewSlidingWindow(Limit{MaxRequests: 1, Window: time.Minute})
	if err != nil {
		t.Fatalf("NewSlidingWindow failed: %v", err)
	}
	rl := NewRateLimiter(s)

	if rl.StrategyName() != "sliding_window" {
		t.Errorf("Expected strategy name sliding_window, got %q", rl.StrategyName())
	}

	allowed, err := rl.AllowRequest(ctx, "k")
	if err != nil || !allowed {
		t.Fatalf("Expected first forwarded request to be allowed, got (%v, %v)", allowed, err)
	}
	if allowed, _ := rl.AllowRequest(ctx, "k"); allowed {
		t.Error("Second request should have been denied through the forwarded limit of 1")
	}

	usage, _ := rl.GetUsage(ctx, "k")
	if usage.Current != 1 {
		t.Errorf("Expected usage of 1 through the context, got %v", usage.Current)
	}

	if err := rl.SetLimit("k", Limit{MaxRequests: 0, Window: time.Second}); err == nil {
		t.Error("Expected forwarded SetLimit to reject an invalid limit")
	}
}

func TestRateLimiter_SwitchStartsFresh(t *testing.T) {
	ctx := context.Background()

	sw, err := NewSlidingWindow(Limit{MaxRequests: 1, Window: time.Hour})
	if err != nil {
		t.Fatalf("NewSlidingWindow failed: %v", err)
	}
	rl := NewRateLimiter(sw)

	rl.AllowRequest(ctx, "k")
	if allowed, _ := rl.AllowRequest(ctx, "k"); allowed {
		t.Fatal("Key should be exhausted under the sliding window")
	}

	// Histories are not migrated: after the swap the token bucket
	// starts full for every key.
	tb, err := NewTokenBucket(Limit{MaxRequests: 3, Window: 3 * time.Second}, WithClock(newFakeClock()))
	if err != nil {
		t.Fatalf("NewTokenBucket failed: %v", err)
	}
	rl.SetStrategy(tb)

	if rl.StrategyName() != "token_bucket" {
		t.Errorf("Expected strategy name token_bucket after swap, got %q", rl.StrategyName())
	}

	usage, _ := rl.GetUsage(ctx, "k")
	if usage.Current != 3 {
		t.Errorf("Expected a full fresh bucket after the swap, got %v tokens", usage.Current)
	}
	for i := 0; i < 3; i++ {
		if allowed, _ := rl.AllowRequest(ctx, "k"); !allowed {
			t.Fatalf("Request %d should be allowed against the fresh bucket", i+1)
		}
	}
}

func TestRateLimiter_NilStrategyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected NewRateLimiter(nil) to panic")
		}
	}()
	NewRateLimiter(nil)
}

// Race test: swaps concurrent with admission calls must always observe
// a whole strategy.
func TestRateLimiter_ConcurrentSwap(t *testing.T) {
	ctx := context.Background()

	sw, _ := NewSlidingWindow(Limit{MaxRequests: 100, Window: time.Second})
	tb, _ := NewTokenBucket(Limit{MaxRequests: 100, Window: time.Second})
	rl := NewRateLimiter(sw)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				rl.SetStrategy(tb)
			} else {
				rl.SetStrategy(sw)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, err := rl.AllowRequest(ctx, "k"); err != nil {
				t.Errorf("AllowRequest failed during swap: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}
