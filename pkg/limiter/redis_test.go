package limiter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTestClient returns a client against a local Redis, skipping the
// test when none is reachable.
func redisTestClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Skipping integration test: Redis not available (%v)", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStrategy_Integration(t *testing.T) {
	client := redisTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	strategy, err := NewRedisStrategy(client, Limit{MaxRequests: 2, Window: time.Second})
	if err != nil {
		t.Fatalf("Failed to create RedisStrategy: %v", err)
	}

	t.Run("BasicFlow", func(t *testing.T) {
		key := fmt.Sprintf("it_test_%d", time.Now().UnixNano())

		for i := 0; i < 2; i++ {
			allowed, err := strategy.AllowRequest(ctx, key)
			if err != nil {
				t.Fatalf("Redis error: %v", err)
			}
			if !allowed {
				t.Fatalf("Expected request %d to be allowed", i+1)
			}
		}

		allowed, err := strategy.AllowRequest(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if allowed {
			t.Error("Expected third request to be denied")
		}
	})

	t.Run("Usage", func(t *testing.T) {
		key := fmt.Sprintf("usage_test_%d", time.Now().UnixNano())

		usage, err := strategy.GetUsage(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if usage.Current != 0 || usage.TTL != 0 {
			t.Errorf("Expected (0, 0) for an unseen key, got (%v, %v)", usage.Current, usage.TTL)
		}

		strategy.AllowRequest(ctx, key)

		usage, err = strategy.GetUsage(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if usage.Current != 1 {
			t.Errorf("Expected 1 request in window, got %v", usage.Current)
		}
		if usage.TTL <= 0 || usage.TTL > time.Second {
			t.Errorf("Expected TTL within (0, 1s], got %v", usage.TTL)
		}
	})

	t.Run("DistributedState", func(t *testing.T) {
		key := fmt.Sprintf("dist_test_%d", time.Now().UnixNano())
		limit := Limit{MaxRequests: 1, Window: time.Second}

		// Instance A consumes the only slot
		strategyA, _ := NewRedisStrategy(client, limit)
		strategyA.AllowRequest(ctx, key)

		// Instance B must see it through the shared sorted set
		strategyB, _ := NewRedisStrategy(client, limit)
		allowed, err := strategyB.AllowRequest(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if allowed {
			t.Error("Instance B should see the slot consumed by instance A")
		}
	})

	t.Run("Override", func(t *testing.T) {
		key := fmt.Sprintf("override_test_%d", time.Now().UnixNano())

		if err := strategy.SetLimit(key, Limit{MaxRequests: 5, Window: time.Second}); err != nil {
			t.Fatalf("SetLimit failed: %v", err)
		}

		granted := 0
		for i := 0; i < 6; i++ {
			if allowed, err := strategy.AllowRequest(ctx, key); err != nil {
				t.Fatal(err)
			} else if allowed {
				granted++
			}
		}
		if granted != 5 {
			t.Errorf("Expected exactly 5 of 6 requests allowed under the override, got %d", granted)
		}
	})
}

func TestRedisStrategy_InvalidLimit(t *testing.T) {
	client := redisTestClient(t)

	if _, err := NewRedisStrategy(client, Limit{MaxRequests: 0, Window: time.Second}); err == nil {
		t.Error("Expected constructor to reject an invalid default limit")
	}

	strategy, err := NewRedisStrategy(client, Limit{MaxRequests: 1, Window: time.Second})
	if err != nil {
		t.Fatalf("Failed to create RedisStrategy: %v", err)
	}
	if err := strategy.SetLimit("k", Limit{MaxRequests: 1, Window: 0}); err == nil {
		t.Error("Expected SetLimit to reject an invalid limit")
	}
}
