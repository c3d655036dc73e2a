//go:build integration

package ratelimit

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_SharedBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()

	// Two trackers on the same Redis model two client instances behind one IP.
	first := NewTracker(redisClient, 500, logger)
	second := NewTracker(redisClient, 500, logger)

	for i := 0; i < 5; i++ {
		if _, err := first.Record(ctx); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := second.Record(ctx); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	state, err := first.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 8 {
		t.Errorf("Used = %d, want 8 (shared across trackers)", state.Used)
	}
}

func TestTracker_Integration_ConcurrentRecords(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, 500, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tracker.Record(ctx); err != nil {
				t.Errorf("Record() error = %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 50 {
		t.Errorf("Used = %d, want 50", state.Used)
	}
}

func TestTracker_Integration_BlocksNearLimit(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, 15, zerolog.Nop())
	tracker.throttleDelay = 0
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 15; i++ {
		ok, err := tracker.ShouldAllowRequest(ctx)
		if err != nil {
			t.Fatalf("ShouldAllowRequest() error = %v", err)
		}
		if ok {
			allowed++
		}
	}

	// Requests stop once fewer than RemainingThresholdCritical remain.
	if want := 15 - RemainingThresholdCritical + 1; allowed != want {
		t.Errorf("allowed = %d, want %d", allowed, want)
	}
}
