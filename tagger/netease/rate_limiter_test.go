package netease

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(false, 1, 60)
	for i := 0; i < 5; i++ {
		if err := rl.WaitIfNeeded(context.Background()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
}

func TestRateLimiter_AllowsWithinWindow(t *testing.T) {
	rl := NewRateLimiter(true, 3, 60)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.WaitIfNeeded(context.Background()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Expected no wait within limit, took %v", elapsed)
	}
}

func TestRateLimiter_WaitsForWindow(t *testing.T) {
	rl := NewRateLimiter(true, 1, 0.2)
	if err := rl.WaitIfNeeded(context.Background()); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := rl.WaitIfNeeded(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Expected to wait for the window, took %v", elapsed)
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(true, 1, 60)
	if err := rl.WaitIfNeeded(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.WaitIfNeeded(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}
