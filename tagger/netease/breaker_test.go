package netease

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func newTestBreaker(threshold int, reset time.Duration) (*circuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := newCircuitBreaker(threshold, reset)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		cb.allow()
		cb.recordFailure()
	}
	if !cb.allow() {
		t.Fatal("Expected breaker to stay closed below threshold")
	}
	cb.recordFailure()
	if cb.allow() {
		t.Error("Expected breaker to open at threshold")
	}
	if st := cb.status(); st.State != string(BreakerOpen) || st.FailureCount != 3 {
		t.Errorf("Unexpected status %+v", st)
	}
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()
	if !cb.allow() {
		t.Error("Expected a success to reset consecutive failures")
	}
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	cb.recordFailure()

	clock.t = clock.t.Add(59 * time.Second)
	if cb.allow() {
		t.Fatal("Expected breaker to stay open before the reset timeout")
	}

	clock.t = clock.t.Add(2 * time.Second)
	if !cb.allow() {
		t.Fatal("Expected a trial request after the reset timeout")
	}
	if cb.allow() {
		t.Error("Expected only one trial while half open")
	}

	cb.recordFailure()
	if cb.status().State != string(BreakerOpen) {
		t.Errorf("Expected failed trial to reopen, got %s", cb.status().State)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	cb.allow()
	cb.recordSuccess()
	if st := cb.status(); st.State != string(BreakerClosed) || st.FailureCount != 0 {
		t.Errorf("Expected closed breaker after successful trial, got %+v", st)
	}
}

func TestCircuitBreaker_ReleaseKeepsHalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Second)
	cb.recordFailure()
	clock.t = clock.t.Add(2 * time.Second)

	cb.allow()
	cb.release()
	if !cb.allow() {
		t.Error("Expected a new trial after a released one")
	}
}

func TestClient_CircuitOpens(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusBadGateway)
	}))

	for i := 0; i < defaultBreakerFailures; i++ {
		if _, err := client.Lyric(context.Background(), int64(i+1)); err == nil {
			t.Fatal("Expected error")
		}
	}
	_, err := client.Lyric(context.Background(), 99)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != int32(defaultBreakerFailures) {
		t.Errorf("Expected %d requests, got %d", defaultBreakerFailures, got)
	}
	if st := client.BreakerStatus(); st.State != string(BreakerOpen) {
		t.Errorf("Expected open breaker, got %+v", st)
	}
}

func TestClient_Reset(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	for i := 0; i < defaultBreakerFailures; i++ {
		client.Lyric(context.Background(), 1)
	}
	if client.BreakerStatus().State != string(BreakerOpen) {
		t.Fatal("Expected open breaker")
	}
	client.Reset()
	if st := client.BreakerStatus(); st.State != string(BreakerClosed) || st.FailureCount != 0 {
		t.Errorf("Expected closed breaker after reset, got %+v", st)
	}
}
