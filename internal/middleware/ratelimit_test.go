package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterStore_AllowBurst(t *testing.T) {
	// allow 5 events immediately then the 6th should be rejected
	s := NewLimiterStore(5, 5, time.Minute)

	key := "conn-1"
	for i := 0; i < 5; i++ {
		if !s.Allow(key) {
			t.Fatalf("expected allow at iteration %d", i)
		}
	}
	if s.Allow(key) {
		t.Fatalf("expected limiter to block after burst consumed")
	}

	// other keys are independent
	if !s.Allow("conn-2") {
		t.Fatalf("expected a fresh key to be allowed")
	}
}

func TestLimiterStore_Forget(t *testing.T) {
	s := NewLimiterStore(1, 1, time.Minute)
	s.Allow("a")
	s.Allow("b")
	s.Forget("a")
	if s.Len() != 1 {
		t.Fatalf("expected 1 tracked key, got %d", s.Len())
	}
	// a forgotten key starts with a full bucket again
	if !s.Allow("a") {
		t.Fatalf("expected allow after Forget")
	}
}

func TestLimiterStore_EvictIdle(t *testing.T) {
	s := NewLimiterStore(60, 1, time.Minute)
	s.Allow("old")
	s.evictIdle(time.Now().Add(time.Second))
	if s.Len() != 0 {
		t.Fatalf("expected idle entry evicted, got %d", s.Len())
	}
}

func TestLimiterStore_ServeStopsOnCancel(t *testing.T) {
	s := NewLimiterStore(60, 1, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
