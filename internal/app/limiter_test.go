package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDynamicLimiter_SecondAcquireBlocksUntilRelease(t *testing.T) {
	l := NewDynamicLimiter(1)
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		_ = l.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second acquire should block")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()
	select {
	case <-acquired:
	case <-time.After(250 * time.Millisecond):
		t.Fatalf("second acquire should have proceeded")
	}
	if got := l.InFlight(); got != 1 {
		t.Fatalf("expected 1 in flight, got %d", got)
	}
	l.Release()
}

func TestDynamicLimiter_RaisingLimitWakesWaiter(t *testing.T) {
	l := NewDynamicLimiter(1)
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		_ = l.Acquire(ctx)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("acquire should block")
	case <-time.After(50 * time.Millisecond):
	}

	l.SetLimit(2)
	select {
	case <-done:
	case <-time.After(250 * time.Millisecond):
		t.Fatalf("waiter should have been woken by SetLimit")
	}
	l.Release()
	l.Release()
	wg.Wait()
}

func TestDynamicLimiter_DoHonorsContext(t *testing.T) {
	l := NewDynamicLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	called := false
	err := l.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run without a slot")
	}
	l.Release()
	if got := l.InFlight(); got != 0 {
		t.Fatalf("expected 0 in flight, got %d", got)
	}
}

func TestDynamicLimiter_StatsCountWaiters(t *testing.T) {
	l := NewDynamicLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx) }()

	deadline := time.Now().Add(time.Second)
	for l.Stats().Waiting != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("waiter not counted: %+v", l.Stats())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := l.Stats(); got.Limit != 1 || got.InFlight != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := l.Stats(); got.Waiting != 0 || got.InFlight != 1 {
		t.Fatalf("unexpected stats after cancel %+v", got)
	}
	l.Release()
}
