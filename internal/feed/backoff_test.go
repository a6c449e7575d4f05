package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestBackoff(t *testing.T) *Backoff {
	t.Helper()

	return NewBackoff(BackoffConfig{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     80 * time.Millisecond,
		Multiplier:   2.0,
		JitterRatio:  0.2,
	}, zaptest.NewLogger(t))
}

func TestBackoff_GrowthAndCap(t *testing.T) {
	b := newTestBackoff(t)

	want := []time.Duration{
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		80 * time.Millisecond, // capped
	}
	for i, expected := range want {
		b.grow()
		if b.current != expected {
			t.Fatalf("after %d grows: current = %v, want %v", i+1, b.current, expected)
		}
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := newTestBackoff(t)

	// Jitter only ever adds, never subtracts, and is capped at the ratio.
	for i := 0; i < 100; i++ {
		d := b.next()
		if d < 10*time.Millisecond || d > 12*time.Millisecond {
			t.Fatalf("next() = %v, want within [10ms, 12ms]", d)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newTestBackoff(t)

	b.grow()
	b.grow()
	b.Reset()

	if b.current != 10*time.Millisecond {
		t.Fatalf("current after reset = %v, want 10ms", b.current)
	}
}

func TestBackoff_RetrySucceeds(t *testing.T) {
	b := newTestBackoff(t)

	attempts := 0
	err := b.Retry(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}

	// Success resets the delay for the next outage.
	if b.current != 10*time.Millisecond {
		t.Fatalf("current after success = %v, want 10ms", b.current)
	}
}

func TestBackoff_RetryHonorsContext(t *testing.T) {
	b := newTestBackoff(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Retry(ctx, func(context.Context) error {
		t.Fatal("op must not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry() error = %v, want context.Canceled", err)
	}
}

func TestBackoff_RetryCancelledMidSleep(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 10 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Retry(ctx, func(context.Context) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Retry() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
}
