package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackoffConfig configures exponential backoff with jitter.
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterRatio  float64 // 0.2 = up to 20% extra delay
}

// Backoff retries an operation with exponential backoff, resetting on
// success.
type Backoff struct {
	config  BackoffConfig
	logger  *zap.Logger
	mu      sync.Mutex
	current time.Duration
}

// NewBackoff creates a backoff helper.
func NewBackoff(cfg BackoffConfig, logger *zap.Logger) *Backoff {
	return &Backoff{
		config:  cfg,
		logger:  logger,
		current: cfg.InitialDelay,
	}
}

// Retry runs op until it succeeds or the context is cancelled.
func (b *Backoff) Retry(ctx context.Context, op func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delay := b.next()
		b.logger.Info("feed-retry-scheduled", zap.Duration("delay", delay))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		err := op(ctx)
		if err == nil {
			b.Reset()
			return nil
		}

		b.logger.Warn("feed-retry-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()
		b.grow()
	}
}

// Reset returns the delay to its initial value.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.config.InitialDelay
}

func (b *Backoff) next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	jitter := rand.Float64() * b.config.JitterRatio
	return time.Duration(float64(b.current) * (1.0 + jitter))
}

func (b *Backoff) grow() {
	b.mu.Lock()
	defer b.mu.Unlock()

	grown := time.Duration(float64(b.current) * b.config.Multiplier)
	if grown > b.config.MaxDelay {
		grown = b.config.MaxDelay
	}
	b.current = grown
}
