// Package resilience provides the retry engine and circuit breaker that every
// marketplace call is routed through. Both are policy mechanisms only: they
// classify and bound failures but never decide what a failure means for the
// business, which stays in the domain layer.
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/sync"
)

// RetryConfig bounds the retry engine
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt; the
	// operation runs at most MaxRetries+1 times
	MaxRetries int
	// BaseDelay seeds the exponential backoff
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff
	MaxDelay time.Duration
	// JitterFraction randomizes each delay by ±fraction to spread retries
	// across tenants; 0 disables jitter
	JitterFraction float64
}

// DefaultRetryConfig returns the default retry policy
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.2,
	}
}

// Attempt records one invocation for the FinalError history
type Attempt struct {
	Number      int
	StartedAt   time.Time
	Duration    time.Duration
	FailureType sync.FailureType
	Err         error
}

// FinalError is returned when retries are exhausted or the error is not
// recoverable. It carries the full attempt history for the dead-letter
// handoff.
type FinalError struct {
	// Classified is the classification of the last failure
	Classified *sync.ClassifiedError
	// Attempts is the per-invocation history, oldest first
	Attempts []Attempt
	// Exhausted is true when the retry budget ran out, false when the error
	// was non-recoverable and retrying would have been pointless
	Exhausted bool
}

// Error implements the error interface
func (e *FinalError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("resilience: retries exhausted after %d attempt(s): %v", len(e.Attempts), e.Classified)
	}
	return fmt.Sprintf("resilience: non-recoverable after %d attempt(s): %v", len(e.Attempts), e.Classified)
}

// Unwrap exposes the classified error for errors.As
func (e *FinalError) Unwrap() error {
	return e.Classified
}

// RetryAttempts returns the number of retries performed (first attempt
// excluded)
func (e *FinalError) RetryAttempts() int {
	if len(e.Attempts) == 0 {
		return 0
	}
	return len(e.Attempts) - 1
}

// Operation is a fallible unit of work wrapped by the retry engine
type Operation func(ctx context.Context) error

// Retrier executes operations under the configured backoff policy
type Retrier struct {
	cfg    RetryConfig
	logger *zap.Logger
	// sleep is swapped in tests to avoid real delays
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retry engine
func NewRetrier(cfg RetryConfig, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	return &Retrier{
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Execute runs op until it succeeds, a non-recoverable failure is raised, the
// retry budget runs out, or the context ends. Every failure is classified
// exactly once, before the retry decision. Context cancellation aborts the
// remaining retries and surfaces a timeout classification.
func (r *Retrier) Execute(ctx context.Context, op Operation) error {
	var attempts []Attempt

	for attempt := 1; attempt <= r.cfg.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return r.finalize(attempts, sync.Classify(err), false)
		}

		started := time.Now()
		err := op(ctx)
		if err == nil {
			return nil
		}

		classified := sync.Classify(err)
		attempts = append(attempts, Attempt{
			Number:      attempt,
			StartedAt:   started,
			Duration:    time.Since(started),
			FailureType: classified.Type,
			Err:         err,
		})

		if !classified.Recoverable {
			return r.finalize(attempts, classified, false)
		}
		if attempt == r.cfg.MaxRetries+1 {
			return r.finalize(attempts, classified, true)
		}

		delay := r.delayFor(attempt, classified)
		r.logger.Debug("retrying after failure",
			zap.Int("attempt", attempt),
			zap.String("failure_type", string(classified.Type)),
			zap.Duration("delay", delay),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return r.finalize(attempts, sync.Classify(err), false)
		}
	}

	// unreachable: the loop always returns
	return nil
}

// delayFor computes the backoff before the next attempt. A platform-provided
// retryAfter hint takes precedence over the exponential schedule.
func (r *Retrier) delayFor(attempt int, classified *sync.ClassifiedError) time.Duration {
	if classified.Type == sync.FailureRateLimit && classified.RetryAfter > 0 {
		return classified.RetryAfter
	}

	delay := r.cfg.BaseDelay << uint(attempt-1)
	if delay > r.cfg.MaxDelay || delay <= 0 {
		delay = r.cfg.MaxDelay
	}
	if r.cfg.JitterFraction > 0 {
		// rand.Float64 is safe for the concurrent jobs sharing this Retrier
		spread := float64(delay) * r.cfg.JitterFraction
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

func (r *Retrier) finalize(attempts []Attempt, classified *sync.ClassifiedError, exhausted bool) error {
	return &FinalError{
		Classified: classified,
		Attempts:   attempts,
		Exhausted:  exhausted,
	}
}

// sleepCtx waits for d or until the context ends, whichever is first
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
