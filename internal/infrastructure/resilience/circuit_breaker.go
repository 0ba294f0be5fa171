package resilience

import (
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/sync"
)

// ErrCircuitOpen is returned when the breaker short-circuits a call
var ErrCircuitOpen = errors.New("resilience: circuit breaker open")

// CircuitState is the breaker state
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// String returns the string representation of CircuitState
func (s CircuitState) String() string {
	return string(s)
}

// CircuitConfig bounds one breaker instance
type CircuitConfig struct {
	// FailureThreshold is the number of failures within the window that
	// trips the breaker
	FailureThreshold int
	// Window is the sliding window failures are counted over
	Window time.Duration
	// CoolDown is how long an open breaker rejects calls before allowing a
	// half-open probe
	CoolDown time.Duration
}

// DefaultCircuitConfig returns the default breaker policy
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		FailureThreshold: 10,
		Window:           time.Minute,
		CoolDown:         30 * time.Second,
	}
}

// CircuitKey identifies one breaker: failures against one platform operation
// for one tenant never trip the breaker for another
type CircuitKey struct {
	TenantID  uuid.UUID
	Platform  sync.PlatformCode
	Operation sync.OperationType
}

// String renders the key for logs and metrics
func (k CircuitKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.TenantID, k.Platform, k.Operation)
}

// breaker is one state machine. All fields are guarded by mu; transitions
// happen under the lock so concurrent failures cannot lose a trip.
type breaker struct {
	mu       gosync.Mutex
	cfg      CircuitConfig
	state    CircuitState
	failures []time.Time
	openedAt time.Time
	// probing is true while the single half-open probe is in flight
	probing bool
}

func newBreaker(cfg CircuitConfig) *breaker {
	return &breaker{cfg: cfg, state: CircuitClosed}
}

// allow reports whether a call may proceed now. In half-open state only one
// probe is admitted; everyone else is rejected until the probe reports back.
func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if now.Sub(b.openedAt) < b.cfg.CoolDown {
			return false
		}
		b.state = CircuitHalfOpen
		b.probing = true
		return true
	case CircuitHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

// recordSuccess resets the breaker after a successful call or probe
func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = CircuitClosed
	b.failures = b.failures[:0]
	b.probing = false
}

// recordFailure counts a failure and trips the breaker when the window
// threshold is exceeded. A failed half-open probe reopens immediately.
func (b *breaker) recordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.state = CircuitOpen
		b.openedAt = now
		b.probing = false
		return
	}

	cutoff := now.Add(-b.cfg.Window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)

	if len(b.failures) >= b.cfg.FailureThreshold {
		b.state = CircuitOpen
		b.openedAt = now
		b.failures = b.failures[:0]
	}
}

func (b *breaker) currentState() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CircuitBreaker is the arena of per-key breakers. Breakers are created
// lazily on first call and live for the process lifetime.
type CircuitBreaker struct {
	cfg      CircuitConfig
	logger   *zap.Logger
	mu       gosync.RWMutex
	breakers map[CircuitKey]*breaker
	now      func() time.Time
}

// NewCircuitBreaker creates the breaker arena
func NewCircuitBreaker(cfg CircuitConfig, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultCircuitConfig().FailureThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultCircuitConfig().Window
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = DefaultCircuitConfig().CoolDown
	}
	return &CircuitBreaker{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[CircuitKey]*breaker),
		now:      time.Now,
	}
}

func (cb *CircuitBreaker) breakerFor(key CircuitKey) *breaker {
	cb.mu.RLock()
	b, ok := cb.breakers[key]
	cb.mu.RUnlock()
	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if b, ok = cb.breakers[key]; ok {
		return b
	}
	b = newBreaker(cb.cfg)
	cb.breakers[key] = b
	return b
}

// Allow reports whether a call for the key may proceed. A rejection means the
// call must fail immediately with a circuit-open classification and no
// network I/O.
func (cb *CircuitBreaker) Allow(key CircuitKey) error {
	b := cb.breakerFor(key)
	if b.allow(cb.now()) {
		return nil
	}
	return sync.NewClassifiedError(sync.FailureCircuitOpen, false,
		fmt.Errorf("%w: %s", ErrCircuitOpen, key))
}

// RecordSuccess reports a successful call for the key
func (cb *CircuitBreaker) RecordSuccess(key CircuitKey) {
	b := cb.breakerFor(key)
	prev := b.currentState()
	b.recordSuccess()
	if prev != CircuitClosed {
		cb.logger.Info("circuit closed after successful probe",
			zap.String("circuit_key", key.String()))
	}
}

// RecordFailure reports a failed call for the key
func (cb *CircuitBreaker) RecordFailure(key CircuitKey) {
	b := cb.breakerFor(key)
	b.recordFailure(cb.now())
	if b.currentState() == CircuitOpen {
		cb.logger.Warn("circuit open",
			zap.String("circuit_key", key.String()),
			zap.Duration("cool_down", cb.cfg.CoolDown))
	}
}

// State returns the key's current state without mutating it
func (cb *CircuitBreaker) State(key CircuitKey) CircuitState {
	return cb.breakerFor(key).currentState()
}
