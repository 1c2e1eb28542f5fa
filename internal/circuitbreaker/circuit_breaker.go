// Package circuitbreaker protects callers from repeatedly paying the cost
// of an operation that keeps failing, such as a multi-second headless
// browser session against a site that is currently blocking us.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker's current mode.
type State string

const (
	// StateClosed allows all calls.
	StateClosed State = "closed"
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen State = "open"
	// StateHalfOpen allows a limited number of probe calls.
	StateHalfOpen State = "half_open"
)

// ErrOpen is returned when the breaker rejects a call.
var ErrOpen = errors.New("circuit breaker is open")

// Config configures a breaker.
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the
	// breaker.
	MaxFailures int
	// Cooldown is how long the breaker stays open before allowing
	// half-open probes.
	Cooldown time.Duration
	// HalfOpenMaxCalls caps concurrent probes in the half-open state.
	HalfOpenMaxCalls int
}

// DefaultConfig suits a slow, flaky upstream: open after five consecutive
// failures, probe again after a minute.
func DefaultConfig() Config {
	return Config{
		MaxFailures:      5,
		Cooldown:         time.Minute,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker is a consecutive-failure circuit breaker safe for concurrent use.
type Breaker struct {
	cfg Config

	mu            sync.Mutex
	state         State
	failures      int
	halfOpenCalls int
	openedAt      time.Time
	now           func() time.Time
}

// New creates a breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = DefaultConfig().HalfOpenMaxCalls
	}
	return &Breaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Execute runs fn under breaker protection. When the breaker is open the
// call is rejected with ErrOpen without invoking fn.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			return ErrOpen
		}
		b.halfOpenCalls++
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = StateClosed
		b.failures = 0
		b.halfOpenCalls = 0
		return
	}

	b.failures++
	if b.currentState() == StateHalfOpen || b.failures >= b.cfg.MaxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
		b.halfOpenCalls = 0
	}
}

// currentState resolves the open to half-open transition. Callers hold the lock.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.state = StateHalfOpen
		b.halfOpenCalls = 0
	}
	return b.state
}
