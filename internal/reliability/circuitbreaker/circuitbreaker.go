package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Config tunes a breaker. FailureThreshold consecutive failures open it;
// after OpenTimeout one probe is let through, and SuccessThreshold probe
// successes close it again.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	// IsFailure decides which errors count against the breaker. Nil counts
	// every non-nil error.
	IsFailure func(error) bool
}

// CircuitBreaker provides fast-fail behavior when a dependency fails repeatedly
type CircuitBreaker struct {
	mu            sync.Mutex
	cfg           Config
	state         State
	failures      int
	successes     int
	openedAt      time.Time
	onStateChange func(from, to State)
	now           func() time.Time
}

func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// SetStateChangeCallback registers a callback for state transitions. It is
// called with the breaker's lock released.
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// State returns the current state without advancing an expired open period.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Allow reports whether a call may proceed. An open breaker whose timeout
// has passed moves to half-open and allows the probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	switch cb.state {
	case StateClosed, StateHalfOpen:
		cb.mu.Unlock()
		return true
	}
	if cb.now().Sub(cb.openedAt) < cb.cfg.OpenTimeout {
		cb.mu.Unlock()
		return false
	}
	notify := cb.transition(StateHalfOpen)
	cb.mu.Unlock()
	notify()
	return true
}

// Record feeds a call result back into the breaker.
func (cb *CircuitBreaker) Record(err error) {
	failed := err != nil
	if failed && cb.cfg.IsFailure != nil {
		failed = cb.cfg.IsFailure(err)
	}

	cb.mu.Lock()
	notify := func() {}
	switch {
	case failed && cb.state == StateHalfOpen:
		notify = cb.transition(StateOpen)
	case failed:
		cb.failures++
		if cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold {
			notify = cb.transition(StateOpen)
		}
	case cb.state == StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			notify = cb.transition(StateClosed)
		}
	default:
		cb.failures = 0
	}
	cb.mu.Unlock()
	notify()
}

// Execute runs fn when the breaker allows it and records the result.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrOpen
	}
	err := fn()
	cb.Record(err)
	return err
}

// transition must be called with mu held; the returned func fires the
// callback and must be called after unlocking.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	if from == to {
		return func() {}
	}
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	fn := cb.onStateChange
	if fn == nil {
		return func() {}
	}
	return func() { fn(from, to) }
}
