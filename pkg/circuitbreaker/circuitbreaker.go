// Package circuitbreaker stops calling a dependency that keeps failing.
// The realtime publisher uses it so a Redis outage fails pushes fast instead
// of holding every request for a network timeout.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is where a breaker is in its closed -> open -> half-open cycle.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

var (
	// ErrCircuitOpen rejects calls during the cool-down.
	ErrCircuitOpen = errors.New("circuitbreaker: open")
	// ErrTooManyRequests rejects calls beyond the half-open trial slots.
	ErrTooManyRequests = errors.New("circuitbreaker: half-open trial slots in use")
)

// Settings tune a breaker.
type Settings struct {
	Name string
	// TripAfter consecutive failures open a closed breaker.
	TripAfter int
	// CloseAfter consecutive half-open successes close it again.
	CloseAfter int
	// CoolDown is how long an open breaker rejects calls.
	CoolDown time.Duration
	// TrialSlots caps concurrent calls while half-open.
	TrialSlots int

	OnStateChange func(name string, from, to State)
}

// Option adjusts Settings. Non-positive values are ignored.
type Option func(*Settings)

func WithFailureThreshold(n int) Option {
	return func(s *Settings) {
		if n > 0 {
			s.TripAfter = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(s *Settings) {
		if n > 0 {
			s.CloseAfter = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Settings) {
		if d > 0 {
			s.CoolDown = d
		}
	}
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *Settings) { s.OnStateChange = fn }
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	set Settings
	now func() time.Time

	mu     sync.Mutex
	state  State
	streak int // consecutive outcomes of the kind that can move state
	trials int
	until  time.Time
}

// New returns a closed breaker that trips after five straight failures and
// cools down for thirty seconds.
func New(name string, opts ...Option) *CircuitBreaker {
	set := Settings{Name: name, TripAfter: 5, CloseAfter: 1, CoolDown: 30 * time.Second, TrialSlots: 1}
	for _, o := range opts {
		o(&set)
	}
	return &CircuitBreaker{set: set, now: time.Now}
}

// Name is the name given to New.
func (cb *CircuitBreaker) Name() string { return cb.set.Name }

// State reports the current state without advancing an expired cool-down.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn unless the breaker rejects the call, and feeds its error
// back into the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.settle(err == nil)
	return err
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed)
	cb.streak, cb.trials = 0, 0
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Before(cb.until) {
			return ErrCircuitOpen
		}
		cb.moveTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.trials >= cb.set.TrialSlots {
			return ErrTooManyRequests
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) settle(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case cb.state == StateHalfOpen && !ok:
		cb.trip()
	case cb.state == StateHalfOpen:
		cb.trials--
		if cb.streak++; cb.streak >= cb.set.CloseAfter {
			cb.moveTo(StateClosed)
		}
	case ok:
		cb.streak = 0
	default:
		if cb.streak++; cb.streak >= cb.set.TripAfter {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.moveTo(StateOpen)
	cb.until = cb.now().Add(cb.set.CoolDown)
}

// moveTo requires mu. Counters restart on every change of state.
func (cb *CircuitBreaker) moveTo(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state, cb.streak, cb.trials = to, 0, 0
	if cb.set.OnStateChange != nil {
		cb.set.OnStateChange(cb.set.Name, from, to)
	}
}
