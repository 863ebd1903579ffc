// Package breaker implements the three-state circuit protecting batch
// reads against a failing bd backend. All retry and backoff decisions
// live here; call sites only report success or failure and never
// retry on their own.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/bdboard/internal/debug"
	"github.com/steveyegge/bdboard/internal/telemetry"
)

// Default protocol parameters.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
	DefaultMaxAutoRetries   = 3
)

// State is the circuit position.
type State int

// Circuit states
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
		return "half-open"
	}
	return "unknown"
}

// OpenError is returned when the circuit rejects an attempt without
// spawning a process.
type OpenError struct {
	// RetryIn is how long until the next recovery probe may run.
	RetryIn time.Duration
	// AutoRetry is false once automatic probes are exhausted and a
	// manual reset is required.
	AutoRetry bool
}

func (e *OpenError) Error() string {
	if e.AutoRetry {
		return fmt.Sprintf("bd backend unavailable, retrying automatically in %s", e.RetryIn.Round(time.Second))
	}
	return "bd backend unavailable, automatic retries exhausted (reset the circuit to try again)"
}

// Config tunes a Breaker. Zero values select the defaults; Now exists
// for tests that need a fake clock.
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	MaxAutoRetries   int
	Now              func() time.Time
}

// Snapshot is a point-in-time copy of the breaker state for
// diagnostics surfaces.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	AutoRetryCount      int
	OpenedAt            time.Time
	RetryIn             time.Duration
}

// Breaker tracks consecutive batch failures and gates new batch
// attempts. One Breaker belongs to one client instance; there are no
// package globals, so independent workspaces cannot share failure
// history.
type Breaker struct {
	mu sync.Mutex

	cfg   Config
	state State

	consecutiveFailures int
	autoRetryCount      int
	openedAt            time.Time

	probe func()
	timer *time.Timer
	bo    *backoff.ExponentialBackOff
}

// New creates a closed Breaker with default parameters. probe is
// invoked (on a timer goroutine) when an automatic recovery attempt
// should run; it may be nil if only caller traffic drives probing.
func New(probe func()) *Breaker {
	return NewWithConfig(Config{}, probe)
}

// NewWithConfig creates a Breaker with explicit parameters.
func NewWithConfig(cfg Config, probe func()) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.MaxAutoRetries <= 0 {
		cfg.MaxAutoRetries = DefaultMaxAutoRetries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg, probe: probe}
	b.bo = newProbeBackoff(cfg.ResetTimeout)
	return b
}

// newProbeBackoff builds the schedule for automatic recovery probes:
// the first fires one reset-timeout after opening, later ones double.
func newProbeBackoff(resetTimeout time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = resetTimeout
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 10 * resetTimeout
	bo.MaxElapsedTime = 0 // never give up by elapsed time; the retry cap governs
	bo.Reset()
	return bo
}

// Allow reports whether a batch attempt may proceed. In the open
// state the check lazily advances to half-open once the reset timeout
// has elapsed, letting the caller's request serve as the probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return nil
	case StateOpen:
		elapsed := b.cfg.Now().Sub(b.openedAt)
		if elapsed >= b.cfg.ResetTimeout {
			b.transition(StateHalfOpen)
			return nil
		}
		// A pending timer means a scheduled probe has not fired yet,
		// so automatic recovery is still coming even when the schedule
		// counter has reached the cap.
		return &OpenError{
			RetryIn:   b.cfg.ResetTimeout - elapsed,
			AutoRetry: b.timer != nil || b.autoRetryCount < b.cfg.MaxAutoRetries,
		}
	}
	return nil
}

// RecordSuccess reports a fully successful batch attempt.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.close()
		return
	}
	b.consecutiveFailures = 0
}

// RecordFailure reports a batch attempt in which every sub-unit
// failed.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.open()
		return
	}
	b.consecutiveFailures++
	if b.state == StateClosed && b.consecutiveFailures >= b.cfg.FailureThreshold {
		b.open()
	}
}

// RecordPartial reports a batch attempt in which some sub-units
// succeeded and some failed. Partial degradation earns one unit of
// failure forgiveness rather than counting against the threshold; in
// half-open it counts as recovery, since the backend demonstrably
// answered part of the batch.
func (b *Breaker) RecordPartial() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.close()
		return
	}
	if b.consecutiveFailures > 0 {
		b.consecutiveFailures--
	}
}

// Reset forces the circuit closed and clears all counters and any
// pending probe timer. Called on manual operator reset and whenever
// the client switches workspaces, since failure history from one
// target is meaningless for another.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.close()
}

// Snapshot returns a copy of the current state for diagnostics.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		AutoRetryCount:      b.autoRetryCount,
		OpenedAt:            b.openedAt,
	}
	if b.state == StateOpen {
		if remaining := b.cfg.ResetTimeout - b.cfg.Now().Sub(b.openedAt); remaining > 0 {
			s.RetryIn = remaining
		}
	}
	return s
}

// close moves to closed and clears all bookkeeping, including the
// automatic probe budget: a recovered backend earns a full schedule
// for its next outage. Caller holds the lock.
func (b *Breaker) close() {
	b.transition(StateClosed)
	b.consecutiveFailures = 0
	b.autoRetryCount = 0
	b.stopTimer()
	b.bo.Reset()
}

// open moves to open, stamps openedAt and schedules an automatic
// recovery probe if the cap allows. Caller holds the lock.
func (b *Breaker) open() {
	b.transition(StateOpen)
	b.openedAt = b.cfg.Now()
	b.stopTimer()

	if b.probe == nil || b.autoRetryCount >= b.cfg.MaxAutoRetries {
		debug.Warnf("breaker: open, automatic retries exhausted (%d)", b.autoRetryCount)
		return
	}
	b.autoRetryCount++
	delay := b.bo.NextBackOff()
	debug.Logf("breaker: open, probe %d/%d scheduled in %s", b.autoRetryCount, b.cfg.MaxAutoRetries, delay)
	b.timer = time.AfterFunc(delay, b.fireProbe)
}

// fireProbe runs on the timer goroutine when the scheduled recovery
// moment arrives.
func (b *Breaker) fireProbe() {
	b.mu.Lock()
	if b.state != StateOpen {
		b.mu.Unlock()
		return
	}
	b.transition(StateHalfOpen)
	probe := b.probe
	b.mu.Unlock()

	if probe != nil {
		probe()
	}
}

// stopTimer cancels any pending probe. Caller holds the lock.
func (b *Breaker) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// transition records a state change. Caller holds the lock.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	debug.Logf("breaker: %s -> %s", b.state, to)
	telemetry.RecordBreakerTransition(context.Background(), b.state.String(), to.String())
	b.state = to
}
