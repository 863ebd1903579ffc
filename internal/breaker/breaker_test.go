package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock) *Breaker {
	return NewWithConfig(Config{Now: clock.Now}, nil)
}

func TestClosedUntilThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure()
		require.NoError(t, b.Allow(), "failure %d should not open the circuit", i+1)
	}
	b.RecordFailure() // fifth consecutive failure
	err := b.Allow()
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.True(t, openErr.AutoRetry)
	assert.Equal(t, StateOpen, b.Snapshot().State)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure()
	}
	assert.NoError(t, b.Allow(), "counter should have reset on success")
}

func TestProbeAllowedAfterResetTimeout(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	require.Error(t, b.Allow())

	// One millisecond past the reset timeout the request goes through
	// as a recovery probe.
	clock.Advance(DefaultResetTimeout + time.Millisecond)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.Snapshot().State)

	// Probe success closes the circuit and clears counters.
	b.RecordSuccess()
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Equal(t, 0, snap.AutoRetryCount)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	clock.Advance(DefaultResetTimeout + time.Millisecond)
	require.NoError(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.Snapshot().State)

	// The new open period starts from the failed probe, not from the
	// original trip.
	assert.Error(t, b.Allow())
}

func TestPartialBatchForgiveness(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	// Four failures, then a partially-degraded batch: the partial
	// credits one unit of forgiveness, so one more failure still does
	// not trip the breaker.
	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure()
	}
	b.RecordPartial()
	b.RecordFailure()
	assert.NoError(t, b.Allow())

	b.RecordFailure()
	assert.Error(t, b.Allow())
}

func TestPartialInHalfOpenCloses(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	clock.Advance(DefaultResetTimeout + time.Millisecond)
	require.NoError(t, b.Allow())

	// The backend answered part of the batch: recovery.
	b.RecordPartial()
	assert.Equal(t, StateClosed, b.Snapshot().State)
}

func TestResetClearsEverything(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	b.Reset()
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Equal(t, 0, snap.AutoRetryCount)
	assert.NoError(t, b.Allow())
}

func TestAutomaticProbeFires(t *testing.T) {
	probed := make(chan struct{}, 1)
	var b *Breaker
	b = NewWithConfig(Config{ResetTimeout: 20 * time.Millisecond}, func() {
		probed <- struct{}{}
		b.RecordSuccess()
	})

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}

	select {
	case <-probed:
	case <-time.After(2 * time.Second):
		t.Fatal("automatic recovery probe never fired")
	}

	// Successful probe closes the circuit.
	require.Eventually(t, func() bool {
		return b.Snapshot().State == StateClosed
	}, time.Second, 5*time.Millisecond)
}

func TestAutomaticProbesCapped(t *testing.T) {
	var mu sync.Mutex
	probes := 0
	// A frozen clock keeps Allow() from lazily half-opening, so the
	// rejection path past the cap stays observable; the probe timers
	// run on real time regardless.
	clock := newFakeClock()
	var b *Breaker
	b = NewWithConfig(Config{ResetTimeout: 10 * time.Millisecond, MaxAutoRetries: 2, Now: clock.Now}, func() {
		mu.Lock()
		probes++
		mu.Unlock()
		b.RecordFailure() // every probe fails
	})

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}

	// Wait long enough for any over-scheduled probes to have fired.
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	got := probes
	mu.Unlock()
	assert.Equal(t, 2, got, "automatic probes must stop at the cap")

	err := b.Allow()
	var openErr *OpenError
	require.True(t, errors.As(err, &openErr))
	assert.False(t, openErr.AutoRetry, "operator should be told manual reset is required")
}

func TestRecoveryRestoresProbeBudget(t *testing.T) {
	var mu sync.Mutex
	probes := 0
	clock := newFakeClock()
	var b *Breaker
	b = NewWithConfig(Config{ResetTimeout: 10 * time.Millisecond, MaxAutoRetries: 2, Now: clock.Now}, func() {
		mu.Lock()
		probes++
		mu.Unlock()
		b.RecordFailure()
	})

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}

	// Burn the whole automatic budget on failing probes.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return probes == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Caller traffic recovers the circuit once the reset timeout has
	// elapsed.
	clock.Advance(11 * time.Millisecond)
	require.NoError(t, b.Allow())
	b.RecordSuccess()

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.AutoRetryCount, "recovery must restore the probe budget")

	// A later outage gets automatic probes again rather than an
	// immediate "manual reset required".
	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	snap = b.Snapshot()
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, 1, snap.AutoRetryCount, "a fresh probe should be scheduled")
}

func TestPendingProbeCountsAsAutoRetry(t *testing.T) {
	clock := newFakeClock()
	// One probe in the budget, scheduled an hour out so it is still
	// pending when the caller is rejected.
	b := NewWithConfig(Config{ResetTimeout: time.Hour, MaxAutoRetries: 1, Now: clock.Now}, func() {})

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}

	err := b.Allow()
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.True(t, openErr.AutoRetry, "the scheduled probe has not fired yet")
}

func TestSnapshotRetryIn(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	clock.Advance(15 * time.Second)
	snap := b.Snapshot()
	assert.Equal(t, 45*time.Second, snap.RetryIn)
}
