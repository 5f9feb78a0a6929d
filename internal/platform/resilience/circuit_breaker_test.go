package resilience

import (
	"fmt"
	"testing"
	"time"

	"reconbus/internal/platform/errors"
	"reconbus/internal/testutil"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: threshold, Cooldown: cooldown, HalfOpenMax: 1})
	cb.now = c.now
	return cb, c
}

func TestNewCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{})
	testutil.AssertEqual(t, cb.cfg.FailureThreshold, 5, "threshold")
	testutil.AssertEqual(t, cb.cfg.Cooldown, 60*time.Second, "cooldown")
	testutil.AssertEqual(t, cb.State(), StateClosed, "starts closed")
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	testutil.AssertTrue(t, cb.Allow(), "below threshold")
	cb.RecordFailure()

	testutil.AssertEqual(t, cb.State(), StateOpen, "open")
	testutil.AssertFalse(t, cb.Allow(), "rejects while open")
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	testutil.AssertEqual(t, cb.State(), StateClosed, "failures not consecutive")
	testutil.AssertEqual(t, cb.Failures(), 1, "count reset by success")
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		cb, c := newTestBreaker(1, time.Minute)
		cb.RecordFailure()
		c.t = c.t.Add(2 * time.Minute)

		testutil.AssertEqual(t, cb.State(), StateHalfOpen, "cooldown elapsed")
		testutil.AssertTrue(t, cb.Allow(), "probe allowed")
		testutil.AssertFalse(t, cb.Allow(), "one probe at a time")
		cb.RecordSuccess()
		testutil.AssertEqual(t, cb.State(), StateClosed, "closed after probe success")
	})

	t.Run("failure reopens", func(t *testing.T) {
		cb, c := newTestBreaker(3, time.Minute)
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordFailure()
		c.t = c.t.Add(2 * time.Minute)

		testutil.AssertTrue(t, cb.Allow(), "probe allowed")
		cb.RecordFailure()
		testutil.AssertEqual(t, cb.State(), StateOpen, "reopened")
		testutil.AssertFalse(t, cb.Allow(), "rejects again")
	})
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	notFound := errors.Wrap(errors.ErrNotFound, "404")

	err := cb.Execute(func() error { return notFound }, errors.IsTransient)
	testutil.AssertTrue(t, errors.IsNotFound(err), "error returned")
	testutil.AssertEqual(t, cb.State(), StateClosed, "permanent error does not count")

	calls := 0
	err = cb.Execute(func() error { calls++; return fmt.Errorf("dial: %w", errors.ErrConnectionFailed) }, errors.IsTransient)
	testutil.AssertTrue(t, errors.IsConnectionFailed(err), "transient error returned")

	err = cb.Execute(func() error { calls++; return nil }, nil)
	testutil.AssertTrue(t, errors.IsCircuitOpen(err), "open circuit short-circuits")
	testutil.AssertEqual(t, calls, 1, "fn not called while open")
}

func TestGroup(t *testing.T) {
	g := NewGroup(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})

	g.Get("a.example.com").RecordFailure()
	testutil.AssertTrue(t, g.Get("a.example.com") == g.Get("a.example.com"), "same breaker per key")
	testutil.AssertTrue(t, g.Get("b.example.com").Allow(), "keys are independent")

	states := g.States()
	testutil.AssertEqual(t, states["a.example.com"], StateOpen, "a open")
	testutil.AssertEqual(t, states["b.example.com"], StateClosed, "b closed")
	testutil.AssertEqual(t, StateHalfOpen.String(), "half-open", "state name")
}
