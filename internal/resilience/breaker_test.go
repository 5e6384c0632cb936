package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failure")

func failing() error { return errUpstream }
func succeeding() error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Execute(succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker must reject: %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	_ = b.Execute(failing)
	_ = b.Execute(failing)
	_ = b.Execute(succeeding)
	_ = b.Execute(failing)
	_ = b.Execute(failing)

	if b.State() != StateClosed {
		t.Errorf("state = %v, interleaved success must keep the circuit closed", b.State())
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	_ = b.Execute(failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	// Before the cooldown the probe is rejected.
	if err := b.Execute(succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("pre-cooldown call admitted: %v", err)
	}

	clock = clock.Add(time.Minute)
	if err := b.Execute(succeeding); err != nil {
		t.Fatalf("half-open probe should run: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, successful probe must close", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	_ = b.Execute(failing)
	clock = clock.Add(time.Minute)
	_ = b.Execute(failing)

	if b.State() != StateOpen {
		t.Fatalf("state = %v, failed probe must reopen", b.State())
	}
	if err := b.Execute(succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("reopened breaker admitted a call: %v", err)
	}
}
