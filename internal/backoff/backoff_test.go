package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayGrowsExponentially(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: 30 * time.Second, Factor: 2}
	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
	} {
		if got := p.delayWithRand(attempt, 0); got != want {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, want)
		}
	}
}

func TestDelayClampsToMax(t *testing.T) {
	p := Policy{Initial: time.Second, Max: 5 * time.Second, Factor: 10}
	if got := p.delayWithRand(4, 0); got != 5*time.Second {
		t.Errorf("got %v", got)
	}
}

func TestDelayJitter(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: time.Minute, Factor: 2, Jitter: 0.5}
	base := p.delayWithRand(1, 0)
	jittered := p.delayWithRand(1, 1)
	if jittered != base+base/2 {
		t.Errorf("base %v, jittered %v", base, jittered)
	}
}

func TestSleepWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestSleepWithContextZero(t *testing.T) {
	if err := SleepWithContext(context.Background(), 0); err != nil {
		t.Errorf("got %v", err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	p := Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
	calls := 0
	got, err := Retry(context.Background(), p, 5, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" || calls != 3 {
		t.Errorf("got %q, %v after %d calls", got, err, calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	p := Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
	boom := errors.New("boom")
	_, err := Retry(context.Background(), p, 3, func() (int, error) { return 0, boom })
	if !errors.Is(err, ErrAttemptsExhausted) || !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}
