package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fastConfig() BackoffConfig {
	cfg := DefaultBackoffConfig()
	cfg.BaseDelay = time.Millisecond
	return cfg
}

func TestWithExponentialBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithExponentialBackoff(context.Background(), zap.NewNop(), "op", fastConfig(),
		func(_ context.Context, _ int) error {
			calls++
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithExponentialBackoff_RecoversOnRetry(t *testing.T) {
	calls := 0
	err := WithExponentialBackoff(context.Background(), nil, "op", fastConfig(),
		func(_ context.Context, attempt int) error {
			calls++
			if attempt < 2 {
				return errors.New("transient")
			}
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithExponentialBackoff_ExhaustsAndWrapsLastError(t *testing.T) {
	calls := 0
	last := errors.New("last")
	err := WithExponentialBackoff(context.Background(), zap.NewNop(), "op", fastConfig(),
		func(_ context.Context, attempt int) error {
			calls++
			if attempt == 2 {
				return last
			}
			return errors.New("earlier")
		})
	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
	if !errors.Is(err, last) {
		t.Errorf("expected last error to be wrapped, got %v", err)
	}
}

func TestWithExponentialBackoff_NonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastConfig()
	cfg.RetryOnFunc = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := WithExponentialBackoff(context.Background(), zap.NewNop(), "op", cfg,
		func(_ context.Context, _ int) error {
			calls++
			return fatal
		})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithExponentialBackoff_ContextCancelledDuringWait(t *testing.T) {
	cfg := DefaultBackoffConfig()
	cfg.BaseDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithExponentialBackoff(ctx, zap.NewNop(), "op", cfg,
		func(_ context.Context, _ int) error {
			calls++
			cancel()
			return errors.New("boom")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestBackoffConfig_Delay(t *testing.T) {
	cfg := DefaultBackoffConfig()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := cfg.Delay(i); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i, got, w)
		}
	}

	cfg.MaxDelay = 3 * time.Second
	if got := cfg.Delay(5); got != 3*time.Second {
		t.Errorf("expected delay capped at 3s, got %v", got)
	}
}

func TestWithExponentialBackoff_WaitsBetweenAttempts(t *testing.T) {
	cfg := DefaultBackoffConfig()
	cfg.BaseDelay = 20 * time.Millisecond

	var stamps []time.Time
	_ = WithExponentialBackoff(context.Background(), zap.NewNop(), "op", cfg,
		func(_ context.Context, _ int) error {
			stamps = append(stamps, time.Now())
			return errors.New("always")
		})
	if len(stamps) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(stamps))
	}
	if gap := stamps[1].Sub(stamps[0]); gap < 20*time.Millisecond {
		t.Errorf("first gap %v shorter than base delay", gap)
	}
	if gap := stamps[2].Sub(stamps[1]); gap < 40*time.Millisecond {
		t.Errorf("second gap %v shorter than doubled delay", gap)
	}
}
