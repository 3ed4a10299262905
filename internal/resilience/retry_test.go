package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
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

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"))
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

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		return errors.New("duplicate key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for non-transient), got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond}

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return NewTransientError(errors.New("fail"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls before cancel stopped retries, got %d", calls)
	}
}

func TestDo_CustomShouldRetry(t *testing.T) {
	var calls int
	cfg := fastConfig(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("retry me")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("fail"))
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestDoVal_ReturnsValueOnSuccess(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastConfig(3), func(_ context.Context) (int64, error) {
		calls++
		if calls < 2 {
			return 0, NewTransientError(errors.New("fail"))
		}
		return 611845, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 611845 {
		t.Errorf("expected 611845, got %d", val)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	val, err := DoVal(context.Background(), fastConfig(2), func(_ context.Context) (int, error) {
		return 42, NewTransientError(errors.New("fail"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if val != 0 {
		t.Errorf("expected zero value on failure, got %d", val)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(RetryConfig{JitterFraction: -1})
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 250*time.Millisecond {
		t.Errorf("InitialBackoff = %v", cfg.InitialBackoff)
	}
	if cfg.JitterFraction != 0 {
		t.Errorf("JitterFraction = %v, want 0", cfg.JitterFraction)
	}
	if cfg.ShouldRetry == nil {
		t.Error("ShouldRetry should default to IsTransient")
	}
}

func TestBackoff_CappedAndGrowing(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}

	if got := backoff(0, cfg); got != 100*time.Millisecond {
		t.Errorf("attempt 0: got %v", got)
	}
	if got := backoff(1, cfg); got != 200*time.Millisecond {
		t.Errorf("attempt 1: got %v", got)
	}
	if got := backoff(5, cfg); got != 300*time.Millisecond {
		t.Errorf("attempt 5: got %v, want cap", got)
	}

	cfg.JitterFraction = 0.5
	for i := 0; i < 50; i++ {
		got := backoff(0, cfg)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered delay %v outside ±50%%", got)
		}
	}
}
