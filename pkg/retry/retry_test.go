package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "xgrab/pkg/errors"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0, // No jitter for predictable testing
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
		{6, 1 * time.Second, "Sixth attempt (still capped)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		delays[backoff.NextDelay(2)] = true
	}

	if len(delays) < 2 {
		t.Error("Expected multiple different delays with jitter, but got consistent delays")
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 50 * time.Millisecond}
	for attempt := 1; attempt <= 3; attempt++ {
		if delay := backoff.NextDelay(attempt); delay != 50*time.Millisecond {
			t.Errorf("attempt %d: expected constant delay, got %v", attempt, delay)
		}
	}
	if delay := backoff.NextDelay(0); delay != 0 {
		t.Errorf("expected zero delay for attempt 0, got %v", delay)
	}
}

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeRateLimit, "rate limited")
		}
		return nil
	}

	if err := Do(op, testConfig(5)); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errs.New(errs.ErrorTypeRateLimit, "rate limited")
	}

	err := Do(op, testConfig(3))
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", attempts)
	}
	if !errs.IsRateLimit(err) {
		t.Errorf("Expected the underlying rate-limit error to be unwrappable, got %v", err)
	}
}

func TestRetryNonRetryableError(t *testing.T) {
	attempts := 0
	opErr := errs.New(errs.ErrorTypeNetwork, "connection refused")
	op := func() error {
		attempts++
		return opErr
	}

	err := Do(op, testConfig(3))
	if !errors.Is(err, opErr) && err != opErr {
		t.Errorf("Expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestRetryCancellationNotRetried(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errs.New(errs.ErrorTypeCancelled, "aborted")
	}

	Do(op, testConfig(3))
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for cancellation, got %d", attempts)
	}
}

func TestRetryOnRetryCallback(t *testing.T) {
	var retries []int
	cfg := testConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	}

	op := func() error {
		return errs.New(errs.ErrorTypeRateLimit, "rate limited")
	}
	Do(op, cfg)

	// Two waits between three attempts; no callback after the final failure
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("Expected callbacks for attempts [1 2], got %v", retries)
	}
}

func TestRetryContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Second},
		RetryIf:     DefaultRetryIf,
		Context:     ctx,
		OnRetry:     func(int, error, time.Duration) { cancel() },
	}

	attempts := 0
	start := time.Now()
	err := Do(func() error {
		attempts++
		return errs.New(errs.ErrorTypeRateLimit, "rate limited")
	}, cfg)

	if !errs.IsCancelled(err) {
		t.Errorf("Expected cancelled error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Cancellation should cut the wait short")
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errs.New(errs.ErrorTypeRateLimit, "rate limited")
		}
		return "payload", nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result != "payload" {
		t.Errorf("Expected result to survive the retry, got %q", result)
	}
}

func TestWait(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Zero delay should return immediately, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); err == nil {
		t.Error("Expected error when waiting on a cancelled context")
	}
}
