package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "primary" {
		t.Fatalf("result = %q, want primary", got)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "primary" {
			return "", errTest
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "secondary" {
		t.Fatalf("result = %q, want secondary", got)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	_, err := ExecuteWithResult(fg, func(string) (string, error) {
		return "", errTest
	})
	if err == nil {
		t.Fatal("expected error when all backends fail")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("secondary", "secondary")

	// Fail the primary enough to open its breaker.
	for range 2 {
		_, _ = ExecuteWithResult(fg, func(v string) (string, error) {
			if v == "primary" {
				return "", errTest
			}
			return v, nil
		})
	}

	// With the primary's breaker open, calls must not reach it anymore.
	primaryCalls := 0
	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "primary" {
			primaryCalls++
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primaryCalls != 0 {
		t.Errorf("primary was called %d times with an open breaker", primaryCalls)
	}
	if got != "secondary" {
		t.Fatalf("result = %q, want secondary", got)
	}
}

func TestFallbackGroup_NoFallbacks(t *testing.T) {
	fg := NewFallbackGroup("only", "only", FallbackConfig{})

	_, err := ExecuteWithResult(fg, func(string) (string, error) {
		return "", errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}

	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "only" {
		t.Fatalf("result = %q, want only", got)
	}
}
