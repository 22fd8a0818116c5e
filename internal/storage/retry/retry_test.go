package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ragstore/engine/internal/storeerr"
)

func TestIsTransientClassifiesPgErrorCodes(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"40001", true},  // serialization_failure
		{"40P01", true},  // deadlock_detected
		{"08006", true},  // connection_exception class
		{"23505", false}, // unique_violation, not transient
		{"42601", false}, // syntax_error, not transient
	}
	for _, tc := range cases {
		err := &pgconn.PgError{Code: tc.code}
		if got := IsTransient(err); got != tc.want {
			t.Errorf("IsTransient(code=%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsTransientNeverRetriesContextErrors(t *testing.T) {
	if IsTransient(context.DeadlineExceeded) {
		t.Error("IsTransient(context.DeadlineExceeded) = true, want false")
	}
	if IsTransient(context.Canceled) {
		t.Error("IsTransient(context.Canceled) = true, want false")
	}
}

func TestIsTransientTreatsConnectErrorAsTransient(t *testing.T) {
	err := &pgconn.ConnectError{}
	if !IsTransient(err) {
		t.Error("IsTransient(*pgconn.ConnectError) = false, want true")
	}
}

func TestDoStopsRetryingOnPermanentError(t *testing.T) {
	permanent := &pgconn.PgError{Code: "23505"}
	attempts := 0
	err := Do(context.Background(), "test-op", Policy{MaxElapsedTime: time.Second}, func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("Do returned %v, want it to unwrap to the permanent error", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a non-transient error", attempts)
	}
}

func TestDoRetriesTransientErrorsUntilSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), "test-op", Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}, func() error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoCapsAttemptsAtDefaultMaxRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), "test-op", Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Minute, // large enough that the retry count, not elapsed time, is what stops this
	}, func() error {
		attempts++
		return &pgconn.PgError{Code: "40001"}
	})
	if !errors.Is(err, storeerr.ErrTransient) {
		t.Errorf("err = %v, want it to wrap %v", err, storeerr.ErrTransient)
	}
	if attempts != 4 { // 1 initial attempt + 3 retries, the §4.11 default
		t.Errorf("attempts = %d, want 4 (1 initial + default MaxRetries=3)", attempts)
	}
}

func TestDoRespectsExplicitMaxRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), "test-op", Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Minute,
		MaxRetries:      1,
	}, func() error {
		attempts++
		return &pgconn.PgError{Code: "40001"}
	})
	if !errors.Is(err, storeerr.ErrTransient) {
		t.Errorf("err = %v, want it to wrap %v", err, storeerr.ErrTransient)
	}
	if attempts != 2 { // 1 initial attempt + MaxRetries(1)
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestPolicyZeroValueAppliesSpecDefaults(t *testing.T) {
	var p Policy
	eb := p.exponentialBackOff()
	if eb.InitialInterval != 200*time.Millisecond {
		t.Errorf("InitialInterval = %v, want 200ms", eb.InitialInterval)
	}
	if eb.MaxInterval != 5*time.Second {
		t.Errorf("MaxInterval = %v, want 5s", eb.MaxInterval)
	}
	if eb.Multiplier != 2 {
		t.Errorf("Multiplier = %v, want 2", eb.Multiplier)
	}
	if eb.MaxElapsedTime != 30*time.Second {
		t.Errorf("MaxElapsedTime = %v, want 30s", eb.MaxElapsedTime)
	}
	if p.maxRetries() != 3 {
		t.Errorf("maxRetries() = %d, want 3", p.maxRetries())
	}
}

func TestPolicyMultiplierOverridesDefault(t *testing.T) {
	p := Policy{Multiplier: 3}
	if got := p.exponentialBackOff().Multiplier; got != 3 {
		t.Errorf("Multiplier = %v, want 3 (explicit override)", got)
	}
}

func TestDoExhaustsBudgetAsTransient(t *testing.T) {
	err := Do(context.Background(), "test-op", Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  20 * time.Millisecond,
	}, func() error {
		return &pgconn.PgError{Code: "40001"}
	})
	if !errors.Is(err, storeerr.ErrTransient) {
		t.Errorf("err = %v, want it to wrap %v", err, storeerr.ErrTransient)
	}
}
