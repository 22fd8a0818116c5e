// Package retry wraps server-backend operations with exponential backoff
// for transient faults (§4.11), grounded on the teacher's use of
// cenkalti/backoff/v4 in internal/storage/dolt/store.go.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ragstore/engine/internal/obs"
	"github.com/ragstore/engine/internal/storeerr"
)

// Policy bounds the backoff schedule. Zero value yields sane defaults
// matching §4.11: initial 200ms, factor 2, max single delay 5s, max total
// 30s, up to 3 retries.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Multiplier      float64
	MaxRetries      uint64
}

// exponentialBackOff builds the *backoff.ExponentialBackOff for p, applying
// the §4.11 defaults (200ms initial, factor 2, 5s max interval, 30s max
// elapsed) for any zero field. Split out from backoffFor so the defaulting
// logic is directly testable.
func (p Policy) exponentialBackOff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	eb.MaxInterval = 5 * time.Second
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.Multiplier = 2
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}
	eb.MaxElapsedTime = 30 * time.Second
	if p.MaxElapsedTime > 0 {
		eb.MaxElapsedTime = p.MaxElapsedTime
	}
	return eb
}

func (p Policy) maxRetries() uint64 {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return 3
}

func (p Policy) backoffFor(ctx context.Context) backoff.BackOff {
	// WithMaxRetries must wrap the plain exponential backoff, not the
	// BackOffContext returned by WithContext below — it does not preserve
	// the BackOffContext interface, and backoff.Retry only honors ctx
	// cancellation through that interface.
	return backoff.WithContext(backoff.WithMaxRetries(p.exponentialBackOff(), p.maxRetries()), ctx)
}

// Do retries fn while isTransient(err) holds, recording each retry via the
// obs package. A non-transient error, or exhaustion of the backoff budget,
// is returned unwrapped except for classification into ErrTransient when
// the budget runs out while the last error was itself transient.
func Do(ctx context.Context, opName string, policy Policy, fn func() error) error {
	retried := false
	var permanentErr error
	step := func() error {
		err := fn()
		if err == nil {
			if retried {
				obs.RecordRetry(ctx, opName, true)
			}
			return nil
		}
		if !IsTransient(err) {
			permanentErr = err
			return backoff.Permanent(err)
		}
		retried = true
		obs.RecordRetry(ctx, opName, false)
		return err
	}

	err := backoff.Retry(step, policy.backoffFor(ctx))
	if err == nil {
		return nil
	}
	if permanentErr != nil {
		return permanentErr
	}
	return storeerr.WithCause(storeerr.ErrTransient, err)
}

// IsTransient classifies pgx/postgres faults that are worth retrying:
// connection failures (*pgconn.ConnectError), the Postgres error class for
// connection exceptions (08*), and the serialization/deadlock codes
// (40001, 40P01) per §4.11. Context deadline and cancellation errors are
// never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false // caller-initiated cancellation is never retried
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" { // connection_exception class
			return true
		}
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	return false
}
