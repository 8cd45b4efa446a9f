package linking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/guttosm/capitolledger/internal/domain/models"
	"github.com/guttosm/capitolledger/internal/logger"
)

var (
	// ErrRegistryTimeout means a single registry call exceeded its deadline. The row
	// stays unresolved and is picked up by the backfill sweep.
	ErrRegistryTimeout = errors.New("security registry timeout")
	// ErrRegistryUnavailable means the registry kept failing after the retry budget.
	ErrRegistryUnavailable = errors.New("security registry unavailable")
)

const (
	DefaultTimeout = 2 * time.Second
	DefaultRetries = 3
)

// Registry is the part of the security registry the linker calls.
type Registry interface {
	GetOrCreate(ctx context.Context, ticker string) (models.Security, models.LinkOutcome, error)
}

// SecurityLinker attaches trades to registry securities, creating placeholders for
// tickers the registry has not seen.
type SecurityLinker struct {
	registry Registry
	timeout  time.Duration
	retries  int

	// newBackOff builds the retry schedule; tests swap in a zero backoff.
	newBackOff func() backoff.BackOff
}

// NewSecurityLinker builds a linker. Non-positive timeout or negative retries fall
// back to the defaults.
func NewSecurityLinker(registry Registry, timeout time.Duration, retries int) *SecurityLinker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries < 0 {
		retries = DefaultRetries
	}
	return &SecurityLinker{
		registry: registry,
		timeout:  timeout,
		retries:  retries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// Link resolves ticker to a registry entry.
//
// Returns:
//   - ErrRegistryTimeout when one call exceeds the per-call timeout (not retried).
//   - ErrRegistryUnavailable when other failures outlast the retry budget.
//   - ctx.Err() when the caller cancels.
func (l *SecurityLinker) Link(ctx context.Context, ticker string) (models.SecurityRef, models.LinkOutcome, error) {
	var (
		sec     models.Security
		outcome models.LinkOutcome
		attempt int
	)

	op := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		s, o, err := l.registry.GetOrCreate(callCtx, ticker)
		if err == nil {
			sec, outcome = s, o
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return backoff.Permanent(fmt.Errorf("%w: ticker %s after %s", ErrRegistryTimeout, ticker, l.timeout))
		}
		log := logger.Component("linker")
		log.Warn().Str("ticker", ticker).Int("attempt", attempt).Err(err).Msg("registry call failed")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(l.newBackOff(), uint64(l.retries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		switch {
		case errors.Is(err, ErrRegistryTimeout):
			return models.SecurityRef{}, "", err
		case ctx.Err() != nil:
			return models.SecurityRef{}, "", ctx.Err()
		default:
			return models.SecurityRef{}, "", fmt.Errorf("%w: ticker %s after %d attempts: %v", ErrRegistryUnavailable, ticker, attempt, err)
		}
	}
	return sec.Ref(), outcome, nil
}
