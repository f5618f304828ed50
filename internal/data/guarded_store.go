package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sony/gobreaker"
)

// guardedStore bounds every read with a timeout and a circuit breaker.
// While the breaker is open reads fail fast with domain.ErrStoreUnavailable.
type guardedStore struct {
	next    RecordStore
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedStore wraps a RecordStore. A missing item does not count as a failure.
func NewGuardedStore(next RecordStore, c *conf.Store, logger log.Logger) RecordStore {
	helper := log.NewHelper(logger)
	settings := gobreaker.Settings{
		Name:        "record-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     c.Breaker.OpenTimeout.Duration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.Breaker.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			helper.Warnw("msg", "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrRecordNotFound)
		},
	}
	return &guardedStore{
		next:    next,
		timeout: c.Timeout.Duration,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (s *guardedStore) GetRecord(ctx context.Context, domainName, slug string) (*domain.RuntimeRecord, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return s.next.GetRecord(ctx, domainName, slug)
	})
	switch {
	case err == nil:
		return v.(*domain.RuntimeRecord), nil
	case errors.Is(err, domain.ErrRecordNotFound):
		return nil, err
	default:
		// Includes gobreaker.ErrOpenState while the breaker is open.
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
}
