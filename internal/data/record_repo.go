package data

import (
	"context"
	"errors"
	"fmt"

	"link-runtime/internal/biz"
	"link-runtime/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/singleflight"
)

// RecordStore reads one record from the backing store.
// It returns domain.ErrRecordNotFound when no item exists at the key.
type RecordStore interface {
	GetRecord(ctx context.Context, domain, slug string) (*domain.RuntimeRecord, error)
}

// Compile-time interface check
var _ biz.RecordRepo = (*cachedRecordRepo)(nil)

// cachedRecordRepo wraps a RecordStore with the per-process cache.
// Concurrent misses for the same key share one store read.
type cachedRecordRepo struct {
	store RecordStore
	cache RecordCache
	group singleflight.Group
	log   *log.Helper
}

// NewRecordRepo creates the cache-first record repository.
func NewRecordRepo(store RecordStore, cache RecordCache, logger log.Logger) biz.RecordRepo {
	return &cachedRecordRepo{
		store: store,
		cache: cache,
		log:   log.NewHelper(logger),
	}
}

// Get returns the record at (domain, slug), reading through the cache.
// Store failures are reported as domain.ErrStoreUnavailable and never cached.
func (r *cachedRecordRepo) Get(ctx context.Context, domainName, slug string) (*domain.RuntimeRecord, error) {
	key := domain.CacheKey(domainName, slug)
	if rec, ok := r.cache.Get(key); ok {
		if rec == nil {
			return nil, domain.ErrRecordNotFound
		}
		return rec, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// One caller going away must not fail the others sharing this read.
		rec, err := r.store.GetRecord(context.WithoutCancel(ctx), domainName, slug)
		switch {
		case err == nil:
			r.cache.Set(key, rec)
			return rec, nil
		case errors.Is(err, domain.ErrRecordNotFound):
			r.cache.SetAbsent(key)
			return nil, err
		default:
			return nil, err
		}
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err
		}
		r.log.WithContext(ctx).Warnw("msg", "record store read failed", "domain", domainName, "slug", slug, "error", err)
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return v.(*domain.RuntimeRecord), nil
}
