package testutil

import (
	"context"
	"sync"

	"link-runtime/internal/domain"
)

// RecordRepo is an in-memory record repository keyed by domain:slug.
type RecordRepo struct {
	mu      sync.Mutex
	records map[string]*domain.RuntimeRecord
	// Err, when set, is returned by every Get.
	Err   error
	Calls int
}

func NewRecordRepo(records ...*domain.RuntimeRecord) *RecordRepo {
	r := &RecordRepo{records: make(map[string]*domain.RuntimeRecord)}
	for _, rec := range records {
		r.records[rec.CacheKey()] = rec
	}
	return r
}

func (r *RecordRepo) Get(ctx context.Context, domainName, slug string) (*domain.RuntimeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}
	rec, ok := r.records[domain.CacheKey(domainName, slug)]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return rec, nil
}

// ClickRecorder is a click sink that keeps every submitted event.
type ClickRecorder struct {
	mu     sync.Mutex
	events []*domain.ClickEvent
}

func (c *ClickRecorder) Submit(e *domain.ClickEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return true
}

func (c *ClickRecorder) Events() []*domain.ClickEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.ClickEvent(nil), c.events...)
}
