package data

import (
	"time"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RecordCache holds recently read records, and recent misses, for a bounded time.
// Implementations must be safe for concurrent use.
type RecordCache interface {
	// Get returns the cached record and true on a hit. A cached miss is a hit
	// with a nil record.
	Get(key string) (*domain.RuntimeRecord, bool)
	Set(key string, rec *domain.RuntimeRecord)
	SetAbsent(key string)
	Invalidate(key string)
	Purge()
}

// Compile-time interface checks
var (
	_ RecordCache = (*lruRecordCache)(nil)
	_ RecordCache = (*noopRecordCache)(nil)
)

type cacheEntry struct {
	rec       *domain.RuntimeRecord
	expiresAt time.Time
}

// lruRecordCache is a size-bounded LRU whose entries also expire.
type lruRecordCache struct {
	entries     *lru.Cache[string, cacheEntry]
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

// NewRecordCache creates the per-process record cache.
// A non-positive TTL disables caching.
func NewRecordCache(c *conf.Cache) (RecordCache, error) {
	if c.TTL.Duration <= 0 {
		return &noopRecordCache{}, nil
	}
	entries, err := lru.New[string, cacheEntry](c.MaxEntries)
	if err != nil {
		return nil, err
	}
	return &lruRecordCache{
		entries:     entries,
		ttl:         c.TTL.Duration,
		negativeTTL: c.NegativeTTL.Duration,
		now:         time.Now,
	}, nil
}

func (c *lruRecordCache) Get(key string) (*domain.RuntimeRecord, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return nil, false
	}
	return e.rec, true
}

func (c *lruRecordCache) Set(key string, rec *domain.RuntimeRecord) {
	c.entries.Add(key, cacheEntry{rec: rec, expiresAt: c.now().Add(c.ttl)})
}

func (c *lruRecordCache) SetAbsent(key string) {
	if c.negativeTTL <= 0 {
		return
	}
	c.entries.Add(key, cacheEntry{expiresAt: c.now().Add(c.negativeTTL)})
}

func (c *lruRecordCache) Invalidate(key string) {
	c.entries.Remove(key)
}

func (c *lruRecordCache) Purge() {
	c.entries.Purge()
}

// noopRecordCache is used when caching is disabled.
type noopRecordCache struct{}

func (noopRecordCache) Get(string) (*domain.RuntimeRecord, bool) { return nil, false }
func (noopRecordCache) Set(string, *domain.RuntimeRecord)        {}
func (noopRecordCache) SetAbsent(string)                         {}
func (noopRecordCache) Invalidate(string)                        {}
func (noopRecordCache) Purge()                                   {}
