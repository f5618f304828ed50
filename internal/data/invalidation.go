package data

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"
	"link-runtime/internal/domain/valueobject"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	purgeAll = "*"

	subscribeRetryInterval    = 500 * time.Millisecond
	subscribeMaxRetryInterval = 30 * time.Second
)

// invalidationMessage is the JSON form of an invalidation message.
type invalidationMessage struct {
	Domain string `json:"domain"`
	Slug   string `json:"slug"`
}

// CacheInvalidator evicts cached records when the publisher announces a change
// on a Redis channel. It is optional: without Redis, records age out by TTL.
type CacheInvalidator struct {
	rdb     *redis.Client
	channel string
	cache   RecordCache
	log     *log.Helper

	// retryInterval is the first wait after a failed subscribe.
	retryInterval time.Duration

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	closed bool
	ready  chan struct{}
}

// NewRedisClient creates the Redis client, or returns nil when no address is configured.
func NewRedisClient(c *conf.Redis) *redis.Client {
	if c.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

// NewCacheInvalidator creates the subscriber. A nil client disables it.
func NewCacheInvalidator(c *conf.Redis, rdb *redis.Client, cache RecordCache, logger log.Logger) *CacheInvalidator {
	return &CacheInvalidator{
		rdb:     rdb,
		channel: c.Channel,
		cache:   cache,
		log:     log.NewHelper(logger),
		ready:   make(chan struct{}),

		retryInterval: subscribeRetryInterval,
	}
}

// Enabled reports whether a Redis client is configured.
func (i *CacheInvalidator) Enabled() bool {
	return i.rdb != nil
}

// Ready is closed once the subscription is confirmed.
func (i *CacheInvalidator) Ready() <-chan struct{} {
	return i.ready
}

// Run consumes invalidation messages until ctx is done or Close is called.
// The subscription is retried with backoff while Redis is unreachable;
// redirects are unaffected either way.
func (i *CacheInvalidator) Run(ctx context.Context) error {
	if !i.Enabled() {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.cancel = cancel
	i.mu.Unlock()

	ps, err := i.subscribe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	close(i.ready)
	i.log.Infow("msg", "cache invalidation subscribed", "channel", i.channel)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			i.Apply(msg.Payload)
		}
	}
}

func (i *CacheInvalidator) subscribe(ctx context.Context) (*redis.PubSub, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.retryInterval
	b.MaxInterval = subscribeMaxRetryInterval
	b.MaxElapsedTime = 0

	var ps *redis.PubSub
	op := func() error {
		i.mu.Lock()
		if i.closed {
			i.mu.Unlock()
			return backoff.Permanent(context.Canceled)
		}
		ps = i.rdb.Subscribe(ctx, i.channel)
		i.pubsub = ps
		i.mu.Unlock()

		if _, err := ps.Receive(ctx); err != nil {
			i.mu.Lock()
			owned := i.pubsub == ps
			if owned {
				i.pubsub = nil
			}
			i.mu.Unlock()
			if owned {
				_ = ps.Close()
			}
			return err
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		i.log.Warnw("msg", "cache invalidation subscribe failed, retrying", "channel", i.channel, "retry_in", next, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return ps, nil
}

// Apply evicts the key named by payload: "*", "domain:SLUG" or {"domain":..,"slug":..}.
func (i *CacheInvalidator) Apply(payload string) {
	payload = strings.TrimSpace(payload)
	if payload == purgeAll {
		i.cache.Purge()
		i.log.Infow("msg", "record cache purged")
		return
	}
	key, err := parseInvalidation(payload)
	if err != nil {
		i.log.Warnw("msg", "ignoring invalidation message", "payload", payload, "error", err)
		return
	}
	i.cache.Invalidate(key)
	i.log.Debugw("msg", "record cache entry invalidated", "key", key)
}

// Close ends the subscription and closes the client.
func (i *CacheInvalidator) Close() error {
	if !i.Enabled() {
		return nil
	}
	i.mu.Lock()
	i.closed = true
	ps := i.pubsub
	i.pubsub = nil
	if i.cancel != nil {
		i.cancel()
	}
	i.mu.Unlock()
	var err error
	if ps != nil {
		err = ps.Close()
	}
	return errors.Join(err, i.rdb.Close())
}

func parseInvalidation(payload string) (string, error) {
	var m invalidationMessage
	if strings.HasPrefix(payload, "{") {
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return "", domain.ErrMalformedInput
		}
	} else {
		d, s, ok := strings.Cut(payload, ":")
		if !ok {
			return "", domain.ErrMalformedInput
		}
		m = invalidationMessage{Domain: d, Slug: s}
	}
	host, err := valueobject.NewHost(m.Domain)
	if err != nil {
		return "", err
	}
	slug, err := valueobject.NewSlug(m.Slug)
	if err != nil {
		return "", err
	}
	return domain.CacheKey(host.String(), slug.String()), nil
}
