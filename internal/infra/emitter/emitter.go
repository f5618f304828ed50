package emitter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"link-runtime/internal/biz"
	"link-runtime/internal/conf"
	"link-runtime/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
)

// Compile-time interface check
var _ biz.ClickSink = (*Emitter)(nil)

// Sink delivers one click event to the downstream pipeline.
// Errors wrapped with backoff.Permanent are not retried.
type Sink interface {
	Name() string
	Send(ctx context.Context, e *domain.ClickEvent) error
}

// Emitter ships click events off the request path. Events go into a bounded
// queue drained by a fixed set of workers; a full queue drops the event.
type Emitter struct {
	sink       Sink
	queue      chan *domain.ClickEvent
	workers    int
	timeout    time.Duration
	maxRetries int
	// retryInterval is the first backoff delay.
	retryInterval time.Duration

	log     *log.Helper
	dropLog *rate.Limiter
	dropped atomic.Int64
	failed  atomic.Int64
	sent    atomic.Int64

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewEmitter creates an emitter. Workers are not running until Start.
func NewEmitter(c *conf.Emitter, sink Sink, logger log.Logger) *Emitter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Emitter{
		sink:          sink,
		queue:         make(chan *domain.ClickEvent, c.QueueSize),
		workers:       c.Workers,
		timeout:       c.Timeout.Duration,
		maxRetries:    c.MaxRetries,
		retryInterval: 100 * time.Millisecond,
		log:           log.NewHelper(log.With(logger, "module", "emitter", "sink", sink.Name())),
		dropLog:       rate.NewLimiter(rate.Every(time.Second), 1),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the workers. Calling it more than once is a no-op.
func (e *Emitter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.work()
	}
	e.log.Infow("msg", "emitter started", "workers", e.workers, "queue_size", cap(e.queue))
}

// Submit enqueues an event without blocking. It reports false when the
// event was dropped because the queue is full or the emitter is stopped.
func (e *Emitter) Submit(ev *domain.ClickEvent) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.drop(ev, "stopped")
		return false
	}
	select {
	case e.queue <- ev:
		return true
	default:
		e.drop(ev, "queue_full")
		return false
	}
}

// Stop stops accepting events and waits for queued events to drain.
// When ctx expires first, in-flight deliveries are cancelled and the rest
// of the queue is discarded.
func (e *Emitter) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	started := e.started
	e.mu.Unlock()

	if !started {
		e.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		e.cancel()
		<-done
	}
	e.cancel()
	e.log.Infow("msg", "emitter stopped",
		"sent", e.sent.Load(),
		"failed", e.failed.Load(),
		"dropped", e.dropped.Load(),
	)
	return err
}

// Dropped returns the number of events dropped at submission.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Failed returns the number of events whose delivery gave up.
func (e *Emitter) Failed() int64 {
	return e.failed.Load()
}

// Sent returns the number of events delivered.
func (e *Emitter) Sent() int64 {
	return e.sent.Load()
}

func (e *Emitter) work() {
	defer e.wg.Done()
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *Emitter) deliver(ev *domain.ClickEvent) {
	if e.ctx.Err() != nil {
		e.failed.Add(1)
		return
	}

	attempts := 0
	op := func() error {
		attempts++
		ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
		defer cancel()
		return e.sink.Send(ctx, ev)
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), uint64(e.maxRetries)), e.ctx)); err != nil {
		e.failed.Add(1)
		e.log.Warnw("msg", "click event delivery failed",
			"event_id", ev.EventID,
			"domain", ev.Domain,
			"slug", ev.Slug,
			"attempts", attempts,
			"error", err,
		)
		return
	}
	e.sent.Add(1)
}

func (e *Emitter) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInterval
	b.MaxInterval = 10 * e.retryInterval
	b.MaxElapsedTime = 0
	return b
}

func (e *Emitter) drop(ev *domain.ClickEvent, reason string) {
	n := e.dropped.Add(1)
	if !e.dropLog.Allow() {
		return
	}
	e.log.Warnw("msg", "click event dropped",
		"reason", reason,
		"event_id", ev.EventID,
		"domain", ev.Domain,
		"slug", ev.Slug,
		"dropped_total", n,
	)
}
