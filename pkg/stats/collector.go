package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-batches/pkg/core"
	"github.com/jdziat/simple-durable-batches/pkg/queue"
)

// Collector subscribes to queue events and periodically snapshots timer job depth.
type Collector struct {
	queue     *queue.Queue
	stats     Storage
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	counters map[string]*Counters

	// ready is closed once the collector has subscribed to events and is processing.
	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures the Collector.
type Option interface {
	apply(*Collector)
}

type optionFunc func(*Collector)

func (f optionFunc) apply(c *Collector) { f(c) }

// WithRetention sets how long stats rows are kept. Zero keeps them forever.
func WithRetention(d time.Duration) Option {
	return optionFunc(func(c *Collector) {
		c.retention = d
	})
}

// WithInterval sets how often counters are flushed and depth is sampled.
func WithInterval(d time.Duration) Option {
	return optionFunc(func(c *Collector) {
		if d > 0 {
			c.interval = d
		}
	})
}

// WithLogger sets the logger for storage failures.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	})
}

// NewCollector creates a new Collector.
func NewCollector(q *queue.Queue, stats Storage, opts ...Option) *Collector {
	c := &Collector{
		queue:     q,
		stats:     stats,
		interval:  time.Minute,
		retention: 7 * 24 * time.Hour,
		logger:    zap.NewNop(),
		counters:  make(map[string]*Counters),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c
}

// WaitReady blocks until the collector has subscribed to events.
func (c *Collector) WaitReady() {
	<-c.ready
}

// Start begins the event listener and periodic snapshot ticker.
// Blocks until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	events := c.queue.Events()
	defer c.queue.Unsubscribe(events)

	c.readyOnce.Do(func() { close(c.ready) })

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.Flush(flushCtx)
			cancel()
			return
		case e := <-events:
			c.handleEvent(e)
		case <-ticker.C:
			c.Flush(ctx)
			c.snapshot(ctx)
			c.prune(ctx)
		}
	}
}

func (c *Collector) handleEvent(e core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := e.(type) {
	case *core.JobExecuted:
		c.getCounters(ev.Job).Executed++
	case *core.JobRetrying:
		c.getCounters(ev.Job).Retried++
	case *core.JobFailed:
		c.getCounters(ev.Job).Failed++
	case *core.BatchFinalized:
		switch ev.Status {
		case core.BatchStatusCompleted:
			c.getCounters(ev.Job).BatchesCompleted++
		case core.BatchStatusFailed:
			c.getCounters(ev.Job).BatchesFailed++
		}
	}
}

func (c *Collector) getCounters(job *core.TimerJob) *Counters {
	var handlerType string
	if job != nil {
		handlerType = job.HandlerType
	}
	cnt, ok := c.counters[handlerType]
	if !ok {
		cnt = &Counters{}
		c.counters[handlerType] = cnt
	}
	return cnt
}

// Flush writes accumulated counters to the stats storage.
func (c *Collector) Flush(ctx context.Context) {
	c.mu.Lock()
	pending := c.counters
	c.counters = make(map[string]*Counters)
	c.mu.Unlock()

	ts := time.Now().Truncate(time.Minute)
	for handlerType, cnt := range pending {
		if cnt.IsZero() {
			continue
		}
		if err := c.stats.UpsertCounters(ctx, handlerType, ts, *cnt); err != nil {
			c.logger.Warn("failed to flush stats counters", zap.String("handler_type", handlerType), zap.Error(err))
		}
	}
}

func (c *Collector) snapshot(ctx context.Context) {
	ts := time.Now().Truncate(time.Minute)
	store := c.queue.Storage()

	for _, handlerType := range c.queue.HandlerTypes() {
		d, err := depth(ctx, store, handlerType)
		if err != nil {
			c.logger.Warn("stats snapshot skipped", zap.String("handler_type", handlerType), zap.Error(err))
			continue
		}
		if err := c.stats.SnapshotDepth(ctx, handlerType, ts, d); err != nil {
			c.logger.Warn("failed to store stats snapshot", zap.String("handler_type", handlerType), zap.Error(err))
		}
	}
}

func depth(ctx context.Context, store core.Storage, handlerType string) (Depth, error) {
	var (
		d   Depth
		err error
	)
	if d.Scheduled, err = store.CountTimerJobs(ctx, core.NewTimerJobQuery().HandlerType(handlerType)); err != nil {
		return d, fmt.Errorf("count scheduled: %w", err)
	}
	if d.Due, err = store.CountTimerJobs(ctx, core.NewTimerJobQuery().HandlerType(handlerType).Executable()); err != nil {
		return d, fmt.Errorf("count due: %w", err)
	}
	if d.WithException, err = store.CountTimerJobs(ctx, core.NewTimerJobQuery().HandlerType(handlerType).WithException()); err != nil {
		return d, fmt.Errorf("count with exception: %w", err)
	}
	return d, nil
}

func (c *Collector) prune(ctx context.Context) {
	if c.retention > 0 {
		if _, err := c.stats.PruneStats(ctx, time.Now().Add(-c.retention)); err != nil {
			c.logger.Warn("failed to prune stats", zap.Error(err))
		}
	}
}
