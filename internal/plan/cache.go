// Package plan holds the one shared allocation plan snapshot that every ward
// view reads.  Refreshes are coalesced so concurrent callers trigger a single
// fetch, and subscribers are told whenever the snapshot or its availability
// changes.
package plan

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// failedRetryInterval throttles Get after a failed fetch.
const failedRetryInterval = 5 * time.Second

// Fetcher downloads the plan.  client.ForecastClient implements it.
type Fetcher interface {
	FetchPlan(ctx context.Context, sess session.Session) (*model.AllocationPlan, error)
}

// Snapshot is one fetched plan.  Version increases with every successful
// fetch.
type Snapshot struct {
	Plan      *model.AllocationPlan
	Version   uint64
	FetchedAt time.Time
}

// Status is what views render.  When Available is false Current is nil and
// Err explains why; Stale may hold the last good snapshot for reference but
// must not be shown as current data.
type Status struct {
	Available bool
	Current   *Snapshot
	Stale     *Snapshot
	Err       error
}

// Cache is safe for concurrent use.
type Cache struct {
	fetcher Fetcher
	maxAge  time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	group   singleflight.Group

	mu          sync.RWMutex
	snap        *Snapshot
	version     uint64
	lastErr     error
	lastAttempt time.Time
	nextSubID   int
	subs        map[int]func(Status)
}

// NewCache returns an empty cache.  Get refetches snapshots older than
// maxAge; zero disables ageing.
func NewCache(fetcher Fetcher, maxAge time.Duration, logger *zap.Logger, m *metrics.Metrics) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		fetcher: fetcher,
		maxAge:  maxAge,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		subs:    map[int]func(Status){},
	}
}

// Refresh fetches a new plan.  Concurrent calls share one fetch and its
// result; the shared fetch runs with the first caller's context.  Success
// replaces the snapshot wholesale; failure makes the plan unavailable until
// the next successful fetch.
func (c *Cache) Refresh(ctx context.Context, sess session.Session) (Status, error) {
	v, err, shared := c.group.Do("plan", func() (interface{}, error) {
		p, err := c.fetcher.FetchPlan(ctx, sess)

		c.mu.Lock()
		c.lastAttempt = c.now()
		if err != nil {
			c.lastErr = err
		} else {
			c.version++
			c.snap = &Snapshot{Plan: p, Version: c.version, FetchedAt: c.lastAttempt}
			c.lastErr = nil
		}
		st := c.statusLocked()
		subs := make([]func(Status), 0, len(c.subs))
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Warn("allocation plan unavailable", zap.Error(err))
			c.metrics.PlanRefreshed(false, 0)
		} else {
			c.logger.Info("allocation plan refreshed", zap.Uint64("version", st.Current.Version), zap.Strings("flags", p.Flags))
			c.metrics.PlanRefreshed(true, st.Current.Version)
		}
		for _, fn := range subs {
			fn(st)
		}
		return st, err
	})
	if shared {
		c.logger.Debug("plan refresh coalesced")
	}
	return v.(Status), err
}

// Get returns the current status, fetching first when nothing has been
// fetched yet, the snapshot is older than maxAge, or the last fetch failed
// more than a few seconds ago.
func (c *Cache) Get(ctx context.Context, sess session.Session) Status {
	if c.needsFetch() {
		st, _ := c.Refresh(ctx, sess)
		return st
	}
	return c.Current()
}

func (c *Cache) needsFetch() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	switch {
	case c.lastErr != nil:
		return now.Sub(c.lastAttempt) >= failedRetryInterval
	case c.snap == nil:
		return true
	case c.maxAge > 0:
		return now.Sub(c.snap.FetchedAt) >= c.maxAge
	}
	return false
}

// Current returns the status without fetching.
func (c *Cache) Current() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

func (c *Cache) statusLocked() Status {
	if c.lastErr != nil {
		return Status{Available: false, Stale: c.snap, Err: c.lastErr}
	}
	if c.snap == nil {
		return Status{Available: false}
	}
	return Status{Available: true, Current: c.snap}
}

// Subscribe registers fn to run after every refresh attempt.  fn runs on the
// refreshing goroutine and must not call Refresh.  The returned function
// removes the subscription.
func (c *Cache) Subscribe(fn func(Status)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
