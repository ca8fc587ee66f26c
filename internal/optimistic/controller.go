package optimistic

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// Mutator sends a status change to the bed store.
type Mutator interface {
	UpdateStatus(ctx context.Context, sess session.Session, bedID string, status model.BedStatus) (model.Bed, error)
}

// Lookup returns the last confirmed record of a bed.
type Lookup func(bedID string) (model.Bed, bool)

// CommitHook runs after a mutation commits, outside the controller lock.
type CommitHook func(ctx context.Context, sess session.Session, bed model.Bed)

// Controller executes optimistic status edits, one state machine per bed.
type Controller struct {
	store    Mutator
	lookup   Lookup
	onCommit CommitHook
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu        sync.Mutex
	states    map[string]State
	settledAt map[string]time.Time
}

// NewController returns a controller.  lookup supplies the snapshot taken
// before each new edit; onCommit may be nil.
func NewController(store Mutator, lookup Lookup, onCommit CommitHook, logger *zap.Logger, m *metrics.Metrics) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:    store,
		lookup:   lookup,
		onCommit: onCommit,
		logger:   logger,
		metrics:  m,
		now:      time.Now,

		states:    map[string]State{},
		settledAt: map[string]time.Time{},
	}
}

// Submit snapshots the bed's confirmed status, shows target optimistically
// and sends the change.  It blocks until the store answers and returns the
// settled state.  A Submit while an edit of the same bed is pending returns
// ErrEditLocked without contacting the store.
func (c *Controller) Submit(ctx context.Context, sess session.Session, bedID string, target model.BedStatus) (State, error) {
	return c.start(ctx, sess, bedID, target, Submit)
}

// Supersede replaces a pending edit with target.  Only the newest edit's
// outcome is displayed; the result of the replaced one is discarded.  With
// no pending edit it behaves like Submit.
func (c *Controller) Supersede(ctx context.Context, sess session.Session, bedID string, target model.BedStatus) (State, error) {
	return c.start(ctx, sess, bedID, target, Supersede)
}

func (c *Controller) start(ctx context.Context, sess session.Session, bedID string, target model.BedStatus, kind EventKind) (State, error) {
	if !sess.Valid() {
		return State{}, session.ErrNoSession
	}
	if !target.Valid() {
		return State{}, apperr.Validation("status", "invalid status")
	}

	c.mu.Lock()
	st, tracked := c.states[bedID]
	if !st.Locked() {
		bed, ok := c.lookup(bedID)
		if !ok {
			c.mu.Unlock()
			return State{}, apperr.NotFound("bed " + bedID + " not found")
		}
		st.Snapshot = bed.Status
		st.Target = bed.Status
		if !tracked {
			st.Phase = Idle
		}
		kind = Submit
	}
	next, err := Transition(st, Event{Kind: kind, Target: target})
	if err != nil {
		c.mu.Unlock()
		return st, err
	}
	c.states[bedID] = next
	seq := next.Seq
	c.mu.Unlock()

	c.logger.Debug("status edit sent", zap.String("bed_id", bedID), zap.String("target", string(target)), zap.Uint64("seq", seq))
	bed, callErr := c.store.UpdateStatus(ctx, sess, bedID, target)

	ev := Event{Kind: Succeed, Target: target, Seq: seq, Confirmed: bed.Status}
	if callErr != nil {
		ev = Event{Kind: Fail, Target: target, Seq: seq, Err: callErr}
	}

	c.mu.Lock()
	settled, terr := Transition(c.states[bedID], ev)
	c.states[bedID] = settled
	if !settled.Locked() {
		c.settledAt[bedID] = c.now()
	}
	c.mu.Unlock()

	if errors.Is(terr, ErrStaleResult) {
		c.logger.Debug("superseded edit result discarded", zap.String("bed_id", bedID), zap.Uint64("seq", seq))
		c.metrics.MutationFinished("discarded")
		return settled, ErrStaleResult
	}

	c.metrics.MutationFinished(settled.Phase.String())
	if settled.Phase == RolledBack {
		c.logger.Info("status edit rolled back", zap.String("bed_id", bedID), zap.Error(callErr))
		return settled, callErr
	}
	if c.onCommit != nil {
		c.onCommit(ctx, sess, bed)
	}
	return settled, nil
}

// Reconcile forgets every settled edit that finished no later than since,
// so those beds again display the status held by the lookup.  Pending edits
// are kept.  Registry.OnRefresh calls it with the start of each successful
// refresh.
func (c *Controller) Reconcile(since time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, st := range c.states {
		if st.Locked() {
			continue
		}
		if at := c.settledAt[id]; !at.After(since) {
			delete(c.states, id)
			delete(c.settledAt, id)
		}
	}
}

// State returns the edit state of a bed.  Untracked beds report Idle with
// their confirmed status.
func (c *Controller) State(bedID string) State {
	c.mu.Lock()
	st, ok := c.states[bedID]
	c.mu.Unlock()
	if ok {
		return st
	}
	if bed, found := c.lookup(bedID); found {
		return State{Phase: Idle, Snapshot: bed.Status, Target: bed.Status}
	}
	return State{}
}

// Displayed returns the status to show for a bed.
func (c *Controller) Displayed(bedID string) model.BedStatus {
	return c.State(bedID).Displayed()
}

// Locked reports whether the bed has an edit in flight.
func (c *Controller) Locked(bedID string) bool {
	return c.State(bedID).Locked()
}
