package wardview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/plan"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// View states.
const (
	StateLoading     = "loading"
	StateReady       = "ready"
	StateUnreachable = "unreachable"
)

// Plan states.
const (
	PlanAvailable   = "available"
	PlanUnavailable = "unavailable"
)

// Inventory is the bed registry as seen by the composers.
type Inventory interface {
	Refresh(ctx context.Context, sess session.Session) error
	Aggregate(wardID string) model.WardAggregate
	Loaded() bool
}

// StatusSource reports census and surge figures.  client.StoreClient
// implements it.
type StatusSource interface {
	WardStatus(ctx context.Context, sess session.Session, wardID string) (model.WardStatus, error)
}

// PlanSource is the shared plan cache.
type PlanSource interface {
	Get(ctx context.Context, sess session.Session) plan.Status
	Current() plan.Status
}

// View is the rendered state of one ward.  When the plan is unavailable the
// incoming and critical fields are null rather than zero.
type View struct {
	WardID   string `json:"ward_id"`
	WardName string `json:"ward_name"`
	State    string `json:"state"`
	Stale    bool   `json:"stale"`
	Retry    bool   `json:"retry"`
	Error    string `json:"error,omitempty"`

	Aggregate         *model.WardAggregate `json:"aggregate"`
	Occupied          *int                 `json:"occupied"`
	ActiveSurge       *int                 `json:"active_surge"`
	SurgeCounted      bool                 `json:"surge_counted"`
	AvailableCapacity *int                 `json:"available_capacity"`

	PlanState     string          `json:"plan_state"`
	PlanVersion   uint64          `json:"plan_version,omitempty"`
	PlanError     string          `json:"plan_error,omitempty"`
	Plan          *plan.WardSlice `json:"plan"`
	IncomingWard  *int            `json:"incoming_ward"`
	IncomingSurge *int            `json:"incoming_surge"`
	TotalIncoming *int            `json:"total_incoming"`
	IsCritical    *bool           `json:"is_critical"`
	AcceptEnabled bool            `json:"accept_enabled"`

	ComposedAt time.Time `json:"composed_at,omitempty"`
}

type capacity struct {
	agg       model.WardAggregate
	occupied  int
	surge     int
	available int
}

// Composer builds the view of one ward.  It is safe for concurrent use.
type Composer struct {
	ward    model.Ward
	policy  Policy
	inv     Inventory
	status  StatusSource
	plans   PlanSource
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu         sync.RWMutex
	state      string
	base       *capacity
	lastErr    error
	planSt     plan.Status
	composedAt time.Time
}

// NewComposer returns a composer in the loading state.
func NewComposer(ward model.Ward, inv Inventory, status StatusSource, plans PlanSource, logger *zap.Logger, m *metrics.Metrics) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		ward:    ward,
		policy:  PolicyFor(ward),
		inv:     inv,
		status:  status,
		plans:   plans,
		logger:  logger.With(zap.String("ward_id", ward.ID)),
		metrics: m,
		now:     time.Now,
		state:   StateLoading,
	}
}

// Ward returns the composer's ward.
func (c *Composer) Ward() model.Ward { return c.ward }

// Refresh reloads the bed registry and the plan, then recomposes.
func (c *Composer) Refresh(ctx context.Context, sess session.Session) (View, error) {
	c.setLoading()
	invErr := c.inv.Refresh(ctx, sess)
	return c.compose(ctx, sess, invErr, c.plans.Get(ctx, sess))
}

func (c *Composer) setLoading() {
	c.mu.Lock()
	c.state = StateLoading
	c.mu.Unlock()
}

// compose fetches the ward status and rebuilds the view.  invErr is the
// result of the registry refresh that preceded it.  A failure keeps the
// previous capacity figures visible as stale.
func (c *Composer) compose(ctx context.Context, sess session.Session, invErr error, pst plan.Status) (View, error) {
	err := invErr
	var ws model.WardStatus
	if err == nil {
		ws, err = c.status.WardStatus(ctx, sess, c.ward.ID)
	}
	if err == nil && !c.inv.Loaded() {
		err = apperr.Unreachable(nil)
	}

	c.mu.Lock()
	c.planSt = pst
	if err != nil {
		c.state = StateUnreachable
		c.lastErr = err
		v := c.viewLocked()
		c.mu.Unlock()
		c.logger.Warn("ward view unreachable", zap.Error(err))
		return v, err
	}
	agg := c.inv.Aggregate(c.ward.ID)
	c.base = &capacity{
		agg:       agg,
		occupied:  ws.Occupied,
		surge:     ws.ActiveSurge,
		available: AvailableCapacity(c.policy, agg.Functional, ws.Occupied, ws.ActiveSurge),
	}
	c.state = StateReady
	c.lastErr = nil
	c.composedAt = c.now()
	v := c.viewLocked()
	c.mu.Unlock()

	if v.AvailableCapacity != nil {
		c.metrics.WardComposed(c.ward.ID, *v.AvailableCapacity, v.IsCritical)
	}
	return v, nil
}

// ApplyPlan recomputes the plan-dependent fields with a new plan status.
func (c *Composer) ApplyPlan(pst plan.Status) View {
	c.mu.Lock()
	c.planSt = pst
	v := c.viewLocked()
	c.mu.Unlock()
	if v.State == StateReady && v.AvailableCapacity != nil {
		c.metrics.WardComposed(c.ward.ID, *v.AvailableCapacity, v.IsCritical)
	}
	return v
}

// View returns the last composed view without fetching.
func (c *Composer) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked()
}

// Composed reports whether the ward has ever been composed successfully.
func (c *Composer) Composed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base != nil
}

func (c *Composer) viewLocked() View {
	v := View{
		WardID:       c.ward.ID,
		WardName:     c.ward.Name,
		State:        c.state,
		SurgeCounted: c.policy.CountSurge,
		PlanState:    PlanUnavailable,
		ComposedAt:   c.composedAt,
	}
	if c.state == StateUnreachable {
		v.Retry = true
		v.Stale = c.base != nil
		v.Error = userMessage(c.lastErr)
	}
	if c.base != nil {
		agg := c.base.agg
		occ, surge, avail := c.base.occupied, c.base.surge, c.base.available
		v.Aggregate = &agg
		v.Occupied = &occ
		v.ActiveSurge = &surge
		v.AvailableCapacity = &avail
	}

	if !c.planSt.Available || c.planSt.Current == nil {
		if c.planSt.Err != nil {
			v.PlanError = userMessage(c.planSt.Err)
		}
		return v
	}
	slice := plan.SliceFor(c.planSt.Current.Plan, c.ward)
	v.PlanState = PlanAvailable
	v.PlanVersion = c.planSt.Current.Version
	v.Plan = &slice
	v.IncomingWard = slice.IncomingWard
	v.IncomingSurge = slice.IncomingSurge
	v.TotalIncoming = slice.TotalIncoming
	if slice.TotalIncoming == nil {
		v.PlanError = "plan has no incoming count for " + c.ward.Name
		return v
	}
	if c.base != nil {
		critical := IsCritical(*slice.TotalIncoming, c.base.available)
		v.IsCritical = &critical
		v.AcceptEnabled = !critical
	}
	return v
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := apperr.As(err); ok {
		return e.UserMessage()
	}
	return err.Error()
}
