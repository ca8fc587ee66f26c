package wardview

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/plan"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// SubscribablePlans is a PlanSource that announces refreshes.
type SubscribablePlans interface {
	PlanSource
	Subscribe(fn func(plan.Status)) (unsubscribe func())
}

// Board owns one composer per ward.  Every plan refresh is pushed to all
// composers at once, so the wards always show the same plan version.
type Board struct {
	inv       Inventory
	plans     SubscribablePlans
	composers map[string]*Composer
	order     []string
	logger    *zap.Logger
	unsub     func()
}

// NewBoard creates composers for the fixed ward set and subscribes them to
// plans.
func NewBoard(inv Inventory, status StatusSource, plans SubscribablePlans, logger *zap.Logger, m *metrics.Metrics) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Board{
		inv:       inv,
		plans:     plans,
		composers: map[string]*Composer{},
		logger:    logger,
	}
	for _, w := range model.KnownWards() {
		b.composers[w.ID] = NewComposer(w, inv, status, plans, logger, m)
		b.order = append(b.order, w.ID)
	}
	b.unsub = plans.Subscribe(func(st plan.Status) {
		for _, id := range b.order {
			b.composers[id].ApplyPlan(st)
		}
	})
	return b
}

// Close stops following plan refreshes.
func (b *Board) Close() {
	if b.unsub != nil {
		b.unsub()
	}
}

// Refresh reloads the registry and the plan once and recomposes every ward.
// Per-ward failures are reported in the views, not as an error.
func (b *Board) Refresh(ctx context.Context, sess session.Session) []View {
	for _, id := range b.order {
		b.composers[id].setLoading()
	}
	invErr := b.inv.Refresh(ctx, sess)
	pst := b.plans.Get(ctx, sess)
	views := make([]View, 0, len(b.order))
	for _, id := range b.order {
		v, _ := b.composers[id].compose(ctx, sess, invErr, pst)
		views = append(views, v)
	}
	return views
}

// View returns the view of one ward.  It composes the ward when refresh is
// set or the ward has not been composed yet.
func (b *Board) View(ctx context.Context, sess session.Session, wardID string, refresh bool) (View, error) {
	c, ok := b.composers[wardID]
	if !ok {
		return View{}, apperr.Validation("ward_id", "unknown ward "+wardID)
	}
	if refresh || !c.Composed() {
		return c.Refresh(ctx, sess)
	}
	return c.View(), nil
}

// Views returns the last composed view of every ward in display order.
func (b *Board) Views() []View {
	out := make([]View, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.composers[id].View())
	}
	return out
}
