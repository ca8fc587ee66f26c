package wardview

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/plan"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

var sess = session.Session{Token: "tok", StaffID: "wh-1", Role: session.RoleWardHead}

type fakeInventory struct {
	beds   []model.Bed
	err    error
	loaded bool
}

func (f *fakeInventory) Refresh(context.Context, session.Session) error {
	if f.err != nil {
		return f.err
	}
	f.loaded = true
	return nil
}
func (f *fakeInventory) Aggregate(wardID string) model.WardAggregate {
	return model.Aggregate(f.beds, wardID)
}
func (f *fakeInventory) Loaded() bool { return f.loaded }

type fakeStatus struct {
	byWard map[string]model.WardStatus
	err    error
}

func (f *fakeStatus) WardStatus(_ context.Context, _ session.Session, wardID string) (model.WardStatus, error) {
	if f.err != nil {
		return model.WardStatus{}, f.err
	}
	return f.byWard[wardID], nil
}

type fakeFetcher struct {
	mu   sync.Mutex
	plan *model.AllocationPlan
	err  error
}

func (f *fakeFetcher) FetchPlan(context.Context, session.Session) (*model.AllocationPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plan, f.err
}

func beds(wardID string, functional, broken int) []model.Bed {
	var out []model.Bed
	for i := 0; i < functional+broken; i++ {
		st := model.StatusFunctional
		if i >= functional {
			st = model.StatusBroken
		}
		out = append(out, model.Bed{BedID: wardID + "-" + string(rune('a'+i)), WardID: wardID, Status: st})
	}
	return out
}

func decode(t *testing.T, doc string) *model.AllocationPlan {
	t.Helper()
	p, err := model.DecodePlan([]byte(doc))
	require.NoError(t, err)
	return p
}

const scenarioC = `{
	"predicted_arrivals": 15,
	"primary_driver": "Flu",
	"system_status": "CRITICAL",
	"occupancy_percentage": 88,
	"confidence_score": "High",
	"action_plan_transfers": {"ward_a": 5, "ward_b": 0, "general": 2},
	"action_plan_surge_breakdown": {"ward_a": 3},
	"action_plan_surge": 3
}`

func TestPolicyAndCapacity(t *testing.T) {
	wardA, _ := model.LookupWard(model.WardA)
	wardB, _ := model.LookupWard(model.WardB)
	assert.True(t, PolicyFor(wardA).CountSurge)
	assert.False(t, PolicyFor(wardB).CountSurge)

	assert.Equal(t, 5, AvailableCapacity(PolicyFor(wardA), 8, 5, 2))
	assert.Equal(t, 3, AvailableCapacity(PolicyFor(wardB), 8, 5, 2))
	assert.Equal(t, 0, AvailableCapacity(PolicyFor(wardB), 3, 9, 0))
}

func TestIsCriticalBoundary(t *testing.T) {
	assert.False(t, IsCritical(5, 5))
	assert.True(t, IsCritical(6, 5))
	assert.False(t, IsCritical(0, 0))
}

func newBoard(t *testing.T, inv *fakeInventory, st *fakeStatus, f *fakeFetcher) (*Board, *plan.Cache) {
	t.Helper()
	cache := plan.NewCache(f, 0, nil, nil)
	b := NewBoard(inv, st, cache, nil, nil)
	t.Cleanup(b.Close)
	return b, cache
}

func TestScenarioCWardAView(t *testing.T) {
	inv := &fakeInventory{beds: beds(model.WardA, 8, 2)}
	st := &fakeStatus{byWard: map[string]model.WardStatus{
		model.WardA: model.NewWardStatus(model.WardA, 8, 6, 1),
	}}
	b, _ := newBoard(t, inv, st, &fakeFetcher{plan: decode(t, scenarioC)})

	v, err := b.View(context.Background(), sess, model.WardA, false)
	require.NoError(t, err)
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, PlanAvailable, v.PlanState)
	assert.Equal(t, 5, *v.IncomingWard)
	assert.Equal(t, 3, *v.IncomingSurge)
	assert.Equal(t, 8, *v.TotalIncoming)
	assert.Equal(t, 80, v.Aggregate.PercentFunctional)
	// 8 functional - 6 occupied + 1 surge
	assert.Equal(t, 3, *v.AvailableCapacity)
	assert.True(t, *v.IsCritical)
	assert.False(t, v.AcceptEnabled)
}

func TestCriticalBoundaryInView(t *testing.T) {
	inv := &fakeInventory{beds: beds(model.WardGeneral, 6, 0)}
	st := &fakeStatus{byWard: map[string]model.WardStatus{
		model.WardGeneral: model.NewWardStatus(model.WardGeneral, 6, 4, 0),
	}}
	b, _ := newBoard(t, inv, st, &fakeFetcher{plan: decode(t, scenarioC)})

	// general: 2 incoming, 6 - 4 = 2 available
	v, err := b.View(context.Background(), sess, model.WardGeneral, true)
	require.NoError(t, err)
	assert.Equal(t, 2, *v.TotalIncoming)
	assert.Equal(t, 2, *v.AvailableCapacity)
	assert.False(t, *v.IsCritical)
	assert.True(t, v.AcceptEnabled)

	st.byWard[model.WardGeneral] = model.NewWardStatus(model.WardGeneral, 6, 5, 0)
	v, err = b.View(context.Background(), sess, model.WardGeneral, true)
	require.NoError(t, err)
	assert.True(t, *v.IsCritical)
}

func TestWardBIgnoresSurge(t *testing.T) {
	inv := &fakeInventory{beds: beds(model.WardB, 4, 0)}
	st := &fakeStatus{byWard: map[string]model.WardStatus{
		model.WardB: model.NewWardStatus(model.WardB, 4, 4, 3),
	}}
	b, _ := newBoard(t, inv, st, &fakeFetcher{plan: decode(t, scenarioC)})

	v, err := b.View(context.Background(), sess, model.WardB, false)
	require.NoError(t, err)
	assert.False(t, v.SurgeCounted)
	assert.Equal(t, 0, *v.AvailableCapacity)
	assert.False(t, *v.IsCritical, "0 incoming is not more than 0 available")
}

func TestEmergencyUnitWithoutKeptCountIsUnknown(t *testing.T) {
	inv := &fakeInventory{beds: beds(model.WardETU, 5, 0)}
	st := &fakeStatus{byWard: map[string]model.WardStatus{
		model.WardETU: model.NewWardStatus(model.WardETU, 5, 1, 0),
	}}
	b, _ := newBoard(t, inv, st, &fakeFetcher{plan: decode(t, scenarioC)})

	v, err := b.View(context.Background(), sess, model.WardETU, false)
	require.NoError(t, err)
	assert.Equal(t, PlanAvailable, v.PlanState)
	assert.NotEmpty(t, v.PlanError)
	assert.Equal(t, 4, *v.AvailableCapacity)
	assert.Nil(t, v.IncomingWard)
	assert.Nil(t, v.TotalIncoming)
	assert.Nil(t, v.IsCritical)
	assert.False(t, v.AcceptEnabled)
	require.NotNil(t, v.Plan)
	assert.Contains(t, v.Plan.Flags, "action_plan_keep_etu missing")

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Nil(t, m["total_incoming"])
	assert.Nil(t, m["is_critical"])
}

func TestScenarioDPlanUnavailableRendersNulls(t *testing.T) {
	inv := &fakeInventory{beds: beds(model.WardA, 3, 0)}
	st := &fakeStatus{byWard: map[string]model.WardStatus{model.WardA: model.NewWardStatus(model.WardA, 3, 0, 0)}}
	f := &fakeFetcher{err: apperr.Unreachable(errors.New("dial tcp: refused"))}
	b, _ := newBoard(t, inv, st, f)

	v, err := b.View(context.Background(), sess, model.WardA, false)
	require.NoError(t, err)
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, PlanUnavailable, v.PlanState)
	assert.NotEmpty(t, v.PlanError)
	assert.Nil(t, v.TotalIncoming)
	assert.Nil(t, v.IsCritical)
	assert.False(t, v.AcceptEnabled)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, k := range []string{"incoming_ward", "incoming_surge", "total_incoming", "is_critical", "plan"} {
		v, ok := m[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}
	assert.Equal(t, "unavailable", m["plan_state"])
}

func TestPlanRefreshUpdatesEveryWard(t *testing.T) {
	var all []model.Bed
	status := map[string]model.WardStatus{}
	for _, w := range model.KnownWards() {
		all = append(all, beds(w.ID, 10, 0)...)
		status[w.ID] = model.NewWardStatus(w.ID, 10, 0, 0)
	}
	inv := &fakeInventory{beds: all}
	f := &fakeFetcher{err: apperr.Server(503, "")}
	b, cache := newBoard(t, inv, &fakeStatus{byWard: status}, f)

	for _, v := range b.Refresh(context.Background(), sess) {
		assert.Equal(t, PlanUnavailable, v.PlanState, v.WardID)
	}

	f.mu.Lock()
	f.plan, f.err = decode(t, scenarioC), nil
	f.mu.Unlock()
	_, err := cache.Refresh(context.Background(), sess)
	require.NoError(t, err)

	for _, v := range b.Views() {
		assert.Equal(t, PlanAvailable, v.PlanState, v.WardID)
		assert.Equal(t, uint64(1), v.PlanVersion, v.WardID)
	}
}

func TestStoreFailureKeepsPreviousView(t *testing.T) {
	inv := &fakeInventory{beds: beds(model.WardA, 5, 0)}
	st := &fakeStatus{byWard: map[string]model.WardStatus{model.WardA: model.NewWardStatus(model.WardA, 5, 2, 0)}}
	b, _ := newBoard(t, inv, st, &fakeFetcher{plan: decode(t, scenarioC)})

	_, err := b.View(context.Background(), sess, model.WardA, false)
	require.NoError(t, err)

	st.err = apperr.Unreachable(errors.New("timeout"))
	v, err := b.View(context.Background(), sess, model.WardA, true)
	assert.True(t, apperr.Is(err, apperr.KindUnreachable))
	assert.Equal(t, StateUnreachable, v.State)
	assert.True(t, v.Stale)
	assert.True(t, v.Retry)
	require.NotNil(t, v.AvailableCapacity)
	assert.Equal(t, 3, *v.AvailableCapacity)
}

func TestFirstLoadFailureHasNoFigures(t *testing.T) {
	inv := &fakeInventory{err: apperr.Unreachable(errors.New("refused"))}
	b, _ := newBoard(t, inv, &fakeStatus{}, &fakeFetcher{plan: decode(t, scenarioC)})

	v, err := b.View(context.Background(), sess, model.WardGeneral, false)
	assert.Error(t, err)
	assert.Equal(t, StateUnreachable, v.State)
	assert.False(t, v.Stale)
	assert.Nil(t, v.AvailableCapacity)
	assert.Nil(t, v.Aggregate)
}

func TestUnknownWard(t *testing.T) {
	b, _ := newBoard(t, &fakeInventory{}, &fakeStatus{}, &fakeFetcher{})
	_, err := b.View(context.Background(), sess, "ICU-9", false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
