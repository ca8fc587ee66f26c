package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

var sess = session.Session{Token: "tok", StaffID: "n-1", Role: session.RoleNurse}

// fakeStore mimics the bed store: ids are unique across wards.
type fakeStore struct {
	mu        sync.Mutex
	beds      []model.Bed
	creates   int
	lists     int
	listErr   error
	createErr error
}

func (f *fakeStore) ListBeds(_ context.Context, _ session.Session, wardID string) ([]model.Bed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Bed
	for _, b := range f.beds {
		if wardID == "" || b.WardID == wardID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBed(_ context.Context, _ session.Session, bed model.Bed) (model.Bed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return model.Bed{}, f.createErr
	}
	for _, b := range f.beds {
		if b.BedID == bed.BedID {
			return model.Bed{}, apperr.Duplicate("bed id " + bed.BedID + " already exists")
		}
	}
	f.beds = append(f.beds, bed)
	return bed, nil
}

func TestRegisterThenDuplicate(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil)

	bed, err := r.Register(context.Background(), sess, "WARD-A", "B-101", "Standard")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFunctional, bed.Status)
	assert.Equal(t, "Ward A (Medical)", bed.WardName)
	assert.Len(t, r.ListBeds("WARD-A"), 1)

	_, err = r.Register(context.Background(), sess, "WARD-A", "B-101", "Standard")
	assert.True(t, apperr.Is(err, apperr.KindDuplicate))
	assert.Len(t, r.ListBeds(""), 1)
	assert.Equal(t, 1, store.creates, "local duplicate must not reach the store")
}

func TestRegisterDuplicateAcrossWards(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil)
	_, err := r.Register(context.Background(), sess, "WARD-A", "X-1", "")
	require.NoError(t, err)

	_, err = r.Register(context.Background(), sess, "GEN", "X-1", "Surgical")
	assert.True(t, apperr.Is(err, apperr.KindDuplicate))
	assert.Empty(t, r.ListBeds("GEN"))
}

func TestRegisterDuplicateReportedByStore(t *testing.T) {
	// Another client registered the id after our last refresh.
	store := &fakeStore{beds: []model.Bed{{BedID: "B-9", WardID: "WARD-B", Status: model.StatusFunctional}}}
	r := New(store, nil)

	_, err := r.Register(context.Background(), sess, "WARD-B", "B-9", "Standard")
	assert.True(t, apperr.Is(err, apperr.KindDuplicate))
	assert.Empty(t, r.ListBeds(""))
	assert.False(t, r.Loaded())
}

func TestRegisterValidationSendsNothing(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil)

	cases := []struct {
		ward, id, typ, field string
	}{
		{"WARD-A", "", "Standard", "bed_id"},
		{"", "B-1", "Standard", "ward_id"},
		{"WARD-Z", "B-1", "Standard", "ward_id"},
		{"WARD-A", "B-1", "Hammock", "bed_type"},
	}
	for _, tc := range cases {
		_, err := r.Register(context.Background(), sess, tc.ward, tc.id, tc.typ)
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		assert.Equal(t, tc.field, e.Field)
	}
	assert.Zero(t, store.creates)
}

func TestRegisterStoreFailureLeavesCacheUnchanged(t *testing.T) {
	store := &fakeStore{beds: []model.Bed{{BedID: "G-1", WardID: "GEN", Status: model.StatusFunctional}}}
	r := New(store, nil)
	require.NoError(t, r.Refresh(context.Background(), sess))

	store.createErr = apperr.Unreachable(errors.New("dial tcp: refused"))
	_, err := r.Register(context.Background(), sess, "GEN", "G-2", "Standard")
	assert.True(t, apperr.Is(err, apperr.KindUnreachable))
	assert.Len(t, r.ListBeds(""), 1)
	assert.False(t, r.Stale())
}

func TestRegisterRefreshFailureInsertsLocally(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil)
	require.NoError(t, r.Refresh(context.Background(), sess))

	store.listErr = apperr.Unreachable(errors.New("timeout"))
	bed, err := r.Register(context.Background(), sess, "GEN", "G-5", "ICU")
	require.NoError(t, err)
	assert.Equal(t, model.BedTypeICU, bed.BedType)

	got, ok := r.Get("G-5")
	assert.True(t, ok)
	assert.Equal(t, "GEN", got.WardID)
	assert.True(t, r.Stale())
}

func TestRefreshFailureKeepsPreviousCache(t *testing.T) {
	store := &fakeStore{beds: []model.Bed{
		{BedID: "A-1", WardID: "WARD-A", Status: model.StatusFunctional},
		{BedID: "A-2", WardID: "WARD-A", Status: model.StatusBroken},
	}}
	r := New(store, nil)
	require.NoError(t, r.Refresh(context.Background(), sess))
	at := r.RefreshedAt()

	store.listErr = apperr.Server(503, "")
	assert.Error(t, r.Refresh(context.Background(), sess))
	assert.Len(t, r.ListBeds("WARD-A"), 2)
	assert.True(t, r.Stale())
	assert.Equal(t, at, r.RefreshedAt())

	agg := r.Aggregate("WARD-A")
	assert.Equal(t, model.WardAggregate{WardID: "WARD-A", Total: 2, Functional: 1, PercentFunctional: 50}, agg)
}

func TestRequiresSession(t *testing.T) {
	r := New(&fakeStore{}, nil)
	_, err := r.Register(context.Background(), session.Session{}, "GEN", "G-1", "")
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.ErrorIs(t, r.Refresh(context.Background(), session.Session{}), session.ErrNoSession)
}

func TestApplyIgnoresUnknownBeds(t *testing.T) {
	store := &fakeStore{beds: []model.Bed{{BedID: "A-1", WardID: "WARD-A", Status: model.StatusFunctional}}}
	r := New(store, nil)
	require.NoError(t, r.Refresh(context.Background(), sess))

	r.Apply(model.Bed{BedID: "A-1", WardID: "WARD-A", Status: model.StatusBroken})
	r.Apply(model.Bed{BedID: "Z-9", WardID: "WARD-A", Status: model.StatusBroken})

	got, _ := r.Get("A-1")
	assert.Equal(t, model.StatusBroken, got.Status)
	_, ok := r.Get("Z-9")
	assert.False(t, ok)
}

func TestOnRefreshReceivesRequestStart(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil)
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	var seen []time.Time
	r.OnRefresh(func(startedAt time.Time) { seen = append(seen, startedAt) })

	require.NoError(t, r.Refresh(context.Background(), sess))
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Before(r.RefreshedAt()))

	store.listErr = apperr.Unreachable(nil)
	assert.Error(t, r.Refresh(context.Background(), sess))
	assert.Len(t, seen, 1, "failed refresh notifies nobody")
}
