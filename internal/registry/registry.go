// Package registry keeps the client-side cache of the bed inventory and
// registers new beds against the Bed Entity Store.  The cache is replaced
// only by a successful list from the store; a failed call never changes it.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// Store is the part of the Bed Entity Store the registry uses.
// client.StoreClient implements it.
type Store interface {
	ListBeds(ctx context.Context, sess session.Session, wardID string) ([]model.Bed, error)
	CreateBed(ctx context.Context, sess session.Session, bed model.Bed) (model.Bed, error)
}

// Registry is safe for concurrent use.
type Registry struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	beds        map[string]model.Bed
	loaded      bool
	stale       bool
	refreshedAt time.Time
	listeners   []func(startedAt time.Time)
}

// New returns an empty registry backed by store.
func New(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:  store,
		logger: logger,
		now:    time.Now,
		beds:   map[string]model.Bed{},
	}
}

// OnRefresh registers fn to run after every successful Refresh.  fn receives
// the time the list request was sent, so state settled before that instant
// is known to be reflected in the cache.
func (r *Registry) OnRefresh(fn func(startedAt time.Time)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Refresh replaces the cache with the store's full bed list.  On failure the
// previous cache stays visible and is flagged stale.
func (r *Registry) Refresh(ctx context.Context, sess session.Session) error {
	if !sess.Valid() {
		return session.ErrNoSession
	}
	started := r.now()
	beds, err := r.store.ListBeds(ctx, sess, "")
	if err != nil {
		r.mu.Lock()
		if r.loaded {
			r.stale = true
		}
		r.mu.Unlock()
		return err
	}
	next := make(map[string]model.Bed, len(beds))
	for _, b := range beds {
		next[b.BedID] = b
	}
	r.mu.Lock()
	r.beds = next
	r.loaded = true
	r.stale = false
	r.refreshedAt = r.now()
	listeners := append([]func(time.Time){}, r.listeners...)
	r.mu.Unlock()
	r.logger.Debug("bed registry refreshed", zap.Int("beds", len(beds)))
	for _, fn := range listeners {
		fn(started)
	}
	return nil
}

// Register validates the input, rejects ids already known locally and then
// creates the bed in the store.  Validation and local duplicate failures
// send no request.  On success the cache is refreshed from the store; when
// that refresh fails the created bed is added locally and the cache is
// marked stale.
func (r *Registry) Register(ctx context.Context, sess session.Session, wardID, bedID, bedType string) (model.Bed, error) {
	if !sess.Valid() {
		return model.Bed{}, session.ErrNoSession
	}
	bed, err := model.RegisterBedRequest{BedID: bedID, BedType: bedType, WardID: wardID}.Normalize()
	if err != nil {
		return model.Bed{}, err
	}
	if existing, ok := r.Get(bed.BedID); ok {
		return model.Bed{}, apperr.Duplicate("bed id " + bed.BedID + " already exists in " + existing.WardName)
	}

	created, err := r.store.CreateBed(ctx, sess, bed)
	if err != nil {
		return model.Bed{}, err
	}
	r.logger.Info("bed registered", zap.String("bed_id", created.BedID), zap.String("ward_id", created.WardID))

	if err := r.Refresh(ctx, sess); err != nil {
		r.logger.Warn("refresh after register failed, keeping local copy", zap.String("bed_id", created.BedID), zap.Error(err))
		r.mu.Lock()
		r.beds[created.BedID] = created
		r.stale = true
		r.mu.Unlock()
	}
	return created, nil
}

// Apply records a bed returned by a confirmed store mutation.  Unknown ids
// are ignored; only Register and Refresh add beds.
func (r *Registry) Apply(bed model.Bed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.beds[bed.BedID]; ok {
		r.beds[bed.BedID] = bed
	}
}

// ListBeds returns the cached beds of wardID, or of every ward when wardID
// is empty, ordered by ward then bed id.
func (r *Registry) ListBeds(wardID string) []model.Bed {
	r.mu.RLock()
	out := make([]model.Bed, 0, len(r.beds))
	for _, b := range r.beds {
		if wardID == "" || b.WardID == wardID {
			out = append(out, b)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].WardID != out[j].WardID {
			return out[i].WardID < out[j].WardID
		}
		return out[i].BedID < out[j].BedID
	})
	return out
}

// Get returns the cached bed with the given id.
func (r *Registry) Get(bedID string) (model.Bed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.beds[bedID]
	return b, ok
}

// Aggregate summarizes the cached beds of wardID.
func (r *Registry) Aggregate(wardID string) model.WardAggregate {
	return model.Aggregate(r.ListBeds(wardID), wardID)
}

// Loaded reports whether at least one refresh has succeeded.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Stale reports whether the cache may lag behind the store.
func (r *Registry) Stale() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stale
}

// RefreshedAt is the time of the last successful refresh.
func (r *Registry) RefreshedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshedAt
}
