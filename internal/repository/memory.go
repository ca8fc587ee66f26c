package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/ward-bed-registry/internal/model"
)

// MemoryBedRepo is an in-process bed repository with the same method set as
// BedRepo.  Bed ids are unique across wards, as in the MySQL schema.
type MemoryBedRepo struct {
	mu   sync.RWMutex
	beds map[string]model.Bed
	now  func() time.Time
}

// NewMemoryBedRepo returns an empty repository.
func NewMemoryBedRepo() *MemoryBedRepo {
	return &MemoryBedRepo{beds: map[string]model.Bed{}, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores b, stamping its timestamps.
func (r *MemoryBedRepo) Create(_ context.Context, b *model.Bed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.beds[b.BedID]; ok {
		return ErrDuplicateBed
	}
	now := r.now()
	b.AddedAt, b.UpdatedAt = now, now
	r.beds[b.BedID] = *b
	return nil
}

// List returns beds ordered by ward then id; an empty wardID lists all.
func (r *MemoryBedRepo) List(_ context.Context, wardID string) ([]model.Bed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Bed, 0, len(r.beds))
	for _, b := range r.beds {
		if wardID == "" || b.WardID == wardID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WardID != out[j].WardID {
			return out[i].WardID < out[j].WardID
		}
		return out[i].BedID < out[j].BedID
	})
	return out, nil
}

// GetByID returns the bed with the given id.
func (r *MemoryBedRepo) GetByID(_ context.Context, bedID string) (*model.Bed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.beds[bedID]
	if !ok {
		return nil, ErrBedNotFound
	}
	return &b, nil
}

// UpdateStatus sets the status of a bed and returns the previous one.
func (r *MemoryBedRepo) UpdateStatus(_ context.Context, bedID string, status model.BedStatus) (model.BedStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.beds[bedID]
	if !ok {
		return "", ErrBedNotFound
	}
	prev := b.Status
	b.Status = status
	b.UpdatedAt = r.now()
	r.beds[bedID] = b
	return prev, nil
}

// CountFunctional counts the functional beds of a ward.
func (r *MemoryBedRepo) CountFunctional(_ context.Context, wardID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range r.beds {
		if b.WardID == wardID && b.IsFunctional() {
			n++
		}
	}
	return n, nil
}

// MemoryWardRepo keeps the latest census and surge count per ward.
type MemoryWardRepo struct {
	mu       sync.RWMutex
	occupied map[string]int
	surge    map[string]int
}

// NewMemoryWardRepo returns an empty repository.
func NewMemoryWardRepo() *MemoryWardRepo {
	return &MemoryWardRepo{occupied: map[string]int{}, surge: map[string]int{}}
}

func (r *MemoryWardRepo) RecordCensus(_ context.Context, wardID string, occupied int, _ string) error {
	if !model.IsKnownWard(wardID) {
		return ErrUnknownWard
	}
	r.mu.Lock()
	r.occupied[wardID] = occupied
	r.mu.Unlock()
	return nil
}

func (r *MemoryWardRepo) LatestOccupied(_ context.Context, wardID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.occupied[wardID], nil
}

func (r *MemoryWardRepo) SetActiveSurge(_ context.Context, wardID string, active int, _ string) error {
	if !model.IsKnownWard(wardID) {
		return ErrUnknownWard
	}
	r.mu.Lock()
	r.surge[wardID] = active
	r.mu.Unlock()
	return nil
}

func (r *MemoryWardRepo) ActiveSurge(_ context.Context, wardID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.surge[wardID], nil
}
