package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ward-bed-registry/internal/model"
)

// WardRepo stores the per-ward occupancy census and the number of surge
// beds opened.  Capacity itself is never stored; it is counted from beds.
type WardRepo struct {
	db *sql.DB
}

// NewWardRepo constructs a WardRepo with the given DB handle.
func NewWardRepo(db *sql.DB) *WardRepo {
	return &WardRepo{db: db}
}

// RecordCensus appends an occupancy reading for a ward.  Ward ids outside
// the fixed ward set yield ErrUnknownWard.
func (r *WardRepo) RecordCensus(ctx context.Context, wardID string, occupied int, recordedBy string) error {
	if !model.IsKnownWard(wardID) {
		return ErrUnknownWard
	}
	const q = `INSERT INTO ward_census (ward_id, occupied, recorded_by) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, wardID, occupied, recordedBy)
	return err
}

// LatestOccupied returns the most recent occupancy reading of a ward, or 0
// when the ward has never been counted.
func (r *WardRepo) LatestOccupied(ctx context.Context, wardID string) (int, error) {
	const q = `SELECT occupied FROM ward_census
	           WHERE ward_id = ?
	           ORDER BY recorded_at DESC, id DESC
	           LIMIT 1`
	var n int
	err := r.db.QueryRowContext(ctx, q, wardID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// SetActiveSurge records how many surge beds a ward has opened.
func (r *WardRepo) SetActiveSurge(ctx context.Context, wardID string, active int, updatedBy string) error {
	if !model.IsKnownWard(wardID) {
		return ErrUnknownWard
	}
	const q = `INSERT INTO ward_surge (ward_id, active, updated_by) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE active = VALUES(active), updated_by = VALUES(updated_by), updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.ExecContext(ctx, q, wardID, active, updatedBy)
	return err
}

// ActiveSurge returns the surge beds currently opened by a ward.
func (r *WardRepo) ActiveSurge(ctx context.Context, wardID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT active FROM ward_surge WHERE ward_id = ?`, wardID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
