package repository // repository defines data access for beds

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparison

	"github.com/go-sql-driver/mysql" // mysql exposes driver error numbers

	"github.com/iliyamo/ward-bed-registry/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// BedRepo provides methods to work with beds in MySQL.
type BedRepo struct {
	db *sql.DB
}

// NewBedRepo constructs a BedRepo with the given DB handle.
func NewBedRepo(db *sql.DB) *BedRepo {
	return &BedRepo{db: db}
}

const bedColumns = `bed_id, bed_type, ward_id, ward_name, status, added_at, updated_at`

// Create inserts a bed and reads the row back so timestamps are populated.
// A bed id that exists in any ward yields ErrDuplicateBed.
func (r *BedRepo) Create(ctx context.Context, b *model.Bed) error {
	const q = `INSERT INTO beds (bed_id, bed_type, ward_id, ward_name, status)
	           VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, b.BedID, string(b.BedType), b.WardID, b.WardName, string(b.Status)); err != nil {
		if isDuplicate(err) {
			return ErrDuplicateBed
		}
		return err
	}
	fresh, err := r.GetByID(ctx, b.BedID)
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}

// List returns beds ordered by ward then id.  An empty wardID lists every
// ward.
func (r *BedRepo) List(ctx context.Context, wardID string) ([]model.Bed, error) {
	q := `SELECT ` + bedColumns + ` FROM beds`
	var args []interface{}
	if wardID != "" {
		q += ` WHERE ward_id = ?`
		args = append(args, wardID)
	}
	q += ` ORDER BY ward_id, bed_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Bed, 0)
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a bed by its id.
func (r *BedRepo) GetByID(ctx context.Context, bedID string) (*model.Bed, error) {
	q := `SELECT ` + bedColumns + ` FROM beds WHERE bed_id = ?`
	b, err := scanBed(r.db.QueryRowContext(ctx, q, bedID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBedNotFound
		}
		return nil, err
	}
	return b, nil
}

// UpdateStatus sets the status of a bed and returns the status it had
// before.  Writing the status a bed already has is not an error.
func (r *BedRepo) UpdateStatus(ctx context.Context, bedID string, status model.BedStatus) (model.BedStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var prev string
	err = tx.QueryRowContext(ctx, `SELECT status FROM beds WHERE bed_id = ? FOR UPDATE`, bedID).Scan(&prev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrBedNotFound
		}
		return "", err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE beds SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE bed_id = ?`,
		string(status), bedID)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrBedNotFound
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return model.BedStatus(prev), nil
}

// CountFunctional counts the functional beds of a ward.
func (r *BedRepo) CountFunctional(ctx context.Context, wardID string) (int, error) {
	const q = `SELECT COUNT(*) FROM beds WHERE ward_id = ? AND status = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, wardID, string(model.StatusFunctional)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBed(s rowScanner) (*model.Bed, error) {
	var (
		b       model.Bed
		bedType string
		status  string
	)
	if err := s.Scan(&b.BedID, &bedType, &b.WardID, &b.WardName, &status, &b.AddedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.BedType = model.BedType(bedType)
	b.Status = model.BedStatus(status)
	return &b, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
