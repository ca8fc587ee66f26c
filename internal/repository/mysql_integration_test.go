//go:build integration

package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ward-bed-registry/internal/database"
	"github.com/iliyamo/ward-bed-registry/internal/model"
)

// Runs against the database named by DB_* variables, e.g.
// DB_USER=root DB_PASS=secret DB_NAME=wardbeds go test -tags integration ./internal/repository
func TestMySQLRepos(t *testing.T) {
	name := os.Getenv("DB_NAME")
	if name == "" {
		t.Skip("DB_NAME not set")
	}
	host, port := os.Getenv("DB_HOST"), os.Getenv("DB_PORT")
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3306"
	}
	db, err := database.Open(os.Getenv("DB_USER"), os.Getenv("DB_PASS"), host, port, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db))

	beds := NewBedRepo(db)
	wards := NewWardRepo(db)
	id := "IT-" + uuid.NewString()[:8]
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM beds WHERE bed_id = ?`, id) })

	b := &model.Bed{BedID: id, BedType: model.BedTypeStandard, WardID: model.WardGeneral, WardName: "General Ward", Status: model.StatusFunctional}
	require.NoError(t, beds.Create(ctx, b))
	assert.False(t, b.AddedAt.IsZero())
	assert.ErrorIs(t, beds.Create(ctx, &model.Bed{BedID: id, BedType: model.BedTypeStandard, WardID: model.WardA, WardName: "Ward A (Medical)", Status: model.StatusFunctional}), ErrDuplicateBed)

	prev, err := beds.UpdateStatus(ctx, id, model.StatusBroken)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFunctional, prev)
	prev, err = beds.UpdateStatus(ctx, id, model.StatusBroken)
	require.NoError(t, err, "rewriting the same status still finds the row")
	assert.Equal(t, model.StatusBroken, prev)

	_, err = beds.UpdateStatus(ctx, "IT-missing-"+id, model.StatusBroken)
	assert.ErrorIs(t, err, ErrBedNotFound)

	require.NoError(t, wards.RecordCensus(ctx, model.WardGeneral, 4, "it"))
	occ, err := wards.LatestOccupied(ctx, model.WardGeneral)
	require.NoError(t, err)
	assert.Equal(t, 4, occ)

	require.NoError(t, wards.SetActiveSurge(ctx, model.WardA, 2, "it"))
	require.NoError(t, wards.SetActiveSurge(ctx, model.WardA, 1, "it"))
	surge, err := wards.ActiveSurge(ctx, model.WardA)
	require.NoError(t, err)
	assert.Equal(t, 1, surge)
}
