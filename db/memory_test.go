package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoralcitrus/models"
)

func TestMemoryDB_Users(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDB()
	now := time.Now()

	require.NoError(t, store.CreateUser(ctx, &models.UserProfile{UID: "a", Email: "a@x.com", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.CreateUser(ctx, &models.UserProfile{UID: "b", Email: "b@x.com", IsActive: true, CreatedAt: now}))
	assert.ErrorIs(t, store.CreateUser(ctx, &models.UserProfile{UID: "a"}), ErrConflict)

	got, err := store.GetUserByEmail(ctx, "B@X.com")
	require.NoError(t, err)
	assert.Equal(t, "b", got.UID)

	_, err = store.GetUser(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.ListUsers(ctx, UserFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].UID, "newest first")

	inactive := false
	pending, err := store.ListUsers(ctx, UserFilter{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].UID)

	role := models.RoleDataEntry
	plant := models.PlantFormosa
	active := true
	require.NoError(t, store.UpdateUser(ctx, "a", UserUpdate{Role: &role, PlantID: &plant, IsActive: &active}))
	updated, err := store.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, role, updated.Role)
	assert.Equal(t, plant, updated.PlantID)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "a@x.com", updated.Email, "merge keeps other fields")

	assert.ErrorIs(t, store.UpdateUser(ctx, "zzz", UserUpdate{}), ErrNotFound)
}

func TestMemoryDB_Entries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDB()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, plant := range []models.PlantID{models.PlantConcordia, models.PlantFormosa, models.PlantConcordia} {
		_, err := store.CreateEntry(ctx, &models.ReportEntry{
			UserID:    "u1",
			PlantID:   plant,
			Data:      map[string]interface{}{"n": float64(i)},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	concordia, err := store.ListEntries(ctx, EntryQuery{PlantID: models.PlantConcordia})
	require.NoError(t, err)
	require.Len(t, concordia, 2)
	assert.Equal(t, 2.0, concordia[0].Data["n"], "newest first")

	ranged, err := store.ListEntries(ctx, EntryQuery{Since: base.Add(time.Hour), Until: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, models.PlantFormosa, ranged[0].PlantID)

	id := concordia[0].ID
	require.NoError(t, store.UpdateEntry(ctx, id, EntryUpdate{Data: map[string]interface{}{"extra": "x"}}))
	got, err := store.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"n": 2.0, "extra": "x"}, got.Data)

	got.Data["n"] = 99.0
	again, _ := store.GetEntry(ctx, id)
	assert.Equal(t, 2.0, again.Data["n"], "reads are copies")

	require.NoError(t, store.DeleteEntry(ctx, id))
	assert.ErrorIs(t, store.DeleteEntry(ctx, id), ErrNotFound)
	_, err = store.GetEntry(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDB_Audit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDB()
	base := time.Now()

	require.NoError(t, store.AppendAudit(ctx, &models.AuditLogEntry{ResourceType: models.ResourceDataEntry, Timestamp: base}))
	require.NoError(t, store.AppendAudit(ctx, &models.AuditLogEntry{ResourceType: models.ResourceUser, Timestamp: base.Add(time.Second)}))
	require.NoError(t, store.AppendAudit(ctx, &models.AuditLogEntry{ResourceType: models.ResourceDataEntry, Timestamp: base.Add(2 * time.Second)}))

	logs, err := store.ListAudit(ctx, AuditQuery{ResourceType: models.ResourceDataEntry})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].Timestamp.After(logs[1].Timestamp))
	assert.NotEmpty(t, logs[0].ID)

	limited, err := store.ListAudit(ctx, AuditQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
