package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gos_landing/models"
	"gos_landing/testutils"
)

func TestLocationServiceCRUD(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewLocationService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, LocationInput{Name: "  Store A ", Description: "У входа"})
	require.NoError(t, err)
	assert.Equal(t, "Store A", created.Name)

	updated, err := svc.Update(ctx, created.ID, LocationInput{Name: "Store A1", Description: "Касса"})
	require.NoError(t, err)
	assert.Equal(t, "Store A1", updated.Name)
	assert.Equal(t, "Касса", updated.Description)

	_, err = svc.Update(ctx, 999, LocationInput{Name: "x"})
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestLocationServiceListCountsScans(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewLocationService(db)
	ctx := context.Background()

	a := testutils.CreateTestLocation(t, db, "Alpha")
	b := testutils.CreateTestLocation(t, db, "Beta")
	now := time.Now()
	testutils.CreateTestScan(t, db, a.ID, now)
	testutils.CreateTestScan(t, db, a.ID, now)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, int64(2), list[0].ScanCount)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Equal(t, int64(0), list[1].ScanCount)
}

func TestLocationServiceDeleteIsRefused(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewLocationService(db)
	ctx := context.Background()

	location := testutils.CreateTestLocation(t, db, "Store A")

	err := svc.Delete(ctx, location.ID)
	assert.ErrorIs(t, err, models.ErrLocationProtected)

	_, err = svc.Get(ctx, location.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, 12345), ErrLocationNotFound)
}

func TestLocationServiceSetOwners(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewLocationService(db)
	ctx := context.Background()

	location := testutils.CreateTestLocation(t, db, "Store A")
	alice := testutils.CreateTestUser(t, db, "alice", false)
	bob := testutils.CreateTestUser(t, db, "bob", false)

	got, err := svc.SetOwners(ctx, location.ID, []uint{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Len(t, got.Users, 2)

	got, err = svc.SetOwners(ctx, location.ID, []uint{bob.ID})
	require.NoError(t, err)
	require.Len(t, got.Users, 1)
	assert.Equal(t, "bob", got.Users[0].Username)

	_, err = svc.SetOwners(ctx, location.ID, []uint{bob.ID, 777})
	assert.ErrorIs(t, err, ErrUserNotFound)

	got, err = svc.SetOwners(ctx, location.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Users)
}
