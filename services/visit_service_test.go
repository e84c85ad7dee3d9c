package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gos_landing/models"
	"gos_landing/testutils"
)

func TestRecordVisit(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewVisitService(db, nil)
	ctx := context.Background()
	store := testutils.CreateTestLocation(t, db, "Store A")

	t.Run("известная локация", func(t *testing.T) {
		scan, err := svc.RecordVisit(ctx, store.ID, "10.0.0.1", "Mozilla/5.0")
		require.NoError(t, err)
		assert.NotEmpty(t, scan.VisitID)
		require.NotNil(t, scan.IPAddress)
		assert.Equal(t, "10.0.0.1", *scan.IPAddress)
		assert.Equal(t, "Mozilla/5.0", scan.UserAgent)
	})

	t.Run("без IP и user agent", func(t *testing.T) {
		scan, err := svc.RecordVisit(ctx, store.ID, "", "")
		require.NoError(t, err)
		assert.Nil(t, scan.IPAddress)
		assert.Empty(t, scan.UserAgent)
	})

	t.Run("неизвестная локация", func(t *testing.T) {
		var before int64
		db.Model(&models.QRCodeScan{}).Count(&before)

		scan, err := svc.RecordVisit(ctx, 9999, "10.0.0.1", "ua")
		assert.ErrorIs(t, err, ErrLocationNotFound)
		assert.Nil(t, scan)

		var after int64
		db.Model(&models.QRCodeScan{}).Count(&after)
		assert.Equal(t, before, after)
	})
}

func TestRecordPhoneClick(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewVisitService(db, nil)
	ctx := context.Background()
	store := testutils.CreateTestLocation(t, db, "Store A")

	scan, err := svc.RecordVisit(ctx, store.ID, "", "")
	require.NoError(t, err)

	countClicks := func() int64 {
		var n int64
		db.Model(&models.PhoneClick{}).Where("scan_id = ?", scan.ID).Count(&n)
		return n
	}

	_, err = svc.RecordPhoneClick(ctx, scan.VisitID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countClicks())

	_, err = svc.RecordPhoneClick(ctx, " "+scan.VisitID+" ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), countClicks())

	_, err = svc.RecordPhoneClick(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrVisitNotFound)

	_, err = svc.RecordPhoneClick(ctx, "")
	assert.ErrorIs(t, err, ErrVisitIDRequired)

	var total int64
	db.Model(&models.PhoneClick{}).Count(&total)
	assert.Equal(t, int64(2), total)
}
