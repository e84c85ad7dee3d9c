package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gos_landing/models"
	"gos_landing/testutils"
)

func TestAuditLogAndList(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewAuditService(db, nil)
	ctx := context.Background()

	userID := uint(5)
	locationID := uint(9)
	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID:     &userID,
		Username:   "admin",
		Action:     ActionLocationCreate,
		ResourceID: &locationID,
		Details:    map[string]interface{}{"name": "Store A"},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Username:   "admin",
		Action:     ActionLocationDelete,
		ResourceID: &locationID,
		Err:        models.ErrLocationProtected,
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Action:    ActionUserLogin,
		UserAgent: strings.Repeat("я", 400),
		Err:       errors.New("invalid credentials"),
	}))

	logs, total, err := svc.List(ctx, AuditFilter{Resource: "location"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)
	assert.Equal(t, "location.delete", logs[0].Action)
	assert.False(t, logs[0].Success)
	assert.Equal(t, models.ErrLocationProtected.Error(), logs[0].ErrorMsg)
	assert.True(t, logs[1].Success)
	assert.JSONEq(t, `{"name":"Store A"}`, logs[1].Details)

	logs, total, err = svc.List(ctx, AuditFilter{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "location", logs[0].Resource)

	logs, _, err = svc.List(ctx, AuditFilter{Action: string(ActionUserLogin)})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.LessOrEqual(t, len(logs[0].UserAgent), 500)
	assert.True(t, strings.HasPrefix(logs[0].UserAgent, "яя"))
}

func TestAuditCleanupOldLogs(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewAuditService(db, nil)
	ctx := context.Background()

	old := &models.AuditLog{Action: "user.login", Resource: "user", Success: true, CreatedAt: time.Now().AddDate(0, 0, -100)}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: ActionUserLogin}))

	_, err := svc.CleanupOldLogs(ctx, 0)
	assert.Error(t, err)

	deleted, err := svc.CleanupOldLogs(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := svc.List(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAuditActionResource(t *testing.T) {
	assert.Equal(t, "item", ActionItemGallery.Resource())
	assert.Equal(t, "user", ActionUserLogin.Resource())
}
