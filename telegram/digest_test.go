package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gos_landing/services"
	"gos_landing/testutils"
)

func TestSendDigest(t *testing.T) {
	tb := setupBot(t, nil)
	ctx := context.Background()

	// Без получателей ничего не отправляется
	require.NoError(t, tb.bot.SendDigest(ctx))
	assert.Empty(t, tb.client.sent)

	boss := testutils.CreateTestUser(t, tb.db, "boss", true)
	bindTelegram(t, tb.db, boss, adminID)
	testutils.CreateTestUser(t, tb.db, "staff-without-chat", true)
	manager := testutils.CreateTestUser(t, tb.db, "manager", false)
	bindTelegram(t, tb.db, manager, managerID)

	location := testutils.CreateTestLocation(t, tb.db, "Store A")
	testutils.CreateTestScan(t, tb.db, location.ID, time.Now().Add(-24*time.Hour))

	require.NoError(t, tb.bot.SendDigest(ctx))
	require.Len(t, tb.client.sent, 1)
	msg := tb.client.lastMessage(t)
	assert.Equal(t, adminID, msg.ChatID)
	assert.Contains(t, msg.Text, "Ежедневный отчет")
	assert.Contains(t, msg.Text, "вчера")
	assert.Contains(t, msg.Text, "Store A")
}

func TestStartDigest(t *testing.T) {
	tb := setupBot(t, &stubProvider{summary: &services.Summary{}})
	ctx := context.Background()

	require.NoError(t, tb.bot.StartDigest(ctx, ""))
	assert.Nil(t, tb.bot.cron)

	assert.Error(t, tb.bot.StartDigest(ctx, "not a cron"))

	require.NoError(t, tb.bot.StartDigest(ctx, "0 0 9 * * *"))
	require.NotNil(t, tb.bot.cron)
	assert.Len(t, tb.bot.cron.Entries(), 1)
	tb.bot.StopDigest()
}
