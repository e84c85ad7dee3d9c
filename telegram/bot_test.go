package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gos_landing/models"
	"gos_landing/services"
	"gos_landing/testutils"
)

const (
	adminID   int64 = 1001
	managerID int64 = 2002
)

// fakeClient запоминает все отправленные запросы вместо обращения к Telegram
type fakeClient struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeClient) StopReceivingUpdates() { f.stopped = true }

func (f *fakeClient) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "last sent item is %T", f.sent[len(f.sent)-1])
	return msg
}

func (f *fakeClient) lastEdit(t *testing.T) tgbotapi.EditMessageTextConfig {
	t.Helper()
	require.NotEmpty(t, f.sent)
	edit, ok := f.sent[len(f.sent)-1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok, "last sent item is %T", f.sent[len(f.sent)-1])
	return edit
}

func (f *fakeClient) lastCallback(t *testing.T) tgbotapi.CallbackConfig {
	t.Helper()
	require.NotEmpty(t, f.requests)
	cb, ok := f.requests[len(f.requests)-1].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	return cb
}

// stubProvider отдает заранее заданный результат
type stubProvider struct {
	summary *services.Summary
	err     error
	panics  bool
	scopes  []services.Scope
}

func (p *stubProvider) Summary(_ context.Context, window services.Window, scope services.Scope) (*services.Summary, error) {
	if p.panics {
		panic("boom")
	}
	p.scopes = append(p.scopes, scope)
	if p.err != nil {
		return nil, p.err
	}
	s := *p.summary
	s.Window = window
	return &s, nil
}

func (p *stubProvider) Compare(ctx context.Context, scope services.Scope) ([]*services.Summary, error) {
	s, err := p.Summary(ctx, services.Today(), scope)
	if err != nil {
		return nil, err
	}
	return []*services.Summary{s}, nil
}

type testBot struct {
	bot    *Bot
	client *fakeClient
	db     *gorm.DB
}

func setupBot(t *testing.T, provider StatsProvider) *testBot {
	t.Helper()

	db := testutils.SetupTestDB(t)
	if provider == nil {
		cache := services.NewCacheService(nil, time.Minute, zap.NewNop())
		provider = NewDirectProvider(services.NewStatsService(db, cache, time.UTC))
	}
	client := newFakeClient()
	auth := NewAuthorizer([]string{"@Boss"}, []int64{adminID})
	bot := NewBot(client, provider, services.NewUserService(db), auth, zap.NewNop(), time.UTC)
	return &testBot{bot: bot, client: client, db: db}
}

func commandUpdate(fromID int64, username, text string) tgbotapi.Update {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: fromID, UserName: username, FirstName: "Иван"},
			Chat:      &tgbotapi.Chat{ID: fromID},
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
		},
	}
}

func callbackUpdate(fromID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: fromID},
			Data:    data,
			Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: fromID}},
		},
	}
}

func bindTelegram(t *testing.T, db *gorm.DB, user *models.User, chatID int64) {
	t.Helper()
	require.NoError(t, db.Model(user).Update("telegram_id", chatID).Error)
}

func TestUnknownCommandGetsHint(t *testing.T) {
	tb := setupBot(t, nil)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(managerID, "", "/foo"))

	assert.Equal(t, msgUnknownCommand, tb.client.lastMessage(t).Text)
}

func TestAdminCommandsDeniedForOthers(t *testing.T) {
	provider := &stubProvider{summary: &services.Summary{}}
	tb := setupBot(t, provider)

	for _, cmd := range []string{"/allstats", "/compare", "/dashboard"} {
		tb.bot.HandleUpdate(context.Background(), commandUpdate(managerID, "manager", cmd))
		assert.Equal(t, msgForbidden, tb.client.lastMessage(t).Text, cmd)
	}
	assert.Empty(t, provider.scopes)
}

func TestAllStatsForAdmin(t *testing.T) {
	tb := setupBot(t, nil)
	a := testutils.CreateTestLocation(t, tb.db, "Store_A")
	testutils.CreateTestLocation(t, tb.db, "Store B")
	now := time.Now()
	scan := testutils.CreateTestScan(t, tb.db, a.ID, now)
	testutils.CreateTestScan(t, tb.db, a.ID, now)
	testutils.CreateTestClick(t, tb.db, scan.ID, now)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(adminID, "", "/allstats 7"))

	text := tb.client.lastMessage(t).Text
	assert.Contains(t, text, "за 7 дн.")
	assert.Contains(t, text, "1. *Store\\_A*")
	assert.Contains(t, text, "Сканирования: 2 (100.0%)")
	assert.Contains(t, text, "Конверсия: 50.0%")
	assert.Contains(t, text, "Store B")

	// Администратор по имени пользователя
	tb.bot.HandleUpdate(context.Background(), commandUpdate(42, "boss", "/allstats"))
	assert.Contains(t, tb.client.lastMessage(t).Text, "за 30 дн.")
}

func TestStatsRejectsBadDays(t *testing.T) {
	tb := setupBot(t, nil)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(managerID, "", "/stats -3"))

	assert.Equal(t, msgBadDays, tb.client.lastMessage(t).Text)
}

func TestStatsForUnregisteredChat(t *testing.T) {
	tb := setupBot(t, nil)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(managerID, "", "/stats"))

	msg := tb.client.lastMessage(t)
	assert.Equal(t, msgNotRegistered, msg.Text)
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, msg.ReplyMarkup)
}

func TestStatsShowsOnlyOwnLocations(t *testing.T) {
	tb := setupBot(t, nil)
	manager := testutils.CreateTestUser(t, tb.db, "manager", false)
	bindTelegram(t, tb.db, manager, managerID)
	own := testutils.CreateTestLocation(t, tb.db, "Own store", manager)
	testutils.CreateTestLocation(t, tb.db, "Foreign store")
	testutils.CreateTestScan(t, tb.db, own.ID, time.Now())

	tb.bot.HandleUpdate(context.Background(), commandUpdate(managerID, "", "/stats"))

	text := tb.client.lastMessage(t).Text
	assert.Contains(t, text, "Own store")
	assert.NotContains(t, text, "Foreign store")
}

func TestUpstreamErrorAsksToTryLater(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	tb := setupBot(t, provider)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(adminID, "", "/compare"))

	assert.Equal(t, msgTryLater, tb.client.lastMessage(t).Text)
}

func TestPanicIsRecovered(t *testing.T) {
	tb := setupBot(t, &stubProvider{panics: true})

	assert.NotPanics(t, func() {
		tb.bot.HandleUpdate(context.Background(), commandUpdate(adminID, "", "/allstats"))
	})
	assert.Equal(t, msgInternalError, tb.client.lastMessage(t).Text)
}

func TestStartOffersContactToUnregistered(t *testing.T) {
	tb := setupBot(t, nil)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(managerID, "", "/start"))
	msg := tb.client.lastMessage(t)
	assert.Contains(t, msg.Text, "Здравствуйте, Иван")
	assert.NotContains(t, msg.Text, "/allstats")
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, msg.ReplyMarkup)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(adminID, "", "/help"))
	assert.Contains(t, tb.client.lastMessage(t).Text, "/dashboard")
}

func TestContactRegistration(t *testing.T) {
	tb := setupBot(t, nil)
	manager := testutils.CreateTestUser(t, tb.db, "manager", false)
	require.NoError(t, tb.db.Model(manager).Update("phone_number", "998903564334").Error)

	contactUpdate := func(contactUserID int64, phone string) tgbotapi.Update {
		return tgbotapi.Update{Message: &tgbotapi.Message{
			From:    &tgbotapi.User{ID: managerID, UserName: "mgr"},
			Chat:    &tgbotapi.Chat{ID: managerID},
			Contact: &tgbotapi.Contact{PhoneNumber: phone, UserID: contactUserID},
		}}
	}

	tb.bot.HandleUpdate(context.Background(), contactUpdate(555, "+998903564334"))
	assert.Equal(t, msgForeignContact, tb.client.lastMessage(t).Text)

	tb.bot.HandleUpdate(context.Background(), contactUpdate(managerID, "+7 999 000 00 00"))
	assert.Contains(t, tb.client.lastMessage(t).Text, "не найден")

	tb.bot.HandleUpdate(context.Background(), contactUpdate(managerID, "+998 90 356-43-34"))
	assert.Contains(t, tb.client.lastMessage(t).Text, "привязан")

	var stored models.User
	require.NoError(t, tb.db.First(&stored, manager.ID).Error)
	require.NotNil(t, stored.TelegramID)
	assert.Equal(t, managerID, *stored.TelegramID)
	assert.Equal(t, "mgr", stored.TelegramUsername)
}

func TestDashboardCallbacks(t *testing.T) {
	provider := &stubProvider{summary: &services.Summary{}}
	tb := setupBot(t, provider)

	tb.bot.HandleUpdate(context.Background(), commandUpdate(adminID, "", "/dashboard"))
	msg := tb.client.lastMessage(t)
	assert.Equal(t, dashboardText, msg.Text)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, msg.ReplyMarkup)

	tb.bot.HandleUpdate(context.Background(), callbackUpdate(adminID, "range:yesterday"))
	edit := tb.client.lastEdit(t)
	assert.Equal(t, 77, edit.MessageID)
	assert.Contains(t, edit.Text, "вчера")
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, "back:", *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cb-1", tb.client.lastCallback(t).CallbackQueryID)

	tb.bot.HandleUpdate(context.Background(), callbackUpdate(adminID, "compare:"))
	assert.Contains(t, tb.client.lastEdit(t).Text, "Сравнение периодов")

	tb.bot.HandleUpdate(context.Background(), callbackUpdate(adminID, "back:"))
	assert.Equal(t, dashboardText, tb.client.lastEdit(t).Text)

	for _, scope := range provider.scopes {
		assert.True(t, scope.All)
	}
}

func TestDashboardCallbackDeniedForOthers(t *testing.T) {
	provider := &stubProvider{summary: &services.Summary{}}
	tb := setupBot(t, provider)

	tb.bot.HandleUpdate(context.Background(), callbackUpdate(managerID, "range:all"))

	assert.Empty(t, tb.client.sent)
	assert.Equal(t, msgForbidden, tb.client.lastCallback(t).Text)
	assert.Empty(t, provider.scopes)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	tb := setupBot(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tb.bot.Run(ctx)
		close(done)
	}()

	tb.client.updates <- commandUpdate(managerID, "", "/help")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.True(t, tb.client.stopped)
}
