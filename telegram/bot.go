package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gos_landing/services"
)

// Bot - Telegram бот статистики. Обновления обрабатываются по одному в цикле Run.
type Bot struct {
	client   Client
	provider StatsProvider
	users    *services.UserService
	auth     *Authorizer
	logger   *zap.Logger
	loc      *time.Location

	commands map[string]Command
	cron     *cron.Cron
}

// NewBot создает бота. loc - часовой пояс расписания ежедневной сводки.
func NewBot(client Client, provider StatsProvider, users *services.UserService, auth *Authorizer, log *zap.Logger, loc *time.Location) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	b := &Bot{
		client:   client,
		provider: provider,
		users:    users,
		auth:     auth,
		logger:   log,
		loc:      loc,
	}
	b.commands = b.commandTable()
	return b
}

// Run получает обновления long polling до отмены ctx
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.client.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started")
	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			b.logger.Info("Telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Warn("updates channel closed")
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate обрабатывает одно обновление. Паника внутри обработчика
// логируется, пользователю отправляется общее сообщение об ошибке.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			if chatID, ok := updateChatID(update); ok {
				b.sendText(chatID, msgInternalError, nil)
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Contact != nil {
		b.handleContact(ctx, msg)
		return
	}
	if !msg.IsCommand() {
		return
	}

	cmd, ok := b.commands[msg.Command()]
	if !ok {
		b.sendText(msg.Chat.ID, msgUnknownCommand, nil)
		return
	}
	if cmd.AdminOnly && !b.auth.IsAdmin(msg.From) {
		b.logger.Warn("privileged command denied",
			zap.String("command", cmd.Name),
			zap.Int64("chat_id", msg.Chat.ID))
		b.sendText(msg.Chat.ID, msgForbidden, nil)
		return
	}
	cmd.Handler(ctx, msg)
}

// reportError переводит ошибку провайдера статистики в ответ пользователю
func (b *Bot) reportError(chatID int64, err error) {
	b.logger.Error("failed to load statistics", zap.Int64("chat_id", chatID), zap.Error(err))
	b.sendText(chatID, msgTryLater, nil)
}

func updateChatID(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return "гость"
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.UserName != "" {
		return u.UserName
	}
	return fmt.Sprintf("id%d", u.ID)
}
