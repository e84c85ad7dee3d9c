package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"gos_landing/services"
)

// defaultStatsDays - период /stats и /allstats без аргумента
const defaultStatsDays = 30

// Command - запись таблицы команд бота
type Command struct {
	Name      string
	AdminOnly bool
	Handler   func(ctx context.Context, msg *tgbotapi.Message)
}

func (b *Bot) commandTable() map[string]Command {
	list := []Command{
		{Name: "start", Handler: b.cmdStart},
		{Name: "help", Handler: b.cmdHelp},
		{Name: "stats", Handler: b.cmdStats},
		{Name: "allstats", AdminOnly: true, Handler: b.cmdAllStats},
		{Name: "compare", AdminOnly: true, Handler: b.cmdCompare},
		{Name: "dashboard", AdminOnly: true, Handler: b.cmdDashboard},
	}
	table := make(map[string]Command, len(list))
	for _, c := range list {
		table[c.Name] = c
	}
	return table
}

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	registered := true
	if _, err := b.users.FindByTelegramID(ctx, msg.Chat.ID); err != nil {
		if !errors.Is(err, services.ErrNotRegistered) {
			b.logger.Error("failed to look up telegram user", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		}
		registered = false
	}

	text := FormatStart(displayName(msg.From), registered, b.auth.IsAdmin(msg.From))
	if !registered {
		b.sendText(msg.Chat.ID, text, ContactKeyboard())
		return
	}
	b.sendText(msg.Chat.ID, text, nil)
}

func (b *Bot) cmdHelp(_ context.Context, msg *tgbotapi.Message) {
	b.sendText(msg.Chat.ID, FormatHelp(b.auth.IsAdmin(msg.From)), nil)
}

func (b *Bot) cmdStats(ctx context.Context, msg *tgbotapi.Message) {
	days, err := services.ParseDays(strings.TrimSpace(msg.CommandArguments()), defaultStatsDays)
	if err != nil {
		b.sendText(msg.Chat.ID, msgBadDays, nil)
		return
	}

	summary, err := b.provider.Summary(ctx, services.LastDays(days), services.TelegramScope(msg.Chat.ID))
	switch {
	case errors.Is(err, services.ErrNotRegistered):
		b.sendText(msg.Chat.ID, msgNotRegistered, ContactKeyboard())
		return
	case err != nil:
		b.reportError(msg.Chat.ID, err)
		return
	}
	b.sendText(msg.Chat.ID, FormatSummary("Ваши локации", summary), nil)
}

func (b *Bot) cmdAllStats(ctx context.Context, msg *tgbotapi.Message) {
	days, err := services.ParseDays(strings.TrimSpace(msg.CommandArguments()), defaultStatsDays)
	if err != nil {
		b.sendText(msg.Chat.ID, msgBadDays, nil)
		return
	}

	summary, err := b.provider.Summary(ctx, services.LastDays(days), services.AdminScope())
	if err != nil {
		b.reportError(msg.Chat.ID, err)
		return
	}
	b.sendText(msg.Chat.ID, FormatSummary("Все локации", summary), nil)
}

func (b *Bot) cmdCompare(ctx context.Context, msg *tgbotapi.Message) {
	summaries, err := b.provider.Compare(ctx, services.AdminScope())
	if err != nil {
		b.reportError(msg.Chat.ID, err)
		return
	}
	b.sendText(msg.Chat.ID, FormatCompare(summaries), nil)
}

func (b *Bot) cmdDashboard(_ context.Context, msg *tgbotapi.Message) {
	b.sendText(msg.Chat.ID, dashboardText, DashboardKeyboard())
}

// handleContact привязывает чат к пользователю по номеру телефона из контакта
func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	contact := msg.Contact
	if msg.From == nil || contact.UserID != msg.From.ID {
		b.sendText(msg.Chat.ID, msgForeignContact, nil)
		return
	}

	user, err := b.users.RegisterTelegram(ctx, contact.PhoneNumber, msg.Chat.ID, msg.From.UserName)
	switch {
	case errors.Is(err, services.ErrNotRegistered):
		b.logger.Info("contact does not match any user", zap.Int64("chat_id", msg.Chat.ID))
		b.sendText(msg.Chat.ID, "Пользователь с таким номером не найден. Обратитесь к администратору.",
			tgbotapi.NewRemoveKeyboard(true))
		return
	case err != nil:
		b.logger.Error("failed to register telegram user", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.sendText(msg.Chat.ID, msgInternalError, nil)
		return
	}

	b.logger.Info("telegram user registered",
		zap.Uint("user_id", user.ID),
		zap.Int64("chat_id", msg.Chat.ID))
	b.sendText(msg.Chat.ID,
		"✅ Аккаунт *"+escapeMarkdown(user.DisplayName())+"* привязан. Используйте /stats для просмотра статистики.",
		tgbotapi.NewRemoveKeyboard(true))
}

// handleCallback обрабатывает кнопки панели: range:<метка>, compare:, back:
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if !b.auth.IsAdmin(query.From) {
		b.answerCallback(query.ID, msgForbidden)
		return
	}
	if query.Message == nil {
		b.answerCallback(query.ID, "")
		return
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	action, arg, _ := strings.Cut(query.Data, ":")

	switch action {
	case "range":
		summary, err := b.provider.Summary(ctx, services.ParseRange(arg), services.AdminScope())
		if err != nil {
			b.logger.Error("failed to load statistics", zap.Int64("chat_id", chatID), zap.Error(err))
			b.answerCallback(query.ID, msgTryLater)
			return
		}
		keyboard := BackKeyboard()
		b.editText(chatID, messageID, FormatSummary("Все локации", summary), &keyboard)
	case "compare":
		summaries, err := b.provider.Compare(ctx, services.AdminScope())
		if err != nil {
			b.logger.Error("failed to load statistics", zap.Int64("chat_id", chatID), zap.Error(err))
			b.answerCallback(query.ID, msgTryLater)
			return
		}
		keyboard := BackKeyboard()
		b.editText(chatID, messageID, FormatCompare(summaries), &keyboard)
	case "back":
		keyboard := DashboardKeyboard()
		b.editText(chatID, messageID, dashboardText, &keyboard)
	default:
		b.logger.Warn("unknown callback", zap.String("data", query.Data))
	}
	b.answerCallback(query.ID, "")
}
