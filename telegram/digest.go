package telegram

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gos_landing/services"
)

// StartDigest планирует ежедневную сводку по выражению cron с секундами.
// Пустое выражение отключает рассылку.
func (b *Bot) StartDigest(ctx context.Context, spec string) error {
	if spec == "" {
		b.logger.Info("daily digest disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(b.loc))
	if _, err := c.AddFunc(spec, func() {
		if err := b.SendDigest(ctx); err != nil {
			b.logger.Error("failed to send daily digest", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("некорректное расписание сводки %q: %w", spec, err)
	}

	c.Start()
	b.cron = c
	b.logger.Info("daily digest scheduled", zap.String("cron", spec))
	return nil
}

// StopDigest останавливает планировщик и ждет завершения текущей рассылки
func (b *Bot) StopDigest() {
	if b.cron == nil {
		return
	}
	<-b.cron.Stop().Done()
}

// SendDigest отправляет вчерашнюю сводку всем сотрудникам с привязанным Telegram
func (b *Bot) SendDigest(ctx context.Context) error {
	recipients, err := b.users.StaffWithTelegram(ctx)
	if err != nil {
		return fmt.Errorf("ошибка загрузки получателей: %w", err)
	}
	if len(recipients) == 0 {
		b.logger.Info("no digest recipients")
		return nil
	}

	summary, err := b.provider.Summary(ctx, services.Yesterday(), services.AdminScope())
	if err != nil {
		return err
	}

	text := FormatDigest(summary)
	for _, user := range recipients {
		if user.TelegramID == nil {
			continue
		}
		b.sendText(*user.TelegramID, text, nil)
	}
	b.logger.Info("daily digest sent", zap.Int("recipients", len(recipients)))
	return nil
}
