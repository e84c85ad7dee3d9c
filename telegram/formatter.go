package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gos_landing/services"
)

const (
	msgInternalError  = "Произошла ошибка. Администратор уведомлен."
	msgForbidden      = "⛔ Недостаточно прав."
	msgTryLater       = "⚠️ Статистика временно недоступна. Попробуйте позже."
	msgNotRegistered  = "Ваш аккаунт не зарегистрирован. Поделитесь контактом, чтобы привязать Telegram к учетной записи."
	msgUnknownCommand = "Неизвестная команда. Список команд: /help"
	msgForeignContact = "Отправьте, пожалуйста, свой собственный контакт."
	msgBadDays        = "Количество дней должно быть неотрицательным целым числом, например: /stats 7"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown экранирует служебные символы Markdown (legacy режим Telegram)
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatStart - приветствие; для администратора добавляется список админских команд
func FormatStart(name string, registered, admin bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👋 Здравствуйте, %s!\n\n", escapeMarkdown(name))
	if !registered {
		b.WriteString("Чтобы получать статистику своих локаций, нажмите «Поделиться контактом».\n\n")
	}
	b.WriteString(FormatHelp(admin))
	return b.String()
}

// FormatHelp - список доступных команд
func FormatHelp(admin bool) string {
	var b strings.Builder
	b.WriteString("*Команды:*\n")
	b.WriteString("/stats [дни] - статистика ваших локаций\n")
	b.WriteString("/help - эта справка\n")
	if admin {
		b.WriteString("\n*Администратору:*\n")
		b.WriteString("/allstats [дни] - статистика всех локаций\n")
		b.WriteString("/compare - сравнение периодов\n")
		b.WriteString("/dashboard - интерактивная панель\n")
	}
	return b.String()
}

// FormatSummary выводит ранжированную сводку по локациям
func FormatSummary(title string, summary *services.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s* (%s)\n\n", escapeMarkdown(title), summary.Window.Title())

	if len(summary.Rows) == 0 {
		b.WriteString("Нет локаций для отображения.")
		return b.String()
	}

	for i, row := range summary.Rows {
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, escapeMarkdown(row.Name))
		fmt.Fprintf(&b, "   Сканирования: %d (%.1f%%)\n", row.Scans, row.ScanShare)
		fmt.Fprintf(&b, "   Звонки: %d (%.1f%%)\n", row.Clicks, row.ClickShare)
		fmt.Fprintf(&b, "   Конверсия: %.1f%%\n", row.Conversion)
	}

	fmt.Fprintf(&b, "\n*Итого:* %d сканирований, %d звонков, конверсия %.1f%%",
		summary.TotalScans, summary.TotalClicks, summary.Conversion)
	return b.String()
}

// FormatCompare выводит итоги нескольких окон для сравнения периодов
func FormatCompare(summaries []*services.Summary) string {
	var b strings.Builder
	b.WriteString("📈 *Сравнение периодов*\n\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "*%s*: %d сканирований, %d звонков (%.1f%%)\n",
			capitalize(s.Window.Title()), s.TotalScans, s.TotalClicks, s.Conversion)
	}
	return b.String()
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// FormatDigest - ежедневная сводка за вчера
func FormatDigest(summary *services.Summary) string {
	var b strings.Builder
	b.WriteString("🌅 *Ежедневный отчет*\n\n")
	b.WriteString(FormatSummary("Все локации", summary))
	return b.String()
}

// DashboardKeyboard - кнопки выбора периода панели
func DashboardKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сегодня", "range:today"),
			tgbotapi.NewInlineKeyboardButtonData("Вчера", "range:yesterday"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("7 дней", "range:7d"),
			tgbotapi.NewInlineKeyboardButtonData("30 дней", "range:30d"),
			tgbotapi.NewInlineKeyboardButtonData("Все время", "range:all"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сравнить локации", "compare:"),
		),
	)
}

// BackKeyboard - единственная кнопка возврата к панели
func BackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("« Назад", "back:"),
		),
	)
}

// ContactKeyboard - клавиатура с запросом контакта пользователя
func ContactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Поделиться контактом"),
		),
	)
	keyboard.OneTimeKeyboard = true
	return keyboard
}

const dashboardText = "🎛 *Панель статистики*\nВыберите период:"
