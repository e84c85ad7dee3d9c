package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Authorizer проверяет, входит ли пользователь Telegram в список администраторов.
// Пустой список или неизвестный пользователь - доступ запрещен.
type Authorizer struct {
	usernames map[string]struct{}
	ids       map[int64]struct{}
}

// NewAuthorizer создает проверку по именам пользователей (без учета регистра и @) и числовым ID
func NewAuthorizer(usernames []string, ids []int64) *Authorizer {
	a := &Authorizer{
		usernames: make(map[string]struct{}, len(usernames)),
		ids:       make(map[int64]struct{}, len(ids)),
	}
	for _, name := range usernames {
		if name = normalizeUsername(name); name != "" {
			a.usernames[name] = struct{}{}
		}
	}
	for _, id := range ids {
		a.ids[id] = struct{}{}
	}
	return a
}

// IsAdmin сообщает, есть ли у пользователя права администратора
func (a *Authorizer) IsAdmin(user *tgbotapi.User) bool {
	if a == nil || user == nil {
		return false
	}
	if _, ok := a.ids[user.ID]; ok {
		return true
	}
	if name := normalizeUsername(user.UserName); name != "" {
		_, ok := a.usernames[name]
		return ok
	}
	return false
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
