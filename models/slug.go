package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const pendingSlugPrefix = "pending-"

var (
	slugInvalidChars = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators   = regexp.MustCompile(`[-\s]+`)
	asciiOnly        = transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r >= utf8.RuneSelf
	})))
)

// Slugify строит ASCII слаг: диакритика снимается, остальные не-ASCII символы
// отбрасываются. Для кириллических названий результат пустой.
func Slugify(value string) string {
	ascii, _, err := transform.String(asciiOnly, value)
	if err != nil {
		return ""
	}
	s := slugInvalidChars.ReplaceAllString(strings.ToLower(ascii), "")
	s = slugSeparators.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-_")
}

// FallbackSlug возвращает слаг из идентификатора: category-12, item-7
func FallbackSlug(prefix string, id uint) string {
	return fmt.Sprintf("%s-%d", prefix, id)
}

// UniqueSlug подбирает свободный слаг в таблице, добавляя суффиксы -1, -2, ...
// Запись с excludeID (сама сущность) при проверке не учитывается.
func UniqueSlug(tx *gorm.DB, table, base string, maxLen int, excludeID uint) (string, error) {
	db := tx.Session(&gorm.Session{NewDB: true})
	base = truncateSlug(base, maxLen)
	candidate := base
	for i := 1; ; i++ {
		var count int64
		if err := db.Table(table).Where("slug = ? AND id <> ?", candidate, excludeID).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		suffix := fmt.Sprintf("-%d", i)
		candidate = truncateSlug(base, maxLen-len(suffix)) + suffix
	}
}

// IsPendingSlug сообщает, что слаг временный и будет заменен после вставки
func IsPendingSlug(slug string) bool {
	return strings.HasPrefix(slug, pendingSlugPrefix)
}

func pendingSlug() string {
	return pendingSlugPrefix + uuid.NewString()
}

func truncateSlug(slug string, maxLen int) string {
	if maxLen > 0 && len(slug) > maxLen {
		return strings.TrimRight(slug[:maxLen], "-")
	}
	return slug
}

// prepareSlug заполняет слаг до вставки. Если название не дает слага,
// ставится временный слаг, который AfterCreate заменит на <prefix>-<id>.
func prepareSlug(tx *gorm.DB, table, slug, name string, maxLen int) (string, error) {
	slug = Slugify(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return pendingSlug(), nil
	}
	return UniqueSlug(tx, table, slug, maxLen, 0)
}

// finalizeSlug заменяет временный слаг на слаг из идентификатора
func finalizeSlug(tx *gorm.DB, model interface{}, table, prefix string, id uint, maxLen int) (string, error) {
	slug, err := UniqueSlug(tx, table, FallbackSlug(prefix, id), maxLen, id)
	if err != nil {
		return "", err
	}
	err = tx.Session(&gorm.Session{NewDB: true}).Model(model).UpdateColumn("slug", slug).Error
	return slug, err
}
