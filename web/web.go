package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Templates разбирает встроенные HTML шаблоны. mediaURL - префикс загруженных файлов.
func Templates(mediaURL string) (*template.Template, error) {
	return template.New("").Funcs(Funcs(mediaURL)).ParseFS(templateFiles, "templates/*.html")
}

// Static возвращает встроенные статические файлы (js, css)
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Funcs возвращает функции, доступные в шаблонах
func Funcs(mediaURL string) template.FuncMap {
	mediaURL = strings.TrimRight(mediaURL, "/") + "/"
	return template.FuncMap{
		"media": func(path string) string {
			if path == "" {
				return ""
			}
			return mediaURL + strings.TrimLeft(path, "/")
		},
		"price":   FormatPrice,
		"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"add":     func(a, b int) int { return a + b },
		"maxOf": func(values [24]int64) int64 {
			var m int64
			for _, v := range values {
				if v > m {
					m = v
				}
			}
			return m
		},
		"barWidth": func(v, max int64) int64 {
			if max == 0 {
				return 0
			}
			return v * 100 / max
		},
	}
}

// FormatPrice форматирует цену с разделением разрядов: 1500000 -> "1 500 000"
func FormatPrice(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	whole := d.Decimal.Truncate(0).String()
	negative := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	result := b.String()
	if frac := d.Decimal.Sub(d.Decimal.Truncate(0)).Abs(); !frac.IsZero() {
		result += "," + frac.StringFixed(2)[2:]
	}
	if negative {
		result = "-" + result
	}
	return result
}
