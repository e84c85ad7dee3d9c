package web

import (
	"bytes"
	"io/fs"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gos_landing/models"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		value    decimal.NullDecimal
		expected string
	}{
		{"null", decimal.NullDecimal{}, ""},
		{"small", decimal.NewNullDecimal(decimal.NewFromInt(950)), "950"},
		{"thousands", decimal.NewNullDecimal(decimal.NewFromInt(1500000)), "1 500 000"},
		{"fraction", decimal.NewNullDecimal(decimal.RequireFromString("12500.5")), "12 500,50"},
		{"negative", decimal.NewNullDecimal(decimal.NewFromInt(-4200)), "-4 200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPrice(tt.value))
		})
	}
}

func TestTemplatesParseAndRender(t *testing.T) {
	tmpl, err := Templates("/media/")
	require.NoError(t, err)

	for _, name := range []string{
		"landing.html", "catalog.html", "category.html", "item.html",
		"not_found.html", "admin_location_stats.html", "admin_qrcodes.html", "see_it.html",
	} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "landing.html", map[string]interface{}{
		"Title":   "Главная",
		"Phone":   "+998903564334",
		"VisitID": "abc-123",
		"Categories": []models.FurnitureCategory{
			{Name: "Кухни", Slug: "kukhni", Image: "categories/k.jpg"},
		},
		"Featured": []models.FurnitureItem{},
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `data-visit-id="abc-123"`)
	assert.Contains(t, html, `href="/catalog/kukhni/"`)
	assert.Contains(t, html, `/media/categories/k.jpg`)
	assert.Contains(t, html, `998903564334"`)
	assert.Contains(t, html, "/static/phone-tracking.js")
}

func TestLandingWithoutVisitHasNoToken(t *testing.T) {
	tmpl, err := Templates("/media/")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "landing.html", map[string]interface{}{}))
	assert.NotContains(t, buf.String(), "visit-id-data")
}

func TestFuncs(t *testing.T) {
	funcs := Funcs("/media")

	media := funcs["media"].(func(string) string)
	assert.Equal(t, "/media/furniture/a.jpg", media("/furniture/a.jpg"))
	assert.Equal(t, "", media(""))

	maxOf := funcs["maxOf"].(func([24]int64) int64)
	var hourly [24]int64
	hourly[9] = 7
	hourly[14] = 3
	assert.Equal(t, int64(7), maxOf(hourly))

	barWidth := funcs["barWidth"].(func(int64, int64) int64)
	assert.Equal(t, int64(0), barWidth(5, 0))
	assert.Equal(t, int64(50), barWidth(5, 10))
}

func TestStaticContainsTrackingScript(t *testing.T) {
	data, err := fs.ReadFile(Static(), "phone-tracking.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "/record-phone-click/")
}

func TestSeeItRendersItemsForOverlay(t *testing.T) {
	tmpl, err := Templates("/media/")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "see_it.html", map[string]interface{}{
		"Items": []models.FurnitureItem{{ID: 7, Name: "Тумба", MainImage: "furniture/tv.jpg"}},
	}))
	html := buf.String()
	assert.Contains(t, html, `data-item-id="7"`)
	assert.Contains(t, html, `data-image-url="/media/furniture/tv.jpg"`)
	assert.Contains(t, html, `id="furnitureItemTemplate"`)
	assert.Contains(t, html, "/static/see-it.js")

	data, err := fs.ReadFile(Static(), "see-it.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "furnitureSelector")
}
