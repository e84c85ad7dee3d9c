package models_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gos_landing/models"
	"gos_landing/testutils"
)

func TestLocationCannotBeDeleted(t *testing.T) {
	db := testutils.SetupTestDB(t)
	location := testutils.CreateTestLocation(t, db, "Store A")

	err := db.Delete(location).Error
	assert.ErrorIs(t, err, models.ErrLocationProtected)

	err = db.Where("id = ?", location.ID).Delete(&models.Location{}).Error
	assert.ErrorIs(t, err, models.ErrLocationProtected)

	var count int64
	db.Model(&models.Location{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestScanGetsVisitTokenAndIsImmutable(t *testing.T) {
	db := testutils.SetupTestDB(t)
	location := testutils.CreateTestLocation(t, db, "Store A")

	first := &models.QRCodeScan{LocationID: location.ID}
	second := &models.QRCodeScan{LocationID: location.ID}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	assert.Len(t, first.VisitID, 36)
	assert.NotEqual(t, first.VisitID, second.VisitID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Nil(t, first.IPAddress)

	err := db.Model(first).Update("visit_id", "tampered").Error
	assert.ErrorIs(t, err, models.ErrScanImmutable)

	var reloaded models.QRCodeScan
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.Equal(t, first.VisitID, reloaded.VisitID)
}

func TestScanRequiresExistingLocation(t *testing.T) {
	db := testutils.SetupTestDB(t)

	err := db.Create(&models.QRCodeScan{LocationID: 999}).Error
	assert.Error(t, err)
}

func TestClickIsImmutable(t *testing.T) {
	db := testutils.SetupTestDB(t)
	location := testutils.CreateTestLocation(t, db, "Store A")
	scan := testutils.CreateTestScan(t, db, location.ID, time.Now())
	click := testutils.CreateTestClick(t, db, scan.ID, time.Now())

	err := db.Model(click).Update("timestamp", time.Now().Add(-time.Hour)).Error
	assert.ErrorIs(t, err, models.ErrScanImmutable)

	assert.Error(t, db.Create(&models.PhoneClick{ScanID: 12345}).Error)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Modern Sofa", "modern-sofa"},
		{"Café Déjà Vu", "cafe-deja-vu"},
		{"  Hello,  World!  ", "hello-world"},
		{"snake_case name", "snake_case-name"},
		{"--x--", "x"},
		{"Диван угловой", ""},
		{"Диван Lux 2", "lux-2"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, models.Slugify(tt.in))
		})
	}
}

func TestCategorySlugBackfill(t *testing.T) {
	db := testutils.SetupTestDB(t)

	latin := &models.FurnitureCategory{Name: "Modern Sofa", IsActive: true}
	require.NoError(t, db.Create(latin).Error)
	assert.Equal(t, "modern-sofa", latin.Slug)

	duplicate := &models.FurnitureCategory{Name: "Modern  Sofa!", IsActive: true}
	require.NoError(t, db.Create(duplicate).Error)
	assert.Equal(t, "modern-sofa-1", duplicate.Slug)

	cyrillic := &models.FurnitureCategory{Name: "Кухни", IsActive: true}
	require.NoError(t, db.Create(cyrillic).Error)
	assert.Equal(t, models.FallbackSlug("category", cyrillic.ID), cyrillic.Slug)

	var stored models.FurnitureCategory
	require.NoError(t, db.First(&stored, cyrillic.ID).Error)
	assert.Equal(t, cyrillic.Slug, stored.Slug)
}

func TestFallbackSlugAvoidsTakenValue(t *testing.T) {
	db := testutils.SetupTestDB(t)

	taken := &models.FurnitureCategory{Name: "Taken", Slug: "category-2"}
	require.NoError(t, db.Create(taken).Error)

	empty := &models.FurnitureCategory{Name: ""}
	require.NoError(t, db.Create(empty).Error)
	require.Equal(t, uint(2), empty.ID)
	assert.Equal(t, "category-2-1", empty.Slug)
}

func TestItemSlugBackfill(t *testing.T) {
	db := testutils.SetupTestDB(t)
	category := &models.FurnitureCategory{Name: "Beds"}
	require.NoError(t, db.Create(category).Error)

	item := &models.FurnitureItem{CategoryID: category.ID, Name: "Кровать"}
	require.NoError(t, db.Create(item).Error)
	assert.Equal(t, models.FallbackSlug("item", item.ID), item.Slug)

	explicit := &models.FurnitureItem{CategoryID: category.ID, Name: "Other", Slug: item.Slug}
	require.NoError(t, db.Create(explicit).Error)
	assert.Equal(t, item.Slug+"-1", explicit.Slug)
}

func TestEffectivePrice(t *testing.T) {
	price := decimal.NewNullDecimal(decimal.NewFromInt(1000))
	lower := decimal.NewNullDecimal(decimal.NewFromInt(800))
	higher := decimal.NewNullDecimal(decimal.NewFromInt(1200))

	tests := []struct {
		name     string
		item     models.FurnitureItem
		want     decimal.NullDecimal
		discount bool
	}{
		{"no prices", models.FurnitureItem{}, decimal.NullDecimal{}, false},
		{"price only", models.FurnitureItem{Price: price}, price, false},
		{"lower discount", models.FurnitureItem{Price: price, DiscountPrice: lower}, lower, true},
		{"higher discount ignored", models.FurnitureItem{Price: price, DiscountPrice: higher}, price, false},
		{"discount only", models.FurnitureItem{DiscountPrice: lower}, lower, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.item.EffectivePrice()
			assert.Equal(t, tt.want.Valid, got.Valid)
			if tt.want.Valid {
				assert.True(t, tt.want.Decimal.Equal(got.Decimal))
			}
			assert.Equal(t, tt.discount, tt.item.HasDiscount())
		})
	}
}

func TestUserPhoneIsNormalized(t *testing.T) {
	db := testutils.SetupTestDB(t)

	user := &models.User{Username: "owner", Password: "x", PhoneNumber: "+998 (90) 356-43-34", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	assert.Equal(t, "998903564334", user.PhoneNumber)
	assert.Equal(t, "owner", user.DisplayName())
}
