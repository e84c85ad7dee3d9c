package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gos_landing/models"
	"gos_landing/testutils"
)

func tashkent(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)
	return loc
}

// setupStatsService возвращает сервис с зафиксированным временем: 15.06.2025 12:00 по Ташкенту
func setupStatsService(t *testing.T) (*StatsService, *gorm.DB, time.Time) {
	db := testutils.SetupTestDB(t)
	loc := tashkent(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, loc)
	svc := NewStatsService(db, nil, loc).WithClock(func() time.Time { return now })
	return svc, db, now
}

func TestWindowBounds(t *testing.T) {
	loc := tashkent(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, loc)
	midnight := time.Date(2025, 6, 15, 0, 0, 0, 0, loc)

	tests := []struct {
		name     string
		window   Window
		wantFrom *time.Time
		wantTo   *time.Time
	}{
		{"today", Today(), &midnight, nil},
		{"last days zero equals today", LastDays(0), &midnight, nil},
		{"yesterday", Yesterday(), ptrTime(midnight.AddDate(0, 0, -1)), &midnight},
		{"seven days", LastDays(7), ptrTime(midnight.AddDate(0, 0, -7)), nil},
		{"all time", AllTime(), nil, nil},
		{"longest bounded window", LastDays(MaxWindowDays), ptrTime(midnight.AddDate(0, 0, -MaxWindowDays)), nil},
		{"huge window is unbounded", LastDays(9999999999), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := tt.window.Bounds(now, loc)
			assertTimePtr(t, tt.wantFrom, from)
			assertTimePtr(t, tt.wantTo, to)
		})
	}
}

func TestParseRangeAndDays(t *testing.T) {
	assert.Equal(t, Today(), ParseRange("today"))
	assert.Equal(t, Yesterday(), ParseRange("yesterday"))
	assert.Equal(t, LastDays(7), ParseRange("7d"))
	assert.Equal(t, LastDays(30), ParseRange("30d"))
	assert.Equal(t, AllTime(), ParseRange("all"))
	assert.Equal(t, LastDays(30), ParseRange("bogus"))

	assert.Equal(t, "today", LastDays(0).Key())
	assert.Equal(t, "7d", LastDays(7).Key())

	days, err := ParseDays("", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, days)

	days, err = ParseDays("7", 30)
	require.NoError(t, err)
	assert.Equal(t, 7, days)

	_, err = ParseDays("-1", 30)
	assert.ErrorIs(t, err, ErrInvalidDays)
	_, err = ParseDays("abc", 30)
	assert.ErrorIs(t, err, ErrInvalidDays)
}

func TestLocationStatsWindows(t *testing.T) {
	svc, db, now := setupStatsService(t)
	ctx := context.Background()

	store := testutils.CreateTestLocation(t, db, "Store A")
	empty := testutils.CreateTestLocation(t, db, "Empty")

	// N = 3 сканирования за последние 24 часа, M = 2 старше 30 дней
	for i := 1; i <= 3; i++ {
		testutils.CreateTestScan(t, db, store.ID, now.Add(-time.Duration(i)*time.Hour))
	}
	for i := 0; i < 2; i++ {
		testutils.CreateTestScan(t, db, store.ID, now.AddDate(0, 0, -40))
	}

	tests := []struct {
		name   string
		window Window
		want   int64
	}{
		{"one day", LastDays(1), 3},
		{"thirty days", LastDays(30), 3},
		{"all time", AllTime(), 5},
		{"yesterday", Yesterday(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts, err := svc.LocationStats(ctx, tt.window, AdminScope())
			require.NoError(t, err)
			require.Len(t, counts, 2)
			assert.Equal(t, store.ID, counts[0].ID)
			assert.Equal(t, tt.want, counts[0].Scans)
			assert.Equal(t, empty.ID, counts[1].ID)
			assert.Zero(t, counts[1].Scans)
		})
	}
}

func TestYesterdayIsSingleCalendarDay(t *testing.T) {
	svc, db, now := setupStatsService(t)
	store := testutils.CreateTestLocation(t, db, "Store A")

	loc := svc.Location()
	yesterdayNoon := time.Date(2025, 6, 14, 12, 0, 0, 0, loc)
	testutils.CreateTestScan(t, db, store.ID, yesterdayNoon)
	testutils.CreateTestScan(t, db, store.ID, time.Date(2025, 6, 14, 0, 0, 0, 0, loc))
	testutils.CreateTestScan(t, db, store.ID, time.Date(2025, 6, 13, 23, 59, 0, 0, loc))
	testutils.CreateTestScan(t, db, store.ID, now)

	counts, err := svc.LocationStats(context.Background(), Yesterday(), AdminScope())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[0].Scans)

	counts, err = svc.LocationStats(context.Background(), Today(), AdminScope())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[0].Scans)
}

func TestSummaryRankingAndShares(t *testing.T) {
	svc, db, now := setupStatsService(t)
	ctx := context.Background()

	alpha := testutils.CreateTestLocation(t, db, "Alpha")
	beta := testutils.CreateTestLocation(t, db, "Beta")
	gamma := testutils.CreateTestLocation(t, db, "Gamma")
	testutils.CreateTestLocation(t, db, "Delta")

	// Alpha и Beta: по 2 сканирования, у Beta больше кликов. Gamma: 1 сканирование.
	for _, l := range []*models.Location{alpha, alpha, beta, beta, gamma} {
		testutils.CreateTestScan(t, db, l.ID, now.Add(-time.Hour))
	}
	betaScan := testutils.CreateTestScan(t, db, beta.ID, now.AddDate(0, 0, -100))
	testutils.CreateTestClick(t, db, betaScan.ID, now.Add(-time.Minute))

	summary, err := svc.Summary(ctx, Today(), AdminScope())
	require.NoError(t, err)
	require.Len(t, summary.Rows, 4)

	names := []string{}
	for _, row := range summary.Rows {
		names = append(names, row.Name)
	}
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma", "Delta"}, names)
	assert.Equal(t, int64(5), summary.TotalScans)
	assert.Equal(t, int64(1), summary.TotalClicks)

	var shareSum float64
	for _, row := range summary.Rows {
		shareSum += row.ScanShare
	}
	assert.InDelta(t, 100.0, shareSum, 0.001)
	assert.InDelta(t, 40.0, summary.Rows[0].ScanShare, 0.001)
	assert.InDelta(t, 20.0, summary.Conversion, 0.001)
}

func TestSummaryZeroTotals(t *testing.T) {
	svc, db, _ := setupStatsService(t)
	testutils.CreateTestLocation(t, db, "Alpha")
	testutils.CreateTestLocation(t, db, "Beta")

	summary, err := svc.Summary(context.Background(), LastDays(30), AdminScope())
	require.NoError(t, err)
	require.Len(t, summary.Rows, 2)
	for _, row := range summary.Rows {
		assert.Zero(t, row.ScanShare)
		assert.Zero(t, row.ClickShare)
		assert.Zero(t, row.Conversion)
	}
	assert.Equal(t, "Alpha", summary.Rows[0].Name)
	assert.Zero(t, Share(5, 0))
}

func TestUserAndTelegramScopes(t *testing.T) {
	svc, db, now := setupStatsService(t)
	ctx := context.Background()

	owner := testutils.CreateTestUser(t, db, "owner", false)
	chatID := int64(555)
	require.NoError(t, db.Model(owner).Update("telegram_id", chatID).Error)

	own := testutils.CreateTestLocation(t, db, "Own", owner)
	foreign := testutils.CreateTestLocation(t, db, "Foreign")
	testutils.CreateTestScan(t, db, own.ID, now)
	testutils.CreateTestScan(t, db, foreign.ID, now)

	counts, err := svc.LocationStats(ctx, Today(), UserScope(owner.ID))
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "Own", counts[0].Name)

	counts, err = svc.LocationStats(ctx, Today(), TelegramScope(chatID))
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, own.ID, counts[0].ID)

	_, err = svc.LocationStats(ctx, Today(), TelegramScope(999))
	assert.ErrorIs(t, err, ErrNotRegistered)

	stranger := testutils.CreateTestUser(t, db, "stranger", false)
	counts, err = svc.LocationStats(ctx, Today(), UserScope(stranger.ID))
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestCompare(t *testing.T) {
	svc, db, now := setupStatsService(t)
	store := testutils.CreateTestLocation(t, db, "Store A")
	testutils.CreateTestScan(t, db, store.ID, now)
	testutils.CreateTestScan(t, db, store.ID, now.AddDate(0, 0, -1))
	testutils.CreateTestScan(t, db, store.ID, now.AddDate(0, 0, -10))

	periods, err := svc.Compare(context.Background(), AdminScope())
	require.NoError(t, err)
	require.Len(t, periods, 4)

	got := []int64{}
	for _, p := range periods {
		got = append(got, p.TotalScans)
	}
	assert.Equal(t, []int64{1, 1, 2, 3}, got)
}

func TestLocationOverview(t *testing.T) {
	svc, db, now := setupStatsService(t)
	ctx := context.Background()
	loc := svc.Location()

	store := testutils.CreateTestLocation(t, db, "Store A")
	morning := testutils.CreateTestScan(t, db, store.ID, time.Date(2025, 6, 15, 10, 5, 0, 0, loc))
	testutils.CreateTestScan(t, db, store.ID, time.Date(2025, 6, 15, 11, 30, 0, 0, loc))
	testutils.CreateTestScan(t, db, store.ID, time.Date(2025, 6, 15, 11, 45, 0, 0, loc))
	testutils.CreateTestScan(t, db, store.ID, now.AddDate(0, 0, -1))
	testutils.CreateTestScan(t, db, store.ID, now.AddDate(-1, 0, 0))
	testutils.CreateTestClick(t, db, morning.ID, now)

	overview, err := svc.LocationOverview(ctx, store.ID)
	require.NoError(t, err)

	assert.Equal(t, Counts{Scans: 3, Clicks: 1}, overview.Today)
	assert.Equal(t, Counts{Scans: 1}, overview.Yesterday)
	assert.Equal(t, int64(4), overview.Week.Scans)
	assert.Equal(t, int64(4), overview.Month.Scans)
	assert.Equal(t, int64(5), overview.Total.Scans)
	assert.Equal(t, int64(1), overview.Hourly[10])
	assert.Equal(t, int64(2), overview.Hourly[11])
	assert.Zero(t, overview.Hourly[12])

	_, err = svc.LocationOverview(ctx, 9999)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestAPIStats(t *testing.T) {
	svc, db, now := setupStatsService(t)
	ctx := context.Background()

	store := testutils.CreateTestLocation(t, db, "Store A")
	recent := testutils.CreateTestScan(t, db, store.ID, now.Add(-time.Hour))
	old := testutils.CreateTestScan(t, db, store.ID, now.AddDate(0, 0, -60))
	testutils.CreateTestClick(t, db, recent.ID, now)
	testutils.CreateTestClick(t, db, old.ID, now.AddDate(0, 0, -59))

	stats, err := svc.APIStats(ctx, 30, AdminScope())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, APILocationStats{
		ID:           store.ID,
		Name:         "Store A",
		TotalScans:   2,
		RecentScans:  1,
		TotalClicks:  2,
		RecentClicks: 1,
	}, stats[0])

	huge, err := svc.APIStats(ctx, 9999999999, AdminScope())
	require.NoError(t, err)
	require.Len(t, huge, 1)
	assert.Equal(t, huge[0].TotalScans, huge[0].RecentScans)
	assert.Equal(t, huge[0].TotalClicks, huge[0].RecentClicks)

	_, err = svc.APIStats(ctx, -1, AdminScope())
	assert.ErrorIs(t, err, ErrInvalidDays)
}

func TestListScansAndClicks(t *testing.T) {
	svc, db, now := setupStatsService(t)
	ctx := context.Background()

	a := testutils.CreateTestLocation(t, db, "A")
	b := testutils.CreateTestLocation(t, db, "B")
	scan := testutils.CreateTestScan(t, db, a.ID, now.Add(-time.Hour))
	testutils.CreateTestScan(t, db, a.ID, now.AddDate(0, 0, -45))
	testutils.CreateTestScan(t, db, b.ID, now)
	testutils.CreateTestClick(t, db, scan.ID, now)

	scans, total, err := svc.ListScans(ctx, ScanFilter{LocationID: a.ID, Window: LastDays(30)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, scans, 1)
	assert.Equal(t, scan.VisitID, scans[0].VisitID)
	require.NotNil(t, scans[0].Location)
	assert.Equal(t, "A", scans[0].Location.Name)

	clicks, total, err := svc.ListClicks(ctx, ScanFilter{LocationID: a.ID, Window: AllTime()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, clicks, 1)
	assert.Equal(t, scan.ID, clicks[0].ScanID)

	_, total, err = svc.ListClicks(ctx, ScanFilter{LocationID: b.ID, Window: AllTime()})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func ptrTime(t time.Time) *time.Time { return &t }

func assertTimePtr(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s, got %s", want, got)
}
