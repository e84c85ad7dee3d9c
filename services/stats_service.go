package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"gos_landing/database"
	"gos_landing/models"
)

// WindowKind определяет способ отбора событий по времени
type WindowKind string

const (
	WindowDays      WindowKind = "days"
	WindowYesterday WindowKind = "yesterday"
	WindowAll       WindowKind = "all"
)

// Window - временное окно статистики в календарных днях
type Window struct {
	Kind WindowKind `json:"kind"`
	Days int        `json:"days"`
}

// MaxWindowDays - окно длиннее этого числа дней не ограничивается снизу
// (даты за ним выходят за диапазон timestamp PostgreSQL)
const MaxWindowDays = 36500

// Today - события текущего календарного дня
func Today() Window { return Window{Kind: WindowDays, Days: 0} }

// Yesterday - события только предыдущего календарного дня
func Yesterday() Window { return Window{Kind: WindowYesterday} }

// AllTime - все события без ограничения по времени
func AllTime() Window { return Window{Kind: WindowAll} }

// LastDays - события начиная с календарного дня n дней назад (включительно).
// LastDays(0) совпадает с Today().
func LastDays(n int) Window {
	if n < 0 {
		n = 0
	}
	return Window{Kind: WindowDays, Days: n}
}

// ParseRange разбирает метку диапазона дашборда: today, yesterday, 7d, 30d, all.
// Неизвестная метка означает 30 дней.
func ParseRange(label string) Window {
	switch label {
	case "today":
		return Today()
	case "yesterday":
		return Yesterday()
	case "7d":
		return LastDays(7)
	case "30d":
		return LastDays(30)
	case "all":
		return AllTime()
	default:
		return LastDays(30)
	}
}

// ParseDays разбирает количество дней из запроса; пустое значение дает fallback
func ParseDays(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return 0, ErrInvalidDays
	}
	return days, nil
}

// Key возвращает метку окна (используется в callback data и ключах кэша)
func (w Window) Key() string {
	switch w.Kind {
	case WindowYesterday:
		return "yesterday"
	case WindowAll:
		return "all"
	}
	if w.Days == 0 {
		return "today"
	}
	return fmt.Sprintf("%dd", w.Days)
}

// Title возвращает человекочитаемое название окна
func (w Window) Title() string {
	switch w.Kind {
	case WindowYesterday:
		return "вчера"
	case WindowAll:
		return "за все время"
	}
	if w.Days == 0 {
		return "сегодня"
	}
	return fmt.Sprintf("за %d дн.", w.Days)
}

// Bounds возвращает границы окна в UTC. nil означает отсутствие границы.
// Календарные дни считаются в часовом поясе loc. Окно длиннее MaxWindowDays
// совпадает с AllTime().
func (w Window) Bounds(now time.Time, loc *time.Location) (from, to *time.Time) {
	if w.Kind == WindowAll || (w.Kind == WindowDays && w.Days > MaxWindowDays) {
		return nil, nil
	}
	local := now.In(loc)
	startOfToday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if w.Kind == WindowYesterday {
		start := startOfToday.AddDate(0, 0, -1).UTC()
		end := startOfToday.UTC()
		return &start, &end
	}

	start := startOfToday.AddDate(0, 0, -w.Days).UTC()
	return &start, nil
}

// Scope ограничивает набор локаций, по которым считается статистика
type Scope struct {
	All        bool  `json:"all"`
	UserID     uint  `json:"user_id,omitempty"`
	TelegramID int64 `json:"telegram_id,omitempty"`
}

// AdminScope - все локации
func AdminScope() Scope { return Scope{All: true} }

// UserScope - локации, принадлежащие пользователю
func UserScope(userID uint) Scope { return Scope{UserID: userID} }

// TelegramScope - локации пользователя, привязанного к Telegram чату
func TelegramScope(chatID int64) Scope { return Scope{TelegramID: chatID} }

// Key возвращает часть ключа кэша для области видимости
func (s Scope) Key() string {
	switch {
	case s.All:
		return "admin"
	case s.TelegramID != 0:
		return fmt.Sprintf("tg%d", s.TelegramID)
	default:
		return fmt.Sprintf("user%d", s.UserID)
	}
}

// LocationCount - счетчики одной локации за окно
type LocationCount struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Scans  int64  `json:"scans"`
	Clicks int64  `json:"clicks"`
}

// SummaryRow - строка сводки с долями от общего количества
type SummaryRow struct {
	LocationCount
	ScanShare  float64 `json:"scan_share"`
	ClickShare float64 `json:"click_share"`
	Conversion float64 `json:"conversion"`
}

// Summary - ранжированная сводка по локациям за окно
type Summary struct {
	Window      Window       `json:"window"`
	Rows        []SummaryRow `json:"rows"`
	TotalScans  int64        `json:"total_scans"`
	TotalClicks int64        `json:"total_clicks"`
	Conversion  float64      `json:"conversion"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Counts - пара счетчиков сканирований и кликов
type Counts struct {
	Scans  int64 `json:"scans"`
	Clicks int64 `json:"clicks"`
}

// LocationOverview - статистика одной локации для страницы администратора
type LocationOverview struct {
	Location  models.Location `json:"location"`
	Today     Counts          `json:"today"`
	Yesterday Counts          `json:"yesterday"`
	Week      Counts          `json:"week"`
	Month     Counts          `json:"month"`
	Total     Counts          `json:"total"`
	Hourly    [24]int64       `json:"hourly"`
}

// APILocationStats - элемент ответа /api/location-stats/
type APILocationStats struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	TotalScans   int64  `json:"total_scans"`
	RecentScans  int64  `json:"recent_scans"`
	TotalClicks  int64  `json:"total_clicks"`
	RecentClicks int64  `json:"recent_clicks"`
}

// StatsService агрегирует сканирования и клики по локациям
type StatsService struct {
	db    *gorm.DB
	cache *CacheService
	loc   *time.Location
	now   func() time.Time
}

// NewStatsService создает новый экземпляр StatsService
func NewStatsService(db *gorm.DB, cache *CacheService, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{db: db, cache: cache, loc: loc, now: time.Now}
}

// WithClock подменяет источник текущего времени
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Location возвращает часовой пояс, в котором считаются календарные дни
func (s *StatsService) Location() *time.Location {
	return s.loc
}

// Share возвращает долю count от total в процентах; 0 при total == 0
func Share(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// LocationStats возвращает счетчики по всем локациям области видимости,
// включая локации без событий. Порядок - по идентификатору.
func (s *StatsService) LocationStats(ctx context.Context, window Window, scope Scope) ([]LocationCount, error) {
	locations, err := s.scopedLocations(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return []LocationCount{}, nil
	}

	ids := make([]uint, len(locations))
	for i, l := range locations {
		ids[i] = l.ID
	}

	from, to := window.Bounds(s.now(), s.loc)
	scans, err := s.countScans(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}
	clicks, err := s.countClicks(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	result := make([]LocationCount, len(locations))
	for i, l := range locations {
		result[i] = LocationCount{ID: l.ID, Name: l.Name, Scans: scans[l.ID], Clicks: clicks[l.ID]}
	}
	return result, nil
}

// Summary возвращает ранжированную сводку: сканирования по убыванию, затем клики
// по убыванию, затем название и идентификатор.
func (s *StatsService) Summary(ctx context.Context, window Window, scope Scope) (*Summary, error) {
	now := s.now()
	cacheKey := database.GenerateCacheKey("stats", fmt.Sprintf("summary:%s:%s:%s",
		window.Key(), scope.Key(), now.In(s.loc).Format("2006-01-02")))

	var cached Summary
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	counts, err := s.LocationStats(ctx, window, scope)
	if err != nil {
		return nil, err
	}

	summary := NewSummary(window, counts, now)
	s.cache.SetJSON(ctx, cacheKey, summary)
	return summary, nil
}

// NewSummary считает итоги, доли и конверсию по счетчикам локаций и ранжирует строки
func NewSummary(window Window, counts []LocationCount, generatedAt time.Time) *Summary {
	summary := &Summary{Window: window, Rows: make([]SummaryRow, 0, len(counts)), GeneratedAt: generatedAt}
	for _, c := range counts {
		summary.TotalScans += c.Scans
		summary.TotalClicks += c.Clicks
	}
	for _, c := range counts {
		summary.Rows = append(summary.Rows, SummaryRow{
			LocationCount: c,
			ScanShare:     Share(c.Scans, summary.TotalScans),
			ClickShare:    Share(c.Clicks, summary.TotalClicks),
			Conversion:    Share(c.Clicks, c.Scans),
		})
	}
	summary.Conversion = Share(summary.TotalClicks, summary.TotalScans)
	rankRows(summary.Rows)
	return summary
}

// Compare возвращает сводки за сегодня, вчера, 7 и 30 дней
func (s *StatsService) Compare(ctx context.Context, scope Scope) ([]*Summary, error) {
	windows := []Window{Today(), Yesterday(), LastDays(7), LastDays(30)}
	result := make([]*Summary, 0, len(windows))
	for _, w := range windows {
		summary, err := s.Summary(ctx, w, scope)
		if err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	return result, nil
}

// LocationOverview возвращает статистику одной локации и почасовую гистограмму за сегодня
func (s *StatsService) LocationOverview(ctx context.Context, locationID uint) (*LocationOverview, error) {
	var location models.Location
	if err := s.db.WithContext(ctx).Preload("Users").First(&location, locationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("ошибка загрузки локации: %w", err)
	}

	overview := &LocationOverview{Location: location}
	now := s.now()
	ids := []uint{locationID}
	targets := []struct {
		window Window
		dest   *Counts
	}{
		{Today(), &overview.Today},
		{Yesterday(), &overview.Yesterday},
		{LastDays(7), &overview.Week},
		{LastDays(30), &overview.Month},
		{AllTime(), &overview.Total},
	}
	for _, t := range targets {
		from, to := t.window.Bounds(now, s.loc)
		scans, err := s.countScans(ctx, ids, from, to)
		if err != nil {
			return nil, err
		}
		clicks, err := s.countClicks(ctx, ids, from, to)
		if err != nil {
			return nil, err
		}
		*t.dest = Counts{Scans: scans[locationID], Clicks: clicks[locationID]}
	}

	// Почасовая гистограмма: время событий раскладывается по часам локального дня
	from, _ := Today().Bounds(now, s.loc)
	var stamps []time.Time
	err := s.db.WithContext(ctx).Model(&models.QRCodeScan{}).
		Where("location_id = ? AND timestamp >= ?", locationID, *from).
		Pluck("timestamp", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка построения гистограммы: %w", err)
	}
	for _, ts := range stamps {
		overview.Hourly[ts.In(s.loc).Hour()]++
	}

	return overview, nil
}

// APIStats возвращает данные для /api/location-stats/: итоги за все время и за последние days дней
func (s *StatsService) APIStats(ctx context.Context, days int, scope Scope) ([]APILocationStats, error) {
	if days < 0 {
		return nil, ErrInvalidDays
	}

	total, err := s.LocationStats(ctx, AllTime(), scope)
	if err != nil {
		return nil, err
	}
	recent, err := s.LocationStats(ctx, LastDays(days), scope)
	if err != nil {
		return nil, err
	}

	recentByID := make(map[uint]LocationCount, len(recent))
	for _, r := range recent {
		recentByID[r.ID] = r
	}

	result := make([]APILocationStats, 0, len(total))
	for _, t := range total {
		r := recentByID[t.ID]
		result = append(result, APILocationStats{
			ID:           t.ID,
			Name:         t.Name,
			TotalScans:   t.Scans,
			RecentScans:  r.Scans,
			TotalClicks:  t.Clicks,
			RecentClicks: r.Clicks,
		})
	}
	return result, nil
}

func rankRows(rows []SummaryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Scans != b.Scans {
			return a.Scans > b.Scans
		}
		if a.Clicks != b.Clicks {
			return a.Clicks > b.Clicks
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// scopedLocations возвращает локации области видимости, упорядоченные по id
func (s *StatsService) scopedLocations(ctx context.Context, scope Scope) ([]models.Location, error) {
	query := s.db.WithContext(ctx).Model(&models.Location{}).Select("id", "name").Order("id ASC")

	if !scope.All {
		userID := scope.UserID
		if scope.TelegramID != 0 {
			var user models.User
			err := s.db.WithContext(ctx).Select("id").
				Where("telegram_id = ? AND is_active = ?", scope.TelegramID, true).
				First(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotRegistered
			}
			if err != nil {
				return nil, fmt.Errorf("ошибка поиска пользователя: %w", err)
			}
			userID = user.ID
		}
		query = query.Where("id IN (?)", s.db.Table("location_users").Select("location_id").Where("user_id = ?", userID))
	}

	var locations []models.Location
	if err := query.Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("ошибка загрузки локаций: %w", err)
	}
	return locations, nil
}

type groupCount struct {
	LocationID uint
	Count      int64
}

func (s *StatsService) countScans(ctx context.Context, ids []uint, from, to *time.Time) (map[uint]int64, error) {
	query := s.db.WithContext(ctx).Model(&models.QRCodeScan{}).
		Select("location_id, COUNT(*) AS count").
		Where("location_id IN ?", ids)
	query = applyBounds(query, "timestamp", from, to)

	var rows []groupCount
	if err := query.Group("location_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("ошибка подсчета сканирований: %w", err)
	}
	return toCountMap(rows), nil
}

// countClicks считает клики по времени самого клика
func (s *StatsService) countClicks(ctx context.Context, ids []uint, from, to *time.Time) (map[uint]int64, error) {
	query := s.db.WithContext(ctx).Table("phone_clicks").
		Select("qr_code_scans.location_id AS location_id, COUNT(phone_clicks.id) AS count").
		Joins("JOIN qr_code_scans ON qr_code_scans.id = phone_clicks.scan_id").
		Where("qr_code_scans.location_id IN ?", ids)
	query = applyBounds(query, "phone_clicks.timestamp", from, to)

	var rows []groupCount
	if err := query.Group("qr_code_scans.location_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("ошибка подсчета кликов: %w", err)
	}
	return toCountMap(rows), nil
}

func applyBounds(query *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where(column+" >= ?", *from)
	}
	if to != nil {
		query = query.Where(column+" < ?", *to)
	}
	return query
}

func toCountMap(rows []groupCount) map[uint]int64 {
	result := make(map[uint]int64, len(rows))
	for _, r := range rows {
		result[r.LocationID] = r.Count
	}
	return result
}
