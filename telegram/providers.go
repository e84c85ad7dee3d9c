package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gos_landing/services"
)

// ErrUpstream - источник статистики недоступен или ответил ошибкой
var ErrUpstream = errors.New("источник статистики недоступен")

// StatsProvider - источник статистики для бота
type StatsProvider interface {
	Summary(ctx context.Context, window services.Window, scope services.Scope) (*services.Summary, error)
	Compare(ctx context.Context, scope services.Scope) ([]*services.Summary, error)
}

// DirectProvider читает статистику напрямую из базы
type DirectProvider struct {
	stats *services.StatsService
}

// NewDirectProvider создает провайдер поверх StatsService
func NewDirectProvider(stats *services.StatsService) *DirectProvider {
	return &DirectProvider{stats: stats}
}

// Summary возвращает сводку за окно
func (p *DirectProvider) Summary(ctx context.Context, window services.Window, scope services.Scope) (*services.Summary, error) {
	return p.stats.Summary(ctx, window, scope)
}

// Compare возвращает сводки за сегодня, вчера, 7 и 30 дней
func (p *DirectProvider) Compare(ctx context.Context, scope services.Scope) ([]*services.Summary, error) {
	return p.stats.Compare(ctx, scope)
}

// APIProvider получает статистику с веб-сервера через /api/location-stats/.
// Токен должен принадлежать сотруднику, иначе видны только его локации.
type APIProvider struct {
	baseURL string
	token   string
	client  *http.Client
	now     func() time.Time
}

// NewAPIProvider создает провайдер с таймаутом HTTP запросов timeout
func NewAPIProvider(baseURL, token string, timeout time.Duration) *APIProvider {
	return &APIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Summary собирает сводку из ответов API. Окно "вчера" вычисляется как разница
// между последними сутками (days=1) и сегодняшним днем (days=0).
func (p *APIProvider) Summary(ctx context.Context, window services.Window, scope services.Scope) (*services.Summary, error) {
	var counts []services.LocationCount

	switch window.Kind {
	case services.WindowAll:
		stats, err := p.fetch(ctx, 0, scope)
		if err != nil {
			return nil, err
		}
		counts = totalCounts(stats)
	case services.WindowYesterday:
		sinceYesterday, err := p.fetch(ctx, 1, scope)
		if err != nil {
			return nil, err
		}
		today, err := p.fetch(ctx, 0, scope)
		if err != nil {
			return nil, err
		}
		counts = subtractCounts(recentCounts(sinceYesterday), recentCounts(today))
	default:
		stats, err := p.fetch(ctx, window.Days, scope)
		if err != nil {
			return nil, err
		}
		counts = recentCounts(stats)
	}

	return services.NewSummary(window, counts, p.now()), nil
}

// Compare возвращает сводки за сегодня, вчера, 7 и 30 дней
func (p *APIProvider) Compare(ctx context.Context, scope services.Scope) ([]*services.Summary, error) {
	windows := []services.Window{services.Today(), services.Yesterday(), services.LastDays(7), services.LastDays(30)}
	result := make([]*services.Summary, 0, len(windows))
	for _, w := range windows {
		summary, err := p.Summary(ctx, w, scope)
		if err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	return result, nil
}

func (p *APIProvider) fetch(ctx context.Context, days int, scope services.Scope) ([]services.APILocationStats, error) {
	query := url.Values{}
	query.Set("days", strconv.Itoa(days))
	switch {
	case scope.TelegramID != 0:
		query.Set("telegram_id", strconv.FormatInt(scope.TelegramID, 10))
	case !scope.All:
		return nil, fmt.Errorf("%w: выборка по пользователю не поддерживается API", ErrUpstream)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/location-stats/?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+p.token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && scope.TelegramID != 0:
		return nil, services.ErrNotRegistered
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var stats []services.APILocationStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("%w: некорректный ответ: %v", ErrUpstream, err)
	}
	return stats, nil
}

func totalCounts(stats []services.APILocationStats) []services.LocationCount {
	counts := make([]services.LocationCount, len(stats))
	for i, s := range stats {
		counts[i] = services.LocationCount{ID: s.ID, Name: s.Name, Scans: s.TotalScans, Clicks: s.TotalClicks}
	}
	return counts
}

func recentCounts(stats []services.APILocationStats) []services.LocationCount {
	counts := make([]services.LocationCount, len(stats))
	for i, s := range stats {
		counts[i] = services.LocationCount{ID: s.ID, Name: s.Name, Scans: s.RecentScans, Clicks: s.RecentClicks}
	}
	return counts
}

func subtractCounts(from, minus []services.LocationCount) []services.LocationCount {
	byID := make(map[uint]services.LocationCount, len(minus))
	for _, c := range minus {
		byID[c.ID] = c
	}
	result := make([]services.LocationCount, len(from))
	for i, c := range from {
		m := byID[c.ID]
		c.Scans -= m.Scans
		c.Clicks -= m.Clicks
		if c.Scans < 0 {
			c.Scans = 0
		}
		if c.Clicks < 0 {
			c.Clicks = 0
		}
		result[i] = c
	}
	return result
}
