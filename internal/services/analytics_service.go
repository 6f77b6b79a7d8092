package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"giving-api/internal/database"
	"giving-api/internal/models"
	"giving-api/pkg/logging"

	"github.com/shopspring/decimal"
)

const (
	topDonorLimit        = 10
	analyticsSnapshotTTL = 5 * time.Minute
)

// AnalyticsRange selects the reporting window: a preset (7d, 30d, 90d,
// 1y) or an explicit start/end pair.
type AnalyticsRange struct {
	Preset string
	Start  time.Time
	End    time.Time
}

// DonationRangeStore loads donations for aggregation
type DonationRangeStore interface {
	GetDonationsBetween(start, end time.Time) ([]models.Donation, error)
}

// SnapshotCache caches computed snapshots
type SnapshotCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type dbDonationRangeStore struct{}

func (dbDonationRangeStore) GetDonationsBetween(start, end time.Time) ([]models.Donation, error) {
	return database.GetDonationsBetween(start, end)
}

type redisSnapshotCache struct{}

func (redisSnapshotCache) Get(ctx context.Context, key string) (string, error) {
	return database.GetCache(ctx, key)
}

func (redisSnapshotCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return database.SetCache(ctx, key, value, ttl)
}

// AnalyticsService computes aggregate giving views. The aggregation
// itself is pure and reentrant; the service only adds record loading and
// snapshot caching around it.
type AnalyticsService struct {
	store DonationRangeStore
	cache SnapshotCache
	now   func() time.Time
}

// NewAnalyticsService creates an analytics service backed by the database
// and the Redis snapshot cache.
func NewAnalyticsService() *AnalyticsService {
	return &AnalyticsService{
		store: dbDonationRangeStore{},
		cache: redisSnapshotCache{},
		now:   time.Now,
	}
}

// NewAnalyticsServiceWithDeps creates an analytics service with explicit
// dependencies; a nil cache disables caching.
func NewAnalyticsServiceWithDeps(store DonationRangeStore, cache SnapshotCache) *AnalyticsService {
	return &AnalyticsService{
		store: store,
		cache: cache,
		now:   time.Now,
	}
}

// Query resolves the range, loads the current window plus the equal-length
// window before it, and aggregates both into a snapshot.
func (s *AnalyticsService) Query(ctx context.Context, r AnalyticsRange) (*models.AnalyticsSnapshot, error) {
	start, end, err := s.resolveRange(r)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("analytics_snapshot:%d:%d", start.Unix(), end.Unix())
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var snapshot models.AnalyticsSnapshot
			if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
				return &snapshot, nil
			}
		}
	}

	previousStart := start.Add(-end.Sub(start))
	donations, err := s.store.GetDonationsBetween(previousStart, end)
	if err != nil {
		return nil, &ApiError{Op: "load donations", Err: err}
	}

	var current, previous []models.Donation
	for _, donation := range donations {
		if donation.DonatedAt.Before(start) {
			previous = append(previous, donation)
		} else {
			current = append(current, donation)
		}
	}

	snapshot := Aggregate(current, previous, start, end)
	snapshot.GeneratedAt = s.now()

	if s.cache != nil {
		if data, err := json.Marshal(snapshot); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(data), analyticsSnapshotTTL); err != nil {
				logging.Warnf("Failed to cache analytics snapshot: %v", err)
			}
		}
	}

	return snapshot, nil
}

// ResolveRange exposes range resolution for handlers that need the raw window
func (s *AnalyticsService) ResolveRange(r AnalyticsRange) (time.Time, time.Time, error) {
	return s.resolveRange(r)
}

func (s *AnalyticsService) resolveRange(r AnalyticsRange) (time.Time, time.Time, error) {
	if r.Preset == "" {
		if r.Start.IsZero() || r.End.IsZero() || !r.End.After(r.Start) {
			return time.Time{}, time.Time{}, &ValidationError{Fields: map[string]string{
				"range": "provide a preset (7d, 30d, 90d, 1y) or a valid start/end pair",
			}}
		}
		return r.Start, r.End, nil
	}

	end := s.now()
	var start time.Time
	switch r.Preset {
	case "7d":
		start = end.AddDate(0, 0, -7)
	case "30d":
		start = end.AddDate(0, 0, -30)
	case "90d":
		start = end.AddDate(0, 0, -90)
	case "1y":
		start = end.AddDate(-1, 0, 0)
	default:
		return time.Time{}, time.Time{}, &ValidationError{Fields: map[string]string{
			"range": "unknown range preset",
		}}
	}
	return start, end, nil
}

// Growth computes period-over-period growth in percent, defined as 0
// when the previous period is 0.
func Growth(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// Aggregate computes the full analytics snapshot from raw records. Pure:
// no I/O, no shared state, safe for concurrent callers.
func Aggregate(current, previous []models.Donation, start, end time.Time) *models.AnalyticsSnapshot {
	snapshot := &models.AnalyticsSnapshot{
		RangeStart:   start,
		RangeEnd:     end,
		TotalAmount:  decimal.Zero,
		TotalNet:     decimal.Zero,
		AverageGift:  decimal.Zero,
		MonthlyTrend: monthlyTrend(current, start, end),
		TopDonors:    topDonors(current),
	}

	donors := make(map[string]bool)
	for _, donation := range current {
		snapshot.TotalAmount = snapshot.TotalAmount.Add(donation.Amount)
		snapshot.TotalNet = snapshot.TotalNet.Add(donation.NetAmount)
		donors[donation.DonorID] = true
	}
	snapshot.DonationCount = len(current)
	snapshot.DonorCount = len(donors)
	if snapshot.DonationCount > 0 {
		snapshot.AverageGift = snapshot.TotalAmount.Div(decimal.NewFromInt(int64(snapshot.DonationCount))).Round(2)
	}

	snapshot.CategoryBreakdown = categoryBreakdown(current, snapshot.TotalAmount)
	snapshot.Comparison = periodComparison(current, previous, start.Add(-end.Sub(start)), start)

	return snapshot
}

// categoryBreakdown groups by category. Every known category appears even
// at zero; percentages are 0 when the grand total is 0.
func categoryBreakdown(donations []models.Donation, total decimal.Decimal) []models.CategoryStat {
	amounts := make(map[models.Category]decimal.Decimal)
	counts := make(map[models.Category]int)
	for _, donation := range donations {
		amounts[donation.Category] = amounts[donation.Category].Add(donation.Amount)
		counts[donation.Category]++
	}

	stats := make([]models.CategoryStat, 0, len(models.Categories()))
	for _, category := range models.Categories() {
		amount := amounts[category]
		percentage := 0.0
		if total.IsPositive() {
			percentage = amount.Div(total).InexactFloat64() * 100
		}
		stats = append(stats, models.CategoryStat{
			Category:   category,
			Label:      category.Label(),
			Count:      counts[category],
			Amount:     amount,
			Percentage: percentage,
		})
	}
	return stats
}

// monthlyTrend buckets donations by calendar month across the range.
// Months with no donations still appear with zero values.
func monthlyTrend(donations []models.Donation, start, end time.Time) []models.MonthBucket {
	type bucket struct {
		amount    decimal.Decimal
		count     int
		newDonors int
		recurring decimal.Decimal
	}

	buckets := make(map[string]*bucket)
	var order []string
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(last) {
		key := cursor.Format("2006-01")
		buckets[key] = &bucket{amount: decimal.Zero, recurring: decimal.Zero}
		order = append(order, key)
		cursor = cursor.AddDate(0, 1, 0)
	}

	// A donor is new in the month of their first donation within the range
	firstSeen := make(map[string]string)
	for _, donation := range donations {
		key := donation.DonatedAt.UTC().Format("2006-01")
		if prev, ok := firstSeen[donation.DonorID]; !ok || key < prev {
			firstSeen[donation.DonorID] = key
		}
	}
	newDonors := make(map[string]int)
	for _, key := range firstSeen {
		newDonors[key]++
	}

	for _, donation := range donations {
		key := donation.DonatedAt.UTC().Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			continue
		}
		b.amount = b.amount.Add(donation.Amount)
		b.count++
		if donation.IsRecurring {
			b.recurring = b.recurring.Add(donation.Amount)
		}
	}

	trend := make([]models.MonthBucket, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		trend = append(trend, models.MonthBucket{
			Month:           key,
			Amount:          b.amount,
			Count:           b.count,
			NewDonors:       newDonors[key],
			RecurringAmount: b.recurring,
		})
	}
	return trend
}

// topDonors ranks donors by total amount descending, ties broken by donor
// id for a deterministic order.
func topDonors(donations []models.Donation) []models.DonorStat {
	byDonor := make(map[string]*models.DonorStat)
	for _, donation := range donations {
		stat, ok := byDonor[donation.DonorID]
		if !ok {
			stat = &models.DonorStat{
				DonorID:     donation.DonorID,
				DonorName:   donation.DonorName,
				TotalAmount: decimal.Zero,
			}
			byDonor[donation.DonorID] = stat
		}
		stat.TotalAmount = stat.TotalAmount.Add(donation.Amount)
		stat.DonationCount++
		if donation.SubscriptionID != "" {
			stat.IsRecurringDonor = true
		}
		if donation.DonatedAt.After(stat.LastDonationAt) {
			stat.LastDonationAt = donation.DonatedAt
		}
	}

	ranked := make([]models.DonorStat, 0, len(byDonor))
	for _, stat := range byDonor {
		ranked = append(ranked, *stat)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].TotalAmount.Equal(ranked[j].TotalAmount) {
			return ranked[i].TotalAmount.GreaterThan(ranked[j].TotalAmount)
		}
		return ranked[i].DonorID < ranked[j].DonorID
	})
	if len(ranked) > topDonorLimit {
		ranked = ranked[:topDonorLimit]
	}
	return ranked
}

// periodComparison compares the current window against the equal-length
// window immediately before it.
func periodComparison(current, previous []models.Donation, previousStart, previousEnd time.Time) models.PeriodComparison {
	totals := func(donations []models.Donation) models.PeriodTotals {
		t := models.PeriodTotals{TotalAmount: decimal.Zero}
		donors := make(map[string]bool)
		for _, donation := range donations {
			t.TotalAmount = t.TotalAmount.Add(donation.Amount)
			t.DonationCount++
			donors[donation.DonorID] = true
		}
		t.DonorCount = len(donors)
		return t
	}

	cur := totals(current)
	prev := totals(previous)
	return models.PeriodComparison{
		Current:       cur,
		Previous:      prev,
		AmountGrowth:  Growth(cur.TotalAmount.InexactFloat64(), prev.TotalAmount.InexactFloat64()),
		CountGrowth:   Growth(float64(cur.DonationCount), float64(prev.DonationCount)),
		DonorGrowth:   Growth(float64(cur.DonorCount), float64(prev.DonorCount)),
		PreviousStart: previousStart,
		PreviousEnd:   previousEnd,
	}
}
