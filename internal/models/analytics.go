package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryStat is one row of the per-category breakdown.
type CategoryStat struct {
	Category   Category        `json:"category"`
	Label      string          `json:"label"`
	Count      int             `json:"count"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
}

// MonthBucket is one calendar month of the trend series. Months with no
// donations still appear with zero values.
type MonthBucket struct {
	Month           string          `json:"month"` // YYYY-MM
	Amount          decimal.Decimal `json:"amount"`
	Count           int             `json:"count"`
	NewDonors       int             `json:"new_donors"`
	RecurringAmount decimal.Decimal `json:"recurring_amount"`
}

// DonorStat is one row of the top-donor ranking.
type DonorStat struct {
	DonorID          string          `json:"donor_id"`
	DonorName        string          `json:"donor_name"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DonationCount    int             `json:"donation_count"`
	IsRecurringDonor bool            `json:"is_recurring_donor"`
	LastDonationAt   time.Time       `json:"last_donation_at"`
}

// PeriodTotals summarizes a single comparison window.
type PeriodTotals struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DonationCount int             `json:"donation_count"`
	DonorCount    int             `json:"donor_count"`
}

// PeriodComparison holds the current window, the equal-length window
// immediately before it, and the growth percentages between the two.
type PeriodComparison struct {
	Current       PeriodTotals `json:"current"`
	Previous      PeriodTotals `json:"previous"`
	AmountGrowth  float64      `json:"amount_growth"`
	CountGrowth   float64      `json:"count_growth"`
	DonorGrowth   float64      `json:"donor_growth"`
	PreviousStart time.Time    `json:"previous_start"`
	PreviousEnd   time.Time    `json:"previous_end"`
}

// AnalyticsSnapshot is the derived aggregate view for a date range.
// Recomputed per query, never persisted.
type AnalyticsSnapshot struct {
	RangeStart time.Time `json:"range_start"`
	RangeEnd   time.Time `json:"range_end"`

	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalNet      decimal.Decimal `json:"total_net"`
	DonationCount int             `json:"donation_count"`
	DonorCount    int             `json:"donor_count"`
	AverageGift   decimal.Decimal `json:"average_gift"`

	CategoryBreakdown []CategoryStat   `json:"category_breakdown"`
	MonthlyTrend      []MonthBucket    `json:"monthly_trend"`
	TopDonors         []DonorStat      `json:"top_donors"`
	Comparison        PeriodComparison `json:"comparison"`

	GeneratedAt time.Time `json:"generated_at"`
}
