package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the lifecycle state of a recurring gift.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionEnded    SubscriptionStatus = "ended"
)

// Terminal reports whether the status admits no further transitions.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionCanceled || s == SubscriptionEnded
}

// Subscription stores a recurring gift and acts as the single source of
// truth for its lifecycle state. Amount, frequency and category are frozen
// at creation; only status, billing-cycle fields and the payment-method
// display fields move afterwards.
type Subscription struct {
	BaseModel

	SubscriptionID string `json:"subscription_id" gorm:"size:36;uniqueIndex;not null"`
	BillingRef     string `json:"billing_ref" gorm:"size:100;uniqueIndex"` // external billing system id, used for cancel/update
	DonorID        string `json:"donor_id" gorm:"size:64;index;not null"`
	DonorName      string `json:"donor_name" gorm:"size:200"`

	Amount   decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency string          `json:"currency" gorm:"size:3;default:'usd'"`

	Frequency Frequency `json:"frequency" gorm:"size:20;not null"`
	Category  Category  `json:"category" gorm:"size:20;index;not null"`
	Purpose   string    `json:"purpose" gorm:"size:500"`
	Notes     string    `json:"notes" gorm:"size:1000"`

	Status SubscriptionStatus `json:"status" gorm:"size:20;index;not null"`

	// Billing cycle fields, advanced by external billing events
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	NextPaymentDate    time.Time `json:"next_payment_date"`

	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	CanceledAt *time.Time `json:"canceled_at,omitempty"`

	PaymentMethodRef   string `json:"-" gorm:"size:100"` // opaque gateway reference, never card data
	PaymentMethodBrand string `json:"payment_method_brand" gorm:"size:20"`
	PaymentMethodLast4 string `json:"payment_method_last4" gorm:"size:4"`

	// Failure accumulation, driven by billing webhooks
	FailureCount      int        `json:"failure_count"`
	LastFailureReason string     `json:"last_failure_reason,omitempty" gorm:"size:500"`
	LastFailureDate   *time.Time `json:"last_failure_date,omitempty"`

	// Aggregate totals over the donations this subscription produced
	TotalDonationsCount  int64           `json:"total_donations_count"`
	TotalDonationsAmount decimal.Decimal `json:"total_donations_amount" gorm:"type:decimal(12,2)"`
}
