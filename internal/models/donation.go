package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the giving category a donation is designated for.
type Category string

const (
	CategoryTithes    Category = "tithes"
	CategoryOfferings Category = "offerings"
	CategoryMissions  Category = "missions"
)

// Valid reports whether the category is one of the known designations.
func (c Category) Valid() bool {
	switch c {
	case CategoryTithes, CategoryOfferings, CategoryMissions:
		return true
	}
	return false
}

// Label returns the display label for the category.
func (c Category) Label() string {
	switch c {
	case CategoryTithes:
		return "Tithes"
	case CategoryOfferings:
		return "Offerings"
	case CategoryMissions:
		return "Missions"
	}
	return string(c)
}

// Categories lists all known categories in display order.
func Categories() []Category {
	return []Category{CategoryTithes, CategoryOfferings, CategoryMissions}
}

// Frequency is the billing interval of a recurring gift.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether the frequency is a supported billing interval.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Label returns the display label for the frequency.
func (f Frequency) Label() string {
	switch f {
	case FrequencyWeekly:
		return "Weekly"
	case FrequencyMonthly:
		return "Monthly"
	case FrequencyQuarterly:
		return "Quarterly"
	case FrequencyYearly:
		return "Yearly"
	}
	return string(f)
}

// DonationDraft is the editable donation input held by a checkout session.
// It is never persisted; it lives in Redis until checkout completes or expires.
type DonationDraft struct {
	Amount       decimal.Decimal `json:"amount"`
	Category     Category        `json:"category"`
	Purpose      string          `json:"purpose,omitempty"`
	ReceiptEmail string          `json:"receipt_email,omitempty"`
	IsRecurring  bool            `json:"is_recurring"`
	Frequency    Frequency       `json:"frequency,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// Donation is a confirmed gift. Written once on payment confirmation
// (or per billing cycle for recurring gifts) and never mutated afterwards,
// except for the receipt-sent stamp.
type Donation struct {
	BaseModel

	DonationID string `json:"donation_id" gorm:"size:36;uniqueIndex;not null"`
	DonorID    string `json:"donor_id" gorm:"size:64;index;not null"`
	DonorName  string `json:"donor_name" gorm:"size:200"`

	// Amounts. Fee and net come from the payment gateway when it reports
	// them; net = amount - fee always holds.
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	FeeAmount decimal.Decimal `json:"fee_amount" gorm:"type:decimal(10,2)"`
	NetAmount decimal.Decimal `json:"net_amount" gorm:"type:decimal(10,2)"`
	Currency  string          `json:"currency" gorm:"size:3;default:'usd'"`

	Category Category `json:"category" gorm:"size:20;index;not null"`
	Purpose  string   `json:"purpose" gorm:"size:500"`

	// Gateway reference for the confirmed charge. Opaque; never card data.
	PaymentRef         string `json:"payment_ref" gorm:"size:100;index"`
	PaymentMethodBrand string `json:"payment_method_brand" gorm:"size:20"`
	PaymentMethodLast4 string `json:"payment_method_last4" gorm:"size:4"`

	IsRecurring    bool   `json:"is_recurring" gorm:"index"`
	SubscriptionID string `json:"subscription_id,omitempty" gorm:"size:36;index"` // owning subscription, recurring only

	ReceiptEmail  string     `json:"receipt_email" gorm:"size:200"`
	ReceiptSent   bool       `json:"receipt_sent"`
	ReceiptSentAt *time.Time `json:"receipt_sent_at,omitempty"`

	DonatedAt time.Time `json:"donated_at" gorm:"index"`
}
