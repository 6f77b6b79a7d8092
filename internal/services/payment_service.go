package services

import (
	"context"
	"time"

	"giving-api/internal/config"
	"giving-api/internal/database"
	"giving-api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeStatusSucceeded is the only gateway status treated as terminal success.
const ChargeStatusSucceeded = "succeeded"

// CreateIntentInput scopes a one-time payment intent
type CreateIntentInput struct {
	Amount       decimal.Decimal
	Currency     string
	Category     models.Category
	Purpose      string
	ReceiptEmail string
}

// IntentResult is the gateway's answer to intent creation. Fee and net are
// the gateway-side computation returned for preview.
type IntentResult struct {
	IntentID     string
	ClientSecret string
	FeeAmount    decimal.Decimal
	NetAmount    decimal.Decimal
	Currency     string
}

// ChargeResult is a terminal confirmation outcome from the gateway
type ChargeResult struct {
	Status     string
	Message    string // human-readable, set on non-succeeded statuses
	PaymentRef string
	FeeAmount  decimal.Decimal // zero when the gateway does not report it
	Brand      string
	Last4      string
}

// PaymentMethodRef is a reusable tokenized payment method. Opaque; the
// service never sees card numbers.
type PaymentMethodRef struct {
	Ref   string
	Brand string
	Last4 string
}

// CreateBillingSubscriptionInput scopes recurring billing creation
type CreateBillingSubscriptionInput struct {
	Amount           decimal.Decimal
	Currency         string
	Frequency        models.Frequency
	Category         models.Category
	PaymentMethodRef string
	ReceiptEmail     string
}

// BillingSubscription is the external billing system's record of a
// recurring gift.
type BillingSubscription struct {
	BillingRef string
}

// PaymentGateway is the boundary to the external payment capability. The
// card-facing operations (ConfirmPayment, CreatePaymentMethod) only ever
// exchange opaque references; raw card input is collected outside this
// service.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*IntentResult, error)
	ConfirmPayment(ctx context.Context, clientSecret, paymentMethodRef string) (*ChargeResult, error)
	CreatePaymentMethod(ctx context.Context, cardToken string) (*PaymentMethodRef, error)
	CreateBillingSubscription(ctx context.Context, in CreateBillingSubscriptionInput) (*BillingSubscription, error)
	CancelBillingSubscription(ctx context.Context, billingRef string) error
}

// DonationWriter persists confirmed donations
type DonationWriter interface {
	CreateDonation(donation *models.Donation) error
}

// SubscriptionWriter persists new subscriptions
type SubscriptionWriter interface {
	CreateSubscription(subscription *models.Subscription) error
}

// ReceiptSender delivers donation receipts out of band
type ReceiptSender interface {
	SendDonationReceipt(donation *models.Donation)
}

type dbDonationWriter struct{}

func (dbDonationWriter) CreateDonation(d *models.Donation) error { return database.CreateDonation(d) }

type dbSubscriptionWriter struct{}

func (dbSubscriptionWriter) CreateSubscription(s *models.Subscription) error {
	return database.CreateSubscription(s)
}

// Donor identifies the giving caller
type Donor struct {
	ID    string
	Name  string
	Email string
}

// PaymentResult carries the id of whichever record the payment produced
type PaymentResult struct {
	DonationID     string
	SubscriptionID string
}

// PaymentService turns a frozen donation draft into a confirmed donation
// or a live subscription. Steps are strictly ordered with no local
// retries; failures surface to the caller who decides whether to
// resubmit. The checkout state machine prevents overlapping attempts on
// the same draft.
type PaymentService struct {
	gateway       PaymentGateway
	donations     DonationWriter
	subscriptions SubscriptionWriter
	receipts      ReceiptSender
	currency      string
	now           func() time.Time
	newID         func() string
}

// PaymentDependencies wires a payment service
type PaymentDependencies struct {
	Gateway       PaymentGateway
	Donations     DonationWriter
	Subscriptions SubscriptionWriter
	Receipts      ReceiptSender
	Currency      string
}

// NewPaymentService creates a payment service with database-backed stores
func NewPaymentService(gateway PaymentGateway, receipts ReceiptSender) *PaymentService {
	return NewPaymentServiceWithDeps(PaymentDependencies{
		Gateway:       gateway,
		Donations:     dbDonationWriter{},
		Subscriptions: dbSubscriptionWriter{},
		Receipts:      receipts,
		Currency:      config.AppConfig.Currency,
	})
}

// NewPaymentServiceWithDeps creates a payment service with explicit dependencies
func NewPaymentServiceWithDeps(deps PaymentDependencies) *PaymentService {
	currency := deps.Currency
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		gateway:       deps.Gateway,
		donations:     deps.Donations,
		subscriptions: deps.Subscriptions,
		receipts:      deps.Receipts,
		currency:      currency,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// ExecutePayment runs the one-time or recurring payment protocol for a
// validated draft. Callers must not invoke it twice concurrently for the
// same draft.
func (s *PaymentService) ExecutePayment(ctx context.Context, donor Donor, draft models.DonationDraft, cardToken string) (*PaymentResult, error) {
	if draft.IsRecurring {
		return s.executeRecurring(ctx, donor, draft, cardToken)
	}
	return s.executeOneTime(ctx, donor, draft, cardToken)
}

func (s *PaymentService) executeOneTime(ctx context.Context, donor Donor, draft models.DonationDraft, cardToken string) (*PaymentResult, error) {
	intent, err := s.gateway.CreatePaymentIntent(ctx, CreateIntentInput{
		Amount:       draft.Amount,
		Currency:     s.currency,
		Category:     draft.Category,
		Purpose:      draft.Purpose,
		ReceiptEmail: draft.ReceiptEmail,
	})
	if err != nil {
		return nil, &ApiError{Op: "create payment intent", Err: err}
	}

	charge, err := s.gateway.ConfirmPayment(ctx, intent.ClientSecret, cardToken)
	if err != nil {
		return nil, &CapabilityError{Message: err.Error()}
	}
	if charge.Status != ChargeStatusSucceeded {
		message := charge.Message
		if message == "" {
			message = "payment was not completed (status " + charge.Status + ")"
		}
		return nil, &CapabilityError{Message: message}
	}

	// The gateway-reported fee is authoritative; the intent preview and
	// the local estimate are fallbacks, in that order.
	fee := charge.FeeAmount
	if fee.IsZero() {
		fee = intent.FeeAmount
	}
	if fee.IsZero() {
		fee = EstimateFee(draft.Amount)
	}

	donation := &models.Donation{
		DonationID:         s.newID(),
		DonorID:            donor.ID,
		DonorName:          donor.Name,
		Amount:             draft.Amount,
		FeeAmount:          fee,
		NetAmount:          draft.Amount.Sub(fee),
		Currency:           intent.Currency,
		Category:           draft.Category,
		Purpose:            draft.Purpose,
		PaymentRef:         charge.PaymentRef,
		PaymentMethodBrand: charge.Brand,
		PaymentMethodLast4: charge.Last4,
		IsRecurring:        false,
		ReceiptEmail:       draft.ReceiptEmail,
		DonatedAt:          s.now(),
	}
	if err := s.donations.CreateDonation(donation); err != nil {
		return nil, &ApiError{Op: "persist donation", Err: err}
	}

	if s.receipts != nil && donation.ReceiptEmail != "" {
		s.receipts.SendDonationReceipt(donation)
	}

	return &PaymentResult{DonationID: donation.DonationID}, nil
}

func (s *PaymentService) executeRecurring(ctx context.Context, donor Donor, draft models.DonationDraft, cardToken string) (*PaymentResult, error) {
	method, err := s.gateway.CreatePaymentMethod(ctx, cardToken)
	if err != nil {
		// No local retry of card tokenization
		return nil, &CapabilityError{Message: err.Error()}
	}

	billing, err := s.gateway.CreateBillingSubscription(ctx, CreateBillingSubscriptionInput{
		Amount:           draft.Amount,
		Currency:         s.currency,
		Frequency:        draft.Frequency,
		Category:         draft.Category,
		PaymentMethodRef: method.Ref,
		ReceiptEmail:     draft.ReceiptEmail,
	})
	if err != nil {
		return nil, &ApiError{Op: "create billing subscription", Err: err}
	}

	now := s.now()
	periodEnd := advancePeriod(now, draft.Frequency)
	subscription := &models.Subscription{
		SubscriptionID:     s.newID(),
		BillingRef:         billing.BillingRef,
		DonorID:            donor.ID,
		DonorName:          donor.Name,
		Amount:             draft.Amount,
		Currency:           s.currency,
		Frequency:          draft.Frequency,
		Category:           draft.Category,
		Purpose:            draft.Purpose,
		Notes:              draft.Notes,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		NextPaymentDate:    periodEnd,
		StartedAt:          now,
		PaymentMethodRef:   method.Ref,
		PaymentMethodBrand: method.Brand,
		PaymentMethodLast4: method.Last4,
	}
	if err := s.subscriptions.CreateSubscription(subscription); err != nil {
		return nil, &ApiError{Op: "persist subscription", Err: err}
	}

	return &PaymentResult{SubscriptionID: subscription.SubscriptionID}, nil
}

// advancePeriod returns the end of a billing period starting at from
func advancePeriod(from time.Time, frequency models.Frequency) time.Time {
	switch frequency {
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case models.FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case models.FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}
