package services

import (
	"context"
	"errors"
	"time"

	"giving-api/internal/database"
	"giving-api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionStore loads and updates subscription records
type SubscriptionStore interface {
	GetSubscriptionByID(subscriptionID string) (*models.Subscription, error)
	GetSubscriptionByBillingRef(billingRef string) (*models.Subscription, error)
	UpdateSubscription(subscription *models.Subscription) error
}

// BillingCanceller cancels a subscription at the external billing system
type BillingCanceller interface {
	CancelBillingSubscription(ctx context.Context, billingRef string) error
}

type dbSubscriptionStore struct{}

func (dbSubscriptionStore) GetSubscriptionByID(id string) (*models.Subscription, error) {
	subscription, err := database.GetSubscriptionByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return subscription, err
}

func (dbSubscriptionStore) GetSubscriptionByBillingRef(ref string) (*models.Subscription, error) {
	subscription, err := database.GetSubscriptionByBillingRef(ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return subscription, err
}

func (dbSubscriptionStore) UpdateSubscription(s *models.Subscription) error {
	return database.UpdateSubscription(s)
}

// SubscriptionService owns the subscription lifecycle:
// active -> past_due -> active on recovery, active -> canceled on donor
// request, and active/past_due -> ended when external billing exhausts.
type SubscriptionService struct {
	store     SubscriptionStore
	canceller BillingCanceller
	donations DonationWriter
	now       func() time.Time
	newID     func() string
}

// NewSubscriptionService creates a subscription service with
// database-backed storage.
func NewSubscriptionService(canceller BillingCanceller) *SubscriptionService {
	return NewSubscriptionServiceWithDeps(dbSubscriptionStore{}, canceller, dbDonationWriter{})
}

// NewSubscriptionServiceWithDeps creates a subscription service with
// explicit dependencies.
func NewSubscriptionServiceWithDeps(store SubscriptionStore, canceller BillingCanceller, donations DonationWriter) *SubscriptionService {
	return &SubscriptionService{
		store:     store,
		canceller: canceller,
		donations: donations,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Cancel cancels an active subscription via the billing reference and
// stamps canceled_at. A second cancel is a no-op, not an error; cancelling
// an ended subscription is an invalid-state error.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	subscription, err := s.store.GetSubscriptionByID(subscriptionID)
	if err != nil {
		return nil, err
	}

	if subscription.Status == models.SubscriptionCanceled {
		// Duplicate cancel attempts are tolerated
		return subscription, nil
	}
	if subscription.Status != models.SubscriptionActive {
		return nil, ErrInvalidState
	}

	if err := s.canceller.CancelBillingSubscription(ctx, subscription.BillingRef); err != nil {
		return nil, &ApiError{Op: "cancel billing subscription", Err: err}
	}

	now := s.now()
	subscription.Status = models.SubscriptionCanceled
	subscription.CanceledAt = &now
	if err := s.store.UpdateSubscription(subscription); err != nil {
		return nil, &ApiError{Op: "update subscription", Err: err}
	}
	return subscription, nil
}

// RecordFailure absorbs an externally driven billing failure: the failure
// count and last-failure fields always move, and a non-terminal
// subscription drops to past_due.
func (s *SubscriptionService) RecordFailure(ctx context.Context, billingRef, reason string) (*models.Subscription, error) {
	subscription, err := s.store.GetSubscriptionByBillingRef(billingRef)
	if err != nil {
		return nil, err
	}

	now := s.now()
	subscription.FailureCount++
	subscription.LastFailureReason = reason
	subscription.LastFailureDate = &now
	if !subscription.Status.Terminal() {
		subscription.Status = models.SubscriptionPastDue
	}
	if err := s.store.UpdateSubscription(subscription); err != nil {
		return nil, &ApiError{Op: "update subscription", Err: err}
	}
	return subscription, nil
}

// RecordRenewal absorbs a successful billing cycle: the subscription
// recovers to active, the billing window advances, and the cycle's gift is
// written as a donation owned by this subscription.
func (s *SubscriptionService) RecordRenewal(ctx context.Context, billingRef string, amount decimal.Decimal, paidAt time.Time) (*models.Subscription, error) {
	subscription, err := s.store.GetSubscriptionByBillingRef(billingRef)
	if err != nil {
		return nil, err
	}
	if subscription.Status.Terminal() {
		return nil, ErrInvalidState
	}

	if amount.IsZero() {
		amount = subscription.Amount
	}
	fee := EstimateFee(amount)
	donation := &models.Donation{
		DonationID:         s.newID(),
		DonorID:            subscription.DonorID,
		DonorName:          subscription.DonorName,
		Amount:             amount,
		FeeAmount:          fee,
		NetAmount:          amount.Sub(fee),
		Currency:           subscription.Currency,
		Category:           subscription.Category,
		Purpose:            subscription.Purpose,
		PaymentMethodBrand: subscription.PaymentMethodBrand,
		PaymentMethodLast4: subscription.PaymentMethodLast4,
		IsRecurring:        true,
		SubscriptionID:     subscription.SubscriptionID,
		DonatedAt:          paidAt,
	}
	if err := s.donations.CreateDonation(donation); err != nil {
		return nil, &ApiError{Op: "persist renewal donation", Err: err}
	}

	subscription.Status = models.SubscriptionActive
	subscription.FailureCount = 0
	subscription.LastFailureReason = ""
	subscription.LastFailureDate = nil
	subscription.CurrentPeriodStart = paidAt
	subscription.CurrentPeriodEnd = advancePeriod(paidAt, subscription.Frequency)
	subscription.NextPaymentDate = subscription.CurrentPeriodEnd
	subscription.TotalDonationsCount++
	subscription.TotalDonationsAmount = subscription.TotalDonationsAmount.Add(amount)
	if err := s.store.UpdateSubscription(subscription); err != nil {
		return nil, &ApiError{Op: "update subscription", Err: err}
	}
	return subscription, nil
}

// MarkEnded records that external billing exhausted the subscription.
// Already-terminal subscriptions are left untouched.
func (s *SubscriptionService) MarkEnded(ctx context.Context, billingRef string) (*models.Subscription, error) {
	subscription, err := s.store.GetSubscriptionByBillingRef(billingRef)
	if err != nil {
		return nil, err
	}
	if subscription.Status.Terminal() {
		return subscription, nil
	}

	now := s.now()
	subscription.Status = models.SubscriptionEnded
	subscription.EndedAt = &now
	if err := s.store.UpdateSubscription(subscription); err != nil {
		return nil, &ApiError{Op: "update subscription", Err: err}
	}
	return subscription, nil
}

// UpdatePaymentMethod swaps the stored payment method reference and its
// display fields. Allowed while active or past_due; never changes status.
func (s *SubscriptionService) UpdatePaymentMethod(ctx context.Context, subscriptionID string, method PaymentMethodRef) (*models.Subscription, error) {
	subscription, err := s.store.GetSubscriptionByID(subscriptionID)
	if err != nil {
		return nil, err
	}
	if subscription.Status != models.SubscriptionActive && subscription.Status != models.SubscriptionPastDue {
		return nil, ErrInvalidState
	}

	subscription.PaymentMethodRef = method.Ref
	subscription.PaymentMethodBrand = method.Brand
	subscription.PaymentMethodLast4 = method.Last4
	if err := s.store.UpdateSubscription(subscription); err != nil {
		return nil, &ApiError{Op: "update subscription", Err: err}
	}
	return subscription, nil
}

var (
	weeklyFactor     = decimal.NewFromFloat(4.33)
	quarterlyDivisor = decimal.NewFromInt(3)
	yearlyDivisor    = decimal.NewFromInt(12)
)

// MonthlyEquivalent normalizes a subscription amount to a per-month
// figure for aggregate displays. Not used for billing.
func MonthlyEquivalent(subscription *models.Subscription) decimal.Decimal {
	switch subscription.Frequency {
	case models.FrequencyWeekly:
		return subscription.Amount.Mul(weeklyFactor).Round(2)
	case models.FrequencyQuarterly:
		return subscription.Amount.Div(quarterlyDivisor).Round(2)
	case models.FrequencyYearly:
		return subscription.Amount.Div(yearlyDivisor).Round(2)
	default:
		return subscription.Amount
	}
}

// TotalMonthlyGiving sums the monthly equivalent of the active
// subscriptions in the list.
func TotalMonthlyGiving(subscriptions []models.Subscription) decimal.Decimal {
	total := decimal.Zero
	for i := range subscriptions {
		if subscriptions[i].Status == models.SubscriptionActive {
			total = total.Add(MonthlyEquivalent(&subscriptions[i]))
		}
	}
	return total
}
