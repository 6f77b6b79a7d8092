package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"giving-api/internal/models"

	"github.com/shopspring/decimal"
)

type stubSubscriptionStore struct {
	subscription *models.Subscription
	updateErr    error
	updated      int
}

func (s *stubSubscriptionStore) GetSubscriptionByID(id string) (*models.Subscription, error) {
	if s.subscription == nil || s.subscription.SubscriptionID != id {
		return nil, ErrNotFound
	}
	return s.subscription, nil
}

func (s *stubSubscriptionStore) GetSubscriptionByBillingRef(ref string) (*models.Subscription, error) {
	if s.subscription == nil || s.subscription.BillingRef != ref {
		return nil, ErrNotFound
	}
	return s.subscription, nil
}

func (s *stubSubscriptionStore) UpdateSubscription(sub *models.Subscription) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated++
	s.subscription = sub
	return nil
}

func activeSubscription() *models.Subscription {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return &models.Subscription{
		SubscriptionID:     "sub-1",
		BillingRef:         "bill-1",
		DonorID:            "donor-1",
		DonorName:          "Pat",
		Amount:             decimal.NewFromInt(50),
		Currency:           "usd",
		Frequency:          models.FrequencyMonthly,
		Category:           models.CategoryTithes,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
		NextPaymentDate:    start.AddDate(0, 1, 0),
		StartedAt:          start,
		PaymentMethodRef:   "pm_old",
		PaymentMethodBrand: "visa",
		PaymentMethodLast4: "4242",
	}
}

func newTestSubscriptionService(store *stubSubscriptionStore) (*SubscriptionService, *fakeGateway, *memoryDonationWriter) {
	gateway := &fakeGateway{}
	donations := &memoryDonationWriter{}
	svc := NewSubscriptionServiceWithDeps(store, gateway, donations)
	return svc, gateway, donations
}

func TestCancelActiveSubscription(t *testing.T) {
	store := &stubSubscriptionStore{subscription: activeSubscription()}
	svc, gateway, _ := newTestSubscriptionService(store)
	fixedNow := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	subscription, err := svc.Cancel(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if subscription.Status != models.SubscriptionCanceled {
		t.Fatalf("expected canceled, got %s", subscription.Status)
	}
	if subscription.CanceledAt == nil || !subscription.CanceledAt.Equal(fixedNow) {
		t.Fatalf("canceled_at not stamped: %v", subscription.CanceledAt)
	}
	if len(gateway.canceled) != 1 || gateway.canceled[0] != "bill-1" {
		t.Fatalf("billing cancel not forwarded: %v", gateway.canceled)
	}

	// A second cancel is tolerated and does not hit billing again
	if _, err := svc.Cancel(context.Background(), "sub-1"); err != nil {
		t.Fatalf("second cancel should be a no-op, got %v", err)
	}
	if len(gateway.canceled) != 1 {
		t.Fatalf("duplicate cancel reached billing: %v", gateway.canceled)
	}
}

func TestCancelEndedSubscription(t *testing.T) {
	subscription := activeSubscription()
	subscription.Status = models.SubscriptionEnded
	store := &stubSubscriptionStore{subscription: subscription}
	svc, _, _ := newTestSubscriptionService(store)

	if _, err := svc.Cancel(context.Background(), "sub-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestRecordFailureMovesToPastDue(t *testing.T) {
	store := &stubSubscriptionStore{subscription: activeSubscription()}
	svc, _, _ := newTestSubscriptionService(store)

	subscription, err := svc.RecordFailure(context.Background(), "bill-1", "card_declined")
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if subscription.Status != models.SubscriptionPastDue {
		t.Fatalf("expected past_due, got %s", subscription.Status)
	}
	if subscription.FailureCount != 1 || subscription.LastFailureReason != "card_declined" {
		t.Fatalf("failure bookkeeping wrong: %+v", subscription)
	}

	// Failures on a canceled subscription still count but do not change status
	subscription.Status = models.SubscriptionCanceled
	subscription, err = svc.RecordFailure(context.Background(), "bill-1", "expired_card")
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if subscription.Status != models.SubscriptionCanceled {
		t.Fatalf("terminal status should not move, got %s", subscription.Status)
	}
	if subscription.FailureCount != 2 {
		t.Fatalf("failure count should keep moving, got %d", subscription.FailureCount)
	}
}

func TestRecordRenewalRecoversAndAdvances(t *testing.T) {
	subscription := activeSubscription()
	subscription.Status = models.SubscriptionPastDue
	subscription.FailureCount = 2
	subscription.LastFailureReason = "card_declined"
	store := &stubSubscriptionStore{subscription: subscription}
	svc, _, donations := newTestSubscriptionService(store)

	paidAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.RecordRenewal(context.Background(), "bill-1", decimal.NewFromInt(50), paidAt)
	if err != nil {
		t.Fatalf("record renewal: %v", err)
	}

	if updated.Status != models.SubscriptionActive {
		t.Fatalf("renewal should recover to active, got %s", updated.Status)
	}
	if updated.FailureCount != 0 || updated.LastFailureReason != "" || updated.LastFailureDate != nil {
		t.Fatalf("failure fields not reset: %+v", updated)
	}
	if !updated.CurrentPeriodStart.Equal(paidAt) || !updated.CurrentPeriodEnd.Equal(paidAt.AddDate(0, 1, 0)) {
		t.Fatalf("billing window not advanced: %+v", updated)
	}
	if updated.TotalDonationsCount != 1 || !updated.TotalDonationsAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("totals not bumped: %+v", updated)
	}

	if len(donations.donations) != 1 {
		t.Fatalf("renewal should write a donation, got %d", len(donations.donations))
	}
	donation := donations.donations[0]
	if !donation.IsRecurring || donation.SubscriptionID != "sub-1" {
		t.Fatalf("renewal donation not tied to subscription: %+v", donation)
	}
	if !donation.DonatedAt.Equal(paidAt) {
		t.Fatalf("renewal donation should carry the paid time, got %v", donation.DonatedAt)
	}
}

func TestRecordRenewalOnTerminalSubscription(t *testing.T) {
	subscription := activeSubscription()
	subscription.Status = models.SubscriptionCanceled
	store := &stubSubscriptionStore{subscription: subscription}
	svc, _, donations := newTestSubscriptionService(store)

	_, err := svc.RecordRenewal(context.Background(), "bill-1", decimal.NewFromInt(50), time.Now())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(donations.donations) != 0 {
		t.Fatalf("no donation should be written for a terminal subscription")
	}
}

func TestMarkEnded(t *testing.T) {
	store := &stubSubscriptionStore{subscription: activeSubscription()}
	svc, _, _ := newTestSubscriptionService(store)
	fixedNow := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	subscription, err := svc.MarkEnded(context.Background(), "bill-1")
	if err != nil {
		t.Fatalf("mark ended: %v", err)
	}
	if subscription.Status != models.SubscriptionEnded {
		t.Fatalf("expected ended, got %s", subscription.Status)
	}
	if subscription.EndedAt == nil || !subscription.EndedAt.Equal(fixedNow) {
		t.Fatalf("ended_at not stamped: %v", subscription.EndedAt)
	}

	updatesBefore := store.updated
	if _, err := svc.MarkEnded(context.Background(), "bill-1"); err != nil {
		t.Fatalf("second mark ended should be a no-op, got %v", err)
	}
	if store.updated != updatesBefore {
		t.Fatalf("terminal subscription should not be rewritten")
	}
}

func TestUpdatePaymentMethodStateGuard(t *testing.T) {
	subscription := activeSubscription()
	subscription.Status = models.SubscriptionPastDue
	store := &stubSubscriptionStore{subscription: subscription}
	svc, _, _ := newTestSubscriptionService(store)

	method := PaymentMethodRef{Ref: "pm_new", Brand: "mastercard", Last4: "4444"}
	updated, err := svc.UpdatePaymentMethod(context.Background(), "sub-1", method)
	if err != nil {
		t.Fatalf("update payment method: %v", err)
	}
	if updated.PaymentMethodRef != "pm_new" || updated.PaymentMethodLast4 != "4444" {
		t.Fatalf("payment method not swapped: %+v", updated)
	}
	if updated.Status != models.SubscriptionPastDue {
		t.Fatalf("status must not change on method update, got %s", updated.Status)
	}

	updated.Status = models.SubscriptionCanceled
	if _, err := svc.UpdatePaymentMethod(context.Background(), "sub-1", method); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for canceled subscription, got %v", err)
	}
}

func TestMonthlyEquivalent(t *testing.T) {
	cases := []struct {
		amount    string
		frequency models.Frequency
		want      string
	}{
		{"10", models.FrequencyWeekly, "43.3"},
		{"50", models.FrequencyMonthly, "50"},
		{"90", models.FrequencyQuarterly, "30"},
		{"1200", models.FrequencyYearly, "100"},
	}

	for _, tc := range cases {
		subscription := &models.Subscription{
			Amount:    decimal.RequireFromString(tc.amount),
			Frequency: tc.frequency,
		}
		got := MonthlyEquivalent(subscription)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("MonthlyEquivalent(%s %s) = %s, want %s", tc.amount, tc.frequency, got, tc.want)
		}
	}
}

func TestTotalMonthlyGivingSkipsInactive(t *testing.T) {
	subscriptions := []models.Subscription{
		{Amount: decimal.NewFromInt(50), Frequency: models.FrequencyMonthly, Status: models.SubscriptionActive},
		{Amount: decimal.NewFromInt(90), Frequency: models.FrequencyQuarterly, Status: models.SubscriptionActive},
		{Amount: decimal.NewFromInt(100), Frequency: models.FrequencyMonthly, Status: models.SubscriptionCanceled},
	}

	total := TotalMonthlyGiving(subscriptions)
	if !total.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("total monthly giving = %s, want 80", total)
	}
}
