package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"giving-api/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func newTestCheckoutService(t *testing.T) *CheckoutService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCheckoutServiceWithStore(NewRedisCheckoutStore(client, time.Minute))
}

func TestCheckoutStartsDrafting(t *testing.T) {
	svc := newTestCheckoutService(t)

	session, err := svc.Start(context.Background(), "donor-1")
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if session.State != StateDrafting {
		t.Fatalf("unexpected initial state: %s", session.State)
	}
	if session.ID == "" {
		t.Fatalf("expected a session id")
	}
}

func TestSubmitDraftValidationFailure(t *testing.T) {
	svc := newTestCheckoutService(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, "donor-1")
	_, err := svc.UpdateDraft(ctx, session.ID, "donor-1", models.DonationDraft{
		Amount:   decimal.Zero,
		Category: models.CategoryTithes,
	})
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}

	_, err = svc.SubmitDraft(ctx, session.ID, "donor-1")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Fields["amount"] == "" {
		t.Fatalf("expected an amount field error, got %v", validationErr.Fields)
	}

	// Session stays in drafting with the draft intact
	session, err = svc.Get(ctx, session.ID, "donor-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.State != StateDrafting {
		t.Fatalf("expected drafting after validation failure, got %s", session.State)
	}
	if session.Draft.Category != models.CategoryTithes {
		t.Fatalf("draft category lost: %s", session.Draft.Category)
	}
}

func TestSubmitDraftTransitionsToPaymentPending(t *testing.T) {
	svc := newTestCheckoutService(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, "donor-1")
	if _, err := svc.UpdateDraft(ctx, session.ID, "donor-1", models.DonationDraft{
		Amount:   decimal.NewFromInt(25),
		Category: models.CategoryTithes,
	}); err != nil {
		t.Fatalf("update draft: %v", err)
	}

	session, err := svc.SubmitDraft(ctx, session.ID, "donor-1")
	if err != nil {
		t.Fatalf("submit draft: %v", err)
	}
	if session.State != StatePaymentPending {
		t.Fatalf("expected payment_pending, got %s", session.State)
	}

	// Draft is frozen while payment is pending
	_, err = svc.UpdateDraft(ctx, session.ID, "donor-1", models.DonationDraft{})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState editing a frozen draft, got %v", err)
	}
}

func TestGoBackKeepsDraftFields(t *testing.T) {
	svc := newTestCheckoutService(t)
	ctx := context.Background()

	draft := models.DonationDraft{
		Amount:       decimal.NewFromInt(50),
		Category:     models.CategoryMissions,
		Purpose:      "building fund",
		ReceiptEmail: "donor@example.com",
	}
	session, _ := svc.Start(ctx, "donor-1")
	svc.UpdateDraft(ctx, session.ID, "donor-1", draft)
	if _, err := svc.SubmitDraft(ctx, session.ID, "donor-1"); err != nil {
		t.Fatalf("submit draft: %v", err)
	}

	session, err := svc.GoBack(ctx, session.ID, "donor-1")
	if err != nil {
		t.Fatalf("go back: %v", err)
	}
	if session.State != StateDrafting {
		t.Fatalf("expected drafting after back, got %s", session.State)
	}
	if !session.Draft.Amount.Equal(draft.Amount) ||
		session.Draft.Category != draft.Category ||
		session.Draft.Purpose != draft.Purpose ||
		session.Draft.ReceiptEmail != draft.ReceiptEmail {
		t.Fatalf("draft fields changed across back: %+v", session.Draft)
	}

	// Back is only valid from payment_pending
	if _, err := svc.GoBack(ctx, session.ID, "donor-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for back while drafting, got %v", err)
	}
}

func TestRecurringDraftDefaultsFrequency(t *testing.T) {
	svc := newTestCheckoutService(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, "donor-1")
	svc.UpdateDraft(ctx, session.ID, "donor-1", models.DonationDraft{
		Amount:      decimal.NewFromInt(20),
		Category:    models.CategoryOfferings,
		IsRecurring: true,
	})

	session, err := svc.SubmitDraft(ctx, session.ID, "donor-1")
	if err != nil {
		t.Fatalf("submit draft: %v", err)
	}
	if session.Draft.Frequency != models.FrequencyMonthly {
		t.Fatalf("expected defaulted monthly frequency, got %s", session.Draft.Frequency)
	}
}

func TestCompleteAndStartOver(t *testing.T) {
	svc := newTestCheckoutService(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, "donor-1")

	// Complete is only valid from payment_pending
	if _, err := svc.Complete(ctx, session.ID, "donor-1", "donation", "d-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState completing a drafting session, got %v", err)
	}

	svc.UpdateDraft(ctx, session.ID, "donor-1", models.DonationDraft{
		Amount:   decimal.NewFromInt(100),
		Category: models.CategoryMissions,
	})
	if _, err := svc.SubmitDraft(ctx, session.ID, "donor-1"); err != nil {
		t.Fatalf("submit draft: %v", err)
	}

	session, err := svc.Complete(ctx, session.ID, "donor-1", "donation", "d-1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if session.State != StateCompleted || session.ResultID != "d-1" {
		t.Fatalf("unexpected completed session: %+v", session)
	}

	session, err = svc.StartOver(ctx, session.ID, "donor-1")
	if err != nil {
		t.Fatalf("start over: %v", err)
	}
	if session.State != StateDrafting || !session.Draft.Amount.IsZero() || session.ResultID != "" {
		t.Fatalf("start over did not reset the session: %+v", session)
	}
}

func TestCheckoutSessionExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	svc := NewCheckoutServiceWithStore(NewRedisCheckoutStore(client, time.Minute))
	ctx := context.Background()

	session, err := svc.Start(ctx, "donor-1")
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := svc.Get(ctx, session.ID, "donor-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an expired session, got %v", err)
	}
}

func TestCheckoutSessionOwnership(t *testing.T) {
	svc := newTestCheckoutService(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, "donor-1")
	if _, err := svc.Get(ctx, session.ID, "donor-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign session, got %v", err)
	}
}
