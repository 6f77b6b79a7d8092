package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"giving-api/internal/config"
	"giving-api/internal/response"
	"giving-api/internal/services"
	"giving-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeWebhookHandler absorbs billing events pushed by Stripe. These
// drive the subscription lifecycle from outside: failed invoices
// accumulate failures, paid invoices advance the billing cycle, deleted
// subscriptions end. Stripe retries on non-2xx, so unknown events and
// records we no longer track are acknowledged, not errored.
// POST /api/stripe/webhook
func StripeWebhookHandler(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Failed to read payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		logging.Errorf("Stripe webhook signature verification failed: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid signature")
		return
	}

	svc := services.NewSubscriptionService(services.NewStripeGateway())
	ctx := c.Request.Context()
	eventTime := time.Unix(event.Created, 0)

	switch event.Type {
	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil || invoice.Subscription == nil {
			logging.Errorf("Stripe webhook: malformed invoice payload: %v", err)
			break
		}
		reason := fmt.Sprintf("invoice payment failed (attempt %d)", invoice.AttemptCount)
		if _, err := svc.RecordFailure(ctx, invoice.Subscription.ID, reason); err != nil && !errors.Is(err, services.ErrNotFound) {
			logging.Errorf("Stripe webhook: record failure: %v", err)
		}

	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil || invoice.Subscription == nil {
			logging.Errorf("Stripe webhook: malformed invoice payload: %v", err)
			break
		}
		amount := decimal.NewFromInt(invoice.AmountPaid).Div(decimal.NewFromInt(100))
		if _, err := svc.RecordRenewal(ctx, invoice.Subscription.ID, amount, eventTime); err != nil &&
			!errors.Is(err, services.ErrNotFound) && !errors.Is(err, services.ErrInvalidState) {
			logging.Errorf("Stripe webhook: record renewal: %v", err)
		}

	case "customer.subscription.deleted":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			logging.Errorf("Stripe webhook: malformed subscription payload: %v", err)
			break
		}
		if _, err := svc.MarkEnded(ctx, subscription.ID); err != nil && !errors.Is(err, services.ErrNotFound) {
			logging.Errorf("Stripe webhook: mark ended: %v", err)
		}

	default:
		// Other event types are not interesting here
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
