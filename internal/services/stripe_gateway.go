package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"giving-api/internal/config"
	"giving-api/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/customer"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/paymentmethod"
	sub "github.com/stripe/stripe-go/v74/subscription"
)

// StripeGateway implements PaymentGateway against the Stripe API
type StripeGateway struct {
	productID string
}

// NewStripeGateway creates the Stripe gateway and sets the API key
func NewStripeGateway() *StripeGateway {
	stripe.Key = config.AppConfig.StripeSecretKey
	return &StripeGateway{
		productID: config.AppConfig.StripeProductID,
	}
}

var hundred = decimal.NewFromInt(100)

// minorUnits converts a decimal dollar amount to cents
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// fromMinorUnits converts cents back to a decimal dollar amount
func fromMinorUnits(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}

// stripeMessage unwraps the human-readable message from a Stripe error
func stripeMessage(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return errors.New(se.Msg)
	}
	return err
}

// CreatePaymentIntent creates a one-time payment intent. The returned fee
// and net are the service-side computation shown before confirmation.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*IntentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(in.Amount)),
		Currency: stripe.String(in.Currency),
	}
	params.Context = ctx
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	if in.Purpose != "" {
		params.Description = stripe.String(in.Purpose)
	}
	params.AddMetadata("category", string(in.Category))

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, stripeMessage(err)
	}

	fee := EstimateFee(in.Amount)
	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		FeeAmount:    fee,
		NetAmount:    in.Amount.Sub(fee),
		Currency:     string(intent.Currency),
	}, nil
}

// ConfirmPayment confirms the intent identified by the client secret with
// the tokenized payment method collected out-of-core.
func (g *StripeGateway) ConfirmPayment(ctx context.Context, clientSecret, paymentMethodRef string) (*ChargeResult, error) {
	intentID := intentIDFromClientSecret(clientSecret)
	if intentID == "" {
		return nil, fmt.Errorf("malformed client secret")
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if paymentMethodRef != "" {
		params.PaymentMethod = stripe.String(paymentMethodRef)
	}
	params.AddExpand("latest_charge")

	intent, err := paymentintent.Confirm(intentID, params)
	if err != nil {
		return nil, stripeMessage(err)
	}

	result := &ChargeResult{
		Status:     string(intent.Status),
		PaymentRef: intent.ID,
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		result.Message = "payment was declined or requires further action"
	}
	if charge := intent.LatestCharge; charge != nil {
		if details := charge.PaymentMethodDetails; details != nil && details.Card != nil {
			result.Brand = string(details.Card.Brand)
			result.Last4 = details.Card.Last4
		}
	}
	return result, nil
}

// intentIDFromClientSecret extracts the intent id from a pi_..._secret_... value
func intentIDFromClientSecret(clientSecret string) string {
	idx := strings.Index(clientSecret, "_secret")
	if idx <= 0 {
		return ""
	}
	return clientSecret[:idx]
}

// CreatePaymentMethod turns a card token into a reusable payment method
// reference. Already-tokenized references are looked up as-is.
func (g *StripeGateway) CreatePaymentMethod(ctx context.Context, cardToken string) (*PaymentMethodRef, error) {
	var method *stripe.PaymentMethod
	var err error

	if strings.HasPrefix(cardToken, "pm_") {
		params := &stripe.PaymentMethodParams{}
		params.Context = ctx
		method, err = paymentmethod.Get(cardToken, params)
	} else {
		params := &stripe.PaymentMethodParams{
			Type: stripe.String("card"),
			Card: &stripe.PaymentMethodCardParams{
				Token: stripe.String(cardToken),
			},
		}
		params.Context = ctx
		method, err = paymentmethod.New(params)
	}
	if err != nil {
		return nil, stripeMessage(err)
	}

	ref := &PaymentMethodRef{Ref: method.ID}
	if method.Card != nil {
		ref.Brand = string(method.Card.Brand)
		ref.Last4 = method.Card.Last4
	}
	return ref, nil
}

// CreateBillingSubscription creates a Stripe customer holding the payment
// method and subscribes it with an inline recurring price.
func (g *StripeGateway) CreateBillingSubscription(ctx context.Context, in CreateBillingSubscriptionInput) (*BillingSubscription, error) {
	customerParams := &stripe.CustomerParams{
		PaymentMethod: stripe.String(in.PaymentMethodRef),
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(in.PaymentMethodRef),
		},
	}
	customerParams.Context = ctx
	if in.ReceiptEmail != "" {
		customerParams.Email = stripe.String(in.ReceiptEmail)
	}
	cus, err := customer.New(customerParams)
	if err != nil {
		return nil, stripeMessage(err)
	}

	interval, intervalCount := billingInterval(in.Frequency)
	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(cus.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				PriceData: &stripe.SubscriptionItemPriceDataParams{
					Currency:   stripe.String(in.Currency),
					Product:    stripe.String(g.productID),
					UnitAmount: stripe.Int64(minorUnits(in.Amount)),
					Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
						Interval:      stripe.String(interval),
						IntervalCount: stripe.Int64(intervalCount),
					},
				},
			},
		},
	}
	subParams.Context = ctx
	subParams.AddMetadata("category", string(in.Category))

	subscription, err := sub.New(subParams)
	if err != nil {
		return nil, stripeMessage(err)
	}

	return &BillingSubscription{BillingRef: subscription.ID}, nil
}

// CancelBillingSubscription cancels the subscription at the billing system
func (g *StripeGateway) CancelBillingSubscription(ctx context.Context, billingRef string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := sub.Cancel(billingRef, params); err != nil {
		return stripeMessage(err)
	}
	return nil
}

// billingInterval maps a giving frequency onto Stripe's interval model
func billingInterval(frequency models.Frequency) (string, int64) {
	switch frequency {
	case models.FrequencyWeekly:
		return "week", 1
	case models.FrequencyQuarterly:
		return "month", 3
	case models.FrequencyYearly:
		return "year", 1
	default:
		return "month", 1
	}
}
