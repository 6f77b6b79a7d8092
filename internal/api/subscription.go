package api

import (
	"net/http"

	"giving-api/internal/database"
	"giving-api/internal/middleware"
	"giving-api/internal/models"
	"giving-api/internal/response"
	"giving-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SubscriptionItem is the API view of a subscription, with the derived
// monthly-equivalent amount used in giving summaries.
type SubscriptionItem struct {
	models.Subscription
	MonthlyEquivalent decimal.Decimal `json:"monthly_equivalent"`
}

// SubscriptionListResponse lists a donor's subscriptions with the total
// monthly giving across active ones.
type SubscriptionListResponse struct {
	Subscriptions      []SubscriptionItem `json:"subscriptions"`
	TotalMonthlyGiving decimal.Decimal    `json:"total_monthly_giving"`
}

// ListSubscriptions returns all of the caller's subscriptions
// GET /api/subscriptions
func ListSubscriptions(c *gin.Context) {
	subscriptions, err := database.GetDonorSubscriptions(middleware.DonorID(c))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list subscriptions")
		return
	}

	items := make([]SubscriptionItem, 0, len(subscriptions))
	for i := range subscriptions {
		items = append(items, SubscriptionItem{
			Subscription:      subscriptions[i],
			MonthlyEquivalent: services.MonthlyEquivalent(&subscriptions[i]),
		})
	}

	response.SuccessJSON(c, SubscriptionListResponse{
		Subscriptions:      items,
		TotalMonthlyGiving: services.TotalMonthlyGiving(subscriptions),
	})
}

// CancelSubscription cancels one of the caller's subscriptions
// POST /api/subscriptions/:id/cancel
func CancelSubscription(c *gin.Context) {
	subscription, err := database.GetSubscriptionByID(c.Param("id"))
	if err != nil || subscription.DonorID != middleware.DonorID(c) {
		response.ErrorJSON(c, http.StatusNotFound, "Subscription not found")
		return
	}

	svc := services.NewSubscriptionService(services.NewStripeGateway())
	updated, err := svc.Cancel(c.Request.Context(), subscription.SubscriptionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, updated)
}

// UpdatePaymentMethodRequest carries the new tokenized payment method
type UpdatePaymentMethodRequest struct {
	PaymentMethodRef string `json:"payment_method_ref" binding:"required"`
}

// UpdateSubscriptionPaymentMethod swaps the payment method on one of the
// caller's subscriptions. The reference is resolved through the gateway
// so the stored brand/last4 display fields stay accurate.
// PUT /api/subscriptions/:id/payment-method
func UpdateSubscriptionPaymentMethod(c *gin.Context) {
	var req UpdatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	subscription, err := database.GetSubscriptionByID(c.Param("id"))
	if err != nil || subscription.DonorID != middleware.DonorID(c) {
		response.ErrorJSON(c, http.StatusNotFound, "Subscription not found")
		return
	}

	gateway := services.NewStripeGateway()
	method, err := gateway.CreatePaymentMethod(c.Request.Context(), req.PaymentMethodRef)
	if err != nil {
		response.ErrorJSON(c, http.StatusPaymentRequired, err.Error())
		return
	}

	svc := services.NewSubscriptionService(gateway)
	updated, err := svc.UpdatePaymentMethod(c.Request.Context(), subscription.SubscriptionID, *method)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, updated)
}
