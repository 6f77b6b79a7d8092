package api

import (
	"net/http"

	"giving-api/internal/middleware"
	"giving-api/internal/models"
	"giving-api/internal/response"
	"giving-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CheckoutSessionResponse is the API view of a checkout session. Fee and
// net are display estimates; the gateway decides the authoritative fee at
// confirmation time.
type CheckoutSessionResponse struct {
	ID           string                 `json:"id"`
	State        services.CheckoutState `json:"state"`
	Draft        models.DonationDraft   `json:"draft"`
	EstimatedFee decimal.Decimal        `json:"estimated_fee"`
	EstimatedNet decimal.Decimal        `json:"estimated_net"`
	ResultKind   string                 `json:"result_kind,omitempty"`
	ResultID     string                 `json:"result_id,omitempty"`
}

func sessionResponse(session *services.CheckoutSession) CheckoutSessionResponse {
	resp := CheckoutSessionResponse{
		ID:           session.ID,
		State:        session.State,
		Draft:        session.Draft,
		EstimatedFee: decimal.Zero,
		EstimatedNet: decimal.Zero,
		ResultKind:   session.ResultKind,
		ResultID:     session.ResultID,
	}
	if session.Draft.Amount.IsPositive() {
		resp.EstimatedFee = services.EstimateFee(session.Draft.Amount)
		resp.EstimatedNet = services.NetAmount(session.Draft.Amount)
	}
	return resp
}

// CreateCheckout opens a new checkout session
// POST /api/checkout
func CreateCheckout(c *gin.Context) {
	svc := services.NewCheckoutService()
	session, err := svc.Start(c.Request.Context(), middleware.DonorID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, response.Success(sessionResponse(session)))
}

// GetCheckout returns the current session state
// GET /api/checkout/:id
func GetCheckout(c *gin.Context) {
	svc := services.NewCheckoutService()
	session, err := svc.Get(c.Request.Context(), c.Param("id"), middleware.DonorID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, sessionResponse(session))
}

// UpdateCheckoutDraft replaces the draft while drafting
// PUT /api/checkout/:id/draft
func UpdateCheckoutDraft(c *gin.Context) {
	var draft models.DonationDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	svc := services.NewCheckoutService()
	session, err := svc.UpdateDraft(c.Request.Context(), c.Param("id"), middleware.DonorID(c), draft)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, sessionResponse(session))
}

// SubmitCheckout validates the draft and freezes it for payment
// POST /api/checkout/:id/submit
func SubmitCheckout(c *gin.Context) {
	svc := services.NewCheckoutService()
	session, err := svc.SubmitDraft(c.Request.Context(), c.Param("id"), middleware.DonorID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, sessionResponse(session))
}

// CheckoutBack returns a submitted session to drafting
// POST /api/checkout/:id/back
func CheckoutBack(c *gin.Context) {
	svc := services.NewCheckoutService()
	session, err := svc.GoBack(c.Request.Context(), c.Param("id"), middleware.DonorID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, sessionResponse(session))
}

// CheckoutReset starts the flow over with a blank draft
// POST /api/checkout/:id/reset
func CheckoutReset(c *gin.Context) {
	svc := services.NewCheckoutService()
	session, err := svc.StartOver(c.Request.Context(), c.Param("id"), middleware.DonorID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, sessionResponse(session))
}

// PayCheckoutRequest carries the opaque card token collected client-side
type PayCheckoutRequest struct {
	CardToken string `json:"card_token" binding:"required"`
}

// PayCheckout executes the payment for a submitted draft and completes
// the session on success.
// POST /api/checkout/:id/pay
func PayCheckout(c *gin.Context) {
	var req PayCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	donorID := middleware.DonorID(c)
	svc := services.NewCheckoutService()
	session, err := svc.Get(c.Request.Context(), c.Param("id"), donorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if session.State != services.StatePaymentPending {
		response.ErrorJSON(c, http.StatusConflict, "Submit the draft before paying")
		return
	}

	donor := services.Donor{
		ID:    donorID,
		Name:  middleware.DonorName(c),
		Email: c.GetString("donor_email"),
	}
	paymentService := services.NewPaymentService(services.NewStripeGateway(), services.NewReceiptService())
	result, err := paymentService.ExecutePayment(c.Request.Context(), donor, session.Draft, req.CardToken)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resultKind := "donation"
	resultID := result.DonationID
	if result.SubscriptionID != "" {
		resultKind = "subscription"
		resultID = result.SubscriptionID
	}

	session, err = svc.Complete(c.Request.Context(), session.ID, donorID, resultKind, resultID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, sessionResponse(session))
}
