package api

import (
	"giving-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	// API route group
	api := r.Group("/api")
	{
		// Checkout flow (donor authentication required)
		checkout := api.Group("/checkout")
		checkout.Use(middleware.AuthRequired())
		{
			checkout.POST("", CreateCheckout)
			checkout.GET("/:id", GetCheckout)
			checkout.PUT("/:id/draft", UpdateCheckoutDraft)
			checkout.POST("/:id/submit", SubmitCheckout)
			checkout.POST("/:id/back", CheckoutBack)
			checkout.POST("/:id/pay", PayCheckout)
			checkout.POST("/:id/reset", CheckoutReset)
		}

		// Donation history (donor authentication required)
		donations := api.Group("/donations")
		donations.Use(middleware.AuthRequired())
		{
			donations.GET("", ListDonations)
			donations.GET("/:id", GetDonation)
		}

		// Subscription management (donor authentication required)
		subscriptions := api.Group("/subscriptions")
		subscriptions.Use(middleware.AuthRequired())
		{
			subscriptions.GET("", ListSubscriptions)
			subscriptions.POST("/:id/cancel", CancelSubscription)
			subscriptions.PUT("/:id/payment-method", UpdateSubscriptionPaymentMethod)
		}

		// Aggregate analytics (admin role required)
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/analytics", GetAnalytics)
			admin.GET("/analytics/export", ExportDonations)
		}

		// Billing events pushed by Stripe (signature-verified, no auth)
		stripeGroup := api.Group("/stripe")
		{
			stripeGroup.POST("/webhook", StripeWebhookHandler)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "giving-api",
		})
	})
}
