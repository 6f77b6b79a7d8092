package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Stripe configuration
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProductID     string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// Auth configuration
	JWTSecret string

	// Checkout configuration
	CheckoutSessionTTLMinutes int
	Currency                  string
	ServiceName               string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                      getEnv("PORT", "8080"),
		Mode:                      getEnv("GIN_MODE", "debug"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		RedisURL:                  getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StripeSecretKey:           getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:       getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeProductID:           getEnv("STRIPE_PRODUCT_ID", ""),
		BrevoAPIKey:               getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:            getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:             getEnv("BREVO_FROM_NAME", "Giving Service"),
		JWTSecret:                 getEnv("JWT_SECRET", ""),
		CheckoutSessionTTLMinutes: getEnvInt("CHECKOUT_SESSION_TTL_MINUTES", 30),
		Currency:                  getEnv("CURRENCY", "usd"),
		ServiceName:               getEnv("SERVICE_NAME", "Giving Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
