package config

import (
	"fmt"
	"os"
	"strings"

	"payflow-backend/internal/payments/stripe"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DatabaseURL    string
	EnableDatabase bool

	// Redis
	EnableRedis bool
	RedisURL    string

	// Stripe
	StripeSecretKey     string
	StripeAPIBase       string
	StripeWebhookSecret string

	// Flow sessions
	JWTSecret         string
	SessionTTLMinutes int
	ReturnURL         string
	HintRetentionDays int

	// Wallet
	EnableWallet      bool
	WalletEnvironment string
	WalletCountryCode string
	WalletLabel       string

	// Analytics
	CollectorURL    string
	SentryDSN       string
	CaptureFailures bool

	// CORS
	CORSOrigins []string

	// Rate Limiting
	RateLimitRequests        int
	RateLimitWindow          int
	RateLimitBurst           int
	ConfirmRateLimitRequests int
	ConfirmRateLimitWindow   int

	// Features
	EnableMetrics bool
}

func New() *Config {
	c := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Database
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "payflow"),
		DBPassword:     getEnv("DB_PASSWORD", "payflow"),
		DBName:         getEnv("DB_NAME", "payflow"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		EnableDatabase: getEnvAsBool("ENABLE_DATABASE", true),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", true),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// Stripe
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeAPIBase:       getEnv("STRIPE_API_BASE", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		// Flow sessions
		JWTSecret:         getEnv("JWT_SECRET", "change-this-session-token-secret"),
		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 60),
		ReturnURL:         getEnv("RETURN_URL", "payflow://redirect"),
		HintRetentionDays: getEnvAsInt("HINT_RETENTION_DAYS", 180),

		// Wallet
		WalletEnvironment: getEnv("WALLET_ENVIRONMENT", "test"),
		WalletCountryCode: getEnv("WALLET_COUNTRY_CODE", ""),
		WalletLabel:       getEnv("WALLET_LABEL", ""),

		// Analytics
		CollectorURL: getEnv("ANALYTICS_COLLECTOR_URL", ""),
		SentryDSN:    getEnv("SENTRY_DSN", ""),

		// CORS
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		// Rate Limiting
		RateLimitRequests:        getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:          getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:           getEnvAsInt("RATE_LIMIT_BURST", 0),
		ConfirmRateLimitRequests: getEnvAsInt("CONFIRM_RATE_LIMIT_REQUESTS", 10),
		ConfirmRateLimitWindow:   getEnvAsInt("CONFIRM_RATE_LIMIT_WINDOW", 60),

		// Features
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}

	// Wallet support follows the country code unless explicitly toggled.
	c.EnableWallet = getEnvAsBool("ENABLE_WALLET", c.WalletCountryCode != "")

	// Failure capture follows the Sentry DSN unless explicitly toggled.
	c.CaptureFailures = getEnvAsBool("CAPTURE_FAILURES", c.SentryDSN != "")

	// Build DSN
	c.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)

	return c
}

// Validate rejects configurations the server cannot safely start with.
func (c *Config) Validate() error {
	if !stripe.IsSecretKey(c.StripeSecretKey) {
		return fmt.Errorf("STRIPE_SECRET_KEY must be a secret key, got %q", redactKey(c.StripeSecretKey))
	}
	if c.StripeWebhookSecret != "" && !stripe.IsWebhookSecret(c.StripeWebhookSecret) {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET must start with %s", stripe.WebhookSecretPrefix)
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive, got %d", c.SessionTTLMinutes)
	}
	if c.IsProduction() && c.JWTSecret == "change-this-session-token-secret" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
