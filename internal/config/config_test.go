package config

import (
	"os"
	"testing"
)

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	original, existed := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
	t.Cleanup(func() {
		if !existed {
			_ = os.Unsetenv(key)
			return
		}
		_ = os.Setenv(key, original)
	})
}

func TestWalletAutoEnablesWithCountryCode(t *testing.T) {
	unsetEnv(t, "ENABLE_WALLET")
	t.Setenv("WALLET_COUNTRY_CODE", "US")

	cfg := New()
	if !cfg.EnableWallet {
		t.Fatalf("expected wallet to auto-enable when a country code is provided")
	}
}

func TestWalletRespectsExplicitDisable(t *testing.T) {
	t.Setenv("WALLET_COUNTRY_CODE", "US")
	t.Setenv("ENABLE_WALLET", "false")

	cfg := New()
	if cfg.EnableWallet {
		t.Fatalf("expected wallet to remain disabled when flag explicitly set")
	}
}

func TestWalletRemainsDisabledWithoutCountryCode(t *testing.T) {
	unsetEnv(t, "ENABLE_WALLET")
	unsetEnv(t, "WALLET_COUNTRY_CODE")

	cfg := New()
	if cfg.EnableWallet {
		t.Fatalf("expected wallet to remain disabled without a country code")
	}
}

func TestFailureCaptureFollowsSentryDSN(t *testing.T) {
	unsetEnv(t, "CAPTURE_FAILURES")
	t.Setenv("SENTRY_DSN", "https://key@sentry.example/1")

	cfg := New()
	if !cfg.CaptureFailures {
		t.Fatalf("expected failure capture to auto-enable with a Sentry DSN")
	}
}

func TestValidateRejectsBadStripeKey(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "pk_test_123")

	cfg := New()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected a publishable key to be rejected")
	}
}

func TestValidateAcceptsWorkingConfiguration(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_abc")
	unsetEnv(t, "SESSION_TTL_MINUTES")
	unsetEnv(t, "ENVIRONMENT")

	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected configuration to validate, got %v", err)
	}
}

func TestValidateRequiresRealSessionSecretInProduction(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_live_123")
	t.Setenv("ENVIRONMENT", "production")
	unsetEnv(t, "JWT_SECRET")

	cfg := New()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected the default session secret to be rejected in production")
	}
}
