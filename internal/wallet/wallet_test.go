package wallet

import (
	"context"
	"testing"

	"payflow-backend/internal/models"
)

func TestReadinessChecker(t *testing.T) {
	checker := NewReadinessChecker()

	cases := []struct {
		name  string
		cfg   *models.WalletConfig
		ready bool
	}{
		{"nil config", nil, false},
		{"valid test env", &models.WalletConfig{Environment: models.WalletEnvironmentTest, CountryCode: "US"}, true},
		{"valid production env", &models.WalletConfig{Environment: models.WalletEnvironmentProduction, CountryCode: "DE"}, true},
		{"bad environment", &models.WalletConfig{Environment: "staging", CountryCode: "US"}, false},
		{"bad country", &models.WalletConfig{Environment: models.WalletEnvironmentTest, CountryCode: "XYZ"}, false},
		{"missing country", &models.WalletConfig{Environment: models.WalletEnvironmentTest}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ready, err := checker.Ready(context.Background(), tc.cfg)
			if err != nil {
				t.Fatalf("readiness check errored: %v", err)
			}
			if ready != tc.ready {
				t.Fatalf("expected ready=%v, got %v", tc.ready, ready)
			}
		})
	}
}

func TestDecodeResult(t *testing.T) {
	method := &models.PaymentMethod{ID: "pm_wallet", Type: "card"}

	if res, ok := DecodeResult("completed", method, "").(Completed); !ok || res.Method.ID != "pm_wallet" {
		t.Fatalf("expected completed with instrument, got %#v", res)
	}

	if _, ok := DecodeResult("completed", nil, "").(Failed); !ok {
		t.Fatal("completed without an instrument must decode as failed")
	}

	if _, ok := DecodeResult("canceled", nil, "").(Canceled); !ok {
		t.Fatal("expected canceled")
	}

	failed, ok := DecodeResult("failed", nil, "tap declined").(Failed)
	if !ok {
		t.Fatal("expected failed")
	}
	if failed.Err.Error() != "tap declined" {
		t.Fatalf("expected message to carry through, got %q", failed.Err.Error())
	}

	if _, ok := DecodeResult("surprise", nil, "").(Failed); !ok {
		t.Fatal("unknown statuses must decode as failed")
	}
}
