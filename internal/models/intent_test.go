package models

import (
	"errors"
	"strings"
	"testing"
)

func TestKindOfClientSecret(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		kind   IntentKind
		ok     bool
	}{
		{"payment", "pi_123_secret_456", IntentKindPayment, true},
		{"setup", "seti_123_secret_456", IntentKindSetup, true},
		{"payment with whitespace", "  pi_123_secret_456  ", IntentKindPayment, true},
		{"missing secret part", "pi_123", "", false},
		{"wrong prefix", "cs_test_123_secret_456", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := KindOfClientSecret(tc.secret)
			if tc.ok {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if kind != tc.kind {
					t.Fatalf("expected kind %q, got %q", tc.kind, kind)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for %q", tc.secret)
			}
			if !errors.Is(err, ErrInvalidClientSecret) {
				t.Fatalf("expected ErrInvalidClientSecret, got %v", err)
			}
		})
	}
}

func TestClientSecretErrorRedactsSecret(t *testing.T) {
	_, err := KindOfClientSecret("xx_123_secret_verysecretvalue")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "verysecretvalue") {
		t.Fatalf("error message leaks secret material: %q", err.Error())
	}
}

func TestPaymentIntentConfirmed(t *testing.T) {
	confirmed := []IntentStatus{IntentStatusSucceeded, IntentStatusRequiresCapture}
	for _, status := range confirmed {
		pi := &PaymentIntent{ID: "pi_1", Status: status}
		if !pi.Confirmed() {
			t.Errorf("status %q should count as confirmed", status)
		}
	}

	unconfirmed := []IntentStatus{
		IntentStatusRequiresPaymentMethod,
		IntentStatusRequiresConfirmation,
		IntentStatusRequiresAction,
		IntentStatusProcessing,
		IntentStatusCanceled,
	}
	for _, status := range unconfirmed {
		pi := &PaymentIntent{ID: "pi_1", Status: status}
		if pi.Confirmed() {
			t.Errorf("status %q should not count as confirmed", status)
		}
	}
}

func TestSetupIntentConfirmed(t *testing.T) {
	si := &SetupIntent{ID: "seti_1", Status: IntentStatusSucceeded}
	if !si.Confirmed() {
		t.Fatal("succeeded setup intent should be confirmed")
	}

	si.Status = IntentStatusRequiresCapture
	if si.Confirmed() {
		t.Fatal("requires_capture confirms payments only, not setups")
	}
}

func TestIntentLastError(t *testing.T) {
	pi := &PaymentIntent{
		ID:               "pi_1",
		Status:           IntentStatusRequiresPaymentMethod,
		LastPaymentError: &IntentError{Code: "card_declined", Message: "Your card was declined."},
	}

	var intent Intent = pi
	lastErr := intent.LastError()
	if lastErr == nil {
		t.Fatal("expected last error to surface through the interface")
	}
	if lastErr.Message != "Your card was declined." {
		t.Fatalf("unexpected message %q", lastErr.Message)
	}
}
