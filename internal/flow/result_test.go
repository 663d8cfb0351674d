package flow

import (
	"testing"

	"payflow-backend/internal/models"
	"payflow-backend/internal/redirect"
)

func TestInterpretConfirmedWinsOverCancelSignal(t *testing.T) {
	processed := &redirect.ProcessedResult{
		Intent:  &models.PaymentIntent{ID: "pi_1", Status: models.IntentStatusSucceeded},
		Outcome: redirect.OutcomeCanceled,
	}

	if _, ok := Interpret(processed).(models.ResultCompleted); !ok {
		t.Fatal("a confirmed intent must read as completed even against a cancel signal")
	}
}

func TestInterpretRequiresCaptureCountsAsCompleted(t *testing.T) {
	processed := &redirect.ProcessedResult{
		Intent:  &models.PaymentIntent{ID: "pi_1", Status: models.IntentStatusRequiresCapture},
		Outcome: redirect.OutcomeSucceeded,
	}

	if _, ok := Interpret(processed).(models.ResultCompleted); !ok {
		t.Fatal("requires_capture must read as completed")
	}
}

func TestInterpretCanceledOutcome(t *testing.T) {
	processed := &redirect.ProcessedResult{
		Intent:  &models.PaymentIntent{ID: "pi_1", Status: models.IntentStatusRequiresPaymentMethod},
		Outcome: redirect.OutcomeCanceled,
	}

	if _, ok := Interpret(processed).(models.ResultCanceled); !ok {
		t.Fatal("an unconfirmed intent with a cancel signal must read as canceled")
	}
}

func TestInterpretPrefersGatewayErrorMessage(t *testing.T) {
	processed := &redirect.ProcessedResult{
		Intent: &models.PaymentIntent{
			ID:               "pi_1",
			Status:           models.IntentStatusRequiresPaymentMethod,
			LastPaymentError: &models.IntentError{Code: "card_declined", Message: "Your card was declined."},
		},
		Outcome: redirect.OutcomeFailed,
	}

	failed, ok := Interpret(processed).(models.ResultFailed)
	if !ok {
		t.Fatal("expected a failed result")
	}
	if failed.Err.Error() != "Your card was declined." {
		t.Fatalf("expected the gateway message, got %q", failed.Err.Error())
	}
}

func TestInterpretFallsBackToGenericMessage(t *testing.T) {
	processed := &redirect.ProcessedResult{
		Intent:  &models.PaymentIntent{ID: "pi_1", Status: models.IntentStatusRequiresPaymentMethod},
		Outcome: redirect.OutcomeFailed,
	}

	failed, ok := Interpret(processed).(models.ResultFailed)
	if !ok {
		t.Fatal("expected a failed result")
	}
	if failed.Err.Error() != "failed to complete payment" {
		t.Fatalf("expected the generic message, got %q", failed.Err.Error())
	}
}

func TestInterpretSetupIntentLastError(t *testing.T) {
	processed := &redirect.ProcessedResult{
		Intent: &models.SetupIntent{
			ID:             "seti_1",
			Status:         models.IntentStatusRequiresPaymentMethod,
			LastSetupError: &models.IntentError{Message: "Authentication failed."},
		},
		Outcome: redirect.OutcomeFailed,
	}

	failed, ok := Interpret(processed).(models.ResultFailed)
	if !ok {
		t.Fatal("expected a failed result")
	}
	if failed.Err.Error() != "Authentication failed." {
		t.Fatalf("expected the setup error message, got %q", failed.Err.Error())
	}
}

func TestInterpretNilProcessedResult(t *testing.T) {
	if _, ok := Interpret(nil).(models.ResultFailed); !ok {
		t.Fatal("a missing processed result must read as failed")
	}
}
