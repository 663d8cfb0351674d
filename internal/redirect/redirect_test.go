package redirect

import (
	"context"
	"errors"
	"testing"

	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
)

type fakeGateway struct {
	intent     models.Intent
	fetchErr   error
	confirmed  *payments.ConfirmOutcome
	confirmErr error

	lastConfirm payments.ConfirmParams
}

func (g *fakeGateway) FetchIntent(_ context.Context, _ string) (models.Intent, error) {
	return g.intent, g.fetchErr
}

func (g *fakeGateway) FetchSavedMethods(_ context.Context, _ payments.MethodListParams) ([]models.PaymentMethod, error) {
	return nil, nil
}

func (g *fakeGateway) ConfirmIntent(_ context.Context, params payments.ConfirmParams) (*payments.ConfirmOutcome, error) {
	g.lastConfirm = params
	return g.confirmed, g.confirmErr
}

func TestParseOutcome(t *testing.T) {
	if got := ParseOutcome(" Succeeded "); got != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %q", got)
	}
	if got := ParseOutcome("nonsense"); got != OutcomeUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestPaymentProcessorRefreshesIntent(t *testing.T) {
	gateway := &fakeGateway{intent: &models.PaymentIntent{ID: "pi_1", Status: models.IntentStatusSucceeded}}
	processor := NewPaymentProcessor(gateway)

	processed, err := processor.Process(context.Background(), RawResult{
		ClientSecret: "pi_1_secret_2",
		Outcome:      OutcomeSucceeded,
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if processed.Intent.IntentID() != "pi_1" {
		t.Fatalf("unexpected intent %q", processed.Intent.IntentID())
	}
	if processed.Outcome != OutcomeSucceeded {
		t.Fatalf("unexpected outcome %q", processed.Outcome)
	}
}

func TestPaymentProcessorRejectsSetupIntent(t *testing.T) {
	gateway := &fakeGateway{intent: &models.SetupIntent{ID: "seti_1", Status: models.IntentStatusSucceeded}}
	processor := NewPaymentProcessor(gateway)

	if _, err := processor.Process(context.Background(), RawResult{ClientSecret: "seti_1_secret_2"}); err == nil {
		t.Fatal("expected intent family mismatch error")
	}
}

func TestSetupProcessorRejectsPaymentIntent(t *testing.T) {
	gateway := &fakeGateway{intent: &models.PaymentIntent{ID: "pi_1"}}
	processor := NewSetupProcessor(gateway)

	if _, err := processor.Process(context.Background(), RawResult{ClientSecret: "pi_1_secret_2"}); err == nil {
		t.Fatal("expected intent family mismatch error")
	}
}

func TestProcessorRequiresClientSecret(t *testing.T) {
	processor := NewPaymentProcessor(&fakeGateway{})

	if _, err := processor.Process(context.Background(), RawResult{}); err == nil {
		t.Fatal("expected error for missing client secret")
	}
}

func TestProcessorWrapsFetchError(t *testing.T) {
	gateway := &fakeGateway{fetchErr: errors.New("gateway down")}
	processor := NewPaymentProcessor(gateway)

	_, err := processor.Process(context.Background(), RawResult{ClientSecret: "pi_1_secret_2"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, gateway.fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestGatewayLauncherReportsSynthesizedSuccess(t *testing.T) {
	gateway := &fakeGateway{confirmed: &payments.ConfirmOutcome{
		Intent: &models.PaymentIntent{ID: "pi_1", Status: models.IntentStatusSucceeded},
	}}
	launcher := NewGatewayLauncher(gateway, nil)

	var reported *RawResult
	err := launcher.Start(context.Background(), payments.ConfirmParams{
		ClientSecret:    "pi_1_secret_2",
		PaymentMethodID: "pm_1",
	}, func(raw RawResult) { reported = &raw })
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if reported == nil {
		t.Fatal("expected a synthesized raw result")
	}
	if reported.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded outcome, got %q", reported.Outcome)
	}
	if gateway.lastConfirm.PaymentMethodID != "pm_1" {
		t.Fatalf("confirm params not forwarded: %+v", gateway.lastConfirm)
	}
}

func TestGatewayLauncherHandsOffRedirect(t *testing.T) {
	gateway := &fakeGateway{confirmed: &payments.ConfirmOutcome{
		Intent:      &models.PaymentIntent{ID: "pi_1", Status: models.IntentStatusRequiresAction},
		RedirectURL: "https://auth.example/3ds",
	}}

	var handedOff string
	launcher := NewGatewayLauncher(gateway, func(url string) { handedOff = url })

	var reported bool
	err := launcher.Start(context.Background(), payments.ConfirmParams{
		ClientSecret:    "pi_1_secret_2",
		PaymentMethodID: "pm_1",
	}, func(RawResult) { reported = true })
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if handedOff != "https://auth.example/3ds" {
		t.Fatalf("expected redirect handoff, got %q", handedOff)
	}
	if reported {
		t.Fatal("no raw result may be reported while the host completes the redirect")
	}
}

func TestGatewayLauncherReportsConfirmFailure(t *testing.T) {
	gateway := &fakeGateway{confirmErr: errors.New("card declined")}
	launcher := NewGatewayLauncher(gateway, nil)

	var reported *RawResult
	err := launcher.Start(context.Background(), payments.ConfirmParams{
		ClientSecret:    "pi_1_secret_2",
		PaymentMethodID: "pm_1",
	}, func(raw RawResult) { reported = &raw })
	if err != nil {
		t.Fatalf("start must not propagate confirm errors, got %v", err)
	}

	if reported == nil || reported.Outcome != OutcomeFailed {
		t.Fatalf("expected failed raw result, got %+v", reported)
	}
	if reported.Err == nil {
		t.Fatal("expected the confirm error to be carried")
	}
}
