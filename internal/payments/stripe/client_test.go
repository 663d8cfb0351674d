package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("sk_test_123")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client.WithAPIBase(server.URL), server
}

func TestNewClientRequiresSecretKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty secret key")
	}
}

func TestFetchIntentPayment(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents/pi_123" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Write([]byte(`{
			"id": "pi_123",
			"object": "payment_intent",
			"client_secret": "pi_123_secret_456",
			"status": "requires_payment_method",
			"amount": 1099,
			"currency": "usd",
			"payment_method_types": ["card"],
			"created": 1700000000
		}`))
	}))

	intent, err := client.FetchIntent(context.Background(), "pi_123_secret_456")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	pi, ok := intent.(*models.PaymentIntent)
	if !ok {
		t.Fatalf("expected payment intent, got %T", intent)
	}
	if pi.Amount != 1099 || pi.Currency != "usd" {
		t.Fatalf("unexpected intent %+v", pi)
	}
	if pi.Status != models.IntentStatusRequiresPaymentMethod {
		t.Fatalf("unexpected status %q", pi.Status)
	}
}

func TestFetchIntentSetup(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/setup_intents/seti_9" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "seti_9",
			"object": "setup_intent",
			"client_secret": "seti_9_secret_1",
			"status": "requires_payment_method",
			"usage": "off_session",
			"payment_method_types": ["card"]
		}`))
	}))

	intent, err := client.FetchIntent(context.Background(), "seti_9_secret_1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	si, ok := intent.(*models.SetupIntent)
	if !ok {
		t.Fatalf("expected setup intent, got %T", intent)
	}
	if si.Usage != "off_session" {
		t.Fatalf("unexpected usage %q", si.Usage)
	}
}

func TestFetchIntentRejectsMalformedSecret(t *testing.T) {
	client, err := NewClient("sk_test_123")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.FetchIntent(context.Background(), "not-a-secret"); err == nil {
		t.Fatal("expected error for malformed client secret")
	}
}

func TestFetchIntentSurfacesAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such payment_intent"}}`))
	}))

	_, err := client.FetchIntent(context.Background(), "pi_404_secret_1")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "No such payment_intent" {
		t.Fatalf("expected gateway message to surface, got %q", err.Error())
	}
}

func TestFetchSavedMethodsUsesEphemeralKey(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers/cus_1/payment_methods" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ek_test_55" {
			t.Errorf("expected ephemeral key auth, got %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "card" {
			t.Errorf("expected card type filter, got %q", got)
		}
		w.Write([]byte(`{"data": [
			{"id": "pm_1", "type": "card", "customer": "cus_1", "card": {"brand": "visa", "last4": "4242", "exp_month": 4, "exp_year": 2030}},
			{"id": "pm_2", "type": "card", "customer": "cus_1", "card": {"brand": "mastercard", "last4": "4444", "exp_month": 5, "exp_year": 2031}}
		]}`))
	}))

	methods, err := client.FetchSavedMethods(context.Background(), payments.MethodListParams{
		CustomerID:   "cus_1",
		EphemeralKey: "ek_test_55",
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
	if methods[0].ID != "pm_1" || methods[1].ID != "pm_2" {
		t.Fatalf("list order must follow the gateway response, got %+v", methods)
	}
	if methods[0].Card == nil || methods[0].Card.Brand != models.CardBrandVisa {
		t.Fatalf("unexpected card details %+v", methods[0].Card)
	}
}

func TestFetchSavedMethodsRequiresCustomer(t *testing.T) {
	client, err := NewClient("sk_test_123")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.FetchSavedMethods(context.Background(), payments.MethodListParams{}); err == nil {
		t.Fatal("expected error without customer id")
	}
}

func TestConfirmIntentWithSavedMethod(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents/pi_123/confirm" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("form parse failed: %v", err)
		}
		if got := r.PostForm.Get("payment_method"); got != "pm_1" {
			t.Errorf("expected payment_method pm_1, got %q", got)
		}
		if got := r.PostForm.Get("return_url"); got != "https://merchant.example/return" {
			t.Errorf("expected return_url, got %q", got)
		}
		w.Write([]byte(`{
			"id": "pi_123",
			"client_secret": "pi_123_secret_456",
			"status": "requires_action",
			"next_action": {"type": "redirect_to_url", "redirect_to_url": {"url": "https://auth.example/3ds"}}
		}`))
	}))

	outcome, err := client.ConfirmIntent(context.Background(), payments.ConfirmParams{
		ClientSecret:    "pi_123_secret_456",
		PaymentMethodID: "pm_1",
		ReturnURL:       "https://merchant.example/return",
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if outcome.RedirectURL != "https://auth.example/3ds" {
		t.Fatalf("expected redirect url, got %q", outcome.RedirectURL)
	}
	if outcome.Intent.IntentStatus() != models.IntentStatusRequiresAction {
		t.Fatalf("unexpected status %q", outcome.Intent.IntentStatus())
	}
}

func TestConfirmIntentWithNewCard(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("form parse failed: %v", err)
		}
		if got := r.PostForm.Get("payment_method_data[card][number]"); got != "4242424242424242" {
			t.Errorf("expected card number in form, got %q", got)
		}
		if got := r.PostForm.Get("setup_future_usage"); got != "off_session" {
			t.Errorf("expected setup_future_usage for save request, got %q", got)
		}
		w.Write([]byte(`{"id": "pi_123", "client_secret": "pi_123_secret_456", "status": "succeeded"}`))
	}))

	outcome, err := client.ConfirmIntent(context.Background(), payments.ConfirmParams{
		ClientSecret:  "pi_123_secret_456",
		NewCard:       &models.NewCardParams{Number: "4242424242424242", ExpMonth: 4, ExpYear: 2030, CVC: "123"},
		SaveForFuture: true,
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if !outcome.Intent.Confirmed() {
		t.Fatal("expected confirmed intent")
	}
	if outcome.RedirectURL != "" {
		t.Fatalf("expected no redirect, got %q", outcome.RedirectURL)
	}
}

func TestConfirmIntentRequiresInstrument(t *testing.T) {
	client, err := NewClient("sk_test_123")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.ConfirmIntent(context.Background(), payments.ConfirmParams{ClientSecret: "pi_1_secret_2"}); err == nil {
		t.Fatal("expected error without an instrument")
	}
}
