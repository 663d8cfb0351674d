package payments

import (
	"context"

	"payflow-backend/internal/models"
)

// APIOptions carries the credentials a gateway call runs under. EphemeralKey
// and Account are optional and scope customer-owned reads.
type APIOptions struct {
	SecretKey    string
	EphemeralKey string
	Account      string
}

// ConfirmParams encapsulates everything needed to confirm an intent with a
// chosen instrument. Exactly one of PaymentMethodID or NewCard is set.
type ConfirmParams struct {
	ClientSecret    string
	PaymentMethodID string
	NewCard         *models.NewCardParams
	SaveForFuture   bool
	ReturnURL       string
}

// MethodListParams selects which stored instruments to list.
type MethodListParams struct {
	CustomerID   string
	EphemeralKey string
	Type         string
	Limit        int
}

// ConfirmOutcome is what a confirmation call produces: the refreshed intent
// plus the redirect the customer must complete when authentication is
// required.
type ConfirmOutcome struct {
	Intent      models.Intent
	RedirectURL string
}

// Gateway defines the behaviour required to drive a payment flow across
// vendors: load the intent behind a client secret, list a customer's stored
// instruments, and confirm the intent with a chosen instrument.
type Gateway interface {
	FetchIntent(ctx context.Context, clientSecret string) (models.Intent, error)
	FetchSavedMethods(ctx context.Context, params MethodListParams) ([]models.PaymentMethod, error)
	ConfirmIntent(ctx context.Context, params ConfirmParams) (*ConfirmOutcome, error)
}
