package flow

import (
	"context"

	"payflow-backend/internal/models"
)

// OptionsArgs is the package of session state the option picker needs to
// render itself.
type OptionsArgs struct {
	Intent         models.Intent
	Methods        []models.PaymentMethod
	MerchantName   string
	PrimaryColor   string
	FormattedTotal string
	WalletReady    bool
	WalletLabel    string

	// Prefill carries a previously entered new-card selection back into the
	// picker's form. Saved and wallet selections round-trip by identity and
	// need no prefill.
	Prefill *models.NewMethodSelection

	// CurrentOption is the projection of the selection the picker opens on.
	CurrentOption *models.PaymentOption
}

// OptionsLauncher presents the picker to the customer. The outcome returns
// through the flow's option result entry point.
type OptionsLauncher interface {
	Present(ctx context.Context, args OptionsArgs) error
}
