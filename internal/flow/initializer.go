package flow

import (
	"context"
	"fmt"
	"sync"

	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
	"payflow-backend/internal/repository"
	"payflow-backend/internal/wallet"
)

// Initializer performs the one-shot session load behind configure: intent,
// stored instruments, wallet readiness and the recovered selection hint. The
// four lookups run concurrently but land as one unit: any failure fails the
// whole load and no partial session escapes.
type Initializer struct {
	gateway     payments.Gateway
	preferences repository.PreferenceRepository
	walletCheck wallet.ReadinessChecker
}

func NewInitializer(gateway payments.Gateway, preferences repository.PreferenceRepository, walletCheck wallet.ReadinessChecker) *Initializer {
	return &Initializer{
		gateway:     gateway,
		preferences: preferences,
		walletCheck: walletCheck,
	}
}

// Load fetches and validates everything a session needs. There are no
// retries: the caller decides whether to configure again.
func (i *Initializer) Load(ctx context.Context, clientSecret string, cfg models.FlowConfiguration) (*SessionData, error) {
	if _, err := models.KindOfClientSecret(clientSecret); err != nil {
		return nil, newFailure(FailureInit, err)
	}

	var (
		wg sync.WaitGroup

		intent    models.Intent
		intentErr error

		methods    []models.PaymentMethod
		methodsErr error

		walletReady bool
		walletErr   error

		hint    models.SavedSelection
		hintErr error
	)

	wg.Add(4)

	go func() {
		defer wg.Done()
		intent, intentErr = i.gateway.FetchIntent(ctx, clientSecret)
	}()

	go func() {
		defer wg.Done()
		if cfg.Customer == nil {
			return
		}
		methods, methodsErr = i.gateway.FetchSavedMethods(ctx, payments.MethodListParams{
			CustomerID:   cfg.Customer.ID,
			EphemeralKey: cfg.Customer.EphemeralKey,
			Type:         "card",
		})
	}()

	go func() {
		defer wg.Done()
		walletReady, walletErr = i.walletCheck.Ready(ctx, cfg.Wallet)
	}()

	go func() {
		defer wg.Done()
		hint, hintErr = i.preferences.SavedSelection(cfg.CustomerKey())
	}()

	wg.Wait()

	for _, err := range []error{intentErr, methodsErr, walletErr, hintErr} {
		if err != nil {
			return nil, newFailure(FailureInit, err)
		}
	}

	if err := validateIntent(intent); err != nil {
		return nil, newFailure(FailureInit, err)
	}

	return &SessionData{
		Config:       cfg,
		ClientSecret: clientSecret,
		Intent:       intent,
		MethodTypes:  intent.MethodTypes(),
		SavedMethods: methods,
		SavedHint:    hint,
		WalletReady:  walletReady,
	}, nil
}

// validateIntent rejects intents that have nothing left to confirm.
func validateIntent(intent models.Intent) error {
	if intent == nil {
		return fmt.Errorf("gateway returned no intent")
	}
	if intent.Confirmed() {
		return fmt.Errorf("intent %s is already confirmed", intent.IntentID())
	}
	if intent.IntentStatus() == models.IntentStatusCanceled {
		return fmt.Errorf("intent %s is canceled", intent.IntentID())
	}
	return nil
}
