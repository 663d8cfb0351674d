package wallet

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"

	"payflow-backend/internal/models"
)

// Args is everything a wallet launch needs: the payment intent being paid,
// the session's wallet configuration and the presentation hints.
type Args struct {
	Intent         *models.PaymentIntent
	Config         models.WalletConfig
	PrimaryColor   string
	FormattedTotal string
}

// Launcher starts the wallet flow for a confirmation attempt. The result
// arrives later through the flow's wallet result entry point.
type Launcher interface {
	Launch(ctx context.Context, args Args) error
}

// Result is the closed set of outcomes a wallet round trip produces.
type Result interface {
	isWalletResult()
}

// Completed carries the instrument the wallet produced.
type Completed struct {
	Method models.PaymentMethod
}

// Failed reports a wallet error.
type Failed struct {
	Err error
}

// Canceled reports that the customer dismissed the wallet.
type Canceled struct{}

func (Completed) isWalletResult() {}
func (Failed) isWalletResult()    {}
func (Canceled) isWalletResult()  {}

// DecodeResult maps a transport-level wallet status onto the result union.
// Unknown statuses decode to Failed so a new wallet state can never pass as
// success.
func DecodeResult(status string, method *models.PaymentMethod, message string) Result {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed":
		if method == nil {
			return Failed{Err: errors.New("wallet completed without an instrument")}
		}
		return Completed{Method: *method}
	case "canceled":
		return Canceled{}
	case "failed":
		if message == "" {
			message = "wallet reported an error"
		}
		return Failed{Err: errors.New(message)}
	default:
		return Failed{Err: errors.New("wallet returned an unrecognized status: " + status)}
	}
}

// ReadinessChecker reports whether the wallet can be offered for a session.
type ReadinessChecker interface {
	Ready(ctx context.Context, cfg *models.WalletConfig) (bool, error)
}

type envChecker struct{}

// NewReadinessChecker returns the configuration-based readiness check: the
// wallet is offered when the session configures it with a valid environment
// and a real country code.
func NewReadinessChecker() ReadinessChecker {
	return envChecker{}
}

func (envChecker) Ready(_ context.Context, cfg *models.WalletConfig) (bool, error) {
	if cfg == nil {
		return false, nil
	}
	if !cfg.Environment.Valid() {
		return false, nil
	}
	if _, err := language.ParseRegion(strings.TrimSpace(cfg.CountryCode)); err != nil {
		return false, nil
	}
	return true, nil
}
