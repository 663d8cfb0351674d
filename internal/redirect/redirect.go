package redirect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
)

// OutcomeCode is the coarse outcome an authentication hop reports before the
// intent is re-checked.
type OutcomeCode string

const (
	OutcomeUnknown   OutcomeCode = "unknown"
	OutcomeSucceeded OutcomeCode = "succeeded"
	OutcomeFailed    OutcomeCode = "failed"
	OutcomeCanceled  OutcomeCode = "canceled"
	OutcomeTimedOut  OutcomeCode = "timedout"
)

// ParseOutcome normalizes a transport-level outcome string. Anything
// unrecognized parses as unknown.
func ParseOutcome(raw string) OutcomeCode {
	switch OutcomeCode(strings.ToLower(strings.TrimSpace(raw))) {
	case OutcomeSucceeded:
		return OutcomeSucceeded
	case OutcomeFailed:
		return OutcomeFailed
	case OutcomeCanceled:
		return OutcomeCanceled
	case OutcomeTimedOut:
		return OutcomeTimedOut
	default:
		return OutcomeUnknown
	}
}

// RawResult is the host-reported outcome of an authentication hop, before
// any interpretation against the refreshed intent.
type RawResult struct {
	ClientSecret string
	Outcome      OutcomeCode
	Err          error
}

// ProcessedResult pairs the refreshed intent with the normalized outcome. The
// flow derives its terminal result from this pair alone.
type ProcessedResult struct {
	Intent  models.Intent
	Outcome OutcomeCode
}

// Processor turns a raw authentication result into a processed one by
// re-checking the intent with the gateway.
type Processor interface {
	Process(ctx context.Context, raw RawResult) (*ProcessedResult, error)
}

type paymentProcessor struct {
	gateway payments.Gateway
}

type setupProcessor struct {
	gateway payments.Gateway
}

// NewPaymentProcessor returns the processor for payment intent flows.
func NewPaymentProcessor(gateway payments.Gateway) Processor {
	return &paymentProcessor{gateway: gateway}
}

// NewSetupProcessor returns the processor for setup intent flows.
func NewSetupProcessor(gateway payments.Gateway) Processor {
	return &setupProcessor{gateway: gateway}
}

func refreshIntent(ctx context.Context, gateway payments.Gateway, raw RawResult) (models.Intent, error) {
	if strings.TrimSpace(raw.ClientSecret) == "" {
		return nil, errors.New("authentication result is missing the client secret")
	}

	intent, err := gateway.FetchIntent(ctx, raw.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check intent after authentication: %w", err)
	}
	return intent, nil
}

func (p *paymentProcessor) Process(ctx context.Context, raw RawResult) (*ProcessedResult, error) {
	intent, err := refreshIntent(ctx, p.gateway, raw)
	if err != nil {
		return nil, err
	}

	if intent.Kind() != models.IntentKindPayment {
		return nil, fmt.Errorf("expected a payment intent, got %s", intent.Kind())
	}

	return &ProcessedResult{Intent: intent, Outcome: raw.Outcome}, nil
}

func (p *setupProcessor) Process(ctx context.Context, raw RawResult) (*ProcessedResult, error) {
	intent, err := refreshIntent(ctx, p.gateway, raw)
	if err != nil {
		return nil, err
	}

	if intent.Kind() != models.IntentKindSetup {
		return nil, fmt.Errorf("expected a setup intent, got %s", intent.Kind())
	}

	return &ProcessedResult{Intent: intent, Outcome: raw.Outcome}, nil
}

// Launcher begins a confirmation attempt. When the gateway demands an
// authentication hop the launcher hands the redirect to the host; otherwise
// it reports the synthesized raw result directly.
type Launcher interface {
	Start(ctx context.Context, params payments.ConfirmParams, report func(RawResult)) error
}

// GatewayLauncher confirms through the gateway and routes any required
// redirect to the host via the handoff callback.
type GatewayLauncher struct {
	gateway payments.Gateway
	handoff func(url string)
}

func NewGatewayLauncher(gateway payments.Gateway, handoff func(url string)) *GatewayLauncher {
	return &GatewayLauncher{gateway: gateway, handoff: handoff}
}

func (l *GatewayLauncher) Start(ctx context.Context, params payments.ConfirmParams, report func(RawResult)) error {
	if report == nil {
		return errors.New("confirmation launcher requires a report callback")
	}

	outcome, err := l.gateway.ConfirmIntent(ctx, params)
	if err != nil {
		report(RawResult{ClientSecret: params.ClientSecret, Outcome: OutcomeFailed, Err: err})
		return nil
	}

	if outcome.RedirectURL != "" {
		if l.handoff == nil {
			report(RawResult{
				ClientSecret: params.ClientSecret,
				Outcome:      OutcomeFailed,
				Err:          errors.New("authentication is required but no redirect handler is installed"),
			})
			return nil
		}
		l.handoff(outcome.RedirectURL)
		return nil
	}

	report(RawResult{ClientSecret: params.ClientSecret, Outcome: OutcomeSucceeded})
	return nil
}
