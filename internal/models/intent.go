package models

import (
	"errors"
	"fmt"
	"strings"
)

// IntentStatus mirrors the gateway's intent lifecycle states.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusRequiresCapture       IntentStatus = "requires_capture"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

// IntentKind distinguishes the two intent families a client secret can name.
type IntentKind string

const (
	IntentKindPayment IntentKind = "payment"
	IntentKindSetup   IntentKind = "setup"
)

var ErrInvalidClientSecret = errors.New("client secret format is not recognized")

// KindOfClientSecret inspects a client secret and reports which intent family
// it belongs to. Payment secrets look like pi_..._secret_..., setup secrets
// like seti_..._secret_....
func KindOfClientSecret(secret string) (IntentKind, error) {
	trimmed := strings.TrimSpace(secret)
	switch {
	case strings.HasPrefix(trimmed, "pi_") && strings.Contains(trimmed, "_secret_"):
		return IntentKindPayment, nil
	case strings.HasPrefix(trimmed, "seti_") && strings.Contains(trimmed, "_secret_"):
		return IntentKindSetup, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidClientSecret, redactSecret(trimmed))
	}
}

func redactSecret(secret string) string {
	if idx := strings.Index(secret, "_secret_"); idx > 0 {
		return secret[:idx] + "_secret_…"
	}
	if len(secret) > 12 {
		return secret[:12] + "…"
	}
	return secret
}

// IntentError carries the gateway's last error on an intent.
type IntentError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code,omitempty"`
	Message     string `json:"message"`
}

// Intent is either a PaymentIntent or a SetupIntent. The two variants share
// identity, status and allowed method types but differ in what confirmation
// means for them.
type Intent interface {
	isIntent()

	IntentID() string
	Kind() IntentKind
	IntentStatus() IntentStatus
	MethodTypes() []string

	// Confirmed reports whether the intent has reached a state the flow
	// treats as successfully confirmed.
	Confirmed() bool

	// LastError returns the gateway's most recent error for the intent,
	// or nil when none was recorded.
	LastError() *IntentError
}

type PaymentIntent struct {
	ID                 string       `json:"id"`
	ClientSecret       string       `json:"client_secret"`
	Status             IntentStatus `json:"status"`
	Amount             int64        `json:"amount"`
	Currency           string       `json:"currency"`
	PaymentMethodTypes []string     `json:"payment_method_types"`
	LastPaymentError   *IntentError `json:"last_payment_error,omitempty"`
	Created            int64        `json:"created"`
}

func (*PaymentIntent) isIntent() {}

func (pi *PaymentIntent) IntentID() string { return pi.ID }

func (pi *PaymentIntent) Kind() IntentKind { return IntentKindPayment }

func (pi *PaymentIntent) IntentStatus() IntentStatus { return pi.Status }

func (pi *PaymentIntent) MethodTypes() []string { return pi.PaymentMethodTypes }

func (pi *PaymentIntent) Confirmed() bool {
	return pi.Status == IntentStatusSucceeded || pi.Status == IntentStatusRequiresCapture
}

func (pi *PaymentIntent) LastError() *IntentError { return pi.LastPaymentError }

type SetupIntent struct {
	ID                 string       `json:"id"`
	ClientSecret       string       `json:"client_secret"`
	Status             IntentStatus `json:"status"`
	Usage              string       `json:"usage"`
	PaymentMethodTypes []string     `json:"payment_method_types"`
	LastSetupError     *IntentError `json:"last_setup_error,omitempty"`
	Created            int64        `json:"created"`
}

func (*SetupIntent) isIntent() {}

func (si *SetupIntent) IntentID() string { return si.ID }

func (si *SetupIntent) Kind() IntentKind { return IntentKindSetup }

func (si *SetupIntent) IntentStatus() IntentStatus { return si.Status }

func (si *SetupIntent) MethodTypes() []string { return si.PaymentMethodTypes }

func (si *SetupIntent) Confirmed() bool {
	return si.Status == IntentStatusSucceeded
}

func (si *SetupIntent) LastError() *IntentError { return si.LastSetupError }
