package models

import "strings"

// WalletEnvironment selects which wallet backend a session talks to.
type WalletEnvironment string

const (
	WalletEnvironmentTest       WalletEnvironment = "test"
	WalletEnvironmentProduction WalletEnvironment = "production"
)

func (e WalletEnvironment) Valid() bool {
	return e == WalletEnvironmentTest || e == WalletEnvironmentProduction
}

// CustomerConfig identifies the gateway customer whose saved instruments the
// session may list. The ephemeral key scopes that access.
type CustomerConfig struct {
	ID           string `json:"id"`
	EphemeralKey string `json:"ephemeral_key"`
}

// WalletConfig enables the wallet for a session.
type WalletConfig struct {
	Environment WalletEnvironment `json:"environment"`
	CountryCode string            `json:"country_code"`
	Label       string            `json:"label,omitempty"`
}

// FlowConfiguration is the host-supplied configuration for one configure call.
// A nil Customer means a guest session with no saved instruments; a nil Wallet
// disables the wallet entirely.
type FlowConfiguration struct {
	MerchantDisplayName string          `json:"merchant_display_name"`
	Customer            *CustomerConfig `json:"customer,omitempty"`
	Wallet              *WalletConfig   `json:"wallet,omitempty"`
	PrimaryColor        string          `json:"primary_color,omitempty"`
}

// CustomerKey returns the stable key the preference store files hints under.
func (c FlowConfiguration) CustomerKey() string {
	if c.Customer != nil && strings.TrimSpace(c.Customer.ID) != "" {
		return c.Customer.ID
	}
	return "guest"
}
