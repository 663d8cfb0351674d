package models

import "strings"

// CardBrand identifies a card network for display purposes.
type CardBrand string

const (
	CardBrandVisa       CardBrand = "visa"
	CardBrandMastercard CardBrand = "mastercard"
	CardBrandAmex       CardBrand = "amex"
	CardBrandDiscover   CardBrand = "discover"
	CardBrandDiners     CardBrand = "diners"
	CardBrandJCB        CardBrand = "jcb"
	CardBrandUnionPay   CardBrand = "unionpay"
	CardBrandUnknown    CardBrand = "unknown"
)

var cardBrandNames = map[CardBrand]string{
	CardBrandVisa:       "Visa",
	CardBrandMastercard: "Mastercard",
	CardBrandAmex:       "American Express",
	CardBrandDiscover:   "Discover",
	CardBrandDiners:     "Diners Club",
	CardBrandJCB:        "JCB",
	CardBrandUnionPay:   "UnionPay",
}

func (b CardBrand) DisplayName() string {
	if name, ok := cardBrandNames[b]; ok {
		return name
	}
	return "Card"
}

// IconRef names the icon asset the host should render for the brand.
func (b CardBrand) IconRef() string {
	if _, ok := cardBrandNames[b]; ok {
		return "card_" + string(b)
	}
	return "card_unknown"
}

// ParseCardBrand normalizes a gateway brand string into a known CardBrand.
func ParseCardBrand(raw string) CardBrand {
	brand := CardBrand(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := cardBrandNames[brand]; ok {
		return brand
	}
	return CardBrandUnknown
}

type CardDetails struct {
	Brand    CardBrand `json:"brand"`
	Last4    string    `json:"last4"`
	ExpMonth int       `json:"exp_month"`
	ExpYear  int       `json:"exp_year"`
}

// PaymentMethod is an instrument stored at the gateway, typically a card
// attached to a customer.
type PaymentMethod struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Customer string       `json:"customer,omitempty"`
	Created  int64        `json:"created"`
	Card     *CardDetails `json:"card,omitempty"`
}

// Label returns the display text for the method, "•••• 4242" style for cards.
func (m PaymentMethod) Label() string {
	if m.Card != nil && m.Card.Last4 != "" {
		return "•••• " + m.Card.Last4
	}
	return m.Type
}

// IconRef names the icon asset for the method.
func (m PaymentMethod) IconRef() string {
	if m.Card != nil {
		return m.Card.Brand.IconRef()
	}
	return "card_unknown"
}

// NewCardParams carries the details the customer typed for a not-yet-saved
// card. The full number never appears in logs or display projections.
type NewCardParams struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// Last4 returns the trailing digits of the card number for display.
func (p NewCardParams) Last4() string {
	digits := strings.TrimSpace(p.Number)
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
