package models

// PaymentOption is the display projection of a selection: an icon reference
// plus a short label. It carries no confirmable material.
type PaymentOption struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

// PaymentSelection is the closed set of things a customer can choose to pay
// with: a saved method, a freshly entered card, or the device wallet.
type PaymentSelection interface {
	isPaymentSelection()

	// Option returns the display projection for the selection.
	Option() PaymentOption
}

// SavedMethodSelection points at an instrument already stored for the customer.
type SavedMethodSelection struct {
	Method PaymentMethod
}

func (SavedMethodSelection) isPaymentSelection() {}

func (s SavedMethodSelection) Option() PaymentOption {
	return PaymentOption{Icon: s.Method.IconRef(), Label: s.Method.Label()}
}

// NewMethodSelection carries details the customer just entered. SaveForFuture
// records whether they asked to keep the instrument after this flow.
type NewMethodSelection struct {
	Card          NewCardParams
	Brand         CardBrand
	SaveForFuture bool
}

func (NewMethodSelection) isPaymentSelection() {}

func (s NewMethodSelection) Option() PaymentOption {
	return PaymentOption{Icon: s.Brand.IconRef(), Label: "•••• " + s.Card.Last4()}
}

// WalletSelection stands for the device wallet. The wallet itself produces the
// instrument during confirmation.
type WalletSelection struct {
	Label string
}

func (WalletSelection) isPaymentSelection() {}

func (s WalletSelection) Option() PaymentOption {
	label := s.Label
	if label == "" {
		label = "Wallet"
	}
	return PaymentOption{Icon: "wallet", Label: label}
}

// SavedSelectionKind enumerates what a persisted selection hint can point at.
type SavedSelectionKind string

const (
	SavedSelectionNone   SavedSelectionKind = "none"
	SavedSelectionWallet SavedSelectionKind = "wallet"
	SavedSelectionMethod SavedSelectionKind = "method"
)

// SavedSelection is the durable hint for the customer's previous choice. It is
// a hint only: pointing at a method that no longer exists resolves to no
// selection at load time.
type SavedSelection struct {
	Kind     SavedSelectionKind `json:"kind"`
	MethodID string             `json:"method_id,omitempty"`
}

// HintFor derives the persistable hint for a selection. New-card selections
// yield no hint: the instrument has no stable identity until the gateway
// stores it.
func HintFor(selection PaymentSelection) SavedSelection {
	switch s := selection.(type) {
	case SavedMethodSelection:
		return SavedSelection{Kind: SavedSelectionMethod, MethodID: s.Method.ID}
	case WalletSelection:
		return SavedSelection{Kind: SavedSelectionWallet}
	default:
		return SavedSelection{Kind: SavedSelectionNone}
	}
}

// SelectionKindOf names a selection's class for reporting.
func SelectionKindOf(selection PaymentSelection) string {
	switch selection.(type) {
	case SavedMethodSelection:
		return "saved"
	case NewMethodSelection:
		return "new"
	case WalletSelection:
		return "wallet"
	default:
		return "none"
	}
}

// OptionResult is the closed set of outcomes the option picker can hand back.
type OptionResult interface {
	isOptionResult()
}

// OptionSucceeded delivers the selection the customer committed to.
type OptionSucceeded struct {
	Selection PaymentSelection
}

// OptionFailed reports that the picker aborted with an error.
type OptionFailed struct {
	Err error
}

// OptionCanceled reports that the customer dismissed the picker.
type OptionCanceled struct{}

func (OptionSucceeded) isOptionResult() {}
func (OptionFailed) isOptionResult()    {}
func (OptionCanceled) isOptionResult()  {}
