package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatMinor renders an amount given in a currency's minor units as a
// localized display string with the currency symbol, "$12.34" style.
// Unrecognized currency codes fall back to "<units> <CODE>".
func FormatMinor(amount int64, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))

	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%d %s", amount, code)
	}

	scale, _ := currency.Cash.Rounding(unit)
	value := decimal.New(amount, -int32(scale))

	printer := message.NewPrinter(language.English)
	return printer.Sprintf("%v", currency.Symbol(unit.Amount(value.InexactFloat64())))
}

// FormatPayTotal renders the call-to-action total for confirmation surfaces.
func FormatPayTotal(amount int64, currencyCode string) string {
	return "Pay " + FormatMinor(amount, currencyCode)
}
