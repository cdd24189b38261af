package helpers

import (
	"strings"

	"github.com/shopspring/decimal"
)

func NormalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DecimalsForCurrency is the number of fraction digits kept for internal balances.
func DecimalsForCurrency(currency string) int32 {
	switch NormalizeCurrency(currency) {
	case "IDR", "VND":
		return 0
	default:
		return 2
	}
}

// DisplayRate is how many internal units one provider-facing unit is worth.
// IDR and VND are quoted to providers in thousands.
func DisplayRate(currency string) decimal.Decimal {
	switch NormalizeCurrency(currency) {
	case "IDR", "VND":
		return decimal.NewFromInt(1000)
	default:
		return decimal.NewFromInt(1)
	}
}

func RoundInternal(currency string, v decimal.Decimal) decimal.Decimal {
	return v.Round(DecimalsForCurrency(currency))
}

func ToDisplay(currency string, internal decimal.Decimal) decimal.Decimal {
	return internal.Div(DisplayRate(currency))
}

// ToInternal scales a provider amount without rounding; amounts finer than
// the currency keeps are left for the caller to refuse.
func ToInternal(currency string, display decimal.Decimal) decimal.Decimal {
	return display.Mul(DisplayRate(currency))
}
