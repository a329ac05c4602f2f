package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zero and three decimal currencies; everything else has two
var currencyPrecision = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

// GetCurrencyPrecision returns the number of minor unit digits of currency.
func GetCurrencyPrecision(currency string) int32 {
	if p, ok := currencyPrecision[strings.ToUpper(currency)]; ok {
		return p
	}
	return 2
}

// ToMinorUnits converts amount to the smallest currency unit, rounding half
// away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(GetCurrencyPrecision(currency)).Round(0).IntPart()
}

// FromMinorUnits converts a smallest-unit amount back to a decimal.
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -GetCurrencyPrecision(currency))
}
