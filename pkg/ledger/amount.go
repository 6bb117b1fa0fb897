package ledger

import (
	"github.com/shopspring/decimal"
)

// minorUnits is how many decimal places an amount has (cents)
const minorUnits = 2

// ParseAmount converts a decimal string like "12.34" to minor units.
// Values with more decimal places than a minor unit can hold are rejected
// rather than rounded.
func ParseAmount(value string) (int64, error) {
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return 0, NewError(CodeInvalidAmount, "Not a valid amount: %v", value)
	}
	scaled := dec.Shift(minorUnits)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, NewError(CodeInvalidAmount, "Amount has more than %v decimal places: %v", minorUnits, value)
	}
	return scaled.IntPart(), nil
}

// FormatAmount renders minor units back to a decimal string
func FormatAmount(amount int64) string {
	return decimal.New(amount, -minorUnits).StringFixed(minorUnits)
}
