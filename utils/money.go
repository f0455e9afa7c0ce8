package utils

import (
	"github.com/shopspring/decimal"
)

// MinorDigits is the number of minor-unit digits of the hotel currency.
var MinorDigits int32 = 2

// FormatMinor renders an amount held in minor units as a fixed-point decimal string.
// Money is only ever converted at the JSON boundary.
func FormatMinor(minor int64) string {
	return decimal.New(minor, -MinorDigits).StringFixed(MinorDigits)
}

// ParseMajor converts a decimal string such as "1250.50" into minor units. It rejects
// values with more precision than the currency has.
func ParseMajor(s string) (int64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	scaled := d.Shift(MinorDigits)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, false
	}
	return scaled.IntPart(), true
}
