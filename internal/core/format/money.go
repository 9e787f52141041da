package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	groupSeparator   = " "
	decimalSeparator = ","
	currencySuffix   = " €"
)

// Money renders amount the French way with exactly two decimals: 1 234,50 €.
// NaN and infinities render as zero.
func Money(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	return MoneyDecimal(decimal.NewFromFloat(amount))
}

// MoneyPtr treats a missing amount as zero.
func MoneyPtr(amount *float64) string {
	if amount == nil {
		return Money(0)
	}
	return Money(*amount)
}

func MoneyDecimal(amount decimal.Decimal) string {
	return Number(amount, 2) + currencySuffix
}

// Number renders a fixed-precision number with French grouping and comma.
func Number(value decimal.Decimal, places int32) string {
	fixed := value.StringFixed(places)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	if negative && strings.Trim(intPart+fracPart, "0") == "" {
		negative = false
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(groupThousands(intPart))
	if places > 0 {
		b.WriteString(decimalSeparator)
		b.WriteString(fracPart)
	}
	return b.String()
}

// Percent renders a VAT rate without trailing zeros: 20 %, 5,5 %.
func Percent(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}
	d := decimal.NewFromFloat(rate).Round(2)
	s := strings.Replace(d.String(), ".", decimalSeparator, 1)
	return s + " %"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(groupSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
