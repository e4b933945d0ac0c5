package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol is the display sign for Naira amounts.
const Symbol = "₦"

// Places is the number of minor-unit digits shown and accepted on input.
const Places = 2

var (
	ErrInvalidAmount = errors.New("amount must be a decimal number")
	ErrTooPrecise    = errors.New("amount must have at most 2 decimal places")
)

// Parse reads a user supplied amount. It rejects anything that is not a plain
// decimal or that carries more than two fractional digits.
func Parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if !d.Equal(d.Round(Places)) {
		return decimal.Zero, ErrTooPrecise
	}
	return d, nil
}

// MustParse is for constants in tests and seed data.
func MustParse(raw string) decimal.Decimal {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Round rounds half away from zero to two places. Only use for display and
// persisted totals; comparisons run at full precision.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(Places) }

// Min returns the smallest of the given amounts.
func Min(first decimal.Decimal, rest ...decimal.Decimal) decimal.Decimal {
	out := first
	for _, d := range rest {
		if d.LessThan(out) {
			out = d
		}
	}
	return out
}

// Format renders d as "₦1,234,567.89".
func Format(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	fixed := d.Abs().StringFixed(Places)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.Grow(len(fixed) + len(fixed)/3 + len(Symbol) + 1)
	b.WriteString(sign)
	b.WriteString(Symbol)
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte(',')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
