// Package core provides the ledger domain model and money handling.
//
// Amounts are kept as int64 cents; formatted-currency strings are parsed once
// at the boundary and never used for arithmetic.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents. The zero value is $0.00.
type Money struct {
	Cents int64
}

// ParsePriceToCents converts a formatted price string to cents.
//
// It accepts an optional "$" prefix and an optional leading sign in either
// order ("-$3.25" and "$-3.25" both parse), then a plain decimal number with
// half-up rounding on the third decimal place. Negative values are allowed
// because receipt lines can be discounts or refunds.
//
// Examples:
//
//	ParsePriceToCents("$42.50") -> 4250, nil
//	ParsePriceToCents("5.00")   -> 500, nil
//	ParsePriceToCents("$12.345") -> 1235, nil (rounds up)
//	ParsePriceToCents("-$3.25") -> -325, nil
func ParsePriceToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	// Sign and currency prefix may appear in either order.
	for len(s) > 0 && (s[0] == '-' || s[0] == '+' || s[0] == '$') {
		switch s[0] {
		case '-':
			if neg {
				return 0, fmt.Errorf("invalid price %q", s)
			}
			neg = true
		case '+':
			// explicit plus is tolerated
		}
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("invalid price: empty")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" && len(parts) == 2 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("invalid price %q", s)
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("invalid price %q", s)
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, fmt.Errorf("price %q out of range", s)
	}

	// First two fractional digits are cents; half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if neg {
		cents = -cents
	}
	return cents, nil
}

// Dollars returns the dollar value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point drift.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// FormatDollars renders the amount as a "$" prefixed 2-decimal string,
// the same shape item prices arrive in.
func (m Money) FormatDollars() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON renders Money as a plain decimal number of dollars, matching
// the shape entry totals arrive in from the extraction pipeline.
func (m Money) MarshalJSON() ([]byte, error) {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		s = "-" + s
	}
	return []byte(s), nil
}

// UnmarshalJSON accepts either a JSON number or a formatted string
// ("42.5", "\"$42.50\"").
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	cents, err := ParsePriceToCents(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}
