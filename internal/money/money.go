// Package money provides fixed-precision monetary and quantity arithmetic.
// Money is a count of minor currency units (two decimal places), Quantity a
// count of milli-units (three decimal places, for stock measured in kg or
// liters). All arithmetic is integer arithmetic: summing any number of line
// items cannot accumulate binary floating-point drift. The decimal form only
// appears at the JSON boundary, where values are rounded half-away-from-zero
// to the nearest representable unit.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (e.g. 1250 == 12.50).
type Money int64

// Quantity is a stock amount in milli-units (e.g. 2500 == 2.5 kg).
type Quantity int64

// FromMajor builds a Money from whole currency units.
func FromMajor(units int64) Money {
	return Money(units * 100)
}

// QuantityFromUnits builds a Quantity from whole stock units.
func QuantityFromUnits(units int64) Quantity {
	return Quantity(units * 1000)
}

// Parse reads a decimal string ("12.50", "-3", "0.005") into Money,
// rounding half-away-from-zero beyond two decimal places.
func Parse(s string) (Money, error) {
	v, err := parseFixed(s, 2)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money(v), nil
}

// ParseQuantity reads a decimal string into a Quantity with three decimal
// places, rounding half-away-from-zero.
func ParseQuantity(s string) (Quantity, error) {
	v, err := parseFixed(s, 3)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity(v), nil
}

// MulInt multiplies an amount by an integer count (line quantity).
func (m Money) MulInt(n int) Money {
	return m * Money(n)
}

// DivInt divides an amount by a count, rounding half-away-from-zero.
// Used for averages; n must be positive.
func (m Money) DivInt(n int) Money {
	if n <= 0 {
		return 0
	}
	return Money(divRound(int64(m), int64(n)))
}

// MulQuantity values a fractional stock level at a unit price, rounding the
// result half-away-from-zero to the nearest minor unit.
func (m Money) MulQuantity(q Quantity) Money {
	product := int64(m) * int64(q)
	return Money(divRound(product, 1000))
}

// String renders the amount as a plain decimal with two places, no symbol.
func (m Money) String() string {
	return formatFixed(int64(m), 2)
}

// Format renders the amount for display with a currency symbol prefix.
func (m Money) Format(symbol string) string {
	if m < 0 {
		return "-" + symbol + formatFixed(-int64(m), 2)
	}
	return symbol + m.String()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(formatFixed(int64(m), 2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Float64 reports the quantity in natural units. For display only; never
// feed the result back into arithmetic.
func (q Quantity) Float64() float64 {
	return float64(q) / 1000
}

func (q Quantity) String() string {
	return formatFixed(int64(q), 3)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(formatFixed(int64(q), 3)), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// parseFixed converts a decimal string into an integer scaled by 10^places,
// rounding half-away-from-zero on the first truncated digit. The parse is
// exact string arithmetic; no float conversion is involved.
func parseFixed(s string, places int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("no digits")
	}
	if intPart == "" {
		intPart = "0"
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad integer part: %v", err)
	}

	frac := int64(0)
	for i := 0; i < places; i++ {
		frac *= 10
		if i < len(fracPart) {
			d := fracPart[i]
			if d < '0' || d > '9' {
				return 0, fmt.Errorf("bad fractional digit %q", d)
			}
			frac += int64(d - '0')
		}
	}
	// Round half-away-from-zero on the first dropped digit.
	if len(fracPart) > places {
		d := fracPart[places]
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("bad fractional digit %q", d)
		}
		if d >= '5' {
			frac++
		}
		for _, d := range fracPart[places+1:] {
			if d < '0' || d > '9' {
				return 0, fmt.Errorf("bad fractional digit %q", d)
			}
		}
	}

	scale := pow10(places)
	value := whole*scale + frac
	if neg {
		value = -value
	}
	return value, nil
}

func formatFixed(v int64, places int) string {
	scale := pow10(places)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%0*d", sign, v/scale, places, v%scale)
}

// divRound divides with half-away-from-zero rounding.
func divRound(v int64, by int64) int64 {
	half := by / 2
	if v < 0 {
		return (v - half) / by
	}
	return (v + half) / by
}

func pow10(n int) int64 {
	out := int64(1)
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}
