package ledger

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal money value. It marshals to a bare JSON number and accepts
// numbers, numeric strings and null when decoding.
type Amount struct {
	value decimal.Decimal
}

// Zero is the zero Amount.
var Zero = Amount{}

func newDecimal[T float64 | int | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}

// A builds an Amount from a number.
func A[T float64 | int | int64 | decimal.Decimal](value T) Amount {
	return Amount{value: newDecimal(value)}
}

// ParseAmount parses "12.5", "12,50" or "1.234,56". A comma is taken as the decimal
// separator whenever one is present.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return Amount{value: d}, nil
}

func (a Amount) Add(b Amount) Amount             { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount             { return Amount{value: a.value.Sub(b.value)} }
func (a Amount) Neg() Amount                     { return Amount{value: a.value.Neg()} }
func (a Amount) Equal(b Amount) bool             { return a.value.Equal(b.value) }
func (a Amount) LessThan(b Amount) bool          { return a.value.LessThan(b.value) }
func (a Amount) GreaterThan(b Amount) bool       { return a.value.GreaterThan(b.value) }
func (a Amount) IsPositive() bool                { return a.value.IsPositive() }
func (a Amount) IsNegative() bool                { return a.value.IsNegative() }
func (a Amount) IsZero() bool                    { return a.value.IsZero() }
func (a Amount) Decimal() decimal.Decimal        { return a.value }
func (a Amount) String() string                  { return a.value.String() }
func (a Amount) StringFixed(places int32) string { return a.value.StringFixed(places) }

// Float64 is for metrics gauges only.
func (a Amount) Float64() float64 {
	f, _ := a.value.Float64()
	return f
}

// Cents returns the amount in hundredths, rounded half away from zero.
func (a Amount) Cents() int64 {
	return a.value.Shift(2).Round(0).IntPart()
}

// Percent returns round(a / of * 100). of must not be zero.
func (a Amount) Percent(of Amount) int64 {
	return a.value.Div(of.value).Shift(2).Round(0).IntPart()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*a = Zero
		return nil
	}
	return a.value.UnmarshalJSON(data)
}

// Sum adds up amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
