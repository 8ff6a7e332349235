// Package core holds the ledger's domain types: money, calendar dates,
// entities, their evaluated views and the typed errors shared by every layer.
//
// This file contains the fixed-point Money type. Amounts never pass through
// float64 except when a percentage is reported.
package core

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Bounds on parsed amounts: at most maxScale decimal places and
// maxIntDigits digits before the point.
const (
	maxScale     = 8
	maxIntDigits = 15
)

// Money is a fixed-point decimal amount. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

// ErrInvalidAmount is returned by ParseMoney for malformed input.
var ErrInvalidAmount = errors.New("invalid amount")

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money { return Money{d: d} }

// MoneyFromInt returns a whole amount.
func MoneyFromInt(v int64) Money { return Money{d: decimal.NewFromInt(v)} }

// ParseMoney parses a decimal string. Both "12.34" and "12,34" are accepted.
// Values with more than maxScale decimals or maxIntDigits integer digits are
// rejected before anything expands the exponent.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	exp := d.Exponent()
	if exp < -maxScale || exp > maxIntDigits || int64(d.NumDigits())+int64(exp) > maxIntDigits {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// MustMoney is ParseMoney for literals; it panics on malformed input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic("core: bad money literal " + s)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

func (m Money) Cmp(o Money) int     { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool  { return m.d.Equal(o.d) }
func (m Money) IsZero() bool        { return m.d.IsZero() }
func (m Money) IsPositive() bool    { return m.d.IsPositive() }
func (m Money) IsNegative() bool    { return m.d.IsNegative() }
func (m Money) Max(o Money) Money   { return Money{d: decimal.Max(m.d, o.d)} }
func (m Money) Round(p int32) Money { return Money{d: m.d.Round(p)} }

// DivDays splits the amount over n days, rounded half away from zero to
// cents. n below 1 is treated as 1.
func (m Money) DivDays(n int) Money {
	if n < 1 {
		n = 1
	}
	return Money{d: m.d.Div(decimal.NewFromInt(int64(n))).Round(2)}
}

// PercentOf returns m as a percentage of total, rounded to 2 places.
// A non-positive total yields 0.
func (m Money) PercentOf(total Money) float64 {
	if !total.d.IsPositive() {
		return 0
	}
	f, _ := m.d.Mul(hundred).Div(total.d).Round(2).Float64()
	return f
}

// String returns the canonical decimal form used for persistence.
func (m Money) String() string { return m.d.String() }

// StringFixed formats with exactly two decimals for display.
func (m Money) StringFixed() string { return m.d.StringFixed(2) }

// MarshalJSON encodes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Scan reads a NUMERIC or TEXT column.
func (m *Money) Scan(src any) error {
	if src == nil {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = Money{d: d}
	return nil
}

// Value stores the canonical decimal string.
func (m Money) Value() (driver.Value, error) { return m.d.String(), nil }

// Sum adds up amounts.
func Sum(ms ...Money) Money {
	var total Money
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}
