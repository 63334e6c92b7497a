// Package money fixes the decimal conventions used for every stored or
// compared monetary value: exact base-10 fixed point, 2 decimal places for
// currency amounts, 4 for rates and per-unit costs. Floating point only ever
// appears at the serialization edge, never in computation.
package money

import "github.com/shopspring/decimal"

const (
	// AmountPlaces is the precision of stored currency amounts.
	AmountPlaces = 2
	// RatePlaces is the precision of rates and per-unit costs.
	RatePlaces = 4
)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Amount rounds to currency precision, half up.
func Amount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// Rate rounds to rate precision, half up.
func Rate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// MulInt multiplies an amount by a plain integer quantity. Exact; no
// rounding is needed because the scale does not grow.
func MulInt(d decimal.Decimal, n int) decimal.Decimal {
	return d.Mul(decimal.NewFromInt(int64(n)))
}

// DivRate divides two amounts into a rate (e.g. cost per credit), rounded
// half up at rate precision.
func DivRate(num, den decimal.Decimal) decimal.Decimal {
	return num.DivRound(den, RatePlaces)
}
