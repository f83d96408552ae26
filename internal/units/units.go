// Package units converts between decimal currency strings and integer base units.
package units

import (
	"math/big"
	"strings"

	svcerrors "github.com/suiven-network/suiven/internal/errors"
)

// Decimals is the number of fractional digits of the native currency.
const Decimals = 9

var basePerUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// BasePerUnit returns 10^Decimals as a fresh value.
func BasePerUnit() *big.Int { return new(big.Int).Set(basePerUnit) }

// ToBaseUnits parses a non-negative decimal string into base units.
// The fractional part is padded or truncated to exactly Decimals digits.
// Empty or all-whitespace input yields zero.
func ToBaseUnits(input string) (*big.Int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return new(big.Int), nil
	}

	wholePart, fractionalPart, hasDot := strings.Cut(trimmed, ".")
	if hasDot && strings.Contains(fractionalPart, ".") {
		return nil, svcerrors.InvalidInput("amount", "more than one decimal point")
	}
	if !digitsOnly(wholePart) || !digitsOnly(fractionalPart) {
		return nil, svcerrors.InvalidInput("amount", "must be a non-negative decimal number")
	}
	if wholePart == "" && fractionalPart == "" {
		return nil, svcerrors.InvalidInput("amount", "no digits")
	}

	whole := new(big.Int)
	if wholePart != "" {
		whole.SetString(wholePart, 10)
	}

	fraction := fractionalPart
	if len(fraction) > Decimals {
		fraction = fraction[:Decimals]
	} else {
		fraction += strings.Repeat("0", Decimals-len(fraction))
	}
	decimal, _ := new(big.Int).SetString(fraction, 10)

	whole.Mul(whole, basePerUnit)
	return whole.Add(whole, decimal), nil
}

// MustToBaseUnits is ToBaseUnits for literals known to be valid.
func MustToBaseUnits(input string) *big.Int {
	v, err := ToBaseUnits(input)
	if err != nil {
		panic(err)
	}
	return v
}

// FromBaseUnits renders base units as a decimal string without trailing zero fraction digits.
func FromBaseUnits(value *big.Int) string {
	if value == nil {
		return "0"
	}
	sign := ""
	abs := new(big.Int).Set(value)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	whole, fraction := new(big.Int).QuoRem(abs, basePerUnit, new(big.Int))
	if fraction.Sign() == 0 {
		return sign + whole.String()
	}
	padded := fraction.String()
	padded = strings.Repeat("0", Decimals-len(padded)) + padded
	return sign + whole.String() + "." + strings.TrimRight(padded, "0")
}

// ParseBaseUnits parses an integer string; empty input is zero.
func ParseBaseUnits(raw string) (*big.Int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(trimmed, 10)
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
