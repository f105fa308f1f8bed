package models

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// UnitDecimals is the number of base-unit digits in one whole unit.
	UnitDecimals = 9
	// BaseUnitsPerUnit is 10^UnitDecimals.
	BaseUnitsPerUnit uint64 = 1_000_000_000
)

var ErrInvalidAmount = errors.New("invalid amount")

// DecimalFromUint64 converts a base-unit count without going through int64.
func DecimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// Uint64FromDecimal converts an integral, non-negative decimal that fits in
// 64 bits back to a base-unit count.
func Uint64FromDecimal(d decimal.Decimal) (uint64, error) {
	if d.Sign() < 0 {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %s is not integral", ErrInvalidAmount, d)
	}
	b := d.BigInt()
	if !b.IsUint64() {
		return 0, fmt.Errorf("%w: %s exceeds 64 bits", ErrInvalidAmount, d)
	}
	return b.Uint64(), nil
}

// ToUnits expresses base units in whole units, e.g. 50000000 -> 0.05.
func ToUnits(base uint64) decimal.Decimal {
	return DecimalFromUint64(base).Shift(-UnitDecimals)
}

// ParseUnits parses a whole-unit amount such as "0.05" into base units.
func ParseUnits(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	base, err := Uint64FromDecimal(d.Shift(UnitDecimals))
	if err != nil {
		return 0, fmt.Errorf("%s: more than %d decimals or out of range: %w", s, UnitDecimals, err)
	}
	return base, nil
}
