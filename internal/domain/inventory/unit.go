package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is the measurement unit of a stock or recipe quantity
type Unit string

const (
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
	UnitPiece      Unit = "pcs"
)

type dimension int

const (
	dimensionUnknown dimension = iota
	dimensionMass
	dimensionVolume
	dimensionCount
)

// QuantityScale is the number of decimal places stored for every quantity
const QuantityScale int32 = 4

var thousand = decimal.NewFromInt(1000)

// factor returns the dimension and the multiplier to the dimension's base unit
func (u Unit) factor() (dimension, decimal.Decimal) {
	switch u {
	case UnitGram:
		return dimensionMass, decimal.NewFromInt(1)
	case UnitKilogram:
		return dimensionMass, thousand
	case UnitMilliliter:
		return dimensionVolume, decimal.NewFromInt(1)
	case UnitLiter:
		return dimensionVolume, thousand
	case UnitPiece:
		return dimensionCount, decimal.NewFromInt(1)
	}
	return dimensionUnknown, decimal.Zero
}

// String returns the string representation of Unit
func (u Unit) String() string {
	return string(u)
}

// IsValid returns true if the unit is known
func (u Unit) IsValid() bool {
	d, _ := u.factor()
	return d != dimensionUnknown
}

// CompatibleWith returns true if quantities in both units can be converted
func (u Unit) CompatibleWith(other Unit) bool {
	d1, _ := u.factor()
	d2, _ := other.factor()
	return d1 != dimensionUnknown && d1 == d2
}

// ParseUnit parses a unit symbol, ignoring case and surrounding whitespace
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("%w: unknown unit %q", ErrUnitMismatch, s)
	}
	return u, nil
}

// Convert converts a quantity from one unit to another of the same dimension
func Convert(qty decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	if from == to {
		return qty, nil
	}
	if !from.CompatibleWith(to) {
		return decimal.Zero, fmt.Errorf("%w: cannot convert %s to %s", ErrUnitMismatch, from, to)
	}
	_, ff := from.factor()
	_, tf := to.factor()
	return qty.Mul(ff).Div(tf), nil
}
