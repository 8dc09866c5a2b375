package domain

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CedraDecimals is the exponent of the native coin: 1 CEDRA = 100000000 sub-units.
const CedraDecimals int32 = 8

const (
	displayMinFraction = 2
	displayMaxFraction = 8

	// maxAmountExponent bounds the decimal exponent of parsed input, e.g. "1e20000000".
	maxAmountExponent = 64
)

// ErrInvalidAmount is returned for empty, non-numeric, negative or non-finite amounts
// and for amounts that do not fit a u64 in smallest units.
var ErrInvalidAmount = errors.New("invalid amount")

// MaxUnits is the largest smallest-unit amount a pool entry function accepts (u64).
var MaxUnits = decimal.RequireFromString("18446744073709551615")

// ParseAmount parses a human decimal string such as "1.5" into a non-negative decimal.
func ParseAmount(amount string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "empty amount")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "parse %q", amount)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "negative amount %q", amount)
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "exponent of %q out of range", amount)
	}

	return d, nil
}

// ToSmallestUnit converts a human amount to integer smallest units.
// Digits beyond decimals are truncated toward zero, never rounded.
func ToSmallestUnit(amount string, decimals int32) (decimal.Decimal, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}

	return toUnits(d, decimals)
}

// ToSmallestUnitFromFloat is ToSmallestUnit for numeric input.
func ToSmallestUnitFromFloat(amount float64, decimals int32) (decimal.Decimal, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "non-finite amount %v", amount)
	}
	if amount < 0 {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "negative amount %v", amount)
	}

	return toUnits(decimal.NewFromFloat(amount), decimals)
}

// FromSmallestUnit formats integer smallest units with exactly decimals fractional digits.
func FromSmallestUnit(units decimal.Decimal, decimals int32) string {
	return units.Shift(-decimals).StringFixed(decimals)
}

// FromSmallestUnitString is FromSmallestUnit for a string-encoded integer.
func FromSmallestUnitString(units string, decimals int32) (string, error) {
	d, err := ParseUnits(units)
	if err != nil {
		return "", err
	}

	return FromSmallestUnit(d, decimals), nil
}

// ParseUnits parses a string-encoded non-negative integer amount of smallest units.
func ParseUnits(units string) (decimal.Decimal, error) {
	d, err := ParseAmount(units)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsInteger() {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "fractional smallest units %q", units)
	}

	return d, nil
}

// FormatDisplay renders smallest units for people: thousands separators and
// between 2 and 8 fraction digits, e.g. 123456789000 at 8 decimals -> "1,234.56789".
func FormatDisplay(units decimal.Decimal, decimals int32) string {
	fraction := decimals
	if fraction > displayMaxFraction {
		fraction = displayMaxFraction
	}

	value := units.Shift(-decimals).Truncate(fraction)
	fixed := value.StringFixed(fraction)

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	fracPart = strings.TrimRight(fracPart, "0")
	for len(fracPart) < displayMinFraction {
		fracPart += "0"
	}

	return groupThousands(intPart) + "." + fracPart
}

func groupThousands(intPart string) string {
	whole, err := decimal.NewFromString(intPart)
	if err != nil || !whole.BigInt().IsInt64() {
		return intPart
	}

	return message.NewPrinter(language.English).Sprintf("%d", whole.IntPart())
}

// toUnits expects d to have passed the exponent check of ParseAmount.
func toUnits(d decimal.Decimal, decimals int32) (decimal.Decimal, error) {
	if decimals < 0 || decimals > maxAmountExponent {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "decimals %d out of range", decimals)
	}

	units := d.Shift(decimals).Truncate(0)
	if units.GreaterThan(MaxUnits) {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "%s smallest units overflow u64", units.String())
	}

	return units, nil
}
