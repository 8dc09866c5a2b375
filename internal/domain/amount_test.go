package domain

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSmallestUnit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals int32
		expected string
	}{
		{name: "one coin", input: "1", decimals: 8, expected: "100000000"},
		{name: "fraction", input: "1.5", decimals: 8, expected: "150000000"},
		{name: "smallest unit", input: "0.00000001", decimals: 8, expected: "1"},
		{name: "truncates extra digits", input: "0.123456789", decimals: 8, expected: "12345678"},
		{name: "truncates, never rounds up", input: "1.999999999", decimals: 8, expected: "199999999"},
		{name: "zero", input: "0", decimals: 8, expected: "0"},
		{name: "surrounding spaces", input: " 2.5 ", decimals: 8, expected: "250000000"},
		{name: "six decimals", input: "12.5", decimals: 6, expected: "12500000"},
		{name: "beyond float precision", input: "123456789012.12345678", decimals: 8, expected: "12345678901212345678"},
		{name: "0.1 + binary float trap", input: "0.29", decimals: 8, expected: "29000000"},
		{name: "exponent notation", input: "1e3", decimals: 8, expected: "100000000000"},
		{name: "negative exponent", input: "1E-2", decimals: 8, expected: "1000000"},
		{name: "leading dot", input: ".5", decimals: 8, expected: "50000000"},
		{name: "u64 max", input: "184467440737.09551615", decimals: 8, expected: "18446744073709551615"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSmallestUnit(tt.input, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestToSmallestUnit_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "blank", input: "   "},
		{name: "letters", input: "abc"},
		{name: "two dots", input: "1.2.3"},
		{name: "negative", input: "-1"},
		{name: "nan", input: "NaN"},
		{name: "hex", input: "0x10"},
		{name: "huge positive exponent", input: "1e20000000"},
		{name: "huge negative exponent", input: "1e-20000000"},
		{name: "exponent just past the limit", input: "1e65"},
		{name: "one unit over u64", input: "184467440737.09551616"},
		{name: "exponent overflowing u64", input: "1e12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToSmallestUnit(tt.input, CedraDecimals)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestToSmallestUnit_HugeExponentFailsFast(t *testing.T) {
	start := time.Now()
	_, err := ToSmallestUnit("1e20000000", CedraDecimals)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Less(t, time.Since(start), time.Second)
}

func TestToSmallestUnitFromFloat(t *testing.T) {
	got, err := ToSmallestUnitFromFloat(2.5, CedraDecimals)
	require.NoError(t, err)
	assert.Equal(t, "250000000", got.String())

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5, 1e20} {
		_, err := ToSmallestUnitFromFloat(v, CedraDecimals)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestFromSmallestUnit(t *testing.T) {
	assert.Equal(t, "1.00000000", FromSmallestUnit(decimal.NewFromInt(100000000), 8))
	assert.Equal(t, "0.00000001", FromSmallestUnit(decimal.NewFromInt(1), 8))
	assert.Equal(t, "0.00000000", FromSmallestUnit(decimal.Zero, 8))
	assert.Equal(t, "12.500000", FromSmallestUnit(decimal.NewFromInt(12500000), 6))

	s, err := FromSmallestUnitString("150000000", 8)
	require.NoError(t, err)
	assert.Equal(t, "1.50000000", s)

	_, err = FromSmallestUnitString("1.5", 8)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = FromSmallestUnitString("x", 8)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAmountRoundTrip(t *testing.T) {
	t.Run("units -> human -> units", func(t *testing.T) {
		for _, n := range []int64{0, 1, 7, 99999999, 100000000, 150000000, 123456789012345678, math.MaxInt64} {
			units := decimal.NewFromInt(n)
			back, err := ToSmallestUnit(FromSmallestUnit(units, 8), 8)
			require.NoError(t, err)
			assert.True(t, units.Equal(back), "expected %s, got %s", units, back)
		}
	})

	t.Run("human -> units -> human", func(t *testing.T) {
		tests := map[string]string{
			"1":          "1.00000000",
			"2.5":        "2.50000000",
			"0.00000001": "0.00000001",
			"42.1234":    "42.12340000",
			"7.12345678": "7.12345678",
		}
		for input, normalized := range tests {
			units, err := ToSmallestUnit(input, 8)
			require.NoError(t, err)
			assert.Equal(t, normalized, FromSmallestUnit(units, 8), input)
		}
	})
}

func TestFormatDisplay(t *testing.T) {
	tests := []struct {
		name     string
		units    int64
		decimals int32
		expected string
	}{
		{name: "whole coin keeps two digits", units: 100000000, decimals: 8, expected: "1.00"},
		{name: "grouping", units: 123456789000, decimals: 8, expected: "1,234.56789"},
		{name: "full precision", units: 123456789, decimals: 8, expected: "1.23456789"},
		{name: "zero", units: 0, decimals: 8, expected: "0.00"},
		{name: "eighteen decimals cut to eight", units: 1500000000000000001, decimals: 18, expected: "1.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDisplay(decimal.NewFromInt(tt.units), tt.decimals))
		})
	}
}
