package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AddressHexLength is the canonical width of a Cedra account address without the 0x prefix.
const AddressHexLength = 64

// ErrInvalidAddress is returned for empty or non-hex addresses.
var ErrInvalidAddress = errors.New("invalid address")

// PadAddress left-pads a hex address with zeros to 0x + 64 hex digits.
// Input longer than 64 digits is returned unchanged apart from the prefix.
func PadAddress(address string) (string, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(address), "0x"), "0X")
	if hex == "" {
		return "", errors.Wrap(ErrInvalidAddress, "empty address")
	}

	even := hex
	if len(even)%2 == 1 {
		even = "0" + even
	}
	if _, err := hexutil.Decode("0x" + even); err != nil {
		return "", errors.Wrapf(ErrInvalidAddress, "%q is not hex", address)
	}

	if len(hex) < AddressHexLength {
		hex = strings.Repeat("0", AddressHexLength-len(hex)) + hex
	}

	return "0x" + hex, nil
}

// MustPadAddress is PadAddress for compile-time constants.
func MustPadAddress(address string) string {
	padded, err := PadAddress(address)
	if err != nil {
		panic(err)
	}

	return padded
}

// PadNumber renders a non-negative integer as a 32-byte big-endian hex word.
func PadNumber(n decimal.Decimal) (string, error) {
	if n.IsNegative() || !n.IsInteger() {
		return "", errors.Wrapf(ErrInvalidAmount, "pad number %s", n.String())
	}

	v := n.BigInt()
	if v.BitLen() > 256 {
		return "", errors.Wrapf(ErrInvalidAmount, "%s overflows 32 bytes", n.String())
	}

	return common.BigToHash(v).Hex(), nil
}

// PadNumberString is PadNumber for a base-10 string.
func PadNumberString(n string) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(n), 10)
	if !ok {
		return "", errors.Wrapf(ErrInvalidAmount, "pad number %q", n)
	}

	return PadNumber(decimal.NewFromBigInt(v, 0))
}
