// Package domain defines the core data structures of the lending client.
package domain

import (
	"fmt"
	"strconv"
)

// OperationKind is a lending pool operation.
type OperationKind int

const (
	OperationSupply OperationKind = iota
	OperationWithdraw
	OperationBorrow
	OperationRepay
)

// operation string constants to avoid magic strings
const (
	operationStringSupply   = "supply"
	operationStringWithdraw = "withdraw"
	operationStringBorrow   = "borrow"
	operationStringRepay    = "repay"
)

// OperationKinds lists every supported operation in declaration order.
var OperationKinds = []OperationKind{OperationSupply, OperationWithdraw, OperationBorrow, OperationRepay}

// String returns the on-chain function name of the operation.
func (k OperationKind) String() string {
	switch k {
	case OperationSupply:
		return operationStringSupply
	case OperationWithdraw:
		return operationStringWithdraw
	case OperationBorrow:
		return operationStringBorrow
	case OperationRepay:
		return operationStringRepay
	default:
		return "unknown"
	}
}

// IsValid checks if the OperationKind value is one of the declared kinds.
func (k OperationKind) IsValid() bool {
	return k >= OperationSupply && k <= OperationRepay
}

// ParseOperationKind maps a function name back to its kind.
func ParseOperationKind(s string) (OperationKind, error) {
	switch s {
	case operationStringSupply:
		return OperationSupply, nil
	case operationStringWithdraw:
		return OperationWithdraw, nil
	case operationStringBorrow:
		return OperationBorrow, nil
	case operationStringRepay:
		return OperationRepay, nil
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// MarshalText encodes the kind by name.
func (k OperationKind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("unknown operation %s", strconv.Itoa(int(k)))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *OperationKind) UnmarshalText(text []byte) error {
	parsed, err := ParseOperationKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
