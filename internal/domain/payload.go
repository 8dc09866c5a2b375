package domain

import (
	"fmt"
	"strings"
)

// TransactionPayload is an entry or view function call descriptor as the wallet and node expect it.
type TransactionPayload struct {
	Function          string   `json:"function"`
	TypeArguments     []string `json:"type_arguments"`
	FunctionArguments []string `json:"arguments"`
}

// FunctionID builds "<address>::<module>::<function>".
func FunctionID(address, module, function string) string {
	return fmt.Sprintf("%s::%s::%s", address, module, function)
}

// Module returns the module segment of the function id.
func (p TransactionPayload) Module() string {
	parts := strings.Split(p.Function, "::")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// Name returns the function segment of the function id.
func (p TransactionPayload) Name() string {
	parts := strings.Split(p.Function, "::")
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}

// Clone returns a copy that shares no slices with p.
func (p TransactionPayload) Clone() TransactionPayload {
	return TransactionPayload{
		Function:          p.Function,
		TypeArguments:     cloneStrings(p.TypeArguments),
		FunctionArguments: cloneStrings(p.FunctionArguments),
	}
}

// cloneStrings never returns nil so empty argument lists encode as [].
func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
