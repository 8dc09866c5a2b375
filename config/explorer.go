package config

import "github.com/vadiminshakov/aegis/internal/domain"

const (
	mainnetExplorer = "https://cedrascan.com"
	testnetExplorer = "https://testnet.cedrascan.com"
)

// ExplorerKind selects an explorer page.
type ExplorerKind string

const (
	ExplorerTx      ExplorerKind = "tx"
	ExplorerAddress ExplorerKind = "address"
	ExplorerBlock   ExplorerKind = "block"
)

// ExplorerURL links value on the block explorer of network. Unknown kinds return the explorer root.
func ExplorerURL(network string, kind ExplorerKind, value string) string {
	base := testnetExplorer
	if network == domain.NetworkMainnet {
		base = mainnetExplorer
	}

	switch kind {
	case ExplorerTx:
		return base + "/txn/" + value
	case ExplorerAddress:
		return base + "/account/" + value
	case ExplorerBlock:
		return base + "/block/" + value
	default:
		return base
	}
}

// ExplorerURL links value on the explorer of the configured network.
func (c Config) ExplorerURL(kind ExplorerKind, value string) string {
	return ExplorerURL(c.Network, kind, value)
}
