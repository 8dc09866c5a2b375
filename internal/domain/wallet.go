package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"

	ChainIDMainnet = "1"
	ChainIDTestnet = "4"
)

// ErrWalletNotConnected is returned by operations that need a connected wallet.
var ErrWalletNotConnected = errors.New("wallet not connected")

// ChainIDFor maps a network name to the chain id reported by the wallet.
// Anything but mainnet is treated as testnet.
func ChainIDFor(network string) string {
	if network == NetworkMainnet {
		return ChainIDMainnet
	}
	return ChainIDTestnet
}

// WalletState is the connected wallet identity. Empty strings stand for "no value".
type WalletState struct {
	Address     string
	IsConnected bool
	ChainID     string
}

// DisconnectedWallet is the zero wallet.
func DisconnectedWallet() WalletState {
	return WalletState{}
}

// WalletUpdate is a partial wallet; nil fields are left untouched.
type WalletUpdate struct {
	Address     *string
	IsConnected *bool
	ChainID     *string
}

// Apply shallow-merges the update into w.
func (u WalletUpdate) Apply(w WalletState) WalletState {
	if u.Address != nil {
		w.Address = *u.Address
	}
	if u.IsConnected != nil {
		w.IsConnected = *u.IsConnected
	}
	if u.ChainID != nil {
		w.ChainID = *u.ChainID
	}
	return w
}

// ConnectedWallet builds the update applied after a successful connect.
func ConnectedWallet(address, chainID string) WalletUpdate {
	connected := true
	return WalletUpdate{Address: &address, IsConnected: &connected, ChainID: &chainID}
}

type walletJSON struct {
	Address     *string `json:"address"`
	IsConnected bool    `json:"isConnected"`
	ChainID     *string `json:"chainId"`
}

// MarshalJSON writes empty address and chain id as null.
func (w WalletState) MarshalJSON() ([]byte, error) {
	out := walletJSON{IsConnected: w.IsConnected}
	if w.Address != "" {
		out.Address = &w.Address
	}
	if w.ChainID != "" {
		out.ChainID = &w.ChainID
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null address and chain id.
func (w *WalletState) UnmarshalJSON(data []byte) error {
	var in walletJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*w = WalletState{IsConnected: in.IsConnected}
	if in.Address != nil {
		w.Address = *in.Address
	}
	if in.ChainID != nil {
		w.ChainID = *in.ChainID
	}
	return nil
}
