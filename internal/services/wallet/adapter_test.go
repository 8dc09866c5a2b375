package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/aegis/internal/clients"
	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/services/appstate"
)

const testAccount = "0xfeed"

var paddedAccount = "0x" + strings.Repeat("0", 60) + "feed"

type failingSubmitter struct{}

func (failingSubmitter) Submit(context.Context, string, domain.TransactionPayload) (string, error) {
	return "", errors.New("user rejected the request")
}

func newAdapter(t *testing.T, chain submitter) (*Adapter, *appstate.Store) {
	t.Helper()
	store, err := appstate.New(nil, nil)
	require.NoError(t, err)
	a, err := NewAdapter(testAccount, domain.NetworkTestnet, chain, store, nil)
	require.NoError(t, err)
	return a, store
}

func TestAdapter_ConnectDisconnect(t *testing.T) {
	a, store := newAdapter(t, nil)
	ctx := context.Background()

	var seen []Event
	id := a.On(func(e Event) { seen = append(seen, e) })

	assert.False(t, a.IsConnected())
	assert.Empty(t, a.Address())

	ok, err := a.Connect(ctx, "Zedra")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, a.IsConnected())
	assert.Equal(t, paddedAccount, a.Address())
	assert.Equal(t, domain.WalletState{Address: paddedAccount, IsConnected: true, ChainID: domain.ChainIDTestnet}, store.Wallet())

	ok, err = a.Connect(ctx, "Zedra")
	require.NoError(t, err)
	assert.True(t, ok, "already connected")

	require.NoError(t, a.Disconnect(ctx))
	assert.False(t, a.IsConnected())
	assert.Equal(t, domain.DisconnectedWallet(), store.Wallet())

	require.Len(t, seen, 2)
	assert.Equal(t, EventConnect, seen[0].Kind)
	assert.Equal(t, "Zedra", seen[0].WalletName)
	assert.Equal(t, EventDisconnect, seen[1].Kind)

	a.Off(id)
	_, err = a.Connect(ctx, "")
	require.NoError(t, err)
	assert.Len(t, seen, 2, "handler removed")
}

func TestAdapter_MainnetChainID(t *testing.T) {
	store, err := appstate.New(nil, nil)
	require.NoError(t, err)
	a, err := NewAdapter(testAccount, domain.NetworkMainnet, nil, store, nil)
	require.NoError(t, err)

	_, err = a.Connect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainIDMainnet, store.Wallet().ChainID)
}

func TestAdapter_SignAndSubmit(t *testing.T) {
	chain := clients.NewSimulatedChain(nil, clients.WithLatency(0), clients.WithSuccessRate(1), clients.WithSeed(7))
	a, _ := newAdapter(t, chain)
	ctx := context.Background()

	payload := domain.TransactionPayload{
		Function:          "0x1::pool::supply",
		TypeArguments:     []string{"0x1::cedra_coin::CedraCoin"},
		FunctionArguments: []string{"0x1", "100"},
	}

	_, err := a.SignAndSubmit(ctx, payload)
	assert.ErrorIs(t, err, domain.ErrWalletNotConnected)

	_, err = a.Connect(ctx, "")
	require.NoError(t, err)

	res, err := a.SignAndSubmit(ctx, payload)
	require.NoError(t, err)
	assert.Len(t, res.Hash, 66)

	status, err := chain.TransactionStatus(ctx, res.Hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, status)
}

func TestAdapter_SubmitErrors(t *testing.T) {
	ctx := context.Background()

	readOnly, _ := newAdapter(t, nil)
	_, err := readOnly.Connect(ctx, "")
	require.NoError(t, err)
	_, err = readOnly.SignAndSubmit(ctx, domain.TransactionPayload{})
	assert.ErrorIs(t, err, ErrReadOnly)

	rejecting, _ := newAdapter(t, failingSubmitter{})
	_, err = rejecting.Connect(ctx, "")
	require.NoError(t, err)
	_, err = rejecting.SignAndSubmit(ctx, domain.TransactionPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user rejected")
}

func TestAdapter_Restore(t *testing.T) {
	a, _ := newAdapter(t, nil)

	assert.False(t, a.Restore(domain.DisconnectedWallet()))
	assert.False(t, a.Restore(domain.WalletState{Address: "0xbeef", IsConnected: true}))
	assert.True(t, a.Restore(domain.WalletState{Address: testAccount, IsConnected: true, ChainID: "4"}))
	assert.True(t, a.IsConnected())
}

func TestNewAdapter_Validation(t *testing.T) {
	store, err := appstate.New(nil, nil)
	require.NoError(t, err)

	_, err = NewAdapter("not hex", domain.NetworkTestnet, nil, store, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = NewAdapter(testAccount, domain.NetworkTestnet, nil, nil, nil)
	assert.Error(t, err)
}

func TestFormatAddress(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"0x1234":             "0x1234",
		paddedAccount:        "0x0000...feed",
		"0x1234567890abcdef": "0x1234...cdef",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, FormatAddress(input), input)
	}
}
