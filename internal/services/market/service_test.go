package market

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/aegis/internal/clients"
	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/services/appstate"
	"github.com/vadiminshakov/aegis/internal/services/payload"
)

const (
	testPool = "0xd5065d0af1a1adec233de5f30dc78f28f26063e387d17ab50f91bdc52e58c8e9"
	testCoin = "0x1::cedra_coin::CedraCoin"
	testUser = "0xfeed"
)

type brokenSource struct{}

func (brokenSource) Markets(context.Context) ([]domain.MarketData, error) {
	return nil, errors.New("network down")
}

func (brokenSource) UserPosition(context.Context, string) (domain.UserPosition, error) {
	return domain.UserPosition{}, errors.New("network down")
}

func newService(t *testing.T, source marketSource) (*Service, *appstate.Store, *clients.SimulatedChain) {
	t.Helper()

	store, err := appstate.New(nil, nil)
	require.NoError(t, err)

	chain := clients.NewSimulatedChain(nil, clients.WithLatency(0), clients.WithSuccessRate(1))
	if source == nil {
		source = chain
	}

	builder, err := payload.NewBuilder(testPool, testCoin, domain.CedraDecimals, nil)
	require.NoError(t, err)

	return NewService(source, chain, builder, store, nil), store, chain
}

func TestService_RefreshMarkets(t *testing.T) {
	svc, store, _ := newService(t, nil)

	markets, err := svc.RefreshMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)

	st := store.Snapshot()
	assert.Len(t, st.Markets, 2)
	assert.False(t, st.IsLoading)
}

func TestService_RefreshMarketsError(t *testing.T) {
	svc, store, _ := newService(t, brokenSource{})

	_, err := svc.RefreshMarkets(context.Background())
	require.Error(t, err)

	st := store.Snapshot()
	assert.Equal(t, "failed to load markets", st.Error)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Markets)
}

func TestService_RefreshPosition(t *testing.T) {
	svc, store, _ := newService(t, nil)

	_, err := svc.RefreshPosition(context.Background())
	assert.ErrorIs(t, err, domain.ErrWalletNotConnected)

	require.NoError(t, store.SetWallet(domain.ConnectedWallet(testUser, domain.ChainIDTestnet)))

	position, err := svc.RefreshPosition(context.Background())
	require.NoError(t, err)
	assert.True(t, position.NetAPY.Equal(decimal.RequireFromString("3.45")))
	require.NotNil(t, store.Snapshot().UserPosition)
}

func TestService_PoolInfoAndDeposits(t *testing.T) {
	svc, store, chain := newService(t, nil)
	ctx := context.Background()

	builder, err := payload.NewBuilder(testPool, testCoin, domain.CedraDecimals, nil)
	require.NoError(t, err)
	supply, err := builder.BuildSupply("3")
	require.NoError(t, err)
	_, err = chain.Submit(ctx, testUser, supply)
	require.NoError(t, err)

	info, err := svc.PoolInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "300000000", info.TotalSupply.String())
	assert.True(t, info.TotalBorrowed.IsZero())

	deposits, err := svc.UserDeposits(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "300000000", deposits.String())

	_, err = svc.UserDeposits(ctx, "")
	assert.ErrorIs(t, err, domain.ErrWalletNotConnected)

	require.NoError(t, store.SetWallet(domain.ConnectedWallet(testUser, domain.ChainIDTestnet)))
	deposits, err = svc.UserDeposits(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "300000000", deposits.String())

	_, err = svc.UserDeposits(ctx, "bad address")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}
