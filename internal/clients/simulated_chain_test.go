package clients

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/aegis/internal/domain"
)

const (
	testPool   = "0xd5065d0af1a1adec233de5f30dc78f28f26063e387d17ab50f91bdc52e58c8e9"
	testCoin   = "0x1::cedra_coin::CedraCoin"
	testSender = "0x1234"
)

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func supplyPayload(units string) domain.TransactionPayload {
	return domain.TransactionPayload{
		Function:          testPool + "::pool::supply",
		TypeArguments:     []string{testCoin},
		FunctionArguments: []string{testPool, units},
	}
}

func TestSimulatedChain_MarketData(t *testing.T) {
	chain := NewSimulatedChain(nil, WithLatency(0))
	ctx := context.Background()

	markets, err := chain.Markets(ctx)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "USDC", markets[0].Symbol)
	assert.True(t, markets[0].UtilizationRate.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "ETH", markets[1].Symbol)

	position, err := chain.UserPosition(ctx, testSender)
	require.NoError(t, err)
	assert.True(t, position.HealthFactor.Equal(decimal.RequireFromString("2.5")))

	_, err = chain.UserPosition(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	balance, err := chain.TokenBalance(ctx, testSender, "usdt")
	require.NoError(t, err)
	assert.Equal(t, "75000000000", balance.String())

	balance, err = chain.TokenBalance(ctx, testSender, "DOGE")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestSimulatedChain_SubmitOutcomes(t *testing.T) {
	ctx := context.Background()

	always := NewSimulatedChain(nil, WithLatency(0), WithSuccessRate(1), WithSeed(1))
	hash, err := always.Submit(ctx, testSender, supplyPayload("250000000"))
	require.NoError(t, err)
	assert.Regexp(t, hashPattern, hash)

	status, err := always.TransactionStatus(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, status)

	never := NewSimulatedChain(nil, WithLatency(0), WithSuccessRate(0), WithSeed(1))
	hash, err = never.Submit(ctx, testSender, supplyPayload("1"))
	require.NoError(t, err)
	status, err = never.TransactionStatus(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, status)

	_, err = never.TransactionStatus(ctx, "0xunknown")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestSimulatedChain_SeedIsDeterministic(t *testing.T) {
	ctx := context.Background()

	first := NewSimulatedChain(nil, WithLatency(0), WithSeed(42))
	second := NewSimulatedChain(nil, WithLatency(0), WithSeed(42))

	for i := 0; i < 5; i++ {
		a, err := first.Submit(ctx, testSender, supplyPayload("1"))
		require.NoError(t, err)
		b, err := second.Submit(ctx, testSender, supplyPayload("1"))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestSimulatedChain_PendingUntilConfirmed(t *testing.T) {
	ctx := context.Background()
	chain := NewSimulatedChain(nil, WithLatency(0), WithSuccessRate(1))

	now := time.Unix(1700000000, 0)
	chain.now = func() time.Time { return now }

	hash, err := chain.Submit(ctx, testSender, supplyPayload("1"))
	require.NoError(t, err)
	chain.txs[hash] = simulatedTx{outcome: domain.TxStatusSuccess, confirmedAt: now.Add(time.Second)}

	status, err := chain.TransactionStatus(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, status)

	now = now.Add(2 * time.Second)
	status, err = chain.TransactionStatus(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, status)
}

func TestSimulatedChain_Views(t *testing.T) {
	ctx := context.Background()
	chain := NewSimulatedChain(nil, WithLatency(0), WithSuccessRate(1))

	_, err := chain.Submit(ctx, testSender, supplyPayload("400"))
	require.NoError(t, err)
	_, err = chain.Submit(ctx, testSender, domain.TransactionPayload{
		Function:          testPool + "::pool::borrow",
		TypeArguments:     []string{testCoin},
		FunctionArguments: []string{testPool, "100"},
	})
	require.NoError(t, err)

	info, err := chain.View(ctx, domain.TransactionPayload{
		Function:          testPool + "::pool::get_pool_info",
		TypeArguments:     []string{testCoin},
		FunctionArguments: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"400", "100", "25"}, info)

	deposits, err := chain.View(ctx, domain.TransactionPayload{
		Function:          testPool + "::pool::get_user_deposits",
		TypeArguments:     []string{testCoin},
		FunctionArguments: []string{testSender},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"400"}, deposits)

	_, err = chain.View(ctx, domain.TransactionPayload{Function: testPool + "::pool::get_nothing"})
	assert.Error(t, err)
}

func TestSimulatedChain_RejectsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	chain := NewSimulatedChain(nil, WithLatency(0))

	_, err := chain.Submit(ctx, testSender, domain.TransactionPayload{Function: "x"})
	assert.Error(t, err)

	_, err = chain.Submit(ctx, testSender, supplyPayload("1.5"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = chain.Submit(ctx, "", supplyPayload("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestSimulatedChain_HonorsContext(t *testing.T) {
	chain := NewSimulatedChain(nil, WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Markets(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
