package clients

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/internal/domain"
)

const (
	defaultSimulatedLatency     = time.Second
	defaultSimulatedSuccessRate = 0.9
)

// ErrTransactionNotFound is returned for hashes the network has never seen.
var ErrTransactionNotFound = errors.New("transaction not found")

type simulatedTx struct {
	outcome     domain.TxStatus
	confirmedAt time.Time
}

// SimulatedChain is an in-process stand-in for the Cedra network. It serves fixed
// market data and accepts any well-formed pool payload, failing a configurable share of them.
type SimulatedChain struct {
	mu          sync.Mutex
	rng         *rand.Rand
	latency     time.Duration
	successRate float64
	now         func() time.Time

	txs      map[string]simulatedTx
	deposits map[string]decimal.Decimal
	borrows  map[string]decimal.Decimal

	l *zap.Logger
}

// SimulatedOption configures a SimulatedChain.
type SimulatedOption func(*SimulatedChain)

// WithLatency sets the delay of every call and the time until a submitted transaction confirms.
func WithLatency(d time.Duration) SimulatedOption {
	return func(c *SimulatedChain) {
		if d >= 0 {
			c.latency = d
		}
	}
}

// WithSuccessRate sets the share of submissions that succeed, from 0 to 1.
func WithSuccessRate(rate float64) SimulatedOption {
	return func(c *SimulatedChain) {
		if rate >= 0 && rate <= 1 {
			c.successRate = rate
		}
	}
}

// WithSeed makes hashes and outcomes reproducible.
func WithSeed(seed int64) SimulatedOption {
	return func(c *SimulatedChain) {
		c.rng = rand.New(rand.NewSource(seed))
	}
}

// NewSimulatedChain creates a simulated network.
func NewSimulatedChain(l *zap.Logger, opts ...SimulatedOption) *SimulatedChain {
	if l == nil {
		l = zap.NewNop()
	}

	c := &SimulatedChain{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		latency:     defaultSimulatedLatency,
		successRate: defaultSimulatedSuccessRate,
		now:         time.Now,
		txs:         make(map[string]simulatedTx),
		deposits:    make(map[string]decimal.Decimal),
		borrows:     make(map[string]decimal.Decimal),
		l:           l,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Markets returns the lending markets.
func (c *SimulatedChain) Markets(ctx context.Context) ([]domain.MarketData, error) {
	if err := c.wait(ctx, c.latency/2); err != nil {
		return nil, err
	}

	return []domain.MarketData{
		{
			TokenAddress:         "0x1::usdc::USDC",
			Symbol:               "USDC",
			Decimals:             6,
			TotalSupply:          decimal.RequireFromString("12500000000000"),
			TotalBorrow:          decimal.RequireFromString("8750000000000"),
			SupplyAPY:            decimal.RequireFromString("6.875"),
			BorrowAPR:            decimal.RequireFromString("5.51"),
			UtilizationRate:      decimal.NewFromInt(70),
			CollateralFactor:     decimal.RequireFromString("0.75"),
			LiquidationThreshold: decimal.RequireFromString("0.80"),
		},
		{
			TokenAddress:         "0x1::eth::ETH",
			Symbol:               "ETH",
			Decimals:             18,
			TotalSupply:          decimal.RequireFromString("5000000000000000000000"),
			TotalBorrow:          decimal.RequireFromString("2500000000000000000000"),
			SupplyAPY:            decimal.RequireFromString("4.25"),
			BorrowAPR:            decimal.RequireFromString("6.50"),
			UtilizationRate:      decimal.NewFromInt(50),
			CollateralFactor:     decimal.RequireFromString("0.80"),
			LiquidationThreshold: decimal.RequireFromString("0.85"),
		},
	}, nil
}

// UserPosition returns the aggregate position of address.
func (c *SimulatedChain) UserPosition(ctx context.Context, address string) (domain.UserPosition, error) {
	if _, err := domain.PadAddress(address); err != nil {
		return domain.UserPosition{}, err
	}
	if err := c.wait(ctx, c.latency*3/10); err != nil {
		return domain.UserPosition{}, err
	}

	return domain.UserPosition{
		TotalSupplied:     decimal.RequireFromString("100000000000"),
		TotalBorrowed:     decimal.RequireFromString("50000000000"),
		HealthFactor:      decimal.RequireFromString("2.5"),
		AvailableToBorrow: decimal.RequireFromString("25000000000"),
		NetAPY:            decimal.RequireFromString("3.45"),
	}, nil
}

// TokenBalance returns the wallet balance of symbol in smallest units. Unknown tokens are zero.
func (c *SimulatedChain) TokenBalance(ctx context.Context, address, symbol string) (decimal.Decimal, error) {
	if err := c.wait(ctx, c.latency/5); err != nil {
		return decimal.Zero, err
	}

	balances := map[string]string{
		"USDC": "50000000000",
		"ETH":  "25500000000000000000",
		"USDT": "75000000000",
	}

	if v, ok := balances[strings.ToUpper(symbol)]; ok {
		return decimal.RequireFromString(v), nil
	}

	return decimal.Zero, nil
}

// Submit accepts a signed pool payload from sender and returns its hash.
// The outcome is decided at submission and becomes visible once the latency has elapsed.
func (c *SimulatedChain) Submit(ctx context.Context, sender string, payload domain.TransactionPayload) (string, error) {
	user, err := domain.PadAddress(sender)
	if err != nil {
		return "", errors.Wrap(err, "sender")
	}
	if len(payload.FunctionArguments) == 0 {
		return "", errors.New("payload has no arguments")
	}

	units, err := domain.ParseUnits(payload.FunctionArguments[len(payload.FunctionArguments)-1])
	if err != nil {
		return "", errors.Wrap(err, "payload amount")
	}

	if err := c.wait(ctx, c.latency/10); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hash := c.randomHash()
	outcome := domain.TxStatusFailed
	if c.rng.Float64() < c.successRate {
		outcome = domain.TxStatusSuccess
		c.applyLocked(user, payload.Name(), units)
	}

	c.txs[hash] = simulatedTx{outcome: outcome, confirmedAt: c.now().Add(c.latency)}

	c.l.Debug("simulated transaction submitted",
		zap.String("hash", hash),
		zap.String("function", payload.Function),
		zap.String("outcome", string(outcome)))

	return hash, nil
}

// TransactionStatus reports pending until the transaction confirms, then its outcome.
func (c *SimulatedChain) TransactionStatus(ctx context.Context, hash string) (domain.TxStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.txs[hash]
	if !ok {
		return "", errors.Wrap(ErrTransactionNotFound, hash)
	}
	if c.now().Before(tx.confirmedAt) {
		return domain.TxStatusPending, nil
	}

	return tx.outcome, nil
}

// View answers the pool view functions.
func (c *SimulatedChain) View(ctx context.Context, payload domain.TransactionPayload) ([]string, error) {
	if err := c.wait(ctx, c.latency/5); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch payload.Name() {
	case "get_pool_info":
		supply, borrowed := c.totalsLocked()
		return []string{
			supply.String(),
			borrowed.String(),
			domain.UtilizationRate(supply, borrowed).Truncate(0).String(),
		}, nil
	case "get_user_deposits":
		if len(payload.FunctionArguments) != 1 {
			return nil, errors.Errorf("get_user_deposits expects 1 argument, got %d", len(payload.FunctionArguments))
		}
		user, err := domain.PadAddress(payload.FunctionArguments[0])
		if err != nil {
			return nil, err
		}
		return []string{c.deposits[user].String()}, nil
	default:
		return nil, errors.Errorf("unknown view function %s", payload.Function)
	}
}

func (c *SimulatedChain) applyLocked(user, operation string, units decimal.Decimal) {
	switch operation {
	case domain.OperationSupply.String():
		c.deposits[user] = c.deposits[user].Add(units)
	case domain.OperationWithdraw.String():
		c.deposits[user] = decimal.Max(decimal.Zero, c.deposits[user].Sub(units))
	case domain.OperationBorrow.String():
		c.borrows[user] = c.borrows[user].Add(units)
	case domain.OperationRepay.String():
		c.borrows[user] = decimal.Max(decimal.Zero, c.borrows[user].Sub(units))
	}
}

func (c *SimulatedChain) totalsLocked() (supply, borrowed decimal.Decimal) {
	for _, v := range c.deposits {
		supply = supply.Add(v)
	}
	for _, v := range c.borrows {
		borrowed = borrowed.Add(v)
	}
	return supply, borrowed
}

func (c *SimulatedChain) randomHash() string {
	var b [common.HashLength]byte
	_, _ = c.rng.Read(b[:])
	return common.BytesToHash(b[:]).Hex()
}

func (c *SimulatedChain) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
