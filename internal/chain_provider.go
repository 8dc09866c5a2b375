package internal

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/config"
	"github.com/vadiminshakov/aegis/internal/clients"
	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/services/payload"
)

// nativeSymbol is the display symbol of the configured pool coin.
const nativeSymbol = "CEDRA"

type txSubmitter interface {
	Submit(ctx context.Context, sender string, payload domain.TransactionPayload) (string, error)
}

type txConfirmer interface {
	TransactionStatus(ctx context.Context, hash string) (domain.TxStatus, error)
}

type viewer interface {
	View(ctx context.Context, payload domain.TransactionPayload) ([]string, error)
}

type marketSource interface {
	Markets(ctx context.Context) ([]domain.MarketData, error)
	UserPosition(ctx context.Context, address string) (domain.UserPosition, error)
}

type balanceSource interface {
	Balance(ctx context.Context, address, token string) (decimal.Decimal, error)
}

// chainProvider hands out the network-facing services of one chain backend.
type chainProvider interface {
	// Submitter is nil when the backend cannot sign.
	Submitter() txSubmitter
	Confirmer() txConfirmer
	Viewer() viewer
	Markets() marketSource
	Balances() balanceSource
}

// newChainProvider is the single place that decides between the simulated chain and a full node.
func newChainProvider(cfg config.Config, builder *payload.Builder, logger *zap.Logger) chainProvider {
	if cfg.Simulate {
		chain := clients.NewSimulatedChain(logger,
			clients.WithLatency(cfg.Latency),
			clients.WithSuccessRate(cfg.SuccessRate))
		return &simulatedProvider{chain: chain}
	}

	node := clients.NewNodeClient(cfg.NodeURL, 0, logger)
	return &nodeProvider{
		node:    node,
		markets: &poolMarkets{viewer: node, builder: builder},
		coin:    cfg.CoinType,
	}
}

type simulatedProvider struct {
	chain *clients.SimulatedChain
}

func (p *simulatedProvider) Submitter() txSubmitter  { return p.chain }
func (p *simulatedProvider) Confirmer() txConfirmer  { return p.chain }
func (p *simulatedProvider) Viewer() viewer          { return p.chain }
func (p *simulatedProvider) Markets() marketSource   { return p.chain }
func (p *simulatedProvider) Balances() balanceSource { return p }

func (p *simulatedProvider) Balance(ctx context.Context, address, token string) (decimal.Decimal, error) {
	return p.chain.TokenBalance(ctx, address, token)
}

type nodeProvider struct {
	node    *clients.NodeClient
	markets *poolMarkets
	coin    string
}

func (p *nodeProvider) Submitter() txSubmitter  { return nil }
func (p *nodeProvider) Confirmer() txConfirmer  { return p.node }
func (p *nodeProvider) Viewer() viewer          { return p.node }
func (p *nodeProvider) Markets() marketSource   { return p.markets }
func (p *nodeProvider) Balances() balanceSource { return p }

// Balance accepts the native symbol or a fully qualified coin type.
func (p *nodeProvider) Balance(ctx context.Context, address, token string) (decimal.Decimal, error) {
	coin := token
	if strings.EqualFold(token, nativeSymbol) || token == "" {
		coin = p.coin
	}
	if !strings.Contains(coin, "::") {
		return decimal.Zero, errors.Errorf("unknown token %q, use %s or a coin type", token, nativeSymbol)
	}

	return p.node.CoinBalance(ctx, address, coin)
}

// poolMarkets derives market data from the pool views of a full node.
type poolMarkets struct {
	viewer  viewer
	builder *payload.Builder
}

func (m *poolMarkets) Markets(ctx context.Context) ([]domain.MarketData, error) {
	result, err := m.viewer.View(ctx, m.builder.PoolInfoView())
	if err != nil {
		return nil, err
	}
	info, err := domain.ParsePoolInfo(result)
	if err != nil {
		return nil, err
	}

	return []domain.MarketData{{
		TokenAddress:    m.builder.CoinType(),
		Symbol:          nativeSymbol,
		Decimals:        m.builder.Decimals(),
		TotalSupply:     info.TotalSupply,
		TotalBorrow:     info.TotalBorrowed,
		UtilizationRate: info.UtilizationRate,
	}}, nil
}

func (m *poolMarkets) UserPosition(ctx context.Context, address string) (domain.UserPosition, error) {
	view, err := m.builder.UserDepositsView(address)
	if err != nil {
		return domain.UserPosition{}, err
	}
	result, err := m.viewer.View(ctx, view)
	if err != nil {
		return domain.UserPosition{}, err
	}
	if len(result) == 0 {
		return domain.UserPosition{}, errors.New("get user deposits: empty result")
	}

	supplied, err := domain.ParseUnits(result[0])
	if err != nil {
		return domain.UserPosition{}, err
	}

	return domain.UserPosition{TotalSupplied: supplied}, nil
}
