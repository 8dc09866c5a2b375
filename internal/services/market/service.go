// Package market loads lending markets, pool state and the user position into the client state.
package market

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/internal/domain"
)

type marketSource interface {
	Markets(ctx context.Context) ([]domain.MarketData, error)
	UserPosition(ctx context.Context, address string) (domain.UserPosition, error)
}

type viewer interface {
	View(ctx context.Context, payload domain.TransactionPayload) ([]string, error)
}

type viewBuilder interface {
	PoolInfoView() domain.TransactionPayload
	UserDepositsView(user string) (domain.TransactionPayload, error)
}

type marketStore interface {
	Wallet() domain.WalletState
	SetMarkets(markets []domain.MarketData)
	SetUserPosition(position domain.UserPosition)
	SetLoading(loading bool)
	SetError(message string)
}

// Service refreshes market and position data.
type Service struct {
	source  marketSource
	viewer  viewer
	builder viewBuilder
	store   marketStore
	l       *zap.Logger
}

// NewService wires a market service.
func NewService(source marketSource, viewer viewer, builder viewBuilder, store marketStore, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}

	return &Service{
		source:  source,
		viewer:  viewer,
		builder: builder,
		store:   store,
		l:       l,
	}
}

// RefreshMarkets loads all markets into the store.
func (s *Service) RefreshMarkets(ctx context.Context) ([]domain.MarketData, error) {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	markets, err := s.source.Markets(ctx)
	if err != nil {
		s.store.SetError("failed to load markets")
		return nil, errors.Wrap(err, "load markets")
	}

	s.store.SetMarkets(markets)
	s.l.Debug("markets refreshed", zap.Int("count", len(markets)))

	return markets, nil
}

// RefreshPosition loads the position of the connected wallet into the store.
func (s *Service) RefreshPosition(ctx context.Context) (domain.UserPosition, error) {
	w := s.store.Wallet()
	if !w.IsConnected || w.Address == "" {
		return domain.UserPosition{}, domain.ErrWalletNotConnected
	}

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	position, err := s.source.UserPosition(ctx, w.Address)
	if err != nil {
		s.store.SetError("failed to load position")
		return domain.UserPosition{}, errors.Wrap(err, "load user position")
	}

	s.store.SetUserPosition(position)

	return position, nil
}

// PoolInfo reads [totalSupply, totalBorrowed, utilizationRate] of the pool.
func (s *Service) PoolInfo(ctx context.Context) (domain.PoolInfo, error) {
	result, err := s.viewer.View(ctx, s.builder.PoolInfoView())
	if err != nil {
		return domain.PoolInfo{}, errors.Wrap(err, "get pool info")
	}

	return domain.ParsePoolInfo(result)
}

// UserDeposits returns the smallest units deposited by user.
// An empty user means the connected wallet.
func (s *Service) UserDeposits(ctx context.Context, user string) (decimal.Decimal, error) {
	if user == "" {
		w := s.store.Wallet()
		if !w.IsConnected {
			return decimal.Zero, domain.ErrWalletNotConnected
		}
		user = w.Address
	}

	view, err := s.builder.UserDepositsView(user)
	if err != nil {
		return decimal.Zero, err
	}

	result, err := s.viewer.View(ctx, view)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "get user deposits")
	}
	if len(result) == 0 {
		return decimal.Zero, errors.New("get user deposits: empty result")
	}

	return domain.ParseUnits(result[0])
}
