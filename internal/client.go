package internal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/config"
	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/events"
	"github.com/vadiminshakov/aegis/internal/services/appstate"
	"github.com/vadiminshakov/aegis/internal/services/lending"
	"github.com/vadiminshakov/aegis/internal/services/market"
	"github.com/vadiminshakov/aegis/internal/services/payload"
	"github.com/vadiminshakov/aegis/internal/services/wallet"
	"github.com/vadiminshakov/aegis/internal/storage/statefile"
	"github.com/vadiminshakov/aegis/internal/storage/txjournal"
	"github.com/vadiminshakov/aegis/internal/web"
)

// ErrNoAccount is returned by wallet operations when no account is configured.
var ErrNoAccount = errors.New("no wallet account configured, pass --account or set AEGIS_ACCOUNT")

// Client is one wired lending client: persisted state, journal, wallet and services.
type Client struct {
	Config  config.Config
	Store   *appstate.Store
	Journal *txjournal.WALStore
	Builder *payload.Builder
	Markets *market.Service

	// Wallet and Lending are nil when no account is configured.
	Wallet  *wallet.Adapter
	Lending *lending.Service

	balances balanceSource
	l        *zap.Logger
}

// NewClient wires a client for cfg. The persisted wallet connection is restored when it
// belongs to the configured account.
func NewClient(cfg config.Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	builder, err := payload.NewBuilder(cfg.PoolAddress, cfg.CoinType, cfg.Decimals, logger)
	if err != nil {
		return nil, errors.Wrap(err, "payload builder")
	}

	storage, err := statefile.NewStore(cfg.StateDir)
	if err != nil {
		return nil, errors.Wrap(err, "state storage")
	}

	journal, err := txjournal.NewWALStore(cfg.WALDir)
	if err != nil {
		return nil, errors.Wrap(err, "transaction journal")
	}

	store, err := appstate.New(storage, logger,
		appstate.WithJournal(journal),
		appstate.WithBroadcaster(events.NewStateBroadcaster(64)))
	if err != nil {
		_ = journal.Close()
		return nil, errors.Wrap(err, "client state")
	}

	provider := newChainProvider(cfg, builder, logger)

	c := &Client{
		Config:   cfg,
		Store:    store,
		Journal:  journal,
		Builder:  builder,
		Markets:  market.NewService(provider.Markets(), provider.Viewer(), builder, store, logger),
		balances: provider.Balances(),
		l:        logger,
	}

	if cfg.Account == "" {
		return c, nil
	}

	c.Wallet, err = wallet.NewAdapter(cfg.Account, cfg.Network, provider.Submitter(), store, logger)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}
	if c.Wallet.Restore(store.Wallet()) {
		logger.Debug("wallet connection restored", zap.String("address", c.Wallet.Address()))
	}

	c.Lending = lending.NewService(builder, c.Wallet, provider.Confirmer(), store, logger,
		lending.WithConfirmTimeout(cfg.ConfirmTimeout),
		lending.WithPollInterval(cfg.PollInterval))

	return c, nil
}

// RequireWallet returns the wallet adapter or ErrNoAccount.
func (c *Client) RequireWallet() (*wallet.Adapter, error) {
	if c.Wallet == nil {
		return nil, ErrNoAccount
	}
	return c.Wallet, nil
}

// Execute runs a lending operation for the configured account.
func (c *Client) Execute(ctx context.Context, kind domain.OperationKind, token, amount string) (domain.TransactionRecord, error) {
	if c.Lending == nil {
		return domain.TransactionRecord{}, ErrNoAccount
	}
	return c.Lending.Execute(ctx, kind, token, amount)
}

// Transfer sends amount of the pool coin to recipient. Transfers are not part of the lending history.
func (c *Client) Transfer(ctx context.Context, recipient, amount string) (string, error) {
	w, err := c.RequireWallet()
	if err != nil {
		return "", err
	}

	p, err := c.Builder.BuildTransfer(recipient, amount)
	if err != nil {
		return "", err
	}

	res, err := w.SignAndSubmit(ctx, p)
	if err != nil {
		return "", err
	}

	return res.Hash, nil
}

// Balance returns the wallet balance of token in smallest units.
func (c *Client) Balance(ctx context.Context, token string) (decimal.Decimal, error) {
	w, err := c.RequireWallet()
	if err != nil {
		return decimal.Zero, err
	}
	if !w.IsConnected() {
		return decimal.Zero, domain.ErrWalletNotConnected
	}

	return c.balances.Balance(ctx, w.Address(), token)
}

// WebServer returns a server over the client state and journal.
func (c *Client) WebServer(opts ...web.Option) *web.Server {
	return web.NewServer(c.Config.WebAddr, c.Store, c.Journal, c.l, opts...)
}

// Close flushes the state and closes the journal.
func (c *Client) Close() error {
	flushErr := c.Store.Flush()
	if err := c.Journal.Close(); err != nil {
		return errors.Wrap(err, "close transaction journal")
	}
	return flushErr
}
