// Package wallet adapts a signing account to the client state: it connects, disconnects,
// signs and submits payloads, and notifies listeners about connection changes.
package wallet

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/internal/domain"
)

// ErrReadOnly is returned by SignAndSubmit when no submitting network is configured.
var ErrReadOnly = errors.New("wallet is read-only")

type submitter interface {
	Submit(ctx context.Context, sender string, payload domain.TransactionPayload) (string, error)
}

type walletStore interface {
	SetWallet(update domain.WalletUpdate) error
	DisconnectWallet() error
}

// EventKind distinguishes connection events.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
)

// String returns a string representation of the EventKind.
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is delivered to handlers registered with On.
type Event struct {
	Kind       EventKind
	Address    string
	WalletName string
}

// Handler reacts to a connection event. Handlers run synchronously and must not block.
type Handler func(Event)

// SubmitResult is what the network returns for an accepted transaction.
type SubmitResult struct {
	Hash string `json:"hash"`
}

// Adapter is a single-account wallet.
type Adapter struct {
	mu         sync.RWMutex
	account    string
	network    string
	walletName string
	connected  bool

	chain submitter
	store walletStore

	handlers map[int]Handler
	nextID   int

	l *zap.Logger
}

// NewAdapter creates a disconnected adapter for account on network.
// A nil chain makes the adapter read-only.
func NewAdapter(account, network string, chain submitter, store walletStore, l *zap.Logger) (*Adapter, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if store == nil {
		return nil, errors.New("wallet store is required")
	}

	addr, err := domain.PadAddress(account)
	if err != nil {
		return nil, errors.Wrap(err, "wallet account")
	}

	return &Adapter{
		account:  addr,
		network:  network,
		chain:    chain,
		store:    store,
		handlers: make(map[int]Handler),
		l:        l,
	}, nil
}

// Connect marks the account as connected and records it in the store.
// Connecting an already connected wallet is a no-op that reports true.
func (a *Adapter) Connect(ctx context.Context, walletName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	a.mu.Lock()
	if a.connected {
		a.mu.Unlock()
		a.l.Info("wallet already connected", zap.String("address", a.account))
		return true, nil
	}

	if err := a.store.SetWallet(domain.ConnectedWallet(a.account, domain.ChainIDFor(a.network))); err != nil {
		a.mu.Unlock()
		return false, errors.Wrap(err, "record connected wallet")
	}

	a.connected = true
	a.walletName = walletName
	event := Event{Kind: EventConnect, Address: a.account, WalletName: walletName}
	a.mu.Unlock()

	a.l.Info("wallet connected",
		zap.String("address", a.account),
		zap.String("network", a.network),
		zap.String("wallet", walletName))

	a.emit(event)

	return true, nil
}

// Restore reconnects silently when the persisted wallet belongs to this account.
func (a *Adapter) Restore(persisted domain.WalletState) bool {
	if !persisted.IsConnected || persisted.Address == "" {
		return false
	}

	addr, err := domain.PadAddress(persisted.Address)
	if err != nil || addr != a.account {
		return false
	}

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()

	return true
}

// Disconnect clears the wallet from the store, including persisted history.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	name := a.walletName
	a.connected = false
	a.walletName = ""
	err := a.store.DisconnectWallet()
	a.mu.Unlock()

	if err != nil {
		return errors.Wrap(err, "record disconnected wallet")
	}

	a.l.Info("wallet disconnected", zap.String("address", a.account))
	a.emit(Event{Kind: EventDisconnect, Address: a.account, WalletName: name})

	return nil
}

// SignAndSubmit signs payload with the account and submits it.
func (a *Adapter) SignAndSubmit(ctx context.Context, payload domain.TransactionPayload) (SubmitResult, error) {
	a.mu.RLock()
	connected := a.connected
	a.mu.RUnlock()

	if !connected {
		return SubmitResult{}, domain.ErrWalletNotConnected
	}
	if a.chain == nil {
		return SubmitResult{}, ErrReadOnly
	}

	hash, err := a.chain.Submit(ctx, a.account, payload.Clone())
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "submit transaction")
	}

	a.l.Debug("transaction submitted", zap.String("hash", hash), zap.String("function", payload.Function))

	return SubmitResult{Hash: hash}, nil
}

// Address returns the account address, empty while disconnected.
func (a *Adapter) Address() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.connected {
		return ""
	}
	return a.account
}

// IsConnected reports the connection state.
func (a *Adapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.connected
}

// On registers a connection handler and returns its id for Off.
func (a *Adapter) On(h Handler) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	a.handlers[a.nextID] = h

	return a.nextID
}

// Off removes a handler. Unknown ids are ignored.
func (a *Adapter) Off(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.handlers, id)
}

func (a *Adapter) emit(e Event) {
	a.mu.RLock()
	handlers := make([]Handler, 0, len(a.handlers))
	for _, h := range a.handlers {
		handlers = append(handlers, h)
	}
	a.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// FormatAddress shortens an address for display: 0x1234...abcd.
func FormatAddress(address string) string {
	if len(address) < 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
