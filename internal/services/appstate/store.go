// Package appstate holds the client state: wallet identity, recent transactions,
// market snapshots and UI flags. Wallet, theme and transactions survive restarts.
package appstate

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/events"
	"github.com/vadiminshakov/aegis/internal/storage/txjournal"
)

// StorageKey is the namespace record holding the persisted slice of the state.
const StorageKey = "aegis-storage"

const persistVersion = 0

// Storage is a durable string key-value store.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// ErrDuplicateHash is returned when an update would rewrite a record to a hash another record already has.
var ErrDuplicateHash = errors.New("transaction hash already recorded")

// Journal receives every transaction record change.
type Journal interface {
	Added(rec domain.TransactionRecord) (txjournal.Event, error)
	Updated(previousHash string, rec domain.TransactionRecord) (txjournal.Event, error)
}

// State is a point-in-time copy of the client state.
type State struct {
	Wallet         domain.WalletState         `json:"wallet"`
	Markets        []domain.MarketData        `json:"markets"`
	SelectedMarket string                     `json:"selectedMarket,omitempty"`
	UserPosition   *domain.UserPosition       `json:"userPosition"`
	Transactions   []domain.TransactionRecord `json:"transactions"`
	IsLoading      bool                       `json:"isLoading"`
	Error          string                     `json:"error,omitempty"`
	Theme          domain.Theme               `json:"theme"`
}

type persistedState struct {
	Wallet       domain.WalletState         `json:"wallet"`
	Theme        domain.Theme               `json:"theme"`
	Transactions []domain.TransactionRecord `json:"transactions"`
}

type persistedEnvelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

// Store is the single owner of the client state. All mutations go through its methods,
// and every mutation of a persisted field is flushed before the method returns.
type Store struct {
	mu      sync.RWMutex
	state   State
	version uint64

	storage Storage
	journal Journal
	events  *events.StateBroadcaster
	l       *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithJournal attaches a transaction journal.
func WithJournal(j Journal) Option {
	return func(s *Store) {
		s.journal = j
	}
}

// WithBroadcaster replaces the default change broadcaster.
func WithBroadcaster(b *events.StateBroadcaster) Option {
	return func(s *Store) {
		if b != nil {
			s.events = b
		}
	}
}

// New creates a store with default values and rehydrates the persisted slice from storage.
// A nil storage keeps the state in memory only.
func New(storage Storage, l *zap.Logger, opts ...Option) (*Store, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}

	s := &Store{
		state:   defaultState(),
		storage: storage,
		events:  events.NewStateBroadcaster(64),
		l:       l,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.rehydrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func defaultState() State {
	return State{
		Wallet:       domain.DisconnectedWallet(),
		Markets:      []domain.MarketData{},
		Transactions: []domain.TransactionRecord{},
		Theme:        domain.ThemeSystem,
	}
}

func (s *Store) rehydrate() error {
	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		return errors.Wrap(err, "load persisted state")
	}
	if !ok {
		return nil
	}

	var envelope persistedEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		s.l.Warn("discarding unreadable persisted state", zap.Error(err))
		return nil
	}

	persisted := envelope.State
	s.state.Wallet = persisted.Wallet
	if persisted.Theme.IsValid() {
		s.state.Theme = persisted.Theme
	}
	if len(persisted.Transactions) > 0 {
		s.state.Transactions = capTransactions(persisted.Transactions)
	}

	s.l.Info("client state restored",
		zap.Bool("wallet_connected", s.state.Wallet.IsConnected),
		zap.Int("transactions", len(s.state.Transactions)))

	return nil
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.copyState()
}

// Version is the number of mutations applied since the store was created.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// Wallet returns the current wallet record.
func (s *Store) Wallet() domain.WalletState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Wallet
}

// Transactions returns the history, most recent first.
func (s *Store) Transactions() []domain.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.TransactionRecord{}, s.state.Transactions...)
}

// Transaction returns the first record with the given hash.
func (s *Store) Transaction(hash string) (domain.TransactionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(hash); i >= 0 {
		return s.state.Transactions[i], true
	}

	return domain.TransactionRecord{}, false
}

// Theme returns the UI theme preference.
func (s *Store) Theme() domain.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Theme
}

// SetWallet merges the non-nil fields of update into the wallet record.
func (s *Store) SetWallet(update domain.WalletUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state.Wallet = update.Apply(s.state.Wallet)

	return s.persist(prev, events.TopicWallet, "")
}

// DisconnectWallet resets the wallet and clears the user position and transaction history,
// in memory and on disk.
func (s *Store) DisconnectWallet() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state.Wallet = domain.DisconnectedWallet()
	s.state.UserPosition = nil
	s.state.Transactions = []domain.TransactionRecord{}

	return s.persist(prev, events.TopicWallet, "")
}

// AddTransaction prepends rec to the history, evicting the oldest beyond MaxTransactions.
func (s *Store) AddTransaction(rec domain.TransactionRecord) error {
	if rec.Hash == "" {
		return errors.New("transaction hash is required")
	}
	if !rec.Status.IsValid() {
		return errors.Errorf("invalid transaction status %q", rec.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state.Transactions = capTransactions(append([]domain.TransactionRecord{rec}, s.state.Transactions...))

	if err := s.persist(prev, events.TopicTransactions, rec.Hash); err != nil {
		return err
	}

	if s.journal != nil {
		if _, err := s.journal.Added(rec); err != nil {
			return errors.Wrap(err, "journal added transaction")
		}
	}

	return nil
}

// UpdateTransaction merges update into the first record whose hash equals hash.
// The update may change the hash itself, but not to a hash another record already has.
// found is false when no record matches, in which case nothing changes.
func (s *Store) UpdateTransaction(hash string, update domain.TransactionUpdate) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(hash)
	if i < 0 {
		s.l.Debug("transaction update skipped, no such record", zap.String("hash", hash))
		return false, nil
	}

	updated, err := update.Apply(s.state.Transactions[i])
	if err != nil {
		return true, errors.Wrapf(err, "update transaction %s", hash)
	}
	if updated.Hash != hash && s.indexOf(updated.Hash) >= 0 {
		return true, errors.Wrapf(ErrDuplicateHash, "rewrite %s to %s", hash, updated.Hash)
	}

	prev := s.state
	s.state.Transactions = append([]domain.TransactionRecord{}, s.state.Transactions...)
	s.state.Transactions[i] = updated

	if err := s.persist(prev, events.TopicTransactions, updated.Hash); err != nil {
		return true, err
	}

	if s.journal != nil {
		if _, err := s.journal.Updated(hash, updated); err != nil {
			return true, errors.Wrap(err, "journal updated transaction")
		}
	}

	return true, nil
}

// SetMarkets replaces the market list.
func (s *Store) SetMarkets(markets []domain.MarketData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Markets = append([]domain.MarketData{}, markets...)
	s.publish(events.TopicMarkets, "")
}

// SetSelectedMarket stores the symbol of the market the user is looking at.
func (s *Store) SetSelectedMarket(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SelectedMarket = symbol
	s.publish(events.TopicMarkets, "")
}

// SelectedMarket returns the selected market data, if it is in the market list.
func (s *Store) SelectedMarket() (domain.MarketData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.state.Markets {
		if m.Symbol == s.state.SelectedMarket {
			return m, true
		}
	}

	return domain.MarketData{}, false
}

// SetUserPosition replaces the user position.
func (s *Store) SetUserPosition(position domain.UserPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.UserPosition = &position
	s.publish(events.TopicPosition, "")
}

// SetLoading toggles the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsLoading = loading
	s.publish(events.TopicLoading, "")
}

// SetError sets the user-facing error message. An empty message clears it.
func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Error = message
	s.publish(events.TopicError, "")
}

// SetTheme stores the UI theme preference.
func (s *Store) SetTheme(theme domain.Theme) error {
	if !theme.IsValid() {
		return errors.Errorf("invalid theme %q", theme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state.Theme = theme

	return s.persist(prev, events.TopicTheme, "")
}

// Flush writes the persisted slice of the state to storage.
func (s *Store) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.flushLocked()
}

// Reset drops the persisted record and restores defaults in memory.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(StorageKey); err != nil {
		return errors.Wrap(err, "remove persisted state")
	}

	s.state = defaultState()
	s.publish(events.TopicWallet, "")

	return nil
}

// Subscribe returns a channel notified after every mutation.
func (s *Store) Subscribe() chan events.StateChange {
	return s.events.Subscribe()
}

// Unsubscribe stops notifications and closes ch.
func (s *Store) Unsubscribe(ch chan events.StateChange) {
	s.events.Unsubscribe(ch)
}

// persist flushes the mutated state and publishes it. When the flush fails the state is
// rolled back to prev and subscribers see nothing. Must be called with the write lock held.
func (s *Store) persist(prev State, topic events.Topic, txHash string) error {
	if err := s.flushLocked(); err != nil {
		s.state = prev
		return err
	}

	s.publish(topic, txHash)

	return nil
}

// publish must be called with the write lock held.
func (s *Store) publish(topic events.Topic, txHash string) {
	s.version++

	s.events.Publish(events.StateChange{
		Timestamp: time.Now(),
		Topic:     topic,
		Version:   s.version,
		TxHash:    txHash,
	})
}

func (s *Store) flushLocked() error {
	envelope := persistedEnvelope{
		State: persistedState{
			Wallet:       s.state.Wallet,
			Theme:        s.state.Theme,
			Transactions: capTransactions(s.state.Transactions),
		},
		Version: persistVersion,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, "encode persisted state")
	}

	if err := s.storage.Set(StorageKey, string(payload)); err != nil {
		return errors.Wrap(err, "persist state")
	}

	return nil
}

func (s *Store) indexOf(hash string) int {
	for i, tx := range s.state.Transactions {
		if tx.Hash == hash {
			return i
		}
	}

	return -1
}

func (s *Store) copyState() State {
	st := s.state
	st.Markets = append([]domain.MarketData{}, s.state.Markets...)
	st.Transactions = append([]domain.TransactionRecord{}, s.state.Transactions...)
	if s.state.UserPosition != nil {
		position := *s.state.UserPosition
		st.UserPosition = &position
	}

	return st
}

func capTransactions(txs []domain.TransactionRecord) []domain.TransactionRecord {
	if len(txs) > domain.MaxTransactions {
		txs = txs[:domain.MaxTransactions]
	}

	return append([]domain.TransactionRecord{}, txs...)
}
