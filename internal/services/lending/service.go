// Package lending runs supply, withdraw, borrow and repay end to end:
// it records a pending transaction, submits it through the wallet and tracks it to a final status.
package lending

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/internal/clients"
	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/services/wallet"
	"github.com/vadiminshakov/aegis/pkg/retrier"
)

const (
	defaultConfirmTimeout = 30 * time.Second
	defaultPollInterval   = time.Second

	placeholderPrefix = domain.PendingHash + "-"
)

var (
	// ErrTransactionFailed is returned when the network rejected a submitted transaction.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrConfirmationTimeout is returned when a submitted transaction is still pending after the timeout.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
	// ErrUnknownTransaction is returned for hashes that are not in the history.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrNotSubmitted is returned when resolving a record that never reached the network.
	ErrNotSubmitted = errors.New("transaction was never submitted")

	errStillPending = errors.New("transaction still pending")
)

type payloadBuilder interface {
	Build(kind domain.OperationKind, amount string) (domain.TransactionPayload, error)
}

type signer interface {
	IsConnected() bool
	SignAndSubmit(ctx context.Context, payload domain.TransactionPayload) (wallet.SubmitResult, error)
}

type confirmer interface {
	TransactionStatus(ctx context.Context, hash string) (domain.TxStatus, error)
}

type txStore interface {
	AddTransaction(rec domain.TransactionRecord) error
	UpdateTransaction(hash string, update domain.TransactionUpdate) (bool, error)
	Transaction(hash string) (domain.TransactionRecord, bool)
	SetLoading(loading bool)
	SetError(message string)
}

// Service executes lending operations for the connected wallet.
type Service struct {
	builder   payloadBuilder
	signer    signer
	confirmer confirmer
	store     txStore

	confirmTimeout time.Duration
	pollInterval   time.Duration
	now            func() time.Time

	l *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfirmTimeout bounds how long a submitted transaction is polled.
func WithConfirmTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.confirmTimeout = d
		}
	}
}

// WithPollInterval sets the delay between confirmation polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewService wires a lending service.
func NewService(builder payloadBuilder, signer signer, confirmer confirmer, store txStore, l *zap.Logger, opts ...Option) *Service {
	if l == nil {
		l = zap.NewNop()
	}

	s := &Service{
		builder:        builder,
		signer:         signer,
		confirmer:      confirmer,
		store:          store,
		confirmTimeout: defaultConfirmTimeout,
		pollInterval:   defaultPollInterval,
		now:            time.Now,
		l:              l,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Supply deposits amount of token into the pool.
func (s *Service) Supply(ctx context.Context, token, amount string) (domain.TransactionRecord, error) {
	return s.Execute(ctx, domain.OperationSupply, token, amount)
}

// Withdraw takes amount of token out of the pool.
func (s *Service) Withdraw(ctx context.Context, token, amount string) (domain.TransactionRecord, error) {
	return s.Execute(ctx, domain.OperationWithdraw, token, amount)
}

// Borrow borrows amount of token against supplied collateral.
func (s *Service) Borrow(ctx context.Context, token, amount string) (domain.TransactionRecord, error) {
	return s.Execute(ctx, domain.OperationBorrow, token, amount)
}

// Repay pays back amount of borrowed token.
func (s *Service) Repay(ctx context.Context, token, amount string) (domain.TransactionRecord, error) {
	return s.Execute(ctx, domain.OperationRepay, token, amount)
}

// Execute runs one operation. The returned record reflects the last status written to the store.
// Wallet and network errors leave the record pending; use Resolve or Abandon to settle it.
func (s *Service) Execute(ctx context.Context, kind domain.OperationKind, token, amount string) (domain.TransactionRecord, error) {
	if !s.signer.IsConnected() {
		return domain.TransactionRecord{}, domain.ErrWalletNotConnected
	}

	payload, err := s.builder.Build(kind, amount)
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	units, err := domain.ParseUnits(payload.FunctionArguments[len(payload.FunctionArguments)-1])
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	rec, err := domain.NewPendingTransaction(placeholderPrefix+uuid.NewString(), kind, token, units, s.now())
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	if err := s.store.AddTransaction(rec); err != nil {
		return rec, errors.Wrap(err, "record pending transaction")
	}

	logger := s.l.With(zap.String("operation", kind.String()), zap.String("token", token), zap.String("amount", amount))
	logger.Info("submitting transaction", zap.String("placeholder", rec.Hash))

	res, err := s.signer.SignAndSubmit(ctx, payload)
	if err != nil {
		logger.Error("transaction submission failed", zap.Error(err))
		s.store.SetError(errors.Wrapf(err, "%s %s", kind, token).Error())
		return rec, errors.Wrapf(err, "%s %s", kind, token)
	}

	if _, err := s.store.UpdateTransaction(rec.Hash, domain.HashUpdate(res.Hash, domain.TxStatusPending)); err != nil {
		return rec, err
	}
	rec.Hash = res.Hash

	return s.settle(ctx, rec, logger)
}

// Resolve polls a pending record again and writes its final status.
func (s *Service) Resolve(ctx context.Context, hash string) (domain.TransactionRecord, error) {
	rec, ok := s.store.Transaction(hash)
	if !ok {
		return domain.TransactionRecord{}, errors.Wrap(ErrUnknownTransaction, hash)
	}
	if rec.Status.IsTerminal() {
		return rec, nil
	}
	if isPlaceholder(rec.Hash) {
		return rec, errors.Wrap(ErrNotSubmitted, hash)
	}

	return s.settle(ctx, rec, s.l.With(zap.String("hash", hash)))
}

// Abandon marks a pending record as failed without asking the network.
func (s *Service) Abandon(hash string) (domain.TransactionRecord, error) {
	found, err := s.store.UpdateTransaction(hash, domain.StatusUpdate(domain.TxStatusFailed))
	if err != nil {
		return domain.TransactionRecord{}, err
	}
	if !found {
		return domain.TransactionRecord{}, errors.Wrap(ErrUnknownTransaction, hash)
	}

	rec, _ := s.store.Transaction(hash)
	return rec, nil
}

func (s *Service) settle(ctx context.Context, rec domain.TransactionRecord, logger *zap.Logger) (domain.TransactionRecord, error) {
	status, err := s.awaitConfirmation(ctx, rec.Hash)
	if err != nil {
		logger.Warn("transaction left pending", zap.String("hash", rec.Hash), zap.Error(err))
		s.store.SetError(err.Error())
		return rec, err
	}

	if _, err := s.store.UpdateTransaction(rec.Hash, domain.StatusUpdate(status)); err != nil {
		return rec, err
	}
	rec.Status = status

	if status == domain.TxStatusFailed {
		logger.Warn("transaction failed", zap.String("hash", rec.Hash))
		s.store.SetError(ErrTransactionFailed.Error())
		return rec, errors.Wrap(ErrTransactionFailed, rec.Hash)
	}

	logger.Info("transaction confirmed", zap.String("hash", rec.Hash))
	s.store.SetError("")

	return rec, nil
}

func (s *Service) awaitConfirmation(ctx context.Context, hash string) (domain.TxStatus, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	r := retrier.New(
		retrier.WithInitialInterval(s.pollInterval),
		retrier.WithMaxInterval(s.pollInterval),
		retrier.WithMultiplier(1),
		retrier.WithJitter(0),
		retrier.WithMaxRetries(int(s.confirmTimeout/s.pollInterval)+1),
		retrier.WithRetryIf(retryable),
	)

	status, err := retrier.DoWithData(r, pollCtx, func(ctx context.Context) (domain.TxStatus, error) {
		status, err := s.confirmer.TransactionStatus(ctx, hash)
		if err != nil {
			return "", err
		}
		if status == domain.TxStatusPending {
			return "", errStillPending
		}
		return status, nil
	})
	if err == nil {
		return status, nil
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || retryable(err) {
		return "", errors.Wrap(ErrConfirmationTimeout, hash)
	}

	return "", errors.Wrapf(err, "confirm %s", hash)
}

// retryable errors mean the transaction may still land: not indexed yet or the node hiccuped.
func retryable(err error) bool {
	return errors.Is(err, errStillPending) ||
		errors.Is(err, clients.ErrTransactionNotFound) ||
		errors.Is(err, clients.ErrNodeRequest)
}

func isPlaceholder(hash string) bool {
	return hash == domain.PendingHash || strings.HasPrefix(hash, placeholderPrefix)
}
