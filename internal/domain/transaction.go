package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PendingHash is the placeholder hash a record carries before the wallet returns the real one.
const PendingHash = "pending"

// MaxTransactions is how many records the store retains, most recent first.
const MaxTransactions = 50

// ErrInvalidTransition is returned when an update would move a record out of a terminal status.
var ErrInvalidTransition = errors.New("invalid transaction status transition")

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

// IsValid checks if the TxStatus value is valid.
func (s TxStatus) IsValid() bool {
	return s == TxStatusPending || s == TxStatusSuccess || s == TxStatusFailed
}

// IsTerminal reports whether no further transitions are allowed.
func (s TxStatus) IsTerminal() bool {
	return s == TxStatusSuccess || s == TxStatusFailed
}

// CanTransitionTo allows pending -> success|failed and same-status rewrites.
func (s TxStatus) CanTransitionTo(next TxStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	return s == TxStatusPending && next.IsTerminal()
}

// TransactionRecord is one entry of the client transaction history.
type TransactionRecord struct {
	Hash string        `json:"hash"`
	Type OperationKind `json:"type"`
	// Token symbol, e.g. CEDRA.
	Token string `json:"token"`
	// Amount in integer smallest units.
	Amount decimal.Decimal `json:"amount"`
	// Timestamp in epoch milliseconds.
	Timestamp int64    `json:"timestamp"`
	Status    TxStatus `json:"status"`
}

// NewPendingTransaction creates a record in the pending state.
func NewPendingTransaction(hash string, kind OperationKind, token string, amount decimal.Decimal, at time.Time) (TransactionRecord, error) {
	if hash == "" {
		return TransactionRecord{}, errors.New("transaction hash is required")
	}
	if !kind.IsValid() {
		return TransactionRecord{}, fmt.Errorf("unknown operation %d", int(kind))
	}
	if err := validateRecordAmount(amount); err != nil {
		return TransactionRecord{}, err
	}

	return TransactionRecord{
		Hash:      hash,
		Type:      kind,
		Token:     token,
		Amount:    amount,
		Timestamp: at.UnixMilli(),
		Status:    TxStatusPending,
	}, nil
}

// String returns a human-readable string representation.
func (r TransactionRecord) String() string {
	return fmt.Sprintf("%s %s %s %s [%s]", r.Hash, r.Type.String(), r.Amount.String(), r.Token, r.Status)
}

// TransactionUpdate is a partial record; nil fields are left untouched.
type TransactionUpdate struct {
	Hash   *string
	Status *TxStatus
	Amount *decimal.Decimal
}

// Apply merges the update into a copy of r.
func (u TransactionUpdate) Apply(r TransactionRecord) (TransactionRecord, error) {
	if u.Status != nil {
		if !r.Status.CanTransitionTo(*u.Status) {
			return r, errors.Wrapf(ErrInvalidTransition, "%s -> %s", r.Status, *u.Status)
		}
		r.Status = *u.Status
	}
	if u.Hash != nil {
		if *u.Hash == "" {
			return r, errors.New("transaction hash is required")
		}
		r.Hash = *u.Hash
	}
	if u.Amount != nil {
		if err := validateRecordAmount(*u.Amount); err != nil {
			return r, err
		}
		r.Amount = *u.Amount
	}

	return r, nil
}

func validateRecordAmount(amount decimal.Decimal) error {
	if amount.IsNegative() || !amount.IsInteger() {
		return errors.Wrapf(ErrInvalidAmount, "record amount %s", amount.String())
	}
	return nil
}

// HashUpdate rewrites the record key, e.g. when the real hash replaces a placeholder.
func HashUpdate(hash string, status TxStatus) TransactionUpdate {
	return TransactionUpdate{Hash: &hash, Status: &status}
}

// StatusUpdate transitions the record status.
func StatusUpdate(status TxStatus) TransactionUpdate {
	return TransactionUpdate{Status: &status}
}
