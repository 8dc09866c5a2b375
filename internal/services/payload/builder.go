// Package payload builds entry and view function payloads for the aegis lending pool.
package payload

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/internal/domain"
)

const (
	poolModule = "pool"

	viewPoolInfo     = "get_pool_info"
	viewUserDeposits = "get_user_deposits"

	transferFunction = "0x1::cedra_account::transfer"
)

// Builder produces canonical call descriptors for a single pool and coin type.
type Builder struct {
	poolAddress string
	coinType    string
	decimals    int32
	l           *zap.Logger
}

// NewBuilder validates the pool address and returns a builder.
// The pool address is used exactly as configured in function ids and arguments.
func NewBuilder(poolAddress, coinType string, decimals int32, l *zap.Logger) (*Builder, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if _, err := domain.PadAddress(poolAddress); err != nil {
		return nil, errors.Wrap(err, "pool address")
	}
	if coinType == "" {
		return nil, errors.New("coin type is required")
	}
	if decimals < 0 {
		return nil, fmt.Errorf("decimals must be non-negative, got %d", decimals)
	}

	return &Builder{
		poolAddress: poolAddress,
		coinType:    coinType,
		decimals:    decimals,
		l:           l,
	}, nil
}

// PoolAddress returns the configured pool address.
func (b *Builder) PoolAddress() string {
	return b.poolAddress
}

// CoinType returns the configured coin type.
func (b *Builder) CoinType() string {
	return b.coinType
}

// Decimals returns the coin exponent.
func (b *Builder) Decimals() int32 {
	return b.decimals
}

// Build dispatches to the builder of the given operation.
func (b *Builder) Build(kind domain.OperationKind, amount string) (domain.TransactionPayload, error) {
	switch kind {
	case domain.OperationSupply:
		return b.BuildSupply(amount)
	case domain.OperationWithdraw:
		return b.BuildWithdraw(amount)
	case domain.OperationBorrow:
		return b.BuildBorrow(amount)
	case domain.OperationRepay:
		return b.BuildRepay(amount)
	default:
		return domain.TransactionPayload{}, fmt.Errorf("unknown operation: %s", kind)
	}
}

// BuildSupply calls <pool>::pool::supply.
func (b *Builder) BuildSupply(amount string) (domain.TransactionPayload, error) {
	return b.poolCall(domain.OperationSupply, amount)
}

// BuildWithdraw calls <pool>::pool::withdraw.
func (b *Builder) BuildWithdraw(amount string) (domain.TransactionPayload, error) {
	return b.poolCall(domain.OperationWithdraw, amount)
}

// BuildBorrow calls <pool>::pool::borrow.
func (b *Builder) BuildBorrow(amount string) (domain.TransactionPayload, error) {
	return b.poolCall(domain.OperationBorrow, amount)
}

// BuildRepay calls <pool>::pool::repay.
func (b *Builder) BuildRepay(amount string) (domain.TransactionPayload, error) {
	return b.poolCall(domain.OperationRepay, amount)
}

// BuildTransfer moves native coin to recipient.
func (b *Builder) BuildTransfer(recipient, amount string) (domain.TransactionPayload, error) {
	to, err := domain.PadAddress(recipient)
	if err != nil {
		return domain.TransactionPayload{}, errors.Wrap(err, "recipient")
	}
	units, err := domain.ToSmallestUnit(amount, b.decimals)
	if err != nil {
		return domain.TransactionPayload{}, errors.Wrap(err, "build transfer")
	}

	return domain.TransactionPayload{
		Function:          transferFunction,
		TypeArguments:     []string{},
		FunctionArguments: []string{to, units.String()},
	}, nil
}

// PoolInfoView reads [totalSupply, totalBorrowed, utilizationRate].
func (b *Builder) PoolInfoView() domain.TransactionPayload {
	return domain.TransactionPayload{
		Function:          domain.FunctionID(b.poolAddress, poolModule, viewPoolInfo),
		TypeArguments:     []string{b.coinType},
		FunctionArguments: []string{},
	}
}

// UserDepositsView reads the deposited smallest units of user.
func (b *Builder) UserDepositsView(user string) (domain.TransactionPayload, error) {
	addr, err := domain.PadAddress(user)
	if err != nil {
		return domain.TransactionPayload{}, errors.Wrap(err, "user")
	}

	return domain.TransactionPayload{
		Function:          domain.FunctionID(b.poolAddress, poolModule, viewUserDeposits),
		TypeArguments:     []string{b.coinType},
		FunctionArguments: []string{addr},
	}, nil
}

func (b *Builder) poolCall(kind domain.OperationKind, amount string) (domain.TransactionPayload, error) {
	units, err := domain.ToSmallestUnit(amount, b.decimals)
	if err != nil {
		return domain.TransactionPayload{}, errors.Wrapf(err, "build %s", kind)
	}

	b.l.Debug("building pool transaction",
		zap.String("operation", kind.String()),
		zap.String("pool", b.poolAddress),
		zap.String("amount", amount),
		zap.String("smallest_unit", units.String()))

	return domain.TransactionPayload{
		Function:          domain.FunctionID(b.poolAddress, poolModule, kind.String()),
		TypeArguments:     []string{b.coinType},
		FunctionArguments: []string{b.poolAddress, units.String()},
	}, nil
}
