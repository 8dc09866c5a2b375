package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// MarketData is a lending market snapshot. Totals are in smallest units.
type MarketData struct {
	TokenAddress         string          `json:"tokenAddress"`
	Symbol               string          `json:"symbol"`
	Decimals             int32           `json:"decimals"`
	TotalSupply          decimal.Decimal `json:"totalSupply"`
	TotalBorrow          decimal.Decimal `json:"totalBorrow"`
	SupplyAPY            decimal.Decimal `json:"supplyAPY"`
	BorrowAPR            decimal.Decimal `json:"borrowAPR"`
	UtilizationRate      decimal.Decimal `json:"utilizationRate"`
	CollateralFactor     decimal.Decimal `json:"collateralFactor"`
	LiquidationThreshold decimal.Decimal `json:"liquidationThreshold"`
}

// UserPosition aggregates a user's supplied and borrowed value.
type UserPosition struct {
	TotalSupplied     decimal.Decimal `json:"totalSupplied"`
	TotalBorrowed     decimal.Decimal `json:"totalBorrowed"`
	HealthFactor      decimal.Decimal `json:"healthFactor"`
	AvailableToBorrow decimal.Decimal `json:"availableToBorrow"`
	NetAPY            decimal.Decimal `json:"netAPY"`
}

// PoolInfo is the decoded result of the pool::get_pool_info view.
type PoolInfo struct {
	TotalSupply     decimal.Decimal `json:"totalSupply"`
	TotalBorrowed   decimal.Decimal `json:"totalBorrowed"`
	UtilizationRate decimal.Decimal `json:"utilizationRate"`
}

// ParsePoolInfo decodes the ordered view result [totalSupply, totalBorrowed, utilizationRate].
func ParsePoolInfo(result []string) (PoolInfo, error) {
	if len(result) < 3 {
		return PoolInfo{}, fmt.Errorf("pool info: expected 3 values, got %d", len(result))
	}

	values := make([]decimal.Decimal, 3)
	for i := range values {
		v, err := decimal.NewFromString(result[i])
		if err != nil {
			return PoolInfo{}, errors.Wrapf(err, "pool info value %d", i)
		}
		values[i] = v
	}

	return PoolInfo{TotalSupply: values[0], TotalBorrowed: values[1], UtilizationRate: values[2]}, nil
}

var hundred = decimal.NewFromInt(100)

// UtilizationRate returns borrowed/supplied in percent, zero for an empty pool.
func UtilizationRate(totalSupply, totalBorrow decimal.Decimal) decimal.Decimal {
	if !totalSupply.IsPositive() {
		return decimal.Zero
	}
	return totalBorrow.Div(totalSupply).Mul(hundred)
}

// SupplyAPY derives the supplier rate from the borrow rate and utilization (both percent).
func SupplyAPY(borrowAPR, utilization decimal.Decimal) decimal.Decimal {
	return borrowAPR.Mul(utilization).Div(hundred)
}

// HealthFactor is collateral value * liquidation threshold / debt value.
// A position without debt has no liquidation risk and reports ok=false.
func HealthFactor(collateralValue, liquidationThreshold, debtValue decimal.Decimal) (hf decimal.Decimal, ok bool) {
	if !debtValue.IsPositive() {
		return decimal.Zero, false
	}
	return collateralValue.Mul(liquidationThreshold).Div(debtValue), true
}

// AvailableToBorrow is collateral value * collateral factor minus existing debt, floored at zero.
func AvailableToBorrow(collateralValue, collateralFactor, debtValue decimal.Decimal) decimal.Decimal {
	available := collateralValue.Mul(collateralFactor).Sub(debtValue)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// IsValid checks if the Theme value is valid.
func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}
