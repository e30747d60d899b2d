package lending

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Market captures the hot accounting state for a single listed asset. Amount
// values are denominated in the asset's smallest unit and expressed as big
// integers to keep wad arithmetic exact. The struct is owned exclusively by
// the ledger; every mutation flows through accrual or one of the core
// operations.
type Market struct {
	// AssetID identifies the underlying asset this market lends.
	AssetID string
	// TotalCash is the underlying currently held by the pool vault.
	TotalCash *big.Int
	// TotalBorrow tracks the outstanding underlying borrowed across all
	// accounts, including accrued interest.
	TotalBorrow *big.Int
	// TotalSupplyShares is the aggregate deposit receipt supply.
	TotalSupplyShares *big.Int
	// TotalReserveShares is the protocol-owned share of the pool accrued
	// from the reserve factor.
	TotalReserveShares *big.Int
	// BorrowIndex is the cumulative compounding multiplier applied to
	// borrower debt. Starts at 1e18.
	BorrowIndex *big.Int
	// LastUpdateTimestamp records the unix second when interest was last
	// accrued.
	LastUpdateTimestamp int64
}

// Clone returns a deep copy of the market.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	return &Market{
		AssetID:             m.AssetID,
		TotalCash:           cloneBig(m.TotalCash),
		TotalBorrow:         cloneBig(m.TotalBorrow),
		TotalSupplyShares:   cloneBig(m.TotalSupplyShares),
		TotalReserveShares:  cloneBig(m.TotalReserveShares),
		BorrowIndex:         cloneBig(m.BorrowIndex),
		LastUpdateTimestamp: m.LastUpdateTimestamp,
	}
}

// UserBorrow snapshots a borrower's debt in one market. The live debt is
// BorrowBalance scaled by the ratio of the market's current borrow index to
// the snapshot index. Created on first borrow, zeroed on full repay, never
// deleted.
type UserBorrow struct {
	BorrowBalance *big.Int
	BorrowIndex   *big.Int
}

// Clone returns a deep copy of the borrow snapshot.
func (b *UserBorrow) Clone() *UserBorrow {
	if b == nil {
		return nil
	}
	return &UserBorrow{
		BorrowBalance: cloneBig(b.BorrowBalance),
		BorrowIndex:   cloneBig(b.BorrowIndex),
	}
}

// currentDebt resolves the snapshot against the market's present borrow
// index, rounding up so dust debt is never forgiven by rounding.
func (b *UserBorrow) currentDebt(marketIndex *big.Int) *big.Int {
	if b == nil || b.BorrowBalance == nil || b.BorrowBalance.Sign() == 0 {
		return big.NewInt(0)
	}
	if b.BorrowIndex == nil || b.BorrowIndex.Sign() == 0 || marketIndex == nil {
		return cloneBig(b.BorrowBalance)
	}
	numerator := new(big.Int).Mul(b.BorrowBalance, marketIndex)
	quotient, remainder := new(big.Int).QuoRem(numerator, b.BorrowIndex, new(big.Int))
	if remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient
}

// AccountLiquidity reports the weighted collateral and raw debt valuations of
// a user's entered markets, both in 1e18-scaled USD.
type AccountLiquidity struct {
	CollateralValue *big.Int
	DebtValue       *big.Int
}

// Shortfall reports how far debt exceeds weighted collateral, or zero when
// the account is solvent.
func (l AccountLiquidity) Shortfall() *big.Int {
	if l.DebtValue == nil || l.CollateralValue == nil {
		return big.NewInt(0)
	}
	diff := new(big.Int).Sub(l.DebtValue, l.CollateralValue)
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}

// liquidityStatus is the transient per-user deferred-check state. Outside an
// active call every user is statusNormal.
type liquidityStatus uint8

const (
	statusNormal liquidityStatus = iota
	statusDeferred
	statusDirty
)

// DeferredLiquidityCheck is implemented by callers of DeferLiquidityCheck.
// The callback runs synchronously inside the deferred window; any ledger
// operation it performs against the deferred user is solvency-checked once,
// when the window closes.
type DeferredLiquidityCheck interface {
	OnDeferredLiquidityCheck(data []byte) error
}

// Address is the account identifier used throughout the ledger.
type Address = common.Address
