package lending

import (
	"math/big"
)

// PauseFlags is the bit-packed per-market action switch set. Callers go
// through the named accessors rather than the raw bits.
type PauseFlags uint8

const (
	// PauseSupply halts new deposits into the market.
	PauseSupply PauseFlags = 1 << iota
	// PauseBorrow halts new borrows from the market.
	PauseBorrow
	// PauseTransfer halts share transfers, which also makes the market
	// unseizable during liquidation.
	PauseTransfer
)

// IsSupplyPaused reports whether deposits are halted.
func (p PauseFlags) IsSupplyPaused() bool { return p&PauseSupply != 0 }

// IsBorrowPaused reports whether borrows are halted.
func (p PauseFlags) IsBorrowPaused() bool { return p&PauseBorrow != 0 }

// IsTransferPaused reports whether share transfers are halted.
func (p PauseFlags) IsTransferPaused() bool { return p&PauseTransfer != 0 }

// With returns the flag set with the supplied flags raised.
func (p PauseFlags) With(flags PauseFlags) PauseFlags { return p | flags }

// Without returns the flag set with the supplied flags cleared.
func (p PauseFlags) Without(flags PauseFlags) PauseFlags { return p &^ flags }

// MarketConfig holds the admin-owned, rarely mutated risk parameters for one
// market. Factor values are wad-scaled.
type MarketConfig struct {
	// Listed marks the market as active. Delisted markets reject every
	// operation but retain their ledger state.
	Listed bool
	// Pauses is the bit-packed supply/borrow/transfer switch set.
	Pauses PauseFlags
	// CollateralFactor weights supplied value in the solvency check.
	CollateralFactor *big.Int
	// LiquidationThreshold weights supplied value in the liquidatable
	// check. Must be at least the collateral factor, giving positions a
	// buffer between losing borrow capacity and becoming seizable.
	LiquidationThreshold *big.Int
	// LiquidationBonus is the >= 1e18 multiplier applied to seized
	// collateral as the liquidator incentive.
	LiquidationBonus *big.Int
	// ReserveFactor is the fraction of accrued interest diverted to
	// protocol reserves.
	ReserveFactor *big.Int
	// ReceiptTokenSymbol and DebtTokenSymbol name the read-through token
	// views exposed over this market.
	ReceiptTokenSymbol string
	DebtTokenSymbol    string
	// RateModel prices borrows for this market. Pure and swappable.
	RateModel RateModel
	// SupplyCap bounds the underlying value of all outstanding supply
	// shares. Zero means uncapped.
	SupplyCap *big.Int
	// BorrowCap bounds total outstanding borrow. Zero means uncapped.
	BorrowCap *big.Int
	// InitialExchangeRate seeds share conversion while the market has no
	// shares, conventionally 10^underlyingDecimals.
	InitialExchangeRate *big.Int
	// Protected marks wrapped/protected assets that cannot be borrowed.
	Protected bool
}

// Clone returns a deep copy of the configuration. The rate model reference is
// shared; models are pure by contract.
func (c *MarketConfig) Clone() *MarketConfig {
	if c == nil {
		return nil
	}
	return &MarketConfig{
		Listed:               c.Listed,
		Pauses:               c.Pauses,
		CollateralFactor:     cloneBig(c.CollateralFactor),
		LiquidationThreshold: cloneBig(c.LiquidationThreshold),
		LiquidationBonus:     cloneBig(c.LiquidationBonus),
		ReserveFactor:        cloneBig(c.ReserveFactor),
		ReceiptTokenSymbol:   c.ReceiptTokenSymbol,
		DebtTokenSymbol:      c.DebtTokenSymbol,
		RateModel:            c.RateModel,
		SupplyCap:            cloneBig(c.SupplyCap),
		BorrowCap:            cloneBig(c.BorrowCap),
		InitialExchangeRate:  cloneBig(c.InitialExchangeRate),
		Protected:            c.Protected,
	}
}

// Validate enforces the configuration invariants: collateral factor within
// the liquidation threshold, threshold times bonus within 100%, reserve
// factor within 100%, and a positive initial exchange rate.
func (c *MarketConfig) Validate() error {
	if c == nil {
		return errInvalidConfig
	}
	collateral := bigOrZero(c.CollateralFactor)
	threshold := bigOrZero(c.LiquidationThreshold)
	bonus := bigOrZero(c.LiquidationBonus)
	reserve := bigOrZero(c.ReserveFactor)
	if collateral.Cmp(wad) > 0 || threshold.Cmp(wad) > 0 {
		return errInvalidConfig
	}
	if collateral.Cmp(threshold) > 0 {
		return errInvalidConfig
	}
	if threshold.Sign() > 0 {
		if bonus.Cmp(wad) < 0 {
			return errInvalidConfig
		}
		if wadMul(threshold, bonus).Cmp(wad) > 0 {
			return errInvalidConfig
		}
	}
	if reserve.Cmp(wad) > 0 {
		return errInvalidConfig
	}
	if c.InitialExchangeRate == nil || c.InitialExchangeRate.Sign() <= 0 {
		return errInvalidConfig
	}
	if c.SupplyCap != nil && c.SupplyCap.Sign() < 0 {
		return errInvalidConfig
	}
	if c.BorrowCap != nil && c.BorrowCap.Sign() < 0 {
		return errInvalidConfig
	}
	return nil
}

// seizable reports whether collateral in this market may be seized during a
// liquidation: transfers must be live and a liquidation threshold configured.
func (c *MarketConfig) seizable() bool {
	if c == nil {
		return false
	}
	if c.Pauses.IsTransferPaused() {
		return false
	}
	return c.LiquidationThreshold != nil && c.LiquidationThreshold.Sign() > 0
}
