package lending

import "errors"

var (
	// Wiring.
	errNilState  = errors.New("lending engine: state not configured")
	errNilOracle = errors.New("lending engine: price oracle not configured")

	// Authorization.
	errNotAuthorized = errors.New("lending engine: caller not authorized for account")
	errNotAdmin      = errors.New("lending engine: caller is not the configurator")

	// Market state.
	errMarketNotListed     = errors.New("lending engine: market not listed")
	errMarketAlreadyListed = errors.New("lending engine: market already listed")
	errSupplyPaused        = errors.New("lending engine: supply paused")
	errBorrowPaused        = errors.New("lending engine: borrow paused")
	errTransferPaused      = errors.New("lending engine: transfer paused")
	errMarketNotSeizable   = errors.New("lending engine: collateral market not seizable")
	errAssetProtected      = errors.New("lending engine: protected asset cannot be borrowed")

	// Capacity.
	errSupplyCapReached = errors.New("lending engine: supply cap reached")
	errBorrowCapReached = errors.New("lending engine: borrow cap reached")

	// Insufficient funds.
	errInvalidAmount        = errors.New("lending engine: amount must be positive")
	errInsufficientBalance  = errors.New("lending engine: insufficient balance")
	errInsufficientCash     = errors.New("lending engine: insufficient pool cash")
	errInsufficientShares   = errors.New("lending engine: insufficient supply shares")
	errInsufficientReserves = errors.New("lending engine: insufficient reserve shares")

	// Solvency.
	errInsufficientCollateral = errors.New("lending engine: insufficient collateral")
	errCreditLimitExceeded    = errors.New("lending engine: credit limit exceeded")
	errNotLiquidatable        = errors.New("lending engine: borrower not eligible for liquidation")

	// Protocol misuse.
	errReentry            = errors.New("lending engine: reentrant call")
	errDeferReentry       = errors.New("lending engine: liquidity check already deferred")
	errRepayTooMuch       = errors.New("lending engine: repay exceeds outstanding debt")
	errSelfLiquidation    = errors.New("lending engine: cannot liquidate own position")
	errSelfTransfer       = errors.New("lending engine: cannot transfer shares to self")
	errCreditAccount      = errors.New("lending engine: operation not permitted for credit account")
	errCreditBorrowTarget = errors.New("lending engine: credit account must borrow to itself")
	errCreditRepayTarget  = errors.New("lending engine: credit account debt repayable only by itself")
	errNilCallback        = errors.New("lending engine: deferred check requires a callback")

	// Oracle and configuration.
	errInvalidPrice  = errors.New("lending engine: oracle returned non-positive price")
	errInvalidConfig = errors.New("lending engine: invalid market configuration")
)
