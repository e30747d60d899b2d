package lending

import "math/big"

// Read-only surface over the ledger. None of these mutate state: markets are
// virtually accrued so reported values are current.

// GetExchangeRate returns the current underlying-per-share rate for the
// market.
func (e *Engine) GetExchangeRate(assetID string) (*big.Int, error) {
	market, config := e.accruedView(assetID)
	if market == nil {
		return nil, errMarketNotListed
	}
	return exchangeRate(market, config), nil
}

// GetSupplyBalance returns the underlying value of the user's supply shares.
func (e *Engine) GetSupplyBalance(user Address, assetID string) (*big.Int, error) {
	market, config := e.accruedView(assetID)
	if market == nil {
		return nil, errMarketNotListed
	}
	shares := e.state.SupplyShares(market.AssetID, user)
	return wadMul(shares, exchangeRate(market, config)), nil
}

// GetSupplyShares returns the user's raw share balance.
func (e *Engine) GetSupplyShares(user Address, assetID string) *big.Int {
	return cloneBig(e.state.SupplyShares(NormalizeAssetID(assetID), user))
}

// GetBorrowBalance returns the user's current index-adjusted debt.
func (e *Engine) GetBorrowBalance(user Address, assetID string) (*big.Int, error) {
	market, _ := e.accruedView(assetID)
	if market == nil {
		return nil, errMarketNotListed
	}
	return e.state.UserBorrowSnapshot(market.AssetID, user).currentDebt(market.BorrowIndex), nil
}

// GetAccountLiquidity returns the collateral-factor-weighted collateral value
// and raw debt value across the user's entered markets.
func (e *Engine) GetAccountLiquidity(user Address) (AccountLiquidity, error) {
	return e.solvency(user)
}

// IsUserLiquidatable reports whether the user's debt exceeds their
// liquidation-threshold-weighted collateral.
func (e *Engine) IsUserLiquidatable(user Address) (bool, error) {
	if e.state.IsCreditAccount(user) {
		return false, nil
	}
	liquidity, err := e.liquidationValuation(user)
	if err != nil {
		return false, err
	}
	return liquidity.DebtValue.Cmp(liquidity.CollateralValue) > 0, nil
}

// GetMarketSnapshot returns a copy of the market's hot state as stored,
// without accrual.
func (e *Engine) GetMarketSnapshot(assetID string) (*Market, error) {
	market := e.state.Market(assetID)
	if market == nil {
		return nil, errMarketNotListed
	}
	return market.Clone(), nil
}

// EnteredMarkets returns the markets counted in the user's liquidity
// calculations.
func (e *Engine) EnteredMarkets(user Address) []string {
	return e.state.EnteredMarkets(user)
}

// BalanceView is the token-like read surface shared by the receipt and debt
// views. Both delegate every read to the ledger and hold no state of their
// own.
type BalanceView interface {
	Symbol() string
	BalanceOf(user Address) (*big.Int, error)
	TotalSupply() (*big.Int, error)
}

// ReceiptToken exposes a market's supply side under a token-like interface:
// balances are the underlying value of the holder's shares.
type ReceiptToken struct {
	engine  *Engine
	assetID string
}

// NewReceiptToken constructs the receipt view for the market.
func NewReceiptToken(engine *Engine, assetID string) *ReceiptToken {
	return &ReceiptToken{engine: engine, assetID: NormalizeAssetID(assetID)}
}

func (t *ReceiptToken) Symbol() string {
	if config := t.engine.state.Config(t.assetID); config != nil && config.ReceiptTokenSymbol != "" {
		return config.ReceiptTokenSymbol
	}
	return "r" + t.assetID
}

func (t *ReceiptToken) BalanceOf(user Address) (*big.Int, error) {
	return t.engine.GetSupplyBalance(user, t.assetID)
}

func (t *ReceiptToken) TotalSupply() (*big.Int, error) {
	market, config := t.engine.accruedView(t.assetID)
	if market == nil {
		return nil, errMarketNotListed
	}
	return wadMul(market.TotalSupplyShares, exchangeRate(market, config)), nil
}

// DebtToken exposes a market's borrow side under the same interface:
// balances are current index-adjusted debt.
type DebtToken struct {
	engine  *Engine
	assetID string
}

// NewDebtToken constructs the debt view for the market.
func NewDebtToken(engine *Engine, assetID string) *DebtToken {
	return &DebtToken{engine: engine, assetID: NormalizeAssetID(assetID)}
}

func (t *DebtToken) Symbol() string {
	if config := t.engine.state.Config(t.assetID); config != nil && config.DebtTokenSymbol != "" {
		return config.DebtTokenSymbol
	}
	return "d" + t.assetID
}

func (t *DebtToken) BalanceOf(user Address) (*big.Int, error) {
	return t.engine.GetBorrowBalance(user, t.assetID)
}

func (t *DebtToken) TotalSupply() (*big.Int, error) {
	market, _ := t.engine.accruedView(t.assetID)
	if market == nil {
		return nil, errMarketNotListed
	}
	return cloneBig(market.TotalBorrow), nil
}
