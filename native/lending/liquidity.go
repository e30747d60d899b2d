package lending

import "math/big"

// accountValuation walks the user's entered markets once, valuing supplied
// shares weighted by the supplied factor selector and debt at raw oracle
// value. Markets are virtually accrued so the figures are current without
// mutating state. Any non-positive oracle price aborts the valuation.
func (e *Engine) accountValuation(user Address, weight func(*MarketConfig) *big.Int) (AccountLiquidity, error) {
	liquidity := AccountLiquidity{
		CollateralValue: big.NewInt(0),
		DebtValue:       big.NewInt(0),
	}
	if e.oracle == nil {
		return liquidity, errNilOracle
	}
	for _, assetID := range e.state.EnteredMarkets(user) {
		market, config := e.accruedView(assetID)
		if market == nil {
			continue
		}
		price, err := e.oracle.GetPrice(assetID)
		if err != nil {
			return liquidity, err
		}
		if price == nil || price.Sign() <= 0 {
			return liquidity, errInvalidPrice
		}
		shares := e.state.SupplyShares(assetID, user)
		if shares.Sign() > 0 {
			underlying := wadMul(shares, exchangeRate(market, config))
			value := wadMul(underlying, price)
			liquidity.CollateralValue.Add(liquidity.CollateralValue, wadMul(value, bigOrZero(weight(config))))
		}
		debt := e.state.UserBorrowSnapshot(assetID, user).currentDebt(market.BorrowIndex)
		if debt.Sign() > 0 {
			liquidity.DebtValue.Add(liquidity.DebtValue, wadMul(debt, price))
		}
	}
	return liquidity, nil
}

// solvency values collateral with the collateral factor; it gates borrows,
// redemptions and share transfers.
func (e *Engine) solvency(user Address) (AccountLiquidity, error) {
	return e.accountValuation(user, func(c *MarketConfig) *big.Int { return c.CollateralFactor })
}

// liquidationValuation values collateral with the liquidation threshold. A
// position can fail the solvency test while still clearing this one, which
// gives borrowers a buffer before becoming seizable.
func (e *Engine) liquidationValuation(user Address) (AccountLiquidity, error) {
	return e.accountValuation(user, func(c *MarketConfig) *big.Int { return c.LiquidationThreshold })
}

// checkAccountLiquidity runs the solvency check immediately, unless the
// user's checks are deferred, in which case the pending check is marked dirty
// and evaluated once when the deferred window closes.
func (e *Engine) checkAccountLiquidity(user Address) error {
	if e.statuses[user] != statusNormal {
		e.statuses[user] = statusDirty
		return nil
	}
	return e.checkAccountLiquidityNow(user)
}

func (e *Engine) checkAccountLiquidityNow(user Address) error {
	liquidity, err := e.solvency(user)
	if err != nil {
		return err
	}
	if liquidity.DebtValue.Cmp(liquidity.CollateralValue) > 0 {
		return errInsufficientCollateral
	}
	return nil
}

// DeferLiquidityCheck opens a single-level deferred window for the user,
// synchronously invokes the caller's callback, and evaluates the user's
// solvency exactly once when the callback returns, and only if an operation
// inside the window would otherwise have checked it. The whole window is one
// atomic unit: a failed final check discards every mutation made inside it.
// The callback may defer for a different user; re-entering for the same user
// fails fast. Credit accounts cannot defer.
func (e *Engine) DeferLiquidityCheck(user Address, callback DeferredLiquidityCheck, data []byte) error {
	if callback == nil {
		return errNilCallback
	}
	if e.state.IsCreditAccount(user) {
		return errCreditAccount
	}
	if e.statuses[user] != statusNormal {
		return errDeferReentry
	}
	err := e.run(func() error {
		e.statuses[user] = statusDeferred
		if cbErr := callback.OnDeferredLiquidityCheck(data); cbErr != nil {
			return cbErr
		}
		if e.statuses[user] == statusDirty {
			if checkErr := e.checkAccountLiquidityNow(user); checkErr != nil {
				return checkErr
			}
		}
		return nil
	})
	delete(e.statuses, user)
	if e.metrics != nil {
		e.metrics.RecordOperation("defer_liquidity_check", err)
	}
	return err
}
