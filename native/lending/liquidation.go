package lending

import "math/big"

// seizedShares sizes the collateral seizure for a repayment: the repaid value
// is marked up by the liquidation bonus, converted to collateral underlying
// by the price ratio, then to shares by the collateral exchange rate.
func seizedShares(repayAmount, bonus, priceBorrow, priceCollateral, rateCollateral *big.Int) *big.Int {
	numerator := wadMul(bonus, priceBorrow)
	denominator := wadMul(rateCollateral, priceCollateral)
	return mulDiv(repayAmount, numerator, denominator)
}

// Liquidate repays part of an underwater borrower's debt and seizes a
// bonus-weighted slice of their collateral shares. Liquidation is the unwind
// of insolvency rather than a new risk-taking action by the borrower, so no
// liquidity check runs afterward.
func (e *Engine) Liquidate(liquidator, borrower Address, borrowAssetID, collateralAssetID string, repayAmount *big.Int) error {
	return e.nonReentrant("liquidate", func() error {
		if repayAmount == nil || repayAmount.Sign() <= 0 {
			return errInvalidAmount
		}
		if liquidator == borrower {
			return errSelfLiquidation
		}
		if e.state.IsCreditAccount(borrower) {
			return errCreditAccount
		}

		borrowMarket, borrowConfig, err := e.accrue(borrowAssetID)
		if err != nil {
			return err
		}
		collateralMarket, collateralConfig, err := e.accrue(collateralAssetID)
		if err != nil {
			return err
		}
		if !borrowConfig.Listed || !collateralConfig.Listed {
			return errMarketNotListed
		}
		if !collateralConfig.seizable() {
			return errMarketNotSeizable
		}

		liquidity, err := e.liquidationValuation(borrower)
		if err != nil {
			return err
		}
		if liquidity.DebtValue.Cmp(liquidity.CollateralValue) <= 0 {
			return errNotLiquidatable
		}

		repaid, err := e.repayInternal(borrowMarket, liquidator, borrower, repayAmount)
		if err != nil {
			return err
		}
		if repaid.Sign() == 0 {
			return errRepayTooMuch
		}

		priceBorrow, err := e.requirePrice(borrowMarket.AssetID)
		if err != nil {
			return err
		}
		priceCollateral, err := e.requirePrice(collateralMarket.AssetID)
		if err != nil {
			return err
		}

		rateCollateral := exchangeRate(collateralMarket, collateralConfig)
		seized := seizedShares(repaid, collateralConfig.LiquidationBonus, priceBorrow, priceCollateral, rateCollateral)
		if seized.Sign() <= 0 {
			return errInvalidAmount
		}
		borrowerShares := e.state.SupplyShares(collateralMarket.AssetID, borrower)
		if borrowerShares.Cmp(seized) < 0 {
			return errInsufficientShares
		}

		remaining := new(big.Int).Sub(borrowerShares, seized)
		e.state.SetSupplyShares(collateralMarket.AssetID, borrower, remaining)
		e.state.SetSupplyShares(collateralMarket.AssetID, liquidator, new(big.Int).Add(e.state.SupplyShares(collateralMarket.AssetID, liquidator), seized))
		e.state.EnterMarket(liquidator, collateralMarket.AssetID)

		if remaining.Sign() == 0 {
			debt := e.state.UserBorrowSnapshot(collateralMarket.AssetID, borrower)
			if debt.currentDebt(collateralMarket.BorrowIndex).Sign() == 0 {
				e.state.ExitMarket(borrower, collateralMarket.AssetID)
			}
		}

		if recorder, ok := e.metrics.(LiquidationRecorder); ok {
			e.recordMetric(recorder.RecordLiquidation)
		}
		e.log().Info("liquidated position",
			"borrower", borrower.Hex(),
			"liquidator", liquidator.Hex(),
			"borrowAsset", borrowMarket.AssetID,
			"collateralAsset", collateralMarket.AssetID,
			"repaid", repaid.String(),
			"seizedShares", seized.String(),
		)
		e.emit(Liquidated{
			BorrowAssetID:     borrowMarket.AssetID,
			CollateralAssetID: collateralMarket.AssetID,
			Liquidator:        liquidator,
			Borrower:          borrower,
			RepayAmount:       repaid,
			SeizedShares:      seized,
		})
		return nil
	})
}

// requirePrice resolves the oracle price for the asset, rejecting missing or
// non-positive quotes.
func (e *Engine) requirePrice(assetID string) (*big.Int, error) {
	if e.oracle == nil {
		return nil, errNilOracle
	}
	price, err := e.oracle.GetPrice(assetID)
	if err != nil {
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, errInvalidPrice
	}
	return price, nil
}

// CalculateLiquidationOpportunity reports the collateral shares and
// underlying a liquidator would seize for repaying repayAmount, without
// mutating state.
func (e *Engine) CalculateLiquidationOpportunity(borrowAssetID, collateralAssetID string, repayAmount *big.Int) (shares, underlying *big.Int, err error) {
	if repayAmount == nil || repayAmount.Sign() < 0 {
		return nil, nil, errInvalidAmount
	}
	collateralMarket, collateralConfig := e.accruedView(collateralAssetID)
	if collateralMarket == nil {
		return nil, nil, errMarketNotListed
	}
	if e.state.Market(NormalizeAssetID(borrowAssetID)) == nil {
		return nil, nil, errMarketNotListed
	}
	priceBorrow, err := e.requirePrice(NormalizeAssetID(borrowAssetID))
	if err != nil {
		return nil, nil, err
	}
	priceCollateral, err := e.requirePrice(collateralMarket.AssetID)
	if err != nil {
		return nil, nil, err
	}
	rate := exchangeRate(collateralMarket, collateralConfig)
	shares = seizedShares(repayAmount, collateralConfig.LiquidationBonus, priceBorrow, priceCollateral, rate)
	underlying = wadMul(shares, rate)
	return shares, underlying, nil
}
