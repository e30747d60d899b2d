package lending

import "math/big"

// accrualResult reports what one accrual step changed.
type accrualResult struct {
	elapsed    int64
	borrowRate *big.Int
	changed    bool
}

// accrueMarket folds the interest earned since the last update into the
// market. The reserve fee is converted into shares against the pre-increase
// pool totals so the exchange rate reflects the new borrow exactly once.
// Idempotent within the same timestamp.
func accrueMarket(market *Market, config *MarketConfig, now int64) accrualResult {
	elapsed := now - market.LastUpdateTimestamp
	if elapsed <= 0 {
		return accrualResult{}
	}

	market.LastUpdateTimestamp = now
	if config == nil || config.RateModel == nil {
		return accrualResult{elapsed: elapsed}
	}

	rate := bigOrZero(config.RateModel.BorrowRate(market.TotalCash, market.TotalBorrow))
	interestFactor := new(big.Int).Mul(rate, big.NewInt(elapsed))
	interestIncrease := wadMul(interestFactor, market.TotalBorrow)
	feeIncrease := wadMul(interestIncrease, bigOrZero(config.ReserveFactor))

	totalShares := new(big.Int).Add(market.TotalSupplyShares, market.TotalReserveShares)
	poolValue := new(big.Int).Add(market.TotalCash, market.TotalBorrow)
	poolValue.Add(poolValue, interestIncrease)
	poolValue.Sub(poolValue, feeIncrease)
	reservesIncrease := mulDiv(feeIncrease, totalShares, poolValue)

	market.BorrowIndex = new(big.Int).Add(market.BorrowIndex, wadMul(interestFactor, market.BorrowIndex))
	market.TotalBorrow = new(big.Int).Add(market.TotalBorrow, interestIncrease)
	market.TotalReserveShares = new(big.Int).Add(market.TotalReserveShares, reservesIncrease)

	return accrualResult{elapsed: elapsed, borrowRate: rate, changed: true}
}

// exchangeRate returns the underlying-per-share rate for the market as it
// stands, falling back to the configured initial rate while no shares exist.
// Conversions deliberately round down on deposits; a near-empty pool combined
// with a donation can still temporarily distort the rate by orders of
// magnitude, which is accepted protocol risk.
func exchangeRate(market *Market, config *MarketConfig) *big.Int {
	totalShares := new(big.Int).Add(market.TotalSupplyShares, market.TotalReserveShares)
	if totalShares.Sign() == 0 {
		if config != nil && config.InitialExchangeRate != nil {
			return cloneBig(config.InitialExchangeRate)
		}
		return cloneBig(wad)
	}
	poolValue := new(big.Int).Add(market.TotalCash, market.TotalBorrow)
	return wadDiv(poolValue, totalShares)
}

// accrue advances the stored market to the engine clock and emits the
// accrual event when anything changed.
func (e *Engine) accrue(assetID string) (*Market, *MarketConfig, error) {
	assetID = NormalizeAssetID(assetID)
	market := e.state.Market(assetID)
	config := e.state.Config(assetID)
	if market == nil || config == nil {
		return nil, nil, errMarketNotListed
	}
	result := accrueMarket(market, config, e.nowFn())
	if result.changed {
		if recorder, ok := e.metrics.(AccrualRecorder); ok {
			utilization := new(big.Int)
			if config.RateModel != nil {
				if model, ok := config.RateModel.(*TripleSlopeRateModel); ok {
					utilization = model.Utilization(market.TotalCash, market.TotalBorrow)
				}
			}
			borrowRate := result.borrowRate
			e.recordMetric(func() {
				recorder.RecordAccrual(assetID, borrowRate, utilization)
			})
		}
		e.emit(InterestAccrued{
			AssetID:            assetID,
			Timestamp:          market.LastUpdateTimestamp,
			BorrowRate:         result.borrowRate,
			BorrowIndex:        cloneBig(market.BorrowIndex),
			TotalBorrow:        cloneBig(market.TotalBorrow),
			TotalReserveShares: cloneBig(market.TotalReserveShares),
		})
	}
	return market, config, nil
}

// accruedView returns a copy of the market advanced to the engine clock
// without touching stored state. Valuations use it so prices and balances are
// current even for markets the current operation does not otherwise touch.
func (e *Engine) accruedView(assetID string) (*Market, *MarketConfig) {
	assetID = NormalizeAssetID(assetID)
	market := e.state.Market(assetID)
	config := e.state.Config(assetID)
	if market == nil || config == nil {
		return nil, nil
	}
	clone := market.Clone()
	accrueMarket(clone, config, e.nowFn())
	return clone, config
}
