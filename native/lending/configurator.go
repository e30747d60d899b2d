package lending

import "math/big"

// The configurator surface: admin-only parameter CRUD over markets and
// credit lines. Every mutation validates the §3 configuration invariants
// before committing.

// ListMarket activates a market for the asset under the supplied
// configuration. The hot state is created on first listing; relisting a
// delisted market keeps its ledger intact.
func (e *Engine) ListMarket(caller Address, assetID string, config *MarketConfig) error {
	return e.nonReentrant("list_market", func() error {
		if caller != e.admin {
			return errNotAdmin
		}
		if config == nil || config.RateModel == nil {
			return errInvalidConfig
		}
		assetID = NormalizeAssetID(assetID)
		if existing := e.state.Config(assetID); existing != nil && existing.Listed {
			return errMarketAlreadyListed
		}
		listed := config.Clone()
		listed.Listed = true
		if err := listed.Validate(); err != nil {
			return err
		}
		if e.state.Market(assetID) == nil {
			e.state.PutMarket(&Market{
				AssetID:             assetID,
				TotalCash:           big.NewInt(0),
				TotalBorrow:         big.NewInt(0),
				TotalSupplyShares:   big.NewInt(0),
				TotalReserveShares:  big.NewInt(0),
				BorrowIndex:         cloneBig(wad),
				LastUpdateTimestamp: e.nowFn(),
			})
		}
		e.state.PutConfig(assetID, listed)
		e.log().Info("market listed", "asset", assetID)
		e.emit(MarketListed{AssetID: assetID})
		return nil
	})
}

// DelistMarket deactivates the market. Ledger state is retained; operations
// against the market reject until it is listed again.
func (e *Engine) DelistMarket(caller Address, assetID string) error {
	return e.nonReentrant("delist_market", func() error {
		if caller != e.admin {
			return errNotAdmin
		}
		assetID = NormalizeAssetID(assetID)
		config := e.state.Config(assetID)
		if config == nil || !config.Listed {
			return errMarketNotListed
		}
		config.Listed = false
		e.log().Info("market delisted", "asset", assetID)
		e.emit(MarketDelisted{AssetID: assetID})
		return nil
	})
}

// SetMarketConfiguration replaces the market's risk parameters. The listed
// flag is carried over from the current configuration; use ListMarket and
// DelistMarket to change it.
func (e *Engine) SetMarketConfiguration(caller Address, assetID string, config *MarketConfig) error {
	return e.nonReentrant("set_market_configuration", func() error {
		if caller != e.admin {
			return errNotAdmin
		}
		assetID = NormalizeAssetID(assetID)
		existing := e.state.Config(assetID)
		if existing == nil {
			return errMarketNotListed
		}
		if config == nil || config.RateModel == nil {
			return errInvalidConfig
		}
		replacement := config.Clone()
		replacement.Listed = existing.Listed
		if err := replacement.Validate(); err != nil {
			return err
		}
		e.state.PutConfig(assetID, replacement)
		e.emit(MarketConfigured{AssetID: assetID, Pauses: replacement.Pauses})
		return nil
	})
}

// SetMarketPauseFlags raises or clears the bit-packed supply/borrow/transfer
// switches without touching the rest of the configuration.
func (e *Engine) SetMarketPauseFlags(caller Address, assetID string, flags PauseFlags) error {
	return e.nonReentrant("set_market_pauses", func() error {
		if caller != e.admin {
			return errNotAdmin
		}
		assetID = NormalizeAssetID(assetID)
		config := e.state.Config(assetID)
		if config == nil {
			return errMarketNotListed
		}
		config.Pauses = flags
		e.emit(MarketConfigured{AssetID: assetID, Pauses: flags})
		return nil
	})
}

// SetCreditLimit grants or revokes an uncollateralized borrow ceiling for
// the user in the market. Granting the first credit line requires the user
// to hold no existing positions, keeping credit and collateralized borrowing
// mutually exclusive.
func (e *Engine) SetCreditLimit(caller, user Address, assetID string, limit *big.Int) error {
	return e.nonReentrant("set_credit_limit", func() error {
		if caller != e.admin {
			return errNotAdmin
		}
		if limit == nil || limit.Sign() < 0 {
			return errInvalidAmount
		}
		assetID = NormalizeAssetID(assetID)
		config := e.state.Config(assetID)
		if config == nil || !config.Listed {
			return errMarketNotListed
		}
		if limit.Sign() > 0 && !e.state.IsCreditAccount(user) && len(e.state.EnteredMarkets(user)) > 0 {
			return errCreditAccount
		}
		e.state.SetCreditLimit(user, assetID, limit)
		e.emit(CreditLimitSet{AssetID: assetID, User: user, Limit: cloneBig(limit)})
		return nil
	})
}
