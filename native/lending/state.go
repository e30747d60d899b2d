package lending

import (
	"math/big"
	"sort"
	"strings"

	"lendpool/core/types"
)

// State is the in-memory ledger backing the engine: markets, configurations,
// per-user positions, registry membership and underlying token accounts. All
// mutation happens through owning methods; callers never reach into the maps
// directly. Atomicity is clone based: the engine snapshots the state on entry
// to a public operation and restores the snapshot wholesale when the
// operation fails.
type State struct {
	markets map[string]*Market
	configs map[string]*MarketConfig
	borrows map[string]map[Address]*UserBorrow
	shares  map[string]map[Address]*big.Int

	entered      map[Address][]string
	operators    map[Address]map[Address]bool
	creditLimits map[Address]map[string]*big.Int
	creditCounts map[Address]int

	accounts map[Address]*types.Account
}

// NewState constructs an empty ledger state.
func NewState() *State {
	return &State{
		markets:      make(map[string]*Market),
		configs:      make(map[string]*MarketConfig),
		borrows:      make(map[string]map[Address]*UserBorrow),
		shares:       make(map[string]map[Address]*big.Int),
		entered:      make(map[Address][]string),
		operators:    make(map[Address]map[Address]bool),
		creditLimits: make(map[Address]map[string]*big.Int),
		creditCounts: make(map[Address]int),
		accounts:     make(map[Address]*types.Account),
	}
}

// NormalizeAssetID canonicalizes market identifiers.
func NormalizeAssetID(assetID string) string {
	return strings.ToUpper(strings.TrimSpace(assetID))
}

// Market returns the hot state for the asset, or nil when the market has
// never been listed.
func (s *State) Market(assetID string) *Market {
	return s.markets[NormalizeAssetID(assetID)]
}

// PutMarket stores the hot state for the asset.
func (s *State) PutMarket(market *Market) {
	if market == nil {
		return
	}
	market.AssetID = NormalizeAssetID(market.AssetID)
	s.markets[market.AssetID] = market
}

// Config returns the configuration for the asset, or nil when absent.
func (s *State) Config(assetID string) *MarketConfig {
	return s.configs[NormalizeAssetID(assetID)]
}

// PutConfig stores the configuration for the asset.
func (s *State) PutConfig(assetID string, config *MarketConfig) {
	if config == nil {
		return
	}
	s.configs[NormalizeAssetID(assetID)] = config
}

// MarketIDs returns every known market identifier in deterministic order.
func (s *State) MarketIDs() []string {
	ids := make([]string, 0, len(s.markets))
	for id := range s.markets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SupplyShares returns the user's share balance in the market.
func (s *State) SupplyShares(assetID string, user Address) *big.Int {
	byUser, ok := s.shares[NormalizeAssetID(assetID)]
	if !ok {
		return big.NewInt(0)
	}
	bal, ok := byUser[user]
	if !ok || bal == nil {
		return big.NewInt(0)
	}
	return bal
}

// SetSupplyShares overwrites the user's share balance in the market.
func (s *State) SetSupplyShares(assetID string, user Address, shares *big.Int) {
	id := NormalizeAssetID(assetID)
	byUser, ok := s.shares[id]
	if !ok {
		byUser = make(map[Address]*big.Int)
		s.shares[id] = byUser
	}
	byUser[user] = bigOrZero(cloneBig(shares))
}

// UserBorrowSnapshot returns the user's borrow snapshot in the market, or nil
// when the user never borrowed there.
func (s *State) UserBorrowSnapshot(assetID string, user Address) *UserBorrow {
	byUser, ok := s.borrows[NormalizeAssetID(assetID)]
	if !ok {
		return nil
	}
	return byUser[user]
}

// PutUserBorrowSnapshot stores the user's borrow snapshot in the market.
func (s *State) PutUserBorrowSnapshot(assetID string, user Address, borrow *UserBorrow) {
	if borrow == nil {
		return
	}
	id := NormalizeAssetID(assetID)
	byUser, ok := s.borrows[id]
	if !ok {
		byUser = make(map[Address]*UserBorrow)
		s.borrows[id] = byUser
	}
	byUser[user] = borrow
}

// EnteredMarkets returns the ordered set of markets counted in the user's
// liquidity calculations.
func (s *State) EnteredMarkets(user Address) []string {
	return append([]string(nil), s.entered[user]...)
}

// EnterMarket adds the market to the user's entered set. Re-entering is a
// no-op so membership stays a set.
func (s *State) EnterMarket(user Address, assetID string) bool {
	id := NormalizeAssetID(assetID)
	for _, existing := range s.entered[user] {
		if existing == id {
			return false
		}
	}
	s.entered[user] = append(s.entered[user], id)
	return true
}

// ExitMarket removes the market from the user's entered set.
func (s *State) ExitMarket(user Address, assetID string) bool {
	id := NormalizeAssetID(assetID)
	list := s.entered[user]
	for i, existing := range list {
		if existing == id {
			s.entered[user] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// IsOperator reports whether operator may act on behalf of user.
func (s *State) IsOperator(user, operator Address) bool {
	return s.operators[user][operator]
}

// SetOperator grants or revokes operator rights over user's positions.
func (s *State) SetOperator(user, operator Address, approved bool) {
	byOperator, ok := s.operators[user]
	if !ok {
		if !approved {
			return
		}
		byOperator = make(map[Address]bool)
		s.operators[user] = byOperator
	}
	if approved {
		byOperator[operator] = true
		return
	}
	delete(byOperator, operator)
}

// CreditLimit returns the admin-granted uncollateralized borrow ceiling for
// the user in the market. Zero means no credit line.
func (s *State) CreditLimit(user Address, assetID string) *big.Int {
	limit, ok := s.creditLimits[user][NormalizeAssetID(assetID)]
	if !ok || limit == nil {
		return big.NewInt(0)
	}
	return limit
}

// SetCreditLimit overwrites the user's credit ceiling in the market and keeps
// the credit-account classification in sync.
func (s *State) SetCreditLimit(user Address, assetID string, limit *big.Int) {
	id := NormalizeAssetID(assetID)
	limit = bigOrZero(cloneBig(limit))
	previous := s.CreditLimit(user, id)
	byMarket, ok := s.creditLimits[user]
	if !ok {
		byMarket = make(map[string]*big.Int)
		s.creditLimits[user] = byMarket
	}
	if limit.Sign() == 0 {
		delete(byMarket, id)
	} else {
		byMarket[id] = limit
	}
	switch {
	case previous.Sign() == 0 && limit.Sign() > 0:
		s.creditCounts[user]++
	case previous.Sign() > 0 && limit.Sign() == 0:
		s.creditCounts[user]--
		if s.creditCounts[user] <= 0 {
			delete(s.creditCounts, user)
		}
	}
}

// IsCreditAccount reports whether the user holds any nonzero credit limit.
// Credit accounts are exempt from oracle-based solvency checks but restricted
// throughout supply, repay, transfer and liquidation behavior.
func (s *State) IsCreditAccount(user Address) bool {
	return s.creditCounts[user] > 0
}

// Account returns the underlying token account for the address, creating an
// empty one on first touch.
func (s *State) Account(addr Address) *types.Account {
	acc, ok := s.accounts[addr]
	if !ok {
		acc = types.NewAccount()
		s.accounts[addr] = acc
	}
	return acc
}

// PutAccount stores the token account for the address.
func (s *State) PutAccount(addr Address, acc *types.Account) {
	if acc == nil {
		return
	}
	s.accounts[addr] = acc
}

// Snapshot returns a deep copy of the entire ledger state.
func (s *State) Snapshot() *State {
	clone := NewState()
	for id, market := range s.markets {
		clone.markets[id] = market.Clone()
	}
	for id, config := range s.configs {
		clone.configs[id] = config.Clone()
	}
	for id, byUser := range s.borrows {
		cloned := make(map[Address]*UserBorrow, len(byUser))
		for user, borrow := range byUser {
			cloned[user] = borrow.Clone()
		}
		clone.borrows[id] = cloned
	}
	for id, byUser := range s.shares {
		cloned := make(map[Address]*big.Int, len(byUser))
		for user, bal := range byUser {
			cloned[user] = cloneBig(bal)
		}
		clone.shares[id] = cloned
	}
	for user, list := range s.entered {
		clone.entered[user] = append([]string(nil), list...)
	}
	for user, byOperator := range s.operators {
		cloned := make(map[Address]bool, len(byOperator))
		for operator, approved := range byOperator {
			cloned[operator] = approved
		}
		clone.operators[user] = cloned
	}
	for user, byMarket := range s.creditLimits {
		cloned := make(map[string]*big.Int, len(byMarket))
		for id, limit := range byMarket {
			cloned[id] = cloneBig(limit)
		}
		clone.creditLimits[user] = cloned
	}
	for user, count := range s.creditCounts {
		clone.creditCounts[user] = count
	}
	for addr, acc := range s.accounts {
		clone.accounts[addr] = acc.Clone()
	}
	return clone
}

// Restore replaces the ledger contents with the supplied snapshot.
func (s *State) Restore(snapshot *State) {
	if snapshot == nil {
		return
	}
	s.markets = snapshot.markets
	s.configs = snapshot.configs
	s.borrows = snapshot.borrows
	s.shares = snapshot.shares
	s.entered = snapshot.entered
	s.operators = snapshot.operators
	s.creditLimits = snapshot.creditLimits
	s.creditCounts = snapshot.creditCounts
	s.accounts = snapshot.accounts
}
