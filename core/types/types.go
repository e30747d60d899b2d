package types

import (
	"math/big"
	"strings"
)

// Event represents a structured state change emitted by the pool for off-chain
// observers. Attributes carry the before/after quantities needed to
// reconstruct ledger deltas.
type Event struct {
	Type       string
	Attributes map[string]string
}

// Account tracks the underlying token balances held by a participant. The pool
// vault is itself an account; supplies pull underlying out of the supplier
// account into the vault and borrows push it back out.
type Account struct {
	Balances map[string]*big.Int
}

// NewAccount returns an account with an initialised balance table.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// Balance returns the balance held for the supplied asset. Missing entries
// read as zero.
func (a *Account) Balance(asset string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	bal, ok := a.Balances[normalizeAsset(asset)]
	if !ok || bal == nil {
		return big.NewInt(0)
	}
	return bal
}

// SetBalance overwrites the balance held for the supplied asset.
func (a *Account) SetBalance(asset string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[normalizeAsset(asset)] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := NewAccount()
	for asset, bal := range a.Balances {
		if bal != nil {
			clone.Balances[asset] = new(big.Int).Set(bal)
		}
	}
	return clone
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}
