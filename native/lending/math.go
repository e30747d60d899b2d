package lending

import "math/big"

var (
	wad = big.NewInt(1_000_000_000_000_000_000)

	// MaxAmount is the sentinel meaning "the caller's entire balance". It is
	// resolved to the current share balance on redeem and the current
	// index-adjusted debt on repay; it is never stored.
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// wadMul multiplies two wad-scaled values, rounding toward zero. Deposit and
// valuation conversions deliberately round down so a depositor can never mint
// shares worth more than the underlying provided.
func wadMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, wad)
}

// wadDiv divides a by b at wad scale, rounding toward zero.
func wadDiv(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, wad)
	return numerator.Quo(numerator, b)
}

// wadDivUp divides a by b at wad scale, rounding away from zero. Used where
// rounding must favour the pool, e.g. shares burned for an exact-amount
// redemption.
func wadDivUp(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, wad)
	quotient, remainder := new(big.Int).QuoRem(numerator, b, new(big.Int))
	if remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient
}

// mulDiv computes a*b/denominator with full intermediate precision, rounding
// toward zero.
func mulDiv(a, b, denominator *big.Int) *big.Int {
	if a == nil || b == nil || denominator == nil || denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, denominator)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func isMaxAmount(v *big.Int) bool {
	return v != nil && v.Cmp(MaxAmount) == 0
}
