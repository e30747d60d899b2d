package lending

import "math/big"

// RateModel maps the current market balances to a per-second borrow rate,
// expressed at wad scale. Implementations must be pure so markets can swap
// models without state migration.
type RateModel interface {
	BorrowRate(cash, borrow *big.Int) *big.Int
}

// TripleSlopeRateModel is a kinked utilization curve with two kink points.
// Below kink1 the rate climbs at slope1, between the kinks at slope2 and past
// kink2 at slope3. The steepening past each kink is what pushes utilization
// back toward the target band when liquidity runs low.
type TripleSlopeRateModel struct {
	base   *big.Int
	slope1 *big.Int
	kink1  *big.Int
	slope2 *big.Int
	kink2  *big.Int
	slope3 *big.Int
}

// NewTripleSlopeRateModel constructs the curve. All parameters are wad-scaled;
// base and slopes are per-second rates, kinks are utilization ratios with
// kink1 <= kink2 <= 1.
func NewTripleSlopeRateModel(base, slope1, kink1, slope2, kink2, slope3 *big.Int) *TripleSlopeRateModel {
	return &TripleSlopeRateModel{
		base:   bigOrZero(cloneBig(base)),
		slope1: bigOrZero(cloneBig(slope1)),
		kink1:  bigOrZero(cloneBig(kink1)),
		slope2: bigOrZero(cloneBig(slope2)),
		kink2:  bigOrZero(cloneBig(kink2)),
		slope3: bigOrZero(cloneBig(slope3)),
	}
}

// Utilization computes borrow / (cash + borrow) at wad scale. An idle market
// utilizes zero.
func (m *TripleSlopeRateModel) Utilization(cash, borrow *big.Int) *big.Int {
	cash = bigOrZero(cash)
	borrow = bigOrZero(borrow)
	if borrow.Sign() <= 0 {
		return big.NewInt(0)
	}
	total := new(big.Int).Add(cash, borrow)
	if total.Sign() <= 0 {
		return big.NewInt(0)
	}
	return wadDiv(borrow, total)
}

// BorrowRate implements the RateModel interface.
func (m *TripleSlopeRateModel) BorrowRate(cash, borrow *big.Int) *big.Int {
	utilization := m.Utilization(cash, borrow)
	rate := new(big.Int).Set(m.base)

	first := utilization
	if first.Cmp(m.kink1) > 0 {
		first = m.kink1
	}
	rate.Add(rate, wadMul(m.slope1, first))
	if utilization.Cmp(m.kink1) <= 0 {
		return rate
	}

	second := utilization
	if second.Cmp(m.kink2) > 0 {
		second = m.kink2
	}
	rate.Add(rate, wadMul(m.slope2, new(big.Int).Sub(second, m.kink1)))
	if utilization.Cmp(m.kink2) <= 0 {
		return rate
	}

	rate.Add(rate, wadMul(m.slope3, new(big.Int).Sub(utilization, m.kink2)))
	return rate
}
