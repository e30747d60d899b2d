package lending

import (
	"math/big"
	"testing"
)

func kinkedModel() *TripleSlopeRateModel {
	return NewTripleSlopeRateModel(
		mustBigInt("100000000000000"),    // base 0.0001
		mustBigInt("2000000000000000"),   // slope1 0.002
		mustBigInt("800000000000000000"), // kink1 0.8
		mustBigInt("10000000000000000"),  // slope2 0.01
		mustBigInt("900000000000000000"), // kink2 0.9
		mustBigInt("100000000000000000"), // slope3 0.1
	)
}

func TestUtilization(t *testing.T) {
	model := kinkedModel()
	if got := model.Utilization(wadInt(20), wadInt(80)); got.Cmp(mustBigInt("800000000000000000")) != 0 {
		t.Fatalf("unexpected utilization: %s", got)
	}
	if got := model.Utilization(wadInt(100), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("idle pool has utilization: %s", got)
	}
	if got := model.Utilization(big.NewInt(0), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("empty pool has utilization: %s", got)
	}
}

func TestBorrowRateAtFirstKink(t *testing.T) {
	model := kinkedModel()
	// At 80% utilization only the first slope applies:
	// 0.0001 + 0.8*0.002 = 0.0017.
	got := model.BorrowRate(wadInt(20), wadInt(80))
	if got.Cmp(mustBigInt("1700000000000000")) != 0 {
		t.Fatalf("unexpected rate at kink1: got %s want 1700000000000000", got)
	}
}

func TestBorrowRateBelowFirstKink(t *testing.T) {
	model := kinkedModel()
	// 50% utilization: 0.0001 + 0.5*0.002 = 0.0011.
	got := model.BorrowRate(wadInt(50), wadInt(50))
	if got.Cmp(mustBigInt("1100000000000000")) != 0 {
		t.Fatalf("unexpected rate below kink1: %s", got)
	}
}

func TestBorrowRateBetweenKinks(t *testing.T) {
	model := kinkedModel()
	// 85% utilization adds 0.05 of the second slope:
	// 0.0017 + 0.05*0.01 = 0.0022.
	got := model.BorrowRate(wadInt(15), wadInt(85))
	if got.Cmp(mustBigInt("2200000000000000")) != 0 {
		t.Fatalf("unexpected rate between kinks: %s", got)
	}
}

func TestBorrowRateAboveSecondKink(t *testing.T) {
	model := kinkedModel()
	// Full utilization: 0.0017 + 0.1*0.01 + 0.1*0.1 = 0.0127.
	got := model.BorrowRate(big.NewInt(0), wadInt(100))
	if got.Cmp(mustBigInt("12700000000000000")) != 0 {
		t.Fatalf("unexpected rate above kink2: %s", got)
	}
}

func TestBorrowRateIdlePool(t *testing.T) {
	model := kinkedModel()
	if got := model.BorrowRate(wadInt(100), big.NewInt(0)); got.Cmp(mustBigInt("100000000000000")) != 0 {
		t.Fatalf("idle pool rate should be the base: %s", got)
	}
}

func TestBorrowRateMonotonic(t *testing.T) {
	model := kinkedModel()
	prev := big.NewInt(-1)
	for borrowed := int64(0); borrowed <= 100; borrowed += 5 {
		rate := model.BorrowRate(wadInt(100-borrowed), wadInt(borrowed))
		if rate.Cmp(prev) < 0 {
			t.Fatalf("rate decreased at utilization %d%%: %s < %s", borrowed, rate, prev)
		}
		prev = rate
	}
}
