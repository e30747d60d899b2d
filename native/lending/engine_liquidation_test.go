package lending

import (
	"errors"
	"math/big"
	"testing"
)

// liquidationFixture puts alice at her exact borrow limit (40 COL at 1500
// weighted 0.5 against 150 BOR at 200) and funds bob to liquidate. Advancing
// the clock 20000 seconds at the 1e12 flat rate compounds the debt by exactly
// 2%, past the liquidation threshold.
func liquidationFixture(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.listBorrowFixture(t, big.NewInt(1_000_000_000_000))
	if err := env.engine.Borrow(alice, alice, alice, "BOR", wadInt(150)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	env.fund(bob, "BOR", wadInt(200))
	return env
}

func TestSeizedSharesFormula(t *testing.T) {
	// Repaying 150 at price 200 with a 10% bonus against collateral priced
	// 1500 at exchange rate 1 seizes 22 underlying worth of shares.
	got := seizedShares(wadInt(150), mustBigInt("1100000000000000000"), wadInt(200), wadInt(1500), cloneBig(wad))
	if got.Cmp(wadInt(22)) != 0 {
		t.Fatalf("unexpected seizure: got %s want %s", got, wadInt(22))
	}
}

func TestLiquidateSeizesCollateral(t *testing.T) {
	env := liquidationFixture(t)
	env.now += 20_000

	liquidatable, err := env.engine.IsUserLiquidatable(alice)
	if err != nil {
		t.Fatalf("liquidatable view: %v", err)
	}
	if !liquidatable {
		t.Fatalf("borrower not liquidatable after accrual")
	}

	if err := env.engine.Liquidate(bob, alice, "BOR", "COL", wadInt(150)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	if got := env.engine.GetSupplyShares(bob, "COL"); got.Cmp(wadInt(22)) != 0 {
		t.Fatalf("unexpected liquidator shares: %s", got)
	}
	if got := env.engine.GetSupplyShares(alice, "COL"); got.Cmp(wadInt(18)) != 0 {
		t.Fatalf("unexpected borrower shares: %s", got)
	}
	debt, err := env.engine.GetBorrowBalance(alice, "BOR")
	if err != nil {
		t.Fatalf("borrow balance: %v", err)
	}
	// 153 accrued minus the 150 repaid.
	if debt.Cmp(wadInt(3)) != 0 {
		t.Fatalf("unexpected residual debt: %s", debt)
	}
	if got := env.balance(bob, "BOR"); got.Cmp(wadInt(50)) != 0 {
		t.Fatalf("unexpected liquidator balance: %s", got)
	}
	if env.emitter.count(TypeLiquidated) != 1 {
		t.Fatalf("expected one liquidation event")
	}
}

func TestLiquidateRejectsHealthyBorrower(t *testing.T) {
	env := liquidationFixture(t)

	liquidatable, err := env.engine.IsUserLiquidatable(alice)
	if err != nil {
		t.Fatalf("liquidatable view: %v", err)
	}
	if liquidatable {
		t.Fatalf("healthy borrower reported liquidatable")
	}
	if err := env.engine.Liquidate(bob, alice, "BOR", "COL", wadInt(10)); !errors.Is(err, errNotLiquidatable) {
		t.Fatalf("liquidate healthy borrower: got %v", err)
	}
}

func TestLiquidateRejections(t *testing.T) {
	env := liquidationFixture(t)
	env.now += 20_000

	if err := env.engine.Liquidate(alice, alice, "BOR", "COL", wadInt(10)); !errors.Is(err, errSelfLiquidation) {
		t.Fatalf("self liquidation: got %v", err)
	}
	if err := env.engine.Liquidate(bob, alice, "BOR", "COL", big.NewInt(0)); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("zero repay: got %v", err)
	}
	if err := env.engine.Liquidate(bob, alice, "BOR", "MISSING", wadInt(10)); !errors.Is(err, errMarketNotListed) {
		t.Fatalf("unknown collateral: got %v", err)
	}
	if err := env.engine.Liquidate(bob, alice, "BOR", "COL", wadInt(500)); !errors.Is(err, errRepayTooMuch) {
		t.Fatalf("repay past debt: got %v", err)
	}

	if err := env.engine.SetMarketPauseFlags(testAdmin, "COL", PauseTransfer); err != nil {
		t.Fatalf("pause transfer: %v", err)
	}
	if err := env.engine.Liquidate(bob, alice, "BOR", "COL", wadInt(10)); !errors.Is(err, errMarketNotSeizable) {
		t.Fatalf("unseizable collateral: got %v", err)
	}
}

func TestLiquidationCounterFollowsCommit(t *testing.T) {
	env := liquidationFixture(t)
	metrics := &recordingMetrics{}
	env.engine.SetMetrics(metrics)

	if err := env.engine.Liquidate(bob, alice, "BOR", "COL", wadInt(10)); !errors.Is(err, errNotLiquidatable) {
		t.Fatalf("liquidate healthy borrower: got %v", err)
	}
	if metrics.liquidations != 0 {
		t.Fatalf("rejected liquidation counted: %d", metrics.liquidations)
	}

	env.now += 20_000
	if err := env.engine.Liquidate(bob, alice, "BOR", "COL", wadInt(150)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if metrics.liquidations != 1 {
		t.Fatalf("committed liquidation not counted: %d", metrics.liquidations)
	}
}

func TestLiquidateRejectsCreditBorrower(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)
	if err := env.engine.SetCreditLimit(testAdmin, carol, "BOR", wadInt(500)); err != nil {
		t.Fatalf("credit grant: %v", err)
	}
	if err := env.engine.Borrow(carol, carol, carol, "BOR", wadInt(400)); err != nil {
		t.Fatalf("credit borrow: %v", err)
	}

	env.fund(bob, "BOR", wadInt(100))
	if err := env.engine.Liquidate(bob, carol, "BOR", "COL", wadInt(10)); !errors.Is(err, errCreditAccount) {
		t.Fatalf("liquidate credit borrower: got %v", err)
	}
}

func TestCalculateLiquidationOpportunity(t *testing.T) {
	env := liquidationFixture(t)
	env.now += 20_000

	shares, underlying, err := env.engine.CalculateLiquidationOpportunity("BOR", "COL", wadInt(150))
	if err != nil {
		t.Fatalf("opportunity: %v", err)
	}
	if shares.Cmp(wadInt(22)) != 0 {
		t.Fatalf("unexpected shares: %s", shares)
	}
	if underlying.Cmp(wadInt(22)) != 0 {
		t.Fatalf("unexpected underlying: %s", underlying)
	}
	// The view must not have touched the ledger.
	if got := env.engine.GetSupplyShares(alice, "COL"); got.Cmp(wadInt(40)) != 0 {
		t.Fatalf("view mutated state: %s", got)
	}
}
