package lending

import (
	"errors"
	"testing"
)

type deferCallback func(data []byte) error

func (f deferCallback) OnDeferredLiquidityCheck(data []byte) error { return f(data) }

func TestDeferAllowsTransientShortfall(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)
	if err := env.engine.Borrow(alice, alice, alice, "BOR", wadInt(100)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// Pulling all collateral is rejected outright...
	if err := env.engine.Redeem(alice, alice, alice, "COL", MaxAmount); !errors.Is(err, errInsufficientCollateral) {
		t.Fatalf("eager redeem: got %v", err)
	}

	// ...but inside a deferred window the position only has to be solvent
	// at the end.
	err := env.engine.DeferLiquidityCheck(alice, deferCallback(func([]byte) error {
		if err := env.engine.Redeem(alice, alice, alice, "COL", MaxAmount); err != nil {
			return err
		}
		return env.engine.Supply(alice, alice, alice, "COL", wadInt(40))
	}), nil)
	if err != nil {
		t.Fatalf("deferred window: %v", err)
	}
	if got := env.engine.GetSupplyShares(alice, "COL"); got.Cmp(wadInt(40)) != 0 {
		t.Fatalf("unexpected collateral shares: %s", got)
	}
}

func TestDeferRollsBackOnFinalShortfall(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)
	if err := env.engine.Borrow(alice, alice, alice, "BOR", wadInt(100)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	emitted := len(env.emitter.events)

	err := env.engine.DeferLiquidityCheck(alice, deferCallback(func([]byte) error {
		return env.engine.Redeem(alice, alice, alice, "COL", MaxAmount)
	}), nil)
	if !errors.Is(err, errInsufficientCollateral) {
		t.Fatalf("deferred window: got %v", err)
	}

	// Every mutation made inside the window is discarded, events included.
	if got := env.engine.GetSupplyShares(alice, "COL"); got.Cmp(wadInt(40)) != 0 {
		t.Fatalf("collateral not restored: %s", got)
	}
	if got := env.balance(alice, "COL"); got.Sign() != 0 {
		t.Fatalf("underlying not restored: %s", got)
	}
	if len(env.emitter.events) != emitted {
		t.Fatalf("rolled back window emitted events")
	}
}

func TestDeferWindowSkipsCheckWhenNothingDirty(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)
	if err := env.engine.Borrow(alice, alice, alice, "BOR", wadInt(100)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	// Break the oracle: a window that never touches the user's liquidity
	// must not consult it.
	env.oracle.SetPrice("COL", nil)
	env.oracle.SetPrice("BOR", nil)

	called := false
	err := env.engine.DeferLiquidityCheck(alice, deferCallback(func([]byte) error {
		called = true
		return nil
	}), nil)
	if err != nil {
		t.Fatalf("idle window: %v", err)
	}
	if !called {
		t.Fatalf("callback not invoked")
	}
}

func TestDeferReentrySameUser(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)

	err := env.engine.DeferLiquidityCheck(alice, deferCallback(func([]byte) error {
		return env.engine.DeferLiquidityCheck(alice, deferCallback(func([]byte) error {
			return nil
		}), nil)
	}), nil)
	if !errors.Is(err, errDeferReentry) {
		t.Fatalf("nested defer for same user: got %v", err)
	}
}

func TestDeferNestedDifferentUser(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)

	err := env.engine.DeferLiquidityCheck(alice, deferCallback(func([]byte) error {
		return env.engine.DeferLiquidityCheck(bob, deferCallback(func([]byte) error {
			return nil
		}), nil)
	}), nil)
	if err != nil {
		t.Fatalf("nested defer for different user: %v", err)
	}
}

func TestDeferRejectsCreditAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)
	if err := env.engine.SetCreditLimit(testAdmin, carol, "BOR", wadInt(100)); err != nil {
		t.Fatalf("credit grant: %v", err)
	}

	err := env.engine.DeferLiquidityCheck(carol, deferCallback(func([]byte) error {
		return nil
	}), nil)
	if !errors.Is(err, errCreditAccount) {
		t.Fatalf("credit defer: got %v", err)
	}
}

func TestDeferPassesDataThrough(t *testing.T) {
	env := newTestEnv(t)
	env.listBorrowFixture(t, nil)

	payload := []byte{0xDE, 0xAD}
	var received []byte
	err := env.engine.DeferLiquidityCheck(alice, deferCallback(func(data []byte) error {
		received = data
		return nil
	}), payload)
	if err != nil {
		t.Fatalf("deferred window: %v", err)
	}
	if len(received) != 2 || received[0] != 0xDE || received[1] != 0xAD {
		t.Fatalf("callback data mismatch: %v", received)
	}
}
