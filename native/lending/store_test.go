package lending

import (
	"math/big"
	"testing"

	"lendpool/storage"
)

func populatedState() *State {
	state := NewState()
	state.PutMarket(&Market{
		AssetID:             "COL",
		TotalCash:           wadInt(40),
		TotalBorrow:         big.NewInt(0),
		TotalSupplyShares:   wadInt(40),
		TotalReserveShares:  big.NewInt(0),
		BorrowIndex:         cloneBig(wad),
		LastUpdateTimestamp: 1_700_000_000,
	})
	state.PutMarket(&Market{
		AssetID:             "BOR",
		TotalCash:           wadInt(850),
		TotalBorrow:         wadInt(153),
		TotalSupplyShares:   wadInt(1000),
		TotalReserveShares:  mustBigInt("995520159283225484"),
		BorrowIndex:         mustBigInt("1020000000000000000"),
		LastUpdateTimestamp: 1_700_020_000,
	})
	state.PutConfig("COL", defaultMarketConfig())
	borrowCfg := defaultMarketConfig()
	borrowCfg.Listed = true
	borrowCfg.Pauses = PauseTransfer
	borrowCfg.RateModel = kinkedModel()
	borrowCfg.SupplyCap = wadInt(10_000)
	borrowCfg.BorrowCap = wadInt(5_000)
	borrowCfg.ReceiptTokenSymbol = "rBOR"
	borrowCfg.DebtTokenSymbol = "dBOR"
	state.PutConfig("BOR", borrowCfg)

	state.SetSupplyShares("COL", alice, wadInt(40))
	state.SetSupplyShares("BOR", bob, wadInt(1000))
	state.PutUserBorrowSnapshot("BOR", alice, &UserBorrow{
		BorrowBalance: wadInt(150),
		BorrowIndex:   cloneBig(wad),
	})
	state.EnterMarket(alice, "COL")
	state.EnterMarket(alice, "BOR")
	state.EnterMarket(bob, "BOR")
	state.SetOperator(alice, bob, true)
	state.SetCreditLimit(carol, "BOR", wadInt(500))
	state.Account(alice).SetBalance("BOR", wadInt(150))
	state.Account(testVault).SetBalance("COL", wadInt(40))
	return state
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	original := populatedState()
	if err := SaveState(db, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadState(db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for _, assetID := range []string{"COL", "BOR"} {
		want := original.Market(assetID)
		got := loaded.Market(assetID)
		if got == nil {
			t.Fatalf("market %s missing after load", assetID)
		}
		if got.TotalCash.Cmp(want.TotalCash) != 0 ||
			got.TotalBorrow.Cmp(want.TotalBorrow) != 0 ||
			got.TotalSupplyShares.Cmp(want.TotalSupplyShares) != 0 ||
			got.TotalReserveShares.Cmp(want.TotalReserveShares) != 0 ||
			got.BorrowIndex.Cmp(want.BorrowIndex) != 0 ||
			got.LastUpdateTimestamp != want.LastUpdateTimestamp {
			t.Fatalf("market %s mismatch: got %+v want %+v", assetID, got, want)
		}
	}

	cfg := loaded.Config("BOR")
	if cfg == nil {
		t.Fatalf("borrow config missing")
	}
	if !cfg.Listed || cfg.Pauses != PauseTransfer || cfg.ReceiptTokenSymbol != "rBOR" || cfg.DebtTokenSymbol != "dBOR" {
		t.Fatalf("config fields lost: %+v", cfg)
	}
	if cfg.SupplyCap.Cmp(wadInt(10_000)) != 0 || cfg.BorrowCap.Cmp(wadInt(5_000)) != 0 {
		t.Fatalf("caps lost: %+v", cfg)
	}
	// The rate model round-trips through its parameters; it must quote the
	// same curve.
	wantRate := kinkedModel().BorrowRate(wadInt(20), wadInt(80))
	gotRate := cfg.RateModel.BorrowRate(wadInt(20), wadInt(80))
	if gotRate.Cmp(wantRate) != 0 {
		t.Fatalf("rate model mismatch: got %s want %s", gotRate, wantRate)
	}

	if got := loaded.SupplyShares("COL", alice); got.Cmp(wadInt(40)) != 0 {
		t.Fatalf("shares lost: %s", got)
	}
	borrow := loaded.UserBorrowSnapshot("BOR", alice)
	if borrow.BorrowBalance.Cmp(wadInt(150)) != 0 || borrow.BorrowIndex.Cmp(wad) != 0 {
		t.Fatalf("borrow snapshot lost: %+v", borrow)
	}
	entered := loaded.EnteredMarkets(alice)
	if len(entered) != 2 || entered[0] != "COL" || entered[1] != "BOR" {
		t.Fatalf("entered order lost: %v", entered)
	}
	if !loaded.IsOperator(alice, bob) {
		t.Fatalf("operator grant lost")
	}
	if !loaded.IsCreditAccount(carol) {
		t.Fatalf("credit status lost")
	}
	if got := loaded.CreditLimit(carol, "BOR"); got.Cmp(wadInt(500)) != 0 {
		t.Fatalf("credit limit lost: %s", got)
	}
	if got := loaded.Account(alice).Balance("BOR"); got.Cmp(wadInt(150)) != 0 {
		t.Fatalf("account balance lost: %s", got)
	}
}

func TestSaveReplacesPreviousImage(t *testing.T) {
	db := storage.NewMemDB()
	if err := SaveState(db, populatedState()); err != nil {
		t.Fatalf("first save: %v", err)
	}

	smaller := NewState()
	smaller.PutMarket(&Market{
		AssetID:             "ONLY",
		TotalCash:           wadInt(1),
		TotalBorrow:         big.NewInt(0),
		TotalSupplyShares:   wadInt(1),
		TotalReserveShares:  big.NewInt(0),
		BorrowIndex:         cloneBig(wad),
		LastUpdateTimestamp: 1,
	})
	smaller.PutConfig("ONLY", defaultMarketConfig())
	if err := SaveState(db, smaller); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := LoadState(db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Market("COL") != nil || loaded.Market("BOR") != nil {
		t.Fatalf("stale markets survived overwrite")
	}
	if loaded.Market("ONLY") == nil {
		t.Fatalf("new market missing")
	}
	if len(loaded.EnteredMarkets(alice)) != 0 {
		t.Fatalf("stale entered set survived overwrite")
	}
}

type fixedRateModel struct{}

func (fixedRateModel) BorrowRate(cash, borrow *big.Int) *big.Int { return big.NewInt(1) }

func TestSaveRejectsForeignRateModel(t *testing.T) {
	state := NewState()
	state.PutMarket(&Market{
		AssetID:             "BASE",
		TotalCash:           big.NewInt(0),
		TotalBorrow:         big.NewInt(0),
		TotalSupplyShares:   big.NewInt(0),
		TotalReserveShares:  big.NewInt(0),
		BorrowIndex:         cloneBig(wad),
		LastUpdateTimestamp: 1,
	})
	cfg := defaultMarketConfig()
	cfg.RateModel = fixedRateModel{}
	state.PutConfig("BASE", cfg)

	if err := SaveState(storage.NewMemDB(), state); err == nil {
		t.Fatalf("expected save to reject a non-persistable rate model")
	}
}
