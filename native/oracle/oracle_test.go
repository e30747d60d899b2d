package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestStaticOracle(t *testing.T) {
	o := NewStaticOracle()
	if _, err := o.GetPrice("ETH"); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("missing price: got %v", err)
	}

	o.SetPrice("eth", big.NewInt(1500))
	price, err := o.GetPrice(" ETH ")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("unexpected price: %s", price)
	}

	// A caller mutating the returned value must not corrupt the table.
	price.SetInt64(0)
	price, err = o.GetPrice("ETH")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("stored price aliased: %s", price)
	}

	o.SetPrice("ETH", nil)
	if _, err := o.GetPrice("ETH"); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("deleted price: got %v", err)
	}
}

func TestAggregatorPriority(t *testing.T) {
	agg := NewAggregator(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	agg.SetNowFunc(func() time.Time { return now })
	agg.RegisterFeed("primary")
	agg.RegisterFeed("fallback")

	agg.Observe("fallback", "ETH", big.NewInt(1490), now)
	agg.Observe("primary", "ETH", big.NewInt(1500), now)

	price, err := agg.GetPrice("ETH")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("priority not honoured: %s", price)
	}
}

func TestAggregatorFallsBackWhenPrimaryStale(t *testing.T) {
	agg := NewAggregator(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	agg.SetNowFunc(func() time.Time { return now })
	agg.RegisterFeed("primary")
	agg.RegisterFeed("fallback")

	agg.Observe("primary", "ETH", big.NewInt(1500), now.Add(-2*time.Minute))
	agg.Observe("fallback", "ETH", big.NewInt(1490), now)

	price, err := agg.GetPrice("ETH")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Cmp(big.NewInt(1490)) != 0 {
		t.Fatalf("stale primary not skipped: %s", price)
	}
}

func TestAggregatorAllStale(t *testing.T) {
	agg := NewAggregator(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	agg.SetNowFunc(func() time.Time { return now })
	agg.RegisterFeed("primary")

	agg.Observe("primary", "ETH", big.NewInt(1500), now.Add(-time.Hour))
	if _, err := agg.GetPrice("ETH"); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("all stale: got %v", err)
	}
	if _, err := agg.GetPrice("BTC"); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("unknown asset: got %v", err)
	}
}

func TestAggregatorZeroMaxAgeDisablesFreshness(t *testing.T) {
	agg := NewAggregator(0)
	now := time.Unix(1_700_000_000, 0)
	agg.SetNowFunc(func() time.Time { return now })
	agg.RegisterFeed("primary")

	agg.Observe("primary", "ETH", big.NewInt(1500), now.Add(-24*time.Hour))
	price, err := agg.GetPrice("ETH")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("unexpected price: %s", price)
	}
}

func TestAggregatorIgnoresNonPositiveQuotes(t *testing.T) {
	agg := NewAggregator(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	agg.SetNowFunc(func() time.Time { return now })
	agg.RegisterFeed("primary")
	agg.RegisterFeed("fallback")

	agg.Observe("primary", "ETH", big.NewInt(0), now)
	agg.Observe("fallback", "ETH", big.NewInt(1490), now)

	price, err := agg.GetPrice("ETH")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Cmp(big.NewInt(1490)) != 0 {
		t.Fatalf("zero quote not skipped: %s", price)
	}
}
