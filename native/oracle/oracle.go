package oracle

import (
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"
)

// PriceOracle resolves the normalized USD value of one whole unit of an
// asset, scaled 1e18. Implementations signal "no price" by returning an error
// or a non-positive value; the ledger treats both as fatal during valuation.
type PriceOracle interface {
	GetPrice(asset string) (*big.Int, error)
}

// ErrNoPrice indicates that no usable quote exists for the asset.
var ErrNoPrice = errors.New("oracle: no price available")

// ErrStalePrice indicates that every known quote is older than the freshness
// window.
var ErrStalePrice = errors.New("oracle: price observation too old")

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// StaticOracle is a fixed price table fed by configuration or tests.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]*big.Int
}

// NewStaticOracle constructs an empty price table.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{prices: make(map[string]*big.Int)}
}

// SetPrice records the quote for the asset. A nil price removes the entry.
func (o *StaticOracle) SetPrice(asset string, price *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := normalizeAsset(asset)
	if price == nil {
		delete(o.prices, key)
		return
	}
	o.prices[key] = new(big.Int).Set(price)
}

// GetPrice implements the PriceOracle interface.
func (o *StaticOracle) GetPrice(asset string) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[normalizeAsset(asset)]
	if !ok {
		return nil, ErrNoPrice
	}
	return new(big.Int).Set(price), nil
}

// Observation is a timestamped quote reported by a feed.
type Observation struct {
	Price     *big.Int
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the observation.
func (o Observation) Clone() Observation {
	clone := Observation{Timestamp: o.Timestamp, Source: o.Source}
	if o.Price != nil {
		clone.Price = new(big.Int).Set(o.Price)
	}
	return clone
}

// Aggregator consults registered feeds in priority order until a fresh quote
// is obtained. Feeds push observations; the ledger pulls through GetPrice.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	latest   map[string]map[string]Observation
	maxAge   time.Duration
	nowFn    func() time.Time
}

// NewAggregator constructs an aggregator. maxAge bounds quote staleness; zero
// disables the freshness check.
func NewAggregator(maxAge time.Duration) *Aggregator {
	return &Aggregator{
		latest: make(map[string]map[string]Observation),
		maxAge: maxAge,
		nowFn:  time.Now,
	}
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (a *Aggregator) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	a.mu.Lock()
	a.nowFn = now
	a.mu.Unlock()
}

// RegisterFeed appends a feed name to the priority order. Earlier feeds win
// when multiple fresh quotes exist.
func (a *Aggregator) RegisterFeed(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, existing := range a.priority {
		if existing == name {
			return
		}
	}
	a.priority = append(a.priority, name)
}

// Observe records a quote from the named feed.
func (a *Aggregator) Observe(feed, asset string, price *big.Int, at time.Time) {
	feed = strings.TrimSpace(feed)
	if feed == "" || price == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	key := normalizeAsset(asset)
	byFeed, ok := a.latest[key]
	if !ok {
		byFeed = make(map[string]Observation)
		a.latest[key] = byFeed
	}
	byFeed[feed] = Observation{
		Price:     new(big.Int).Set(price),
		Timestamp: at,
		Source:    feed,
	}
}

// GetPrice implements the PriceOracle interface. Feeds are consulted in
// registration order; the first fresh positive quote wins.
func (a *Aggregator) GetPrice(asset string) (*big.Int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	byFeed, ok := a.latest[normalizeAsset(asset)]
	if !ok || len(byFeed) == 0 {
		return nil, ErrNoPrice
	}
	now := a.nowFn()
	stale := false
	for _, feed := range a.priority {
		obs, ok := byFeed[feed]
		if !ok || obs.Price == nil || obs.Price.Sign() <= 0 {
			continue
		}
		if a.maxAge > 0 && now.Sub(obs.Timestamp) > a.maxAge {
			stale = true
			continue
		}
		return new(big.Int).Set(obs.Price), nil
	}
	if stale {
		return nil, ErrStalePrice
	}
	return nil, ErrNoPrice
}
