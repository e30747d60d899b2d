package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"lendpool/native/lending"
	"lendpool/native/oracle"
	"lendpool/observability"
	"lendpool/observability/logging"
)

// Config is the TOML runtime configuration for a pool node. Large numeric
// values (wad factors, caps, prices) are decimal strings so the file can
// carry amounts beyond uint64.
type Config struct {
	Service     string `toml:"Service"`
	Environment string `toml:"Environment"`
	DataDir     string `toml:"DataDir"`

	AdminAddress string `toml:"AdminAddress"`
	VaultAddress string `toml:"VaultAddress"`

	Markets  []Market  `toml:"Markets"`
	Prices   []Price   `toml:"Prices"`
	Balances []Balance `toml:"Balances"`
}

// Market describes one listed market and its risk parameters.
type Market struct {
	AssetID              string    `toml:"AssetID"`
	CollateralFactor     string    `toml:"CollateralFactor"`
	LiquidationThreshold string    `toml:"LiquidationThreshold"`
	LiquidationBonus     string    `toml:"LiquidationBonus"`
	ReserveFactor        string    `toml:"ReserveFactor"`
	ReceiptTokenSymbol   string    `toml:"ReceiptTokenSymbol"`
	DebtTokenSymbol      string    `toml:"DebtTokenSymbol"`
	SupplyCap            string    `toml:"SupplyCap"`
	BorrowCap            string    `toml:"BorrowCap"`
	InitialExchangeRate  string    `toml:"InitialExchangeRate"`
	Protected            bool      `toml:"Protected"`
	RateModel            RateModel `toml:"RateModel"`
}

// RateModel carries the triple-slope curve parameters as wad strings.
type RateModel struct {
	Base   string `toml:"Base"`
	Slope1 string `toml:"Slope1"`
	Kink1  string `toml:"Kink1"`
	Slope2 string `toml:"Slope2"`
	Kink2  string `toml:"Kink2"`
	Slope3 string `toml:"Slope3"`
}

// Price seeds the static oracle at genesis.
type Price struct {
	AssetID string `toml:"AssetID"`
	Price   string `toml:"Price"`
}

// Balance seeds an account's underlying balance at genesis.
type Balance struct {
	Address string `toml:"Address"`
	AssetID string `toml:"AssetID"`
	Amount  string `toml:"Amount"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
	}
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = "lendpool"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks address and numeric fields without building an engine.
func (c *Config) Validate() error {
	if _, err := parseAddress("AdminAddress", c.AdminAddress); err != nil {
		return err
	}
	if _, err := parseAddress("VaultAddress", c.VaultAddress); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Markets))
	for i := range c.Markets {
		market := &c.Markets[i]
		assetID := lending.NormalizeAssetID(market.AssetID)
		if assetID == "" {
			return fmt.Errorf("market %d: AssetID is required", i)
		}
		if seen[assetID] {
			return fmt.Errorf("market %s listed twice", assetID)
		}
		seen[assetID] = true
		if _, err := market.engineConfig(); err != nil {
			return fmt.Errorf("market %s: %w", assetID, err)
		}
	}
	for i, price := range c.Prices {
		value, err := parseBig("Price", price.Price)
		if err != nil {
			return fmt.Errorf("price %d (%s): %w", i, price.AssetID, err)
		}
		if value.Sign() <= 0 {
			return fmt.Errorf("price %d (%s): must be positive", i, price.AssetID)
		}
	}
	for i, balance := range c.Balances {
		if _, err := parseAddress("Address", balance.Address); err != nil {
			return fmt.Errorf("balance %d: %w", i, err)
		}
		if _, err := parseBig("Amount", balance.Amount); err != nil {
			return fmt.Errorf("balance %d: %w", i, err)
		}
	}
	return nil
}

// Bootstrap builds an engine plus its static oracle from a validated
// configuration: structured logging and metrics are wired, markets listed,
// genesis prices and balances seeded.
func Bootstrap(cfg *Config) (*lending.Engine, *oracle.StaticOracle, error) {
	admin, err := parseAddress("AdminAddress", cfg.AdminAddress)
	if err != nil {
		return nil, nil, err
	}
	vault, err := parseAddress("VaultAddress", cfg.VaultAddress)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.Setup(cfg.Service, cfg.Environment)
	engine := lending.NewEngine(vault, admin)
	engine.SetLogger(logger.With("component", "lending"))
	engine.SetMetrics(observability.Lending())
	static := oracle.NewStaticOracle()
	engine.SetPriceOracle(static)

	for i := range cfg.Markets {
		market := &cfg.Markets[i]
		engineCfg, err := market.engineConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("market %s: %w", market.AssetID, err)
		}
		if err := engine.ListMarket(admin, market.AssetID, engineCfg); err != nil {
			return nil, nil, fmt.Errorf("market %s: %w", market.AssetID, err)
		}
	}
	for _, price := range cfg.Prices {
		value, err := parseBig("Price", price.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("price %s: %w", price.AssetID, err)
		}
		static.SetPrice(price.AssetID, value)
	}
	for _, balance := range cfg.Balances {
		addr, err := parseAddress("Address", balance.Address)
		if err != nil {
			return nil, nil, err
		}
		amount, err := parseBig("Amount", balance.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("balance for %s: %w", balance.Address, err)
		}
		account := engine.State().Account(addr)
		account.SetBalance(balance.AssetID, amount)
	}
	return engine, static, nil
}

func (m *Market) engineConfig() (*lending.MarketConfig, error) {
	collateral, err := parseBig("CollateralFactor", m.CollateralFactor)
	if err != nil {
		return nil, err
	}
	threshold, err := parseBig("LiquidationThreshold", m.LiquidationThreshold)
	if err != nil {
		return nil, err
	}
	bonus, err := parseBig("LiquidationBonus", m.LiquidationBonus)
	if err != nil {
		return nil, err
	}
	reserve, err := parseBig("ReserveFactor", m.ReserveFactor)
	if err != nil {
		return nil, err
	}
	supplyCap, err := parseBig("SupplyCap", m.SupplyCap)
	if err != nil {
		return nil, err
	}
	borrowCap, err := parseBig("BorrowCap", m.BorrowCap)
	if err != nil {
		return nil, err
	}
	initialRate, err := parseBig("InitialExchangeRate", m.InitialExchangeRate)
	if err != nil {
		return nil, err
	}
	if initialRate.Sign() == 0 {
		// One underlying per share until the market sees its first deposit.
		initialRate, _ = new(big.Int).SetString("1000000000000000000", 10)
	}
	model, err := m.RateModel.build()
	if err != nil {
		return nil, err
	}
	cfg := &lending.MarketConfig{
		CollateralFactor:     collateral,
		LiquidationThreshold: threshold,
		LiquidationBonus:     bonus,
		ReserveFactor:        reserve,
		ReceiptTokenSymbol:   m.ReceiptTokenSymbol,
		DebtTokenSymbol:      m.DebtTokenSymbol,
		RateModel:            model,
		SupplyCap:            supplyCap,
		BorrowCap:            borrowCap,
		InitialExchangeRate:  initialRate,
		Protected:            m.Protected,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *RateModel) build() (*lending.TripleSlopeRateModel, error) {
	base, err := parseBig("RateModel.Base", r.Base)
	if err != nil {
		return nil, err
	}
	slope1, err := parseBig("RateModel.Slope1", r.Slope1)
	if err != nil {
		return nil, err
	}
	kink1, err := parseBig("RateModel.Kink1", r.Kink1)
	if err != nil {
		return nil, err
	}
	slope2, err := parseBig("RateModel.Slope2", r.Slope2)
	if err != nil {
		return nil, err
	}
	kink2, err := parseBig("RateModel.Kink2", r.Kink2)
	if err != nil {
		return nil, err
	}
	slope3, err := parseBig("RateModel.Slope3", r.Slope3)
	if err != nil {
		return nil, err
	}
	return lending.NewTripleSlopeRateModel(base, slope1, kink1, slope2, kink2, slope3), nil
}

func parseAddress(field, value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", field, value)
	}
	return common.HexToAddress(trimmed), nil
}

// parseBig reads a non-negative decimal string; empty means zero.
func parseBig(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(big.Int), nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("%s: %q is not a non-negative integer", field, value)
	}
	return parsed, nil
}
