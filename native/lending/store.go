package lending

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"lendpool/core/types"
	"lendpool/storage"
)

// RLP image of the ledger. Rate models persist through their triple-slope
// parameters; a market configured with a different RateModel implementation
// cannot be round-tripped and Save reports it.

var errUnsupportedRateModel = errors.New("lending store: rate model is not persistable")

type storedMarket struct {
	AssetID             string
	TotalCash           *big.Int
	TotalBorrow         *big.Int
	TotalSupplyShares   *big.Int
	TotalReserveShares  *big.Int
	BorrowIndex         *big.Int
	LastUpdateTimestamp uint64
}

type storedRateModel struct {
	Base   *big.Int
	Slope1 *big.Int
	Kink1  *big.Int
	Slope2 *big.Int
	Kink2  *big.Int
	Slope3 *big.Int
}

type storedConfig struct {
	Listed               bool
	Pauses               uint8
	CollateralFactor     *big.Int
	LiquidationThreshold *big.Int
	LiquidationBonus     *big.Int
	ReserveFactor        *big.Int
	ReceiptTokenSymbol   string
	DebtTokenSymbol      string
	RateModel            storedRateModel
	SupplyCap            *big.Int
	BorrowCap            *big.Int
	InitialExchangeRate  *big.Int
	Protected            bool
}

type storedBorrow struct {
	BorrowBalance *big.Int
	BorrowIndex   *big.Int
}

type storedOperators struct {
	Operators []common.Address
}

type storedCreditLine struct {
	AssetID string
	Limit   *big.Int
}

type storedCredit struct {
	Lines []storedCreditLine
}

type storedEntered struct {
	Markets []string
}

type storedBalance struct {
	Asset  string
	Amount *big.Int
}

type storedAccount struct {
	Balances []storedBalance
}

// SaveState writes the full ledger image to the database, replacing any
// previous image.
func SaveState(db storage.Database, state *State) error {
	if db == nil || state == nil {
		return errNilState
	}
	var stale [][]byte
	if err := db.IteratePrefix(ledgerPrefix, func(key, _ []byte) error {
		stale = append(stale, append([]byte(nil), key...))
		return nil
	}); err != nil {
		return err
	}
	for _, key := range stale {
		if err := db.Delete(key); err != nil {
			return err
		}
	}

	for _, assetID := range state.MarketIDs() {
		market := state.Market(assetID)
		if err := putRLP(db, marketKey(assetID), &storedMarket{
			AssetID:             market.AssetID,
			TotalCash:           market.TotalCash,
			TotalBorrow:         market.TotalBorrow,
			TotalSupplyShares:   market.TotalSupplyShares,
			TotalReserveShares:  market.TotalReserveShares,
			BorrowIndex:         market.BorrowIndex,
			LastUpdateTimestamp: uint64(market.LastUpdateTimestamp),
		}); err != nil {
			return err
		}
		config := state.Config(assetID)
		if config == nil {
			continue
		}
		encoded, err := encodeConfig(config)
		if err != nil {
			return err
		}
		if err := putRLP(db, configKey(assetID), encoded); err != nil {
			return err
		}
	}

	for assetID, byUser := range state.shares {
		for user, balance := range byUser {
			if balance == nil || balance.Sign() == 0 {
				continue
			}
			if err := putRLP(db, positionKey(sharesPrefix, assetID, user), balance); err != nil {
				return err
			}
		}
	}
	for assetID, byUser := range state.borrows {
		for user, borrow := range byUser {
			if borrow == nil {
				continue
			}
			if err := putRLP(db, positionKey(borrowPrefix, assetID, user), &storedBorrow{
				BorrowBalance: borrow.BorrowBalance,
				BorrowIndex:   borrow.BorrowIndex,
			}); err != nil {
				return err
			}
		}
	}
	for user, markets := range state.entered {
		if len(markets) == 0 {
			continue
		}
		if err := putRLP(db, userKey(enteredPrefix, user), &storedEntered{Markets: markets}); err != nil {
			return err
		}
	}
	for user, byOperator := range state.operators {
		operators := make([]common.Address, 0, len(byOperator))
		for operator, approved := range byOperator {
			if approved {
				operators = append(operators, operator)
			}
		}
		if len(operators) == 0 {
			continue
		}
		sort.Slice(operators, func(i, j int) bool {
			return bytes.Compare(operators[i][:], operators[j][:]) < 0
		})
		if err := putRLP(db, userKey(operatorPrefix, user), &storedOperators{Operators: operators}); err != nil {
			return err
		}
	}
	for user, byMarket := range state.creditLimits {
		lines := make([]storedCreditLine, 0, len(byMarket))
		for assetID, limit := range byMarket {
			if limit == nil || limit.Sign() == 0 {
				continue
			}
			lines = append(lines, storedCreditLine{AssetID: assetID, Limit: limit})
		}
		if len(lines) == 0 {
			continue
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].AssetID < lines[j].AssetID })
		if err := putRLP(db, userKey(creditPrefix, user), &storedCredit{Lines: lines}); err != nil {
			return err
		}
	}
	for addr, acc := range state.accounts {
		balances := make([]storedBalance, 0, len(acc.Balances))
		for asset, amount := range acc.Balances {
			if amount == nil || amount.Sign() == 0 {
				continue
			}
			balances = append(balances, storedBalance{Asset: asset, Amount: amount})
		}
		if len(balances) == 0 {
			continue
		}
		sort.Slice(balances, func(i, j int) bool { return balances[i].Asset < balances[j].Asset })
		if err := putRLP(db, userKey(accountPrefix, addr), &storedAccount{Balances: balances}); err != nil {
			return err
		}
	}
	return nil
}

// LoadState reconstructs the ledger image from the database.
func LoadState(db storage.Database) (*State, error) {
	if db == nil {
		return nil, errNilState
	}
	state := NewState()

	if err := db.IteratePrefix(marketPrefix, func(_, value []byte) error {
		var stored storedMarket
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return err
		}
		state.PutMarket(&Market{
			AssetID:             stored.AssetID,
			TotalCash:           bigOrZero(stored.TotalCash),
			TotalBorrow:         bigOrZero(stored.TotalBorrow),
			TotalSupplyShares:   bigOrZero(stored.TotalSupplyShares),
			TotalReserveShares:  bigOrZero(stored.TotalReserveShares),
			BorrowIndex:         bigOrZero(stored.BorrowIndex),
			LastUpdateTimestamp: int64(stored.LastUpdateTimestamp),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IteratePrefix(configPrefix, func(key, value []byte) error {
		var stored storedConfig
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return err
		}
		assetID := string(bytes.TrimPrefix(key, configPrefix))
		state.PutConfig(assetID, decodeConfig(&stored))
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IteratePrefix(sharesPrefix, func(key, value []byte) error {
		assetID, user, ok := splitPositionKey(sharesPrefix, key)
		if !ok {
			return nil
		}
		balance := new(big.Int)
		if err := rlp.DecodeBytes(value, balance); err != nil {
			return err
		}
		state.SetSupplyShares(assetID, user, balance)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IteratePrefix(borrowPrefix, func(key, value []byte) error {
		assetID, user, ok := splitPositionKey(borrowPrefix, key)
		if !ok {
			return nil
		}
		var stored storedBorrow
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return err
		}
		state.PutUserBorrowSnapshot(assetID, user, &UserBorrow{
			BorrowBalance: bigOrZero(stored.BorrowBalance),
			BorrowIndex:   bigOrZero(stored.BorrowIndex),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IteratePrefix(enteredPrefix, func(key, value []byte) error {
		var stored storedEntered
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return err
		}
		user := common.HexToAddress(string(bytes.TrimPrefix(key, enteredPrefix)))
		for _, assetID := range stored.Markets {
			state.EnterMarket(user, assetID)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IteratePrefix(operatorPrefix, func(key, value []byte) error {
		var stored storedOperators
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return err
		}
		user := common.HexToAddress(string(bytes.TrimPrefix(key, operatorPrefix)))
		for _, operator := range stored.Operators {
			state.SetOperator(user, operator, true)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IteratePrefix(creditPrefix, func(key, value []byte) error {
		var stored storedCredit
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return err
		}
		user := common.HexToAddress(string(bytes.TrimPrefix(key, creditPrefix)))
		for _, line := range stored.Lines {
			state.SetCreditLimit(user, line.AssetID, line.Limit)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IteratePrefix(accountPrefix, func(key, value []byte) error {
		var stored storedAccount
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return err
		}
		addr := common.HexToAddress(string(bytes.TrimPrefix(key, accountPrefix)))
		acc := types.NewAccount()
		for _, balance := range stored.Balances {
			acc.SetBalance(balance.Asset, balance.Amount)
		}
		state.PutAccount(addr, acc)
		return nil
	}); err != nil {
		return nil, err
	}

	return state, nil
}

func encodeConfig(config *MarketConfig) (*storedConfig, error) {
	model, ok := config.RateModel.(*TripleSlopeRateModel)
	if !ok || model == nil {
		return nil, errUnsupportedRateModel
	}
	return &storedConfig{
		Listed:               config.Listed,
		Pauses:               uint8(config.Pauses),
		CollateralFactor:     config.CollateralFactor,
		LiquidationThreshold: config.LiquidationThreshold,
		LiquidationBonus:     config.LiquidationBonus,
		ReserveFactor:        config.ReserveFactor,
		ReceiptTokenSymbol:   config.ReceiptTokenSymbol,
		DebtTokenSymbol:      config.DebtTokenSymbol,
		RateModel: storedRateModel{
			Base:   model.base,
			Slope1: model.slope1,
			Kink1:  model.kink1,
			Slope2: model.slope2,
			Kink2:  model.kink2,
			Slope3: model.slope3,
		},
		SupplyCap:           config.SupplyCap,
		BorrowCap:           config.BorrowCap,
		InitialExchangeRate: config.InitialExchangeRate,
		Protected:           config.Protected,
	}, nil
}

func decodeConfig(stored *storedConfig) *MarketConfig {
	return &MarketConfig{
		Listed:               stored.Listed,
		Pauses:               PauseFlags(stored.Pauses),
		CollateralFactor:     bigOrZero(stored.CollateralFactor),
		LiquidationThreshold: bigOrZero(stored.LiquidationThreshold),
		LiquidationBonus:     bigOrZero(stored.LiquidationBonus),
		ReserveFactor:        bigOrZero(stored.ReserveFactor),
		ReceiptTokenSymbol:   stored.ReceiptTokenSymbol,
		DebtTokenSymbol:      stored.DebtTokenSymbol,
		RateModel: NewTripleSlopeRateModel(
			stored.RateModel.Base,
			stored.RateModel.Slope1,
			stored.RateModel.Kink1,
			stored.RateModel.Slope2,
			stored.RateModel.Kink2,
			stored.RateModel.Slope3,
		),
		SupplyCap:           bigOrZero(stored.SupplyCap),
		BorrowCap:           bigOrZero(stored.BorrowCap),
		InitialExchangeRate: bigOrZero(stored.InitialExchangeRate),
		Protected:           stored.Protected,
	}
}

func putRLP(db storage.Database, key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return db.Put(key, encoded)
}
