package lending

import (
	"math/big"
	"strconv"

	"lendpool/core/types"
)

const (
	TypeMarketListed      = "lending.market.listed"
	TypeMarketDelisted    = "lending.market.delisted"
	TypeMarketConfigured  = "lending.market.configured"
	TypeInterestAccrued   = "lending.interest.accrued"
	TypeSupplied          = "lending.supplied"
	TypeRedeemed          = "lending.redeemed"
	TypeBorrowed          = "lending.borrowed"
	TypeRepaid            = "lending.repaid"
	TypeSharesTransferred = "lending.shares.transferred"
	TypeLiquidated        = "lending.liquidated"
	TypeCreditLimitSet    = "lending.credit.limit"
	TypeOperatorSet       = "lending.operator"
	TypeReservesReduced   = "lending.reserves.reduced"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

type MarketListed struct {
	AssetID string
}

func (MarketListed) EventType() string { return TypeMarketListed }

func (e MarketListed) Event() *types.Event {
	return &types.Event{
		Type:       TypeMarketListed,
		Attributes: map[string]string{"asset": e.AssetID},
	}
}

type MarketDelisted struct {
	AssetID string
}

func (MarketDelisted) EventType() string { return TypeMarketDelisted }

func (e MarketDelisted) Event() *types.Event {
	return &types.Event{
		Type:       TypeMarketDelisted,
		Attributes: map[string]string{"asset": e.AssetID},
	}
}

type MarketConfigured struct {
	AssetID string
	Pauses  PauseFlags
}

func (MarketConfigured) EventType() string { return TypeMarketConfigured }

func (e MarketConfigured) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketConfigured,
		Attributes: map[string]string{
			"asset":  e.AssetID,
			"pauses": strconv.FormatUint(uint64(e.Pauses), 10),
		},
	}
}

// InterestAccrued reports one accrual step with the quantities an observer
// needs to replay the ledger delta.
type InterestAccrued struct {
	AssetID            string
	Timestamp          int64
	BorrowRate         *big.Int
	BorrowIndex        *big.Int
	TotalBorrow        *big.Int
	TotalReserveShares *big.Int
}

func (InterestAccrued) EventType() string { return TypeInterestAccrued }

func (e InterestAccrued) Event() *types.Event {
	return &types.Event{
		Type: TypeInterestAccrued,
		Attributes: map[string]string{
			"asset":              e.AssetID,
			"timestamp":          formatInt(e.Timestamp),
			"borrowRate":         formatAmount(e.BorrowRate),
			"borrowIndex":        formatAmount(e.BorrowIndex),
			"totalBorrow":        formatAmount(e.TotalBorrow),
			"totalReserveShares": formatAmount(e.TotalReserveShares),
		},
	}
}

type Supplied struct {
	AssetID string
	From    Address
	To      Address
	Amount  *big.Int
	Shares  *big.Int
}

func (Supplied) EventType() string { return TypeSupplied }

func (e Supplied) Event() *types.Event {
	return &types.Event{
		Type: TypeSupplied,
		Attributes: map[string]string{
			"asset":  e.AssetID,
			"from":   e.From.Hex(),
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
			"shares": formatAmount(e.Shares),
		},
	}
}

type Redeemed struct {
	AssetID string
	From    Address
	To      Address
	Amount  *big.Int
	Shares  *big.Int
}

func (Redeemed) EventType() string { return TypeRedeemed }

func (e Redeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeRedeemed,
		Attributes: map[string]string{
			"asset":  e.AssetID,
			"from":   e.From.Hex(),
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
			"shares": formatAmount(e.Shares),
		},
	}
}

type Borrowed struct {
	AssetID       string
	From          Address
	To            Address
	Amount        *big.Int
	AccountBorrow *big.Int
	TotalBorrow   *big.Int
}

func (Borrowed) EventType() string { return TypeBorrowed }

func (e Borrowed) Event() *types.Event {
	return &types.Event{
		Type: TypeBorrowed,
		Attributes: map[string]string{
			"asset":         e.AssetID,
			"from":          e.From.Hex(),
			"to":            e.To.Hex(),
			"amount":        formatAmount(e.Amount),
			"accountBorrow": formatAmount(e.AccountBorrow),
			"totalBorrow":   formatAmount(e.TotalBorrow),
		},
	}
}

type Repaid struct {
	AssetID       string
	From          Address
	To            Address
	Amount        *big.Int
	AccountBorrow *big.Int
	TotalBorrow   *big.Int
}

func (Repaid) EventType() string { return TypeRepaid }

func (e Repaid) Event() *types.Event {
	return &types.Event{
		Type: TypeRepaid,
		Attributes: map[string]string{
			"asset":         e.AssetID,
			"from":          e.From.Hex(),
			"to":            e.To.Hex(),
			"amount":        formatAmount(e.Amount),
			"accountBorrow": formatAmount(e.AccountBorrow),
			"totalBorrow":   formatAmount(e.TotalBorrow),
		},
	}
}

type SharesTransferred struct {
	AssetID string
	From    Address
	To      Address
	Shares  *big.Int
}

func (SharesTransferred) EventType() string { return TypeSharesTransferred }

func (e SharesTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeSharesTransferred,
		Attributes: map[string]string{
			"asset":  e.AssetID,
			"from":   e.From.Hex(),
			"to":     e.To.Hex(),
			"shares": formatAmount(e.Shares),
		},
	}
}

type Liquidated struct {
	BorrowAssetID     string
	CollateralAssetID string
	Liquidator        Address
	Borrower          Address
	RepayAmount       *big.Int
	SeizedShares      *big.Int
}

func (Liquidated) EventType() string { return TypeLiquidated }

func (e Liquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidated,
		Attributes: map[string]string{
			"borrowAsset":     e.BorrowAssetID,
			"collateralAsset": e.CollateralAssetID,
			"liquidator":      e.Liquidator.Hex(),
			"borrower":        e.Borrower.Hex(),
			"repayAmount":     formatAmount(e.RepayAmount),
			"seizedShares":    formatAmount(e.SeizedShares),
		},
	}
}

type CreditLimitSet struct {
	AssetID string
	User    Address
	Limit   *big.Int
}

func (CreditLimitSet) EventType() string { return TypeCreditLimitSet }

func (e CreditLimitSet) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditLimitSet,
		Attributes: map[string]string{
			"asset": e.AssetID,
			"user":  e.User.Hex(),
			"limit": formatAmount(e.Limit),
		},
	}
}

type OperatorSet struct {
	User     Address
	Operator Address
	Approved bool
}

func (OperatorSet) EventType() string { return TypeOperatorSet }

func (e OperatorSet) Event() *types.Event {
	return &types.Event{
		Type: TypeOperatorSet,
		Attributes: map[string]string{
			"user":     e.User.Hex(),
			"operator": e.Operator.Hex(),
			"approved": strconv.FormatBool(e.Approved),
		},
	}
}

type ReservesReduced struct {
	AssetID   string
	Recipient Address
	Shares    *big.Int
	Amount    *big.Int
}

func (ReservesReduced) EventType() string { return TypeReservesReduced }

func (e ReservesReduced) Event() *types.Event {
	return &types.Event{
		Type: TypeReservesReduced,
		Attributes: map[string]string{
			"asset":     e.AssetID,
			"recipient": e.Recipient.Hex(),
			"shares":    formatAmount(e.Shares),
			"amount":    formatAmount(e.Amount),
		},
	}
}
