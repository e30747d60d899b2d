package lending

import (
	"log/slog"
	"math/big"
	"time"

	"lendpool/core/events"
	nativecommon "lendpool/native/common"
	"lendpool/native/oracle"
)

const moduleName = "lending"

// Engine orchestrates the pool ledger: supply, borrow, redeem, repay, share
// transfers, liquidation and the deferred liquidity-check protocol. Every
// public operation executes as one atomic unit: the ledger is snapshotted on
// entry and restored wholesale when any precondition fails, so there is no
// partial success. Reentrancy through caller callbacks is fenced by a latch;
// DeferLiquidityCheck is the single, bounded exception.
type Engine struct {
	state   *State
	oracle  oracle.PriceOracle
	emitter events.Emitter
	logger  *slog.Logger
	metrics OperationRecorder
	pauses  nativecommon.PauseView

	vault Address
	admin Address
	nowFn func() int64

	locked         bool
	depth          int
	statuses       map[Address]liquidityStatus
	pending        []events.Event
	pendingMetrics []func()
}

// OperationRecorder receives the outcome of every public ledger operation,
// typically backed by Prometheus counters.
type OperationRecorder interface {
	RecordOperation(op string, err error)
}

// AccrualRecorder is implemented by recorders that also track per-market
// rate and utilization gauges. The engine detects it by assertion so plain
// operation recorders keep working.
type AccrualRecorder interface {
	RecordAccrual(asset string, borrowRate, utilization *big.Int)
}

// LiquidationRecorder counts executed liquidations.
type LiquidationRecorder interface {
	RecordLiquidation()
}

// NewEngine constructs a lending engine bound to the pool vault and
// configurator addresses.
func NewEngine(vault, admin Address) *Engine {
	return &Engine{
		state:    NewState(),
		emitter:  events.NoopEmitter{},
		vault:    vault,
		admin:    admin,
		nowFn:    func() int64 { return time.Now().Unix() },
		statuses: make(map[Address]liquidityStatus),
	}
}

// SetState wires the engine to an externally prepared ledger state, e.g. one
// loaded from persistent storage.
func (e *Engine) SetState(state *State) {
	if state != nil {
		e.state = state
	}
}

// State exposes the ledger state for persistence and views.
func (e *Engine) State() *State { return e.state }

// SetPriceOracle configures the oracle consulted during valuations.
func (e *Engine) SetPriceOracle(o oracle.PriceOracle) { e.oracle = o }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger attaches a structured logger. The engine stays silent without
// one.
func (e *Engine) SetLogger(logger *slog.Logger) { e.logger = logger }

// SetMetrics attaches an operation recorder.
func (e *Engine) SetMetrics(metrics OperationRecorder) { e.metrics = metrics }

// SetPauses wires the module-level pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now != nil {
		e.nowFn = now
	}
}

// emit journals an event; it reaches the emitter only when the outermost
// operation commits.
func (e *Engine) emit(evt events.Event) {
	e.pending = append(e.pending, evt)
}

// recordMetric journals a gauge or counter update; like events it reaches
// the recorder only when the outermost operation commits, so a rolled-back
// accrual never shows up in the exported series.
func (e *Engine) recordMetric(record func()) {
	e.pendingMetrics = append(e.pendingMetrics, record)
}

// run executes fn as an atomic step: on error every state mutation and every
// journaled event and metric update since entry is discarded. When the
// outermost step commits the journals are flushed.
func (e *Engine) run(fn func() error) error {
	snapshot := e.state.Snapshot()
	mark := len(e.pending)
	metricsMark := len(e.pendingMetrics)
	e.depth++
	err := fn()
	e.depth--
	if err != nil {
		e.state.Restore(snapshot)
		e.pending = e.pending[:mark]
		e.pendingMetrics = e.pendingMetrics[:metricsMark]
		return err
	}
	if e.depth == 0 {
		flushed := e.pending
		recorded := e.pendingMetrics
		e.pending = nil
		e.pendingMetrics = nil
		for _, evt := range flushed {
			e.emitter.Emit(evt)
		}
		for _, record := range recorded {
			record()
		}
	}
	return nil
}

// nonReentrant rejects reentry through caller callbacks. Operations composed
// under a deferred liquidity check each pass through here sequentially, which
// is allowed; what is fenced is a callback reentering an operation that has
// not finished.
func (e *Engine) nonReentrant(op string, fn func() error) error {
	if e.locked {
		return errReentry
	}
	e.locked = true
	err := func() error {
		defer func() { e.locked = false }()
		if guardErr := nativecommon.Guard(e.pauses, moduleName); guardErr != nil {
			return guardErr
		}
		return e.run(fn)
	}()
	if e.metrics != nil {
		e.metrics.RecordOperation(op, err)
	}
	return err
}

// authorize checks that caller may act on behalf of account: the account
// itself or one of its approved operators.
func (e *Engine) authorize(caller, account Address) error {
	if caller == account {
		return nil
	}
	if e.state.IsOperator(account, caller) {
		return nil
	}
	return errNotAuthorized
}

// moveUnderlying shifts underlying tokens between ledger accounts.
func (e *Engine) moveUnderlying(assetID string, from, to Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromAcc := e.state.Account(from)
	balance := fromAcc.Balance(assetID)
	if balance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	fromAcc.SetBalance(assetID, new(big.Int).Sub(balance, amount))
	toAcc := e.state.Account(to)
	toAcc.SetBalance(assetID, new(big.Int).Add(toAcc.Balance(assetID), amount))
	return nil
}

// AccrueInterest folds pending interest into the market. Safe to call at any
// time; a second call at the same timestamp is a no-op.
func (e *Engine) AccrueInterest(assetID string) error {
	return e.nonReentrant("accrue", func() error {
		_, _, err := e.accrue(assetID)
		return err
	})
}

// Supply deposits amount of underlying from `from` and mints supply shares to
// `to` at the current exchange rate, rounding the minted shares down.
func (e *Engine) Supply(caller, from, to Address, assetID string, amount *big.Int) error {
	return e.nonReentrant("supply", func() error {
		if amount == nil || amount.Sign() <= 0 || isMaxAmount(amount) {
			return errInvalidAmount
		}
		if err := e.authorize(caller, from); err != nil {
			return err
		}
		market, config, err := e.accrue(assetID)
		if err != nil {
			return err
		}
		if !config.Listed {
			return errMarketNotListed
		}
		if config.Pauses.IsSupplyPaused() {
			return errSupplyPaused
		}
		if e.state.IsCreditAccount(to) {
			return errCreditAccount
		}

		rate := exchangeRate(market, config)
		if config.SupplyCap != nil && config.SupplyCap.Sign() > 0 {
			totalUnderlying := wadMul(market.TotalSupplyShares, rate)
			totalUnderlying.Add(totalUnderlying, amount)
			if totalUnderlying.Cmp(config.SupplyCap) > 0 {
				return errSupplyCapReached
			}
		}

		shares := wadDiv(amount, rate)
		if err := e.moveUnderlying(market.AssetID, from, e.vault, amount); err != nil {
			return err
		}

		market.TotalCash = new(big.Int).Add(market.TotalCash, amount)
		market.TotalSupplyShares = new(big.Int).Add(market.TotalSupplyShares, shares)
		e.state.SetSupplyShares(market.AssetID, to, new(big.Int).Add(e.state.SupplyShares(market.AssetID, to), shares))
		e.state.EnterMarket(to, market.AssetID)

		e.emit(Supplied{AssetID: market.AssetID, From: from, To: to, Amount: cloneBig(amount), Shares: shares})
		return nil
	})
}

// Borrow draws amount of underlying against `from`'s collateral and pushes it
// to `to`. Credit accounts borrow against their admin-granted ceiling instead
// of the oracle-based solvency check and may only borrow to themselves.
func (e *Engine) Borrow(caller, from, to Address, assetID string, amount *big.Int) error {
	return e.nonReentrant("borrow", func() error {
		if amount == nil || amount.Sign() <= 0 || isMaxAmount(amount) {
			return errInvalidAmount
		}
		if err := e.authorize(caller, from); err != nil {
			return err
		}
		market, config, err := e.accrue(assetID)
		if err != nil {
			return err
		}
		if !config.Listed {
			return errMarketNotListed
		}
		if config.Pauses.IsBorrowPaused() {
			return errBorrowPaused
		}
		if config.Protected {
			return errAssetProtected
		}
		if market.TotalCash.Cmp(amount) < 0 {
			return errInsufficientCash
		}

		borrow := e.state.UserBorrowSnapshot(market.AssetID, from)
		newAccountBorrow := new(big.Int).Add(borrow.currentDebt(market.BorrowIndex), amount)
		newTotalBorrow := new(big.Int).Add(market.TotalBorrow, amount)
		if config.BorrowCap != nil && config.BorrowCap.Sign() > 0 && newTotalBorrow.Cmp(config.BorrowCap) > 0 {
			return errBorrowCapReached
		}

		market.TotalCash = new(big.Int).Sub(market.TotalCash, amount)
		market.TotalBorrow = newTotalBorrow
		e.state.PutUserBorrowSnapshot(market.AssetID, from, &UserBorrow{
			BorrowBalance: newAccountBorrow,
			BorrowIndex:   cloneBig(market.BorrowIndex),
		})
		e.state.EnterMarket(from, market.AssetID)

		if err := e.moveUnderlying(market.AssetID, e.vault, to, amount); err != nil {
			return err
		}

		if e.state.IsCreditAccount(from) {
			if to != from {
				return errCreditBorrowTarget
			}
			limit := e.state.CreditLimit(from, market.AssetID)
			if newAccountBorrow.Cmp(limit) > 0 {
				return errCreditLimitExceeded
			}
		} else if err := e.checkAccountLiquidity(from); err != nil {
			return err
		}

		e.emit(Borrowed{
			AssetID:       market.AssetID,
			From:          from,
			To:            to,
			Amount:        cloneBig(amount),
			AccountBorrow: cloneBig(newAccountBorrow),
			TotalBorrow:   cloneBig(market.TotalBorrow),
		})
		return nil
	})
}

// Redeem burns `from`'s supply shares and pays the underlying to `to`. The
// MaxAmount sentinel redeems the entire share balance. Redeeming is never
// implicitly safe, so the solvency check always runs afterward.
func (e *Engine) Redeem(caller, from, to Address, assetID string, amount *big.Int) error {
	return e.nonReentrant("redeem", func() error {
		if amount == nil || amount.Sign() <= 0 {
			return errInvalidAmount
		}
		if err := e.authorize(caller, from); err != nil {
			return err
		}
		market, config, err := e.accrue(assetID)
		if err != nil {
			return err
		}
		if !config.Listed {
			return errMarketNotListed
		}

		rate := exchangeRate(market, config)
		userShares := e.state.SupplyShares(market.AssetID, from)
		var shares, underlying *big.Int
		if isMaxAmount(amount) {
			shares = cloneBig(userShares)
			underlying = wadMul(shares, rate)
		} else {
			underlying = cloneBig(amount)
			shares = wadDivUp(amount, rate)
		}
		if shares.Sign() <= 0 || underlying.Sign() <= 0 {
			return errInvalidAmount
		}
		if userShares.Cmp(shares) < 0 {
			return errInsufficientShares
		}
		if market.TotalCash.Cmp(underlying) < 0 {
			return errInsufficientCash
		}

		remaining := new(big.Int).Sub(userShares, shares)
		e.state.SetSupplyShares(market.AssetID, from, remaining)
		market.TotalSupplyShares = new(big.Int).Sub(market.TotalSupplyShares, shares)
		market.TotalCash = new(big.Int).Sub(market.TotalCash, underlying)

		if err := e.moveUnderlying(market.AssetID, e.vault, to, underlying); err != nil {
			return err
		}

		if remaining.Sign() == 0 {
			debt := e.state.UserBorrowSnapshot(market.AssetID, from)
			if debt.currentDebt(market.BorrowIndex).Sign() == 0 {
				e.state.ExitMarket(from, market.AssetID)
			}
		}
		if err := e.checkAccountLiquidity(from); err != nil {
			return err
		}

		e.emit(Redeemed{AssetID: market.AssetID, From: from, To: to, Amount: underlying, Shares: shares})
		return nil
	})
}

// Repay settles `to`'s debt with underlying pulled from `from`. The MaxAmount
// sentinel caps the payment to the current index-adjusted debt and is a no-op
// when no debt remains. Credit account debt may only be repaid by the account
// itself.
func (e *Engine) Repay(caller, from, to Address, assetID string, amount *big.Int) error {
	return e.nonReentrant("repay", func() error {
		if amount == nil || amount.Sign() <= 0 {
			return errInvalidAmount
		}
		if err := e.authorize(caller, from); err != nil {
			return err
		}
		market, config, err := e.accrue(assetID)
		if err != nil {
			return err
		}
		if !config.Listed {
			return errMarketNotListed
		}
		if e.state.IsCreditAccount(to) && from != to {
			return errCreditRepayTarget
		}
		_, err = e.repayInternal(market, from, to, amount)
		return err
	})
}

// repayInternal is the shared repay path used by Repay and Liquidate. The
// market must already be accrued.
func (e *Engine) repayInternal(market *Market, from, to Address, amount *big.Int) (*big.Int, error) {
	borrow := e.state.UserBorrowSnapshot(market.AssetID, to)
	debt := borrow.currentDebt(market.BorrowIndex)
	if isMaxAmount(amount) {
		amount = debt
		if amount.Sign() == 0 {
			return big.NewInt(0), nil
		}
	} else if amount.Cmp(debt) > 0 {
		return nil, errRepayTooMuch
	}

	if err := e.moveUnderlying(market.AssetID, from, e.vault, amount); err != nil {
		return nil, err
	}

	newAccountBorrow := new(big.Int).Sub(debt, amount)
	e.state.PutUserBorrowSnapshot(market.AssetID, to, &UserBorrow{
		BorrowBalance: newAccountBorrow,
		BorrowIndex:   cloneBig(market.BorrowIndex),
	})
	newTotal := new(big.Int).Sub(market.TotalBorrow, amount)
	if newTotal.Sign() < 0 {
		// Per-user debt rounds up against the pooled total, which can
		// leave dust past the last full repay.
		newTotal.SetInt64(0)
	}
	market.TotalBorrow = newTotal
	market.TotalCash = new(big.Int).Add(market.TotalCash, amount)

	if newAccountBorrow.Sign() == 0 && e.state.SupplyShares(market.AssetID, to).Sign() == 0 {
		e.state.ExitMarket(to, market.AssetID)
	}

	e.emit(Repaid{
		AssetID:       market.AssetID,
		From:          from,
		To:            to,
		Amount:        cloneBig(amount),
		AccountBorrow: newAccountBorrow,
		TotalBorrow:   cloneBig(market.TotalBorrow),
	})
	return amount, nil
}

// TransferSupplyShares moves deposit receipts between users. The sender is
// solvency-checked afterward; the receiver must be able to hold shares.
func (e *Engine) TransferSupplyShares(caller, from, to Address, assetID string, shares *big.Int) error {
	return e.nonReentrant("transfer", func() error {
		if shares == nil || shares.Sign() <= 0 || isMaxAmount(shares) {
			return errInvalidAmount
		}
		if from == to {
			return errSelfTransfer
		}
		if err := e.authorize(caller, from); err != nil {
			return err
		}
		market, config, err := e.accrue(assetID)
		if err != nil {
			return err
		}
		if !config.Listed {
			return errMarketNotListed
		}
		if config.Pauses.IsTransferPaused() {
			return errTransferPaused
		}
		if e.state.IsCreditAccount(to) {
			return errCreditAccount
		}

		fromShares := e.state.SupplyShares(market.AssetID, from)
		if fromShares.Cmp(shares) < 0 {
			return errInsufficientShares
		}
		remaining := new(big.Int).Sub(fromShares, shares)
		e.state.SetSupplyShares(market.AssetID, from, remaining)
		e.state.SetSupplyShares(market.AssetID, to, new(big.Int).Add(e.state.SupplyShares(market.AssetID, to), shares))
		e.state.EnterMarket(to, market.AssetID)

		if remaining.Sign() == 0 {
			debt := e.state.UserBorrowSnapshot(market.AssetID, from)
			if debt.currentDebt(market.BorrowIndex).Sign() == 0 {
				e.state.ExitMarket(from, market.AssetID)
			}
		}
		if err := e.checkAccountLiquidity(from); err != nil {
			return err
		}

		e.emit(SharesTransferred{AssetID: market.AssetID, From: from, To: to, Shares: cloneBig(shares)})
		return nil
	})
}

// ReduceReserves converts protocol reserve shares into underlying at the
// current exchange rate and pays it to the recipient. Configurator only.
func (e *Engine) ReduceReserves(caller Address, assetID string, shares *big.Int, recipient Address) error {
	return e.nonReentrant("reduce_reserves", func() error {
		if caller != e.admin {
			return errNotAdmin
		}
		if shares == nil || shares.Sign() <= 0 {
			return errInvalidAmount
		}
		market, config, err := e.accrue(assetID)
		if err != nil {
			return err
		}
		if isMaxAmount(shares) {
			shares = cloneBig(market.TotalReserveShares)
			if shares.Sign() == 0 {
				return nil
			}
		}
		if market.TotalReserveShares.Cmp(shares) < 0 {
			return errInsufficientReserves
		}
		rate := exchangeRate(market, config)
		amount := wadMul(shares, rate)
		if market.TotalCash.Cmp(amount) < 0 {
			return errInsufficientCash
		}

		market.TotalReserveShares = new(big.Int).Sub(market.TotalReserveShares, shares)
		market.TotalCash = new(big.Int).Sub(market.TotalCash, amount)
		if err := e.moveUnderlying(market.AssetID, e.vault, recipient, amount); err != nil {
			return err
		}

		e.emit(ReservesReduced{AssetID: market.AssetID, Recipient: recipient, Shares: cloneBig(shares), Amount: amount})
		return nil
	})
}

// SetUserOperator grants or revokes an operator over the caller's positions.
func (e *Engine) SetUserOperator(caller, operator Address, approved bool) error {
	return e.nonReentrant("set_operator", func() error {
		e.state.SetOperator(caller, operator, approved)
		e.emit(OperatorSet{User: caller, Operator: operator, Approved: approved})
		return nil
	})
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
