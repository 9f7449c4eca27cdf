package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/events"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/pricing"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/id"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInstrumentInactive = errors.New("instrument is not tradable")
	ErrInvalidOrderType   = errors.New("order type must be MARKET or LIMIT")
	ErrLimitPriceRequired = errors.New("limit orders need an openPrice")
	ErrNoSwapRule         = errors.New("no swap rule applies")
)

// QuoteSource supplies live bid/ask quotes
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (pricing.Quote, error)
}

// CommissionDistributor pays referral commissions on closed trades
type CommissionDistributor interface {
	DistributeCommission(ctx context.Context, trade *models.Trade) ([]models.IBCommission, error)
}

// TradeService owns every trade mutation. Each write goes through the
// economics package first and lands with a version check, a balance
// movement and an audit row in one transaction.
type TradeService struct {
	tradeRepo   *repository.TradeRepository
	accountRepo *repository.AccountRepository
	instruments *repository.InstrumentRepository
	charges     *ChargeService
	quotes      QuoteSource
	ib          CommissionDistributor
	publisher   events.Publisher
	policy      economics.OverridePolicy
	logger      *zap.Logger
	now         func() time.Time
}

// NewTradeService creates a new TradeService. ib may be nil.
func NewTradeService(
	tradeRepo *repository.TradeRepository,
	accountRepo *repository.AccountRepository,
	instruments *repository.InstrumentRepository,
	charges *ChargeService,
	quotes QuoteSource,
	ib CommissionDistributor,
	publisher events.Publisher,
	policy economics.OverridePolicy,
	logger *zap.Logger,
) *TradeService {
	return &TradeService{
		tradeRepo:   tradeRepo,
		accountRepo: accountRepo,
		instruments: instruments,
		charges:     charges,
		quotes:      quotes,
		ib:          ib,
		publisher:   publisher,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTradeRequest is the admin create form
type CreateTradeRequest struct {
	TradingAccountID uint             `json:"tradingAccountId" binding:"required"`
	Symbol           string           `json:"symbol" binding:"required"`
	Side             economics.Side   `json:"side" binding:"required"`
	OrderType        models.OrderType `json:"orderType"`
	Quantity         decimal.Decimal  `json:"quantity"`
	OpenPrice        *decimal.Decimal `json:"openPrice"`
	StopLoss         *decimal.Decimal `json:"stopLoss"`
	TakeProfit       *decimal.Decimal `json:"takeProfit"`
}

// EditTradeRequest is the admin edit form. Version is the version the admin
// last read; nil fields are left unchanged.
type EditTradeRequest struct {
	Version         uint             `json:"version" binding:"required"`
	OpenPrice       *decimal.Decimal `json:"openPrice"`
	ClosePrice      *decimal.Decimal `json:"closePrice"`
	Quantity        *decimal.Decimal `json:"quantity"`
	StopLoss        *decimal.Decimal `json:"stopLoss"`
	TakeProfit      *decimal.Decimal `json:"takeProfit"`
	RealizedPnL     *decimal.Decimal `json:"realizedPnl"`
	ClearStopLoss   bool             `json:"clearStopLoss"`
	ClearTakeProfit bool             `json:"clearTakeProfit"`
}

func (r *EditTradeRequest) override() economics.Override {
	return economics.Override{
		OpenPrice:       r.OpenPrice,
		ClosePrice:      r.ClosePrice,
		Quantity:        r.Quantity,
		StopLoss:        r.StopLoss,
		TakeProfit:      r.TakeProfit,
		RealizedPnL:     r.RealizedPnL,
		ClearStopLoss:   r.ClearStopLoss,
		ClearTakeProfit: r.ClearTakeProfit,
	}
}

// CloseTradeRequest closes at ClosePrice, or at the live mark price when
// Market is set. Version is optional.
type CloseTradeRequest struct {
	ClosePrice *decimal.Decimal `json:"closePrice"`
	Market     bool             `json:"market"`
	Version    *uint            `json:"version"`
}

// TradeList is a page of trades with aggregate stats of the whole filter
type TradeList struct {
	Trades []models.Trade         `json:"trades"`
	Total  int64                  `json:"total"`
	Stats  *repository.TradeStats `json:"stats"`
}

// RecomputeResult is the "Calc" action output
type RecomputeResult struct {
	TradeID    uint             `json:"tradeId"`
	Status     economics.Status `json:"status"`
	StoredPnL  decimal.Decimal  `json:"storedPnl"`
	FormulaPnL decimal.Decimal  `json:"formulaPnl"`
	Diverges   bool             `json:"diverges"`
	Manual     bool             `json:"manual"`
	// MarkPrice is set when an open trade was marked to the live quote
	MarkPrice *decimal.Decimal `json:"markPrice,omitempty"`
}

// PnLDivergence is one finding of AuditPnL
type PnLDivergence struct {
	TradeID    uint            `json:"tradeId"`
	TradeRef   string          `json:"tradeRef"`
	StoredPnL  decimal.Decimal `json:"storedPnl"`
	FormulaPnL decimal.Decimal `json:"formulaPnl"`
	Manual     bool            `json:"manual"`
	Fixed      bool            `json:"fixed"`
	Err        string          `json:"error,omitempty"`
}

func (s *TradeService) instrument(symbol string) (*models.Instrument, error) {
	inst, err := s.instruments.GetBySymbol(strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return nil, err
	}
	if !inst.IsActive {
		return nil, ErrInstrumentInactive
	}
	return inst, nil
}

// AdminCreate opens a MARKET trade or places a PENDING LIMIT order on an
// account. A MARKET trade without an openPrice fills at the live quote plus
// the resolved spread; commission is debited when the trade opens.
func (s *TradeService) AdminCreate(ctx context.Context, adminID uint, req *CreateTradeRequest) (*models.Trade, error) {
	account, err := s.accountRepo.GetByID(req.TradingAccountID)
	if err != nil {
		return nil, err
	}
	if account.Status != models.AccountStatusActive {
		return nil, ErrAccountDisabled
	}
	inst, err := s.instrument(req.Symbol)
	if err != nil {
		return nil, err
	}
	if !req.Side.Valid() {
		return nil, &economics.InputError{Field: "side", Reason: "must be BUY or SELL", Got: string(req.Side)}
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = models.OrderTypeMarket
	}
	if orderType != models.OrderTypeMarket && orderType != models.OrderTypeLimit {
		return nil, ErrInvalidOrderType
	}

	res, err := s.charges.ResolveFor(account.UserID, inst)
	if err != nil {
		return nil, err
	}

	snap := economics.Trade{
		Symbol:       inst.Symbol,
		Side:         req.Side,
		Quantity:     req.Quantity,
		ContractSize: inst.ContractSize,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Status:       economics.StatusPending,
		Version:      1,
	}

	switch {
	case orderType == models.OrderTypeLimit:
		if req.OpenPrice == nil {
			return nil, ErrLimitPriceRequired
		}
		snap.OpenPrice = *req.OpenPrice
	case req.OpenPrice != nil:
		snap.OpenPrice = *req.OpenPrice
		snap.Status = economics.StatusOpen
	default:
		q, err := s.quotes.GetQuote(ctx, inst.Symbol)
		if err != nil {
			return nil, err
		}
		price, err := economics.FillPrice(req.Side, q.Bid, q.Ask, res.Spread, inst.PointSize)
		if err != nil {
			return nil, err
		}
		snap.OpenPrice = price.Round(int32(inst.Digits))
		snap.Status = economics.StatusOpen
	}
	if err := economics.Validate(snap); err != nil {
		return nil, err
	}

	now := s.now()
	trade := &models.Trade{
		TradeRef:         id.New(),
		UserID:           account.UserID,
		TradingAccountID: account.ID,
		Symbol:           inst.Symbol,
		Segment:          inst.Segment,
		OrderType:        orderType,
	}
	if snap.Status == economics.StatusOpen {
		snap.Commission = res.Commission.AmountOr(snap, decimal.Zero)
		trade.OpenedAt = &now
	}
	trade.ApplySnapshot(snap)
	trade.Version = 1

	audit := s.audit(adminID, models.AuditCreate, map[string]interface{}{
		"orderType":  orderType,
		"side":       snap.Side,
		"quantity":   snap.Quantity,
		"openPrice":  snap.OpenPrice,
		"status":     snap.Status,
		"commission": snap.Commission,
		"spread":     res.Spread,
	})
	if err := s.tradeRepo.Create(trade, snap.Commission, audit); err != nil {
		return nil, err
	}

	s.logger.Info("trade created",
		zap.Uint("trade_id", trade.ID),
		zap.String("trade_ref", trade.TradeRef),
		zap.Uint("admin_id", adminID),
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.String("status", string(trade.Status)),
		zap.String("open_price", trade.OpenPrice.String()),
	)
	s.publish(ctx, events.TradeOpened, trade, nil)
	return trade, nil
}

// AdminEdit applies an admin override. On a closed trade the account is
// credited or debited by the change in realized P&L.
func (s *TradeService) AdminEdit(ctx context.Context, adminID, tradeID uint, req *EditTradeRequest) (*models.Trade, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	snap := trade.Snapshot()
	if err := economics.CheckVersion(snap, req.Version); err != nil {
		return nil, err
	}

	res, err := economics.ApplyOverride(snap, req.override(), s.policy)
	if err != nil {
		var div *economics.DivergenceError
		if errors.As(err, &div) {
			s.logger.Warn("admin pnl rejected: diverges from formula",
				zap.Uint("trade_id", trade.ID),
				zap.Uint("admin_id", adminID),
				zap.String("manual", div.Manual.String()),
				zap.String("formula", div.Formula.String()),
			)
		}
		return nil, err
	}
	if len(res.Changed) == 0 {
		return trade, nil
	}

	updated := *trade
	updated.ApplySnapshot(res.Trade)
	switch {
	case res.ManualPnL:
		updated.PnLOverridden = true
	case res.Recomputed:
		updated.PnLOverridden = false
	}

	delta := decimal.Zero
	if updated.Status == economics.StatusClosed {
		delta = res.PnLDelta()
	}

	audit := s.audit(adminID, models.AuditEdit, map[string]interface{}{
		"changed":    res.Changed,
		"recomputed": res.Recomputed,
		"before":     snapshotFields(snap),
		"after":      snapshotFields(res.Trade),
	})
	audit.PreviousPnL = res.PreviousPnL
	audit.NewPnL = res.Trade.RealizedPnL
	audit.FormulaPnL = res.FormulaPnL
	audit.ManualPnL = res.ManualPnL

	err = s.tradeRepo.Save(repository.TradeWrite{
		Trade:           &updated,
		ExpectedVersion: req.Version,
		BalanceDelta:    delta,
		AllowOverdraft:  true,
		Audit:           audit,
	})
	if err != nil {
		return nil, err
	}
	*trade = updated

	fields := []zap.Field{
		zap.Uint("trade_id", trade.ID),
		zap.Uint("admin_id", adminID),
		zap.Strings("changed", res.Changed),
		zap.String("previous_pnl", res.PreviousPnL.String()),
		zap.String("new_pnl", trade.RealizedPnL.String()),
		zap.String("balance_delta", delta.String()),
		zap.Uint("version", trade.Version),
	}
	if res.ManualPnL {
		s.logger.Warn("admin override stored manual pnl", append(fields, zap.String("formula_pnl", res.FormulaPnL.String()))...)
	} else {
		s.logger.Info("admin override", fields...)
	}
	s.publish(ctx, events.TradeOverride, trade, map[string]interface{}{
		"adminId":     adminID,
		"changed":     res.Changed,
		"previousPnl": res.PreviousPnL,
		"newPnl":      trade.RealizedPnL,
		"manualPnl":   res.ManualPnL,
	})
	return trade, nil
}

// AdminClose closes an open trade on behalf of an admin
func (s *TradeService) AdminClose(ctx context.Context, adminID, tradeID uint, req *CloseTradeRequest) (*models.Trade, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if req.Version != nil {
		if err := economics.CheckVersion(trade.Snapshot(), *req.Version); err != nil {
			return nil, err
		}
	}

	price := req.ClosePrice
	if price == nil && req.Market {
		if trade.Status != economics.StatusOpen {
			return nil, fmt.Errorf("%w: %s -> %s", economics.ErrInvalidTransition, trade.Status, economics.StatusClosed)
		}
		q, err := s.quotes.GetQuote(ctx, trade.Symbol)
		if err != nil {
			return nil, err
		}
		mark := economics.MarkPrice(trade.Side, q.Bid, q.Ask)
		price = &mark
	}
	aid := adminID
	return s.close(ctx, trade, price, models.CloseReasonAdmin, &aid)
}

// CloseTriggered closes a trade whose stop-loss or take-profit fired
func (s *TradeService) CloseTriggered(ctx context.Context, trade *models.Trade, price decimal.Decimal, reason models.CloseReason) (*models.Trade, error) {
	return s.close(ctx, trade, &price, reason, nil)
}

func (s *TradeService) close(ctx context.Context, trade *models.Trade, price *decimal.Decimal, reason models.CloseReason, adminID *uint) (*models.Trade, error) {
	expected := trade.Version
	snap := trade.Snapshot()
	next, err := economics.Close(snap, price)
	if err != nil {
		return nil, err
	}

	now := s.now()
	closed := *trade
	closed.ApplySnapshot(next)
	closed.CloseReason = reason
	closed.ClosedAt = &now
	settlement := economics.CloseSettlement(next)

	audit := &models.TradeAudit{
		AdminID:     adminID,
		Action:      models.AuditClose,
		Changes:     changesJSON(map[string]interface{}{"closePrice": next.ClosePrice, "reason": reason, "settlement": settlement}),
		PreviousPnL: snap.RealizedPnL,
		NewPnL:      next.RealizedPnL,
		FormulaPnL:  next.RealizedPnL,
	}
	err = s.tradeRepo.Save(repository.TradeWrite{
		Trade:           &closed,
		ExpectedVersion: expected,
		BalanceDelta:    settlement,
		AllowOverdraft:  true,
		Audit:           audit,
	})
	if err != nil {
		return nil, err
	}
	*trade = closed

	s.logger.Info("trade closed",
		zap.Uint("trade_id", trade.ID),
		zap.String("reason", string(reason)),
		zap.String("close_price", price.String()),
		zap.String("realized_pnl", trade.RealizedPnL.String()),
		zap.String("settlement", settlement.String()),
	)

	if s.ib != nil {
		if _, err := s.ib.DistributeCommission(ctx, trade); err != nil {
			s.logger.Error("ib commission distribution failed", zap.Uint("trade_id", trade.ID), zap.Error(err))
		}
	}
	s.publish(ctx, events.TradeClosed, trade, map[string]interface{}{"settlement": settlement})
	return trade, nil
}

// Cancel withdraws a pending order
func (s *TradeService) Cancel(ctx context.Context, adminID, tradeID uint) (*models.Trade, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	aid := adminID
	return s.cancel(ctx, trade, &aid, "admin")
}

func (s *TradeService) cancel(ctx context.Context, trade *models.Trade, adminID *uint, why string) (*models.Trade, error) {
	expected := trade.Version
	next, err := economics.Cancel(trade.Snapshot())
	if err != nil {
		return nil, err
	}
	cancelled := *trade
	cancelled.ApplySnapshot(next)

	err = s.tradeRepo.Save(repository.TradeWrite{
		Trade:           &cancelled,
		ExpectedVersion: expected,
		Audit: &models.TradeAudit{
			AdminID: adminID,
			Action:  models.AuditCancel,
			Changes: changesJSON(map[string]interface{}{"reason": why}),
		},
	})
	if err != nil {
		return nil, err
	}
	*trade = cancelled
	s.logger.Info("trade cancelled", zap.Uint("trade_id", trade.ID), zap.String("reason", why))
	s.publish(ctx, events.TradeCancelled, trade, nil)
	return trade, nil
}

// FillPending opens a pending limit order at its limit price and debits the
// commission. An account that cannot pay the commission has the order
// cancelled.
func (s *TradeService) FillPending(ctx context.Context, trade *models.Trade) (*models.Trade, error) {
	inst, err := s.instruments.GetBySymbol(trade.Symbol)
	if err != nil {
		return nil, err
	}
	res, err := s.charges.ResolveFor(trade.UserID, inst)
	if err != nil {
		return nil, err
	}

	expected := trade.Version
	snap := trade.Snapshot()
	next, err := economics.Fill(snap, snap.OpenPrice)
	if err != nil {
		return nil, err
	}
	next.Commission = res.Commission.AmountOr(next, decimal.Zero)

	now := s.now()
	filled := *trade
	filled.ApplySnapshot(next)
	filled.OpenedAt = &now

	err = s.tradeRepo.Save(repository.TradeWrite{
		Trade:           &filled,
		ExpectedVersion: expected,
		BalanceDelta:    next.Commission.Neg(),
		Audit: &models.TradeAudit{
			Action:  models.AuditFill,
			Changes: changesJSON(map[string]interface{}{"openPrice": next.OpenPrice, "commission": next.Commission}),
		},
	})
	if errors.Is(err, repository.ErrInsufficientBalance) {
		s.logger.Warn("cannot pay commission on fill, cancelling order", zap.Uint("trade_id", trade.ID))
		return s.cancel(ctx, trade, nil, "insufficient balance for commission")
	}
	if err != nil {
		return nil, err
	}
	*trade = filled

	s.logger.Info("limit order filled",
		zap.Uint("trade_id", trade.ID),
		zap.String("open_price", trade.OpenPrice.String()),
		zap.String("commission", trade.Commission.String()),
	)
	s.publish(ctx, events.TradeOpened, trade, nil)
	return trade, nil
}

// AccrueSwap charges nights of swap on an open trade. The amount is held on
// the trade and settled when it closes. ErrNoSwapRule means nothing applies.
func (s *TradeService) AccrueSwap(ctx context.Context, trade *models.Trade, nights int) (decimal.Decimal, error) {
	inst, err := s.instruments.GetBySymbol(trade.Symbol)
	if err != nil {
		return decimal.Zero, err
	}
	res, err := s.charges.ResolveFor(trade.UserID, inst)
	if err != nil {
		return decimal.Zero, err
	}
	swap := res.Swap(trade.Side)
	if !swap.Found {
		return decimal.Zero, ErrNoSwapRule
	}

	expected := trade.Version
	next, amount, err := economics.AccrueSwap(trade.Snapshot(), swap, inst.PointValuePerLot(), nights)
	if err != nil {
		return decimal.Zero, err
	}

	now := s.now()
	accrued := *trade
	accrued.ApplySnapshot(next)
	accrued.LastSwapAt = &now
	err = s.tradeRepo.Save(repository.TradeWrite{
		Trade:           &accrued,
		ExpectedVersion: expected,
		Audit: &models.TradeAudit{
			Action: models.AuditSwap,
			Changes: changesJSON(map[string]interface{}{
				"nights": nights, "points": swap.Points, "amount": amount, "source": swap.Source,
			}),
		},
	})
	if err != nil {
		return decimal.Zero, err
	}
	*trade = accrued

	s.logger.Info("swap accrued",
		zap.Uint("trade_id", trade.ID),
		zap.Int("nights", nights),
		zap.String("amount", amount.String()),
		zap.String("total_swap", trade.Swap.String()),
	)
	s.publish(ctx, events.TradeSwapAccrued, trade, map[string]interface{}{"amount": amount, "nights": nights})
	return amount, nil
}

// Get returns one trade
func (s *TradeService) Get(tradeID uint) (*models.Trade, error) {
	return s.tradeRepo.GetByID(tradeID)
}

// Audits returns the audit trail of a trade
func (s *TradeService) Audits(tradeID uint) ([]models.TradeAudit, error) {
	if _, err := s.tradeRepo.GetByID(tradeID); err != nil {
		return nil, err
	}
	return s.tradeRepo.Audits(tradeID)
}

// List returns a page of trades and the stats of the whole filter
func (s *TradeService) List(f repository.TradeFilter) (*TradeList, error) {
	trades, total, err := s.tradeRepo.List(f)
	if err != nil {
		return nil, err
	}
	stats, err := s.tradeRepo.Stats(f)
	if err != nil {
		return nil, err
	}
	return &TradeList{Trades: trades, Total: total, Stats: stats}, nil
}

// History returns the trades of one of the user's accounts
func (s *TradeService) History(userID, accountID uint, limit int) (*TradeList, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrAccountNotOwned
	}
	return s.List(repository.TradeFilter{TradingAccountID: accountID, Limit: limit})
}

// ByStatus returns every trade in status, oldest first
func (s *TradeService) ByStatus(status economics.Status) ([]models.Trade, error) {
	return s.tradeRepo.ListByStatus(status)
}

// Recompute derives a trade's P&L without writing anything. Closed trades
// use their close price; open trades are marked to the live quote.
func (s *TradeService) Recompute(ctx context.Context, tradeID uint) (*RecomputeResult, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	snap := trade.Snapshot()
	out := &RecomputeResult{
		TradeID:   trade.ID,
		Status:    trade.Status,
		StoredPnL: trade.RealizedPnL,
		Manual:    trade.PnLOverridden,
	}

	switch trade.Status {
	case economics.StatusClosed:
		out.FormulaPnL, err = economics.Recompute(snap)
	case economics.StatusOpen:
		var q pricing.Quote
		if q, err = s.quotes.GetQuote(ctx, trade.Symbol); err != nil {
			return nil, err
		}
		mark := economics.MarkPrice(trade.Side, q.Bid, q.Ask)
		out.MarkPrice = &mark
		out.FormulaPnL, err = economics.UnrealizedPnL(snap, mark)
	default:
		err = economics.ErrMissingCloseData
	}
	if err != nil {
		return nil, err
	}
	out.Diverges = trade.Status == economics.StatusClosed && !out.FormulaPnL.Equal(out.StoredPnL)
	return out, nil
}

// AuditPnL re-derives the realized P&L of every closed trade. With fix set,
// non-manual divergences are rewritten to the formula value and the account
// is adjusted by the difference.
func (s *TradeService) AuditPnL(ctx context.Context, fix bool) ([]PnLDivergence, error) {
	trades, err := s.tradeRepo.ListByStatus(economics.StatusClosed)
	if err != nil {
		return nil, err
	}

	var out []PnLDivergence
	for i := range trades {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		trade := &trades[i]
		formula, err := economics.Recompute(trade.Snapshot())
		if err != nil {
			out = append(out, PnLDivergence{TradeID: trade.ID, TradeRef: trade.TradeRef, StoredPnL: trade.RealizedPnL, Err: err.Error()})
			continue
		}
		if formula.Equal(trade.RealizedPnL) {
			continue
		}

		d := PnLDivergence{
			TradeID:    trade.ID,
			TradeRef:   trade.TradeRef,
			StoredPnL:  trade.RealizedPnL,
			FormulaPnL: formula,
			Manual:     trade.PnLOverridden,
		}
		if fix && !trade.PnLOverridden {
			if err := s.restorePnL(trade, formula); err != nil {
				d.Err = err.Error()
			} else {
				d.Fixed = true
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *TradeService) restorePnL(trade *models.Trade, formula decimal.Decimal) error {
	expected := trade.Version
	previous := trade.RealizedPnL
	delta := formula.Sub(previous)
	restored := *trade
	restored.RealizedPnL = formula

	err := s.tradeRepo.Save(repository.TradeWrite{
		Trade:           &restored,
		ExpectedVersion: expected,
		BalanceDelta:    delta,
		AllowOverdraft:  true,
		Audit: &models.TradeAudit{
			Action:      models.AuditPnLRestore,
			Changes:     changesJSON(map[string]interface{}{"delta": delta}),
			PreviousPnL: previous,
			NewPnL:      formula,
			FormulaPnL:  formula,
		},
	})
	if err != nil {
		return err
	}
	*trade = restored
	s.logger.Warn("realized pnl restored to formula value",
		zap.Uint("trade_id", trade.ID),
		zap.String("previous", previous.String()),
		zap.String("formula", formula.String()),
	)
	return nil
}

func (s *TradeService) audit(adminID uint, action models.AuditAction, changes map[string]interface{}) *models.TradeAudit {
	aid := adminID
	return &models.TradeAudit{AdminID: &aid, Action: action, Changes: changesJSON(changes)}
}

func snapshotFields(t economics.Trade) map[string]interface{} {
	return map[string]interface{}{
		"openPrice":   t.OpenPrice,
		"closePrice":  t.ClosePrice,
		"quantity":    t.Quantity,
		"stopLoss":    t.StopLoss,
		"takeProfit":  t.TakeProfit,
		"realizedPnl": t.RealizedPnL,
	}
}

func changesJSON(v map[string]interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (s *TradeService) publish(ctx context.Context, typ events.Type, trade *models.Trade, extra map[string]interface{}) {
	payload := map[string]interface{}{"trade": trade}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.publisher.Publish(ctx, events.New(typ, trade.TradeRef, payload)); err != nil {
		s.logger.Warn("publish trade event failed", zap.String("type", string(typ)), zap.Uint("trade_id", trade.ID), zap.Error(err))
	}
}
