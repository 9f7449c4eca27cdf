package worker

import (
	"context"
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeMonitor fills pending limit orders and closes open trades whose
// stop-loss or take-profit is hit by the live quote.
type TradeMonitor struct {
	desk     TradeDesk
	quotes   QuoteSource
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewTradeMonitor creates a monitor that checks every interval
func NewTradeMonitor(desk TradeDesk, quotes QuoteSource, interval time.Duration, logger *zap.Logger) *TradeMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &TradeMonitor{
		desk:     desk,
		quotes:   quotes,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs the monitoring loop until Stop is called or ctx is done
func (m *TradeMonitor) Start(ctx context.Context) {
	m.logger.Info("trade monitor started", zap.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			m.logger.Info("trade monitor stopped")
			return
		case <-m.stopChan:
			m.logger.Info("trade monitor stopped")
			return
		}
	}
}

// Stop stops the monitoring loop
func (m *TradeMonitor) Stop() {
	close(m.stopChan)
}

// Check runs one pass over pending and open trades
func (m *TradeMonitor) Check(ctx context.Context) {
	m.fillPending(ctx)
	m.checkTriggers(ctx)
}

func (m *TradeMonitor) fillPending(ctx context.Context) {
	trades, err := m.desk.ByStatus(economics.StatusPending)
	if err != nil {
		m.logger.Error("list pending trades", zap.Error(err))
		return
	}
	for i := range trades {
		t := &trades[i]
		q, ok := m.quote(ctx, t.Symbol)
		if !ok || !limitReached(t, q) {
			continue
		}
		if _, err := m.desk.FillPending(ctx, t); err != nil {
			m.logger.Error("fill limit order", zap.Uint("trade_id", t.ID), zap.Error(err))
		}
	}
}

func (m *TradeMonitor) checkTriggers(ctx context.Context) {
	trades, err := m.desk.ByStatus(economics.StatusOpen)
	if err != nil {
		m.logger.Error("list open trades", zap.Error(err))
		return
	}
	for i := range trades {
		t := &trades[i]
		if !t.StopLoss.Valid && !t.TakeProfit.Valid {
			continue
		}
		q, ok := m.quote(ctx, t.Symbol)
		if !ok {
			continue
		}
		reason, price, hit := triggered(t, q)
		if !hit {
			continue
		}
		m.logger.Info("trade trigger hit",
			zap.Uint("trade_id", t.ID),
			zap.String("symbol", t.Symbol),
			zap.String("reason", string(reason)),
			zap.String("price", price.String()),
		)
		if _, err := m.desk.CloseTriggered(ctx, t, price, reason); err != nil {
			m.logger.Error("close triggered trade", zap.Uint("trade_id", t.ID), zap.Error(err))
		}
	}
}

func (m *TradeMonitor) quote(ctx context.Context, symbol string) (pricing.Quote, bool) {
	q, err := m.quotes.GetQuote(ctx, symbol)
	if err != nil {
		m.logger.Debug("no quote", zap.String("symbol", symbol), zap.Error(err))
		return pricing.Quote{}, false
	}
	return q, true
}

// limitReached reports whether a pending order can fill at its limit price:
// a BUY once the ask is at or below it, a SELL once the bid is at or above it.
func limitReached(t *models.Trade, q pricing.Quote) bool {
	if t.Side == economics.SideBuy {
		return q.Ask.LessThanOrEqual(t.OpenPrice)
	}
	return q.Bid.GreaterThanOrEqual(t.OpenPrice)
}

// triggered checks stop-loss before take-profit against the mark price.
//
// | Side | Stop-loss    | Take-profit  |
// |------|--------------|--------------|
// | BUY  | bid <= sl    | bid >= tp    |
// | SELL | ask >= sl    | ask <= tp    |
func triggered(t *models.Trade, q pricing.Quote) (models.CloseReason, decimal.Decimal, bool) {
	mark := economics.MarkPrice(t.Side, q.Bid, q.Ask)
	buy := t.Side == economics.SideBuy

	if sl := t.StopLoss; sl.Valid && sl.Decimal.IsPositive() {
		if (buy && mark.LessThanOrEqual(sl.Decimal)) || (!buy && mark.GreaterThanOrEqual(sl.Decimal)) {
			return models.CloseReasonStopLoss, mark, true
		}
	}
	if tp := t.TakeProfit; tp.Valid && tp.Decimal.IsPositive() {
		if (buy && mark.GreaterThanOrEqual(tp.Decimal)) || (!buy && mark.LessThanOrEqual(tp.Decimal)) {
			return models.CloseReasonTakeProfit, mark, true
		}
	}
	return "", decimal.Zero, false
}
