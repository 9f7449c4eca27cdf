// Package worker runs the background loops of the trade desk: the monitor
// that fills limit orders and fires stop-loss/take-profit, and the nightly
// swap rollover.
package worker

import (
	"context"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/pricing"
	"github.com/shopspring/decimal"
)

// TradeDesk is the part of the trade service the workers drive
type TradeDesk interface {
	ByStatus(status economics.Status) ([]models.Trade, error)
	FillPending(ctx context.Context, trade *models.Trade) (*models.Trade, error)
	CloseTriggered(ctx context.Context, trade *models.Trade, price decimal.Decimal, reason models.CloseReason) (*models.Trade, error)
	AccrueSwap(ctx context.Context, trade *models.Trade, nights int) (decimal.Decimal, error)
}

// QuoteSource returns the live quote of a symbol
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (pricing.Quote, error)
}
