// Package pricing supplies live bid/ask quotes for the trade engine.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrQuoteUnavailable = errors.New("quote unavailable")

// Quote is a two-sided price at a point in time
type Quote struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Time   time.Time       `json:"time"`
}

// Mid is the average of bid and ask
func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
}

// Validate rejects quotes that must never reach the engine
func (q Quote) Validate() error {
	if !q.Bid.IsPositive() || !q.Ask.IsPositive() {
		return fmt.Errorf("%w: %s has non-positive price bid=%s ask=%s", ErrQuoteUnavailable, q.Symbol, q.Bid, q.Ask)
	}
	if q.Ask.LessThan(q.Bid) {
		return fmt.Errorf("%w: %s is crossed bid=%s ask=%s", ErrQuoteUnavailable, q.Symbol, q.Bid, q.Ask)
	}
	return nil
}

// Provider pulls a quote on demand
type Provider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// Cache shares quotes between processes
type Cache interface {
	Put(ctx context.Context, q Quote) error
	Get(ctx context.Context, symbol string) (Quote, error)
}
