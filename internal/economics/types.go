// Package economics computes trade P&L, charges and swap, and owns the
// trade lifecycle rules. Every function is pure: inputs are passed by value
// and a rejected operation leaves the caller's trade untouched.
package economics

import (
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision every money amount is rounded to.
const CurrencyPlaces int32 = 2

// Side is the direction of a position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Status is the lifecycle state of a trade.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOpen, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Trade is the engine's view of a leveraged position. Persistence layers
// convert their records to and from this snapshot.
type Trade struct {
	Symbol       string
	Side         Side
	Quantity     decimal.Decimal // lots
	ContractSize decimal.Decimal // units per lot
	OpenPrice    decimal.Decimal
	ClosePrice   *decimal.Decimal
	StopLoss     *decimal.Decimal
	TakeProfit   *decimal.Decimal
	Status       Status
	RealizedPnL  decimal.Decimal
	Commission   decimal.Decimal
	Swap         decimal.Decimal
	Version      uint
}

// Notional returns the exposure of the trade at its open price.
func (t Trade) Notional() decimal.Decimal {
	return t.OpenPrice.Mul(t.Quantity).Mul(t.ContractSize)
}

// Exposure returns quantity × contract size.
func (t Trade) Exposure() decimal.Decimal {
	return t.Quantity.Mul(t.ContractSize)
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
