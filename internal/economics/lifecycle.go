package economics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusOpen, StatusCancelled},
	StatusOpen:    {StatusOpen, StatusClosed},
}

// CanTransition reports whether a trade may move from one status to another.
// OPEN -> OPEN is the admin edit transition.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Fill opens a pending trade at price.
func Fill(t Trade, price decimal.Decimal) (Trade, error) {
	if !CanTransition(t.Status, StatusOpen) || t.Status == StatusOpen {
		return t, transitionError(t.Status, StatusOpen)
	}
	next := t
	next.OpenPrice = price
	if err := Validate(next); err != nil {
		return t, err
	}
	next.Status = StatusOpen
	next.RealizedPnL = decimal.Zero
	return next, nil
}

// Close settles an open trade at closePrice and fixes its realized P&L.
// A nil close price is always ErrMissingCloseData, whatever the status.
func Close(t Trade, closePrice *decimal.Decimal) (Trade, error) {
	if err := checkClosePrice(closePrice); err != nil {
		return t, err
	}
	if !CanTransition(t.Status, StatusClosed) {
		return t, transitionError(t.Status, StatusClosed)
	}
	if err := Validate(t); err != nil {
		return t, err
	}

	next := t
	next.ClosePrice = decimalPtr(*closePrice)
	next.RealizedPnL = PnL(next.Side, next.OpenPrice, *closePrice, next.Quantity, next.ContractSize)
	next.Status = StatusClosed
	return next, nil
}

// Cancel withdraws a pending order. Open trades must be closed instead.
func Cancel(t Trade) (Trade, error) {
	if !CanTransition(t.Status, StatusCancelled) {
		return t, transitionError(t.Status, StatusCancelled)
	}
	next := t
	next.Status = StatusCancelled
	next.RealizedPnL = decimal.Zero
	return next, nil
}

// CheckVersion compares the stored version of a snapshot with the version
// the caller last read.
func CheckVersion(t Trade, expected uint) error {
	if t.Version != expected {
		return fmt.Errorf("%w: expected version %d, found %d", ErrConcurrentModification, expected, t.Version)
	}
	return nil
}
