package economics

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrMissingCloseData       = errors.New("missing close data")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrPnLDivergence          = errors.New("realized pnl diverges from formula")
)

// InputError names the field that failed validation. It matches
// ErrInvalidInput with errors.Is.
type InputError struct {
	Field  string
	Reason string
	Got    string
}

func (e *InputError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s %s, got %s", e.Field, e.Reason, e.Got)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func mustBePositive(field string, v decimal.Decimal) error {
	if v.IsPositive() {
		return nil
	}
	return &InputError{Field: field, Reason: "must be positive", Got: v.String()}
}

// DivergenceError reports a manual realized P&L that disagrees with the
// value derived from prices and quantity.
type DivergenceError struct {
	Manual  decimal.Decimal
	Formula decimal.Decimal
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("realized pnl %s diverges from formula value %s",
		e.Manual.StringFixed(CurrencyPlaces), e.Formula.StringFixed(CurrencyPlaces))
}

func (e *DivergenceError) Unwrap() error {
	return ErrPnLDivergence
}
