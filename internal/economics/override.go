package economics

import (
	"github.com/shopspring/decimal"
)

// Override is an administrator edit. Nil fields are left unchanged.
type Override struct {
	OpenPrice       *decimal.Decimal
	ClosePrice      *decimal.Decimal
	Quantity        *decimal.Decimal
	StopLoss        *decimal.Decimal
	TakeProfit      *decimal.Decimal
	RealizedPnL     *decimal.Decimal
	ClearStopLoss   bool
	ClearTakeProfit bool
}

// OverridePolicy controls how strictly admin edits are held to the P&L formula.
type OverridePolicy struct {
	// AllowManualPnL stores a realized P&L that disagrees with the formula
	// instead of rejecting it. The result is flagged as manual.
	AllowManualPnL bool
}

// OverrideResult is the edited trade plus what happened to it.
type OverrideResult struct {
	Trade       Trade
	Changed     []string
	Recomputed  bool
	ManualPnL   bool
	PreviousPnL decimal.Decimal
	FormulaPnL  decimal.Decimal
}

// PnLDelta is the change in realized P&L the edit caused.
func (r OverrideResult) PnLDelta() decimal.Decimal {
	return r.Trade.RealizedPnL.Sub(r.PreviousPnL)
}

// ApplyOverride applies an admin edit to t. If no priced field changed the
// stored realized P&L is kept. If a priced field changed on a closed trade the
// P&L is recomputed from the formula.
func ApplyOverride(t Trade, o Override, policy OverridePolicy) (OverrideResult, error) {
	res := OverrideResult{Trade: t, PreviousPnL: t.RealizedPnL, FormulaPnL: t.RealizedPnL}

	if t.Status == StatusCancelled {
		return res, transitionError(t.Status, t.Status)
	}
	closed := t.Status == StatusClosed
	if o.ClosePrice != nil && !closed {
		return res, &InputError{Field: "closePrice", Reason: "can only be set on a closed trade"}
	}
	if o.RealizedPnL != nil && !closed && !o.RealizedPnL.IsZero() {
		return res, &InputError{Field: "realizedPnl", Reason: "can only be set on a closed trade", Got: o.RealizedPnL.String()}
	}

	next := t
	priced := false
	var changed []string

	setPriced := func(field string, dst *decimal.Decimal, v *decimal.Decimal) {
		if v == nil || dst.Equal(*v) {
			return
		}
		*dst = *v
		priced = true
		changed = append(changed, field)
	}
	setPriced("openPrice", &next.OpenPrice, o.OpenPrice)
	setPriced("quantity", &next.Quantity, o.Quantity)
	if o.ClosePrice != nil && (next.ClosePrice == nil || !next.ClosePrice.Equal(*o.ClosePrice)) {
		if err := checkClosePrice(o.ClosePrice); err != nil {
			return res, err
		}
		next.ClosePrice = decimalPtr(*o.ClosePrice)
		priced = true
		changed = append(changed, "closePrice")
	}

	next.StopLoss, changed = applyTrigger("stopLoss", next.StopLoss, o.StopLoss, o.ClearStopLoss, changed)
	next.TakeProfit, changed = applyTrigger("takeProfit", next.TakeProfit, o.TakeProfit, o.ClearTakeProfit, changed)

	if err := Validate(next); err != nil {
		return res, err
	}

	if closed {
		formula, err := Recompute(next)
		if err != nil {
			return res, err
		}
		res.FormulaPnL = formula
		if priced {
			next.RealizedPnL = formula
			res.Recomputed = true
		}

		if o.RealizedPnL != nil {
			manual := o.RealizedPnL.Round(CurrencyPlaces)
			switch {
			case manual.Equal(formula):
				next.RealizedPnL = formula
			case policy.AllowManualPnL:
				next.RealizedPnL = manual
				res.ManualPnL = true
				res.Recomputed = false
			default:
				return res, &DivergenceError{Manual: manual, Formula: formula}
			}
			if !manual.Equal(t.RealizedPnL) {
				changed = append(changed, "realizedPnl")
			}
		}
	}

	res.Trade = next
	res.Changed = changed
	return res, nil
}

func applyTrigger(field string, cur, v *decimal.Decimal, clear bool, changed []string) (*decimal.Decimal, []string) {
	if clear {
		if cur == nil {
			return nil, changed
		}
		return nil, append(changed, field)
	}
	if v == nil || (cur != nil && cur.Equal(*v)) {
		return cur, changed
	}
	return decimalPtr(*v), append(changed, field)
}
