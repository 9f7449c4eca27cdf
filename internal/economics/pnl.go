package economics

import (
	"github.com/shopspring/decimal"
)

// PnL returns the signed profit of moving quantity lots from openPrice to
// closePrice, rounded to currency precision.
//
//	BUY:  (close - open) * quantity * contractSize
//	SELL: (open - close) * quantity * contractSize
func PnL(side Side, openPrice, closePrice, quantity, contractSize decimal.Decimal) decimal.Decimal {
	delta := closePrice.Sub(openPrice)
	if side == SideSell {
		delta = delta.Neg()
	}
	return delta.Mul(quantity).Mul(contractSize).Round(CurrencyPlaces)
}

// Validate checks the fields every trade must carry regardless of status.
func Validate(t Trade) error {
	if !t.Side.Valid() {
		return &InputError{Field: "side", Reason: "must be BUY or SELL", Got: string(t.Side)}
	}
	if err := mustBePositive("quantity", t.Quantity); err != nil {
		return err
	}
	if err := mustBePositive("contractSize", t.ContractSize); err != nil {
		return err
	}
	if err := mustBePositive("openPrice", t.OpenPrice); err != nil {
		return err
	}
	if t.StopLoss != nil {
		if err := mustBePositive("stopLoss", *t.StopLoss); err != nil {
			return err
		}
	}
	if t.TakeProfit != nil {
		if err := mustBePositive("takeProfit", *t.TakeProfit); err != nil {
			return err
		}
	}
	return nil
}

// Recompute derives the realized P&L of t from its prices and quantity.
// It never reads t.RealizedPnL, so calling it repeatedly yields the same
// value for the same inputs.
func Recompute(t Trade) (decimal.Decimal, error) {
	if err := Validate(t); err != nil {
		return decimal.Zero, err
	}
	if err := checkClosePrice(t.ClosePrice); err != nil {
		return decimal.Zero, err
	}
	return PnL(t.Side, t.OpenPrice, *t.ClosePrice, t.Quantity, t.ContractSize), nil
}

// UnrealizedPnL marks an open trade to markPrice.
func UnrealizedPnL(t Trade, markPrice decimal.Decimal) (decimal.Decimal, error) {
	if err := Validate(t); err != nil {
		return decimal.Zero, err
	}
	if err := mustBePositive("markPrice", markPrice); err != nil {
		return decimal.Zero, err
	}
	return PnL(t.Side, t.OpenPrice, markPrice, t.Quantity, t.ContractSize), nil
}

// MarkPrice returns the side of the quote a position would close against:
// BUY positions are sold at the bid, SELL positions are bought at the ask.
func MarkPrice(side Side, bid, ask decimal.Decimal) decimal.Decimal {
	if side == SideBuy {
		return bid
	}
	return ask
}

// CloseSettlement is the amount credited to the trading account when t
// closes. Commission is debited at open, so only swap is netted here.
func CloseSettlement(t Trade) decimal.Decimal {
	return t.RealizedPnL.Sub(t.Swap).Round(CurrencyPlaces)
}

func checkClosePrice(p *decimal.Decimal) error {
	if p == nil {
		return ErrMissingCloseData
	}
	return mustBePositive("closePrice", *p)
}
