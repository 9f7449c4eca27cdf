package economics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Level is the scope a charge rule applies at.
type Level string

const (
	LevelGlobal     Level = "GLOBAL"
	LevelSegment    Level = "SEGMENT"
	LevelInstrument Level = "INSTRUMENT"
	LevelUser       Level = "USER"
)

func (l Level) Valid() bool {
	switch l {
	case LevelGlobal, LevelSegment, LevelInstrument, LevelUser:
		return true
	}
	return false
}

type SpreadType string

const (
	SpreadFixed      SpreadType = "FIXED" // points
	SpreadPercentage SpreadType = "PERCENTAGE"
)

type CommissionType string

const (
	CommissionPerLot     CommissionType = "PER_LOT"
	CommissionPerTrade   CommissionType = "PER_TRADE"
	CommissionPercentage CommissionType = "PERCENTAGE"
)

// Rule is one charge schedule. A nil value means the rule does not set that
// field and resolution falls through to the next level.
type Rule struct {
	ID              uint
	Level           Level
	Segment         string
	Symbol          string
	UserID          uint
	SpreadType      SpreadType
	SpreadValue     *decimal.Decimal
	CommissionType  CommissionType
	CommissionValue *decimal.Decimal
	SwapLong        *decimal.Decimal
	SwapShort       *decimal.Decimal
}

// Scope is what a trade is resolved against.
type Scope struct {
	UserID  uint
	Symbol  string
	Segment string
}

// Predicate decides whether a rule belongs to a precedence level for a scope.
type Predicate struct {
	Level   Level
	Matches func(r Rule, s Scope) bool
}

// DefaultPrecedence is USER, INSTRUMENT, SEGMENT, GLOBAL.
var DefaultPrecedence = []Predicate{
	{Level: LevelUser, Matches: func(r Rule, s Scope) bool {
		if r.UserID == 0 || r.UserID != s.UserID {
			return false
		}
		return (r.Symbol == "" || r.Symbol == s.Symbol) && (r.Segment == "" || r.Segment == s.Segment)
	}},
	{Level: LevelInstrument, Matches: func(r Rule, s Scope) bool {
		return r.Symbol != "" && r.Symbol == s.Symbol
	}},
	{Level: LevelSegment, Matches: func(r Rule, s Scope) bool {
		return r.Segment != "" && r.Segment == s.Segment
	}},
	{Level: LevelGlobal, Matches: func(r Rule, s Scope) bool {
		return true
	}},
}

// SpreadCharge is the resolved spread. Found is false when no level set it.
type SpreadCharge struct {
	Found  bool            `json:"found"`
	Type   SpreadType      `json:"type,omitempty"`
	Value  decimal.Decimal `json:"value"`
	Source Level           `json:"source,omitempty"`
	RuleID uint            `json:"ruleId,omitempty"`
}

// CommissionCharge is the resolved commission.
type CommissionCharge struct {
	Found  bool            `json:"found"`
	Type   CommissionType  `json:"type,omitempty"`
	Value  decimal.Decimal `json:"value"`
	Source Level           `json:"source,omitempty"`
	RuleID uint            `json:"ruleId,omitempty"`
}

// SwapCharge is the resolved swap in points per lot per night.
type SwapCharge struct {
	Found  bool            `json:"found"`
	Points decimal.Decimal `json:"points"`
	Source Level           `json:"source,omitempty"`
	RuleID uint            `json:"ruleId,omitempty"`
}

// Resolution holds the effective charges for one scope.
type Resolution struct {
	Spread     SpreadCharge     `json:"spread"`
	Commission CommissionCharge `json:"commission"`
	SwapLong   SwapCharge       `json:"swapLong"`
	SwapShort  SwapCharge       `json:"swapShort"`
}

// Applicable reports whether any field was resolved.
func (r Resolution) Applicable() bool {
	return r.Spread.Found || r.Commission.Found || r.SwapLong.Found || r.SwapShort.Found
}

// Swap returns the swap charge for a position side.
func (r Resolution) Swap(side Side) SwapCharge {
	if side == SideSell {
		return r.SwapShort
	}
	return r.SwapLong
}

// Resolver walks rules through an ordered list of level predicates.
type Resolver struct {
	Precedence []Predicate
}

// NewResolver returns a resolver using DefaultPrecedence.
func NewResolver() *Resolver {
	return &Resolver{Precedence: DefaultPrecedence}
}

// Resolve picks, for every charge field independently, the value of the
// most specific rule that sets it.
func (rv *Resolver) Resolve(rules []Rule, scope Scope) Resolution {
	var res Resolution
	for _, p := range rv.Precedence {
		for _, r := range candidates(rules, scope, p) {
			if !res.Spread.Found && r.SpreadValue != nil {
				res.Spread = SpreadCharge{Found: true, Type: spreadTypeOrDefault(r.SpreadType), Value: *r.SpreadValue, Source: p.Level, RuleID: r.ID}
			}
			if !res.Commission.Found && r.CommissionValue != nil {
				res.Commission = CommissionCharge{Found: true, Type: commissionTypeOrDefault(r.CommissionType), Value: *r.CommissionValue, Source: p.Level, RuleID: r.ID}
			}
			if !res.SwapLong.Found && r.SwapLong != nil {
				res.SwapLong = SwapCharge{Found: true, Points: *r.SwapLong, Source: p.Level, RuleID: r.ID}
			}
			if !res.SwapShort.Found && r.SwapShort != nil {
				res.SwapShort = SwapCharge{Found: true, Points: *r.SwapShort, Source: p.Level, RuleID: r.ID}
			}
		}
	}
	return res
}

// candidates returns the rules at p's level that match scope, most specific
// first, then newest first.
func candidates(rules []Rule, scope Scope, p Predicate) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Level == p.Level && p.Matches(r, scope) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := specificity(out[i]), specificity(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func specificity(r Rule) int {
	n := 0
	if r.Symbol != "" {
		n += 2
	}
	if r.Segment != "" {
		n++
	}
	return n
}

func spreadTypeOrDefault(t SpreadType) SpreadType {
	if t == "" {
		return SpreadFixed
	}
	return t
}

func commissionTypeOrDefault(t CommissionType) CommissionType {
	if t == "" {
		return CommissionPerLot
	}
	return t
}

// Commission computes the commission for a fill, rounded to currency precision.
func Commission(ct CommissionType, value, openPrice, quantity, contractSize decimal.Decimal) decimal.Decimal {
	var c decimal.Decimal
	switch ct {
	case CommissionPerTrade:
		c = value
	case CommissionPercentage:
		c = value.Div(decimal.NewFromInt(100)).Mul(openPrice).Mul(quantity).Mul(contractSize)
	default:
		c = value.Mul(quantity)
	}
	return c.Round(CurrencyPlaces)
}

// AmountOr returns the commission for t, or def when no rule set one.
func (c CommissionCharge) AmountOr(t Trade, def decimal.Decimal) decimal.Decimal {
	if !c.Found {
		return def
	}
	return Commission(c.Type, c.Value, t.OpenPrice, t.Quantity, t.ContractSize)
}

// Markup returns the price distance the spread adds to a fill.
// FIXED spreads are expressed in points of pointSize.
func (s SpreadCharge) Markup(price, pointSize decimal.Decimal) decimal.Decimal {
	if !s.Found {
		return decimal.Zero
	}
	if s.Type == SpreadPercentage {
		return price.Mul(s.Value).Div(decimal.NewFromInt(100))
	}
	return s.Value.Mul(pointSize)
}

// FillPrice returns the price a market order fills at: BUY pays the ask
// plus markup, SELL receives the bid minus markup.
func FillPrice(side Side, bid, ask decimal.Decimal, spread SpreadCharge, pointSize decimal.Decimal) (decimal.Decimal, error) {
	if err := mustBePositive("bid", bid); err != nil {
		return decimal.Zero, err
	}
	if err := mustBePositive("ask", ask); err != nil {
		return decimal.Zero, err
	}
	var price decimal.Decimal
	if side == SideBuy {
		price = ask.Add(spread.Markup(ask, pointSize))
	} else {
		price = bid.Sub(spread.Markup(bid, pointSize))
	}
	if err := mustBePositive("fillPrice", price); err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// AccrueSwap adds nights of swap to an open trade. A positive amount is a
// charge to the holder, a negative one a credit. pointValuePerLot converts
// one point on one lot to account currency.
func AccrueSwap(t Trade, swap SwapCharge, pointValuePerLot decimal.Decimal, nights int) (Trade, decimal.Decimal, error) {
	if t.Status != StatusOpen {
		return t, decimal.Zero, transitionError(t.Status, StatusOpen)
	}
	if nights <= 0 {
		return t, decimal.Zero, &InputError{Field: "nights", Reason: "must be positive"}
	}
	if err := mustBePositive("pointValuePerLot", pointValuePerLot); err != nil {
		return t, decimal.Zero, err
	}
	if !swap.Found {
		return t, decimal.Zero, nil
	}
	amount := swap.Points.Mul(pointValuePerLot).Mul(t.Quantity).Mul(decimal.NewFromInt(int64(nights))).Round(CurrencyPlaces)
	next := t
	next.Swap = t.Swap.Add(amount)
	return next, amount, nil
}
