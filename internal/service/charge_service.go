package service

import (
	"fmt"
	"strings"

	"github.com/brokerdesk/internal/cache"
	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChargeRuleError describes why a rule was rejected
type ChargeRuleError struct {
	Field  string
	Reason string
}

func (e *ChargeRuleError) Error() string {
	return fmt.Sprintf("invalid charge rule: %s %s", e.Field, e.Reason)
}

// ChargeService manages charge rules and resolves the effective charges of
// a (user, symbol) pair
type ChargeService struct {
	repo        *repository.ChargeRuleRepository
	instruments *repository.InstrumentRepository
	resolver    *economics.Resolver
	cache       *cache.Cache
	logger      *zap.Logger
}

// NewChargeService creates a new ChargeService. cache may be nil.
func NewChargeService(
	repo *repository.ChargeRuleRepository,
	instruments *repository.InstrumentRepository,
	c *cache.Cache,
	logger *zap.Logger,
) *ChargeService {
	return &ChargeService{
		repo:        repo,
		instruments: instruments,
		resolver:    economics.NewResolver(),
		cache:       c,
		logger:      logger,
	}
}

// ChargeRuleRequest is a create or update of a rule. Which scope fields are
// allowed depends on Level.
type ChargeRuleRequest struct {
	Level            economics.Level          `json:"level" binding:"required"`
	Segment          string                   `json:"segment"`
	InstrumentSymbol string                   `json:"instrumentSymbol"`
	UserID           *uint                    `json:"userId"`
	SpreadType       economics.SpreadType     `json:"spreadType"`
	SpreadValue      *decimal.Decimal         `json:"spreadValue"`
	CommissionType   economics.CommissionType `json:"commissionType"`
	CommissionValue  *decimal.Decimal         `json:"commissionValue"`
	SwapLong         *decimal.Decimal         `json:"swapLong"`
	SwapShort        *decimal.Decimal         `json:"swapShort"`
	IsActive         *bool                    `json:"isActive"`
}

func (r *ChargeRuleRequest) apply(rule *models.ChargeRule) error {
	if !r.Level.Valid() {
		return &ChargeRuleError{Field: "level", Reason: "must be GLOBAL, SEGMENT, INSTRUMENT or USER"}
	}
	segment := strings.TrimSpace(r.Segment)
	symbol := strings.ToUpper(strings.TrimSpace(r.InstrumentSymbol))
	hasUser := r.UserID != nil && *r.UserID != 0

	switch r.Level {
	case economics.LevelGlobal:
		if segment != "" || symbol != "" || hasUser {
			return &ChargeRuleError{Field: "level", Reason: "GLOBAL rules take no segment, instrument or user"}
		}
	case economics.LevelSegment:
		if !validSegment(models.Segment(segment)) {
			return &ChargeRuleError{Field: "segment", Reason: "is required for SEGMENT rules"}
		}
		if symbol != "" || hasUser {
			return &ChargeRuleError{Field: "level", Reason: "SEGMENT rules take no instrument or user"}
		}
	case economics.LevelInstrument:
		if symbol == "" {
			return &ChargeRuleError{Field: "instrumentSymbol", Reason: "is required for INSTRUMENT rules"}
		}
		if segment != "" || hasUser {
			return &ChargeRuleError{Field: "level", Reason: "INSTRUMENT rules take no segment or user"}
		}
	case economics.LevelUser:
		if !hasUser {
			return &ChargeRuleError{Field: "userId", Reason: "is required for USER rules"}
		}
		if segment != "" && !validSegment(models.Segment(segment)) {
			return &ChargeRuleError{Field: "segment", Reason: "is not a known segment"}
		}
	}

	switch r.SpreadType {
	case "", economics.SpreadFixed, economics.SpreadPercentage:
	default:
		return &ChargeRuleError{Field: "spreadType", Reason: "must be FIXED or PERCENTAGE"}
	}
	switch r.CommissionType {
	case "", economics.CommissionPerLot, economics.CommissionPerTrade, economics.CommissionPercentage:
	default:
		return &ChargeRuleError{Field: "commissionType", Reason: "must be PER_LOT, PER_TRADE or PERCENTAGE"}
	}
	if r.SpreadValue != nil && r.SpreadValue.IsNegative() {
		return &ChargeRuleError{Field: "spreadValue", Reason: "must not be negative"}
	}
	if r.CommissionValue != nil && r.CommissionValue.IsNegative() {
		return &ChargeRuleError{Field: "commissionValue", Reason: "must not be negative"}
	}

	rule.Level = r.Level
	rule.Segment = segment
	rule.InstrumentSymbol = symbol
	rule.UserID = nil
	if hasUser {
		uid := *r.UserID
		rule.UserID = &uid
	}
	rule.SpreadType = r.SpreadType
	rule.SpreadValue = nullable(r.SpreadValue)
	rule.CommissionType = r.CommissionType
	rule.CommissionValue = nullable(r.CommissionValue)
	rule.SwapLong = nullable(r.SwapLong)
	rule.SwapShort = nullable(r.SwapShort)
	if r.IsActive != nil {
		rule.IsActive = *r.IsActive
	}
	return nil
}

func nullable(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// Create adds a rule
func (s *ChargeService) Create(req *ChargeRuleRequest) (*models.ChargeRule, error) {
	rule := &models.ChargeRule{IsActive: true}
	if err := req.apply(rule); err != nil {
		return nil, err
	}
	if err := s.repo.Create(rule); err != nil {
		return nil, err
	}
	s.Invalidate()
	return rule, nil
}

// Update replaces a rule's schedule
func (s *ChargeService) Update(id uint, req *ChargeRuleRequest) (*models.ChargeRule, error) {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(rule); err != nil {
		return nil, err
	}
	if err := s.repo.Update(rule); err != nil {
		return nil, err
	}
	s.Invalidate()
	return rule, nil
}

// Delete removes a rule
func (s *ChargeService) Delete(id uint) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Get returns one rule
func (s *ChargeService) Get(id uint) (*models.ChargeRule, error) {
	return s.repo.GetByID(id)
}

// List returns rules matching f
func (s *ChargeService) List(f repository.ChargeFilter) ([]models.ChargeRule, error) {
	return s.repo.List(f)
}

// Invalidate drops every cached resolution
func (s *ChargeService) Invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// ResolvedCharges is the effective charge set for a user and symbol
type ResolvedCharges struct {
	UserID  uint   `json:"userId"`
	Symbol  string `json:"symbol"`
	Segment string `json:"segment"`
	economics.Resolution
}

// Resolve looks up the instrument and resolves its charges for userID
func (s *ChargeService) Resolve(userID uint, symbol string) (*ResolvedCharges, error) {
	inst, err := s.instruments.GetBySymbol(strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}
	res, err := s.ResolveFor(userID, inst)
	if err != nil {
		return nil, err
	}
	return &ResolvedCharges{UserID: userID, Symbol: inst.Symbol, Segment: string(inst.Segment), Resolution: res}, nil
}

// ResolveFor resolves the charges of inst for userID, using the cache
func (s *ChargeService) ResolveFor(userID uint, inst *models.Instrument) (economics.Resolution, error) {
	key := fmt.Sprintf("%d:%s", userID, inst.Symbol)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if res, ok := v.(economics.Resolution); ok {
				return res, nil
			}
		}
	}

	rules, err := s.repo.Candidates(userID, inst.Symbol, string(inst.Segment))
	if err != nil {
		return economics.Resolution{}, err
	}
	res := s.resolver.Resolve(rules, economics.Scope{
		UserID:  userID,
		Symbol:  inst.Symbol,
		Segment: string(inst.Segment),
	})

	if s.cache != nil {
		s.cache.Set(key, res)
		s.cache.Wait()
	}
	if !res.Applicable() {
		s.logger.Debug("no charge rule applies", zap.Uint("user_id", userID), zap.String("symbol", inst.Symbol))
	}
	return res, nil
}
