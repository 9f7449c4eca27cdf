package repository

import (
	"errors"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"gorm.io/gorm"
)

var ErrChargeRuleNotFound = errors.New("charge rule not found")

// ChargeFilter narrows the admin listing
type ChargeFilter struct {
	Level   economics.Level
	Segment string
	Symbol  string
	UserID  uint
}

// ChargeRuleRepository is the charge configuration store. It returns
// candidate rules; precedence is resolved by the economics package.
type ChargeRuleRepository struct {
	db *gorm.DB
}

// NewChargeRuleRepository creates a new ChargeRuleRepository
func NewChargeRuleRepository(db *gorm.DB) *ChargeRuleRepository {
	return &ChargeRuleRepository{db: db}
}

// Create creates a new rule
func (r *ChargeRuleRepository) Create(rule *models.ChargeRule) error {
	return r.db.Create(rule).Error
}

// GetByID retrieves a rule by ID
func (r *ChargeRuleRepository) GetByID(id uint) (*models.ChargeRule, error) {
	var rule models.ChargeRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChargeRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// Update saves all fields of rule
func (r *ChargeRuleRepository) Update(rule *models.ChargeRule) error {
	return r.db.Save(rule).Error
}

// Delete removes a rule
func (r *ChargeRuleRepository) Delete(id uint) error {
	result := r.db.Delete(&models.ChargeRule{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrChargeRuleNotFound
	}
	return nil
}

// List returns rules matching f
func (r *ChargeRuleRepository) List(f ChargeFilter) ([]models.ChargeRule, error) {
	var rules []models.ChargeRule
	q := r.db.Order("id DESC")
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.Segment != "" {
		q = q.Where("segment = ?", f.Segment)
	}
	if f.Symbol != "" {
		q = q.Where("instrument_symbol = ?", f.Symbol)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	err := q.Find(&rules).Error
	return rules, err
}

// Candidates returns every active rule that could apply to a user trading
// symbol in segment. The resolver decides which one wins.
func (r *ChargeRuleRepository) Candidates(userID uint, symbol, segment string) ([]economics.Rule, error) {
	var rules []models.ChargeRule
	err := r.db.Where("is_active = ?", true).
		Where("level = ? OR (level = ? AND segment = ?) OR (level = ? AND instrument_symbol = ?) OR (level = ? AND user_id = ?)",
			economics.LevelGlobal,
			economics.LevelSegment, segment,
			economics.LevelInstrument, symbol,
			economics.LevelUser, userID).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	out := make([]economics.Rule, 0, len(rules))
	for i := range rules {
		out = append(out, rules[i].ToRule())
	}
	return out, nil
}
