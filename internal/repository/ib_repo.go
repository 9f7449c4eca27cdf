package repository

import (
	"errors"

	"github.com/brokerdesk/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrIBPlanNotFound    = errors.New("ib plan not found")
	ErrIBProfileNotFound = errors.New("ib profile not found")
)

// IBRepository handles plans, settings, IB profiles and commission payouts
type IBRepository struct {
	db *gorm.DB
}

// NewIBRepository creates a new IBRepository
func NewIBRepository(db *gorm.DB) *IBRepository {
	return &IBRepository{db: db}
}

// Settings returns the programme settings, creating defaults on first use
func (r *IBRepository) Settings() (*models.IBSettings, error) {
	var s models.IBSettings
	err := r.db.Attrs(models.IBSettings{
		IsEnabled:            true,
		AllowNewApplications: true,
		CommissionSettings: models.IBCommissionSettings{
			WithdrawalApprovalRequired: true,
			MinWithdrawalAmount:        decimal.NewFromInt(50),
		},
	}).FirstOrCreate(&s, models.IBSettings{ID: 1}).Error
	return &s, err
}

// SaveSettings writes the programme settings
func (r *IBRepository) SaveSettings(s *models.IBSettings) error {
	s.ID = 1
	return r.db.Save(s).Error
}

// CreatePlan inserts a plan. A default plan demotes every other plan.
func (r *IBRepository) CreatePlan(p *models.IBPlan) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if p.IsDefault {
			if err := clearDefault(tx, 0); err != nil {
				return err
			}
		}
		return tx.Create(p).Error
	})
}

// UpdatePlan saves a plan, keeping a single default
func (r *IBRepository) UpdatePlan(p *models.IBPlan) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if p.IsDefault {
			if err := clearDefault(tx, p.ID); err != nil {
				return err
			}
		}
		return tx.Save(p).Error
	})
}

func clearDefault(tx *gorm.DB, except uint) error {
	return tx.Model(&models.IBPlan{}).Where("is_default = ? AND id <> ?", true, except).Update("is_default", false).Error
}

// GetPlan retrieves a plan by ID
func (r *IBRepository) GetPlan(id uint) (*models.IBPlan, error) {
	var p models.IBPlan
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIBPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DefaultPlan retrieves the default plan
func (r *IBRepository) DefaultPlan() (*models.IBPlan, error) {
	var p models.IBPlan
	if err := r.db.Where("is_default = ?", true).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIBPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPlans returns every plan
func (r *IBRepository) ListPlans() ([]models.IBPlan, error) {
	var plans []models.IBPlan
	err := r.db.Order("id ASC").Find(&plans).Error
	return plans, err
}

// CreateProfile inserts an IB profile
func (r *IBRepository) CreateProfile(p *models.IBProfile) error {
	return r.db.Create(p).Error
}

// UpdateProfile saves an IB profile
func (r *IBRepository) UpdateProfile(p *models.IBProfile) error {
	return r.db.Omit("User", "Plan").Save(p).Error
}

// GetProfileByUserID retrieves the IB profile of a user with its plan
func (r *IBRepository) GetProfileByUserID(userID uint) (*models.IBProfile, error) {
	var p models.IBProfile
	if err := r.db.Preload("Plan").Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIBProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetProfileByID retrieves an IB profile by ID
func (r *IBRepository) GetProfileByID(id uint) (*models.IBProfile, error) {
	var p models.IBProfile
	if err := r.db.Preload("Plan").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIBProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetProfileByReferralCode retrieves the IB owning a referral code
func (r *IBRepository) GetProfileByReferralCode(code string) (*models.IBProfile, error) {
	var p models.IBProfile
	if err := r.db.Where("referral_code = ?", code).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIBProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns IB profiles, optionally filtered by status
func (r *IBRepository) ListProfiles(status models.IBStatus) ([]models.IBProfile, error) {
	var out []models.IBProfile
	q := r.db.Preload("User").Preload("Plan").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountByStatus returns the number of IB profiles per status
func (r *IBRepository) CountByStatus() (map[models.IBStatus]int64, error) {
	var rows []struct {
		Status models.IBStatus
		N      int64
	}
	if err := r.db.Model(&models.IBProfile{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.IBStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// PayCommission records a payout, credits the IB wallet and bumps the IB's
// lifetime earnings in one transaction
func (r *IBRepository) PayCommission(c *models.IBCommission, credit *models.WalletTransaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if err := Credit(tx, credit); err != nil {
			return err
		}
		return tx.Model(&models.IBProfile{}).Where("user_id = ?", c.IBUserID).
			Update("total_earned", gorm.Expr("total_earned + ?", c.Amount)).Error
	})
}

// TotalCommissions sums every payout
func (r *IBRepository) TotalCommissions() (decimal.Decimal, error) {
	var row struct{ Sum decimal.Decimal }
	err := r.db.Model(&models.IBCommission{}).Select("COALESCE(SUM(amount), 0) AS sum").Scan(&row).Error
	return row.Sum, err
}

// CommissionsByIB returns the payouts earned by an IB, newest first
func (r *IBRepository) CommissionsByIB(ibUserID uint, limit int) ([]models.IBCommission, error) {
	var out []models.IBCommission
	q := r.db.Where("ib_user_id = ?", ibUserID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
