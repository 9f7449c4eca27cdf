package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/events"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/keygen"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrIBProgrammeClosed = errors.New("ib programme is not accepting applications")
	ErrIBAlreadyApplied  = errors.New("user already has an ib profile")
	ErrIBKYCRequired     = errors.New("kyc verification is required to become an ib")
	ErrIBInvalidPlan     = errors.New("invalid ib plan")
	ErrIBReasonRequired  = errors.New("a reason is required")
	ErrIBInvalidStatus   = errors.New("ib profile cannot move to that status")
)

// IBService runs the introducing broker programme
type IBService struct {
	ibRepo     *repository.IBRepository
	userRepo   *repository.UserRepository
	walletRepo *repository.WalletRepository
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewIBService creates a new IBService
func NewIBService(
	ibRepo *repository.IBRepository,
	userRepo *repository.UserRepository,
	walletRepo *repository.WalletRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) *IBService {
	return &IBService{
		ibRepo:     ibRepo,
		userRepo:   userRepo,
		walletRepo: walletRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Settings returns the programme settings
func (s *IBService) Settings() (*models.IBSettings, error) {
	return s.ibRepo.Settings()
}

// UpdateSettings replaces the programme settings
func (s *IBService) UpdateSettings(in *models.IBSettings) (*models.IBSettings, error) {
	if in.CommissionSettings.MinWithdrawalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: minWithdrawalAmount must not be negative", economics.ErrInvalidInput)
	}
	if err := s.ibRepo.SaveSettings(in); err != nil {
		return nil, err
	}
	return in, nil
}

// PlanRequest creates or updates a commission plan
type PlanRequest struct {
	Name             string                      `json:"name" binding:"required,max=100"`
	Description      string                      `json:"description" binding:"max=255"`
	MaxLevels        int                         `json:"maxLevels" binding:"required,min=1,max=5"`
	CommissionType   models.IBPlanCommissionType `json:"commissionType" binding:"required"`
	LevelCommissions models.LevelCommissions     `json:"levelCommissions"`
	IsDefault        bool                        `json:"isDefault"`
	IsActive         *bool                       `json:"isActive"`
}

func (r *PlanRequest) apply(p *models.IBPlan) error {
	if r.MaxLevels < 1 || r.MaxLevels > models.MaxIBLevels {
		return fmt.Errorf("%w: maxLevels must be between 1 and %d", ErrIBInvalidPlan, models.MaxIBLevels)
	}
	if r.CommissionType != models.IBCommissionPerLot && r.CommissionType != models.IBCommissionPercentage {
		return fmt.Errorf("%w: commissionType must be PER_LOT or PERCENTAGE", ErrIBInvalidPlan)
	}
	for lvl := 1; lvl <= models.MaxIBLevels; lvl++ {
		if r.LevelCommissions.Rate(lvl).IsNegative() {
			return fmt.Errorf("%w: level %d commission must not be negative", ErrIBInvalidPlan, lvl)
		}
	}
	p.Name = strings.TrimSpace(r.Name)
	p.Description = r.Description
	p.MaxLevels = r.MaxLevels
	p.CommissionType = r.CommissionType
	p.LevelCommissions = r.LevelCommissions
	p.IsDefault = r.IsDefault
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return nil
}

func (s *IBService) ListPlans() ([]models.IBPlan, error) {
	return s.ibRepo.ListPlans()
}

func (s *IBService) CreatePlan(req *PlanRequest) (*models.IBPlan, error) {
	p := &models.IBPlan{IsActive: true}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.ibRepo.CreatePlan(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *IBService) UpdatePlan(id uint, req *PlanRequest) (*models.IBPlan, error) {
	p, err := s.ibRepo.GetPlan(id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.ibRepo.UpdatePlan(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply files an IB application for userID. With autoApprove on the
// profile is activated straight away on the default plan.
func (s *IBService) Apply(userID uint) (*models.IBProfile, error) {
	settings, err := s.ibRepo.Settings()
	if err != nil {
		return nil, err
	}
	if !settings.IsEnabled || !settings.AllowNewApplications {
		return nil, ErrIBProgrammeClosed
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if settings.IBRequirements.KYCRequired && !user.KYCVerified {
		return nil, ErrIBKYCRequired
	}

	if _, err := s.ibRepo.GetProfileByUserID(userID); err == nil {
		return nil, ErrIBAlreadyApplied
	} else if !errors.Is(err, repository.ErrIBProfileNotFound) {
		return nil, err
	}

	profile := &models.IBProfile{UserID: userID, Status: models.IBStatusPending}
	if settings.AutoApprove {
		if err := activate(profile, nil); err != nil {
			return nil, err
		}
	}
	if err := s.ibRepo.CreateProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func activate(p *models.IBProfile, planID *uint) error {
	if p.ReferralCode == nil {
		code, err := keygen.ReferralCode()
		if err != nil {
			return fmt.Errorf("failed to generate referral code: %w", err)
		}
		p.ReferralCode = &code
	}
	if planID != nil {
		p.PlanID = planID
	}
	now := time.Now()
	p.Status = models.IBStatusActive
	p.BlockReason = ""
	p.ApprovedAt = &now
	return nil
}

// Approve activates a profile on planID, or on the default plan when planID
// is nil. Blocked and suspended IBs can be reinstated the same way.
func (s *IBService) Approve(profileID uint, planID *uint) (*models.IBProfile, error) {
	p, err := s.ibRepo.GetProfileByID(profileID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.IBStatusActive {
		return nil, ErrIBInvalidStatus
	}
	if planID != nil {
		plan, err := s.ibRepo.GetPlan(*planID)
		if err != nil {
			return nil, err
		}
		if !plan.IsActive {
			return nil, fmt.Errorf("%w: plan %d is inactive", ErrIBInvalidPlan, plan.ID)
		}
		p.Plan = plan
	}
	if err := activate(p, planID); err != nil {
		return nil, err
	}
	if err := s.ibRepo.UpdateProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Block stops an IB from earning. reason is required.
func (s *IBService) Block(profileID uint, reason string) (*models.IBProfile, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrIBReasonRequired
	}
	return s.setStatus(profileID, models.IBStatusBlocked, reason)
}

// Suspend pauses an active IB
func (s *IBService) Suspend(profileID uint, reason string) (*models.IBProfile, error) {
	return s.setStatus(profileID, models.IBStatusSuspended, strings.TrimSpace(reason))
}

func (s *IBService) setStatus(profileID uint, status models.IBStatus, reason string) (*models.IBProfile, error) {
	p, err := s.ibRepo.GetProfileByID(profileID)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return nil, ErrIBInvalidStatus
	}
	if status == models.IBStatusSuspended && p.Status != models.IBStatusActive {
		return nil, ErrIBInvalidStatus
	}
	p.Status = status
	p.BlockReason = reason
	if err := s.ibRepo.UpdateProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns IB profiles filtered by status
func (s *IBService) ListProfiles(status models.IBStatus) ([]models.IBProfile, error) {
	return s.ibRepo.ListProfiles(status)
}

// IBProfileView is what an IB sees about themself
type IBProfileView struct {
	Profile     *models.IBProfile     `json:"profile"`
	Commissions []models.IBCommission `json:"commissions"`
}

// Profile returns the caller's IB profile and recent payouts
func (s *IBService) Profile(userID uint, limit int) (*IBProfileView, error) {
	p, err := s.ibRepo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	commissions, err := s.ibRepo.CommissionsByIB(userID, limit)
	if err != nil {
		return nil, err
	}
	return &IBProfileView{Profile: p, Commissions: commissions}, nil
}

// IBDashboard is the admin summary of the programme
type IBDashboard struct {
	Total            int64                     `json:"total"`
	ByStatus         map[models.IBStatus]int64 `json:"byStatus"`
	TotalCommissions decimal.Decimal           `json:"totalCommissions"`
}

func (s *IBService) Dashboard() (*IBDashboard, error) {
	counts, err := s.ibRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	total, err := s.ibRepo.TotalCommissions()
	if err != nil {
		return nil, err
	}
	d := &IBDashboard{ByStatus: counts, TotalCommissions: total.Round(economics.CurrencyPlaces)}
	for _, n := range counts {
		d.Total += n
	}
	return d, nil
}

func planCommissionType(t models.IBPlanCommissionType) economics.CommissionType {
	if t == models.IBCommissionPercentage {
		return economics.CommissionPercentage
	}
	return economics.CommissionPerLot
}

// DistributeCommission pays the referral chain of a closed trade's owner.
// Level n is the IB n hops up the chain; it earns only while active and
// while n is within its plan's maxLevels.
func (s *IBService) DistributeCommission(ctx context.Context, trade *models.Trade) ([]models.IBCommission, error) {
	if trade.Status != economics.StatusClosed {
		return nil, nil
	}
	settings, err := s.ibRepo.Settings()
	if err != nil {
		return nil, err
	}
	if !settings.IsEnabled {
		return nil, nil
	}

	trader, err := s.userRepo.GetByID(trade.UserID)
	if err != nil {
		return nil, err
	}

	var defaultPlan *models.IBPlan
	var paid []models.IBCommission
	seen := map[uint]bool{trader.ID: true}
	next := trader.ReferredBy

	for level := 1; level <= models.MaxIBLevels && next != nil; level++ {
		ibUserID := *next
		if seen[ibUserID] {
			break
		}
		seen[ibUserID] = true

		ibUser, err := s.userRepo.GetByID(ibUserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				break
			}
			return paid, err
		}
		next = ibUser.ReferredBy

		profile, err := s.ibRepo.GetProfileByUserID(ibUserID)
		if errors.Is(err, repository.ErrIBProfileNotFound) {
			continue
		}
		if err != nil {
			return paid, err
		}
		if profile.Status != models.IBStatusActive {
			continue
		}

		plan := profile.Plan
		if plan == nil {
			if defaultPlan == nil {
				if defaultPlan, err = s.ibRepo.DefaultPlan(); err != nil {
					if errors.Is(err, repository.ErrIBPlanNotFound) {
						s.logger.Warn("no default ib plan, skipping payout", zap.Uint("ib_user_id", ibUserID))
						continue
					}
					return paid, err
				}
			}
			plan = defaultPlan
		}
		if level > plan.MaxLevels {
			continue
		}

		amount := economics.Commission(planCommissionType(plan.CommissionType), plan.LevelCommissions.Rate(level),
			trade.OpenPrice, trade.Quantity, trade.ContractSize)
		if !amount.IsPositive() {
			continue
		}

		c, err := s.pay(ibUserID, trade, level, amount)
		if err != nil {
			return paid, err
		}
		paid = append(paid, *c)
	}

	for i := range paid {
		c := paid[i]
		if err := s.publisher.Publish(ctx, events.New(events.WalletTransaction, fmt.Sprintf("ibc-%d", c.ID), c)); err != nil {
			s.logger.Warn("publish ib commission failed", zap.Uint("commission_id", c.ID), zap.Error(err))
		}
	}
	return paid, nil
}

func (s *IBService) pay(ibUserID uint, trade *models.Trade, level int, amount decimal.Decimal) (*models.IBCommission, error) {
	wallet, err := s.walletRepo.GetOrCreate(ibUserID)
	if err != nil {
		return nil, err
	}
	c := &models.IBCommission{
		IBUserID:   ibUserID,
		FromUserID: trade.UserID,
		TradeID:    trade.ID,
		Level:      level,
		Lots:       trade.Quantity,
		Amount:     amount,
	}
	credit := &models.WalletTransaction{
		Ref:      keygen.TransactionRef("IBC"),
		UserID:   ibUserID,
		WalletID: wallet.ID,
		Type:     models.TxIBCommission,
		Amount:   amount,
		Status:   models.TxCompleted,
		Note:     fmt.Sprintf("level %d commission on trade %s", level, trade.TradeRef),
	}
	if err := s.ibRepo.PayCommission(c, credit); err != nil {
		return nil, err
	}
	s.logger.Info("ib commission paid",
		zap.Uint("ib_user_id", ibUserID),
		zap.Uint("trade_id", trade.ID),
		zap.Int("level", level),
		zap.String("amount", amount.String()),
	)
	return c, nil
}
