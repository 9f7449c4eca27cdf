package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/keygen"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotOwned  = errors.New("trading account does not belong to user")
	ErrAccountDisabled  = errors.New("trading account is disabled")
	ErrInvalidSegment   = errors.New("invalid segment")
	ErrInvalidContract  = errors.New("contract size and point size must be positive")
	ErrInstrumentExists = errors.New("instrument already exists")
)

// AccountService handles trading accounts
type AccountService struct {
	accountRepo *repository.AccountRepository
	userRepo    *repository.UserRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo *repository.AccountRepository, userRepo *repository.UserRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo, userRepo: userRepo}
}

// CreateAccountRequest represents the create trading account request
type CreateAccountRequest struct {
	UserID      uint   `json:"userId"`
	AccountType string `json:"accountType" binding:"omitempty,oneof=standard ecn pro demo"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	Leverage    int    `json:"leverage" binding:"omitempty,min=1,max=1000"`
}

// CreateAccount opens a trading account for req.UserID
func (s *AccountService) CreateAccount(req *CreateAccountRequest) (*models.TradingAccount, error) {
	if _, err := s.userRepo.GetByID(req.UserID); err != nil {
		return nil, err
	}

	if req.AccountType == "" {
		req.AccountType = "standard"
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if req.Leverage == 0 {
		req.Leverage = 100
	}

	prefix := "LIVE"
	if req.AccountType == "demo" {
		prefix = "DEMO"
	}
	number, err := keygen.AccountNumber(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate account number: %w", err)
	}

	account := &models.TradingAccount{
		UserID:        req.UserID,
		AccountNumber: number,
		AccountType:   req.AccountType,
		Currency:      strings.ToUpper(req.Currency),
		Balance:       decimal.Zero,
		Leverage:      req.Leverage,
		Status:        models.AccountStatusActive,
	}
	if err := s.accountRepo.Create(account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// GetAccounts retrieves all trading accounts of a user
func (s *AccountService) GetAccounts(userID uint) ([]models.TradingAccount, error) {
	return s.accountRepo.GetByUserID(userID)
}

// GetAccount retrieves a trading account
func (s *AccountService) GetAccount(id uint) (*models.TradingAccount, error) {
	return s.accountRepo.GetByID(id)
}

// GetOwnedAccount retrieves a trading account and checks it belongs to userID
func (s *AccountService) GetOwnedAccount(userID, id uint) (*models.TradingAccount, error) {
	account, err := s.accountRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrAccountNotOwned
	}
	return account, nil
}

// SetStatus enables or disables a trading account
func (s *AccountService) SetStatus(id uint, status models.AccountStatus) error {
	if status != models.AccountStatusActive && status != models.AccountStatusDisabled {
		return fmt.Errorf("invalid account status: %s", status)
	}
	return s.accountRepo.UpdateStatus(id, status)
}

// InstrumentService manages the instrument catalog
type InstrumentService struct {
	repo     *repository.InstrumentRepository
	onChange func()
}

// NewInstrumentService creates a new InstrumentService. onChange runs after
// every catalog mutation.
func NewInstrumentService(repo *repository.InstrumentRepository, onChange func()) *InstrumentService {
	if onChange == nil {
		onChange = func() {}
	}
	return &InstrumentService{repo: repo, onChange: onChange}
}

// InstrumentRequest represents an instrument create or update
type InstrumentRequest struct {
	Symbol       string          `json:"symbol" binding:"required,max=20"`
	Segment      models.Segment  `json:"segment" binding:"required"`
	ContractSize decimal.Decimal `json:"contractSize"`
	PointSize    decimal.Decimal `json:"pointSize"`
	Digits       int             `json:"digits" binding:"min=0,max=10"`
	IsActive     *bool           `json:"isActive"`
}

func validSegment(s models.Segment) bool {
	switch s {
	case models.SegmentForex, models.SegmentCrypto, models.SegmentMetals, models.SegmentIndices:
		return true
	}
	return false
}

func (r *InstrumentRequest) validate() error {
	if !validSegment(r.Segment) {
		return ErrInvalidSegment
	}
	if !r.ContractSize.IsPositive() || !r.PointSize.IsPositive() {
		return ErrInvalidContract
	}
	return nil
}

// List returns the catalog
func (s *InstrumentService) List(activeOnly bool) ([]models.Instrument, error) {
	return s.repo.List(activeOnly)
}

// Get returns one instrument
func (s *InstrumentService) Get(symbol string) (*models.Instrument, error) {
	return s.repo.GetBySymbol(strings.ToUpper(symbol))
}

// Create adds an instrument
func (s *InstrumentService) Create(req *InstrumentRequest) (*models.Instrument, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(req.Symbol)
	if _, err := s.repo.GetBySymbol(symbol); err == nil {
		return nil, ErrInstrumentExists
	} else if !errors.Is(err, repository.ErrInstrumentNotFound) {
		return nil, err
	}

	inst := &models.Instrument{
		Symbol:       symbol,
		Segment:      req.Segment,
		ContractSize: req.ContractSize,
		PointSize:    req.PointSize,
		Digits:       req.Digits,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(inst); err != nil {
		return nil, err
	}
	s.onChange()
	return inst, nil
}

// Update edits an instrument. The symbol in the path wins over the body.
func (s *InstrumentService) Update(symbol string, req *InstrumentRequest) (*models.Instrument, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	inst, err := s.repo.GetBySymbol(strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}

	inst.Segment = req.Segment
	inst.ContractSize = req.ContractSize
	inst.PointSize = req.PointSize
	inst.Digits = req.Digits
	if req.IsActive != nil {
		inst.IsActive = *req.IsActive
	}
	if err := s.repo.Update(inst); err != nil {
		return nil, err
	}
	s.onChange()
	return inst, nil
}

// Delete removes an instrument
func (s *InstrumentService) Delete(symbol string) error {
	if err := s.repo.Delete(strings.ToUpper(symbol)); err != nil {
		return err
	}
	s.onChange()
	return nil
}

// DefaultInstruments is the catalog seeded by migrate
func DefaultInstruments() []models.Instrument {
	d := decimal.RequireFromString
	return []models.Instrument{
		{Symbol: "EURUSD", Segment: models.SegmentForex, ContractSize: d("100000"), PointSize: d("0.00001"), Digits: 5, IsActive: true},
		{Symbol: "GBPUSD", Segment: models.SegmentForex, ContractSize: d("100000"), PointSize: d("0.00001"), Digits: 5, IsActive: true},
		{Symbol: "AUDUSD", Segment: models.SegmentForex, ContractSize: d("100000"), PointSize: d("0.00001"), Digits: 5, IsActive: true},
		{Symbol: "XAUUSD", Segment: models.SegmentMetals, ContractSize: d("100"), PointSize: d("0.01"), Digits: 2, IsActive: true},
		{Symbol: "XAGUSD", Segment: models.SegmentMetals, ContractSize: d("5000"), PointSize: d("0.001"), Digits: 3, IsActive: true},
		{Symbol: "US30", Segment: models.SegmentIndices, ContractSize: d("1"), PointSize: d("0.1"), Digits: 1, IsActive: true},
		{Symbol: "NAS100", Segment: models.SegmentIndices, ContractSize: d("1"), PointSize: d("0.1"), Digits: 1, IsActive: true},
		{Symbol: "BTCUSD", Segment: models.SegmentCrypto, ContractSize: d("1"), PointSize: d("0.01"), Digits: 2, IsActive: true},
		{Symbol: "ETHUSD", Segment: models.SegmentCrypto, ContractSize: d("1"), PointSize: d("0.01"), Digits: 2, IsActive: true},
	}
}

// SeedDefaults inserts the default catalog, leaving existing symbols alone.
// It returns how many instruments were added.
func (s *InstrumentService) SeedDefaults() (int, error) {
	added := 0
	for _, inst := range DefaultInstruments() {
		inst := inst
		if _, err := s.repo.GetBySymbol(inst.Symbol); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrInstrumentNotFound) {
			return added, err
		}
		if err := s.repo.Create(&inst); err != nil {
			return added, err
		}
		added++
	}
	if added > 0 {
		s.onChange()
	}
	return added, nil
}
