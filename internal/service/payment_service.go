package service

import (
	"errors"
	"strings"

	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/crypto"
)

var (
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrPaymentMethodInactive = errors.New("payment method is not active")
)

// PaymentChannel is one variant of a payment method. Each variant knows
// which fields it needs and how to copy them onto the record.
type PaymentChannel interface {
	Type() models.PaymentMethodType
	validate() error
	apply(pm *models.PaymentMethod, aesKey string) error
}

// BankTransfer is a bank account channel
type BankTransfer struct {
	BankName          string `json:"bankName"`
	AccountNumber     string `json:"accountNumber"`
	AccountHolderName string `json:"accountHolderName"`
	IFSCCode          string `json:"ifscCode"`
	BranchName        string `json:"branchName"`
}

func (BankTransfer) Type() models.PaymentMethodType { return models.PaymentBankTransfer }

func (b BankTransfer) validate() error {
	if b.BankName == "" || b.AccountNumber == "" || b.AccountHolderName == "" || b.IFSCCode == "" {
		return errors.New("bank transfer needs bankName, accountNumber, accountHolderName and ifscCode")
	}
	return nil
}

func (b BankTransfer) apply(pm *models.PaymentMethod, aesKey string) error {
	enc, err := crypto.EncryptAES(b.AccountNumber, aesKey)
	if err != nil {
		return err
	}
	pm.BankName = b.BankName
	pm.AccountNumberEncrypted = enc
	pm.AccountNumberMasked = crypto.Mask(b.AccountNumber)
	pm.AccountHolderName = b.AccountHolderName
	pm.IFSCCode = strings.ToUpper(b.IFSCCode)
	pm.BranchName = b.BranchName
	return nil
}

// UPI is a UPI id channel
type UPI struct {
	UPIID string `json:"upiId"`
}

func (UPI) Type() models.PaymentMethodType { return models.PaymentUPI }

func (u UPI) validate() error {
	if !strings.Contains(u.UPIID, "@") {
		return errors.New("upiId must look like name@bank")
	}
	return nil
}

func (u UPI) apply(pm *models.PaymentMethod, _ string) error {
	pm.UPIID = u.UPIID
	return nil
}

// QRCode is a scannable image channel
type QRCode struct {
	QRCodeImage string `json:"qrCodeImage"`
}

func (QRCode) Type() models.PaymentMethodType { return models.PaymentQRCode }

func (q QRCode) validate() error {
	if q.QRCodeImage == "" {
		return errors.New("qrCodeImage is required")
	}
	return nil
}

func (q QRCode) apply(pm *models.PaymentMethod, _ string) error {
	pm.QRCodeImage = q.QRCodeImage
	return nil
}

// PaymentMethodRequest is the flat request body; Channel picks the variant
type PaymentMethodRequest struct {
	Type              models.PaymentMethodType `json:"type" binding:"required"`
	Name              string                   `json:"name" binding:"max=100"`
	BankName          string                   `json:"bankName"`
	AccountNumber     string                   `json:"accountNumber"`
	AccountHolderName string                   `json:"accountHolderName"`
	IFSCCode          string                   `json:"ifscCode"`
	BranchName        string                   `json:"branchName"`
	UPIID             string                   `json:"upiId"`
	QRCodeImage       string                   `json:"qrCodeImage"`
	IsActive          *bool                    `json:"isActive"`
}

// Channel returns the variant named by Type
func (r *PaymentMethodRequest) Channel() (PaymentChannel, error) {
	switch r.Type {
	case models.PaymentBankTransfer:
		return BankTransfer{
			BankName:          strings.TrimSpace(r.BankName),
			AccountNumber:     strings.TrimSpace(r.AccountNumber),
			AccountHolderName: strings.TrimSpace(r.AccountHolderName),
			IFSCCode:          strings.TrimSpace(r.IFSCCode),
			BranchName:        strings.TrimSpace(r.BranchName),
		}, nil
	case models.PaymentUPI:
		return UPI{UPIID: strings.TrimSpace(r.UPIID)}, nil
	case models.PaymentQRCode:
		return QRCode{QRCodeImage: r.QRCodeImage}, nil
	}
	return nil, ErrInvalidPaymentMethod
}

// PaymentMethodDetails is the decrypted view shown to admins
type PaymentMethodDetails struct {
	models.PaymentMethod
	AccountNumber string `json:"accountNumber,omitempty"`
}

// PaymentMethodService manages deposit/withdrawal channels
type PaymentMethodService struct {
	repo   *repository.PaymentMethodRepository
	aesKey string
}

// NewPaymentMethodService creates a new PaymentMethodService
func NewPaymentMethodService(repo *repository.PaymentMethodRepository, aesKey string) *PaymentMethodService {
	return &PaymentMethodService{repo: repo, aesKey: aesKey}
}

func (s *PaymentMethodService) build(pm *models.PaymentMethod, req *PaymentMethodRequest) error {
	ch, err := req.Channel()
	if err != nil {
		return err
	}
	if err := ch.validate(); err != nil {
		return errors.Join(ErrInvalidPaymentMethod, err)
	}

	// Switching variants must not leave the old variant's fields behind
	*pm = models.PaymentMethod{ID: pm.ID, IsActive: pm.IsActive, CreatedAt: pm.CreatedAt}
	pm.Type = ch.Type()
	pm.Name = strings.TrimSpace(req.Name)
	if pm.Name == "" {
		pm.Name = string(ch.Type())
	}
	if req.IsActive != nil {
		pm.IsActive = *req.IsActive
	}
	return ch.apply(pm, s.aesKey)
}

// Create adds a payment method, active unless the request says otherwise
func (s *PaymentMethodService) Create(req *PaymentMethodRequest) (*models.PaymentMethod, error) {
	pm := &models.PaymentMethod{IsActive: true}
	if err := s.build(pm, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(pm); err != nil {
		return nil, err
	}
	return pm, nil
}

// Update replaces a payment method's channel details
func (s *PaymentMethodService) Update(id uint, req *PaymentMethodRequest) (*models.PaymentMethod, error) {
	pm, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.build(pm, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(pm); err != nil {
		return nil, err
	}
	return pm, nil
}

// Toggle flips the active flag
func (s *PaymentMethodService) Toggle(id uint) (*models.PaymentMethod, error) {
	pm, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	pm.IsActive = !pm.IsActive
	if err := s.repo.Update(pm); err != nil {
		return nil, err
	}
	return pm, nil
}

func (s *PaymentMethodService) Delete(id uint) error {
	return s.repo.Delete(id)
}

func (s *PaymentMethodService) Get(id uint) (*models.PaymentMethod, error) {
	return s.repo.GetByID(id)
}

// ListActive returns the methods users may pick
func (s *PaymentMethodService) ListActive() ([]models.PaymentMethod, error) {
	return s.repo.List(true)
}

// ListAll returns every method for the admin console
func (s *PaymentMethodService) ListAll() ([]models.PaymentMethod, error) {
	return s.repo.List(false)
}

// Details returns a method with its account number decrypted
func (s *PaymentMethodService) Details(id uint) (*PaymentMethodDetails, error) {
	pm, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	out := &PaymentMethodDetails{PaymentMethod: *pm}
	if pm.AccountNumberEncrypted != "" {
		plain, err := crypto.DecryptAES(pm.AccountNumberEncrypted, s.aesKey)
		if err != nil {
			return nil, err
		}
		out.AccountNumber = plain
	}
	return out, nil
}

// RequireActive returns the method when it exists and is active
func (s *PaymentMethodService) RequireActive(id uint) (*models.PaymentMethod, error) {
	pm, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !pm.IsActive {
		return nil, ErrPaymentMethodInactive
	}
	return pm, nil
}
