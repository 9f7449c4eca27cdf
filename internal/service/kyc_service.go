package service

import (
	"errors"
	"strings"
	"time"

	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/keygen"
)

var (
	ErrKYCAlreadyVerified = errors.New("kyc already verified")
	ErrKYCPendingExists   = errors.New("a kyc submission is already pending review")
	ErrRejectReason       = errors.New("a rejection reason is required")
)

// KYCService handles identity verification
type KYCService struct {
	kycRepo  *repository.KYCRepository
	userRepo *repository.UserRepository
}

// NewKYCService creates a new KYCService
func NewKYCService(kycRepo *repository.KYCRepository, userRepo *repository.UserRepository) *KYCService {
	return &KYCService{kycRepo: kycRepo, userRepo: userRepo}
}

// KYCSubmitRequest represents a document upload
type KYCSubmitRequest struct {
	DocType    string `json:"docType" binding:"required,oneof=passport national_id driving_license"`
	DocNumber  string `json:"docNumber" binding:"max=60"`
	FrontImage string `json:"frontImage" binding:"required"`
	BackImage  string `json:"backImage"`
}

// KYCStatusView is what a user sees about their verification
type KYCStatusView struct {
	Verified   bool                  `json:"verified"`
	Submission *models.KYCSubmission `json:"submission,omitempty"`
}

// Submit files a new submission. A user with a pending or approved
// submission cannot submit again.
func (s *KYCService) Submit(userID uint, req *KYCSubmitRequest) (*models.KYCSubmission, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user.KYCVerified {
		return nil, ErrKYCAlreadyVerified
	}
	latest, err := s.kycRepo.LatestByUser(userID)
	switch {
	case err == nil && latest.Status == models.KYCPending:
		return nil, ErrKYCPendingExists
	case err != nil && !errors.Is(err, repository.ErrKYCNotFound):
		return nil, err
	}

	sub := &models.KYCSubmission{
		DocumentRef: keygen.TransactionRef("KYC"),
		UserID:      userID,
		DocType:     req.DocType,
		DocNumber:   strings.TrimSpace(req.DocNumber),
		FrontImage:  req.FrontImage,
		BackImage:   req.BackImage,
		Status:      models.KYCPending,
		SubmittedAt: time.Now(),
	}
	if err := s.kycRepo.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Status returns the user's verification state and latest submission
func (s *KYCService) Status(userID uint) (*KYCStatusView, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	view := &KYCStatusView{Verified: user.KYCVerified}
	sub, err := s.kycRepo.LatestByUser(userID)
	if err == nil {
		view.Submission = sub
	} else if !errors.Is(err, repository.ErrKYCNotFound) {
		return nil, err
	}
	return view, nil
}

func (s *KYCService) List(f repository.KYCFilter) ([]models.KYCSubmission, int64, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.kycRepo.List(f)
}

func (s *KYCService) Get(id uint) (*models.KYCSubmission, error) {
	return s.kycRepo.GetByID(id)
}

// Approve marks a pending submission approved and the user verified
func (s *KYCService) Approve(adminID, id uint) (*models.KYCSubmission, error) {
	return s.review(adminID, id, models.KYCApproved, "")
}

// Reject marks a pending submission rejected. reason is required.
func (s *KYCService) Reject(adminID, id uint, reason string) (*models.KYCSubmission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectReason
	}
	return s.review(adminID, id, models.KYCRejected, reason)
}

func (s *KYCService) review(adminID, id uint, status models.KYCStatus, reason string) (*models.KYCSubmission, error) {
	sub, err := s.kycRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sub.Status = status
	sub.RejectReason = reason
	sub.ReviewedBy = &adminID
	sub.ReviewedAt = &now
	if err := s.kycRepo.Review(sub); err != nil {
		return nil, err
	}
	if sub.User != nil {
		sub.User.KYCVerified = status == models.KYCApproved
	}
	return sub, nil
}

// KYCStats counts submissions per status
type KYCStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

func (s *KYCService) Stats() (*KYCStats, error) {
	counts, err := s.kycRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	st := &KYCStats{
		Pending:  counts[models.KYCPending],
		Approved: counts[models.KYCApproved],
		Rejected: counts[models.KYCRejected],
	}
	st.Total = st.Pending + st.Approved + st.Rejected
	return st, nil
}
