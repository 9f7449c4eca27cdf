package repository

import (
	"errors"

	"github.com/brokerdesk/internal/models"
	"gorm.io/gorm"
)

var ErrKYCNotFound = errors.New("kyc submission not found")

// KYCFilter narrows the review queue
type KYCFilter struct {
	Status models.KYCStatus
	Search string
	Limit  int
	Offset int
}

// KYCRepository handles identity submissions
type KYCRepository struct {
	db *gorm.DB
}

// NewKYCRepository creates a new KYCRepository
func NewKYCRepository(db *gorm.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

func (r *KYCRepository) Create(sub *models.KYCSubmission) error {
	return r.db.Create(sub).Error
}

func (r *KYCRepository) GetByID(id uint) (*models.KYCSubmission, error) {
	var sub models.KYCSubmission
	if err := r.db.Preload("User").First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKYCNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// LatestByUser returns the most recent submission of a user
func (r *KYCRepository) LatestByUser(userID uint) (*models.KYCSubmission, error) {
	var sub models.KYCSubmission
	if err := r.db.Where("user_id = ?", userID).Order("id DESC").First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKYCNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// List returns submissions matching f, newest first, with their users
func (r *KYCRepository) List(f KYCFilter) ([]models.KYCSubmission, int64, error) {
	var subs []models.KYCSubmission
	var total int64

	query := func() *gorm.DB {
		q := r.db.Model(&models.KYCSubmission{}).Joins("JOIN users ON users.id = kyc_submissions.user_id")
		if f.Status != "" {
			q = q.Where("kyc_submissions.status = ?", f.Status)
		}
		if f.Search != "" {
			like := "%" + f.Search + "%"
			q = q.Where("users.first_name LIKE ? OR users.last_name LIKE ? OR users.email LIKE ?", like, like, like)
		}
		return q
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := query().Preload("User").Order("kyc_submissions.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	err := q.Find(&subs).Error
	return subs, total, err
}

// CountByStatus returns the number of submissions per status
func (r *KYCRepository) CountByStatus() (map[models.KYCStatus]int64, error) {
	var rows []struct {
		Status models.KYCStatus
		N      int64
	}
	if err := r.db.Model(&models.KYCSubmission{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.KYCStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// Review stores the decision and, on approval, marks the user verified
func (r *KYCRepository) Review(sub *models.KYCSubmission) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.KYCSubmission{}).
			Where("id = ? AND status = ?", sub.ID, models.KYCPending).
			Updates(map[string]interface{}{
				"status":        sub.Status,
				"reject_reason": sub.RejectReason,
				"reviewed_by":   sub.ReviewedBy,
				"reviewed_at":   sub.ReviewedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrKYCAlreadyReviewed
		}
		return tx.Model(&models.User{}).Where("id = ?", sub.UserID).
			Update("kyc_verified", sub.Status == models.KYCApproved).Error
	})
}

var ErrKYCAlreadyReviewed = errors.New("kyc submission already reviewed")
