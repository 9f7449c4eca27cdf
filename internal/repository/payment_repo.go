package repository

import (
	"errors"

	"github.com/brokerdesk/internal/models"
	"gorm.io/gorm"
)

var ErrPaymentMethodNotFound = errors.New("payment method not found")

// PaymentMethodRepository handles payment method data access
type PaymentMethodRepository struct {
	db *gorm.DB
}

// NewPaymentMethodRepository creates a new PaymentMethodRepository
func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) Create(pm *models.PaymentMethod) error {
	return r.db.Create(pm).Error
}

func (r *PaymentMethodRepository) GetByID(id uint) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := r.db.First(&pm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return &pm, nil
}

func (r *PaymentMethodRepository) Update(pm *models.PaymentMethod) error {
	return r.db.Save(pm).Error
}

func (r *PaymentMethodRepository) Delete(id uint) error {
	result := r.db.Delete(&models.PaymentMethod{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentMethodNotFound
	}
	return nil
}

// List returns payment methods, optionally only active ones
func (r *PaymentMethodRepository) List(activeOnly bool) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	q := r.db.Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&out).Error
	return out, err
}
