package repository

import (
	"errors"
	"time"

	"github.com/brokerdesk/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAdminNotFound = errors.New("admin not found")
)

// UserRepository handles user data access
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail checks whether an email is taken
func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// Update saves all fields of user
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// SetKYCVerified flips the verified flag
func (r *UserRepository) SetKYCVerified(id uint, verified bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("kyc_verified", verified).Error
}

// List returns users matching search (name or email), newest first
func (r *UserRepository) List(search string, limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := func() *gorm.DB {
		q := r.db.Model(&models.User{})
		if search != "" {
			like := "%" + search + "%"
			q = q.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", like, like, like)
		}
		return q
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query().Order("id DESC").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

// Count returns the number of users
func (r *UserRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.User{}).Count(&n).Error
	return n, err
}

// CountSince returns the number of users created after t
func (r *UserRepository) CountSince(t time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.User{}).Where("created_at >= ?", t).Count(&n).Error
	return n, err
}

// AdminRepository handles admin data access
type AdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository creates a new AdminRepository
func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create creates a new admin
func (r *AdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// GetByID retrieves an admin by ID
func (r *AdminRepository) GetByID(id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// GetByEmail retrieves an admin by email
func (r *AdminRepository) GetByEmail(email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.Where("email = ?", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// List returns every admin
func (r *AdminRepository) List() ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.Order("id ASC").Find(&admins).Error
	return admins, err
}

// Update saves all fields of admin
func (r *AdminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}

// Delete soft-deletes an admin
func (r *AdminRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Admin{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAdminNotFound
	}
	return nil
}

// CountByRole counts active admins with role
func (r *AdminRepository) CountByRole(role models.AdminRole) (int64, error) {
	var n int64
	err := r.db.Model(&models.Admin{}).Where("role = ? AND is_active = ?", role, true).Count(&n).Error
	return n, err
}

// TouchLogin records a successful login
func (r *AdminRepository) TouchLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}
