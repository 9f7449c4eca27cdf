package service

import (
	"errors"
	"strings"

	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/crypto"
)

var (
	ErrCannotDeleteSelf = errors.New("cannot delete your own admin account")
	ErrLastSuperAdmin   = errors.New("cannot remove the last super admin")
	ErrInvalidRole      = errors.New("invalid admin role")
)

// AdminService manages console operators and exposes the user directory
type AdminService struct {
	adminRepo *repository.AdminRepository
	userRepo  *repository.UserRepository
}

// NewAdminService creates a new AdminService
func NewAdminService(adminRepo *repository.AdminRepository, userRepo *repository.UserRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo, userRepo: userRepo}
}

// CreateAdminRequest represents the create admin request
type CreateAdminRequest struct {
	Name        string              `json:"name" binding:"required,max=100"`
	Email       string              `json:"email" binding:"required,email"`
	Password    string              `json:"password" binding:"required,min=8,max=100"`
	Role        models.AdminRole    `json:"role" binding:"required"`
	Permissions []models.Permission `json:"permissions"`
}

// UpdateAdminRequest represents the update admin request. Nil fields are kept.
type UpdateAdminRequest struct {
	Name        *string             `json:"name" binding:"omitempty,max=100"`
	Role        *models.AdminRole   `json:"role"`
	Permissions []models.Permission `json:"permissions"`
	IsActive    *bool               `json:"isActive"`
}

// ResetPasswordRequest represents the reset password request
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=100"`
}

// List returns every admin
func (s *AdminService) List() ([]models.Admin, error) {
	return s.adminRepo.List()
}

// Get returns one admin
func (s *AdminService) Get(id uint) (*models.Admin, error) {
	return s.adminRepo.GetByID(id)
}

// Create adds an admin
func (s *AdminService) Create(req *CreateAdminRequest) (*models.Admin, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.adminRepo.GetByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrAdminNotFound) {
		return nil, err
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	admin.SetPermissions(req.Permissions)

	if err := s.adminRepo.Create(admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Update edits an admin. The last active super admin cannot be demoted or
// deactivated.
func (s *AdminService) Update(id uint, req *UpdateAdminRequest) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	losesSuper := admin.Role == models.RoleSuperAdmin && admin.IsActive &&
		((req.Role != nil && *req.Role != models.RoleSuperAdmin) || (req.IsActive != nil && !*req.IsActive))
	if losesSuper {
		if err := s.ensureAnotherSuperAdmin(); err != nil {
			return nil, err
		}
	}

	if req.Name != nil {
		admin.Name = *req.Name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, ErrInvalidRole
		}
		admin.Role = *req.Role
	}
	if req.Permissions != nil {
		admin.SetPermissions(req.Permissions)
	}
	if req.IsActive != nil {
		admin.IsActive = *req.IsActive
	}

	if err := s.adminRepo.Update(admin); err != nil {
		return nil, err
	}
	admin.PermissionList = admin.Perms()
	return admin, nil
}

// Delete removes an admin on behalf of actorID
func (s *AdminService) Delete(actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return err
	}
	if admin.Role == models.RoleSuperAdmin && admin.IsActive {
		if err := s.ensureAnotherSuperAdmin(); err != nil {
			return err
		}
	}
	return s.adminRepo.Delete(id)
}

func (s *AdminService) ensureAnotherSuperAdmin() error {
	n, err := s.adminRepo.CountByRole(models.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastSuperAdmin
	}
	return nil
}

// ResetPassword sets a new password for an admin
func (s *AdminService) ResetPassword(id uint, password string) error {
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	admin.PasswordHash = hash
	return s.adminRepo.Update(admin)
}

// EnsureSuperAdmin creates the bootstrap super admin when no admin with that
// email exists. It reports whether one was created.
func (s *AdminService) EnsureSuperAdmin(email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.adminRepo.GetByEmail(strings.ToLower(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrAdminNotFound) {
		return false, err
	}

	_, err = s.Create(&CreateAdminRequest{
		Name:     "Super Admin",
		Email:    email,
		Password: password,
		Role:     models.RoleSuperAdmin,
	})
	return err == nil, err
}

// ListUsers returns a page of end users matching search
func (s *AdminService) ListUsers(search string, limit, offset int) ([]models.User, int64, error) {
	return s.userRepo.List(strings.TrimSpace(search), limit, offset)
}

// GetUser returns one end user
func (s *AdminService) GetUser(id uint) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// SetUserBlocked blocks or unblocks an end user
func (s *AdminService) SetUserBlocked(id uint, blocked bool) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	user.IsBlocked = blocked
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
