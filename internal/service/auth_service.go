package service

import (
	"errors"
	"strings"
	"time"

	"github.com/brokerdesk/internal/config"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/crypto"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already taken")
	ErrInvalidToken        = errors.New("invalid token")
	ErrAccountBlocked      = errors.New("account is blocked")
	ErrInvalidReferralCode = errors.New("invalid referral code")
)

const (
	audienceUser  = "user"
	audienceAdmin = "admin"
	issuer        = "brokerdesk"
)

// AuthService handles user and admin authentication
type AuthService struct {
	userRepo   *repository.UserRepository
	adminRepo  *repository.AdminRepository
	walletRepo *repository.WalletRepository
	ibRepo     *repository.IBRepository
	jwtConfig  config.JWTConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo *repository.UserRepository,
	adminRepo *repository.AdminRepository,
	walletRepo *repository.WalletRepository,
	ibRepo *repository.IBRepository,
	jwtConfig config.JWTConfig,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		adminRepo:  adminRepo,
		walletRepo: walletRepo,
		ibRepo:     ibRepo,
		jwtConfig:  jwtConfig,
	}
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	FirstName    string `json:"firstName" binding:"required,max=50"`
	LastName     string `json:"lastName" binding:"max=50"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"max=30"`
	Country      string `json:"country" binding:"max=60"`
	Password     string `json:"password" binding:"required,min=6,max=100"`
	ReferralCode string `json:"referralCode"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the editable profile fields. Nil fields are kept.
type UpdateProfileRequest struct {
	FirstName   *string    `json:"firstName" binding:"omitempty,max=50"`
	LastName    *string    `json:"lastName" binding:"omitempty,max=50"`
	Phone       *string    `json:"phone" binding:"omitempty,max=30"`
	Country     *string    `json:"country" binding:"omitempty,max=60"`
	Address     *string    `json:"address" binding:"omitempty,max=255"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	AccessToken string      `json:"accessToken"`
	TokenType   string      `json:"tokenType"`
	ExpiresIn   int         `json:"expiresIn"`
	User        interface{} `json:"user,omitempty"`
}

// JWTClaims represents the claims of a user token
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AdminClaims represents the claims of an admin token
type AdminClaims struct {
	AdminID     uint                `json:"admin_id"`
	Email       string              `json:"email"`
	Role        models.AdminRole    `json:"role"`
	Permissions []models.Permission `json:"permissions"`
	jwt.RegisteredClaims
}

// Can reports whether the token holder has p
func (c *AdminClaims) Can(p models.Permission) bool {
	if c.Role == models.RoleSuperAdmin {
		return true
	}
	for _, have := range c.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Register creates a user and their wallet. A referral code links the user
// to the IB who owns it.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	var referredBy *uint
	if code := strings.ToUpper(strings.TrimSpace(req.ReferralCode)); code != "" {
		ib, err := s.ibRepo.GetProfileByReferralCode(code)
		if err != nil {
			if errors.Is(err, repository.ErrIBProfileNotFound) {
				return nil, ErrInvalidReferralCode
			}
			return nil, err
		}
		if ib.Status != models.IBStatusActive {
			return nil, ErrInvalidReferralCode
		}
		referredBy = &ib.UserID
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		Phone:        req.Phone,
		Country:      req.Country,
		PasswordHash: passwordHash,
		ReferredBy:   referredBy,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if _, err := s.walletRepo.GetOrCreate(user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(req *LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	token.User = user
	return token, nil
}

// RefreshToken issues a new token for a still valid one
func (s *AuthService) RefreshToken(tokenString string) (*TokenResponse, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}
	return s.generateToken(user)
}

// ValidateToken validates a user token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithAudience(audienceUser), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *AuthService) generateToken(user *models.User) (*TokenResponse, error) {
	expiresIn := time.Duration(s.jwtConfig.ExpireHours) * time.Hour

	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audienceUser},
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtConfig.ExpireHours * 3600,
	}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// UpdateProfile applies the non-nil fields of req to the user
func (s *AuthService) UpdateProfile(userID uint, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Country != nil {
		user.Country = *req.Country
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.DateOfBirth != nil {
		user.DateOfBirth = req.DateOfBirth
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// AdminLogin authenticates a console operator
func (s *AuthService) AdminLogin(req *LoginRequest) (*TokenResponse, error) {
	admin, err := s.adminRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(req.Password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, ErrAccountBlocked
	}

	now := time.Now()
	if err := s.adminRepo.TouchLogin(admin.ID, now); err != nil {
		return nil, err
	}
	admin.LastLoginAt = &now

	token, err := s.generateAdminToken(admin)
	if err != nil {
		return nil, err
	}
	token.User = admin
	return token, nil
}

// ValidateAdminToken validates an admin token and returns the claims
func (s *AuthService) ValidateAdminToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.AdminSecret), nil
	}, jwt.WithAudience(audienceAdmin), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *AuthService) generateAdminToken(admin *models.Admin) (*TokenResponse, error) {
	expiresIn := time.Duration(s.jwtConfig.ExpireHours) * time.Hour

	claims := &AdminClaims{
		AdminID:     admin.ID,
		Email:       admin.Email,
		Role:        admin.Role,
		Permissions: admin.Perms(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audienceAdmin},
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtConfig.AdminSecret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtConfig.ExpireHours * 3600,
	}, nil
}
