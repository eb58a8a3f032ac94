// internal/domain/staff/service.go
package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("staff account with this email already exists")
	ErrInvalidRole        = errors.New("role must be admin or partner")
)

// Service handles staff accounts and console logins
type Service struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	logger          *logrus.Logger
}

// NewService creates a new staff service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		logger:          logger,
	}
}

// CreateRequest represents staff account creation data
type CreateRequest struct {
	Email    string    `json:"email" binding:"required,email"`
	Name     string    `json:"name"`
	Password string    `json:"password" binding:"required"`
	Role     auth.Role `json:"role" binding:"required"`
}

// LoginRequest represents staff login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Account     *Account `json:"account"`
	AccessToken string   `json:"accessToken"`
	ExpiresIn   int64    `json:"expiresIn"`
}

// Create adds an admin or partner account
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Account, error) {
	if req.Role != auth.RoleAdmin && req.Role != auth.RolePartner {
		return nil, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var count int64
	if err := s.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hash, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := Account{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to create staff account: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"staff_id": account.ID, "role": account.Role}).Info("staff account created")
	return &account, nil
}

// Login checks credentials and issues an access token carrying the role
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var account Account
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(req.Email)), true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load staff account: %w", err)
	}

	if err := s.passwordManager.VerifyPassword(req.Password, account.PasswordHash); err != nil {
		s.logger.WithField("staff_id", account.ID).Warn("staff login failed")
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateAccessToken(account.Subject(), account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&account).Update("last_login_at", now).Error; err != nil {
		s.logger.WithError(err).Warn("failed to record staff login")
	}
	account.LastLoginAt = &now

	return &AuthResponse{
		Account:     &account,
		AccessToken: token,
		ExpiresIn:   int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}

// List returns all staff accounts of a role, or every account when role is empty
func (s *Service) List(ctx context.Context, role auth.Role) ([]Account, error) {
	query := s.db.WithContext(ctx).Order("id ASC")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var accounts []Account
	if err := query.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list staff accounts: %w", err)
	}
	return accounts, nil
}
