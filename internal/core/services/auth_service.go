package services

import (
	"context"
	"errors"
	"log"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/adapters/persistence/repositories"
	"biblios/internal/config"
	"biblios/internal/core/domain"
	"biblios/internal/pkg/jwt"
	"biblios/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyUsed   = errors.New("email already registered")
	ErrDocumentInUse      = errors.New("document number already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountInactive    = errors.New("patron account is inactive")
	ErrWeakPassword       = errors.New("password does not meet requirements")
)

// AuthService handles authentication business logic
type AuthService struct {
	patronRepo       *repositories.PatronRepository
	refreshTokenRepo *repositories.RefreshTokenRepository
	cfg              *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	patronRepo *repositories.PatronRepository,
	refreshTokenRepo *repositories.RefreshTokenRepository,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		patronRepo:       patronRepo,
		refreshTokenRepo: refreshTokenRepo,
		cfg:              cfg,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	DocumentType   string `json:"document_type" validate:"required"`
	DocumentNumber string `json:"document_number" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Patron       *models.PatronResponse `json:"patron"`
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
}

// Register registers a new patron with the MEMBER role
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	if !password.Validate(input.Password) {
		return nil, ErrWeakPassword
	}

	exists, err := s.patronRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyUsed
	}

	exists, err = s.patronRepo.ExistsByDocument(ctx, input.DocumentNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDocumentInUse
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	patron := &models.Patron{
		Name:           input.Name,
		Email:          input.Email,
		Password:       hashed,
		Role:           string(domain.RoleMember),
		DocumentType:   input.DocumentType,
		DocumentNumber: input.DocumentNumber,
		Phone:          input.Phone,
		Active:         true,
	}
	if err := s.patronRepo.Create(ctx, patron); err != nil {
		return nil, err
	}

	log.Printf("✅ Patron registered: %s (%s)", patron.Name, patron.Email)
	return s.issueTokens(ctx, patron)
}

// Login authenticates a patron and issues a token pair
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	patron, err := s.patronRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(input.Password, patron.Password) {
		return nil, ErrInvalidCredentials
	}
	if !patron.Active {
		return nil, ErrAccountInactive
	}

	return s.issueTokens(ctx, patron)
}

// Refresh rotates a refresh token and issues a fresh pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	stored, err := s.refreshTokenRepo.GetByHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if stored.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if stored.IsExpired() {
		return nil, ErrTokenExpired
	}

	patron, err := s.patronRepo.GetByID(ctx, claims.PatronID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !patron.Active {
		return nil, ErrAccountInactive
	}

	// Rotate: the old token is single-use.
	if err := s.refreshTokenRepo.Revoke(ctx, stored.ID); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, patron)
}

// Logout revokes all outstanding refresh tokens for a patron
func (s *AuthService) Logout(ctx context.Context, patronID uint) error {
	return s.refreshTokenRepo.RevokeAllForPatron(ctx, patronID)
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// ChangePassword changes a patron's password and revokes their sessions
func (s *AuthService) ChangePassword(ctx context.Context, patronID uint, input *ChangePasswordInput) error {
	patron, err := s.patronRepo.GetByID(ctx, patronID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPatronNotFound
		}
		return err
	}

	if !password.Verify(input.CurrentPassword, patron.Password) {
		return ErrInvalidCredentials
	}
	if !password.Validate(input.NewPassword) {
		return ErrWeakPassword
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	patron.Password = hashed
	if err := s.patronRepo.Update(ctx, patron); err != nil {
		return err
	}

	return s.refreshTokenRepo.RevokeAllForPatron(ctx, patronID)
}

// issueTokens builds an access/refresh pair and stores the refresh hash.
func (s *AuthService) issueTokens(ctx context.Context, patron *models.Patron) (*AuthResponse, error) {
	accessToken, err := jwt.GenerateAccessToken(
		patron.ID, patron.Email, patron.Role,
		s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.NewString()
	refreshToken, err := jwt.GenerateRefreshToken(
		patron.ID, tokenID,
		s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	stored := &models.RefreshToken{
		PatronID:  patron.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	if err := s.refreshTokenRepo.Create(ctx, stored); err != nil {
		return nil, err
	}

	return &AuthResponse{
		Patron:       patron.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
