package services

import (
	"context"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/config"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/pkg/jwt"
	"royal-collector/internal/pkg/password"
	"royal-collector/internal/pkg/validate"

	"go.uber.org/zap"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo repositories.UserRepository
	jwtCfg   config.JWTConfig
	log      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, jwtCfg config.JWTConfig, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=100"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"max=20"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User        *models.UserResponse `json:"user"`
	AccessToken string               `json:"access_token"`
}

// Register creates a USER account and signs it in
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	// 1. Validate input
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(input.Email)

	// 2. Check if email already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, storageError(err)
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	// 3. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Create user
	user := &models.User{
		Email:    email,
		FullName: input.FullName,
		Password: hashedPassword,
		Role:     domain.RoleUser,
		IsActive: true,
	}
	if phone := domain.NormalizePhone(input.PhoneNumber); phone != "" {
		user.PhoneNumber = &phone
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, storageError(err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID))

	// 5. Generate token
	return s.authResponse(user)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storageError(err)
	}

	if !password.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	return s.authResponse(user)
}

// GetCurrentUser returns the profile of the signed-in user
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.NotFound("user not found")
		}
		return nil, storageError(err)
	}
	return user.ToResponse(), nil
}

// Principal resolves a token subject into the identity the core authorizes against.
// The role is read from storage so demotions apply immediately.
func (s *AuthService) Principal(ctx context.Context, userID uint) (domain.Principal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Principal{}, domain.ErrUnauthorized
		}
		return domain.Principal{}, storageError(err)
	}
	if !user.IsActive {
		return domain.Principal{}, domain.ErrUserInactive
	}
	return user.Principal(), nil
}

func (s *AuthService) authResponse(user *models.User) (*AuthResponse, error) {
	token, err := jwt.GenerateAccessToken(user.ID, user.Email, string(user.Role), s.jwtCfg.Secret, s.jwtCfg.AccessTokenMins)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:        user.ToResponse(),
		AccessToken: token,
	}, nil
}
