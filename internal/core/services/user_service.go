package services

import (
	"context"
	"fmt"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"
	"royal-collector/internal/pkg/pagination"
	"royal-collector/internal/pkg/validate"

	"go.uber.org/zap"
)

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
	log      *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		userRepo: userRepo,
		log:      log,
	}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Page  int
	Limit int
	Role  domain.Role
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Meta  *pagination.Meta       `json:"meta"`
}

// UpdateUserInput represents an administrative user edit
type UpdateUserInput struct {
	FullName    *string      `json:"full_name,omitempty" validate:"omitempty,max=100"`
	PhoneNumber *string      `json:"phone_number,omitempty" validate:"omitempty,max=20"`
	Role        *domain.Role `json:"role,omitempty"`
	IsActive    *bool        `json:"is_active,omitempty"`
}

// UpdateProfileInput represents a self-service profile edit. Nil fields are kept.
type UpdateProfileInput struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=20"`
}

// ListWorkers lists active team workers, e.g. for assignment pickers
func (s *UserService) ListWorkers(ctx context.Context) ([]*models.UserResponse, error) {
	workers, err := s.userRepo.ListByRole(ctx, domain.RoleTeamWorker)
	if err != nil {
		return nil, storageError(err)
	}

	out := make([]*models.UserResponse, 0, len(workers))
	for _, w := range workers {
		if w.IsActive {
			out = append(out, w.ToResponse())
		}
	}
	return out, nil
}

// ListUsers lists all users with pagination
func (s *UserService) ListUsers(ctx context.Context, p domain.Principal, input *ListUsersInput) (*ListUsersOutput, error) {
	if !visibility.CanManageUsers(p) {
		return nil, domain.Forbidden("only administrators can list users")
	}
	if input.Role != "" && !input.Role.Valid() {
		return nil, domain.InvalidInput(fmt.Sprintf("unknown role %q", input.Role))
	}

	params := pagination.New(input.Page, input.Limit)
	users, total, err := s.userRepo.List(ctx, input.Role, params.Offset, params.Limit)
	if err != nil {
		return nil, storageError(err)
	}

	userResponses := make([]*models.UserResponse, len(users))
	for i, user := range users {
		userResponses[i] = user.ToResponse()
	}

	return &ListUsersOutput{
		Users: userResponses,
		Meta:  pagination.GetMeta(params, total),
	}, nil
}

// VerifyUser marks a user as verified. A plain USER is promoted to VERIFIED_USER;
// higher roles keep their role.
func (s *UserService) VerifyUser(ctx context.Context, p domain.Principal, id uint) (*models.UserResponse, error) {
	if !visibility.CanManageUsers(p) {
		return nil, domain.Forbidden("only administrators can verify users")
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsVerified = true
	if user.Role == domain.RoleUser {
		user.Role = domain.RoleVerifiedUser
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageError(err)
	}

	s.log.Info("user verified", zap.Uint("user_id", id), zap.Uint("principal_id", p.UserID))
	return user.ToResponse(), nil
}

// UpdateUser edits a user. Role changes cannot touch a SUPER_ADMIN or the caller,
// and only a SUPER_ADMIN can grant SUPER_ADMIN.
func (s *UserService) UpdateUser(ctx context.Context, p domain.Principal, id uint, input *UpdateUserInput) (*models.UserResponse, error) {
	if !visibility.CanManageUsers(p) {
		return nil, domain.Forbidden("only administrators can edit users")
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != nil && *input.Role != user.Role {
		switch {
		case !input.Role.Valid():
			return nil, domain.InvalidInput(fmt.Sprintf("unknown role %q", *input.Role))
		case user.ID == p.UserID:
			return nil, domain.Forbidden("cannot change your own role")
		case user.Role == domain.RoleSuperAdmin:
			return nil, domain.Forbidden("cannot change the role of a super admin")
		case *input.Role == domain.RoleSuperAdmin && p.Role != domain.RoleSuperAdmin:
			return nil, domain.Forbidden("only a super admin can grant super admin")
		}
		user.Role = *input.Role
	}

	if input.IsActive != nil && *input.IsActive != user.IsActive {
		if user.ID == p.UserID {
			return nil, domain.Forbidden("cannot deactivate your own account")
		}
		if user.Role == domain.RoleSuperAdmin {
			return nil, domain.Forbidden("cannot deactivate a super admin")
		}
		user.IsActive = *input.IsActive
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.PhoneNumber != nil {
		phone := domain.NormalizePhone(*input.PhoneNumber)
		if phone == "" {
			user.PhoneNumber = nil
		} else {
			user.PhoneNumber = &phone
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageError(err)
	}

	s.log.Info("user updated",
		zap.Uint("user_id", id),
		zap.Uint("principal_id", p.UserID),
		zap.String("role", string(user.Role)),
	)
	return user.ToResponse(), nil
}

// UpdateProfile lets the principal edit their own name, email and phone. A new email
// must not belong to another account.
func (s *UserService) UpdateProfile(ctx context.Context, p domain.Principal, input *UpdateProfileInput) (*models.UserResponse, error) {
	if input == nil {
		input = &UpdateProfileInput{}
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := domain.NormalizeEmail(*input.Email)
		if email != domain.NormalizeEmail(user.Email) {
			exists, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, storageError(err)
			}
			if exists {
				return nil, domain.ErrUserAlreadyExists
			}
			user.Email = email
		}
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.PhoneNumber != nil {
		phone := domain.NormalizePhone(*input.PhoneNumber)
		if phone == "" {
			user.PhoneNumber = nil
		} else {
			user.PhoneNumber = &phone
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, storageError(err)
	}

	s.log.Info("profile updated", zap.Uint("user_id", user.ID))
	return user.ToResponse(), nil
}

// DeleteUser removes a user account
func (s *UserService) DeleteUser(ctx context.Context, p domain.Principal, id uint) error {
	if !visibility.CanManageUsers(p) {
		return domain.Forbidden("only administrators can delete users")
	}
	if id == p.UserID {
		return domain.Forbidden("cannot delete your own account")
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleSuperAdmin {
		return domain.Forbidden("cannot delete a super admin")
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return storageError(err)
	}

	s.log.Info("user deleted", zap.Uint("user_id", id), zap.Uint("principal_id", p.UserID))
	return nil
}

func (s *UserService) getUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.NotFound(fmt.Sprintf("user %d not found", id))
		}
		return nil, storageError(err)
	}
	return user, nil
}
