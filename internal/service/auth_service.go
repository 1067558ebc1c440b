package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// AuthService handles account registration and login.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// AuthDependencies bundles collaborators.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	BcryptCost   int
}

// RegisterStudentInput carries student self-registration fields.
type RegisterStudentInput struct {
	Name      string
	Email     string
	Password  string
	Phone     *string
	StudentID *string
}

// CreateStaffInput carries admin-driven staff account fields.
type CreateStaffInput struct {
	Name       string
	Email      string
	Password   string
	Phone      *string
	Department *string
	Role       domain.Role
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.TokenManager,
		bcryptCost: deps.BcryptCost,
	}
}

// RegisterStudent creates a student account.
func (s *AuthService) RegisterStudent(ctx context.Context, input RegisterStudentInput) (*domain.User, error) {
	email, err := validateCredentials(input.Email, input.Password, input.Name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		Phone:        input.Phone,
		StudentID:    input.StudentID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// CreateStaff creates a staff or admin account. Admin-only at the
// routing layer.
func (s *AuthService) CreateStaff(ctx context.Context, input CreateStaffInput) (*domain.User, error) {
	email, err := validateCredentials(input.Email, input.Password, input.Name)
	if err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = domain.RoleStaff
	}
	if role != domain.RoleStaff && role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("role must be STAFF or ADMIN", map[string]any{"role": role})
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        input.Phone,
		Department:   input.Department,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login authenticates by email/password and issues a JWT. Inactive
// accounts cannot log in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// SetActive enables or disables an account.
func (s *AuthService) SetActive(ctx context.Context, userID string, active bool) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}

	user.Active = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListUsers returns accounts for the admin view.
func (s *AuthService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return apperrors.MapError(err)
}

func validateCredentials(email, password, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", apperrors.NewValidationError("name is required", nil)
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", apperrors.NewValidationError("invalid email address", map[string]any{"email": email})
	}
	if len(password) < 8 {
		return "", apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	return normalized, nil
}
