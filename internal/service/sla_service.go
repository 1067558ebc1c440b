package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// SLAService manages SLA policies and complaint categories. Both are
// admin-configured reference data; complaints only read them.
type SLAService struct {
	policies   repository.SLAPolicyRepository
	categories repository.CategoryRepository
}

// SLADependencies bundles collaborators.
type SLADependencies struct {
	PolicyRepo   repository.SLAPolicyRepository
	CategoryRepo repository.CategoryRepository
}

// SLAPolicyInput carries the writable fields of a policy.
type SLAPolicyInput struct {
	Name                string
	Priority            domain.ComplaintPriority
	ResponseTimeHours   int
	ResolutionTimeHours int
	IsActive            *bool
}

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name        string
	Description string
	IsActive    *bool
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	return &SLAService{policies: deps.PolicyRepo, categories: deps.CategoryRepo}
}

// CreatePolicy adds an SLA policy. The database enforces at most one
// active policy per priority; a duplicate surfaces as a conflict.
func (s *SLAService) CreatePolicy(ctx context.Context, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if err := validatePolicyInput(input); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	policy := &domain.SLAPolicy{
		Name:                strings.TrimSpace(input.Name),
		Priority:            input.Priority,
		ResponseTimeHours:   input.ResponseTimeHours,
		ResolutionTimeHours: input.ResolutionTimeHours,
		IsActive:            active,
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, mapPolicyWriteError(err, policy.Priority)
	}
	return policy, nil
}

// UpdatePolicy rewrites a policy. Existing complaints keep the deadline
// stamped at creation; only complaints created afterwards see the
// change.
func (s *SLAService) UpdatePolicy(ctx context.Context, policyID string, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if err := validatePolicyInput(input); err != nil {
		return nil, err
	}

	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"policy_id": policyID})
		}
		return nil, apperrors.MapError(err)
	}

	policy.Name = strings.TrimSpace(input.Name)
	policy.Priority = input.Priority
	policy.ResponseTimeHours = input.ResponseTimeHours
	policy.ResolutionTimeHours = input.ResolutionTimeHours
	if input.IsActive != nil {
		policy.IsActive = *input.IsActive
	}

	if err := s.policies.Update(ctx, policy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"policy_id": policyID})
		}
		return nil, mapPolicyWriteError(err, policy.Priority)
	}
	return policy, nil
}

// GetPolicy fetches one policy by id.
func (s *SLAService) GetPolicy(ctx context.Context, policyID string) (*domain.SLAPolicy, error) {
	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"policy_id": policyID})
		}
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// ListPolicies returns policies, optionally including inactive ones.
func (s *SLAService) ListPolicies(ctx context.Context, includeInactive bool) ([]domain.SLAPolicy, error) {
	policies, err := s.policies.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

// CreateCategory adds a complaint category.
func (s *SLAService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	category := &domain.Category{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    active,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// UpdateCategory rewrites a category. Deactivating one blocks new
// complaints from using it but leaves existing complaints untouched.
func (s *SLAService) UpdateCategory(ctx context.Context, categoryID string, input CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}

	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}

	category.Name = name
	category.Description = strings.TrimSpace(input.Description)
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// ListCategories returns categories, optionally including inactive ones.
func (s *SLAService) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

func validatePolicyInput(input SLAPolicyInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("policy name is required", nil)
	}
	if !domain.ValidPriority(input.Priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if input.ResponseTimeHours <= 0 || input.ResolutionTimeHours <= 0 {
		return apperrors.NewValidationError("time budgets must be positive hours", map[string]any{
			"response_time_hours":   input.ResponseTimeHours,
			"resolution_time_hours": input.ResolutionTimeHours,
		})
	}
	return nil
}

func mapPolicyWriteError(err error, priority domain.ComplaintPriority) error {
	if strings.Contains(err.Error(), "sla_policies_active_priority_idx") {
		return apperrors.NewConflict("an active policy already exists for this priority", map[string]any{
			"priority": priority,
		})
	}
	return apperrors.MapError(err)
}
