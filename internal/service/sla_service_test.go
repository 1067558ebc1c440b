package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

func newSLAFixture() (*SLAService, *fakePolicyRepo, *fakeCategoryRepo) {
	policies := newFakePolicyRepo()
	categories := newFakeCategoryRepo()
	service := NewSLAService(SLADependencies{PolicyRepo: policies, CategoryRepo: categories})
	return service, policies, categories
}

func TestCreatePolicy(t *testing.T) {
	service, _, _ := newSLAFixture()

	policy, err := service.CreatePolicy(context.Background(), SLAPolicyInput{
		Name:                "urgent 4h",
		Priority:            domain.ComplaintPriorityUrgent,
		ResponseTimeHours:   1,
		ResolutionTimeHours: 4,
	})
	require.NoError(t, err)
	assert.True(t, policy.IsActive)
	assert.NotEmpty(t, policy.ID)
}

func TestCreatePolicy_Validation(t *testing.T) {
	service, _, _ := newSLAFixture()

	_, err := service.CreatePolicy(context.Background(), SLAPolicyInput{
		Name: "", Priority: domain.ComplaintPriorityLow, ResponseTimeHours: 1, ResolutionTimeHours: 4,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = service.CreatePolicy(context.Background(), SLAPolicyInput{
		Name: "n", Priority: "SOMEDAY", ResponseTimeHours: 1, ResolutionTimeHours: 4,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = service.CreatePolicy(context.Background(), SLAPolicyInput{
		Name: "n", Priority: domain.ComplaintPriorityLow, ResponseTimeHours: 0, ResolutionTimeHours: 4,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestUpdatePolicy_DeactivationLeavesStampedDeadlinesAlone(t *testing.T) {
	service, policies, _ := newSLAFixture()

	policy, err := service.CreatePolicy(context.Background(), SLAPolicyInput{
		Name: "high", Priority: domain.ComplaintPriorityHigh, ResponseTimeHours: 4, ResolutionTimeHours: 24,
	})
	require.NoError(t, err)

	inactive := false
	updated, err := service.UpdatePolicy(context.Background(), policy.ID, SLAPolicyInput{
		Name: "high", Priority: domain.ComplaintPriorityHigh,
		ResponseTimeHours: 4, ResolutionTimeHours: 24, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	// lookups for new complaints now miss
	_, err = policies.GetActiveByPriority(context.Background(), domain.ComplaintPriorityHigh)
	assert.Error(t, err)
}

func TestUpdatePolicy_Missing(t *testing.T) {
	service, _, _ := newSLAFixture()
	_, err := service.UpdatePolicy(context.Background(), "nope", SLAPolicyInput{
		Name: "n", Priority: domain.ComplaintPriorityLow, ResponseTimeHours: 1, ResolutionTimeHours: 4,
	})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestCategoryLifecycle(t *testing.T) {
	service, _, _ := newSLAFixture()

	category, err := service.CreateCategory(context.Background(), CategoryInput{
		Name: " Housing ", Description: "dorms and facilities",
	})
	require.NoError(t, err)
	assert.Equal(t, "Housing", category.Name)
	assert.True(t, category.IsActive)

	inactive := false
	updated, err := service.UpdateCategory(context.Background(), category.ID, CategoryInput{
		Name: "Housing", IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	visible, err := service.ListCategories(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := service.ListCategories(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateCategory_Validation(t *testing.T) {
	service, _, _ := newSLAFixture()
	_, err := service.CreateCategory(context.Background(), CategoryInput{Name: "   "})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}
