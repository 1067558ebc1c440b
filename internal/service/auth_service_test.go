package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

func newAuthFixture() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	service := NewAuthService(AuthDependencies{
		UserRepo:     users,
		TokenManager: auth.NewTokenManager("test-secret", 60),
		BcryptCost:   4, // min cost keeps the test fast
	})
	return service, users
}

func TestRegisterStudentAndLogin(t *testing.T) {
	service, _ := newAuthFixture()

	user, err := service.RegisterStudent(context.Background(), RegisterStudentInput{
		Name:     "Dana Osei",
		Email:    "Dana.Osei@Example.edu",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, user.Role)
	assert.Equal(t, "dana.osei@example.edu", user.Email)
	assert.True(t, user.Active)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	result, err := service.Login(context.Background(), "dana.osei@example.edu", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)

	_, err = service.Login(context.Background(), "dana.osei@example.edu", "wrong")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestRegisterStudent_DuplicateEmail(t *testing.T) {
	service, _ := newAuthFixture()

	input := RegisterStudentInput{Name: "A", Email: "a@example.edu", Password: "password1"}
	_, err := service.RegisterStudent(context.Background(), input)
	require.NoError(t, err)

	_, err = service.RegisterStudent(context.Background(), input)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestRegisterStudent_Validation(t *testing.T) {
	service, _ := newAuthFixture()

	_, err := service.RegisterStudent(context.Background(), RegisterStudentInput{
		Name: "A", Email: "not-an-email", Password: "password1",
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = service.RegisterStudent(context.Background(), RegisterStudentInput{
		Name: "A", Email: "a@example.edu", Password: "short",
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateStaff_RoleGuard(t *testing.T) {
	service, _ := newAuthFixture()

	staff, err := service.CreateStaff(context.Background(), CreateStaffInput{
		Name: "B", Email: "b@example.edu", Password: "password1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, staff.Role)

	_, err = service.CreateStaff(context.Background(), CreateStaffInput{
		Name: "C", Email: "c@example.edu", Password: "password1", Role: domain.RoleStudent,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestLogin_InactiveAccount(t *testing.T) {
	service, users := newAuthFixture()

	user, err := service.RegisterStudent(context.Background(), RegisterStudentInput{
		Name: "D", Email: "d@example.edu", Password: "password1",
	})
	require.NoError(t, err)

	_, err = service.SetActive(context.Background(), user.ID, false)
	require.NoError(t, err)

	_, err = service.Login(context.Background(), "d@example.edu", "password1")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}
