package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/classquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/classquiz-api/internal/pkg/errors"
	"github.com/yourusername/classquiz-api/pkg/auth"
)

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id string) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func newTestAuthService(t *testing.T, userRepo *MockUserRepository) *AuthService {
	t.Helper()
	jwtService, err := auth.NewJWTService("test-secret", 1)
	require.NoError(t, err)
	authService, err := NewAuthService(userRepo, jwtService)
	require.NoError(t, err)
	return authService
}

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("Create", mock.AnythingOfType("*entity.User")).Return(nil)

	authService := newTestAuthService(t, mockUserRepo)

	// Act
	result, err := authService.Register(RegisterInput{
		Name:     "Анна Петрова",
		Email:    "  Anna@Example.COM ",
		Password: "secret123",
		Role:     entity.RoleTeacher,
	})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token, "Регистрация сразу выдает токен")
	assert.Equal(t, "anna@example.com", result.User.Email, "Email нормализуется")
	assert.Equal(t, entity.RoleTeacher, result.User.Role)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_DefaultsToStudent(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("Create", mock.AnythingOfType("*entity.User")).Return(nil)

	authService := newTestAuthService(t, mockUserRepo)

	result, err := authService.Register(RegisterInput{
		Name:     "Ученик",
		Email:    "student@example.com",
		Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, result.User.Role, "Роль по умолчанию - student")
}

func TestAuthService_Register_ValidationErrors(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	authService := newTestAuthService(t, mockUserRepo)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"пустое имя", RegisterInput{Email: "a@b.c", Password: "secret123"}},
		{"пустой email", RegisterInput{Name: "A", Password: "secret123"}},
		{"короткий пароль", RegisterInput{Name: "A", Email: "a@b.c", Password: "123"}},
		{"неизвестная роль", RegisterInput{Name: "A", Email: "a@b.c", Password: "secret123", Role: "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := authService.Register(tt.input)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Nil(t, result)
		})
	}
	mockUserRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("Create", mock.AnythingOfType("*entity.User")).Return(apperrors.ErrConflict)

	authService := newTestAuthService(t, mockUserRepo)

	result, err := authService.Register(RegisterInput{
		Name:     "A",
		Email:    "taken@example.com",
		Password: "secret123",
	})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Nil(t, result)
}

func TestAuthService_Login_Success(t *testing.T) {
	// Arrange
	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &entity.User{
		ID:       "user-1",
		Name:     "Анна",
		Email:    "anna@example.com",
		Password: string(hashed),
		Role:     entity.RoleStudent,
	}

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", "anna@example.com").Return(user, nil)

	authService := newTestAuthService(t, mockUserRepo)

	// Act
	result, err := authService.Login("anna@example.com", "secret123")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "user-1", result.User.ID)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	user := &entity.User{ID: "user-1", Email: "anna@example.com", Password: string(hashed)}

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", "anna@example.com").Return(user, nil)

	authService := newTestAuthService(t, mockUserRepo)

	result, err := authService.Login("anna@example.com", "wrong")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Nil(t, result)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	authService := newTestAuthService(t, mockUserRepo)

	result, err := authService.Login("ghost@example.com", "secret123")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "Несуществующий email не раскрывается")
	assert.Nil(t, result)
}
