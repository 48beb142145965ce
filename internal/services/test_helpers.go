package services

import (
	"context"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
)

// MockUserRepository implements UserRepository and LockoutRepository for testing
type MockUserRepository struct {
	GetByIDFunc              func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc           func(ctx context.Context, email string) (*models.User, error)
	CreateFunc               func(ctx context.Context, user *models.User) (*models.User, error)
	IncrementFailedLoginFunc func(ctx context.Context, id string) (int, error)
	ResetFailedLoginFunc     func(ctx context.Context, id string) error
	SetLockedUntilFunc       func(ctx context.Context, id string, until time.Time) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) IncrementFailedLogin(ctx context.Context, id string) (int, error) {
	if m.IncrementFailedLoginFunc != nil {
		return m.IncrementFailedLoginFunc(ctx, id)
	}
	return 0, models.ErrInternalServer
}

func (m *MockUserRepository) ResetFailedLogin(ctx context.Context, id string) error {
	if m.ResetFailedLoginFunc != nil {
		return m.ResetFailedLoginFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	if m.SetLockedUntilFunc != nil {
		return m.SetLockedUntilFunc(ctx, id, until)
	}
	return nil
}

// NewTestUser creates a user with a known bcrypt hash for login tests
func NewTestUser(id, email, passwordHash string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "Test User",
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
