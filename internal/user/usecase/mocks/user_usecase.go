// Package mocks provides mock implementations of the user use case interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/newsletter/internal/user/domain"
	"github.com/allisson/newsletter/internal/user/usecase"
)

// MockUseCase is a mock implementation of usecase.UseCase.
type MockUseCase struct {
	mock.Mock
}

// NewMockUseCase creates a MockUseCase that asserts its expectations on test cleanup.
func NewMockUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUseCase {
	m := &MockUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// CreateUser mocks the CreateUser method.
func (m *MockUseCase) CreateUser(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// Authenticate mocks the Authenticate method.
func (m *MockUseCase) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// GetUserByID mocks the GetUserByID method.
func (m *MockUseCase) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

var _ usecase.UseCase = (*MockUseCase)(nil)
