// Package mocks provides mock implementations of the newsletter use case interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	idempotencyDomain "github.com/allisson/newsletter/internal/idempotency/domain"
	"github.com/allisson/newsletter/internal/newsletter/domain"
)

// MockUseCase is a mock implementation of UseCase.
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

// Publish mocks the Publish method.
func (m *MockUseCase) Publish(
	ctx context.Context,
	userID uuid.UUID,
	input *domain.PublishInput,
) (*idempotencyDomain.SavedResponse, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idempotencyDomain.SavedResponse), args.Error(1)
}

// Get mocks the Get method.
func (m *MockUseCase) Get(ctx context.Context, issueID uuid.UUID) (*domain.IssueView, error) {
	args := m.Called(ctx, issueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IssueView), args.Error(1)
}

// List mocks the List method.
func (m *MockUseCase) List(ctx context.Context, offset, limit int) ([]*domain.Issue, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Issue), args.Error(1)
}
