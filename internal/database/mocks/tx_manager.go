// Package mocks provides mock implementations of the database package interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTxManager is a mock implementation of database.TxManager.
type MockTxManager struct {
	mock.Mock
}

// NewMockTxManager creates a MockTxManager whose expectations are asserted on test cleanup.
func NewMockTxManager(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTxManager {
	m := &MockTxManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// WithTx mocks the WithTx method. A return value of type
// func(context.Context, func(context.Context) error) error is invoked instead of returned.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ret := m.Called(ctx, fn)
	if rf, ok := ret.Get(0).(func(context.Context, func(context.Context) error) error); ok {
		return rf(ctx, fn)
	}
	return ret.Error(0)
}

// Passthrough runs fn without a transaction. Use it as the WithTx return value.
func Passthrough(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
