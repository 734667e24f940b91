// Package storagemock contains testify mocks for the storage ports.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/potlab/ecx/internal/model"
)

// MockRepository is a testify mock of storage.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a new MockRepository that asserts its expectations
// when the test finishes.
func NewMockRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRepository {
	m := &MockRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// CreateGroup mock.
func (m *MockRepository) CreateGroup(ctx context.Context, g model.RunGroup) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

// AddRunRef mock.
func (m *MockRepository) AddRunRef(ctx context.Context, ref model.RunRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// GetGroup mock.
func (m *MockRepository) GetGroup(ctx context.Context, id string) (*model.RunGroup, error) {
	args := m.Called(ctx, id)
	var g *model.RunGroup
	if v := args.Get(0); v != nil {
		g = v.(*model.RunGroup)
	}
	return g, args.Error(1)
}

// ListGroups mock.
func (m *MockRepository) ListGroups(ctx context.Context) ([]model.RunGroup, error) {
	args := m.Called(ctx)
	var groups []model.RunGroup
	if v := args.Get(0); v != nil {
		groups = v.([]model.RunGroup)
	}
	return groups, args.Error(1)
}

// DeleteGroup mock.
func (m *MockRepository) DeleteGroup(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
