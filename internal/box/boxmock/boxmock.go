// Package boxmock contains testify mocks for the box ports.
package boxmock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/potlab/ecx/internal/box"
)

// MockClient is a testify mock of box.Client.
type MockClient struct {
	mock.Mock
}

// NewMockClient creates a new MockClient that asserts its expectations when
// the test finishes.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// StartJob mock.
func (m *MockClient) StartJob(ctx context.Context, req box.StartJobRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// PollJobs mock.
func (m *MockClient) PollJobs(ctx context.Context, runIDs []string) ([]box.JobPayload, error) {
	args := m.Called(ctx, runIDs)
	var payloads []box.JobPayload
	if v := args.Get(0); v != nil {
		payloads = v.([]box.JobPayload)
	}
	return payloads, args.Error(1)
}

// CancelJob mock.
func (m *MockClient) CancelJob(ctx context.Context, runID string) (*box.CancelResult, error) {
	args := m.Called(ctx, runID)
	var res *box.CancelResult
	if v := args.Get(0); v != nil {
		res = v.(*box.CancelResult)
	}
	return res, args.Error(1)
}

// DownloadResult mock.
func (m *MockClient) DownloadResult(ctx context.Context, runID string) (io.ReadCloser, error) {
	args := m.Called(ctx, runID)
	var rc io.ReadCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadCloser)
	}
	return rc, args.Error(1)
}
