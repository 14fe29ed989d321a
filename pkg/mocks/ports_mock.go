package mocks

import (
	"context"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockAdapterExecutionPort is a mock implementation of protocol.AdapterExecutionPort interface.
type MockAdapterExecutionPort struct {
	mock.Mock
}

func (m *MockAdapterExecutionPort) Fetch(ctx context.Context, adapterID string, ectx models.ExecutionContext) (any, error) {
	args := m.Called(ctx, adapterID, ectx)

	return args.Get(0), args.Error(1)
}

func (m *MockAdapterExecutionPort) Send(ctx context.Context, adapterID string, payload any, ectx models.ExecutionContext) error {
	args := m.Called(ctx, adapterID, payload, ectx)

	return args.Error(0)
}

func (m *MockAdapterExecutionPort) IsReady(ctx context.Context, adapterID string) bool {
	args := m.Called(ctx, adapterID)

	return args.Bool(0)
}

// MockTransformationPort is a mock implementation of protocol.TransformationPort interface.
type MockTransformationPort struct {
	mock.Mock
}

func (m *MockTransformationPort) Apply(ctx context.Context, flowID string, payload any) (any, error) {
	args := m.Called(ctx, flowID, payload)

	return args.Get(0), args.Error(1)
}

// MockAdapter is a mock implementation of protocol.Adapter interface.
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Fetch(ctx context.Context, ectx models.ExecutionContext) (any, error) {
	args := m.Called(ctx, ectx)

	return args.Get(0), args.Error(1)
}

func (m *MockAdapter) Send(ctx context.Context, payload any, ectx models.ExecutionContext) error {
	args := m.Called(ctx, payload, ectx)

	return args.Error(0)
}

func (m *MockAdapter) Ready(ctx context.Context) bool {
	args := m.Called(ctx)

	return args.Bool(0)
}

func (m *MockAdapter) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
