package mocks

import (
	"context"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Save(ctx context.Context, wc *models.WorkflowContext) (*models.WorkflowContext, error) {
	args := m.Called(ctx, wc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowContext), args.Error(1)
}

func (m *MockWorkflowRepository) FindByID(ctx context.Context, workflowID string) (*models.WorkflowContext, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowContext), args.Error(1)
}

func (m *MockWorkflowRepository) FindByState(ctx context.Context, state models.WorkflowState) ([]*models.WorkflowContext, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowContext), args.Error(1)
}

// MockWorkflowEventRepository is a mock implementation of persistence.WorkflowEventRepository interface.
type MockWorkflowEventRepository struct {
	mock.Mock
}

func (m *MockWorkflowEventRepository) Save(ctx context.Context, event *models.WorkflowEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *MockWorkflowEventRepository) FindByWorkflowID(ctx context.Context, workflowID string) ([]*models.WorkflowEvent, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowEvent), args.Error(1)
}

// MockFlowDefinitionRepository is a mock implementation of persistence.FlowDefinitionRepository interface.
type MockFlowDefinitionRepository struct {
	mock.Mock
}

func (m *MockFlowDefinitionRepository) FindByID(ctx context.Context, flowID string) (*models.FlowDefinition, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.FlowDefinition), args.Error(1)
}

func (m *MockFlowDefinitionRepository) Save(ctx context.Context, flow *models.FlowDefinition) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockFlowDefinitionRepository) All(ctx context.Context) ([]*models.FlowDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.FlowDefinition), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows *MockWorkflowRepository
	Events    *MockWorkflowEventRepository
	Flows     *MockFlowDefinitionRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows: &MockWorkflowRepository{},
		Events:    &MockWorkflowEventRepository{},
		Flows:     &MockFlowDefinitionRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) WorkflowEventRepository() persistence.WorkflowEventRepository {
	return m.Events
}

func (m *MockPersistence) FlowDefinitionRepository() persistence.FlowDefinitionRepository {
	return m.Flows
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
