// Package persistence provides the storage abstraction for workflow contexts, audit events and flow
// definitions.
package persistence

import (
	"context"

	"github.com/dukex/flowlink/pkg/models"
)

type WorkflowRepository interface {
	// Save upserts the context and returns the stored version.
	Save(ctx context.Context, wc *models.WorkflowContext) (*models.WorkflowContext, error)
	// FindByID returns ErrWorkflowNotFound when no context has the id.
	FindByID(ctx context.Context, workflowID string) (*models.WorkflowContext, error)
	FindByState(ctx context.Context, state models.WorkflowState) ([]*models.WorkflowContext, error)
}

// WorkflowEventRepository is append-only.
type WorkflowEventRepository interface {
	Save(ctx context.Context, event *models.WorkflowEvent) error
	// FindByWorkflowID returns the events of a workflow ordered by timestamp.
	FindByWorkflowID(ctx context.Context, workflowID string) ([]*models.WorkflowEvent, error)
}

type FlowDefinitionRepository interface {
	// FindByID returns ErrFlowNotFound when no flow has the id.
	FindByID(ctx context.Context, flowID string) (*models.FlowDefinition, error)
	Save(ctx context.Context, flow *models.FlowDefinition) error
	All(ctx context.Context) ([]*models.FlowDefinition, error)
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	WorkflowEventRepository() WorkflowEventRepository
	FlowDefinitionRepository() FlowDefinitionRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
