package protocol

import (
	"context"

	"github.com/dukex/flowlink/pkg/models"
)

// TransformationPort applies a flow's field mappings to a payload.
type TransformationPort interface {
	Apply(ctx context.Context, flowID string, payload any) (any, error)
}

// FlowDefinitionPort resolves flow definitions by id.
type FlowDefinitionPort interface {
	FindByID(ctx context.Context, flowID string) (*models.FlowDefinition, error)
}
