// Package protocol defines the ports through which the engine reaches adapters, transformations and
// flow definitions.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/flowlink/pkg/models"
)

// AdapterExecutionPort fetches from and sends to adapters by id.
type AdapterExecutionPort interface {
	Fetch(ctx context.Context, adapterID string, ectx models.ExecutionContext) (any, error)
	Send(ctx context.Context, adapterID string, payload any, ectx models.ExecutionContext) error
	IsReady(ctx context.Context, adapterID string) bool
}

// Adapter is one configured protocol connector.
type Adapter interface {
	Fetch(ctx context.Context, ectx models.ExecutionContext) (any, error)
	Send(ctx context.Context, payload any, ectx models.ExecutionContext) error
	Ready(ctx context.Context) bool
	Close(ctx context.Context) error
}

// AdapterFactory builds adapters of one type from their configuration.
type AdapterFactory interface {
	Create(ctx context.Context, config map[string]any, logger *slog.Logger) (Adapter, error)
	ID() string
}
