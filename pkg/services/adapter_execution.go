package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/protocol"
)

var _ protocol.AdapterExecutionPort = (*AdapterExecution)(nil)

// AdapterExecution guards an adapter execution port with argument checks and logging. It is itself
// an AdapterExecutionPort.
type AdapterExecution struct {
	port   protocol.AdapterExecutionPort
	logger *slog.Logger
}

// NewAdapterExecution creates a new adapter execution service.
func NewAdapterExecution(port protocol.AdapterExecutionPort, logger *slog.Logger) *AdapterExecution {
	return &AdapterExecution{
		port:   port,
		logger: logger.With("module", "adapter_execution_service"),
	}
}

func (a *AdapterExecution) Fetch(ctx context.Context, adapterID string, ectx models.ExecutionContext) (any, error) {
	if adapterID == "" {
		return nil, NewValidationError("fetch", "adapter id is required", nil)
	}

	start := time.Now()

	data, err := a.port.Fetch(ctx, adapterID, ectx)
	if err != nil {
		a.logger.ErrorContext(ctx, "Adapter fetch failed",
			"adapter_id", adapterID,
			"workflow_id", ectx.WorkflowID,
			"duration", time.Since(start),
			"error", err,
		)

		return nil, fmt.Errorf("adapter %s fetch: %w", adapterID, err)
	}

	a.logger.DebugContext(ctx, "Adapter fetch completed",
		"adapter_id", adapterID,
		"workflow_id", ectx.WorkflowID,
		"duration", time.Since(start),
	)

	return data, nil
}

func (a *AdapterExecution) Send(ctx context.Context, adapterID string, payload any, ectx models.ExecutionContext) error {
	if adapterID == "" {
		return NewValidationError("send", "adapter id is required", nil)
	}

	start := time.Now()

	if err := a.port.Send(ctx, adapterID, payload, ectx); err != nil {
		a.logger.ErrorContext(ctx, "Adapter send failed",
			"adapter_id", adapterID,
			"workflow_id", ectx.WorkflowID,
			"step_id", ectx.StepID,
			"duration", time.Since(start),
			"error", err,
		)

		return fmt.Errorf("adapter %s send: %w", adapterID, err)
	}

	a.logger.DebugContext(ctx, "Adapter send completed",
		"adapter_id", adapterID,
		"workflow_id", ectx.WorkflowID,
		"duration", time.Since(start),
	)

	return nil
}

func (a *AdapterExecution) IsReady(ctx context.Context, adapterID string) bool {
	if adapterID == "" {
		return false
	}

	return a.port.IsReady(ctx, adapterID)
}
