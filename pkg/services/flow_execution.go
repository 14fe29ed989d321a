package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/dukex/flowlink/pkg/protocol"
	"github.com/dukex/flowlink/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FlowExecution is the entry point callers use to run flows and control their workflows.
type FlowExecution struct {
	orchestrator *workflow.Orchestrator
	flows        persistence.FlowDefinitionRepository
	events       persistence.WorkflowEventRepository
	adapters     protocol.AdapterExecutionPort
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewFlowExecution creates a new flow execution service.
func NewFlowExecution(
	orchestrator *workflow.Orchestrator,
	flows persistence.FlowDefinitionRepository,
	events persistence.WorkflowEventRepository,
	adapters protocol.AdapterExecutionPort,
	logger *slog.Logger,
) *FlowExecution {
	return &FlowExecution{
		orchestrator: orchestrator,
		flows:        flows,
		events:       events,
		adapters:     adapters,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger.With("module", "flow_execution_service"),
	}
}

// ExecuteFlowRequest asks for one run of a flow. When Input is nil the source adapter is fetched.
type ExecuteFlowRequest struct {
	FlowID        string `validate:"required"`
	ExecutionID   string `validate:"omitempty,max=128"`
	Input         any
	CorrelationID string `validate:"omitempty,max=128"`
	InitiatedBy   string `validate:"omitempty,max=128"`
}

// CancelRequest asks for a workflow to be cancelled on behalf of UserID.
type CancelRequest struct {
	WorkflowID string `validate:"required"`
	UserID     string
}

// Execute runs the flow and returns the workflow once it stops. The workflow carries the outcome;
// errors mean the run never started.
func (s *FlowExecution) Execute(ctx context.Context, req ExecuteFlowRequest) (*models.WorkflowContext, error) {
	flow, wreq, err := s.prepare(ctx, "execute", req)
	if err != nil {
		return nil, err
	}

	wc, err := s.orchestrator.ExecuteFlow(ctx, flow, wreq)
	if err != nil {
		return nil, newServiceError("execute", CodeInternal, err)
	}

	s.logger.InfoContext(ctx, "Flow executed",
		"flow_id", flow.ID,
		"workflow_id", wc.WorkflowID,
		"state", wc.State,
	)

	return wc, nil
}

// ExecuteAsync checks the request and fetches the source like Execute, then schedules the run on
// the worker pool.
func (s *FlowExecution) ExecuteAsync(ctx context.Context, req ExecuteFlowRequest) (*workflow.Future, error) {
	_, wreq, err := s.prepare(ctx, "execute_async", req)
	if err != nil {
		return nil, err
	}

	return s.orchestrator.ExecuteAsync(ctx, wreq), nil
}

// GetStatus returns a snapshot of the workflow.
func (s *FlowExecution) GetStatus(ctx context.Context, workflowID string) (*models.WorkflowContext, error) {
	if workflowID == "" {
		return nil, NewValidationError("get_status", "workflow id is required", nil)
	}

	wc, err := s.orchestrator.GetStatus(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", workflowID, err)
	}

	return wc, nil
}

// Cancel reports whether the workflow was cancelled.
func (s *FlowExecution) Cancel(ctx context.Context, req CancelRequest) bool {
	if err := s.validate.Struct(req); err != nil {
		return false
	}

	return s.orchestrator.CancelBy(ctx, req.WorkflowID, req.UserID)
}

// Suspend reports whether the workflow was suspended.
func (s *FlowExecution) Suspend(ctx context.Context, workflowID string) bool {
	if workflowID == "" {
		return false
	}

	return s.orchestrator.Suspend(ctx, workflowID)
}

// Resume reports whether a continuation of the workflow was scheduled.
func (s *FlowExecution) Resume(ctx context.Context, workflowID string) bool {
	if workflowID == "" {
		return false
	}

	return s.orchestrator.Resume(ctx, workflowID)
}

// Events returns the audit trail of a workflow, oldest first.
func (s *FlowExecution) Events(ctx context.Context, workflowID string) ([]*models.WorkflowEvent, error) {
	if workflowID == "" {
		return nil, NewValidationError("events", "workflow id is required", nil)
	}

	if s.events == nil {
		return []*models.WorkflowEvent{}, nil
	}

	events, err := s.events.FindByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events of workflow %s: %w", workflowID, err)
	}

	return events, nil
}

// Flows returns every stored flow definition.
func (s *FlowExecution) Flows(ctx context.Context) ([]*models.FlowDefinition, error) {
	flows, err := s.flows.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

func (s *FlowExecution) prepare(ctx context.Context, op string, req ExecuteFlowRequest) (*models.FlowDefinition, workflow.ExecuteRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, workflow.ExecuteRequest{}, NewValidationError(op, err.Error(), err)
	}

	flow, err := s.flows.FindByID(ctx, req.FlowID)
	if err == nil && flow == nil {
		err = persistence.ErrFlowNotFound
	}

	if err != nil {
		code := CodeInternal
		if persistence.IsFlowNotFound(err) {
			code = CodeFlowNotFound
		}

		return nil, workflow.ExecuteRequest{}, newServiceError(op, code, fmt.Errorf("flow %s: %w", req.FlowID, err))
	}

	if !flow.Enabled {
		return nil, workflow.ExecuteRequest{}, newServiceError(op, CodeFlowDisabled, fmt.Errorf("%w: %s", ErrFlowDisabled, flow.ID))
	}

	wreq := workflow.ExecuteRequest{
		FlowID:        flow.ID,
		ExecutionID:   req.ExecutionID,
		Input:         req.Input,
		CorrelationID: req.CorrelationID,
		InitiatedBy:   req.InitiatedBy,
	}

	if wreq.ExecutionID == "" {
		wreq.ExecutionID = uuid.NewString()
	}

	if wreq.Input == nil {
		input, err := s.adapters.Fetch(ctx, flow.SourceAdapterID, models.ExecutionContext{
			FlowID:        flow.ID,
			ExecutionID:   wreq.ExecutionID,
			CorrelationID: wreq.CorrelationID,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to fetch flow input",
				"flow_id", flow.ID,
				"adapter_id", flow.SourceAdapterID,
				"error", err,
			)

			return nil, workflow.ExecuteRequest{}, newServiceError(op, CodeSourceFetch,
				fmt.Errorf("%w %s: %w", ErrSourceFetch, flow.SourceAdapterID, err))
		}

		wreq.Input = input
	}

	return flow, wreq, nil
}
