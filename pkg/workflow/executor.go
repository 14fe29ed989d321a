package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/otelhelper"
	"github.com/dukex/flowlink/pkg/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StepHandler runs one step kind and returns the step output.
type StepHandler func(ctx context.Context, step *models.WorkflowStep, ectx models.ExecutionContext) (any, error)

var errNoAdapterPort = errors.New("no adapter execution port configured")

// StepExecutor runs single steps. It never decides about retries.
type StepExecutor struct {
	handlers       map[models.StepType]StepHandler
	adapters       protocol.AdapterExecutionPort
	transformation protocol.TransformationPort
	tracer         trace.Tracer
	logger         *slog.Logger
}

// NewStepExecutor wires one handler per step type. transformation may be nil, in which case
// TRANSFORMATION steps pass their input through unchanged.
func NewStepExecutor(adapters protocol.AdapterExecutionPort, transformation protocol.TransformationPort, logger *slog.Logger) (*StepExecutor, error) {
	e := &StepExecutor{
		adapters:       adapters,
		transformation: transformation,
		tracer:         otel.Tracer("flowlink/workflow"),
		logger:         logger.With("module", "step_executor"),
	}

	e.handlers = map[models.StepType]StepHandler{
		models.StepTypeSourceAdapter:  e.runSource,
		models.StepTypeTargetAdapter:  e.runTarget,
		models.StepTypeTransformation: e.runTransformation,
		models.StepTypeValidation:     e.runValidation,
	}

	for _, stepType := range models.StepTypes {
		if e.handlers[stepType] == nil {
			return nil, fmt.Errorf("%w: no handler for step type %s", ErrMissingDependency, stepType)
		}
	}

	return e, nil
}

// WithTracer replaces the tracer used for step spans.
func (e *StepExecutor) WithTracer(tracer trace.Tracer) *StepExecutor {
	e.tracer = tracer

	return e
}

// Run executes step and returns it updated: COMPLETED with OutputData, or FAILED with ErrorMessage.
func (e *StepExecutor) Run(ctx context.Context, step models.WorkflowStep, ectx models.ExecutionContext) models.WorkflowStep {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.step",
		attribute.String(otelhelper.WorkflowIDKey, ectx.WorkflowID),
		attribute.String(otelhelper.StepIDKey, step.StepID),
		attribute.String(otelhelper.StepNameKey, step.StepName),
		attribute.String(otelhelper.StepTypeKey, string(step.StepType)),
		attribute.Int(otelhelper.RetryCountKey, step.RetryCount),
	)
	defer span.End()

	start := time.Now().UTC()
	step.Status = models.StepStatusInProgress
	step.StartTime = &start
	step.EndTime = nil
	step.ErrorMessage = ""

	output, err := e.dispatch(ctx, &step, ectx)

	end := time.Now().UTC()
	step.EndTime = &end

	if err != nil {
		otelhelper.SetError(span, err)
		e.logger.WarnContext(ctx, "Step failed",
			"workflow_id", ectx.WorkflowID,
			"step_name", step.StepName,
			"retry_count", step.RetryCount,
			"error", err,
		)

		step.Status = models.StepStatusFailed
		step.ErrorMessage = err.Error()

		return step
	}

	step.Status = models.StepStatusCompleted
	step.OutputData = output

	return step
}

func (e *StepExecutor) dispatch(ctx context.Context, step *models.WorkflowStep, ectx models.ExecutionContext) (output any, err error) {
	handler, ok := e.handlers[step.StepType]
	if !ok {
		return nil, fmt.Errorf("unsupported step type %q", step.StepType)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", step.StepName, r)
		}
	}()

	return handler(ctx, step, ectx)
}

// runSource is bookkeeping: the payload was fetched before the workflow started.
func (e *StepExecutor) runSource(_ context.Context, step *models.WorkflowStep, _ models.ExecutionContext) (any, error) {
	return models.CloneValue(step.InputData), nil
}

func (e *StepExecutor) runTarget(ctx context.Context, step *models.WorkflowStep, ectx models.ExecutionContext) (any, error) {
	if e.adapters == nil {
		return nil, errNoAdapterPort
	}

	adapterID := step.AdapterID()
	if adapterID == "" {
		return nil, fmt.Errorf("step %s has no target adapter id", step.StepName)
	}

	err := e.adapters.Send(ctx, adapterID, step.InputData, ectx)
	if err != nil {
		return nil, fmt.Errorf("send to adapter %s: %w", adapterID, err)
	}

	return models.CloneValue(step.InputData), nil
}

func (e *StepExecutor) runTransformation(ctx context.Context, step *models.WorkflowStep, ectx models.ExecutionContext) (any, error) {
	if e.transformation == nil {
		e.logger.DebugContext(ctx, "No transformation port configured, passing payload through", "flow_id", ectx.FlowID)

		return models.CloneValue(step.InputData), nil
	}

	output, err := e.transformation.Apply(ctx, ectx.FlowID, step.InputData)
	if err != nil {
		return nil, fmt.Errorf("transform flow %s: %w", ectx.FlowID, err)
	}

	return output, nil
}

// runValidation is a pass-through until validation rules exist.
func (e *StepExecutor) runValidation(_ context.Context, step *models.WorkflowStep, _ models.ExecutionContext) (any, error) {
	return models.CloneValue(step.InputData), nil
}
