package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowlink/pkg/eventbus"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/otelhelper"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/dukex/flowlink/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config carries the collaborators of an Orchestrator. Flows, Workflows and Adapters are required.
type Config struct {
	Flows          protocol.FlowDefinitionPort
	Workflows      persistence.WorkflowRepository
	Events         persistence.WorkflowEventRepository
	Adapters       protocol.AdapterExecutionPort
	Transformation protocol.TransformationPort
	Publisher      eventbus.EventPublisher
	Registry       *Registry
	Pool           *Pool
	RetryPolicy    *RetryPolicy
	Tracer         trace.Tracer
	Logger         *slog.Logger
}

// ExecuteRequest describes one run of a flow.
type ExecuteRequest struct {
	FlowID        string
	ExecutionID   string
	Input         any
	CorrelationID string
	InitiatedBy   string
}

// Orchestrator drives workflow runs and exposes their control surface.
type Orchestrator struct {
	flows     protocol.FlowDefinitionPort
	workflows persistence.WorkflowRepository
	executor  *StepExecutor
	recorder  *Recorder
	registry  *Registry
	pool      *Pool
	retry     RetryPolicy
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Flows == nil || cfg.Workflows == nil || cfg.Adapters == nil {
		return nil, fmt.Errorf("%w: flows, workflows and adapters are required", ErrMissingDependency)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("flowlink/workflow")
	}

	executor, err := NewStepExecutor(cfg.Adapters, cfg.Transformation, logger)
	if err != nil {
		return nil, err
	}

	executor.WithTracer(tracer)

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry(cfg.Workflows)
	}

	pool := cfg.Pool
	if pool == nil {
		pool = NewPool(DefaultPoolSize, logger)
	}

	retry := DefaultRetryPolicy()
	if cfg.RetryPolicy != nil {
		retry = *cfg.RetryPolicy
	}

	return &Orchestrator{
		flows:     cfg.Flows,
		workflows: cfg.Workflows,
		executor:  executor,
		recorder:  NewRecorder(cfg.Events, cfg.Publisher, logger),
		registry:  registry,
		pool:      pool,
		retry:     retry,
		tracer:    tracer,
		logger:    logger.With("module", "workflow_orchestrator"),
	}, nil
}

// Registry returns the cache of running workflows.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Execute runs the flow named by req to a stop and returns the workflow. Failures of the flow
// itself are reported through the returned workflow's state; the error is reserved for invalid
// requests.
func (o *Orchestrator) Execute(ctx context.Context, req ExecuteRequest) (*models.WorkflowContext, error) {
	if req.FlowID == "" {
		return nil, ErrFlowIDRequired
	}

	flow, err := o.flows.FindByID(ctx, req.FlowID)
	if err == nil && flow == nil {
		err = persistence.ErrFlowNotFound
	}

	if err != nil {
		wc := o.newContext(req.FlowID, req)

		return o.failPlan(ctx, wc, fmt.Errorf("failed to resolve flow %s: %w", req.FlowID, err)), nil
	}

	return o.ExecuteFlow(ctx, flow, req)
}

// ExecuteFlow is Execute with an already resolved definition.
func (o *Orchestrator) ExecuteFlow(ctx context.Context, flow *models.FlowDefinition, req ExecuteRequest) (*models.WorkflowContext, error) {
	if flow == nil {
		return nil, ErrNilFlow
	}

	wc := o.newContext(flow.ID, req)

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, wc.WorkflowID),
		attribute.String(otelhelper.FlowIDKey, wc.FlowID),
		attribute.String(otelhelper.ExecutionIDKey, wc.ExecutionID),
	)
	defer span.End()

	steps, err := BuildPlan(flow)
	if err != nil {
		otelhelper.SetError(span, err)

		return o.failPlan(ctx, wc, err), nil
	}

	wc.Steps = steps

	e := o.registry.Track(wc)

	e.drive.Lock()
	defer e.drive.Unlock()

	e.mu.Lock()
	o.persist(ctx, wc)
	o.recorder.Record(ctx, wc, models.WorkflowEventStarted, nil, "Workflow started for flow "+flow.ID)

	err = transition(ctx, wc, triggerStart)
	if err != nil {
		e.mu.Unlock()

		return nil, err
	}

	o.persist(ctx, wc)
	gen := e.generation
	e.mu.Unlock()

	o.logger.InfoContext(ctx, "Workflow started",
		"workflow_id", wc.WorkflowID,
		"flow_id", wc.FlowID,
		"steps", len(steps),
	)

	o.runSteps(ctx, e, gen, 0, req.Input)

	result := e.Snapshot()
	span.SetAttributes(attribute.String(otelhelper.WorkflowStateKey, string(result.State)))

	return result, nil
}

// ExecuteAsync schedules Execute on the worker pool.
func (o *Orchestrator) ExecuteAsync(ctx context.Context, req ExecuteRequest) *Future {
	future := newFuture()

	err := o.pool.Go(ctx, func(ctx context.Context) {
		var (
			wc  *models.WorkflowContext
			err error
		)

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("workflow execution panicked: %v", r)
			}

			future.resolve(wc, err)
		}()

		wc, err = o.Execute(ctx, req)
	})
	if err != nil {
		future.resolve(nil, err)
	}

	return future
}

// Cancel stops an IN_PROGRESS or SUSPENDED workflow. A step already running finishes first.
func (o *Orchestrator) Cancel(ctx context.Context, workflowID string) bool {
	return o.CancelBy(ctx, workflowID, "")
}

// CancelBy is Cancel recording who asked for it.
func (o *Orchestrator) CancelBy(ctx context.Context, workflowID, userID string) bool {
	e, err := o.registry.Load(ctx, workflowID)
	if err != nil {
		o.logLookupFailure(ctx, "cancel", workflowID, err)

		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wc := e.wc
	if !canTransition(ctx, wc, triggerCancel) {
		return false
	}

	if err := transition(ctx, wc, triggerCancel); err != nil {
		return false
	}

	if userID != "" {
		wc.SetMetadata(models.MetadataCancelledBy, userID)
	}

	o.persist(ctx, wc)
	o.recorder.Record(ctx, wc, models.WorkflowEventCancelled, wc.Current(), "Workflow cancelled")
	o.registry.Evict(workflowID)

	o.logger.InfoContext(ctx, "Workflow cancelled", "workflow_id", workflowID)

	return true
}

// Suspend pauses an IN_PROGRESS workflow before its next step.
func (o *Orchestrator) Suspend(ctx context.Context, workflowID string) bool {
	e, err := o.registry.Load(ctx, workflowID)
	if err != nil {
		o.logLookupFailure(ctx, "suspend", workflowID, err)

		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wc := e.wc
	if !canTransition(ctx, wc, triggerSuspend) {
		return false
	}

	if err := transition(ctx, wc, triggerSuspend); err != nil {
		return false
	}

	current := wc.Current()
	if current != nil {
		wc.SetMetadata(models.MetadataSuspendedAtStep, current.StepID)
	}

	wc.SetMetadata(models.MetadataSuspendedAt, time.Now().UTC().Format(time.RFC3339Nano))

	if last := wc.LastCompletedStep(); last >= 0 {
		wc.SetVariable(models.VariableSuspendedOutput, models.CloneValue(wc.Steps[last].OutputData))
	}

	o.persist(ctx, wc)
	o.recorder.Record(ctx, wc, models.WorkflowEventSuspended, current, "Workflow suspended")

	o.logger.InfoContext(ctx, "Workflow suspended", "workflow_id", workflowID)

	return true
}

// Resume continues a SUSPENDED workflow, loading it from the repository when this process does not
// know it. The continuation runs on the worker pool; Resume returns once it is scheduled.
func (o *Orchestrator) Resume(ctx context.Context, workflowID string) bool {
	if o.pool.Closed() {
		return false
	}

	e, err := o.registry.Load(ctx, workflowID)
	if err != nil {
		o.logLookupFailure(ctx, "resume", workflowID, err)

		return false
	}

	e.mu.Lock()

	wc := e.wc
	if !canTransition(ctx, wc, triggerResume) {
		e.mu.Unlock()

		return false
	}

	if err := transition(ctx, wc, triggerResume); err != nil {
		e.mu.Unlock()

		return false
	}

	e.generation++
	gen := e.generation

	o.persist(ctx, wc)
	o.recorder.Record(ctx, wc, models.WorkflowEventResumed, wc.Current(), "Workflow resumed")
	e.mu.Unlock()

	o.logger.InfoContext(ctx, "Workflow resumed", "workflow_id", workflowID)

	err = o.pool.Go(ctx, func(ctx context.Context) {
		o.continueRun(ctx, e, gen)
	})
	if err != nil {
		e.mu.Lock()
		o.failResume(ctx, e, err)
		e.mu.Unlock()

		return false
	}

	return true
}

// GetStatus returns a snapshot of the workflow, from this process when it runs here.
func (o *Orchestrator) GetStatus(ctx context.Context, workflowID string) (*models.WorkflowContext, error) {
	if e, ok := o.registry.Get(workflowID); ok {
		return e.Snapshot(), nil
	}

	wc, err := o.workflows.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return wc, nil
}

// HandleError applies the retry policy to the step at stepIndex after err. The step is marked RETRY
// while its budget lasts; after that the workflow fails and records the step name.
func (o *Orchestrator) HandleError(ctx context.Context, wc *models.WorkflowContext, stepIndex int, err error) *models.WorkflowContext {
	if stepIndex < 0 || stepIndex >= len(wc.Steps) {
		return wc
	}

	step := &wc.Steps[stepIndex]

	// Steps of a finished workflow end FAILED with their retry budget untouched.
	if wc.State.IsTerminal() {
		failStep(step, err)

		return wc
	}

	if o.retry.markFailed(step, err) {
		return wc
	}

	if wc.State != models.WorkflowStateInProgress {
		return wc
	}

	wc.SetMetadata(models.MetadataFailedStep, step.StepName)
	wc.SetMetadata(models.MetadataError, step.ErrorMessage)

	if terr := transition(ctx, wc, triggerFail); terr != nil {
		o.logger.ErrorContext(ctx, "Failed to fail workflow", "workflow_id", wc.WorkflowID, "error", terr)
	}

	return wc
}

// Wait blocks until every asynchronous execution and resume scheduled so far has returned.
func (o *Orchestrator) Wait() {
	o.pool.Wait()
}

// Shutdown stops accepting asynchronous work and waits for running work or ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.pool.Close(ctx)
}

// runSteps executes the plan from index start with input as the first step's input. It returns when
// the plan is done, a step failed for good, or the workflow stopped being driven by gen.
func (o *Orchestrator) runSteps(ctx context.Context, e *Entry, gen uint64, start int, input any) {
	for i := start; ; {
		e.mu.Lock()

		if !e.driving(gen) {
			e.mu.Unlock()

			return
		}

		wc := e.wc

		if i >= len(wc.Steps) {
			o.complete(ctx, wc, input)
			e.mu.Unlock()

			return
		}

		index := i
		wc.CurrentStep = &index

		step := &wc.Steps[i]
		step.InputData = models.CloneValue(input)
		step.Status = models.StepStatusInProgress
		started := time.Now().UTC()
		step.StartTime = &started
		step.EndTime = nil

		o.persist(ctx, wc)

		run := step.Clone()
		ectx := executionContext(wc, step)
		e.mu.Unlock()

		result := o.executor.Run(ctx, run, ectx)

		e.mu.Lock()
		wc = e.wc
		wc.Steps[i] = result

		if result.Status == models.StepStatusCompleted {
			o.persist(ctx, wc)
			e.mu.Unlock()

			input = result.OutputData
			i++

			continue
		}

		o.HandleError(ctx, wc, i, errors.New(result.ErrorMessage))
		o.persist(ctx, wc)

		if wc.State == models.WorkflowStateFailed {
			o.recordFailure(ctx, wc)
			e.mu.Unlock()

			return
		}

		retry := wc.Steps[i].Status == models.StepStatusRetry && e.driving(gen)
		e.mu.Unlock()

		if !retry {
			return
		}

		o.backoff(ctx)
	}
}

func (o *Orchestrator) complete(ctx context.Context, wc *models.WorkflowContext, output any) {
	wc.SetVariable(models.VariableOutputData, models.CloneValue(output))

	err := transition(ctx, wc, triggerComplete)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to complete workflow", "workflow_id", wc.WorkflowID, "error", err)

		return
	}

	o.persist(ctx, wc)
	o.recorder.Record(ctx, wc, models.WorkflowEventCompleted, nil, "Workflow completed")
	o.registry.Evict(wc.WorkflowID)

	o.logger.InfoContext(ctx, "Workflow completed", "workflow_id", wc.WorkflowID, "flow_id", wc.FlowID)
}

func (o *Orchestrator) recordFailure(ctx context.Context, wc *models.WorkflowContext) {
	description := wc.Metadata[models.MetadataError]
	if description == "" {
		description = wc.Metadata[models.MetadataResumeError]
	}

	var failed *models.WorkflowStep
	if i := wc.StepIndexByName(wc.Metadata[models.MetadataFailedStep]); i >= 0 {
		failed = &wc.Steps[i]
	}

	o.recorder.Record(ctx, wc, models.WorkflowEventFailed, failed, description)
	o.registry.Evict(wc.WorkflowID)

	o.logger.ErrorContext(ctx, "Workflow failed",
		"workflow_id", wc.WorkflowID,
		"flow_id", wc.FlowID,
		"failed_step", wc.Metadata[models.MetadataFailedStep],
		"error", description,
	)
}

// failPlan fails a workflow that never started.
func (o *Orchestrator) failPlan(ctx context.Context, wc *models.WorkflowContext, err error) *models.WorkflowContext {
	wc.SetMetadata(models.MetadataError, err.Error())

	if terr := transition(ctx, wc, triggerFail); terr != nil {
		o.logger.ErrorContext(ctx, "Failed to fail workflow", "workflow_id", wc.WorkflowID, "error", terr)
	}

	o.persist(ctx, wc)
	o.recordFailure(ctx, wc)

	return wc.Clone()
}

func (o *Orchestrator) newContext(flowID string, req ExecuteRequest) *models.WorkflowContext {
	workflowID := uuid.NewString()

	executionID := req.ExecutionID
	if executionID == "" {
		executionID = workflowID
	}

	wc := models.NewWorkflowContext(workflowID, flowID, executionID)
	wc.CorrelationID = req.CorrelationID
	wc.InitiatedBy = req.InitiatedBy
	wc.SetVariable(models.VariableInputData, models.CloneValue(req.Input))

	if req.InitiatedBy != "" {
		wc.SetMetadata(models.MetadataInitiatedBy, req.InitiatedBy)
	}

	return wc
}

// persist saves wc. A failed save is logged and noted on the workflow; the run goes on.
func (o *Orchestrator) persist(ctx context.Context, wc *models.WorkflowContext) {
	_, err := o.workflows.Save(ctx, wc)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to persist workflow",
			"workflow_id", wc.WorkflowID,
			"state", wc.State,
			"error", err,
		)
		wc.SetMetadata(models.MetadataPersistenceError, err.Error())
	}
}

func (o *Orchestrator) backoff(ctx context.Context) {
	if o.retry.Backoff <= 0 {
		return
	}

	timer := time.NewTimer(o.retry.Backoff)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) logLookupFailure(ctx context.Context, op, workflowID string, err error) {
	if persistence.IsWorkflowNotFound(err) {
		o.logger.DebugContext(ctx, "Workflow not found", "op", op, "workflow_id", workflowID)

		return
	}

	o.logger.ErrorContext(ctx, "Failed to load workflow", "op", op, "workflow_id", workflowID, "error", err)
}

func executionContext(wc *models.WorkflowContext, step *models.WorkflowStep) models.ExecutionContext {
	variables := make(map[string]any, len(step.StepVariables))
	for k, v := range step.StepVariables {
		variables[k] = models.CloneValue(v)
	}

	return models.ExecutionContext{
		WorkflowID:    wc.WorkflowID,
		FlowID:        wc.FlowID,
		ExecutionID:   wc.ExecutionID,
		CorrelationID: wc.CorrelationID,
		StepID:        step.StepID,
		Variables:     variables,
	}
}
