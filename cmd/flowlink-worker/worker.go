package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowlink/pkg/eventbus"
	"github.com/dukex/flowlink/pkg/events"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/dukex/flowlink/pkg/schedule"
	"github.com/dukex/flowlink/pkg/services"
	"github.com/dukex/flowlink/pkg/workflow"
)

const scheduledBy = "scheduler"

type Worker struct {
	id           string
	flows        *services.FlowExecution
	orchestrator *workflow.Orchestrator
	workflows    persistence.WorkflowRepository
	eventBus     eventbus.EventBus
	scheduler    *schedule.Scheduler
	logger       *slog.Logger
}

func NewWorker(
	id string,
	flows *services.FlowExecution,
	orchestrator *workflow.Orchestrator,
	workflows persistence.WorkflowRepository,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	w := &Worker{
		id:           id,
		flows:        flows,
		orchestrator: orchestrator,
		workflows:    workflows,
		eventBus:     eventBus,
		logger:       logger.With("module", "flowlink-worker", "worker_id", id),
	}

	w.scheduler = schedule.New(w.trigger, logger)

	return w
}

// Start subscribes to execution requests, optionally recovers interrupted workflows and starts
// the scheduler. It returns once everything is running.
func (w *Worker) Start(ctx context.Context, recoverInProgress bool) error {
	w.logger.InfoContext(ctx, "Starting worker")

	err := w.eventBus.Handle(events.FlowExecutionRequestedEvent, w.handleExecutionRequested)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if recoverInProgress {
		w.recoverInterrupted(ctx)
	}

	flows, err := w.flows.Flows(ctx)
	if err != nil {
		return err
	}

	err = w.scheduler.Sync(flows)
	if err != nil {
		return fmt.Errorf("failed to schedule flows: %w", err)
	}

	w.scheduler.Start()

	w.logger.InfoContext(ctx, "Worker started successfully", "scheduled_flows", len(w.scheduler.FlowIDs()))

	return nil
}

// Stop halts the scheduler and waits for running workflows or ctx.
func (w *Worker) Stop(ctx context.Context) error {
	err := w.scheduler.Stop(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "Scheduler did not stop in time", "error", err)
	}

	err = w.orchestrator.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to drain running workflows: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker stopped")

	return nil
}

func (w *Worker) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.FlowExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for FlowExecutionRequested")

		return nil
	}

	logger := w.logger.With(
		"flow_id", requested.FlowID,
		"event_id", requested.ID,
		"correlation_id", requested.CorrelationID,
	)
	logger.InfoContext(ctx, "Processing flow execution request")

	_, err := w.flows.ExecuteAsync(ctx, services.ExecuteFlowRequest{
		FlowID:        requested.FlowID,
		ExecutionID:   requested.ExecutionID,
		Input:         requested.Input,
		CorrelationID: requested.CorrelationID,
		InitiatedBy:   requested.InitiatedBy,
	})

	return w.dropRejected(ctx, logger, err)
}

func (w *Worker) trigger(ctx context.Context, flowID string) error {
	_, err := w.flows.ExecuteAsync(ctx, services.ExecuteFlowRequest{
		FlowID:      flowID,
		InitiatedBy: scheduledBy,
	})

	return w.dropRejected(ctx, w.logger.With("flow_id", flowID), err)
}

// dropRejected logs requests that can never succeed and swallows their error so the bus does not
// redeliver them.
func (w *Worker) dropRejected(ctx context.Context, logger *slog.Logger, err error) error {
	if err == nil {
		return nil
	}

	if services.IsValidationError(err) || services.IsConflictError(err) || services.IsNotFoundError(err) ||
		errors.Is(err, services.ErrSourceFetch) {
		logger.WarnContext(ctx, "Flow execution request rejected", "error", err)

		return nil
	}

	logger.ErrorContext(ctx, "Failed to execute flow", "error", err)

	return err
}

// recoverInterrupted resumes workflows a previous process left IN_PROGRESS. Each one is suspended first so
// the usual resume path, which counts the interrupted step as a retry, takes over.
func (w *Worker) recoverInterrupted(ctx context.Context) {
	interrupted, err := w.workflows.FindByState(ctx, models.WorkflowStateInProgress)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to list interrupted workflows", "error", err)

		return
	}

	recovered := 0

	for _, wc := range interrupted {
		if !w.orchestrator.Suspend(ctx, wc.WorkflowID) || !w.orchestrator.Resume(ctx, wc.WorkflowID) {
			w.logger.WarnContext(ctx, "Could not recover workflow", "workflow_id", wc.WorkflowID)

			continue
		}

		recovered++
	}

	w.logger.InfoContext(ctx, "Recovered interrupted workflows", "count", recovered, "found", len(interrupted))
}
