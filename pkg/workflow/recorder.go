package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/flowlink/pkg/eventbus"
	"github.com/dukex/flowlink/pkg/events"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/google/uuid"
)

// EventSource is written into every audit event produced by the engine.
const EventSource = "flowlink-orchestrator"

// Recorder writes audit events and, when a publisher is set, mirrors them on the event bus.
// Failures are logged and never affect the workflow.
type Recorder struct {
	events    persistence.WorkflowEventRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewRecorder(repository persistence.WorkflowEventRepository, publisher eventbus.EventPublisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		events:    repository,
		publisher: publisher,
		logger:    logger.With("module", "workflow_recorder"),
	}
}

// Record appends one event for wc. step may be nil.
func (r *Recorder) Record(ctx context.Context, wc *models.WorkflowContext, eventType models.WorkflowEventType, step *models.WorkflowStep, description string) {
	event := &models.WorkflowEvent{
		ID:          uuid.NewString(),
		WorkflowID:  wc.WorkflowID,
		FlowID:      wc.FlowID,
		EventType:   eventType,
		Description: description,
		UserID:      wc.InitiatedBy,
		Source:      EventSource,
		Timestamp:   time.Now().UTC(),
	}

	if step != nil {
		event.StepID = step.StepID
		event.StepName = step.StepName
	}

	if r.events != nil {
		if err := r.events.Save(ctx, event); err != nil {
			r.logger.ErrorContext(ctx, "Failed to save workflow event",
				"workflow_id", wc.WorkflowID,
				"event_type", eventType,
				"error", err,
			)
		}
	}

	if r.publisher == nil {
		return
	}

	busEvent := toBusEvent(event, wc)
	if busEvent == nil {
		return
	}

	if err := r.publisher.Publish(ctx, wc.WorkflowID, busEvent); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish workflow event",
			"workflow_id", wc.WorkflowID,
			"event_type", eventType,
			"error", err,
		)
	}
}

func toBusEvent(event *models.WorkflowEvent, wc *models.WorkflowContext) eventbus.Event {
	base := events.BaseEvent{
		ID:         event.ID,
		Timestamp:  event.Timestamp,
		WorkflowID: event.WorkflowID,
		FlowID:     event.FlowID,
	}

	var duration time.Duration
	if wc.EndTime != nil {
		duration = wc.EndTime.Sub(wc.StartTime)
	}

	switch event.EventType {
	case models.WorkflowEventStarted:
		base.Type = events.WorkflowStartedEvent

		return events.WorkflowStarted{
			BaseEvent:     base,
			ExecutionID:   wc.ExecutionID,
			CorrelationID: wc.CorrelationID,
			InitiatedBy:   wc.InitiatedBy,
		}
	case models.WorkflowEventCompleted:
		base.Type = events.WorkflowCompletedEvent

		return events.WorkflowCompleted{
			BaseEvent:   base,
			ExecutionID: wc.ExecutionID,
			Output:      models.CloneValue(wc.GlobalVariables[models.VariableOutputData]),
			Duration:    duration,
		}
	case models.WorkflowEventFailed:
		base.Type = events.WorkflowFailedEvent

		return events.WorkflowFailed{
			BaseEvent:   base,
			ExecutionID: wc.ExecutionID,
			Error:       event.Description,
			FailedStep:  wc.Metadata[models.MetadataFailedStep],
			Duration:    duration,
		}
	case models.WorkflowEventSuspended:
		base.Type = events.WorkflowSuspendedEvent

		return events.WorkflowSuspended{BaseEvent: base, StepID: event.StepID, StepName: event.StepName}
	case models.WorkflowEventResumed:
		base.Type = events.WorkflowResumedEvent

		return events.WorkflowResumed{BaseEvent: base, StepID: event.StepID, StepName: event.StepName}
	case models.WorkflowEventCancelled:
		base.Type = events.WorkflowCancelledEvent

		return events.WorkflowCancelled{BaseEvent: base, CancelledBy: wc.Metadata[models.MetadataCancelledBy]}
	default:
		return nil
	}
}
