// Package events defines the typed messages published on the event bus for workflow lifecycle
// notifications and flow execution requests.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every flowlink event; consumers filter on the event type metadata.
const Topic = "flowlink.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"
	WorkflowSuspendedEvent EventType = "workflow.suspended"
	WorkflowResumedEvent   EventType = "workflow.resumed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"

	// FlowExecutionRequestedEvent asks a worker to run a flow.
	FlowExecutionRequestedEvent EventType = "flow.execution.requested"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	FlowID     string         `json:"flow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent fills the identity fields shared by every event.
func NewBaseEvent(eventType EventType, workflowID, flowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		FlowID:     flowID,
	}
}

type WorkflowStarted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	InitiatedBy   string `json:"initiated_by,omitempty"`
}

func (w WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Output      any           `json:"output,omitempty"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	FailedStep  string        `json:"failed_step,omitempty"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type WorkflowSuspended struct {
	BaseEvent

	StepID   string `json:"step_id,omitempty"`
	StepName string `json:"step_name,omitempty"`
}

func (w WorkflowSuspended) GetType() EventType {
	return WorkflowSuspendedEvent
}

type WorkflowResumed struct {
	BaseEvent

	StepID   string `json:"step_id,omitempty"`
	StepName string `json:"step_name,omitempty"`
}

func (w WorkflowResumed) GetType() EventType {
	return WorkflowResumedEvent
}

type WorkflowCancelled struct {
	BaseEvent

	CancelledBy string `json:"cancelled_by,omitempty"`
}

func (w WorkflowCancelled) GetType() EventType {
	return WorkflowCancelledEvent
}

// FlowExecutionRequested is consumed by workers; Input, when nil, is fetched from the source adapter.
type FlowExecutionRequested struct {
	BaseEvent

	ExecutionID   string `json:"execution_id,omitempty"`
	Input         any    `json:"input,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	InitiatedBy   string `json:"initiated_by,omitempty"`
}

func (f FlowExecutionRequested) GetType() EventType {
	return FlowExecutionRequestedEvent
}
