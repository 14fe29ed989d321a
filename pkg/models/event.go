package models

import "time"

type WorkflowEventType string

const (
	WorkflowEventStarted   WorkflowEventType = "WORKFLOW_STARTED"
	WorkflowEventCompleted WorkflowEventType = "WORKFLOW_COMPLETED"
	WorkflowEventFailed    WorkflowEventType = "WORKFLOW_FAILED"
	WorkflowEventSuspended WorkflowEventType = "WORKFLOW_SUSPENDED"
	WorkflowEventResumed   WorkflowEventType = "WORKFLOW_RESUMED"
	WorkflowEventCancelled WorkflowEventType = "WORKFLOW_CANCELLED"
)

// WorkflowEvent is an immutable audit record of a workflow transition.
type WorkflowEvent struct {
	ID          string            `json:"id"`
	WorkflowID  string            `json:"workflow_id"`
	FlowID      string            `json:"flow_id"`
	EventType   WorkflowEventType `json:"event_type"`
	StepID      string            `json:"step_id,omitempty"`
	StepName    string            `json:"step_name,omitempty"`
	Description string            `json:"description"`
	UserID      string            `json:"user_id,omitempty"`
	Source      string            `json:"source"`
	Timestamp   time.Time         `json:"timestamp"`
}
