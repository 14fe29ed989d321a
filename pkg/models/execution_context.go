package models

// ExecutionContext is what adapters and transformations see of the workflow calling them.
type ExecutionContext struct {
	WorkflowID    string         `json:"workflow_id"`
	FlowID        string         `json:"flow_id"`
	ExecutionID   string         `json:"execution_id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	StepID        string         `json:"step_id,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}
