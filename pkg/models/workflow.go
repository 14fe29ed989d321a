// Package models defines the data model of a flow run: workflow contexts, their steps and audit events.
package models

import "time"

// WorkflowState represents the lifecycle state of a workflow run.
type WorkflowState string

const (
	WorkflowStateInitiated  WorkflowState = "INITIATED"
	WorkflowStateInProgress WorkflowState = "IN_PROGRESS"
	WorkflowStateSuspended  WorkflowState = "SUSPENDED"
	WorkflowStateCompleted  WorkflowState = "COMPLETED"
	WorkflowStateFailed     WorkflowState = "FAILED"
	WorkflowStateCancelled  WorkflowState = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible from s.
func (s WorkflowState) IsTerminal() bool {
	return s == WorkflowStateCompleted || s == WorkflowStateFailed || s == WorkflowStateCancelled
}

// Well-known keys of WorkflowContext.GlobalVariables.
const (
	VariableInputData       = "inputData"
	VariableOutputData      = "outputData"
	// VariableSuspendedOutput holds the last completed output at suspension. It is informational:
	// resume derives its input from Steps.
	VariableSuspendedOutput = "suspendedOutput"
)

// Well-known keys of WorkflowContext.Metadata.
const (
	MetadataError            = "error"
	MetadataFailedStep       = "failedStep"
	MetadataResumeError      = "resumeError"
	MetadataSuspendedAtStep  = "suspendedAtStep"
	MetadataSuspendedAt      = "suspendedAt"
	MetadataInitiatedBy      = "initiatedBy"
	MetadataPersistenceError = "persistenceError"
	MetadataCancelledBy      = "cancelledBy"
)

// WorkflowContext is one execution of one flow.
type WorkflowContext struct {
	WorkflowID      string            `json:"workflow_id"`
	FlowID          string            `json:"flow_id"`
	ExecutionID     string            `json:"execution_id"`
	State           WorkflowState     `json:"state"`
	Steps           []WorkflowStep    `json:"steps"`
	CurrentStep     *int              `json:"current_step,omitempty"`
	GlobalVariables map[string]any    `json:"global_variables"`
	Metadata        map[string]string `json:"metadata"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	CorrelationID   string            `json:"correlation_id,omitempty"`
	InitiatedBy     string            `json:"initiated_by,omitempty"`
}

// NewWorkflowContext returns a context in the INITIATED state with initialised maps.
func NewWorkflowContext(workflowID, flowID, executionID string) *WorkflowContext {
	return &WorkflowContext{
		WorkflowID:      workflowID,
		FlowID:          flowID,
		ExecutionID:     executionID,
		State:           WorkflowStateInitiated,
		Steps:           []WorkflowStep{},
		GlobalVariables: make(map[string]any),
		Metadata:        make(map[string]string),
		StartTime:       time.Now().UTC(),
	}
}

// SetMetadata records an annotation, allocating the map when needed.
func (wc *WorkflowContext) SetMetadata(key, value string) {
	if wc.Metadata == nil {
		wc.Metadata = make(map[string]string)
	}

	wc.Metadata[key] = value
}

// SetVariable stores a global variable, allocating the map when needed.
func (wc *WorkflowContext) SetVariable(key string, value any) {
	if wc.GlobalVariables == nil {
		wc.GlobalVariables = make(map[string]any)
	}

	wc.GlobalVariables[key] = value
}

// StepIndex returns the position of the step with the given id, or -1.
func (wc *WorkflowContext) StepIndex(stepID string) int {
	for i := range wc.Steps {
		if wc.Steps[i].StepID == stepID {
			return i
		}
	}

	return -1
}

// StepIndexByName returns the position of the first step called name, or -1.
func (wc *WorkflowContext) StepIndexByName(name string) int {
	if name == "" {
		return -1
	}

	for i := range wc.Steps {
		if wc.Steps[i].StepName == name {
			return i
		}
	}

	return -1
}

// Current returns the step CurrentStep points at, if any.
func (wc *WorkflowContext) Current() *WorkflowStep {
	if wc.CurrentStep == nil || *wc.CurrentStep < 0 || *wc.CurrentStep >= len(wc.Steps) {
		return nil
	}

	return &wc.Steps[*wc.CurrentStep]
}

// LastCompletedStep returns the index of the last COMPLETED step, or -1.
func (wc *WorkflowContext) LastCompletedStep() int {
	last := -1

	for i := range wc.Steps {
		if wc.Steps[i].Status == StepStatusCompleted {
			last = i
		}
	}

	return last
}

// Clone returns a deep copy safe to hand to callers while the original keeps running.
func (wc *WorkflowContext) Clone() *WorkflowContext {
	if wc == nil {
		return nil
	}

	out := *wc

	if wc.CurrentStep != nil {
		current := *wc.CurrentStep
		out.CurrentStep = &current
	}

	if wc.EndTime != nil {
		end := *wc.EndTime
		out.EndTime = &end
	}

	out.Steps = make([]WorkflowStep, len(wc.Steps))
	for i := range wc.Steps {
		out.Steps[i] = wc.Steps[i].Clone()
	}

	out.GlobalVariables = cloneMap(wc.GlobalVariables)

	out.Metadata = make(map[string]string, len(wc.Metadata))
	for k, v := range wc.Metadata {
		out.Metadata[k] = v
	}

	return &out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = CloneValue(v)
	}

	return out
}

// CloneValue deep-copies JSON-shaped values (maps and slices); other values are returned as is.
func CloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		out := make([]any, len(value))
		for i := range value {
			out[i] = CloneValue(value[i])
		}

		return out
	default:
		return v
	}
}
