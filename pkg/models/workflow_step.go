package models

import "time"

// StepType is the closed set of step kinds a plan may contain.
type StepType string

const (
	StepTypeSourceAdapter  StepType = "SOURCE_ADAPTER"
	StepTypeTargetAdapter  StepType = "TARGET_ADAPTER"
	StepTypeTransformation StepType = "TRANSFORMATION"
	StepTypeValidation     StepType = "VALIDATION"
)

// StepTypes lists every StepType. Dispatch tables are checked against it.
var StepTypes = []StepType{
	StepTypeSourceAdapter,
	StepTypeTargetAdapter,
	StepTypeTransformation,
	StepTypeValidation,
}

func (t StepType) Valid() bool {
	for _, known := range StepTypes {
		if t == known {
			return true
		}
	}

	return false
}

type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusInProgress StepStatus = "IN_PROGRESS"
	StepStatusCompleted  StepStatus = "COMPLETED"
	StepStatusFailed     StepStatus = "FAILED"
	StepStatusRetry      StepStatus = "RETRY"
	StepStatusSkipped    StepStatus = "SKIPPED"
)

// IsTerminal reports whether the step will not run again without a retry decision.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed || s == StepStatusSkipped
}

// Runnable reports whether a resume may (re)start a step in this status.
func (s StepStatus) Runnable() bool {
	return s == StepStatusPending || s == StepStatusInProgress || s == StepStatusRetry
}

// Step variable keys written by the planner.
const (
	StepVariableAdapterID    = "adapterId"
	StepVariableMappingCount = "mappingCount"
)

// WorkflowStep is one unit of work within a plan.
type WorkflowStep struct {
	StepID        string         `json:"step_id"`
	StepName      string         `json:"step_name"`
	StepType      StepType       `json:"step_type"`
	Status        StepStatus     `json:"status"`
	InputData     any            `json:"input_data,omitempty"`
	OutputData    any            `json:"output_data,omitempty"`
	StepVariables map[string]any `json:"step_variables,omitempty"`
	RetryCount    int            `json:"retry_count"`
	StartTime     *time.Time     `json:"start_time,omitempty"`
	EndTime       *time.Time     `json:"end_time,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// AdapterID returns the adapter id the planner attached to the step.
func (s *WorkflowStep) AdapterID() string {
	id, _ := s.StepVariables[StepVariableAdapterID].(string)

	return id
}

func (s WorkflowStep) Clone() WorkflowStep {
	out := s
	out.InputData = CloneValue(s.InputData)
	out.OutputData = CloneValue(s.OutputData)
	out.StepVariables = cloneMap(s.StepVariables)

	if s.StartTime != nil {
		start := *s.StartTime
		out.StartTime = &start
	}

	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}

	return out
}
