package models

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFlow() *FlowDefinition {
	return &FlowDefinition{
		ID:              "flow-1",
		Name:            "Orders sync",
		SourceAdapterID: "A1",
		TargetAdapterID: "A2",
		Enabled:         true,
	}
}

func failedFields(t *testing.T, err error) []string {
	t.Helper()

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fieldErr.Field()+":"+fieldErr.Tag())
	}

	return fields
}

func TestFlowDefinition_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	t.Run("valid flow", func(t *testing.T) {
		assert.NoError(t, validate.Struct(validFlow()))
	})

	t.Run("missing adapters", func(t *testing.T) {
		flow := validFlow()
		flow.SourceAdapterID = ""
		flow.TargetAdapterID = ""

		err := validate.Struct(flow)
		require.Error(t, err)
		assert.ElementsMatch(t, []string{"SourceAdapterID:required", "TargetAdapterID:required"}, failedFields(t, err))
	})

	t.Run("invalid schedule", func(t *testing.T) {
		flow := validFlow()
		flow.Schedule = "every now and then"

		err := validate.Struct(flow)
		require.Error(t, err)
		assert.Equal(t, []string{"Schedule:cron"}, failedFields(t, err))
	})

	t.Run("valid schedule", func(t *testing.T) {
		flow := validFlow()
		flow.Schedule = "*/5 * * * *"

		assert.NoError(t, validate.Struct(flow))
	})

	t.Run("mapping without target", func(t *testing.T) {
		flow := validFlow()
		flow.FieldMappings = []FieldMapping{{Source: "x"}}

		err := validate.Struct(flow)
		require.Error(t, err)
		assert.Equal(t, []string{"Target:required"}, failedFields(t, err))
	})

	t.Run("mapping with expression only", func(t *testing.T) {
		flow := validFlow()
		flow.FieldMappings = []FieldMapping{{Target: "x", Expression: "{{ now }}"}}

		assert.NoError(t, validate.Struct(flow))
	})
}

func TestWorkflowState_IsTerminal(t *testing.T) {
	terminal := map[WorkflowState]bool{
		WorkflowStateInitiated:  false,
		WorkflowStateInProgress: false,
		WorkflowStateSuspended:  false,
		WorkflowStateCompleted:  true,
		WorkflowStateFailed:     true,
		WorkflowStateCancelled:  true,
	}

	for state, expected := range terminal {
		assert.Equal(t, expected, state.IsTerminal(), string(state))
	}
}

func TestStepStatus_Runnable(t *testing.T) {
	assert.True(t, StepStatusPending.Runnable())
	assert.True(t, StepStatusInProgress.Runnable())
	assert.True(t, StepStatusRetry.Runnable())
	assert.False(t, StepStatusCompleted.Runnable())
	assert.False(t, StepStatusFailed.Runnable())
	assert.False(t, StepStatusSkipped.Runnable())
}

func TestStepType_Valid(t *testing.T) {
	for _, stepType := range StepTypes {
		assert.True(t, stepType.Valid())
	}

	assert.False(t, StepType("BRANCH").Valid())
}

func TestWorkflowContext_CloneIsDeep(t *testing.T) {
	end := time.Now()
	current := 1

	original := NewWorkflowContext("wf-1", "flow-1", "exec-1")
	original.CurrentStep = &current
	original.EndTime = &end
	original.SetVariable(VariableInputData, map[string]any{"items": []any{map[string]any{"id": 1}}})
	original.SetMetadata(MetadataInitiatedBy, "alice")
	original.Steps = []WorkflowStep{{
		StepID:        "step-1",
		Status:        StepStatusCompleted,
		OutputData:    map[string]any{"x": 1},
		StepVariables: map[string]any{StepVariableAdapterID: "A1"},
	}}

	clone := original.Clone()

	*clone.CurrentStep = 0
	clone.SetMetadata(MetadataInitiatedBy, "bob")
	clone.Steps[0].OutputData.(map[string]any)["x"] = 2
	clone.Steps[0].StepVariables[StepVariableAdapterID] = "B1"
	clone.GlobalVariables[VariableInputData].(map[string]any)["items"].([]any)[0].(map[string]any)["id"] = 2

	assert.Equal(t, 1, *original.CurrentStep)
	assert.Equal(t, "alice", original.Metadata[MetadataInitiatedBy])
	assert.Equal(t, 1, original.Steps[0].OutputData.(map[string]any)["x"])
	assert.Equal(t, "A1", original.Steps[0].AdapterID())
	assert.Equal(t, 1, original.GlobalVariables[VariableInputData].(map[string]any)["items"].([]any)[0].(map[string]any)["id"])
}

func TestWorkflowContext_StepLookups(t *testing.T) {
	wc := NewWorkflowContext("wf-1", "flow-1", "exec-1")
	assert.Nil(t, wc.Current())
	assert.Equal(t, -1, wc.LastCompletedStep())

	wc.Steps = []WorkflowStep{
		{StepID: "a", Status: StepStatusCompleted},
		{StepID: "b", Status: StepStatusCompleted},
		{StepID: "c", Status: StepStatusPending},
	}

	index := 2
	wc.CurrentStep = &index

	assert.Equal(t, "c", wc.Current().StepID)
	assert.Equal(t, 1, wc.StepIndex("b"))
	assert.Equal(t, -1, wc.StepIndex("z"))
	assert.Equal(t, 1, wc.LastCompletedStep())
}
