package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/mocks"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testStep(stepType models.StepType, adapterID string, input any) models.WorkflowStep {
	return models.WorkflowStep{
		StepID:        "step-1",
		StepName:      string(stepType),
		StepType:      stepType,
		Status:        models.StepStatusPending,
		InputData:     input,
		StepVariables: map[string]any{models.StepVariableAdapterID: adapterID},
	}
}

var testECtx = models.ExecutionContext{WorkflowID: "wf-1", FlowID: "flow-1", StepID: "step-1"}

func TestStepExecutor_SourceCopiesInput(t *testing.T) {
	adapters := &mocks.MockAdapterExecutionPort{}
	executor, err := NewStepExecutor(adapters, nil, log.Discard())
	require.NoError(t, err)

	result := executor.Run(context.Background(), testStep(models.StepTypeSourceAdapter, sourceAdapter, map[string]any{"x": 1}), testECtx)

	assert.Equal(t, models.StepStatusCompleted, result.Status)
	assert.Equal(t, map[string]any{"x": 1}, result.OutputData)
	assert.NotNil(t, result.StartTime)
	assert.NotNil(t, result.EndTime)
	adapters.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestStepExecutor_Target(t *testing.T) {
	tests := []struct {
		name    string
		sendErr error
		status  models.StepStatus
	}{
		{name: "send succeeds", status: models.StepStatusCompleted},
		{name: "send fails", sendErr: errTargetDown, status: models.StepStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapters := &mocks.MockAdapterExecutionPort{}
			adapters.On("Send", mock.Anything, targetAdapter, map[string]any{"x": 1}, testECtx).Return(tt.sendErr)

			executor, err := NewStepExecutor(adapters, nil, log.Discard())
			require.NoError(t, err)

			result := executor.Run(context.Background(), testStep(models.StepTypeTargetAdapter, targetAdapter, map[string]any{"x": 1}), testECtx)

			assert.Equal(t, tt.status, result.Status)
			assert.NotNil(t, result.EndTime)

			if tt.sendErr != nil {
				assert.Contains(t, result.ErrorMessage, "target unavailable")
				assert.Nil(t, result.OutputData)
			} else {
				assert.Empty(t, result.ErrorMessage)
				assert.Equal(t, map[string]any{"x": 1}, result.OutputData)
			}

			adapters.AssertExpectations(t)
		})
	}
}

func TestStepExecutor_TargetWithoutAdapterID(t *testing.T) {
	executor, err := NewStepExecutor(&mocks.MockAdapterExecutionPort{}, nil, log.Discard())
	require.NoError(t, err)

	result := executor.Run(context.Background(), testStep(models.StepTypeTargetAdapter, "", "payload"), testECtx)

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "no target adapter id")
}

func TestStepExecutor_Transformation(t *testing.T) {
	t.Run("applies the port", func(t *testing.T) {
		transform := &mocks.MockTransformationPort{}
		transform.On("Apply", mock.Anything, "flow-1", map[string]any{"name": "ada"}).
			Return(map[string]any{"full": "ada"}, nil).Once()

		executor, err := NewStepExecutor(&mocks.MockAdapterExecutionPort{}, transform, log.Discard())
		require.NoError(t, err)

		result := executor.Run(context.Background(), testStep(models.StepTypeTransformation, "", map[string]any{"name": "ada"}), testECtx)

		assert.Equal(t, models.StepStatusCompleted, result.Status)
		assert.Equal(t, map[string]any{"full": "ada"}, result.OutputData)
		transform.AssertExpectations(t)
	})

	t.Run("port error fails the step", func(t *testing.T) {
		transform := &mocks.MockTransformationPort{}
		transform.On("Apply", mock.Anything, "flow-1", mock.Anything).Return(nil, errors.New("bad mapping"))

		executor, err := NewStepExecutor(&mocks.MockAdapterExecutionPort{}, transform, log.Discard())
		require.NoError(t, err)

		result := executor.Run(context.Background(), testStep(models.StepTypeTransformation, "", "payload"), testECtx)

		assert.Equal(t, models.StepStatusFailed, result.Status)
		assert.Contains(t, result.ErrorMessage, "bad mapping")
	})

	t.Run("no port passes through", func(t *testing.T) {
		executor, err := NewStepExecutor(&mocks.MockAdapterExecutionPort{}, nil, log.Discard())
		require.NoError(t, err)

		result := executor.Run(context.Background(), testStep(models.StepTypeTransformation, "", "payload"), testECtx)

		assert.Equal(t, models.StepStatusCompleted, result.Status)
		assert.Equal(t, "payload", result.OutputData)
	})
}

func TestStepExecutor_ValidationPassesThrough(t *testing.T) {
	executor, err := NewStepExecutor(&mocks.MockAdapterExecutionPort{}, nil, log.Discard())
	require.NoError(t, err)

	result := executor.Run(context.Background(), testStep(models.StepTypeValidation, "", []any{"a", "b"}), testECtx)

	assert.Equal(t, models.StepStatusCompleted, result.Status)
	assert.Equal(t, []any{"a", "b"}, result.OutputData)
}

func TestStepExecutor_UnknownTypeFails(t *testing.T) {
	executor, err := NewStepExecutor(&mocks.MockAdapterExecutionPort{}, nil, log.Discard())
	require.NoError(t, err)

	result := executor.Run(context.Background(), testStep("SOAP_CALL", "", nil), testECtx)

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "unsupported step type")
}

func TestStepExecutor_PanicBecomesFailure(t *testing.T) {
	adapters := &mocks.MockAdapterExecutionPort{}
	adapters.On("Send", mock.Anything, targetAdapter, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("adapter exploded")
	})

	executor, err := NewStepExecutor(adapters, nil, log.Discard())
	require.NoError(t, err)

	result := executor.Run(context.Background(), testStep(models.StepTypeTargetAdapter, targetAdapter, nil), testECtx)

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "adapter exploded")
}

func TestStepExecutor_DoesNotMutateCaller(t *testing.T) {
	executor, err := NewStepExecutor(&mocks.MockAdapterExecutionPort{}, nil, log.Discard())
	require.NoError(t, err)

	original := testStep(models.StepTypeSourceAdapter, sourceAdapter, map[string]any{"x": 1})
	_ = executor.Run(context.Background(), original, testECtx)

	assert.Equal(t, models.StepStatusPending, original.Status)
	assert.Nil(t, original.StartTime)
}
