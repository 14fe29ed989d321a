package workflow

import (
	"context"
	"testing"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// suspendedAt stores a SUSPENDED run of mappedFlow whose steps before next completed.
func suspendedAt(t *testing.T, f *fixture, next int) *models.WorkflowContext {
	t.Helper()

	steps, err := BuildPlan(mappedFlow())
	require.NoError(t, err)

	wc := models.NewWorkflowContext(uuid.NewString(), "mapped", "exec-suspended")
	wc.State = models.WorkflowStateSuspended
	wc.Steps = steps
	wc.CurrentStep = &next
	wc.SetVariable(models.VariableInputData, map[string]any{"name": "ada"})

	for i := 0; i < next; i++ {
		wc.Steps[i].Status = models.StepStatusCompleted
		wc.Steps[i].InputData = map[string]any{"name": "ada"}
		wc.Steps[i].OutputData = map[string]any{"name": "ada"}
	}

	_, err = f.store.WorkflowRepository().Save(context.Background(), wc)
	require.NoError(t, err)

	return wc
}

func planned(statuses ...models.StepStatus) *models.WorkflowContext {
	wc := models.NewWorkflowContext("wf-1", "flow-1", "exec-1")
	wc.SetVariable(models.VariableInputData, "input")

	for i, status := range statuses {
		step := models.WorkflowStep{StepID: uuid.NewString(), Status: status}
		if status == models.StepStatusCompleted {
			step.OutputData = i
		}

		wc.Steps = append(wc.Steps, step)
	}

	return wc
}

func TestPlanResume(t *testing.T) {
	tests := []struct {
		name    string
		wc      *models.WorkflowContext
		want    resumePlan
		wantErr error
	}{
		{
			name: "nothing ran",
			wc:   planned(models.StepStatusPending, models.StepStatusPending),
			want: resumePlan{start: 0, input: "input", failed: -1},
		},
		{
			name: "after first step",
			wc:   planned(models.StepStatusCompleted, models.StepStatusPending, models.StepStatusPending),
			want: resumePlan{start: 1, input: 0, failed: -1},
		},
		{
			name: "step interrupted mid-flight",
			wc:   planned(models.StepStatusCompleted, models.StepStatusCompleted, models.StepStatusInProgress),
			want: resumePlan{start: 2, input: 1, failed: -1},
		},
		{
			name: "step waiting for retry",
			wc:   planned(models.StepStatusCompleted, models.StepStatusRetry),
			want: resumePlan{start: 1, input: 0, failed: -1},
		},
		{
			name: "exhausted step",
			wc:   planned(models.StepStatusCompleted, models.StepStatusFailed, models.StepStatusPending),
			want: resumePlan{start: 2, failed: 1},
		},
		{
			name: "everything completed",
			wc:   planned(models.StepStatusCompleted, models.StepStatusCompleted),
			want: resumePlan{start: -1, input: 1, done: true, failed: -1},
		},
		{
			name:    "no steps",
			wc:      planned(),
			want:    resumePlan{start: -1, input: "input", failed: -1},
			wantErr: ErrNoResumePoint,
		},
		{
			name:    "last step skipped",
			wc:      planned(models.StepStatusCompleted, models.StepStatusSkipped),
			want:    resumePlan{start: -1, input: 0, failed: -1},
			wantErr: ErrNoResumePoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planResume(tt.wc)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanResume_StepsWinOverSuspendedOutput(t *testing.T) {
	wc := planned(models.StepStatusCompleted, models.StepStatusPending)
	wc.SetVariable(models.VariableSuspendedOutput, "stale")

	got, err := planResume(wc)
	require.NoError(t, err)

	assert.Equal(t, resumePlan{start: 1, input: 0, failed: -1}, got)
}

func TestResume_InterruptedStepCountsAsRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.transform.On("Apply", mock.Anything, "mapped", map[string]any{"name": "ada"}).Return("done", nil).Once()
	f.adapters.On("Send", mock.Anything, targetAdapter, "done", mock.Anything).Return(nil).Once()

	wc := suspendedAt(t, f, 1)
	wc.Steps[1].Status = models.StepStatusInProgress
	_, err := f.store.WorkflowRepository().Save(ctx, wc)
	require.NoError(t, err)

	require.True(t, f.orch.Resume(ctx, wc.WorkflowID))
	f.orch.Wait()

	stored := f.stored(t, wc.WorkflowID)
	assert.Equal(t, models.WorkflowStateCompleted, stored.State)
	assert.Equal(t, 1, stored.Steps[1].RetryCount)
	assert.Equal(t, "done", stored.GlobalVariables[models.VariableOutputData])
}

func TestResume_InterruptedStepOutOfRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.transform.On("Apply", mock.Anything, "mapped", mock.Anything).Return(nil, errTargetDown).Once()

	wc := suspendedAt(t, f, 1)
	wc.Steps[1].Status = models.StepStatusInProgress
	wc.Steps[1].RetryCount = DefaultMaxRetries - 1
	_, err := f.store.WorkflowRepository().Save(ctx, wc)
	require.NoError(t, err)

	require.True(t, f.orch.Resume(ctx, wc.WorkflowID))
	f.orch.Wait()

	stored := f.stored(t, wc.WorkflowID)
	assert.Equal(t, models.WorkflowStateFailed, stored.State)
	assert.Equal(t, DefaultMaxRetries, stored.Steps[1].RetryCount)
	assert.Equal(t, StepNameTransformation, stored.Metadata[models.MetadataFailedStep])
	f.transform.AssertNumberOfCalls(t, "Apply", 1)
}

func TestResume_ExhaustedStepFailsWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	wc := suspendedAt(t, f, 1)
	wc.Steps[1].Status = models.StepStatusFailed
	wc.Steps[1].RetryCount = DefaultMaxRetries
	wc.Steps[1].ErrorMessage = "bad mapping"
	_, err := f.store.WorkflowRepository().Save(ctx, wc)
	require.NoError(t, err)

	require.True(t, f.orch.Resume(ctx, wc.WorkflowID))
	f.orch.Wait()

	stored := f.stored(t, wc.WorkflowID)
	assert.Equal(t, models.WorkflowStateFailed, stored.State)
	assert.Equal(t, StepNameTransformation, stored.Metadata[models.MetadataFailedStep])
	assert.Equal(t, "bad mapping", stored.Metadata[models.MetadataError])
	assert.Equal(t, []models.WorkflowEventType{models.WorkflowEventResumed, models.WorkflowEventFailed}, f.eventTypes(t, wc.WorkflowID))
	f.transform.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
}

func TestResume_AllStepsDoneCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	wc := suspendedAt(t, f, 3)

	require.True(t, f.orch.Resume(ctx, wc.WorkflowID))
	f.orch.Wait()

	stored := f.stored(t, wc.WorkflowID)
	assert.Equal(t, models.WorkflowStateCompleted, stored.State)
	assert.Equal(t, map[string]any{"name": "ada"}, stored.GlobalVariables[models.VariableOutputData])
}

func TestResume_NoResumePointFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	wc := models.NewWorkflowContext(uuid.NewString(), "mapped", "exec-1")
	wc.State = models.WorkflowStateSuspended
	_, err := f.store.WorkflowRepository().Save(ctx, wc)
	require.NoError(t, err)

	require.True(t, f.orch.Resume(ctx, wc.WorkflowID))
	f.orch.Wait()

	stored := f.stored(t, wc.WorkflowID)
	assert.Equal(t, models.WorkflowStateFailed, stored.State)
	assert.Contains(t, stored.Metadata[models.MetadataResumeError], ErrNoResumePoint.Error())
}
