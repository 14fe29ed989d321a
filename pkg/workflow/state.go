package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/qmuntal/stateless"
)

type trigger string

const (
	triggerStart    trigger = "start"
	triggerComplete trigger = "complete"
	triggerFail     trigger = "fail"
	triggerSuspend  trigger = "suspend"
	triggerResume   trigger = "resume"
	triggerCancel   trigger = "cancel"
)

// newLifecycle binds a state machine to wc.State. The caller must hold the workflow lock for as
// long as the machine is used.
func newLifecycle(wc *models.WorkflowContext) *stateless.StateMachine {
	sm := stateless.NewStateMachineWithExternalStorage(
		func(_ context.Context) (stateless.State, error) {
			return wc.State, nil
		},
		func(_ context.Context, state stateless.State) error {
			wc.State = state.(models.WorkflowState)

			return nil
		},
		stateless.FiringImmediate,
	)

	finish := func(_ context.Context, _ ...any) error {
		end := time.Now().UTC()
		wc.EndTime = &end

		return nil
	}

	sm.Configure(models.WorkflowStateInitiated).
		Permit(triggerStart, models.WorkflowStateInProgress).
		Permit(triggerFail, models.WorkflowStateFailed)

	sm.Configure(models.WorkflowStateInProgress).
		Permit(triggerComplete, models.WorkflowStateCompleted).
		Permit(triggerFail, models.WorkflowStateFailed).
		Permit(triggerSuspend, models.WorkflowStateSuspended).
		Permit(triggerCancel, models.WorkflowStateCancelled)

	sm.Configure(models.WorkflowStateSuspended).
		Permit(triggerResume, models.WorkflowStateInProgress).
		Permit(triggerCancel, models.WorkflowStateCancelled)

	sm.Configure(models.WorkflowStateCompleted).OnEntry(finish)
	sm.Configure(models.WorkflowStateFailed).OnEntry(finish)
	sm.Configure(models.WorkflowStateCancelled).OnEntry(finish)

	return sm
}

// transition fires t on wc's lifecycle. Terminal states reject every trigger.
func transition(ctx context.Context, wc *models.WorkflowContext, t trigger) error {
	from := wc.State

	err := newLifecycle(wc).FireCtx(ctx, t)
	if err != nil {
		return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, t, from)
	}

	return nil
}

// canTransition reports whether t is permitted from wc's current state.
func canTransition(ctx context.Context, wc *models.WorkflowContext, t trigger) bool {
	ok, err := newLifecycle(wc).CanFireCtx(ctx, t)

	return err == nil && ok
}
