package workflow

import (
	"context"
	"fmt"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// resumePlan is where a resumed workflow picks up.
type resumePlan struct {
	start int
	input any
	// done is set when every step already completed.
	done bool
	// failed is the index of a step that exhausted its retries, or -1.
	failed int
}

// planResume locates the first runnable step and the payload it should receive: the output of the
// last completed step before it, or the workflow input when none completed.
func planResume(wc *models.WorkflowContext) (resumePlan, error) {
	plan := resumePlan{start: -1, failed: -1}

	for i := range wc.Steps {
		if wc.Steps[i].Status.Runnable() {
			plan.start = i

			break
		}

		if wc.Steps[i].Status == models.StepStatusFailed && plan.failed < 0 {
			plan.failed = i
		}
	}

	if plan.failed >= 0 {
		return plan, nil
	}

	limit := plan.start
	if limit < 0 {
		limit = len(wc.Steps)
	}

	plan.input = wc.GlobalVariables[models.VariableInputData]

	last := -1

	for i := 0; i < limit; i++ {
		if wc.Steps[i].Status == models.StepStatusCompleted {
			last = i
			plan.input = wc.Steps[i].OutputData
		}
	}

	if plan.start < 0 {
		if len(wc.Steps) > 0 && last == len(wc.Steps)-1 {
			plan.done = true

			return plan, nil
		}

		return plan, ErrNoResumePoint
	}

	return plan, nil
}

// continueRun is the resume continuation. It waits for any earlier loop of the same workflow to
// stop, then restarts the plan at the resume point.
func (o *Orchestrator) continueRun(ctx context.Context, e *Entry, gen uint64) {
	e.drive.Lock()
	defer e.drive.Unlock()

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "workflow.resume",
		attribute.String(otelhelper.WorkflowIDKey, e.wc.WorkflowID),
	)
	defer span.End()

	start, input, ok := o.prepareResume(ctx, e, gen)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("resume continuation panicked: %v", r)
			otelhelper.SetError(span, err)

			e.mu.Lock()
			o.failResume(ctx, e, err)
			e.mu.Unlock()
		}
	}()

	o.runSteps(ctx, e, gen, start, input)
}

func (o *Orchestrator) prepareResume(ctx context.Context, e *Entry, gen uint64) (start int, input any, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			o.failResume(ctx, e, fmt.Errorf("resume continuation panicked: %v", r))

			ok = false
		}
	}()

	if !e.driving(gen) {
		return 0, nil, false
	}

	wc := e.wc

	plan, err := planResume(wc)
	if err != nil {
		o.failResume(ctx, e, err)

		return 0, nil, false
	}

	switch {
	case plan.failed >= 0:
		step := &wc.Steps[plan.failed]
		wc.SetMetadata(models.MetadataFailedStep, step.StepName)
		wc.SetMetadata(models.MetadataError, step.ErrorMessage)

		if err := transition(ctx, wc, triggerFail); err == nil {
			o.persist(ctx, wc)
			o.recordFailure(ctx, wc)
		}

		return 0, nil, false
	case plan.done:
		o.complete(ctx, wc, plan.input)

		return 0, nil, false
	}

	step := &wc.Steps[plan.start]
	if step.Status == models.StepStatusInProgress {
		step.RetryCount++
		step.Status = models.StepStatusRetry
		o.persist(ctx, wc)
	}

	o.logger.InfoContext(ctx, "Resuming workflow",
		"workflow_id", wc.WorkflowID,
		"step_name", step.StepName,
		"retry_count", step.RetryCount,
	)

	return plan.start, plan.input, true
}

// failResume fails a resumed workflow with err recorded under resumeError. Callers hold e.mu.
func (o *Orchestrator) failResume(ctx context.Context, e *Entry, err error) {
	wc := e.wc

	wc.SetMetadata(models.MetadataResumeError, err.Error())

	if terr := transition(ctx, wc, triggerFail); terr != nil {
		o.logger.ErrorContext(ctx, "Failed to fail resumed workflow", "workflow_id", wc.WorkflowID, "error", terr)

		return
	}

	o.persist(ctx, wc)
	o.recordFailure(ctx, wc)
}
