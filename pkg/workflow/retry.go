package workflow

import (
	"time"

	"github.com/dukex/flowlink/pkg/models"
)

// DefaultMaxRetries is the number of re-dispatches a failing step gets before the workflow fails.
const DefaultMaxRetries = 3

type RetryPolicy struct {
	MaxRetries int
	// Backoff is the constant pause before a step is re-dispatched.
	Backoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries}
}

// markFailed records err on the step and schedules a retry while the budget lasts. It reports
// whether the step will be retried.
func (p RetryPolicy) markFailed(step *models.WorkflowStep, err error) bool {
	failStep(step, err)

	if step.RetryCount < p.MaxRetries {
		step.RetryCount++
		step.Status = models.StepStatusRetry

		return true
	}

	return false
}

// failStep marks the step FAILED with err as its message, without touching its retry budget.
func failStep(step *models.WorkflowStep, err error) {
	step.Status = models.StepStatusFailed
	if err != nil {
		step.ErrorMessage = err.Error()
	}

	if step.ErrorMessage == "" {
		step.ErrorMessage = "step failed"
	}
}
