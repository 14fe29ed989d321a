package workflow

import (
	"context"

	"github.com/dukex/flowlink/pkg/models"
)

// Future is the pending result of ExecuteAsync. Abandoning it never cancels the workflow.
type Future struct {
	done chan struct{}
	wc   *models.WorkflowContext
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(wc *models.WorkflowContext, err error) {
	f.wc = wc
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait returns the workflow once it stops running, or ctx's error if ctx ends first.
func (f *Future) Wait(ctx context.Context) (*models.WorkflowContext, error) {
	select {
	case <-f.done:
		return f.wc, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
