// Package workflow drives flow runs: it plans steps, executes them in order through the adapter and
// transformation ports, persists every transition and exposes cancel, suspend and resume.
package workflow

import "errors"

var (
	// ErrFlowIDRequired is returned by Execute when the request names no flow.
	ErrFlowIDRequired = errors.New("flow id is required")

	// ErrNilFlow is returned by ExecuteFlow when called without a definition.
	ErrNilFlow = errors.New("flow definition is nil")

	// ErrInvalidFlow marks definitions no plan can be built from.
	ErrInvalidFlow = errors.New("invalid flow definition")

	// ErrIllegalTransition is returned when the lifecycle rejects a trigger.
	ErrIllegalTransition = errors.New("illegal workflow state transition")

	// ErrNoResumePoint is recorded when a resumed workflow has nothing left to run and did not complete.
	ErrNoResumePoint = errors.New("no resumable step")

	// ErrPoolClosed is returned when work is submitted after the pool was closed.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrMissingDependency is returned by constructors when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing dependency")
)
