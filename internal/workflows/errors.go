package workflows

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not registered
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidRequest is returned when the request is invalid
	ErrInvalidRequest = errors.New("invalid workflow request")

	// ErrSetup marks failures that prevent a run from starting, such as an
	// unreadable asset directory
	ErrSetup = errors.New("setup failed")

	// ErrFilesFailed is returned when a run completed but some files failed
	ErrFilesFailed = errors.New("some files failed")
)

// Failure records one output (or whole file) that could not be produced
type Failure struct {
	Source string
	Output string
	Err    error
}

func (f Failure) Error() string {
	if f.Output == "" {
		return fmt.Sprintf("%s: %v", f.Source, f.Err)
	}
	return fmt.Sprintf("%s -> %s: %v", f.Source, f.Output, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// joinFailures folds failures into one error, nil when there are none
func joinFailures(failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	return fmt.Errorf("%w: %d failed: %w", ErrFilesFailed, len(failures), errors.Join(errs...))
}
