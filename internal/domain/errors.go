package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job id is unknown to the store.
var ErrNotFound = errors.New("job not found")

// ErrPreconditionFailed is returned when a stage regeneration is requested
// but the stage's upstream artifacts are missing from the record.
var ErrPreconditionFailed = errors.New("precondition failed")

// ValidationError rejects a submission before it is enqueued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidInputError reports an out-of-range planner input.
type InvalidInputError struct {
	Name  string
	Value float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %g", e.Name, e.Value)
}

// StageError wraps a failure inside one pipeline stage. Fatal failures
// abort the job; soft failures degrade output and let it continue.
type StageError struct {
	Stage Stage
	Fatal bool
	Err   error
}

func (e *StageError) Error() string {
	kind := "soft"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("stage %s: %s failure: %v", e.Stage, kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ProviderExhaustedError records that every tier of the text-generation
// fallback chain failed for one fragment. It is stored inline in the
// prompt list, never raised past the prompt adapter.
type ProviderExhaustedError struct {
	Fragment int
	Primary  error
	Fallback error
}

func (e *ProviderExhaustedError) Error() string {
	return fmt.Sprintf("fragment %d: primary provider: %v; fallback provider: %v",
		e.Fragment, e.Primary, e.Fallback)
}
