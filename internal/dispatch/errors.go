package dispatch

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrDoubleStart is returned when Start is called on a coordinator whose
	// pool has already been created. It indicates a programming error.
	ErrDoubleStart = errors.New("dispatch: coordinator already started")

	// ErrStopped is returned when work is submitted to, or a pool started on,
	// a coordinator that has been stopped.
	ErrStopped = errors.New("dispatch: coordinator stopped")

	// ErrNilAgent and ErrNilGoal reject incomplete submissions.
	ErrNilAgent = errors.New("dispatch: nil agent")
	ErrNilGoal  = errors.New("dispatch: nil goal")

	// ErrDrainInProgress is returned by a Drain that overlaps another, either
	// re-entered from a callback or called concurrently.
	ErrDrainInProgress = errors.New("dispatch: drain already in progress")

	// ErrWrongGoroutine is returned by Drain, when delivery affinity is
	// enabled, if the caller is not the delivery goroutine.
	ErrWrongGoroutine = errors.New("dispatch: drain called off the delivery goroutine")
)

// CallbackError records a panic raised by a delivery callback.
type CallbackError struct {
	ItemID uuid.UUID
	Goal   string
	Value  any
	Stack  []byte
}

// Error implements error.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("dispatch: callback for item %s (goal %s) panicked: %v", e.ItemID, e.Goal, e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *CallbackError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// PlannerPanicError records a panic raised by a planner. It becomes the cause
// of the item's failed outcome.
type PlannerPanicError struct {
	Worker int
	Value  any
	Stack  []byte
}

// Error implements error.
func (e *PlannerPanicError) Error() string {
	return fmt.Sprintf("dispatch: planner on worker %d panicked: %v", e.Worker, e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PlannerPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
