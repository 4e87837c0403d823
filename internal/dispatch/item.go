package dispatch

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/planpool/internal/goap"
)

// Callback receives a finished outcome on the delivery goroutine. It is
// invoked at most once per item.
type Callback func(outcome *goap.Outcome)

// State is a WorkItem's position in its lifecycle.
type State int32

const (
	StateQueued State = iota
	StatePlanning
	StateDone
	StateDelivered
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StatePlanning:
		return "planning"
	case StateDone:
		return "done"
	case StateDelivered:
		return "delivered"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// WorkItem is one dispatched planning job. Everything except the result and
// the lifecycle state is fixed at submission.
type WorkItem struct {
	id        uuid.UUID
	seq       uint64
	submitted time.Time
	agent     goap.Agent
	goal      *goap.Goal
	actions   []*goap.Action
	callback  Callback

	state  atomic.Int32
	result atomic.Pointer[goap.Outcome]
}

func newWorkItem(seq uint64, agent goap.Agent, goal *goap.Goal, actions []*goap.Action, cb Callback) *WorkItem {
	return &WorkItem{
		id:        uuid.New(),
		seq:       seq,
		submitted: time.Now(),
		agent:     agent,
		goal:      goal,
		actions:   slices.Clone(actions),
		callback:  cb,
	}
}

// ID returns the item's unique id.
func (w *WorkItem) ID() uuid.UUID { return w.id }

// Seq returns the submission sequence number, starting at 1 per coordinator.
func (w *WorkItem) Seq() uint64 { return w.seq }

// Submitted returns the submission time.
func (w *WorkItem) Submitted() time.Time { return w.submitted }

// Agent returns the requesting agent.
func (w *WorkItem) Agent() goap.Agent { return w.agent }

// Goal returns the goal being planned for.
func (w *WorkItem) Goal() *goap.Goal { return w.goal }

// Actions returns the candidate actions. The slice must not be modified.
func (w *WorkItem) Actions() []*goap.Action { return w.actions }

// State returns the current lifecycle state.
func (w *WorkItem) State() State { return State(w.state.Load()) }

// Outcome returns the planning result, or nil until a worker has finished.
func (w *WorkItem) Outcome() *goap.Outcome { return w.result.Load() }

// String implements fmt.Stringer.
func (w *WorkItem) String() string {
	return fmt.Sprintf("work#%d(%s, agent=%s, goal=%s, %s)", w.seq, w.id, w.agent.ID(), w.goal, w.State())
}

// transition advances the lifecycle. Any other starting state means two
// parties handled the same item, which is unrecoverable.
func (w *WorkItem) transition(from, to State) {
	if !w.state.CompareAndSwap(int32(from), int32(to)) {
		panic(fmt.Sprintf("dispatch: %s: invalid transition %s -> %s", w, from, to))
	}
}

func (w *WorkItem) setResult(outcome *goap.Outcome) {
	if !w.result.CompareAndSwap(nil, outcome) {
		panic(fmt.Sprintf("dispatch: %s: result written twice", w))
	}
}
