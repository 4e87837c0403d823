package dispatch

import (
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/joeycumines/planpool/internal/goap"
)

// Planner is the planning function consumed by the pool. Plan runs
// synchronously on a worker goroutine, may take arbitrarily long, and must not
// touch the coordinator.
type Planner interface {
	Plan(agent goap.Agent, goal *goap.Goal, actions []*goap.Action) *goap.Outcome
}

// PlannerFunc adapts an ordinary function to Planner.
type PlannerFunc func(agent goap.Agent, goal *goap.Goal, actions []*goap.Action) *goap.Outcome

// Plan implements Planner.
func (f PlannerFunc) Plan(agent goap.Agent, goal *goap.Goal, actions []*goap.Action) *goap.Outcome {
	return f(agent, goal, actions)
}

// PlannerFactory creates the private planner owned by one worker. It is
// called once per worker, from Start.
type PlannerFactory func() Planner

// worker claims items from the pending queue one at a time and plans them.
type worker struct {
	id      int
	planner Planner
	pending *pendingQueue
	sink    func(item *WorkItem, outcome *goap.Outcome)
	stats   *counters
	logger  *slog.Logger
	stopped atomic.Bool
}

// stop asks the loop to exit at the top of its next iteration.
func (w *worker) stop() {
	w.stopped.Store(true)
}

func (w *worker) run() {
	w.logger.Debug("dispatch: worker started", "worker", w.id)
	defer w.logger.Debug("dispatch: worker stopped", "worker", w.id)

	for !w.stopped.Load() {
		item, ok := w.pending.pop()
		if !ok {
			return
		}
		w.execute(item)
	}
}

func (w *worker) execute(item *WorkItem) {
	item.transition(StateQueued, StatePlanning)
	w.stats.claimed.Add(1)
	w.stats.busy.Add(1)
	defer w.stats.busy.Add(-1)

	start := time.Now()
	outcome := w.plan(item)

	w.logger.Debug("dispatch: planned",
		"worker", w.id,
		"item", item.seq,
		"agent", item.agent.ID(),
		"goal", item.goal.String(),
		"found", outcome.Found(),
		"duration", time.Since(start))

	w.sink(item, outcome)
}

// plan runs the planner, converting a nil result or a panic into a failed
// outcome so the worker keeps serving the queue.
func (w *worker) plan(item *WorkItem) (outcome *goap.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := &PlannerPanicError{Worker: w.id, Value: r, Stack: debug.Stack()}
			w.logger.Error("dispatch: planner panicked",
				"worker", w.id,
				"item", item.seq,
				"goal", item.goal.String(),
				"panic", r)
			outcome = goap.Failed(item.agent.ID(), item.goal, err)
		}
	}()
	outcome = w.planner.Plan(item.agent, item.goal, item.actions)
	if outcome == nil {
		outcome = goap.Failed(item.agent.ID(), item.goal, nil)
	}
	return outcome
}
