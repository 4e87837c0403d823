package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/planpool/internal/affinity"
	"github.com/joeycumines/planpool/internal/goap"
)

// DefaultPoolSize is the number of workers started when Start is given a
// non-positive size.
const DefaultPoolSize = 4

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDeliveryAffinity, when enabled, binds the first goroutine to call Drain
// as the delivery goroutine and rejects Drain from any other goroutine with
// ErrWrongGoroutine.
func WithDeliveryAffinity(enabled bool) Option {
	return func(c *Coordinator) {
		c.strict = enabled
	}
}

type counters struct {
	submitted        atomic.Uint64
	claimed          atomic.Uint64
	completed        atomic.Uint64
	delivered        atomic.Uint64
	callbackFailures atomic.Uint64
	busy             atomic.Int64
}

// Stats is a point-in-time view of the coordinator. The counters are read
// independently, so totals taken while workers are active may be skewed by
// in-flight transitions.
type Stats struct {
	PoolSize         int
	Submitted        uint64
	Claimed          uint64
	Completed        uint64
	Delivered        uint64
	CallbackFailures uint64
	// Pending is the number of queued, unclaimed items.
	Pending int
	// Busy is the number of workers currently planning.
	Busy int
	// AwaitingDrain is the number of completed, undelivered items. It grows
	// without bound if Drain is never called.
	AwaitingDrain int
}

// Coordinator owns the worker pool, the pending queue and the completed list.
// Construct exactly one per host and pass it to every submitter.
type Coordinator struct {
	factory PlannerFactory
	logger  *slog.Logger
	strict  bool

	pending *pendingQueue
	done    doneList
	stats   counters
	seq     atomic.Uint64

	mu      sync.Mutex
	started bool
	stopped bool
	workers []*worker
	wg      sync.WaitGroup

	delivery affinity.Owner
	draining atomic.Bool
}

// New creates a coordinator whose workers each get a planner from factory.
// No goroutines are started until Start.
func New(factory PlannerFactory, opts ...Option) *Coordinator {
	if factory == nil {
		panic("dispatch.New: planner factory cannot be nil")
	}
	c := &Coordinator{
		factory: factory,
		logger:  slog.Default(),
		pending: newPendingQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates poolSize workers (DefaultPoolSize if poolSize <= 0) and
// starts their goroutines. It must be called at most once: a second call
// returns an error wrapping ErrDoubleStart, and Start after Stop returns
// ErrStopped.
func (c *Coordinator) Start(poolSize int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		err := fmt.Errorf("%w: pool of %d workers already created", ErrDoubleStart, len(c.workers))
		c.logger.Error("dispatch: start called twice", "error", err)
		return err
	}
	if c.stopped {
		return ErrStopped
	}
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	workers := make([]*worker, poolSize)
	for i := range workers {
		planner := c.factory()
		if planner == nil {
			return fmt.Errorf("dispatch: planner factory returned nil for worker %d", i)
		}
		workers[i] = &worker{
			id:      i,
			planner: planner,
			pending: c.pending,
			sink:    c.Complete,
			stats:   &c.stats,
			logger:  c.logger,
		}
	}

	c.workers = workers
	c.started = true
	c.wg.Add(len(workers))
	for _, w := range workers {
		go func() {
			defer c.wg.Done()
			w.run()
		}()
	}

	c.logger.Info("dispatch: pool started", "workers", poolSize, "pending", c.pending.len())
	return nil
}

// MustStart is Start that panics on error.
func (c *Coordinator) MustStart(poolSize int) {
	if err := c.Start(poolSize); err != nil {
		panic(err)
	}
}

// Submit queues a planning job and returns its handle immediately. It may be
// called from any goroutine, including from a callback during Drain. actions
// may be empty and is copied; cb may be nil. Work submitted before Start waits
// for the pool; work submitted after Stop is rejected with ErrStopped.
func (c *Coordinator) Submit(agent goap.Agent, goal *goap.Goal, actions []*goap.Action, cb Callback) (*WorkItem, error) {
	if agent == nil {
		return nil, ErrNilAgent
	}
	if goal == nil {
		return nil, ErrNilGoal
	}
	item := newWorkItem(c.seq.Add(1), agent, goal, actions, cb)
	c.stats.submitted.Add(1)
	if err := c.pending.push(item); err != nil {
		c.stats.submitted.Add(^uint64(0))
		return nil, err
	}
	return item, nil
}

// Complete is the completion sink workers hand their results to. It records
// outcome on item and appends it to the completed list; safe for concurrent
// use. A nil outcome is recorded as a failed search.
func (c *Coordinator) Complete(item *WorkItem, outcome *goap.Outcome) {
	if outcome == nil {
		outcome = goap.Failed(item.agent.ID(), item.goal, nil)
	}
	item.setResult(outcome)
	item.transition(StatePlanning, StateDone)
	c.done.append(item)
	c.stats.completed.Add(1)
}

// Drain delivers every item completed before the call. The completed list is
// swapped out under its lock, then callbacks run on the calling goroutine in
// completion order with no lock held. A panicking callback is recovered and
// the rest of the batch is still delivered; the failures are returned joined.
// It returns the number of items delivered.
func (c *Coordinator) Drain() (int, error) {
	if c.strict && !c.delivery.Claim() {
		c.logger.Warn("dispatch: drain rejected",
			"owner", c.delivery.ID(),
			"caller", affinity.GoroutineID())
		return 0, ErrWrongGoroutine
	}
	if !c.draining.CompareAndSwap(false, true) {
		return 0, ErrDrainInProgress
	}
	defer c.draining.Store(false)

	batch := c.done.takeAll()
	if len(batch) == 0 {
		return 0, nil
	}

	var errs []error
	for _, item := range batch {
		if err := c.deliver(item); err != nil {
			errs = append(errs, err)
		}
	}
	return len(batch), errors.Join(errs...)
}

func (c *Coordinator) deliver(item *WorkItem) (err error) {
	item.transition(StateDone, StateDelivered)
	c.stats.delivered.Add(1)
	if item.callback == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.stats.callbackFailures.Add(1)
			err = &CallbackError{ItemID: item.id, Goal: item.goal.Name, Value: r, Stack: debug.Stack()}
			c.logger.Error("dispatch: callback panicked",
				"item", item.seq,
				"agent", item.agent.ID(),
				"goal", item.goal.String(),
				"panic", r)
		}
	}()
	item.callback(item.Outcome())
	return nil
}

// Stop closes the pending queue and flags every worker to exit. Searches in
// progress finish and their results still reach the completed list. Items
// never claimed stay queued and are not delivered. Stop does not wait; call
// Wait or Shutdown. It is safe to call more than once.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.pending.close()
	for _, w := range c.workers {
		w.stop()
	}
	c.logger.Info("dispatch: pool stopping", "workers", len(c.workers), "abandoned", c.pending.len())
}

// Wait blocks until every worker goroutine has exited. Without a prior Stop
// it blocks for as long as the pool runs.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Shutdown stops the pool and waits for the workers to exit, or for ctx to be
// done, whichever comes first. Workers are never abandoned mid-search; on
// timeout they keep running to completion in the background.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.Stop()
	exited := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(exited)
	}()
	select {
	case <-exited:
		c.logger.Info("dispatch: pool stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch: waiting for workers: %w", ctx.Err())
	}
}

// PoolSize returns the number of workers, or 0 before Start.
func (c *Coordinator) PoolSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workers)
}

// Started reports whether Start has succeeded.
func (c *Coordinator) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Stopped reports whether Stop has been called.
func (c *Coordinator) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Stats returns current counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		PoolSize:         c.PoolSize(),
		Submitted:        c.stats.submitted.Load(),
		Claimed:          c.stats.claimed.Load(),
		Completed:        c.stats.completed.Load(),
		Delivered:        c.stats.delivered.Load(),
		CallbackFailures: c.stats.callbackFailures.Load(),
		Pending:          c.pending.len(),
		Busy:             int(c.stats.busy.Load()),
		AwaitingDrain:    c.done.len(),
	}
}
