package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/planpool/internal/affinity"
	"github.com/joeycumines/planpool/internal/goap"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestCoordinator(t *testing.T, factory PlannerFactory, opts ...Option) *Coordinator {
	t.Helper()
	c := New(factory, append([]Option{WithLogger(discard)}, opts...)...)
	t.Cleanup(func() {
		c.Stop()
		c.Wait()
	})
	return c
}

func goapFactory() Planner {
	return goap.NewPlanner(goap.WithLogger(discard))
}

// instant plans nothing and succeeds immediately.
var instant = PlannerFactory(func() Planner {
	return PlannerFunc(func(agent goap.Agent, goal *goap.Goal, _ []*goap.Action) *goap.Outcome {
		return &goap.Outcome{Goal: goal, AgentID: agent.ID()}
	})
})

// drainUntil drains on the calling goroutine until at least n items have
// been delivered, failing the test on timeout.
func drainUntil(t *testing.T, c *Coordinator, n int) (int, error) {
	t.Helper()
	var (
		total int
		errs  []error
	)
	deadline := time.Now().Add(10 * time.Second)
	for total < n {
		if time.Now().After(deadline) {
			t.Fatalf("delivered %d of %d items before timeout: %+v", total, n, c.Stats())
		}
		delivered, err := c.Drain()
		total += delivered
		if err != nil {
			errs = append(errs, err)
		}
		if delivered == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	return total, errors.Join(errs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 10*time.Second, time.Millisecond)
}

func TestCoordinator_PlansAndDelivers(t *testing.T) {
	c := newTestCoordinator(t, goapFactory)
	require.NoError(t, c.Start(2))

	agent := goap.NewAgent("woodcutter", map[string]any{"hasAxe": false, "wood": 0})
	actions := []*goap.Action{
		goap.NewAction("getAxe",
			goap.Effects(goap.Set("hasAxe", true)),
			goap.Equal("hasAxe", false)),
		goap.NewAction("chopWood",
			goap.Effects(goap.Set("wood", 1)),
			goap.Equal("hasAxe", true)),
	}
	goal := goap.NewGoal("collectWood", goap.Equal("wood", 1))

	var got *goap.Outcome
	item, err := c.Submit(agent, goal, actions, func(outcome *goap.Outcome) {
		got = outcome
	})
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, uint64(1), item.Seq())

	n, err := drainUntil(t, c, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NotNil(t, got)
	require.Same(t, item.Outcome(), got)
	require.True(t, got.Found())
	require.Equal(t, []string{"getAxe", "chopWood"}, got.Steps())
	require.Equal(t, StateDelivered, item.State())
	require.Same(t, goal, got.Goal)

	// the live agent is untouched by planning
	require.Equal(t, 0, agent.State().Get("wood"))
}

func TestCoordinator_DefaultPoolSize(t *testing.T) {
	c := newTestCoordinator(t, instant)
	require.Equal(t, 0, c.PoolSize())
	require.False(t, c.Started())
	require.NoError(t, c.Start(0))
	require.True(t, c.Started())
	require.Equal(t, DefaultPoolSize, c.PoolSize())
}

func TestCoordinator_DoubleStart(t *testing.T) {
	var created atomic.Int32
	c := newTestCoordinator(t, func() Planner {
		created.Add(1)
		return instant()
	})
	require.NoError(t, c.Start(3))

	err := c.Start(3)
	require.ErrorIs(t, err, ErrDoubleStart)
	require.Equal(t, 3, c.PoolSize())
	require.Equal(t, int32(3), created.Load())

	require.Panics(t, func() { c.MustStart(1) })
}

func TestCoordinator_StartAfterStop(t *testing.T) {
	c := newTestCoordinator(t, instant)
	c.Stop()
	require.True(t, c.Stopped())
	require.ErrorIs(t, c.Start(1), ErrStopped)
	require.False(t, c.Started())
	c.Wait()
}

func TestCoordinator_NilFactory(t *testing.T) {
	require.Panics(t, func() { New(nil) })
}

func TestCoordinator_FactoryReturnsNil(t *testing.T) {
	c := newTestCoordinator(t, func() Planner { return nil })
	require.Error(t, c.Start(2))
	require.False(t, c.Started())
}

func TestCoordinator_SubmitRejectsIncompleteWork(t *testing.T) {
	c := newTestCoordinator(t, instant)
	_, err := c.Submit(nil, goap.NewGoal("g"), nil, nil)
	require.ErrorIs(t, err, ErrNilAgent)
	_, err = c.Submit(goap.NewAgent("a", nil), nil, nil, nil)
	require.ErrorIs(t, err, ErrNilGoal)
	require.Zero(t, c.Stats().Submitted)
}

func TestCoordinator_SubmitAfterStop(t *testing.T) {
	c := newTestCoordinator(t, instant)
	require.NoError(t, c.Start(1))
	c.Stop()
	c.Wait()

	item, err := c.Submit(goap.NewAgent("a", nil), goap.NewGoal("g"), nil, nil)
	require.ErrorIs(t, err, ErrStopped)
	require.Nil(t, item)
	require.Zero(t, c.Stats().Submitted)
}

func TestCoordinator_SubmitBeforeStart(t *testing.T) {
	c := newTestCoordinator(t, instant)
	var delivered atomic.Int32
	for range 3 {
		_, err := c.Submit(goap.NewAgent("a", nil), goap.NewGoal("g"), nil, func(*goap.Outcome) {
			delivered.Add(1)
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.Stats().Pending)

	require.NoError(t, c.Start(2))
	n, err := drainUntil(t, c, 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, int32(3), delivered.Load())
}

func TestCoordinator_EmptyDrain(t *testing.T) {
	c := newTestCoordinator(t, instant)
	for range 3 {
		n, err := c.Drain()
		require.NoError(t, err)
		require.Zero(t, n)
	}
	require.NoError(t, c.Start(1))
	n, err := c.Drain()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCoordinator_NoLostWork(t *testing.T) {
	c := newTestCoordinator(t, goapFactory)
	require.NoError(t, c.Start(4))

	const total = 100
	agent := goap.NewAgent("counter", map[string]any{"n": 0})
	action := goap.NewAction("inc", goap.Effects(goap.Set("n", 1)), goap.Equal("n", 0))

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
	)
	items := make([]*WorkItem, total)
	for i := range items {
		goal := goap.NewGoal(fmt.Sprintf("g%d", i), goap.Equal("n", 1))
		item, err := c.Submit(agent, goal, []*goap.Action{action}, func(outcome *goap.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			seen[outcome.Goal.Name]++
		})
		require.NoError(t, err)
		items[i] = item
	}

	n, err := drainUntil(t, c, total)
	require.NoError(t, err)
	require.Equal(t, total, n)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, total)
	for name, count := range seen {
		require.Equal(t, 1, count, "goal %s", name)
	}
	for _, item := range items {
		require.Equal(t, StateDelivered, item.State())
		require.Equal(t, []string{"inc"}, item.Outcome().Steps())
	}

	stats := c.Stats()
	require.Equal(t, uint64(total), stats.Submitted)
	require.Equal(t, uint64(total), stats.Claimed)
	require.Equal(t, uint64(total), stats.Completed)
	require.Equal(t, uint64(total), stats.Delivered)
	require.Zero(t, stats.Pending)
	require.Zero(t, stats.AwaitingDrain)
	require.Zero(t, stats.Busy)
}

func TestCoordinator_AtMostOnceClaim(t *testing.T) {
	const total = 200
	goals := make([]*goap.Goal, total)
	claims := make(map[*goap.Goal]*atomic.Int32, total)
	for i := range goals {
		goals[i] = goap.NewGoal(fmt.Sprintf("g%d", i))
		claims[goals[i]] = new(atomic.Int32)
	}

	c := newTestCoordinator(t, func() Planner {
		return PlannerFunc(func(agent goap.Agent, goal *goap.Goal, _ []*goap.Action) *goap.Outcome {
			claims[goal].Add(1)
			return &goap.Outcome{Goal: goal, AgentID: agent.ID()}
		})
	})
	require.NoError(t, c.Start(8))

	// submit concurrently from several goroutines
	agent := goap.NewAgent("a", nil)
	var (
		wg        sync.WaitGroup
		delivered atomic.Int32
	)
	for part := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := part; i < total; i += 4 {
				_, err := c.Submit(agent, goals[i], nil, func(*goap.Outcome) { delivered.Add(1) })
				if err != nil {
					panic(err)
				}
			}
		}()
	}
	wg.Wait()

	n, err := drainUntil(t, c, total)
	require.NoError(t, err)
	require.Equal(t, total, n)
	require.Equal(t, int32(total), delivered.Load())
	for _, goal := range goals {
		require.Equal(t, int32(1), claims[goal].Load(), "goal %s", goal)
	}
}

func TestCoordinator_DrainSnapshotsCompletedList(t *testing.T) {
	gate := make(chan struct{})
	c := newTestCoordinator(t, func() Planner {
		return PlannerFunc(func(agent goap.Agent, goal *goap.Goal, _ []*goap.Action) *goap.Outcome {
			if goal.Name == "c" {
				<-gate
			}
			return &goap.Outcome{Goal: goal, AgentID: agent.ID()}
		})
	})

	agent := goap.NewAgent("a", nil)
	var order []string
	record := func(outcome *goap.Outcome) { order = append(order, outcome.Goal.Name) }

	_, err := c.Submit(agent, goap.NewGoal("a"), nil, func(outcome *goap.Outcome) {
		record(outcome)
		// let c finish while this drain is still delivering
		close(gate)
		deadline := time.Now().Add(10 * time.Second)
		for c.Stats().Completed < 3 {
			if time.Now().After(deadline) {
				panic("c never completed")
			}
			time.Sleep(time.Millisecond)
		}
	})
	require.NoError(t, err)
	_, err = c.Submit(agent, goap.NewGoal("b"), nil, record)
	require.NoError(t, err)
	_, err = c.Submit(agent, goap.NewGoal("c"), nil, record)
	require.NoError(t, err)

	require.NoError(t, c.Start(1))
	waitFor(t, func() bool { return c.Stats().AwaitingDrain == 2 })

	n, err := c.Drain()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, 1, c.Stats().AwaitingDrain)

	n, err = c.Drain()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestCoordinator_CallbackMaySubmit(t *testing.T) {
	c := newTestCoordinator(t, instant)
	require.NoError(t, c.Start(2))

	agent := goap.NewAgent("a", nil)
	var (
		followUp  *WorkItem
		submitErr error
		drainErr  error
		got       []string
	)
	_, err := c.Submit(agent, goap.NewGoal("first"), nil, func(outcome *goap.Outcome) {
		got = append(got, outcome.Goal.Name)
		followUp, submitErr = c.Submit(agent, goap.NewGoal("second"), nil, func(outcome *goap.Outcome) {
			got = append(got, outcome.Goal.Name)
		})
		_, drainErr = c.Drain()
	})
	require.NoError(t, err)

	n, err := drainUntil(t, c, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, submitErr)
	require.ErrorIs(t, drainErr, ErrDrainInProgress)
	require.NotNil(t, followUp)
	require.Equal(t, []string{"first"}, got)

	n, err = drainUntil(t, c, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"first", "second"}, got)
	require.Equal(t, StateDelivered, followUp.State())
}

func TestCoordinator_CallbackPanicIsIsolated(t *testing.T) {
	c := newTestCoordinator(t, instant)
	agent := goap.NewAgent("a", nil)
	boom := errors.New("boom")

	var ran []string
	for _, name := range []string{"one", "two", "three"} {
		_, err := c.Submit(agent, goap.NewGoal(name), nil, func(outcome *goap.Outcome) {
			ran = append(ran, outcome.Goal.Name)
			if outcome.Goal.Name == "two" {
				panic(boom)
			}
		})
		require.NoError(t, err)
	}
	require.NoError(t, c.Start(1))

	n, err := drainUntil(t, c, 3)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"one", "two", "three"}, ran)
	require.ErrorIs(t, err, boom)

	var cbErr *CallbackError
	require.ErrorAs(t, err, &cbErr)
	require.Equal(t, "two", cbErr.Goal)
	require.NotEmpty(t, cbErr.Stack)
	require.Equal(t, uint64(1), c.Stats().CallbackFailures)
	require.Equal(t, uint64(3), c.Stats().Delivered)
}

func TestCoordinator_NilCallback(t *testing.T) {
	c := newTestCoordinator(t, instant)
	require.NoError(t, c.Start(1))
	item, err := c.Submit(goap.NewAgent("a", nil), goap.NewGoal("g"), nil, nil)
	require.NoError(t, err)
	n, err := drainUntil(t, c, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, StateDelivered, item.State())
	require.True(t, item.Outcome().Found())
}

func TestCoordinator_PlannerPanicFailsItem(t *testing.T) {
	c := newTestCoordinator(t, func() Planner {
		return PlannerFunc(func(agent goap.Agent, goal *goap.Goal, _ []*goap.Action) *goap.Outcome {
			if goal.Name == "bad" {
				panic("planner exploded")
			}
			return &goap.Outcome{Goal: goal, AgentID: agent.ID()}
		})
	})
	require.NoError(t, c.Start(1))

	agent := goap.NewAgent("a", nil)
	bad, err := c.Submit(agent, goap.NewGoal("bad"), nil, nil)
	require.NoError(t, err)
	good, err := c.Submit(agent, goap.NewGoal("good"), nil, nil)
	require.NoError(t, err)

	_, err = drainUntil(t, c, 2)
	require.NoError(t, err)

	outcome := bad.Outcome()
	require.False(t, outcome.Found())
	require.ErrorIs(t, outcome.Err, goap.ErrNoPlan)
	var panicErr *PlannerPanicError
	require.ErrorAs(t, outcome.Err, &panicErr)
	require.Equal(t, "planner exploded", panicErr.Value)
	require.Equal(t, "a", outcome.AgentID)

	require.True(t, good.Outcome().Found())
}

func TestCoordinator_NilOutcomeIsFailure(t *testing.T) {
	c := newTestCoordinator(t, func() Planner {
		return PlannerFunc(func(goap.Agent, *goap.Goal, []*goap.Action) *goap.Outcome { return nil })
	})
	require.NoError(t, c.Start(1))
	goal := goap.NewGoal("g")
	item, err := c.Submit(goap.NewAgent("a", nil), goal, nil, nil)
	require.NoError(t, err)
	_, err = drainUntil(t, c, 1)
	require.NoError(t, err)
	require.NotNil(t, item.Outcome())
	require.ErrorIs(t, item.Outcome().Err, goap.ErrNoPlan)
	require.Same(t, goal, item.Outcome().Goal)
}

func TestCoordinator_DeliveryAffinity(t *testing.T) {
	c := newTestCoordinator(t, instant, WithDeliveryAffinity(true))
	require.NoError(t, c.Start(1))

	// the first drain binds this goroutine
	_, err := c.Drain()
	require.NoError(t, err)

	other := make(chan error, 1)
	go func() {
		_, err := c.Drain()
		other <- err
	}()
	require.ErrorIs(t, <-other, ErrWrongGoroutine)

	_, err = c.Submit(goap.NewAgent("a", nil), goap.NewGoal("g"), nil, nil)
	require.NoError(t, err)
	n, err := drainUntil(t, c, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCoordinator_DeliveryAffinityLogsOwner(t *testing.T) {
	var buf bytes.Buffer
	c := New(instant, WithDeliveryAffinity(true),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	_, err := c.Drain()
	require.NoError(t, err)
	owner := affinity.GoroutineID()

	var callerID int64
	rejected := make(chan error, 1)
	go func() {
		callerID = affinity.GoroutineID()
		_, err := c.Drain()
		rejected <- err
	}()
	require.ErrorIs(t, <-rejected, ErrWrongGoroutine)

	var rec struct {
		Msg    string `json:"msg"`
		Owner  int64  `json:"owner"`
		Caller int64  `json:"caller"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "dispatch: drain rejected", rec.Msg)
	require.Equal(t, owner, rec.Owner)
	require.Equal(t, callerID, rec.Caller)
}

func TestCoordinator_ConcurrentDrainWithoutAffinity(t *testing.T) {
	c := newTestCoordinator(t, instant)
	require.NoError(t, c.Start(2))

	const total = 50
	var delivered atomic.Int32
	for range total {
		_, err := c.Submit(goap.NewAgent("a", nil), goap.NewGoal("g"), nil, func(*goap.Outcome) {
			delivered.Add(1)
		})
		require.NoError(t, err)
	}

	var (
		wg    sync.WaitGroup
		count atomic.Int32
	)
	deadline := time.Now().Add(10 * time.Second)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for count.Load() < total && time.Now().Before(deadline) {
				n, err := c.Drain()
				if err != nil && !errors.Is(err, ErrDrainInProgress) {
					panic(err)
				}
				count.Add(int32(n))
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(total), count.Load())
	require.Equal(t, int32(total), delivered.Load())
}

func TestCoordinator_OnePlannerPerWorker(t *testing.T) {
	type recorder struct {
		mu   sync.Mutex
		gids map[int64]struct{}
	}
	var (
		mu        sync.Mutex
		recorders []*recorder
	)
	c := newTestCoordinator(t, func() Planner {
		r := &recorder{gids: make(map[int64]struct{})}
		mu.Lock()
		recorders = append(recorders, r)
		mu.Unlock()
		return PlannerFunc(func(agent goap.Agent, goal *goap.Goal, _ []*goap.Action) *goap.Outcome {
			r.mu.Lock()
			r.gids[affinity.GoroutineID()] = struct{}{}
			r.mu.Unlock()
			time.Sleep(100 * time.Microsecond)
			return &goap.Outcome{Goal: goal, AgentID: agent.ID()}
		})
	})
	require.NoError(t, c.Start(4))

	const total = 64
	for range total {
		_, err := c.Submit(goap.NewAgent("a", nil), goap.NewGoal("g"), nil, nil)
		require.NoError(t, err)
	}
	_, err := drainUntil(t, c, total)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, recorders, 4)
	for _, r := range recorders {
		r.mu.Lock()
		require.LessOrEqual(t, len(r.gids), 1)
		r.mu.Unlock()
	}
}

func TestCoordinator_SingleWorkerIsFIFO(t *testing.T) {
	c := newTestCoordinator(t, instant)
	agent := goap.NewAgent("a", nil)

	const total = 20
	var order []uint64
	for range total {
		var item *WorkItem
		item, err := c.Submit(agent, goap.NewGoal("g"), nil, func(*goap.Outcome) {
			order = append(order, item.Seq())
		})
		require.NoError(t, err)
	}
	require.NoError(t, c.Start(1))

	_, err := drainUntil(t, c, total)
	require.NoError(t, err)
	require.Len(t, order, total)
	for i, seq := range order {
		require.Equal(t, uint64(i+1), seq)
	}
}

func TestCoordinator_ResultsAccumulateWithoutDrain(t *testing.T) {
	c := newTestCoordinator(t, instant)
	require.NoError(t, c.Start(2))

	const total = 10
	items := make([]*WorkItem, total)
	for i := range items {
		item, err := c.Submit(goap.NewAgent("a", nil), goap.NewGoal("g"), nil, nil)
		require.NoError(t, err)
		items[i] = item
	}
	waitFor(t, func() bool { return c.Stats().AwaitingDrain == total })
	for _, item := range items {
		require.Equal(t, StateDone, item.State())
		require.NotNil(t, item.Outcome())
	}
	require.Zero(t, c.Stats().Delivered)
}

func TestCoordinator_StopLeavesQueuedWork(t *testing.T) {
	gate := make(chan struct{})
	c := newTestCoordinator(t, func() Planner {
		return PlannerFunc(func(agent goap.Agent, goal *goap.Goal, _ []*goap.Action) *goap.Outcome {
			<-gate
			return &goap.Outcome{Goal: goal, AgentID: agent.ID()}
		})
	})
	require.NoError(t, c.Start(1))

	agent := goap.NewAgent("a", nil)
	running, err := c.Submit(agent, goap.NewGoal("running"), nil, nil)
	require.NoError(t, err)
	waitFor(t, func() bool { return c.Stats().Claimed == 1 })
	queued, err := c.Submit(agent, goap.NewGoal("queued"), nil, nil)
	require.NoError(t, err)

	c.Stop()
	require.Equal(t, StatePlanning, running.State())
	close(gate)
	c.Wait()

	// the search in flight at stop still completes and is deliverable
	n, err := c.Drain()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, StateDelivered, running.State())

	require.Equal(t, StateQueued, queued.State())
	require.Nil(t, queued.Outcome())
	require.Equal(t, 1, c.Stats().Pending)
}

func TestCoordinator_ShutdownTimeout(t *testing.T) {
	gate := make(chan struct{})
	c := newTestCoordinator(t, func() Planner {
		return PlannerFunc(func(agent goap.Agent, goal *goap.Goal, _ []*goap.Action) *goap.Outcome {
			<-gate
			return &goap.Outcome{Goal: goal, AgentID: agent.ID()}
		})
	})
	require.NoError(t, c.Start(1))
	_, err := c.Submit(goap.NewAgent("a", nil), goap.NewGoal("slow"), nil, nil)
	require.NoError(t, err)
	waitFor(t, func() bool { return c.Stats().Busy == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	require.NoError(t, c.Shutdown(context.Background()))
	n, err := c.Drain()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCoordinator_ShutdownIdlePool(t *testing.T) {
	c := newTestCoordinator(t, instant)
	require.NoError(t, c.Start(4))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
	require.True(t, c.Stopped())
}

func TestWorkItem_String(t *testing.T) {
	item := newWorkItem(9, goap.NewAgent("bob", nil), goap.NewGoal("eat"), nil, nil)
	s := item.String()
	require.Contains(t, s, "work#9")
	require.Contains(t, s, "agent=bob")
	require.Contains(t, s, "goal=eat")
	require.Contains(t, s, "queued")
	require.Equal(t, "State(42)", State(42).String())
}

func TestWorkItem_ActionsAreCopied(t *testing.T) {
	actions := []*goap.Action{goap.NewAction("x", nil)}
	item := newWorkItem(1, goap.NewAgent("a", nil), goap.NewGoal("g"), actions, nil)
	actions[0] = nil
	require.NotNil(t, item.Actions()[0])
}

func TestWorkItem_InvalidTransitionPanics(t *testing.T) {
	item := newWorkItem(1, goap.NewAgent("a", nil), goap.NewGoal("g"), nil, nil)
	require.Panics(t, func() { item.transition(StateDone, StateDelivered) })
	item.setResult(&goap.Outcome{})
	require.Panics(t, func() { item.setResult(&goap.Outcome{}) })
}
