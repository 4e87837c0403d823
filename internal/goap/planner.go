package goap

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/planpool/internal/blackboard"
)

// DefaultMaxTicks bounds the number of plan-tree ticks spent on one search.
const DefaultMaxTicks = 256

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithMaxTicks bounds the search. Values below one use DefaultMaxTicks.
func WithMaxTicks(n int) PlannerOption {
	return func(p *Planner) {
		if n < 1 {
			n = DefaultMaxTicks
		}
		p.maxTicks = n
	}
}

// WithLogger sets the logger used for search diagnostics.
func WithLogger(logger *slog.Logger) PlannerOption {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Planner runs PA-BT searches against a private scratch copy of an agent's
// state. It is not safe for concurrent use.
type Planner struct {
	scratch  *blackboard.Blackboard
	steps    []*Action
	maxTicks int
	logger   *slog.Logger
}

// NewPlanner creates a planner with its own scratch state.
func NewPlanner(opts ...PlannerOption) *Planner {
	p := &Planner{
		scratch:  new(blackboard.Blackboard),
		maxTicks: DefaultMaxTicks,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan searches for a sequence of actions that takes agent's current state to
// one satisfying goal. It runs synchronously on the calling goroutine and
// never mutates agent, goal or actions. Failure to find a plan is reported
// through the outcome, never as a panic.
func (p *Planner) Plan(agent Agent, goal *Goal, actions []*Action) *Outcome {
	start := time.Now()
	out := p.search(agent, goal, actions)
	out.Duration = time.Since(start)

	p.logger.Debug("goap: search finished",
		"agent", out.AgentID,
		"goal", goal.String(),
		"found", out.Found(),
		"steps", len(out.Plan),
		"ticks", out.Ticks,
		"duration", out.Duration)
	return out
}

func (p *Planner) search(agent Agent, goal *Goal, actions []*Action) *Outcome {
	out := &Outcome{Goal: goal, AgentID: agent.ID()}

	p.scratch.Load(agent.Snapshot())
	p.steps = p.steps[:0]

	if goal.Satisfied(p.variable) {
		return out
	}

	state := &simState{planner: p, actions: make([]*simAction, 0, len(actions))}
	for _, a := range actions {
		if a != nil {
			state.actions = append(state.actions, &simAction{planner: p, action: a})
		}
	}

	plan, err := pabtpkg.INew(state, goal.Conditions)
	if err != nil {
		return Failed(out.AgentID, goal, fmt.Errorf("build plan: %w", err))
	}
	root := plan.Node()

	for out.Ticks < p.maxTicks {
		out.Ticks++
		status, err := root.Tick()
		if err != nil {
			failed := Failed(out.AgentID, goal, fmt.Errorf("tick %d: %w", out.Ticks, err))
			failed.Ticks = out.Ticks
			return failed
		}
		switch status {
		case bt.Success:
			out.Plan = slices.Clone(p.steps)
			return out
		case bt.Failure:
			failed := Failed(out.AgentID, goal, fmt.Errorf("plan tree failed after %d ticks", out.Ticks))
			failed.Ticks = out.Ticks
			return failed
		}
	}

	failed := Failed(out.AgentID, goal, fmt.Errorf("tick budget of %d exhausted", p.maxTicks))
	failed.Ticks = out.Ticks
	return failed
}

// variable reads key from the scratch state. Missing keys read as nil.
func (p *Planner) variable(key any) (any, error) {
	k, err := keyString(key)
	if err != nil {
		return nil, err
	}
	return p.scratch.Get(k), nil
}

// simState adapts the scratch blackboard and the candidate actions to
// pabtpkg.IState.
type simState struct {
	planner *Planner
	actions []*simAction
}

var _ pabtpkg.IState = (*simState)(nil)

// Variable implements pabtpkg.IState.
func (s *simState) Variable(key any) (any, error) {
	return s.planner.variable(key)
}

// Actions implements pabtpkg.IState. An action is relevant when one of its
// effects writes the failed condition's key with a value the condition
// accepts. Candidate order is preserved so searches are reproducible.
func (s *simState) Actions(failed pabtpkg.Condition) ([]pabtpkg.IAction, error) {
	if failed == nil {
		out := make([]pabtpkg.IAction, len(s.actions))
		for i, a := range s.actions {
			out[i] = a
		}
		return out, nil
	}
	failedKey, err := keyString(failed.Key())
	if err != nil {
		return nil, err
	}
	var relevant []pabtpkg.IAction
	for _, a := range s.actions {
		if a.achieves(failedKey, failed) {
			relevant = append(relevant, a)
		}
	}
	return relevant, nil
}

// simAction is an Action bound to one search. Running its node applies the
// effects to the scratch state and records the step.
type simAction struct {
	planner *Planner
	action  *Action
}

var _ pabtpkg.IAction = (*simAction)(nil)

func (a *simAction) achieves(failedKey string, failed pabtpkg.Condition) bool {
	for _, effect := range a.action.Effects {
		if effect == nil {
			continue
		}
		k, err := keyString(effect.Key())
		if err != nil || k != failedKey {
			continue
		}
		if failed.Match(effect.Value()) {
			return true
		}
	}
	return false
}

// Conditions implements pabtpkg.IAction.
func (a *simAction) Conditions() []pabtpkg.IConditions { return a.action.Conditions }

// Effects implements pabtpkg.IAction.
func (a *simAction) Effects() pabtpkg.Effects { return a.action.Effects }

// Node implements pabtpkg.IAction.
func (a *simAction) Node() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		p := a.planner
		if !a.action.executable(p.variable) {
			return bt.Failure, nil
		}
		for _, effect := range a.action.Effects {
			if effect == nil {
				continue
			}
			k, err := keyString(effect.Key())
			if err != nil {
				return bt.Failure, fmt.Errorf("action %s: %w", a.action.Name, err)
			}
			p.scratch.Set(k, effect.Value())
		}
		p.steps = append(p.steps, a.action)
		return bt.Success, nil
	})
}
