package goap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/planpool/internal/blackboard"
)

// ErrNoPlan is the cause carried by every failed Outcome. It is an expected
// result of planning, not a fault of the caller.
var ErrNoPlan = errors.New("goap: no plan found")

// Agent is the requester of a plan. Snapshot must be safe to call from any
// goroutine, and must return a copy the planner may read without locking.
type Agent interface {
	ID() string
	Snapshot() map[string]any
}

// BlackboardAgent is an Agent whose world state lives in a blackboard.
type BlackboardAgent struct {
	id    string
	state *blackboard.Blackboard
}

var _ Agent = (*BlackboardAgent)(nil)

// NewAgent creates an agent with a fresh blackboard seeded from initial.
func NewAgent(id string, initial map[string]any) *BlackboardAgent {
	return &BlackboardAgent{id: id, state: blackboard.New(initial)}
}

// ID implements Agent.
func (a *BlackboardAgent) ID() string { return a.id }

// Snapshot implements Agent.
func (a *BlackboardAgent) Snapshot() map[string]any { return a.state.Snapshot() }

// State returns the live blackboard, e.g. for applying a delivered plan.
func (a *BlackboardAgent) State() *blackboard.Blackboard { return a.state }

// Goal is an objective. Conditions is a list of alternatives (OR); each
// alternative is a group of conditions that must all hold (AND).
//
// A goal with no alternatives has nothing to achieve and is always satisfied.
type Goal struct {
	Name       string
	Conditions []pabtpkg.IConditions
}

// NewGoal builds a goal with a single AND group.
func NewGoal(name string, conds ...pabtpkg.Condition) *Goal {
	return &Goal{Name: name, Conditions: []pabtpkg.IConditions{conds}}
}

// Satisfied reports whether any alternative fully matches the state exposed
// by variable.
func (g *Goal) Satisfied(variable func(key any) (any, error)) bool {
	if len(g.Conditions) == 0 {
		return true
	}
	return anyGroupMatches(g.Conditions, variable)
}

// String implements fmt.Stringer.
func (g *Goal) String() string {
	if g == nil {
		return "<nil goal>"
	}
	return g.Name
}

// Action is a planning operator: if one of its precondition groups holds, it
// can run, and running it applies every effect.
type Action struct {
	Name       string
	Conditions []pabtpkg.IConditions
	Effects    pabtpkg.Effects
}

// NewAction builds an action with a single precondition group. Passing no
// conditions yields an action that is always executable.
func NewAction(name string, effects pabtpkg.Effects, conds ...pabtpkg.Condition) *Action {
	a := &Action{Name: name, Effects: effects}
	if len(conds) > 0 {
		a.Conditions = []pabtpkg.IConditions{conds}
	}
	return a
}

// executable reports whether the preconditions hold. No groups means the
// action is unconditional.
func (a *Action) executable(variable func(key any) (any, error)) bool {
	if len(a.Conditions) == 0 {
		return true
	}
	return anyGroupMatches(a.Conditions, variable)
}

// String implements fmt.Stringer.
func (a *Action) String() string { return a.Name }

func anyGroupMatches(groups []pabtpkg.IConditions, variable func(key any) (any, error)) bool {
	for _, group := range groups {
		ok := true
		for _, cond := range group {
			if cond == nil {
				continue
			}
			value, err := variable(cond.Key())
			if err != nil || !cond.Match(value) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Outcome is the result of one planning search: the goal it was computed
// for together with either an ordered plan or the reason none was found.
type Outcome struct {
	Goal    *Goal
	AgentID string
	// Plan is empty both when the goal already held and when planning failed;
	// use Found to tell them apart.
	Plan     []*Action
	Err      error
	Ticks    int
	Duration time.Duration
}

// Found reports whether a satisfying plan was computed.
func (o *Outcome) Found() bool { return o != nil && o.Err == nil }

// Steps returns the plan's action names in order.
func (o *Outcome) Steps() []string {
	if o == nil {
		return nil
	}
	names := make([]string, len(o.Plan))
	for i, a := range o.Plan {
		names[i] = a.Name
	}
	return names
}

// String implements fmt.Stringer.
func (o *Outcome) String() string {
	if o == nil {
		return "<nil outcome>"
	}
	if !o.Found() {
		return fmt.Sprintf("%s/%s: %v", o.AgentID, o.Goal, o.Err)
	}
	if len(o.Plan) == 0 {
		return fmt.Sprintf("%s/%s: already satisfied", o.AgentID, o.Goal)
	}
	return fmt.Sprintf("%s/%s: %s", o.AgentID, o.Goal, strings.Join(o.Steps(), " -> "))
}

// Failed builds a failed outcome whose error wraps ErrNoPlan.
func Failed(agentID string, goal *Goal, cause error) *Outcome {
	err := ErrNoPlan
	if cause != nil && !errors.Is(cause, ErrNoPlan) {
		err = fmt.Errorf("%w: %w", ErrNoPlan, cause)
	} else if cause != nil {
		err = cause
	}
	return &Outcome{Goal: goal, AgentID: agentID, Err: err}
}
