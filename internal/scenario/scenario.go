// Package scenario loads planning workloads from YAML: a set of agents with
// initial world state, the actions and goals available to them, and the
// planning requests to dispatch.
//
//	name: woodcutter
//	agents:
//	  - id: bob
//	    state: {hasAxe: false, wood: 0}
//	actions:
//	  - name: getAxe
//	    pre: [{key: hasAxe, equals: false}]
//	    effects: {hasAxe: true}
//	  - name: chopWood
//	    pre: [{key: hasAxe, expr: "value == true"}]
//	    effects: {wood: 1}
//	goals:
//	  - name: collectWood
//	    conditions: [{key: wood, expr: "value >= 1"}]
//	requests:
//	  - {agent: bob, goal: collectWood, repeat: 3}
package scenario

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/planpool/internal/goap"
	"gopkg.in/yaml.v3"
)

// File is the document as written.
type File struct {
	Name     string    `yaml:"name"`
	Agents   []Agent   `yaml:"agents"`
	Actions  []Action  `yaml:"actions"`
	Goals    []Goal    `yaml:"goals"`
	Requests []Request `yaml:"requests"`
}

type Agent struct {
	ID    string         `yaml:"id"`
	State map[string]any `yaml:"state"`
}

// Condition tests one state key, either against an expr-lang expression over
// `value` or for equality with a literal. Exactly one of Expr and Equals must
// be set; `equals: null` counts as unset.
type Condition struct {
	Key    string `yaml:"key"`
	Expr   string `yaml:"expr,omitempty"`
	Equals any    `yaml:"equals,omitempty"`
}

type Action struct {
	Name    string         `yaml:"name"`
	Pre     []Condition    `yaml:"pre"`
	Effects map[string]any `yaml:"effects"`
}

// Goal is satisfied when all of Conditions hold, or when all conditions of
// any one of Alternatives hold.
type Goal struct {
	Name         string        `yaml:"name"`
	Conditions   []Condition   `yaml:"conditions"`
	Alternatives [][]Condition `yaml:"alternatives"`
}

// Request asks for Repeat plans (default 1) toward Goal for Agent. Actions
// restricts the candidate actions by name; empty means every action.
type Request struct {
	Agent   string   `yaml:"agent"`
	Goal    string   `yaml:"goal"`
	Actions []string `yaml:"actions"`
	Repeat  int      `yaml:"repeat"`
}

// Job is one planning request ready to submit.
type Job struct {
	Index   int
	Agent   *goap.BlackboardAgent
	Goal    *goap.Goal
	Actions []*goap.Action
}

// Scenario is a validated, compiled File.
type Scenario struct {
	Name    string
	Agents  []*goap.BlackboardAgent
	Actions []*goap.Action
	Goals   []*goap.Goal
	Jobs    []Job
}

// Load reads and compiles a .yaml or .yml scenario file.
func Load(path string) (*Scenario, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported scenario format %q (supported: .yaml, .yml)", ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes and compiles a scenario document. Unknown fields are errors.
func Parse(r io.Reader) (*Scenario, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return file.Compile()
}

// Compile validates every reference and builds the goap values. All problems
// found are reported together.
func (f *File) Compile() (*Scenario, error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	s := &Scenario{Name: f.Name}

	agents := make(map[string]*goap.BlackboardAgent, len(f.Agents))
	for i, a := range f.Agents {
		switch {
		case a.ID == "":
			fail("agent at index %d is missing required field 'id'", i)
		case agents[a.ID] != nil:
			fail("duplicate agent id: %s", a.ID)
		default:
			agent := goap.NewAgent(a.ID, a.State)
			agents[a.ID] = agent
			s.Agents = append(s.Agents, agent)
		}
	}

	actions := make(map[string]*goap.Action, len(f.Actions))
	for i, a := range f.Actions {
		if a.Name == "" {
			fail("action at index %d is missing required field 'name'", i)
			continue
		}
		if actions[a.Name] != nil {
			fail("duplicate action name: %s", a.Name)
			continue
		}
		pre, err := compileGroup(a.Pre)
		if err != nil {
			fail("action %s: %w", a.Name, err)
			continue
		}
		if len(a.Effects) == 0 {
			fail("action %s has no effects", a.Name)
			continue
		}
		action := goap.NewAction(a.Name, compileEffects(a.Effects), pre...)
		actions[a.Name] = action
		s.Actions = append(s.Actions, action)
	}

	goals := make(map[string]*goap.Goal, len(f.Goals))
	for i, g := range f.Goals {
		if g.Name == "" {
			fail("goal at index %d is missing required field 'name'", i)
			continue
		}
		if goals[g.Name] != nil {
			fail("duplicate goal name: %s", g.Name)
			continue
		}
		goal, err := compileGoal(g)
		if err != nil {
			fail("goal %s: %w", g.Name, err)
			continue
		}
		goals[g.Name] = goal
		s.Goals = append(s.Goals, goal)
	}

	for i, r := range f.Requests {
		agent, goal := agents[r.Agent], goals[r.Goal]
		if agent == nil {
			fail("request %d: unknown agent %q", i, r.Agent)
		}
		if goal == nil {
			fail("request %d: unknown goal %q", i, r.Goal)
		}
		if r.Repeat < 0 {
			fail("request %d: repeat must not be negative, got %d", i, r.Repeat)
		}
		candidates := s.Actions
		if len(r.Actions) > 0 {
			candidates = make([]*goap.Action, 0, len(r.Actions))
			for _, name := range r.Actions {
				action := actions[name]
				if action == nil {
					fail("request %d: unknown action %q", i, name)
					continue
				}
				candidates = append(candidates, action)
			}
		}
		if agent == nil || goal == nil || r.Repeat < 0 {
			continue
		}
		for range max(r.Repeat, 1) {
			s.Jobs = append(s.Jobs, Job{Index: len(s.Jobs), Agent: agent, Goal: goal, Actions: candidates})
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

func compileGoal(g Goal) (*goap.Goal, error) {
	goal := &goap.Goal{Name: g.Name}
	groups := g.Alternatives
	if len(g.Conditions) > 0 {
		groups = append([][]Condition{g.Conditions}, groups...)
	}
	for i, group := range groups {
		conds, err := compileGroup(group)
		if err != nil {
			return nil, err
		}
		if len(conds) == 0 {
			return nil, fmt.Errorf("alternative %d is empty", i)
		}
		goal.Conditions = append(goal.Conditions, conds)
	}
	return goal, nil
}

func compileGroup(group []Condition) (pabtpkg.IConditions, error) {
	conds := make(pabtpkg.IConditions, 0, len(group))
	for _, c := range group {
		cond, err := c.compile()
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func (c Condition) compile() (pabtpkg.Condition, error) {
	if c.Key == "" {
		return nil, errors.New("condition is missing required field 'key'")
	}
	switch {
	case c.Expr != "" && c.Equals != nil:
		return nil, fmt.Errorf("condition on %s sets both 'expr' and 'equals'", c.Key)
	case c.Expr != "":
		return goap.NewExprCondition(c.Key, c.Expr)
	case c.Equals != nil:
		return goap.Equal(c.Key, c.Equals), nil
	default:
		return nil, fmt.Errorf("condition on %s needs 'expr' or 'equals'", c.Key)
	}
}

// compileEffects orders effects by key so plans are reproducible.
func compileEffects(values map[string]any) pabtpkg.Effects {
	effects := make([]*goap.Effect, 0, len(values))
	for _, key := range slices.Sorted(maps.Keys(values)) {
		effects = append(effects, goap.Set(key, values[key]))
	}
	return goap.Effects(effects...)
}

// Agent returns the agent with id, or nil.
func (s *Scenario) Agent(id string) *goap.BlackboardAgent {
	for _, a := range s.Agents {
		if a.ID() == id {
			return a
		}
	}
	return nil
}
