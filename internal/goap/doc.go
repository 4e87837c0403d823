// Package goap implements goal-oriented action planning on top of go-pabt
// (Planning and Acting using Behavior Trees).
//
// An Agent exposes a snapshot of its world state, a Goal is a disjunction of
// condition groups, and an Action declares preconditions and effects. A
// Planner searches for an ordered sequence of actions that takes the agent's
// state to one satisfying the goal:
//
//	planner := goap.NewPlanner(goap.WithMaxTicks(128))
//	outcome := planner.Plan(agent, goal, actions)
//	if outcome.Found() {
//	    for _, step := range outcome.Plan {
//	        fmt.Println(step.Name)
//	    }
//	}
//
// The search never touches the agent itself. Each Planner owns a scratch
// blackboard which is reloaded from the agent snapshot at the start of every
// search; PA-BT expands the plan tree lazily and each simulated action applies
// its effects to the scratch state. A Planner is therefore NOT safe for
// concurrent use. Create one per goroutine (the dispatch package does this for
// its workers). Goals, actions and conditions are immutable once built and
// may be shared freely between planners.
package goap
