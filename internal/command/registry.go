package command

import (
	"fmt"
	"maps"
	"slices"
)

// Registry maps command names to commands.
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd, replacing any command of the same name.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

func (r *Registry) Get(name string) (Command, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("command not found: %s", name)
	}
	return cmd, nil
}

// List returns the registered command names, sorted.
func (r *Registry) List() []string {
	return slices.Sorted(maps.Keys(r.commands))
}
