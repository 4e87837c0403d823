// Package command implements the planpool command line: a registry of
// commands, each parsing its own flags with the standard flag package.
package command

import (
	"context"
	"flag"
	"io"
)

// Command is one planpool subcommand.
type Command interface {
	Name() string
	Description() string
	// Usage is the synopsis after "planpool ".
	Usage() string
	SetupFlags(fs *flag.FlagSet)
	// Execute runs the command with the arguments left after flag parsing.
	// ctx is cancelled when the process is asked to stop.
	Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// BaseCommand supplies everything but Execute, for embedding. It declares
// no flags.
type BaseCommand struct {
	name, description, usage string
}

func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{name: name, description: description, usage: usage}
}

func (c *BaseCommand) Name() string                { return c.name }
func (c *BaseCommand) Description() string         { return c.description }
func (c *BaseCommand) Usage() string               { return c.usage }
func (c *BaseCommand) SetupFlags(fs *flag.FlagSet) {}
