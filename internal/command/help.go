package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const summary = "planpool - offload GOAP planning to a worker pool and deliver plans on one loop"

// HelpCommand lists the registered commands, or describes one of them.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand("help", "Show the commands, or the usage and flags of one", "help [command]"),
		registry:    registry,
	}
}

func (c *HelpCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return c.overview(stdout)
	}
	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}
	return describe(stdout, cmd)
}

func (c *HelpCommand) overview(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "%s\n\nUsage: planpool <command> [options] [args...]\n\nAvailable commands:\n", summary)
	for _, name := range c.registry.List() {
		cmd, err := c.registry.Get(name)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(tw, "  %s\t%s\n", name, cmd.Description())
	}
	_, _ = fmt.Fprint(tw, "\nRun 'planpool help <command>' for the flags of a command.\n")
	return tw.Flush()
}

// describe writes the usage of cmd, with its flag defaults when it has any.
func describe(w io.Writer, cmd Command) error {
	var flags strings.Builder
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(&flags)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\nDescription: %s\nUsage: planpool %s\n", cmd.Name(), cmd.Description(), cmd.Usage())
	if flags.Len() > 0 {
		b.WriteString("\nFlags:\n")
		b.WriteString(flags.String())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// VersionCommand prints the build version.
type VersionCommand struct {
	*BaseCommand
	version string
}

func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand("version", "Print the planpool version", "version"),
		version:     version,
	}
}

func (c *VersionCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return errors.New("version takes no arguments")
	}
	_, err := fmt.Fprintf(stdout, "planpool version %s\n", c.version)
	return err
}
