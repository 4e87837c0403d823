package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/planpool/internal/command"
	"github.com/joeycumines/planpool/internal/config"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: ignoring configuration: %v\n", err)
		cfg = config.NewConfig()
	}
	for _, warning := range cfg.Warnings {
		_, _ = fmt.Fprintf(stderr, "Warning: config: %s\n", warning)
	}

	registry := command.NewRegistry()
	helpCmd := command.NewHelpCommand(registry)
	registry.Register(helpCmd)
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewConfigCommand(cfg))
	registry.Register(command.NewRunCommand(cfg))
	registry.Register(command.NewValidateCommand(cfg))

	if len(args) == 0 {
		return helpCmd.Execute(ctx, nil, stdout, stderr)
	}

	cmdName := args[0]
	if cmdName == "-h" || cmdName == "--help" {
		return helpCmd.Execute(ctx, nil, stdout, stderr)
	}

	cmd, err := registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", cmdName)
		_, _ = fmt.Fprintln(stderr, "Use 'planpool help' to see available commands.")
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: planpool %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	return cmd.Execute(ctx, fs.Args(), stdout, stderr)
}
