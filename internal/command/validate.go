package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/planpool/internal/config"
	"github.com/joeycumines/planpool/internal/goap"
	"github.com/joeycumines/planpool/internal/scenario"
)

// ValidateCommand checks a scenario file without starting a pool.
type ValidateCommand struct {
	*BaseCommand
	config *config.Config
	plan   bool
}

// NewValidateCommand creates a new validate command.
func NewValidateCommand(cfg *config.Config) *ValidateCommand {
	return &ValidateCommand{
		BaseCommand: NewBaseCommand(
			"validate",
			"Check a scenario file, optionally planning each request in turn",
			"validate [options] <scenario.yaml>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the validate command.
func (c *ValidateCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.plan, "plan", false, "Plan every request sequentially on the calling goroutine")
}

// Execute validates the scenario named by args[0].
func (c *ValidateCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: planpool %s\n", c.Usage())
		return errors.New("validate requires exactly one scenario file")
	}

	settings, err := config.DefaultSchema().Settings(c.config)
	if err != nil {
		return err
	}
	goap.SetExprCacheSize(settings.ExprCacheSize)

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "%s: %d agents, %d actions, %d goals, %d requests\n",
		sc.Name, len(sc.Agents), len(sc.Actions), len(sc.Goals), len(sc.Jobs))

	if !c.plan {
		return nil
	}

	planner := goap.NewPlanner(
		goap.WithMaxTicks(settings.MaxTicks),
		goap.WithLogger(slog.New(slog.DiscardHandler)),
	)
	var failed int
	for _, job := range sc.Jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome := planner.Plan(job.Agent, job.Goal, job.Actions)
		if !outcome.Found() {
			failed++
		}
		_, _ = fmt.Fprintf(stdout, "  #%d %s\n", job.Index, outcome)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests have no plan", failed, len(sc.Jobs))
	}
	return nil
}
