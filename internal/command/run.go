package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/joeycumines/planpool/internal/config"
	"github.com/joeycumines/planpool/internal/dispatch"
	"github.com/joeycumines/planpool/internal/goap"
	"github.com/joeycumines/planpool/internal/host"
	"github.com/joeycumines/planpool/internal/logging"
	"github.com/joeycumines/planpool/internal/scenario"
	"golang.org/x/sync/errgroup"
)

// ErrUndelivered is returned by run when the timeout expired before every
// request's plan was delivered.
var ErrUndelivered = errors.New("results not delivered")

// RunCommand plans every request of a scenario on the worker pool and reports
// the delivered plans.
type RunCommand struct {
	*BaseCommand
	config *config.Config

	poolSize int
	mode     string
	timeout  time.Duration
	output   string
	strict   bool
}

// NewRunCommand creates a new run command reading its defaults from cfg.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Plan every request in a scenario on the worker pool",
			"run [options] <scenario.yaml>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the run command. Unset flags fall back
// to the configuration.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.poolSize, "pool", 0, "Number of planning workers (default from pool.size)")
	fs.StringVar(&c.mode, "mode", "", "Delivery cadence: fixed or frame (default from drain.mode)")
	fs.DurationVar(&c.timeout, "timeout", 0, "Give up waiting for deliveries after this long (default from [run] timeout)")
	fs.StringVar(&c.output, "output", "", "Report format: text or json (default from [run] output)")
	fs.BoolVar(&c.strict, "strict", false, "Fail if results are delivered from more than one goroutine")
}

// Execute runs the scenario named by args[0].
func (c *RunCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: planpool %s\n", c.Usage())
		return errors.New("run requires exactly one scenario file")
	}

	settings, err := c.settings()
	if err != nil {
		return err
	}
	mode, err := host.ParseMode(settings.DrainMode)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(logging.Options{
		Level:     settings.Log.Level,
		Format:    settings.Log.Format,
		File:      settings.Log.File,
		MaxSizeMB: settings.Log.MaxSizeMB,
		MaxFiles:  settings.Log.MaxFiles,
		Stderr:    stderr,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	goap.SetExprCacheSize(settings.ExprCacheSize)

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	report, runErr := runScenario(ctx, sc, settings, mode, logger)
	if err := renderReport(stdout, report, settings.Run.Output); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// settings resolves the configuration and applies flag overrides.
func (c *RunCommand) settings() (*config.Settings, error) {
	s, err := config.DefaultSchema().Settings(c.config)
	if err != nil {
		return nil, err
	}
	if c.poolSize < 0 {
		return nil, fmt.Errorf("invalid -pool: %d", c.poolSize)
	}
	if c.poolSize > 0 {
		s.PoolSize = c.poolSize
	}
	if c.mode != "" {
		s.DrainMode = c.mode
	}
	if c.timeout < 0 {
		return nil, fmt.Errorf("invalid -timeout: %s", c.timeout)
	}
	if c.timeout > 0 {
		s.Run.Timeout = c.timeout
	}
	switch c.output {
	case "":
	case "text", "json":
		s.Run.Output = c.output
	default:
		return nil, fmt.Errorf("invalid -output: %q (expected text or json)", c.output)
	}
	s.StrictDelivery = s.StrictDelivery || c.strict
	return s, nil
}

// runScenario drives one pool for the whole scenario. The host loop runs in
// one errgroup goroutine; another submits every job and waits for the last
// callback, or the timeout, before ending the loop. The loop always performs
// its final drain, so the report includes everything delivered, and requests
// still missing after it are reported as ErrUndelivered.
func runScenario(ctx context.Context, sc *scenario.Scenario, s *config.Settings, mode host.Mode, logger *slog.Logger) (*runReport, error) {
	coordinator := dispatch.New(
		host.NewPlannerFactory(goap.WithMaxTicks(s.MaxTicks), goap.WithLogger(logger)),
		dispatch.WithLogger(logger),
		dispatch.WithDeliveryAffinity(s.StrictDelivery),
	)
	loop := host.New(coordinator,
		host.WithMode(mode),
		host.WithFrameInterval(s.FrameInterval),
		host.WithFixedStep(s.FixedStep),
		host.WithPoolSize(s.PoolSize),
		host.WithLogger(logger),
	)

	report := newRunReport(sc, s.PoolSize, mode)

	ctx, cancel := context.WithTimeout(ctx, s.Run.Timeout)
	defer cancel()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	var remaining atomic.Int64
	remaining.Store(int64(len(sc.Jobs)))
	allDone := make(chan struct{})

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(loopCtx)
	})
	g.Go(func() error {
		defer stopLoop()
		if len(sc.Jobs) == 0 {
			return nil
		}
		for _, job := range sc.Jobs {
			result := &report.Results[job.Index]
			item, err := coordinator.Submit(job.Agent, job.Goal, job.Actions, func(outcome *goap.Outcome) {
				result.record(outcome)
				if remaining.Add(-1) == 0 {
					close(allDone)
				}
			})
			if err != nil {
				return fmt.Errorf("submit request %d: %w", job.Index, err)
			}
			result.Item = item.ID().String()
		}
		select {
		case <-allDone:
		case <-gctx.Done():
			logger.Warn("run: stopped waiting for results", "remaining", remaining.Load(), "error", gctx.Err())
		}
		return nil
	})
	err := g.Wait()

	report.finish(time.Since(start))
	if report.Undelivered > 0 {
		err = errors.Join(err, fmt.Errorf("%w: %d of %d requests after %s",
			ErrUndelivered, report.Undelivered, len(sc.Jobs), report.Elapsed))
	}
	stats := coordinator.Stats()
	logger.Info("run: finished",
		"scenario", sc.Name,
		"requests", len(sc.Jobs),
		"found", report.Found,
		"failed", report.Failed,
		"undelivered", report.Undelivered,
		"claimed", stats.Claimed,
		"abandoned", stats.Pending,
		"ticks", loop.Ticks())
	return report, err
}
