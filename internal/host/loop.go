// Package host drives result delivery for a dispatch.Coordinator from a
// single goroutine at a fixed cadence, the way a game loop would from its
// per-frame or fixed-step update.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/planpool/internal/dispatch"
	"github.com/joeycumines/planpool/internal/goap"
)

const (
	DefaultFrameInterval   = 16 * time.Millisecond
	DefaultFixedStep       = 20 * time.Millisecond
	DefaultShutdownTimeout = 5 * time.Second
)

// Mode selects which update cadence delivers results.
type Mode int

const (
	// ModeFixed drains on the fixed simulation step.
	ModeFixed Mode = iota
	// ModeFrame drains once per rendered frame.
	ModeFrame
)

// ParseMode parses "fixed" or "frame".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "":
		return ModeFixed, nil
	case "frame":
		return ModeFrame, nil
	default:
		return 0, fmt.Errorf("host: invalid drain mode %q (expected frame or fixed)", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeFrame:
		return "frame"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// NewPlannerFactory returns a factory giving every worker its own
// goap.Planner.
func NewPlannerFactory(opts ...goap.PlannerOption) dispatch.PlannerFactory {
	return func() dispatch.Planner {
		return goap.NewPlanner(opts...)
	}
}

// Option configures a Loop.
type Option func(*Loop)

func WithMode(mode Mode) Option {
	return func(l *Loop) { l.mode = mode }
}

func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.frameInterval = d
		}
	}
}

func WithFixedStep(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.fixedStep = d
		}
	}
}

// WithPoolSize sets the worker count passed to Coordinator.Start.
func WithPoolSize(n int) Option {
	return func(l *Loop) { l.poolSize = n }
}

// WithShutdownTimeout bounds how long Run waits for in-flight searches once
// its context is done.
func WithShutdownTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.shutdownTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loop owns a coordinator's lifecycle: it starts the pool, drains completed
// work from one ticker goroutine, and on shutdown joins the workers before a
// last drain.
type Loop struct {
	coordinator     *dispatch.Coordinator
	mode            Mode
	frameInterval   time.Duration
	fixedStep       time.Duration
	poolSize        int
	shutdownTimeout time.Duration
	logger          *slog.Logger

	finishing atomic.Bool
	ticks     atomic.Uint64
	delivered atomic.Uint64
	failures  atomic.Uint64
}

// New creates a loop for c. c must not have been started.
func New(c *dispatch.Coordinator, opts ...Option) *Loop {
	if c == nil {
		panic("host.New: coordinator cannot be nil")
	}
	l := &Loop{
		coordinator:     c,
		mode:            ModeFixed,
		frameInterval:   DefaultFrameInterval,
		fixedStep:       DefaultFixedStep,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Mode returns the configured cadence.
func (l *Loop) Mode() Mode { return l.mode }

// Interval returns the drain period for the configured mode.
func (l *Loop) Interval() time.Duration {
	if l.mode == ModeFrame {
		return l.frameInterval
	}
	return l.fixedStep
}

// Ticks returns the number of drains performed.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Delivered returns the number of items delivered.
func (l *Loop) Delivered() uint64 { return l.delivered.Load() }

// CallbackFailures returns the number of drains that reported callback
// panics.
func (l *Loop) CallbackFailures() uint64 { return l.failures.Load() }

// Run starts the pool and delivers results until ctx is done. It then stops
// the pool, waits up to the shutdown timeout for searches in progress, and
// performs a final drain on the delivery goroutine before returning. Callback
// panics are logged and never end the loop. If delivery itself fails, the
// pool is stopped and joined the same way, without the final drain.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.coordinator.Start(l.poolSize); err != nil {
		return err
	}

	l.logger.Info("host: loop running", "mode", l.mode.String(), "interval", l.Interval())

	ticker := bt.NewTickerStopOnFailure(context.Background(), l.Interval(), bt.New(l.tick))

	var deliveryFailed bool
	select {
	case <-ctx.Done():
	case <-ticker.Done():
		deliveryFailed = true
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()
	shutdownErr := l.coordinator.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		l.logger.Warn("host: workers still planning at shutdown", "error", shutdownErr)
	}

	if deliveryFailed {
		// nothing can drain from here on, results of the joined workers stay
		// in the completed list
		return errors.Join(fmt.Errorf("host: delivery stopped: %w", ticker.Err()), shutdownErr)
	}

	l.finishing.Store(true)
	<-ticker.Done()

	l.logger.Info("host: loop stopped",
		"ticks", l.Ticks(),
		"delivered", l.Delivered(),
		"abandoned", l.coordinator.Stats().Pending)

	return errors.Join(shutdownErr, ticker.Err())
}

// tick is the ticker's single node. finishing is read before draining, so the
// drain that observes it sees every result from the joined workers.
func (l *Loop) tick([]bt.Node) (bt.Status, error) {
	finishing := l.finishing.Load()

	n, err := l.coordinator.Drain()
	l.ticks.Add(1)
	l.delivered.Add(uint64(n))

	switch {
	case err == nil:
	case errors.Is(err, dispatch.ErrWrongGoroutine):
		return bt.Failure, err
	case errors.Is(err, dispatch.ErrDrainInProgress):
		l.logger.Debug("host: drain skipped, another drain in progress")
	default:
		l.failures.Add(1)
		l.logger.Warn("host: callback failed", "delivered", n, "error", err)
	}

	if finishing {
		return bt.Failure, nil
	}
	return bt.Success, nil
}
