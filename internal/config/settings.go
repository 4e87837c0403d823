package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Settings is the typed, effective configuration after environment
// overrides and defaults have been applied.
type Settings struct {
	PoolSize       int
	DrainMode      string
	FrameInterval  time.Duration
	FixedStep      time.Duration
	StrictDelivery bool
	MaxTicks       int
	ExprCacheSize  int
	Log            LogSettings
	Run            RunSettings
}

type LogSettings struct {
	Level     string
	Format    string
	File      string
	MaxSizeMB int
	MaxFiles  int
}

type RunSettings struct {
	Timeout time.Duration
	Output  string
}

// Settings resolves every option in c through the schema. Unlike loading,
// where bad values only warn, a value that cannot be used is an error here.
func (s *Schema) Settings(c *Config) (*Settings, error) {
	r := &resolver{schema: s, config: c}
	out := &Settings{
		PoolSize:       r.int("", "pool.size", 1),
		DrainMode:      r.enum("", "drain.mode"),
		FrameInterval:  r.duration("", "drain.frame-interval"),
		FixedStep:      r.duration("", "drain.fixed-step"),
		StrictDelivery: r.bool("", "drain.strict"),
		MaxTicks:       r.int("", "planner.max-ticks", 1),
		ExprCacheSize:  r.int("", "planner.expr-cache-size", 1),
		Log: LogSettings{
			Level:     r.enum("", "log.level"),
			Format:    r.enum("", "log.format"),
			File:      r.string("", "log.file"),
			MaxSizeMB: r.int("", "log.max-size-mb", 0),
			MaxFiles:  r.int("", "log.max-files", 0),
		},
		Run: RunSettings{
			Timeout: r.duration("run", "timeout"),
			Output:  r.enum("run", "output"),
		},
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return out, nil
}

type resolver struct {
	schema *Schema
	config *Config
	errs   []error
}

func (r *resolver) value(section, key string) (string, *Option) {
	if section == "" {
		return r.schema.Resolve(r.config, key), r.schema.Lookup("", key)
	}
	return r.schema.ResolveCommand(r.config, section, key), r.schema.Lookup(section, key)
}

func (r *resolver) fail(section, key string, err error) {
	if section != "" {
		key = section + "." + key
	}
	r.errs = append(r.errs, fmt.Errorf("config %s: %w", key, err))
}

func (r *resolver) string(section, key string) string {
	v, _ := r.value(section, key)
	return v
}

func (r *resolver) enum(section, key string) string {
	v, opt := r.value(section, key)
	if opt != nil {
		if err := opt.check(v); err != nil {
			r.fail(section, key, err)
		}
	}
	return strings.ToLower(v)
}

func (r *resolver) bool(section, key string) bool {
	v, _ := r.value(section, key)
	b, err := parseBool(v)
	if err != nil {
		r.fail(section, key, err)
	}
	return b
}

func (r *resolver) int(section, key string, minimum int) int {
	v, _ := r.value(section, key)
	i, err := strconv.Atoi(v)
	switch {
	case err != nil:
		r.fail(section, key, fmt.Errorf("expected int, got %q", v))
	case i < minimum:
		r.fail(section, key, fmt.Errorf("must be at least %d, got %d", minimum, i))
	}
	return i
}

func (r *resolver) duration(section, key string) time.Duration {
	v, _ := r.value(section, key)
	d, err := time.ParseDuration(v)
	switch {
	case err != nil:
		r.fail(section, key, fmt.Errorf("expected duration, got %q", v))
	case d <= 0:
		r.fail(section, key, fmt.Errorf("must be positive, got %s", d))
	}
	return d
}
