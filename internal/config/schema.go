package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// Kind is the value type of an option.
type Kind uint8

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindDuration
	// KindEnum values are one of Option.Choices, case-insensitively.
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDuration:
		return "duration"
	case KindEnum:
		return "enum"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Option declares one configuration key.
type Option struct {
	Key         string
	Section     string // "" for global
	Kind        Kind
	Choices     []string
	Default     string
	EnvVar      string
	Description string
}

func (o *Option) check(value string) error {
	var ok bool
	switch o.Kind {
	case KindString:
		return nil
	case KindEnum:
		if !slices.Contains(o.Choices, strings.ToLower(value)) {
			return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Choices, "|"), value)
		}
		return nil
	case KindBool:
		_, err := parseBool(value)
		ok = err == nil
	case KindInt:
		_, err := strconv.Atoi(value)
		ok = err == nil
	case KindDuration:
		_, err := time.ParseDuration(value)
		ok = err == nil
	default:
		return fmt.Errorf("unsupported option kind %s", o.Kind)
	}
	if !ok {
		return fmt.Errorf("expected %s, got %q", o.Kind, value)
	}
	return nil
}

type optionRef struct{ section, key string }

// Schema is the set of options planpool understands. Command sections see
// the global options too, so a global key is valid in any section.
type Schema struct {
	order []optionRef
	index map[optionRef]*Option
}

// NewSchema returns a schema declaring opts. A repeated key replaces the
// earlier declaration.
func NewSchema(opts ...Option) *Schema {
	s := &Schema{index: make(map[optionRef]*Option, len(opts))}
	for _, o := range opts {
		ref := optionRef{o.Section, o.Key}
		if _, dup := s.index[ref]; !dup {
			s.order = append(s.order, ref)
		}
		s.index[ref] = &o
	}
	return s
}

// Lookup returns the option declared for key in section ("" for global), or
// nil.
func (s *Schema) Lookup(section, key string) *Option {
	return s.index[optionRef{section, key}]
}

// option is Lookup with the fallback from a section to the global options.
func (s *Schema) option(section, key string) *Option {
	if o := s.Lookup(section, key); o != nil || section == "" {
		return o
	}
	return s.Lookup("", key)
}

// IsKnown reports whether key may appear in section.
func (s *Schema) IsKnown(section, key string) bool {
	return s.option(section, key) != nil
}

// GlobalOptions returns the global options in declaration order.
func (s *Schema) GlobalOptions() []Option { return s.SectionOptions("") }

// SectionOptions returns the options declared for section, in declaration
// order.
func (s *Schema) SectionOptions(section string) []Option {
	var out []Option
	for _, ref := range s.order {
		if ref.section == section {
			out = append(out, *s.index[ref])
		}
	}
	return out
}

// Sections returns the names of the declared command sections, sorted.
func (s *Schema) Sections() []string {
	names := make(map[string]struct{})
	for _, ref := range s.order {
		if ref.section != "" {
			names[ref.section] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(names))
}

// Resolve returns the effective value of a global key: its environment
// variable if set, else the configured value, else the default.
func (s *Schema) Resolve(c *Config, key string) string {
	return s.resolve(c, "", key)
}

// ResolveCommand is Resolve for a key read by command. The section value
// shadows the global one, and a section option's environment variable
// shadows both.
func (s *Schema) ResolveCommand(c *Config, command, key string) string {
	return s.resolve(c, command, key)
}

func (s *Schema) resolve(c *Config, section, key string) string {
	o := s.option(section, key)
	if o != nil && o.EnvVar != "" {
		if v, ok := os.LookupEnv(o.EnvVar); ok {
			return v
		}
	}
	get := c.GetGlobalOption
	if section != "" {
		get = func(key string) (string, bool) { return c.GetCommandOption(section, key) }
	}
	if v, ok := get(key); ok {
		return v
	}
	if o != nil {
		return o.Default
	}
	return ""
}

// ValidateConfig returns a sorted description of every unknown key and every
// value of the wrong kind in c. Range checks are left to Settings.
func ValidateConfig(c *Config, s *Schema) []string {
	var issues []string
	for key, value := range c.Global {
		o := s.Lookup("", key)
		if o == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
		} else if err := o.check(value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, opts := range c.Commands {
		for key, value := range opts {
			o := s.option(section, key)
			if o == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
			} else if err := o.check(value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	slices.Sort(issues)
	return issues
}

// FormatHelp renders the schema as a reference, globals first.
func (s *Schema) FormatHelp() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 8, 2, ' ', 0)
	writeGroup := func(title string, opts []Option) {
		if len(opts) == 0 {
			return
		}
		_, _ = fmt.Fprintf(w, "%s\n", title)
		for _, o := range opts {
			_, _ = fmt.Fprintf(w, "  %s\t%s%s\n", o.Key, o.Description, optionNotes(o))
		}
	}
	writeGroup("Global Options:", s.GlobalOptions())
	for _, section := range s.Sections() {
		writeGroup(fmt.Sprintf("\n[%s] Options:", section), s.SectionOptions(section))
	}
	_ = w.Flush()
	return b.String()
}

func optionNotes(o Option) string {
	var notes []string
	switch o.Kind {
	case KindString:
	case KindEnum:
		notes = append(notes, "one of: "+strings.Join(o.Choices, "|"))
	default:
		notes = append(notes, "type: "+o.Kind.String())
	}
	if o.Default != "" {
		notes = append(notes, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		notes = append(notes, "env: "+o.EnvVar)
	}
	if len(notes) == 0 {
		return ""
	}
	return " (" + strings.Join(notes, ", ") + ")"
}

// DefaultSchema returns the options planpool reads.
func DefaultSchema() *Schema {
	return NewSchema(defaultOptions...)
}

var defaultOptions = []Option{
	{Key: "pool.size", Kind: KindInt, Default: "4", EnvVar: "PLANPOOL_POOL_SIZE", Description: "Number of planning workers"},

	{Key: "drain.mode", Kind: KindEnum, Choices: []string{"fixed", "frame"}, Default: "fixed", EnvVar: "PLANPOOL_DRAIN_MODE", Description: "Update cadence that delivers results"},
	{Key: "drain.frame-interval", Kind: KindDuration, Default: "16ms", Description: "Delivery period in frame mode"},
	{Key: "drain.fixed-step", Kind: KindDuration, Default: "20ms", Description: "Delivery period in fixed mode"},
	{Key: "drain.strict", Kind: KindBool, Default: "false", EnvVar: "PLANPOOL_DRAIN_STRICT", Description: "Reject delivery from any goroutine but the first"},

	{Key: "planner.max-ticks", Kind: KindInt, Default: "256", Description: "Plan tree tick budget per search"},
	{Key: "planner.expr-cache-size", Kind: KindInt, Default: "1000", Description: "Compiled condition expression cache size"},

	{Key: "log.level", Kind: KindEnum, Choices: []string{"debug", "info", "warn", "error"}, Default: "info", EnvVar: "PLANPOOL_LOG_LEVEL", Description: "Log level"},
	{Key: "log.format", Kind: KindEnum, Choices: []string{"text", "json"}, Default: "text", Description: "Log format on stderr"},
	{Key: "log.file", Kind: KindString, EnvVar: "PLANPOOL_LOG_FILE", Description: "Log file path (JSON output)"},
	{Key: "log.max-size-mb", Kind: KindInt, Default: "10", Description: "Max log file size in MB before rotation"},
	{Key: "log.max-files", Kind: KindInt, Default: "5", Description: "Max number of rotated log backup files"},

	{Key: "timeout", Section: "run", Kind: KindDuration, Default: "30s", EnvVar: "PLANPOOL_RUN_TIMEOUT", Description: "Give up waiting for deliveries after this long"},
	{Key: "output", Section: "run", Kind: KindEnum, Choices: []string{"text", "json"}, Default: "text", Description: "Result report format"},
}
