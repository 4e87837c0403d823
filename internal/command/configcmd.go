package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joeycumines/planpool/internal/config"
)

// ConfigCommand shows, checks and edits the configuration.
//
//	config [show]        effective value of every option
//	config schema        option reference
//	config validate      problems with the loaded file and environment
//	config <key>         effective value of one global option
//	config <key> <value> set a global option and persist it
type ConfigCommand struct {
	*BaseCommand
	config *config.Config
	schema *config.Schema
	path   string
}

// NewConfigCommand returns the config command for cfg. Writes go to path if
// given, else to the path GetConfigPath resolves when the command runs.
func NewConfigCommand(cfg *config.Config, path ...string) *ConfigCommand {
	c := &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Show, check or change configuration settings",
			"config [show | schema | validate | <key> | <key> <value>]",
		),
		config: cfg,
		schema: config.DefaultSchema(),
	}
	if len(path) > 0 {
		c.path = path[0]
	}
	return c
}

func (c *ConfigCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	switch {
	case len(args) == 0 || args[0] == "show":
		return c.show(stdout)
	case args[0] == "schema":
		_, err := io.WriteString(stdout, c.schema.FormatHelp())
		return err
	case args[0] == "validate":
		return c.validate(stdout)
	case len(args) == 1:
		return c.get(stdout, args[0])
	case len(args) == 2:
		return c.set(stdout, stderr, args[0], args[1])
	}
	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	_, _ = fmt.Fprintf(stderr, "Usage: planpool %s\n", c.Usage())
	return errors.New("config: too many arguments")
}

func (c *ConfigCommand) show(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, o := range c.schema.GlobalOptions() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", o.Key, c.schema.Resolve(c.config, o.Key))
	}
	for _, section := range c.schema.Sections() {
		_, _ = fmt.Fprintf(tw, "\n[%s]\t\n", section)
		for _, o := range c.schema.SectionOptions(section) {
			_, _ = fmt.Fprintf(tw, "%s\t%s\n", o.Key, c.schema.ResolveCommand(c.config, section, o.Key))
		}
	}
	return tw.Flush()
}

func (c *ConfigCommand) get(w io.Writer, key string) error {
	if c.schema.Lookup("", key) == nil {
		_, err := fmt.Fprintf(w, "Configuration key '%s' not found\n", key)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", key, c.schema.Resolve(c.config, key))
	return err
}

// set refuses values the schema would warn about, so the file never gains a
// problem through this command.
func (c *ConfigCommand) set(stdout, stderr io.Writer, key, value string) error {
	probe := config.NewConfig()
	probe.SetGlobalOption(key, value)
	if issues := config.ValidateConfig(probe, c.schema); len(issues) != 0 {
		_, _ = fmt.Fprintf(stderr, "Refusing to set %s: %s\n", key, issues[0])
		return fmt.Errorf("config: invalid value for %s", key)
	}
	c.config.SetGlobalOption(key, value)

	path := c.path
	if path == "" {
		path, _ = config.GetConfigPath()
	}
	if path != "" {
		if err := config.SetKeyInFile(path, key, value); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: %s not saved: %v\n", key, err)
		}
	}
	_, err := fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
	return err
}

// validate reports schema issues in the file. A file without any is also
// resolved into settings, which covers environment overrides and ranges.
func (c *ConfigCommand) validate(w io.Writer) error {
	issues := config.ValidateConfig(c.config, c.schema)
	if len(issues) == 0 {
		if _, err := c.schema.Settings(c.config); err != nil {
			for _, e := range unjoin(err) {
				issues = append(issues, e.Error())
			}
		}
	}
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, "Configuration is valid.")
		return err
	}
	_, _ = fmt.Fprintf(w, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(w, "  - %s\n", issue)
	}
	return nil
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
