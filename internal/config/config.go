// Package config reads and writes the planpool configuration file.
//
// The file is line oriented. Each non-blank line is either a "# comment", a
// "[section]" header, or an option: a key, whitespace, then the rest of the
// line as its value. Options before the first header are global; options
// after a header belong to the command of that name.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"
)

// Config holds the raw option values of one configuration file. Values are
// not interpreted here; see Schema.
type Config struct {
	// Global options, by key.
	Global map[string]string
	// Commands holds the options of each [section], by section then key.
	Commands map[string]map[string]string
	// Warnings lists schema violations found while loading. They never stop
	// a load.
	Warnings []string
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{
		Global:   make(map[string]string),
		Commands: make(map[string]map[string]string),
	}
}

// Load reads the file GetConfigPath names. A missing file is an empty
// configuration.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration at path. Symlinks are refused.
func LoadFromPath(path string) (*Config, error) {
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("config: %w", err)
	case info.Mode()&fs.ModeSymlink != 0:
		return nil, fmt.Errorf("config: symlink not allowed in config path: %s", path)
	case info.IsDir():
		return nil, fmt.Errorf("config: %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader parses a configuration document and checks it against
// DefaultSchema, recording any problems in Warnings.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := NewConfig()
	var section string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		switch l := parseLine(sc.Text()); l.kind {
		case lineHeader:
			section = l.section
			if section != "" && cfg.Commands[section] == nil {
				cfg.Commands[section] = make(map[string]string)
			}
		case lineOption:
			if section == "" {
				cfg.SetGlobalOption(l.key, l.value)
			} else {
				cfg.SetCommandOption(section, l.key, l.value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	cfg.Warnings = ValidateConfig(cfg, DefaultSchema())
	return cfg, nil
}

type lineKind uint8

const (
	lineBlank lineKind = iota
	lineComment
	lineHeader
	lineOption
)

type line struct {
	kind    lineKind
	section string
	key     string
	value   string
}

func parseLine(text string) line {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return line{kind: lineBlank}
	case text[0] == '#':
		return line{kind: lineComment}
	case len(text) > 1 && text[0] == '[' && text[len(text)-1] == ']':
		return line{kind: lineHeader, section: strings.TrimSpace(text[1 : len(text)-1])}
	}
	key, value := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		key, value = text[:i], strings.TrimSpace(text[i:])
	}
	return line{kind: lineOption, key: key, value: value}
}

// HasWarnings reports whether loading found problems.
func (c *Config) HasWarnings() bool { return len(c.Warnings) > 0 }

// GetGlobalOption returns a global option.
func (c *Config) GetGlobalOption(key string) (string, bool) {
	v, ok := c.Global[key]
	return v, ok
}

// GetCommandOption returns an option of command's section, falling back to
// the global option of the same key.
func (c *Config) GetCommandOption(command, key string) (string, bool) {
	if v, ok := c.Commands[command][key]; ok {
		return v, true
	}
	return c.GetGlobalOption(key)
}

// SetGlobalOption sets a global option in memory.
func (c *Config) SetGlobalOption(key, value string) {
	c.Global[key] = value
}

// SetCommandOption sets an option in command's section in memory.
func (c *Config) SetCommandOption(command, key, value string) {
	opts := c.Commands[command]
	if opts == nil {
		opts = make(map[string]string)
		c.Commands[command] = opts
	}
	opts[key] = value
}

var boolWords = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true,
	"false": false, "no": false, "off": false, "0": false,
}

func parseBool(s string) (bool, error) {
	if b, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]; ok {
		return b, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}
