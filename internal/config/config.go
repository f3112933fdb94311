package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/termrepl/internal/logging"
)

// Config holds every termrepl setting.
type Config struct {
	REPL    REPLConfig    `toml:"repl" yaml:"repl"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Log     LogConfig     `toml:"log" yaml:"log"`
	Web     WebConfig     `toml:"web" yaml:"web"`
}

// REPLConfig configures the read-eval-print loop.
type REPLConfig struct {
	Prompt       string `toml:"prompt" yaml:"prompt"`
	Banner       bool   `toml:"banner" yaml:"banner"`
	HistoryLimit int    `toml:"history_limit" yaml:"history_limit"`
	StepLimit    int    `toml:"step_limit" yaml:"step_limit"`
}

// StorageConfig selects where programs are saved. At most one of Dir and
// Database may be set; neither means an in-memory drive.
type StorageConfig struct {
	Dir      string `toml:"dir" yaml:"dir"`
	Database string `toml:"database" yaml:"database"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// WebConfig configures the web console server.
type WebConfig struct {
	Listen         string   `toml:"listen" yaml:"listen"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		REPL: REPLConfig{
			Prompt:       "> ",
			Banner:       true,
			HistoryLimit: 1000,
			StepLimit:    1_000_000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Web: WebConfig{
			Listen: ":8080",
		},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Web.AllowedOrigins = append([]string(nil), c.Web.AllowedOrigins...)
	return &out
}

// Validate checks settings that the type system cannot.
func (c *Config) Validate() error {
	if c.REPL.HistoryLimit < 0 {
		return &ValidationError{Path: "repl.history_limit", Message: "must not be negative", Value: c.REPL.HistoryLimit}
	}
	if c.REPL.StepLimit < 0 {
		return &ValidationError{Path: "repl.step_limit", Message: "must not be negative", Value: c.REPL.StepLimit}
	}
	if c.Storage.Dir != "" && c.Storage.Database != "" {
		return &ValidationError{Path: "storage", Message: "dir and database are mutually exclusive", Value: c.Storage}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Path: "log.level", Message: err.Error(), Value: c.Log.Level}
	}
	return nil
}

// setters maps setting paths to functions parsing a string value.
var setters = map[string]func(c *Config, v string) error{
	"repl.prompt": func(c *Config, v string) error {
		c.REPL.Prompt = v
		return nil
	},
	"repl.banner": func(c *Config, v string) error {
		return parseBool(v, &c.REPL.Banner)
	},
	"repl.history_limit": func(c *Config, v string) error {
		return parseInt(v, &c.REPL.HistoryLimit)
	},
	"repl.step_limit": func(c *Config, v string) error {
		return parseInt(v, &c.REPL.StepLimit)
	},
	"storage.dir": func(c *Config, v string) error {
		c.Storage.Dir = v
		return nil
	},
	"storage.database": func(c *Config, v string) error {
		c.Storage.Database = v
		return nil
	},
	"log.level": func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	},
	"log.file": func(c *Config, v string) error {
		c.Log.File = v
		return nil
	},
	"web.listen": func(c *Config, v string) error {
		c.Web.Listen = v
		return nil
	},
	"web.allowed_origins": func(c *Config, v string) error {
		c.Web.AllowedOrigins = splitList(v)
		return nil
	},
}

// Set parses value into the setting at path, e.g. "repl.prompt".
func (c *Config) Set(path, value string) error {
	set, ok := setters[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	if err := set(c, value); err != nil {
		return &ValidationError{Path: path, Message: err.Error(), Value: value}
	}
	return nil
}

// Paths returns every settable path in sorted order.
func Paths() []string {
	paths := make([]string, 0, len(setters))
	for p := range setters {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func parseBool(s string, dst *bool) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		*dst = true
	case "false", "no", "off", "0":
		*dst = false
	default:
		return fmt.Errorf("not a boolean")
	}
	return nil
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not an integer")
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
