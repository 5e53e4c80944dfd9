package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure. Every field is a default that the matching
// command-line flag overrides.
type Global struct {
	TrimHours    int    `mapstructure:"trim_hours" yaml:"trim_hours"`
	KeepHours    int    `mapstructure:"keep_hours" yaml:"keep_hours"`
	BinHours     int    `mapstructure:"bin_hours" yaml:"bin_hours"`
	PreambleRows int    `mapstructure:"preamble_rows" yaml:"preamble_rows"`
	RowPolicy    string `mapstructure:"row_policy" yaml:"row_policy"`
	Workbook     bool   `mapstructure:"workbook" yaml:"workbook"`

	// Output
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	Color     string `mapstructure:"color" yaml:"color"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"trim_hours", "keep_hours", "bin_hours", "preamble_rows", "row_policy", "workbook",
	"log_level", "log_format", "color",
}

// Defaults returns the built-in configuration.
func Defaults() Global {
	return Global{
		TrimHours:    24,
		KeepHours:    72,
		BinHours:     4,
		PreambleRows: 22,
		RowPolicy:    "pad",
		LogLevel:     "info",
		LogFormat:    "text",
		Color:        "auto",
	}
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".clams"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.clams/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CLAMS")
	v.AutomaticEnv()

	// Defaults
	d := Defaults()
	v.SetDefault("trim_hours", d.TrimHours)
	v.SetDefault("keep_hours", d.KeepHours)
	v.SetDefault("bin_hours", d.BinHours)
	v.SetDefault("preamble_rows", d.PreambleRows)
	v.SetDefault("row_policy", d.RowPolicy)
	v.SetDefault("workbook", d.Workbook)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("color", d.Color)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Get returns the value of key rendered as text.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "trim_hours":
		return strconv.Itoa(c.TrimHours), nil
	case "keep_hours":
		return strconv.Itoa(c.KeepHours), nil
	case "bin_hours":
		return strconv.Itoa(c.BinHours), nil
	case "preamble_rows":
		return strconv.Itoa(c.PreambleRows), nil
	case "row_policy":
		return c.RowPolicy, nil
	case "workbook":
		return strconv.FormatBool(c.Workbook), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "color":
		return c.Color, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// Set parses and assigns one key.
func (c *Global) Set(key, val string) error {
	positive := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		return i, nil
	}
	switch key {
	case "trim_hours":
		i, err := positive()
		if err != nil {
			return err
		}
		c.TrimHours = i
	case "keep_hours":
		i, err := positive()
		if err != nil {
			return err
		}
		c.KeepHours = i
	case "bin_hours":
		i, err := positive()
		if err != nil {
			return err
		}
		if 24%i != 0 {
			return fmt.Errorf("invalid bin_hours: %d does not divide 24", i)
		}
		c.BinHours = i
	case "preamble_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for preamble_rows: %v", val)
		}
		c.PreambleRows = i
	case "row_policy":
		switch v := strings.ToLower(val); v {
		case "pad", "strict", "truncate":
			c.RowPolicy = v
		default:
			return fmt.Errorf("invalid row_policy: %s (use pad, strict or truncate)", val)
		}
	case "workbook":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for workbook: %w", err)
		}
		c.Workbook = b
	case "log_level":
		switch v := strings.ToLower(val); v {
		case "debug", "info", "warn", "error":
			c.LogLevel = v
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch v := strings.ToLower(val); v {
		case "text", "json":
			c.LogFormat = v
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "color":
		switch v := strings.ToLower(val); v {
		case "auto", "always", "never":
			c.Color = v
		default:
			return fmt.Errorf("invalid color: %s (use auto, always or never)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
