package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes cfg as TOML, replacing any existing file.
func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Log.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	case "":
		c.Log.Level = LogLevelInfo
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	switch c.Log.Format {
	case LogFormatConsole, LogFormatJSON:
	case "":
		c.Log.Format = LogFormatConsole
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Log.Format)
	}

	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("invalid watch debounce: %dms", c.Watch.DebounceMs)
	}

	if c.Devtools.Port < 0 || c.Devtools.Port > 65535 {
		return fmt.Errorf("invalid devtools port: %d", c.Devtools.Port)
	}

	if c.Devtools.StepDelayMs < 0 {
		return fmt.Errorf("invalid devtools step delay: %dms", c.Devtools.StepDelayMs)
	}

	if c.Devtools.Port == 0 {
		c.Devtools.Port = 4323
	}

	if c.Devtools.Host == "" {
		c.Devtools.Host = "localhost"
	}

	if c.ScenarioDir == "" {
		c.ScenarioDir = "./scenarios"
	}

	if c.Report.Style == "" {
		c.Report.Style = "monokai"
	}

	if c.Report.OutDir == "" {
		c.Report.OutDir = "./reports"
	}

	return nil
}

func (c *Config) DevtoolsAddr() string {
	return fmt.Sprintf("%s:%d", c.Devtools.Host, c.Devtools.Port)
}
