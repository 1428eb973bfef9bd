package config

import "time"

type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

const FileName = "stash.config.toml"

type Config struct {
	ScenarioDir string         `toml:"scenarioDir"`
	Log         LogConfig      `toml:"log"`
	Watch       WatchConfig    `toml:"watch"`
	Devtools    DevtoolsConfig `toml:"devtools"`
	Report      ReportConfig   `toml:"report"`
}

type LogConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
}

type WatchConfig struct {
	DebounceMs int `toml:"debounce"`
}

type DevtoolsConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	Metrics      bool     `toml:"metrics"`
	CheckOrigin  bool     `toml:"checkOrigin"`
	AllowOrigins []string `toml:"allowOrigins"`
	StepDelayMs  int      `toml:"stepDelay"`
}

type ReportConfig struct {
	Style  string `toml:"style"`
	OutDir string `toml:"outDir"`
}

func DefaultConfig() *Config {
	return &Config{
		ScenarioDir: "./scenarios",
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatConsole,
		},
		Watch: WatchConfig{
			DebounceMs: 100,
		},
		Devtools: DevtoolsConfig{
			Host:         "localhost",
			Port:         4323,
			Metrics:      true,
			CheckOrigin:  false,
			AllowOrigins: []string{},
			StepDelayMs:  250,
		},
		Report: ReportConfig{
			Style:  "monokai",
			OutDir: "./reports",
		},
	}
}

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

func (d DevtoolsConfig) StepDelay() time.Duration {
	return time.Duration(d.StepDelayMs) * time.Millisecond
}
