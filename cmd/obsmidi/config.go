package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the obsmidi daemon.
//
// The controller keys (name, sources, faders, buttons, toggles) describe the
// control surface. The remaining sections configure the daemon itself and are
// all optional; DefaultConfig fills them in.
type Config struct {
	// Substring of the MIDI port name used to select the controller
	Name string `yaml:"name"`

	// MIDI channel (0-15) used by every control on the controller
	Channel int `yaml:"channel"`

	// Strict rejects unknown action names instead of ignoring them
	Strict bool `yaml:"strict"`

	// Channel id -> OBS source name
	Sources map[int]string `yaml:"sources"`

	Faders  []FaderConfig  `yaml:"faders"`
	Buttons []SwitchConfig `yaml:"buttons"`
	Toggles []SwitchConfig `yaml:"toggles"`

	OBS     OBSConfig     `yaml:"obs"`
	IPC     IPCConfig     `yaml:"ipc"`
	Logging LoggingConfig `yaml:"logging"`
}

// FaderConfig describes a continuous control.
// Pointer fields distinguish "absent" from zero.
type FaderConfig struct {
	Control  *int   `yaml:"control"`
	MinValue *int   `yaml:"min_value,omitempty"`
	MaxValue *int   `yaml:"max_value,omitempty"`
	Action   string `yaml:"action,omitempty"`
	Source   string `yaml:"source,omitempty"` // channel id or source name
}

// SwitchConfig describes a button (momentary) or a toggle (latching).
type SwitchConfig struct {
	Control    *int   `yaml:"control"`
	OffValue   *int   `yaml:"off_value,omitempty"`
	OnValue    *int   `yaml:"on_value,omitempty"`
	Action     string `yaml:"action,omitempty"`
	Source     string `yaml:"source,omitempty"`
	LED        string `yaml:"led,omitempty"`
	LEDControl *int   `yaml:"led_control,omitempty"` // defaults to Control
}

type OBSConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Password  string `yaml:"password"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Verbose   bool   `yaml:"verbose"`
}

type IPCConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with every daemon section populated.
// The controller sections are left empty.
func DefaultConfig() Config {
	return Config{
		OBS: OBSConfig{
			Host:      defaultOBSHost,
			Port:      defaultOBSPort,
			TimeoutMS: defaultOBSTimeoutMS,
			Verbose:   true,
		},
		IPC: IPCConfig{
			Enabled:    false,
			SocketPath: defaultIPCSocketPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected via KnownFields(true) so typos in key names
// surface at startup. Unknown action names are a separate matter, handled by
// the registry according to the strict setting.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries command-line overrides. Nil pointers are ignored;
// non-nil values are applied even when they are zero values.
type FlagOverrides struct {
	Device *string

	OBSHost     *string
	OBSPort     *int
	OBSPassword *string

	Strict *bool

	IPCSocketPath *string

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Device != nil {
		cfg.Name = *o.Device
	}
	if o.OBSHost != nil {
		cfg.OBS.Host = *o.OBSHost
	}
	if o.OBSPort != nil {
		cfg.OBS.Port = *o.OBSPort
	}
	if o.OBSPassword != nil {
		cfg.OBS.Password = *o.OBSPassword
	}
	if o.Strict != nil {
		cfg.Strict = *o.Strict
	}
	if o.IPCSocketPath != nil {
		// Naming a socket on the command line implies enabling IPC
		cfg.IPC.SocketPath = *o.IPCSocketPath
		cfg.IPC.Enabled = true
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks the daemon sections after defaults, file and overrides are
// applied. Control entries are checked by NewRegistry.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("name must not be empty")
	}
	if c.Channel < 0 || c.Channel > 15 {
		return errors.New("channel must be between 0 and 15")
	}

	if c.OBS.Host == "" {
		return errors.New("obs.host must not be empty")
	}
	if c.OBS.Port <= 0 || c.OBS.Port > 65535 {
		return errors.New("obs.port must be between 1 and 65535")
	}
	if c.OBS.TimeoutMS <= 0 {
		return errors.New("obs.timeout_ms must be > 0")
	}

	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		return errors.New("ipc.enabled is true but ipc.socket_path is empty")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// OBSAddress returns the obs-websocket URL for the configured host and port.
func (c *Config) OBSAddress() string {
	return fmt.Sprintf("ws://%s:%d", c.OBS.Host, c.OBS.Port)
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
