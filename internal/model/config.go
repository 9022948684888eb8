// Package model defines shared configuration structures used to initialize the waypoint updater.
package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is omitted from the YAML file.
const (
	DefaultLookahead  = 200
	DefaultRateHz     = 10.0
	DefaultListenAddr = ":10000"
	DefaultWireFormat = "json"
	DefaultBaud       = 9600

	TailDrop  = "drop"
	TailClamp = "clamp"
)

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Global  GlobalConfig  `yaml:"global"`
	Updater UpdaterConfig `yaml:"updater"`
	Path    PathConfig    `yaml:"path"`
	Pose    DeviceConfig  `yaml:"pose"`
	GPS     GPSConfig     `yaml:"gps"`
	Output  DeviceConfig  `yaml:"output"`
}

// GlobalConfig defines process-wide settings.
type GlobalConfig struct {
	WireFormat string `yaml:"wire_format"` // default wire format (csv/json)
	ListenAddr string `yaml:"listen_addr"` // hub address, empty string disables it
	StorePath  string `yaml:"store_path"`  // bbolt file for the last loaded path
}

// UpdaterConfig holds the window publisher tunables.
type UpdaterConfig struct {
	Lookahead  int     `yaml:"lookahead"`
	RateHz     float64 `yaml:"rate_hz"`
	TailPolicy string  `yaml:"tail_policy"` // drop or clamp
}

// PathConfig points at a path file loaded once at startup.
type PathConfig struct {
	File   string `yaml:"file"`
	Format string `yaml:"format"` // csv or json, guessed from the extension when empty
}

// DeviceConfig describes a serial line device.
type DeviceConfig struct {
	Device     string `yaml:"device"`
	Baud       int    `yaml:"baud"`
	WireFormat string `yaml:"wire_format"`
}

// GPSConfig describes an NMEA receiver and the local origin used for projection.
type GPSConfig struct {
	Device    string  `yaml:"device"`
	Baud      int     `yaml:"baud"`
	OriginLat float64 `yaml:"origin_lat"`
	OriginLon float64 `yaml:"origin_lon"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.Updater.Lookahead < 0 {
		return fmt.Errorf("lookahead must be non-negative, got %d", c.Updater.Lookahead)
	}
	if c.Updater.RateHz < 0 {
		return fmt.Errorf("rate_hz must be non-negative, got %f", c.Updater.RateHz)
	}
	switch c.Updater.TailPolicy {
	case "", TailDrop, TailClamp:
	default:
		return fmt.Errorf("unknown tail_policy %q", c.Updater.TailPolicy)
	}
	for name, f := range map[string]string{
		"global":      c.Global.WireFormat,
		"pose":        c.Pose.WireFormat,
		"output":      c.Output.WireFormat,
		"path format": c.Path.Format,
	} {
		if f != "" && f != "csv" && f != "json" {
			return fmt.Errorf("%s: unknown wire format %q", name, f)
		}
	}
	if c.GPS.OriginLat < -90 || c.GPS.OriginLat > 90 {
		return fmt.Errorf("gps origin_lat out of range: %f", c.GPS.OriginLat)
	}
	return nil
}

// LookaheadCount returns the configured window length or the default.
func (u UpdaterConfig) LookaheadCount() int {
	if u.Lookahead == 0 {
		return DefaultLookahead
	}
	return u.Lookahead
}

// Interval converts the tick rate into a ticker period.
func (u UpdaterConfig) Interval() time.Duration {
	hz := u.RateHz
	if hz == 0 {
		hz = DefaultRateHz
	}
	return time.Duration(float64(time.Second) / hz)
}

// Tail returns the tail policy, defaulting to drop.
func (u UpdaterConfig) Tail() string {
	if u.TailPolicy == "" {
		return TailDrop
	}
	return u.TailPolicy
}

// Format returns the device wire format, falling back to the global one.
func (d DeviceConfig) Format(global string) string {
	if d.WireFormat != "" {
		return d.WireFormat
	}
	if global != "" {
		return global
	}
	return DefaultWireFormat
}

// BaudRate returns the configured baud rate or the default.
func (d DeviceConfig) BaudRate() int {
	if d.Baud == 0 {
		return DefaultBaud
	}
	return d.Baud
}

// Addr returns the hub listen address. An explicit "-" disables the hub.
func (g GlobalConfig) Addr() string {
	switch g.ListenAddr {
	case "":
		return DefaultListenAddr
	case "-":
		return ""
	}
	return g.ListenAddr
}
