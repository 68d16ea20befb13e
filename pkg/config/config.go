// Package config loads the YAML settings shared by the phantom tools.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chazu/blockphantom/pkg/phantom"
	"gopkg.in/yaml.v3"
)

// Config holds kit, engine and logging settings.
type Config struct {
	MeshCells   int             `yaml:"mesh_cells"`
	Connector   ConnectorConfig `yaml:"connector"`
	Tolerance   float64         `yaml:"tolerance"`
	EvalTimeout time.Duration   `yaml:"eval_timeout"`
	LogLevel    string          `yaml:"log_level"`
	Format      string          `yaml:"format"`
}

// ConnectorConfig sizes the connector rods placed in joints.
type ConnectorConfig struct {
	Length float64 `yaml:"length"`
	Radius float64 `yaml:"radius"`
}

// Output formats understood by the build command.
var Formats = []string{"json", "stl", "3mf"}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		MeshCells: 200,
		Connector: ConnectorConfig{
			Length: phantom.DefaultConnectorLength,
			Radius: phantom.DefaultConnectorRadius,
		},
		Tolerance:   1e-6,
		EvalTimeout: 5 * time.Second,
		LogLevel:    "info",
		Format:      "json",
	}
}

// Loader handles loading and validating YAML configuration files.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a YAML file over the defaults. Keys missing from the file
// keep their default value.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes YAML bytes over the defaults and validates the result.
func (l *Loader) Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := l.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges. All problems are reported together.
func (l *Loader) Validate(cfg *Config) error {
	var errs []error
	if cfg.MeshCells < 8 || cfg.MeshCells > 1000 {
		errs = append(errs, fmt.Errorf("mesh_cells must be in [8, 1000], got %d", cfg.MeshCells))
	}
	if cfg.Connector.Length <= 0 {
		errs = append(errs, fmt.Errorf("connector.length must be positive, got %g", cfg.Connector.Length))
	}
	if cfg.Connector.Radius <= 0 || cfg.Connector.Radius >= phantom.HoleRadius {
		errs = append(errs, fmt.Errorf("connector.radius must be in (0, %g), got %g", phantom.HoleRadius, cfg.Connector.Radius))
	}
	if cfg.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %g", cfg.Tolerance))
	}
	if cfg.EvalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("eval_timeout must be positive, got %s", cfg.EvalTimeout))
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if !validFormat(cfg.Format) {
		errs = append(errs, fmt.Errorf("format must be one of %s, got %q", strings.Join(Formats, ", "), cfg.Format))
	}
	return errors.Join(errs...)
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
}

// KitOptions returns the phantom.Kit options these settings describe.
func (c *Config) KitOptions(logger *slog.Logger) []phantom.KitOption {
	return []phantom.KitOption{
		phantom.WithConnectorSize(c.Connector.Length, c.Connector.Radius),
		phantom.WithTolerance(c.Tolerance),
		phantom.WithLogger(logger),
	}
}
