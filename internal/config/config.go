package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ryu-ofctl/pkg/ryu"
)

// Config is the on-disk configuration. Every field can be overridden by the
// matching command line flag.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Log        LogConfig        `yaml:"log"`
	Workers    int              `yaml:"workers,omitempty"`
	// MetricsFile receives the controller metrics in textfile format when set.
	MetricsFile string `yaml:"metricsFile,omitempty"`
}

type ControllerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DefaultPriority *uint16       `yaml:"defaultPriority,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

func Default() *Config {
	return &Config{
		Controller: ControllerConfig{
			Host: ryu.DefaultHost,
			Port: ryu.DefaultPort,
		},
		Log: LogConfig{Level: "INFO"},
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Controller.Host) == "" {
		return fmt.Errorf("controller.host must not be empty")
	}
	if c.Controller.Port <= 0 || c.Controller.Port > 65535 {
		return fmt.Errorf("controller.port %d out of range", c.Controller.Port)
	}
	if c.Controller.Timeout < 0 {
		return fmt.Errorf("controller.timeout must not be negative")
	}
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// ClientConfig returns the controller client settings.
func (c *Config) ClientConfig() ryu.Config {
	return ryu.Config{
		Host:            c.Controller.Host,
		Port:            c.Controller.Port,
		DefaultPriority: c.Controller.DefaultPriority,
	}
}
