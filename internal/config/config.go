// Package config loads scmd host settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/host"
	"github.com/ehrlich-b/go-scmd/internal/interfaces"
	"github.com/ehrlich-b/go-scmd/internal/logging"
)

// Config is the file layout. Durations are Go duration strings ("30s")
// and sizes accept humanized values ("64MiB").
type Config struct {
	Host    HostConfig    `yaml:"host" toml:"host"`
	Backend BackendConfig `yaml:"backend" toml:"backend"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// HostConfig describes the simulated host.
type HostConfig struct {
	ID             int    `yaml:"id" toml:"id"`
	Depth          int    `yaml:"depth" toml:"depth"`
	Workers        int    `yaml:"workers" toml:"workers"`
	Timeout        string `yaml:"timeout" toml:"timeout"`
	ScanInterval   string `yaml:"scan_interval" toml:"scan_interval"`
	AllowedRetries *int   `yaml:"allowed_retries" toml:"allowed_retries"`
	BlockSize      int    `yaml:"block_size" toml:"block_size"`
	Tagged         *bool  `yaml:"tagged" toml:"tagged"`
}

// BackendConfig describes the memory backend and its stall injection.
type BackendConfig struct {
	Size       string `yaml:"size" toml:"size"`
	StallEvery int    `yaml:"stall_every" toml:"stall_every"`
	StallDelay string `yaml:"stall_delay" toml:"stall_delay"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads path, fills defaults and validates. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, scmd.NewError("LOAD_CONFIG", scmd.ErrCodeNotFound, path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return scmd.NewError("LOAD_CONFIG", scmd.ErrCodeNotSupported,
			fmt.Sprintf("unknown config format %q (want .yaml, .yml or .toml)", filepath.Ext(path)))
	}
	return nil
}

// Timeout returns the parsed host timeout.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.Host.Timeout)
	return d
}

// ScanInterval returns the parsed timeout scan interval.
func (c *Config) ScanInterval() time.Duration {
	d, _ := time.ParseDuration(c.Host.ScanInterval)
	return d
}

// StallDelay returns the parsed backend stall delay.
func (c *Config) StallDelay() time.Duration {
	d, _ := time.ParseDuration(c.Backend.StallDelay)
	return d
}

// BackendSize returns the backend size in bytes.
func (c *Config) BackendSize() int64 {
	n, _ := humanize.ParseBytes(c.Backend.Size)
	return int64(n)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.LogLevel {
	lvl, _ := logging.ParseLevel(c.Log.Level)
	return lvl
}

// HostConfig builds the host configuration over be.
func (c *Config) HostConfig(be interfaces.Backend) host.Config {
	cfg := host.DefaultConfig(be)
	cfg.ID = c.Host.ID
	cfg.Depth = c.Host.Depth
	cfg.Workers = c.Host.Workers
	cfg.Timeout = c.Timeout()
	cfg.ScanInterval = c.ScanInterval()
	cfg.BlockSize = c.Host.BlockSize
	if c.Host.AllowedRetries != nil {
		cfg.Allowed = *c.Host.AllowedRetries
	}
	if c.Host.Tagged != nil {
		cfg.Tagged = *c.Host.Tagged
	}
	return cfg
}
