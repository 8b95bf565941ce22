package config

import (
	"github.com/dustin/go-humanize"

	"github.com/ehrlich-b/go-scmd/internal/constants"
)

// Default returns the built-in configuration.
func Default() Config {
	allowed := constants.DefaultAllowedRetries
	tagged := true
	return Config{
		Host: HostConfig{
			Depth:          constants.DefaultQueueDepth,
			Workers:        constants.DefaultWorkers,
			Timeout:        constants.DefaultCommandTimeout.String(),
			ScanInterval:   constants.DefaultScanInterval.String(),
			AllowedRetries: &allowed,
			BlockSize:      constants.DefaultLogicalBlockSize,
			Tagged:         &tagged,
		},
		Backend: BackendConfig{
			Size:       humanize.IBytes(constants.DefaultBackendSize),
			StallDelay: "0s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Normalize fills zero values with defaults and canonicalizes names.
func (c *Config) Normalize() {
	def := Default()

	if c.Host.Depth == 0 {
		c.Host.Depth = def.Host.Depth
	}
	if c.Host.Workers == 0 {
		c.Host.Workers = def.Host.Workers
	}
	if c.Host.Timeout == "" {
		c.Host.Timeout = def.Host.Timeout
	}
	if c.Host.ScanInterval == "" {
		c.Host.ScanInterval = def.Host.ScanInterval
	}
	if c.Host.AllowedRetries == nil {
		c.Host.AllowedRetries = def.Host.AllowedRetries
	}
	if c.Host.BlockSize == 0 {
		c.Host.BlockSize = def.Host.BlockSize
	}
	if c.Host.Tagged == nil {
		c.Host.Tagged = def.Host.Tagged
	}

	if c.Backend.Size == "" {
		c.Backend.Size = def.Backend.Size
	}
	if c.Backend.StallDelay == "" {
		c.Backend.StallDelay = def.Backend.StallDelay
	}

	c.Log.Level = normalizeName(c.Log.Level, def.Log.Level)
	c.Log.Format = normalizeName(c.Log.Format, def.Log.Format)
}
