package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ehrlich-b/go-scmd/internal/constants"
	"github.com/ehrlich-b/go-scmd/internal/logging"
)

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.validateHost()...)
	errs = append(errs, c.validateBackend()...)
	errs = append(errs, c.validateLog()...)
	return errors.Join(errs...)
}

func (c *Config) validateHost() []error {
	var errs []error
	h := c.Host
	if h.ID < 0 {
		errs = append(errs, errors.New("host.id must not be negative"))
	}
	if h.Depth < 1 || h.Depth > constants.MaxQueueDepth {
		errs = append(errs, fmt.Errorf("host.depth must be between 1 and %d", constants.MaxQueueDepth))
	}
	if h.Workers < 1 {
		errs = append(errs, errors.New("host.workers must be at least 1"))
	}
	if d, err := time.ParseDuration(h.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("host.timeout %q must be a positive duration", h.Timeout))
	}
	if d, err := time.ParseDuration(h.ScanInterval); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("host.scan_interval %q must be a positive duration", h.ScanInterval))
	}
	if h.AllowedRetries != nil && *h.AllowedRetries < 0 {
		errs = append(errs, errors.New("host.allowed_retries must not be negative"))
	}
	if h.BlockSize < 512 || h.BlockSize&(h.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("host.block_size %d must be a power of two >= 512", h.BlockSize))
	}
	return errs
}

func (c *Config) validateBackend() []error {
	var errs []error
	b := c.Backend
	size, err := humanize.ParseBytes(b.Size)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("backend.size %q: %w", b.Size, err))
	case size == 0 || size%uint64(max(c.Host.BlockSize, 1)) != 0:
		errs = append(errs, fmt.Errorf("backend.size %q must be a non-zero multiple of the block size", b.Size))
	}
	if b.StallEvery < 0 {
		errs = append(errs, errors.New("backend.stall_every must not be negative"))
	}
	if d, err := time.ParseDuration(b.StallDelay); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("backend.stall_delay %q must be a non-negative duration", b.StallDelay))
	}
	return errs
}

func (c *Config) validateLog() []error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errs
}

func normalizeName(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
