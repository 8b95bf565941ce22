package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/go-scmd/internal/config"
	"github.com/ehrlich-b/go-scmd/internal/logging"
)

type commandContext struct {
	configFlag    string
	logLevelFlag  string
	logFormatFlag string

	config *config.Config
	logger *logging.Logger
}

// setup loads configuration and installs the process logger. Command line
// log settings override the file.
func (c *commandContext) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(strings.TrimSpace(c.configFlag))
	if err != nil {
		return err
	}
	if c.logLevelFlag != "" {
		cfg.Log.Level = c.logLevelFlag
	}
	if c.logFormatFlag != "" {
		cfg.Log.Format = c.logFormatFlag
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	c.config = cfg
	c.logger = logging.NewLogger(&logging.Config{
		Level:  cfg.LogLevel(),
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	logging.SetDefault(c.logger)
	return nil
}

func (c *commandContext) close() error {
	if c.logger == nil {
		return nil
	}
	return c.logger.Close()
}
