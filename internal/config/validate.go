package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	if strings.TrimSpace(c.Paths.BaseURL) == "" {
		return errors.New("paths.base_url must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	mode := strings.ToLower(strings.TrimSpace(c.Workflow.Mode))
	if mode != string(ModeQueue) && mode != string(ModeReconcile) {
		return fmt.Errorf("workflow.mode must be %q or %q", ModeQueue, ModeReconcile)
	}
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.StageTimeoutSeconds <= 0 {
		return errors.New("workflow.stage_timeout_seconds must be positive")
	}
	if c.Workflow.IngestInterval <= 0 {
		return errors.New("workflow.ingest_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
