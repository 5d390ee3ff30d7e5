package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRenderWorker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	if p.PollIntervalSeconds <= 0 {
		return errors.New("pipeline.poll_interval_seconds must be positive")
	}
	if p.MaxPollAttempts <= 0 {
		return errors.New("pipeline.max_poll_attempts must be positive")
	}
	if p.MinDurationSeconds <= 0 {
		return errors.New("pipeline.min_duration_seconds must be positive")
	}
	if p.MaxDurationSeconds < p.MinDurationSeconds {
		return fmt.Errorf("pipeline.max_duration_seconds must be >= min_duration_seconds (%d)", p.MinDurationSeconds)
	}
	if p.FPS <= 0 {
		return errors.New("pipeline.fps must be positive")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return errors.New("pipeline.width and pipeline.height must be positive")
	}
	return nil
}

func (c *Config) validateRenderWorker() error {
	if c.RenderWorker.BaseURL == "" {
		return errors.New("render_worker.base_url must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
