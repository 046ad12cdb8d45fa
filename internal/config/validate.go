package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := ensurePositiveMap(map[string]float64{
		"render.base_sigma":   c.Render.BaseSigma,
		"render.base_width":   c.Render.BaseWidth,
		"render.min_sigma":    c.Render.MinSigma,
		"render.fade_seconds": c.Render.FadeSeconds,
	}); err != nil {
		return err
	}
	if c.Render.DarkenWeight < 0 || c.Render.DarkenWeight > 1 {
		return errors.New("render.darken_weight must be between 0 and 1")
	}
	if c.Render.OverlayWeight < 0 || c.Render.OverlayWeight > 1 {
		return errors.New("render.overlay_weight must be between 0 and 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers <= 0 {
		return errors.New("pipeline.workers must be positive")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.CRF > 51 {
		return errors.New("media.crf must be between 1 and 51")
	}
	if c.Media.MaxWidth < 2 || c.Media.MaxHeight < 2 {
		return errors.New("media.max_width and media.max_height must be at least 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
