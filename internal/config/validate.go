package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	switch c.Camera.Source {
	case CameraSourceDevice:
		if c.Camera.Width < 0 || c.Camera.Height < 0 {
			return errors.New("camera.width and camera.height must be non-negative")
		}
	case CameraSourceDirectory:
		if strings.TrimSpace(c.Camera.Directory) == "" {
			return errors.New("camera.directory must be set when camera.source is \"directory\"")
		}
	default:
		return fmt.Errorf("camera.source: unsupported value %q (want %q or %q)", c.Camera.Source, CameraSourceDevice, CameraSourceDirectory)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	rates := []struct {
		key   string
		value int
	}{
		{"pipeline.capture_fps", c.Pipeline.CaptureFPS},
		{"pipeline.detect_fps", c.Pipeline.DetectFPS},
		{"pipeline.validate_fps", c.Pipeline.ValidateFPS},
		{"pipeline.align_fps", c.Pipeline.AlignFPS},
		{"pipeline.recognize_fps", c.Pipeline.RecognizeFPS},
		{"pipeline.verify_fps", c.Pipeline.VerifyFPS},
	}
	for _, rate := range rates {
		if rate.value <= 0 || rate.value > 240 {
			return fmt.Errorf("%s must be between 1 and 240", rate.key)
		}
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return errors.New("detection.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateValidation() error {
	v := c.Validation
	if v.MaxAngleDegrees <= 0 || v.MaxAngleDegrees > 90 {
		return errors.New("validation.max_angle_degrees must be within (0, 90]")
	}
	for key, value := range map[string]int{
		"validation.glare_luma_threshold":          v.GlareLumaThreshold,
		"validation.specular_value_threshold":      v.SpecularValueThreshold,
		"validation.specular_saturation_threshold": v.SpecularSaturationThreshold,
	} {
		if value < 0 || value > 255 {
			return fmt.Errorf("%s must be between 0 and 255", key)
		}
	}
	if v.GlareHotspotRatio <= 0 || v.GlareHotspotRatio > 1 {
		return errors.New("validation.glare_hotspot_ratio must be within (0, 1]")
	}
	if v.SpecularRatio <= 0 || v.SpecularRatio > 1 {
		return errors.New("validation.specular_ratio must be within (0, 1]")
	}
	return nil
}

func (c *Config) validateModels() error {
	if c.Models.EmbeddingDim <= 0 {
		return errors.New("models.embedding_dim must be positive")
	}
	if c.Models.AlignSize <= 0 {
		return errors.New("models.align_size must be positive")
	}
	return nil
}

func (c *Config) validateRegistry() error {
	parsed, err := url.Parse(c.Registry.BaseURL)
	if err != nil {
		return fmt.Errorf("registry.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("registry.base_url must use http or https, got %q", c.Registry.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("registry.base_url is missing a host: %q", c.Registry.BaseURL)
	}
	if c.Registry.TimeoutSeconds < 0 {
		return errors.New("registry.timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	return nil
}
