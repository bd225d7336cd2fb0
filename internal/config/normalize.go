package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCamera(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeModels()
	c.normalizeRegistry()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeCamera() error {
	c.Camera.Source = strings.ToLower(strings.TrimSpace(c.Camera.Source))
	if c.Camera.Source == "" {
		c.Camera.Source = defaultCameraSource
	}
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	if c.Camera.Device == "" {
		c.Camera.Device = defaultCameraDevice
	}
	if dir := strings.TrimSpace(c.Camera.Directory); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("camera.directory: %w", err)
		}
		c.Camera.Directory = expanded
	}
	c.Camera.InputFormat = strings.ToLower(strings.TrimSpace(c.Camera.InputFormat))
	if c.Camera.InputFormat == "" {
		c.Camera.InputFormat = defaultInputFormat
	}
	return nil
}

func (c *Config) normalizePipeline() {
	for _, fps := range []*int{
		&c.Pipeline.CaptureFPS,
		&c.Pipeline.DetectFPS,
		&c.Pipeline.ValidateFPS,
		&c.Pipeline.AlignFPS,
		&c.Pipeline.RecognizeFPS,
	} {
		if *fps == 0 {
			*fps = defaultStageFPS
		}
	}
	if c.Pipeline.VerifyFPS == 0 {
		c.Pipeline.VerifyFPS = defaultVerifyFPS
	}
}

func (c *Config) normalizeModels() {
	c.Models.WorkerCommand = strings.TrimSpace(c.Models.WorkerCommand)
	if c.Models.WorkerCommand == "" {
		c.Models.WorkerCommand = defaultWorkerCommand
	}
	c.Models.Device = strings.ToUpper(strings.TrimSpace(c.Models.Device))
	if c.Models.Device == "" {
		c.Models.Device = defaultModelDevice
	}
	if c.Models.EmbeddingDim == 0 {
		c.Models.EmbeddingDim = defaultEmbeddingDim
	}
	if c.Models.AlignSize == 0 {
		c.Models.AlignSize = defaultAlignSize
	}
}

func (c *Config) normalizeRegistry() {
	if value, ok := os.LookupEnv("ENROLL_REGISTRY_URL"); ok && strings.TrimSpace(value) != "" {
		c.Registry.BaseURL = value
	}
	c.Registry.BaseURL = strings.TrimSpace(c.Registry.BaseURL)
	if c.Registry.BaseURL == "" {
		c.Registry.BaseURL = defaultRegistryURL
	}
	if !strings.HasSuffix(c.Registry.BaseURL, "/") {
		c.Registry.BaseURL += "/"
	}
	if c.Registry.TimeoutSeconds == 0 {
		c.Registry.TimeoutSeconds = defaultRegistryWait
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
