package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/access-system/face-recognition-enrollment/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on every API request.
	APIToken string `toml:"api_token"`
}

// Camera describes where frames come from.
type Camera struct {
	Source      string `toml:"source"`
	Device      string `toml:"device"`
	Directory   string `toml:"directory"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	InputFormat string `toml:"input_format"`
	Hotplug     bool   `toml:"hotplug"`
}

// Pipeline holds the per-stage cycle rates in cycles per second.
type Pipeline struct {
	CaptureFPS   int `toml:"capture_fps"`
	DetectFPS    int `toml:"detect_fps"`
	ValidateFPS  int `toml:"validate_fps"`
	AlignFPS     int `toml:"align_fps"`
	RecognizeFPS int `toml:"recognize_fps"`
	VerifyFPS    int `toml:"verify_fps"`
}

// Detection contains face detector thresholds.
type Detection struct {
	MinConfidence float64 `toml:"min_confidence"`
}

// Validation contains the quality policy applied to detected faces.
type Validation struct {
	MaxAngleDegrees             float64 `toml:"max_angle_degrees"`
	GlareLumaThreshold          int     `toml:"glare_luma_threshold"`
	GlareHotspotRatio           float64 `toml:"glare_hotspot_ratio"`
	SpecularValueThreshold      int     `toml:"specular_value_threshold"`
	SpecularSaturationThreshold int     `toml:"specular_saturation_threshold"`
	SpecularRatio               float64 `toml:"specular_ratio"`
}

// Models configures the inference worker processes.
type Models struct {
	WorkerCommand string   `toml:"worker_command"`
	WorkerArgs    []string `toml:"worker_args"`
	Device        string   `toml:"device"`
	EmbeddingDim  int      `toml:"embedding_dim"`
	AlignSize     int      `toml:"align_size"`
}

// Registry configures the external embedding registry.
type Registry struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Enrollment     bool   `toml:"enrollment"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the enrollment daemon.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Camera: frame source selection and device settings
//   - Pipeline: per-stage cycle rates
//   - Detection: detector confidence floor
//   - Validation: glare and head pose policy
//   - Models: inference worker command and model parameters
//   - Registry: embedding registry endpoint
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Camera        Camera        `toml:"camera"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Detection     Detection     `toml:"detection"`
	Validation    Validation    `toml:"validation"`
	Models        Models        `toml:"models"`
	Registry      Registry      `toml:"registry"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite database that records enrollment attempts.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "enroll.lock")
}

// RegistryTimeout returns the HTTP timeout applied to registry calls.
func (c *Config) RegistryTimeout() time.Duration {
	return time.Duration(c.Registry.TimeoutSeconds) * time.Second
}

// FFmpegBinary returns the ffmpeg executable used by the device camera source.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
