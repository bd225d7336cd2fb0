package config

const (
	defaultConfigPath    = "~/.config/enroll/config.toml"
	projectConfigName    = "enroll.toml"
	defaultStateDir      = "~/.local/share/enroll"
	defaultLogDir        = "~/.local/share/enroll/logs"
	defaultAPIBind       = "127.0.0.1:7597"
	defaultCameraSource  = CameraSourceDevice
	defaultCameraDevice  = "/dev/video0"
	defaultCameraWidth   = 640
	defaultCameraHeight  = 480
	defaultInputFormat   = "mjpeg"
	defaultStageFPS      = 30
	defaultVerifyFPS     = 5
	defaultMinConfidence = 0.5
	defaultMaxAngle      = 30.0
	defaultWorkerCommand = "enroll-models"
	defaultModelDevice   = "CPU"
	defaultEmbeddingDim  = 512
	defaultAlignSize     = 112
	defaultRegistryURL   = "http://localhost:8081/api/v1/"
	defaultRegistryWait  = 10
	defaultNotifyTimeout = 10
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultRetentionDays = 30
)

// Camera source kinds.
const (
	CameraSourceDevice    = "device"
	CameraSourceDirectory = "directory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Camera: Camera{
			Source:      defaultCameraSource,
			Device:      defaultCameraDevice,
			Width:       defaultCameraWidth,
			Height:      defaultCameraHeight,
			InputFormat: defaultInputFormat,
			Hotplug:     true,
		},
		Pipeline: Pipeline{
			CaptureFPS:   defaultStageFPS,
			DetectFPS:    defaultStageFPS,
			ValidateFPS:  defaultStageFPS,
			AlignFPS:     defaultStageFPS,
			RecognizeFPS: defaultStageFPS,
			VerifyFPS:    defaultVerifyFPS,
		},
		Detection: Detection{
			MinConfidence: defaultMinConfidence,
		},
		Validation: Validation{
			MaxAngleDegrees:             defaultMaxAngle,
			GlareLumaThreshold:          230,
			GlareHotspotRatio:           0.05,
			SpecularValueThreshold:      220,
			SpecularSaturationThreshold: 50,
			SpecularRatio:               0.03,
		},
		Models: Models{
			WorkerCommand: defaultWorkerCommand,
			Device:        defaultModelDevice,
			EmbeddingDim:  defaultEmbeddingDim,
			AlignSize:     defaultAlignSize,
		},
		Registry: Registry{
			BaseURL:        defaultRegistryURL,
			TimeoutSeconds: defaultRegistryWait,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Enrollment:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
