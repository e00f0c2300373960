package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendONNX   = "onnx"
	BackendWorker = "worker"

	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"

	minFrameBuffer = 64 * 1024
)

// Config holds the settings shared by the scanner process and the controller server.
type Config struct {
	// Controller
	Port           int    `yaml:"port"`
	ControlAPIKey  string `yaml:"control_api_key"`
	ScannerCommand string `yaml:"scanner_command"`

	// Storage and logs
	LogDirectory      string `yaml:"log_dir"`
	LogMaxSizeMB      int    `yaml:"log_max_size_mb"`
	DatabasePath      string `yaml:"database_path"`
	SnapshotDirectory string `yaml:"snapshot_dir"`

	// Camera stream
	StreamURL         string        `yaml:"stream_url"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ConnectRetryDelay time.Duration `yaml:"connect_retry_delay"`
	StreamRetryDelay  time.Duration `yaml:"stream_retry_delay"`
	BackoffStrategy   string        `yaml:"backoff_strategy"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay"`
	MaxRetries        int           `yaml:"max_retries"` // 0 retries forever
	ChunkSize         int           `yaml:"chunk_size"`
	MaxFrameBuffer    int           `yaml:"max_frame_buffer"`

	// Detection
	SampleDelay         time.Duration `yaml:"sample_delay"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	DetectorBackend     string        `yaml:"detector_backend"`
	ModelPath           string        `yaml:"model_path"`
	LabelsPath          string        `yaml:"labels_path"`
	ModelInputSize      int           `yaml:"model_input_size"`
	WorkerCommand       string        `yaml:"worker_command"`
	WorkerTimeout       time.Duration `yaml:"worker_timeout"`

	// Inventory backend
	BackendURL    string        `yaml:"backend_url"`
	BackendToken  string        `yaml:"-"`
	ReportTimeout time.Duration `yaml:"report_timeout"`

	// Optional outputs
	Display     bool   `yaml:"display"`
	PreviewAddr string `yaml:"preview_addr"`
	MQTTBroker  string `yaml:"mqtt_broker"`
	MQTTTopic   string `yaml:"mqtt_topic"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                5000,
		ScannerCommand:      filepath.Join(".", "scanner"),
		LogDirectory:        filepath.Join(".", "logs"),
		LogMaxSizeMB:        10,
		DatabasePath:        filepath.Join(".", "data", "scanner.db"),
		SnapshotDirectory:   filepath.Join(".", "snapshots"),
		StreamURL:           "http://192.168.4.1:81/stream",
		ConnectTimeout:      5 * time.Second,
		ReadTimeout:         10 * time.Second,
		ConnectRetryDelay:   3 * time.Second,
		StreamRetryDelay:    2 * time.Second,
		BackoffStrategy:     BackoffFixed,
		MaxRetryDelay:       30 * time.Second,
		ChunkSize:           1024,
		MaxFrameBuffer:      4 * 1024 * 1024,
		SampleDelay:         time.Second,
		ConfidenceThreshold: 0.6,
		DetectorBackend:     BackendONNX,
		ModelPath:           filepath.Join(".", "models", "best.onnx"),
		LabelsPath:          filepath.Join(".", "models", "labels.txt"),
		ModelInputSize:      640,
		WorkerCommand:       "python3 models/worker.py",
		WorkerTimeout:       10 * time.Second,
		BackendURL:          "http://localhost:3000/api/handleInventory",
		ReportTimeout:       10 * time.Second,
		MQTTTopic:           "fayes/scanner/detections",
	}
}

// Load reads .env, the optional CONFIG_FILE and environment variables, in that order
// of increasing precedence.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.ControlAPIKey = getEnv("CONTROL_API_KEY", c.ControlAPIKey)
	c.ScannerCommand = getEnv("SCANNER_COMMAND", c.ScannerCommand)

	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.LogMaxSizeMB = getEnvAsInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.SnapshotDirectory = getEnv("SNAPSHOT_DIR", c.SnapshotDirectory)

	c.StreamURL = getEnv("STREAM_URL", c.StreamURL)
	c.ConnectTimeout = getEnvAsDuration("CONNECT_TIMEOUT", c.ConnectTimeout)
	c.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.ReadTimeout)
	c.ConnectRetryDelay = getEnvAsDuration("CONNECT_RETRY_DELAY", c.ConnectRetryDelay)
	c.StreamRetryDelay = getEnvAsDuration("STREAM_RETRY_DELAY", c.StreamRetryDelay)
	c.BackoffStrategy = getEnv("BACKOFF_STRATEGY", c.BackoffStrategy)
	c.MaxRetryDelay = getEnvAsDuration("MAX_RETRY_DELAY", c.MaxRetryDelay)
	c.MaxRetries = getEnvAsInt("MAX_RETRIES", c.MaxRetries)
	c.ChunkSize = getEnvAsInt("CHUNK_SIZE", c.ChunkSize)
	c.MaxFrameBuffer = getEnvAsInt("MAX_FRAME_BUFFER", c.MaxFrameBuffer)

	c.SampleDelay = getEnvAsDuration("SAMPLE_DELAY", c.SampleDelay)
	c.ConfidenceThreshold = getEnvAsFloat("CONFIDENCE_THRESHOLD", c.ConfidenceThreshold)
	c.DetectorBackend = getEnv("DETECTOR_BACKEND", c.DetectorBackend)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.LabelsPath = getEnv("LABELS_PATH", c.LabelsPath)
	c.ModelInputSize = getEnvAsInt("MODEL_INPUT_SIZE", c.ModelInputSize)
	c.WorkerCommand = getEnv("WORKER_COMMAND", c.WorkerCommand)
	c.WorkerTimeout = getEnvAsDuration("WORKER_TIMEOUT", c.WorkerTimeout)

	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.BackendToken = getEnv("BACKEND_TOKEN", c.BackendToken)
	c.ReportTimeout = getEnvAsDuration("REPORT_TIMEOUT", c.ReportTimeout)

	c.Display = getEnvAsBool("DISPLAY_WINDOW", c.Display)
	c.PreviewAddr = getEnv("PREVIEW_ADDR", c.PreviewAddr)
	c.MQTTBroker = getEnv("MQTT_BROKER", c.MQTTBroker)
	c.MQTTTopic = getEnv("MQTT_TOPIC", c.MQTTTopic)
}

// Validate checks the configuration for values the scanner cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.StreamURL == "" {
		return fmt.Errorf("stream url is required")
	}
	if c.SampleDelay <= 0 {
		return fmt.Errorf("sample delay must be positive, got %s", c.SampleDelay)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in (0,1], got %v", c.ConfidenceThreshold)
	}
	if c.DetectorBackend != BackendONNX && c.DetectorBackend != BackendWorker {
		return fmt.Errorf("unknown detector backend: %q", c.DetectorBackend)
	}
	if c.BackoffStrategy != BackoffFixed && c.BackoffStrategy != BackoffExponential {
		return fmt.Errorf("unknown backoff strategy: %q", c.BackoffStrategy)
	}
	if c.MaxFrameBuffer < minFrameBuffer {
		return fmt.Errorf("max frame buffer must be at least %d bytes, got %d", minFrameBuffer, c.MaxFrameBuffer)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// ServerAddress returns the controller listen address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("3s", "500ms") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}
