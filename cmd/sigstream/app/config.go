package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Backend  BackendConfig  `yaml:"backend"`
	Analysis AnalysisConfig `yaml:"analysis"`
	History  HistoryConfig  `yaml:"history"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// BackendConfig describes the spectrum backend to stream from.
type BackendConfig struct {
	URL      string          `yaml:"url"`
	Channels []ChannelConfig `yaml:"channels"`

	ReconnectBaseDelay   Duration `yaml:"reconnectBaseDelay"`
	ReconnectMaxDelay    Duration `yaml:"reconnectMaxDelay"`
	MaxReconnectAttempts int      `yaml:"maxReconnectAttempts"`
}

// ChannelConfig describes one named backend channel to subscribe to.
type ChannelConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`

	// Request is sent to the backend after each successful connect, as the
	// payload of a config frame. Optional.
	Request map[string]any `yaml:"request"`
}

// AnalysisConfig tunes the per-sweep analysis pipeline.
type AnalysisConfig struct {
	PeakThreshold  float64 `yaml:"peakThreshold"`
	MinProminence  float64 `yaml:"minProminence"`
	MinDistance    int     `yaml:"minDistance"`
	MaxPeaks       int     `yaml:"maxPeaks"`
	NoiseThreshold float64 `yaml:"noiseThreshold"`

	// TrackedFrequencies are center frequencies, in Hz, whose power is
	// followed over time for trend analysis.
	TrackedFrequencies []float64 `yaml:"trackedFrequencies"`
	SeriesCapacity     int       `yaml:"seriesCapacity"`
}

// HistoryConfig points at the backend's REST history API, used to seed
// tracked series with past measurements on startup.
type HistoryConfig struct {
	URL      string   `yaml:"url"`
	Lookback Duration `yaml:"lookback"`
	Limit    int      `yaml:"limit"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// LoadConfig reads and parses the YAML configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Backend.URL == "" {
		return nil, fmt.Errorf("no backend URL specified in configuration")
	}

	return &config, nil
}
