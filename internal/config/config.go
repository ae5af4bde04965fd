// ABOUTME: Recorder configuration loading and validation
// ABOUTME: Merges defaults, an optional YAML file and RESONATE_RECORDER_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/recorder"
)

const (
	// FileName is the config file name without extension
	FileName = "resonate-recorder"

	// EnvPrefix prefixes environment overrides, e.g. RESONATE_RECORDER_SERVER_PORT
	EnvPrefix = "RESONATE_RECORDER"
)

// Capture backends
const (
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio"
	BackendTone      = "tone"
)

// Config holds all recorder configuration
type Config struct {
	Recorder RecorderConfig `mapstructure:"recorder"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Platform PlatformConfig `mapstructure:"platform"`
	Server   ServerConfig   `mapstructure:"server"`
	Export   ExportConfig   `mapstructure:"export"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RecorderConfig controls session behaviour
type RecorderConfig struct {
	Strategy      string `mapstructure:"strategy"`
	Codec         string `mapstructure:"codec"`
	Channels      int    `mapstructure:"channels"`
	Backpressure  string `mapstructure:"backpressure"`
	QueueCapacity int    `mapstructure:"queue_capacity"`
	HighWater     int    `mapstructure:"high_water"`
}

// CaptureConfig selects and configures the input device
type CaptureConfig struct {
	Backend       string  `mapstructure:"backend"`
	Device        string  `mapstructure:"device"`
	SampleRate    int     `mapstructure:"sample_rate"`
	Channels      int     `mapstructure:"channels"`
	BufferFrames  int     `mapstructure:"buffer_frames"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
}

// PlatformConfig configures the delegated ffmpeg recorder
type PlatformConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	InputFormat string        `mapstructure:"input_format"`
	InputDevice string        `mapstructure:"input_device"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

// ServerConfig configures the HTTP control server
type ServerConfig struct {
	Address    string `mapstructure:"address"`
	Port       int    `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	EnableMDNS bool   `mapstructure:"enable_mdns"`
}

// ExportConfig controls where finished recordings are written
type ExportConfig struct {
	Dir  string `mapstructure:"dir"`
	Save bool   `mapstructure:"save"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Recorder: RecorderConfig{
			Strategy:     string(recorder.StrategyAuto),
			Codec:        encode.CodecOpus,
			Backpressure: capture.PolicyUnbounded.String(),
			HighWater:    recorder.DefaultHighWater,
		},
		Capture: CaptureConfig{
			Backend:       BackendMalgo,
			SampleRate:    capture.DefaultSampleRate,
			Channels:      capture.DefaultChannels,
			BufferFrames:  capture.DefaultBufferFrames,
			ToneFrequency: 440,
		},
		Platform: PlatformConfig{
			FFmpegPath:  "ffmpeg",
			StopTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Address:    "0.0.0.0",
			Port:       8928,
			EnableMDNS: true,
		},
		Export: ExportConfig{
			Dir:  ".",
			Save: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "resonate-recorder.log",
		},
	}
}

// Load reads configuration from file and environment. An empty path
// searches the working directory and the platform config directory.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadViper decodes a caller-prepared viper instance, typically one with
// command flags bound to it.
func LoadViper(v *viper.Viper) (*Config, error) {
	return unmarshal(v)
}

// NewViper returns a viper instance with defaults, environment binding and
// the optional config file already read.
func NewViper(path string) (*viper.Viper, error) {
	return newViper(path)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("recorder.strategy", d.Recorder.Strategy)
	v.SetDefault("recorder.codec", d.Recorder.Codec)
	v.SetDefault("recorder.channels", d.Recorder.Channels)
	v.SetDefault("recorder.backpressure", d.Recorder.Backpressure)
	v.SetDefault("recorder.queue_capacity", d.Recorder.QueueCapacity)
	v.SetDefault("recorder.high_water", d.Recorder.HighWater)

	v.SetDefault("capture.backend", d.Capture.Backend)
	v.SetDefault("capture.device", d.Capture.Device)
	v.SetDefault("capture.sample_rate", d.Capture.SampleRate)
	v.SetDefault("capture.channels", d.Capture.Channels)
	v.SetDefault("capture.buffer_frames", d.Capture.BufferFrames)
	v.SetDefault("capture.tone_frequency", d.Capture.ToneFrequency)

	v.SetDefault("platform.enabled", d.Platform.Enabled)
	v.SetDefault("platform.ffmpeg_path", d.Platform.FFmpegPath)
	v.SetDefault("platform.input_format", d.Platform.InputFormat)
	v.SetDefault("platform.input_device", d.Platform.InputDevice)
	v.SetDefault("platform.stop_timeout", d.Platform.StopTimeout)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.name", d.Server.Name)
	v.SetDefault("server.enable_mdns", d.Server.EnableMDNS)

	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.save", d.Export.Save)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// Dir returns the platform-specific config directory
func Dir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Resonate", "Recorder")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Resonate Recorder")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, FileName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", FileName)
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Recorder.Validate(); err != nil {
		return fmt.Errorf("recorder config: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := c.Platform.Validate(); err != nil {
		return fmt.Errorf("platform config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates recorder configuration
func (r *RecorderConfig) Validate() error {
	if _, err := recorder.ParseStrategyMode(r.Strategy); err != nil {
		return err
	}
	if encode.MIMETypeFor(r.Codec) == "" {
		return fmt.Errorf("codec must be %s or %s, got %q", encode.CodecOpus, encode.CodecWAV, r.Codec)
	}
	if r.Channels < 0 || r.Channels > 2 {
		return fmt.Errorf("channels must be 0 (follow device), 1 or 2, got %d", r.Channels)
	}
	policy, err := capture.ParsePolicy(r.Backpressure)
	if err != nil {
		return err
	}
	if policy == capture.PolicyDropOldest && r.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1 with %s, got %d", policy, r.QueueCapacity)
	}
	if r.QueueCapacity < 0 {
		return fmt.Errorf("queue_capacity cannot be negative, got %d", r.QueueCapacity)
	}
	if r.HighWater < 0 {
		return fmt.Errorf("high_water cannot be negative, got %d", r.HighWater)
	}
	return nil
}

// Policy returns the parsed back-pressure policy
func (r *RecorderConfig) Policy() capture.Policy {
	policy, _ := capture.ParsePolicy(r.Backpressure)
	return policy
}

// StrategyMode returns the parsed strategy mode
func (r *RecorderConfig) StrategyMode() recorder.StrategyMode {
	mode, _ := recorder.ParseStrategyMode(r.Strategy)
	return mode
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	switch c.Backend {
	case BackendMalgo, BackendPortAudio, BackendTone:
	default:
		return fmt.Errorf("backend must be %s, %s or %s, got %q", BackendMalgo, BackendPortAudio, BackendTone, c.Backend)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 8 {
		return fmt.Errorf("channels must be between 1 and 8, got %d", c.Channels)
	}
	if c.BufferFrames < 64 {
		return fmt.Errorf("buffer_frames must be at least 64, got %d", c.BufferFrames)
	}
	if c.Backend == BackendTone && c.ToneFrequency <= 0 {
		return fmt.Errorf("tone_frequency must be positive, got %f", c.ToneFrequency)
	}
	return nil
}

// Validate validates platform recorder configuration
func (p *PlatformConfig) Validate() error {
	if p.Enabled && p.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty when the platform recorder is enabled")
	}
	if p.StopTimeout <= 0 {
		return fmt.Errorf("stop_timeout must be positive, got %s", p.StopTimeout)
	}
	return nil
}

// Validate validates control server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	return nil
}

// ListenAddr returns host:port for the control server
func (s *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("level must be debug, info, warn or error, got %q", l.Level)
	}
}
