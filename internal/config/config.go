package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"videoforge/internal/domain"
)

// Config is the process configuration, loaded from config.yaml with
// environment-supplied secrets layered on top.
type Config struct {
	LogMode string       `yaml:"log_mode"`
	Server  ServerConfig `yaml:"server"`
	Paths   PathsConfig  `yaml:"paths"`

	Audio    AudioConfig    `yaml:"audio"`
	Captions CaptionsConfig `yaml:"captions"`
	TextGen  TextGenConfig  `yaml:"textgen"`
	Images   ImagesConfig   `yaml:"images"`
	Render   RenderConfig   `yaml:"render"`
	Upload   UploadConfig   `yaml:"upload"`

	// Defaults applied to submissions that omit render settings.
	Defaults domain.RenderSettings `yaml:"defaults"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type PathsConfig struct {
	Projects string `yaml:"projects"`
}

type AudioConfig struct {
	// Command is the TTS executable. Empty means edge-tts.
	Command      string `yaml:"command"`
	DefaultVoice string `yaml:"default_voice"`
	OutputFormat string `yaml:"output_format"`
}

type CaptionsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Command         string `yaml:"command"`
	WhisperModel    string `yaml:"whisper_model"`
	MaxCharsPerLine int    `yaml:"max_chars_per_line"`
}

type TextGenConfig struct {
	PrimaryModel   string  `yaml:"primary_model"`
	FallbackModel  string  `yaml:"fallback_model"`
	Temperature    float64 `yaml:"temperature"`
	Attempts       int     `yaml:"attempts"`
	BackoffSeconds float64 `yaml:"backoff_seconds"`
}

// Backoff returns the base delay between primary-provider retries.
func (c TextGenConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds * float64(time.Second))
}

type ImagesConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Model  string `yaml:"model"`
}

type RenderConfig struct {
	FPS           int     `yaml:"fps"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Preset        string  `yaml:"preset"`
	CRF           int     `yaml:"crf"`
	KenBurnsZoom  float64 `yaml:"ken_burns_zoom"`
}

type UploadConfig struct {
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
}

// Default returns the baseline configuration used when no config file is
// present.
func Default() *Config {
	return &Config{
		LogMode: "dev",
		Server:  ServerConfig{Addr: ":8489"},
		Paths:   PathsConfig{Projects: "projects"},
		Audio: AudioConfig{
			DefaultVoice: "es-ES-AlvaroNeural",
			OutputFormat: "mp3",
		},
		Captions: CaptionsConfig{
			Enabled:         true,
			Command:         "whisper",
			WhisperModel:    "base",
			MaxCharsPerLine: 42,
		},
		TextGen: TextGenConfig{
			PrimaryModel:   "llama-3.3-70b-versatile",
			FallbackModel:  "gpt-4o-mini",
			Temperature:    0.7,
			Attempts:       3,
			BackoffSeconds: 2,
		},
		Images: ImagesConfig{
			Width:  1920,
			Height: 1080,
			Model:  "flux",
		},
		Render: RenderConfig{
			FPS:          30,
			Width:        1920,
			Height:       1080,
			Preset:       "fast",
			CRF:          22,
			KenBurnsZoom: 1.08,
		},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "22",
			DefaultLanguage: "es",
		},
		Defaults: domain.DefaultRenderSettings(),
	}
}

// Load reads the YAML config at path over the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
