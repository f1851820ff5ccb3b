package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type PromptService struct {
	URL   string `mapstructure:"url" yaml:"url"`
	DocID string `mapstructure:"doc_id" yaml:"doc_id"`
}

type Services struct {
	ASR    Service       `mapstructure:"asr" yaml:"asr"`
	Prompt PromptService `mapstructure:"prompt" yaml:"prompt"`
	Upload Service       `mapstructure:"upload" yaml:"upload"`
}

type Transcription struct {
	// Backend is "whisperx" (local CLI) or "http" (services.asr).
	Backend        string `mapstructure:"backend" yaml:"backend"`
	Command        string `mapstructure:"command" yaml:"command"`
	Model          string `mapstructure:"model" yaml:"model"`
	Language       string `mapstructure:"language" yaml:"language"`
	CUDA           bool   `mapstructure:"cuda" yaml:"cuda"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type Scoring struct {
	// Provider is "openai" (any compatible endpoint) or "gemini".
	Provider       string `mapstructure:"provider" yaml:"provider"`
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	BatchSize      int    `mapstructure:"batch_size" yaml:"batch_size"`
	MaxTextChars   int    `mapstructure:"max_text_chars" yaml:"max_text_chars"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
}

type Segment struct {
	MaxGap   float64 `mapstructure:"max_gap" yaml:"max_gap"`
	MaxChars int     `mapstructure:"max_chars" yaml:"max_chars"`
}

type Selection struct {
	KeepPct float64 `mapstructure:"keep_pct" yaml:"keep_pct"`
}

type Audio struct {
	FFmpeg     string `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	FFprobe    string `mapstructure:"ffprobe" yaml:"ffprobe"`
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int    `mapstructure:"channels" yaml:"channels"`
	Quality    int    `mapstructure:"quality" yaml:"quality"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Paths struct {
	Temp    string `mapstructure:"temp" yaml:"temp"`
	Outputs string `mapstructure:"outputs" yaml:"outputs"`
}

type Performance struct {
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

type Root struct {
	Pipeline struct {
		Name    string `mapstructure:"name" yaml:"name"`
		Version string `mapstructure:"version" yaml:"version"`
	} `mapstructure:"pipeline" yaml:"pipeline"`
	Log           Log           `mapstructure:"log" yaml:"log"`
	Paths         Paths         `mapstructure:"paths" yaml:"paths"`
	Services      Services      `mapstructure:"services" yaml:"services"`
	Transcription Transcription `mapstructure:"transcription" yaml:"transcription"`
	Scoring       Scoring       `mapstructure:"scoring" yaml:"scoring"`
	Segment       Segment       `mapstructure:"segment" yaml:"segment"`
	Selection     Selection     `mapstructure:"selection" yaml:"selection"`
	Audio         Audio         `mapstructure:"audio" yaml:"audio"`
	Performance   Performance   `mapstructure:"performance" yaml:"performance"`
}

const EnvPrefix = "BESTOF"

// SetDefaults registers every key so env overrides resolve during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "bestof")
	v.SetDefault("pipeline.version", "1.0.0")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("paths.temp", os.TempDir())
	v.SetDefault("paths.outputs", "bestof_out")
	v.SetDefault("services.asr.url", "")
	v.SetDefault("services.prompt.url", "")
	v.SetDefault("services.prompt.doc_id", "")
	v.SetDefault("services.upload.url", "")
	v.SetDefault("transcription.backend", "whisperx")
	v.SetDefault("transcription.command", "uvx")
	v.SetDefault("transcription.model", "small")
	v.SetDefault("transcription.language", "")
	v.SetDefault("transcription.cuda", false)
	v.SetDefault("transcription.timeout_seconds", 3600)
	v.SetDefault("scoring.provider", "openai")
	v.SetDefault("scoring.model", "gpt-4o-mini")
	v.SetDefault("scoring.api_key", "")
	v.SetDefault("scoring.base_url", "")
	v.SetDefault("scoring.batch_size", 150)
	v.SetDefault("scoring.max_text_chars", 3000)
	v.SetDefault("scoring.timeout_seconds", 120)
	v.SetDefault("scoring.max_retries", 2)
	v.SetDefault("segment.max_gap", 0.6)
	v.SetDefault("segment.max_chars", 300)
	v.SetDefault("selection.keep_pct", 20.0)
	v.SetDefault("audio.ffmpeg", "ffmpeg")
	v.SetDefault("audio.ffprobe", "ffprobe")
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.quality", 2)
	v.SetDefault("performance.max_concurrent", 2)
}

// Load reads path, or the first config found among config/<CONFIG_ENV>/config.yaml
// and ./bestof.yaml, layered over defaults and BESTOF_* environment variables.
// A missing config file is not an error; defaults apply.
func Load(v *viper.Viper, path string) (*Root, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = guessPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applySecrets()
	return &cfg, nil
}

func guessPath() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		"bestof.yaml",
	}
	for _, p := range guess {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

func (c *Root) applySecrets() {
	if c.Scoring.APIKey != "" {
		return
	}
	switch c.Scoring.Provider {
	case "gemini":
		c.Scoring.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		c.Scoring.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks enumerations and clamps numeric settings into range.
func (c *Root) Validate() error {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	switch c.Transcription.Backend {
	case "whisperx":
	case "http":
		if c.Services.ASR.URL == "" {
			return errors.New("transcription.backend http requires services.asr.url")
		}
	default:
		return fmt.Errorf("unknown transcription.backend %q (whisperx|http)", c.Transcription.Backend)
	}

	c.Scoring.Provider = strings.ToLower(strings.TrimSpace(c.Scoring.Provider))
	switch c.Scoring.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown scoring.provider %q (openai|gemini)", c.Scoring.Provider)
	}

	if c.Scoring.BatchSize <= 0 {
		c.Scoring.BatchSize = 150
	}
	if c.Scoring.MaxTextChars <= 0 {
		c.Scoring.MaxTextChars = 3000
	}
	if c.Segment.MaxGap <= 0 {
		c.Segment.MaxGap = 0.6
	}
	if c.Segment.MaxChars <= 0 {
		c.Segment.MaxChars = 300
	}
	c.Selection.KeepPct = ClampPct(c.Selection.KeepPct)
	if c.Performance.MaxConcurrent <= 0 {
		c.Performance.MaxConcurrent = 1
	}
	if c.Paths.Outputs == "" {
		c.Paths.Outputs = "bestof_out"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = os.TempDir()
	}
	return nil
}

// ClampPct bounds a keep percentage to [0, 100].
func ClampPct(p float64) float64 {
	return min(max(p, 0), 100)
}

// YAML renders the effective configuration with secrets masked.
func (c Root) YAML() ([]byte, error) {
	if c.Scoring.APIKey != "" {
		c.Scoring.APIKey = "********"
	}
	return yaml.Marshal(c)
}

func (t Transcription) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}
