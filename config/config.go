package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Context   ContextConfig   `yaml:"context"`
	Capture   CaptureConfig   `yaml:"capture"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Generator GeneratorConfig `yaml:"generator"`
	Speaker   SpeakerConfig   `yaml:"speaker"`
	Retry     RetryConfig     `yaml:"retry"`
	HTTP      HTTPConfig      `yaml:"http"`
	Player    PlayerConfig    `yaml:"player"`
	Log       LogConfig       `yaml:"log"`
}

type ContextConfig struct {
	File        string        `yaml:"file"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxSessions int           `yaml:"max_sessions"`
}

type CaptureConfig struct {
	Mode           string        `yaml:"mode"`
	Device         string        `yaml:"device"`
	PulseSource    string        `yaml:"pulse_source"`
	SampleRate     int           `yaml:"sample_rate"`
	PauseThreshold time.Duration `yaml:"pause_threshold"`
	MaxDuration    time.Duration `yaml:"max_duration"`
	FixedDuration  time.Duration `yaml:"fixed_duration"`
	SilenceLevel   int           `yaml:"silence_level"`
	SpoolDir       string        `yaml:"spool_dir"`
}

type OpenAIConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Language    string `yaml:"language"`
	ChatModel   string `yaml:"chat_model"`
	SpeechModel string `yaml:"speech_model"`
	Voice       string `yaml:"voice"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeneratorConfig struct {
	Provider           string `yaml:"provider"`
	MaxBackgroundChars int    `yaml:"max_background_chars"`
}

type SpeakerConfig struct {
	Provider string `yaml:"provider"`
	Language string `yaml:"language"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	AuthToken      string        `yaml:"auth_token"`
	RequestsPerMin int           `yaml:"requests_per_min"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type PlayerConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path after loading a .env file from the
// working directory, if present. ${VAR} references are expanded from the
// environment so secrets never live in the file itself.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Context.File == "" {
		c.Context.File = "context.txt"
	}
	if c.Context.SessionTTL == 0 {
		c.Context.SessionTTL = 30 * time.Minute
	}
	if c.Context.MaxSessions == 0 {
		c.Context.MaxSessions = 1024
	}
	if c.Capture.Mode == "" {
		c.Capture.Mode = "silence"
	}
	if c.Capture.Device == "" {
		c.Capture.Device = "pulse"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Capture.PauseThreshold == 0 {
		c.Capture.PauseThreshold = 2 * time.Second
	}
	if c.Capture.MaxDuration == 0 {
		c.Capture.MaxDuration = 30 * time.Second
	}
	if c.Capture.FixedDuration == 0 {
		c.Capture.FixedDuration = 5 * time.Second
	}
	if c.Capture.SilenceLevel == 0 {
		c.Capture.SilenceLevel = 500
	}
	if c.Capture.SpoolDir == "" {
		c.Capture.SpoolDir = "./audio"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "en"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = "openai"
	}
	if c.Speaker.Provider == "" {
		c.Speaker.Provider = "openai"
	}
	if c.Speaker.Language == "" {
		c.Speaker.Language = "en"
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 1
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RequestsPerMin == 0 {
		c.HTTP.RequestsPerMin = 30
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 2 * time.Minute
	}
	if c.Player.Command == "" {
		c.Player.Command = "mpg123"
		if c.Player.Args == nil {
			c.Player.Args = []string{"-q"}
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every problem at once. The transcriber always needs an
// OpenAI key; the generator and speaker need keys for whichever provider
// they select.
func (c *Config) Validate() error {
	var problems []string

	if c.OpenAI.APIKey == "" {
		problems = append(problems, "openai.api_key is required for transcription")
	}

	switch c.Generator.Provider {
	case "openai":
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			problems = append(problems, "anthropic.api_key is required when generator.provider is anthropic")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			problems = append(problems, "gemini.api_key is required when generator.provider is gemini")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown generator.provider %q", c.Generator.Provider))
	}

	switch c.Speaker.Provider {
	case "openai", "gtts", "none":
	default:
		problems = append(problems, fmt.Sprintf("unknown speaker.provider %q", c.Speaker.Provider))
	}

	switch c.Capture.Mode {
	case "silence", "fixed":
	default:
		problems = append(problems, fmt.Sprintf("unknown capture.mode %q", c.Capture.Mode))
	}

	switch c.Capture.Device {
	case "pulse", "portaudio":
	default:
		problems = append(problems, fmt.Sprintf("unknown capture.device %q", c.Capture.Device))
	}

	if c.Capture.FixedDuration < time.Second || c.Capture.FixedDuration > time.Minute {
		problems = append(problems, "capture.fixed_duration must be between 1s and 1m")
	}
	if c.Capture.MaxDuration < c.Capture.PauseThreshold {
		problems = append(problems, "capture.max_duration must not be shorter than capture.pause_threshold")
	}
	if c.Generator.MaxBackgroundChars < 0 {
		problems = append(problems, "generator.max_background_chars must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
