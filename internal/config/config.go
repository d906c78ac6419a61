// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Error is returned when the startup configuration is missing or invalid.
// The process must not start with it.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "config: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// TTS holds the ElevenLabs settings. It can be loaded on its own by tools
// that never touch Discord.
type TTS struct {
	APIKey          string        `env:"ELEVENLABS_API_KEY,required,notEmpty"`
	VoiceID         string        `env:"ELEVENLABS_VOICE_ID,required,notEmpty"`
	BaseURL         string        `env:"ELEVENLABS_BASE_URL" envDefault:"https://api.elevenlabs.io"`
	ModelID         string        `env:"ELEVENLABS_MODEL_ID" envDefault:"eleven_multilingual_v2"`
	Stability       float64       `env:"ELEVENLABS_STABILITY" envDefault:"0.5"`
	SimilarityBoost float64       `env:"ELEVENLABS_SIMILARITY_BOOST" envDefault:"0.75"`
	Timeout         time.Duration `env:"TTS_TIMEOUT" envDefault:"30s"`
	RateLimit       float64       `env:"TTS_RATE_LIMIT" envDefault:"2"`
}

type Config struct {
	DiscordToken    string `env:"DISCORD_TOKEN,required,notEmpty"`
	TargetUserID    string `env:"TARGET_USER_ID,required,notEmpty"`
	TargetChannelID string `env:"TARGET_CHANNEL_ID,required,notEmpty"`

	TTS TTS

	VoiceConnectTimeout time.Duration `env:"VOICE_CONNECT_TIMEOUT" envDefault:"30s"`
	PlaybackTimeout     time.Duration `env:"PLAYBACK_TIMEOUT" envDefault:"10m"`
	LeaveAfterPlayback  bool          `env:"LEAVE_AFTER_PLAYBACK" envDefault:"false"`
	FFmpegPath          string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	OpusBitrate         int           `env:"OPUS_BITRATE" envDefault:"64000"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty   bool   `env:"LOG_PRETTY" envDefault:"true"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// LoadDotEnv loads a .env file from the working directory if there is one.
// It reports whether a file was found.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the full bot configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given map instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

// LoadTTS reads only the ElevenLabs settings from the process environment.
func LoadTTS() (*TTS, error) {
	var t TTS
	if err := env.Parse(&t); err != nil {
		return nil, &Error{Err: err}
	}
	if err := t.validate(); err != nil {
		return nil, &Error{Err: err}
	}
	return &t, nil
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, &Error{Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, &Error{Err: err}
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if err := c.TTS.validate(); err != nil {
		errs = append(errs, err)
	}
	if c.VoiceConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("VOICE_CONNECT_TIMEOUT must be positive, got %s", c.VoiceConnectTimeout))
	}
	if c.PlaybackTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PLAYBACK_TIMEOUT must be positive, got %s", c.PlaybackTimeout))
	}
	if c.OpusBitrate < 6000 || c.OpusBitrate > 510000 {
		errs = append(errs, fmt.Errorf("OPUS_BITRATE must be within 6000..510000, got %d", c.OpusBitrate))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

func (t *TTS) validate() error {
	var errs []error
	if t.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("TTS_TIMEOUT must be positive, got %s", t.Timeout))
	}
	if t.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("TTS_RATE_LIMIT must be positive, got %v", t.RateLimit))
	}
	if t.Stability < 0 || t.Stability > 1 {
		errs = append(errs, fmt.Errorf("ELEVENLABS_STABILITY must be within 0..1, got %v", t.Stability))
	}
	if t.SimilarityBoost < 0 || t.SimilarityBoost > 1 {
		errs = append(errs, fmt.Errorf("ELEVENLABS_SIMILARITY_BOOST must be within 0..1, got %v", t.SimilarityBoost))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.DiscordToken = redact(c.DiscordToken)
	c.TTS.APIKey = redact(c.TTS.APIKey)
	return c
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 8)
}
