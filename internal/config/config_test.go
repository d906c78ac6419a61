package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"DISCORD_TOKEN":       "token-123456",
		"TARGET_USER_ID":      "111",
		"TARGET_CHANNEL_ID":   "222",
		"ELEVENLABS_API_KEY":  "xi-key-123456",
		"ELEVENLABS_VOICE_ID": "voice-1",
	}
}

func TestLoadFrom(t *testing.T) {
	cfg, err := LoadFrom(requiredEnv())
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.TargetUserID != "111" {
		t.Errorf("Expected TargetUserID '111', got '%s'", cfg.TargetUserID)
	}
	if cfg.TargetChannelID != "222" {
		t.Errorf("Expected TargetChannelID '222', got '%s'", cfg.TargetChannelID)
	}
	if cfg.TTS.VoiceID != "voice-1" {
		t.Errorf("Expected VoiceID 'voice-1', got '%s'", cfg.TTS.VoiceID)
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(requiredEnv())
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.TTS.BaseURL != "https://api.elevenlabs.io" {
		t.Errorf("Expected default BaseURL, got '%s'", cfg.TTS.BaseURL)
	}
	if cfg.TTS.ModelID != "eleven_multilingual_v2" {
		t.Errorf("Expected default ModelID 'eleven_multilingual_v2', got '%s'", cfg.TTS.ModelID)
	}
	if cfg.TTS.Stability != 0.5 {
		t.Errorf("Expected default Stability 0.5, got %v", cfg.TTS.Stability)
	}
	if cfg.TTS.SimilarityBoost != 0.75 {
		t.Errorf("Expected default SimilarityBoost 0.75, got %v", cfg.TTS.SimilarityBoost)
	}
	if cfg.VoiceConnectTimeout != 30*time.Second {
		t.Errorf("Expected default VoiceConnectTimeout 30s, got %s", cfg.VoiceConnectTimeout)
	}
	if cfg.PlaybackTimeout != 10*time.Minute {
		t.Errorf("Expected default PlaybackTimeout 10m, got %s", cfg.PlaybackTimeout)
	}
	if cfg.LeaveAfterPlayback {
		t.Error("Expected LeaveAfterPlayback to default to false")
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("Expected default FFmpegPath 'ffmpeg', got '%s'", cfg.FFmpegPath)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("Expected metrics to be disabled by default, got '%s'", cfg.MetricsAddr)
	}
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	for _, key := range []string{"DISCORD_TOKEN", "TARGET_USER_ID", "TARGET_CHANNEL_ID", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID"} {
		t.Run(key, func(t *testing.T) {
			environ := requiredEnv()
			delete(environ, key)

			_, err := LoadFrom(environ)
			if err == nil {
				t.Fatalf("Expected error when %s is missing", key)
			}

			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *config.Error, got %T", err)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("Expected error to name %s, got %q", key, err.Error())
			}
		})
	}
}

func TestLoadFrom_EmptyRequired(t *testing.T) {
	environ := requiredEnv()
	environ["TARGET_USER_ID"] = ""

	if _, err := LoadFrom(environ); err == nil {
		t.Fatal("Expected error for empty TARGET_USER_ID")
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative connect timeout", "VOICE_CONNECT_TIMEOUT", "-1s"},
		{"zero playback timeout", "PLAYBACK_TIMEOUT", "0s"},
		{"zero rate limit", "TTS_RATE_LIMIT", "0"},
		{"stability out of range", "ELEVENLABS_STABILITY", "1.5"},
		{"similarity out of range", "ELEVENLABS_SIMILARITY_BOOST", "-0.1"},
		{"bitrate too low", "OPUS_BITRATE", "100"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := requiredEnv()
			environ[tt.key] = tt.value

			_, err := LoadFrom(environ)
			if err == nil {
				t.Fatalf("Expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Expected error to mention %s, got %q", tt.key, err.Error())
			}
		})
	}
}

func TestLoadTTS(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "xi-key")
	t.Setenv("ELEVENLABS_VOICE_ID", "voice-2")

	cfg, err := LoadTTS()
	if err != nil {
		t.Fatalf("LoadTTS() failed: %v", err)
	}
	if cfg.VoiceID != "voice-2" {
		t.Errorf("Expected VoiceID 'voice-2', got '%s'", cfg.VoiceID)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected default Timeout 30s, got %s", cfg.Timeout)
	}
}

func TestRedacted(t *testing.T) {
	cfg, err := LoadFrom(requiredEnv())
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	r := cfg.Redacted()
	if strings.Contains(r.DiscordToken, "123456") {
		t.Errorf("Token not redacted: %s", r.DiscordToken)
	}
	if strings.Contains(r.TTS.APIKey, "123456") {
		t.Errorf("API key not redacted: %s", r.TTS.APIKey)
	}
	if cfg.DiscordToken != "token-123456" {
		t.Error("Redacted must not modify the original")
	}
}
