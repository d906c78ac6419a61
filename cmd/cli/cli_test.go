package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keshon/speakbot/internal/config"
)

func TestRunSpeak_WritesAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/text-to-speech/voice-1/stream") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fakeaudio"))
	}))
	defer srv.Close()

	cfg := config.TTS{
		APIKey:          "key",
		VoiceID:         "voice-1",
		BaseURL:         srv.URL,
		ModelID:         "eleven_multilingual_v2",
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Timeout:         5 * time.Second,
		RateLimit:       10,
	}
	out := filepath.Join(t.TempDir(), "out.mp3")

	n, err := runSpeak(context.Background(), cfg, "hello", out)
	if err != nil {
		t.Fatalf("runSpeak failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ID3fakeaudio" || n != int64(len(data)) {
		t.Errorf("unexpected output %q (%d bytes reported)", data, n)
	}
}

func TestRunCheck_ReportsMissingConfig(t *testing.T) {
	for _, key := range []string{"DISCORD_TOKEN", "TARGET_USER_ID", "TARGET_CHANNEL_ID", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID"} {
		t.Setenv(key, "")
	}

	var buf bytes.Buffer
	err := runCheck(&buf, func(string) (string, error) { return "/usr/bin/ffmpeg", nil })
	if err == nil {
		t.Fatal("expected check to fail without configuration")
	}
	if !strings.Contains(buf.String(), "Config:   FAILED") {
		t.Errorf("expected a config failure in the report:\n%s", buf.String())
	}
}

func TestRunCheck_OK(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("TARGET_USER_ID", "1")
	t.Setenv("TARGET_CHANNEL_ID", "2")
	t.Setenv("ELEVENLABS_API_KEY", "key")
	t.Setenv("ELEVENLABS_VOICE_ID", "voice")

	var buf bytes.Buffer
	if err := runCheck(&buf, func(string) (string, error) { return "/usr/bin/ffmpeg", nil }); err != nil {
		t.Fatalf("expected check to pass: %v\n%s", err, buf.String())
	}

	buf.Reset()
	err := runCheck(&buf, func(string) (string, error) { return "", errors.New("not found") })
	if err == nil || !strings.Contains(buf.String(), "NOT FOUND") {
		t.Errorf("expected a missing ffmpeg to fail the check:\n%s", buf.String())
	}
}
