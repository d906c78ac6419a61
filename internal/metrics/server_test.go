package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_Health(t *testing.T) {
	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHandler_MetricsExposesCounters(t *testing.T) {
	RecordTrigger("success")
	RecordTTS(true, 200*time.Millisecond)
	RecordVoiceConnect("joined")
	RecordPlayback("finished", 3*time.Second)
	RecordCommand("!leave")

	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		"speakbot_triggers_total",
		"speakbot_tts_requests_total",
		"speakbot_tts_latency_seconds",
		"speakbot_voice_connects_total",
		"speakbot_playbacks_total",
		"speakbot_commands_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in /metrics output", name)
		}
	}
}
