package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speakbot_triggers_total",
		Help: "Accepted trigger messages by final outcome",
	}, []string{"outcome"})

	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speakbot_tts_requests_total",
		Help: "Text-to-speech requests by status",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speakbot_tts_latency_seconds",
		Help:    "Time until the provider starts streaming audio",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	voiceConnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speakbot_voice_connects_total",
		Help: "Voice channel join attempts by result",
	}, []string{"result"})

	playbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speakbot_playbacks_total",
		Help: "Finished playbacks by terminal status",
	}, []string{"status"})

	playbackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speakbot_playback_duration_seconds",
		Help:    "Wall time of a playback from start to terminal event",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speakbot_commands_total",
		Help: "Text commands executed",
	}, []string{"command"})
)

func RecordTrigger(outcome string) {
	triggers.WithLabelValues(outcome).Inc()
}

// RecordTTS records one provider request. latency is only observed on success.
func RecordTTS(success bool, latency time.Duration) {
	if !success {
		ttsRequests.WithLabelValues("error").Inc()
		return
	}
	ttsRequests.WithLabelValues("success").Inc()
	ttsLatency.Observe(latency.Seconds())
}

func RecordVoiceConnect(result string) {
	voiceConnects.WithLabelValues(result).Inc()
}

func RecordPlayback(status string, d time.Duration) {
	playbacks.WithLabelValues(status).Inc()
	playbackDuration.Observe(d.Seconds())
}

func RecordCommand(name string) {
	commands.WithLabelValues(name).Inc()
}
