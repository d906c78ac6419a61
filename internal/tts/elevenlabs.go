// Package tts streams synthesized speech from the ElevenLabs API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/keshon/speakbot/internal/config"
	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/metrics"
	"github.com/keshon/speakbot/pkg/retrylimit"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of an error payload is kept.
const maxErrorBody = 4 << 10

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// errorPayload is the JSON shape ElevenLabs uses for failures.
type errorPayload struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Fetcher performs one streaming synthesis request per call. No retries.
type Fetcher struct {
	cfg     config.TTS
	client  *http.Client
	limiter *retrylimit.AdaptiveLimiter
	log     zerolog.Logger
}

// New creates a Fetcher. The http.Client has no overall timeout because the
// response body is streamed for the whole playback; the wait for response
// headers is bounded by cfg.Timeout instead.
func New(cfg config.TTS, client *http.Client, logger zerolog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	limit := rate.Limit(cfg.RateLimit)
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		limiter: retrylimit.NewAdaptiveLimiter(limit, limit/8, limit, limit/8, 0.5),
		log:     logging.Component(logger, "tts"),
	}
}

// FetchSpeechStream requests speech for text and returns the audio stream
// positioned at the start of the MPEG payload. The caller must close it.
func (f *Fetcher) FetchSpeechStream(ctx context.Context, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ProviderError{Err: errors.New("empty text")}
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Err: err}
	}

	body, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: f.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       f.cfg.Stability,
			SimilarityBoost: f.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	var timedOut atomic.Bool
	timer := time.AfterFunc(f.cfg.Timeout, func() {
		timedOut.Store(true)
		cancel()
	})

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", strings.TrimRight(f.cfg.BaseURL, "/"), f.cfg.VoiceID)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		timer.Stop()
		cancel()
		return nil, &ProviderError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", f.cfg.APIKey)

	start := time.Now()
	f.log.Debug().Int("chars", len(text)).Str("voice_id", f.cfg.VoiceID).Msg("Requesting speech stream")

	resp, err := f.client.Do(req)
	stopped := timer.Stop()
	if err != nil {
		cancel()
		if !stopped && timedOut.Load() {
			err = fmt.Errorf("%w after %s", ErrTimeout, f.cfg.Timeout)
		}
		return nil, f.fail(&ProviderError{Err: err})
	}
	if !stopped && timedOut.Load() {
		// headers raced the timer; the body is already canceled
		resp.Body.Close()
		cancel()
		return nil, f.fail(&ProviderError{Err: fmt.Errorf("%w after %s", ErrTimeout, f.cfg.Timeout)})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, f.fail(&ProviderError{Status: resp.StatusCode, Body: errorMessage(raw)})
	}

	f.limiter.Observe(nil)
	metrics.RecordTTS(true, time.Since(start))
	f.log.Debug().Dur("latency", time.Since(start)).Msg("Speech stream opened")

	return &stream{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (f *Fetcher) fail(err *ProviderError) error {
	f.limiter.Observe(err)
	metrics.RecordTTS(false, 0)
	f.log.Error().Err(err).Msg("ElevenLabs request failed")
	return err
}

// errorMessage extracts the provider message from a JSON error body, falling
// back to the raw payload.
func errorMessage(raw []byte) string {
	var p errorPayload
	if err := json.Unmarshal(raw, &p); err == nil && p.Detail.Message != "" {
		if p.Detail.Status != "" {
			return p.Detail.Status + ": " + p.Detail.Message
		}
		return p.Detail.Message
	}
	return strings.TrimSpace(string(raw))
}

// stream releases the request context when the body is closed.
type stream struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (s *stream) Close() error {
	err := s.ReadCloser.Close()
	s.cancel()
	return err
}
