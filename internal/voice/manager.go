package voice

import (
	"context"
	"sync"
	"time"

	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/metrics"

	"github.com/rs/zerolog"
)

// DefaultConnectTimeout bounds the wait for a connection to become ready.
const DefaultConnectTimeout = 30 * time.Second

// Manager holds at most one voice connection.
type Manager struct {
	mu         sync.Mutex
	joiner     Joiner
	subscriber Subscriber
	timeout    time.Duration
	conn       Connection
	state      State
	log        zerolog.Logger
}

// NewManager creates a Manager. subscriber may be nil.
func NewManager(joiner Joiner, subscriber Subscriber, timeout time.Duration, logger zerolog.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &Manager{
		joiner:     joiner,
		subscriber: subscriber,
		timeout:    timeout,
		state:      StateAbsent,
		log:        logging.Component(logger, "voice"),
	}
}

// EnsureConnected returns a ready connection to channelID, reusing the current
// one when it already targets that channel. A connection to another channel
// is torn down before the new join.
func (m *Manager) EnsureConnected(ctx context.Context, guildID, channelID string) (Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.conn.ChannelID() == channelID && m.state == StateReady {
		metrics.RecordVoiceConnect("reused")
		return m.conn, nil
	}

	if m.conn != nil {
		m.log.Info().
			Str("from_channel", m.conn.ChannelID()).
			Str("to_channel", channelID).
			Msg("Switching voice channel")
		m.destroyLocked()
	}

	m.state = StateConnecting
	m.log.Info().Str("guild_id", guildID).Str("channel_id", channelID).Msg("Joining voice channel")

	joinCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.joiner.Join(joinCtx, guildID, channelID)
	if err == nil && joinCtx.Err() != nil {
		err = joinCtx.Err()
	}
	if err != nil {
		if conn != nil {
			if dErr := conn.Disconnect(); dErr != nil {
				m.log.Warn().Err(dErr).Msg("Failed to destroy partial voice connection")
			}
		}
		m.conn = nil
		m.state = StateDestroyed

		cErr := &ConnectError{GuildID: guildID, ChannelID: channelID, Err: err}
		if cErr.Timeout() {
			metrics.RecordVoiceConnect("timeout")
		} else {
			metrics.RecordVoiceConnect("error")
		}
		m.log.Error().Err(cErr).Msg("Failed to connect to voice channel")
		return nil, cErr
	}

	m.conn = conn
	m.state = StateReady
	if m.subscriber != nil {
		m.subscriber.Subscribe(conn)
	}

	metrics.RecordVoiceConnect("joined")
	m.log.Info().Str("channel_id", channelID).Msg("Connected to voice channel")
	return conn, nil
}

// Teardown destroys the active connection. Without one it does nothing.
func (m *Manager) Teardown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	m.log.Info().Str("channel_id", m.conn.ChannelID()).Msg("Leaving voice channel")
	return m.destroyLocked()
}

func (m *Manager) destroyLocked() error {
	if m.subscriber != nil {
		m.subscriber.Unsubscribe()
	}
	err := m.conn.Disconnect()
	if err != nil {
		m.log.Warn().Err(err).Msg("Voice disconnect returned an error")
	}
	m.conn = nil
	m.state = StateDestroyed
	return err
}

// Active reports whether a ready connection exists.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// State returns the session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ChannelID returns the channel of the active connection, or "".
func (m *Manager) ChannelID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return ""
	}
	return m.conn.ChannelID()
}
