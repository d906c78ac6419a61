package pipeline

import (
	"github.com/rs/zerolog"
)

// Marker is a reaction emoji that shows where a message is in the pipeline.
type Marker string

const (
	MarkerProcessing Marker = "🔄"
	MarkerPlaying    Marker = "🔊"
	MarkerSuccess    Marker = "✅"
	MarkerFailure    Marker = "❌"
)

// statusSignal keeps at most one marker on a message. The previous marker is
// removed before the next one is added.
type statusSignal struct {
	platform  Platform
	channelID string
	messageID string
	current   Marker
	log       zerolog.Logger
}

func newStatusSignal(platform Platform, msg Message, logger zerolog.Logger) *statusSignal {
	return &statusSignal{
		platform:  platform,
		channelID: msg.ChannelID,
		messageID: msg.ID,
		log:       logger,
	}
}

// set is best effort; reaction failures are logged and never abort a trigger.
func (s *statusSignal) set(m Marker) {
	if s.current == m {
		return
	}
	if s.current != "" {
		if err := s.platform.RemoveAllReactions(s.channelID, s.messageID); err != nil {
			s.log.Warn().Err(err).Str("message_id", s.messageID).Msg("Failed to clear reactions")
		}
	}
	if err := s.platform.AddReaction(s.channelID, s.messageID, string(m)); err != nil {
		s.log.Warn().Err(err).Str("message_id", s.messageID).Str("marker", string(m)).Msg("Failed to add reaction")
	}
	s.current = m
}
