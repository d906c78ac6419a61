package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

// Platform implements pipeline.Platform over a discordgo session.
type Platform struct {
	dg *discordgo.Session
}

func NewPlatform(dg *discordgo.Session) *Platform {
	return &Platform{dg: dg}
}

// UserVoiceChannel looks the user up in the voice state cache.
func (p *Platform) UserVoiceChannel(guildID, userID string) (string, error) {
	vs, err := p.dg.State.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return vs.ChannelID, nil
}

func (p *Platform) AddReaction(channelID, messageID, emoji string) error {
	return p.dg.MessageReactionAdd(channelID, messageID, emoji)
}

func (p *Platform) RemoveAllReactions(channelID, messageID string) error {
	return p.dg.MessageReactionsRemoveAll(channelID, messageID)
}

func (p *Platform) Reply(channelID, messageID, content string) error {
	_, err := p.dg.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	})
	return err
}
