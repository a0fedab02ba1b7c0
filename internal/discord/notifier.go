package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Notifier delivers watcher reminders over the gateway session.
type Notifier struct {
	session *discordgo.Session
}

func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{session: session}
}

func (n *Notifier) DirectMessage(ctx context.Context, userID, content string) error {
	channel, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

func (n *Notifier) ChannelMessage(ctx context.Context, channelID, content string) error {
	if _, err := n.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send channel message: %w", err)
	}
	return nil
}

// VoiceChannelID resolves the user's current voice channel from gateway
// state. Requires the guild voice-state intent.
func (n *Notifier) VoiceChannelID(guildID, userID string) (string, bool) {
	vs, err := n.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}
