package ticket

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	transcriptPageSize = 100
	// transcriptMaxPages bounds the export: extremely long channels get a
	// truncated transcript instead of an unbounded fetch.
	transcriptMaxPages = 30
)

// Transcript exports the channel history as a flat text artifact, oldest
// message first. Pages are fetched backward from the newest message; the
// fetch stops early on a short or empty page and hard-stops at the page
// cap.
func (m *Manager) Transcript(ctx context.Context, channelID string) (string, error) {
	var history []*discordgo.Message
	beforeID := ""
	for page := 0; page < transcriptMaxPages; page++ {
		messages, err := m.session.ChannelMessages(channelID, transcriptPageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("fetch history page: %w", err)
		}
		if len(messages) == 0 {
			break
		}
		// ChannelMessages returns newest-first; the oldest entry keys the
		// next page.
		beforeID = messages[len(messages)-1].ID
		history = append(history, messages...)
		if len(messages) < transcriptPageSize {
			break
		}
	}

	var b strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		writeTranscriptLine(&b, history[i])
	}
	return b.String(), nil
}

func writeTranscriptLine(b *strings.Builder, msg *discordgo.Message) {
	author := "unknown"
	if msg.Author != nil {
		author = msg.Author.Username
	}
	fmt.Fprintf(b, "[%s] %s: %s\n", msg.Timestamp.UTC().Format("2006-01-02 15:04:05"), author, msg.Content)
	for _, att := range msg.Attachments {
		fmt.Fprintf(b, "    attachment: %s %s\n", att.Filename, att.URL)
	}
}
