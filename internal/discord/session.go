package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/orgsupport/ticketd/internal/config"
	"github.com/orgsupport/ticketd/internal/ticket"
)

// NewSession builds the gateway session. It is not opened here; the
// caller owns open/close.
func NewSession(cfg config.DiscordConfig) (*discordgo.Session, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates
	return session, nil
}

// BindRouter attaches the interaction router to the session. Returns the
// handler remover.
func BindRouter(session *discordgo.Session, router *ticket.Router, log *slog.Logger) func() {
	if log == nil {
		log = slog.Default()
	}
	ready := session.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("logged in", slog.String("user", r.User.Username))
	})
	remove := session.AddHandler(func(s *discordgo.Session, e *discordgo.InteractionCreate) {
		router.Dispatch(context.Background(), s, e)
	})
	return func() {
		ready()
		remove()
	}
}
