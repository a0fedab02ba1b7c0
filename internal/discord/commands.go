package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// CommandDefinitions returns the slash commands this bot registers. The
// names must match the handlers bound into the router's command registry.
func CommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ticket",
			Description: "Open or close a support ticket.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "open",
					Description: "Open a private ticket",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "subject",
							Description: "Short subject",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "close",
					Description: "Close this ticket (run inside a ticket channel).",
				},
			},
		},
		panelCommand(1),
		panelCommand(2),
	}
}

func panelCommand(n int) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        fmt.Sprintf("panel%d", n),
		Description: fmt.Sprintf("Manage or post Ticket Panel #%d", n),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "post",
				Description: fmt.Sprintf("Post Panel #%d in this channel", n),
			},
		},
	}
}

// RegisterCommands bulk-overwrites the guild's command set.
func RegisterCommands(session *discordgo.Session, appID, guildID string) error {
	if appID == "" || guildID == "" {
		return fmt.Errorf("app_id and guild_id are required to register commands")
	}
	if _, err := session.ApplicationCommandBulkOverwrite(appID, guildID, CommandDefinitions()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}
