package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orgsupport/ticketd/internal/config"
	"github.com/orgsupport/ticketd/internal/discord"
	"github.com/orgsupport/ticketd/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "ticketd",
		Short:         "Discord support-ticket intake bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the watcher, and the dashboard API",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "register-commands",
		Short: "Register the guild slash commands and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegisterCommands()
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRegisterCommands() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// Command registration is plain REST; the gateway is never opened.
	session, err := discord.NewSession(cfg.Discord)
	if err != nil {
		return err
	}
	if err := discord.RegisterCommands(session, cfg.Discord.AppID, cfg.Discord.GuildID); err != nil {
		return err
	}
	logger.L.Info("commands registered", "guild_id", cfg.Discord.GuildID)
	return nil
}
