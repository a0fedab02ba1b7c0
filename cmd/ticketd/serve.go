package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"golang.org/x/crypto/bcrypt"

	"github.com/orgsupport/ticketd/internal/config"
	"github.com/orgsupport/ticketd/internal/discord"
	"github.com/orgsupport/ticketd/internal/handlers"
	"github.com/orgsupport/ticketd/internal/logger"
	"github.com/orgsupport/ticketd/internal/server"
	"github.com/orgsupport/ticketd/internal/store"
	"github.com/orgsupport/ticketd/internal/ticket"
	"github.com/orgsupport/ticketd/internal/watcher"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideStore,
			provideSession,
			provideConfigSource,
			provideManager,
			ticket.NewRegistry,
			provideRouter,
			provideNotifier,
			provideWatcher,
			handlers.NewPingHandler,
			provideAuthHandler,
			handlers.NewPanelsHandler,
			handlers.NewGuildConfigHandler,
			handlers.NewStreamersHandler,
			provideServer,
		),
		fx.Invoke(
			startGateway,
			startWatcher,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideStore(log *slog.Logger, cfg config.Config) (*store.Service, error) {
	return store.NewService(log, cfg.Data.Dir)
}

func provideSession(cfg config.Config) (*discordgo.Session, error) {
	return discord.NewSession(cfg.Discord)
}

// provideConfigSource narrows the store to what the engine reads.
func provideConfigSource(s *store.Service) ticket.ConfigSource {
	return s
}

func provideManager(log *slog.Logger, session *discordgo.Session, cfg ticket.ConfigSource) *ticket.Manager {
	return ticket.NewManager(log, session, cfg)
}

func provideRouter(log *slog.Logger, session *discordgo.Session, cfg ticket.ConfigSource, manager *ticket.Manager, registry *ticket.Registry) *ticket.Router {
	return ticket.NewRouter(log, session, cfg, manager, registry)
}

func provideNotifier(session *discordgo.Session) *discord.Notifier {
	return discord.NewNotifier(session)
}

func provideWatcher(log *slog.Logger, cfg config.Config, docs *store.Service, notifier *discord.Notifier) *watcher.Service {
	return watcher.NewService(log, docs, watcher.NewKickClient(), notifier, cfg.Discord.GuildID)
}

func provideAuthHandler(cfg config.Config) (*handlers.AuthHandler, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Dashboard.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash dashboard password: %w", err)
	}
	expiresIn, err := time.ParseDuration(cfg.Dashboard.JWTExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return handlers.NewAuthHandler(hash, cfg.Dashboard.JWTSecret, expiresIn), nil
}

func provideServer(log *slog.Logger, cfg config.Config, pingHandler *handlers.PingHandler, authHandler *handlers.AuthHandler, panelsHandler *handlers.PanelsHandler, guildConfigHandler *handlers.GuildConfigHandler, streamersHandler *handlers.StreamersHandler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Dashboard.JWTSecret, pingHandler, authHandler, panelsHandler, guildConfigHandler, streamersHandler)
}

func startGateway(lc fx.Lifecycle, log *slog.Logger, session *discordgo.Session, router *ticket.Router) {
	var remove func()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			remove = discord.BindRouter(session, router, log)
			if err := session.Open(); err != nil {
				return fmt.Errorf("open gateway: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if remove != nil {
				remove()
			}
			return session.Close()
		},
	})
}

func startWatcher(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, svc *watcher.Service) error {
	if !cfg.Watcher.Enabled {
		log.Info("kick watcher disabled")
		return nil
	}

	scheduler := cron.New()
	spec := fmt.Sprintf("@every %dm", cfg.Watcher.PollMinutes)
	if _, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		svc.Tick(ctx)
	}); err != nil {
		return fmt.Errorf("schedule watcher: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("kick watcher running", slog.Int("poll_minutes", cfg.Watcher.PollMinutes))
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := scheduler.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
