package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/orgsupport/ticketd/internal/store"
)

// notificationCooldown is how long the watcher stays quiet about one
// ongoing stream after a delivered reminder.
const notificationCooldown = 30 * time.Minute

// LiveSource answers whether a streamer login is currently live.
type LiveSource interface {
	ChannelInfo(ctx context.Context, login string) (LiveInfo, error)
}

// Notifier delivers reminders and resolves voice presence; the Discord
// session implements it.
type Notifier interface {
	DirectMessage(ctx context.Context, userID, content string) error
	ChannelMessage(ctx context.Context, channelID, content string) error
	VoiceChannelID(guildID, userID string) (string, bool)
}

// DocumentStore is the slice of the config store the watcher reads and
// writes.
type DocumentStore interface {
	Guild() (store.GuildConfig, error)
	Streamers() ([]store.Streamer, error)
	StreamState() (store.StreamState, error)
	SaveStreamState(store.StreamState) error
}

// Service reminds streamers who are live on Kick but not present in an
// allowed voice channel. It shares nothing with the ticket engine beyond
// the config document store.
type Service struct {
	logger  *slog.Logger
	store   DocumentStore
	source  LiveSource
	notify  Notifier
	guildID string
	now     func() time.Time
}

func NewService(log *slog.Logger, docs DocumentStore, source LiveSource, notify Notifier, guildID string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		logger:  log.With(slog.String("service", "kick-watcher")),
		store:   docs,
		source:  source,
		notify:  notify,
		guildID: guildID,
		now:     time.Now,
	}
}

// Tick runs one poll pass over every enabled Kick streamer. Errors for
// one streamer never stop the pass.
func (s *Service) Tick(ctx context.Context) {
	guildCfg, err := s.store.Guild()
	if err != nil {
		s.logger.Warn("guild config degraded", slog.Any("error", err))
	}
	streamers, err := s.store.Streamers()
	if err != nil {
		s.logger.Error("read streamers failed", slog.Any("error", err))
		return
	}
	state, err := s.store.StreamState()
	if err != nil {
		s.logger.Warn("stream state degraded, starting fresh", slog.Any("error", err))
		state = store.StreamState{}
	}

	active := 0
	for _, streamer := range streamers {
		if !streamer.Enabled || streamer.Platform != "kick" ||
			streamer.Login == "" || streamer.DiscordUserID == "" {
			continue
		}
		active++
		s.checkStreamer(ctx, streamer, guildCfg.Kick, state)
	}
	if active == 0 {
		return
	}

	if err := s.store.SaveStreamState(state); err != nil {
		s.logger.Error("save stream state failed", slog.Any("error", err))
	}
}

func (s *Service) checkStreamer(ctx context.Context, streamer store.Streamer, cfg store.KickConfig, state store.StreamState) {
	key := "kick:" + strings.ToLower(streamer.Login)
	prev := state[key]

	info, err := s.source.ChannelInfo(ctx, streamer.Login)
	if err != nil {
		s.logger.Warn("kick lookup failed",
			slog.String("login", streamer.Login), slog.Any("error", err))
		return
	}

	if !info.Live {
		if prev.Live {
			state[key] = store.StreamerState{Live: false, LastNotifiedAt: prev.LastNotifiedAt}
		}
		return
	}

	next := prev
	next.Live = true
	next.LastLiveID = info.ID
	state[key] = next

	voiceID, inVoice := s.notify.VoiceChannelID(s.guildID, streamer.DiscordUserID)
	if inVoice && len(cfg.AllowedVoiceIDs) > 0 {
		inVoice = false
		for _, allowed := range cfg.AllowedVoiceIDs {
			if allowed == voiceID {
				inVoice = true
				break
			}
		}
	}
	if inVoice {
		return
	}

	now := s.now()
	isNewStream := prev.LastLiveID != info.ID
	sinceLastNote := now.Sub(time.UnixMilli(prev.LastNotifiedAt))
	if !isNewStream && sinceLastNote < notificationCooldown {
		return
	}

	content := renderMessage(cfg.Message, streamer, info)
	if s.deliver(ctx, streamer, content) {
		next.LastNotifiedAt = now.UnixMilli()
		state[key] = next
	}
}

// deliver tries a DM first and falls back to the announce channel when
// the user's DMs are closed.
func (s *Service) deliver(ctx context.Context, streamer store.Streamer, content string) bool {
	if err := s.notify.DirectMessage(ctx, streamer.DiscordUserID, content); err == nil {
		return true
	} else {
		s.logger.Info("dm failed, trying announce channel",
			slog.String("login", streamer.Login), slog.Any("error", err))
	}
	if streamer.AnnounceChannelID == "" {
		return false
	}
	if err := s.notify.ChannelMessage(ctx, streamer.AnnounceChannelID, content); err != nil {
		s.logger.Warn("announce channel delivery failed",
			slog.String("login", streamer.Login), slog.Any("error", err))
		return false
	}
	return true
}

func renderMessage(template string, streamer store.Streamer, info LiveInfo) string {
	kickURL := "https://kick.com/" + streamer.Login
	content := strings.TrimSpace(template)
	if content == "" {
		content = fmt.Sprintf("🔔 You are live but not in voice. %s", kickURL)
	}
	replacer := strings.NewReplacer(
		"{user}", "<@"+streamer.DiscordUserID+">",
		"{login}", streamer.Login,
		"{url}", kickURL,
		"{title}", info.Title,
		"{game}", info.Game,
	)
	return replacer.Replace(content)
}
