package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/orgsupport/ticketd/internal/store"
)

// Session is the slice of the Discord REST API the lifecycle manager
// drives. *discordgo.Session satisfies it.
type Session interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// ConfigSource supplies the declarative documents, read fresh per call.
type ConfigSource interface {
	Panel(n int) (store.PanelConfig, error)
	Guild() (store.GuildConfig, error)
}

type State string

const (
	StateOpen         State = "open"
	StateClosePending State = "close_pending"
	StateClosed       State = "closed"
)

// Ticket is the per-ticket record, keyed by channel id. The registry is
// the source of truth; the opener marker embedded in the channel topic is
// a human-readable mirror and the recovery path after a restart.
type Ticket struct {
	ID        string
	ChannelID string
	GuildID   string
	OpenerID  string
	Reason    string
	State     State
	Claimed   bool
	CreatedAt time.Time
}

const openerTopicPrefix = "opener:"

// memberPerms is the grant a ticket opener and staff roles receive on the
// ticket channel. Reopen restores exactly this set.
const memberPerms = int64(discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory)

// Manager drives ticket channels through their lifecycle. Each ticket's
// state lives in its own channel plus one registry entry; concurrent
// tickets never contend beyond the registry map lock.
type Manager struct {
	logger  *slog.Logger
	session Session
	cfg     ConfigSource

	mu      sync.Mutex
	tickets map[string]*Ticket
}

func NewManager(log *slog.Logger, session Session, cfg ConfigSource) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		logger:  log.With(slog.String("service", "ticket")),
		session: session,
		cfg:     cfg,
		tickets: make(map[string]*Ticket),
	}
}

// Lookup returns the registry record for a channel, if any.
func (m *Manager) Lookup(channelID string) (Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[channelID]
	if !ok {
		return Ticket{}, false
	}
	return *t, true
}

// Create provisions a private ticket channel for the opener: default
// visibility denied, opener and every configured staff role granted
// view/send/history, opener marker embedded in the topic, summary card
// posted with the claim/close controls.
func (m *Manager) Create(ctx context.Context, guildID string, opener *discordgo.User, reason string, answers []Answer) (Ticket, error) {
	guildCfg, err := m.cfg.Guild()
	if err != nil {
		m.logger.Warn("guild config degraded", slog.Any("error", err))
	}
	if strings.TrimSpace(guildCfg.SupportCategoryID) == "" {
		return Ticket{}, ErrConfigurationMissing
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// The @everyone role shares the guild's id.
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: int64(discordgo.PermissionViewChannel),
		},
		{
			ID:    opener.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberPerms,
		},
	}
	for _, roleID := range guildCfg.StaffRoleIDs {
		if strings.TrimSpace(roleID) == "" {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberPerms,
		})
	}

	now := time.Now().UTC()
	channel, err := m.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 channelName(opener.Username, now),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                openerTopicPrefix + opener.ID,
		ParentID:             guildCfg.SupportCategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Ticket{}, fmt.Errorf("create ticket channel: %w", err)
	}

	ticket := &Ticket{
		ID:        uuid.NewString(),
		ChannelID: channel.ID,
		GuildID:   guildID,
		OpenerID:  opener.ID,
		Reason:    reason,
		State:     StateOpen,
		CreatedAt: now,
	}

	if _, err := m.session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content:    "<@" + opener.ID + ">",
		Embeds:     []*discordgo.MessageEmbed{summaryCard(ticket, answers)},
		Components: openControls(),
	}, discordgo.WithContext(ctx)); err != nil {
		m.logger.Error("post summary card failed",
			slog.String("channel_id", channel.ID), slog.Any("error", err))
	}

	m.mu.Lock()
	m.tickets[channel.ID] = ticket
	m.mu.Unlock()

	m.logger.Info("ticket created",
		slog.String("ticket_id", ticket.ID),
		slog.String("channel_id", channel.ID),
		slog.String("opener_id", opener.ID),
		slog.String("reason", reason),
	)
	return *ticket, nil
}

// Claim marks the ticket claimed. Claims are non-exclusive by design:
// repeated or concurrent claims are all accepted so several staff can
// coordinate on one ticket.
func (m *Manager) Claim(channelID, actorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[channelID]; ok {
		t.Claimed = true
	}
	m.logger.Info("ticket claimed",
		slog.String("channel_id", channelID), slog.String("actor_id", actorID))
}

// RequestClose records the pending close. The channel itself is not
// touched until the actor confirms.
func (m *Manager) RequestClose(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[channelID]; ok && t.State == StateOpen {
		t.State = StateClosePending
	}
}

// CancelClose reverts a pending close, channel untouched.
func (m *Manager) CancelClose(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[channelID]; ok && t.State == StateClosePending {
		t.State = StateOpen
	}
}

// ConfirmClose revokes the opener's grant and posts the closed-state card
// with the transcript/reopen/delete controls. A channel whose opener
// cannot be recovered is closed without the revoke: the marker being
// absent is a soft failure, not a fatal one.
func (m *Manager) ConfirmClose(ctx context.Context, channelID string) error {
	openerID, ok := m.resolveOpener(ctx, channelID)
	if !ok {
		m.logger.Warn("no opener marker, skipping revoke", slog.String("channel_id", channelID))
	} else if err := m.session.ChannelPermissionDelete(channelID, openerID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("revoke opener access: %w", err)
	}

	if _, err := m.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🔒 Ticket closed",
			Description: "This ticket is closed. Staff can export a transcript, reopen it, or delete the channel.",
			Color:       panelColor,
		}},
		Components: closedControls(),
	}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("post closed card: %w", err)
	}

	m.mu.Lock()
	if t, ok := m.tickets[channelID]; ok {
		t.State = StateClosed
	}
	m.mu.Unlock()
	m.logger.Info("ticket closed", slog.String("channel_id", channelID))
	return nil
}

// Reopen restores the opener's view/send/history grant, using the same
// soft-fail recovery as ConfirmClose, and re-attaches the open controls.
func (m *Manager) Reopen(ctx context.Context, channelID string) error {
	openerID, ok := m.resolveOpener(ctx, channelID)
	if !ok {
		m.logger.Warn("no opener marker, skipping restore", slog.String("channel_id", channelID))
	} else if err := m.session.ChannelPermissionSet(channelID, openerID,
		discordgo.PermissionOverwriteTypeMember, memberPerms, 0, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("restore opener access: %w", err)
	}

	if _, err := m.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title: "🎟️ Ticket reopened",
			Color: panelColor,
		}},
		Components: openControls(),
	}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("post reopened card: %w", err)
	}

	m.mu.Lock()
	if t, ok := m.tickets[channelID]; ok {
		t.State = StateOpen
		t.Claimed = false
	}
	m.mu.Unlock()
	m.logger.Info("ticket reopened", slog.String("channel_id", channelID))
	return nil
}

// Delete destroys the ticket channel. Terminal.
func (m *Manager) Delete(ctx context.Context, channelID string) error {
	if _, err := m.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		if isPermissionError(err) {
			return fmt.Errorf("%w: delete channel: %w", ErrPermissionDenied, err)
		}
		return fmt.Errorf("delete channel: %w", err)
	}
	m.mu.Lock()
	delete(m.tickets, channelID)
	m.mu.Unlock()
	m.logger.Info("ticket deleted", slog.String("channel_id", channelID))
	return nil
}

// isPermissionError reports whether a REST failure is the platform
// refusing the operation, as opposed to a transient transport error.
func isPermissionError(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeMissingPermissions {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

// resolveOpener recovers the opener id for a channel: registry first,
// then the topic marker for channels opened before the last restart. A
// topic recovery rehydrates the registry record.
func (m *Manager) resolveOpener(ctx context.Context, channelID string) (string, bool) {
	m.mu.Lock()
	if t, ok := m.tickets[channelID]; ok && t.OpenerID != "" {
		m.mu.Unlock()
		return t.OpenerID, true
	}
	m.mu.Unlock()

	channel, err := m.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		m.logger.Warn("channel fetch for opener recovery failed",
			slog.String("channel_id", channelID), slog.Any("error", err))
		return "", false
	}
	openerID, ok := strings.CutPrefix(strings.TrimSpace(channel.Topic), openerTopicPrefix)
	if !ok || openerID == "" {
		return "", false
	}

	m.mu.Lock()
	if _, exists := m.tickets[channelID]; !exists {
		m.tickets[channelID] = &Ticket{
			ID:        uuid.NewString(),
			ChannelID: channelID,
			GuildID:   channel.GuildID,
			OpenerID:  openerID,
			State:     StateOpen,
		}
	}
	m.mu.Unlock()
	return openerID, true
}

func channelName(username string, now time.Time) string {
	var b strings.Builder
	for _, r := range strings.ToLower(username) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "user"
	}
	suffix := fmt.Sprintf("%d", now.UnixMilli())
	return fmt.Sprintf("ticket-%s-%s", name, suffix[len(suffix)-4:])
}

func summaryCard(t *Ticket, answers []Answer) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Opener", Value: "<@" + t.OpenerID + ">", Inline: true},
		{Name: "Reason", Value: embedValue(t.Reason), Inline: true},
		{Name: "Ticket", Value: t.ID, Inline: true},
	}
	for _, a := range answers {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  truncate(a.Label, 256),
			Value: embedValue(a.Value),
		})
	}
	return &discordgo.MessageEmbed{
		Title:       "🎟️ Support ticket",
		Description: "A staff member will be with you shortly.",
		Color:       panelColor,
		Fields:      fields,
		Timestamp:   t.CreatedAt.Format(time.RFC3339),
	}
}

func embedValue(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return truncate(s, 1024)
}

func openControls() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: Encode(ComponentID{Kind: KindClaim}),
				Style:    discordgo.PrimaryButton,
				Label:    "Claim",
			},
			discordgo.Button{
				CustomID: Encode(ComponentID{Kind: KindClose}),
				Style:    discordgo.DangerButton,
				Label:    "Close",
			},
		}},
	}
}

func closedControls() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: Encode(ComponentID{Kind: KindTranscript}),
				Style:    discordgo.SecondaryButton,
				Label:    "Transcript",
			},
			discordgo.Button{
				CustomID: Encode(ComponentID{Kind: KindReopen}),
				Style:    discordgo.SuccessButton,
				Label:    "Reopen",
			},
			discordgo.Button{
				CustomID: Encode(ComponentID{Kind: KindDelete}),
				Style:    discordgo.DangerButton,
				Label:    "Delete",
			},
		}},
	}
}
