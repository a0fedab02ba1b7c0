package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/orgsupport/ticketd/internal/store"
)

const staffDeniedMessage = "❌ You need **Manage Channels** or a staff role to do that."

// Event is one inbound interaction together with its consume-once
// response capability.
type Event struct {
	Interaction *discordgo.InteractionCreate
	Responder   *Responder
}

// Router classifies inbound interaction events by component identifier
// and dispatches them. Every dispatched event produces exactly one
// initial response on every code path, including panics.
type Router struct {
	logger   *slog.Logger
	session  Session
	cfg      ConfigSource
	manager  *Manager
	registry *Registry
}

func NewRouter(log *slog.Logger, session Session, cfg ConfigSource, manager *Manager, registry *Registry) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{
		logger:   log.With(slog.String("service", "router")),
		session:  session,
		cfg:      cfg,
		manager:  manager,
		registry: registry,
	}
	registry.Register("ticket", r.handleTicketCommand)
	registry.Register("panel1", r.panelPostHandler(1))
	registry.Register("panel2", r.panelPostHandler(2))
	return r
}

// Dispatch handles one interaction event. Events are independent: a
// failure here degrades to a single ephemeral message to the triggering
// actor and never affects other in-flight events.
func (r *Router) Dispatch(ctx context.Context, session ResponderSession, event *discordgo.InteractionCreate) {
	switch event.Type {
	case discordgo.InteractionApplicationCommand,
		discordgo.InteractionMessageComponent,
		discordgo.InteractionModalSubmit:
	default:
		return
	}

	ev := &Event{
		Interaction: event,
		Responder:   NewResponder(session, event.Interaction),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked", slog.Any("panic", rec))
			r.fail(ev, nil)
		}
	}()

	if err := r.route(ctx, ev); err != nil {
		r.logger.Warn("interaction failed", slog.Any("error", err))
		r.fail(ev, err)
		return
	}
	if !ev.Responder.Used() {
		r.logger.Error("handler produced no initial response")
		r.fail(ev, nil)
	}
}

// fail resolves the event with one user-visible message, whatever state
// the response slot is in: unused gets an ephemeral reply, an unresolved
// deferral gets edited, an already-sent response gets a follow-up.
func (r *Router) fail(ev *Event, cause error) {
	msg := userMessage(cause)
	var err error
	switch {
	case !ev.Responder.Used():
		err = ev.Responder.ReplyEphemeral(msg)
	case ev.Responder.Deferred():
		err = ev.Responder.Edit(msg)
	default:
		err = ev.Responder.FollowupEphemeral(msg)
	}
	if err != nil {
		r.logger.Error("error reply failed", slog.Any("error", err))
	}
}

func (r *Router) route(ctx context.Context, ev *Event) error {
	switch ev.Interaction.Type {
	case discordgo.InteractionApplicationCommand:
		data := ev.Interaction.ApplicationCommandData()
		handler, ok := r.registry.Lookup(data.Name)
		if !ok {
			return ev.Responder.ReplyEphemeral("Unknown command.")
		}
		return handler(ctx, ev)
	case discordgo.InteractionMessageComponent:
		return r.routeComponent(ctx, ev, ev.Interaction.MessageComponentData())
	case discordgo.InteractionModalSubmit:
		return r.routeModal(ctx, ev, ev.Interaction.ModalSubmitData())
	}
	return nil
}

func (r *Router) routeComponent(ctx context.Context, ev *Event, data discordgo.MessageComponentInteractionData) error {
	id := Decode(data.CustomID)
	switch id.Kind {
	case KindReason:
		return r.handleReasonSelect(ctx, ev, id, data)
	case KindCreate:
		return r.handleCreateButton(ctx, ev, id)
	case KindClaim:
		return r.handleClaim(ev)
	case KindClose:
		return r.handleRequestClose(ev)
	case KindConfirmClose:
		return r.handleConfirmClose(ctx, ev)
	case KindCancelClose:
		return r.handleCancelClose(ev)
	case KindReopen:
		return r.handleReopen(ctx, ev)
	case KindTranscript:
		return r.handleTranscript(ctx, ev)
	case KindDelete:
		return r.handleDelete(ctx, ev)
	default:
		// Unrecognized identifier: acknowledge with no visible change.
		return ev.Responder.DeferUpdate()
	}
}

func (r *Router) routeModal(ctx context.Context, ev *Event, data discordgo.ModalSubmitInteractionData) error {
	id := Decode(data.CustomID)
	switch id.Kind {
	case KindFormOption:
		panel := r.panel(id.Panel)
		if id.Option >= len(panel.Options) {
			return ErrInvalidSelection
		}
		option := panel.Options[id.Option]
		return r.createTicket(ctx, ev, option.Label, ParseForm(data, option.Form))
	case KindFormButton:
		panel := r.panel(id.Panel)
		return r.createTicket(ctx, ev, panelReason(panel), ParseForm(data, panel.ButtonForm))
	default:
		return ErrInvalidSelection
	}
}

// handleReasonSelect first resets the select control to its placeholder
// state by re-rendering the panel message over REST, then resolves the
// chosen option. The reset is an idempotent UI refresh independent of the
// chosen value and deliberately not the interaction response, so a modal
// can still be the single initial response.
func (r *Router) handleReasonSelect(ctx context.Context, ev *Event, id ComponentID, data discordgo.MessageComponentInteractionData) error {
	panel := r.panel(id.Panel)
	r.resetPanelMessage(ctx, ev, panel, id.Panel)

	if len(data.Values) == 0 {
		return ErrInvalidSelection
	}
	idx, ok := parseOptionValue(data.Values[0])
	if !ok || idx >= len(panel.Options) {
		return ErrInvalidSelection
	}
	option := panel.Options[idx]

	if len(option.Form) > 0 {
		formID := Encode(ComponentID{Kind: KindFormOption, Panel: id.Panel, Option: idx})
		return ev.Responder.Modal(formID, formTitle(option.Label, panel), BuildForm(option.Form))
	}
	return r.createTicket(ctx, ev, option.Label, nil)
}

func (r *Router) handleCreateButton(ctx context.Context, ev *Event, id ComponentID) error {
	panel := r.panel(id.Panel)
	if len(panel.ButtonForm) > 0 {
		formID := Encode(ComponentID{Kind: KindFormButton, Panel: id.Panel})
		return ev.Responder.Modal(formID, formTitle("", panel), BuildForm(panel.ButtonForm))
	}
	return r.createTicket(ctx, ev, panelReason(panel), nil)
}

func (r *Router) handleClaim(ev *Event) error {
	if !r.requireStaff(ev) {
		return nil
	}
	actorID := actorID(ev)
	r.manager.Claim(ev.Interaction.ChannelID, actorID)
	return ev.Responder.Reply("🛠️ <@" + actorID + "> claimed this ticket.")
}

func (r *Router) handleRequestClose(ev *Event) error {
	if !r.requireStaff(ev) {
		return nil
	}
	r.manager.RequestClose(ev.Interaction.ChannelID)
	return ev.Responder.ReplyEphemeralComponents("Close this ticket?", closePrompt())
}

func (r *Router) handleConfirmClose(ctx context.Context, ev *Event) error {
	if !r.requireStaff(ev) {
		return nil
	}
	// Permission edits can outlast the synchronous reply window: take the
	// placeholder first, resolve it exactly once below or in fail().
	if err := ev.Responder.DeferUpdate(); err != nil {
		return err
	}
	if err := r.manager.ConfirmClose(ctx, ev.Interaction.ChannelID); err != nil {
		return err
	}
	return ev.Responder.Edit("🔒 Ticket closed.")
}

// handleCancelClose needs no authorization: any actor who can see the
// ephemeral prompt may dismiss it.
func (r *Router) handleCancelClose(ev *Event) error {
	r.manager.CancelClose(ev.Interaction.ChannelID)
	return ev.Responder.Update("❎ Close cancelled.", []discordgo.MessageComponent{})
}

func (r *Router) handleReopen(ctx context.Context, ev *Event) error {
	if !r.requireStaff(ev) {
		return nil
	}
	if err := ev.Responder.DeferEphemeral(); err != nil {
		return err
	}
	if err := r.manager.Reopen(ctx, ev.Interaction.ChannelID); err != nil {
		return err
	}
	return ev.Responder.Edit("✅ Ticket reopened.")
}

func (r *Router) handleTranscript(ctx context.Context, ev *Event) error {
	if !r.requireStaff(ev) {
		return nil
	}
	if err := ev.Responder.DeferEphemeral(); err != nil {
		return err
	}
	text, err := r.manager.Transcript(ctx, ev.Interaction.ChannelID)
	if err != nil {
		return err
	}
	if text == "" {
		text = "(no messages)\n"
	}
	return ev.Responder.EditFiles("📄 Transcript export.", []*discordgo.File{{
		Name:        "transcript-" + ev.Interaction.ChannelID + ".txt",
		ContentType: "text/plain",
		Reader:      strings.NewReader(text),
	}})
}

func (r *Router) handleDelete(ctx context.Context, ev *Event) error {
	if !r.requireStaff(ev) {
		return nil
	}
	// Respond before the channel (and the interaction's home) disappears.
	if err := ev.Responder.ReplyEphemeral("🗑️ Deleting this ticket channel…"); err != nil {
		return err
	}
	return r.manager.Delete(ctx, ev.Interaction.ChannelID)
}

func (r *Router) handleTicketCommand(ctx context.Context, ev *Event) error {
	data := ev.Interaction.ApplicationCommandData()
	if len(data.Options) == 0 {
		return ev.Responder.ReplyEphemeral("Unknown subcommand.")
	}
	switch data.Options[0].Name {
	case "open":
		subject := "no-subject"
		for _, opt := range data.Options[0].Options {
			if opt.Name == "subject" && opt.StringValue() != "" {
				subject = opt.StringValue()
			}
		}
		return r.createTicket(ctx, ev, subject, nil)
	case "close":
		return r.handleRequestClose(ev)
	default:
		return ev.Responder.ReplyEphemeral("Unknown subcommand.")
	}
}

func (r *Router) panelPostHandler(panelID int) CommandHandler {
	return func(ctx context.Context, ev *Event) error {
		data := ev.Interaction.ApplicationCommandData()
		if len(data.Options) == 0 || data.Options[0].Name != "post" {
			return ev.Responder.ReplyEphemeral("Unknown subcommand.")
		}
		if !r.requireStaff(ev) {
			return nil
		}
		if err := ev.Responder.DeferEphemeral(); err != nil {
			return err
		}
		panel := r.panel(panelID)
		embed, rows := RenderPanel(panel, panelID)
		if _, err := r.session.ChannelMessageSendComplex(ev.Interaction.ChannelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: rows,
		}, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("post panel: %w", err)
		}
		return ev.Responder.Edit(fmt.Sprintf("✅ Panel #%d posted.", panelID))
	}
}

func (r *Router) createTicket(ctx context.Context, ev *Event, reason string, answers []Answer) error {
	if err := ev.Responder.DeferEphemeral(); err != nil {
		return err
	}
	member := ev.Interaction.Member
	if member == nil || member.User == nil {
		return errors.New("interaction carries no guild member")
	}
	ticket, err := r.manager.Create(ctx, ev.Interaction.GuildID, member.User, reason, answers)
	if err != nil {
		return err
	}
	return ev.Responder.Edit("✅ Ticket created: <#" + ticket.ChannelID + ">")
}

// requireStaff gates a handler on staff authorization. A denial consumes
// the initial response with the ephemeral denial message.
func (r *Router) requireStaff(ev *Event) bool {
	guildCfg, err := r.cfg.Guild()
	if err != nil {
		r.logger.Warn("guild config degraded", slog.Any("error", err))
	}
	if IsStaff(ev.Interaction.Member, guildCfg) {
		return true
	}
	if err := ev.Responder.ReplyEphemeral(staffDeniedMessage); err != nil {
		r.logger.Error("denial reply failed", slog.Any("error", err))
	}
	return false
}

// panel reads the panel document fresh. A malformed document degrades to
// its defaulted sections rather than failing the interaction.
func (r *Router) panel(panelID int) store.PanelConfig {
	panel, err := r.cfg.Panel(panelID)
	if err != nil {
		r.logger.Warn("panel document degraded",
			slog.Int("panel", panelID), slog.Any("error", err))
	}
	return panel
}

// resetPanelMessage re-renders the panel message so the select control
// returns to its placeholder. Best-effort: a failed refresh never blocks
// the interaction.
func (r *Router) resetPanelMessage(ctx context.Context, ev *Event, panel store.PanelConfig, panelID int) {
	msg := ev.Interaction.Message
	if msg == nil {
		return
	}
	rows := renderRows(panel, panelID)
	if _, err := r.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         msg.ID,
		Channel:    msg.ChannelID,
		Components: &rows,
	}, discordgo.WithContext(ctx)); err != nil {
		r.logger.Warn("panel select reset failed", slog.Any("error", err))
	}
}

func parseOptionValue(value string) (int, bool) {
	raw, ok := strings.CutPrefix(value, "opt_")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func panelReason(panel store.PanelConfig) string {
	if panel.Title != "" {
		return panel.Title
	}
	return "Support"
}

func formTitle(optionLabel string, panel store.PanelConfig) string {
	if optionLabel != "" {
		return optionLabel
	}
	return panelReason(panel)
}

func actorID(ev *Event) string {
	if ev.Interaction.Member != nil && ev.Interaction.Member.User != nil {
		return ev.Interaction.Member.User.ID
	}
	return ""
}

func closePrompt() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: Encode(ComponentID{Kind: KindConfirmClose}),
				Style:    discordgo.DangerButton,
				Label:    "Close ticket",
			},
			discordgo.Button{
				CustomID: Encode(ComponentID{Kind: KindCancelClose}),
				Style:    discordgo.SecondaryButton,
				Label:    "Cancel",
			},
		}},
	}
}
