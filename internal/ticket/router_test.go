package ticket

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/orgsupport/ticketd/internal/store"
)

func newTestRouter(session *fakeSession, cfg *fakeConfig) (*Router, *Manager) {
	manager := NewManager(testLogger(), session, cfg)
	return NewRouter(testLogger(), session, cfg, manager, NewRegistry()), manager
}

func dropdownConfig() *fakeConfig {
	cfg := configuredGuild()
	cfg.panels[1] = store.PanelConfig{
		Mode:  store.ModeDropdown,
		Title: "Support",
		Options: []store.OptionSpec{
			{Label: "General"},
			{Label: "Billing", Form: []store.FieldSpec{
				{ID: "acct", Label: "Account #", Required: true},
			}},
		},
	}
	return cfg
}

func TestDispatchIgnoresOtherInteractionTypes(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionPing,
	}})
	if got := session.initialResponseCount(); got != 0 {
		t.Fatalf("responses = %d, want 0", got)
	}
}

func TestReasonSelectWithoutFormCreatesTicket(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.nextChannelID = "ticket-chan"
	router, manager := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, componentInteraction("panel1_reason", plainMember("u1"), "opt_0"))

	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d, want exactly 1", got)
	}
	if session.lastResponse().Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("response type = %v", session.lastResponse().Type)
	}
	// The panel message was reset over REST, not through the response slot.
	if len(session.editedMessages) != 1 || session.editedMessages[0].ID != "panel-msg" {
		t.Fatalf("panel reset edits = %+v", session.editedMessages)
	}
	if len(session.createdChannels) != 1 {
		t.Fatalf("created channels = %d", len(session.createdChannels))
	}
	ticket, ok := manager.Lookup("ticket-chan")
	if !ok || ticket.Reason != "General" {
		t.Fatalf("registry ticket = %+v ok=%v", ticket, ok)
	}
	if len(session.edits) != 1 || !strings.Contains(*session.edits[0].Content, "<#ticket-chan>") {
		t.Fatalf("deferred resolution = %+v", session.edits)
	}
}

func TestReasonSelectWithFormOpensModal(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, componentInteraction("panel1_reason", plainMember("u1"), "opt_1"))

	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d, want exactly 1", got)
	}
	resp := session.lastResponse()
	if resp.Type != discordgo.InteractionResponseModal {
		t.Fatalf("response type = %v, want modal", resp.Type)
	}
	if resp.Data.CustomID != "panel1_form_option_1" {
		t.Errorf("modal custom id = %q", resp.Data.CustomID)
	}
	if resp.Data.Title != "Billing" {
		t.Errorf("modal title = %q", resp.Data.Title)
	}
	if len(session.createdChannels) != 0 {
		t.Error("no channel may be created before the form is submitted")
	}
}

func TestModalSubmitCreatesTicketWithAnswers(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.nextChannelID = "ticket-chan"
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, modalInteraction("panel1_form_option_1", plainMember("u1"), map[string]string{
		"acct": "12345",
	}))

	if len(session.createdChannels) != 1 {
		t.Fatalf("created channels = %d", len(session.createdChannels))
	}
	if len(session.sentMessages) != 1 {
		t.Fatalf("summary cards = %d", len(session.sentMessages))
	}
	card := session.sentMessages[0].data.Embeds[0]
	var found bool
	for _, f := range card.Fields {
		if f.Name == "Account #" && f.Value == "12345" {
			found = true
		}
	}
	if !found {
		t.Errorf("summary card fields = %+v", card.Fields)
	}
}

func TestModalSubmitStaleOptionIndex(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, modalInteraction("panel1_form_option_9", plainMember("u1"), nil))

	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d, want exactly 1", got)
	}
	resp := session.lastResponse()
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("stale-option error must be ephemeral")
	}
	if !strings.Contains(resp.Data.Content, "no longer available") {
		t.Errorf("error message = %q", resp.Data.Content)
	}
}

func TestReasonSelectStaleValue(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, componentInteraction("panel1_reason", plainMember("u1"), "opt_42"))

	resp := session.lastResponse()
	if resp == nil || !strings.Contains(resp.Data.Content, "no longer available") {
		t.Fatalf("response = %+v", resp)
	}
	if len(session.createdChannels) != 0 {
		t.Error("stale selection must not create a channel")
	}
}

func TestCreateButtonWithoutFormCreatesTicket(t *testing.T) {
	t.Parallel()

	cfg := configuredGuild()
	cfg.panels[2] = store.PanelConfig{Mode: store.ModeButton, Title: "VIP Desk"}
	session := newFakeSession()
	router, manager := newTestRouter(session, cfg)

	router.Dispatch(context.Background(), session, componentInteraction("panel2_create", plainMember("u1")))

	if len(session.createdChannels) != 1 {
		t.Fatalf("created channels = %d", len(session.createdChannels))
	}
	ticket, _ := manager.Lookup("chan-1")
	if ticket.Reason != "VIP Desk" {
		t.Errorf("reason = %q, want panel title", ticket.Reason)
	}
}

func TestCreateButtonWithFormOpensModal(t *testing.T) {
	t.Parallel()

	cfg := configuredGuild()
	cfg.panels[1] = store.PanelConfig{
		Mode:       store.ModeButton,
		ButtonForm: []store.FieldSpec{{ID: "subject"}},
	}
	session := newFakeSession()
	router, _ := newTestRouter(session, cfg)

	router.Dispatch(context.Background(), session, componentInteraction("panel1_create", plainMember("u1")))

	resp := session.lastResponse()
	if resp.Type != discordgo.InteractionResponseModal || resp.Data.CustomID != "panel1_form_button" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestClaimDeniedForNonStaff(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())
	ticket, err := manager.Create(context.Background(), "guild-1", &discordgo.User{ID: "u1", Username: "ada"}, "x", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	router.Dispatch(context.Background(), session, componentInteraction("ticket_claim", plainMember("intruder")))

	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d, want exactly 1", got)
	}
	resp := session.lastResponse()
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("denial must be ephemeral")
	}
	if resp.Data.Content != staffDeniedMessage {
		t.Errorf("denial = %q", resp.Data.Content)
	}
	if got, _ := manager.Lookup(ticket.ChannelID); got.Claimed {
		t.Error("denied claim must not change ticket state")
	}
}

func TestClaimByStaffRole(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())
	ticket, err := manager.Create(context.Background(), "guild-1", &discordgo.User{ID: "u1", Username: "ada"}, "x", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	router.Dispatch(context.Background(), session, componentInteraction("ticket_claim", plainMember("helper", "role-staff")))

	resp := session.lastResponse()
	if resp.Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Fatalf("response type = %v", resp.Type)
	}
	if !strings.Contains(resp.Data.Content, "<@helper> claimed this ticket") {
		t.Errorf("claim announcement = %q", resp.Data.Content)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0 {
		t.Error("claim announcement must be visible to the channel")
	}
	if got, _ := manager.Lookup(ticket.ChannelID); !got.Claimed {
		t.Error("ticket not marked claimed")
	}
}

func TestCloseConfirmationFlow(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())
	ticket, err := manager.Create(context.Background(), "guild-1", &discordgo.User{ID: "opener-1", Username: "ada"}, "x", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Close press: ephemeral confirmation prompt, channel untouched.
	router.Dispatch(context.Background(), session, componentInteraction("ticket_close", staffMember("s1")))
	prompt := session.lastResponse()
	if prompt.Data.Content != "Close this ticket?" || len(prompt.Data.Components) == 0 {
		t.Fatalf("prompt = %+v", prompt.Data)
	}
	if got, _ := manager.Lookup(ticket.ChannelID); got.State != StateClosePending {
		t.Fatalf("state after prompt = %q", got.State)
	}
	if len(session.permissionDeletes) != 0 {
		t.Fatal("prompt must not touch permissions")
	}

	// Confirm press: opener revoked, closed card posted, deferral resolved.
	router.Dispatch(context.Background(), session, componentInteraction("ticket_confirm_close", staffMember("s1")))
	if len(session.permissionDeletes) != 1 || session.permissionDeletes[0].targetID != "opener-1" {
		t.Fatalf("permission deletes = %+v", session.permissionDeletes)
	}
	if got, _ := manager.Lookup(ticket.ChannelID); got.State != StateClosed {
		t.Fatalf("state after confirm = %q", got.State)
	}
	last := session.edits[len(session.edits)-1]
	if !strings.Contains(*last.Content, "Ticket closed") {
		t.Errorf("confirm resolution = %q", *last.Content)
	}
}

func TestCancelCloseNeedsNoAuthorization(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())
	ticket, err := manager.Create(context.Background(), "guild-1", &discordgo.User{ID: "u1", Username: "ada"}, "x", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	manager.RequestClose(ticket.ChannelID)

	router.Dispatch(context.Background(), session, componentInteraction("ticket_cancel_close", plainMember("u1")))

	resp := session.lastResponse()
	if resp.Type != discordgo.InteractionResponseUpdateMessage {
		t.Fatalf("response type = %v, want in-place update", resp.Type)
	}
	if got, _ := manager.Lookup(ticket.ChannelID); got.State != StateOpen {
		t.Fatalf("state after cancel = %q", got.State)
	}
}

func TestUnknownComponentIsAcknowledgedNoOp(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, componentInteraction("mystery_widget", plainMember("u1")))

	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d, want exactly 1", got)
	}
	if session.lastResponse().Type != discordgo.InteractionResponseDeferredMessageUpdate {
		t.Fatalf("response type = %v, want silent acknowledgement", session.lastResponse().Type)
	}
	if len(session.createdChannels)+len(session.deletedChannels)+len(session.sentMessages) != 0 {
		t.Error("unknown identifier must not touch any channel")
	}
}

func TestCreateFailureResolvesDeferral(t *testing.T) {
	t.Parallel()

	cfg := dropdownConfig()
	cfg.guild.SupportCategoryID = ""
	session := newFakeSession()
	router, _ := newTestRouter(session, cfg)

	router.Dispatch(context.Background(), session, componentInteraction("panel1_reason", plainMember("u1"), "opt_0"))

	// The deferral was taken before the failure, so the error lands in the
	// deferred message.
	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d, want exactly 1", got)
	}
	if len(session.edits) != 1 {
		t.Fatalf("edits = %d, want the error resolution", len(session.edits))
	}
	if !strings.Contains(*session.edits[0].Content, "Support category is not set") {
		t.Errorf("error resolution = %q", *session.edits[0].Content)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())
	router.registry.Register("boom", func(ctx context.Context, ev *Event) error {
		panic("kaboom")
	})

	router.Dispatch(context.Background(), session, commandInteraction("boom", plainMember("u1"), "go"))

	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d, want exactly 1", got)
	}
	resp := session.lastResponse()
	if !strings.Contains(resp.Data.Content, "Something went wrong") {
		t.Errorf("panic resolution = %q", resp.Data.Content)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("panic resolution must be ephemeral")
	}
}

func TestDispatchGuardsSilentHandlers(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())
	router.registry.Register("quiet", func(ctx context.Context, ev *Event) error {
		return nil
	})

	router.Dispatch(context.Background(), session, commandInteraction("quiet", plainMember("u1"), "go"))

	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("a silent handler must still yield one response, got %d", got)
	}
}

func TestTicketOpenCommand(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, commandInteraction("ticket", plainMember("u1"), "open",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "subject",
			Type:  discordgo.ApplicationCommandOptionString,
			Value: "Password reset",
		},
	))

	ticket, ok := manager.Lookup("chan-1")
	if !ok || ticket.Reason != "Password reset" {
		t.Fatalf("ticket = %+v ok=%v", ticket, ok)
	}
}

func TestTicketOpenCommandDefaultSubject(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, commandInteraction("ticket", plainMember("u1"), "open"))

	ticket, _ := manager.Lookup("chan-1")
	if ticket.Reason != "no-subject" {
		t.Errorf("reason = %q", ticket.Reason)
	}
}

func TestTicketCloseCommandRoutesToPrompt(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())
	ticket, err := manager.Create(context.Background(), "guild-1", &discordgo.User{ID: "u1", Username: "ada"}, "x", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	router.Dispatch(context.Background(), session, commandInteraction("ticket", staffMember("s1"), "close"))

	resp := session.lastResponse()
	if resp.Data.Content != "Close this ticket?" {
		t.Fatalf("response = %+v", resp.Data)
	}
	// The command never deletes; only the confirmed control does.
	if len(session.deletedChannels) != 0 {
		t.Error("close command must not delete the channel")
	}
	if got, _ := manager.Lookup(ticket.ChannelID); got.State != StateClosePending {
		t.Errorf("state = %q", got.State)
	}
}

func TestPanelPostCommand(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, commandInteraction("panel1", staffMember("s1"), "post"))

	if len(session.sentMessages) != 1 {
		t.Fatalf("posted messages = %d", len(session.sentMessages))
	}
	posted := session.sentMessages[0].data
	if len(posted.Embeds) != 1 || posted.Embeds[0].Title != "Support" {
		t.Errorf("posted embed = %+v", posted.Embeds)
	}
	if len(session.edits) != 1 || !strings.Contains(*session.edits[0].Content, "Panel #1 posted") {
		t.Errorf("resolution = %+v", session.edits)
	}
}

func TestPanelPostDeniedForNonStaff(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, commandInteraction("panel1", plainMember("u1"), "post"))

	if len(session.sentMessages) != 0 {
		t.Fatal("denied post must not publish a panel")
	}
	if session.lastResponse().Data.Content != staffDeniedMessage {
		t.Errorf("denial = %q", session.lastResponse().Data.Content)
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, commandInteraction("nonexistent", plainMember("u1"), "go"))

	resp := session.lastResponse()
	if resp == nil || resp.Data.Content != "Unknown command." {
		t.Fatalf("response = %+v", resp)
	}
}

func TestDeleteControlRespondsBeforeDeleting(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	router, manager := newTestRouter(session, dropdownConfig())
	ticket, err := manager.Create(context.Background(), "guild-1", &discordgo.User{ID: "u1", Username: "ada"}, "x", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	router.Dispatch(context.Background(), session, componentInteraction("ticket_delete", staffMember("s1")))

	if len(session.deletedChannels) != 1 {
		t.Fatalf("deleted channels = %v", session.deletedChannels)
	}
	if _, ok := manager.Lookup(ticket.ChannelID); ok {
		t.Error("registry record survived delete")
	}
	if got := session.initialResponseCount(); got != 1 {
		t.Fatalf("initial responses = %d", got)
	}
}

func TestTranscriptControlAttachesFile(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.messagePages = [][]*discordgo.Message{{
		{ID: "m1", Content: "hello", Author: &discordgo.User{Username: "ada"}, Timestamp: timeFixed()},
	}}
	router, _ := newTestRouter(session, dropdownConfig())

	router.Dispatch(context.Background(), session, componentInteraction("ticket_transcript", staffMember("s1")))

	if len(session.edits) != 1 {
		t.Fatalf("edits = %d", len(session.edits))
	}
	edit := session.edits[0]
	if len(edit.Files) != 1 || edit.Files[0].Name != "transcript-chan-1.txt" {
		t.Fatalf("attached files = %+v", edit.Files)
	}
}
