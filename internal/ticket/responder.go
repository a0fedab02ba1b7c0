package ticket

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ErrAlreadyResponded reports a second initial-response attempt on the
// same interaction. The platform allows exactly one; a second attempt is
// an engine bug and is surfaced instead of silently failing remotely.
var ErrAlreadyResponded = errors.New("initial interaction response already sent")

// ResponderSession is the slice of the session API a responder needs.
type ResponderSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Responder is the consume-once capability over an interaction's single
// allowed initial response. It transitions unused → used on the first
// response of any flavor; later attempts return ErrAlreadyResponded.
// Follow-ups and deferred-response edits stay available after use.
type Responder struct {
	session     ResponderSession
	interaction *discordgo.Interaction

	mu       sync.Mutex
	used     bool
	deferred bool
}

func NewResponder(session ResponderSession, interaction *discordgo.Interaction) *Responder {
	return &Responder{session: session, interaction: interaction}
}

func (r *Responder) Used() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Deferred reports whether the initial response was a placeholder that
// still needs resolving through Edit.
func (r *Responder) Deferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred
}

func (r *Responder) respond(resp *discordgo.InteractionResponse, deferred bool) error {
	r.mu.Lock()
	if r.used {
		r.mu.Unlock()
		return ErrAlreadyResponded
	}
	// The slot is consumed even when the transport call fails: a retry
	// with different content cannot succeed once the attempt was made.
	r.used = true
	r.deferred = deferred
	r.mu.Unlock()

	return r.session.InteractionRespond(r.interaction, resp)
}

// Reply posts a visible message in the channel as the initial response.
func (r *Responder) Reply(content string) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}, false)
}

// ReplyEphemeral posts a message visible only to the actor.
func (r *Responder) ReplyEphemeral(content string) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, false)
}

// ReplyEphemeralComponents posts an ephemeral message carrying component
// rows, e.g. the close confirmation prompt.
func (r *Responder) ReplyEphemeralComponents(content string, rows []discordgo.MessageComponent) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: rows,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	}, false)
}

// DeferEphemeral acquires the deferred placeholder for slow work. The
// caller must resolve it exactly once through Edit, on every exit path.
func (r *Responder) DeferEphemeral() error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, true)
}

// DeferUpdate acknowledges a component press with no visible change,
// reserving the message-update slot for a later Edit.
func (r *Responder) DeferUpdate() error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, true)
}

// Update rewrites the message the component lives on in place.
func (r *Responder) Update(content string, rows []discordgo.MessageComponent) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: rows,
		},
	}, false)
}

// Modal opens a structured form. A modal can only ever be the initial
// response, never a follow-up.
func (r *Responder) Modal(customID, title string, rows []discordgo.MessageComponent) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      truncate(title, modalLabelLimit),
			Components: rows,
		},
	}, false)
}

// Edit resolves a deferred placeholder (or rewrites a sent reply).
func (r *Responder) Edit(content string) error {
	r.mu.Lock()
	r.deferred = false
	r.mu.Unlock()
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &[]discordgo.MessageComponent{},
	})
	return err
}

// EditFiles resolves a deferred placeholder with file attachments.
func (r *Responder) EditFiles(content string, files []*discordgo.File) error {
	r.mu.Lock()
	r.deferred = false
	r.mu.Unlock()
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: &content,
		Files:   files,
	})
	return err
}

// FollowupEphemeral sends a follow-up after the initial response is
// consumed. Zero or more of these may follow the one initial response.
func (r *Responder) FollowupEphemeral(content string) error {
	_, err := r.session.FollowupMessageCreate(r.interaction, false, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}
