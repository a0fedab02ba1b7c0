package store

const (
	// MaxFormFields is the most inputs a single form may carry.
	MaxFormFields = 5
	// MaxOptions is the most dropdown entries a panel may carry.
	MaxOptions = 25
	// MaxInputLength is the platform ceiling for a text input value.
	MaxInputLength = 4000
)

type PanelMode string

const (
	ModeButton   PanelMode = "button"
	ModeDropdown PanelMode = "dropdown"
)

type FieldStyle string

const (
	StyleShort     FieldStyle = "short"
	StyleParagraph FieldStyle = "paragraph"
)

// FieldSpec describes one input of a structured form.
type FieldSpec struct {
	ID          string     `json:"id" validate:"required,max=100"`
	Label       string     `json:"label" validate:"max=100"`
	Placeholder string     `json:"placeholder,omitempty" validate:"max=100"`
	Required    bool       `json:"required"`
	Style       FieldStyle `json:"style" validate:"omitempty,oneof=short paragraph"`
	MaxLength   int        `json:"maxLength,omitempty" validate:"min=0,max=4000"`
}

// OptionSpec describes one dropdown reason, optionally followed by a form.
type OptionSpec struct {
	Label       string      `json:"label" validate:"required,max=100"`
	Description string      `json:"description,omitempty" validate:"max=100"`
	Emoji       string      `json:"emoji,omitempty"`
	Form        []FieldSpec `json:"form,omitempty" validate:"max=5,dive"`
}

type Branding struct {
	Label string `json:"label"`
	URL   string `json:"url" validate:"omitempty,url"`
}

// PanelConfig is the declarative definition of one ticket entry panel.
// It is written by the dashboard and read fresh on every interaction.
type PanelConfig struct {
	Mode        PanelMode    `json:"mode" validate:"omitempty,oneof=button dropdown"`
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	ButtonLabel string       `json:"buttonLabel"`
	Branding    Branding     `json:"branding"`
	ButtonForm  []FieldSpec  `json:"buttonForm" validate:"max=5,dive"`
	Options     []OptionSpec `json:"options" validate:"max=25,dive"`
}

// GuildConfig holds the authorization document plus watcher settings.
type GuildConfig struct {
	SupportCategoryID string     `json:"supportCategoryId"`
	StaffRoleIDs      []string   `json:"allowedRoleIds"`
	Kick              KickConfig `json:"kick"`
}

type KickConfig struct {
	Message         string   `json:"message"`
	AllowedVoiceIDs []string `json:"allowedVoiceIds"`
}

// Streamer is one watched Kick account.
type Streamer struct {
	Enabled           bool   `json:"enabled"`
	Platform          string `json:"platform"`
	Login             string `json:"login"`
	DiscordUserID     string `json:"discordUserId"`
	AnnounceChannelID string `json:"announceChannelId,omitempty"`
}

// StreamerState is the per-stream notification state kept between polls.
type StreamerState struct {
	Live           bool  `json:"live"`
	LastLiveID     int64 `json:"lastLiveId,omitempty"`
	LastNotifiedAt int64 `json:"lastNotifiedAt,omitempty"` // unix milliseconds
}

type StreamState map[string]StreamerState

// DefaultPanel is the bootstrap panel document written on first start.
func DefaultPanel() PanelConfig {
	return PanelConfig{
		Mode:        ModeButton,
		Title:       "Organizer Support",
		Body:        "Have an inquiry? Use the control below to open a ticket. A private channel will be created and our team will assist you.",
		ButtonLabel: "Create ticket",
	}
}

func DefaultGuild() GuildConfig {
	return GuildConfig{StaffRoleIDs: []string{}}
}
