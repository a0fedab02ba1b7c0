package ticket

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/orgsupport/ticketd/internal/store"
)

const (
	panelColor = 0xFFA500

	displayLimit       = 100
	selectPlaceholder  = "Select the Contact Reason"
	defaultButtonLabel = "Create ticket"
)

// Custom emoji token grammar: <:name:id> or <a:name:id>.
var customEmojiPattern = regexp.MustCompile(`^<(a?):(\w+):(\d+)>$`)

// ParseEmoji accepts either a structured custom-emoji token or an
// arbitrary literal (assumed unicode) passed through verbatim. Empty
// input yields nil.
func ParseEmoji(input string) *discordgo.ComponentEmoji {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil
	}
	if m := customEmojiPattern.FindStringSubmatch(s); m != nil {
		return &discordgo.ComponentEmoji{
			Animated: m[1] == "a",
			Name:     m[2],
			ID:       m[3],
		}
	}
	return &discordgo.ComponentEmoji{Name: s}
}

// RenderPanel turns a panel document into its embed and component rows.
// Pure and deterministic: identical input yields identical output.
func RenderPanel(panel store.PanelConfig, panelID int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	title := panel.Title
	if title == "" {
		title = "Support"
	}
	body := panel.Body
	if body == "" {
		body = "Use the control below to open a ticket."
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: body,
		Color:       panelColor,
	}
	return embed, renderRows(panel, panelID)
}

func renderRows(panel store.PanelConfig, panelID int) []discordgo.MessageComponent {
	if panel.Mode == store.ModeDropdown {
		return renderDropdown(panel, panelID)
	}
	return renderButton(panel, panelID)
}

func renderDropdown(panel store.PanelConfig, panelID int) []discordgo.MessageComponent {
	options := panel.Options
	if len(options) > store.MaxOptions {
		options = options[:store.MaxOptions]
	}

	menuOptions := make([]discordgo.SelectMenuOption, 0, len(options))
	for idx, opt := range options {
		label := truncate(opt.Label, displayLimit)
		if label == "" {
			label = "Reason"
		}
		menuOptions = append(menuOptions, discordgo.SelectMenuOption{
			Label:       label,
			Value:       fmt.Sprintf("opt_%d", idx),
			Description: truncate(opt.Description, displayLimit),
			Emoji:       ParseEmoji(opt.Emoji),
		})
	}

	rows := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    Encode(ComponentID{Kind: KindReason, Panel: panelID}),
				Placeholder: selectPlaceholder,
				Options:     menuOptions,
			},
		}},
	}
	if row, ok := brandingRow(panel.Branding); ok {
		rows = append(rows, row)
	}
	return rows
}

func renderButton(panel store.PanelConfig, panelID int) []discordgo.MessageComponent {
	label := panel.ButtonLabel
	if label == "" {
		label = defaultButtonLabel
	}
	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			CustomID: Encode(ComponentID{Kind: KindCreate, Panel: panelID}),
			Style:    discordgo.PrimaryButton,
			Label:    truncate(label, displayLimit),
		},
	}
	if panel.Branding.Label != "" && panel.Branding.URL != "" {
		buttons = append(buttons, discordgo.Button{
			Style: discordgo.LinkButton,
			Label: truncate(panel.Branding.Label, displayLimit),
			URL:   panel.Branding.URL,
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: buttons},
	}
}

func brandingRow(b store.Branding) (discordgo.MessageComponent, bool) {
	if b.Label == "" || b.URL == "" {
		return nil, false
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Style: discordgo.LinkButton,
			Label: truncate(b.Label, displayLimit),
			URL:   b.URL,
		},
	}}, true
}

// truncate caps display text by character count. Cutting on a rune
// boundary keeps multibyte labels valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
