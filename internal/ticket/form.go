package ticket

import (
	"github.com/bwmarrin/discordgo"

	"github.com/orgsupport/ticketd/internal/store"
)

// Platform limit for modal input labels and titles.
const modalLabelLimit = 45

// Answer is one collected form value, ordered as configured.
type Answer struct {
	ID    string
	Label string
	Value string
}

// BuildForm turns field specs into modal rows: at most five inputs, each
// with its placeholder capped to the display limit and max length clamped
// into the platform range.
func BuildForm(fields []store.FieldSpec) []discordgo.MessageComponent {
	if len(fields) > store.MaxFormFields {
		fields = fields[:store.MaxFormFields]
	}

	rows := make([]discordgo.MessageComponent, 0, len(fields))
	for _, f := range fields {
		label := f.Label
		if label == "" {
			label = f.ID
		}
		style := discordgo.TextInputShort
		if f.Style == store.StyleParagraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.ID,
				Label:       truncate(label, modalLabelLimit),
				Style:       style,
				Placeholder: truncate(f.Placeholder, displayLimit),
				Required:    f.Required,
				MaxLength:   clampMaxLength(f.MaxLength),
			},
		}})
	}
	return rows
}

// clampMaxLength keeps a configured cap inside [1, 4000]; an unset cap
// gets the platform ceiling.
func clampMaxLength(n int) int {
	if n <= 0 {
		return store.MaxInputLength
	}
	if n > store.MaxInputLength {
		return store.MaxInputLength
	}
	return n
}

// ParseForm collects submitted values back into an ordered answer list.
// It iterates the configured fields, never the submission's raw shape, so
// it is total: malformed or partial submissions yield empty values, and a
// field without a label falls back to its id.
func ParseForm(data discordgo.ModalSubmitInteractionData, fields []store.FieldSpec) []Answer {
	values := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			if input, ok := component.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}

	if len(fields) > store.MaxFormFields {
		fields = fields[:store.MaxFormFields]
	}
	answers := make([]Answer, 0, len(fields))
	for _, f := range fields {
		label := f.Label
		if label == "" {
			label = f.ID
		}
		answers = append(answers, Answer{
			ID:    f.ID,
			Label: label,
			Value: values[f.ID],
		})
	}
	return answers
}
