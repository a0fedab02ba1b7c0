package ticket

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates every action a component identifier can route to.
type Kind int

const (
	// KindNone is the no-op classification for identifiers the engine
	// does not recognize. Routing never fails on unknown input.
	KindNone Kind = iota
	KindReason
	KindCreate
	KindFormOption
	KindFormButton
	KindClaim
	KindClose
	KindConfirmClose
	KindCancelClose
	KindReopen
	KindTranscript
	KindDelete
)

// ComponentID is the decoded form of a component identifier string. The
// identifier grammar is closed: panel-scoped actions carry the panel
// number, form-option submissions additionally carry the option index.
type ComponentID struct {
	Kind   Kind
	Panel  int
	Option int
}

const panelPrefix = "panel"

// Encode renders the identifier string for an id. The output survives
// process restarts: nothing in it depends on runtime memory.
func Encode(id ComponentID) string {
	switch id.Kind {
	case KindReason:
		return fmt.Sprintf("%s%d_reason", panelPrefix, id.Panel)
	case KindCreate:
		return fmt.Sprintf("%s%d_create", panelPrefix, id.Panel)
	case KindFormOption:
		return fmt.Sprintf("%s%d_form_option_%d", panelPrefix, id.Panel, id.Option)
	case KindFormButton:
		return fmt.Sprintf("%s%d_form_button", panelPrefix, id.Panel)
	case KindClaim:
		return "ticket_claim"
	case KindClose:
		return "ticket_close"
	case KindConfirmClose:
		return "ticket_confirm_close"
	case KindCancelClose:
		return "ticket_cancel_close"
	case KindReopen:
		return "ticket_open"
	case KindTranscript:
		return "ticket_transcript"
	case KindDelete:
		return "ticket_delete"
	}
	return ""
}

// Decode classifies an identifier string. Unknown strings decode to
// KindNone; a panel-scoped identifier whose panel number is not 1 or 2
// falls back to panel 1 by design rather than erroring.
func Decode(raw string) ComponentID {
	switch raw {
	case "ticket_claim":
		return ComponentID{Kind: KindClaim}
	case "ticket_close":
		return ComponentID{Kind: KindClose}
	case "ticket_confirm_close":
		return ComponentID{Kind: KindConfirmClose}
	case "ticket_cancel_close":
		return ComponentID{Kind: KindCancelClose}
	case "ticket_open":
		return ComponentID{Kind: KindReopen}
	case "ticket_transcript":
		return ComponentID{Kind: KindTranscript}
	case "ticket_delete":
		return ComponentID{Kind: KindDelete}
	}

	rest, ok := strings.CutPrefix(raw, panelPrefix)
	if !ok {
		return ComponentID{}
	}
	digits := rest
	if i := strings.IndexByte(rest, '_'); i >= 0 {
		digits = rest[:i]
		rest = rest[i+1:]
	} else {
		return ComponentID{}
	}

	panel, err := strconv.Atoi(digits)
	if err != nil || (panel != 1 && panel != 2) {
		panel = 1
	}

	switch {
	case rest == "reason":
		return ComponentID{Kind: KindReason, Panel: panel}
	case rest == "create":
		return ComponentID{Kind: KindCreate, Panel: panel}
	case rest == "form_button":
		return ComponentID{Kind: KindFormButton, Panel: panel}
	case strings.HasPrefix(rest, "form_option_"):
		idx, err := strconv.Atoi(strings.TrimPrefix(rest, "form_option_"))
		if err != nil || idx < 0 {
			return ComponentID{}
		}
		return ComponentID{Kind: KindFormOption, Panel: panel, Option: idx}
	}
	return ComponentID{}
}
