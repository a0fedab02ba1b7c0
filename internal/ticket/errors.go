package ticket

import "errors"

var (
	// ErrConfigurationMissing means no support category is configured.
	// Only an administrator editing the dashboard config resolves it.
	ErrConfigurationMissing = errors.New("support category is not configured")

	// ErrPermissionDenied means the bot itself lacks the platform
	// permission for a channel operation.
	ErrPermissionDenied = errors.New("missing platform permission")

	// ErrInvalidSelection means a stale or unknown option index arrived,
	// typically from a panel message older than the current document.
	ErrInvalidSelection = errors.New("unknown panel option")

	// ErrUnknownTicket means the channel carries no recoverable opener
	// record. Lifecycle transitions treat this as a soft failure.
	ErrUnknownTicket = errors.New("no ticket record for channel")
)

// userMessage maps an engine error to the single ephemeral line shown to
// the actor. No machine-readable codes cross this boundary.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrConfigurationMissing):
		return "❌ Support category is not set. Configure it on the dashboard."
	case errors.Is(err, ErrPermissionDenied):
		return "❌ I need the **Manage Channels** permission to do that."
	case errors.Is(err, ErrInvalidSelection):
		return "❌ That option is no longer available. Please use the panel again."
	default:
		return "⚠️ Something went wrong. Please try again."
	}
}
