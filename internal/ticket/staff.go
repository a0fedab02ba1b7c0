package ticket

import (
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/orgsupport/ticketd/internal/store"
)

// IsStaff resolves whether a member may manage tickets: the elevated
// channel-management permission, or membership in any configured staff
// role. Callers pass a freshly read config so role edits apply without a
// restart.
func IsStaff(member *discordgo.Member, cfg store.GuildConfig) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionManageChannels != 0 {
		return true
	}
	for _, roleID := range cfg.StaffRoleIDs {
		if roleID == "" {
			continue
		}
		if slices.Contains(member.Roles, roleID) {
			return true
		}
	}
	return false
}
