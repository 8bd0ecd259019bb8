package discord

import "github.com/bwmarrin/discordgo"

func (r *Router) requireAdmin(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	// Owner
	if g, _ := s.State.Guild(ic.GuildID); g != nil && ic.Member != nil && ic.Member.User != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}

	// Administrator bit
	roles, _ := s.GuildRoles(ic.GuildID)
	var perms int64
	for _, rid := range ic.Member.Roles {
		for _, ro := range roles {
			if ro.ID == rid {
				perms |= ro.Permissions
			}
		}
	}
	if (perms & discordgo.PermissionAdministrator) != 0 {
		return true
	}

	ReplyEphemeral(s, ic, "🚫 Sólo admins pueden usar esto.")
	return false
}
