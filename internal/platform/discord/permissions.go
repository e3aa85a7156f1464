package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

var permissionBits = map[domain.Permission]int64{
	domain.PermView:            discordgo.PermissionViewChannel,
	domain.PermConnect:         discordgo.PermissionVoiceConnect,
	domain.PermSpeak:           discordgo.PermissionVoiceSpeak,
	domain.PermStream:          discordgo.PermissionVoiceStreamVideo,
	domain.PermUseVAD:          discordgo.PermissionVoiceUseVAD,
	domain.PermPrioritySpeaker: discordgo.PermissionVoicePrioritySpeaker,
	domain.PermMuteMembers:     discordgo.PermissionVoiceMuteMembers,
	domain.PermDeafenMembers:   discordgo.PermissionVoiceDeafenMembers,
	domain.PermMoveMembers:     discordgo.PermissionVoiceMoveMembers,
	domain.PermManageChannel:   discordgo.PermissionManageChannels,
	domain.PermManageRoles:     discordgo.PermissionManageRoles,
	domain.PermSendMessages:    discordgo.PermissionSendMessages,
	domain.PermReadHistory:     discordgo.PermissionReadMessageHistory,
}

func toBits(set domain.PermissionSet) int64 {
	var bits int64
	for _, p := range set.List() {
		bits |= permissionBits[p]
	}
	return bits
}

func toDiscordOverwrites(in []domain.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, ow := range in {
		t := discordgo.PermissionOverwriteTypeRole
		if ow.Type == domain.OverwriteMember {
			t = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    ow.ID,
			Type:  t,
			Allow: toBits(ow.Allow),
			Deny:  toBits(ow.Deny),
		})
	}
	return out
}
