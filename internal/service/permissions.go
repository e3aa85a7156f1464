package service

import "github.com/immxrtalbeast/tempvoice/internal/domain"

// PermissionInput is everything the overwrite computation depends on.
type PermissionInput struct {
	GuildID       string
	SelfID        string
	OwnerID       string
	Default       domain.DefaultTemplate
	RoleTemplates []domain.RoleTemplate
	Locked        bool
	Permitted     []string
	Banned        []string
}

var ownerBase = domain.NewPermissionSet(domain.PermView, domain.PermConnect, domain.PermSpeak)

// ComputeOverwrites builds the full overwrite set for a room. The everyone
// role shares the guild id. Equal inputs produce equal output.
func ComputeOverwrites(in PermissionInput) []domain.Overwrite {
	out := make([]domain.Overwrite, 0, 3+len(in.RoleTemplates)+len(in.Permitted)+len(in.Banned))

	owner := ownerBase
	t := in.Default.Owner
	for _, p := range []struct {
		on   bool
		perm domain.Permission
	}{
		{t.ManageChannel, domain.PermManageChannel},
		{t.MoveMembers, domain.PermMoveMembers},
		{t.MuteMembers, domain.PermMuteMembers},
		{t.DeafenMembers, domain.PermDeafenMembers},
		{t.PrioritySpeaker, domain.PermPrioritySpeaker},
		{t.Stream, domain.PermStream},
	} {
		if p.on {
			owner = owner.With(p.perm)
		}
	}
	if in.OwnerID != "" {
		out = append(out, domain.Overwrite{Type: domain.OverwriteMember, ID: in.OwnerID, Allow: owner})
	}

	var everyone domain.PermissionSet
	e := in.Default.Everyone
	for _, p := range []struct {
		on   bool
		perm domain.Permission
	}{
		{e.View, domain.PermView},
		{e.Connect, domain.PermConnect},
		{e.Speak, domain.PermSpeak},
		{e.Stream, domain.PermStream},
	} {
		if p.on {
			everyone = everyone.With(p.perm)
		}
	}
	out = append(out, domain.Overwrite{Type: domain.OverwriteRole, ID: in.GuildID, Allow: everyone})

	if in.SelfID != "" {
		out = append(out, domain.Overwrite{Type: domain.OverwriteMember, ID: in.SelfID, Allow: domain.AdminPermissions})
	}

	for _, rt := range dedupeRoleTemplates(in.RoleTemplates) {
		ow := domain.Overwrite{Type: domain.OverwriteRole, ID: rt.RoleID}
		for name, allow := range rt.Overwrites {
			perm, err := domain.ParsePermission(name)
			if err != nil {
				// rejected when settings are written
				continue
			}
			if allow {
				ow.Allow = ow.Allow.With(perm)
			} else {
				ow.Deny = ow.Deny.With(perm)
			}
		}
		out = append(out, ow)
	}

	connect := domain.NewPermissionSet(domain.PermConnect)
	for _, id := range in.Permitted {
		out = append(out, domain.Overwrite{Type: domain.OverwriteMember, ID: id, Allow: connect})
	}
	banned := domain.NewPermissionSet(domain.PermConnect, domain.PermSpeak)
	for _, id := range in.Banned {
		out = append(out, domain.Overwrite{Type: domain.OverwriteMember, ID: id, Deny: banned})
	}

	out = domain.CoalesceOverwrites(out)
	// lock wins over any role template aimed at the everyone role
	if in.Locked {
		for i := range out {
			if out[i].Type == domain.OverwriteRole && out[i].ID == in.GuildID {
				out[i].Allow = out[i].Allow.Without(domain.PermConnect)
			}
		}
	}
	return out
}

// dedupeRoleTemplates keeps the last template for every role.
func dedupeRoleTemplates(in []domain.RoleTemplate) []domain.RoleTemplate {
	last := make(map[string]int, len(in))
	for i, rt := range in {
		last[rt.RoleID] = i
	}
	out := make([]domain.RoleTemplate, 0, len(last))
	for i, rt := range in {
		if last[rt.RoleID] == i {
			out = append(out, rt)
		}
	}
	return out
}

func permissionInput(settings *domain.GuildSettings, room *domain.Room, selfID string) PermissionInput {
	return PermissionInput{
		GuildID:       settings.GuildID,
		SelfID:        selfID,
		OwnerID:       room.OwnerID,
		Default:       settings.DefaultTemplate,
		RoleTemplates: settings.RoleTemplates,
		Locked:        room.Locked,
		Permitted:     room.Permitted,
		Banned:        room.Banned,
	}
}
