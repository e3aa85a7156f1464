package service

import (
	"testing"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput() PermissionInput {
	return PermissionInput{
		GuildID: "guild",
		SelfID:  "bot",
		OwnerID: "owner",
		Default: domain.DefaultSettings("guild").DefaultTemplate,
	}
}

func find(t *testing.T, ows []domain.Overwrite, typ domain.OverwriteType, id string) domain.Overwrite {
	t.Helper()
	for _, ow := range ows {
		if ow.Type == typ && ow.ID == id {
			return ow
		}
	}
	require.FailNow(t, "overwrite not found", "%s %s", typ, id)
	return domain.Overwrite{}
}

func TestComputeOverwrites_Defaults(t *testing.T) {
	out := ComputeOverwrites(baseInput())

	require.Len(t, out, 3)
	owner := find(t, out, domain.OverwriteMember, "owner")
	assert.True(t, owner.Allow.Has(domain.PermView))
	assert.True(t, owner.Allow.Has(domain.PermConnect))
	assert.True(t, owner.Allow.Has(domain.PermSpeak))
	assert.True(t, owner.Allow.Has(domain.PermManageChannel))
	assert.False(t, owner.Allow.Has(domain.PermPrioritySpeaker))

	everyone := find(t, out, domain.OverwriteRole, "guild")
	assert.Equal(t, domain.NewPermissionSet(domain.PermView, domain.PermConnect, domain.PermSpeak, domain.PermStream), everyone.Allow)
	assert.Zero(t, everyone.Deny)

	self := find(t, out, domain.OverwriteMember, "bot")
	assert.Equal(t, domain.AdminPermissions, self.Allow)
}

func TestComputeOverwrites_LockRemovesEveryoneConnect(t *testing.T) {
	in := baseInput()
	in.Locked = true

	everyone := find(t, ComputeOverwrites(in), domain.OverwriteRole, "guild")

	assert.False(t, everyone.Allow.Has(domain.PermConnect))
	assert.False(t, everyone.Deny.Has(domain.PermConnect))
	assert.True(t, everyone.Allow.Has(domain.PermView))
}

func TestComputeOverwrites_LockBeatsEveryoneTemplate(t *testing.T) {
	in := baseInput()
	in.Locked = true
	in.RoleTemplates = []domain.RoleTemplate{
		{RoleID: "guild", Overwrites: map[string]bool{"connect": true}},
	}

	everyone := find(t, ComputeOverwrites(in), domain.OverwriteRole, "guild")

	assert.False(t, everyone.Allow.Has(domain.PermConnect))
	assert.True(t, everyone.Allow.Has(domain.PermView))
}

func TestComputeOverwrites_RoleTemplates(t *testing.T) {
	in := baseInput()
	in.RoleTemplates = []domain.RoleTemplate{
		{RoleID: "muted", Overwrites: map[string]bool{"speak": false, "view": true}},
	}

	muted := find(t, ComputeOverwrites(in), domain.OverwriteRole, "muted")

	assert.Equal(t, domain.NewPermissionSet(domain.PermView), muted.Allow)
	assert.Equal(t, domain.NewPermissionSet(domain.PermSpeak), muted.Deny)
}

func TestComputeOverwrites_SameRoleLastWins(t *testing.T) {
	in := baseInput()
	in.RoleTemplates = []domain.RoleTemplate{
		{RoleID: "vip", Overwrites: map[string]bool{"speak": false}},
		{RoleID: "vip", Overwrites: map[string]bool{"stream": true}},
	}

	vip := find(t, ComputeOverwrites(in), domain.OverwriteRole, "vip")

	assert.Equal(t, domain.NewPermissionSet(domain.PermStream), vip.Allow)
	assert.Zero(t, vip.Deny)
}

func TestComputeOverwrites_PermitAndBan(t *testing.T) {
	in := baseInput()
	in.Locked = true
	in.Permitted = []string{"friend", "both"}
	in.Banned = []string{"troll", "both"}

	out := ComputeOverwrites(in)

	friend := find(t, out, domain.OverwriteMember, "friend")
	assert.True(t, friend.Allow.Has(domain.PermConnect))

	troll := find(t, out, domain.OverwriteMember, "troll")
	assert.Equal(t, domain.NewPermissionSet(domain.PermConnect, domain.PermSpeak), troll.Deny)

	both := find(t, out, domain.OverwriteMember, "both")
	assert.False(t, both.Allow.Has(domain.PermConnect))
	assert.True(t, both.Deny.Has(domain.PermConnect))
}

func TestComputeOverwrites_Deterministic(t *testing.T) {
	a := baseInput()
	a.RoleTemplates = []domain.RoleTemplate{
		{RoleID: "r1", Overwrites: map[string]bool{"speak": false, "stream": true, "view": true}},
		{RoleID: "r2", Overwrites: map[string]bool{"connect": true}},
	}
	a.Permitted = []string{"m2", "m1"}
	a.Banned = []string{"m3"}

	b := a
	b.RoleTemplates = []domain.RoleTemplate{a.RoleTemplates[1], a.RoleTemplates[0]}
	b.Permitted = []string{"m1", "m2"}

	first := ComputeOverwrites(a)
	assert.Equal(t, first, ComputeOverwrites(a))
	assert.Equal(t, first, ComputeOverwrites(b))
}

func TestComputeOverwrites_SortedByTypeThenID(t *testing.T) {
	in := baseInput()
	in.Permitted = []string{"zz", "aa"}

	out := ComputeOverwrites(in)

	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1], out[i]
		if prev.Type == cur.Type {
			assert.Less(t, prev.ID, cur.ID)
		} else {
			assert.Less(t, prev.Type, cur.Type)
		}
	}
}
