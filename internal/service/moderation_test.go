package service

import (
	"testing"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overwriteFor(ows []domain.Overwrite, typ domain.OverwriteType, id string) (domain.Overwrite, bool) {
	for _, ow := range ows {
		if ow.Type == typ && ow.ID == id {
			return ow, true
		}
	}
	return domain.Overwrite{}, false
}

func TestLifecycleManager_LockUnlock(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")

	locked, err := env.lifecycle.Lock(env.ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, locked.Locked)
	everyone, ok := overwriteFor(env.platform.Overwrites(room.ID), domain.OverwriteRole, testGuild)
	require.True(t, ok)
	assert.False(t, everyone.Allow.Has(domain.PermConnect))

	unlocked, err := env.lifecycle.Unlock(env.ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)
	everyone, _ = overwriteFor(env.platform.Overwrites(room.ID), domain.OverwriteRole, testGuild)
	assert.True(t, everyone.Allow.Has(domain.PermConnect))
}

func TestLifecycleManager_Permit(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")

	permitted, err := env.lifecycle.Permit(env.ctx, room.ID, "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, permitted.Permitted)
	bob, ok := overwriteFor(env.platform.Overwrites(room.ID), domain.OverwriteMember, "bob")
	require.True(t, ok)
	assert.True(t, bob.Allow.Has(domain.PermConnect))
}

func TestLifecycleManager_Ban_DisconnectsMember(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")
	env.platform.Join(testGuild, "bob", room.ID)
	_, err := env.lifecycle.Permit(env.ctx, room.ID, "bob")
	require.NoError(t, err)

	banned, err := env.lifecycle.Ban(env.ctx, room.ID, "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, banned.Banned)
	assert.Empty(t, banned.Permitted)
	members, err := env.platform.VoiceMembers(env.ctx, testGuild, room.ID)
	require.NoError(t, err)
	assert.NotContains(t, members, "bob")

	bob, ok := overwriteFor(env.platform.Overwrites(room.ID), domain.OverwriteMember, "bob")
	require.True(t, ok)
	assert.Equal(t, domain.NewPermissionSet(domain.PermConnect, domain.PermSpeak), bob.Deny)

	unbanned, err := env.lifecycle.Unban(env.ctx, room.ID, "bob")
	require.NoError(t, err)
	assert.Empty(t, unbanned.Banned)
	_, ok = overwriteFor(env.platform.Overwrites(room.ID), domain.OverwriteMember, "bob")
	assert.False(t, ok)
}

func TestLifecycleManager_Ban_RejectsOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")
	env.platform.Join(testGuild, "alice", room.ID)

	_, err := env.lifecycle.Ban(env.ctx, room.ID, "alice")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	stored := env.room(t, room.ID)
	assert.Empty(t, stored.Banned)
	assert.Equal(t, "alice", stored.OwnerID)
	members, err := env.platform.VoiceMembers(env.ctx, testGuild, room.ID)
	require.NoError(t, err)
	assert.Contains(t, members, "alice")
	_, ok := overwriteFor(env.platform.Overwrites(room.ID), domain.OverwriteMember, "alice")
	require.True(t, ok)
}

func TestLifecycleManager_SetUserLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")

	limited, err := env.lifecycle.SetUserLimit(env.ctx, room.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, limited.UserLimit)
	assert.Equal(t, 5, *limited.UserLimit)
	ch, err := env.platform.Channel(env.ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, ch.UserLimit)

	cleared, err := env.lifecycle.SetUserLimit(env.ctx, room.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, cleared.UserLimit)

	_, err = env.lifecycle.SetUserLimit(env.ctx, room.ID, 100)
	assert.Error(t, err)
}

func TestLifecycleManager_Rename_AppendsHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")
	env.clock.Advance(time.Minute)

	renamed, err := env.lifecycle.Rename(env.ctx, room.ID, "alice", "  study hall ")
	require.NoError(t, err)

	assert.Equal(t, "study hall", renamed.Name)
	require.Len(t, renamed.RenameHistory, 1)
	assert.Equal(t, domain.RenameEntry{At: env.clock.Now(), Name: "study hall", Actor: "alice"}, renamed.RenameHistory[0])
	ch, err := env.platform.Channel(env.ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "study hall", ch.Name)

	_, err = env.lifecycle.Rename(env.ctx, room.ID, "alice", "   ")
	assert.Error(t, err)
}

func TestLifecycleManager_Moderation_NotManaged(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.lifecycle.Lock(env.ctx, "missing")

	assert.ErrorIs(t, err, domain.ErrNotManaged)
}
