package service

import (
	"errors"
	"testing"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idleSettings(s *domain.GuildSettings) {
	s.IdleTimeout = 600 * time.Second
	s.GracePeriod = 60 * time.Second
}

func TestReconciler_IdleDeletion(t *testing.T) {
	env := newTestEnv(t, idleSettings)
	t0 := env.clock.Now()
	room := env.createRoom(t, "alice")

	env.clock.Set(t0.Add(5 * time.Minute))
	summary, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scheduled)
	assert.Nil(t, env.room(t, room.ID).ScheduledDeletionAt)

	env.clock.Set(t0.Add(601 * time.Second))
	summary, err = env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scheduled)

	want := t0.Add(670000 * time.Millisecond)
	scheduled := env.room(t, room.ID).ScheduledDeletionAt
	require.NotNil(t, scheduled)
	assert.True(t, want.Equal(*scheduled), "scheduled at %s, want %s", scheduled, want)

	env.clock.Set(t0.Add(661 * time.Second))
	summary, err = env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scheduled)
	assert.True(t, want.Equal(*env.room(t, room.ID).ScheduledDeletionAt))

	env.clock.Set(want.Add(-time.Millisecond))
	deletions, err := env.reconciler.ProcessScheduledDeletions(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deletions.Deleted)
	assert.True(t, env.room(t, room.ID).IsActive())

	env.clock.Set(want)
	deletions, err = env.reconciler.ProcessScheduledDeletions(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deletions.Deleted)
	assert.False(t, env.room(t, room.ID).IsActive())
	_, err = env.platform.Channel(env.ctx, room.ID)
	assert.True(t, platform.IsNotFound(err))
}

func TestReconciler_ProcessScheduledDeletions_Idempotent(t *testing.T) {
	env := newTestEnv(t, idleSettings)
	t0 := env.clock.Now()
	room := env.createRoom(t, "alice")

	env.clock.Set(t0.Add(601 * time.Second))
	_, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)

	env.clock.Set(t0.Add(time.Hour))
	first, err := env.reconciler.ProcessScheduledDeletions(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Deleted)
	deletedAt := env.room(t, room.ID).DeletedAt

	second, err := env.reconciler.ProcessScheduledDeletions(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, &DeletionSummary{}, second)
	assert.Equal(t, deletedAt, env.room(t, room.ID).DeletedAt)
	assert.Equal(t, int64(1), env.dailyMetrics(t).Deleted)
}

func TestReconciler_ProcessScheduledDeletions_MemberRejoined(t *testing.T) {
	env := newTestEnv(t, idleSettings)
	t0 := env.clock.Now()
	room := env.createRoom(t, "alice")

	env.clock.Set(t0.Add(601 * time.Second))
	_, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)

	env.platform.Join(testGuild, "alice", room.ID)
	env.clock.Set(t0.Add(time.Hour))
	summary, err := env.reconciler.ProcessScheduledDeletions(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Deleted)
	assert.Equal(t, 1, summary.Recovered)
	stored := env.room(t, room.ID)
	assert.True(t, stored.IsActive())
	assert.Nil(t, stored.ScheduledDeletionAt)
	assert.Equal(t, env.clock.Now(), stored.LastActiveAt)
}

func TestReconciler_RunIdleChecks_OccupiedRoomClearsSchedule(t *testing.T) {
	env := newTestEnv(t, idleSettings)
	t0 := env.clock.Now()
	room := env.createRoom(t, "alice")

	env.clock.Set(t0.Add(601 * time.Second))
	_, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)
	require.NotNil(t, env.room(t, room.ID).ScheduledDeletionAt)

	env.platform.Join(testGuild, "bob", room.ID)
	env.clock.Advance(time.Minute)
	summary, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Active)
	stored := env.room(t, room.ID)
	assert.Nil(t, stored.ScheduledDeletionAt)
	assert.Equal(t, env.clock.Now(), stored.LastActiveAt)
	assert.Equal(t, []string{"bob"}, stored.Members)
}

func TestReconciler_RunIdleChecks_ZeroGraceDeletesImmediately(t *testing.T) {
	env := newTestEnv(t, func(s *domain.GuildSettings) {
		s.IdleTimeout = time.Minute
		s.GracePeriod = 0
	})
	room := env.createRoom(t, "alice")

	env.clock.Advance(time.Minute)
	summary, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Deleted)
	assert.False(t, env.room(t, room.ID).IsActive())
}

func TestReconciler_RunIdleChecks_PlatformFailureIsPerRecord(t *testing.T) {
	env := newTestEnv(t, idleSettings)
	first := env.createRoom(t, "alice")
	second := env.createRoom(t, "bob")
	env.clock.Advance(601 * time.Second)
	env.platform.FailNext("VoiceMembers", errors.New("gateway timeout"))

	summary, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, first.ID, summary.Failures[0].RoomID)
	assert.ErrorIs(t, summary.Failures[0].Err, domain.ErrTransientPlatform)
	assert.Equal(t, 1, summary.Scheduled)
	assert.NotNil(t, env.room(t, second.ID).ScheduledDeletionAt)
}

func TestReconciler_RunIdleChecks_KeepsConcurrentLock(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.createRoom(t, "alice")
	second := env.createRoom(t, "bob")
	env.clock.Advance(time.Minute)

	env.presence.gateway = &hookedGateway{
		Platform: env.platform,
		beforeVoiceMembers: func(channelID string) {
			target := second.ID
			if channelID == second.ID {
				target = first.ID
			}
			_, err := env.lifecycle.Lock(env.ctx, target)
			require.NoError(t, err)
		},
	}

	_, err := env.reconciler.RunIdleChecks(env.ctx)
	require.NoError(t, err)

	locked := 0
	for _, id := range []string{first.ID, second.ID} {
		if env.room(t, id).Locked {
			locked++
		}
	}
	require.Equal(t, 1, locked, "presence write kept the lock")

	_, err = env.reconciler.RunHourlyIntegrityScan(env.ctx)
	require.NoError(t, err)

	for _, id := range []string{first.ID, second.ID} {
		if !env.room(t, id).Locked {
			continue
		}
		everyone, ok := overwriteFor(env.platform.Overwrites(id), domain.OverwriteRole, testGuild)
		require.True(t, ok)
		assert.False(t, everyone.Allow.Has(domain.PermConnect))
	}
}

func TestReconciler_RunHourlyIntegrityScan_OrphanCleanup(t *testing.T) {
	env := newTestEnv(t, nil)
	orphan := env.createRoom(t, "alice")
	kept := env.createRoom(t, "bob")
	env.platform.RemoveChannel(orphan.ID)

	summary, err := env.reconciler.RunHourlyIntegrityScan(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Orphans)
	assert.Equal(t, 1, summary.Reconciled)
	assert.False(t, env.room(t, orphan.ID).IsActive())
	assert.True(t, env.room(t, kept.ID).IsActive())
	assert.Equal(t, int64(1), env.dailyMetrics(t).CleanedOrphans)

	summary, err = env.reconciler.RunHourlyIntegrityScan(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Orphans)
	assert.Equal(t, int64(1), env.dailyMetrics(t).CleanedOrphans)
}

func TestReconciler_RunHourlyIntegrityScan_ReassignsAbsentOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")
	env.platform.Join(testGuild, "bob", room.ID)

	summary, err := env.reconciler.RunHourlyIntegrityScan(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Reassigned)
	assert.Equal(t, "bob", env.room(t, room.ID).OwnerID)
}

func TestReconciler_IntegrityStartupScan(t *testing.T) {
	env := newTestEnv(t, nil)

	missing := env.createRoom(t, "alice")
	env.platform.RemoveChannel(missing.ID)

	empty := env.createRoom(t, "bob")

	occupied := env.createRoom(t, "carol")
	env.platform.Join(testGuild, "carol", occupied.ID)

	softDeleted := env.createRoom(t, "dave")
	require.NoError(t, env.rooms.SoftDelete(env.ctx, softDeleted.ID, env.clock.Now()))
	env.platform.Join(testGuild, "dave", softDeleted.ID)

	ownerGone := env.createRoom(t, "erin")
	env.platform.Join(testGuild, "frank", ownerGone.ID)

	env.platform.FailNext("DeleteChannel", errors.New("missing access"))
	env.clock.Advance(15 * time.Second)

	summary, err := env.reconciler.IntegrityStartupScan(env.ctx)
	require.NoError(t, err)
	require.Empty(t, summary.Failures)
	require.Len(t, summary.Logs, 1)

	entry := summary.Logs[0]
	assert.Equal(t, testGuild, entry.GuildID)
	assert.Equal(t, 1, entry.Cleaned)
	assert.Equal(t, 1, entry.Deleted)
	assert.Equal(t, 3, entry.Recovered)
	assert.Equal(t, 1, entry.Reassigned)
	assert.Equal(t, 0, entry.Inconsistencies)

	_, err = env.rooms.GetByID(env.ctx, missing.ID)
	assert.Error(t, err)
	_, err = env.rooms.GetByID(env.ctx, empty.ID)
	assert.Error(t, err)
	_, err = env.platform.Channel(env.ctx, empty.ID)
	assert.True(t, platform.IsNotFound(err))

	restored := env.room(t, softDeleted.ID)
	assert.True(t, restored.IsActive())
	assert.Equal(t, env.clock.Now(), restored.LastActiveAt)
	assert.Equal(t, "frank", env.room(t, ownerGone.ID).OwnerID)

	logs, err := env.restartLogs.ListByGuild(env.ctx, testGuild, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entry.ID, logs[0].ID)
}

func TestReconciler_IntegrityStartupScan_FetchFailureIsInconsistency(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.createRoom(t, "alice")
	env.platform.FailNext("Channel", errors.New("gateway timeout"))

	summary, err := env.reconciler.IntegrityStartupScan(env.ctx)
	require.NoError(t, err)

	require.Len(t, summary.Logs, 1)
	assert.Equal(t, 1, summary.Logs[0].Inconsistencies)
	assert.True(t, env.room(t, room.ID).IsActive())
}

func TestReconciler_RestartLogs(t *testing.T) {
	env := newTestEnv(t, nil)
	env.createRoom(t, "alice")
	for range 3 {
		_, err := env.reconciler.IntegrityStartupScan(env.ctx)
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	logs, err := env.reconciler.RestartLogs(env.ctx, testGuild, 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].StartedAt.After(logs[2].StartedAt), "newest first")

	logs, err = env.reconciler.RestartLogs(env.ctx, testGuild, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = env.reconciler.RestartLogs(env.ctx, testGuild, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
