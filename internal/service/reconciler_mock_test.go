package service

import (
	"errors"
	"testing"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/platform/mocks"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMockReconciler(t *testing.T, gateway platform.Gateway) (*Reconciler, *repository.InMemoryRoomRepository) {
	t.Helper()

	log := discardLogger()
	clock := newTestClock()
	rooms := repository.NewInMemoryRoomRepository()
	settings := NewSettingsService(repository.NewInMemorySettingsRepository(), nil, log)
	metrics := NewMetricsCollector(repository.NewInMemoryMetricsRepository(), log)
	presence := NewPresenceTracker(rooms, repository.NewInMemoryPresenceCache(clock.Now), gateway, DefaultPresenceTTL, log)
	lifecycle := NewLifecycleManager(gateway, rooms, settings, NewShardPlacer(gateway, log), NewCooldowns(clock.Now), presence, metrics, log)
	ownership := NewOwnershipManager(rooms, settings, presence, metrics, lifecycle, log)
	r := NewReconciler(gateway, rooms, repository.NewInMemoryRestartLogRepository(), settings, lifecycle, ownership, presence, metrics, log)
	r.now = clock.Now
	return r, rooms
}

func TestReconciler_IntegrityStartupScan_RetriesDeleteWithSelfGrant(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	r, rooms := newMockReconciler(t, gateway)

	room := domain.NewRoom("room-1", testGuild, "alice", domain.Placement{}, 1, "alice's room", time.Now())
	require.NoError(t, rooms.Create(t.Context(), room))

	gateway.EXPECT().SelfID().Return("bot").AnyTimes()
	gateway.EXPECT().Channel(gomock.Any(), "room-1").Return(&platform.Channel{ID: "room-1", GuildID: testGuild}, nil)
	gateway.EXPECT().VoiceMembers(gomock.Any(), testGuild, "room-1").Return([]string{"bot"}, nil)
	gomock.InOrder(
		gateway.EXPECT().DeleteChannel(gomock.Any(), "room-1").Return(errors.New("missing permissions")),
		gateway.EXPECT().GrantSelf(gomock.Any(), "room-1", domain.AdminPermissions).Return(nil),
		gateway.EXPECT().DeleteChannel(gomock.Any(), "room-1").Return(nil),
	)

	summary, err := r.IntegrityStartupScan(t.Context())
	require.NoError(t, err)

	require.Len(t, summary.Logs, 1)
	assert.Equal(t, 1, summary.Logs[0].Deleted)
	_, err = rooms.GetByID(t.Context(), "room-1")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestReconciler_IntegrityStartupScan_GrantFailureKeepsRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	r, rooms := newMockReconciler(t, gateway)

	first := domain.NewRoom("room-1", testGuild, "alice", domain.Placement{}, 1, "one", time.Now())
	second := domain.NewRoom("room-2", testGuild, "bob", domain.Placement{}, 2, "two", time.Now().Add(time.Second))
	require.NoError(t, rooms.Create(t.Context(), first))
	require.NoError(t, rooms.Create(t.Context(), second))

	gateway.EXPECT().SelfID().Return("bot").AnyTimes()
	gateway.EXPECT().Channel(gomock.Any(), "room-1").Return(&platform.Channel{ID: "room-1"}, nil)
	gateway.EXPECT().VoiceMembers(gomock.Any(), testGuild, "room-1").Return(nil, nil)
	gateway.EXPECT().DeleteChannel(gomock.Any(), "room-1").Return(errors.New("missing permissions"))
	gateway.EXPECT().GrantSelf(gomock.Any(), "room-1", domain.AdminPermissions).Return(errors.New("missing permissions"))
	gateway.EXPECT().Channel(gomock.Any(), "room-2").Return(nil, platform.ErrNotFound)

	summary, err := r.IntegrityStartupScan(t.Context())
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "room-1", summary.Failures[0].RoomID)
	assert.ErrorIs(t, summary.Failures[0].Err, domain.ErrTransientPlatform)
	assert.Equal(t, 1, summary.Logs[0].Inconsistencies)
	assert.Equal(t, 1, summary.Logs[0].Cleaned)

	_, err = rooms.GetByID(t.Context(), "room-1")
	assert.NoError(t, err)
}
