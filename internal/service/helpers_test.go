package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/platform/memory"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/stretchr/testify/require"
)

const testGuild = "guild-1"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	ctx      context.Context
	clock    *testClock
	platform *memory.Platform

	rooms        *repository.InMemoryRoomRepository
	settingsRepo *repository.InMemorySettingsRepository
	metricsRepo  *repository.InMemoryMetricsRepository
	restartLogs  *repository.InMemoryRestartLogRepository
	cache        *repository.InMemoryPresenceCache

	settings   *SettingsService
	metrics    *MetricsCollector
	cooldowns  *Cooldowns
	presence   *PresenceTracker
	placer     *ShardPlacer
	lifecycle  *LifecycleManager
	ownership  *OwnershipManager
	reconciler *Reconciler
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires every component against the in-memory platform and
// repositories. configure adjusts the stored settings of testGuild.
func newTestEnv(t *testing.T, configure func(*domain.GuildSettings)) *testEnv {
	t.Helper()

	log := discardLogger()
	clock := newTestClock()
	env := &testEnv{
		ctx:          context.Background(),
		clock:        clock,
		platform:     memory.MustNew(),
		rooms:        repository.NewInMemoryRoomRepository(),
		settingsRepo: repository.NewInMemorySettingsRepository(),
		metricsRepo:  repository.NewInMemoryMetricsRepository(),
		restartLogs:  repository.NewInMemoryRestartLogRepository(),
		cache:        repository.NewInMemoryPresenceCache(clock.Now),
	}

	env.settings = NewSettingsService(env.settingsRepo, nil, log)
	env.settings.now = clock.Now
	env.metrics = NewMetricsCollector(env.metricsRepo, log)
	env.metrics.now = clock.Now
	env.cooldowns = NewCooldowns(clock.Now)
	env.presence = NewPresenceTracker(env.rooms, env.cache, env.platform, DefaultPresenceTTL, log)
	env.presence.now = clock.Now
	env.placer = NewShardPlacer(env.platform, log)
	env.lifecycle = NewLifecycleManager(env.platform, env.rooms, env.settings, env.placer, env.cooldowns, env.presence, env.metrics, log)
	env.lifecycle.now = clock.Now
	env.ownership = NewOwnershipManager(env.rooms, env.settings, env.presence, env.metrics, env.lifecycle, log)
	env.reconciler = NewReconciler(env.platform, env.rooms, env.restartLogs, env.settings, env.lifecycle, env.ownership, env.presence, env.metrics, log)
	env.reconciler.now = clock.Now

	settings := domain.DefaultSettings(testGuild)
	settings.Enabled = true
	settings.AutoShard = true
	if configure != nil {
		configure(settings)
	}
	require.NoError(t, env.settingsRepo.Upsert(env.ctx, settings))

	return env
}

func (e *testEnv) addMember(id string, roles ...string) {
	e.platform.AddMember(testGuild, platform.Member{ID: id, Username: id, RoleIDs: roles})
}

func (e *testEnv) createRoom(t *testing.T, owner string) *domain.Room {
	t.Helper()
	e.addMember(owner)
	room, err := e.lifecycle.CreateTempVC(e.ctx, testGuild, owner)
	require.NoError(t, err)
	return room
}

func (e *testEnv) room(t *testing.T, id string) *domain.Room {
	t.Helper()
	room, err := e.rooms.GetByID(e.ctx, id)
	require.NoError(t, err)
	return room
}

func (e *testEnv) dailyMetrics(t *testing.T) *domain.DailyMetrics {
	t.Helper()
	m, err := e.metrics.ExportDaily(e.ctx, testGuild, "")
	require.NoError(t, err)
	return m
}

// refresh takes a forced snapshot of the stored room.
func (e *testEnv) refresh(t *testing.T, id string) []string {
	t.Helper()
	members, err := e.presence.Snapshot(e.ctx, e.room(t, id), true)
	require.NoError(t, err)
	return members
}
