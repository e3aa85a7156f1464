package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

type InMemoryRoomRepository struct {
	mu       sync.RWMutex
	rooms    map[string]*domain.Room
	counters map[string]int64
}

func NewInMemoryRoomRepository() *InMemoryRoomRepository {
	return &InMemoryRoomRepository{
		rooms:    make(map[string]*domain.Room),
		counters: make(map[string]int64),
	}
}

func cloneRoom(r *domain.Room) *domain.Room {
	cp := *r
	cp.Banned = slices.Clone(r.Banned)
	cp.Permitted = slices.Clone(r.Permitted)
	cp.Members = slices.Clone(r.Members)
	cp.OwnerCandidates = slices.Clone(r.OwnerCandidates)
	cp.RenameHistory = slices.Clone(r.RenameHistory)
	if r.ScheduledDeletionAt != nil {
		t := *r.ScheduledDeletionAt
		cp.ScheduledDeletionAt = &t
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		cp.DeletedAt = &t
	}
	if r.UserLimit != nil {
		l := *r.UserLimit
		cp.UserLimit = &l
	}
	return &cp
}

func (r *InMemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return ErrRoomExists
	}
	r.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (r *InMemoryRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (r *InMemoryRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; !ok {
		return ErrRoomNotFound
	}
	r.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (r *InMemoryRoomRepository) SetScheduledDeletion(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok || room.DeletedAt != nil {
		return false, ErrRoomNotFound
	}
	if room.ScheduledDeletionAt != nil {
		return false, nil
	}
	t := at.UTC()
	room.ScheduledDeletionAt = &t
	return true, nil
}

func (r *InMemoryRoomRepository) RecordPresence(ctx context.Context, id string, p PresenceUpdate) error {
	return r.patch(ctx, id, func(room *domain.Room) {
		room.Members = slices.Clone(p.Members)
		room.OwnerCandidates = slices.Clone(p.OwnerCandidates)
		room.LastSnapshotAt = p.At.UTC()
		if p.Active {
			room.LastActiveAt = p.At.UTC()
			room.ScheduledDeletionAt = nil
		}
	})
}

func (r *InMemoryRoomRepository) SetOwner(ctx context.Context, id, ownerID string, candidates []string) error {
	return r.patch(ctx, id, func(room *domain.Room) {
		room.OwnerID = ownerID
		room.OwnerCandidates = slices.Clone(candidates)
	})
}

func (r *InMemoryRoomRepository) SetPermsVersion(ctx context.Context, id string, version int) error {
	return r.patch(ctx, id, func(room *domain.Room) { room.PermsVersion = version })
}

func (r *InMemoryRoomRepository) UpdateModeration(ctx context.Context, src *domain.Room) error {
	cp := cloneRoom(src)
	return r.patch(ctx, src.ID, func(room *domain.Room) {
		room.Locked = cp.Locked
		room.UserLimit = cp.UserLimit
		room.Banned = cp.Banned
		room.Permitted = cp.Permitted
		room.Name = cp.Name
		room.RenameHistory = cp.RenameHistory
	})
}

// patch mutates an active record in place.
func (r *InMemoryRoomRepository) patch(ctx context.Context, id string, fn func(*domain.Room)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok || room.DeletedAt != nil {
		return ErrRoomNotFound
	}
	fn(room)
	return nil
}

func (r *InMemoryRoomRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok || room.DeletedAt != nil {
		return ErrRoomNotFound
	}
	t := at.UTC()
	room.DeletedAt = &t
	room.ScheduledDeletionAt = nil
	return nil
}

func (r *InMemoryRoomRepository) HardDelete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[id]; !ok {
		return ErrRoomNotFound
	}
	delete(r.rooms, id)
	return nil
}

func (r *InMemoryRoomRepository) list(ctx context.Context, keep func(*domain.Room) bool) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		if keep(room) {
			result = append(result, cloneRoom(room))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *InMemoryRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	return r.list(ctx, func(room *domain.Room) bool { return room.IsActive() })
}

func (r *InMemoryRoomRepository) ListActiveByGuild(ctx context.Context, guildID string) ([]*domain.Room, error) {
	return r.list(ctx, func(room *domain.Room) bool { return room.IsActive() && room.GuildID == guildID })
}

func (r *InMemoryRoomRepository) ListAll(ctx context.Context) ([]*domain.Room, error) {
	return r.list(ctx, func(*domain.Room) bool { return true })
}

func (r *InMemoryRoomRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Room, error) {
	return r.list(ctx, func(room *domain.Room) bool {
		return room.IsActive() && room.ScheduledDeletionAt != nil && !room.ScheduledDeletionAt.After(now)
	})
}

func (r *InMemoryRoomRepository) CountActive(ctx context.Context, guildID string) (int, error) {
	rooms, err := r.ListActiveByGuild(ctx, guildID)
	return len(rooms), err
}

func (r *InMemoryRoomRepository) CountActiveByOwner(ctx context.Context, guildID, ownerID string) (int, error) {
	rooms, err := r.ListActiveByGuild(ctx, guildID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, room := range rooms {
		if room.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRoomRepository) NextCounter(ctx context.Context, guildID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[guildID]++
	return r.counters[guildID], nil
}

type InMemorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]*domain.GuildSettings
}

func NewInMemorySettingsRepository() *InMemorySettingsRepository {
	return &InMemorySettingsRepository{
		settings: make(map[string]*domain.GuildSettings),
	}
}

func cloneSettings(s *domain.GuildSettings) *domain.GuildSettings {
	cp := *s
	cp.TriggerChannelIDs = slices.Clone(s.TriggerChannelIDs)
	cp.CreatorRoleIDs = slices.Clone(s.CreatorRoleIDs)
	cp.BypassRoleIDs = slices.Clone(s.BypassRoleIDs)
	cp.RoleTemplates = make([]domain.RoleTemplate, len(s.RoleTemplates))
	for i, t := range s.RoleTemplates {
		ow := make(map[string]bool, len(t.Overwrites))
		for k, v := range t.Overwrites {
			ow[k] = v
		}
		cp.RoleTemplates[i] = domain.RoleTemplate{RoleID: t.RoleID, Overwrites: ow}
	}
	return &cp
}

func (r *InMemorySettingsRepository) Get(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[guildID]
	if !ok {
		return nil, ErrSettingsNotFound
	}
	return cloneSettings(s), nil
}

func (r *InMemorySettingsRepository) Upsert(ctx context.Context, settings *domain.GuildSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[settings.GuildID] = cloneSettings(settings)
	return nil
}

type InMemoryMetricsRepository struct {
	mu      sync.RWMutex
	metrics map[string]*domain.DailyMetrics
}

func NewInMemoryMetricsRepository() *InMemoryMetricsRepository {
	return &InMemoryMetricsRepository{
		metrics: make(map[string]*domain.DailyMetrics),
	}
}

func metricsKey(guildID, day string) string {
	return guildID + "/" + day
}

func (r *InMemoryMetricsRepository) entry(guildID, day string) *domain.DailyMetrics {
	key := metricsKey(guildID, day)
	m, ok := r.metrics[key]
	if !ok {
		m = &domain.DailyMetrics{GuildID: guildID, Day: day}
		r.metrics[key] = m
	}
	return m
}

func (r *InMemoryMetricsRepository) Inc(ctx context.Context, guildID, day string, field domain.MetricField, by int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entry(guildID, day).Add(field, by)
	return nil
}

func (r *InMemoryMetricsRepository) MaxPeak(ctx context.Context, guildID, day string, value int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.entry(guildID, day)
	if value > m.PeakConcurrent {
		m.PeakConcurrent = value
	}
	return nil
}

func (r *InMemoryMetricsRepository) Get(ctx context.Context, guildID, day string) (*domain.DailyMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metrics[metricsKey(guildID, day)]
	if !ok {
		return nil, ErrMetricsNotFound
	}
	cp := *m
	return &cp, nil
}

type InMemoryRestartLogRepository struct {
	mu   sync.RWMutex
	logs []*domain.RestartLog
}

func NewInMemoryRestartLogRepository() *InMemoryRestartLogRepository {
	return &InMemoryRestartLogRepository{}
}

func (r *InMemoryRestartLogRepository) Create(ctx context.Context, entry *domain.RestartLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *InMemoryRestartLogRepository) ListByGuild(ctx context.Context, guildID string, limit int) ([]*domain.RestartLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.RestartLog, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].GuildID != guildID {
			continue
		}
		cp := *r.logs[i]
		result = append(result, &cp)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

type presenceEntry struct {
	members []string
	expires time.Time
}

type InMemoryPresenceCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]presenceEntry
}

func NewInMemoryPresenceCache(now func() time.Time) *InMemoryPresenceCache {
	if now == nil {
		now = time.Now
	}
	return &InMemoryPresenceCache{
		now:     now,
		entries: make(map[string]presenceEntry),
	}
}

func (c *InMemoryPresenceCache) Get(ctx context.Context, roomID string) ([]string, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[roomID]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, roomID)
		return nil, false, nil
	}
	return slices.Clone(e.members), true, nil
}

func (c *InMemoryPresenceCache) Set(ctx context.Context, roomID string, members []string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[roomID] = presenceEntry{members: slices.Clone(members), expires: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryPresenceCache) Delete(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, roomID)
	return nil
}
