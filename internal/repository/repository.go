package repository

import (
	"context"
	"errors"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
	ErrSettingsNotFound = errors.New("guild settings not found")
	ErrMetricsNotFound  = errors.New("daily metrics not found")
)

// PresenceUpdate carries the presence fields of a room record.
type PresenceUpdate struct {
	Members         []string
	OwnerCandidates []string
	At              time.Time
	Active          bool
}

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	// GetByID returns the record whether or not it is soft-deleted.
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	// Update replaces the whole record. Only the startup sweep uses it, before
	// any other writer runs.
	Update(ctx context.Context, room *domain.Room) error
	// SetScheduledDeletion sets scheduled_deletion_at only if it is not set yet.
	// It reports whether the field was written.
	SetScheduledDeletion(ctx context.Context, id string, at time.Time) (bool, error)
	// RecordPresence writes a member observation. With Active set it also
	// refreshes last_active_at and clears scheduled_deletion_at.
	RecordPresence(ctx context.Context, id string, p PresenceUpdate) error
	SetOwner(ctx context.Context, id, ownerID string, candidates []string) error
	SetPermsVersion(ctx context.Context, id string, version int) error
	// UpdateModeration writes lock state, user limit, ban and permit lists,
	// name and rename history.
	UpdateModeration(ctx context.Context, room *domain.Room) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	HardDelete(ctx context.Context, id string) error

	ListActive(ctx context.Context) ([]*domain.Room, error)
	ListActiveByGuild(ctx context.Context, guildID string) ([]*domain.Room, error)
	// ListAll includes soft-deleted records.
	ListAll(ctx context.Context) ([]*domain.Room, error)
	ListDue(ctx context.Context, now time.Time) ([]*domain.Room, error)
	CountActive(ctx context.Context, guildID string) (int, error)
	CountActiveByOwner(ctx context.Context, guildID, ownerID string) (int, error)

	// NextCounter returns the next value of the per-guild creation counter.
	NextCounter(ctx context.Context, guildID string) (int64, error)
}

type SettingsRepository interface {
	Get(ctx context.Context, guildID string) (*domain.GuildSettings, error)
	Upsert(ctx context.Context, settings *domain.GuildSettings) error
}

type MetricsRepository interface {
	Inc(ctx context.Context, guildID, day string, field domain.MetricField, by int64) error
	MaxPeak(ctx context.Context, guildID, day string, value int64) error
	Get(ctx context.Context, guildID, day string) (*domain.DailyMetrics, error)
}

type RestartLogRepository interface {
	Create(ctx context.Context, entry *domain.RestartLog) error
	ListByGuild(ctx context.Context, guildID string, limit int) ([]*domain.RestartLog, error)
}

// PresenceCache holds short-lived member lists per room.
type PresenceCache interface {
	Get(ctx context.Context, roomID string) ([]string, bool, error)
	Set(ctx context.Context, roomID string, members []string, ttl time.Duration) error
	Delete(ctx context.Context, roomID string) error
}
