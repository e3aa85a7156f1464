package service

import (
	"context"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

type RoomInteractor interface {
	CreateTempVC(ctx context.Context, guildID, memberID string) (*domain.Room, error)
	ReconcilePermissions(ctx context.Context, guildID, roomID string) error
	DeleteTempVC(ctx context.Context, roomID, reason string) error
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context, guildID string) ([]*domain.Room, error)
	IsManaged(ctx context.Context, channelID string) (bool, error)

	Lock(ctx context.Context, roomID string) (*domain.Room, error)
	Unlock(ctx context.Context, roomID string) (*domain.Room, error)
	Permit(ctx context.Context, roomID, memberID string) (*domain.Room, error)
	Ban(ctx context.Context, roomID, memberID string) (*domain.Room, error)
	Unban(ctx context.Context, roomID, memberID string) (*domain.Room, error)
	SetUserLimit(ctx context.Context, roomID string, limit int) (*domain.Room, error)
	Rename(ctx context.Context, roomID, actorID, name string) (*domain.Room, error)
}

type OwnershipInteractor interface {
	Claim(ctx context.Context, roomID, claimerID string) (*domain.Room, error)
	Promote(ctx context.Context, roomID, actorID, targetID string) (*domain.Room, error)
	HandleOwnerLeft(ctx context.Context, roomID string) (string, error)
}

type SettingsInteractor interface {
	Get(ctx context.Context, guildID string) (*domain.GuildSettings, error)
	Update(ctx context.Context, settings *domain.GuildSettings) (*domain.GuildSettings, error)
}

type MetricsInteractor interface {
	ExportDaily(ctx context.Context, guildID, day string) (*domain.DailyMetrics, error)
}

type MaintenanceInteractor interface {
	RunIdleChecks(ctx context.Context) (*IdleSummary, error)
	ProcessScheduledDeletions(ctx context.Context) (*DeletionSummary, error)
	RunHourlyIntegrityScan(ctx context.Context) (*HourlySummary, error)
	IntegrityStartupScan(ctx context.Context) (*StartupSummary, error)
	RestartLogs(ctx context.Context, guildID string, limit int) ([]*domain.RestartLog, error)
}

var (
	_ RoomInteractor        = (*LifecycleManager)(nil)
	_ OwnershipInteractor   = (*OwnershipManager)(nil)
	_ SettingsInteractor    = (*SettingsService)(nil)
	_ MetricsInteractor     = (*MetricsCollector)(nil)
	_ MaintenanceInteractor = (*Reconciler)(nil)
)
