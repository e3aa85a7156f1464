package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

// LifecycleManager creates, reconfigures and deletes rooms.
type LifecycleManager struct {
	gateway   platform.Gateway
	rooms     repository.RoomRepository
	settings  *SettingsService
	placer    *ShardPlacer
	cooldowns *Cooldowns
	presence  *PresenceTracker
	metrics   *MetricsCollector
	log       *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	guilds map[string]*sync.Mutex
}

func NewLifecycleManager(
	gateway platform.Gateway,
	rooms repository.RoomRepository,
	settings *SettingsService,
	placer *ShardPlacer,
	cooldowns *Cooldowns,
	presence *PresenceTracker,
	metrics *MetricsCollector,
	log *slog.Logger,
) *LifecycleManager {
	if log == nil {
		log = slog.Default()
	}
	return &LifecycleManager{
		gateway:   gateway,
		rooms:     rooms,
		settings:  settings,
		placer:    placer,
		cooldowns: cooldowns,
		presence:  presence,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
		guilds:    make(map[string]*sync.Mutex),
	}
}

// guildLock serialises room creation within a guild so that caps and
// category capacity are checked against a stable count.
func (l *LifecycleManager) guildLock(guildID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.guilds[guildID]
	if !ok {
		m = &sync.Mutex{}
		l.guilds[guildID] = m
	}
	return m
}

// CreateTempVC creates a room owned by memberID. Moving the member into it is
// up to the caller.
func (l *LifecycleManager) CreateTempVC(ctx context.Context, guildID, memberID string) (*domain.Room, error) {
	const op = "service.lifecycle.createTempVC"
	log := l.log.With(
		slog.String("op", op),
		slog.String("guild_id", guildID),
		slog.String("member_id", memberID),
	)

	settings, err := l.settings.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrDisabled, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !settings.Enabled {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDisabled)
	}

	member, err := l.gateway.Member(ctx, guildID, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, &domain.PlatformError{Op: "member", Err: err})
	}
	bypass := domain.HasAnyRole(member.RoleIDs, settings.BypassRoleIDs)
	if len(settings.CreatorRoleIDs) > 0 && !bypass && !domain.HasAnyRole(member.RoleIDs, settings.CreatorRoleIDs) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrMissingCreatorRole)
	}

	lock := l.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	if !bypass {
		if err := l.checkCaps(ctx, settings, memberID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if remaining := l.cooldowns.Check(guildID, memberID); remaining > 0 {
			return nil, fmt.Errorf("%s: %w", op, &domain.CooldownError{Remaining: remaining})
		}
	}

	placement, err := l.placer.Place(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	counter, err := l.rooms.NextCounter(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	username := member.DisplayName
	if username == "" {
		username = member.Username
	}
	name := settings.RoomName(username, counter)

	overwrites := ComputeOverwrites(PermissionInput{
		GuildID:       guildID,
		SelfID:        l.gateway.SelfID(),
		OwnerID:       memberID,
		Default:       settings.DefaultTemplate,
		RoleTemplates: settings.RoleTemplates,
	})

	ch, err := l.gateway.CreateVoiceChannel(ctx, guildID, platform.CreateVoiceChannel{
		Name:       name,
		ParentID:   placement.CategoryID,
		Overwrites: overwrites,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, &domain.PlatformError{Op: "create voice channel", Err: err})
	}

	room := domain.NewRoom(ch.ID, guildID, memberID, placement, counter, name, l.now())
	room.PermsVersion = settings.TemplateVersion
	if err := l.rooms.Create(ctx, room); err != nil {
		if derr := l.gateway.DeleteChannel(ctx, ch.ID); derr != nil && !platform.IsNotFound(derr) {
			log.Error("failed to remove unrecorded room", slog.String("room_id", ch.ID), sl.Err(derr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !bypass {
		l.cooldowns.Start(guildID, memberID, settings.CreateCooldown)
	}
	l.metrics.record(ctx, guildID, domain.MetricCreated)
	if active, err := l.rooms.CountActive(ctx, guildID); err == nil {
		if err := l.metrics.UpdatePeakConcurrent(ctx, guildID, int64(active)); err != nil {
			log.Warn("failed to update peak", sl.Err(err))
		}
	}

	log.Info("room created",
		slog.String("room_id", room.ID),
		slog.String("category_id", room.CategoryID),
		slog.Int("shard", room.Shard),
	)
	return room, nil
}

func (l *LifecycleManager) checkCaps(ctx context.Context, settings *domain.GuildSettings, memberID string) error {
	if settings.MaxRoomsPerGuild > 0 {
		n, err := l.rooms.CountActive(ctx, settings.GuildID)
		if err != nil {
			return err
		}
		if n >= settings.MaxRoomsPerGuild {
			return domain.ErrGuildLimit
		}
	}
	if settings.MaxRoomsPerUser > 0 {
		n, err := l.rooms.CountActiveByOwner(ctx, settings.GuildID, memberID)
		if err != nil {
			return err
		}
		if n >= settings.MaxRoomsPerUser {
			return domain.ErrUserLimit
		}
	}
	return nil
}

// ReconcilePermissions recomputes the overwrites of a room and replaces the
// whole set on the platform.
func (l *LifecycleManager) ReconcilePermissions(ctx context.Context, guildID, roomID string) error {
	const op = "service.lifecycle.reconcilePermissions"

	room, err := activeRoom(ctx, l.rooms, roomID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if guildID != "" && room.GuildID != guildID {
		return fmt.Errorf("%s: %w", op, domain.ErrNotManaged)
	}
	settings, err := l.settings.Get(ctx, room.GuildID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	overwrites := ComputeOverwrites(permissionInput(settings, room, l.gateway.SelfID()))
	if err := l.gateway.SetOverwrites(ctx, room.ID, overwrites); err != nil {
		return fmt.Errorf("%s: %w", op, &domain.PlatformError{Op: "set overwrites", Err: err})
	}

	if room.PermsVersion != settings.TemplateVersion {
		if err := l.rooms.SetPermsVersion(ctx, room.ID, settings.TemplateVersion); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// DeleteTempVC removes the platform room and soft-deletes its record. Deleting
// an already deleted room is a no-op.
func (l *LifecycleManager) DeleteTempVC(ctx context.Context, roomID, reason string) error {
	const op = "service.lifecycle.deleteTempVC"

	room, err := l.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return fmt.Errorf("%s: %w", op, domain.ErrNotManaged)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if !room.IsActive() {
		return nil
	}

	if err := l.gateway.DeleteChannel(ctx, room.ID); err != nil && !platform.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, &domain.PlatformError{Op: "delete channel", Err: err})
	}

	if err := l.rooms.SoftDelete(ctx, room.ID, l.now()); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	l.presence.Invalidate(ctx, room.ID)
	l.metrics.record(ctx, room.GuildID, domain.MetricDeleted)

	l.log.Info("room deleted",
		slog.String("op", op),
		slog.String("room_id", room.ID),
		slog.String("guild_id", room.GuildID),
		slog.String("reason", reason),
	)
	return nil
}

func (l *LifecycleManager) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := l.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, domain.ErrNotManaged
		}
		return nil, err
	}
	return room, nil
}

func (l *LifecycleManager) ListRooms(ctx context.Context, guildID string) ([]*domain.Room, error) {
	return l.rooms.ListActiveByGuild(ctx, guildID)
}

// IsManaged reports whether channelID is an active room.
func (l *LifecycleManager) IsManaged(ctx context.Context, channelID string) (bool, error) {
	_, err := activeRoom(ctx, l.rooms, channelID)
	if errors.Is(err, domain.ErrNotManaged) {
		return false, nil
	}
	return err == nil, err
}
