package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

const DefaultPresenceTTL = 15 * time.Second

// PresenceTracker caches live member lists per room and writes every fresh
// observation through to the room record.
type PresenceTracker struct {
	rooms   repository.RoomRepository
	cache   repository.PresenceCache
	gateway platform.Gateway
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewPresenceTracker(
	rooms repository.RoomRepository,
	cache repository.PresenceCache,
	gateway platform.Gateway,
	ttl time.Duration,
	log *slog.Logger,
) *PresenceTracker {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &PresenceTracker{
		rooms:   rooms,
		cache:   cache,
		gateway: gateway,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// Snapshot returns the members connected to the room. Unless force is set a
// cached list younger than the TTL is returned as is. A fresh observation
// writes only the presence fields of the record: members, owner candidates and
// the snapshot time, plus last activity and a cleared pending deletion when
// anyone is present.
func (t *PresenceTracker) Snapshot(ctx context.Context, room *domain.Room, force bool) ([]string, error) {
	const op = "service.presence.snapshot"
	log := t.log.With(slog.String("op", op), slog.String("room_id", room.ID))

	if !force {
		members, ok, err := t.cache.Get(ctx, room.ID)
		if err != nil {
			log.Debug("presence cache read failed", sl.Err(err))
		} else if ok {
			return members, nil
		}
	}

	live, err := t.gateway.VoiceMembers(ctx, room.GuildID, room.ID)
	if err != nil {
		return nil, &domain.PlatformError{Op: "voice members", Err: err}
	}
	selfID := t.gateway.SelfID()
	members := slices.DeleteFunc(slices.Clone(live), func(id string) bool { return id == selfID })

	now := t.now().UTC()
	room.Members = members
	room.OwnerCandidates = domain.DeriveCandidates(room.OwnerCandidates, members, room.OwnerID)
	room.LastSnapshotAt = now
	if len(members) > 0 {
		room.LastActiveAt = now
		room.ScheduledDeletionAt = nil
	}
	err = t.rooms.RecordPresence(ctx, room.ID, repository.PresenceUpdate{
		Members:         members,
		OwnerCandidates: room.OwnerCandidates,
		At:              now,
		Active:          len(members) > 0,
	})
	if err != nil {
		return nil, err
	}

	if err := t.cache.Set(ctx, room.ID, members, t.ttl); err != nil {
		log.Debug("presence cache write failed", sl.Err(err))
	}
	return members, nil
}

// Invalidate drops the cached list so the next snapshot goes to the platform.
func (t *PresenceTracker) Invalidate(ctx context.Context, roomID string) {
	if err := t.cache.Delete(ctx, roomID); err != nil {
		t.log.Debug("presence cache delete failed", slog.String("room_id", roomID), sl.Err(err))
	}
}

// Observe snapshots a managed room through the cache.
func (t *PresenceTracker) Observe(ctx context.Context, roomID string) ([]string, error) {
	room, err := activeRoom(ctx, t.rooms, roomID)
	if err != nil {
		return nil, err
	}
	return t.Snapshot(ctx, room, false)
}
