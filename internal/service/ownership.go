package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
)

type permissionReconciler interface {
	ReconcilePermissions(ctx context.Context, guildID, roomID string) error
}

// OwnershipManager moves room ownership between members.
type OwnershipManager struct {
	rooms    repository.RoomRepository
	settings *SettingsService
	presence *PresenceTracker
	metrics  *MetricsCollector
	perms    permissionReconciler
	log      *slog.Logger
}

func NewOwnershipManager(
	rooms repository.RoomRepository,
	settings *SettingsService,
	presence *PresenceTracker,
	metrics *MetricsCollector,
	perms permissionReconciler,
	log *slog.Logger,
) *OwnershipManager {
	if log == nil {
		log = slog.Default()
	}
	return &OwnershipManager{
		rooms:    rooms,
		settings: settings,
		presence: presence,
		metrics:  metrics,
		perms:    perms,
		log:      log,
	}
}

// Claim lets a present member take over a room whose owner is gone.
func (m *OwnershipManager) Claim(ctx context.Context, roomID, claimerID string) (*domain.Room, error) {
	const op = "service.ownership.claim"

	room, err := activeRoom(ctx, m.rooms, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	settings, err := m.settings.Get(ctx, room.GuildID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !settings.OwnershipTransfer {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrTransferDisabled)
	}

	members, err := m.presence.Snapshot(ctx, room, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !slices.Contains(members, claimerID) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotPresent)
	}
	if room.OwnerID == claimerID {
		return room, nil
	}
	if room.OwnerID != "" && slices.Contains(members, room.OwnerID) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrOwnerPresent)
	}

	if err := m.assign(ctx, room, claimerID, members); err != nil {
		return room, fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("room claimed",
		slog.String("op", op),
		slog.String("room_id", room.ID),
		slog.String("owner_id", claimerID),
	)
	return room, nil
}

// Promote forces ownership onto targetID. The caller has already checked that
// actorID is allowed to do so.
func (m *OwnershipManager) Promote(ctx context.Context, roomID, actorID, targetID string) (*domain.Room, error) {
	const op = "service.ownership.promote"

	if targetID == "" {
		return nil, fmt.Errorf("%s: target is required", op)
	}
	room, err := activeRoom(ctx, m.rooms, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if room.OwnerID == targetID {
		return room, nil
	}

	members, err := m.presence.Snapshot(ctx, room, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := m.assign(ctx, room, targetID, members); err != nil {
		return room, fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("room owner promoted",
		slog.String("op", op),
		slog.String("room_id", room.ID),
		slog.String("actor_id", actorID),
		slog.String("owner_id", targetID),
	)
	return room, nil
}

// HandleOwnerLeft takes a fresh snapshot and hands the room to a present
// member when its owner is gone. It returns the new owner, or "" when nothing
// changed. The snapshot is recorded even when ownership transfer is off.
func (m *OwnershipManager) HandleOwnerLeft(ctx context.Context, roomID string) (string, error) {
	const op = "service.ownership.handleOwnerLeft"

	room, err := activeRoom(ctx, m.rooms, roomID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	members, err := m.presence.Snapshot(ctx, room, true)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	settings, err := m.settings.Get(ctx, room.GuildID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !settings.OwnershipTransfer {
		return "", nil
	}
	if len(members) == 0 || slices.Contains(members, room.OwnerID) {
		return "", nil
	}

	next := members[0]
	for _, id := range room.OwnerCandidates {
		if slices.Contains(members, id) {
			next = id
			break
		}
	}

	previous := room.OwnerID
	if err := m.assign(ctx, room, next, members); err != nil {
		return next, fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("room owner reassigned",
		slog.String("op", op),
		slog.String("room_id", room.ID),
		slog.String("previous_owner_id", previous),
		slog.String("owner_id", next),
	)
	return next, nil
}

// assign stores the new owner, recomputes candidates and reapplies overwrites.
// The ownership change stands even when the overwrites could not be applied.
func (m *OwnershipManager) assign(ctx context.Context, room *domain.Room, ownerID string, members []string) error {
	room.OwnerID = ownerID
	room.OwnerCandidates = domain.DeriveCandidates(room.OwnerCandidates, members, ownerID)
	if err := m.rooms.SetOwner(ctx, room.ID, ownerID, room.OwnerCandidates); err != nil {
		return err
	}
	m.metrics.record(ctx, room.GuildID, domain.MetricReassigned)

	if err := m.perms.ReconcilePermissions(ctx, room.GuildID, room.ID); err != nil {
		return fmt.Errorf("owner changed, overwrites not applied: %w", err)
	}
	return nil
}

func activeRoom(ctx context.Context, rooms repository.RoomRepository, roomID string) (*domain.Room, error) {
	room, err := rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, domain.ErrNotManaged
		}
		return nil, err
	}
	if !room.IsActive() {
		return nil, domain.ErrNotManaged
	}
	return room, nil
}
