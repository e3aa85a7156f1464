package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

const (
	maxUserLimit  = 99
	maxNameLength = 100
)

// Lock stops members who were not explicitly permitted from connecting. The
// room stays visible.
func (l *LifecycleManager) Lock(ctx context.Context, roomID string) (*domain.Room, error) {
	return l.moderate(ctx, "service.lifecycle.lock", roomID, func(r *domain.Room) { r.Locked = true })
}

func (l *LifecycleManager) Unlock(ctx context.Context, roomID string) (*domain.Room, error) {
	return l.moderate(ctx, "service.lifecycle.unlock", roomID, func(r *domain.Room) { r.Locked = false })
}

func (l *LifecycleManager) Permit(ctx context.Context, roomID, memberID string) (*domain.Room, error) {
	return l.moderate(ctx, "service.lifecycle.permit", roomID, func(r *domain.Room) { r.Permit(memberID) })
}

func (l *LifecycleManager) Unban(ctx context.Context, roomID, memberID string) (*domain.Room, error) {
	return l.moderate(ctx, "service.lifecycle.unban", roomID, func(r *domain.Room) { r.Unban(memberID) })
}

// Ban denies a member and disconnects them if they are in the room. The owner
// cannot be banned from their own room.
func (l *LifecycleManager) Ban(ctx context.Context, roomID, memberID string) (*domain.Room, error) {
	const op = "service.lifecycle.ban"

	current, err := activeRoom(ctx, l.rooms, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if memberID == current.OwnerID {
		return nil, fmt.Errorf("%s: %w: the owner cannot be banned", op, domain.ErrInvalidInput)
	}

	room, err := l.moderate(ctx, op, roomID, func(r *domain.Room) { r.Ban(memberID) })
	if err != nil {
		return room, err
	}

	members, err := l.presence.Snapshot(ctx, room, true)
	if err != nil {
		return room, fmt.Errorf("%s: %w", op, err)
	}
	if slices.Contains(members, memberID) {
		if err := l.gateway.DisconnectMember(ctx, room.GuildID, memberID); err != nil {
			return room, fmt.Errorf("%s: %w", op, &domain.PlatformError{Op: "disconnect member", Err: err})
		}
		l.presence.Invalidate(ctx, room.ID)
	}
	return room, nil
}

func (l *LifecycleManager) moderate(ctx context.Context, op, roomID string, mutate func(*domain.Room)) (*domain.Room, error) {
	room, err := activeRoom(ctx, l.rooms, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	mutate(room)
	if err := l.rooms.UpdateModeration(ctx, room); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := l.ReconcilePermissions(ctx, room.GuildID, room.ID); err != nil {
		return room, fmt.Errorf("%s: %w", op, err)
	}
	return activeRoom(ctx, l.rooms, roomID)
}

// SetUserLimit caps the number of connected members. 0 removes the cap.
func (l *LifecycleManager) SetUserLimit(ctx context.Context, roomID string, limit int) (*domain.Room, error) {
	const op = "service.lifecycle.setUserLimit"

	if limit < 0 || limit > maxUserLimit {
		return nil, fmt.Errorf("%s: %w: limit must be between 0 and %d", op, domain.ErrInvalidInput, maxUserLimit)
	}
	room, err := activeRoom(ctx, l.rooms, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := l.gateway.SetUserLimit(ctx, room.ID, limit); err != nil {
		return nil, fmt.Errorf("%s: %w", op, &domain.PlatformError{Op: "set user limit", Err: err})
	}

	room.UserLimit = nil
	if limit > 0 {
		room.UserLimit = &limit
	}
	if err := l.rooms.UpdateModeration(ctx, room); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return room, nil
}

// Rename changes the room name and appends the change to its history.
func (l *LifecycleManager) Rename(ctx context.Context, roomID, actorID, name string) (*domain.Room, error) {
	const op = "service.lifecycle.rename"

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, fmt.Errorf("%s: %w: name must be 1 to %d characters", op, domain.ErrInvalidInput, maxNameLength)
	}
	room, err := activeRoom(ctx, l.rooms, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if room.Name == name {
		return room, nil
	}
	if err := l.gateway.RenameChannel(ctx, room.ID, name); err != nil {
		return nil, fmt.Errorf("%s: %w", op, &domain.PlatformError{Op: "rename channel", Err: err})
	}

	room.Name = name
	room.RenameHistory = append(room.RenameHistory, domain.RenameEntry{
		At:    l.now().UTC(),
		Name:  name,
		Actor: actorID,
	})
	if err := l.rooms.UpdateModeration(ctx, room); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return room, nil
}
