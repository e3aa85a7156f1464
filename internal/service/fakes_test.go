package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform/memory"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
)

type failingSettingsRepo struct {
	err error
}

func (r failingSettingsRepo) Get(context.Context, string) (*domain.GuildSettings, error) {
	return nil, r.err
}

func (r failingSettingsRepo) Upsert(context.Context, *domain.GuildSettings) error {
	return r.err
}

// hookedGateway runs beforeVoiceMembers once, ahead of the first member
// lookup, to interleave a concurrent change with a running pass.
type hookedGateway struct {
	*memory.Platform
	once               sync.Once
	beforeVoiceMembers func(channelID string)
}

func (g *hookedGateway) VoiceMembers(ctx context.Context, guildID, channelID string) ([]string, error) {
	g.once.Do(func() { g.beforeVoiceMembers(channelID) })
	return g.Platform.VoiceMembers(ctx, guildID, channelID)
}

// countingRooms counts presence writes.
type countingRooms struct {
	*repository.InMemoryRoomRepository
	presenceWrites atomic.Int64
}

func (r *countingRooms) RecordPresence(ctx context.Context, id string, p repository.PresenceUpdate) error {
	r.presenceWrites.Add(1)
	return r.InMemoryRoomRepository.RecordPresence(ctx, id, p)
}
