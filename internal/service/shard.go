package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
)

// ShardPlacer picks the category a new room goes into.
type ShardPlacer struct {
	gateway  platform.Gateway
	capacity int
	log      *slog.Logger
}

func NewShardPlacer(gateway platform.Gateway, log *slog.Logger) *ShardPlacer {
	if log == nil {
		log = slog.Default()
	}
	return &ShardPlacer{gateway: gateway, capacity: domain.CategoryCapacity, log: log}
}

// Place returns the first shard with spare capacity. Missing auto-shard
// categories are created when the scan reaches them.
func (p *ShardPlacer) Place(ctx context.Context, settings *domain.GuildSettings) (domain.Placement, error) {
	const op = "service.shard.place"
	log := p.log.With(slog.String("op", op), slog.String("guild_id", settings.GuildID))

	if settings.BaseCategoryID == "" && !settings.AutoShard {
		return domain.Placement{}, nil
	}

	channels, err := p.gateway.GuildChannels(ctx, settings.GuildID)
	if err != nil {
		return domain.Placement{}, &domain.PlatformError{Op: "guild channels", Err: err}
	}

	shards := 1
	if settings.AutoShard {
		shards = max(settings.MaxShards, 1)
	}

	for i := 0; i < shards; i++ {
		categoryID := ""
		if i == 0 && settings.BaseCategoryID != "" {
			categoryID = settings.BaseCategoryID
		} else if cat := platform.FindCategory(channels, settings.ShardName(i)); cat != nil {
			categoryID = cat.ID
		}

		if categoryID == "" {
			cat, err := p.gateway.CreateCategory(ctx, settings.GuildID, settings.ShardName(i))
			if err != nil {
				return domain.Placement{}, &domain.PlatformError{Op: "create category", Err: err}
			}
			log.Info("shard category created", slog.Int("shard", i), slog.String("category_id", cat.ID))
			return domain.Placement{CategoryID: cat.ID, Shard: i}, nil
		}

		if platform.CountChildren(channels, categoryID) < p.capacity {
			return domain.Placement{CategoryID: categoryID, Shard: i}, nil
		}
	}

	return domain.Placement{}, fmt.Errorf("%s: %w", op, domain.ErrCapacity)
}
