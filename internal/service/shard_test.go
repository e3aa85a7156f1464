package service

import (
	"fmt"
	"testing"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillCategory(t *testing.T, p *memory.Platform, categoryID string, n int) {
	t.Helper()
	for i := range n {
		p.AddVoiceChannel(testGuild, fmt.Sprintf("room-%d", i), categoryID)
	}
}

func TestShardPlacer_Place_TopLevelWithoutBaseOrAutoShard(t *testing.T) {
	p := memory.MustNew()
	placer := NewShardPlacer(p, discardLogger())
	settings := domain.DefaultSettings(testGuild)

	placement, err := placer.Place(t.Context(), settings)
	require.NoError(t, err)

	assert.Equal(t, domain.Placement{}, placement)
}

func TestShardPlacer_Place_BaseCategoryOnly(t *testing.T) {
	p := memory.MustNew()
	placer := NewShardPlacer(p, discardLogger())
	base, err := p.CreateCategory(t.Context(), testGuild, "Voice")
	require.NoError(t, err)

	settings := domain.DefaultSettings(testGuild)
	settings.BaseCategoryID = base.ID

	placement, err := placer.Place(t.Context(), settings)
	require.NoError(t, err)
	assert.Equal(t, domain.Placement{CategoryID: base.ID, Shard: 0}, placement)

	fillCategory(t, p, base.ID, domain.CategoryCapacity)
	_, err = placer.Place(t.Context(), settings)
	assert.ErrorIs(t, err, domain.ErrCapacity)

	channels, err := p.GuildChannels(t.Context(), testGuild)
	require.NoError(t, err)
	assert.Nil(t, platform.FindCategory(channels, settings.ShardName(1)), "no category is created without auto-shard")
}

func TestShardPlacer_Place_AutoShardSpillsOver(t *testing.T) {
	p := memory.MustNew()
	placer := NewShardPlacer(p, discardLogger())
	base, err := p.CreateCategory(t.Context(), testGuild, "Voice")
	require.NoError(t, err)
	fillCategory(t, p, base.ID, domain.CategoryCapacity)

	settings := domain.DefaultSettings(testGuild)
	settings.BaseCategoryID = base.ID
	settings.AutoShard = true

	placement, err := placer.Place(t.Context(), settings)
	require.NoError(t, err)
	assert.Equal(t, 1, placement.Shard)

	category, err := p.Channel(t.Context(), placement.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Temp Voice B", category.Name)

	again, err := placer.Place(t.Context(), settings)
	require.NoError(t, err)
	assert.Equal(t, placement, again, "existing shard category is reused")
}

func TestShardPlacer_Place_AllShardsFull(t *testing.T) {
	p := memory.MustNew()
	placer := NewShardPlacer(p, discardLogger())
	settings := domain.DefaultSettings(testGuild)
	settings.AutoShard = true
	settings.MaxShards = 2

	for i := range settings.MaxShards {
		cat, err := p.CreateCategory(t.Context(), testGuild, settings.ShardName(i))
		require.NoError(t, err)
		fillCategory(t, p, cat.ID, domain.CategoryCapacity)
	}

	_, err := placer.Place(t.Context(), settings)
	assert.ErrorIs(t, err, domain.ErrCapacity)
}
