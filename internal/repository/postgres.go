package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/repository/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresSettingsRepository struct {
	db *gorm.DB
}

func NewPostgresSettingsRepository(db *gorm.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) Get(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var settings model.GuildSettings
	err := r.db.WithContext(ctx).First(&settings, "guild_id = ?", guildID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}

	return toDomainSettings(&settings)
}

func (r *PostgresSettingsRepository) Upsert(ctx context.Context, settings *domain.GuildSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if settings == nil {
		return errors.New("settings is nil")
	}

	m, err := toModelSettings(settings)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns(settingsUpdateColumns),
	}).Create(m).Error
}

var settingsUpdateColumns = []string{
	"enabled", "trigger_channel_ids", "base_category_id", "auto_shard", "max_shards",
	"shard_prefix", "name_pattern", "idle_timeout_sec", "grace_period_sec",
	"create_cooldown_ms", "max_rooms_per_guild", "max_rooms_per_user",
	"creator_role_ids", "bypass_role_ids", "default_template", "role_templates",
	"template_version", "ownership_transfer", "updated_at",
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func toModelSettings(s *domain.GuildSettings) (*model.GuildSettings, error) {
	nonNil := func(v []string) []string {
		if v == nil {
			return []string{}
		}
		return v
	}
	triggers, err := marshalJSON(nonNil(s.TriggerChannelIDs))
	if err != nil {
		return nil, fmt.Errorf("trigger channels: %w", err)
	}
	creators, err := marshalJSON(nonNil(s.CreatorRoleIDs))
	if err != nil {
		return nil, fmt.Errorf("creator roles: %w", err)
	}
	bypass, err := marshalJSON(nonNil(s.BypassRoleIDs))
	if err != nil {
		return nil, fmt.Errorf("bypass roles: %w", err)
	}
	defaults, err := marshalJSON(s.DefaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("default template: %w", err)
	}
	templates := s.RoleTemplates
	if templates == nil {
		templates = []domain.RoleTemplate{}
	}
	roles, err := marshalJSON(templates)
	if err != nil {
		return nil, fmt.Errorf("role templates: %w", err)
	}

	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return &model.GuildSettings{
		GuildID:           s.GuildID,
		Enabled:           s.Enabled,
		TriggerChannelIDs: triggers,
		BaseCategoryID:    s.BaseCategoryID,
		AutoShard:         s.AutoShard,
		MaxShards:         s.MaxShards,
		ShardPrefix:       s.ShardPrefix,
		NamePattern:       s.NamePattern,
		IdleTimeoutSec:    int64(s.IdleTimeout / time.Second),
		GracePeriodSec:    int64(s.GracePeriod / time.Second),
		CreateCooldownMs:  s.CreateCooldown.Milliseconds(),
		MaxRoomsPerGuild:  s.MaxRoomsPerGuild,
		MaxRoomsPerUser:   s.MaxRoomsPerUser,
		CreatorRoleIDs:    creators,
		BypassRoleIDs:     bypass,
		DefaultTemplate:   defaults,
		RoleTemplates:     roles,
		TemplateVersion:   s.TemplateVersion,
		OwnershipTransfer: s.OwnershipTransfer,
		CreatedAt:         updatedAt.UTC(),
		UpdatedAt:         updatedAt.UTC(),
	}, nil
}

func toDomainSettings(m *model.GuildSettings) (*domain.GuildSettings, error) {
	s := &domain.GuildSettings{
		GuildID:           m.GuildID,
		Enabled:           m.Enabled,
		BaseCategoryID:    m.BaseCategoryID,
		AutoShard:         m.AutoShard,
		MaxShards:         m.MaxShards,
		ShardPrefix:       m.ShardPrefix,
		NamePattern:       m.NamePattern,
		IdleTimeout:       time.Duration(m.IdleTimeoutSec) * time.Second,
		GracePeriod:       time.Duration(m.GracePeriodSec) * time.Second,
		CreateCooldown:    time.Duration(m.CreateCooldownMs) * time.Millisecond,
		MaxRoomsPerGuild:  m.MaxRoomsPerGuild,
		MaxRoomsPerUser:   m.MaxRoomsPerUser,
		TemplateVersion:   m.TemplateVersion,
		OwnershipTransfer: m.OwnershipTransfer,
		UpdatedAt:         m.UpdatedAt.UTC(),
	}

	fields := []struct {
		name string
		raw  datatypes.JSON
		dst  any
	}{
		{"trigger_channel_ids", m.TriggerChannelIDs, &s.TriggerChannelIDs},
		{"creator_role_ids", m.CreatorRoleIDs, &s.CreatorRoleIDs},
		{"bypass_role_ids", m.BypassRoleIDs, &s.BypassRoleIDs},
		{"default_template", m.DefaultTemplate, &s.DefaultTemplate},
		{"role_templates", m.RoleTemplates, &s.RoleTemplates},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.name, err)
		}
	}
	return s, nil
}
