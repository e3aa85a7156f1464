package converter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

type RoleTemplateDTO struct {
	RoleID     string                     `json:"role_id"`
	Overwrites map[string]json.RawMessage `json:"overwrites"`
}

// SettingsDTO is the wire form of guild settings. Timings are in seconds
// except the cooldown, which is in milliseconds.
type SettingsDTO struct {
	GuildID           string                 `json:"guild_id"`
	Enabled           bool                   `json:"enabled"`
	TriggerChannelIDs []string               `json:"trigger_channel_ids"`
	BaseCategoryID    string                 `json:"base_category_id"`
	AutoShard         bool                   `json:"auto_shard"`
	MaxShards         int                    `json:"max_shards"`
	ShardPrefix       string                 `json:"shard_prefix"`
	NamePattern       string                 `json:"name_pattern"`
	IdleTimeoutSec    int64                  `json:"idle_timeout_sec"`
	GracePeriodSec    int64                  `json:"grace_period_sec"`
	CreateCooldownMs  int64                  `json:"create_cooldown_ms"`
	MaxRoomsPerGuild  int                    `json:"max_rooms_per_guild"`
	MaxRoomsPerUser   int                    `json:"max_rooms_per_user"`
	CreatorRoleIDs    []string               `json:"creator_role_ids"`
	BypassRoleIDs     []string               `json:"bypass_role_ids"`
	DefaultTemplate   domain.DefaultTemplate `json:"default_template"`
	RoleTemplates     []RoleTemplateDTO      `json:"role_templates"`
	TemplateVersion   int                    `json:"template_version"`
	OwnershipTransfer bool                   `json:"ownership_transfer"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func SettingsToApi(s *domain.GuildSettings) *SettingsDTO {
	templates := make([]RoleTemplateDTO, 0, len(s.RoleTemplates))
	for _, t := range s.RoleTemplates {
		ows := make(map[string]json.RawMessage, len(t.Overwrites))
		for name, allow := range t.Overwrites {
			ows[name] = json.RawMessage(fmt.Sprintf("%t", allow))
		}
		templates = append(templates, RoleTemplateDTO{RoleID: t.RoleID, Overwrites: ows})
	}

	return &SettingsDTO{
		GuildID:           s.GuildID,
		Enabled:           s.Enabled,
		TriggerChannelIDs: s.TriggerChannelIDs,
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
		CreatorRoleIDs:    s.CreatorRoleIDs,
		BypassRoleIDs:     s.BypassRoleIDs,
		DefaultTemplate:   s.DefaultTemplate,
		RoleTemplates:     templates,
		TemplateVersion:   s.TemplateVersion,
		OwnershipTransfer: s.OwnershipTransfer,
		UpdatedAt:         s.UpdatedAt,
	}
}

// SettingsFromApi converts a request body. Overwrite values must be JSON
// booleans.
func SettingsFromApi(guildID string, dto *SettingsDTO) (*domain.GuildSettings, error) {
	templates := make([]domain.RoleTemplate, 0, len(dto.RoleTemplates))
	for i, t := range dto.RoleTemplates {
		ows := make(map[string]bool, len(t.Overwrites))
		for name, raw := range t.Overwrites {
			switch strings.TrimSpace(string(raw)) {
			case "true":
				ows[name] = true
			case "false":
				ows[name] = false
			default:
				return nil, &domain.ValidationError{
					Field:  fmt.Sprintf("role_templates[%d].overwrites.%s", i, name),
					Reason: "must be a boolean",
				}
			}
		}
		templates = append(templates, domain.RoleTemplate{RoleID: t.RoleID, Overwrites: ows})
	}

	return &domain.GuildSettings{
		GuildID:           guildID,
		Enabled:           dto.Enabled,
		TriggerChannelIDs: dto.TriggerChannelIDs,
		BaseCategoryID:    dto.BaseCategoryID,
		AutoShard:         dto.AutoShard,
		MaxShards:         dto.MaxShards,
		ShardPrefix:       dto.ShardPrefix,
		NamePattern:       dto.NamePattern,
		IdleTimeout:       time.Duration(dto.IdleTimeoutSec) * time.Second,
		GracePeriod:       time.Duration(dto.GracePeriodSec) * time.Second,
		CreateCooldown:    time.Duration(dto.CreateCooldownMs) * time.Millisecond,
		MaxRoomsPerGuild:  dto.MaxRoomsPerGuild,
		MaxRoomsPerUser:   dto.MaxRoomsPerUser,
		CreatorRoleIDs:    dto.CreatorRoleIDs,
		BypassRoleIDs:     dto.BypassRoleIDs,
		DefaultTemplate:   dto.DefaultTemplate,
		RoleTemplates:     templates,
		TemplateVersion:   dto.TemplateVersion,
		OwnershipTransfer: dto.OwnershipTransfer,
	}, nil
}
