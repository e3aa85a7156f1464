package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

type OwnerTemplate struct {
	ManageChannel   bool `json:"manage_channel"`
	MoveMembers     bool `json:"move_members"`
	MuteMembers     bool `json:"mute_members"`
	DeafenMembers   bool `json:"deafen_members"`
	PrioritySpeaker bool `json:"priority_speaker"`
	Stream          bool `json:"stream"`
}

type EveryoneTemplate struct {
	View    bool `json:"view"`
	Connect bool `json:"connect"`
	Speak   bool `json:"speak"`
	Stream  bool `json:"stream"`
}

type DefaultTemplate struct {
	Owner    OwnerTemplate    `json:"owner"`
	Everyone EveryoneTemplate `json:"everyone"`
}

// RoleTemplate maps permission names to allow (true) or deny (false) for a role.
type RoleTemplate struct {
	RoleID     string          `json:"role_id"`
	Overwrites map[string]bool `json:"overwrites"`
}

// GuildSettings is the per-guild configuration the room engine reads.
type GuildSettings struct {
	GuildID           string
	Enabled           bool
	TriggerChannelIDs []string
	BaseCategoryID    string
	AutoShard         bool
	MaxShards         int
	ShardPrefix       string
	NamePattern       string
	IdleTimeout       time.Duration
	GracePeriod       time.Duration
	CreateCooldown    time.Duration
	MaxRoomsPerGuild  int
	MaxRoomsPerUser   int
	CreatorRoleIDs    []string
	BypassRoleIDs     []string
	DefaultTemplate   DefaultTemplate
	RoleTemplates     []RoleTemplate
	TemplateVersion   int
	OwnershipTransfer bool
	UpdatedAt         time.Time
}

const (
	DefaultMaxShards      = 3
	DefaultShardPrefix    = "Temp Voice"
	DefaultNamePattern    = "{username}'s room"
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultGracePeriod    = time.Minute
	DefaultCreateCooldown = 30 * time.Second
	maxShardLetters       = 26
	maxRoomNameRunes      = 100
)

// DefaultSettings returns the settings used for a guild with nothing stored.
func DefaultSettings(guildID string) *GuildSettings {
	return &GuildSettings{
		GuildID:        guildID,
		MaxShards:      DefaultMaxShards,
		ShardPrefix:    DefaultShardPrefix,
		NamePattern:    DefaultNamePattern,
		IdleTimeout:    DefaultIdleTimeout,
		GracePeriod:    DefaultGracePeriod,
		CreateCooldown: DefaultCreateCooldown,
		DefaultTemplate: DefaultTemplate{
			Owner: OwnerTemplate{
				ManageChannel: true,
				MoveMembers:   true,
				MuteMembers:   true,
				DeafenMembers: true,
				Stream:        true,
			},
			Everyone: EveryoneTemplate{
				View:    true,
				Connect: true,
				Speak:   true,
				Stream:  true,
			},
		},
		OwnershipTransfer: true,
	}
}

func (s *GuildSettings) IsTrigger(channelID string) bool {
	return slices.Contains(s.TriggerChannelIDs, channelID)
}

// HasAnyRole reports whether roles intersects want.
func HasAnyRole(roles, want []string) bool {
	for _, r := range roles {
		if slices.Contains(want, r) {
			return true
		}
	}
	return false
}

// Validate checks settings before they are stored. The reconciler relies on
// stored settings having passed it.
func (s *GuildSettings) Validate() error {
	if s.GuildID == "" {
		return &ValidationError{Field: "guild_id", Reason: "required"}
	}
	if s.MaxShards < 1 || s.MaxShards > maxShardLetters {
		return &ValidationError{Field: "max_shards", Reason: fmt.Sprintf("must be between 1 and %d", maxShardLetters)}
	}
	if s.IdleTimeout < 0 {
		return &ValidationError{Field: "idle_timeout", Reason: "must not be negative"}
	}
	if s.GracePeriod < 0 {
		return &ValidationError{Field: "grace_period", Reason: "must not be negative"}
	}
	if s.CreateCooldown < 0 {
		return &ValidationError{Field: "create_cooldown", Reason: "must not be negative"}
	}
	if s.MaxRoomsPerGuild < 0 || s.MaxRoomsPerUser < 0 {
		return &ValidationError{Field: "max_rooms", Reason: "must not be negative"}
	}
	if strings.TrimSpace(s.NamePattern) == "" {
		return &ValidationError{Field: "name_pattern", Reason: "required"}
	}
	for i, t := range s.RoleTemplates {
		field := fmt.Sprintf("role_templates[%d]", i)
		if t.RoleID == "" {
			return &ValidationError{Field: field + ".role_id", Reason: "required"}
		}
		for name := range t.Overwrites {
			if _, err := ParsePermission(name); err != nil {
				return &ValidationError{Field: field + ".overwrites", Reason: err.Error()}
			}
		}
	}
	return nil
}

// RoomName renders the naming pattern.
func (s *GuildSettings) RoomName(username string, counter int64) string {
	pattern := s.NamePattern
	if pattern == "" {
		pattern = DefaultNamePattern
	}
	name := strings.NewReplacer(
		"{username}", username,
		"{counter}", fmt.Sprintf("%d", counter),
	).Replace(pattern)
	if utf8.RuneCountInString(name) > maxRoomNameRunes {
		name = string([]rune(name)[:maxRoomNameRunes])
	}
	return name
}

// ShardName returns the category name for a shard index: "<prefix> A", "<prefix> B", ...
func (s *GuildSettings) ShardName(index int) string {
	prefix := s.ShardPrefix
	if prefix == "" {
		prefix = DefaultShardPrefix
	}
	return fmt.Sprintf("%s %c", prefix, 'A'+rune(index%maxShardLetters))
}
