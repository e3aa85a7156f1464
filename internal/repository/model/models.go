package model

import (
	"time"

	"gorm.io/datatypes"
)

type GuildSettings struct {
	GuildID           string         `gorm:"size:32;primaryKey"`
	Enabled           bool           `gorm:"not null"`
	TriggerChannelIDs datatypes.JSON `gorm:"type:jsonb;not null"`
	BaseCategoryID    string         `gorm:"size:32"`
	AutoShard         bool           `gorm:"not null"`
	MaxShards         int            `gorm:"not null"`
	ShardPrefix       string         `gorm:"size:64;not null"`
	NamePattern       string         `gorm:"size:100;not null"`
	IdleTimeoutSec    int64          `gorm:"not null"`
	GracePeriodSec    int64          `gorm:"not null"`
	CreateCooldownMs  int64          `gorm:"not null"`
	MaxRoomsPerGuild  int            `gorm:"not null"`
	MaxRoomsPerUser   int            `gorm:"not null"`
	CreatorRoleIDs    datatypes.JSON `gorm:"type:jsonb;not null"`
	BypassRoleIDs     datatypes.JSON `gorm:"type:jsonb;not null"`
	DefaultTemplate   datatypes.JSON `gorm:"type:jsonb;not null"`
	RoleTemplates     datatypes.JSON `gorm:"type:jsonb;not null"`
	TemplateVersion   int            `gorm:"not null"`
	OwnershipTransfer bool           `gorm:"not null"`
	CreatedAt         time.Time      `gorm:"not null"`
	UpdatedAt         time.Time      `gorm:"not null"`
}
