package platform

import (
	"context"
	"errors"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

// ErrNotFound is returned when the requested channel, category or member does
// not exist on the platform.
var ErrNotFound = errors.New("platform object not found")

type ChannelKind uint8

const (
	ChannelVoice ChannelKind = iota
	ChannelCategory
	ChannelOther
)

type Channel struct {
	ID        string
	GuildID   string
	Name      string
	Kind      ChannelKind
	ParentID  string
	UserLimit int
}

type Member struct {
	ID          string
	Username    string
	DisplayName string
	RoleIDs     []string
	Bot         bool
}

// CreateVoiceChannel describes a room to create.
type CreateVoiceChannel struct {
	Name       string
	ParentID   string
	UserLimit  int
	Overwrites []domain.Overwrite
}

type VoiceEventKind uint8

const (
	VoiceJoin VoiceEventKind = iota
	VoiceLeave
	VoiceMove
)

// VoiceEvent is a member moving between voice channels. FromChannelID is empty
// for joins, ToChannelID is empty for leaves.
type VoiceEvent struct {
	GuildID       string
	MemberID      string
	FromChannelID string
	ToChannelID   string
}

func (e VoiceEvent) Kind() VoiceEventKind {
	switch {
	case e.FromChannelID == "":
		return VoiceJoin
	case e.ToChannelID == "":
		return VoiceLeave
	default:
		return VoiceMove
	}
}

// Gateway is the voice platform as seen by the room engine.
type Gateway interface {
	// SelfID is the member id of the bot itself.
	SelfID() string

	Member(ctx context.Context, guildID, memberID string) (*Member, error)
	Channel(ctx context.Context, channelID string) (*Channel, error)
	GuildChannels(ctx context.Context, guildID string) ([]*Channel, error)

	CreateCategory(ctx context.Context, guildID, name string) (*Channel, error)
	CreateVoiceChannel(ctx context.Context, guildID string, spec CreateVoiceChannel) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	RenameChannel(ctx context.Context, channelID, name string) error
	SetUserLimit(ctx context.Context, channelID string, limit int) error

	// SetOverwrites replaces the full overwrite set of a channel.
	SetOverwrites(ctx context.Context, channelID string, overwrites []domain.Overwrite) error
	// GrantSelf adds an overwrite giving the bot the given permissions on a channel.
	GrantSelf(ctx context.Context, channelID string, perms domain.PermissionSet) error

	// VoiceMembers lists the members currently connected to a voice channel.
	VoiceMembers(ctx context.Context, guildID, channelID string) ([]string, error)
	MoveMember(ctx context.Context, guildID, memberID, channelID string) error
	DisconnectMember(ctx context.Context, guildID, memberID string) error

	// Subscribe registers fn for voice events and returns a function removing it.
	Subscribe(fn func(VoiceEvent)) func()
}

// IsNotFound reports whether err means the object is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CountChildren counts channels under a category.
func CountChildren(channels []*Channel, categoryID string) int {
	n := 0
	for _, ch := range channels {
		if ch.ParentID == categoryID && ch.Kind != ChannelCategory {
			n++
		}
	}
	return n
}

// FindCategory returns the first category with the given name, or nil.
func FindCategory(channels []*Channel, name string) *Channel {
	for _, ch := range channels {
		if ch.Kind == ChannelCategory && ch.Name == name {
			return ch
		}
	}
	return nil
}
