// Package discord adapts a discordgo session to the platform gateway.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
)

const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers

type Gateway struct {
	s   *discordgo.Session
	log *slog.Logger
}

var _ platform.Gateway = (*Gateway)(nil)

// Open creates a session for a bot token and connects it.
func Open(token string, log *slog.Logger) (*Gateway, error) {
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordgo.New: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	s.State.TrackVoice = true
	s.State.TrackChannels = true
	s.State.TrackMembers = true

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("session.Open: %w", err)
	}
	return New(s, log), nil
}

func New(s *discordgo.Session, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{s: s, log: log}
}

func (g *Gateway) Close() error {
	return g.s.Close()
}

func (g *Gateway) SelfID() string {
	if g.s.State == nil || g.s.State.User == nil {
		return ""
	}
	return g.s.State.User.ID
}

func (g *Gateway) Member(ctx context.Context, guildID, memberID string) (*platform.Member, error) {
	m, err := g.s.State.Member(guildID, memberID)
	if err != nil {
		m, err = g.s.GuildMember(guildID, memberID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
	}
	return toMember(m), nil
}

func (g *Gateway) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	ch, err := g.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toChannel(ch), nil
}

func (g *Gateway) GuildChannels(ctx context.Context, guildID string) ([]*platform.Channel, error) {
	chs, err := g.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]*platform.Channel, 0, len(chs))
	for _, ch := range chs {
		out = append(out, toChannel(ch))
	}
	return out, nil
}

func (g *Gateway) CreateCategory(ctx context.Context, guildID, name string) (*platform.Channel, error) {
	ch, err := g.s.GuildChannelCreate(guildID, name, discordgo.ChannelTypeGuildCategory, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toChannel(ch), nil
}

func (g *Gateway) CreateVoiceChannel(ctx context.Context, guildID string, spec platform.CreateVoiceChannel) (*platform.Channel, error) {
	ch, err := g.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		ParentID:             spec.ParentID,
		UserLimit:            spec.UserLimit,
		PermissionOverwrites: toDiscordOverwrites(spec.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toChannel(ch), nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := g.s.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return mapError(err)
}

func (g *Gateway) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := g.s.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return mapError(err)
}

// SetUserLimit patches user_limit directly: ChannelEdit omits a zero limit,
// which is how the limit is cleared.
func (g *Gateway) SetUserLimit(ctx context.Context, channelID string, limit int) error {
	endpoint := discordgo.EndpointChannel(channelID)
	_, err := g.s.RequestWithBucketID(http.MethodPatch, endpoint, map[string]int{"user_limit": limit}, endpoint, discordgo.WithContext(ctx))
	return mapError(err)
}

func (g *Gateway) SetOverwrites(ctx context.Context, channelID string, overwrites []domain.Overwrite) error {
	_, err := g.s.ChannelEdit(channelID, &discordgo.ChannelEdit{
		PermissionOverwrites: toDiscordOverwrites(overwrites),
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

func (g *Gateway) GrantSelf(ctx context.Context, channelID string, perms domain.PermissionSet) error {
	err := g.s.ChannelPermissionSet(channelID, g.SelfID(), discordgo.PermissionOverwriteTypeMember, toBits(perms), 0, discordgo.WithContext(ctx))
	return mapError(err)
}

func (g *Gateway) VoiceMembers(_ context.Context, guildID, channelID string) ([]string, error) {
	guild, err := g.s.State.Guild(guildID)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]string, 0)
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			out = append(out, vs.UserID)
		}
	}
	return out, nil
}

func (g *Gateway) MoveMember(ctx context.Context, guildID, memberID, channelID string) error {
	return mapError(g.s.GuildMemberMove(guildID, memberID, &channelID, discordgo.WithContext(ctx)))
}

func (g *Gateway) DisconnectMember(ctx context.Context, guildID, memberID string) error {
	return mapError(g.s.GuildMemberMove(guildID, memberID, nil, discordgo.WithContext(ctx)))
}

func (g *Gateway) Subscribe(fn func(platform.VoiceEvent)) func() {
	return g.s.AddHandler(func(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		if e.VoiceState == nil {
			return
		}
		ev := platform.VoiceEvent{
			GuildID:     e.GuildID,
			MemberID:    e.UserID,
			ToChannelID: e.ChannelID,
		}
		if e.BeforeUpdate != nil {
			ev.FromChannelID = e.BeforeUpdate.ChannelID
		}
		if ev.FromChannelID == ev.ToChannelID {
			// mute/deafen/stream toggles
			return
		}
		g.log.Debug("voice state update",
			slog.String("guild_id", ev.GuildID),
			slog.String("member_id", ev.MemberID),
			slog.String("from", ev.FromChannelID),
			slog.String("to", ev.ToChannelID),
		)
		fn(ev)
	})
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return platform.ErrNotFound
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
		}
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownGuild:
				return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
			}
		}
	}
	return err
}

func toChannel(ch *discordgo.Channel) *platform.Channel {
	kind := platform.ChannelOther
	switch ch.Type {
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		kind = platform.ChannelVoice
	case discordgo.ChannelTypeGuildCategory:
		kind = platform.ChannelCategory
	}
	return &platform.Channel{
		ID:        ch.ID,
		GuildID:   ch.GuildID,
		Name:      ch.Name,
		Kind:      kind,
		ParentID:  ch.ParentID,
		UserLimit: ch.UserLimit,
	}
}

func toMember(m *discordgo.Member) *platform.Member {
	out := &platform.Member{
		RoleIDs: m.Roles,
	}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = m.User.Username
		out.DisplayName = m.User.GlobalName
		out.Bot = m.User.Bot
	}
	if m.Nick != "" {
		out.DisplayName = m.Nick
	}
	if out.DisplayName == "" {
		out.DisplayName = out.Username
	}
	return out
}
