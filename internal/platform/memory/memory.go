// Package memory is an in-process voice platform used for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
)

type Platform struct {
	mu         sync.RWMutex
	node       *snowflake.Node
	selfID     string
	channels   map[string]*platform.Channel
	overwrites map[string][]domain.Overwrite
	members    map[string]map[string]*platform.Member
	// voice maps guild -> member -> channel
	voice    map[string]map[string]string
	failures map[string][]error
	subs     map[int]func(platform.VoiceEvent)
	nextSub  int
}

var _ platform.Gateway = (*Platform)(nil)

func New(nodeID int64) (*Platform, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("memory.New: %w", err)
	}
	return &Platform{
		node:       node,
		selfID:     node.Generate().String(),
		channels:   make(map[string]*platform.Channel),
		overwrites: make(map[string][]domain.Overwrite),
		members:    make(map[string]map[string]*platform.Member),
		voice:      make(map[string]map[string]string),
		failures:   make(map[string][]error),
		subs:       make(map[int]func(platform.VoiceEvent)),
	}, nil
}

// MustNew is New for tests.
func MustNew() *Platform {
	p, err := New(1)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Platform) SelfID() string { return p.selfID }

// FailNext makes the next call of op return err. Ops are the Gateway method names.
func (p *Platform) FailNext(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = append(p.failures[op], err)
}

func (p *Platform) takeFailure(op string) error {
	queue := p.failures[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	p.failures[op] = queue[1:]
	return err
}

// AddMember registers a guild member.
func (p *Platform) AddMember(guildID string, m platform.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.members[guildID] == nil {
		p.members[guildID] = make(map[string]*platform.Member)
	}
	cp := m
	cp.RoleIDs = slices.Clone(m.RoleIDs)
	p.members[guildID][m.ID] = &cp
}

// AddVoiceChannel creates a plain voice channel, e.g. a trigger channel.
func (p *Platform) AddVoiceChannel(guildID, name, parentID string) *platform.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addChannel(guildID, name, parentID, platform.ChannelVoice)
}

func (p *Platform) addChannel(guildID, name, parentID string, kind platform.ChannelKind) *platform.Channel {
	ch := &platform.Channel{
		ID:       p.node.Generate().String(),
		GuildID:  guildID,
		Name:     name,
		Kind:     kind,
		ParentID: parentID,
	}
	p.channels[ch.ID] = ch
	return ch
}

// Join connects a member to a voice channel and emits the event.
func (p *Platform) Join(guildID, memberID, channelID string) {
	p.mu.Lock()
	if p.voice[guildID] == nil {
		p.voice[guildID] = make(map[string]string)
	}
	from := p.voice[guildID][memberID]
	p.voice[guildID][memberID] = channelID
	p.mu.Unlock()

	p.emit(platform.VoiceEvent{GuildID: guildID, MemberID: memberID, FromChannelID: from, ToChannelID: channelID})
}

// Leave disconnects a member from voice and emits the event.
func (p *Platform) Leave(guildID, memberID string) {
	p.mu.Lock()
	from := p.voice[guildID][memberID]
	delete(p.voice[guildID], memberID)
	p.mu.Unlock()

	if from == "" {
		return
	}
	p.emit(platform.VoiceEvent{GuildID: guildID, MemberID: memberID, FromChannelID: from})
}

// RemoveChannel deletes a channel out of band, without going through the gateway.
func (p *Platform) RemoveChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeChannel(channelID)
}

func (p *Platform) removeChannel(channelID string) {
	ch, ok := p.channels[channelID]
	if !ok {
		return
	}
	delete(p.channels, channelID)
	delete(p.overwrites, channelID)
	for member, cid := range p.voice[ch.GuildID] {
		if cid == channelID {
			delete(p.voice[ch.GuildID], member)
		}
	}
}

// Overwrites returns the overwrites last applied to a channel.
func (p *Platform) Overwrites(channelID string) []domain.Overwrite {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.overwrites[channelID])
}

func (p *Platform) emit(ev platform.VoiceEvent) {
	p.mu.RLock()
	subs := make([]func(platform.VoiceEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (p *Platform) Member(ctx context.Context, guildID, memberID string) (*platform.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("Member"); err != nil {
		return nil, err
	}
	m, ok := p.members[guildID][memberID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	cp := *m
	cp.RoleIDs = slices.Clone(m.RoleIDs)
	return &cp, nil
}

func (p *Platform) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("Channel"); err != nil {
		return nil, err
	}
	ch, ok := p.channels[channelID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (p *Platform) GuildChannels(ctx context.Context, guildID string) ([]*platform.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("GuildChannels"); err != nil {
		return nil, err
	}
	out := make([]*platform.Channel, 0)
	for _, ch := range p.channels {
		if ch.GuildID == guildID {
			cp := *ch
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *platform.Channel) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (p *Platform) CreateCategory(ctx context.Context, guildID, name string) (*platform.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("CreateCategory"); err != nil {
		return nil, err
	}
	cp := *p.addChannel(guildID, name, "", platform.ChannelCategory)
	return &cp, nil
}

func (p *Platform) CreateVoiceChannel(ctx context.Context, guildID string, spec platform.CreateVoiceChannel) (*platform.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("CreateVoiceChannel"); err != nil {
		return nil, err
	}
	if spec.ParentID != "" {
		parent, ok := p.channels[spec.ParentID]
		if !ok || parent.Kind != platform.ChannelCategory {
			return nil, platform.ErrNotFound
		}
		if platform.CountChildren(p.guildChannelsLocked(guildID), spec.ParentID) >= domain.CategoryCapacity {
			return nil, fmt.Errorf("category %s is full", spec.ParentID)
		}
	}
	ch := p.addChannel(guildID, spec.Name, spec.ParentID, platform.ChannelVoice)
	ch.UserLimit = spec.UserLimit
	p.overwrites[ch.ID] = slices.Clone(spec.Overwrites)
	cp := *ch
	return &cp, nil
}

func (p *Platform) guildChannelsLocked(guildID string) []*platform.Channel {
	out := make([]*platform.Channel, 0)
	for _, ch := range p.channels {
		if ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	return out
}

func (p *Platform) DeleteChannel(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("DeleteChannel"); err != nil {
		return err
	}
	if _, ok := p.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	p.removeChannel(channelID)
	return nil
}

func (p *Platform) RenameChannel(ctx context.Context, channelID, name string) error {
	return p.mutate(ctx, "RenameChannel", channelID, func(ch *platform.Channel) { ch.Name = name })
}

func (p *Platform) SetUserLimit(ctx context.Context, channelID string, limit int) error {
	return p.mutate(ctx, "SetUserLimit", channelID, func(ch *platform.Channel) { ch.UserLimit = limit })
}

func (p *Platform) SetOverwrites(ctx context.Context, channelID string, overwrites []domain.Overwrite) error {
	return p.mutate(ctx, "SetOverwrites", channelID, func(ch *platform.Channel) {
		p.overwrites[ch.ID] = slices.Clone(overwrites)
	})
}

func (p *Platform) GrantSelf(ctx context.Context, channelID string, perms domain.PermissionSet) error {
	return p.mutate(ctx, "GrantSelf", channelID, func(ch *platform.Channel) {
		p.overwrites[ch.ID] = append(p.overwrites[ch.ID], domain.Overwrite{
			Type:  domain.OverwriteMember,
			ID:    p.selfID,
			Allow: perms,
		})
	})
}

func (p *Platform) mutate(ctx context.Context, op, channelID string, fn func(ch *platform.Channel)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure(op); err != nil {
		return err
	}
	ch, ok := p.channels[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	fn(ch)
	return nil
}

func (p *Platform) VoiceMembers(ctx context.Context, guildID, channelID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("VoiceMembers"); err != nil {
		return nil, err
	}
	if _, ok := p.channels[channelID]; !ok {
		return nil, platform.ErrNotFound
	}
	out := make([]string, 0)
	for member, cid := range p.voice[guildID] {
		if cid == channelID {
			out = append(out, member)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (p *Platform) MoveMember(ctx context.Context, guildID, memberID, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if err := p.takeFailure("MoveMember"); err != nil {
		p.mu.Unlock()
		return err
	}
	if _, ok := p.channels[channelID]; !ok {
		p.mu.Unlock()
		return platform.ErrNotFound
	}
	from, connected := p.voice[guildID][memberID]
	if !connected {
		p.mu.Unlock()
		return fmt.Errorf("member %s is not connected to voice", memberID)
	}
	p.voice[guildID][memberID] = channelID
	p.mu.Unlock()

	p.emit(platform.VoiceEvent{GuildID: guildID, MemberID: memberID, FromChannelID: from, ToChannelID: channelID})
	return nil
}

func (p *Platform) DisconnectMember(ctx context.Context, guildID, memberID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	err := p.takeFailure("DisconnectMember")
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.Leave(guildID, memberID)
	return nil
}

func (p *Platform) Subscribe(fn func(platform.VoiceEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}
