package domain

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Permission is a single channel permission the room engine knows how to grant
// or deny. The set is closed: anything else is rejected when settings are written.
type Permission uint8

const (
	PermView Permission = iota
	PermConnect
	PermSpeak
	PermStream
	PermUseVAD
	PermPrioritySpeaker
	PermMuteMembers
	PermDeafenMembers
	PermMoveMembers
	PermManageChannel
	PermManageRoles
	PermSendMessages
	PermReadHistory
	permCount
)

var permissionNames = [...]string{
	PermView:            "view",
	PermConnect:         "connect",
	PermSpeak:           "speak",
	PermStream:          "stream",
	PermUseVAD:          "use_vad",
	PermPrioritySpeaker: "priority_speaker",
	PermMuteMembers:     "mute_members",
	PermDeafenMembers:   "deafen_members",
	PermMoveMembers:     "move_members",
	PermManageChannel:   "manage_channel",
	PermManageRoles:     "manage_roles",
	PermSendMessages:    "send_messages",
	PermReadHistory:     "read_history",
}

func (p Permission) String() string {
	if p >= permCount {
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
	return permissionNames[p]
}

// AllPermissions lists every known permission in declaration order.
func AllPermissions() []Permission {
	out := make([]Permission, 0, permCount)
	for p := Permission(0); p < permCount; p++ {
		out = append(out, p)
	}
	return out
}

// ParsePermission resolves a permission name as used in role templates.
func ParsePermission(name string) (Permission, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for p := Permission(0); p < permCount; p++ {
		if permissionNames[p] == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown permission %q", name)
}

// PermissionSet is a bitset of permissions.
type PermissionSet uint64

func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s = s.With(p)
	}
	return s
}

func (s PermissionSet) Has(p Permission) bool           { return s&(1<<p) != 0 }
func (s PermissionSet) With(p Permission) PermissionSet { return s | 1<<p }
func (s PermissionSet) Without(p Permission) PermissionSet {
	return s &^ (1 << p)
}
func (s PermissionSet) Union(o PermissionSet) PermissionSet { return s | o }
func (s PermissionSet) Minus(o PermissionSet) PermissionSet { return s &^ o }
func (s PermissionSet) Len() int                            { return bits.OnesCount64(uint64(s)) }

// List returns the permissions in the set in declaration order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, s.Len())
	for p := Permission(0); p < permCount; p++ {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s PermissionSet) Names() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.String()
	}
	return out
}

// AdminPermissions is what the bot needs on every room it manages.
var AdminPermissions = NewPermissionSet(
	PermView, PermConnect, PermSpeak, PermStream, PermMoveMembers,
	PermMuteMembers, PermDeafenMembers, PermManageChannel, PermManageRoles,
)

type OverwriteType uint8

const (
	OverwriteRole OverwriteType = iota
	OverwriteMember
)

func (t OverwriteType) String() string {
	if t == OverwriteMember {
		return "member"
	}
	return "role"
}

// Overwrite is a per-target permission adjustment applied to a channel.
type Overwrite struct {
	Type  OverwriteType
	ID    string
	Allow PermissionSet
	Deny  PermissionSet
}

type overwriteKey struct {
	t  OverwriteType
	id string
}

// CoalesceOverwrites merges overwrites sharing a target: allow and deny sets
// are unioned and an explicit deny removes the matching allow bit. The result
// is sorted by target type, then id.
func CoalesceOverwrites(in []Overwrite) []Overwrite {
	merged := make(map[overwriteKey]*Overwrite, len(in))
	for _, ow := range in {
		key := overwriteKey{ow.Type, ow.ID}
		cur, ok := merged[key]
		if !ok {
			cp := ow
			merged[key] = &cp
			continue
		}
		cur.Allow = cur.Allow.Union(ow.Allow)
		cur.Deny = cur.Deny.Union(ow.Deny)
	}

	out := make([]Overwrite, 0, len(merged))
	for _, ow := range merged {
		ow.Allow = ow.Allow.Minus(ow.Deny)
		out = append(out, *ow)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}
