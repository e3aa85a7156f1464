package domain

import (
	"slices"
	"time"
)

// CategoryCapacity is the platform ceiling of channels under a single category.
const CategoryCapacity = 50

type RenameEntry struct {
	At    time.Time `bson:"at" json:"at"`
	Name  string    `bson:"name" json:"name"`
	Actor string    `bson:"actor" json:"actor"`
}

// Room is the persisted description of an ephemeral voice channel.
// ID is the platform channel id.
type Room struct {
	ID         string `bson:"_id"`
	GuildID    string `bson:"guild_id"`
	OwnerID    string `bson:"owner_id"`
	CategoryID string `bson:"category_id"`
	Shard      int    `bson:"shard"`
	Counter    int64  `bson:"counter"`
	Name       string `bson:"name"`

	CreatedAt           time.Time  `bson:"created_at"`
	LastActiveAt        time.Time  `bson:"last_active_at"`
	ScheduledDeletionAt *time.Time `bson:"scheduled_deletion_at,omitempty"`
	DeletedAt           *time.Time `bson:"deleted_at,omitempty"`

	Locked    bool     `bson:"locked"`
	UserLimit *int     `bson:"user_limit,omitempty"`
	Banned    []string `bson:"banned"`
	Permitted []string `bson:"permitted"`

	Members         []string  `bson:"members"`
	OwnerCandidates []string  `bson:"owner_candidates"`
	LastSnapshotAt  time.Time `bson:"last_snapshot_at"`

	PermsVersion  int           `bson:"perms_version"`
	RenameHistory []RenameEntry `bson:"rename_history"`
}

// NewRoom builds the initial record for a freshly created platform channel.
func NewRoom(id, guildID, ownerID string, placement Placement, counter int64, name string, now time.Time) *Room {
	now = now.UTC()
	return &Room{
		ID:              id,
		GuildID:         guildID,
		OwnerID:         ownerID,
		CategoryID:      placement.CategoryID,
		Shard:           placement.Shard,
		Counter:         counter,
		Name:            name,
		CreatedAt:       now,
		LastActiveAt:    now,
		Banned:          []string{},
		Permitted:       []string{},
		Members:         []string{},
		OwnerCandidates: []string{},
	}
}

func (r *Room) IsActive() bool {
	return r != nil && r.DeletedAt == nil
}

func (r *Room) IsBanned(memberID string) bool {
	return slices.Contains(r.Banned, memberID)
}

func (r *Room) IsPermitted(memberID string) bool {
	return slices.Contains(r.Permitted, memberID)
}

// Placement is the result of shard selection.
type Placement struct {
	CategoryID string
	Shard      int
}

// DeriveCandidates returns the members eligible to inherit ownership, ordered by
// first observation: ids already in previous keep their order, newly seen
// members follow in the order they appear in present. The owner is never a
// candidate and absent members are dropped.
func DeriveCandidates(previous, present []string, ownerID string) []string {
	out := make([]string, 0, len(present))
	seen := make(map[string]struct{}, len(present))
	live := make(map[string]struct{}, len(present))
	for _, id := range present {
		live[id] = struct{}{}
	}

	add := func(id string) {
		if id == ownerID {
			return
		}
		if _, ok := live[id]; !ok {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range previous {
		add(id)
	}
	for _, id := range present {
		add(id)
	}
	return out
}

func addUnique(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

func remove(list []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(list), func(v string) bool { return v == id })
}

// Permit grants the member explicit access and lifts any ban.
func (r *Room) Permit(memberID string) {
	r.Permitted = addUnique(r.Permitted, memberID)
	r.Banned = remove(r.Banned, memberID)
}

// Ban denies the member access and revokes any explicit permit.
func (r *Room) Ban(memberID string) {
	r.Banned = addUnique(r.Banned, memberID)
	r.Permitted = remove(r.Permitted, memberID)
}

func (r *Room) Unban(memberID string) {
	r.Banned = remove(r.Banned, memberID)
}
