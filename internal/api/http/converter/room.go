package converter

import (
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

type RoomResponse struct {
	ID                  string               `json:"id"`
	GuildID             string               `json:"guild_id"`
	OwnerID             string               `json:"owner_id"`
	Name                string               `json:"name"`
	CategoryID          string               `json:"category_id,omitempty"`
	Shard               int                  `json:"shard"`
	Counter             int64                `json:"counter"`
	CreatedAt           time.Time            `json:"created_at"`
	LastActiveAt        time.Time            `json:"last_active_at"`
	ScheduledDeletionAt *time.Time           `json:"scheduled_deletion_at,omitempty"`
	DeletedAt           *time.Time           `json:"deleted_at,omitempty"`
	Locked              bool                 `json:"locked"`
	UserLimit           *int                 `json:"user_limit,omitempty"`
	Banned              []string             `json:"banned"`
	Permitted           []string             `json:"permitted"`
	Members             []string             `json:"members"`
	OwnerCandidates     []string             `json:"owner_candidates"`
	LastSnapshotAt      time.Time            `json:"last_snapshot_at"`
	PermsVersion        int                  `json:"perms_version"`
	RenameHistory       []domain.RenameEntry `json:"rename_history"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	orEmpty := func(v []string) []string {
		if v == nil {
			return []string{}
		}
		return v
	}
	history := r.RenameHistory
	if history == nil {
		history = []domain.RenameEntry{}
	}

	return &RoomResponse{
		ID:                  r.ID,
		GuildID:             r.GuildID,
		OwnerID:             r.OwnerID,
		Name:                r.Name,
		CategoryID:          r.CategoryID,
		Shard:               r.Shard,
		Counter:             r.Counter,
		CreatedAt:           r.CreatedAt,
		LastActiveAt:        r.LastActiveAt,
		ScheduledDeletionAt: r.ScheduledDeletionAt,
		DeletedAt:           r.DeletedAt,
		Locked:              r.Locked,
		UserLimit:           r.UserLimit,
		Banned:              orEmpty(r.Banned),
		Permitted:           orEmpty(r.Permitted),
		Members:             orEmpty(r.Members),
		OwnerCandidates:     orEmpty(r.OwnerCandidates),
		LastSnapshotAt:      r.LastSnapshotAt,
		PermsVersion:        r.PermsVersion,
		RenameHistory:       history,
	}
}

func RoomsToApi(rooms []*domain.Room) []*RoomResponse {
	out := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomToApi(r))
	}
	return out
}
