package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

// SweepSlack is added to every scheduled deletion so that a room crossing its
// deadline between two ticks is not deleted early by clock skew.
const SweepSlack = 10 * time.Second

// RecordFailure is a per-record error collected during a pass.
type RecordFailure struct {
	RoomID string
	Err    error
}

func (f RecordFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		RoomID string `json:"room_id"`
		Error  string `json:"error"`
	}{f.RoomID, msg})
}

type IdleSummary struct {
	Checked   int
	Active    int
	Scheduled int
	Deleted   int
	Failures  []RecordFailure
}

type DeletionSummary struct {
	Due       int
	Deleted   int
	Recovered int
	Failures  []RecordFailure
}

type HourlySummary struct {
	Guilds     int
	Checked    int
	Orphans    int
	Reconciled int
	Reassigned int
	Failures   []RecordFailure
}

type StartupSummary struct {
	Logs     []*domain.RestartLog
	Failures []RecordFailure
}

// Reconciler detects and corrects drift between room records and the platform.
type Reconciler struct {
	gateway     platform.Gateway
	rooms       repository.RoomRepository
	restartLogs repository.RestartLogRepository
	settings    *SettingsService
	lifecycle   *LifecycleManager
	ownership   *OwnershipManager
	presence    *PresenceTracker
	metrics     *MetricsCollector
	log         *slog.Logger
	now         func() time.Time
}

func NewReconciler(
	gateway platform.Gateway,
	rooms repository.RoomRepository,
	restartLogs repository.RestartLogRepository,
	settings *SettingsService,
	lifecycle *LifecycleManager,
	ownership *OwnershipManager,
	presence *PresenceTracker,
	metrics *MetricsCollector,
	log *slog.Logger,
) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		gateway:     gateway,
		rooms:       rooms,
		restartLogs: restartLogs,
		settings:    settings,
		lifecycle:   lifecycle,
		ownership:   ownership,
		presence:    presence,
		metrics:     metrics,
		log:         log,
		now:         time.Now,
	}
}

// DeletionDeadline is when an empty room is due for deletion.
func DeletionDeadline(lastActiveAt time.Time, settings *domain.GuildSettings) time.Time {
	return lastActiveAt.Add(settings.IdleTimeout + settings.GracePeriod + SweepSlack).UTC()
}

// RunIdleChecks schedules deletion of rooms that have been empty for longer
// than the idle timeout and clears the schedule of rooms that filled up again.
func (r *Reconciler) RunIdleChecks(ctx context.Context) (*IdleSummary, error) {
	const op = "service.reconciler.runIdleChecks"

	rooms, err := r.rooms.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &IdleSummary{}
	settingsByGuild := make(map[string]*domain.GuildSettings)
	for _, room := range rooms {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Checked++

		settings, ok := settingsByGuild[room.GuildID]
		if !ok {
			settings, err = r.settings.Get(ctx, room.GuildID)
			if err != nil {
				summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
				continue
			}
			settingsByGuild[room.GuildID] = settings
		}

		members, err := r.presence.Snapshot(ctx, room, true)
		if err != nil {
			summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
			continue
		}
		if len(members) > 0 {
			summary.Active++
			continue
		}

		now := r.now()
		if now.Sub(room.LastActiveAt) < settings.IdleTimeout {
			continue
		}
		if settings.GracePeriod == 0 {
			if err := r.lifecycle.DeleteTempVC(ctx, room.ID, "idle"); err != nil {
				summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
				continue
			}
			summary.Deleted++
			continue
		}
		if room.ScheduledDeletionAt != nil {
			continue
		}
		written, err := r.rooms.SetScheduledDeletion(ctx, room.ID, DeletionDeadline(room.LastActiveAt, settings))
		if err != nil {
			summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
			continue
		}
		if written {
			summary.Scheduled++
		}
	}

	r.logFailures(op, summary.Failures)
	return summary, nil
}

// ProcessScheduledDeletions deletes every room whose deadline has passed,
// unless somebody joined in the meantime.
func (r *Reconciler) ProcessScheduledDeletions(ctx context.Context) (*DeletionSummary, error) {
	const op = "service.reconciler.processScheduledDeletions"

	due, err := r.rooms.ListDue(ctx, r.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &DeletionSummary{Due: len(due)}
	for _, room := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		members, err := r.presence.Snapshot(ctx, room, true)
		if err != nil && !platform.IsNotFound(err) {
			summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
			continue
		}
		if len(members) > 0 {
			summary.Recovered++
			continue
		}

		if err := r.lifecycle.DeleteTempVC(ctx, room.ID, "scheduled"); err != nil {
			summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
			continue
		}
		summary.Deleted++
	}

	r.logFailures(op, summary.Failures)
	return summary, nil
}

// RunHourlyIntegrityScan drops records whose room vanished from the platform
// and reapplies permissions and ownership for the rest.
func (r *Reconciler) RunHourlyIntegrityScan(ctx context.Context) (*HourlySummary, error) {
	const op = "service.reconciler.runHourlyIntegrityScan"

	rooms, err := r.rooms.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &HourlySummary{}
	for _, guildID := range guildsOf(rooms) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Guilds++
		guildRooms := roomsOf(rooms, guildID)

		channels, err := r.gateway.GuildChannels(ctx, guildID)
		if err != nil {
			perr := &domain.PlatformError{Op: "guild channels", Err: err}
			for _, room := range guildRooms {
				summary.Failures = append(summary.Failures, RecordFailure{room.ID, perr})
			}
			continue
		}
		live := make(map[string]struct{}, len(channels))
		for _, ch := range channels {
			if ch.Kind == platform.ChannelVoice {
				live[ch.ID] = struct{}{}
			}
		}

		for _, room := range guildRooms {
			summary.Checked++
			if _, ok := live[room.ID]; !ok {
				if err := r.rooms.SoftDelete(ctx, room.ID, r.now()); err != nil {
					if !errors.Is(err, repository.ErrRoomNotFound) {
						summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
					}
					continue
				}
				r.presence.Invalidate(ctx, room.ID)
				r.metrics.record(ctx, guildID, domain.MetricCleanedOrphans)
				summary.Orphans++
				continue
			}

			if _, err := r.presence.Snapshot(ctx, room, true); err != nil {
				summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
				continue
			}
			if err := r.lifecycle.ReconcilePermissions(ctx, guildID, room.ID); err != nil {
				summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
				continue
			}
			summary.Reconciled++

			owner, err := r.ownership.HandleOwnerLeft(ctx, room.ID)
			if err != nil {
				summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
				continue
			}
			if owner != "" {
				summary.Reassigned++
			}
		}
	}

	r.logFailures(op, summary.Failures)
	return summary, nil
}

// IntegrityStartupScan sweeps every record, soft-deleted ones included, after
// a restart and writes one restart log per guild.
func (r *Reconciler) IntegrityStartupScan(ctx context.Context) (*StartupSummary, error) {
	const op = "service.reconciler.integrityStartupScan"

	rooms, err := r.rooms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &StartupSummary{}
	for _, guildID := range guildsOf(rooms) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		entry := &domain.RestartLog{
			ID:        uuid.NewString(),
			GuildID:   guildID,
			StartedAt: r.now().UTC(),
		}
		for _, room := range roomsOf(rooms, guildID) {
			if err := r.startupCheck(ctx, room, entry); err != nil {
				entry.Inconsistencies++
				summary.Failures = append(summary.Failures, RecordFailure{room.ID, err})
			}
		}
		entry.FinishedAt = r.now().UTC()

		if err := r.restartLogs.Create(ctx, entry); err != nil {
			r.log.Error("failed to write restart log",
				slog.String("op", op),
				slog.String("guild_id", guildID),
				sl.Err(err),
			)
		}
		summary.Logs = append(summary.Logs, entry)

		r.log.Info("startup scan finished",
			slog.String("op", op),
			slog.String("guild_id", guildID),
			slog.Int("recovered", entry.Recovered),
			slog.Int("cleaned", entry.Cleaned),
			slog.Int("reassigned", entry.Reassigned),
			slog.Int("deleted", entry.Deleted),
			slog.Int("inconsistencies", entry.Inconsistencies),
		)
	}

	r.logFailures(op, summary.Failures)
	return summary, nil
}

const (
	DefaultRestartLogLimit = 20
	maxRestartLogLimit     = 100
)

// RestartLogs returns the newest startup sweep logs of a guild. A limit of 0
// means DefaultRestartLogLimit.
func (r *Reconciler) RestartLogs(ctx context.Context, guildID string, limit int) ([]*domain.RestartLog, error) {
	const op = "service.reconciler.restartLogs"

	if limit == 0 {
		limit = DefaultRestartLogLimit
	}
	if limit < 0 || limit > maxRestartLogLimit {
		return nil, fmt.Errorf("%s: %w: limit must be within 1..%d", op, domain.ErrInvalidInput, maxRestartLogLimit)
	}
	logs, err := r.restartLogs.ListByGuild(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return logs, nil
}

func (r *Reconciler) startupCheck(ctx context.Context, room *domain.Room, entry *domain.RestartLog) error {
	if _, err := r.gateway.Channel(ctx, room.ID); err != nil {
		if !platform.IsNotFound(err) {
			return &domain.PlatformError{Op: "channel", Err: err}
		}
		if err := r.rooms.HardDelete(ctx, room.ID); err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
			return err
		}
		r.presence.Invalidate(ctx, room.ID)
		entry.Cleaned++
		return nil
	}

	members, err := r.gateway.VoiceMembers(ctx, room.GuildID, room.ID)
	if err != nil {
		return &domain.PlatformError{Op: "voice members", Err: err}
	}
	selfID := r.gateway.SelfID()
	members = slices.DeleteFunc(members, func(id string) bool { return id == selfID })

	if len(members) == 0 {
		if err := r.deleteWithGrant(ctx, room.ID); err != nil {
			return err
		}
		if err := r.rooms.HardDelete(ctx, room.ID); err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
			return err
		}
		r.presence.Invalidate(ctx, room.ID)
		if room.IsActive() {
			r.metrics.record(ctx, room.GuildID, domain.MetricDeleted)
		}
		entry.Deleted++
		return nil
	}

	now := r.now().UTC()
	room.DeletedAt = nil
	room.ScheduledDeletionAt = nil
	room.LastActiveAt = now
	room.LastSnapshotAt = now
	room.Members = members
	room.OwnerCandidates = domain.DeriveCandidates(room.OwnerCandidates, members, room.OwnerID)
	if err := r.rooms.Update(ctx, room); err != nil {
		return err
	}
	r.presence.Invalidate(ctx, room.ID)
	r.metrics.record(ctx, room.GuildID, domain.MetricRecovered)
	entry.Recovered++

	owner, err := r.ownership.HandleOwnerLeft(ctx, room.ID)
	if err != nil {
		return err
	}
	if owner != "" {
		entry.Reassigned++
	}
	return nil
}

// deleteWithGrant deletes a platform room, retrying once after granting the
// bot admin permissions on it.
func (r *Reconciler) deleteWithGrant(ctx context.Context, roomID string) error {
	err := r.gateway.DeleteChannel(ctx, roomID)
	if err == nil || platform.IsNotFound(err) {
		return nil
	}

	r.log.Debug("room delete failed, retrying with self grant", slog.String("room_id", roomID), sl.Err(err))
	if gerr := r.gateway.GrantSelf(ctx, roomID, domain.AdminPermissions); gerr != nil {
		return &domain.PlatformError{Op: "grant self", Err: errors.Join(err, gerr)}
	}
	if err := r.gateway.DeleteChannel(ctx, roomID); err != nil && !platform.IsNotFound(err) {
		return &domain.PlatformError{Op: "delete channel", Err: err}
	}
	return nil
}

func (r *Reconciler) logFailures(op string, failures []RecordFailure) {
	for _, f := range failures {
		r.log.Warn("record skipped",
			slog.String("op", op),
			slog.String("room_id", f.RoomID),
			sl.Err(f.Err),
		)
	}
}

func guildsOf(rooms []*domain.Room) []string {
	out := make([]string, 0)
	for _, room := range rooms {
		if !slices.Contains(out, room.GuildID) {
			out = append(out, room.GuildID)
		}
	}
	slices.Sort(out)
	return out
}

func roomsOf(rooms []*domain.Room, guildID string) []*domain.Room {
	out := make([]*domain.Room, 0)
	for _, room := range rooms {
		if room.GuildID == guildID {
			out = append(out, room)
		}
	}
	return out
}
