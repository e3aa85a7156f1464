package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/service"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

const eventTimeout = 30 * time.Second

type settingsGetter interface {
	Get(ctx context.Context, guildID string) (*domain.GuildSettings, error)
}

type presenceObserver interface {
	Observe(ctx context.Context, roomID string) ([]string, error)
}

// Host turns voice events into room engine calls.
type Host struct {
	gateway   platform.Gateway
	settings  settingsGetter
	rooms     service.RoomInteractor
	ownership service.OwnershipInteractor
	presence  presenceObserver
	log       *slog.Logger

	unsubscribe func()
}

func New(
	gateway platform.Gateway,
	settings settingsGetter,
	rooms service.RoomInteractor,
	ownership service.OwnershipInteractor,
	presence presenceObserver,
	log *slog.Logger,
) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{
		gateway:   gateway,
		settings:  settings,
		rooms:     rooms,
		ownership: ownership,
		presence:  presence,
		log:       log,
	}
}

// Start subscribes to voice events. Each event is handled with its own
// timeout derived from ctx.
func (h *Host) Start(ctx context.Context) {
	h.unsubscribe = h.gateway.Subscribe(func(ev platform.VoiceEvent) {
		if ctx.Err() != nil {
			return
		}
		evCtx, cancel := context.WithTimeout(ctx, eventTimeout)
		defer cancel()
		h.Handle(evCtx, ev)
	})
}

func (h *Host) Stop() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
}

// Handle processes a single voice event. Failures are logged, never returned,
// since nothing upstream can retry a gateway event.
func (h *Host) Handle(ctx context.Context, ev platform.VoiceEvent) {
	const op = "bot.handle"

	log := h.log.With(
		slog.String("op", op),
		slog.String("guild_id", ev.GuildID),
		slog.String("member_id", ev.MemberID),
	)
	if ev.MemberID == h.gateway.SelfID() {
		return
	}

	if ev.FromChannelID != "" {
		h.left(ctx, log, ev.FromChannelID)
	}
	if ev.ToChannelID == "" {
		return
	}

	settings, err := h.settings.Get(ctx, ev.GuildID)
	if err != nil {
		log.Warn("settings unavailable", sl.Err(err))
		return
	}
	if settings.Enabled && settings.IsTrigger(ev.ToChannelID) {
		h.create(ctx, log, ev)
		return
	}
	h.joined(ctx, log, ev.ToChannelID)
}

func (h *Host) create(ctx context.Context, log *slog.Logger, ev platform.VoiceEvent) {
	room, err := h.rooms.CreateTempVC(ctx, ev.GuildID, ev.MemberID)
	if err != nil {
		var cd *domain.CooldownError
		switch {
		case errors.As(err, &cd):
			log.Info("room creation on cooldown", slog.Duration("remaining", cd.Remaining))
		case errors.Is(err, domain.ErrGuildLimit),
			errors.Is(err, domain.ErrUserLimit),
			errors.Is(err, domain.ErrMissingCreatorRole),
			errors.Is(err, domain.ErrCapacity),
			errors.Is(err, domain.ErrDisabled):
			log.Info("room creation refused", sl.Err(err))
		default:
			log.Error("room creation failed", sl.Err(err))
		}
		return
	}

	if err := h.gateway.MoveMember(ctx, ev.GuildID, ev.MemberID, room.ID); err != nil {
		log.Warn("failed to move creator into room", slog.String("room_id", room.ID), sl.Err(err))
	}
}

func (h *Host) joined(ctx context.Context, log *slog.Logger, channelID string) {
	managed, err := h.rooms.IsManaged(ctx, channelID)
	if err != nil {
		log.Warn("managed lookup failed", slog.String("room_id", channelID), sl.Err(err))
		return
	}
	if !managed {
		return
	}
	if _, err := h.presence.Observe(ctx, channelID); err != nil {
		log.Warn("presence snapshot failed", slog.String("room_id", channelID), sl.Err(err))
	}
}

func (h *Host) left(ctx context.Context, log *slog.Logger, channelID string) {
	managed, err := h.rooms.IsManaged(ctx, channelID)
	if err != nil {
		log.Warn("managed lookup failed", slog.String("room_id", channelID), sl.Err(err))
		return
	}
	if !managed {
		return
	}
	// HandleOwnerLeft records a fresh snapshot whether or not ownership moves
	owner, err := h.ownership.HandleOwnerLeft(ctx, channelID)
	if err != nil {
		log.Warn("owner handoff failed", slog.String("room_id", channelID), sl.Err(err))
		return
	}
	if owner != "" {
		log.Info("ownership handed over", slog.String("room_id", channelID), slog.String("owner_id", owner))
	}
}
