package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/immxrtalbeast/tempvoice/internal/domain"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

// SettingsService resolves guild settings, falling back to defaults for
// guilds that never stored any.
type SettingsService struct {
	repo     repository.SettingsRepository
	defaults func(guildID string) *domain.GuildSettings
	log      *slog.Logger
	now      func() time.Time
}

func NewSettingsService(repo repository.SettingsRepository, defaults func(guildID string) *domain.GuildSettings, log *slog.Logger) *SettingsService {
	if defaults == nil {
		defaults = domain.DefaultSettings
	}
	if log == nil {
		log = slog.Default()
	}
	return &SettingsService{repo: repo, defaults: defaults, log: log, now: time.Now}
}

// Get returns the stored settings or the defaults. Store failures are
// reported as domain.ErrStoreUnavailable.
func (s *SettingsService) Get(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	const op = "service.settings.get"

	settings, err := s.repo.Get(ctx, guildID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return s.defaults(guildID), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn("settings store unavailable",
			slog.String("op", op),
			slog.String("guild_id", guildID),
			sl.Err(err),
		)
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
	return settings, nil
}

// Update validates and stores settings. A changed template set bumps the
// template version.
func (s *SettingsService) Update(ctx context.Context, settings *domain.GuildSettings) (*domain.GuildSettings, error) {
	const op = "service.settings.update"

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, settings.GuildID)
	if err != nil {
		return nil, err
	}
	if settings.TemplateVersion <= current.TemplateVersion {
		settings.TemplateVersion = current.TemplateVersion
		if templatesChanged(current, settings) {
			settings.TemplateVersion++
		}
	}
	settings.UpdatedAt = s.now().UTC()

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
	return settings, nil
}

func templatesChanged(a, b *domain.GuildSettings) bool {
	if a.DefaultTemplate != b.DefaultTemplate || len(a.RoleTemplates) != len(b.RoleTemplates) {
		return true
	}
	for i := range a.RoleTemplates {
		x, y := a.RoleTemplates[i], b.RoleTemplates[i]
		if x.RoleID != y.RoleID || len(x.Overwrites) != len(y.Overwrites) {
			return true
		}
		for k, v := range x.Overwrites {
			if w, ok := y.Overwrites[k]; !ok || w != v {
				return true
			}
		}
	}
	return false
}
