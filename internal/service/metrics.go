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

// MetricsCollector keeps the daily per-guild counters.
type MetricsCollector struct {
	repo repository.MetricsRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewMetricsCollector(repo repository.MetricsRepository, log *slog.Logger) *MetricsCollector {
	if log == nil {
		log = slog.Default()
	}
	return &MetricsCollector{repo: repo, log: log, now: time.Now}
}

func (m *MetricsCollector) IncDaily(ctx context.Context, guildID string, field domain.MetricField, by int64) error {
	const op = "service.metrics.incDaily"

	if !field.Valid() {
		return fmt.Errorf("%s: unknown field %q", op, field)
	}
	if by < 0 {
		return fmt.Errorf("%s: counters only grow, got %d", op, by)
	}
	if by == 0 {
		return nil
	}
	if err := m.repo.Inc(ctx, guildID, domain.DayKey(m.now()), field, by); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *MetricsCollector) UpdatePeakConcurrent(ctx context.Context, guildID string, value int64) error {
	const op = "service.metrics.updatePeakConcurrent"

	if err := m.repo.MaxPeak(ctx, guildID, domain.DayKey(m.now()), value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ExportDaily returns the counters of a day, zeroed when nothing was recorded.
// An empty day means today.
func (m *MetricsCollector) ExportDaily(ctx context.Context, guildID, day string) (*domain.DailyMetrics, error) {
	const op = "service.metrics.exportDaily"

	if day == "" {
		day = domain.DayKey(m.now())
	} else if _, err := time.Parse(time.DateOnly, day); err != nil {
		return nil, fmt.Errorf("%s: %w: day %q", op, domain.ErrInvalidInput, day)
	}

	metrics, err := m.repo.Get(ctx, guildID, day)
	if err != nil {
		if errors.Is(err, repository.ErrMetricsNotFound) {
			return &domain.DailyMetrics{GuildID: guildID, Day: day}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return metrics, nil
}

// record increments a counter and only logs a failure. Metrics never fail the
// operation they describe.
func (m *MetricsCollector) record(ctx context.Context, guildID string, field domain.MetricField) {
	if err := m.IncDaily(ctx, guildID, field, 1); err != nil {
		m.log.Warn("failed to record metric",
			slog.String("guild_id", guildID),
			slog.String("field", string(field)),
			sl.Err(err),
		)
	}
}
