package domain

import "time"

type MetricField string

const (
	MetricCreated        MetricField = "created"
	MetricDeleted        MetricField = "deleted"
	MetricRecovered      MetricField = "recovered"
	MetricReassigned     MetricField = "reassigned"
	MetricCleanedOrphans MetricField = "cleaned_orphans"
)

func (f MetricField) Valid() bool {
	switch f {
	case MetricCreated, MetricDeleted, MetricRecovered, MetricReassigned, MetricCleanedOrphans:
		return true
	}
	return false
}

// DailyMetrics holds the counters of one guild for one UTC day.
type DailyMetrics struct {
	GuildID        string `bson:"guild_id" json:"guild_id"`
	Day            string `bson:"day" json:"day"`
	Created        int64  `bson:"created" json:"created"`
	Deleted        int64  `bson:"deleted" json:"deleted"`
	Recovered      int64  `bson:"recovered" json:"recovered"`
	Reassigned     int64  `bson:"reassigned" json:"reassigned"`
	CleanedOrphans int64  `bson:"cleaned_orphans" json:"cleaned_orphans"`
	PeakConcurrent int64  `bson:"peak_concurrent" json:"peak_concurrent"`
}

// DayKey formats t as the UTC day used to key daily metrics.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func (m *DailyMetrics) Add(field MetricField, by int64) {
	switch field {
	case MetricCreated:
		m.Created += by
	case MetricDeleted:
		m.Deleted += by
	case MetricRecovered:
		m.Recovered += by
	case MetricReassigned:
		m.Reassigned += by
	case MetricCleanedOrphans:
		m.CleanedOrphans += by
	}
}

// RestartLog summarises the startup sweep of one guild.
type RestartLog struct {
	ID              string    `bson:"_id" json:"id"`
	GuildID         string    `bson:"guild_id" json:"guild_id"`
	StartedAt       time.Time `bson:"started_at" json:"started_at"`
	FinishedAt      time.Time `bson:"finished_at" json:"finished_at"`
	Recovered       int       `bson:"recovered" json:"recovered"`
	Cleaned         int       `bson:"cleaned" json:"cleaned"`
	Reassigned      int       `bson:"reassigned" json:"reassigned"`
	Deleted         int       `bson:"deleted" json:"deleted"`
	Inconsistencies int       `bson:"inconsistencies" json:"inconsistencies"`
}
