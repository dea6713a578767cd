package repository

import (
	"context"
	"errors"

	"TriRecover/internal/domain/models"
)

// ErrNotFound is returned when no entry exists for a date.
var ErrNotFound = errors.New("not found")

// EntryStore keeps one DailyEntry per date. Upsert replaces any entry on the same date.
type EntryStore interface {
	Init(ctx context.Context) error // migrations, health checks
	Upsert(ctx context.Context, e models.DailyEntry) error
	UpsertBatch(ctx context.Context, entries []models.DailyEntry) error
	Get(ctx context.Context, date string) (models.DailyEntry, error)
	List(ctx context.Context) ([]models.DailyEntry, error) // ascending by date
	Range(ctx context.Context, from, to string) ([]models.DailyEntry, error)
	Delete(ctx context.Context, date string) error
	Health(ctx context.Context) error
	Close() error
}

type SettingsStore interface {
	Get(ctx context.Context) (models.AppSettings, error)
	Save(ctx context.Context, s models.AppSettings) error
}

// Publisher fans assessment summaries out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev models.AssessmentEvent) error
	PublishBatch(ctx context.Context, evs []models.AssessmentEvent) error
	Close() error
}

// AssessmentArchive stores published summaries for trend queries.
type AssessmentArchive interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, evs []models.AssessmentEvent) error
	Query(ctx context.Context, from, to string, limit int) ([]models.AssessmentEvent, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordAssessment(rec models.RecColor, confidence float64)
	RecordCrashStatus(status models.CrashStatus)
	RecordEntriesUpserted(backend string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
