package service

import (
	"context"

	"TriRecover/internal/domain/models"
)

// Assessor scores one entry against its history. It must be pure: same
// inputs, same output, no I/O.
type Assessor interface {
	Assess(entry models.DailyEntry, history []models.DailyEntry, settings models.AppSettings, refDate string) models.DayAssessment
}

// CloudSync pulls and pushes entries to the hosted copy of the journal.
type CloudSync interface {
	Pull(ctx context.Context) ([]models.DailyEntry, error)
	Push(ctx context.Context, entries []models.DailyEntry) error
	Enabled() bool
}
