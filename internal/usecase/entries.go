package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"TriRecover/internal/domain/models"
	domrepo "TriRecover/internal/domain/repository"
	"TriRecover/internal/services/exchange"
	"TriRecover/pkg/logger"
)

// ImportResult reports a bulk import.
type ImportResult struct {
	Imported int                 `json:"imported"`
	Skipped  []exchange.RowError `json:"skipped,omitempty"`
	Queued   bool                `json:"queued"`
}

// EntryService owns writes to the journal. Every write drops cached
// assessments and republishes the affected days.
type EntryService struct {
	store       domrepo.EntryStore
	assessments *AssessmentService
	metrics     domrepo.Metrics
	backend     string
	log         *logger.Logger
}

func NewEntryService(store domrepo.EntryStore, assessments *AssessmentService, metrics domrepo.Metrics, backend string, log *logger.Logger) *EntryService {
	return &EntryService{store: store, assessments: assessments, metrics: metrics, backend: backend, log: log}
}

// Normalize applies the write-time rules: an unspecified morning flag
// defaults to "the entry is for today", a morning entry never carries
// steps, and resistance is Y or N.
func Normalize(req *models.EntryRequest, refDate string) models.DailyEntry {
	e := req.ToEntry()
	if req.MorningEntry == nil {
		e.MorningEntry = e.Date == refDate
	}
	return normalizeEntry(e)
}

func normalizeEntry(e models.DailyEntry) models.DailyEntry {
	if e.MorningEntry {
		e.Steps = nil
	}
	if strings.EqualFold(strings.TrimSpace(e.Resistance), "Y") {
		e.Resistance = "Y"
	} else {
		e.Resistance = "N"
	}
	if !e.OuraHrvStatus.Valid() {
		e.OuraHrvStatus = ""
	}
	return e
}

func (s *EntryService) Get(ctx context.Context, date string) (models.DailyEntry, error) {
	return s.store.Get(ctx, date)
}

// List returns entries ascending; empty bounds are open.
func (s *EntryService) List(ctx context.Context, from, to string) ([]models.DailyEntry, error) {
	if from == "" && to == "" {
		return s.store.List(ctx)
	}
	if from != "" && to != "" && to < from {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	return s.store.Range(ctx, from, to)
}

// Upsert stores the entry for req.Date, replacing any previous one.
func (s *EntryService) Upsert(ctx context.Context, req *models.EntryRequest) (models.DailyEntry, error) {
	start := time.Now()
	e := Normalize(req, s.assessments.RefDate())

	if err := s.store.Upsert(ctx, e); err != nil {
		s.metrics.RecordError("upsert")
		return models.DailyEntry{}, fmt.Errorf("upsert %s: %w", e.Date, err)
	}
	s.metrics.RecordEntriesUpserted(s.backend, 1)
	s.metrics.RecordLatency("upsert", time.Since(start).Seconds())

	s.assessments.Invalidate(ctx)
	if err := s.assessments.Publish(ctx, e.Date); err != nil {
		// the write already succeeded; a missed event is recoverable
		s.log.Warn("publish after upsert failed", logger.String("date", e.Date), logger.Error(err))
	}
	return e, nil
}

func (s *EntryService) Delete(ctx context.Context, date string) error {
	if err := s.store.Delete(ctx, date); err != nil {
		return fmt.Errorf("delete %s: %w", date, err)
	}
	s.assessments.Invalidate(ctx)
	return nil
}

// Import decodes r and merges it by date; imported rows win. Malformed rows
// are skipped and reported. Assessments for the imported days are
// recomputed in the background when a queue is configured.
func (s *EntryService) Import(ctx context.Context, format exchange.Format, r io.Reader) (ImportResult, error) {
	res, err := exchange.Decode(format, r)
	if err != nil {
		return ImportResult{}, err
	}
	out := ImportResult{Skipped: res.Skipped}
	if len(res.Entries) == 0 {
		return out, nil
	}

	entries := make([]models.DailyEntry, len(res.Entries))
	dates := make([]string, len(res.Entries))
	for i, e := range res.Entries {
		entries[i] = normalizeEntry(e)
		dates[i] = e.Date
	}
	if err := s.store.UpsertBatch(ctx, entries); err != nil {
		s.metrics.RecordError("import")
		return ImportResult{}, fmt.Errorf("import %d entries: %w", len(entries), err)
	}
	s.metrics.RecordEntriesUpserted(s.backend, len(entries))
	out.Imported = len(entries)

	s.assessments.Invalidate(ctx)
	queued, err := s.assessments.Recompute(ctx, dates)
	if err != nil {
		s.log.Warn("recompute after import failed", logger.Int("entries", len(entries)), logger.Error(err))
	}
	out.Queued = queued

	s.log.Info("entries imported",
		logger.Int("imported", out.Imported),
		logger.Int("skipped", len(out.Skipped)),
		logger.Bool("queued", queued),
	)
	return out, nil
}

// Export writes the whole journal in format.
func (s *EntryService) Export(ctx context.Context, format exchange.Format, w io.Writer) error {
	entries, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	return exchange.Encode(format, w, entries)
}

// Health checks the entry store.
func (s *EntryService) Health(ctx context.Context) error { return s.store.Health(ctx) }
