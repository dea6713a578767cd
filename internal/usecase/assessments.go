package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"TriRecover/internal/domain/models"
	domrepo "TriRecover/internal/domain/repository"
	domsvc "TriRecover/internal/domain/service"
	"TriRecover/internal/services/bundle"
	"TriRecover/pkg/cache"
	"TriRecover/pkg/logger"
	"TriRecover/pkg/queue"
	"TriRecover/pkg/util"
)

const assessmentKeyPrefix = "assessment"

var (
	// ErrNoEntries is returned when the journal is empty.
	ErrNoEntries = errors.New("no entries yet")
	// ErrInvalidRange wraps bad timeline bounds.
	ErrInvalidRange = errors.New("invalid date range")
)

// Notifier receives every published assessment event.
type Notifier interface {
	Broadcast(ev models.AssessmentEvent)
}

type NopNotifier struct{}

func (NopNotifier) Broadcast(models.AssessmentEvent) {}

// AssessmentConfig tunes AssessmentService.
type AssessmentConfig struct {
	Location        *time.Location
	CacheTTL        time.Duration
	TimelineMaxDays int
	TimelineWorkers int
}

// AssessmentService runs the engine over stored entries. Results are cached
// per (mode, baseline, reference date, date) and dropped on every write.
type AssessmentService struct {
	store    domrepo.EntryStore
	settings domrepo.SettingsStore
	assessor domsvc.Assessor
	cache    cache.Service
	pub      domrepo.Publisher
	notifier Notifier
	backfill queue.Publisher
	metrics  domrepo.Metrics
	log      *logger.Logger
	cfg      AssessmentConfig

	now   func() time.Time
	newID func() string
}

// NewAssessmentService creates the service. backfill may be nil, in which
// case Recompute publishes inline.
func NewAssessmentService(
	store domrepo.EntryStore,
	settings domrepo.SettingsStore,
	assessor domsvc.Assessor,
	c cache.Service,
	pub domrepo.Publisher,
	notifier Notifier,
	backfill queue.Publisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	cfg AssessmentConfig,
) *AssessmentService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TimelineWorkers <= 0 {
		cfg.TimelineWorkers = 4
	}
	if cfg.TimelineMaxDays <= 0 {
		cfg.TimelineMaxDays = 366
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AssessmentService{
		store:    store,
		settings: settings,
		assessor: assessor,
		cache:    c,
		pub:      pub,
		notifier: notifier,
		backfill: backfill,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// RefDate is today in the configured timezone.
func (s *AssessmentService) RefDate() string { return util.Today(s.now(), s.cfg.Location) }

// Assess returns the assessment for date, or for the latest entry when date
// is empty.
func (s *AssessmentService) Assess(ctx context.Context, date string) (models.DayAssessment, error) {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("assess", time.Since(start).Seconds()) }()

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.DayAssessment{}, err
	}
	ref := s.RefDate()

	var history []models.DailyEntry
	if date == "" {
		if history, err = s.store.List(ctx); err != nil {
			return models.DayAssessment{}, fmt.Errorf("list entries: %w", err)
		}
		if len(history) == 0 {
			return models.DayAssessment{}, ErrNoEntries
		}
		date = history[len(history)-1].Date
	}

	key := cache.Key(assessmentKeyPrefix, settings.Mode, settings.BaselineDays, ref, date)
	var cached models.DayAssessment
	switch err := s.cache.Get(ctx, key, &cached); {
	case err == nil:
		return cached, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.log.Warn("assessment cache read failed", logger.String("key", key), logger.Error(err))
	}

	if history == nil {
		if history, err = s.store.List(ctx); err != nil {
			return models.DayAssessment{}, fmt.Errorf("list entries: %w", err)
		}
	}
	idx := models.IndexOf(history, date)
	if idx < 0 {
		return models.DayAssessment{}, fmt.Errorf("entry %s: %w", date, domrepo.ErrNotFound)
	}

	a := s.assessor.Assess(history[idx], history, settings, ref)
	if err := s.cache.Set(ctx, key, a, s.cfg.CacheTTL); err != nil {
		s.log.Warn("assessment cache write failed", logger.String("key", key), logger.Error(err))
	}
	return a, nil
}

// Timeline assesses every stored day in [from, to]. Days are computed
// concurrently and returned in date order; dates without an entry are skipped.
func (s *AssessmentService) Timeline(ctx context.Context, from, to string) ([]models.DayAssessment, error) {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("timeline", time.Since(start).Seconds()) }()

	dates, err := util.DateRange(from, to, s.cfg.TimelineMaxDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	ref := s.RefDate()

	results := make([]*models.DayAssessment, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.TimelineWorkers)
	for i, d := range dates {
		idx := models.IndexOf(history, d)
		if idx < 0 {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		entry := history[idx]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a := s.assessor.Assess(entry, history, settings, ref)
			results[i] = &a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.DayAssessment, 0, len(results))
	for _, a := range results {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

// Bundle renders the plain-text analysis bundle for date (latest when empty
// or missing).
func (s *AssessmentService) Bundle(ctx context.Context, date string) (string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	history, err := s.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list entries: %w", err)
	}
	return bundle.Render(history, settings, date, s.RefDate()), nil
}

// Publish recomputes the given dates and sends their summaries to the
// publisher and the live feed. Dates without an entry are ignored.
func (s *AssessmentService) Publish(ctx context.Context, dates ...string) error {
	if len(dates) == 0 {
		return nil
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	history, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	ref := s.RefDate()

	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)

	evs := make([]models.AssessmentEvent, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, d := range sorted {
		idx := models.IndexOf(history, d)
		if idx < 0 || seen[d] {
			continue
		}
		seen[d] = true
		a := s.assessor.Assess(history[idx], history, settings, ref)
		ev := a.Summarize(s.newID(), s.now().UTC())
		s.metrics.RecordAssessment(ev.Rec, ev.Confidence)
		if idx == len(history)-1 {
			s.metrics.RecordCrashStatus(ev.CrashStatus)
		}
		evs = append(evs, ev)
	}
	if len(evs) == 0 {
		return nil
	}

	for _, ev := range evs {
		s.notifier.Broadcast(ev)
	}
	if err := s.pub.PublishBatch(ctx, evs); err != nil {
		s.metrics.RecordError("publish")
		return fmt.Errorf("publish %d assessments: %w", len(evs), err)
	}
	return nil
}

// Recompute hands dates to the backfill queue, or publishes them inline when
// no queue is configured.
func (s *AssessmentService) Recompute(ctx context.Context, dates []string) (queued bool, err error) {
	if len(dates) == 0 {
		return false, nil
	}
	if s.backfill == nil {
		return false, s.Publish(ctx, dates...)
	}
	if err := s.backfill.PublishMessage(ctx, BackfillJobType, BackfillPayload{Dates: dates}); err != nil {
		s.log.Warn("backfill enqueue failed, publishing inline", logger.Int("dates", len(dates)), logger.Error(err))
		return false, s.Publish(ctx, dates...)
	}
	return true, nil
}

// Invalidate drops every cached assessment.
func (s *AssessmentService) Invalidate(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, assessmentKeyPrefix+":*"); err != nil {
		s.metrics.RecordError("cache_invalidate")
		s.log.Warn("assessment cache invalidation failed", logger.Error(err))
	}
}
