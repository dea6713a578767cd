package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TriRecover/internal/domain/models"
	domrepo "TriRecover/internal/domain/repository"
	domsvc "TriRecover/internal/domain/service"
	"TriRecover/pkg/logger"
)

// ErrSyncDisabled is returned when cloud sync has no credentials.
var ErrSyncDisabled = errors.New("cloud sync is not configured")

// SyncResult reports one sync run.
type SyncResult struct {
	Direction string `json:"direction"`
	Entries   int    `json:"entries"`
	Total     int    `json:"total"`
	Queued    bool   `json:"queued"`
}

// SyncService moves the journal to and from the hosted copy. On pull the
// cloud wins every date collision.
type SyncService struct {
	cloud       domsvc.CloudSync
	store       domrepo.EntryStore
	assessments *AssessmentService
	metrics     domrepo.Metrics
	backend     string
	log         *logger.Logger
}

func NewSyncService(cloud domsvc.CloudSync, store domrepo.EntryStore, assessments *AssessmentService, metrics domrepo.Metrics, backend string, log *logger.Logger) *SyncService {
	return &SyncService{cloud: cloud, store: store, assessments: assessments, metrics: metrics, backend: backend, log: log}
}

func (s *SyncService) Enabled() bool { return s.cloud != nil && s.cloud.Enabled() }

// Pull fetches the cloud rows and overlays them on the local journal.
func (s *SyncService) Pull(ctx context.Context) (SyncResult, error) {
	if !s.Enabled() {
		return SyncResult{}, ErrSyncDisabled
	}
	start := time.Now()
	defer func() { s.metrics.RecordLatency("sync_pull", time.Since(start).Seconds()) }()

	remote, err := s.cloud.Pull(ctx)
	if err != nil {
		s.metrics.RecordError("sync_pull")
		return SyncResult{}, fmt.Errorf("cloud pull: %w", err)
	}
	local, err := s.store.List(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list entries: %w", err)
	}
	merged := models.MergeEntries(local, remote)

	res := SyncResult{Direction: "pull", Entries: len(remote), Total: len(merged)}
	if len(remote) == 0 {
		return res, nil
	}

	normalized := make([]models.DailyEntry, len(remote))
	dates := make([]string, len(remote))
	for i, e := range remote {
		normalized[i] = normalizeEntry(e)
		dates[i] = e.Date
	}
	if err := s.store.UpsertBatch(ctx, normalized); err != nil {
		s.metrics.RecordError("sync_store")
		return SyncResult{}, fmt.Errorf("store pulled entries: %w", err)
	}
	s.metrics.RecordEntriesUpserted(s.backend, len(normalized))

	s.assessments.Invalidate(ctx)
	if res.Queued, err = s.assessments.Recompute(ctx, dates); err != nil {
		s.log.Warn("recompute after pull failed", logger.Error(err))
	}
	s.log.Info("cloud pull complete", logger.Int("pulled", res.Entries), logger.Int("total", res.Total))
	return res, nil
}

// Push uploads the whole local journal; the cloud merges by date.
func (s *SyncService) Push(ctx context.Context) (SyncResult, error) {
	if !s.Enabled() {
		return SyncResult{}, ErrSyncDisabled
	}
	start := time.Now()
	defer func() { s.metrics.RecordLatency("sync_push", time.Since(start).Seconds()) }()

	local, err := s.store.List(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list entries: %w", err)
	}
	if err := s.cloud.Push(ctx, local); err != nil {
		s.metrics.RecordError("sync_push")
		return SyncResult{}, fmt.Errorf("cloud push: %w", err)
	}
	s.log.Info("cloud push complete", logger.Int("entries", len(local)))
	return SyncResult{Direction: "push", Entries: len(local), Total: len(local)}, nil
}
