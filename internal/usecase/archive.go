package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"TriRecover/internal/domain/models"
	domrepo "TriRecover/internal/domain/repository"
	pkgkafka "TriRecover/pkg/kafka"
)

// ErrArchiveDisabled is returned when no archive backend is configured.
var ErrArchiveDisabled = errors.New("assessment archive is not configured")

// EventSink accepts archived events (the batching pipeline).
type EventSink interface {
	Process(ctx context.Context, ev models.AssessmentEvent) error
}

// ArchiveService reads the assessment history. A nil archive disables it.
type ArchiveService struct {
	archive domrepo.AssessmentArchive
}

func NewArchiveService(archive domrepo.AssessmentArchive) *ArchiveService {
	return &ArchiveService{archive: archive}
}

func (s *ArchiveService) Enabled() bool { return s.archive != nil }

// History returns archived summaries in [from, to], newest first.
func (s *ArchiveService) History(ctx context.Context, from, to string, limit int) ([]models.AssessmentEvent, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if from != "" && to != "" && to < from {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	return s.archive.Query(ctx, from, to, limit)
}

// KafkaArchiveHandler moves events from the assessment topic into the
// archive pipeline.
type KafkaArchiveHandler struct {
	topic   string
	sink    EventSink
	metrics domrepo.Metrics
}

func NewKafkaArchiveHandler(topic string, sink EventSink, metrics domrepo.Metrics) *KafkaArchiveHandler {
	return &KafkaArchiveHandler{topic: topic, sink: sink, metrics: metrics}
}

var _ pkgkafka.MessageHandler = (*KafkaArchiveHandler)(nil)

func (h *KafkaArchiveHandler) Topic() string { return h.topic }

func (h *KafkaArchiveHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.AssessmentEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode assessment event: %w", err))
	}
	if err := h.sink.Process(ctx, ev); err != nil {
		return pkgkafka.Permanent(err)
	}
	return nil
}
