package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/creasty/defaults"

	"TriRecover/internal/domain/models"
	domrepo "TriRecover/internal/domain/repository"
	pkghttp "TriRecover/pkg/http"
	pkgkafka "TriRecover/pkg/kafka"
)

// KafkaEntriesHandler ingests entries published by device bridges. The
// payload is the same shape as the HTTP write body.
type KafkaEntriesHandler struct {
	topic   string
	entries *EntryService
	metrics domrepo.Metrics
}

func NewKafkaEntriesHandler(topic string, entries *EntryService, metrics domrepo.Metrics) *KafkaEntriesHandler {
	return &KafkaEntriesHandler{topic: topic, entries: entries, metrics: metrics}
}

var _ pkgkafka.MessageHandler = (*KafkaEntriesHandler)(nil)

func (h *KafkaEntriesHandler) Topic() string { return h.topic }

// Handle upserts one entry. Undecodable or out-of-range payloads are
// permanent failures and go straight to the DLQ.
func (h *KafkaEntriesHandler) Handle(ctx context.Context, b []byte) error {
	var req models.EntryRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode entry: %w", err))
	}
	if err := defaults.Set(&req); err != nil {
		return pkgkafka.Permanent(err)
	}
	if err := pkghttp.Validate(&req); err != nil {
		h.metrics.RecordError("consumer_validate")
		return pkgkafka.Permanent(fmt.Errorf("entry %q: %w", req.Date, err))
	}

	if _, err := h.entries.Upsert(ctx, &req); err != nil {
		return err
	}
	return nil
}
