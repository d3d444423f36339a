package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	mid "WorthWatch/internal/middleware"
	pkgkafka "WorthWatch/pkg/kafka"
)

// KafkaMonthsHandler consumes month documents from Kafka and pushes them
// through the ingest guard. One message is one full month; partial updates
// are not supported on this path.
type KafkaMonthsHandler struct {
	topic   string
	guard   *mid.IngestGuard
	metrics domrepo.Metrics
}

func NewKafkaMonthsHandler(topic string, guard *mid.IngestGuard, metrics domrepo.Metrics) *KafkaMonthsHandler {
	return &KafkaMonthsHandler{topic: topic, guard: guard, metrics: metrics}
}

// Topic returns the Kafka topic this handler subscribes to.
func (h *KafkaMonthsHandler) Topic() string { return h.topic }

// Handle decodes one month document and hands it to the ingest guard.
func (h *KafkaMonthsHandler) Handle(ctx context.Context, message []byte) error {
	var in models.MonthInput
	if err := json.Unmarshal(message, &in); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("unmarshal month document: %w", err)
	}
	if err := h.guard.Process(ctx, &in); err != nil {
		return fmt.Errorf("ingest month %s: %w", in.Month, err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaMonthsHandler)(nil)
