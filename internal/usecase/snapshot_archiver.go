package usecase

import (
	"context"
	"encoding/json"
	"time"

	"OptionLens/internal/domain/models"
	drepo "OptionLens/internal/domain/repository"
	pkgkafka "OptionLens/pkg/kafka"
)

// Broadcaster pushes a finished snapshot to live dashboard clients.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// SnapshotArchiver consumes published snapshots and writes them to the
// archive, feeding the pattern-matching corpus. It also fans snapshots
// out to websocket clients.
type SnapshotArchiver struct {
	topic   string
	archive drepo.Archive
	metrics drepo.Metrics
	hub     Broadcaster
}

func NewSnapshotArchiver(topic string, archive drepo.Archive, metrics drepo.Metrics, hub Broadcaster) *SnapshotArchiver {
	return &SnapshotArchiver{topic: topic, archive: archive, metrics: metrics, hub: hub}
}

func (h *SnapshotArchiver) Topic() string { return h.topic }

func (h *SnapshotArchiver) Handle(ctx context.Context, b []byte) error {
	var snap models.AnalysisSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	start := time.Now()
	if err := h.archive.Store(ctx, &snap); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())

	if h.hub != nil {
		h.hub.Broadcast(b)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*SnapshotArchiver)(nil)
