package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ElenaBezro/go-shop-api/internal/repository"
)

// KafkaWriter is the subset of kafka.Writer the poller needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Poller drains unprocessed outbox rows to Kafka at a fixed interval.
// Events are marked processed only after a successful publish, so a
// broker outage causes redelivery, never loss.
type Poller struct {
	repo      repository.OutboxRepository
	writer    KafkaWriter
	log       *zap.Logger
	interval  time.Duration
	batchSize int
}

func NewPoller(repo repository.OutboxRepository, writer KafkaWriter, log *zap.Logger, interval time.Duration, batchSize int) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Poller{
		repo:      repo,
		writer:    writer,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("outbox poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.log.Info("outbox poller stopped")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.log.Error("outbox batch failed", zap.Error(err))
			}
		}
	}
}

func (p *Poller) processBatch(ctx context.Context) error {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox events: %w", err)
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.AggregateID),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		}

		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to publish event %d: %w", event.ID, err)
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to mark event %d as processed: %w", event.ID, err)
		}

		p.log.Debug("outbox event published",
			zap.Int64("event_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("aggregate_id", event.AggregateID),
		)
	}

	return nil
}
