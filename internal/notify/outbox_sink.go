package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/event"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/repository"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
)

var _ Sink = (*OutboxSink)(nil)

// OutboxSink records low-stock events in the outbox in a transaction of its own; the relay
// publishes them afterwards.
type OutboxSink struct {
	db            db.DB
	outboxMsgRepo repository.OutboxMsgRepository
}

func NewOutboxSink(db db.DB, outboxMsgRepo repository.OutboxMsgRepository) *OutboxSink {
	return &OutboxSink{
		db:            db,
		outboxMsgRepo: outboxMsgRepo,
	}
}

func (s *OutboxSink) Handle(ctx context.Context, task LowStockTask) error {
	payload, err := json.Marshal(task.Event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partitionKey := task.Event.StoreID.String() + ":" + strconv.FormatInt(task.Event.ProductID, 10)

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		if err := s.outboxMsgRepo.
			WithDB(db).
			CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
				Topic:        event.TopicLowStock,
				Headers:      task.Headers,
				Payload:      payload,
				PartitionKey: &partitionKey,
			}); err != nil {
			return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("db with tx: %w", err)
	}

	return nil
}
