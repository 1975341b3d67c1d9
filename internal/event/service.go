package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/mail"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/repository"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/mq"
)

// Service consumes inventory events and performs their out-of-band side effects.
type Service struct {
	logger     *slog.Logger
	mqConsumer mq.Consumer
	db         db.TenantExecutor
	storeRepo  repository.StoreRepository
	mailer     mail.Sender
}

// New creates a new event service.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
	db db.TenantExecutor,
	storeRepo repository.StoreRepository,
	mailer mail.Sender,
) *Service {
	return &Service{
		logger:     logger.With(slog.String("service", "event")),
		mqConsumer: mqConsumer,
		db:         db,
		storeRepo:  storeRepo,
		mailer:     mailer,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	if err := s.mqConsumer.RegisterHandler(TopicLowStock, s.handleLowStockPayload); err != nil {
		return nil, fmt.Errorf("register low stock event handler: %w", err)
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
	}

	return cleanup, nil
}

func (s *Service) handleLowStockPayload(ctx context.Context, _ string, payload []byte) error {
	var ev LowStockEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal low stock event: %w", err)
	}

	if err := s.handleLowStockEvent(ctx, ev); err != nil {
		return fmt.Errorf("handle low stock event: %w", err)
	}

	return nil
}
