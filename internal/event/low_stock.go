package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/log"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/mail"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
)

const TopicLowStock = "inventory.low_stock"

// LowStockEvent is published after a committed stock change leaves a product at or below
// the low-stock threshold.
type LowStockEvent struct {
	StoreID      uuid.UUID `json:"store_id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Variant      *string   `json:"variant,omitempty"`
	Stock        int       `json:"stock"`
	VariantStock *int      `json:"variant_stock,omitempty"`
	Threshold    int       `json:"threshold"`
}

var errInvalidLowStockEvent = errors.New("low stock event without store id")

func (s *Service) handleLowStockEvent(ctx context.Context, ev LowStockEvent) error {
	if ev.StoreID == uuid.Nil {
		return errInvalidLowStockEvent
	}

	ctx = log.WithStoreID(ctx, ev.StoreID)
	s.logger.InfoContext(ctx, "handling low stock event",
		slog.Int64("product_id", ev.ProductID),
		slog.Int("stock", ev.Stock),
	)

	var contact *string
	if err := s.db.WithTenantTx(ctx, ev.StoreID, func(tx db.TenantDB) error {
		store, ok, err := s.storeRepo.WithDB(tx).GetStore(ctx)
		if err != nil {
			return fmt.Errorf("store repository get store: %w", err)
		}
		if ok {
			contact = store.ContactEmail
		}
		return nil
	}, db.ReadOnly()); err != nil {
		return fmt.Errorf("db with tenant tx: %w", err)
	}

	if contact == nil || *contact == "" {
		s.logger.InfoContext(ctx, "store has no contact email, skipping low stock mail")
		return nil
	}

	if err := s.mailer.Send(ctx, lowStockMail(*contact, ev)); err != nil {
		return fmt.Errorf("send low stock mail: %w", err)
	}

	return nil
}

func lowStockMail(to string, ev LowStockEvent) mail.Message {
	item := ev.ProductName
	stock := ev.Stock
	if ev.Variant != nil {
		item = fmt.Sprintf("%s (%s)", ev.ProductName, *ev.Variant)
		if ev.VariantStock != nil {
			stock = *ev.VariantStock
		}
	}

	return mail.Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Low stock: %s", item),
		Body: fmt.Sprintf(
			"%s is running low: %d left (threshold %d).\nProduct id: %d\n",
			item, stock, ev.Threshold, ev.ProductID,
		),
	}
}
