package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/event"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/log"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/notify"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/repository"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/cache"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
	"github.com/tuanvumaihuynh/tenant-inventory/pkg/ptr"
	"github.com/tuanvumaihuynh/tenant-inventory/pkg/validator"
)

// InventoryService is the tenant-scoped product catalogue and stock API. Every operation
// takes the store explicitly; uuid.Nil is a store that owns nothing and may write nothing.
type InventoryService interface {
	ListProducts(ctx context.Context, storeID uuid.UUID, filter model.ListProductsFilter) (model.ProductPage, error)
	GetProduct(ctx context.Context, storeID uuid.UUID, id int64) (model.Product, error)
	CreateProduct(ctx context.Context, storeID uuid.UUID, body model.ProductBody) (model.Product, error)
	UpdateProduct(ctx context.Context, storeID uuid.UUID, id int64, body model.ProductBody) (model.Product, error)
	DeleteProduct(ctx context.Context, storeID uuid.UUID, id int64) (bool, error)

	// CheckStock is advisory and reserves nothing.
	CheckStock(ctx context.Context, storeID uuid.UUID, items []model.StockItem) (model.StockCheckResult, error)
	// DecrementStock reports insufficient stock and unknown products in the result, not as errors.
	DecrementStock(ctx context.Context, storeID uuid.UUID, item model.StockItem) (model.DecrementResult, error)
	// BatchDecrementStock applies all items or none of them.
	BatchDecrementStock(ctx context.Context, storeID uuid.UUID, items []model.StockItem) (model.BatchDecrementResult, error)
	// RestoreStock returns units to stock, for example after an order is cancelled. Items
	// addressing a missing stock cell are skipped and absent from the returned levels.
	RestoreStock(ctx context.Context, storeID uuid.UUID, items []model.StockItem) ([]model.StockLevel, error)

	GetLicenseUsage(ctx context.Context, storeID uuid.UUID) (model.LicenseUsage, error)
}

type inventoryService struct {
	cfg         config.Inventory
	cacheCfg    config.Cache
	logger      *slog.Logger
	db          db.TenantExecutor
	productRepo repository.ProductRepository
	quota       QuotaEnforcer
	cache       *cache.Coordinator
	notifier    notify.Notifier
	validator   validator.Validator
}

func NewInventoryService(
	cfg config.Inventory,
	cacheCfg config.Cache,
	logger *slog.Logger,
	db db.TenantExecutor,
	productRepo repository.ProductRepository,
	quota QuotaEnforcer,
	cache *cache.Coordinator,
	notifier notify.Notifier,
	validator validator.Validator,
) InventoryService {
	return &inventoryService{
		cfg:         cfg,
		cacheCfg:    cacheCfg,
		logger:      logger.With(slog.String("service", "inventory")),
		db:          db,
		productRepo: productRepo,
		quota:       quota,
		cache:       cache,
		notifier:    notifier,
		validator:   validator,
	}
}

// errBatchRejected rolls back a batch whose rows were partially applied.
var errBatchRejected = errors.New("batch rejected")

func productsPrefix(storeID uuid.UUID) cache.Prefix {
	return cache.Prefix{StoreID: storeID, Resource: cache.ResourceProducts}
}

func (s *inventoryService) ListProducts(ctx context.Context, storeID uuid.UUID, filter model.ListProductsFilter) (model.ProductPage, error) {
	ctx = log.WithStoreID(ctx, storeID)

	filter, err := s.normalizeFilter(filter)
	if err != nil {
		return model.ProductPage{}, err
	}
	if storeID == uuid.Nil {
		return model.ProductPage{Products: []model.Product{}}, nil
	}

	params := map[string]string{
		"limit":  strconv.Itoa(filter.Limit),
		"offset": strconv.Itoa(filter.Offset),
	}
	if filter.CategoryID != nil {
		params["category"] = strconv.FormatInt(*filter.CategoryID, 10)
	}
	if filter.Subcategory != nil {
		params["subcategory"] = *filter.Subcategory
	}
	key := productsPrefix(storeID).Key(cache.NewShape("list", params))

	page, err := cache.GetOrSet(ctx, s.cache, key, s.cacheCfg.ListTTL, func(ctx context.Context) (model.ProductPage, error) {
		var page model.ProductPage
		err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
			var err error
			page, err = s.productRepo.WithDB(tx).ListProducts(ctx, filter)
			if err != nil {
				return fmt.Errorf("product repository list products: %w", err)
			}
			return nil
		}, db.ReadOnly())
		return page, err
	})
	if err != nil {
		return model.ProductPage{}, fmt.Errorf("list products: %w", err)
	}

	return page, nil
}

func (s *inventoryService) normalizeFilter(filter model.ListProductsFilter) (model.ListProductsFilter, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return filter, apperr.ValidationErr.WithMsg("limit and offset must not be negative")
	}
	if filter.Limit == 0 {
		filter.Limit = s.cfg.DefaultPageSize
	}
	filter.Limit = min(filter.Limit, s.cfg.MaxPageSize)
	return filter, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, storeID uuid.UUID, id int64) (model.Product, error) {
	ctx = log.WithStoreID(ctx, storeID)
	if storeID == uuid.Nil {
		return model.Product{}, apperr.ProductNotFoundErr
	}

	key := productsPrefix(storeID).Key(cache.NewShape("id", map[string]string{"id": strconv.FormatInt(id, 10)}))

	product, err := cache.GetOrSet(ctx, s.cache, key, s.cacheCfg.ProductTTL, func(ctx context.Context) (model.Product, error) {
		var product model.Product
		err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
			var err error
			product, err = s.productRepo.WithDB(tx).GetProduct(ctx, id)
			return err
		}, db.ReadOnly())
		return product, err
	})
	if errors.Is(err, apperr.ProductNotFoundErr) {
		return model.Product{}, apperr.ProductNotFoundErr
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, storeID uuid.UUID, body model.ProductBody) (model.Product, error) {
	ctx = log.WithStoreID(ctx, storeID)
	if err := s.validator.Validate(body); err != nil {
		return model.Product{}, fmt.Errorf("validate product: %w", err)
	}

	var product model.Product
	err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		if err := s.quota.Approve(ctx, tx); err != nil {
			return err
		}

		var err error
		product, err = s.productRepo.WithDB(tx).CreateProduct(ctx, body)
		if err != nil {
			return fmt.Errorf("product repository create product: %w", err)
		}
		return nil
	}, db.WithIsolation(s.cfg.CreateIsolation.TxIsoLevel()))
	if err != nil {
		return model.Product{}, s.writeError("create product", err)
	}

	s.invalidate(ctx, storeID)
	s.logger.InfoContext(ctx, "product created", slog.Int64("product_id", product.ID))

	return product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, storeID uuid.UUID, id int64, body model.ProductBody) (model.Product, error) {
	ctx = log.WithStoreID(ctx, storeID)
	if err := s.validator.Validate(body); err != nil {
		return model.Product{}, fmt.Errorf("validate product: %w", err)
	}

	var product model.Product
	err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		var err error
		product, err = s.productRepo.WithDB(tx).UpdateProduct(ctx, id, body)
		return err
	})
	if err != nil {
		return model.Product{}, s.writeError("update product", err)
	}

	s.invalidate(ctx, storeID)

	return product, nil
}

func (s *inventoryService) DeleteProduct(ctx context.Context, storeID uuid.UUID, id int64) (bool, error) {
	ctx = log.WithStoreID(ctx, storeID)

	var deleted bool
	err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		var err error
		deleted, err = s.productRepo.WithDB(tx).DeleteProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, s.writeError("delete product", err)
	}

	if deleted {
		s.invalidate(ctx, storeID)
	}

	return deleted, nil
}

func (s *inventoryService) CheckStock(ctx context.Context, storeID uuid.UUID, items []model.StockItem) (model.StockCheckResult, error) {
	ctx = log.WithStoreID(ctx, storeID)
	if err := s.validateItems(items); err != nil {
		return model.StockCheckResult{}, err
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	var snapshots map[int64]model.StockSnapshot
	if err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		var err error
		snapshots, err = s.productRepo.WithDB(tx).GetStockSnapshots(ctx, ids)
		if err != nil {
			return fmt.Errorf("product repository get stock snapshots: %w", err)
		}
		return nil
	}, db.ReadOnly()); err != nil {
		return model.StockCheckResult{}, fmt.Errorf("check stock: %w", err)
	}

	return buildStockCheckResult(items, snapshots), nil
}

func buildStockCheckResult(items []model.StockItem, snapshots map[int64]model.StockSnapshot) model.StockCheckResult {
	result := model.StockCheckResult{
		Valid:  true,
		Errors: []string{},
		Items:  make([]model.ItemAvailability, 0, len(items)),
	}

	for _, item := range items {
		availability := model.ItemAvailability{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Requested: item.Quantity,
		}

		snapshot, ok := snapshots[item.ProductID]
		if ok {
			availability.Available, availability.Found = snapshot.Available(item.Variant)
		}
		availability.Sufficient = availability.Found && availability.Available >= item.Quantity

		switch {
		case !ok:
			result.Errors = append(result.Errors, fmt.Sprintf("Product %d not found", item.ProductID))
		case !availability.Found && item.Variant == nil:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: stock is tracked per variant", snapshot.Name))
		case !availability.Found:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: variant %q not found", snapshot.Name, *item.Variant))
		case !availability.Sufficient:
			result.Errors = append(result.Errors, fmt.Sprintf(
				"%s: only %d available, requested %d", stockLabel(snapshot.Name, item.Variant), availability.Available, item.Quantity,
			))
		}
		if !availability.Sufficient {
			result.Valid = false
		}

		result.Items = append(result.Items, availability)
	}

	return result
}

func (s *inventoryService) DecrementStock(ctx context.Context, storeID uuid.UUID, item model.StockItem) (model.DecrementResult, error) {
	ctx = log.WithStoreID(ctx, storeID)
	if err := s.validator.Validate(item); err != nil {
		return model.DecrementResult{}, fmt.Errorf("validate stock item: %w", err)
	}

	var result model.DecrementResult
	if err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		var err error
		result, err = s.productRepo.WithDB(tx).DecrementStock(ctx, item)
		if err != nil {
			return fmt.Errorf("product repository decrement stock: %w", err)
		}
		return nil
	}); err != nil {
		return model.DecrementResult{}, s.writeError("decrement stock", err)
	}

	s.logger.DebugContext(ctx, "stock decrement finished",
		slog.String("item", item.String()),
		slog.String("outcome", result.Outcome.String()),
	)

	if result.Applied() {
		s.invalidate(ctx, storeID)
		s.notifyLowStock(ctx, storeID, *result.Level)
	}

	return result, nil
}

func (s *inventoryService) BatchDecrementStock(ctx context.Context, storeID uuid.UUID, items []model.StockItem) (model.BatchDecrementResult, error) {
	ctx = log.WithStoreID(ctx, storeID)
	if err := s.validateItems(items); err != nil {
		return model.BatchDecrementResult{}, err
	}

	var result model.BatchDecrementResult
	err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		var err error
		result, err = s.productRepo.WithDB(tx).BatchDecrementStock(ctx, items)
		if err != nil {
			return fmt.Errorf("product repository batch decrement stock: %w", err)
		}
		if !result.Applied {
			return errBatchRejected
		}
		return nil
	})
	if errors.Is(err, errBatchRejected) {
		s.logger.InfoContext(ctx, "batch decrement rejected", slog.Int("failures", len(result.Failures)))
		return model.BatchDecrementResult{Failures: result.Failures}, nil
	}
	if err != nil {
		return model.BatchDecrementResult{}, s.writeError("batch decrement stock", err)
	}

	s.invalidate(ctx, storeID)
	for _, level := range lastLevels(result.Levels) {
		s.notifyLowStock(ctx, storeID, level)
	}

	return result, nil
}

func (s *inventoryService) RestoreStock(ctx context.Context, storeID uuid.UUID, items []model.StockItem) ([]model.StockLevel, error) {
	ctx = log.WithStoreID(ctx, storeID)
	if err := s.validateItems(items); err != nil {
		return nil, err
	}

	levels := make([]model.StockLevel, 0, len(items))
	if err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		repo := s.productRepo.WithDB(tx)
		for _, item := range items {
			level, err := repo.RestoreStock(ctx, item)
			if err != nil {
				return fmt.Errorf("product repository restore stock: %w", err)
			}
			if level == nil {
				s.logger.WarnContext(ctx, "skipping restore of missing stock cell", slog.String("item", item.String()))
				continue
			}
			levels = append(levels, *level)
		}
		return nil
	}); err != nil {
		return nil, s.writeError("restore stock", err)
	}

	if len(levels) > 0 {
		s.invalidate(ctx, storeID)
	}

	return levels, nil
}

func (s *inventoryService) GetLicenseUsage(ctx context.Context, storeID uuid.UUID) (model.LicenseUsage, error) {
	ctx = log.WithStoreID(ctx, storeID)

	var usage model.LicenseUsage
	if err := s.db.WithTenantTx(ctx, storeID, func(tx db.TenantDB) error {
		var err error
		usage, err = s.quota.GetUsage(ctx, tx)
		return err
	}, db.ReadOnly()); err != nil {
		return model.LicenseUsage{}, fmt.Errorf("get license usage: %w", err)
	}

	return usage, nil
}

func (s *inventoryService) validateItems(items []model.StockItem) error {
	if len(items) == 0 {
		return apperr.ValidationErr.WithMsg("at least one item is required")
	}
	for _, item := range items {
		if err := s.validator.Validate(item); err != nil {
			return fmt.Errorf("validate stock item: %w", err)
		}
	}
	return nil
}

// writeError maps storage failures of a write transaction to caller-facing errors.
func (s *inventoryService) writeError(op string, err error) error {
	if db.IsSerializationFailure(err) {
		return apperr.ConcurrentWriteErr.WrapParent(err)
	}
	if db.IsCheckViolation(err) {
		return apperr.ValidationErr.WithMsg("stock would become invalid").WrapParent(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// invalidate drops the store's cached product reads after a committed write. A failure leaves
// entries to expire by TTL; the write itself already succeeded.
func (s *inventoryService) invalidate(ctx context.Context, storeID uuid.UUID) {
	if storeID == uuid.Nil {
		return
	}

	backoff := retry.WithMaxRetries(
		s.cacheCfg.InvalidateRetries,
		retry.NewExponential(max(s.cacheCfg.InvalidateBackoff, time.Millisecond)),
	)
	ctx = context.WithoutCancel(ctx)

	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(s.cache.DeleteByPrefix(ctx, productsPrefix(storeID)))
	}); err != nil {
		s.logger.ErrorContext(ctx, "error invalidating product cache", slog.Any("error", err))
	}
}

func (s *inventoryService) notifyLowStock(ctx context.Context, storeID uuid.UUID, level model.StockLevel) {
	remaining := level.Stock
	if level.VariantStock != nil {
		remaining = min(remaining, *level.VariantStock)
	}
	if remaining > s.cfg.LowStockThreshold {
		return
	}

	s.notifier.Dispatch(ctx, notify.NewLowStockTask(ctx, event.LowStockEvent{
		StoreID:      storeID,
		ProductID:    level.ProductID,
		ProductName:  level.Name,
		Variant:      level.Variant,
		Stock:        level.Stock,
		VariantStock: level.VariantStock,
		Threshold:    s.cfg.LowStockThreshold,
	}))
}

// lastLevels keeps the final level per stock cell, so a product listed twice in a batch is
// reported once with its committed stock.
func lastLevels(levels []model.StockLevel) []model.StockLevel {
	type cell struct {
		productID int64
		variant   string
	}

	index := make(map[cell]int, len(levels))
	out := make([]model.StockLevel, 0, len(levels))
	for _, level := range levels {
		c := cell{productID: level.ProductID, variant: ptr.Deref(level.Variant)}
		if i, ok := index[c]; ok {
			out[i] = level
			continue
		}
		index[c] = len(out)
		out = append(out, level)
	}
	return out
}

func stockLabel(name string, variant *string) string {
	if variant == nil {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, *variant)
}
