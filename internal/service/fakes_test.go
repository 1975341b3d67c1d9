package service_test

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/notify"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/repository"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
)

// memInventory is an in-memory database. Transactions are serialized and roll back on error.
type memInventory struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]model.Product
	stores   map[uuid.UUID]model.Store
	licenses map[uuid.UUID]model.License

	productReads atomic.Int32
}

func newMemInventory() *memInventory {
	return &memInventory{
		products: map[int64]model.Product{},
		stores:   map[uuid.UUID]model.Store{},
		licenses: map[uuid.UUID]model.License{},
	}
}

func (m *memInventory) WithTenantTx(_ context.Context, storeID uuid.UUID, txFunc func(db.TenantDB) error, _ ...db.TxOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[int64]model.Product, len(m.products))
	for id, p := range m.products {
		p.VariantsStock = maps.Clone(p.VariantsStock)
		snapshot[id] = p
	}
	nextID := m.nextID

	if err := txFunc(db.NewTenantDB(nil, storeID)); err != nil {
		m.products = snapshot
		m.nextID = nextID
		return err
	}
	return nil
}

func (m *memInventory) product(id int64) model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

type memProductRepository struct {
	mem     *memInventory
	storeID uuid.UUID
}

func (r memProductRepository) WithDB(tx db.TenantDB) repository.ProductRepository {
	return memProductRepository{mem: r.mem, storeID: tx.StoreID()}
}

func (r memProductRepository) owned(id int64) (model.Product, bool) {
	p, ok := r.mem.products[id]
	if !ok || r.storeID == uuid.Nil || p.StoreID != r.storeID {
		return model.Product{}, false
	}
	return p, true
}

func (r memProductRepository) ListProducts(_ context.Context, filter model.ListProductsFilter) (model.ProductPage, error) {
	var matched []model.Product
	for _, p := range r.mem.products {
		if p.StoreID != r.storeID || r.storeID == uuid.Nil {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.Subcategory != nil && (p.Subcategory == nil || *p.Subcategory != *filter.Subcategory) {
			continue
		}
		matched = append(matched, p)
	}
	slices.SortFunc(matched, func(a, b model.Product) int {
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder - b.DisplayOrder
		}
		return int(b.ID - a.ID)
	})

	page := model.ProductPage{Products: []model.Product{}, Total: len(matched)}
	if filter.Offset < len(matched) {
		end := min(filter.Offset+filter.Limit, len(matched))
		page.Products = append(page.Products, matched[filter.Offset:end]...)
	}
	return page, nil
}

func (r memProductRepository) GetProduct(_ context.Context, id int64) (model.Product, error) {
	r.mem.productReads.Add(1)
	p, ok := r.owned(id)
	if !ok {
		return model.Product{}, apperr.ProductNotFoundErr
	}
	return p, nil
}

func (r memProductRepository) CountProducts(context.Context) (int, error) {
	n := 0
	for _, p := range r.mem.products {
		if p.StoreID == r.storeID {
			n++
		}
	}
	return n, nil
}

func (r memProductRepository) apply(p model.Product, body model.ProductBody) model.Product {
	p.Name = body.Name
	p.Description = body.Description
	p.Price = body.Price
	p.OriginalPrice = body.OriginalPrice
	p.TransferPrice = body.TransferPrice
	p.CategoryID = body.CategoryID
	p.Subcategory = body.Subcategory
	p.Images = body.Images
	p.Sizes = body.Sizes
	p.Colors = body.Colors
	p.Stock = body.EffectiveStock()
	p.VariantsStock = maps.Clone(body.VariantsStock)
	p.IsBestseller = body.IsBestseller
	p.IsNew = body.IsNew
	p.IsOnSale = body.IsOnSale
	p.DisplayOrder = body.DisplayOrder
	p.UpdatedAt = time.Now()
	return p
}

func (r memProductRepository) CreateProduct(_ context.Context, body model.ProductBody) (model.Product, error) {
	r.mem.nextID++
	now := time.Now()
	p := r.apply(model.Product{ID: r.mem.nextID, StoreID: r.storeID, CreatedAt: now}, body)
	r.mem.products[p.ID] = p
	return p, nil
}

func (r memProductRepository) UpdateProduct(_ context.Context, id int64, body model.ProductBody) (model.Product, error) {
	p, ok := r.owned(id)
	if !ok {
		return model.Product{}, apperr.ProductNotFoundErr
	}
	p = r.apply(p, body)
	r.mem.products[id] = p
	return p, nil
}

func (r memProductRepository) DeleteProduct(_ context.Context, id int64) (bool, error) {
	if _, ok := r.owned(id); !ok {
		return false, nil
	}
	delete(r.mem.products, id)
	return true, nil
}

func (r memProductRepository) snapshot(p model.Product) model.StockSnapshot {
	return model.StockSnapshot{ProductID: p.ID, Name: p.Name, Stock: p.Stock, VariantsStock: p.VariantsStock}
}

func (r memProductRepository) GetStockSnapshots(_ context.Context, ids []int64) (map[int64]model.StockSnapshot, error) {
	out := map[int64]model.StockSnapshot{}
	for _, id := range ids {
		if p, ok := r.owned(id); ok {
			out[id] = r.snapshot(p)
		}
	}
	return out, nil
}

func (r memProductRepository) decrement(item model.StockItem) (*model.StockLevel, model.BatchFailure) {
	failure := model.BatchFailure{ProductID: item.ProductID, Variant: item.Variant, Outcome: model.DecrementNotFound, Requested: item.Quantity}

	p, ok := r.owned(item.ProductID)
	if !ok {
		return nil, failure
	}
	available, ok := r.snapshot(p).Available(item.Variant)
	if !ok {
		return nil, failure
	}
	if available < item.Quantity {
		failure.Outcome = model.DecrementInsufficientStock
		failure.Available = available
		return nil, failure
	}

	p.Stock -= item.Quantity
	level := &model.StockLevel{ProductID: p.ID, Name: p.Name, Variant: item.Variant, Stock: p.Stock}
	if item.Variant != nil {
		p.VariantsStock = maps.Clone(p.VariantsStock)
		p.VariantsStock[*item.Variant] -= item.Quantity
		n := p.VariantsStock[*item.Variant]
		level.VariantStock = &n
	}
	r.mem.products[p.ID] = p
	return level, failure
}

func (r memProductRepository) DecrementStock(_ context.Context, item model.StockItem) (model.DecrementResult, error) {
	level, failure := r.decrement(item)
	if level == nil {
		return model.DecrementResult{Outcome: failure.Outcome}, nil
	}
	return model.DecrementResult{Outcome: model.DecrementApplied, Level: level}, nil
}

func (r memProductRepository) BatchDecrementStock(_ context.Context, items []model.StockItem) (model.BatchDecrementResult, error) {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, func(a, b model.StockItem) int {
		if a.ProductID != b.ProductID {
			return int(a.ProductID - b.ProductID)
		}
		var av, bv string
		if a.Variant != nil {
			av = *a.Variant
		}
		if b.Variant != nil {
			bv = *b.Variant
		}
		return strings.Compare(av, bv)
	})

	result := model.BatchDecrementResult{Applied: true}
	for _, item := range ordered {
		level, failure := r.decrement(item)
		if level == nil {
			result.Applied = false
			result.Failures = append(result.Failures, failure)
			continue
		}
		result.Levels = append(result.Levels, *level)
	}
	if !result.Applied {
		result.Levels = nil
	}
	return result, nil
}

func (r memProductRepository) RestoreStock(_ context.Context, item model.StockItem) (*model.StockLevel, error) {
	p, ok := r.owned(item.ProductID)
	if !ok {
		return nil, nil
	}
	if _, ok := r.snapshot(p).Available(item.Variant); !ok {
		return nil, nil
	}

	p.Stock += item.Quantity
	level := &model.StockLevel{ProductID: p.ID, Name: p.Name, Variant: item.Variant}
	if item.Variant != nil {
		p.VariantsStock = maps.Clone(p.VariantsStock)
		p.VariantsStock[*item.Variant] += item.Quantity
		n := p.VariantsStock[*item.Variant]
		level.VariantStock = &n
	}
	level.Stock = p.Stock
	r.mem.products[p.ID] = p
	return level, nil
}

type memStoreRepository struct {
	mem     *memInventory
	storeID uuid.UUID
}

func (r memStoreRepository) WithDB(tx db.TenantDB) repository.StoreRepository {
	return memStoreRepository{mem: r.mem, storeID: tx.StoreID()}
}

func (r memStoreRepository) GetStore(context.Context) (model.Store, bool, error) {
	s, ok := r.mem.stores[r.storeID]
	return s, ok, nil
}

func (r memStoreRepository) GetLicense(context.Context) (model.License, bool, error) {
	l, ok := r.mem.licenses[r.storeID]
	return l, ok, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []notify.LowStockTask
}

func (n *recordingNotifier) Dispatch(_ context.Context, task notify.LowStockTask) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, task)
	return true
}

func (n *recordingNotifier) Tasks() []notify.LowStockTask {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.tasks)
}
