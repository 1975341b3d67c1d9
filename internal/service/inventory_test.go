package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/log"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/service"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/cache"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
	"github.com/tuanvumaihuynh/tenant-inventory/pkg/ptr"
	pkgvalidator "github.com/tuanvumaihuynh/tenant-inventory/pkg/validator"
)

type fixture struct {
	mem      *memInventory
	store    cache.Store
	notifier *recordingNotifier
	svc      service.InventoryService
}

type fixtureOption func(*fixtureOptions)

type fixtureOptions struct {
	store    cache.Store
	executor func(*memInventory) db.TenantExecutor
}

func withCacheStore(s cache.Store) fixtureOption {
	return func(o *fixtureOptions) { o.store = s }
}

func withExecutor(wrap func(*memInventory) db.TenantExecutor) fixtureOption {
	return func(o *fixtureOptions) { o.executor = wrap }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	mem := newMemInventory()
	o := fixtureOptions{
		store:    cache.NewMemoryStore(0),
		executor: func(m *memInventory) db.TenantExecutor { return m },
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.NewDiscardLogger()
	productRepo := memProductRepository{mem: mem}
	notifier := &recordingNotifier{}

	svc := service.NewInventoryService(
		config.Inventory{LowStockThreshold: 5, DefaultPageSize: 20, MaxPageSize: 100},
		config.Cache{ProductTTL: time.Minute, ListTTL: time.Minute, InvalidateRetries: 2, InvalidateBackoff: time.Millisecond},
		logger,
		o.executor(mem),
		productRepo,
		service.NewQuotaEnforcer(memStoreRepository{mem: mem}, productRepo),
		cache.NewCoordinator(o.store, "inv", logger, nil),
		notifier,
		pkgvalidator.MustNewDefaultValidator(),
	)

	return &fixture{mem: mem, store: o.store, notifier: notifier, svc: svc}
}

// newStore registers a store with a license for maxProducts (nil means unlimited).
func (f *fixture) newStore(maxProducts *int) uuid.UUID {
	id := uuid.New()
	f.mem.stores[id] = model.Store{ID: id, Name: "shop"}
	f.mem.licenses[id] = model.License{StoreID: id, MaxProducts: maxProducts}
	return id
}

func (f *fixture) create(t *testing.T, storeID uuid.UUID, body model.ProductBody) model.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), storeID, body)
	require.NoError(t, err)
	return p
}

func TestCreateAndGetProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("Should store the variant sum as stock and read it back", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)

		created := f.create(t, storeID, model.ProductBody{
			Name:          "Tee",
			Price:         10,
			Stock:         100,
			Sizes:         []string{"S", "M"},
			VariantsStock: map[string]int{"S": 2, "M": 3},
		})
		assert.Equal(t, 5, created.Stock)

		got, err := f.svc.GetProduct(ctx, storeID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, 5, got.Stock)
		assert.Equal(t, map[string]int{"S": 2, "M": 3}, got.VariantsStock)
	})

	t.Run("Should reject invalid bodies", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)

		_, err := f.svc.CreateProduct(ctx, storeID, model.ProductBody{Name: "   ", Price: -1})

		var validationErrs validator.ValidationErrors
		require.ErrorAs(t, err, &validationErrs)
		assert.Len(t, validationErrs, 2)
	})

	t.Run("Should reject prices the price column would round", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)

		_, err := f.svc.CreateProduct(ctx, storeID, model.ProductBody{Name: "Tee", Price: 9.999})

		var validationErrs validator.ValidationErrors
		require.ErrorAs(t, err, &validationErrs)
		assert.Equal(t, "price", validationErrs[0].Field())
		assert.Empty(t, f.mem.products)
	})

	t.Run("Should serve repeated reads from cache", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		created := f.create(t, storeID, model.ProductBody{Name: "Mug", Stock: 1})

		for range 3 {
			_, err := f.svc.GetProduct(ctx, storeID, created.ID)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), f.mem.productReads.Load())
	})

	t.Run("Should not cache misses", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)

		_, err := f.svc.GetProduct(ctx, storeID, 42)
		assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
		_, err = f.svc.GetProduct(ctx, storeID, 42)
		assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
		assert.Equal(t, int32(2), f.mem.productReads.Load())
	})
}

func TestUpdateProductInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storeID := f.newStore(nil)
	created := f.create(t, storeID, model.ProductBody{Name: "Old", Stock: 3})

	_, err := f.svc.GetProduct(ctx, storeID, created.ID)
	require.NoError(t, err)
	page, err := f.svc.ListProducts(ctx, storeID, model.ListProductsFilter{})
	require.NoError(t, err)
	require.Equal(t, "Old", page.Products[0].Name)

	updated, err := f.svc.UpdateProduct(ctx, storeID, created.ID, model.ProductBody{
		Name:          "New",
		VariantsStock: map[string]int{"L": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Stock)

	got, err := f.svc.GetProduct(ctx, storeID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, 4, got.Stock)

	page, err = f.svc.ListProducts(ctx, storeID, model.ListProductsFilter{})
	require.NoError(t, err)
	assert.Equal(t, "New", page.Products[0].Name)
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storeID := f.newStore(nil)
	created := f.create(t, storeID, model.ProductBody{Name: "Cap", Stock: 1})

	_, err := f.svc.GetProduct(ctx, storeID, created.ID)
	require.NoError(t, err)

	deleted, err := f.svc.DeleteProduct(ctx, storeID, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.svc.DeleteProduct(ctx, storeID, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = f.svc.GetProduct(ctx, storeID, created.ID)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("Should filter and page", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		for i := range 3 {
			f.create(t, storeID, model.ProductBody{Name: "p", CategoryID: ptr.New(int64(i % 2)), DisplayOrder: i})
		}

		page, err := f.svc.ListProducts(ctx, storeID, model.ListProductsFilter{CategoryID: ptr.New[int64](0), Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Len(t, page.Products, 1)
	})

	t.Run("Should return an empty page without a store", func(t *testing.T) {
		f := newFixture(t)

		page, err := f.svc.ListProducts(ctx, uuid.Nil, model.ListProductsFilter{})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.NotNil(t, page.Products)
	})

	t.Run("Should reject negative paging", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ListProducts(ctx, uuid.New(), model.ListProductsFilter{Offset: -1})
		assert.ErrorIs(t, err, apperr.ValidationErr)
	})
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storeA := f.newStore(nil)
	storeB := f.newStore(nil)
	product := f.create(t, storeA, model.ProductBody{Name: "Private", Stock: 4})

	_, err := f.svc.GetProduct(ctx, storeB, product.ID)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	page, err := f.svc.ListProducts(ctx, storeB, model.ListProductsFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.svc.UpdateProduct(ctx, storeB, product.ID, model.ProductBody{Name: "Stolen"})
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	result, err := f.svc.DecrementStock(ctx, storeB, model.StockItem{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, model.DecrementNotFound, result.Outcome)

	deleted, err := f.svc.DeleteProduct(ctx, storeB, product.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = f.svc.CreateProduct(ctx, uuid.Nil, model.ProductBody{Name: "Orphan"})
	assert.ErrorIs(t, err, apperr.NoLicenseErr)

	got, err := f.svc.GetProduct(ctx, storeA, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Name)
	assert.Equal(t, 4, got.Stock)
}

func TestProductQuota(t *testing.T) {
	ctx := context.Background()

	t.Run("Should allow the fifth product and reject the sixth", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(ptr.New(5))
		for range 4 {
			f.create(t, storeID, model.ProductBody{Name: "p"})
		}

		usage, err := f.svc.GetLicenseUsage(ctx, storeID)
		require.NoError(t, err)
		assert.Equal(t, model.LicenseUsage{MaxProducts: ptr.New(5), ProductCount: 4, CanCreateProduct: true}, usage)

		f.create(t, storeID, model.ProductBody{Name: "fifth"})

		_, err = f.svc.CreateProduct(ctx, storeID, model.ProductBody{Name: "sixth"})
		var limitErr *apperr.ProductLimitExceededError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, 5, limitErr.Limit)
		assert.Equal(t, 5, limitErr.Count)
		assert.ErrorIs(t, err, apperr.ProductLimitExceededErr)

		usage, err = f.svc.GetLicenseUsage(ctx, storeID)
		require.NoError(t, err)
		assert.False(t, usage.CanCreateProduct)
		assert.Equal(t, 5, usage.ProductCount)
	})

	t.Run("Should reject stores without a license", func(t *testing.T) {
		f := newFixture(t)
		storeID := uuid.New()
		f.mem.stores[storeID] = model.Store{ID: storeID}

		_, err := f.svc.CreateProduct(ctx, storeID, model.ProductBody{Name: "p"})
		assert.ErrorIs(t, err, apperr.NoLicenseErr)
	})

	t.Run("Should reject expired licenses", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		f.mem.licenses[storeID] = model.License{StoreID: storeID, ExpiresAt: ptr.New(time.Now().Add(-time.Hour))}

		_, err := f.svc.CreateProduct(ctx, storeID, model.ProductBody{Name: "p"})
		assert.ErrorIs(t, err, apperr.NoLicenseErr)

		usage, err := f.svc.GetLicenseUsage(ctx, storeID)
		require.NoError(t, err)
		assert.False(t, usage.CanCreateProduct)
	})

	t.Run("Should allow unlimited licenses", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		for range 10 {
			f.create(t, storeID, model.ProductBody{Name: "p"})
		}
	})
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()

	t.Run("Should let exactly one of two concurrent 3 of 4 decrements apply", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		p := f.create(t, storeID, model.ProductBody{Name: "Lamp", Stock: 4})

		var wg sync.WaitGroup
		results := make([]model.DecrementResult, 2)
		for i := range results {
			wg.Go(func() {
				r, err := f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 3})
				assert.NoError(t, err)
				results[i] = r
			})
		}
		wg.Wait()

		outcomes := []model.DecrementOutcome{results[0].Outcome, results[1].Outcome}
		assert.ElementsMatch(t, []model.DecrementOutcome{model.DecrementApplied, model.DecrementInsufficientStock}, outcomes)
		assert.Equal(t, 1, f.mem.product(p.ID).Stock)
	})

	t.Run("Should never drive stock negative", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		p := f.create(t, storeID, model.ProductBody{Name: "Pen", Stock: 10})

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			applied int
		)
		for range 25 {
			wg.Go(func() {
				r, err := f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 1})
				assert.NoError(t, err)
				if r.Applied() {
					mu.Lock()
					applied++
					mu.Unlock()
				}
			})
		}
		wg.Wait()

		assert.Equal(t, 10, applied)
		assert.Zero(t, f.mem.product(p.ID).Stock)
	})

	t.Run("Should report unknown stock cells as not found", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		p := f.create(t, storeID, model.ProductBody{Name: "Shoe", VariantsStock: map[string]int{"40": 2}})

		r, err := f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, model.DecrementNotFound, r.Outcome)

		r, err = f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 1, Variant: ptr.New("41")})
		require.NoError(t, err)
		assert.Equal(t, model.DecrementNotFound, r.Outcome)

		r, err = f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 1, Variant: ptr.New("40")})
		require.NoError(t, err)
		assert.True(t, r.Applied())
		assert.Equal(t, 1, *r.Level.VariantStock)
	})

	t.Run("Should reject non-positive quantities", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.DecrementStock(ctx, f.newStore(nil), model.StockItem{ProductID: 1, Quantity: 0})

		var validationErrs validator.ValidationErrors
		assert.ErrorAs(t, err, &validationErrs)
	})

	t.Run("Should reject quantities beyond the stock column range", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.DecrementStock(ctx, f.newStore(nil), model.StockItem{ProductID: 1, Quantity: math.MaxInt32 + 1})

		var validationErrs validator.ValidationErrors
		require.ErrorAs(t, err, &validationErrs)
		assert.Equal(t, "quantity", validationErrs[0].Field())
	})

	t.Run("Should invalidate cached reads after applying", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		p := f.create(t, storeID, model.ProductBody{Name: "Cup", Stock: 9})

		_, err := f.svc.GetProduct(ctx, storeID, p.ID)
		require.NoError(t, err)
		_, err = f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 2})
		require.NoError(t, err)

		got, err := f.svc.GetProduct(ctx, storeID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Stock)
	})
}

func TestLowStockNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storeID := f.newStore(nil)
	p := f.create(t, storeID, model.ProductBody{Name: "Tee", Stock: 8})

	_, err := f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.Tasks())

	_, err = f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	tasks := f.notifier.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, storeID, tasks[0].Event.StoreID)
	assert.Equal(t, p.ID, tasks[0].Event.ProductID)
	assert.Equal(t, 5, tasks[0].Event.Stock)
	assert.Equal(t, 5, tasks[0].Event.Threshold)

	_, err = f.svc.DecrementStock(ctx, storeID, model.StockItem{ProductID: p.ID, Quantity: 10})
	require.NoError(t, err)
	assert.Len(t, f.notifier.Tasks(), 1)
}

func TestBatchDecrementStock(t *testing.T) {
	ctx := context.Background()

	t.Run("Should apply all items and notify once per low product", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		a := f.create(t, storeID, model.ProductBody{Name: "A", Stock: 6})
		b := f.create(t, storeID, model.ProductBody{Name: "B", Stock: 50})

		result, err := f.svc.BatchDecrementStock(ctx, storeID, []model.StockItem{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: b.ID, Quantity: 1},
			{ProductID: a.ID, Quantity: 1},
		})
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, 4, f.mem.product(a.ID).Stock)

		tasks := f.notifier.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, 4, tasks[0].Event.Stock)
	})

	t.Run("Should roll back every row when one fails", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.newStore(nil)
		a := f.create(t, storeID, model.ProductBody{Name: "A", Stock: 5})
		b := f.create(t, storeID, model.ProductBody{Name: "B", Stock: 1})

		result, err := f.svc.BatchDecrementStock(ctx, storeID, []model.StockItem{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 2},
			{ProductID: 999, Quantity: 1},
		})
		require.NoError(t, err)

		assert.False(t, result.Applied)
		assert.Empty(t, result.Levels)
		assert.ElementsMatch(t, []model.BatchFailure{
			{ProductID: b.ID, Outcome: model.DecrementInsufficientStock, Requested: 2, Available: 1},
			{ProductID: 999, Outcome: model.DecrementNotFound, Requested: 1},
		}, result.Failures)
		assert.Equal(t, 5, f.mem.product(a.ID).Stock)
		assert.Equal(t, 1, f.mem.product(b.ID).Stock)
		assert.Empty(t, f.notifier.Tasks())
	})

	t.Run("Should reject empty batches", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.BatchDecrementStock(ctx, f.newStore(nil), nil)
		assert.ErrorIs(t, err, apperr.ValidationErr)
	})
}

func TestRestoreStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storeID := f.newStore(nil)
	p := f.create(t, storeID, model.ProductBody{Name: "Sock", VariantsStock: map[string]int{"S": 1}})

	levels, err := f.svc.RestoreStock(ctx, storeID, []model.StockItem{
		{ProductID: p.ID, Quantity: 2, Variant: ptr.New("S")},
		{ProductID: p.ID, Quantity: 2},
	})
	require.NoError(t, err)

	require.Len(t, levels, 1)
	assert.Equal(t, 3, levels[0].Stock)
	assert.Equal(t, 3, *levels[0].VariantStock)
}

func TestCheckStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storeID := f.newStore(nil)
	tee := f.create(t, storeID, model.ProductBody{Name: "Tee", Stock: 2})
	mug := f.create(t, storeID, model.ProductBody{Name: "Mug", Stock: 9})

	t.Run("Should name product, available and requested counts", func(t *testing.T) {
		result, err := f.svc.CheckStock(ctx, storeID, []model.StockItem{
			{ProductID: tee.ID, Quantity: 5},
			{ProductID: mug.ID, Quantity: 1},
			{ProductID: 777, Quantity: 1},
		})
		require.NoError(t, err)

		assert.False(t, result.Valid)
		assert.Equal(t, []string{
			"Tee: only 2 available, requested 5",
			"Product 777 not found",
		}, result.Errors)
		require.Len(t, result.Items, 3)
		assert.True(t, result.Items[1].Sufficient)
		assert.False(t, result.Items[2].Found)
	})

	t.Run("Should explain unaddressable variant cells", func(t *testing.T) {
		hoodie := f.create(t, storeID, model.ProductBody{Name: "Hoodie", VariantsStock: map[string]int{"M": 3}})

		result, err := f.svc.CheckStock(ctx, storeID, []model.StockItem{
			{ProductID: hoodie.ID, Quantity: 1},
			{ProductID: hoodie.ID, Quantity: 1, Variant: ptr.New("XL")},
			{ProductID: hoodie.ID, Quantity: 1, Variant: ptr.New("M")},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"Hoodie: stock is tracked per variant",
			`Hoodie: variant "XL" not found`,
		}, result.Errors)
		assert.True(t, result.Items[2].Sufficient)
	})

	t.Run("Should not change stock", func(t *testing.T) {
		result, err := f.svc.CheckStock(ctx, storeID, []model.StockItem{{ProductID: tee.ID, Quantity: 2}})
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.Equal(t, 2, f.mem.product(tee.ID).Stock)
	})
}

type brokenCacheStore struct {
	cache.Store
}

func (brokenCacheStore) DeletePrefix(context.Context, string) (int, error) {
	return 0, errors.New("redis down")
}

func TestInvalidationFailureKeepsWrite(t *testing.T) {
	f := newFixture(t, withCacheStore(brokenCacheStore{Store: cache.NewMemoryStore(0)}))
	storeID := f.newStore(nil)

	p, err := f.svc.CreateProduct(context.Background(), storeID, model.ProductBody{Name: "Tee", Stock: 1})
	require.NoError(t, err)
	assert.Equal(t, "Tee", f.mem.product(p.ID).Name)
}

type conflictingExecutor struct {
	*memInventory
}

func (e conflictingExecutor) WithTenantTx(ctx context.Context, storeID uuid.UUID, txFunc func(db.TenantDB) error, opts ...db.TxOption) error {
	if err := e.memInventory.WithTenantTx(ctx, storeID, txFunc, opts...); err != nil {
		return err
	}
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func TestSerializationFailure(t *testing.T) {
	f := newFixture(t, withExecutor(func(m *memInventory) db.TenantExecutor {
		return conflictingExecutor{memInventory: m}
	}))
	storeID := f.newStore(nil)

	_, err := f.svc.CreateProduct(context.Background(), storeID, model.ProductBody{Name: "p"})
	assert.ErrorIs(t, err, apperr.ConcurrentWriteErr)
}
