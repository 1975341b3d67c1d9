package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
)

// ProductRepository reads and writes the products of the store its handle is bound to.
// Every statement filters by that store explicitly.
type ProductRepository interface {
	WithDB(tx db.TenantDB) ProductRepository

	ListProducts(ctx context.Context, filter model.ListProductsFilter) (model.ProductPage, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	CountProducts(ctx context.Context) (int, error)
	CreateProduct(ctx context.Context, body model.ProductBody) (model.Product, error)
	UpdateProduct(ctx context.Context, id int64, body model.ProductBody) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)

	// GetStockSnapshots returns the stock of the given products keyed by id. Unknown ids are absent.
	GetStockSnapshots(ctx context.Context, ids []int64) (map[int64]model.StockSnapshot, error)
	// DecrementStock applies one guarded decrement. Unsatisfied requests are reported in the result.
	DecrementStock(ctx context.Context, item model.StockItem) (model.DecrementResult, error)
	// BatchDecrementStock applies every item in (product, variant) order. When Applied is false
	// some rows were already changed and the caller must roll the transaction back.
	BatchDecrementStock(ctx context.Context, items []model.StockItem) (model.BatchDecrementResult, error)
	// RestoreStock adds item.Quantity back. The level is nil when the stock cell does not exist.
	RestoreStock(ctx context.Context, item model.StockItem) (*model.StockLevel, error)
}

type productRepository struct {
	db db.TenantDB
}

// NewProductRepository returns an unbound repository; bind it with WithDB before use.
func NewProductRepository() ProductRepository {
	return &productRepository{}
}

func (r productRepository) WithDB(tx db.TenantDB) ProductRepository {
	return &productRepository{db: tx}
}

const productColumns = `id, store_id, name, description, price, original_price, transfer_price,
	category_id, subcategory, images, sizes, colors, stock, variants_stock,
	is_bestseller, is_new, is_on_sale, display_order, views, clicks, created_at, updated_at`

func (r productRepository) ListProducts(ctx context.Context, filter model.ListProductsFilter) (model.ProductPage, error) {
	args := pgx.NamedArgs{
		"store_id":    r.db.StoreID(),
		"category_id": filter.CategoryID,
		"subcategory": filter.Subcategory,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	}
	where := `store_id = @store_id
		AND (@category_id::bigint IS NULL OR category_id = @category_id::bigint)
		AND (@subcategory::text IS NULL OR subcategory = @subcategory::text)`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, args).Scan(&total); err != nil {
		return model.ProductPage{}, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE `+where+`
		ORDER BY display_order ASC, created_at DESC, id DESC
		LIMIT @limit OFFSET @offset
	`, args)
	if err != nil {
		return model.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0, filter.Limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return model.ProductPage{}, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return model.ProductPage{}, fmt.Errorf("iterate products: %w", err)
	}

	return model.ProductPage{Products: products, Total: total}, nil
}

func (r productRepository) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE store_id = $1 AND id = $2
	`, r.db.StoreID(), id)

	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, apperr.ProductNotFoundErr
	}
	if err != nil {
		return model.Product{}, err
	}

	return product, nil
}

func (r productRepository) CountProducts(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE store_id = $1`,
		r.db.StoreID(),
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (r productRepository) CreateProduct(ctx context.Context, body model.ProductBody) (model.Product, error) {
	args, err := productBodyArgs(body)
	if err != nil {
		return model.Product{}, err
	}
	args["store_id"] = r.db.StoreID()

	row := r.db.QueryRow(ctx, `
		INSERT INTO products (
			store_id, name, description, price, original_price, transfer_price,
			category_id, subcategory, images, sizes, colors, stock, variants_stock,
			is_bestseller, is_new, is_on_sale, display_order
		) VALUES (
			@store_id, @name, @description, @price, @original_price, @transfer_price,
			@category_id, @subcategory, @images, @sizes, @colors, @stock, @variants_stock,
			@is_bestseller, @is_new, @is_on_sale, @display_order
		)
		RETURNING `+productColumns, args)

	product, err := scanProduct(row)
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r productRepository) UpdateProduct(ctx context.Context, id int64, body model.ProductBody) (model.Product, error) {
	args, err := productBodyArgs(body)
	if err != nil {
		return model.Product{}, err
	}
	args["store_id"] = r.db.StoreID()
	args["id"] = id

	row := r.db.QueryRow(ctx, `
		UPDATE products
		SET name           = @name,
			description    = @description,
			price          = @price,
			original_price = @original_price,
			transfer_price = @transfer_price,
			category_id    = @category_id,
			subcategory    = @subcategory,
			images         = @images,
			sizes          = @sizes,
			colors         = @colors,
			stock          = @stock,
			variants_stock = @variants_stock,
			is_bestseller  = @is_bestseller,
			is_new         = @is_new,
			is_on_sale     = @is_on_sale,
			display_order  = @display_order,
			updated_at     = NOW()
		WHERE store_id = @store_id AND id = @id
		RETURNING `+productColumns, args)

	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, apperr.ProductNotFoundErr
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func (r productRepository) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM products WHERE store_id = $1 AND id = $2`,
		r.db.StoreID(), id,
	)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r productRepository) GetStockSnapshots(ctx context.Context, ids []int64) (map[int64]model.StockSnapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, stock, variants_stock
		FROM products
		WHERE store_id = $1 AND id = ANY($2::bigint[])
	`, r.db.StoreID(), ids)
	if err != nil {
		return nil, fmt.Errorf("get stock snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make(map[int64]model.StockSnapshot, len(ids))
	for rows.Next() {
		snapshot, err := scanStockSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots[snapshot.ProductID] = snapshot
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock snapshots: %w", err)
	}

	return snapshots, nil
}

// decrementStockSQL takes the units from product stock and, when $4 names a variant, from that
// variant's count. The WHERE clause only matches when every touched cell holds at least $3 units.
const decrementStockSQL = `
	UPDATE products
	SET stock          = stock - $3::int,
		variants_stock = CASE
			WHEN $4::text IS NULL THEN variants_stock
			ELSE jsonb_set(variants_stock, ARRAY[$4::text], to_jsonb((variants_stock ->> $4::text)::int - $3::int))
		END,
		updated_at     = NOW()
	WHERE store_id = $1
		AND id = $2
		AND stock >= $3::int
		AND CASE
			WHEN $4::text IS NULL THEN variants_stock IS NULL
			ELSE variants_stock ? $4::text AND (variants_stock ->> $4::text)::int >= $3::int
		END
	RETURNING id, name, stock, (variants_stock ->> $4::text)::int`

const restoreStockSQL = `
	UPDATE products
	SET stock          = stock + $3::int,
		variants_stock = CASE
			WHEN $4::text IS NULL THEN variants_stock
			ELSE jsonb_set(variants_stock, ARRAY[$4::text], to_jsonb((variants_stock ->> $4::text)::int + $3::int))
		END,
		updated_at     = NOW()
	WHERE store_id = $1
		AND id = $2
		AND CASE
			WHEN $4::text IS NULL THEN variants_stock IS NULL
			ELSE variants_stock ? $4::text
		END
	RETURNING id, name, stock, (variants_stock ->> $4::text)::int`

func (r productRepository) DecrementStock(ctx context.Context, item model.StockItem) (model.DecrementResult, error) {
	level, err := scanStockLevel(
		r.db.QueryRow(ctx, decrementStockSQL, r.db.StoreID(), item.ProductID, item.Quantity, item.Variant),
		item.Variant,
	)
	if err == nil {
		return model.DecrementResult{Outcome: model.DecrementApplied, Level: &level}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.DecrementResult{}, fmt.Errorf("decrement stock: %w", err)
	}

	failure, err := r.classify(ctx, item)
	if err != nil {
		return model.DecrementResult{}, err
	}
	return model.DecrementResult{Outcome: failure.Outcome}, nil
}

func (r productRepository) BatchDecrementStock(ctx context.Context, items []model.StockItem) (model.BatchDecrementResult, error) {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, compareStockItems)

	batch := &pgx.Batch{}
	for _, item := range ordered {
		batch.Queue(decrementStockSQL, r.db.StoreID(), item.ProductID, item.Quantity, item.Variant)
	}

	results := r.db.SendBatch(ctx, batch)
	levels := make([]model.StockLevel, 0, len(ordered))
	var rejected []model.StockItem
	for _, item := range ordered {
		level, err := scanStockLevel(results.QueryRow(), item.Variant)
		if errors.Is(err, pgx.ErrNoRows) {
			rejected = append(rejected, item)
			continue
		}
		if err != nil {
			_ = results.Close()
			return model.BatchDecrementResult{}, fmt.Errorf("batch decrement stock %s: %w", item, err)
		}
		levels = append(levels, level)
	}
	if err := results.Close(); err != nil {
		return model.BatchDecrementResult{}, fmt.Errorf("close batch: %w", err)
	}

	if len(rejected) == 0 {
		return model.BatchDecrementResult{Applied: true, Levels: levels}, nil
	}

	failures := make([]model.BatchFailure, 0, len(rejected))
	for _, item := range rejected {
		failure, err := r.classify(ctx, item)
		if err != nil {
			return model.BatchDecrementResult{}, err
		}
		failures = append(failures, failure)
	}

	return model.BatchDecrementResult{Applied: false, Failures: failures}, nil
}

func (r productRepository) RestoreStock(ctx context.Context, item model.StockItem) (*model.StockLevel, error) {
	level, err := scanStockLevel(
		r.db.QueryRow(ctx, restoreStockSQL, r.db.StoreID(), item.ProductID, item.Quantity, item.Variant),
		item.Variant,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("restore stock: %w", err)
	}
	return &level, nil
}

// classify explains why a guarded decrement matched no row.
func (r productRepository) classify(ctx context.Context, item model.StockItem) (model.BatchFailure, error) {
	failure := model.BatchFailure{
		ProductID: item.ProductID,
		Variant:   item.Variant,
		Outcome:   model.DecrementNotFound,
		Requested: item.Quantity,
	}

	snapshot, err := scanStockSnapshot(r.db.QueryRow(ctx, `
		SELECT id, name, stock, variants_stock
		FROM products
		WHERE store_id = $1 AND id = $2
	`, r.db.StoreID(), item.ProductID))
	if errors.Is(err, pgx.ErrNoRows) {
		return failure, nil
	}
	if err != nil {
		return model.BatchFailure{}, err
	}

	available, ok := snapshot.Available(item.Variant)
	if !ok {
		return failure, nil
	}

	failure.Outcome = model.DecrementInsufficientStock
	failure.Available = available
	return failure, nil
}

func compareStockItems(a, b model.StockItem) int {
	if a.ProductID != b.ProductID {
		if a.ProductID < b.ProductID {
			return -1
		}
		return 1
	}
	switch {
	case a.Variant == nil && b.Variant == nil:
		return 0
	case a.Variant == nil:
		return -1
	case b.Variant == nil:
		return 1
	default:
		return strings.Compare(*a.Variant, *b.Variant)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (model.Product, error) {
	var (
		p             model.Product
		price         pgtype.Numeric
		originalPrice pgtype.Numeric
		transferPrice pgtype.Numeric
		stock         int32
		displayOrder  int32
		variantsStock []byte
	)

	if err := row.Scan(
		&p.ID, &p.StoreID, &p.Name, &p.Description, &price, &originalPrice, &transferPrice,
		&p.CategoryID, &p.Subcategory, &p.Images, &p.Sizes, &p.Colors, &stock, &variantsStock,
		&p.IsBestseller, &p.IsNew, &p.IsOnSale, &displayOrder, &p.Views, &p.Clicks,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, err
		}
		return model.Product{}, fmt.Errorf("scan product: %w", err)
	}

	var err error
	if p.Price, err = numericToFloat(price); err != nil {
		return model.Product{}, fmt.Errorf("convert price: %w", err)
	}
	if p.OriginalPrice, err = numericToFloatPtr(originalPrice); err != nil {
		return model.Product{}, fmt.Errorf("convert original price: %w", err)
	}
	if p.TransferPrice, err = numericToFloatPtr(transferPrice); err != nil {
		return model.Product{}, fmt.Errorf("convert transfer price: %w", err)
	}
	if p.VariantsStock, err = decodeVariantsStock(variantsStock); err != nil {
		return model.Product{}, err
	}

	p.Stock = int(stock)
	p.DisplayOrder = int(displayOrder)
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.Colors == nil {
		p.Colors = []string{}
	}

	return p, nil
}

func scanStockSnapshot(row rowScanner) (model.StockSnapshot, error) {
	var (
		s             model.StockSnapshot
		stock         int32
		variantsStock []byte
	)
	if err := row.Scan(&s.ProductID, &s.Name, &stock, &variantsStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StockSnapshot{}, err
		}
		return model.StockSnapshot{}, fmt.Errorf("scan stock snapshot: %w", err)
	}

	var err error
	if s.VariantsStock, err = decodeVariantsStock(variantsStock); err != nil {
		return model.StockSnapshot{}, err
	}
	s.Stock = int(stock)

	return s, nil
}

func scanStockLevel(row rowScanner, variant *string) (model.StockLevel, error) {
	var (
		level        model.StockLevel
		stock        int32
		variantStock *int32
	)
	if err := row.Scan(&level.ProductID, &level.Name, &stock, &variantStock); err != nil {
		return model.StockLevel{}, err
	}

	level.Stock = int(stock)
	level.Variant = variant
	if variantStock != nil {
		n := int(*variantStock)
		level.VariantStock = &n
	}

	return level, nil
}

func productBodyArgs(body model.ProductBody) (pgx.NamedArgs, error) {
	price, err := floatToNumeric(body.Price)
	if err != nil {
		return nil, fmt.Errorf("convert price: %w", err)
	}
	originalPrice, err := floatPtrToNumeric(body.OriginalPrice)
	if err != nil {
		return nil, fmt.Errorf("convert original price: %w", err)
	}
	transferPrice, err := floatPtrToNumeric(body.TransferPrice)
	if err != nil {
		return nil, fmt.Errorf("convert transfer price: %w", err)
	}

	stock := body.EffectiveStock()
	if stock > math.MaxInt32 || stock < 0 {
		return nil, fmt.Errorf("stock out of range: %d", stock)
	}
	if body.DisplayOrder > math.MaxInt32 || body.DisplayOrder < math.MinInt32 {
		return nil, fmt.Errorf("display order out of range: %d", body.DisplayOrder)
	}

	var variantsStock []byte
	if body.VariantsStock != nil {
		if variantsStock, err = json.Marshal(body.VariantsStock); err != nil {
			return nil, fmt.Errorf("marshal variants stock: %w", err)
		}
	}

	return pgx.NamedArgs{
		"name":           body.Name,
		"description":    body.Description,
		"price":          price,
		"original_price": originalPrice,
		"transfer_price": transferPrice,
		"category_id":    body.CategoryID,
		"subcategory":    body.Subcategory,
		"images":         nonNil(body.Images),
		"sizes":          nonNil(body.Sizes),
		"colors":         nonNil(body.Colors),
		"stock":          int32(stock),
		"variants_stock": variantsStock,
		"is_bestseller":  body.IsBestseller,
		"is_new":         body.IsNew,
		"is_on_sale":     body.IsOnSale,
		"display_order":  int32(body.DisplayOrder),
	}, nil
}

func decodeVariantsStock(raw []byte) (map[string]int, error) {
	if raw == nil {
		return nil, nil
	}
	variants := map[string]int{}
	if err := json.Unmarshal(raw, &variants); err != nil {
		return nil, fmt.Errorf("unmarshal variants stock: %w", err)
	}
	return variants, nil
}

func floatToNumeric(f float64) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(strconv.FormatFloat(f, 'f', -1, 64)); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("scan numeric: %w", err)
	}
	return n, nil
}

func floatPtrToNumeric(f *float64) (pgtype.Numeric, error) {
	if f == nil {
		return pgtype.Numeric{}, nil
	}
	return floatToNumeric(*f)
}

func numericToFloat(n pgtype.Numeric) (float64, error) {
	f, err := n.Float64Value()
	if err != nil {
		return 0, err
	}
	return f.Float64, nil
}

func numericToFloatPtr(n pgtype.Numeric) (*float64, error) {
	if !n.Valid {
		return nil, nil
	}
	f, err := numericToFloat(n)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
