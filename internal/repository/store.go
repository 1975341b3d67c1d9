package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
)

// StoreRepository reads the store-level records of the store its handle is bound to.
// Both tables are owned by other systems; this service never writes them.
type StoreRepository interface {
	WithDB(tx db.TenantDB) StoreRepository
	// GetStore returns false when the store does not exist.
	GetStore(ctx context.Context) (model.Store, bool, error)
	// GetLicense returns false when the store has no license row.
	GetLicense(ctx context.Context) (model.License, bool, error)
}

type storeRepository struct {
	db db.TenantDB
}

// NewStoreRepository returns an unbound repository; bind it with WithDB before use.
func NewStoreRepository() StoreRepository {
	return &storeRepository{}
}

func (r storeRepository) WithDB(tx db.TenantDB) StoreRepository {
	return &storeRepository{db: tx}
}

func (r storeRepository) GetStore(ctx context.Context) (model.Store, bool, error) {
	var store model.Store
	err := r.db.QueryRow(ctx, `
		SELECT id, name, contact_email
		FROM stores
		WHERE id = $1
	`, r.db.StoreID()).Scan(&store.ID, &store.Name, &store.ContactEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Store{}, false, nil
	}
	if err != nil {
		return model.Store{}, false, fmt.Errorf("get store: %w", err)
	}

	return store, true, nil
}

func (r storeRepository) GetLicense(ctx context.Context) (model.License, bool, error) {
	var (
		license     model.License
		maxProducts *int32
	)
	err := r.db.QueryRow(ctx, `
		SELECT store_id, max_products, expires_at
		FROM store_licenses
		WHERE store_id = $1
	`, r.db.StoreID()).Scan(&license.StoreID, &maxProducts, &license.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.License{}, false, nil
	}
	if err != nil {
		return model.License{}, false, fmt.Errorf("get license: %w", err)
	}

	if maxProducts != nil {
		n := int(*maxProducts)
		license.MaxProducts = &n
	}

	return license, true, nil
}
