package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/repository"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
)

// QuotaEnforcer decides whether a store may create another product. It always works on the
// caller's transaction so the count it sees is the one the insert will be judged against.
type QuotaEnforcer interface {
	// GetUsage returns the usage snapshot of the store tx is bound to. A store without a
	// valid license reports no capacity.
	GetUsage(ctx context.Context, tx db.TenantDB) (model.LicenseUsage, error)
	// Approve returns apperr.NoLicenseErr or a *apperr.ProductLimitExceededError when the
	// store may not create a product.
	Approve(ctx context.Context, tx db.TenantDB) error
}

type quotaEnforcer struct {
	storeRepo   repository.StoreRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

func NewQuotaEnforcer(storeRepo repository.StoreRepository, productRepo repository.ProductRepository) QuotaEnforcer {
	return &quotaEnforcer{
		storeRepo:   storeRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

func (q *quotaEnforcer) GetUsage(ctx context.Context, tx db.TenantDB) (model.LicenseUsage, error) {
	license, ok, err := q.validLicense(ctx, tx)
	if err != nil {
		return model.LicenseUsage{}, err
	}

	count, err := q.productRepo.WithDB(tx).CountProducts(ctx)
	if err != nil {
		return model.LicenseUsage{}, fmt.Errorf("product repository count products: %w", err)
	}

	if !ok {
		return model.LicenseUsage{ProductCount: count}, nil
	}
	return model.NewLicenseUsage(license.MaxProducts, count), nil
}

func (q *quotaEnforcer) Approve(ctx context.Context, tx db.TenantDB) error {
	license, ok, err := q.validLicense(ctx, tx)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NoLicenseErr
	}
	if license.MaxProducts == nil {
		return nil
	}

	count, err := q.productRepo.WithDB(tx).CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("product repository count products: %w", err)
	}

	if count >= *license.MaxProducts {
		return &apperr.ProductLimitExceededError{Limit: *license.MaxProducts, Count: count}
	}

	return nil
}

func (q *quotaEnforcer) validLicense(ctx context.Context, tx db.TenantDB) (model.License, bool, error) {
	license, ok, err := q.storeRepo.WithDB(tx).GetLicense(ctx)
	if err != nil {
		return model.License{}, false, fmt.Errorf("store repository get license: %w", err)
	}
	if !ok || !license.ValidAt(q.now()) {
		return model.License{}, false, nil
	}
	return license, true, nil
}
