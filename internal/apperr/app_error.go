package apperr

import (
	"fmt"

	"github.com/tuanvumaihuynh/tenant-inventory/pkg/zerror"
)

const (
	ValidationErrorCode           = "VALIDATION_FAILED"
	ProductNotFoundErrorCode      = "PRODUCT_NOT_FOUND"
	NoLicenseErrorCode            = "NO_LICENSE"
	ProductLimitExceededErrorCode = "PRODUCT_LIMIT_EXCEEDED"
	ConcurrentWriteErrorCode      = "CONCURRENT_WRITE"
	InvalidStoreIDErrorCode       = "INVALID_STORE_ID"
)

var (
	ValidationErr = zerror.NewValidationFailed(ValidationErrorCode, "validation error")

	// ProductNotFoundErr is returned for ids that are absent or belong to another store;
	// the two cases are indistinguishable to the caller.
	ProductNotFoundErr      = zerror.NewNotFound(ProductNotFoundErrorCode, "product not found")
	NoLicenseErr            = zerror.NewForbidden(NoLicenseErrorCode, "store has no valid license")
	ProductLimitExceededErr = zerror.NewUnprocessableEntity(ProductLimitExceededErrorCode, "product limit exceeded")
	ConcurrentWriteErr      = zerror.NewConflict(ConcurrentWriteErrorCode, "concurrent write, retry the request")
	InvalidStoreIDErr       = zerror.NewBadRequest(InvalidStoreIDErrorCode, "invalid store id")
)

// ProductLimitExceededError carries the license limit and the product count at the time of
// the rejected create.
type ProductLimitExceededError struct {
	Limit int
	Count int
}

func (e *ProductLimitExceededError) Error() string {
	return fmt.Sprintf("product limit exceeded: %d of %d products used", e.Count, e.Limit)
}

// Unwrap exposes the ZError so HTTP mapping and errors.Is treat it like any other app error.
func (e *ProductLimitExceededError) Unwrap() error {
	return ProductLimitExceededErr.WithMsg(
		fmt.Sprintf("product limit of %d reached (%d products)", e.Limit, e.Count),
	)
}
