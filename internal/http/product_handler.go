package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/apierr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/middleware"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/service"
)

type productHandler struct {
	inventorySvc service.InventoryService
}

func newProductHandler(inventorySvc service.InventoryService) *productHandler {
	return &productHandler{
		inventorySvc: inventorySvc,
	}
}

type listProductsParams struct {
	CategoryID  *int64
	Subcategory *string
	Limit       *int
	Offset      *int
}

func bindListProductsParams(r *http.Request) (listProductsParams, error) {
	var params listProductsParams
	query := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"categoryId", &params.CategoryID},
		{"subcategory", &params.Subcategory},
		{"limit", &params.Limit},
		{"offset", &params.Offset},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			return params, &apierr.RequestError{Param: b.name, Err: err}
		}
	}

	return params, nil
}

func bindProductID(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return 0, &apierr.RequestError{Param: "id", Err: err}
	}
	return id, nil
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	params, err := bindListProductsParams(r)
	if err != nil {
		return err
	}

	filter := model.ListProductsFilter{
		CategoryID:  params.CategoryID,
		Subcategory: params.Subcategory,
	}
	if params.Limit != nil {
		filter.Limit = *params.Limit
	}
	if params.Offset != nil {
		filter.Offset = *params.Offset
	}

	page, err := h.inventorySvc.ListProducts(r.Context(), middleware.StoreIDFromContext(r.Context()), filter)
	if err != nil {
		return fmt.Errorf("inventory service list products: %w", err)
	}

	return writeJSON(w, http.StatusOK, page)
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := bindProductID(r)
	if err != nil {
		return err
	}

	product, err := h.inventorySvc.GetProduct(r.Context(), middleware.StoreIDFromContext(r.Context()), id)
	if err != nil {
		return fmt.Errorf("inventory service get product: %w", err)
	}

	return writeJSON(w, http.StatusOK, product)
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	var body model.ProductBody
	if err := decodeJSON(r, &body); err != nil {
		return err
	}

	product, err := h.inventorySvc.CreateProduct(r.Context(), middleware.StoreIDFromContext(r.Context()), body)
	if err != nil {
		return fmt.Errorf("inventory service create product: %w", err)
	}

	return writeJSON(w, http.StatusCreated, product)
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := bindProductID(r)
	if err != nil {
		return err
	}

	var body model.ProductBody
	if err := decodeJSON(r, &body); err != nil {
		return err
	}

	product, err := h.inventorySvc.UpdateProduct(r.Context(), middleware.StoreIDFromContext(r.Context()), id, body)
	if err != nil {
		return fmt.Errorf("inventory service update product: %w", err)
	}

	return writeJSON(w, http.StatusOK, product)
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := bindProductID(r)
	if err != nil {
		return err
	}

	deleted, err := h.inventorySvc.DeleteProduct(r.Context(), middleware.StoreIDFromContext(r.Context()), id)
	if err != nil {
		return fmt.Errorf("inventory service delete product: %w", err)
	}
	if !deleted {
		return apperr.ProductNotFoundErr
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
