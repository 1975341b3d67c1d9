package http

import (
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/middleware"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/model"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/service"
)

type stockHandler struct {
	inventorySvc service.InventoryService
}

func newStockHandler(inventorySvc service.InventoryService) *stockHandler {
	return &stockHandler{
		inventorySvc: inventorySvc,
	}
}

type stockItemsRequest struct {
	Items []model.StockItem `json:"items"`
}

type restoreStockResponse struct {
	Levels []model.StockLevel `json:"levels"`
}

// CheckStock, DecrementStock and BatchDecrementStock answer 200 for every outcome; the body says
// whether stock was sufficient or applied.
func (h *stockHandler) CheckStock(w http.ResponseWriter, r *http.Request) error {
	var req stockItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.inventorySvc.CheckStock(r.Context(), middleware.StoreIDFromContext(r.Context()), req.Items)
	if err != nil {
		return fmt.Errorf("inventory service check stock: %w", err)
	}

	return writeJSON(w, http.StatusOK, result)
}

func (h *stockHandler) DecrementStock(w http.ResponseWriter, r *http.Request) error {
	var item model.StockItem
	if err := decodeJSON(r, &item); err != nil {
		return err
	}

	result, err := h.inventorySvc.DecrementStock(r.Context(), middleware.StoreIDFromContext(r.Context()), item)
	if err != nil {
		return fmt.Errorf("inventory service decrement stock: %w", err)
	}

	return writeJSON(w, http.StatusOK, struct {
		Applied bool `json:"applied"`
		model.DecrementResult
	}{result.Applied(), result})
}

func (h *stockHandler) BatchDecrementStock(w http.ResponseWriter, r *http.Request) error {
	var req stockItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.inventorySvc.BatchDecrementStock(r.Context(), middleware.StoreIDFromContext(r.Context()), req.Items)
	if err != nil {
		return fmt.Errorf("inventory service batch decrement stock: %w", err)
	}

	return writeJSON(w, http.StatusOK, result)
}

func (h *stockHandler) RestoreStock(w http.ResponseWriter, r *http.Request) error {
	var req stockItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	levels, err := h.inventorySvc.RestoreStock(r.Context(), middleware.StoreIDFromContext(r.Context()), req.Items)
	if err != nil {
		return fmt.Errorf("inventory service restore stock: %w", err)
	}
	if levels == nil {
		levels = []model.StockLevel{}
	}

	return writeJSON(w, http.StatusOK, restoreStockResponse{Levels: levels})
}
