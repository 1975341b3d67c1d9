package http

import (
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/middleware"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/service"
)

type licenseHandler struct {
	inventorySvc service.InventoryService
}

func newLicenseHandler(inventorySvc service.InventoryService) *licenseHandler {
	return &licenseHandler{
		inventorySvc: inventorySvc,
	}
}

func (h *licenseHandler) GetLicenseUsage(w http.ResponseWriter, r *http.Request) error {
	usage, err := h.inventorySvc.GetLicenseUsage(r.Context(), middleware.StoreIDFromContext(r.Context()))
	if err != nil {
		return fmt.Errorf("inventory service get license usage: %w", err)
	}

	return writeJSON(w, http.StatusOK, usage)
}
