package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/http/apierr"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/log"
)

// StoreIDHeader names the tenant of a request. It is set by the route layer in front of this service.
const StoreIDHeader = "X-Store-ID"

type storeIDKey struct{}

// StoreID reads the tenant from StoreIDHeader. A missing header yields uuid.Nil, which reads
// as an empty store; a malformed one is rejected.
func StoreID() func(http.Handler) http.Handler {
	res := apierr.New(apperr.InvalidStoreIDErr)
	errorMsg, err := json.Marshal(res)
	if err != nil {
		panic(err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			storeID := uuid.Nil
			if raw := r.Header.Get(StoreIDHeader); raw != "" {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(res.StatusCode)
					//nolint:errcheck
					w.Write(errorMsg)
					return
				}
				storeID = parsed
			}

			ctx := context.WithValue(r.Context(), storeIDKey{}, storeID)
			if storeID != uuid.Nil {
				ctx = log.WithStoreID(ctx, storeID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StoreIDFromContext returns the tenant bound by StoreID, or uuid.Nil.
func StoreIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(storeIDKey{}).(uuid.UUID)
	return id
}
