package model

import (
	"time"

	"github.com/google/uuid"
)

// License is the billing-maintained record that caps a store's catalogue size.
type License struct {
	StoreID     uuid.UUID
	MaxProducts *int
	ExpiresAt   *time.Time
}

// ValidAt reports whether the license is usable at t.
func (l License) ValidAt(t time.Time) bool {
	return l.ExpiresAt == nil || t.Before(*l.ExpiresAt)
}

// LicenseUsage is computed on demand and never stored.
type LicenseUsage struct {
	MaxProducts      *int `json:"maxProducts"`
	ProductCount     int  `json:"productCount"`
	CanCreateProduct bool `json:"canCreateProduct"`
}

// NewLicenseUsage derives the usage snapshot for a product count under maxProducts (nil = unlimited).
func NewLicenseUsage(maxProducts *int, productCount int) LicenseUsage {
	return LicenseUsage{
		MaxProducts:      maxProducts,
		ProductCount:     productCount,
		CanCreateProduct: maxProducts == nil || productCount < *maxProducts,
	}
}

// Store holds the tenant's contact details used for notifications.
type Store struct {
	ID           uuid.UUID
	Name         string
	ContactEmail *string
}
