package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalogue item owned by exactly one store.
type Product struct {
	ID            int64          `json:"id"`
	StoreID       uuid.UUID      `json:"storeId"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         float64        `json:"price"`
	OriginalPrice *float64       `json:"originalPrice,omitempty"`
	TransferPrice *float64       `json:"transferPrice,omitempty"`
	CategoryID    *int64         `json:"categoryId,omitempty"`
	Subcategory   *string        `json:"subcategory,omitempty"`
	Images        []string       `json:"images"`
	Sizes         []string       `json:"sizes"`
	Colors        []string       `json:"colors"`
	Stock         int            `json:"stock"`
	VariantsStock map[string]int `json:"variantsStock,omitempty"`
	IsBestseller  bool           `json:"isBestseller"`
	IsNew         bool           `json:"isNew"`
	IsOnSale      bool           `json:"isOnSale"`
	DisplayOrder  int            `json:"displayOrder"`
	Views         int64          `json:"views"`
	Clicks        int64          `json:"clicks"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// TracksVariants reports whether stock is kept per variant label.
func (p Product) TracksVariants() bool {
	return p.VariantsStock != nil
}

// ProductBody holds every mutable product field; create and update both take the full set.
type ProductBody struct {
	Name          string         `json:"name" validate:"required,notblank,max=255"`
	Description   string         `json:"description" validate:"max=10000"`
	Price         float64        `json:"price" validate:"gte=0,lt=10000000000,cents"`
	OriginalPrice *float64       `json:"originalPrice" validate:"omitempty,gte=0,lt=10000000000,cents"`
	TransferPrice *float64       `json:"transferPrice" validate:"omitempty,gte=0,lt=10000000000,cents"`
	CategoryID    *int64         `json:"categoryId" validate:"omitempty,gt=0"`
	Subcategory   *string        `json:"subcategory" validate:"omitempty,notblank,max=120"`
	Images        []string       `json:"images" validate:"omitempty,max=50,dive,required,max=2048"`
	Sizes         []string       `json:"sizes" validate:"omitempty,unique,dive,label,max=40"`
	Colors        []string       `json:"colors" validate:"omitempty,unique,dive,label,max=40"`
	Stock         int            `json:"stock" validate:"gte=0,lte=2147483647"`
	VariantsStock map[string]int `json:"variantsStock" validate:"omitempty,dive,keys,label,max=80,endkeys,gte=0,lte=2147483647"`
	IsBestseller  bool           `json:"isBestseller"`
	IsNew         bool           `json:"isNew"`
	IsOnSale      bool           `json:"isOnSale"`
	DisplayOrder  int            `json:"displayOrder"`
}

// EffectiveStock is the stock value that gets stored for b: the sum of the variant
// counts when variants are supplied, otherwise the scalar Stock.
func (b ProductBody) EffectiveStock() int {
	if b.VariantsStock == nil {
		return b.Stock
	}
	total := 0
	for _, n := range b.VariantsStock {
		total += n
	}
	return total
}

// ListProductsFilter narrows a product listing. Nil fields do not filter.
type ListProductsFilter struct {
	CategoryID  *int64
	Subcategory *string
	Limit       int
	Offset      int
}

// ProductPage is one page of a listing plus the total number of matching rows.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
