package model

import "fmt"

// StockItem asks for Quantity units of a product, or of one of its variants when Variant is set.
type StockItem struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"gt=0,lte=2147483647"`
	Variant   *string `json:"variant,omitempty" validate:"omitempty,label"`
}

func (i StockItem) String() string {
	if i.Variant != nil {
		return fmt.Sprintf("%d[%s]x%d", i.ProductID, *i.Variant, i.Quantity)
	}
	return fmt.Sprintf("%dx%d", i.ProductID, i.Quantity)
}

// DecrementOutcome is the terminal state of a stock decrement request.
type DecrementOutcome uint8

const (
	DecrementApplied DecrementOutcome = iota
	DecrementInsufficientStock
	DecrementNotFound
)

func (o DecrementOutcome) String() string {
	switch o {
	case DecrementApplied:
		return "APPLIED"
	case DecrementInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case DecrementNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

func (o DecrementOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// StockLevel is a product's stock right after a mutation was applied.
type StockLevel struct {
	ProductID    int64   `json:"productId"`
	Name         string  `json:"name"`
	Variant      *string `json:"variant,omitempty"`
	Stock        int     `json:"stock"`
	VariantStock *int    `json:"variantStock,omitempty"`
}

// DecrementResult reports a single-item decrement.
type DecrementResult struct {
	Outcome DecrementOutcome `json:"outcome"`
	// Level is set only when the decrement was applied.
	Level *StockLevel `json:"level,omitempty"`
}

func (r DecrementResult) Applied() bool {
	return r.Outcome == DecrementApplied
}

// BatchFailure names one batch row whose precondition did not hold.
type BatchFailure struct {
	ProductID int64            `json:"productId"`
	Variant   *string          `json:"variant,omitempty"`
	Outcome   DecrementOutcome `json:"outcome"`
	Requested int              `json:"requested"`
	Available int              `json:"available"`
}

// BatchDecrementResult reports a batch decrement, which applies entirely or not at all.
type BatchDecrementResult struct {
	Applied  bool           `json:"applied"`
	Levels   []StockLevel   `json:"levels,omitempty"`
	Failures []BatchFailure `json:"failures,omitempty"`
}

// ItemAvailability is the per-item part of a stock check.
type ItemAvailability struct {
	ProductID  int64   `json:"productId"`
	Variant    *string `json:"variant,omitempty"`
	Requested  int     `json:"requested"`
	Available  int     `json:"available"`
	Found      bool    `json:"found"`
	Sufficient bool    `json:"sufficient"`
}

// StockCheckResult is advisory; it reserves nothing.
type StockCheckResult struct {
	Valid  bool               `json:"valid"`
	Errors []string           `json:"errors"`
	Items  []ItemAvailability `json:"items"`
}

// StockSnapshot is the stock state of one product as read for availability checks.
type StockSnapshot struct {
	ProductID     int64
	Name          string
	Stock         int
	VariantsStock map[string]int
}

// Available returns how many units of the addressed stock cell can be taken and whether the
// cell exists. A variant-tracked product has no product-level cell, and a variant label the
// product does not track names no cell. For a variant the product total also caps the result.
func (s StockSnapshot) Available(variant *string) (int, bool) {
	if variant == nil {
		if s.VariantsStock != nil {
			return 0, false
		}
		return s.Stock, true
	}

	n, ok := s.VariantsStock[*variant]
	if !ok {
		return 0, false
	}
	return min(n, s.Stock), true
}
