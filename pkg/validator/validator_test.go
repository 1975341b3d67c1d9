package validator_test

import (
	"errors"
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/tenant-inventory/pkg/ptr"
	"github.com/tuanvumaihuynh/tenant-inventory/pkg/validator"
)

type sample struct {
	Name     string         `json:"name" validate:"required,notblank"`
	Sizes    []string       `json:"sizes" validate:"omitempty,dive,label"`
	Variants map[string]int `json:"variantsStock" validate:"omitempty,dive,keys,label,endkeys,gte=0"`
	Price    *float64       `json:"price" validate:"omitempty,lt=10000000000,cents"`
}

func TestDefaultValidator(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	t.Run("Should accept a valid struct", func(t *testing.T) {
		err := v.Validate(sample{Name: "Tee", Sizes: []string{"M", "XL"}, Variants: map[string]int{"M": 2}})
		assert.NoError(t, err)
	})

	t.Run("Should reject blank names with json field name", func(t *testing.T) {
		err := v.Validate(sample{Name: "   "})
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))

		var verrs govalidator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, "name", verrs[0].Field())
		assert.Equal(t, "must not be blank", validator.ValidationErrorMessage(verrs[0]))
	})

	t.Run("Should reject negative variant counts", func(t *testing.T) {
		err := v.Validate(sample{Name: "Tee", Variants: map[string]int{"M": -1}})
		assert.Error(t, err)
	})

	t.Run("Should reject labels with surrounding spaces", func(t *testing.T) {
		err := v.Validate(sample{Name: "Tee", Sizes: []string{" M"}})
		assert.Error(t, err)
	})

	t.Run("Should accept prices with at most two decimals", func(t *testing.T) {
		for _, p := range []float64{0, 9.9, 9.99, 9999999999.99} {
			assert.NoError(t, v.Validate(sample{Name: "Tee", Price: ptr.New(p)}), p)
		}
	})

	t.Run("Should reject prices the store would round or overflow", func(t *testing.T) {
		for _, p := range []float64{9.999, 0.001, 10000000000} {
			err := v.Validate(sample{Name: "Tee", Price: ptr.New(p)})
			require.Error(t, err, p)

			var verrs govalidator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, "price", verrs[0].Field())
		}
	})
}
