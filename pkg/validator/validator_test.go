package validator

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type line struct {
	ProductID uuid.UUID       `validate:"uuid_required"`
	Quantity  float64         `validate:"gt=0"`
	Price     decimal.Decimal `validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	ok := line{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromFloat(2.5)}
	assert.Empty(t, ValidateStruct(ok))
	assert.NoError(t, Check(ok))

	bad := line{Quantity: 1, Price: decimal.NewFromInt(1)}
	errs := ValidateStruct(bad)
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "line.ProductID", errs[0].FailedField)
		assert.Equal(t, "uuid_required", errs[0].Tag)
	}
}

func TestDecimalComparedAsNumber(t *testing.T) {
	neg := line{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(-3)}
	err := Check(neg)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "Price")
		assert.Contains(t, err.Error(), "gte")
	}
}

func TestCheckWrapsSentinel(t *testing.T) {
	err := Check(line{Quantity: 0, ProductID: uuid.New()})
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, errors.Is(Fail("Key", "required"), ErrValidation))
	assert.EqualError(t, Fail("Key", "required"), "validation failed: field 'Key' failed on tag 'required'")
}
