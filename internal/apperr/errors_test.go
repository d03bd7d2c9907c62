package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	template := NotFound("Product.NotFound", "product not found")
	specific := NotFound("Product.NotFound", "product 42 not found")

	assert.ErrorIs(t, specific, template)
	assert.NotErrorIs(t, specific, NotFound("Order.NotFound", "order not found"))
}

func TestFromUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", Conflict("Cart.Empty", "cart is empty"))

	e, ok := From(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindConflict, e.Kind)

	_, ok = From(errors.New("plain"))
	assert.False(t, ok)
}
