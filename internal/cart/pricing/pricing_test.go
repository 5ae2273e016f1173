package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shopcart/internal/cart/models"
)

func TestSubtotal(t *testing.T) {
	assert.Equal(t, 20.0, Subtotal(2, 10))
	assert.Equal(t, 0.0, Subtotal(0, 9.99))

	price := 33.33
	assert.Equal(t, 3*price, Subtotal(3, price))
}

func TestTax(t *testing.T) {
	// The formula is total minus total divided by 1.2, exactly, with no rounding.
	for _, total := range []float64{0, 100, 33.33} {
		assert.Equal(t, total-total/1.2, Tax(total), "total %v", total)
	}
}

func TestTotalIsOrderIndependent(t *testing.T) {
	// Binary-exact subtotals so reordering cannot perturb the sum.
	items := []models.LineItem{
		{SKU: "SKU1", Qty: 2, Price: 10, Subtotal: 20},
		{SKU: "SKU2", Qty: 1, Price: 33.25, Subtotal: 33.25},
		{SKU: "SHIP", Qty: 1, Price: 4.5, Subtotal: 4.5},
	}
	reversed := []models.LineItem{items[2], items[1], items[0]}

	assert.Equal(t, Total(items), Total(reversed))
	assert.Equal(t, 57.75, Total(items))
}

func TestTotalEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Total(nil))
}

func TestReprice(t *testing.T) {
	cart := &models.Cart{Items: []models.LineItem{
		{SKU: "SKU1", Qty: 2, Price: 10, Subtotal: 20},
	}}
	Reprice(cart)
	assert.Equal(t, 20.0, cart.Total)
	assert.Equal(t, cart.Total-cart.Total/1.2, cart.Tax)
}
