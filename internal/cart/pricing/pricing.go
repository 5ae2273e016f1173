// Package pricing holds the pure arithmetic for cart totals. All values are
// native float64 with no rounding; display rounding is the client's concern.
package pricing

import "shopcart/internal/cart/models"

// Subtotal prices one line: quantity times unit price.
func Subtotal(qty int, unitPrice float64) float64 {
	return float64(qty) * unitPrice
}

// Total sums line subtotals. Order-independent by construction.
func Total(items []models.LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal
	}
	return total
}

// Tax extracts the 20%-of-gross-inclusive tax component from a total.
func Tax(total float64) float64 {
	return total - total/1.2
}

// Reprice recomputes the cart's derived totals in place.
func Reprice(c *models.Cart) {
	c.Total = Total(c.Items)
	c.Tax = Tax(c.Total)
}
