// Package models defines the cart aggregate persisted in the cart store.
//
// The wire layout is the JSON document `{total, tax, items:[{qty, sku, name,
// price, subtotal}]}`; every field name is part of the persisted contract and
// must not change.
package models

import (
	"encoding/json"

	dErrors "shopcart/pkg/domain-errors"
)

// ShippingSKU is the reserved pseudo-SKU marking the shipping charge line.
const ShippingSKU = "SHIP"

// LineItem is one cart entry. Name and Price are a snapshot of catalogue data
// at the time the item was added; later repricing always uses the stored Price.
type LineItem struct {
	Qty      int     `json:"qty"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

// Cart holds the line items plus derived totals for one identity. At most one
// line item exists per SKU, including the shipping pseudo-item.
type Cart struct {
	Total float64    `json:"total"`
	Tax   float64    `json:"tax"`
	Items []LineItem `json:"items"`
}

// NewCart returns an empty cart ready for its first item.
func NewCart() *Cart {
	return &Cart{Items: []LineItem{}}
}

// Find returns the index of the line item with the given SKU, or -1.
func (c *Cart) Find(sku string) int {
	for i := range c.Items {
		if c.Items[i].SKU == sku {
			return i
		}
	}
	return -1
}

// Merge folds item into the cart by SKU: an existing line gains the new
// quantity and is repriced from its stored unit price, otherwise the item is
// appended as-is.
func (c *Cart) Merge(item LineItem) {
	if i := c.Find(item.SKU); i >= 0 {
		c.Items[i].Qty += item.Qty
		c.Items[i].Subtotal = c.Items[i].Price * float64(c.Items[i].Qty)
		return
	}
	c.Items = append(c.Items, item)
}

// Upsert replaces the line item sharing item's SKU, or appends when absent.
// Used for the shipping line, which is always overwritten wholesale.
func (c *Cart) Upsert(item LineItem) {
	if i := c.Find(item.SKU); i >= 0 {
		c.Items[i] = item
		return
	}
	c.Items = append(c.Items, item)
}

// RemoveAt drops the line item at index i.
func (c *Cart) RemoveAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// Encode serializes the cart into its persisted JSON form.
func Encode(c *Cart) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode cart")
	}
	return b, nil
}

// Decode parses persisted cart bytes. Corrupt bytes yield a decode_error so a
// single bad key fails one request instead of crashing the process.
func Decode(b []byte) (*Cart, error) {
	var c Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecodeError, "corrupt cart payload")
	}
	if c.Items == nil {
		c.Items = []LineItem{}
	}
	return &c, nil
}
