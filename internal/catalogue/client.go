// Package catalogue provides the client for the remote product catalogue.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"shopcart/internal/platform/config"
	dErrors "shopcart/pkg/domain-errors"
)

// Product is a snapshot of catalogue data for one SKU.
type Product struct {
	SKU     string
	Name    string
	Price   float64
	InStock bool
}

// wireProduct matches the catalogue's JSON payload; instock is numeric there.
type wireProduct struct {
	SKU     string  `json:"sku"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	InStock int     `json:"instock"`
}

// Client looks up products over HTTP. It holds no state beyond the connection
// pool and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a catalogue client from config.
func New(cfg config.CatalogueConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Lookup resolves a SKU to its current product snapshot. A catalogue 404 maps
// to product_not_found; any transport failure or unexpected status maps to
// catalogue_unavailable. No retries: the caller decides.
func (c *Client) Lookup(ctx context.Context, sku string) (*Product, error) {
	url := fmt.Sprintf("%s/product/%s", c.baseURL, sku)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build catalogue request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCatalogueUnavailable, "catalogue request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, dErrors.Newf(dErrors.CodeProductNotFound, "product %s not found", sku)
	case resp.StatusCode != http.StatusOK:
		return nil, dErrors.Newf(dErrors.CodeCatalogueUnavailable, "catalogue returned status %d", resp.StatusCode)
	}

	var wire wireProduct
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCatalogueUnavailable, "decode catalogue response")
	}

	return &Product{
		SKU:     wire.SKU,
		Name:    wire.Name,
		Price:   wire.Price,
		InStock: wire.InStock > 0,
	}, nil
}
