package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"shopcart/internal/cart/metrics"
	"shopcart/internal/cart/models"
	"shopcart/internal/cart/store"
	"shopcart/internal/catalogue"
	dErrors "shopcart/pkg/domain-errors"
)

// stubCatalogue serves products from a fixed map; unknown SKUs signal
// product_not_found and an injected error simulates an unreachable catalogue.
type stubCatalogue struct {
	products map[string]catalogue.Product
	err      error
}

func (c *stubCatalogue) Lookup(ctx context.Context, sku string) (*catalogue.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[sku]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeProductNotFound, "product %s not found", sku)
	}
	return &p, nil
}

// brokenStore fails selected operations to exercise the unavailable paths.
type brokenStore struct {
	store.CartStore
	getErr    error
	setErr    error
	deleteErr error
	incrErr   error
}

func (s *brokenStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.CartStore.Get(ctx, key)
}

func (s *brokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.CartStore.Set(ctx, key, value, ttl)
}

func (s *brokenStore) Delete(ctx context.Context, key string) (bool, error) {
	if s.deleteErr != nil {
		return false, s.deleteErr
	}
	return s.CartStore.Delete(ctx, key)
}

func (s *brokenStore) Increment(ctx context.Context, key string) (int64, error) {
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	return s.CartStore.Increment(ctx, key)
}

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemoryCartStore
	catalogue *stubCatalogue
	metrics   *metrics.Metrics
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryCartStore()
	s.catalogue = &stubCatalogue{products: map[string]catalogue.Product{
		"SKU1": {SKU: "SKU1", Name: "Widget", Price: 10, InStock: true},
		"SKU2": {SKU: "SKU2", Name: "Gadget", Price: 33.33, InStock: true},
		"SOLD": {SKU: "SOLD", Name: "Popular", Price: 5, InStock: false},
	}}
	s.metrics = metrics.New(prometheus.NewRegistry())

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var err error
	s.service, err = New(s.store, s.catalogue,
		WithLogger(logger),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.catalogue)
		s.Error(err)
		s.Contains(err.Error(), "cart store is required")
	})

	s.Run("nil catalogue returns error", func() {
		_, err := New(s.store, nil)
		s.Error(err)
		s.Contains(err.Error(), "catalogue client is required")
	})
}

func (s *ServiceSuite) TestAddItemCreatesCart() {
	ctx := context.Background()

	cart, err := s.service.AddItem(ctx, "u1", "SKU1", 2)
	s.Require().NoError(err)

	s.Equal(20.0, cart.Total)
	total := 20.0
	s.Equal(total-total/1.2, cart.Tax)
	s.Require().Len(cart.Items, 1)
	s.Equal(models.LineItem{Qty: 2, SKU: "SKU1", Name: "Widget", Price: 10, Subtotal: 20}, cart.Items[0])

	s.Equal(2.0, testutil.ToFloat64(s.metrics.ItemsAdded))
}

func (s *ServiceSuite) TestAddItemMergesByKey() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 2)
	s.Require().NoError(err)

	cart, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
	s.Require().NoError(err)

	s.Require().Len(cart.Items, 1)
	s.Equal(3, cart.Items[0].Qty)
	s.Equal(30.0, cart.Items[0].Subtotal)
	s.Equal(30.0, cart.Total)
}

func (s *ServiceSuite) TestAddItemMergeUsesStoredPrice() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
	s.Require().NoError(err)

	// Catalogue price changes after the first add; the cart snapshot wins.
	s.catalogue.products["SKU1"] = catalogue.Product{SKU: "SKU1", Name: "Widget", Price: 99, InStock: true}

	cart, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
	s.Require().NoError(err)

	s.Require().Len(cart.Items, 1)
	s.Equal(10.0, cart.Items[0].Price)
	s.Equal(20.0, cart.Items[0].Subtotal)
}

func (s *ServiceSuite) TestAddItemValidation() {
	ctx := context.Background()

	s.Run("zero quantity", func() {
		_, err := s.service.AddItem(ctx, "u1", "SKU1", 0)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	s.Run("negative quantity", func() {
		_, err := s.service.AddItem(ctx, "u1", "SKU1", -3)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	s.Run("unknown product", func() {
		_, err := s.service.AddItem(ctx, "u1", "NOPE", 1)
		s.Equal(dErrors.CodeProductNotFound, dErrors.CodeOf(err))
	})

	s.Run("out of stock", func() {
		_, err := s.service.AddItem(ctx, "u1", "SOLD", 1)
		s.Equal(dErrors.CodeOutOfStock, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestAddItemCatalogueUnavailable() {
	ctx := context.Background()
	s.catalogue.err = dErrors.New(dErrors.CodeCatalogueUnavailable, "catalogue request failed")

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
	s.Equal(dErrors.CodeCatalogueUnavailable, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestAddItemStoreUnavailable() {
	ctx := context.Background()
	broken := &brokenStore{CartStore: s.store, getErr: context.DeadlineExceeded}
	svc, err := New(broken, s.catalogue)
	s.Require().NoError(err)

	_, err = svc.AddItem(ctx, "u1", "SKU1", 1)
	s.Equal(dErrors.CodeStoreUnavailable, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestUpdateItemOverwritesQuantity() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 2)
	s.Require().NoError(err)

	// Price change after the add must not affect the update.
	s.catalogue.products["SKU1"] = catalogue.Product{SKU: "SKU1", Name: "Widget", Price: 42, InStock: true}

	cart, err := s.service.UpdateItem(ctx, "u1", "SKU1", 5)
	s.Require().NoError(err)

	s.Require().Len(cart.Items, 1)
	s.Equal(5, cart.Items[0].Qty)
	s.Equal(50.0, cart.Items[0].Subtotal)
	s.Equal(50.0, cart.Total)
}

func (s *ServiceSuite) TestUpdateItemZeroRemoves() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 2)
	s.Require().NoError(err)

	cart, err := s.service.UpdateItem(ctx, "u1", "SKU1", 0)
	s.Require().NoError(err)
	s.Empty(cart.Items)
	s.Equal(0.0, cart.Total)
	s.Equal(0.0, cart.Tax)

	_, err = s.service.UpdateItem(ctx, "u1", "SKU1", 1)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestUpdateItemCountsIncreasesOnly() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 2)
	s.Require().NoError(err)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.ItemsAdded))

	_, err = s.service.UpdateItem(ctx, "u1", "SKU1", 5)
	s.Require().NoError(err)
	s.Equal(5.0, testutil.ToFloat64(s.metrics.ItemsAdded))

	_, err = s.service.UpdateItem(ctx, "u1", "SKU1", 1)
	s.Require().NoError(err)
	s.Equal(5.0, testutil.ToFloat64(s.metrics.ItemsAdded), "decreases do not count as added items")
}

func (s *ServiceSuite) TestUpdateItemErrors() {
	ctx := context.Background()

	s.Run("negative quantity", func() {
		_, err := s.service.UpdateItem(ctx, "u1", "SKU1", -1)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	s.Run("no cart", func() {
		_, err := s.service.UpdateItem(ctx, "ghost", "SKU1", 1)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	s.Run("sku not in cart", func() {
		_, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
		s.Require().NoError(err)

		_, err = s.service.UpdateItem(ctx, "u1", "SKU2", 1)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestSetShipping() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 2)
	s.Require().NoError(err)

	cart, err := s.service.SetShipping(ctx, "u1", Shipping{Distance: 120, Cost: 4.99, Location: "Berlin"})
	s.Require().NoError(err)

	idx := cart.Find(models.ShippingSKU)
	s.Require().GreaterOrEqual(idx, 0)
	s.Equal(1, cart.Items[idx].Qty)
	s.Equal("shipping to Berlin", cart.Items[idx].Name)
	s.Equal(4.99, cart.Items[idx].Subtotal)
	s.InDelta(24.99, cart.Total, 1e-9)
}

func (s *ServiceSuite) TestSetShippingReplacesExistingLine() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
	s.Require().NoError(err)

	_, err = s.service.SetShipping(ctx, "u1", Shipping{Distance: 120, Cost: 4.99, Location: "Berlin"})
	s.Require().NoError(err)

	cart, err := s.service.SetShipping(ctx, "u1", Shipping{Distance: 900, Cost: 9.99, Location: "Oslo"})
	s.Require().NoError(err)

	shippingLines := 0
	for _, item := range cart.Items {
		if item.SKU == models.ShippingSKU {
			shippingLines++
			s.Equal(9.99, item.Price)
			s.Equal("shipping to Oslo", item.Name)
		}
	}
	s.Equal(1, shippingLines)
	s.InDelta(19.99, cart.Total, 1e-9)
}

func (s *ServiceSuite) TestSetShippingErrors() {
	ctx := context.Background()

	s.Run("missing location", func() {
		_, err := s.service.SetShipping(ctx, "u1", Shipping{Distance: 1, Cost: 1})
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	s.Run("no cart", func() {
		_, err := s.service.SetShipping(ctx, "ghost", Shipping{Distance: 1, Cost: 1, Location: "Berlin"})
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestRenameMovesCart() {
	ctx := context.Background()

	added, err := s.service.AddItem(ctx, "anonymous-7", "SKU1", 2)
	s.Require().NoError(err)

	moved, err := s.service.Rename(ctx, "anonymous-7", "alice")
	s.Require().NoError(err)
	s.Equal(added, moved)

	_, err = s.service.Fetch(ctx, "anonymous-7")
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))

	fetched, err := s.service.Fetch(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(added, fetched)
}

func (s *ServiceSuite) TestRenameMissingSource() {
	ctx := context.Background()

	_, err := s.service.Rename(ctx, "ghost", "alice")
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestRenameToleratesDeleteFailure() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "anonymous-7", "SKU1", 2)
	s.Require().NoError(err)

	broken := &brokenStore{CartStore: s.store, deleteErr: context.DeadlineExceeded}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc, err := New(broken, s.catalogue, WithLogger(logger))
	s.Require().NoError(err)

	moved, err := svc.Rename(ctx, "anonymous-7", "alice")
	s.Require().NoError(err, "failed delete after a durable copy is not fatal")
	s.NotNil(moved)

	// The copy exists; the stale source is tolerated until TTL reaps it.
	_, err = s.service.Fetch(ctx, "alice")
	s.NoError(err)
	_, err = s.service.Fetch(ctx, "anonymous-7")
	s.NoError(err)
}

func (s *ServiceSuite) TestDeleteCart() {
	ctx := context.Background()

	_, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
	s.Require().NoError(err)

	s.NoError(s.service.Delete(ctx, "u1"))

	err = s.service.Delete(ctx, "u1")
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestFetchAbsent() {
	_, err := s.service.Fetch(context.Background(), "ghost")
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestFetchCorruptPayload() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "u1", []byte("garbage"), time.Hour))

	_, err := s.service.Fetch(ctx, "u1")
	s.Equal(dErrors.CodeDecodeError, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestAllocateAnonymousID() {
	ctx := context.Background()

	first, err := s.service.AllocateAnonymousID(ctx)
	s.Require().NoError(err)
	s.Equal("anonymous-1", first)

	second, err := s.service.AllocateAnonymousID(ctx)
	s.Require().NoError(err)
	s.Equal("anonymous-2", second)
}

// Concurrent adds on one identity must not lose updates: the engine holds a
// per-identity lock across each get-modify-set window.
func (s *ServiceSuite) TestConcurrentAddsDoNotLoseUpdates() {
	ctx := context.Background()
	const workers = 25

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.service.AddItem(ctx, "u1", "SKU1", 1)
			s.NoError(err)
		}()
	}
	wg.Wait()

	cart, err := s.service.Fetch(ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Equal(workers, cart.Items[0].Qty)
	s.Equal(float64(workers)*10, cart.Total)
}
