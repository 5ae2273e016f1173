// Package service implements the cart mutation engine. Every operation is a
// load → validate → mutate → reprice → persist sequence against the cart
// store, serialized per identity by a keyed mutex.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shopcart/internal/cart/metrics"
	"shopcart/internal/cart/models"
	"shopcart/internal/cart/pricing"
	"shopcart/internal/cart/store"
	"shopcart/internal/catalogue"
	dErrors "shopcart/pkg/domain-errors"
)

// anonymousCounterKey tracks anonymous-identity allocation in the shared store.
const anonymousCounterKey = "anonymous-counter"

// Catalogue is the product lookup capability consumed by AddItem.
type Catalogue interface {
	Lookup(ctx context.Context, sku string) (*catalogue.Product, error)
}

// Shipping carries the caller-supplied shipping parameters. Distance is
// accepted but not part of the cost formula; cost is whatever the shipping
// calculator quoted.
type Shipping struct {
	Distance float64
	Cost     float64
	Location string
}

// Service is the cart mutation engine.
type Service struct {
	store     store.CartStore
	catalogue Catalogue
	metrics   *metrics.Metrics
	logger    *slog.Logger
	ttl       time.Duration
	locks     *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTTL overrides the sliding expiration applied on every cart write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// New constructs the engine. Store and catalogue are required capabilities.
func New(cartStore store.CartStore, cat Catalogue, opts ...Option) (*Service, error) {
	if cartStore == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalogue client is required")
	}

	svc := &Service{
		store:     cartStore,
		catalogue: cat,
		logger:    slog.Default(),
		ttl:       3600 * time.Second,
		locks:     newKeyedMutex(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Fetch loads the cart for identity. Absent keys signal not_found.
func (s *Service) Fetch(ctx context.Context, identity string) (*models.Cart, error) {
	defer s.observe("fetch", time.Now())

	return s.load(ctx, identity)
}

// Delete removes the cart for identity, signalling not_found when no cart
// existed.
func (s *Service) Delete(ctx context.Context, identity string) error {
	defer s.observe("delete", time.Now())

	unlock := s.locks.Lock(identity)
	defer unlock()

	existed, err := s.store.Delete(ctx, identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "delete cart")
	}
	if !existed {
		return dErrors.New(dErrors.CodeNotFound, "cart not found")
	}
	return nil
}

// AddItem resolves sku against the catalogue and merges it into the cart,
// creating the cart when this is the identity's first item. Quantities merge
// by key: an existing line keeps its stored unit price and gains qty.
func (s *Service) AddItem(ctx context.Context, identity, sku string, qty int) (*models.Cart, error) {
	defer s.observe("add_item", time.Now())

	if qty < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "quantity has to be greater than zero")
	}

	product, err := s.catalogue.Lookup(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, dErrors.Newf(dErrors.CodeOutOfStock, "product %s is out of stock", sku)
	}

	unlock := s.locks.Lock(identity)
	defer unlock()

	cart, err := s.load(ctx, identity)
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeNotFound {
			return nil, err
		}
		// First item for this identity creates the cart implicitly.
		cart = models.NewCart()
	}

	cart.Merge(models.LineItem{
		Qty:      qty,
		SKU:      sku,
		Name:     product.Name,
		Price:    product.Price,
		Subtotal: pricing.Subtotal(qty, product.Price),
	})
	pricing.Reprice(cart)

	if err := s.persist(ctx, identity, cart); err != nil {
		return nil, err
	}

	s.metrics.AddItems(qty)
	return cart, nil
}

// UpdateItem overwrites the quantity of an existing line item, repricing from
// the item's stored unit price. A zero quantity removes the line entirely.
func (s *Service) UpdateItem(ctx context.Context, identity, sku string, qty int) (*models.Cart, error) {
	defer s.observe("update_item", time.Now())

	if qty < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "negative quantity not allowed")
	}

	unlock := s.locks.Lock(identity)
	defer unlock()

	cart, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}

	idx := cart.Find(sku)
	if idx < 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "%s not in cart", sku)
	}

	if qty == 0 {
		cart.RemoveAt(idx)
	} else {
		if delta := qty - cart.Items[idx].Qty; delta > 0 {
			s.metrics.AddItems(delta)
		}
		cart.Items[idx].Qty = qty
		cart.Items[idx].Subtotal = pricing.Subtotal(qty, cart.Items[idx].Price)
	}
	pricing.Reprice(cart)

	if err := s.persist(ctx, identity, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetShipping attaches the shipping charge as a line under the reserved SKU,
// replacing any previous shipping line so it never duplicates.
func (s *Service) SetShipping(ctx context.Context, identity string, shipping Shipping) (*models.Cart, error) {
	defer s.observe("set_shipping", time.Now())

	if shipping.Location == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "shipping data missing")
	}

	unlock := s.locks.Lock(identity)
	defer unlock()

	cart, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}

	cart.Upsert(models.LineItem{
		Qty:      1,
		SKU:      models.ShippingSKU,
		Name:     "shipping to " + shipping.Location,
		Price:    shipping.Cost,
		Subtotal: shipping.Cost,
	})
	pricing.Reprice(cart)

	if err := s.persist(ctx, identity, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Rename migrates a cart across identities, e.g. anonymous session to
// registered user at login. The copy must be durable before the old key is
// deleted; a failed delete leaves tolerated stale state that expires via TTL.
func (s *Service) Rename(ctx context.Context, from, to string) (*models.Cart, error) {
	defer s.observe("rename", time.Now())

	// Lock both identities in a stable order so crossed renames cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	unlockFirst := s.locks.Lock(first)
	defer unlockFirst()
	if first != second {
		unlockSecond := s.locks.Lock(second)
		defer unlockSecond()
	}

	cart, err := s.load(ctx, from)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, to, cart); err != nil {
		return nil, err
	}

	if _, err := s.store.Delete(ctx, from); err != nil {
		// The copy already succeeded; the stale source key will expire.
		s.logger.WarnContext(ctx, "rename: delete of source cart failed",
			"from", from, "to", to, "error", err)
	}
	return cart, nil
}

// AllocateAnonymousID hands out the next anonymous session identity from the
// shared counter.
func (s *Service) AllocateAnonymousID(ctx context.Context) (string, error) {
	defer s.observe("uniqueid", time.Now())

	n, err := s.store.Increment(ctx, anonymousCounterKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "allocate anonymous id")
	}
	return fmt.Sprintf("anonymous-%d", n), nil
}

// load fetches and decodes the cart for identity, signalling not_found for
// absent keys and store_unavailable for connectivity failures.
func (s *Service) load(ctx context.Context, identity string) (*models.Cart, error) {
	raw, found, err := s.store.Get(ctx, identity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "load cart")
	}
	if !found {
		return nil, dErrors.New(dErrors.CodeNotFound, "cart not found")
	}
	return models.Decode(raw)
}

// persist encodes and writes the cart under identity with a fresh TTL.
func (s *Service) persist(ctx context.Context, identity string, cart *models.Cart) error {
	raw, err := models.Encode(cart)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, identity, raw, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "save cart")
	}
	return nil
}

func (s *Service) observe(operation string, start time.Time) {
	s.metrics.ObserveOperation(operation, time.Since(start))
}
