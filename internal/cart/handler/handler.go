// Package handler exposes the cart engine over HTTP. Routes mirror the
// storefront's existing contract, so mutating operations ride on GET with
// path parameters except shipping, which posts a JSON body.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shopcart/internal/cart/models"
	"shopcart/internal/cart/service"
	dErrors "shopcart/pkg/domain-errors"
	"shopcart/pkg/platform/httputil"
)

// Service defines the engine operations the handler depends on.
type Service interface {
	Fetch(ctx context.Context, identity string) (*models.Cart, error)
	Delete(ctx context.Context, identity string) error
	AddItem(ctx context.Context, identity, sku string, qty int) (*models.Cart, error)
	UpdateItem(ctx context.Context, identity, sku string, qty int) (*models.Cart, error)
	SetShipping(ctx context.Context, identity string, shipping service.Shipping) (*models.Cart, error)
	Rename(ctx context.Context, from, to string) (*models.Cart, error)
	AllocateAnonymousID(ctx context.Context) (string, error)
}

// Handler wires cart endpoints to the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a cart handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts cart endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cart/{id}", h.HandleFetch)
	r.Delete("/cart/{id}", h.HandleDelete)
	r.Get("/add/{id}/{sku}/{qty}", h.HandleAdd)
	r.Get("/update/{id}/{sku}/{qty}", h.HandleUpdate)
	r.Post("/shipping/{id}", h.HandleShipping)
	r.Get("/rename/{from}/{to}", h.HandleRename)
	r.Get("/uniqueid", h.HandleUniqueID)
}

func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Fetch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "fetch cart", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete cart", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	qty, err := parseQuantity(chi.URLParam(r, "qty"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sku"), qty)
	if err != nil {
		h.fail(w, r, "add item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	qty, err := parseQuantity(chi.URLParam(r, "qty"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cart, err := h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sku"), qty)
	if err != nil {
		h.fail(w, r, "update item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

// shippingRequest uses pointer fields so missing keys are distinguishable
// from zero values.
type shippingRequest struct {
	Distance *float64 `json:"distance"`
	Cost     *float64 `json:"cost"`
	Location *string  `json:"location"`
}

func (h *Handler) HandleShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.Distance == nil || req.Cost == nil || req.Location == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "shipping data missing"))
		return
	}

	cart, err := h.service.SetShipping(r.Context(), chi.URLParam(r, "id"), service.Shipping{
		Distance: *req.Distance,
		Cost:     *req.Cost,
		Location: *req.Location,
	})
	if err != nil {
		h.fail(w, r, "set shipping", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Rename(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to"))
	if err != nil {
		h.fail(w, r, "rename cart", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

func (h *Handler) HandleUniqueID(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.AllocateAnonymousID(r.Context())
	if err != nil {
		h.fail(w, r, "allocate anonymous id", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"uuid": id})
}

// fail logs server-side failures and writes the error envelope. Expected
// caller mistakes (not found, invalid input) are not worth log noise.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound, dErrors.CodeInvalidInput, dErrors.CodeProductNotFound, dErrors.CodeOutOfStock:
	default:
		h.logger.ErrorContext(r.Context(), op+" failed", "error", err)
	}
	httputil.WriteError(w, err)
}

func parseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "quantity must be a number")
	}
	return qty, nil
}
