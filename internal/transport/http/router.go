// Package httptransport assembles the service's full HTTP surface: cart
// routes, health and readiness probes, and the Prometheus scrape endpoint.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	carthandler "shopcart/internal/cart/handler"
	"shopcart/internal/platform/middleware"
	"shopcart/pkg/platform/httputil"
)

// Pinger reports backing-store connectivity for the probes.
type Pinger interface {
	Health(ctx context.Context) error
}

// NewRouter wires all endpoints.
func NewRouter(h *carthandler.Handler, storePing Pinger, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"app":   "OK",
			"redis": storeUp(req.Context(), storePing),
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if !storeUp(req.Context(), storePing) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		_, _ = w.Write([]byte("ready"))
	})

	h.Register(r)
	return r
}

func storeUp(ctx context.Context, p Pinger) bool {
	return p != nil && p.Health(ctx) == nil
}
