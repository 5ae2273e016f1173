package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	carthandler "shopcart/internal/cart/handler"
	cartmetrics "shopcart/internal/cart/metrics"
	"shopcart/internal/cart/service"
	"shopcart/internal/cart/store"
	"shopcart/internal/catalogue"
	"shopcart/internal/platform/config"
	"shopcart/internal/platform/httpserver"
	"shopcart/internal/platform/logger"
	platformredis "shopcart/internal/platform/redis"
	httptransport "shopcart/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("invalid redis configuration", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// A down Redis at boot is tolerated: /ready gates traffic until it answers.
	if err := rdb.Health(context.Background()); err != nil {
		log.Warn("redis not reachable at startup", "error", err)
	}

	catalogueClient := catalogue.New(cfg.Catalogue)
	metrics := cartmetrics.New(prometheus.DefaultRegisterer)

	cartService, err := service.New(
		store.NewRedisCartStore(rdb.Client),
		catalogueClient,
		service.WithLogger(log),
		service.WithMetrics(metrics),
		service.WithTTL(cfg.CartTTL),
	)
	if err != nil {
		log.Error("build cart service", "error", err)
		os.Exit(1)
	}

	handler := carthandler.New(cartService, log)
	router := httptransport.NewRouter(handler, rdb, log)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting cart service", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
