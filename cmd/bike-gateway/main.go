package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/prudhivi99/bike-store/internal/config"
	"github.com/prudhivi99/bike-store/internal/discovery"
	"github.com/prudhivi99/bike-store/internal/gateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var resolver gateway.Resolver
	if cfg.Consul.Enabled {
		consul, err := discovery.NewConsulClient(cfg.Consul.Addr)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Consul, using %s: %v", cfg.Gateway.Upstream, err)
		} else {
			resolver = consul
		}
	}

	gw := gateway.New(resolver, cfg.ServiceName, cfg.Gateway.Upstream)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:           gw.Router(true),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	if resolver != nil {
		group.Go(func() error {
			gw.Watch(ctx, cfg.Gateway.Refresh)
			return nil
		})
	}

	group.Go(func() error {
		log.Printf("🚀 Bike gateway starting on http://0.0.0.0%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start gateway: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Printf("❌ %v", err)
	}
	log.Println("👋 Bike gateway stopped")
}
