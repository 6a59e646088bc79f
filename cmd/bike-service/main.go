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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/prudhivi99/bike-store/internal/cache"
	"github.com/prudhivi99/bike-store/internal/config"
	"github.com/prudhivi99/bike-store/internal/consumer"
	"github.com/prudhivi99/bike-store/internal/db"
	"github.com/prudhivi99/bike-store/internal/discovery"
	"github.com/prudhivi99/bike-store/internal/handlers"
	"github.com/prudhivi99/bike-store/internal/messaging"
	"github.com/prudhivi99/bike-store/internal/publisher"
	"github.com/prudhivi99/bike-store/internal/service"
	"github.com/prudhivi99/bike-store/internal/telemetry"
)

const serviceVersion = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: serviceVersion,
		Exporter:       telemetry.Exporter(cfg.Tracing.Exporter),
		Endpoint:       cfg.Tracing.Endpoint,
	})
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("⚠️ Failed to flush traces: %v", err)
		}
	}()

	health := handlers.NewHealthHandler(cfg.ServiceName)

	// Store
	bikes, orders, closeStore, err := openStore(ctx, cfg, health)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	var bikeRepo handlers.BikeRepository = bikes
	opts := []service.Option{service.WithPlacementTimeout(cfg.PlacementTimeout)}

	// Redis bike cache
	var cachedRepo *db.CachedBikeRepository
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, serving without cache: %v", err)
		} else {
			defer redisCache.Close()
			cachedRepo = db.NewCachedBikeRepository(bikes, redisCache)
			bikeRepo = cachedRepo
			opts = append(opts, service.WithBikeInvalidator(cachedRepo))
			health.Register("redis", redisCache.Ping)
		}
	}

	// RabbitMQ order events
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			log.Printf("⚠️ RabbitMQ unavailable, order events disabled: %v", err)
		} else {
			defer rabbitMQ.Close()
			orderPublisher, err := publisher.NewOrderPublisher(rabbitMQ)
			if err != nil {
				log.Printf("⚠️ Failed to create publisher, order events disabled: %v", err)
			} else {
				opts = append(opts, service.WithEventPublisher(orderPublisher))
			}

			if cachedRepo != nil {
				go startCacheConsumer(ctx, rabbitMQ, cachedRepo)
			}
		}
	}

	orderService := service.NewOrderService(orders, opts...)

	router := handlers.NewRouter(handlers.RouterConfig{
		Bikes:       handlers.NewBikeHandler(bikeRepo),
		Orders:      handlers.NewOrderHandler(orderService),
		Health:      health,
		CORSOrigins: cfg.CORSOrigins,
		RequestLog:  true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Consul registration
	if cfg.Consul.Enabled {
		consul, err := discovery.NewConsulClient(cfg.Consul.Addr)
		if err != nil {
			log.Printf("⚠️ Consul unavailable, skipping registration: %v", err)
		} else {
			err = consul.Register(discovery.ServiceConfig{
				Name:    cfg.ServiceName,
				ID:      cfg.ServiceID,
				Address: cfg.Consul.AdvertiseAddr,
				Port:    cfg.Port,
				Tags:    []string{"api", "bikes", "orders"},
			})
			if err != nil {
				log.Printf("⚠️ Failed to register service: %v", err)
			} else {
				defer consul.Deregister(cfg.ServiceID)
			}
		}
	}

	if err := serve(ctx, srv, cfg.ShutdownTimeout); err != nil {
		log.Printf("❌ %v", err)
	}
	log.Println("👋 Bike store stopped")
}

// serve runs srv until ctx is cancelled, then drains in-flight requests
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Printf("🚀 Bike store starting on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server failed to shut down gracefully: %w", err)
		}
		return nil
	})

	return group.Wait()
}

func openStore(ctx context.Context, cfg config.Config, health *handlers.HealthHandler) (db.Bikes, service.OrderStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		database, err := db.NewPostgresDB(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, nil, err
		}
		health.Register("postgres", database.Conn.PingContext)

		closeFn := func() {
			if err := database.Close(); err != nil {
				log.Printf("⚠️ Failed to close database: %v", err)
			}
		}
		return db.NewBikeRepository(database), db.NewOrderRepository(database), closeFn, nil

	default:
		log.Println("⚠️ Using in-memory store, data is lost on restart")
		store := db.NewMemoryStore()
		return store, store, func() {}, nil
	}
}

func startCacheConsumer(ctx context.Context, mq *messaging.RabbitMQ, cachedRepo *db.CachedBikeRepository) {
	if err := mq.DeclareQueue(publisher.OrderPlacedQueue); err != nil {
		log.Printf("❌ Failed to declare queue: %v", err)
		return
	}

	messages, err := mq.Consume(publisher.OrderPlacedQueue)
	if err != nil {
		log.Printf("❌ Failed to consume messages: %v", err)
		return
	}

	consumer.NewCacheConsumer(cachedRepo).ProcessOrderPlaced(ctx, messages)
}
