// Package app wires the restaurant service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/restaurant/internal/cache"
	"github.com/abgdnv/restaurant/internal/config"
	"github.com/abgdnv/restaurant/internal/service"
	"github.com/abgdnv/restaurant/internal/stats"
	"github.com/abgdnv/restaurant/internal/store"
	"github.com/abgdnv/restaurant/internal/transport/rest"
	"github.com/abgdnv/restaurant/migrations"
	"github.com/abgdnv/restaurant/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/restaurant/pkg/config"
	"github.com/abgdnv/restaurant/pkg/messaging"
	pkgnats "github.com/abgdnv/restaurant/pkg/nats"
	"github.com/abgdnv/restaurant/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const cacheKeyPrefix = "restaurant:"

// ordersSubjects covers every order event subject.
const ordersSubjects = "orders.>"

// Infrastructure holds the external resources the services run on.
type Infrastructure struct {
	Store     store.Store
	Cache     cache.Cache
	Publisher messaging.Publisher
	Checks    []rest.ReadinessCheck

	closers []func()
}

// Close releases every resource in reverse order of acquisition.
func (infra *Infrastructure) Close() {
	for i := len(infra.closers) - 1; i >= 0; i-- {
		infra.closers[i]()
	}
}

// SetupInfrastructure connects the store, cache and event publisher selected by cfg.
// On error, everything acquired so far is released.
func SetupInfrastructure(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}
	if err := infra.connect(ctx, cfg, logger); err != nil {
		infra.Close()
		return nil, err
	}
	return infra, nil
}

func (infra *Infrastructure) connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.Database.Driver {
	case pkgconfig.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		infra.Store = store.NewInMemoryStore()
	default:
		if cfg.Database.Migrate {
			if err := migrations.Up(cfg.Database.URL); err != nil {
				return err
			}
			logger.Info("Database migrations applied")
		}
		pool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return err
		}
		infra.closers = append(infra.closers, pool.Close)
		logger.Info("Successfully connected to the database!")
		infra.Store = store.NewPgStore(pool)
	}
	infra.Checks = append(infra.Checks, infra.Store.Ping)

	if cfg.Cache.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Cache.Redis, cfg.Database.Timeout)
		if err != nil {
			return err
		}
		infra.closers = append(infra.closers, func() {
			if err := client.Close(); err != nil {
				logger.Error("Failed to close redis client", "error", err)
			}
		})
		infra.Cache = cache.NewRedisCache(client, cacheKeyPrefix)
		infra.Checks = append(infra.Checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		logger.Info("Using redis cache", "addr", cfg.Cache.Redis.Addr)
	} else {
		infra.Cache = cache.NewTTLCache()
	}

	if cfg.Nats.Enabled {
		nc, err := pkgnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return err
		}
		infra.closers = append(infra.closers, nc.Close)
		js, err := pkgnats.NewJetStreamContext(nc)
		if err != nil {
			return err
		}
		streamCtx, cancel := context.WithTimeout(ctx, cfg.Nats.Timeout)
		defer cancel()
		if err := pkgnats.EnsureStream(streamCtx, js, cfg.Nats.Stream, ordersSubjects); err != nil {
			return err
		}
		infra.Publisher = messaging.NewBreakerPublisher(pkgnats.NewNatsPublisher(js), cfg.Resilience.CircuitBreaker, logger)
		infra.Checks = append(infra.Checks, func(context.Context) error {
			if nc.Status() != nats.CONNECTED {
				return fmt.Errorf("nats connection is %s", nc.Status())
			}
			return nil
		})
		logger.Info("Publishing order events", "stream", cfg.Nats.Stream)
	} else {
		infra.Publisher = messaging.NoopPublisher{}
	}

	return nil
}

type Dependencies struct {
	Services rest.Services
	Checks   []rest.ReadinessCheck
	Location *time.Location
	Logger   *slog.Logger
}

// SetupDependencies builds the services on top of infra.
func SetupDependencies(infra *Infrastructure, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if infra == nil || infra.Store == nil {
		return nil, errors.New("infrastructure is not initialized")
	}
	loc, err := cfg.Orders.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid orders timezone: %w", err)
	}
	statsCache := cache.NewAside[stats.Statistics](infra.Cache, cfg.Cache.TTL, logger)
	orders := service.NewOrderService(infra.Store, infra.Publisher, statsCache, cfg.Orders.Service(), logger)

	return &Dependencies{
		Services: rest.Services{
			Orders:     orders,
			Customers:  service.NewCustomerService(infra.Store, logger),
			Products:   service.NewProductService(infra.Store, logger),
			Statistics: service.NewStatisticsService(orders, statsCache),
		},
		Checks:   infra.Checks,
		Location: loc,
		Logger:   logger,
	}, nil
}

// SetupHttpHandler builds the instrumented router serving the API.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "restaurant-http")
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Services, deps.Location, deps.Logger, deps.Checks...)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures the HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}

// SetupGrpcServer creates the gRPC server exposing the standard health service.
func SetupGrpcServer(deps *Dependencies, reflection bool) (*grpc.Server, *health.Server) {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return server.NewGRPCServer(deps.Logger, reflection, server.HealthRegistration(healthServer)), healthServer
}
