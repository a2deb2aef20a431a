// Command registryd runs the schema registry's HTTP API: manifest and
// schema storage, multi-protocol composition, gateway route computation
// and webhook delivery.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xraph-labs/nexus-registry/pkg/api"
	"github.com/xraph-labs/nexus-registry/pkg/config"
	"github.com/xraph-labs/nexus-registry/pkg/gateway"
	"github.com/xraph-labs/nexus-registry/pkg/observability"
	"github.com/xraph-labs/nexus-registry/pkg/providers"
	"github.com/xraph-labs/nexus-registry/pkg/registry"
	"github.com/xraph-labs/nexus-registry/pkg/storage"
	"github.com/xraph-labs/nexus-registry/pkg/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, nil)
	logger.Info("starting registry")

	reg, err := buildRegistry(cfg)
	if err != nil {
		logger.Errorf("building registry backend: %v", err)
		os.Exit(1)
	}

	providerRegistry := providers.NewRegistry()
	providerRegistry.Register(providers.NewOpenAPIProvider())
	providerRegistry.Register(providers.NewAsyncAPIProvider())
	providerRegistry.Register(providers.NewGRPCProvider())
	providerRegistry.Register(providers.NewGraphQLProvider())
	providerRegistry.Register(providers.NewORPCProvider())
	providerRegistry.Register(providers.NewThriftProvider())

	retryPolicy := webhook.NewRetryPolicy(webhook.DefaultRetryConfig())
	dispatcher := webhook.NewDispatcher(retryPolicy, logger)
	sweeper := webhook.NewSweeper(dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sweeper.Start(ctx, "@every 30s"); err != nil {
		logger.Errorf("starting webhook retry sweeper: %v", err)
		os.Exit(1)
	}

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.Errorf("initializing opentelemetry: %v", err)
		os.Exit(1)
	}

	metricsRegistry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(metricsRegistry)
	}

	gatewayCli, err := gateway.NewClient(reg, gateway.DefaultConfig(), logger)
	if err != nil {
		logger.Errorf("building gateway client: %v", err)
		os.Exit(1)
	}
	gatewayCli.SetMetrics(metrics)
	go func() {
		if err := gatewayCli.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("gateway watch stopped: %v", err)
		}
	}()

	dispatcher.SetMetrics(metrics)

	server := api.NewServer(reg, providerRegistry, gatewayCli, dispatcher, logger)
	server.WithMetrics(metrics)

	var handler http.Handler = server.Router()
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "registry-api")
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, metricsRegistry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.Infof("api server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("api server: %v", err)
		}
	}()
	go func() {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("health server: %v", err)
		}
	}()

	waitForShutdown(logger, cfg.Server.ShutdownTimeout, func(shutdownCtx context.Context) {
		cancel()
		sweeper.Stop()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = healthServer.Shutdown(shutdownCtx)
		_ = gatewayCli.Close(shutdownCtx)
		if err := observability.ShutdownOTel(shutdownCtx, otelProviders, logger); err != nil {
			logger.WithError(err).Error("shutting down opentelemetry")
		}
	})
}

// waitForShutdown blocks until SIGINT/SIGTERM, then runs shutdown with a
// bounded context and gives it timeout to finish before returning.
func waitForShutdown(logger *observability.Logger, timeout time.Duration, shutdown func(ctx context.Context)) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("received signal %v, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	shutdown(ctx)
	logger.Info("shutdown complete")
}

// buildRegistry constructs the configured storage backend and wraps it
// in the matching registry implementation.
func buildRegistry(cfg *config.Config) (registry.SchemaRegistry, error) {
	regCfg := registry.Config{
		Backend:              cfg.Registry.Backend,
		Namespace:            cfg.Registry.Namespace,
		MaxSchemaSize:        cfg.Registry.MaxSchemaSize,
		CompressionThreshold: cfg.Registry.CompressionThreshold,
		TTL:                  cfg.Registry.TTL,
	}

	switch cfg.Storage.Type {
	case "memory", "":
		return registry.NewMemoryRegistry(), nil

	case "filesystem":
		backend, err := storage.NewFilesystemBackend(cfg.Storage.FilesystemRoot)
		if err != nil {
			return nil, err
		}
		return registry.NewStorageRegistry(backend, regCfg), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisURL,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			PoolSize: cfg.Storage.RedisPoolSize,
		})
		backend := storage.NewRedisBackend(client)
		return registry.NewStorageRegistry(backend, regCfg), nil

	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		backend, err := storage.NewPostgresBackend(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, err
		}
		return registry.NewStorageRegistry(backend, regCfg), nil

	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.S3Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Storage.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.S3Endpoint)
			}
			o.UsePathStyle = cfg.Storage.S3UsePathStyle
		})
		backend := storage.NewS3Backend(client, cfg.Storage.S3Bucket)
		return registry.NewStorageRegistry(backend, regCfg), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Type)
	}
}
