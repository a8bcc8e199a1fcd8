package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/signup/internal/api"
	"example.com/signup/internal/auth"
	"example.com/signup/internal/cache"
	"example.com/signup/internal/config"
	"example.com/signup/internal/domain"
	"example.com/signup/internal/logging"
	"example.com/signup/internal/publish"
	"example.com/signup/internal/roster"
	httptransport "example.com/signup/internal/transport/http"
	"example.com/signup/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed, err := roster.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		logger.Fatal("load seed", zap.String("path", cfg.SeedFile), zap.Error(err))
	}
	repo, err := roster.NewInMemoryRepository(seed)
	if err != nil {
		logger.Fatal("build roster", zap.Error(err))
	}

	opts := []domain.Option{
		domain.WithLogger(logger.Named("roster")),
		domain.WithInvalidationTimeout(cfg.HTTPTimeout),
	}

	// The dispatcher outlives the signal context: it drains only after the server has
	// stopped accepting requests.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	var dispatcher *publish.Dispatcher
	if cfg.PublishingEnabled() {
		producer := publish.NewKafkaProducer(publish.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			ClientID:     cfg.KafkaClientID,
			WriteTimeout: cfg.KafkaWriteTimeout,
		})
		defer producer.Close()

		var registry *publish.SchemaRegistryClient
		if cfg.SchemaRegistryURL != "" {
			registry = publish.NewSchemaRegistryClient(cfg.SchemaRegistryURL, cfg.HTTPTimeout)
		}
		dispatcher = publish.NewDispatcher(producer, schemaRegistrarOrNil(registry), publish.Config{
			Topic:         cfg.RosterEventsTopic,
			QueueSize:     cfg.EventQueueSize,
			BatchSize:     cfg.EventBatchSize,
			FlushInterval: cfg.EventFlushInterval,
		}, publish.WithLogger(logger.Named("publish")))
		go dispatcher.Start(dispatchCtx)

		opts = append(opts, domain.WithPublisher(dispatcher))
		logger.Info("roster event publishing enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.RosterEventsTopic),
		)
	}

	if cfg.CacheInvalidationURL != "" {
		opts = append(opts, domain.WithInvalidator(
			cache.NewHTTPInvalidator(cfg.CacheInvalidationURL, cfg.CacheInvalidationToken, cfg.HTTPTimeout),
		))
	}

	service := domain.NewService(repo, opts...)

	mux := http.NewServeMux()
	api.NewHandler(service, web.Static(), logger.Named("api")).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	middlewares := []httptransport.Middleware{
		httptransport.RequestLogger(logger.Named("http")),
		httptransport.CORS(cfg.CORSAllowedOrigin),
	}
	if cfg.AuthEnabled() {
		authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		middlewares = append(middlewares, authMiddleware.Wrap)
		logger.Info("bearer auth enabled for roster mutations", zap.String("issuer", cfg.JWTIssuer))
	}

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Chain(mux, middlewares...),
	)

	go func() {
		logger.Info("signup-service listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	service.Wait()
	stopDispatch()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}

// schemaRegistrarOrNil keeps a nil client from becoming a non-nil interface.
func schemaRegistrarOrNil(client *publish.SchemaRegistryClient) publish.SchemaRegistrar {
	if client == nil {
		return nil
	}
	return client
}
