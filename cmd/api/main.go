package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-reorder/docs"
	"shopify-reorder/internal/application"
	"shopify-reorder/internal/config"
	apiinfra "shopify-reorder/internal/infrastructure/api"
	"shopify-reorder/internal/infrastructure/encryption"
	"shopify-reorder/internal/infrastructure/repository"
	shopifyinfra "shopify-reorder/internal/infrastructure/shopify"
	"shopify-reorder/internal/ports"

	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session and state store
	var (
		sessions ports.SessionStore
		states   ports.StateStore
		ready    func(*http.Request) error
	)
	if cfg.RedisURL != "" {
		rdb, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		store := repository.NewRedisRepository(rdb)
		sessions, states = store, store
		ready = func(r *http.Request) error { return store.Ping(r.Context()) }
		logger.Info().Msg("Using Redis session store")
	} else {
		store := repository.NewMemoryRepository()
		sessions, states = store, store
		logger.Warn().Msg("REDIS_URL not set, sessions are kept in memory and lost on restart")
	}

	// Get encryption key
	encryptionKey := cfg.SessionEncryptionKey
	if encryptionKey == "" {
		encryptionKey, err = encryption.GenerateKey()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to generate encryption key")
		}
		logger.Warn().Msg("SESSION_ENCRYPTION_KEY not set, using a random key; sessions will not survive a restart")
	}
	encryptionService, err := encryption.NewService(encryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Initialize infrastructure (implementations)
	shopifyClient := shopifyinfra.NewClientWithOptions(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, shopifyinfra.Options{
		APIVersion: cfg.ShopifyAPIVersion,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		Logger:     logger.With().Str("component", "shopify").Logger(),
	})

	// Initialize application services
	authService := application.NewAuthService(
		shopifyClient,
		states,
		sessions,
		encryptionService,
		application.AuthConfig{
			Host:              cfg.Host,
			Scopes:            cfg.Scopes,
			StateTTL:          cfg.StateTTL,
			SessionTTL:        cfg.SessionTTL,
			VerifyHMAC:        cfg.VerifyHMAC,
			LegacyTokenParams: cfg.LegacyTokenParams,
		},
		logger,
	)
	shopifyService := application.NewShopifyService(shopifyClient, logger)

	handler := apiinfra.NewHandler(authService, shopifyService, apiinfra.HandlerConfig{
		SuccessURL:    cfg.Host + cfg.SuccessPath,
		SecureCookies: cfg.SecureCookies(),
		SessionTTL:    cfg.SessionTTL,
	})
	router := apiinfra.NewRouter(handler, apiinfra.RouterOptions{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		SwaggerJSON: docs.SwaggerJSON,
		Ready:       ready,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown error")
		}
		close(shutdownDone)
	}()

	logger.Info().
		Str("port", cfg.Port).
		Str("host", cfg.Host).
		Bool("legacy_token_params", cfg.LegacyTokenParams).
		Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
	<-shutdownDone
	logger.Info().Msg("Server stopped")
}
