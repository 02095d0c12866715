package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pensionguru/backend/internal/ai"
	"pensionguru/backend/internal/config"
	"pensionguru/backend/internal/dialogue"
	"pensionguru/backend/internal/logging"
	"pensionguru/backend/internal/metrics"
	"pensionguru/backend/internal/server"
	"pensionguru/backend/internal/store"
	"pensionguru/backend/internal/turnlock"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	if err := st.Ping(ctx); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}

	locker, closeLocker := openLocker(ctx, cfg, logger)
	defer closeLocker()

	completer, err := ai.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("completion client setup failed", zap.String("provider", cfg.AIProvider), zap.Error(err))
	}

	collectors := metrics.New()
	controller := dialogue.NewController(dialogue.Options{
		Profiles:          st,
		History:           st,
		Users:             st,
		Completer:         completer,
		Locker:            locker,
		Extractor:         dialogue.NewExtractor(logger, cfg.LegacyBareNumberFallback),
		Observer:          collectors,
		Logger:            logger,
		DefaultTone:       cfg.DefaultTone,
		HistoryLimit:      cfg.ChatHistoryLimit,
		CompletionTimeout: time.Duration(cfg.AITimeoutSeconds) * time.Second,
		LockWait:          time.Duration(cfg.TurnLockWaitSeconds) * time.Second,
	})

	var verifier server.IdentityVerifier
	if cfg.GoogleClientID != "" {
		verifier = server.NewGoogleVerifier(cfg.GoogleClientID)
	}

	app := server.New(server.Dependencies{
		Config:   cfg,
		Store:    st,
		Turns:    controller,
		Verifier: verifier,
		Metrics:  collectors,
		Logger:   logger,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("pension guru api listening",
			zap.String("addr", "http://localhost:"+cfg.AppPort),
			zap.String("provider", cfg.AIProvider),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openLocker uses Redis when REDIS_URL is set so several API processes share
// one turn lock per user.
func openLocker(ctx context.Context, cfg config.Config, logger *zap.Logger) (turnlock.Locker, func()) {
	if cfg.RedisURL == "" {
		return turnlock.NewLocalLocker(), func() {}
	}
	client, err := turnlock.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-process turn lock", zap.Error(err))
		return turnlock.NewLocalLocker(), func() {}
	}
	ttl := time.Duration(cfg.AITimeoutSeconds+cfg.TurnLockWaitSeconds) * time.Second
	return turnlock.NewRedisLocker(client, ttl), func() { _ = client.Close() }
}
