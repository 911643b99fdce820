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

	"github.com/fitspace/fitspace/internal/advisor"
	"github.com/fitspace/fitspace/internal/chat"
	"github.com/fitspace/fitspace/internal/config"
	"github.com/fitspace/fitspace/internal/httpapi"
	"github.com/fitspace/fitspace/internal/logger"
	"github.com/fitspace/fitspace/internal/observability"
	"github.com/fitspace/fitspace/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	db, err := store.NewStore(ctx, cfg.DatabaseURL, cfg.BoltPath())
	if err != nil {
		lg.Fatal("store init failed", zap.Error(err))
	}
	defer db.Close()

	adv := advisor.New(
		advisor.NewOpenAITransport(cfg.AdvisorToken, cfg.AdvisorEndpoint, cfg.AdvisorTimeout),
		advisor.Config{
			Model:    cfg.AdvisorModel,
			Timeout:  cfg.AdvisorTimeout,
			Logger:   lg.Named("advisor"),
			Recorder: metrics,
		},
	)
	chatSvc := chat.NewService(db, adv, metrics, lg.Named("chat"))
	api := httpapi.New(chatSvc, metrics.Handler(), lg.Named("http"))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.AdvisorTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("advisor_endpoint", cfg.AdvisorEndpoint),
			zap.String("advisor_model", cfg.AdvisorModel),
			zap.Bool("postgres", cfg.DatabaseURL != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown failed", zap.Error(err))
		return
	}
	lg.Info("stopped")
}
