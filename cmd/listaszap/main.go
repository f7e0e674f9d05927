package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/listaszap/listaszap/internal/api"
	"github.com/listaszap/listaszap/internal/auth"
	"github.com/listaszap/listaszap/internal/config"
	"github.com/listaszap/listaszap/internal/metrics"
	"github.com/listaszap/listaszap/internal/notify"
	"github.com/listaszap/listaszap/internal/service"
	"github.com/listaszap/listaszap/internal/storage"
	"github.com/listaszap/listaszap/internal/storage/local"
	"github.com/listaszap/listaszap/internal/storage/postgres"
	"github.com/listaszap/listaszap/internal/webhook"
	"github.com/listaszap/listaszap/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting ListasZap...")

	// Storage driver: DATABASE_URL selects the remote Postgres store,
	// otherwise lists live in the local SQLite file.
	var store storage.Store
	if cfg.UseRemoteStore() {
		db, err := config.NewDatabase(cfg.DatabaseURL, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate("migrations"); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}
		store = postgres.New(db.DB, l)
		l.Info("Using remote storage driver")
	} else {
		localStore, err := local.Open(cfg.LocalStorePath, l)
		if err != nil {
			l.Fatalf("Failed to open local store: %v", err)
		}
		defer localStore.Close()
		store = localStore
		l.Infof("Using local storage driver at %s", cfg.LocalStorePath)
	}

	wh := webhook.New(cfg.WebhookBaseURL, l)

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, l)
	if err != nil {
		l.Fatalf("Failed to create notifier: %v", err)
	}

	svc := service.New(store, wh, notifier, l)
	sessions := auth.NewManager(wh, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	apiServer := api.NewServer(svc, sessions, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		httpLog := logger.Component(l, "http")
		httpLog.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpLog.Errorf("HTTP server error: %v", err)
		}
	}()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: metrics.Handler(),
	}

	go func() {
		metricsLog := logger.Component(l, "metrics")
		metricsLog.Infof("Metrics server listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			metricsLog.Errorf("Metrics server error: %v", err)
		}
	}()

	l.Info("ListasZap started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	httpServer.Close()
	metricsServer.Close()

	l.Info("ListasZap stopped")
}
