package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"carpark-availability-backend/config"
	"carpark-availability-backend/internal/agency"
	"carpark-availability-backend/internal/aggregate"
	"carpark-availability-backend/internal/api"
	"carpark-availability-backend/internal/db"
	"carpark-availability-backend/internal/notification"
	"carpark-availability-backend/internal/reconcile"
	"carpark-availability-backend/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Infof("configuration loaded from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatal("VAPID keys must be configured; generate them and add them to the config file")
	}
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	// One client per agency feed; the HDB pipeline doubles as the
	// reconciliation source since catalog external ids are HDB's.
	hdbSource := &aggregate.HDBSource{Client: agency.NewHDBClient(&cfg.Agencies, logger)}
	ltaSource := &aggregate.LTASource{Client: agency.NewLTAClient(&cfg.Agencies, logger)}
	uraSource := &aggregate.URASource{Client: agency.NewURAClient(&cfg.Agencies, logger)}
	aggregator := aggregate.New(logger, hdbSource, ltaSource, uraSource)

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions, logger)
	workerPool.Start(ctx)

	refresher := reconcile.NewService(cfg, appStore, hdbSource, workerPool, logger)
	go refresher.Run(ctx)

	handler := api.NewHandler(appStore, &webpushOptions, aggregator, refresher, logger)
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server shutdown: %v", err)
	}

	logger.Info("server gracefully stopped")
}
