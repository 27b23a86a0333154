package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/artifact"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/config"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/handler"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/logger"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/repository/csvstore"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/service"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.ServiceEnvironment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service",
		zap.String("environment", cfg.ServiceEnvironment),
		zap.String("port", cfg.ServiceAPIPort))

	ctx := context.Background()

	// Initialize the CSV table store
	store := csvstore.NewStore(csvstore.Config{
		Dir:           cfg.DataDir,
		SessionsFile:  cfg.SessionsFile,
		CampaignsFile: cfg.CampaignsFile,
		OrdersFile:    cfg.OrdersFile,
	}, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close table store", zap.Error(err))
		}
	}()

	if err := store.Ping(ctx); err != nil {
		log.Fatal("Data directory not reachable", zap.Error(err))
	}

	// Load the model and feature list exported by the training pipeline.
	bundle, err := artifact.Load(cfg.ArtifactDir)
	if err != nil {
		log.Fatal("Failed to load model artifacts", zap.Error(err))
	}
	log.Info("Model artifacts loaded",
		zap.String("run_id", bundle.RunID),
		zap.Time("trained_at", bundle.TrainedAt),
		zap.Int("features", len(bundle.Features)),
		zap.Int("rounds", bundle.Model.Rounds()))

	// Initialize telemetry
	metrics := telemetry.New()

	// Initialize services
	scoringService := service.NewScoringService(bundle, store, metrics, cfg.LiftSampleLimit, log)
	insightService := service.NewInsightService(store, metrics, cfg.BootstrapResamples, cfg.BootstrapConfidence, cfg.Seed, log)

	// Initialize handler
	h := handler.NewHandler(scoringService, insightService, metrics, log)

	addr := fmt.Sprintf(":%s", cfg.ServiceAPIPort)
	log.Info("API server starting", zap.String("address", addr))

	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal("Failed to start API server", zap.Error(err))
	}
}
