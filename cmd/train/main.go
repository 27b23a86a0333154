package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/config"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/logger"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/repository/csvstore"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/service"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/tuning"
)

func main() {
	// Load configuration
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

	log.Info("Starting training pipeline",
		zap.String("environment", cfg.ServiceEnvironment),
		zap.Int("trials", cfg.TuningTrials),
		zap.Int64("seed", cfg.Seed))

	// Resolve the search space, applying the YAML override when configured.
	space := tuning.DefaultSpace()
	if cfg.SearchSpacePath != "" {
		space, err = tuning.LoadSpace(cfg.SearchSpacePath)
		if err != nil {
			log.Fatal("Failed to load search space", zap.Error(err))
		}
		log.Info("Search space loaded", zap.String("path", cfg.SearchSpacePath))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Initialize the training service
	trainingService := service.NewTrainingService(store, service.TrainingConfig{
		TrainFraction:       cfg.TrainFraction,
		TuneFraction:        cfg.TuneFraction,
		Trials:              cfg.TuningTrials,
		Seed:                cfg.Seed,
		EarlyStoppingRounds: cfg.EarlyStoppingRounds,
		QualityAUCFloor:     cfg.QualityAUCFloor,
		Space:               space,
		ArtifactDir:         cfg.ArtifactDir,
	}, log)

	// A signal cancels the run; every stage checks the context.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn("Received signal, canceling training run", zap.String("signal", sig.String()))
		cancel()
	}()

	report, err := trainingService.Run(ctx)
	if err != nil {
		log.Fatal("Training run failed", zap.Error(err))
	}

	log.Info("Training run complete",
		zap.String("run_id", report.RunID),
		zap.Float64("test_auc", report.TestAUC),
		zap.Float64("best_tune_auc", report.BestTuneAUC),
		zap.Int("rounds", report.Rounds),
		zap.Bool("quality_warning", report.QualityWarning),
		zap.String("artifact_dir", report.ArtifactDir))

	for i, imp := range report.Importances {
		if i >= 10 || imp.Gain == 0 {
			break
		}
		log.Info("Feature importance",
			zap.Int("rank", i+1),
			zap.String("feature", imp.Feature),
			zap.Float64("gain", imp.Gain))
	}
}
