package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/artifact"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/boost"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/dataset"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/eval"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/features"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/logger"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/repository"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/split"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/tuning"
)

// TrainingConfig carries the pipeline settings a single training run needs.
type TrainingConfig struct {
	TrainFraction       float64
	TuneFraction        float64
	Trials              int
	Seed                int64
	EarlyStoppingRounds int
	QualityAUCFloor     float64
	Space               tuning.SearchSpace
	ArtifactDir         string
}

// FeatureImportance is one feature's share of total split gain.
type FeatureImportance struct {
	Feature string  `json:"feature"`
	Gain    float64 `json:"gain"`
}

// TrainingReport summarizes one completed training run.
type TrainingReport struct {
	RunID              string              `json:"run_id"`
	TrainedAt          time.Time           `json:"trained_at"`
	Sessions           int                 `json:"sessions"`
	Campaigns          int                 `json:"campaigns"`
	Orders             int                 `json:"orders"`
	AttributedOrders   int                 `json:"attributed_orders"`
	UnattributedOrders int                 `json:"unattributed_orders"`
	TrainRows          int                 `json:"train_rows"`
	TuneRows           int                 `json:"tune_rows"`
	TestRows           int                 `json:"test_rows"`
	Features           int                 `json:"features"`
	Trials             int                 `json:"trials"`
	BestParams         boost.Params        `json:"best_params"`
	BestTuneAUC        float64             `json:"best_tune_auc"`
	Rounds             int                 `json:"rounds"`
	TestAUC            float64             `json:"test_auc"`
	QualityWarning     bool                `json:"quality_warning"`
	Importances        []FeatureImportance `json:"importances"`
	ArtifactDir        string              `json:"artifact_dir"`
}

// TrainingService runs the batch pipeline: load, join, attribute, encode,
// split, search, refit, evaluate once, and export the artifact pair.
type TrainingService struct {
	repo repository.TableRepository
	cfg  TrainingConfig
	log  *zap.Logger
}

// NewTrainingService creates a new training service.
func NewTrainingService(repo repository.TableRepository, cfg TrainingConfig, log *zap.Logger) *TrainingService {
	return &TrainingService{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
}

// Run executes one training run end to end. Every failure is terminal: the
// run either produces a persisted artifact pair and a report, or an error.
func (s *TrainingService) Run(ctx context.Context) (*TrainingReport, error) {
	runID := uuid.NewString()
	log := logger.WithRun(s.log, runID)
	log.Info("training run starting",
		zap.Int("trials", s.cfg.Trials),
		zap.Int64("seed", s.cfg.Seed))

	sessions, sessionStats, err := s.repo.LoadSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	campaigns, campaignStats, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	orders, orderStats, err := s.repo.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	log.Info("tables loaded",
		zap.Int("sessions", sessionStats.Kept),
		zap.Int("campaigns", campaignStats.Kept),
		zap.Int("orders", orderStats.Kept),
		zap.Int("dropped_rows", sessionStats.Dropped+campaignStats.Dropped+orderStats.Dropped))

	merged := dataset.Merge(sessions, campaigns)
	attributed, unattributed := dataset.AttributeRevenue(merged, orders)
	log.Info("revenue attributed",
		zap.Int("attributed_orders", attributed),
		zap.Int("unattributed_orders", unattributed))

	enc, err := features.Fit(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to fit encoder: %w", err)
	}
	names := enc.FeatureNames()

	slices, err := split.Chronological(merged, s.cfg.TrainFraction, s.cfg.TuneFraction)
	if err != nil {
		return nil, err
	}
	log.Info("chronological split",
		zap.Int("train", len(slices.Train)),
		zap.Int("tune", len(slices.Tune)),
		zap.Int("test", len(slices.Test)),
		zap.Int("features", len(names)))

	trainX, trainY := enc.Transform(slices.Train)
	tuneX, tuneY := enc.Transform(slices.Tune)
	testX, testY := enc.Transform(slices.Test)

	tuner, err := tuning.NewTuner(s.cfg.Space, s.cfg.Trials, s.cfg.Seed, s.cfg.EarlyStoppingRounds, log)
	if err != nil {
		return nil, err
	}
	result, err := tuner.Search(ctx, trainX, trainY, tuneX, tuneY)
	if err != nil {
		return nil, fmt.Errorf("hyperparameter search failed: %w", err)
	}
	log.Info("search finished",
		zap.Int("best_trial", result.Best.Index),
		zap.Float64("best_tune_auc", result.Best.AUC))

	// Refit on train+tune with the winning parameters. The tune slice is
	// spent, so no early stopping: the round count is pinned to what the
	// winning trial actually kept.
	refitX := make([][]float64, 0, len(trainX)+len(tuneX))
	refitX = append(refitX, trainX...)
	refitX = append(refitX, tuneX...)
	refitY := make([]float64, 0, len(trainY)+len(tuneY))
	refitY = append(refitY, trainY...)
	refitY = append(refitY, tuneY...)

	finalParams := result.Best.Params
	finalParams.Rounds = result.Best.Rounds
	model, err := boost.Train(ctx, refitX, refitY, finalParams, nil)
	if err != nil {
		return nil, fmt.Errorf("final fit failed: %w", err)
	}

	// The single look at the test slice.
	scores, err := model.PredictBatch(testX)
	if err != nil {
		return nil, fmt.Errorf("failed to score test slice: %w", err)
	}
	testAUC, err := eval.AUC(scores, testY)
	if err != nil {
		return nil, fmt.Errorf("test slice: %w", err)
	}

	quality := testAUC < s.cfg.QualityAUCFloor
	if quality {
		log.Warn("test AUC below quality floor",
			zap.Float64("test_auc", testAUC),
			zap.Float64("floor", s.cfg.QualityAUCFloor))
	} else {
		log.Info("test slice evaluated", zap.Float64("test_auc", testAUC))
	}

	trainedAt := time.Now().UTC()
	bundle := &artifact.Bundle{
		RunID:     runID,
		TrainedAt: trainedAt,
		Model:     model,
		Features:  names,
	}
	if err := artifact.Save(s.cfg.ArtifactDir, bundle); err != nil {
		return nil, fmt.Errorf("failed to export artifacts: %w", err)
	}
	log.Info("artifacts exported",
		zap.String("dir", s.cfg.ArtifactDir),
		zap.Int("rounds", model.Rounds()))

	return &TrainingReport{
		RunID:              runID,
		TrainedAt:          trainedAt,
		Sessions:           len(sessions),
		Campaigns:          len(campaigns),
		Orders:             len(orders),
		AttributedOrders:   attributed,
		UnattributedOrders: unattributed,
		TrainRows:          len(slices.Train),
		TuneRows:           len(slices.Tune),
		TestRows:           len(slices.Test),
		Features:           len(names),
		Trials:             len(result.Trials),
		BestParams:         result.Best.Params,
		BestTuneAUC:        result.Best.AUC,
		Rounds:             model.Rounds(),
		TestAUC:            testAUC,
		QualityWarning:     quality,
		Importances:        rankImportances(names, model.FeatureImportances()),
		ArtifactDir:        s.cfg.ArtifactDir,
	}, nil
}

// rankImportances pairs feature names with their gain shares, highest first.
// Ties order by name so the ranking is deterministic.
func rankImportances(names []string, gains []float64) []FeatureImportance {
	ranked := make([]FeatureImportance, len(names))
	for i, name := range names {
		ranked[i] = FeatureImportance{Feature: name, Gain: gains[i]}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Gain != ranked[j].Gain {
			return ranked[i].Gain > ranked[j].Gain
		}
		return ranked[i].Feature < ranked[j].Feature
	})
	return ranked
}
