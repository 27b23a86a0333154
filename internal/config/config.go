package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceEnvironment  string  `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	ServiceAPIPort      string  `envconfig:"SERVICE_API_PORT" default:"8080"`
	DataDir             string  `envconfig:"DATA_DIR" default:"data"`
	SessionsFile        string  `envconfig:"SESSIONS_FILE" default:"sessions.csv"`
	CampaignsFile       string  `envconfig:"CAMPAIGNS_FILE" default:"campaigns.csv"`
	OrdersFile          string  `envconfig:"ORDERS_FILE" default:"orders.csv"`
	ArtifactDir         string  `envconfig:"ARTIFACT_DIR" default:"artifacts"`
	TrainFraction       float64 `envconfig:"TRAIN_FRACTION" default:"0.70"`
	TuneFraction        float64 `envconfig:"TUNE_FRACTION" default:"0.15"`
	TuningTrials        int     `envconfig:"TUNING_TRIALS" default:"50"`
	Seed                int64   `envconfig:"RANDOM_SEED" default:"42"`
	SearchSpacePath     string  `envconfig:"SEARCH_SPACE_PATH"`
	EarlyStoppingRounds int     `envconfig:"EARLY_STOPPING_ROUNDS" default:"20"`
	QualityAUCFloor     float64 `envconfig:"QUALITY_AUC_FLOOR" default:"0.5"`
	LiftSampleLimit     int     `envconfig:"LIFT_SAMPLE_LIMIT" default:"10000"`
	BootstrapResamples  int     `envconfig:"BOOTSTRAP_RESAMPLES" default:"1000"`
	BootstrapConfidence float64 `envconfig:"BOOTSTRAP_CONFIDENCE" default:"0.95"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.TrainFraction <= 0 || cfg.TuneFraction <= 0 || cfg.TrainFraction+cfg.TuneFraction >= 1 {
		return nil, fmt.Errorf("invalid split fractions: train=%.2f tune=%.2f", cfg.TrainFraction, cfg.TuneFraction)
	}

	return &cfg, nil
}
