package service

import (
	"context"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/dto"
)

// ConversionScorer defines the interface for model scoring operations
type ConversionScorer interface {
	Score(ctx context.Context, req *dto.PredictRequest) (*dto.PredictResponse, error)
	ForecastLift(ctx context.Context, req *dto.LiftForecastRequest) (*dto.LiftForecastResponse, error)
}

// InsightProvider defines the interface for campaign insight queries
type InsightProvider interface {
	CreativeSummary(ctx context.Context) (*dto.CreativeSummaryResponse, error)
	Payback(ctx context.Context, campaignID string) (*dto.PaybackResponse, error)
	CustomerValue(ctx context.Context) (*dto.CustomerValueResponse, error)
}
