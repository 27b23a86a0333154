package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/artifact"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/dataset"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/dto"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/features"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/insights"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/repository"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/telemetry"
)

// ScoringService scores sessions with a loaded artifact pair. Incoming rows
// are encoded with their own vocabulary and then aligned to the persisted
// feature list, so the model always sees exactly the columns it was fit on.
type ScoringService struct {
	bundle          *artifact.Bundle
	repo            repository.TableRepository
	metrics         *telemetry.Metrics
	liftSampleLimit int
	log             *zap.Logger
}

// NewScoringService creates a scoring service around a loaded artifact pair.
func NewScoringService(bundle *artifact.Bundle, repo repository.TableRepository, metrics *telemetry.Metrics, liftSampleLimit int, log *zap.Logger) *ScoringService {
	return &ScoringService{
		bundle:          bundle,
		repo:            repo,
		metrics:         metrics,
		liftSampleLimit: liftSampleLimit,
		log:             log,
	}
}

// RunID returns the training run the loaded model came from.
func (s *ScoringService) RunID() string {
	return s.bundle.RunID
}

func recordToSession(r *dto.PredictRecord) domain.MergedSession {
	return domain.MergedSession{
		Session: domain.Session{
			Start:     time.Unix(r.SessionStart, 0).UTC(),
			UTMSource: r.UTMSource,
			UTMMedium: r.UTMMedium,
		},
		Spend:             r.Spend,
		CreativeFormat:    r.CreativeFormat,
		CreativeTheme:     r.CreativeTheme,
		EffectivenessTier: r.EffectivenessTier,
	}
}

// scoreSessions encodes the sessions, aligns every vector to the persisted
// feature list, and returns one conversion probability per session.
func (s *ScoringService) scoreSessions(sessions []domain.MergedSession) ([]float64, error) {
	enc, err := features.Fit(sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sessions: %w", err)
	}
	x, _ := enc.Transform(sessions)
	local := enc.FeatureNames()

	probs := make([]float64, len(x))
	for i, row := range x {
		aligned, err := features.Align(row, local, s.bundle.Features)
		if err != nil {
			s.metrics.AlignmentFailuresTotal.Inc()
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		p, err := s.bundle.Model.PredictProba(aligned)
		if err != nil {
			s.metrics.AlignmentFailuresTotal.Inc()
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		probs[i] = p
	}
	s.metrics.PredictionsTotal.Add(float64(len(probs)))
	return probs, nil
}

// Score returns conversion probabilities for the requested records, in
// request order.
func (s *ScoringService) Score(ctx context.Context, req *dto.PredictRequest) (*dto.PredictResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessions := make([]domain.MergedSession, len(req.Records))
	for i := range req.Records {
		sessions[i] = recordToSession(&req.Records[i])
	}

	probs, err := s.scoreSessions(sessions)
	if err != nil {
		s.log.Warn("scoring failed",
			zap.Int("records", len(req.Records)),
			zap.Error(err))
		return nil, err
	}

	return &dto.PredictResponse{
		RunID:         s.bundle.RunID,
		Count:         len(probs),
		Probabilities: probs,
	}, nil
}

// ForecastLift projects the effect of scaling campaign budgets by the
// requested percentage across the analysis-ready sessions. When the request
// leaves the average order value at zero it is derived from the orders table.
func (s *ScoringService) ForecastLift(ctx context.Context, req *dto.LiftForecastRequest) (*dto.LiftForecastResponse, error) {
	sessions, _, err := s.repo.LoadSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	campaigns, _, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	merged := dataset.Merge(sessions, campaigns)

	aov := req.AvgOrderValue
	if aov == 0 {
		orders, _, err := s.repo.LoadOrders(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
		if len(orders) == 0 {
			return nil, fmt.Errorf("cannot derive average order value: orders table is empty")
		}
		total := 0.0
		for _, o := range orders {
			total += o.GrossRevenue
		}
		aov = total / float64(len(orders))
	}

	// Bound the forecast to the most recent sessions so a large table does
	// not stall the request.
	if s.liftSampleLimit > 0 && len(merged) > s.liftSampleLimit {
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].Start.Before(merged[j].Start)
		})
		merged = merged[len(merged)-s.liftSampleLimit:]
	}

	lift, err := insights.LiftForecast(s.scoreSessions, merged, req.BudgetIncreasePct, aov)
	if err != nil {
		return nil, err
	}
	s.metrics.InsightRequestsTotal.WithLabelValues("lift").Inc()
	s.log.Info("lift forecast computed",
		zap.Int("sessions", lift.Sessions),
		zap.Float64("budget_increase_pct", lift.BudgetIncreasePct),
		zap.Float64("incremental_conversions", lift.IncrementalConversions))

	return &dto.LiftForecastResponse{
		RunID:                  s.bundle.RunID,
		Sessions:               lift.Sessions,
		BudgetIncreasePct:      lift.BudgetIncreasePct,
		AvgOrderValue:          lift.AvgOrderValue,
		BaselineConversions:    lift.BaselineConversions,
		ProjectedConversions:   lift.ProjectedConversions,
		IncrementalConversions: lift.IncrementalConversions,
		IncrementalRevenue:     lift.IncrementalRevenue,
	}, nil
}
