package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/dataset"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/dto"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/insights"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/repository"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/telemetry"
)

// ErrCampaignNotFound indicates the requested campaign does not exist in the
// campaigns table.
var ErrCampaignNotFound = errors.New("campaign not found")

// InsightService answers ROAS/CAC, payback, and customer value queries from
// the analysis-ready tables.
type InsightService struct {
	repo       repository.TableRepository
	metrics    *telemetry.Metrics
	resamples  int
	confidence float64
	seed       int64
	log        *zap.Logger
}

// NewInsightService creates a new insight service. Resamples, confidence, and
// seed drive the customer value bootstrap.
func NewInsightService(repo repository.TableRepository, metrics *telemetry.Metrics, resamples int, confidence float64, seed int64, log *zap.Logger) *InsightService {
	return &InsightService{
		repo:       repo,
		metrics:    metrics,
		resamples:  resamples,
		confidence: confidence,
		seed:       seed,
		log:        log,
	}
}

// loadAttributed assembles the analysis table: sessions joined to campaigns
// with order revenue attributed last-touch.
func (s *InsightService) loadAttributed(ctx context.Context) ([]domain.MergedSession, []domain.Campaign, error) {
	sessions, _, err := s.repo.LoadSessions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	campaigns, _, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	orders, _, err := s.repo.LoadOrders(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load orders: %w", err)
	}

	merged := dataset.Merge(sessions, campaigns)
	attributed, unattributed := dataset.AttributeRevenue(merged, orders)
	s.log.Debug("analysis table assembled",
		zap.Int("sessions", len(merged)),
		zap.Int("attributed_orders", attributed),
		zap.Int("unattributed_orders", unattributed))
	return merged, campaigns, nil
}

// CreativeSummary returns ROAS/CAC per creative format and theme pairing.
func (s *InsightService) CreativeSummary(ctx context.Context) (*dto.CreativeSummaryResponse, error) {
	merged, _, err := s.loadAttributed(ctx)
	if err != nil {
		return nil, err
	}

	groups := insights.CreativeSummary(merged)
	s.metrics.InsightRequestsTotal.WithLabelValues("creatives").Inc()

	resp := &dto.CreativeSummaryResponse{
		Groups: make([]dto.CreativeGroupData, 0, len(groups)),
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, dto.CreativeGroupData{
			CreativeFormat: g.CreativeFormat,
			CreativeTheme:  g.CreativeTheme,
			Campaigns:      g.Campaigns,
			Sessions:       g.Sessions,
			Conversions:    g.Conversions,
			Spend:          g.Spend,
			Revenue:        g.Revenue,
			ROAS:           g.ROAS,
			CAC:            g.CAC,
		})
	}
	return resp, nil
}

// Payback returns the cumulative revenue curve for one campaign.
func (s *InsightService) Payback(ctx context.Context, campaignID string) (*dto.PaybackResponse, error) {
	merged, campaigns, err := s.loadAttributed(ctx)
	if err != nil {
		return nil, err
	}

	var campaign *domain.Campaign
	for i := range campaigns {
		if campaigns[i].CampaignID == campaignID {
			campaign = &campaigns[i]
			break
		}
	}
	if campaign == nil {
		return nil, fmt.Errorf("%w: %q", ErrCampaignNotFound, campaignID)
	}

	p := insights.PaybackCurve(merged, *campaign)
	s.metrics.InsightRequestsTotal.WithLabelValues("payback").Inc()

	resp := &dto.PaybackResponse{
		CampaignID:   p.CampaignID,
		CampaignName: p.CampaignName,
		Spend:        p.Spend,
		TotalRevenue: p.TotalRevenue,
		BreakevenDay: p.BreakevenDay,
		Points:       make([]dto.PaybackPointData, 0, len(p.Points)),
	}
	for _, point := range p.Points {
		resp.Points = append(resp.Points, dto.PaybackPointData{
			Day:               point.Day,
			Revenue:           point.Revenue,
			CumulativeRevenue: point.CumulativeRevenue,
		})
	}
	return resp, nil
}

// CustomerValue returns the bootstrap estimate of mean attributed revenue per
// user.
func (s *InsightService) CustomerValue(ctx context.Context) (*dto.CustomerValueResponse, error) {
	merged, _, err := s.loadAttributed(ctx)
	if err != nil {
		return nil, err
	}

	est, err := insights.CustomerValue(merged, s.resamples, s.confidence, s.seed)
	if err != nil {
		return nil, err
	}
	s.metrics.InsightRequestsTotal.WithLabelValues("customer_value").Inc()

	return &dto.CustomerValueResponse{
		Users:      est.Users,
		Mean:       est.Mean,
		Low:        est.Low,
		High:       est.High,
		Confidence: est.Confidence,
	}, nil
}
