// Package insights computes the campaign performance metrics served to the
// visualization layer: ROAS/CAC per creative pairing, payback curves, budget
// lift forecasts, and customer value estimates.
package insights

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/eval"
)

// ScoreFunc scores merged sessions with the trained model, returning one
// conversion probability per session.
type ScoreFunc func(sessions []domain.MergedSession) ([]float64, error)

// CreativeGroup aggregates performance for one creative format and theme
// pairing.
type CreativeGroup struct {
	CreativeFormat string  `json:"creative_format"`
	CreativeTheme  string  `json:"creative_theme"`
	Campaigns      int     `json:"campaigns"`
	Sessions       int     `json:"sessions"`
	Conversions    int     `json:"conversions"`
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	ROAS           float64 `json:"roas"`
	CAC            float64 `json:"cac"`
}

// CreativeSummary groups sessions by creative format and theme. Spend is
// counted once per campaign, not per session, since it is campaign-level
// reference data. Groups with zero spend report ROAS 0 and groups with zero
// conversions report CAC 0 rather than dividing by zero. Sessions without a
// matched campaign carry no creative identity and are excluded. Groups are
// sorted by format, then theme.
func CreativeSummary(sessions []domain.MergedSession) []CreativeGroup {
	type key struct {
		format string
		theme  string
	}
	groups := make(map[key]*CreativeGroup)
	spendSeen := make(map[key]map[string]struct{})

	for i := range sessions {
		sess := &sessions[i]
		if !sess.HasCampaign {
			continue
		}
		k := key{format: sess.CreativeFormat, theme: sess.CreativeTheme}
		g, ok := groups[k]
		if !ok {
			g = &CreativeGroup{CreativeFormat: k.format, CreativeTheme: k.theme}
			groups[k] = g
			spendSeen[k] = make(map[string]struct{})
		}

		g.Sessions++
		g.Revenue += sess.GrossRevenue
		if sess.Converted {
			g.Conversions++
		}
		if _, counted := spendSeen[k][sess.CampaignID]; !counted {
			spendSeen[k][sess.CampaignID] = struct{}{}
			g.Spend += sess.Spend
			g.Campaigns++
		}
	}

	out := make([]CreativeGroup, 0, len(groups))
	for _, g := range groups {
		if g.Spend > 0 {
			g.ROAS = g.Revenue / g.Spend
		}
		if g.Conversions > 0 {
			g.CAC = g.Spend / float64(g.Conversions)
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreativeFormat != out[j].CreativeFormat {
			return out[i].CreativeFormat < out[j].CreativeFormat
		}
		return out[i].CreativeTheme < out[j].CreativeTheme
	})
	return out
}

// PaybackPoint is one day of a campaign's cumulative revenue curve.
type PaybackPoint struct {
	Day               int     `json:"day"`
	Revenue           float64 `json:"revenue"`
	CumulativeRevenue float64 `json:"cumulative_revenue"`
}

// Payback is a campaign's attributed revenue accumulated by days since
// launch. BreakevenDay is the first day cumulative revenue covered the
// campaign's spend, or -1 when the curve never reaches it.
type Payback struct {
	CampaignID   string         `json:"campaign_id"`
	CampaignName string         `json:"campaign_name"`
	Spend        float64        `json:"spend"`
	TotalRevenue float64        `json:"total_revenue"`
	BreakevenDay int            `json:"breakeven_day"`
	Points       []PaybackPoint `json:"points"`
}

// PaybackCurve accumulates the campaign's attributed revenue by whole days
// since its start date. Only days with sessions appear as points; days before
// launch fold into day zero.
func PaybackCurve(sessions []domain.MergedSession, campaign domain.Campaign) Payback {
	byDay := make(map[int]float64)
	for i := range sessions {
		sess := &sessions[i]
		if sess.CampaignID != campaign.CampaignID {
			continue
		}
		day := int(math.Floor(sess.Start.Sub(campaign.StartDate).Hours() / 24))
		if day < 0 {
			day = 0
		}
		byDay[day] += sess.GrossRevenue
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	p := Payback{
		CampaignID:   campaign.CampaignID,
		CampaignName: campaign.Name,
		Spend:        campaign.Spend,
		BreakevenDay: -1,
		Points:       make([]PaybackPoint, 0, len(days)),
	}
	cumulative := 0.0
	for _, day := range days {
		cumulative += byDay[day]
		p.Points = append(p.Points, PaybackPoint{
			Day:               day,
			Revenue:           byDay[day],
			CumulativeRevenue: cumulative,
		})
		if p.BreakevenDay < 0 && cumulative >= campaign.Spend {
			p.BreakevenDay = day
		}
	}
	p.TotalRevenue = cumulative
	return p
}

// Lift is the forecast outcome of scaling campaign budgets.
type Lift struct {
	Sessions               int     `json:"sessions"`
	BudgetIncreasePct      float64 `json:"budget_increase_pct"`
	AvgOrderValue          float64 `json:"avg_order_value"`
	BaselineConversions    float64 `json:"baseline_conversions"`
	ProjectedConversions   float64 `json:"projected_conversions"`
	IncrementalConversions float64 `json:"incremental_conversions"`
	IncrementalRevenue     float64 `json:"incremental_revenue"`
}

// LiftForecast scores every session at its current spend and again with spend
// scaled by (1 + pct/100), summing the probability deltas into incremental
// conversions and multiplying by the average order value for incremental
// revenue. The input sessions are not modified.
func LiftForecast(score ScoreFunc, sessions []domain.MergedSession, budgetIncreasePct, avgOrderValue float64) (*Lift, error) {
	if score == nil {
		return nil, errors.New("no scorer provided")
	}
	if len(sessions) == 0 {
		return nil, errors.New("no sessions to forecast over")
	}
	if budgetIncreasePct <= -100 {
		return nil, fmt.Errorf("budget increase %v%% eliminates the budget", budgetIncreasePct)
	}
	if avgOrderValue < 0 {
		return nil, fmt.Errorf("average order value must be non-negative, got %v", avgOrderValue)
	}

	baseline, err := score(sessions)
	if err != nil {
		return nil, fmt.Errorf("baseline scoring: %w", err)
	}

	scaled := make([]domain.MergedSession, len(sessions))
	copy(scaled, sessions)
	factor := 1 + budgetIncreasePct/100
	for i := range scaled {
		scaled[i].Spend *= factor
	}
	projected, err := score(scaled)
	if err != nil {
		return nil, fmt.Errorf("scaled scoring: %w", err)
	}
	if len(baseline) != len(sessions) || len(projected) != len(sessions) {
		return nil, fmt.Errorf("scorer returned %d and %d scores for %d sessions",
			len(baseline), len(projected), len(sessions))
	}

	lift := &Lift{
		Sessions:          len(sessions),
		BudgetIncreasePct: budgetIncreasePct,
		AvgOrderValue:     avgOrderValue,
	}
	for i := range sessions {
		lift.BaselineConversions += baseline[i]
		lift.ProjectedConversions += projected[i]
	}
	lift.IncrementalConversions = lift.ProjectedConversions - lift.BaselineConversions
	lift.IncrementalRevenue = lift.IncrementalConversions * avgOrderValue
	return lift, nil
}

// ValueEstimate is a bootstrap confidence interval around the mean attributed
// revenue per user.
type ValueEstimate struct {
	Users      int     `json:"users"`
	Mean       float64 `json:"mean"`
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Confidence float64 `json:"confidence"`
}

// CustomerValue sums attributed revenue per user and bootstraps a confidence
// interval for the mean. Users with sessions but no attributed orders count
// as zero-value, they are not dropped. Deterministic for a fixed seed.
func CustomerValue(sessions []domain.MergedSession, resamples int, confidence float64, seed int64) (*ValueEstimate, error) {
	if len(sessions) == 0 {
		return nil, errors.New("no sessions to estimate from")
	}

	byUser := make(map[string]float64)
	for i := range sessions {
		byUser[sessions[i].UserID] += sessions[i].GrossRevenue
	}
	users := make([]string, 0, len(byUser))
	for user := range byUser {
		users = append(users, user)
	}
	sort.Strings(users)
	values := make([]float64, len(users))
	for i, user := range users {
		values[i] = byUser[user]
	}

	lo, hi, err := eval.BootstrapMeanCI(values, resamples, confidence, seed)
	if err != nil {
		return nil, err
	}
	return &ValueEstimate{
		Users:      len(values),
		Mean:       stat.Mean(values, nil),
		Low:        lo,
		High:       hi,
		Confidence: confidence,
	}, nil
}
