// Package dataset assembles the analysis-ready table the model trains on by
// joining the raw sessions, campaigns, and orders tables.
package dataset

import (
	"sort"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
)

// Merge left-joins sessions with campaigns on campaign_id. Sessions whose
// campaign_id matches no campaign are kept with HasCampaign false and zero
// campaign attributes. When a campaign_id appears more than once the first
// occurrence wins.
func Merge(sessions []domain.Session, campaigns []domain.Campaign) []domain.MergedSession {
	byID := make(map[string]domain.Campaign, len(campaigns))
	for _, c := range campaigns {
		if _, ok := byID[c.CampaignID]; !ok {
			byID[c.CampaignID] = c
		}
	}

	merged := make([]domain.MergedSession, 0, len(sessions))
	for _, sess := range sessions {
		m := domain.MergedSession{Session: sess}
		if c, ok := byID[sess.CampaignID]; ok && sess.CampaignID != "" {
			m.HasCampaign = true
			m.CampaignName = c.Name
			m.CampaignStart = c.StartDate
			m.Spend = c.Spend
			m.CreativeFormat = c.CreativeFormat
			m.CreativeTheme = c.CreativeTheme
			m.EffectivenessTier = c.EffectivenessTier
		}
		merged = append(merged, m)
	}
	return merged
}

// AttributeRevenue credits each order to the user's latest session that
// started at or before the order, adding the order's gross revenue to that
// session. Orders with no qualifying session are left unattributed. It
// returns how many orders were attributed and how many were not.
func AttributeRevenue(sessions []domain.MergedSession, orders []domain.Order) (attributed, unattributed int) {
	byUser := make(map[string][]int)
	for i, sess := range sessions {
		byUser[sess.UserID] = append(byUser[sess.UserID], i)
	}
	for _, idxs := range byUser {
		sort.SliceStable(idxs, func(a, b int) bool {
			return sessions[idxs[a]].Start.Before(sessions[idxs[b]].Start)
		})
	}

	for _, o := range orders {
		idxs := byUser[o.UserID]
		// Latest session with Start <= OrderedAt is the one just before the
		// first session strictly after the order.
		n := sort.Search(len(idxs), func(i int) bool {
			return sessions[idxs[i]].Start.After(o.OrderedAt)
		})
		if n == 0 {
			unattributed++
			continue
		}
		sessions[idxs[n-1]].GrossRevenue += o.GrossRevenue
		attributed++
	}
	return attributed, unattributed
}
