package domain

import "time"

// Session represents a single visit attributed to a campaign, as ingested
// from the sessions table. Immutable once loaded.
type Session struct {
	SessionID  string
	UserID     string
	Start      time.Time
	UTMSource  string
	UTMMedium  string
	CampaignID string
	Converted  bool
}

// Campaign represents campaign reference data joined onto sessions.
type Campaign struct {
	CampaignID        string
	Name              string
	StartDate         time.Time
	Spend             float64
	CreativeFormat    string
	CreativeTheme     string
	EffectivenessTier string
}

// Order represents a purchase used for revenue attribution.
type Order struct {
	OrderID      string
	UserID       string
	OrderedAt    time.Time
	GrossRevenue float64
}

// MergedSession is a session joined with its campaign's creative metadata
// plus the revenue attributed to it. HasCampaign is false when the campaign
// key found no match: Spend stays zero and the creative fields stay empty so
// the encoder flags them as absent instead of dropping the row.
type MergedSession struct {
	Session
	HasCampaign       bool
	CampaignName      string
	CampaignStart     time.Time
	Spend             float64
	CreativeFormat    string
	CreativeTheme     string
	EffectivenessTier string
	GrossRevenue      float64
}

// Label returns the binary training target for a merged session.
func (m *MergedSession) Label() float64 {
	if m.Converted {
		return 1
	}
	return 0
}
