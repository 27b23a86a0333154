package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"records is required"`
}

// PredictResponse represents a batch scoring response. Probabilities are in
// request order.
type PredictResponse struct {
	RunID         string    `json:"run_id" example:"3aa8f3f4-7e2e-4a27-9d2e-5b1f6f1c2d3e"`
	Count         int       `json:"count" example:"2"`
	Probabilities []float64 `json:"probabilities"`
}

// LiftForecastResponse represents the projected effect of scaling campaign
// budgets by the requested percentage.
type LiftForecastResponse struct {
	RunID                  string  `json:"run_id"`
	Sessions               int     `json:"sessions" example:"5000"`
	BudgetIncreasePct      float64 `json:"budget_increase_pct" example:"20"`
	AvgOrderValue          float64 `json:"avg_order_value" example:"85.50"`
	BaselineConversions    float64 `json:"baseline_conversions"`
	ProjectedConversions   float64 `json:"projected_conversions"`
	IncrementalConversions float64 `json:"incremental_conversions"`
	IncrementalRevenue     float64 `json:"incremental_revenue"`
}

// CreativeGroupData aggregates performance for one creative format and theme
// pairing.
type CreativeGroupData struct {
	CreativeFormat string  `json:"creative_format" example:"video"`
	CreativeTheme  string  `json:"creative_theme" example:"Evergreen"`
	Campaigns      int     `json:"campaigns" example:"3"`
	Sessions       int     `json:"sessions" example:"1200"`
	Conversions    int     `json:"conversions" example:"96"`
	Spend          float64 `json:"spend" example:"4500"`
	Revenue        float64 `json:"revenue" example:"10350"`
	ROAS           float64 `json:"roas" example:"2.3"`
	CAC            float64 `json:"cac" example:"46.88"`
}

// CreativeSummaryResponse represents the per-creative performance breakdown.
type CreativeSummaryResponse struct {
	Groups []CreativeGroupData `json:"groups"`
}

// PaybackPointData is one day of a campaign's cumulative revenue curve.
type PaybackPointData struct {
	Day               int     `json:"day" example:"14"`
	Revenue           float64 `json:"revenue" example:"320.5"`
	CumulativeRevenue float64 `json:"cumulative_revenue" example:"4810.25"`
}

// PaybackResponse represents a campaign's payback curve. BreakevenDay is -1
// when cumulative revenue never covered spend.
type PaybackResponse struct {
	CampaignID   string             `json:"campaign_id" example:"cmp_12"`
	CampaignName string             `json:"campaign_name" example:"Spring Launch"`
	Spend        float64            `json:"spend" example:"5000"`
	TotalRevenue float64            `json:"total_revenue" example:"6200"`
	BreakevenDay int                `json:"breakeven_day" example:"18"`
	Points       []PaybackPointData `json:"points"`
}

// CustomerValueResponse represents the bootstrap estimate of mean attributed
// revenue per user.
type CustomerValueResponse struct {
	Users      int     `json:"users" example:"1800"`
	Mean       float64 `json:"mean" example:"34.6"`
	Low        float64 `json:"low" example:"31.2"`
	High       float64 `json:"high" example:"38.1"`
	Confidence float64 `json:"confidence" example:"0.95"`
}
