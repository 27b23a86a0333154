package dto

// PredictRecord carries the raw attributes of one session to score. Empty
// categorical fields encode as the group's missing flag, the same treatment
// an unmatched campaign join receives at training time.
type PredictRecord struct {
	SessionStart      int64   `json:"session_start" binding:"required" example:"1723475612"`
	Spend             float64 `json:"spend" example:"450.0"`
	UTMSource         string  `json:"utm_source" example:"google"`
	UTMMedium         string  `json:"utm_medium" example:"cpc"`
	CreativeFormat    string  `json:"creative_format" example:"video"`
	CreativeTheme     string  `json:"creative_theme" example:"Evergreen"`
	EffectivenessTier string  `json:"effectiveness_tier" example:"High"`
}

// PredictRequest represents a batch scoring request.
type PredictRequest struct {
	Records []PredictRecord `json:"records" binding:"required,min=1,max=10000,dive"`
}

// LiftForecastRequest represents a budget lift forecast request. When
// AvgOrderValue is zero it is derived from the orders table.
type LiftForecastRequest struct {
	BudgetIncreasePct float64 `json:"budget_increase_pct" binding:"required" example:"20"`
	AvgOrderValue     float64 `json:"avg_order_value" example:"85.50"`
}
