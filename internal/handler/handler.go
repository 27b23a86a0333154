package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/dto"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/features"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/service"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/telemetry"
)

type Handler struct {
	scorer   service.ConversionScorer
	insights service.InsightProvider
	metrics  *telemetry.Metrics
	router   *gin.Engine
	log      *zap.Logger
}

func NewHandler(scorer service.ConversionScorer, insights service.InsightProvider, metrics *telemetry.Metrics, log *zap.Logger) *Handler {
	h := &Handler{
		scorer:   scorer,
		insights: insights,
		metrics:  metrics,
		router:   gin.Default(),
		log:      log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.POST("/predict", h.predict)
	h.router.POST("/forecast/lift", h.forecastLift)
	h.router.GET("/insights/creatives", h.creativeSummary)
	h.router.GET("/insights/payback", h.payback)
	h.router.GET("/insights/customer-value", h.customerValue)
	h.router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
}

// respondError maps a service error to the right status and envelope.
// Alignment failures are the caller's data problem, not ours.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, features.ErrFeatureMismatch), errors.Is(err, features.ErrDuplicateFeature):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "alignment_error",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrCampaignNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// predict handles POST /predict
func (h *Handler) predict(c *gin.Context) {
	var req dto.PredictRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid predict request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.scorer.Score(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to score records",
			zap.Error(err),
			zap.Int("records", len(req.Records)))
		h.respondError(c, err)
		return
	}

	h.log.Info("Records scored",
		zap.String("run_id", resp.RunID),
		zap.Int("count", resp.Count))

	c.JSON(http.StatusOK, resp)
}

// forecastLift handles POST /forecast/lift
func (h *Handler) forecastLift(c *gin.Context) {
	var req dto.LiftForecastRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid lift forecast request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.scorer.ForecastLift(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to forecast lift",
			zap.Error(err),
			zap.Float64("budget_increase_pct", req.BudgetIncreasePct))
		h.respondError(c, err)
		return
	}

	h.log.Info("Lift forecast served",
		zap.Int("sessions", resp.Sessions),
		zap.Float64("incremental_conversions", resp.IncrementalConversions))

	c.JSON(http.StatusOK, resp)
}

// creativeSummary handles GET /insights/creatives
func (h *Handler) creativeSummary(c *gin.Context) {
	resp, err := h.insights.CreativeSummary(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to compute creative summary", zap.Error(err))
		h.respondError(c, err)
		return
	}

	h.log.Info("Creative summary served", zap.Int("groups", len(resp.Groups)))

	c.JSON(http.StatusOK, resp)
}

// payback handles GET /insights/payback
func (h *Handler) payback(c *gin.Context) {
	campaignID := c.Query("campaign_id")
	if campaignID == "" {
		h.log.Warn("Payback request missing campaign_id")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "campaign_id is required",
		})
		return
	}

	resp, err := h.insights.Payback(c.Request.Context(), campaignID)
	if err != nil {
		h.log.Error("Failed to compute payback curve",
			zap.Error(err),
			zap.String("campaign_id", campaignID))
		h.respondError(c, err)
		return
	}

	h.log.Info("Payback curve served",
		zap.String("campaign_id", campaignID),
		zap.Int("breakeven_day", resp.BreakevenDay))

	c.JSON(http.StatusOK, resp)
}

// customerValue handles GET /insights/customer-value
func (h *Handler) customerValue(c *gin.Context) {
	resp, err := h.insights.CustomerValue(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to estimate customer value", zap.Error(err))
		h.respondError(c, err)
		return
	}

	h.log.Info("Customer value served",
		zap.Int("users", resp.Users),
		zap.Float64("mean", resp.Mean))

	c.JSON(http.StatusOK, resp)
}
