package handlers

import (
	"net/http"

	"agrinova-api/pkg/models"
	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// PredictionHandler は収量予測のハンドラです。
type PredictionHandler struct {
	predictor *services.YieldPredictor
}

// NewPredictionHandler は新しいPredictionHandlerを生成します。
func NewPredictionHandler(predictor *services.YieldPredictor) *PredictionHandler {
	return &PredictionHandler{predictor: predictor}
}

// PredictYield は作物・圃場面積・環境条件から収量を予測します。
func (h *PredictionHandler) PredictYield(c *gin.Context) {
	var req models.YieldPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.ErrMissingYieldFields)
		return
	}
	pred, err := h.predictor.Predict(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

// YieldHistory は過去の収量推移（模擬）を返します。
func (h *PredictionHandler) YieldHistory(c *gin.Context) {
	history := h.predictor.History(c.Query("cropType"), queryInt(c, "months", 6))
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

// AnalyticsHandler は分析ダッシュボードのハンドラです。
type AnalyticsHandler struct {
	service *services.AnalyticsService
}

// NewAnalyticsHandler は新しいAnalyticsHandlerを生成します。
func NewAnalyticsHandler(service *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Dashboard は分析画面のデータを返します。
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "analytics": h.service.Dashboard()})
}
