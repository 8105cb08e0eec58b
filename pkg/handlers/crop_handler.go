package handlers

import (
	"net/http"
	"strings"

	"agrinova-api/pkg/metrics"
	"agrinova-api/pkg/models"
	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// CropHandler は作物推薦と施肥アドバイスのハンドラです。
type CropHandler struct {
	recommender *services.CropRecommender
	advisor     *services.FertilizerAdvisor
}

// NewCropHandler は新しいCropHandlerを生成します。
func NewCropHandler(recommender *services.CropRecommender, advisor *services.FertilizerAdvisor) *CropHandler {
	return &CropHandler{recommender: recommender, advisor: advisor}
}

// Recommend はクエリパラメータの圃場条件から推薦作物を返します。
// mode=scored の場合は重み付きスコアの一覧を返します。
func (h *CropHandler) Recommend(c *gin.Context) {
	soil := c.Query("soilType")
	temp, okTemp := queryFloat(c, "temperature")
	humidity, okHumidity := queryFloat(c, "humidity")
	if soil == "" || !okTemp || !okHumidity {
		badRequest(c, "Missing required parameters: soilType, temperature, humidity")
		return
	}
	h.respond(c, models.FieldConditions{SoilType: soil, TemperatureC: temp, HumidityPct: humidity}, c.Query("mode"))
}

// RecommendJSON はJSONボディで同じ推薦を行います。
func (h *CropHandler) RecommendJSON(c *gin.Context) {
	var req struct {
		SoilType    string   `json:"soilType"`
		Temperature *float64 `json:"temperature"`
		Humidity    *float64 `json:"humidity"`
		Mode        string   `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SoilType == "" || req.Temperature == nil || req.Humidity == nil {
		badRequest(c, "Missing required parameters: soilType, temperature, humidity")
		return
	}
	h.respond(c, models.FieldConditions{SoilType: req.SoilType, TemperatureC: *req.Temperature, HumidityPct: *req.Humidity}, req.Mode)
}

func (h *CropHandler) respond(c *gin.Context, fc models.FieldConditions, mode string) {
	if strings.EqualFold(mode, "scored") {
		scored := h.recommender.Score(fc)
		metrics.Recommendations.WithLabelValues("scored").Inc()
		c.JSON(http.StatusOK, gin.H{"success": true, "recommendations": scored, "query": fc})
		return
	}

	recs := h.recommender.Recommend(fc)
	fallback := h.recommender.IsFallback(recs)
	branch := "rule"
	if fallback {
		branch = "fallback"
	}
	metrics.Recommendations.WithLabelValues(branch).Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"recommendations": recs,
		"fallback":        fallback,
		"query":           fc,
	})
}

// List は推薦対象の作物一覧を返します。
func (h *CropHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "crops": h.recommender.Crops(), "soilTypes": services.SoilTypes})
}

// Fertilizer は作物・土壌・pHから施肥計画を返します。
func (h *CropHandler) Fertilizer(c *gin.Context) {
	crop := c.Query("cropType")
	if crop == "" {
		crop = c.Query("crop")
	}
	if crop == "" {
		badRequest(c, "cropType is required")
		return
	}
	var ph *float64
	if v, ok := queryFloat(c, "soilPh"); ok {
		ph = &v
	}
	plan, err := h.advisor.Advise(crop, c.Query("soilType"), ph)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plan": plan})
}
