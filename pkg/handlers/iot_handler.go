package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// IoTHandler はセンサーデータのハンドラです。
type IoTHandler struct {
	feed *services.Feed
}

// NewIoTHandler は新しいIoTHandlerを生成します。
func NewIoTHandler(feed *services.Feed) *IoTHandler {
	return &IoTHandler{feed: feed}
}

// Sensors は全センサーの最新値を返します。
func (h *IoTHandler) Sensors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "sensors": h.feed.Snapshot()})
}

// Sensor は指定IDのセンサーを返します。
func (h *IoTHandler) Sensor(c *gin.Context) {
	r, err := h.feed.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Sensor not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// History は1時間ごとの履歴を新しい順に返します。
func (h *IoTHandler) History(c *gin.Context) {
	hours := queryInt(c, "hours", 24)
	c.JSON(http.StatusOK, gin.H{"success": true, "history": h.feed.History(c.Param("id"), hours)})
}

// ExportHistory は履歴をExcelで返します。
func (h *IoTHandler) ExportHistory(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.feed.Get(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Sensor not found"})
		return
	}
	var buf bytes.Buffer
	if err := services.WriteSensorHistoryXLSX(&buf, h.feed.History(id, queryInt(c, "hours", 24))); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_history.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Summary は水使用量の合計と土壌水分・気温の平均を返します。
func (h *IoTHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": h.feed.Summary()})
}
