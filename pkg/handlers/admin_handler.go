package handlers

import (
	"net/http"
	"strings"
	"sync/atomic"

	config "agrinova-api/configs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaintenanceMode はサーバーがメンテナンス中かどうかを保持します。
// atomic.Boolを使用して、スレッドセーフな読み書きを保証します。
type MaintenanceMode struct {
	on atomic.Bool
}

// Enabled はメンテナンス中ならtrueを返します。
func (m *MaintenanceMode) Enabled() bool { return m.on.Load() }

// Set はメンテナンス状態を切り替えます。
func (m *MaintenanceMode) Set(on bool) { m.on.Store(on) }

// Middleware はメンテナンス中に /api/v1 以下の業務APIを503で止めます。
// 管理APIとモニタリングAPIは常に通します。
func (m *MaintenanceMode) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if m.Enabled() && !strings.HasPrefix(path, "/api/v1/admin") && !strings.HasPrefix(path, "/api/v1/monitoring") {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "Server is in maintenance mode",
			})
			return
		}
		c.Next()
	}
}

// AdminHandler は管理者向け操作のハンドラです。
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
	mode          *MaintenanceMode
	logger        *zap.Logger
}

// NewAdminHandler は新しいAdminHandlerを生成します。
func NewAdminHandler(cfg *config.Config, mode *MaintenanceMode, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		mode:          mode,
		logger:        logger,
	}
}

// AdminCredentials は管理者認証のためのリクエストボディです。
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password are required"})
		return false
	}
	// パスワード未設定の場合は管理操作を受け付けない
	if h.AdminPassword == "" || input.Username != h.AdminUsername || input.Password != h.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return false
	}
	return true
}

// StartMaintenance はメンテナンスモードを開始します。
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.mode.Set(true)
	h.logger.Warn("maintenance mode started")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Maintenance mode started"})
}

// StopMaintenance はメンテナンスモードを停止します。
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.mode.Set(false)
	h.logger.Info("maintenance mode stopped")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Maintenance mode stopped"})
}

// GetHealthStatus は現在のサーバーの状態を返します。
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"isMaintenanceMode": h.mode.Enabled()})
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
func (m *MaintenanceMode) HealthCheck(c *gin.Context) {
	if m.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
