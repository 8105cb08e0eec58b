package app

import (
	"net/http"

	"agrinova-api/pkg/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// authMiddleware は X-API-KEY ヘッダーを検証します。
// キーが未設定または既定値の場合は認証を行いません。
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" || apiKey == "default_secret_key" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-API-KEY")
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	return cfg
}

// NewRouter はすべてのルートを登録したGinエンジンを返します。
func NewRouter(a *App) *gin.Engine {
	if a.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(a.Monitoring.LoggingMiddleware())
	r.Use(cors.New(corsConfig(a.Config.CORSOrigins)))
	r.Use(a.Maintenance.Middleware())

	cropHandler := handlers.NewCropHandler(a.Recommender, a.Fertilizer)
	chatbotHandler := handlers.NewChatbotHandler(a.Bot, a.Conversations, a.Archive)
	authHandler := handlers.NewAuthHandler(a.Sessions)
	marketplaceHandler := handlers.NewMarketplaceHandler(a.Marketplace)
	cartHandler := handlers.NewCartHandler(a.Carts)
	iotHandler := handlers.NewIoTHandler(a.Feed)
	predictionHandler := handlers.NewPredictionHandler(a.Yield)
	analyticsHandler := handlers.NewAnalyticsHandler(a.Analytics)
	adminHandler := handlers.NewAdminHandler(a.Config, a.Maintenance, a.Logger.Named("admin"))
	monitoringHandler := handlers.NewMonitoringHandler(a.Monitoring)

	// ヘルスチェックとメトリクス
	r.GET("/health", a.Maintenance.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(a.Config.APIKey))
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}

		// 作物推薦API
		crops := v1.Group("/crops")
		{
			crops.GET("/recommend", cropHandler.Recommend)
			crops.POST("/recommend", cropHandler.RecommendJSON)
			crops.GET("/list", cropHandler.List)
			crops.GET("/fertilizer", cropHandler.Fertilizer)
		}

		// チャットボットAPI
		chatbot := v1.Group("/chatbot")
		{
			chatbot.POST("/respond", chatbotHandler.Respond)
			chatbot.POST("/conversations", chatbotHandler.CreateConversation)
			chatbot.POST("/conversations/:id/messages", chatbotHandler.SendMessage)
			chatbot.GET("/conversations/:id/messages", chatbotHandler.Messages)
			chatbot.DELETE("/conversations/:id", chatbotHandler.DeleteConversation)
			chatbot.GET("/history/search", chatbotHandler.SearchHistory)
		}

		// 認証API
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", authHandler.Me)
		}

		// マーケットプレイスAPI
		marketplace := v1.Group("/marketplace")
		{
			marketplace.GET("/products", marketplaceHandler.ListProducts)
			marketplace.POST("/products", marketplaceHandler.CreateProduct)
			marketplace.GET("/products/export", marketplaceHandler.ExportProducts)
			marketplace.POST("/products/import", marketplaceHandler.ImportProducts)
			marketplace.GET("/products/:id", marketplaceHandler.GetProduct)
			marketplace.GET("/categories", marketplaceHandler.Categories)
		}

		// カート・注文API
		cart := v1.Group("/cart/:cartId")
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PATCH("/items/:productId", cartHandler.UpdateItem)
			cart.DELETE("/items/:productId", cartHandler.RemoveItem)
			cart.POST("/checkout", cartHandler.Checkout)
		}
		v1.GET("/orders", cartHandler.Orders)

		// IoTセンサーAPI
		iot := v1.Group("/iot")
		{
			iot.GET("/sensors", iotHandler.Sensors)
			iot.GET("/sensors/:id", iotHandler.Sensor)
			iot.GET("/sensors/:id/history", iotHandler.History)
			iot.GET("/sensors/:id/history/export", iotHandler.ExportHistory)
			iot.GET("/summary", iotHandler.Summary)
		}

		// 収量予測API
		predict := v1.Group("/predict")
		{
			predict.POST("/yield", predictionHandler.PredictYield)
			predict.GET("/yield/history", predictionHandler.YieldHistory)
		}

		v1.GET("/analytics", analyticsHandler.Dashboard)
	}

	return r
}
