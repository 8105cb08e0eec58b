// Package app wires configuration, storage, services and handlers into a
// runnable server. The HTTP server, the serverless entry point and the CLI
// all build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	config "agrinova-api/configs"
	"agrinova-api/pkg/handlers"
	"agrinova-api/pkg/services"
	"agrinova-api/pkg/storage"

	"go.uber.org/zap"
)

// archiveTimeout は1件のやり取りをQdrantへ保存するときの上限時間です。
const archiveTimeout = 5 * time.Second

// MemoryDSN selects the in-process key-value store instead of SQL.
const MemoryDSN = "memory"

// App はサーバー全体で共有する依存関係をまとめたものです。
type App struct {
	Config *config.Config
	Logger *zap.Logger

	KV  storage.KV
	SQL *storage.SQLStore // nil when STORAGE_DSN is "memory"

	Publisher services.Publisher
	Archive   *services.ChatArchive // nil when QDRANT_URL is empty

	Recommender   *services.CropRecommender
	Fertilizer    *services.FertilizerAdvisor
	Bot           *services.ChatbotService
	Conversations *services.ConversationStore
	Sessions      *services.SessionProvider
	Marketplace   *services.MarketplaceService
	Carts         *services.CartService
	Feed          *services.Feed
	Yield         *services.YieldPredictor
	Analytics     *services.AnalyticsService
	Monitoring    *services.MonitoringService
	Maintenance   *handlers.MaintenanceMode
}

// New builds every service from cfg. Optional integrations (NATS, Qdrant) that
// fail to connect are logged and left disabled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Maintenance: &handlers.MaintenanceMode{}}

	var products services.ProductStore
	if strings.EqualFold(cfg.StorageDSN, MemoryDSN) {
		a.KV = storage.NewMemoryKV()
		logger.Info("using in-memory storage")
	} else {
		store, err := storage.Open(ctx, cfg.StorageDSN)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.SQL = store
		a.KV = store
		products = store
		logger.Info("storage opened", zap.String("driver", store.Driver()))
	}

	clock := services.RealClock()
	a.Recommender = services.NewCropRecommender()
	a.Fertilizer = services.NewFertilizerAdvisor()
	a.Bot = services.NewChatbotService()
	a.Conversations = services.NewConversationStore(a.Bot, clock, cfg.ChatReplyDelay, logger.Named("chat"))
	a.Yield = services.NewYieldPredictor(cfg.SensorSeed, clock)
	a.Analytics = services.NewAnalyticsService()
	a.Monitoring = services.NewMonitoringService(cfg.Timezone, clock, logger.Named("http"))

	a.Sessions = services.NewSessionProvider(a.KV, cfg.AuthDelay, logger.Named("session"))
	if err := a.Sessions.Init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	market, err := services.NewMarketplaceService(ctx, products, logger.Named("marketplace"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load marketplace: %w", err)
	}
	a.Marketplace = market
	a.Carts = services.NewCartService(market, clock)

	a.Publisher = services.NopPublisher{}
	if cfg.NATSURL != "" {
		pub, err := services.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectSensors)
		if err != nil {
			logger.Warn("NATS unavailable, sensor ticks will not be published", zap.Error(err))
		} else {
			a.Publisher = pub
			logger.Info("publishing sensor ticks", zap.String("subject", cfg.NATSSubjectSensors))
		}
	}
	a.Feed = services.NewFeed(services.FeedOptions{
		Interval:  cfg.SensorInterval,
		Seed:      cfg.SensorSeed,
		Clock:     clock,
		Publisher: a.Publisher,
		Logger:    logger.Named("iot"),
	})

	if cfg.QdrantURL != "" {
		archive, err := services.NewChatArchive(ctx, cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection, a.Bot, logger.Named("archive"))
		if err != nil {
			logger.Warn("Qdrant unavailable, chat archive disabled", zap.Error(err))
		} else {
			a.Archive = archive
			a.Conversations.SetHook(archive.Hook(archiveTimeout))
		}
	}

	return a, nil
}

// Close は会話・セッション・外部接続・ストレージを順に閉じます。
func (a *App) Close() error {
	var errs []error
	if a.Conversations != nil {
		a.Conversations.Close()
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
	}
	if a.KV != nil {
		if err := a.KV.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
