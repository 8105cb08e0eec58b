package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	config "agrinova-api/configs"
	"agrinova-api/internal/app"
	"agrinova-api/internal/logging"
)

var (
	application *app.App
	engine      http.Handler
	initErr     error
	once        sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() error {
	once.Do(func() {
		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()

		logger, err := logging.New(cfg.Environment, cfg.LogLevel)
		if err != nil {
			initErr = err
			return
		}
		application, err = app.New(context.Background(), cfg, logger)
		if err != nil {
			initErr = err
			return
		}
		engine = app.NewRouter(application)
	})
	return initErr
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	if err := setupApp(); err != nil {
		log.Printf("failed to initialize application: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"error":"service unavailable"}`))
		return
	}
	// 関数実行環境ではフィードのゴルーチンを常駐させないため、センサー参照時に1ステップ進める
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/iot/") {
		application.Feed.Tick(r.Context())
	}
	engine.ServeHTTP(w, r)
}
