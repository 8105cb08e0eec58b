//go:build ignore

// reset_storage はSQLストレージのセッションと登録商品をすべて削除します。
package main

import (
	"context"
	"log"

	config "agrinova-api/configs"
	"agrinova-api/pkg/storage"

	"github.com/joho/godotenv"
)

func main() {
	log.Println("🗑️ ストレージの初期化を開始します...")

	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg := config.LoadConfig()

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.StorageDSN)
	if err != nil {
		log.Fatalf("ストレージの初期化に失敗: %v", err)
	}
	defer store.Close()

	if err := store.Reset(ctx); err != nil {
		log.Fatalf("削除に失敗: %v", err)
	}
	log.Printf("✅ %s のデータを削除しました", store.Driver())
}
