//go:build ignore

// seed_products はExcel/CSVファイルの商品をSQLストレージへ登録します。
//
//	go run scripts/seed_products.go catalog.xlsx
package main

import (
	"context"
	"log"
	"os"

	config "agrinova-api/configs"
	"agrinova-api/pkg/services"
	"agrinova-api/pkg/storage"

	"github.com/joho/godotenv"
)

func main() {
	log.Println("🚀 商品データの登録を開始します...")

	if len(os.Args) < 2 {
		log.Fatal("usage: go run scripts/seed_products.go <file.xlsx|file.csv>")
	}
	path := os.Args[1]

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

	market, err := services.NewMarketplaceService(ctx, store, nil)
	if err != nil {
		log.Fatalf("カタログの読み込みに失敗: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("ファイルを開けません: %v", err)
	}
	defer f.Close()

	res, err := market.ImportProducts(ctx, f, path)
	if err != nil {
		log.Fatalf("取り込みに失敗: %v", err)
	}
	for _, p := range res.Created {
		log.Printf("✅ 登録: #%d %s (%.2f)", p.ID, p.Name, p.Price)
	}
	for _, e := range res.Failed {
		log.Printf("⚠️ %d行目をスキップ: %s", e.Row, e.Error)
	}
	log.Printf("🎉 完了: %d件登録、%d件スキップ (%s)", len(res.Created), len(res.Failed), store.Driver())
}
