package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"agrinova-api/pkg/metrics"
	"agrinova-api/pkg/models"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// SQLStore はSQLiteまたはPostgreSQLに保存するストアです。
// DSNが postgres:// で始まる場合はPostgreSQL、それ以外はSQLiteのファイルパスとして扱います。
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open opens the database for dsn and creates the tables if needed.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	driver := driverSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = driverPostgres
	} else if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == driverPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// SQLiteは単一接続で書き込みを直列化する
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Driver returns "sqlite" or "postgres".
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			stock INTEGER NOT NULL,
			category TEXT NOT NULL,
			image TEXT NOT NULL,
			farmer TEXT NOT NULL,
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			reviews INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind は ? プレースホルダをPostgreSQLの $n 形式に置き換えます。
func (s *SQLStore) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func observe(op string, start time.Time) {
	metrics.StorageLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	defer observe("kv_get", time.Now())
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM kv_store WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	defer observe("kv_set", time.Now())
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	defer observe("kv_remove", time.Now())
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM kv_store WHERE key = ?`), key); err != nil {
		return fmt.Errorf("kv remove %q: %w", key, err)
	}
	return nil
}

// ListProducts は保存済みの商品をID順で返します。
func (s *SQLStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	defer observe("products_list", time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, stock, category, image, farmer, rating, reviews
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.Image, &p.Farmer, &p.Rating, &p.Reviews); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveProduct は商品をIDで上書き保存します。
func (s *SQLStore) SaveProduct(ctx context.Context, p models.Product) error {
	defer observe("products_save", time.Now())
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO products (id, name, description, price, stock, category, image, farmer, rating, reviews)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			stock = excluded.stock,
			category = excluded.category,
			image = excluded.image,
			farmer = excluded.farmer,
			rating = excluded.rating,
			reviews = excluded.reviews`),
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.Image, p.Farmer, p.Rating, p.Reviews)
	if err != nil {
		return fmt.Errorf("save product %d: %w", p.ID, err)
	}
	return nil
}

// Reset はすべてのテーブルの内容を削除します。
func (s *SQLStore) Reset(ctx context.Context) error {
	for _, table := range []string{"kv_store", "products"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
