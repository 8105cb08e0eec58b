package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	config "agrinova-api/configs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(dsn string) *config.Config {
	return &config.Config{
		Port:           "0",
		Environment:    "test",
		AdminUsername:  "admin",
		AdminPassword:  "pw",
		CORSOrigins:    []string{"*"},
		Timezone:       "UTC",
		StorageDSN:     dsn,
		ChatReplyDelay: 5 * time.Millisecond,
		SensorInterval: 5 * time.Millisecond,
		SensorSeed:     1,
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func do(r http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter(newTestApp(t, testConfig(MemoryDSN)))

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/crops/recommend?soilType=Loamy&temperature=20&humidity=60", "", http.StatusOK},
		{http.MethodGet, "/api/v1/crops/list", "", http.StatusOK},
		{http.MethodPost, "/api/v1/chatbot/respond", `{"message":"wheat"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/marketplace/products?sortBy=rating", "", http.StatusOK},
		{http.MethodGet, "/api/v1/marketplace/products/1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/marketplace/categories", "", http.StatusOK},
		{http.MethodGet, "/api/v1/cart/abc", "", http.StatusOK},
		{http.MethodGet, "/api/v1/orders", "", http.StatusOK},
		{http.MethodGet, "/api/v1/iot/sensors", "", http.StatusOK},
		{http.MethodGet, "/api/v1/iot/summary", "", http.StatusOK},
		{http.MethodGet, "/api/v1/predict/yield/history", "", http.StatusOK},
		{http.MethodGet, "/api/v1/analytics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/auth/me", "", http.StatusOK},
		{http.MethodGet, "/api/v1/monitoring/logs?period=7d", "", http.StatusOK},
		{http.MethodGet, "/api/v1/chatbot/history/search?q=wheat", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	cfg := testConfig(MemoryDSN)
	cfg.APIKey = "k-123"
	r := NewRouter(newTestApp(t, cfg))

	w := do(r, http.MethodGet, "/api/v1/analytics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/analytics", "", map[string]string{"X-API-KEY": "k-123"})
	assert.Equal(t, http.StatusOK, w.Code)

	// ヘルスチェックとメトリクスは認証不要
	w = do(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(newTestApp(t, testConfig(MemoryDSN)))

	do(r, http.MethodGet, "/api/v1/crops/recommend?soilType=Sandy&temperature=10&humidity=20", "", nil)
	w := do(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `agrinova_crop_recommendations_total{branch="fallback"}`)
	assert.Contains(t, w.Body.String(), "agrinova_api_request_latency_seconds")
}

func TestMaintenanceBlocksAPI(t *testing.T) {
	a := newTestApp(t, testConfig(MemoryDSN))
	r := NewRouter(a)

	w := do(r, http.MethodPost, "/api/v1/admin/maintenance/start", `{"username":"admin","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, a.Maintenance.Enabled())

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/v1/analytics", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health", "", nil).Code)
}

func TestSQLStoragePersistsAcrossRestart(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "agrinova.db")

	a, err := New(context.Background(), testConfig(dsn), nil)
	require.NoError(t, err)
	r := NewRouter(a)

	w := do(r, http.MethodPost, "/api/v1/marketplace/products", `{"name":"Saffron","description":"Threads","price":250,"stock":5}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(r, http.MethodPost, "/api/v1/auth/login", `{"email":"lina@farm.example","password":"x","role":"Farmer"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, a.Close())

	b, err := New(context.Background(), testConfig(dsn), nil)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Marketplace.Get(15)
	assert.NoError(t, err)
	require.NotNil(t, b.Sessions.Current())
	assert.Equal(t, "lina", b.Sessions.Current().Name)
}

func TestServeListenerShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	a, err := New(context.Background(), testConfig(MemoryDSN), nil)
	require.NoError(t, err)
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ServeListener(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://%s/api/v1/chatbot/respond", ln.Addr().String())
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(`{"message":"corn"}`))
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Contains(t, body["response"], "corn grows well")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
