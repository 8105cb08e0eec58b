package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardAggregation(t *testing.T) {
	clock := newFakeClock()
	s := NewMonitoringService("UTC", clock, nil)
	now := clock.Now()

	s.LogRequest(LogEntry{Timestamp: now.Add(-30 * time.Minute), Path: "/api/v1/crops/recommend", Method: "GET", StatusCode: 200, ResponseTime: 10 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now.Add(-20 * time.Minute), Path: "/api/v1/crops/recommend", Method: "GET", StatusCode: 400, ResponseTime: 20 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now.Add(-10 * time.Minute), Path: "/api/v1/iot/sensors", Method: "GET", StatusCode: 500, ResponseTime: 5 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now.Add(-3 * time.Hour), Path: "/api/v1/iot/sensors", Method: "GET", StatusCode: 200})

	d := s.GetDashboardData(1)
	require.Len(t, d.RequestsOverTime, 1)
	assert.Equal(t, 2, d.Endpoints["/api/v1/crops/recommend"])
	assert.Equal(t, 1, d.Endpoints["/api/v1/iot/sensors"])

	require.Len(t, d.StatusCodes, 3)
	assert.Equal(t, "2xx Success", d.StatusCodes[0]["name"])
	assert.Equal(t, 1, d.StatusCodes[0]["value"])
	assert.Equal(t, 1, d.StatusCodes[1]["value"])
	assert.Equal(t, 1, d.StatusCodes[2]["value"])

	require.Len(t, d.AvgResponseTimes, 2)
	assert.Equal(t, "/api/v1/crops/recommend", d.AvgResponseTimes[0]["endpoint"])
	assert.Equal(t, int64(15), d.AvgResponseTimes[0]["responseTime"])

	require.Len(t, d.RecentErrors, 1)
	assert.Equal(t, "/api/v1/iot/sensors", d.RecentErrors[0].Path)

	day := s.GetDashboardData(24)
	assert.Len(t, day.RequestsOverTime, 24)
	assert.Equal(t, 2, day.Endpoints["/api/v1/iot/sensors"])
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	s := NewMonitoringService("Mars/Olympus", newFakeClock(), nil)
	assert.Equal(t, time.UTC, s.location)
}

func TestLoggingMiddlewareSkipsAdminPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewMonitoringService("UTC", nil, nil)

	r := gin.New()
	r.Use(s.LoggingMiddleware())
	r.GET("/api/v1/crops/list", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/admin/health-status", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/v1/crops/list", "/api/v1/admin/health-status", "/api/v1/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	d := s.GetDashboardData(1)
	assert.Equal(t, 1, d.Endpoints["/api/v1/crops/list"])
	assert.Equal(t, 1, d.Endpoints["/api/v1/missing"])
	assert.NotContains(t, d.Endpoints, "/api/v1/admin/health-status")
}
