package services

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"agrinova-api/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLogEntries はメモリに保持するリクエストログの上限です(7日分の集計に十分な量)。
const maxLogEntries = 50000

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
}

// MonitoringService はAPIのモニタリング機能を提供します。
type MonitoringService struct {
	logs     []LogEntry
	mu       sync.RWMutex
	location *time.Location
	clock    Clock
	logger   *zap.Logger
	excluded []string
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
// timezone はダッシュボードの時間帯バケットに使うIANA名で、読み込めない場合はUTCになります。
func NewMonitoringService(timezone string, clock Clock, logger *zap.Logger) *MonitoringService {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		location: loc,
		clock:    clock,
		logger:   logger,
		excluded: []string{"/api/v1/admin", "/api/v1/monitoring", "/metrics"},
	}
}

// LogRequest はリクエストを記録します。上限を超えた分は古い順に捨てます。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if over := len(s.logs) - maxLogEntries; over > 0 {
		s.logs = append(s.logs[:0:0], s.logs[over:]...)
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
// zapへのアクセスログとPrometheusのレイテンシ計測も行います。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.clock.Now()

		c.Next()

		path := c.Request.URL.Path
		elapsed := s.clock.Now().Sub(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.APILatency.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
		}
		if status >= 500 {
			s.logger.Error("request", fields...)
		} else {
			s.logger.Info("request", fields...)
		}

		for _, prefix := range s.excluded {
			if strings.HasPrefix(path, prefix) {
				return
			}
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   status,
			ResponseTime: elapsed,
		})
	}
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
}

// statusClasses は表示順を固定したステータス区分です。
var statusClasses = []string{"2xx Success", "4xx Client Error", "5xx Server Error"}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return statusClasses[0]
	case code >= 400 && code < 500:
		return statusClasses[1]
	case code >= 500:
		return statusClasses[2]
	default:
		return ""
	}
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}

	s.mu.RLock()
	now := s.clock.Now().In(s.location)
	since := now.Add(-time.Duration(periodHours) * time.Hour)
	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}
	s.mu.RUnlock()

	// 時間帯バケットは過去から現在の順
	buckets := make(map[string]int)
	for _, entry := range filtered {
		buckets[entry.Timestamp.In(s.location).Truncate(time.Hour).Format(time.RFC3339)]++
	}
	requestsOverTime := make([]map[string]interface{}, periodHours)
	for i := 0; i < periodHours; i++ {
		target := now.Add(-time.Duration(periodHours-1-i) * time.Hour)
		key := target.Truncate(time.Hour).Format(time.RFC3339)
		requestsOverTime[i] = map[string]interface{}{"time": target.Format("15:00"), "requests": buckets[key]}
	}

	endpoints := make(map[string]int)
	statusCounts := make(map[string]int)
	sum := make(map[string]time.Duration)
	for _, entry := range filtered {
		endpoints[entry.Path]++
		if class := statusClass(entry.StatusCode); class != "" {
			statusCounts[class]++
		}
		sum[entry.Path] += entry.ResponseTime
	}

	statusCodes := make([]map[string]interface{}, 0, len(statusClasses))
	for _, class := range statusClasses {
		statusCodes = append(statusCodes, map[string]interface{}{"name": class, "value": statusCounts[class]})
	}

	paths := make([]string, 0, len(sum))
	for path := range sum {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	avgResponseTimes := make([]map[string]interface{}, 0, len(paths))
	for _, path := range paths {
		avg := sum[path].Milliseconds() / int64(endpoints[path])
		avgResponseTimes = append(avgResponseTimes, map[string]interface{}{"endpoint": path, "responseTime": avg})
	}

	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	return DashboardData{
		RequestsOverTime: requestsOverTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		AvgResponseTimes: avgResponseTimes,
		RecentErrors:     recentErrors,
	}
}
