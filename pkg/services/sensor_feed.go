package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"agrinova-api/pkg/metrics"
	"agrinova-api/pkg/models"

	"go.uber.org/zap"
)

// ErrSensorNotFound は存在しないセンサーIDを指定した場合に返されます。
var ErrSensorNotFound = errors.New("sensor not found")

const (
	// DefaultSensorInterval はセンサー値を更新する既定の間隔です。
	DefaultSensorInterval = 5 * time.Second

	SensorStatusActive  = "active"
	SensorStatusWarning = "warning"

	maxHistoryHours = 24 * 30
)

// 1ステップあたりの変動幅と値域
const (
	tempDelta     = 1.0
	humidityDelta = 2.0
	soilDelta     = 1.5
	waterDelta    = 5.0

	humidityMin = 30.0
	humidityMax = 90.0
	soilMin     = 40.0
	soilMax     = 90.0
)

// SeedSensors は起動時のセンサー一覧を返します。
func SeedSensors(now time.Time) []models.SensorReading {
	return []models.SensorReading{
		{ID: "sensor-001", Name: "Field Sensor 1 - North Field", Location: "North Field", Temperature: 25, Humidity: 65, SoilMoisture: 72, WaterUsage: 120, Status: SensorStatusActive, LastUpdate: now},
		{ID: "sensor-002", Name: "Field Sensor 2 - South Field", Location: "South Field", Temperature: 23, Humidity: 70, SoilMoisture: 68, WaterUsage: 95, Status: SensorStatusActive, LastUpdate: now},
		{ID: "sensor-003", Name: "Greenhouse Sensor", Location: "Greenhouse", Temperature: 28, Humidity: 75, SoilMoisture: 80, WaterUsage: 150, Status: SensorStatusActive, LastUpdate: now},
		{ID: "sensor-004", Name: "Field Sensor 3 - East Field", Location: "East Field", Temperature: 24, Humidity: 68, SoilMoisture: 65, WaterUsage: 110, Status: SensorStatusActive, LastUpdate: now},
	}
}

func uniform(rng *rand.Rand, spread float64) float64 {
	return rng.Float64()*2*spread - spread
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Step はランダムウォークを1回適用した新しい値を返します。
// 湿度と土壌水分は値域に収め、温度と水使用量は制限しません。
func Step(r models.SensorReading, rng *rand.Rand, now time.Time) models.SensorReading {
	r.Temperature += uniform(rng, tempDelta)
	r.Humidity = clamp(r.Humidity+uniform(rng, humidityDelta), humidityMin, humidityMax)
	r.SoilMoisture = clamp(r.SoilMoisture+uniform(rng, soilDelta), soilMin, soilMax)
	r.WaterUsage += uniform(rng, waterDelta)
	r.LastUpdate = now
	return r
}

// Status は土壌水分が50未満か温度が35を超える場合に"warning"を返します。
func Status(r models.SensorReading) string {
	if r.SoilMoisture < 50 || r.Temperature > 35 {
		return SensorStatusWarning
	}
	return SensorStatusActive
}

// FeedOptions configures a Feed. Zero values fall back to defaults.
type FeedOptions struct {
	Interval  time.Duration
	Seed      int64
	Clock     Clock
	Publisher Publisher
	Logger    *zap.Logger
}

// Feed は模擬IoTセンサー群を保持し、一定間隔で値を更新します。
type Feed struct {
	mu      sync.RWMutex
	sensors []models.SensorReading

	rngMu sync.Mutex
	rng   *rand.Rand

	clock     Clock
	interval  time.Duration
	publisher Publisher
	logger    *zap.Logger
}

// NewFeed は初期センサーを持つFeedを生成します。
func NewFeed(opts FeedOptions) *Feed {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSensorInterval
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Feed{
		sensors:   SeedSensors(opts.Clock.Now()),
		rng:       rand.New(rand.NewSource(opts.Seed)),
		clock:     opts.Clock,
		interval:  opts.Interval,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
}

// Run はctxがキャンセルされるまで一定間隔でTickを実行します。
func (f *Feed) Run(ctx context.Context) error {
	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("sensor feed started", zap.Duration("interval", f.interval))
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("sensor feed stopped")
			return nil
		case <-ticker.C():
			f.Tick(ctx)
		}
	}
}

// Tick は全センサーに1ステップを適用し、結果を配信します。
func (f *Feed) Tick(ctx context.Context) []models.SensorReading {
	now := f.clock.Now()

	f.rngMu.Lock()
	f.mu.Lock()
	for i, s := range f.sensors {
		next := Step(s, f.rng, now)
		next.Status = Status(next)
		f.sensors[i] = next
	}
	snapshot := f.copyLocked()
	f.mu.Unlock()
	f.rngMu.Unlock()

	label := "skipped"
	if f.publisher.Enabled() {
		label = "ok"
		if err := f.publisher.Publish(ctx, snapshot); err != nil {
			label = "error"
			f.logger.Warn("sensor publish failed", zap.Error(err))
		}
	}
	metrics.SensorTicks.WithLabelValues(label).Inc()
	return snapshot
}

func (f *Feed) copyLocked() []models.SensorReading {
	out := make([]models.SensorReading, len(f.sensors))
	copy(out, f.sensors)
	return out
}

// Snapshot returns a copy of the current sensor list.
func (f *Feed) Snapshot() []models.SensorReading {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.copyLocked()
}

// Get returns the current reading of one sensor.
func (f *Feed) Get(id string) (models.SensorReading, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sensors {
		if s.ID == id {
			return s, nil
		}
	}
	return models.SensorReading{}, ErrSensorNotFound
}

// History は現在値を中心とした1時間ごとの合成値を新しい順に返します。
// 未知のセンサーは空のスライスになります。
func (f *Feed) History(id string, hours int) []models.SensorReading {
	base, err := f.Get(id)
	if err != nil {
		return []models.SensorReading{}
	}
	if hours <= 0 {
		hours = 24
	}
	if hours > maxHistoryHours {
		hours = maxHistoryHours
	}

	now := f.clock.Now()
	f.rngMu.Lock()
	defer f.rngMu.Unlock()

	out := make([]models.SensorReading, 0, hours)
	for i := 0; i < hours; i++ {
		r := base
		r.Temperature = round1(base.Temperature + uniform(f.rng, 2.5))
		r.Humidity = round1(clamp(base.Humidity+uniform(f.rng, 5), humidityMin, humidityMax))
		r.SoilMoisture = round1(clamp(base.SoilMoisture+uniform(f.rng, 3), soilMin, soilMax))
		r.WaterUsage = round1(math.Max(0, base.WaterUsage+uniform(f.rng, 10)))
		r.Status = Status(r)
		r.LastUpdate = now.Add(-time.Duration(i) * time.Hour)
		out = append(out, r)
	}
	return out
}

// Summary はダッシュボード上部の集計値を返します。
func (f *Feed) Summary() models.SensorSummary {
	sensors := f.Snapshot()
	var sum models.SensorSummary
	if len(sensors) == 0 {
		return sum
	}
	var soil, temp float64
	for _, s := range sensors {
		sum.TotalWaterUsage += s.WaterUsage
		soil += s.SoilMoisture
		temp += s.Temperature
		if s.Status == SensorStatusWarning {
			sum.WarningSensors++
		} else {
			sum.ActiveSensors++
		}
	}
	n := float64(len(sensors))
	sum.TotalWaterUsage = math.Round(sum.TotalWaterUsage)
	sum.AvgSoilMoisture = round1(soil / n)
	sum.AvgTemperature = round1(temp / n)
	return sum
}
