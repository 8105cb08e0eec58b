package services

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"agrinova-api/pkg/models"
)

// ErrMissingYieldFields は収量予測の必須項目が欠けている場合に返されます。
var ErrMissingYieldFields = errors.New("Missing required fields: cropType, fieldSize, conditions")

const (
	defaultBaseYield       = 2000.0
	defaultYieldTemp       = 25.0
	defaultYieldHumidity   = 65.0
	defaultYieldSoilMoist  = 70.0
	defaultHistoryMonths   = 6
	maxHistoryMonths       = 60
	minYieldMultiplier     = 0.5
	maxYieldMultiplier     = 1.5
	historyDaysPerMonthGap = 30
)

// baseYields は作物ごとの1ヘクタールあたり基準収量(kg)です。
var baseYields = map[string]float64{
	"Wheat":    3000,
	"Corn":     8000,
	"Tomatoes": 50000,
	"Potatoes": 25000,
	"Rice":     4000,
	"Barley":   2500,
}

// band は最適域・許容域ごとの係数です。値が最適域なら optimal、許容域なら 1.0、それ以外は poor を掛けます。
type band struct {
	optLo, optHi float64
	okLo, okHi   float64
	optimal      float64
	poor         float64
}

func (b band) factor(v float64) float64 {
	switch {
	case v >= b.optLo && v <= b.optHi:
		return b.optimal
	case v >= b.okLo && v <= b.okHi:
		return 1.0
	default:
		return b.poor
	}
}

var (
	tempBand     = band{optLo: 20, optHi: 28, okLo: 15, okHi: 32, optimal: 1.2, poor: 0.7}
	humidityBand = band{optLo: 60, optHi: 75, okLo: 50, okHi: 80, optimal: 1.1, poor: 0.8}
	moistureBand = band{optLo: 65, optHi: 80, okLo: 55, okHi: 85, optimal: 1.15, poor: 0.75}
)

// YieldPredictor は作物と圃場条件から収量を見積もります。
type YieldPredictor struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock Clock
}

// NewYieldPredictor は履歴生成に使う乱数源を受け取ります。
func NewYieldPredictor(seed int64, clock Clock) *YieldPredictor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if clock == nil {
		clock = RealClock()
	}
	return &YieldPredictor{rng: rand.New(rand.NewSource(seed)), clock: clock}
}

// BaseYield は作物の基準収量を返します。未知の作物は2000です。
func BaseYield(crop string) float64 {
	if y, ok := baseYields[crop]; ok {
		return y
	}
	return defaultBaseYield
}

type yieldInputs struct {
	temp, humidity, moisture float64
}

func resolveInputs(c *models.YieldConditions) yieldInputs {
	in := yieldInputs{temp: defaultYieldTemp, humidity: defaultYieldHumidity, moisture: defaultYieldSoilMoist}
	if c == nil {
		return in
	}
	if c.Temperature != nil {
		in.temp = *c.Temperature
	}
	if c.Humidity != nil {
		in.humidity = *c.Humidity
	}
	if c.SoilMoisture != nil {
		in.moisture = *c.SoilMoisture
	}
	return in
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Predict は収量・信頼度・要因・推奨事項を返します。
func (p *YieldPredictor) Predict(req models.YieldPredictionRequest) (models.YieldPrediction, error) {
	if req.CropType == "" || req.FieldSize <= 0 || req.Conditions == nil {
		return models.YieldPrediction{}, ErrMissingYieldFields
	}
	season := req.Season
	if season == "" {
		season = "Unknown"
	}

	in := resolveInputs(req.Conditions)
	base := BaseYield(req.CropType)

	return models.YieldPrediction{
		PredictedYield:      round2(base * req.FieldSize * yieldMultiplier(in)),
		Confidence:          round2(yieldConfidence(in)),
		Factors:             yieldFactors(in),
		Recommendations:     yieldRecommendations(in),
		CropType:            req.CropType,
		FieldSize:           req.FieldSize,
		Season:              season,
		BaseYieldPerHectare: base,
	}, nil
}

func yieldMultiplier(in yieldInputs) float64 {
	m := tempBand.factor(in.temp) * humidityBand.factor(in.humidity) * moistureBand.factor(in.moisture)
	return clamp(m, minYieldMultiplier, maxYieldMultiplier)
}

func yieldConfidence(in yieldInputs) float64 {
	c := 0.5
	if InRange(in.temp, 20, 28) {
		c += 0.15
	}
	if InRange(in.humidity, 60, 75) {
		c += 0.15
	}
	if InRange(in.moisture, 65, 80) {
		c += 0.2
	}
	return math.Min(c, 1.0)
}

func yieldFactors(in yieldInputs) []string {
	factors := []string{}
	switch {
	case in.temp < 15 || in.temp > 35:
		factors = append(factors, "Extreme temperature conditions")
	case InRange(in.temp, 20, 28):
		factors = append(factors, "Optimal temperature range")
	}
	switch {
	case in.humidity < 40 || in.humidity > 85:
		factors = append(factors, "Suboptimal humidity levels")
	case InRange(in.humidity, 60, 75):
		factors = append(factors, "Ideal humidity for crop growth")
	}
	switch {
	case in.moisture < 50:
		factors = append(factors, "Low soil moisture - irrigation needed")
	case InRange(in.moisture, 65, 80):
		factors = append(factors, "Optimal soil moisture")
	case in.moisture > 85:
		factors = append(factors, "Excessive soil moisture - drainage needed")
	}
	return factors
}

func yieldRecommendations(in yieldInputs) []string {
	var recs []string
	switch {
	case in.temp < 15:
		recs = append(recs, "Consider using greenhouse or cold frames to maintain temperature")
	case in.temp > 35:
		recs = append(recs, "Implement shade structures and increase irrigation frequency")
	}
	switch {
	case in.moisture < 50:
		recs = append(recs, "Increase irrigation to maintain soil moisture between 65-80%")
	case in.moisture > 85:
		recs = append(recs, "Improve drainage to prevent waterlogging")
	}
	switch {
	case in.humidity < 40:
		recs = append(recs, "Consider misting systems to increase humidity")
	case in.humidity > 85:
		recs = append(recs, "Ensure proper ventilation to reduce humidity")
	}
	if len(recs) == 0 {
		recs = append(recs, "Current conditions are optimal - maintain current practices")
	}
	return recs
}

// History は30日間隔で遡った月ごとの模擬収量を新しい順に返します。
func (p *YieldPredictor) History(cropType string, months int) []models.YieldHistoryPoint {
	if months <= 0 {
		months = defaultHistoryMonths
	}
	if months > maxHistoryMonths {
		months = maxHistoryMonths
	}
	label := cropType
	if label == "" {
		label = "Mixed"
	}
	base := BaseYield(cropType)
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.YieldHistoryPoint, 0, months)
	for i := 0; i < months; i++ {
		date := now.AddDate(0, 0, -historyDaysPerMonthGap*i)
		out = append(out, models.YieldHistoryPoint{
			Month:    date.Format("2006-01"),
			Yield:    round2(base * (0.9 + p.rng.Float64()*0.2)),
			CropType: label,
		})
	}
	return out
}
