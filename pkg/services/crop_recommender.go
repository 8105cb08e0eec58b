package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"agrinova-api/pkg/models"
)

// CropRule は作物推奨ルールの1エントリーです。宣言順に評価され、成立したものはすべて採用されます。
type CropRule struct {
	Name        string
	Icon        string
	Predicate   func(models.FieldConditions) bool
	Suitability string
	Reason      string
	Yield       string
}

func (r CropRule) recommendation() models.CropRecommendation {
	return models.CropRecommendation{
		Name:        r.Name,
		Icon:        r.Icon,
		Suitability: r.Suitability,
		Reason:      r.Reason,
		Yield:       r.Yield,
	}
}

// cropRules は評価順を固定したルール表です。
var cropRules = []CropRule{
	{
		Name: "Wheat",
		Icon: "🌾",
		Predicate: func(fc models.FieldConditions) bool {
			return SoilIn(fc.SoilType, SoilLoamy) && InRange(fc.TemperatureC, 15, 25) && InRange(fc.HumidityPct, 50, 70)
		},
		Suitability: "Excellent",
		Reason:      "Ideal conditions for wheat cultivation",
		Yield:       "High",
	},
	{
		Name: "Corn",
		Icon: "🌽",
		Predicate: func(fc models.FieldConditions) bool {
			return SoilIn(fc.SoilType, SoilLoamy, SoilClay) && InRange(fc.TemperatureC, 20, 30) && InRange(fc.HumidityPct, 60, 80)
		},
		Suitability: "Excellent",
		Reason:      "Perfect for corn growth",
		Yield:       "High",
	},
	{
		Name: "Tomatoes",
		Icon: "🍅",
		Predicate: func(fc models.FieldConditions) bool {
			return SoilIn(fc.SoilType, SoilLoamy) && InRange(fc.TemperatureC, 20, 28) && InRange(fc.HumidityPct, 60, 75)
		},
		Suitability: "Excellent",
		Reason:      "Optimal conditions for tomatoes",
		Yield:       "High",
	},
	{
		Name: "Potatoes",
		Icon: "🥔",
		Predicate: func(fc models.FieldConditions) bool {
			return SoilIn(fc.SoilType, SoilSandy, SoilLoamy) && InRange(fc.TemperatureC, 15, 22)
		},
		Suitability: "Good",
		Reason:      "Suitable conditions for potatoes",
		Yield:       "Medium-High",
	},
	{
		Name: "Rice",
		Icon: "🌾",
		Predicate: func(fc models.FieldConditions) bool {
			return SoilIn(fc.SoilType, SoilClay) && InRange(fc.TemperatureC, 20, 35) && AtLeast(fc.HumidityPct, 70)
		},
		Suitability: "Excellent",
		Reason:      "Ideal for rice cultivation",
		Yield:       "High",
	},
}

var (
	fallbackLettuce = CropRule{Name: "Lettuce", Icon: "🥬", Suitability: "Good", Reason: "Cool weather crop suitable for current temperature", Yield: "Medium"}
	fallbackPeppers = CropRule{Name: "Peppers", Icon: "🌶️", Suitability: "Good", Reason: "Warm weather crop suitable for high temperature", Yield: "Medium-High"}
	fallbackBeans   = CropRule{Name: "Beans", Icon: "🫘", Suitability: "Moderate", Reason: "Adaptable crop for current conditions", Yield: "Medium"}
)

// FallbackCrops は一次ルールが1件も成立しない場合に使われる作物名です。
var FallbackCrops = []string{fallbackLettuce.Name, fallbackPeppers.Name, fallbackBeans.Name}

// cropProfile はスコア方式の推奨で使う作物データベースの1行です。
type cropProfile struct {
	Name        string
	SoilTypes   []SoilType
	TempMin     float64
	TempMax     float64
	HumidityMin float64
	HumidityMax float64
	Suitability string
	Yield       string
}

var cropDatabase = []cropProfile{
	{"Wheat", []SoilType{SoilLoamy}, 15, 25, 50, 70, "Excellent", "High"},
	{"Corn", []SoilType{SoilLoamy, SoilClay}, 20, 30, 60, 80, "Excellent", "High"},
	{"Tomatoes", []SoilType{SoilLoamy}, 20, 28, 60, 75, "Excellent", "High"},
	{"Potatoes", []SoilType{SoilSandy, SoilLoamy}, 15, 22, 50, 70, "Good", "Medium-High"},
	{"Rice", []SoilType{SoilClay}, 20, 35, 70, 90, "Excellent", "High"},
	{"Barley", []SoilType{SoilLoamy, SoilSandy}, 10, 20, 40, 60, "Good", "Medium"},
}

// scoreThreshold を超えた作物のみスコア方式の結果に含めます。
const scoreThreshold = 0.5

// CropRecommender は圃場条件から作物を推奨します。状態を持たず、同じ入力には常に同じ結果を返します。
type CropRecommender struct{}

// NewCropRecommender は新しいCropRecommenderを生成します。
func NewCropRecommender() *CropRecommender {
	return &CropRecommender{}
}

// Recommend は宣言順にルールを評価し、成立したすべての作物を返します。
// 1件も成立しない場合は気温だけで決まる代替作物を1件だけ返すため、結果は常に1件以上です。
func (r *CropRecommender) Recommend(fc models.FieldConditions) []models.CropRecommendation {
	recs := make([]models.CropRecommendation, 0, len(cropRules))
	for _, rule := range cropRules {
		if rule.Predicate(fc) {
			recs = append(recs, rule.recommendation())
		}
	}
	if len(recs) > 0 {
		return recs
	}
	return []models.CropRecommendation{fallbackFor(fc.TemperatureC).recommendation()}
}

// IsFallback は結果が代替ルールによるものかを判定します。
func (r *CropRecommender) IsFallback(recs []models.CropRecommendation) bool {
	if len(recs) != 1 {
		return false
	}
	for _, name := range FallbackCrops {
		if recs[0].Name == name {
			return true
		}
	}
	return false
}

func fallbackFor(temperature float64) CropRule {
	switch {
	case temperature < 15:
		return fallbackLettuce
	case temperature > 30:
		return fallbackPeppers
	default:
		// NaN もここに落ちる
		return fallbackBeans
	}
}

// Score は土壌40%、気温30%、湿度30%の重み付きで適合度を計算し、0.5を超えた作物をスコア降順で返します。
func (r *CropRecommender) Score(fc models.FieldConditions) []models.ScoredCrop {
	results := make([]models.ScoredCrop, 0, len(cropDatabase))
	for _, crop := range cropDatabase {
		score := suitabilityScore(crop, fc)
		if score <= scoreThreshold {
			continue
		}
		results = append(results, models.ScoredCrop{
			Crop:        crop.Name,
			Suitability: crop.Suitability,
			Reason:      scoreReason(crop, fc),
			Yield:       crop.Yield,
			Score:       math.Round(score*100) / 100,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Crops はデータベースに登録された作物名を返します。
func (r *CropRecommender) Crops() []string {
	names := make([]string, len(cropDatabase))
	for i, c := range cropDatabase {
		names[i] = c.Name
	}
	return names
}

func suitabilityScore(crop cropProfile, fc models.FieldConditions) float64 {
	score := 0.0
	if SoilIn(fc.SoilType, crop.SoilTypes...) {
		score += 0.4
	}

	if InRange(fc.TemperatureC, crop.TempMin, crop.TempMax) {
		score += 0.3
	} else if math.Abs(fc.TemperatureC-(crop.TempMin+crop.TempMax)/2) <= 5 {
		score += 0.15
	}

	if InRange(fc.HumidityPct, crop.HumidityMin, crop.HumidityMax) {
		score += 0.3
	} else if math.Abs(fc.HumidityPct-(crop.HumidityMin+crop.HumidityMax)/2) <= 10 {
		score += 0.15
	}
	return score
}

func scoreReason(crop cropProfile, fc models.FieldConditions) string {
	var reasons []string
	if SoilIn(fc.SoilType, crop.SoilTypes...) {
		reasons = append(reasons, fmt.Sprintf("optimal %s soil", fc.SoilType))
	}
	if InRange(fc.TemperatureC, crop.TempMin, crop.TempMax) {
		reasons = append(reasons, fmt.Sprintf("ideal temperature range (%g-%g°C)", crop.TempMin, crop.TempMax))
	}
	if InRange(fc.HumidityPct, crop.HumidityMin, crop.HumidityMax) {
		reasons = append(reasons, fmt.Sprintf("suitable humidity (%g-%g%%)", crop.HumidityMin, crop.HumidityMax))
	}
	if len(reasons) == 0 {
		return fmt.Sprintf("%s may grow in these conditions with proper care.", crop.Name)
	}
	return fmt.Sprintf("%s is recommended because of %s.", crop.Name, strings.Join(reasons, ", "))
}
