package services

import (
	"errors"
	"fmt"

	"agrinova-api/pkg/models"
)

// ErrNoFertilizerData は施肥データのない作物を指定した場合に返されます。
var ErrNoFertilizerData = errors.New("no fertilizer data available")

type fertilizerProfile struct {
	requirements models.NutrientRequirements
	recommended  []string
}

var fertilizerProfiles = map[string]fertilizerProfile{
	"Wheat": {
		requirements: models.NutrientRequirements{Nitrogen: "high", Phosphorus: "medium", Potassium: "medium"},
		recommended:  []string{"Urea", "DAP", "Potash"},
	},
	"Corn": {
		requirements: models.NutrientRequirements{Nitrogen: "very high", Phosphorus: "high", Potassium: "medium"},
		recommended:  []string{"Urea", "Superphosphate", "Potash"},
	},
	"Tomatoes": {
		requirements: models.NutrientRequirements{Nitrogen: "medium", Phosphorus: "high", Potassium: "very high"},
		recommended:  []string{"NPK 10-20-20", "Potash", "Compost"},
	},
	"Potatoes": {
		requirements: models.NutrientRequirements{Nitrogen: "medium", Phosphorus: "high", Potassium: "high"},
		recommended:  []string{"NPK 15-15-15", "Potash", "Organic Manure"},
	},
}

var applicationSchedules = map[string][]models.FertilizerApplication{
	"Wheat": {
		{Stage: "Pre-planting", Fertilizer: "DAP", Amount: "100-120 kg/ha"},
		{Stage: "Tillering", Fertilizer: "Urea", Amount: "50-60 kg/ha"},
		{Stage: "Flowering", Fertilizer: "Urea", Amount: "30-40 kg/ha"},
	},
	"Corn": {
		{Stage: "Pre-planting", Fertilizer: "DAP", Amount: "150-180 kg/ha"},
		{Stage: "V6 stage", Fertilizer: "Urea", Amount: "100-120 kg/ha"},
		{Stage: "Tasseling", Fertilizer: "Urea", Amount: "50-60 kg/ha"},
	},
	"Tomatoes": {
		{Stage: "Transplanting", Fertilizer: "NPK 10-20-20", Amount: "200-250 kg/ha"},
		{Stage: "Flowering", Fertilizer: "Potash", Amount: "100-150 kg/ha"},
		{Stage: "Fruiting", Fertilizer: "Potash", Amount: "50-75 kg/ha"},
	},
}

var generalSchedule = []models.FertilizerApplication{
	{Stage: "General", Fertilizer: "Balanced NPK", Amount: "As per soil test"},
}

// FertilizerAdvisor は作物と土壌に応じた施肥計画を返します。
type FertilizerAdvisor struct{}

func NewFertilizerAdvisor() *FertilizerAdvisor { return &FertilizerAdvisor{} }

// Advise returns the plan for crop on soilType. soilPH may be nil when unknown.
func (a *FertilizerAdvisor) Advise(crop, soilType string, soilPH *float64) (models.FertilizerPlan, error) {
	profile, ok := fertilizerProfiles[crop]
	if !ok {
		return models.FertilizerPlan{}, fmt.Errorf("%w for %s", ErrNoFertilizerData, crop)
	}

	schedule, ok := applicationSchedules[crop]
	if !ok {
		schedule = generalSchedule
	}

	return models.FertilizerPlan{
		Crop:                   crop,
		SoilType:               soilType,
		Requirements:           profile.requirements,
		RecommendedFertilizers: append([]string(nil), profile.recommended...),
		ApplicationSchedule:    append([]models.FertilizerApplication(nil), schedule...),
		Notes:                  fertilizerNotes(soilType, soilPH),
	}, nil
}

func fertilizerNotes(soilType string, soilPH *float64) []string {
	notes := []string{}
	switch SoilType(soilType) {
	case SoilClay:
		notes = append(notes, "Clay soil retains nutrients well - reduce application rates by 10-15%")
	case SoilSandy:
		notes = append(notes, "Sandy soil requires more frequent applications due to low retention")
	}
	if soilPH != nil {
		switch {
		case *soilPH < 6.0:
			notes = append(notes, "Acidic soil detected - consider lime application")
		case *soilPH > 7.5:
			notes = append(notes, "Alkaline soil - use acid-forming fertilizers")
		}
	}
	return notes
}
