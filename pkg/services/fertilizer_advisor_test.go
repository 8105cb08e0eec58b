package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdviseWheatOnClay(t *testing.T) {
	a := NewFertilizerAdvisor()

	plan, err := a.Advise("Wheat", "Clay", f64(5.5))
	require.NoError(t, err)
	assert.Equal(t, "high", plan.Requirements.Nitrogen)
	assert.Equal(t, []string{"Urea", "DAP", "Potash"}, plan.RecommendedFertilizers)
	require.Len(t, plan.ApplicationSchedule, 3)
	assert.Equal(t, "Tillering", plan.ApplicationSchedule[1].Stage)
	assert.Equal(t, []string{
		"Clay soil retains nutrients well - reduce application rates by 10-15%",
		"Acidic soil detected - consider lime application",
	}, plan.Notes)
}

func TestAdvisePotatoesUsesGeneralSchedule(t *testing.T) {
	plan, err := NewFertilizerAdvisor().Advise("Potatoes", "Sandy", f64(8))
	require.NoError(t, err)
	require.Len(t, plan.ApplicationSchedule, 1)
	assert.Equal(t, "Balanced NPK", plan.ApplicationSchedule[0].Fertilizer)
	assert.Equal(t, []string{
		"Sandy soil requires more frequent applications due to low retention",
		"Alkaline soil - use acid-forming fertilizers",
	}, plan.Notes)
}

func TestAdviseNeutralSoil(t *testing.T) {
	plan, err := NewFertilizerAdvisor().Advise("Corn", "Loamy", nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Notes)
	assert.NotNil(t, plan.Notes)
}

func TestAdviseUnknownCrop(t *testing.T) {
	_, err := NewFertilizerAdvisor().Advise("Rice", "Clay", nil)
	assert.ErrorIs(t, err, ErrNoFertilizerData)
}
