package services

import "agrinova-api/pkg/models"

// AnalyticsService は分析画面の固定データを返します。
type AnalyticsService struct{}

func NewAnalyticsService() *AnalyticsService { return &AnalyticsService{} }

// Dashboard returns the yield, revenue and crop performance series with the summary cards.
func (s *AnalyticsService) Dashboard() models.AnalyticsDashboard {
	return models.AnalyticsDashboard{
		Summary: []models.SummaryCard{
			{Label: "Total Yield (kg)", Value: "12,450", Change: "↑ 15%"},
			{Label: "Total Revenue", Value: "$45,230", Change: "↑ 8%"},
			{Label: "Avg Yield per Crop", Value: "1,012 kg", Change: "↑ 5%"},
			{Label: "Profit Margin", Value: "42%", Change: "↑ 3%"},
		},
		Yield: []models.YieldPoint{
			{Month: "Jan", Predicted: 1200, Actual: 1150, Target: 1300},
			{Month: "Feb", Predicted: 1350, Actual: 1280, Target: 1400},
			{Month: "Mar", Predicted: 1500, Actual: 1450, Target: 1550},
			{Month: "Apr", Predicted: 1650, Actual: 1620, Target: 1700},
			{Month: "May", Predicted: 1800, Actual: 1750, Target: 1850},
			{Month: "Jun", Predicted: 1950, Actual: 1900, Target: 2000},
		},
		Revenue: []models.RevenuePoint{
			{Month: "Jan", Revenue: 45000, Expenses: 28000},
			{Month: "Feb", Revenue: 52000, Expenses: 30000},
			{Month: "Mar", Revenue: 58000, Expenses: 32000},
			{Month: "Apr", Revenue: 62000, Expenses: 35000},
			{Month: "May", Revenue: 68000, Expenses: 38000},
			{Month: "Jun", Revenue: 75000, Expenses: 40000},
		},
		CropPerformance: []models.CropPerformance{
			{Crop: "Wheat", Yield: 1200, Revenue: 45000, Growth: "+15%"},
			{Crop: "Corn", Yield: 950, Revenue: 38000, Growth: "+12%"},
			{Crop: "Tomatoes", Yield: 800, Revenue: 35000, Growth: "+8%"},
			{Crop: "Potatoes", Yield: 1100, Revenue: 42000, Growth: "+20%"},
		},
	}
}
