package models

import "time"

// FieldConditions is the soil/temperature/humidity snapshot fed to the crop recommender.
type FieldConditions struct {
	SoilType     string  `json:"soilType" form:"soilType"`
	TemperatureC float64 `json:"temperature" form:"temperature"`
	HumidityPct  float64 `json:"humidity" form:"humidity"`
}

// CropRecommendation is the materialized result of a matching crop rule.
type CropRecommendation struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Suitability string `json:"suitability"`
	Reason      string `json:"reason"`
	Yield       string `json:"yield"`
}

// ScoredCrop is a weighted suitability result (0-1) over the crop database.
type ScoredCrop struct {
	Crop        string  `json:"crop"`
	Suitability string  `json:"suitability"`
	Reason      string  `json:"reason"`
	Yield       string  `json:"yield"`
	Score       float64 `json:"score"`
}

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is one entry of a conversation's history.
type ChatMessage struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest represents an incoming chatbot request
type ChatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory,omitempty"`
	Context             string        `json:"context,omitempty"`
	Persona             string        `json:"persona,omitempty"`
}

// ChatResponse represents the response from the chatbot respond API
type ChatResponse struct {
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
	Persona    string  `json:"persona"`
	Matched    bool    `json:"matched"`
}

// ChatArchiveHit is a past exchange found in the chat archive.
type ChatArchiveHit struct {
	ConversationID string  `json:"conversation_id"`
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	Persona        string  `json:"persona"`
	Timestamp      string  `json:"timestamp"`
	Score          float32 `json:"score"`
}

// Role is the dashboard a user signs in to.
type Role string

const (
	RoleFarmer   Role = "Farmer"
	RoleCustomer Role = "Customer"
)

// User is the single logged-in identity held by the session store.
type User struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	ID    string `json:"id"`
}

// Credentials is the login/signup request body.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// Product is a marketplace catalog record.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Farmer      string  `json:"farmer"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
}

// ProductInput is the farmer-facing create-product payload.
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category,omitempty"`
	Image       string  `json:"image,omitempty"`
	Farmer      string  `json:"farmer,omitempty"`
}

// ProductQuery holds the marketplace filter/sort/pagination parameters.
type ProductQuery struct {
	Search     string `form:"search"`
	Category   string `form:"category"`
	PriceRange string `form:"priceRange"`
	SortBy     string `form:"sortBy"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

// ProductPage is one page of a marketplace query.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Pages    int       `json:"pages"`
}

// CartItem is one product line in a cart, with the price captured when added.
type CartItem struct {
	ProductID int     `json:"productId"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Cart is the read model returned by the cart endpoints.
type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}

// OrderItem is a line of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is a placed (or canned) customer order.
type Order struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Status    string      `json:"status"`
	Total     float64     `json:"total"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"-"`
}

// SensorReading is the live state of one simulated IoT field sensor.
type SensorReading struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	SoilMoisture float64   `json:"soilMoisture"`
	WaterUsage   float64   `json:"waterUsage"`
	Status       string    `json:"status"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// SensorSummary aggregates the live sensor list for the irrigation dashboard.
type SensorSummary struct {
	TotalWaterUsage float64 `json:"totalWaterUsage"`
	AvgSoilMoisture float64 `json:"avgSoilMoisture"`
	AvgTemperature  float64 `json:"avgTemperature"`
	ActiveSensors   int     `json:"activeSensors"`
	WarningSensors  int     `json:"warningSensors"`
}

// YieldConditions are the field conditions used by the yield predictor.
// Nil fields fall back to the predictor's defaults.
type YieldConditions struct {
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	SoilMoisture *float64 `json:"soilMoisture,omitempty"`
	SoilType     string   `json:"soilType,omitempty"`
}

// YieldPredictionRequest is the body of POST /predict/yield.
type YieldPredictionRequest struct {
	CropType   string           `json:"cropType"`
	FieldSize  float64          `json:"fieldSize"`
	Conditions *YieldConditions `json:"conditions"`
	Season     string           `json:"season,omitempty"`
}

// YieldPrediction is the predictor's result.
type YieldPrediction struct {
	PredictedYield      float64  `json:"predictedYield"`
	Confidence          float64  `json:"confidence"`
	Factors             []string `json:"factors"`
	Recommendations     []string `json:"recommendations"`
	CropType            string   `json:"cropType"`
	FieldSize           float64  `json:"fieldSize"`
	Season              string   `json:"season"`
	BaseYieldPerHectare float64  `json:"baseYieldPerHectare"`
}

// YieldHistoryPoint is one month of (mock) yield history.
type YieldHistoryPoint struct {
	Month    string  `json:"month"`
	Yield    float64 `json:"yield"`
	CropType string  `json:"cropType"`
}

// NutrientRequirements is the N-P-K profile for a crop.
type NutrientRequirements struct {
	Nitrogen   string `json:"nitrogen"`
	Phosphorus string `json:"phosphorus"`
	Potassium  string `json:"potassium"`
}

// FertilizerApplication is one step of an application schedule.
type FertilizerApplication struct {
	Stage      string `json:"stage"`
	Fertilizer string `json:"fertilizer"`
	Amount     string `json:"amount"`
}

// FertilizerPlan is the fertilizer advisor's result.
type FertilizerPlan struct {
	Crop                   string                  `json:"crop"`
	SoilType               string                  `json:"soilType"`
	Requirements           NutrientRequirements    `json:"requirements"`
	RecommendedFertilizers []string                `json:"recommendedFertilizers"`
	ApplicationSchedule    []FertilizerApplication `json:"applicationSchedule"`
	Notes                  []string                `json:"notes"`
}

// YieldPoint is a month of the predicted/actual/target yield chart.
type YieldPoint struct {
	Month     string `json:"month"`
	Predicted int    `json:"predicted"`
	Actual    int    `json:"actual"`
	Target    int    `json:"target"`
}

// RevenuePoint is a month of the revenue/expenses chart.
type RevenuePoint struct {
	Month    string `json:"month"`
	Revenue  int    `json:"revenue"`
	Expenses int    `json:"expenses"`
}

// CropPerformance is a row of the crop performance table.
type CropPerformance struct {
	Crop    string `json:"crop"`
	Yield   int    `json:"yield"`
	Revenue int    `json:"revenue"`
	Growth  string `json:"growth"`
}

// SummaryCard is one headline figure on the analytics page.
type SummaryCard struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change"`
}

// AnalyticsDashboard bundles the canned analytics series.
type AnalyticsDashboard struct {
	Summary         []SummaryCard     `json:"summary"`
	Yield           []YieldPoint      `json:"yield"`
	Revenue         []RevenuePoint    `json:"revenue"`
	CropPerformance []CropPerformance `json:"cropPerformance"`
}
