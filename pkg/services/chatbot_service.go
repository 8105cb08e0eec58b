package services

import (
	"errors"
	"sort"
	"strings"
)

// Persona は応答表の選択キーです。ダッシュボードごとに異なる表を使います。
type Persona string

const (
	// PersonaCustomer は顧客ダッシュボードの汎用アシスタントです。
	PersonaCustomer Persona = "customer"
	// PersonaRegional は乾燥地域向けの農業アシスタントです。
	PersonaRegional Persona = "regional"
)

// ErrUnknownPersona は未登録のペルソナが指定された場合に返されます。
var ErrUnknownPersona = errors.New("unknown chatbot persona")

// GreetingMessage は会話開始時にボットが表示する最初のメッセージです。
const GreetingMessage = "Hello! I'm your AI agriculture assistant. How can I help you today?"

// KeywordRule はキーワード集合と定型応答の組です。
type KeywordRule struct {
	Topic    string
	Keywords []string
	Response string
}

// matches は小文字化済みの入力にいずれかのキーワードが部分文字列として含まれるかを判定します。
func (r KeywordRule) matches(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ResponseTable は宣言順に評価されるルール表と、どれにも一致しない場合の応答です。
type ResponseTable struct {
	Rules    []KeywordRule
	Fallback string
}

var customerTable = ResponseTable{
	Rules: []KeywordRule{
		{Topic: "wheat", Keywords: []string{"wheat", "grain"}, Response: "Wheat is a staple crop that requires well-drained loamy soil, moderate temperature (15-25°C), and moderate humidity (50-70%). It's best planted in fall for winter wheat or early spring for spring wheat. Regular watering and proper fertilization are essential for good yields."},
		{Topic: "tomato", Keywords: []string{"tomato", "tomatoes"}, Response: "Tomatoes thrive in warm weather (20-28°C) with loamy soil and moderate humidity (60-75%). They need plenty of sunlight (6-8 hours daily) and consistent watering. Support with stakes or cages, and watch for common pests like aphids and whiteflies."},
		{Topic: "corn", Keywords: []string{"corn", "maize"}, Response: "Corn grows best in warm temperatures (20-30°C) with loamy or clay soil. It needs high humidity (60-80%) and plenty of water, especially during tasseling. Plant in rows for better pollination and ensure adequate spacing (30-40cm between plants)."},
		{Topic: "organic", Keywords: []string{"organic", "pesticide"}, Response: "Organic farming avoids synthetic pesticides and fertilizers. Use natural alternatives like neem oil for pests, compost for nutrients, and crop rotation to maintain soil health. Organic certification requires following strict guidelines and regular inspections."},
		{Topic: "soil", Keywords: []string{"soil", "fertilizer"}, Response: "Good soil health is crucial for farming. Test your soil pH regularly (most crops prefer 6.0-7.0). Use organic compost, manure, or balanced fertilizers. Crop rotation helps maintain nutrients. Loamy soil (mix of sand, silt, clay) is ideal for most crops."},
		{Topic: "water", Keywords: []string{"water", "irrigation"}, Response: "Proper irrigation is essential. Most crops need 1-2 inches of water per week. Use drip irrigation for efficiency, water early morning to reduce evaporation, and avoid overwatering which can cause root rot. Monitor soil moisture regularly."},
		{Topic: "harvest", Keywords: []string{"harvest", "harvesting"}, Response: "Harvest timing varies by crop. Generally, harvest when crops reach maturity - check for color changes, firmness, and size. Harvest in the morning when temperatures are cooler. Handle produce gently to avoid bruising and store properly to maintain freshness."},
		{Topic: "pest", Keywords: []string{"pest", "disease"}, Response: "Common pests include aphids, whiteflies, and caterpillars. Use integrated pest management: introduce beneficial insects, use organic sprays like neem oil, practice crop rotation, and remove affected plants. Monitor regularly and act early to prevent spread."},
		{Topic: "price", Keywords: []string{"price", "cost", "buy"}, Response: "You can browse our marketplace to see current prices for various agricultural products. Prices vary based on crop type, quality, and season. Check the marketplace section for detailed pricing and availability from different farmers."},
		{Topic: "greeting", Keywords: []string{"hello", "hi", "hey"}, Response: "Hello! I'm here to help with any agriculture-related questions. You can ask me about crops, farming techniques, soil management, irrigation, pests, harvesting, or anything else related to agriculture!"},
	},
	Fallback: "Thank you for your question! I can help you with information about crops, farming techniques, soil management, irrigation, pest control, harvesting, and more. Could you please provide more specific details about what you'd like to know?",
}

var regionalTable = ResponseTable{
	Rules: []KeywordRule{
		{Topic: "wheat", Keywords: []string{"wheat", "grain"}, Response: "Based on your query, wheat grows well in arid regions with well-drained loamy soil. It requires moderate temperature (15-25°C) and moderate humidity (50-70%)."},
		{Topic: "tomato", Keywords: []string{"tomato", "tomatoes"}, Response: "Based on your query, tomatoes grow well in warm climates with loamy soil. They need temperatures between 20-28°C and moderate humidity around 60-75%."},
		{Topic: "corn", Keywords: []string{"corn", "maize"}, Response: "Based on your query, corn grows well in warm regions with loamy or clay soil. Optimal temperature is 20-30°C with high humidity (60-80%)."},
		{Topic: "rice", Keywords: []string{"rice"}, Response: "Based on your query, rice grows well in tropical and subtropical regions with clay soil. It requires warm temperatures (20-35°C) and high humidity (70%+)."},
		{Topic: "potato", Keywords: []string{"potato", "potatoes"}, Response: "Based on your query, potatoes grow well in cool to moderate climates with sandy or loamy soil. They prefer temperatures between 15-22°C."},
		{Topic: "soil", Keywords: []string{"soil", "fertilizer"}, Response: "Based on your query, soil health is crucial for crop growth. Loamy soil (mix of sand, silt, and clay) is ideal for most crops. Regular testing and organic fertilizers help maintain soil quality."},
		{Topic: "water", Keywords: []string{"water", "irrigation"}, Response: "Based on your query, proper irrigation is essential. Most crops need 1-2 inches of water per week. Drip irrigation systems work well in arid regions to conserve water."},
		{Topic: "pest", Keywords: []string{"pest", "disease"}, Response: "Based on your query, pest management is important for healthy crops. Integrated pest management using organic methods works well in arid regions. Regular monitoring helps prevent outbreaks."},
		{Topic: "harvest", Keywords: []string{"harvest", "harvesting"}, Response: "Based on your query, harvest timing varies by crop. Generally, crops should be harvested when they reach maturity. In arid regions, early morning harvesting helps preserve crop quality."},
		{Topic: "arid", Keywords: []string{"arid", "desert", "dry"}, Response: "Based on your query, crops that grow well in arid regions include wheat, barley, millet, and certain varieties of corn. These crops are drought-resistant and can thrive with minimal water."},
	},
	Fallback: "Based on your query, this crop grows well in arid regions. For more specific information, please provide details about the crop type, soil conditions, or climate you're interested in.",
}

// ChatbotService はキーワード一致による定型応答を返します。副作用はありません。
type ChatbotService struct {
	tables   map[Persona]ResponseTable
	topics   []string
	keywords map[string][]string
}

// NewChatbotService は両ペルソナの応答表を持つChatbotServiceを生成します。
func NewChatbotService() *ChatbotService {
	s := &ChatbotService{
		tables: map[Persona]ResponseTable{
			PersonaCustomer: customerTable,
			PersonaRegional: regionalTable,
		},
	}
	s.topics = s.collectTopics()
	s.keywords = s.topicKeywords()
	return s
}

// ParsePersona は文字列をPersonaに変換します。空文字は顧客ペルソナとして扱います。
func ParsePersona(raw string) (Persona, error) {
	switch Persona(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PersonaCustomer:
		return PersonaCustomer, nil
	case PersonaRegional:
		return PersonaRegional, nil
	default:
		return "", ErrUnknownPersona
	}
}

// Respond は入力を小文字化し、最初に一致したルールの応答を返します。
// 一致しない場合はペルソナ既定の応答を返し、matchedはfalseになります。
func (s *ChatbotService) Respond(persona Persona, text string) (string, bool, error) {
	table, ok := s.tables[persona]
	if !ok {
		return "", false, ErrUnknownPersona
	}
	lower := strings.ToLower(text)
	for _, rule := range table.Rules {
		if rule.matches(lower) {
			return rule.Response, true, nil
		}
	}
	return table.Fallback, false, nil
}

// Personas は登録済みのペルソナを名前順で返します。
func (s *ChatbotService) Personas() []Persona {
	out := make([]Persona, 0, len(s.tables))
	for p := range s.tables {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Topics はベクトル化に使うトピック名を固定順で返します。末尾は一致なし用の"general"です。
func (s *ChatbotService) Topics() []string {
	return s.topics
}

// TopicVector はトピックごとのキーワード一致数を並べたベクトルを返します。
// どのトピックにも一致しない場合は"general"次元が1になり、ゼロベクトルにはなりません。
func (s *ChatbotService) TopicVector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(s.topics))
	hit := false
	for i, topic := range s.topics[:len(s.topics)-1] {
		for _, kw := range s.keywords[topic] {
			if strings.Contains(lower, kw) {
				vec[i]++
				hit = true
			}
		}
	}
	if !hit {
		vec[len(vec)-1] = 1
	}
	return vec
}

func (s *ChatbotService) collectTopics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, p := range []Persona{PersonaCustomer, PersonaRegional} {
		for _, rule := range s.tables[p].Rules {
			if !seen[rule.Topic] {
				seen[rule.Topic] = true
				topics = append(topics, rule.Topic)
			}
		}
	}
	return append(topics, "general")
}

func (s *ChatbotService) topicKeywords() map[string][]string {
	out := map[string][]string{}
	seen := map[string]bool{}
	for _, p := range []Persona{PersonaCustomer, PersonaRegional} {
		for _, rule := range s.tables[p].Rules {
			for _, kw := range rule.Keywords {
				key := rule.Topic + "/" + kw
				if !seen[key] {
					seen[key] = true
					out[rule.Topic] = append(out[rule.Topic], kw)
				}
			}
		}
	}
	return out
}
