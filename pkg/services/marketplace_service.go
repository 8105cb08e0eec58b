package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"agrinova-api/pkg/models"

	"go.uber.org/zap"
)

var (
	// ErrProductNotFound は存在しない商品IDを指定した場合に返されます。
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidProduct は商品登録の入力が不正な場合に返されます。
	ErrInvalidProduct = errors.New("invalid product")
)

const (
	DefaultProductLimit = 20
	maxProductLimit     = 100

	defaultProductCategory = "Other"
	defaultProductImage    = "🌾"
	defaultProductFarmer   = "Unknown"
)

// ProductStore は農家が追加した商品の永続化先です。
type ProductStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	SaveProduct(ctx context.Context, p models.Product) error
}

// SeedProducts は起動時に読み込む固定カタログです。
func SeedProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Organic Wheat", Description: "Premium quality organic wheat", Price: 120, Stock: 500, Category: "Grains", Image: "🌾", Farmer: "Ahmed Farms", Rating: 4.8, Reviews: 124},
		{ID: 2, Name: "Fresh Tomatoes", Description: "Farm-fresh tomatoes", Price: 45, Stock: 200, Category: "Vegetables", Image: "🍅", Farmer: "Green Valley Farm", Rating: 4.6, Reviews: 89},
		{ID: 3, Name: "Sweet Corn", Description: "Sweet and tender corn on the cob", Price: 60, Stock: 300, Category: "Vegetables", Image: "🌽", Farmer: "Sunrise Agriculture", Rating: 4.5, Reviews: 67},
		{ID: 4, Name: "Organic Potatoes", Description: "Organically grown potatoes", Price: 35, Stock: 400, Category: "Vegetables", Image: "🥔", Farmer: "Highland Growers", Rating: 4.4, Reviews: 56},
		{ID: 5, Name: "Fresh Carrots", Description: "Crunchy carrots harvested this week", Price: 28, Stock: 250, Category: "Vegetables", Image: "🥕", Farmer: "Green Valley Farm", Rating: 4.3, Reviews: 42},
		{ID: 6, Name: "Onions", Description: "Red and yellow onions", Price: 25, Stock: 350, Category: "Vegetables", Image: "🧅", Farmer: "Desert Bloom Farms", Rating: 4.2, Reviews: 38},
		{ID: 7, Name: "Bell Peppers", Description: "Mixed color bell peppers", Price: 40, Stock: 180, Category: "Vegetables", Image: "🫑", Farmer: "Sunrise Agriculture", Rating: 4.7, Reviews: 73},
		{ID: 8, Name: "Cucumbers", Description: "Greenhouse cucumbers", Price: 30, Stock: 220, Category: "Vegetables", Image: "🥒", Farmer: "Highland Growers", Rating: 4.1, Reviews: 29},
		{ID: 9, Name: "Organic Lettuce", Description: "Crisp organic lettuce heads", Price: 22, Stock: 150, Category: "Vegetables", Image: "🥬", Farmer: "Oasis Organics", Rating: 4.5, Reviews: 47},
		{ID: 10, Name: "Fresh Basil", Description: "Aromatic fresh basil bunches", Price: 18, Stock: 80, Category: "Herbs", Image: "🌿", Farmer: "Oasis Organics", Rating: 4.9, Reviews: 61},
		{ID: 11, Name: "Fresh Strawberries", Description: "Sweet hand-picked strawberries", Price: 55, Stock: 120, Category: "Fruits", Image: "🍓", Farmer: "Berry Fields Co.", Rating: 4.8, Reviews: 112},
		{ID: 12, Name: "Organic Rice", Description: "Long grain organic rice", Price: 85, Stock: 600, Category: "Grains", Image: "🍚", Farmer: "Delta Rice Growers", Rating: 4.6, Reviews: 95},
		{ID: 13, Name: "Premium Dates", Description: "Premium desert-grown dates", Price: 150, Stock: 100, Category: "Fruits", Image: "🌴", Farmer: "Desert Bloom Farms", Rating: 4.9, Reviews: 134},
		{ID: 14, Name: "Barley Grain", Description: "Drought-hardy barley grain", Price: 95, Stock: 450, Category: "Grains", Image: "🌾", Farmer: "Ahmed Farms", Rating: 4.4, Reviews: 51},
	}
}

// MarketplaceService はカタログの検索・絞り込み・並べ替えと商品登録を扱います。
type MarketplaceService struct {
	mu       sync.RWMutex
	products []models.Product
	nextID   int
	store    ProductStore
	logger   *zap.Logger
}

// NewMarketplaceService はシードカタログに保存済みの商品を重ねて読み込みます。
// storeがnilの場合は追加商品をメモリにのみ保持します。
func NewMarketplaceService(ctx context.Context, store ProductStore, logger *zap.Logger) (*MarketplaceService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MarketplaceService{products: SeedProducts(), store: store, logger: logger}

	if store != nil {
		stored, err := store.ListProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		for _, p := range stored {
			s.upsertLocked(p)
		}
		logger.Info("marketplace catalog loaded", zap.Int("seed", len(SeedProducts())), zap.Int("stored", len(stored)))
	}

	for _, p := range s.products {
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return s, nil
}

func (s *MarketplaceService) upsertLocked(p models.Product) {
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return
		}
	}
	s.products = append(s.products, p)
}

// All returns the catalog in catalog order.
func (s *MarketplaceService) All() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Get returns one product by id.
func (s *MarketplaceService) Get(id int) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, ErrProductNotFound
}

// Categories は"all"に続けてカタログ順の重複なしカテゴリを返します。
func (s *MarketplaceService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{"all"}
	seen := map[string]bool{}
	for _, p := range s.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// FilterProducts は検索・カテゴリ・価格帯で絞り込み、安定ソートで並べ替えます。
// 同順位はカタログ順のままなので、同じ条件なら何度呼んでも同じ並びになります。
// 検索語は前後の空白も含めて部分一致で比較します。
func FilterProducts(products []models.Product, q models.ProductQuery) []models.Product {
	search := strings.ToLower(q.Search)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if q.Category != "" && q.Category != "all" && p.Category != q.Category {
			continue
		}
		if !inPriceRange(p.Price, q.PriceRange) {
			continue
		}
		out = append(out, p)
	}

	var less func(a, b models.Product) bool
	switch q.SortBy {
	case "price-low":
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case "price-high":
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case "rating":
		less = func(a, b models.Product) bool { return a.Rating > b.Rating }
	default:
		less = func(a, b models.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func inPriceRange(price float64, bucket string) bool {
	switch bucket {
	case "under-30":
		return price < 30
	case "30-50":
		return price >= 30 && price <= 50
	case "50-100":
		return price > 50 && price <= 100
	case "over-100":
		return price > 100
	default:
		return true
	}
}

// Query は絞り込み結果の1ページを返します。
func (s *MarketplaceService) Query(q models.ProductQuery) models.ProductPage {
	filtered := FilterProducts(s.All(), q)

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}

	total := len(filtered)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return models.ProductPage{
		Products: filtered[start:end],
		Total:    total,
		Page:     page,
		Limit:    limit,
		Pages:    pages,
	}
}

// ValidateProductInput は商品登録の入力を検証し、省略項目に既定値を補います。
func ValidateProductInput(in models.ProductInput) (models.ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "":
		return in, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case in.Description == "":
		return in, fmt.Errorf("%w: description is required", ErrInvalidProduct)
	case math.IsNaN(in.Price) || math.IsInf(in.Price, 0):
		return in, fmt.Errorf("%w: price must be a finite number", ErrInvalidProduct)
	case in.Price <= 0:
		return in, fmt.Errorf("%w: price must be greater than 0", ErrInvalidProduct)
	case in.Stock < 0:
		return in, fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	if strings.TrimSpace(in.Category) == "" {
		in.Category = defaultProductCategory
	}
	if strings.TrimSpace(in.Image) == "" {
		in.Image = defaultProductImage
	}
	if strings.TrimSpace(in.Farmer) == "" {
		in.Farmer = defaultProductFarmer
	}
	return in, nil
}

// Create は農家の商品を登録します。ストアがあれば保存してからカタログに追加します。
func (s *MarketplaceService) Create(ctx context.Context, in models.ProductInput) (models.Product, error) {
	in, err := ValidateProductInput(in)
	if err != nil {
		return models.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Product{
		ID:          s.nextID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		Image:       in.Image,
		Farmer:      in.Farmer,
	}
	if s.store != nil {
		if err := s.store.SaveProduct(ctx, p); err != nil {
			return models.Product{}, err
		}
	}
	s.nextID++
	s.products = append(s.products, p)
	s.logger.Info("product created", zap.Int("id", p.ID), zap.String("name", p.Name))
	return p, nil
}
