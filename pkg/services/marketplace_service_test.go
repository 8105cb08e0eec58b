package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"agrinova-api/pkg/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProductStore struct {
	products []models.Product
	err      error
}

func (m *memProductStore) ListProducts(context.Context) ([]models.Product, error) {
	return m.products, m.err
}

func (m *memProductStore) SaveProduct(_ context.Context, p models.Product) error {
	if m.err != nil {
		return m.err
	}
	m.products = append(m.products, p)
	return nil
}

func productNames(ps []models.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func newTestMarketplace(t *testing.T) *MarketplaceService {
	t.Helper()
	s, err := NewMarketplaceService(context.Background(), nil, nil)
	require.NoError(t, err)
	return s
}

func TestPriceBuckets(t *testing.T) {
	s := newTestMarketplace(t)

	for bucket, want := range map[string]int{"under-30": 4, "30-50": 4, "50-100": 4, "over-100": 2, "all": 14, "": 14} {
		page := s.Query(models.ProductQuery{PriceRange: bucket})
		assert.Equal(t, want, page.Total, bucket)
	}
}

func TestQuerySortOrders(t *testing.T) {
	s := newTestMarketplace(t)

	tests := []struct {
		name  string
		query models.ProductQuery
		want  []string
	}{
		{"grains by name", models.ProductQuery{Category: "Grains"}, []string{"Barley Grain", "Organic Rice", "Organic Wheat"}},
		{"grains price low", models.ProductQuery{Category: "Grains", SortBy: "price-low"}, []string{"Organic Rice", "Barley Grain", "Organic Wheat"}},
		{"grains price high", models.ProductQuery{Category: "Grains", SortBy: "price-high"}, []string{"Organic Wheat", "Barley Grain", "Organic Rice"}},
		// 同じ評価4.9はカタログ順
		{"fruits and herbs by rating", models.ProductQuery{PriceRange: "under-30", SortBy: "rating"}, []string{"Fresh Basil", "Organic Lettuce", "Fresh Carrots", "Onions"}},
		{"unknown sort falls back to name", models.ProductQuery{Category: "Fruits", SortBy: "popularity"}, []string{"Fresh Strawberries", "Premium Dates"}},
		{"case insensitive search", models.ProductQuery{Search: "ORGANIC", SortBy: "price-low"}, []string{"Organic Lettuce", "Organic Potatoes", "Organic Rice", "Organic Wheat"}},
		{"no match", models.ProductQuery{Search: "durian"}, []string{}},
		{"search keeps surrounding spaces", models.ProductQuery{Search: " corn"}, []string{"Sweet Corn"}},
		{"trailing space is not trimmed", models.ProductQuery{Search: "corn "}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := productNames(s.Query(tt.query).Products)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Query(%+v) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestRatingTiesKeepCatalogOrder(t *testing.T) {
	s := newTestMarketplace(t)
	got := productNames(s.Query(models.ProductQuery{SortBy: "rating", Limit: 3}).Products)
	assert.Equal(t, []string{"Fresh Basil", "Premium Dates", "Organic Wheat"}, got)
}

func TestQueryIsIdempotent(t *testing.T) {
	s := newTestMarketplace(t)
	q := models.ProductQuery{Category: "Vegetables", SortBy: "rating"}

	first := s.Query(q)
	second := s.Query(q)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated query differs (-first +second):\n%s", diff)
	}
}

func TestQueryPagination(t *testing.T) {
	s := newTestMarketplace(t)

	page := s.Query(models.ProductQuery{Page: 2, Limit: 5})
	assert.Equal(t, 14, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Products, 5)
	assert.Equal(t, "Fresh Strawberries", page.Products[0].Name)

	page = s.Query(models.ProductQuery{Page: 3, Limit: 5})
	assert.Len(t, page.Products, 4)

	page = s.Query(models.ProductQuery{Page: 9, Limit: 5})
	assert.Empty(t, page.Products)
	assert.NotNil(t, page.Products)

	page = s.Query(models.ProductQuery{Page: -1})
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultProductLimit, page.Limit)
	assert.Equal(t, 1, page.Pages)
}

func TestCategories(t *testing.T) {
	s := newTestMarketplace(t)
	assert.Equal(t, []string{"all", "Grains", "Vegetables", "Herbs", "Fruits"}, s.Categories())
}

func TestGetProduct(t *testing.T) {
	s := newTestMarketplace(t)

	p, err := s.Get(13)
	require.NoError(t, err)
	assert.Equal(t, "Premium Dates", p.Name)

	_, err = s.Get(99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCreateProduct(t *testing.T) {
	store := &memProductStore{}
	s, err := NewMarketplaceService(context.Background(), store, nil)
	require.NoError(t, err)

	p, err := s.Create(context.Background(), models.ProductInput{Name: " Okra ", Description: "Fresh okra", Price: 12, Stock: 40})
	require.NoError(t, err)
	assert.Equal(t, 15, p.ID)
	assert.Equal(t, "Okra", p.Name)
	assert.Equal(t, "Other", p.Category)
	assert.Equal(t, "🌾", p.Image)
	assert.Equal(t, "Unknown", p.Farmer)
	require.Len(t, store.products, 1)
	assert.Equal(t, p, store.products[0])

	assert.Contains(t, s.Categories(), "Other")

	// 再起動後も保存済み商品が読み込まれ、IDが続く
	s2, err := NewMarketplaceService(context.Background(), store, nil)
	require.NoError(t, err)
	got, err := s2.Get(15)
	require.NoError(t, err)
	assert.Equal(t, "Okra", got.Name)
	p2, err := s2.Create(context.Background(), models.ProductInput{Name: "Millet", Description: "d", Price: 1})
	require.NoError(t, err)
	assert.Equal(t, 16, p2.ID)
}

func TestCreateProductValidation(t *testing.T) {
	s := newTestMarketplace(t)

	bad := []models.ProductInput{
		{Description: "d", Price: 1},
		{Name: "n", Price: 1},
		{Name: "n", Description: "d", Price: 0},
		{Name: "n", Description: "d", Price: 1, Stock: -1},
		{Name: "n", Description: "d", Price: math.NaN()},
		{Name: "n", Description: "d", Price: math.Inf(1)},
		{Name: "n", Description: "d", Price: math.Inf(-1)},
	}
	for _, in := range bad {
		_, err := s.Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidProduct, "%+v", in)
	}
	assert.Len(t, s.All(), 14)
}

func TestCreateProductStoreFailure(t *testing.T) {
	store := &memProductStore{}
	s, err := NewMarketplaceService(context.Background(), store, nil)
	require.NoError(t, err)

	store.err = errors.New("disk full")
	_, err = s.Create(context.Background(), models.ProductInput{Name: "n", Description: "d", Price: 1})
	assert.Error(t, err)
	assert.Len(t, s.All(), 14)
}
