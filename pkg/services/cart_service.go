package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"agrinova-api/pkg/metrics"
	"agrinova-api/pkg/models"

	"github.com/google/uuid"
)

// ErrEmptyCart は空のカートで注文しようとした場合に返されます。
var ErrEmptyCart = errors.New("cart is empty")

// ErrCartItemNotFound はカートに入っていない商品を操作した場合に返されます。
var ErrCartItemNotFound = errors.New("item not in cart")

// cart は商品IDをキーにした明細を追加順で保持します。
type cart struct {
	items []models.CartItem
}

func (c *cart) index(productID int) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *cart) total() float64 {
	var sum float64
	for _, it := range c.items {
		sum += it.Price * float64(it.Quantity)
	}
	return math.Round(sum*100) / 100
}

func (c *cart) itemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// CartService はセッションごとのカートと注文履歴を管理します。
type CartService struct {
	mu      sync.Mutex
	carts   map[string]*cart
	orders  []models.Order
	catalog *MarketplaceService
	clock   Clock
}

// NewCartService creates a cart service backed by the marketplace catalog.
func NewCartService(catalog *MarketplaceService, clock Clock) *CartService {
	if clock == nil {
		clock = RealClock()
	}
	return &CartService{
		carts:   make(map[string]*cart),
		orders:  CannedOrders(),
		catalog: catalog,
		clock:   clock,
	}
}

// CannedOrders は注文履歴画面の初期データです。
func CannedOrders() []models.Order {
	order := func(id, date, status string, total float64, items ...models.OrderItem) models.Order {
		created, _ := time.Parse("2006-01-02", date)
		return models.Order{ID: id, Date: date, Status: status, Total: total, Items: items, CreatedAt: created}
	}
	item := func(name, qty string, price float64) models.OrderItem {
		return models.OrderItem{Name: name, Quantity: qty, Price: price}
	}
	return []models.Order{
		order("ORD-001", "2024-01-15", "Delivered", 165, item("Organic Wheat", "50kg", 120), item("Fresh Tomatoes", "20kg", 45)),
		order("ORD-002", "2024-01-20", "In Transit", 60, item("Sweet Corn", "30kg", 60)),
		order("ORD-003", "2024-01-25", "Processing", 95, item("Organic Potatoes", "40kg", 35), item("Fresh Carrots", "30kg", 28), item("Onions", "20kg", 25)),
		order("ORD-004", "2024-01-10", "Delivered", 140, item("Bell Peppers", "25kg", 40), item("Cucumbers", "30kg", 30), item("Organic Lettuce", "20kg", 22), item("Fresh Basil", "5kg", 18)),
		order("ORD-005", "2024-01-05", "Delivered", 205, item("Fresh Strawberries", "20kg", 55), item("Organic Rice", "30kg", 85), item("Sweet Corn", "25kg", 60)),
	}
}

// cartLocked は既存のカートを返します。未使用のIDなら nil です。
func (s *CartService) cartLocked(id string) *cart {
	return s.carts[id]
}

func (s *CartService) ensureCartLocked(id string) *cart {
	c, ok := s.carts[id]
	if !ok {
		c = &cart{}
		s.carts[id] = c
	}
	return c
}

// viewLocked は未使用のIDに対しても空のカートを返し、マップには登録しません。
func (s *CartService) viewLocked(id string) models.Cart {
	c := s.cartLocked(id)
	if c == nil {
		return models.Cart{ID: id, Items: []models.CartItem{}}
	}
	items := make([]models.CartItem, len(c.items))
	copy(items, c.items)
	return models.Cart{ID: id, Items: items, Total: c.total(), ItemCount: c.itemCount()}
}

// Get はカートの内容を返します。未使用のIDなら空のカートです。
func (s *CartService) Get(cartID string) models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(cartID)
}

// Add は商品をカートに追加します。既にあれば数量を加算します。数量0以下は1として扱います。
func (s *CartService) Add(cartID string, productID, qty int) (models.Cart, error) {
	product, err := s.catalog.Get(productID)
	if err != nil {
		return models.Cart{}, err
	}
	if qty <= 0 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ensureCartLocked(cartID)
	if i := c.index(productID); i >= 0 {
		c.items[i].Quantity += qty
	} else {
		c.items = append(c.items, models.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			Price:     product.Price,
			Quantity:  qty,
		})
	}
	metrics.CartOperations.WithLabelValues("add").Inc()
	return s.viewLocked(cartID), nil
}

// Remove は商品をカートから削除します。
func (s *CartService) Remove(cartID string, productID int) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked(cartID)
	i := -1
	if c != nil {
		i = c.index(productID)
	}
	if i < 0 {
		return models.Cart{}, ErrCartItemNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	if len(c.items) == 0 {
		delete(s.carts, cartID)
	}
	metrics.CartOperations.WithLabelValues("remove").Inc()
	return s.viewLocked(cartID), nil
}

// UpdateQuantity は数量を置き換えます。0以下なら削除します。
func (s *CartService) UpdateQuantity(cartID string, productID, qty int) (models.Cart, error) {
	if qty <= 0 {
		return s.Remove(cartID, productID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked(cartID)
	i := -1
	if c != nil {
		i = c.index(productID)
	}
	if i < 0 {
		return models.Cart{}, ErrCartItemNotFound
	}
	c.items[i].Quantity = qty
	metrics.CartOperations.WithLabelValues("update").Inc()
	return s.viewLocked(cartID), nil
}

// Clear empties the cart.
func (s *CartService) Clear(cartID string) models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)
	metrics.CartOperations.WithLabelValues("clear").Inc()
	return s.viewLocked(cartID)
}

// Checkout はカートの内容から注文を作成し、カートを空にします。
func (s *CartService) Checkout(cartID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked(cartID)
	if c == nil || len(c.items) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	now := s.clock.Now()
	order := models.Order{
		ID:        "ORD-" + strings.ToUpper(uuid.New().String()[:8]),
		Date:      now.Format("2006-01-02"),
		Status:    "Processing",
		Total:     c.total(),
		CreatedAt: now,
	}
	for _, it := range c.items {
		order.Items = append(order.Items, models.OrderItem{
			Name:     it.Name,
			Quantity: fmt.Sprintf("%dkg", it.Quantity),
			Price:    it.Price,
		})
	}
	s.orders = append(s.orders, order)
	delete(s.carts, cartID)
	metrics.CartOperations.WithLabelValues("checkout").Inc()
	return order, nil
}

// Orders は注文履歴を新しい順に返します。
func (s *CartService) Orders() []models.Order {
	s.mu.Lock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
