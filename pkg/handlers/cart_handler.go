package handlers

import (
	"net/http"

	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// CartHandler はカートと注文のハンドラです。
type CartHandler struct {
	service *services.CartService
}

// NewCartHandler は新しいCartHandlerを生成します。
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service}
}

type cartItemRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// GetCart はカートの中身と合計を返します。
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": h.service.Get(c.Param("cartId"))})
}

// AddItem は商品をカートに追加します。数量省略時は1です。
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == 0 {
		badRequest(c, "productId is required")
		return
	}
	cart, err := h.service.Add(c.Param("cartId"), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cart})
}

// UpdateItem は数量を変更します。0以下なら明細を削除します。
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := paramInt(c, "productId")
	if !ok {
		badRequest(c, "invalid product id")
		return
	}
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	cart, err := h.service.UpdateQuantity(c.Param("cartId"), productID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cart})
}

// RemoveItem は明細を削除します。
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := paramInt(c, "productId")
	if !ok {
		badRequest(c, "invalid product id")
		return
	}
	cart, err := h.service.Remove(c.Param("cartId"), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cart})
}

// ClearCart はカートを空にします。
func (h *CartHandler) ClearCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": h.service.Clear(c.Param("cartId"))})
}

// Checkout はカートを注文に変換します。
func (h *CartHandler) Checkout(c *gin.Context) {
	order, err := h.service.Checkout(c.Param("cartId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// Orders は注文履歴を新しい順に返します。
func (h *CartHandler) Orders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": h.service.Orders()})
}
