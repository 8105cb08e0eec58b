package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"agrinova-api/pkg/models"
	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxUploadSize はExcel取り込みのアップロード上限です。
const maxUploadSize = 10 << 20

// MarketplaceHandler はマーケットプレイスのハンドラです。
type MarketplaceHandler struct {
	service *services.MarketplaceService
}

// NewMarketplaceHandler は新しいMarketplaceHandlerを生成します。
func NewMarketplaceHandler(service *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{service: service}
}

func (h *MarketplaceHandler) bindQuery(c *gin.Context) (models.ProductQuery, bool) {
	var q models.ProductQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "page and limit must be integers")
		return q, false
	}
	return q, true
}

// ListProducts は検索・絞り込み・並び替え・ページングした商品一覧を返します。
func (h *MarketplaceHandler) ListProducts(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	page := h.service.Query(q)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": page.Products,
		"total":    page.Total,
		"page":     page.Page,
		"limit":    page.Limit,
		"pages":    page.Pages,
	})
}

// GetProduct はIDで商品を1件返します。
func (h *MarketplaceHandler) GetProduct(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		badRequest(c, "invalid product id")
		return
	}
	p, err := h.service.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProduct は農家の商品を登録します。
func (h *MarketplaceHandler) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Categories は "all" を先頭にしたカテゴリ一覧を返します。
func (h *MarketplaceHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": h.service.Categories()})
}

// ExportProducts は現在の検索条件に一致する全商品をExcelで返します。
// ページングは無視します。
func (h *MarketplaceHandler) ExportProducts(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	products := services.FilterProducts(h.service.All(), q)

	var buf bytes.Buffer
	if err := services.WriteProductsXLSX(&buf, products); err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("products_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportProducts はアップロードされたExcel/CSVから商品を一括登録します。
func (h *MarketplaceHandler) ImportProducts(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	defer file.Close()

	res, err := h.service.ImportProducts(c.Request.Context(), file, header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "created": res.Created, "failed": res.Failed})
}
