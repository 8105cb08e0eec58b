package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newMarketplaceRouter(t *testing.T) (*gin.Engine, *services.MarketplaceService) {
	t.Helper()
	svc, err := services.NewMarketplaceService(context.Background(), nil, nil)
	require.NoError(t, err)

	h := NewMarketplaceHandler(svc)
	r := gin.New()
	r.GET("/products", h.ListProducts)
	r.POST("/products", h.CreateProduct)
	r.GET("/products/export", h.ExportProducts)
	r.POST("/products/import", h.ImportProducts)
	r.GET("/products/:id", h.GetProduct)
	r.GET("/categories", h.Categories)
	return r, svc
}

func TestListProducts(t *testing.T) {
	r, _ := newMarketplaceRouter(t)

	w := performRequest(r, http.MethodGet, "/products?category=Grains&sortBy=price-low", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 3.0, body["total"])
	assert.Equal(t, 1.0, body["page"])
	assert.Equal(t, 20.0, body["limit"])
	first := body["products"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Organic Rice", first["name"])

	w = performRequest(r, http.MethodGet, "/products?page=two", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProduct(t *testing.T) {
	r, _ := newMarketplaceRouter(t)

	w := performRequest(r, http.MethodGet, "/products/13", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Premium Dates", decodeBody(t, w)["name"])

	w = performRequest(r, http.MethodGet, "/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, http.MethodGet, "/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProduct(t *testing.T) {
	r, svc := newMarketplaceRouter(t)

	w := performRequest(r, http.MethodPost, "/products", map[string]interface{}{
		"name": "Saffron", "description": "Hand-picked threads", "price": 250, "stock": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 15.0, body["id"])
	assert.Equal(t, "Other", body["category"])
	assert.Equal(t, "Unknown", body["farmer"])
	assert.Len(t, svc.All(), 15)

	w = performRequest(r, http.MethodPost, "/products", map[string]interface{}{"name": "Free", "description": "x", "price": 0, "stock": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategories(t *testing.T) {
	r, _ := newMarketplaceRouter(t)

	w := performRequest(r, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"all", "Grains", "Vegetables", "Herbs", "Fruits"}, decodeBody(t, w)["categories"])
}

func TestExportProducts(t *testing.T) {
	r, _ := newMarketplaceRouter(t)

	w := performRequest(r, http.MethodGet, "/products/export?category=Fruits&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	// ページングは無視して該当する2件すべてを出力する
	assert.Len(t, rows, 3)
}

func TestImportProducts(t *testing.T) {
	r, svc := newMarketplaceRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "harvest.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,description,price,stock\nKale,Curly kale,3.5,40\nBad,Row,abc,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	assert.Len(t, resp["created"], 1)
	assert.Len(t, resp["failed"], 1)
	assert.Len(t, svc.All(), 15)

	w = performRequest(r, http.MethodPost, "/products/import", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportNonFinitePriceKeepsListingIntact(t *testing.T) {
	r, svc := newMarketplaceRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "p.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,description,price,stock\nBad,nan row,NaN,1\nWorse,inf row,Inf,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Empty(t, resp["created"])
	assert.Len(t, resp["failed"], 2)
	assert.Len(t, svc.All(), 14)

	w = performRequest(r, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody(t, w)
	assert.Equal(t, float64(14), list["total"])
}
