package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// statusFor はサービス層のエラーをHTTPステータスに対応付けます。
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrUnknownPersona),
		errors.Is(err, services.ErrInvalidProduct),
		errors.Is(err, services.ErrMissingYieldFields),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrConversationClosed),
		errors.Is(err, services.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrSensorNotFound),
		errors.Is(err, services.ErrConversationNotFound),
		errors.Is(err, services.ErrCartItemNotFound),
		errors.Is(err, services.ErrNoFertilizerData):
		return http.StatusNotFound
	case errors.Is(err, services.ErrArchiveDisabled),
		errors.Is(err, services.ErrProviderClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError は共通のエラーレスポンスを返します。
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
}

// badRequest は入力不備の400レスポンスを返します。
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// queryFloat は必須の数値クエリを読み取ります。okがfalseなら未指定か不正な値です。
// NaN と ±Inf は不正な値として扱います。
func queryFloat(c *gin.Context, key string) (float64, bool) {
	raw, exists := c.GetQuery(key)
	if !exists || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// queryInt は数値クエリを読み取り、未指定や不正な値なら def を返します。
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func paramInt(c *gin.Context, key string) (int, bool) {
	v, err := strconv.Atoi(c.Param(key))
	return v, err == nil
}
