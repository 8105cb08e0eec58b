package handlers

import (
	"net/http"

	"agrinova-api/pkg/models"
	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler はログインセッションのハンドラです。
type AuthHandler struct {
	sessions *services.SessionProvider
}

// NewAuthHandler は新しいAuthHandlerを生成します。
func NewAuthHandler(sessions *services.SessionProvider) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

func (h *AuthHandler) bind(c *gin.Context) (models.Credentials, bool) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, services.ErrMissingFields.Error())
		return creds, false
	}
	return creds, true
}

// Login は擬似的な待ち時間の後にユーザーをログインさせます。
func (h *AuthHandler) Login(c *gin.Context) {
	creds, ok := h.bind(c)
	if !ok {
		return
	}
	user, err := h.sessions.Login(c.Request.Context(), creds.Email, creds.Password, creds.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Signup は新しいユーザーを登録し、そのままログイン状態にします。
func (h *AuthHandler) Signup(c *gin.Context) {
	creds, ok := h.bind(c)
	if !ok {
		return
	}
	user, err := h.sessions.Signup(c.Request.Context(), creds.Name, creds.Email, creds.Password, creds.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// Logout は現在のセッションを破棄します。
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me は現在のユーザーを返します。未ログインなら user は null です。
func (h *AuthHandler) Me(c *gin.Context) {
	user := h.sessions.Current()
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "isAuthenticated": user != nil})
}
