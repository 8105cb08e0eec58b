package handlers

import (
	"net/http"
	"strings"

	"agrinova-api/pkg/metrics"
	"agrinova-api/pkg/models"
	"agrinova-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// respondConfidence は即時応答APIが返す固定の信頼度です。
const respondConfidence = 0.85

// ChatbotHandler はチャットボット関連のハンドラです。
type ChatbotHandler struct {
	bot           *services.ChatbotService
	conversations *services.ConversationStore
	archive       *services.ChatArchive // nil なら履歴検索は無効
}

// NewChatbotHandler は新しいChatbotHandlerを生成します。
func NewChatbotHandler(bot *services.ChatbotService, conversations *services.ConversationStore, archive *services.ChatArchive) *ChatbotHandler {
	return &ChatbotHandler{bot: bot, conversations: conversations, archive: archive}
}

// Respond はメッセージに即座に応答します。personaを省略した場合は地域向けの応答表を使います。
func (h *ChatbotHandler) Respond(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		badRequest(c, "Message is required")
		return
	}

	persona := services.PersonaRegional
	if req.Persona != "" {
		p, err := services.ParsePersona(req.Persona)
		if err != nil {
			respondError(c, err)
			return
		}
		persona = p
	}
	reply, matched, err := h.bot.Respond(persona, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	result := "fallback"
	if matched {
		result = "matched"
	}
	metrics.ChatReplies.WithLabelValues(string(persona), result).Inc()

	ctxName := req.Context
	if ctxName == "" {
		ctxName = "agriculture"
	}
	c.JSON(http.StatusOK, models.ChatResponse{
		Response:   reply,
		Confidence: respondConfidence,
		Context:    ctxName,
		Persona:    string(persona),
		Matched:    matched,
	})
}

// CreateConversation は挨拶メッセージ入りの新しい会話を作成します。
func (h *ChatbotHandler) CreateConversation(c *gin.Context) {
	var req struct {
		Persona string `json:"persona"`
	}
	// ボディは省略可能
	_ = c.ShouldBindJSON(&req)

	persona, err := services.ParsePersona(req.Persona)
	if err != nil {
		respondError(c, err)
		return
	}
	conv, err := h.conversations.Create(persona)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"conversationId": conv.ID(),
		"persona":        conv.Persona(),
		"messages":       conv.Messages(),
	})
}

// SendMessage はユーザーメッセージを追加します。ボットの返信は遅延後に履歴へ届きます。
func (h *ChatbotHandler) SendMessage(c *gin.Context) {
	conv, err := h.conversations.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Message is required")
		return
	}
	msg, err := conv.Submit(req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success":  true,
		"message":  msg,
		"isTyping": conv.Pending() > 0,
	})
}

// Messages は会話の履歴と返信待ちの状態を返します。
func (h *ChatbotHandler) Messages(c *gin.Context) {
	conv, err := h.conversations.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": conv.Messages(),
		"isTyping": conv.Pending() > 0,
	})
}

// DeleteConversation は会話を破棄し、未配信の返信を取り消します。
func (h *ChatbotHandler) DeleteConversation(c *gin.Context) {
	if err := h.conversations.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SearchHistory はアーカイブ済みのやり取りから質問に近いものを検索します。
func (h *ChatbotHandler) SearchHistory(c *gin.Context) {
	if h.archive == nil {
		respondError(c, services.ErrArchiveDisabled)
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		badRequest(c, "q is required")
		return
	}
	var persona services.Persona
	if raw := c.Query("persona"); raw != "" {
		p, err := services.ParsePersona(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		persona = p
	}
	limit := queryInt(c, "limit", 5)
	if limit <= 0 {
		limit = 5
	}

	hits, err := h.archive.Search(c.Request.Context(), query, persona, uint64(limit))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "query": query, "results": hits})
}
