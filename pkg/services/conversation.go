package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"agrinova-api/pkg/metrics"
	"agrinova-api/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrEmptyMessage は空白のみのメッセージが送信された場合に返されます。履歴は変化しません。
	ErrEmptyMessage = errors.New("message is empty")
	// ErrConversationClosed は破棄済みの会話に送信した場合に返されます。
	ErrConversationClosed = errors.New("conversation is closed")
	// ErrConversationNotFound は存在しない会話IDを指定した場合に返されます。
	ErrConversationNotFound = errors.New("conversation not found")
)

// DefaultReplyDelay はボット応答を履歴に追加するまでの既定の待ち時間です。
const DefaultReplyDelay = time.Second

// Exchange はユーザーの質問とボットの応答の一組です。
type Exchange struct {
	ConversationID string
	Persona        Persona
	Question       models.ChatMessage
	Answer         models.ChatMessage
	Matched        bool
}

// ExchangeHook は応答が履歴に追加された直後に呼ばれます。
type ExchangeHook func(Exchange)

// Conversation は1つのチャット画面の履歴と、遅延中のボット応答を保持します。
type Conversation struct {
	mu       sync.Mutex
	id       string
	persona  Persona
	bot      *ChatbotService
	clock    Clock
	delay    time.Duration
	hook     ExchangeHook
	messages []models.ChatMessage
	nextID   int
	seq      int
	pending  map[int]Timer
	closed   bool
	created  time.Time
}

// NewConversation は挨拶メッセージ(id 1)で始まる会話を生成します。
func NewConversation(id string, persona Persona, bot *ChatbotService, clock Clock, delay time.Duration) *Conversation {
	if clock == nil {
		clock = RealClock()
	}
	if delay < 0 {
		delay = 0
	}
	c := &Conversation{
		id:      id,
		persona: persona,
		bot:     bot,
		clock:   clock,
		delay:   delay,
		nextID:  1,
		pending: make(map[int]Timer),
		created: clock.Now(),
	}
	c.appendLocked(GreetingMessage, models.SenderBot)
	return c
}

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// CreatedAt returns when the conversation was opened.
func (c *Conversation) CreatedAt() time.Time { return c.created }

// Persona returns the response table this conversation uses.
func (c *Conversation) Persona() Persona { return c.persona }

// SetHook は応答追加時のフックを設定します。
func (c *Conversation) SetHook(hook ExchangeHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = hook
}

// Submit はユーザーメッセージを追加し、遅延後にボット応答を追加するよう予約します。
// 連続送信された場合はどちらの応答も期限順に追加されます。
func (c *Conversation) Submit(text string) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}

	reply, matched, err := c.bot.Respond(c.persona, text)
	if err != nil {
		return models.ChatMessage{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ChatMessage{}, ErrConversationClosed
	}

	question := c.appendLocked(text, models.SenderUser)
	c.seq++
	key := c.seq
	c.pending[key] = c.clock.AfterFunc(c.delay, func() {
		c.deliver(key, question, reply, matched)
	})
	metrics.PendingReplies.Inc()
	return question, nil
}

func (c *Conversation) deliver(key int, question models.ChatMessage, reply string, matched bool) {
	c.mu.Lock()
	if _, ok := c.pending[key]; !ok || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	answer := c.appendLocked(reply, models.SenderBot)
	hook := c.hook
	c.mu.Unlock()

	metrics.PendingReplies.Dec()
	result := "fallback"
	if matched {
		result = "matched"
	}
	metrics.ChatReplies.WithLabelValues(string(c.persona), result).Inc()

	if hook != nil {
		hook(Exchange{
			ConversationID: c.id,
			Persona:        c.persona,
			Question:       question,
			Answer:         answer,
			Matched:        matched,
		})
	}
}

// appendLocked はIDを追加時点で採番します。c.mu を保持して呼び出すこと。
func (c *Conversation) appendLocked(text string, sender models.Sender) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        c.nextID,
		Text:      text,
		Sender:    sender,
		Timestamp: c.clock.Now(),
	}
	c.nextID++
	c.messages = append(c.messages, msg)
	return msg
}

// Messages は履歴のコピーを挿入順で返します。
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Pending は遅延中の応答数を返します。0より大きければ「入力中」表示の状態です。
func (c *Conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Cancel は遅延中の応答をすべて取り消します。会話自体は引き続き使えます。
func (c *Conversation) Cancel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked()
}

func (c *Conversation) cancelLocked() int {
	n := 0
	for key, t := range c.pending {
		t.Stop()
		delete(c.pending, key)
		n++
	}
	metrics.PendingReplies.Sub(float64(n))
	return n
}

// Close は遅延中の応答を取り消し、以降の送信を拒否します。
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.closed = true
}

// ConversationStore は会話をuuidで管理します。
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	bot           *ChatbotService
	clock         Clock
	delay         time.Duration
	hook          ExchangeHook
	logger        *zap.Logger
}

// NewConversationStore creates an empty store. A nil clock uses the wall clock.
func NewConversationStore(bot *ChatbotService, clock Clock, delay time.Duration, logger *zap.Logger) *ConversationStore {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationStore{
		conversations: make(map[string]*Conversation),
		bot:           bot,
		clock:         clock,
		delay:         delay,
		logger:        logger,
	}
}

// SetHook は以降に作成される会話へ渡すフックを設定します。
func (s *ConversationStore) SetHook(hook ExchangeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Create は新しい会話を開始します。
func (s *ConversationStore) Create(persona Persona) (*Conversation, error) {
	if _, ok := s.bot.tables[persona]; !ok {
		return nil, ErrUnknownPersona
	}
	c := NewConversation(uuid.New().String(), persona, s.bot, s.clock, s.delay)

	s.mu.Lock()
	c.hook = s.hook
	s.conversations[c.id] = c
	s.mu.Unlock()

	s.logger.Debug("conversation created", zap.String("conversation_id", c.id), zap.String("persona", string(persona)))
	return c, nil
}

// Get returns the conversation with the given id.
func (s *ConversationStore) Get(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

// Delete は会話を破棄し、遅延中の応答を取り消します。
func (s *ConversationStore) Delete(id string) error {
	s.mu.Lock()
	c, ok := s.conversations[id]
	delete(s.conversations, id)
	s.mu.Unlock()
	if !ok {
		return ErrConversationNotFound
	}
	c.Close()
	s.logger.Debug("conversation deleted", zap.String("conversation_id", id))
	return nil
}

// Len returns the number of live conversations.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Close はすべての会話を破棄します。サーバー停止時に呼び出します。
func (s *ConversationStore) Close() {
	s.mu.Lock()
	convs := s.conversations
	s.conversations = make(map[string]*Conversation)
	s.mu.Unlock()
	for _, c := range convs {
		c.Close()
	}
}
