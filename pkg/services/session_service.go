package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agrinova-api/pkg/models"
	"agrinova-api/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStorageKey はログイン中ユーザーを保存するキーです。
const SessionStorageKey = "agrinova_user"

// DefaultAuthDelay はログイン/サインアップの模擬待ち時間です。
const DefaultAuthDelay = 500 * time.Millisecond

var (
	// ErrMissingFields は必須項目が空の場合に返されます。
	ErrMissingFields = errors.New("Please fill in all fields")
	// ErrInvalidRole はFarmer/Customer以外のロールが指定された場合に返されます。
	ErrInvalidRole = errors.New("role must be Farmer or Customer")
	// ErrProviderClosed は終了後のSessionProviderを使った場合に返されます。
	ErrProviderClosed = errors.New("session provider is closed")
)

// SessionProvider は「現在ログイン中のユーザー」1件を保持し、KVストアに永続化します。
type SessionProvider struct {
	mu      sync.RWMutex
	kv      storage.KV
	delay   time.Duration
	current *models.User
	closed  bool
	logger  *zap.Logger
}

// NewSessionProvider creates a provider. Call Init to restore a persisted session.
func NewSessionProvider(kv storage.KV, delay time.Duration, logger *zap.Logger) *SessionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionProvider{kv: kv, delay: delay, logger: logger}
}

// Init は保存済みのセッションを復元します。保存値が壊れている場合は未ログイン扱いにします。
func (p *SessionProvider) Init(ctx context.Context) error {
	raw, err := p.kv.Get(ctx, SessionStorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		p.logger.Warn("stored session is not valid JSON, ignoring", zap.Error(err))
		return nil
	}

	p.mu.Lock()
	p.current = &u
	p.mu.Unlock()
	p.logger.Info("session restored", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	return nil
}

// Login は待ち時間の後に資格情報を検証し、メールアドレスのローカル部を名前とするユーザーを保存します。
// パスワードは空でないことだけを確認します。
func (p *SessionProvider) Login(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if blank(email, password, string(role)) {
		return nil, ErrMissingFields
	}
	if !validRole(role) {
		return nil, ErrInvalidRole
	}
	name := email
	if i := strings.Index(email, "@"); i >= 0 {
		name = email[:i]
	}
	return p.store(ctx, models.User{Email: email, Role: role, Name: name, ID: uuid.New().String()})
}

// Signup は Login と同じ手順で、指定された名前のユーザーを保存します。
func (p *SessionProvider) Signup(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if blank(name, email, password, string(role)) {
		return nil, ErrMissingFields
	}
	if !validRole(role) {
		return nil, ErrInvalidRole
	}
	return p.store(ctx, models.User{Email: email, Role: role, Name: name, ID: uuid.New().String()})
}

// Logout は現在のセッションと保存値を削除します。
func (p *SessionProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	if err := p.kv.Remove(ctx, SessionStorageKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Current はログイン中のユーザーのコピーを返します。未ログインならnilです。
func (p *SessionProvider) Current() *models.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	u := *p.current
	return &u
}

// Close はプロバイダを終了します。保存値はそのまま残るので次回のInitで復元されます。
func (p *SessionProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.current = nil
}

func (p *SessionProvider) store(ctx context.Context, u models.User) (*models.User, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProviderClosed
	}
	if err := p.kv.Set(ctx, SessionStorageKey, string(data)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	p.current = &u
	p.logger.Info("user signed in", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	out := u
	return &out, nil
}

func (p *SessionProvider) wait(ctx context.Context) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrProviderClosed
	}
	if p.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func validRole(r models.Role) bool {
	return r == models.RoleFarmer || r == models.RoleCustomer
}
