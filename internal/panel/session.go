package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// sessionCookie — имя куки, в которой панель возвращает сессионный токен.
const sessionCookie = "3x-ui"

// Token — сессионная кука панели. Срок жизни сервер не сообщает, поэтому
// токен считается потенциально недействительным при каждом использовании:
// сигналом к переполучению служит ответ 401 на любом вызове.
type Token struct {
	Value    string
	IssuedAt time.Time
}

// SessionManager получает и обновляет сессионную куку панели. Одновременные
// запросы на логин схлопываются в один через singleflight: процесс в каждый
// момент ведёт не более одного обмена логина.
type SessionManager struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	token *Token
}

// NewSessionManager создает менеджер сессий для панели по адресу baseURL.
func NewSessionManager(baseURL, username, password string, timeout time.Duration, log *slog.Logger) *SessionManager {
	return &SessionManager{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Acquire возвращает действующий токен, при необходимости выполняя логин.
// Конкурентные вызовы во время действующего обмена получают его результат,
// а не запускают повторные логины.
func (m *SessionManager) Acquire(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()
	if tok != nil {
		return tok, nil
	}

	v, err, _ := m.group.Do("login", func() (any, error) {
		tok, err := m.login(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.token = tok
		m.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

// Invalidate сбрасывает кэшированный токен, если он всё ещё тот, что
// не прошёл проверку. Токен, уже заменённый параллельным логином, не трогается.
func (m *SessionManager) Invalidate(stale *Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == stale {
		m.token = nil
	}
}

func (m *SessionManager) login(ctx context.Context) (*Token, error) {
	const op = "panel.SessionManager.login"

	body, err := json.Marshal(map[string]string{
		"username": m.username,
		"password": m.password,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w: status %d", op, ErrAuth, resp.StatusCode)
	}

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			m.log.Debug("panel session acquired")
			return &Token{Value: c.Value, IssuedAt: time.Now()}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w: no session cookie in response", op, ErrAuth)
}
