package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/merik2009/vpn-shop-bot/internal/lib/sl"
	"github.com/merik2009/vpn-shop-bot/internal/metrics"
)

// errStaleSession — вызов отклонён из-за устаревшей сессионной куки.
// Обрабатывается внутри клиента: одно переполучение токена и один повтор.
var errStaleSession = errors.New("stale session")

// Client — типизированная обёртка над HTTP API панели. Каждый вызов
// прикрепляет текущую сессионную куку; при отказе по авторизации токен
// обновляется один раз и тот же вызов повторяется не более одного раза.
type Client struct {
	baseURL    string
	sessions   *SessionManager
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient создает клиента панели. timeout ограничивает каждый HTTP-вызов:
// зависшая панель не должна вешать движок.
func NewClient(baseURL string, sessions *SessionManager, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		sessions:   sessions,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// ListInbounds возвращает все inbound'ы панели вместе с клиентами и статистикой.
func (c *Client) ListInbounds(ctx context.Context) ([]Inbound, error) {
	const op = "panel.Client.ListInbounds"
	raw, err := c.call(ctx, http.MethodGet, "/panel/api/inbounds/list", nil, "list")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var inbounds []Inbound
	if err := json.Unmarshal(raw, &inbounds); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return inbounds, nil
}

// AddClient добавляет клиента в inbound. Тело — form-encoded, клиент
// передаётся JSON-строкой в поле settings, как того требует панель.
// Повторное добавление того же email панель не считает идемпотентным:
// отказ приходит как *APIError, решение остаётся за вызывающей стороной.
func (c *Client) AddClient(ctx context.Context, inboundID int, spec RemoteClient) error {
	const op = "panel.Client.AddClient"
	settings, err := json.Marshal(inboundSettings{Clients: []RemoteClient{spec}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	form := url.Values{
		"id":       {strconv.Itoa(inboundID)},
		"settings": {string(settings)},
	}
	if _, err := c.call(ctx, http.MethodPost, "/panel/inbound/addClient", form, "add_client"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetClientEnabled включает или отключает клиента, перезаписывая его запись
// в inbound с изменённым флагом enable.
func (c *Client) SetClientEnabled(ctx context.Context, inboundID int, client RemoteClient, enabled bool) error {
	const op = "panel.Client.SetClientEnabled"
	client.Enable = enabled
	settings, err := json.Marshal(inboundSettings{Clients: []RemoteClient{client}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	form := url.Values{
		"id":       {strconv.Itoa(inboundID)},
		"settings": {string(settings)},
	}
	path := "/panel/api/inbounds/updateClient/" + url.PathEscape(client.ID)
	if _, err := c.call(ctx, http.MethodPost, path, form, "update_client"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// call выполняет вызов с текущим токеном и одним повтором при устаревшей сессии.
func (c *Client) call(ctx context.Context, method, path string, form url.Values, opLabel string) (json.RawMessage, error) {
	tok, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.once(ctx, tok, method, path, form, opLabel)
	if !errors.Is(err, errStaleSession) {
		return raw, err
	}

	c.log.Warn("panel rejected session, re-acquiring", slog.String("path", path))
	c.sessions.Invalidate(tok)
	tok, err = c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	raw, err = c.once(ctx, tok, method, path, form, opLabel)
	if errors.Is(err, errStaleSession) {
		return nil, fmt.Errorf("%w: session rejected after refresh", ErrAuth)
	}
	return raw, err
}

func (c *Client) once(ctx context.Context, tok *Token, method, path string, form url.Values, opLabel string) (json.RawMessage, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: tok.Value})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.PanelDuration.WithLabelValues(opLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PanelRequests.WithLabelValues(opLabel, "error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.PanelRequests.WithLabelValues(opLabel, "stale_session").Inc()
		return nil, errStaleSession
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.PanelRequests.WithLabelValues(opLabel, "error").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		metrics.PanelRequests.WithLabelValues(opLabel, "error").Inc()
		return nil, fmt.Errorf("%w: non-JSON body: %w", ErrUnavailable, err)
	}
	if !envelope.Success {
		metrics.PanelRequests.WithLabelValues(opLabel, "rejected").Inc()
		c.log.Warn("panel returned failure", slog.String("path", path), sl.Err(&APIError{Msg: envelope.Msg}))
		return nil, &APIError{Msg: envelope.Msg}
	}
	metrics.PanelRequests.WithLabelValues(opLabel, "ok").Inc()
	return envelope.Obj, nil
}
