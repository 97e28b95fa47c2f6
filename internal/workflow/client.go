// Package workflow — клиент HTTP API оркестратора сценариев автоматизации.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	apiKeyHeader  = "X-N8N-API-KEY"
	healthTimeout = 10 * time.Second
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт клиент оркестратора сценариев.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListWorkflows возвращает все сценарии, зарегистрированные в оркестраторе.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	const op = "workflow.ListWorkflows"

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/workflows", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var list listWorkflowsResponse
	if err := c.do(req, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list.Data, nil
}

// Activate включает сценарий.
func (c *Client) Activate(ctx context.Context, id string) error {
	const op = "workflow.Activate"

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/activate", nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Deactivate выключает сценарий.
func (c *Client) Deactivate(ctx context.Context, id string) error {
	const op = "workflow.Deactivate"

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/deactivate", nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Execute запускает сценарий вручную с произвольной полезной нагрузкой.
func (c *Client) Execute(ctx context.Context, id string, payload any) error {
	const op = "workflow.Execute"

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/run", payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Executions возвращает последние запуски сценария.
func (c *Client) Executions(ctx context.Context, workflowID string, limit int) ([]Execution, error) {
	const op = "workflow.Executions"

	q := url.Values{}
	q.Set("workflowId", workflowID)
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/executions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var list listExecutionsResponse
	if err := c.do(req, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list.Data, nil
}

// Health проверяет доступность оркестратора. Отвечает быстрее общего таймаута клиента.
func (c *Client) Health(ctx context.Context) error {
	const op = "workflow.Health"

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
