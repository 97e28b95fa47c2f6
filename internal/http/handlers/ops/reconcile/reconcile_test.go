package reconcile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/panel"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Reconcile(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_Reconcile(t *testing.T) {
	service := new(ServiceMock)
	service.On("Reconcile", mock.Anything).Return(3, nil)

	handler := New(discardLogger(), service)
	req := httptest.NewRequest(http.MethodPost, "/ops/reconcile", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, response.StatusOK, resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(3), data["updated"])
}

func TestHandler_Reconcile_PanelDown(t *testing.T) {
	service := new(ServiceMock)
	service.On("Reconcile", mock.Anything).Return(0, panel.ErrUnavailable)

	handler := New(discardLogger(), service)
	req := httptest.NewRequest(http.MethodPost, "/ops/reconcile", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
