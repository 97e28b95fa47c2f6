package login

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merik2009/vpn-shop-bot/internal/http/response"
	"github.com/merik2009/vpn-shop-bot/internal/lib/jwt"
	"github.com/merik2009/vpn-shop-bot/internal/lib/password"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	hash, err := password.GetHash("correct-horse")
	require.NoError(t, err)
	maker := jwt.NewJWTMaker("test-secret", time.Minute)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, "ops", hash, maker)
}

func TestHandler_Login(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "success",
			body:       `{"username":"ops","password":"correct-horse"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       `{"username":"ops","password":"wrong-password"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong username",
			body:       `{"username":"intruder","password":"correct-horse"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing fields",
			body:       `{"username":"ops"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid json",
			body:       `{username}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	handler := newHandler(t)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ops/login", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestHandler_Login_ReturnsUsableToken(t *testing.T) {
	handler := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/ops/login", bytes.NewBufferString(`{"username":"ops","password":"correct-horse"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, response.StatusOK, resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	tokenStr, _ := data["token"].(string)
	require.NotEmpty(t, tokenStr)

	claims, err := jwt.NewJWTMaker("test-secret", time.Minute).ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Username)
	assert.Equal(t, "operator", claims.Role)
}
