package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panelStub поднимает httptest-сервер, отвечающий и на /login, и на API-вызовы.
func panelStub(t *testing.T, api http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: "session-value"})
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/", api)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sessions := NewSessionManager(srv.URL, "admin", "secret", 5*time.Second, discardLogger())
	client := NewClient(srv.URL, sessions, 5*time.Second, discardLogger())
	return srv, client
}

func TestClient_ListInbounds(t *testing.T) {
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/panel/api/inbounds/list", r.URL.Path)

		cookie, err := r.Cookie("3x-ui")
		require.NoError(t, err)
		assert.Equal(t, "session-value", cookie.Value)

		w.Write([]byte(`{"success":true,"msg":"","obj":[{"id":1,"port":443,"protocol":"vless","remark":"main","settings":"{\"clients\":[]}","streamSettings":"{}"}]}`))
	})

	inbounds, err := client.ListInbounds(context.Background())

	require.NoError(t, err)
	require.Len(t, inbounds, 1)
	assert.Equal(t, 443, inbounds[0].Port)
	assert.Equal(t, "vless", inbounds[0].Protocol)
}

func TestClient_StaleSessionRetriedOnce(t *testing.T) {
	var calls int32
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		cookie, err := r.Cookie("3x-ui")
		require.NoError(t, err)
		assert.NotEmpty(t, cookie.Value)
		w.Write([]byte(`{"success":true,"msg":"","obj":[]}`))
	})

	inbounds, err := client.ListInbounds(context.Background())

	require.NoError(t, err)
	assert.Empty(t, inbounds)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_StaleSessionAfterRefreshIsAuthError(t *testing.T) {
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListInbounds(context.Background())

	assert.ErrorIs(t, err, ErrAuth)
}

func TestClient_NonJSONBody(t *testing.T) {
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	})

	_, err := client.ListInbounds(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_ServerError(t *testing.T) {
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListInbounds(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_AddClient(t *testing.T) {
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/panel/inbound/addClient", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "3", r.Form.Get("id"))

		var settings inboundSettings
		require.NoError(t, json.Unmarshal([]byte(r.Form.Get("settings")), &settings))
		require.Len(t, settings.Clients, 1)
		assert.Equal(t, "uuid-1", settings.Clients[0].ID)
		assert.Equal(t, "a@b.com", settings.Clients[0].Email)
		assert.True(t, settings.Clients[0].Enable)

		w.Write([]byte(`{"success":true,"msg":"","obj":null}`))
	})

	err := client.AddClient(context.Background(), 3, RemoteClient{ID: "uuid-1", Email: "a@b.com", Enable: true})

	assert.NoError(t, err)
}

func TestClient_AddClient_Rejected(t *testing.T) {
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"msg":"Duplicate email: a@b.com","obj":null}`))
	})

	err := client.AddClient(context.Background(), 1, RemoteClient{ID: "uuid-1", Email: "a@b.com"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Msg, "Duplicate email")
}

func TestClient_SetClientEnabled(t *testing.T) {
	_, client := panelStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/panel/api/inbounds/updateClient/uuid-1", r.URL.Path)

		require.NoError(t, r.ParseForm())
		var settings inboundSettings
		require.NoError(t, json.Unmarshal([]byte(r.Form.Get("settings")), &settings))
		require.Len(t, settings.Clients, 1)
		assert.False(t, settings.Clients[0].Enable)

		w.Write([]byte(`{"success":true,"msg":"","obj":null}`))
	})

	err := client.SetClientEnabled(context.Background(), 1, RemoteClient{ID: "uuid-1", Email: "a@b.com", Enable: true}, false)

	assert.NoError(t, err)
}
