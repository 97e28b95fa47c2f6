package panel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionManager_Acquire(t *testing.T) {
	var logins int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin", creds["username"])
		assert.Equal(t, "secret", creds["password"])

		atomic.AddInt32(&logins, 1)
		http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: "session-value"})
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	m := NewSessionManager(srv.URL, "admin", "secret", 5*time.Second, discardLogger())

	tok, err := m.Acquire(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "session-value", tok.Value)

	// Повторный вызов отдаёт кэшированный токен без нового логина.
	again, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, tok, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestSessionManager_Acquire_SingleFlight(t *testing.T) {
	var logins int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		time.Sleep(50 * time.Millisecond) // даём параллельным вызовам догнать обмен
		http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: "session-value"})
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	m := NewSessionManager(srv.URL, "admin", "secret", 5*time.Second, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := m.Acquire(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "session-value", tok.Value)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestSessionManager_Acquire_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewSessionManager(srv.URL, "admin", "wrong", 5*time.Second, discardLogger())

	_, err := m.Acquire(context.Background())

	assert.ErrorIs(t, err, ErrAuth)
}

func TestSessionManager_Acquire_NoCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	m := NewSessionManager(srv.URL, "admin", "secret", 5*time.Second, discardLogger())

	_, err := m.Acquire(context.Background())

	assert.ErrorIs(t, err, ErrAuth)
}

func TestSessionManager_Invalidate(t *testing.T) {
	var logins int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&logins, 1)
		http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: "session-" + string(rune('0'+n))})
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	m := NewSessionManager(srv.URL, "admin", "secret", 5*time.Second, discardLogger())

	first, err := m.Acquire(context.Background())
	require.NoError(t, err)

	m.Invalidate(first)

	second, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Value, second.Value)

	// Сброс уже заменённого токена не трогает текущий.
	m.Invalidate(first)
	third, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, third)
}
