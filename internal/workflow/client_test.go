package workflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListWorkflows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/workflows", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-N8N-API-KEY"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"wf1","name":"provision","active":true}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)

	list, err := client.ListWorkflows(context.Background())

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "wf1", list[0].ID)
	assert.True(t, list[0].Active)
}

func TestClient_ActivateDeactivate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)

	require.NoError(t, client.Activate(context.Background(), "wf1"))
	assert.Equal(t, "/api/v1/workflows/wf1/activate", gotPath)

	require.NoError(t, client.Deactivate(context.Background(), "wf1"))
	assert.Equal(t, "/api/v1/workflows/wf1/deactivate", gotPath)
}

func TestClient_Executions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "wf1", r.URL.Query().Get("workflowId"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"ex1","workflowId":"wf1","status":"success","finished":true}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)

	list, err := client.Executions(context.Background(), "wf1", 10)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "success", list[0].Status)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)

	err := client.Activate(context.Background(), "wf1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)

	require.NoError(t, client.Health(context.Background()))
}
