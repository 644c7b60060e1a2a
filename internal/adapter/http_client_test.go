package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillware/syncengine/models"
)

func TestHTTPSyncTransport_Push(t *testing.T) {
	var gotAuth string
	var gotReq models.PushRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sync/push", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := models.PushResponse{
			Processed:        1,
			CreatedServerIDs: map[string]string{"op-1": "srv-1"},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	transport := NewHTTPSyncTransport(HTTPClientConfig{BaseURL: srv.URL, Token: "test-token"})

	out, err := transport.Push(context.Background(), models.PushRequest{
		ClientID: "client-1",
		Operations: []models.SyncOperation{
			{OpID: "op-1", Entity: "invoice", Action: models.ActionCreate, EntityID: "local-1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "client-1", gotReq.ClientID)
	assert.Equal(t, 1, out.Processed)
	assert.Equal(t, "srv-1", out.CreatedServerIDs["op-1"])
}

func TestHTTPSyncTransport_Pull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/sync/pull", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("checkpoint"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		resp := models.PullResponse{
			Changes: []models.EntityChange{
				{Entity: "invoice", ID: "srv-1", Action: models.ActionUpdate},
			},
			Checkpoint: "43",
			HasMore:    true,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	transport := NewHTTPSyncTransport(HTTPClientConfig{BaseURL: srv.URL})

	out, err := transport.Pull(context.Background(), "42", 20)
	require.NoError(t, err)

	require.Len(t, out.Changes, 1)
	assert.Equal(t, "srv-1", out.Changes[0].ID)
	assert.Equal(t, "43", out.Checkpoint)
	assert.True(t, out.HasMore)
}

func TestHTTPSyncTransport_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := NewHTTPSyncTransport(HTTPClientConfig{BaseURL: srv.URL})
	assert.NoError(t, transport.Ping(context.Background()))
}

func TestHTTPSyncTransport_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "forbidden", statusCode: http.StatusForbidden, wantErr: ErrUnauthorized},
		{name: "bad request", statusCode: http.StatusBadRequest, wantErr: ErrValidation},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: ErrTransient},
		{name: "unavailable", statusCode: http.StatusServiceUnavailable, wantErr: ErrTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, test.name, test.statusCode)
			}))
			defer srv.Close()

			transport := NewHTTPSyncTransport(HTTPClientConfig{BaseURL: srv.URL})

			_, err := transport.Push(context.Background(), models.PushRequest{ClientID: "client-1"})
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

func TestHTTPSyncTransport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close() // nothing is listening anymore

	transport := NewHTTPSyncTransport(HTTPClientConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})

	err := transport.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreachable))
}
