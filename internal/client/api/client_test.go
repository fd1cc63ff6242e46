package api

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

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	ep, err := client.Endpoint(models.EntityObservation)
	require.NoError(t, err)
	assert.Equal(t, "/brapi/v2/observations", ep.Path)

	client = NewClient(baseURL, WithTimeout(time.Second), WithEndpoints(map[models.EntityType]Endpoint{
		models.EntityTrial: {Path: "/v1/trials", IDAliases: []string{"trial_id"}},
	}))
	assert.Equal(t, time.Second, client.httpClient.Timeout)
	ep, err = client.Endpoint(models.EntityTrial)
	require.NoError(t, err)
	assert.Equal(t, "/v1/trials", ep.Path)

	_, err = client.Endpoint("sample")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)

		_ = json.NewEncoder(w).Encode(api.TokenResponse{AccessToken: "jwt", UserID: "u-1", ExpiresIn: 900})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Login(context.Background(), api.LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
}

func TestClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/refresh", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(api.TokenResponse{AccessToken: "jwt-2", RefreshToken: "refresh-2", ExpiresIn: 900})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "jwt-2", resp.AccessToken)
	assert.Equal(t, "refresh-2", resp.RefreshToken)

	_, err = client.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Register_Error(t *testing.T) {
	tests := []struct {
		responseBody   any
		name           string
		expectedErrMsg string
		statusCode     int
	}{
		{
			name:           "User already exists",
			statusCode:     http.StatusConflict,
			responseBody:   api.ErrorResponse{Error: "conflict", Message: "user already exists"},
			expectedErrMsg: "server error (409): user already exists",
		},
		{
			name:           "Internal server error",
			statusCode:     http.StatusInternalServerError,
			responseBody:   "Internal Server Error",
			expectedErrMsg: "request failed with status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if errResp, ok := tt.responseBody.(api.ErrorResponse); ok {
					_ = json.NewEncoder(w).Encode(errResp)
				} else {
					_, _ = w.Write([]byte(tt.responseBody.(string)))
				}
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Register(context.Background(), api.RegisterRequest{Username: "alice"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.statusCode, statusErr.Code)
		})
	}
}

func TestClient_Create(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/brapi/v2/observations", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "obs-1", body["observationDbId"])
		assert.InDelta(t, 7.0, body["value"], 0)
		assert.Equal(t, []any{"photo0.jpg"}, body["media"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer server.Close()

	err := NewClient(server.URL).Create(context.Background(), "token-1", models.EntityObservation, "obs-1", models.Fields{
		"value": models.Number(7),
		"media": models.List(models.String("photo0.jpg")),
	})
	assert.NoError(t, err)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.EscapedPath())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	require.NoError(t, client.Update(ctx, "t", models.EntitySeedLot, "lot 1", models.Fields{"count": models.Number(10)}))
	require.NoError(t, client.Delete(ctx, "t", models.EntitySeedLot, "lot 1"))

	assert.Equal(t, []string{
		"PUT /brapi/v2/seedlots/lot%201",
		"DELETE /brapi/v2/seedlots/lot%201",
	}, methods)
}

func TestClient_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unauthorized", Message: "token expired"})
	}))
	defer server.Close()

	err := NewClient(server.URL).Update(context.Background(), "old", models.EntityTrial, "t-1", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = NewClient(server.URL).List(context.Background(), "old", models.EntityTrial)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/brapi/v2/seedlots", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"metadata": {"pagination": {"totalCount": 4}},
			"result": {"data": [
				{"seedLotDbId": "lot-1", "count": 10, "updatedAt": "2026-05-01T10:00:00Z"},
				{"seed_lot_id": "lot-2", "count": 5},
				{"id": 42, "count": 1},
				{"count": 0}
			]}
		}`))
	}))
	defer server.Close()

	docs, err := NewClient(server.URL).List(context.Background(), "t", models.EntitySeedLot)
	require.NoError(t, err)
	require.Len(t, docs, 3, "item without id is skipped")

	assert.Equal(t, "lot-1", docs[0].ID)
	assert.True(t, docs[0].Fields["count"].Equal(models.Number(10)))
	assert.Equal(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), docs[0].UpdatedAt)
	assert.Equal(t, []string{"count"}, docs[0].Fields.Names(), "id aliases and reserved keys are stripped")

	assert.Equal(t, "lot-2", docs[1].ID)
	assert.True(t, docs[1].UpdatedAt.IsZero())
	assert.Equal(t, "42", docs[2].ID)
}

func TestClient_List_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"trialDbId": "t-1"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(3, time.Millisecond))
	docs, err := client.List(context.Background(), "t", models.EntityTrial)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_List_GivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(2, time.Millisecond))
	_, err := client.List(context.Background(), "t", models.EntityTrial)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestClient_List_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, WithRetries(3, time.Millisecond)).List(context.Background(), "t", models.EntityTrial)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "brapi envelope", body: `{"result":{"data":[{},{}]}}`, want: 2},
		{name: "data envelope", body: `{"data":[{}]}`, want: 1},
		{name: "bare array", body: `[{},{},{}]`, want: 3},
		{name: "empty data", body: `{"result":{"data":[]}}`, want: 0},
		{name: "no data", body: `{"result":{}}`, want: 0},
		{name: "unknown object", body: `{"items":[]}`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := decodeList([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestStatusError(t *testing.T) {
	assert.ErrorIs(t, &StatusError{Code: 401}, ErrUnauthorized)
	assert.ErrorIs(t, &StatusError{Code: 404}, ErrNotFound)
	assert.NotErrorIs(t, &StatusError{Code: 500}, ErrUnauthorized)
	assert.True(t, (&StatusError{Code: 503}).Temporary())
	assert.True(t, (&StatusError{Code: 429}).Temporary())
	assert.False(t, (&StatusError{Code: 422}).Temporary())
}
