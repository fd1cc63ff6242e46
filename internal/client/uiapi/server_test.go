package uiapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/app"
	"github.com/iudanet/fieldsync/internal/client/config"
	"github.com/iudanet/fieldsync/internal/models"
	pkgapi "github.com/iudanet/fieldsync/pkg/api"
)

func createTestServer(t *testing.T, client *api.ClientAPIMock) (*httptest.Server, *app.App) {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	if client.LoginFunc == nil {
		client.LoginFunc = func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			return &pkgapi.TokenResponse{AccessToken: "opaque", UserID: "user-1", ExpiresIn: 3600}, nil
		}
	}

	a, err := app.New(context.Background(), cfg, logger, app.Options{API: client})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	_, err = a.Auth.Login(context.Background(), "alice", "correct horse battery")
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(a, logger).Routes())
	t.Cleanup(srv.Close)
	return srv, a
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHandler_DocumentCRUD(t *testing.T) {
	srv, _ := createTestServer(t, &api.ClientAPIMock{})

	resp, body := do(t, http.MethodPut, srv.URL+"/docs/observation/obs-1", `{"value": 7, "media": ["a.jpg"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var doc pkgapi.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "obs-1", doc.ID)
	assert.Equal(t, "observation", doc.Type)
	assert.True(t, doc.LocalOnly)
	assert.True(t, doc.Pending)
	assert.Nil(t, doc.SyncedAt)
	assert.Equal(t, 7.0, doc.Fields["value"])

	// списки дополняются
	resp, body = do(t, http.MethodPut, srv.URL+"/docs/observations/obs-1", `{"media": ["b.jpg"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, []any{"a.jpg", "b.jpg"}, doc.Fields["media"])

	resp, body = do(t, http.MethodGet, srv.URL+"/docs/observation", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []pkgapi.Document
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	resp, body = do(t, http.MethodPost, srv.URL+"/docs/trial", `{"id": "t-1", "name": "Trial"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "t-1", doc.ID)
	assert.NotContains(t, doc.Fields, "id")

	resp, body = do(t, http.MethodPost, srv.URL+"/docs/trial", `{"name": "Generated"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.NotEmpty(t, doc.ID)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/docs/trial/t-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, srv.URL+"/docs/trial/t-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/docs/trial/t-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_DocumentValidation(t *testing.T) {
	srv, _ := createTestServer(t, &api.ClientAPIMock{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "unknown type", method: http.MethodGet, path: "/docs/plots", status: http.StatusNotFound},
		{name: "reserved field", method: http.MethodPut, path: "/docs/trial/t-1", body: `{"updatedAt": "x"}`, status: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPut, path: "/docs/trial/t-1", body: `{`, status: http.StatusBadRequest},
		{name: "not an object", method: http.MethodPut, path: "/docs/trial/t-1", body: `[1]`, status: http.StatusBadRequest},
		{name: "id alias as field", method: http.MethodPut, path: "/docs/trial/t-1", body: `{"trialDbId": "t-9", "name": "x"}`, status: http.StatusBadRequest},
		{name: "id alias on create", method: http.MethodPost, path: "/docs/observation", body: `{"observation_id": "o-9"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestHandler_NetworkAndSync(t *testing.T) {
	client := &api.ClientAPIMock{
		CreateFunc: func(ctx context.Context, token string, entityType models.EntityType, id string, fields models.Fields) error {
			return nil
		},
		ListFunc: func(ctx context.Context, token string, entityType models.EntityType) ([]api.RemoteDocument, error) {
			return nil, nil
		},
	}
	srv, a := createTestServer(t, client)

	resp, _ := do(t, http.MethodPut, srv.URL+"/docs/observation/obs-1", `{"value": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/sync", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "offline")

	resp, _ = do(t, http.MethodPost, srv.URL+"/network", `{"online": true}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, a.Network.IsOnline())

	// переход в online запускает синхронизацию в фоне; дожидаемся ее окончания
	require.Eventually(t, func() bool { return !a.Engine.Status().IsSyncing }, time.Second, 5*time.Millisecond)

	resp, body = do(t, http.MethodPost, srv.URL+"/sync", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodGet, srv.URL+"/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status pkgapi.StatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.True(t, status.IsOnline)
	assert.Equal(t, 0, status.PendingCount)
	assert.NotNil(t, status.LastSyncTime)
	assert.Len(t, client.CreateCalls(), 1)
}

func TestHandler_ConflictResolution(t *testing.T) {
	srv, a := createTestServer(t, &api.ClientAPIMock{})

	require.NoError(t, a.Store.Upsert(models.EntityObservation, "obs-1", models.Fields{"value": models.Number(6)}))
	_, changed := a.Store.ApplyRemote(models.EntityObservation, "obs-1", func(local *models.Document) *models.Document {
		local.Remote = &models.RemoteVersion{UpdatedAt: time.Now(), Fields: models.Fields{"value": models.Number(8)}}
		return local
	})
	require.True(t, changed)

	resp, body := do(t, http.MethodGet, srv.URL+"/conflicts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var conflicts []pkgapi.Conflict
	require.NoError(t, json.Unmarshal(body, &conflicts))
	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"value"}, conflicts[0].ConflictingFieldNames)

	url := srv.URL + "/conflicts/observation/obs-1/resolve"
	resp, _ = do(t, http.MethodPost, url, `{"strategy": "merge"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, url, `{"strategy": "coinflip"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodPost, url, `{"strategy": "merge", "pick": {"value": "remote"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var doc pkgapi.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, 8.0, doc.Fields["value"])
	assert.False(t, doc.Conflict)
	assert.True(t, doc.Pending)

	resp, _ = do(t, http.MethodPost, url, `{"strategy": "local"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/conflicts/observation/missing/resolve", `{"strategy": "local"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_EventStream(t *testing.T) {
	srv, a := createTestServer(t, &api.ClientAPIMock{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return a.Bus.Len() > 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Store.Upsert(models.EntityTrial, "t-1", models.Fields{"name": models.String("x")}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Data map[string]any `json:"data"`
		Type string         `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "change:local", msg.Type)
	assert.Equal(t, "t-1", msg.Data["entityId"])
}

func TestHandler_Metrics(t *testing.T) {
	srv, a := createTestServer(t, &api.ClientAPIMock{})
	a.Metrics.Pending(3)

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "fieldsync_sync_pending_documents 3")
}
