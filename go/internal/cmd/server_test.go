package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T) (*config.Config, *Services) {
	t.Helper()
	cfg := config.Default()
	cfg.Archive.Driver = ""
	cfg.Events.LogEvents = false

	services, err := setupServices(context.Background(), &cfg)
	require.NoError(t, err)
	t.Cleanup(services.Close)
	return &cfg, services
}

func TestServerRoutes(t *testing.T) {
	cfg, services := newTestServices(t)
	server := httptest.NewServer(setupServer(cfg, services).Handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	info, err := http.Get(server.URL + "/info")
	require.NoError(t, err)
	defer info.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(info.Body).Decode(&payload))
	assert.Equal(t, "auctionhouse", payload["service"])
	assert.Contains(t, payload, "gateway")
	assert.Contains(t, payload, "events")

	sessions, err := http.Get(server.URL + "/api/sessions")
	require.NoError(t, err)
	sessions.Body.Close()
	assert.Equal(t, http.StatusOK, sessions.StatusCode)

	games, err := http.Get(server.URL + "/api/games")
	require.NoError(t, err)
	games.Body.Close()
	assert.Equal(t, http.StatusNotFound, games.StatusCode, "archive routes need an archive")
}

func TestSetupServicesSQLiteArchive(t *testing.T) {
	cfg := config.Default()
	cfg.Events.LogEvents = false
	cfg.Archive.SQLitePath = t.TempDir() + "/archive.db"

	services, err := setupServices(context.Background(), &cfg)
	require.NoError(t, err)
	defer services.Close()
	assert.Len(t, services.closers, 1)
	require.NotNil(t, services.Results)

	server := httptest.NewServer(setupServer(&cfg, services).Handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/games")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestLoadCatalog(t *testing.T) {
	cat, err := loadCatalog("")
	require.NoError(t, err)
	assert.Positive(t, cat.Len())

	_, err = loadCatalog("does-not-exist.json")
	assert.Error(t, err)
}
