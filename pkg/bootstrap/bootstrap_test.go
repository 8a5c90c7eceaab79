package bootstrap

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/pkg/auth"
	"github.com/raywall/parse-toolkit/pkg/config"
	"github.com/raywall/parse-toolkit/pkg/metrics"
	"github.com/raywall/parse-toolkit/sessionstore"
	"github.com/raywall/parse-toolkit/tools/emulator"
	emuconfig "github.com/raywall/parse-toolkit/tools/emulator/config"
)

func startEmulator(t *testing.T) string {
	t.Helper()
	srv, err := emulator.New(emuconfig.Config{ApplicationID: "app", MasterKey: "master"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL + "/parse"
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_WithoutRemoteReferences(t *testing.T) {
	t.Setenv("PARSE_MASTER_KEY", "")
	path := writeConfig(t, `
version: "1"
parse:
  server_url: http://localhost:1337/parse
  application_id: app
  master_key: ${env.BOOTSTRAP_TEST_MASTER}
`)
	t.Setenv("BOOTSTRAP_TEST_MASTER", "mk")

	cfg, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "mk", cfg.Parse.MasterKey)
	assert.Equal(t, "default", cfg.Session.Key)
}

func TestNew_PersistsSessionChanges(t *testing.T) {
	url := startEmulator(t)
	cfg := &config.FileConfig{
		Version: "1",
		Parse:   parse.Config{ServerURL: url, ApplicationID: "app", MasterKey: "master"},
		Logging: config.LoggingConf{Enabled: true, Level: "debug", Format: "json"},
		Session: config.SessionConf{Backend: "memory", Key: "cli"},
	}
	var logs bytes.Buffer
	rec := metrics.NewRecorder()

	app, err := New(context.Background(), cfg, &logs, parse.WithMetrics(rec))
	require.NoError(t, err)
	defer app.Close()
	require.IsType(t, &sessionstore.MemoryStore{}, app.Store)

	ctx := context.Background()
	u := parse.NewUser()
	require.NoError(t, u.SetUsername("ana"))
	require.NoError(t, u.SetPassword("pw"))
	require.NoError(t, app.Client.Signup(ctx, u))

	stored, err := app.Store.Load(ctx, "cli")
	require.NoError(t, err)
	assert.Equal(t, u.SessionToken, stored.Token)
	assert.Equal(t, "ana", stored.Username)

	app.Client.ClearSession()
	restored, err := app.RestoreSession(ctx)
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
	assert.Nil(t, restored)

	// o último WithMetrics vence o provider da configuração
	assert.Equal(t, float64(1), rec.Total("parse.client.request"))
	assert.Contains(t, logs.String(), `"path":"/users"`)
}

func TestNew_RestoreSession(t *testing.T) {
	url := startEmulator(t)
	cfg := &config.FileConfig{
		Version: "1",
		Parse:   parse.Config{ServerURL: url, ApplicationID: "app", MasterKey: "master"},
		Session: config.SessionConf{Backend: "memory", Key: "cli"},
	}
	app, err := New(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	ctx := context.Background()

	u := parse.NewUser()
	require.NoError(t, u.SetUsername("ana"))
	require.NoError(t, u.SetPassword("pw"))
	require.NoError(t, app.Client.Signup(ctx, u))
	app.Client.ClearSession()
	require.Empty(t, app.Client.SessionToken())
	require.NoError(t, app.Store.Save(ctx, sessionstore.Record{Key: "cli", Token: u.SessionToken}))

	restored, err := app.RestoreSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana", restored.Username())
	assert.Equal(t, u.SessionToken, app.Client.SessionToken())
}

func TestNew_WithoutStore(t *testing.T) {
	cfg := &config.FileConfig{
		Version: "1",
		Parse:   parse.Config{ServerURL: "http://localhost:1337/parse", ApplicationID: "app"},
		Session: config.SessionConf{Backend: "none"},
	}
	app, err := New(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Nil(t, app.Store)
	_, err = app.RestoreSession(context.Background())
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
	assert.IsType(t, metrics.Noop{}, app.Metrics)
}

func TestNew_InvalidParseConfig(t *testing.T) {
	cfg := &config.FileConfig{Version: "1", Session: config.SessionConf{Backend: "none"}}
	_, err := New(context.Background(), cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewStore(ctx, &config.FileConfig{Session: config.SessionConf{
		Backend: "redis",
		Redis:   config.RedisConf{Addr: "localhost:6379", Prefix: "p:"},
	}})
	require.NoError(t, err)
	assert.IsType(t, &sessionstore.RedisStore{}, store)

	_, err = NewStore(ctx, &config.FileConfig{Session: config.SessionConf{Backend: "etcd"}})
	assert.ErrorContains(t, err, "etcd")
}

func TestNew_GatewayToken(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "gw-token", "expires_in": 3600}`))
	}))
	defer tokens.Close()

	srv, err := emulator.New(emuconfig.Config{ApplicationID: "app", MasterKey: "master"})
	require.NoError(t, err)
	var seen string
	parseSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		srv.ServeHTTP(w, r)
	}))
	defer parseSrv.Close()

	cfg := &config.FileConfig{
		Version: "1",
		Parse:   parse.Config{ServerURL: parseSrv.URL + "/parse", ApplicationID: "app"},
		Gateway: auth.Config{TokenURL: tokens.URL, ClientID: "c", ClientSecret: "s"},
	}
	app, err := New(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	defer app.Close()

	status, err := app.Client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "Bearer gw-token", seen)
}

func TestNew_GatewayUnavailable(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer tokens.Close()

	cfg := &config.FileConfig{
		Version: "1",
		Parse:   parse.Config{ServerURL: "http://localhost:1337/parse", ApplicationID: "app"},
		Gateway: auth.Config{TokenURL: tokens.URL, ClientID: "c", ClientSecret: "s"},
	}
	_, err := New(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorContains(t, err, "bootstrap: gateway")
}
