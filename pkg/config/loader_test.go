package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver map[string]string

func (s stubResolver) Parameter(_ context.Context, path string) (string, error) {
	if v, ok := s["ssm:"+path]; ok {
		return v, nil
	}
	return "", errors.New("missing " + path)
}

func (s stubResolver) Secret(_ context.Context, ref string) (string, error) {
	if v, ok := s["secret:"+ref]; ok {
		return v, nil
	}
	return "", errors.New("missing " + ref)
}

const sampleYAML = `
version: "1"
parse:
  server_url: http://localhost:1337/parse
  application_id: myAppId
  rest_api_key: ${ssm./parse/rest_key}
  master_key: ${secret.parse/prod#master_key}
  timeout: 5s
logging:
  enabled: true
  level: debug
  format: console
session:
  backend: redis
  redis:
    addr: localhost:6379
    ttl: 24h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	resolver := stubResolver{
		"ssm:/parse/rest_key":          "rk",
		"secret:parse/prod#master_key": "mk",
	}

	cfg, err := Load(context.Background(), writeConfig(t, sampleYAML), resolver)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:1337/parse", cfg.Parse.ServerURL)
	assert.Equal(t, "rk", cfg.Parse.RESTAPIKey)
	assert.Equal(t, "mk", cfg.Parse.MasterKey)
	assert.Equal(t, 5*time.Second, cfg.Parse.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Parse.SchemaCacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "parse:session:", cfg.Session.Redis.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.Session.Redis.TTL)
	assert.Equal(t, "apigateway", cfg.Bridge.Mode)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PARSE_APPLICATION_ID", "fromEnv")
	t.Setenv("PARSE_LOG_LEVEL", "warn")

	cfg, err := Load(context.Background(), writeConfig(t, sampleYAML), stubResolver{
		"ssm:/parse/rest_key":          "rk",
		"secret:parse/prod#master_key": "mk",
	})
	require.NoError(t, err)
	assert.Equal(t, "fromEnv", cfg.Parse.ApplicationID)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("PARSE_SERVER_URL", "https://parse.example.com/parse")
	t.Setenv("PARSE_APPLICATION_ID", "app")

	cfg, err := Load(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://parse.example.com/parse", cfg.Parse.ServerURL)
	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, "none", cfg.Session.Backend)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(context.Background(), writeConfig(t, "parse: [unterminated"), nil)
		assert.ErrorContains(t, err, "config: parse")
	})

	t.Run("unresolvable secret", func(t *testing.T) {
		_, err := Load(context.Background(), writeConfig(t, sampleYAML), stubResolver{})
		assert.ErrorContains(t, err, "resolve references")
	})
}
