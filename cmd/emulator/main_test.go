package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/tools/emulator"
)

func TestRun(t *testing.T) {
	started := false
	orig := serverStarter
	serverStarter = func(_ context.Context, s *emulator.Server) error {
		started = s != nil
		return nil
	}
	defer func() { serverStarter = orig }()

	path := filepath.Join(t.TempDir(), "emulator.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 4040, "classes": {"GameScore": [{"score": 1}]}}`), 0o600))

	require.NoError(t, run(context.Background(), path, zerolog.Nop()))
	assert.True(t, started)
}

func TestRun_BadConfig(t *testing.T) {
	err := run(context.Background(), filepath.Join(t.TempDir(), "missing.json"), zerolog.Nop())
	assert.Error(t, err)
}
