package bridge

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/tools/emulator"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
	"github.com/raywall/parse-toolkit/value"
)

// MockRunner grava as chamadas sem servidor.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, params any, opts ...parse.CallOption) (value.Value, error) {
	args := m.Called(name, params)
	return args.Get(0).(value.Value), args.Error(1)
}

func (m *MockRunner) RunJob(ctx context.Context, name string, params any) (string, error) {
	args := m.Called(name, params)
	return args.String(0), args.Error(1)
}

// emulated devolve um client com master key ligado a um emulador novo.
func emulated(t *testing.T) (*parse.Client, *emulator.Server) {
	t.Helper()
	srv, err := emulator.New(config.Config{ApplicationID: "app", MasterKey: "master"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	c, err := parse.New(parse.Config{ServerURL: ts.URL + "/parse", ApplicationID: "app", MasterKey: "master"},
		parse.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c, srv
}
