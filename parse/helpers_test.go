package parse

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/tools/emulator"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

const (
	testAppID     = "app"
	testMasterKey = "master"
)

// countingDoer conta as requisições que chegam ao transporte.
type countingDoer struct {
	next  Doer
	calls atomic.Int32
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return d.next.Do(req)
}

// emulated sobe um emulador e devolve um Client com master key apontado
// para ele. mutate ajusta a Config antes do New.
func emulated(t *testing.T, mutate func(*Config), opts ...Option) (*Client, *emulator.Server, *countingDoer) {
	t.Helper()
	srv, err := emulator.New(config.Config{ApplicationID: testAppID, MasterKey: testMasterKey})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := Config{ServerURL: ts.URL + "/parse", ApplicationID: testAppID, MasterKey: testMasterKey}
	if mutate != nil {
		mutate(&cfg)
	}
	doer := &countingDoer{next: ts.Client()}
	c, err := New(cfg, append([]Option{WithHTTPClient(doer)}, opts...)...)
	require.NoError(t, err)
	return c, srv, doer
}

// captured guarda a última requisição recebida por um servidor fixo.
type captured struct {
	mu     sync.Mutex
	header http.Header
	method string
	path   string
	query  string
	count  int
}

func (c *captured) last() (http.Header, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header, c.method, c.path
}

// fixedServer responde sempre status/body e registra a requisição.
func fixedServer(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.mu.Lock()
		got.header = r.Header.Clone()
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.count++
		got.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, got
}
