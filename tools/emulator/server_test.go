package emulator

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/tools/emulator/config"
	"github.com/raywall/parse-toolkit/tools/emulator/types"
)

type harness struct {
	t   *testing.T
	srv *Server
	ts  *httptest.Server
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	if cfg.ApplicationID == "" {
		cfg.ApplicationID = "app"
	}
	if cfg.MasterKey == "" {
		cfg.MasterKey = "master"
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &harness{t: t, srv: srv, ts: ts}
}

// call devolve status e corpo decodificado. headers alterna chave/valor.
func (h *harness) call(method, path string, body any, headers ...string) (int, any) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.ts.URL+"/parse"+path, reader)
	require.NoError(h.t, err)
	req.Header.Set("X-Parse-Application-Id", "app")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var out any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func obj(x any) map[string]any {
	m, _ := x.(map[string]any)
	return m
}

func results(x any) []any {
	list, _ := obj(x)["results"].([]any)
	return list
}

func TestServer_RequiresApplicationID(t *testing.T) {
	h := newHarness(t, config.Config{})
	status, body := h.call(http.MethodGet, "/classes/X", nil, "X-Parse-Application-Id", "wrong")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "unauthorized", obj(body)["error"])

	status, _ = h.call(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_ObjectLifecycle(t *testing.T) {
	h := newHarness(t, config.Config{})

	status, body := h.call(http.MethodPost, "/classes/GameScore", map[string]any{"score": 10, "tags": []any{"a"}})
	require.Equal(t, http.StatusCreated, status)
	id := obj(body)["objectId"].(string)
	assert.Len(t, id, 10)
	created := obj(body)["createdAt"].(string)

	status, body = h.call(http.MethodPut, "/classes/GameScore/"+id, map[string]any{
		"score": map[string]any{"__op": "Increment", "amount": 5},
		"tags":  map[string]any{"__op": "AddUnique", "objects": []any{"a", "b"}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 15.0, obj(body)["score"])
	assert.Greater(t, obj(body)["updatedAt"].(string), created)

	status, body = h.call(http.MethodGet, "/classes/GameScore/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"a", "b"}, obj(body)["tags"])

	status, _ = h.call(http.MethodDelete, "/classes/GameScore/"+id, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = h.call(http.MethodGet, "/classes/GameScore/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 101.0, obj(body)["code"])
}

func TestServer_Query(t *testing.T) {
	h := newHarness(t, config.Config{Classes: map[string][]types.Fixture{
		"GameScore": {
			{"playerName": "Ana", "score": 10.0},
			{"playerName": "Bia", "score": 30.0},
			{"playerName": "Caio", "score": 20.0},
			{"playerName": "Duda"},
		},
	}})

	q := url.Values{}
	q.Set("where", `{"score":{"$gte":15}}`)
	q.Set("order", "-score")
	q.Set("keys", "playerName")
	_, body := h.call(http.MethodGet, "/classes/GameScore?"+q.Encode(), nil)
	list := results(body)
	require.Len(t, list, 2)
	assert.Equal(t, "Bia", obj(list[0])["playerName"])
	assert.NotContains(t, obj(list[0]), "score")

	q = url.Values{}
	q.Set("where", `{"score":{"$exists":false}}`)
	q.Set("count", "1")
	q.Set("limit", "0")
	_, body = h.call(http.MethodGet, "/classes/GameScore?"+q.Encode(), nil)
	assert.Equal(t, 1.0, obj(body)["count"])
	assert.Empty(t, results(body))

	q = url.Values{}
	q.Set("where", `{"playerName":{"$regex":"^b","$options":"i"}}`)
	_, body = h.call(http.MethodGet, "/classes/GameScore?"+q.Encode(), nil)
	assert.Len(t, results(body), 1)

	q = url.Values{}
	q.Set("where", `{"$or":[{"playerName":"Ana"},{"playerName":"Duda"}]}`)
	q.Set("order", "playerName")
	q.Set("skip", "1")
	_, body = h.call(http.MethodGet, "/classes/GameScore?"+q.Encode(), nil)
	require.Len(t, results(body), 1)
	assert.Equal(t, "Duda", obj(results(body)[0])["playerName"])

	q = url.Values{}
	q.Set("where", `{"score":{"$bogus":1}}`)
	status, body := h.call(http.MethodGet, "/classes/GameScore?"+q.Encode(), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 102.0, obj(body)["code"])
}

func TestServer_UsersAndSessions(t *testing.T) {
	h := newHarness(t, config.Config{})

	status, body := h.call(http.MethodPost, "/users", map[string]any{"username": "ana", "password": "pw", "email": "ana@example.com"})
	require.Equal(t, http.StatusCreated, status)
	token := obj(body)["sessionToken"].(string)
	assert.NotEmpty(t, token)

	status, body = h.call(http.MethodPost, "/users", map[string]any{"username": "ana", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 202.0, obj(body)["code"])

	status, body = h.call(http.MethodGet, "/users/me", nil, "X-Parse-Session-Token", token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ana", obj(body)["username"])
	assert.NotContains(t, obj(body), "password")

	status, body = h.call(http.MethodPost, "/login", map[string]any{"username": "ana", "password": "nope"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 101.0, obj(body)["code"])

	status, body = h.call(http.MethodPost, "/login", map[string]any{"username": "ana", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	second := obj(body)["sessionToken"].(string)
	assert.NotEqual(t, token, second)

	_, body = h.call(http.MethodGet, "/sessions", nil, "X-Parse-Session-Token", second)
	assert.Len(t, results(body), 2)

	status, _ = h.call(http.MethodPost, "/logout", map[string]any{}, "X-Parse-Session-Token", token)
	assert.Equal(t, http.StatusOK, status)

	status, body = h.call(http.MethodGet, "/users/me", nil, "X-Parse-Session-Token", token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 209.0, obj(body)["code"])

	status, _ = h.call(http.MethodPost, "/requestPasswordReset", map[string]any{"email": "ana@example.com"})
	assert.Equal(t, http.StatusOK, status)
	status, body = h.call(http.MethodPost, "/requestPasswordReset", map[string]any{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 205.0, obj(body)["code"])
}

func TestServer_CloudCode(t *testing.T) {
	h := newHarness(t, config.Config{Functions: map[string]types.Response{
		"fixed": {Status: 200, Body: map[string]any{"result": "static"}},
	}})
	h.srv.Define("sum", func(_ context.Context, req FunctionRequest) (any, error) {
		return req.Params["a"].(float64) + req.Params["b"].(float64), nil
	})
	h.srv.Define("fail", func(context.Context, FunctionRequest) (any, error) {
		return nil, &FunctionError{Code: 142, Message: "invalid input"}
	})
	ran := false
	h.srv.DefineJob("cleanup", func(_ context.Context, req FunctionRequest) (any, error) {
		ran = req.Master
		return nil, nil
	})

	_, body := h.call(http.MethodPost, "/functions/sum", map[string]any{"a": 2, "b": 3})
	assert.Equal(t, 5.0, obj(body)["result"])

	_, body = h.call(http.MethodPost, "/functions/fixed", nil)
	assert.Equal(t, "static", obj(body)["result"])

	status, body := h.call(http.MethodPost, "/functions/fail", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 142.0, obj(body)["code"])

	_, body = h.call(http.MethodPost, "/functions/missing", nil)
	assert.Equal(t, 141.0, obj(body)["code"])

	status, _ = h.call(http.MethodPost, "/jobs/cleanup", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = h.call(http.MethodPost, "/jobs/cleanup", nil, "X-Parse-Master-Key", "master")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ran)
}

func TestServer_SchemaDeleteNonEmpty(t *testing.T) {
	h := newHarness(t, config.Config{})
	h.call(http.MethodPost, "/classes/Post", map[string]any{"title": "x"})

	status, body := h.call(http.MethodDelete, "/schemas/Post", nil, "X-Parse-Master-Key", "master")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 255.0, obj(body)["code"])

	status, _ = h.call(http.MethodDelete, "/purge/Post", nil, "X-Parse-Master-Key", "master")
	require.Equal(t, http.StatusOK, status)
	status, _ = h.call(http.MethodDelete, "/schemas/Post", nil, "X-Parse-Master-Key", "master")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_Batch(t *testing.T) {
	h := newHarness(t, config.Config{})
	_, body := h.call(http.MethodPost, "/batch", map[string]any{"requests": []any{
		map[string]any{"method": "POST", "path": "/parse/classes/Note", "body": map[string]any{"text": "a"}},
		map[string]any{"method": "DELETE", "path": "/parse/classes/Note/missing"},
	}})
	list, ok := body.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Contains(t, obj(obj(list[0])["success"]), "objectId")
	assert.Equal(t, 101.0, obj(obj(list[1])["error"])["code"])
}

func TestServer_RouteOverride(t *testing.T) {
	h := newHarness(t, config.Config{Routes: []config.RouteConfig{{
		Path:     "/classes/Broken",
		Method:   http.MethodGet,
		Response: &types.Response{Status: 200, Body: map[string]any{"code": 255, "error": "boom"}},
	}}})

	status, body := h.call(http.MethodGet, "/classes/Broken", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 255.0, obj(body)["code"])
}

func TestServer_Aggregate(t *testing.T) {
	h := newHarness(t, config.Config{Classes: map[string][]types.Fixture{
		"Sale": {{"region": "n", "amount": 1.0}, {"region": "s", "amount": 2.0}, {"region": "n", "amount": 3.0}},
	}})
	q := url.Values{}
	q.Set("pipeline", `[{"$group":{"_id":"$region","total":{"$sum":"$amount"}}},{"$sort":{"total":-1}}]`)

	status, _ := h.call(http.MethodGet, "/aggregate/Sale?"+q.Encode(), nil)
	assert.Equal(t, http.StatusForbidden, status)

	_, body := h.call(http.MethodGet, "/aggregate/Sale?"+q.Encode(), nil, "X-Parse-Master-Key", "master")
	list := results(body)
	require.Len(t, list, 2)
	assert.Equal(t, "n", obj(list[0])["objectId"])
	assert.Equal(t, 4.0, obj(list[0])["total"])
}
