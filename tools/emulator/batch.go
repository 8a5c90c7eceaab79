package emulator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/goccy/go-json"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

const maxBatch = 50

type batchRequest struct {
	Method string         `json:"method"`
	Path   string         `json:"path"`
	Body   map[string]any `json:"body"`
}

// batch despacha cada sub-requisição pelo próprio router, com os
// cabeçalhos da requisição externa.
func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Requests []batchRequest `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidJSON, "invalid batch body"))
		return
	}
	if len(in.Requests) > maxBatch {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidJSON, "too many requests in batch, max is %d", maxBatch))
		return
	}

	out := make([]map[string]any, len(in.Requests))
	for i, sub := range in.Requests {
		out[i] = s.dispatch(r, sub)
	}
	config.SendResponse(w, http.StatusOK, out)
}

func (s *Server) dispatch(outer *http.Request, sub batchRequest) map[string]any {
	if !strings.HasPrefix(sub.Path, s.cfg.MountPath+"/") || strings.HasSuffix(sub.Path, "/batch") {
		return map[string]any{"error": map[string]any{"code": parseerr.InvalidJSON, "error": "cannot route batch path " + sub.Path}}
	}
	var body []byte
	if sub.Body != nil {
		body, _ = json.Marshal(sub.Body)
	}
	req, err := http.NewRequestWithContext(outer.Context(), strings.ToUpper(sub.Method), sub.Path, bytes.NewReader(body))
	if err != nil {
		return map[string]any{"error": map[string]any{"code": parseerr.InvalidJSON, "error": err.Error()}}
	}
	req.Header = outer.Header.Clone()
	req.Host = outer.Host

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var result any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &result)
	}
	if rec.Code >= 200 && rec.Code < 300 {
		return map[string]any{"success": result}
	}
	return map[string]any{"error": result}
}
