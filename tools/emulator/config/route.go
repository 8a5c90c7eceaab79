package config

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/raywall/parse-toolkit/tools/emulator/types"
)

// RouteConfig fixa a resposta de um endpoint, tomando precedência sobre o
// comportamento emulado. Serve para simular falhas do servidor. Path é
// relativo ao mount path e aceita variáveis do mux ("/classes/{class}").
type RouteConfig struct {
	Path     string          `json:"path"`
	Method   string          `json:"method"`
	Response *types.Response `json:"response"`
	// Raw, quando presente, é enviado como corpo literal (JSON inválido incluso).
	Raw string `json:"raw,omitempty"`
}

func (route RouteConfig) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		var body interface{}
		if route.Response != nil {
			status = route.Response.Status
			body = route.Response.Body
		}
		if route.Raw != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(route.Raw))
			return
		}
		SendResponse(w, status, body)
	}
}

// SendResponse escreve body como JSON com o status informado.
func SendResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Error().Err(err).Msg("encode response failed")
		}
	}
}

// SendError escreve o envelope {code, error}.
func SendError(w http.ResponseWriter, status, code int, message string) {
	SendResponse(w, status, types.ErrorBody{Code: code, Error: message})
}
