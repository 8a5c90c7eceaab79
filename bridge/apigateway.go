package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/parseerr"
)

// APIGatewayHandler adapta requisições do API Gateway para Cloud Functions.
type APIGatewayHandler struct {
	runner Runner
	log    zerolog.Logger
}

func NewAPIGatewayHandler(r Runner, log zerolog.Logger) *APIGatewayHandler {
	return &APIGatewayHandler{runner: r, log: log}
}

// Handle processa a requisição. Erros viram respostas HTTP; o erro
// devolvido ao Lambda é sempre nil.
func (h *APIGatewayHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	corrID := header(req.Headers, HeaderCorrelationID)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	logger := h.log.With().Str("correlation_id", corrID).Logger()
	ctx = logger.WithContext(ctx)

	resp := h.route(ctx, req)

	logger.Info().
		Str("method", req.HTTPMethod).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("bridge request completed")

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers[HeaderCorrelationID] = corrID
	return resp, nil
}

func (h *APIGatewayHandler) route(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if req.HTTPMethod != "" && req.HTTPMethod != http.MethodPost {
		return jsonResponse(http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}

	name := req.PathParameters["function"]
	if name == "" {
		if rest, ok := strings.CutPrefix(req.Path, "/functions/"); ok {
			name = strings.Trim(rest, "/")
		}
	}
	if name == "" {
		return jsonResponse(http.StatusNotFound, map[string]any{"error": "no function in path"})
	}

	params, err := decodeParams(req.Body)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	var opts []parse.CallOption
	if token := header(req.Headers, parse.HeaderSessionToken); token != "" {
		opts = append(opts, parse.WithSessionToken(token))
	}

	result, err := h.runner.Run(ctx, name, params, opts...)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("function", name).Msg("cloud function failed")
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, map[string]any{"result": result.Wire()})
}

// errorResponse converte o erro do cliente no status devolvido ao chamador.
func errorResponse(err error) events.APIGatewayProxyResponse {
	switch parseerr.KindOf(err) {
	case parseerr.ParseCode:
		return jsonResponse(http.StatusBadRequest, map[string]any{"code": parseerr.CodeOf(err), "error": messageOf(err)})
	case parseerr.Precondition:
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": err.Error()})
	case parseerr.Transport, parseerr.HTTPStatus, parseerr.Decode:
		return jsonResponse(http.StatusBadGateway, map[string]any{"error": "parse server unavailable"})
	}
	return jsonResponse(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
}

func messageOf(err error) string {
	var pe *parseerr.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

func jsonResponse(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status, data = http.StatusInternalServerError, []byte(`{"error":"internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}

// header busca sem diferenciar maiúsculas; o API Gateway repassa os nomes
// como o cliente enviou.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
