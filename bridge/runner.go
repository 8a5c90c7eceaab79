package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/value"
)

// HeaderCorrelationID acompanha cada invocação nos logs e na resposta.
const HeaderCorrelationID = "x-correlation-id"

var ErrNoTarget = errors.New("bridge: target function is empty")

// Runner é o subconjunto do *parse.Client usado pelos handlers.
type Runner interface {
	Run(ctx context.Context, name string, params any, opts ...parse.CallOption) (value.Value, error)
	RunJob(ctx context.Context, name string, params any) (string, error)
}

// Target identifica o que cada mensagem dispara. Com Job verdadeiro o nome
// é de um job em background, que exige a master key.
type Target struct {
	Function string
	Job      bool
}

func (t Target) kind() string {
	if t.Job {
		return "job"
	}
	return "function"
}

// dispatch executa o alvo com o corpo da mensagem como parâmetros.
func dispatch(ctx context.Context, r Runner, t Target, body string) error {
	if t.Function == "" {
		return ErrNoTarget
	}
	params, err := decodeParams(body)
	if err != nil {
		return err
	}
	if t.Job {
		_, err = r.RunJob(ctx, t.Function, params)
	} else {
		_, err = r.Run(ctx, t.Function, params)
	}
	return err
}

// decodeParams aceita corpo vazio (sem parâmetros) ou um objeto JSON.
func decodeParams(body string) (map[string]any, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(body), &params); err != nil {
		return nil, fmt.Errorf("bridge: body must be a JSON object: %w", err)
	}
	return params, nil
}
