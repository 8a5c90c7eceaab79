package parse

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

var ErrEmptyFunctionName = errors.New("parse: function name is empty")

// Run chama a Cloud Function name com params (nil envia {}) e devolve o
// conteúdo da chave "result". Uma resposta sem "result" devolve Null.
func (c *Client) Run(ctx context.Context, name string, params any, opts ...CallOption) (value.Value, error) {
	if name == "" {
		return value.Value{}, parseerr.NewPrecondition(ErrEmptyFunctionName)
	}
	body, err := functionParams(params)
	if err != nil {
		return value.Value{}, err
	}

	var resp map[string]value.Value
	r := request{method: http.MethodPost, path: "/functions/" + url.PathEscape(name), body: body, opts: applyCallOptions(opts)}
	if err := c.do(ctx, r, &resp); err != nil {
		return value.Value{}, err
	}
	if res, ok := resp["result"]; ok {
		return res, nil
	}
	return value.Null(), nil
}

// RunJob dispara um job em background (exige master key) e devolve o id de
// acompanhamento informado em X-Parse-Job-Status-Id.
func (c *Client) RunJob(ctx context.Context, name string, params any) (string, error) {
	if name == "" {
		return "", parseerr.NewPrecondition(ErrEmptyFunctionName)
	}
	body, err := functionParams(params)
	if err != nil {
		return "", err
	}

	r := request{
		method:     http.MethodPost,
		path:       "/jobs/" + url.PathEscape(name),
		body:       body,
		opts:       callOptions{useMaster: true},
		allowEmpty: true,
	}
	resp, err := c.doResponse(ctx, r, nil)
	if err != nil {
		return "", err
	}
	return resp.header.Get(HeaderJobStatusID), nil
}

func functionParams(params any) (any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	v, err := value.From(params)
	if err != nil {
		return nil, parseerr.Wrap(parseerr.Precondition, err, "function params")
	}
	if v.Kind() != value.KindObject {
		return nil, parseerr.NewPrecondition(errors.New("parse: function params must be an object"))
	}
	return v.Wire(), nil
}
