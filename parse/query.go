package parse

import (
	"context"
	"net/http"
	"net/url"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/query"
	"github.com/raywall/parse-toolkit/value"
)

// finder executa consultas compiladas contra o servidor e converte cada
// linha com build.
type finder[T any] struct {
	c     *Client
	opts  []CallOption
	build func(className string, raw map[string]value.Value) (T, error)
}

func (f finder[T]) Find(ctx context.Context, className string, params url.Values) ([]T, error) {
	if err := validateClassName(className); err != nil {
		return nil, err
	}
	var env resultsEnvelope
	r := request{method: http.MethodGet, path: classPath(className), query: params, opts: applyCallOptions(f.opts)}
	if err := f.c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(env.Results))
	for _, raw := range env.Results {
		item, err := f.build(className, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (f finder[T]) Count(ctx context.Context, className string, params url.Values) (int64, error) {
	if err := validateClassName(className); err != nil {
		return 0, err
	}
	var env resultsEnvelope
	r := request{method: http.MethodGet, path: classPath(className), query: params, opts: applyCallOptions(f.opts)}
	if err := f.c.do(ctx, r, &env); err != nil {
		return 0, err
	}
	if env.Count == nil {
		return 0, parseerr.NewDecode(nil, "count response without count")
	}
	return *env.Count, nil
}

// Aggregate sempre usa a master key: o endpoint /aggregate a exige.
func (f finder[T]) Aggregate(ctx context.Context, className string, params url.Values) ([]map[string]value.Value, error) {
	if err := validateClassName(className); err != nil {
		return nil, err
	}
	var env resultsEnvelope
	opts := applyCallOptions(f.opts)
	opts.useMaster = true
	r := request{method: http.MethodGet, path: "/aggregate/" + className, query: params, opts: opts}
	if err := f.c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// Query inicia uma consulta sobre className. As CallOption valem para
// todas as requisições feitas pelo Query.
func (c *Client) Query(className string, opts ...CallOption) *query.Query[*Object] {
	return query.New[*Object](finder[*Object]{c: c, opts: opts, build: ObjectFromFields}, className)
}

// Users inicia uma consulta sobre _User devolvendo *User.
func (c *Client) Users(opts ...CallOption) *query.Query[*User] {
	build := func(_ string, raw map[string]value.Value) (*User, error) {
		return userFromFields(raw)
	}
	return query.New[*User](finder[*User]{c: c, opts: opts, build: build}, ClassUser)
}
