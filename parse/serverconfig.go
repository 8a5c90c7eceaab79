package parse

import (
	"context"
	"net/http"

	"github.com/raywall/parse-toolkit/value"
)

// ServerConfig lê os parâmetros públicos de /config.
func (c *Client) ServerConfig(ctx context.Context) (map[string]value.Value, error) {
	var out struct {
		Params map[string]value.Value `json:"params"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/config"}, &out); err != nil {
		return nil, err
	}
	if out.Params == nil {
		out.Params = map[string]value.Value{}
	}
	return out.Params, nil
}

// UpdateServerConfig grava params em /config. Exige master key.
func (c *Client) UpdateServerConfig(ctx context.Context, params map[string]value.Value) error {
	wire := make(map[string]any, len(params))
	for k, v := range params {
		wire[k] = v.Wire()
	}
	r := request{
		method:     http.MethodPut,
		path:       "/config",
		body:       map[string]any{"params": wire},
		opts:       callOptions{useMaster: true},
		allowEmpty: true,
	}
	return c.do(ctx, r, nil)
}
