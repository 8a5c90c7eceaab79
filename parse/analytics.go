package parse

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

var ErrEmptyEventName = errors.New("parse: event name is empty")

// TrackEvent registra um evento customizado com dimensões opcionais.
func (c *Client) TrackEvent(ctx context.Context, name string, dimensions map[string]string) error {
	if name == "" {
		return parseerr.NewPrecondition(ErrEmptyEventName)
	}
	body := map[string]any{"at": value.Date(c.now()).Wire()}
	if len(dimensions) > 0 {
		body["dimensions"] = dimensions
	}
	r := request{method: http.MethodPost, path: "/events/" + url.PathEscape(name), body: body, allowEmpty: true}
	return c.do(ctx, r, nil)
}

// TrackAppOpened registra a abertura do app.
func (c *Client) TrackAppOpened(ctx context.Context) error {
	return c.TrackEvent(ctx, "AppOpened", nil)
}
