package parse

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/raywall/parse-toolkit/parseerr"
)

// ErrMasterKeyRequired indica operação que exige a master key quando o
// Client foi construído sem ela.
var ErrMasterKeyRequired = errors.New("parse: operation requires the master key")

// CallOption ajusta uma única chamada.
type CallOption func(*callOptions)

type callOptions struct {
	useMaster    bool
	sessionToken *string
}

// UseMasterKey força X-Parse-Master-Key nesta chamada.
func UseMasterKey() CallOption {
	return func(o *callOptions) { o.useMaster = true }
}

// WithSessionToken usa token no lugar da sessão do Client. Um token vazio
// envia a requisição sem sessão.
func WithSessionToken(token string) CallOption {
	return func(o *callOptions) { o.sessionToken = &token }
}

func applyCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// request descreve uma operação antes de virar *http.Request.
type request struct {
	method string
	path   string
	query  url.Values
	// body é serializado como JSON; raw é enviado como está com contentType.
	body        any
	raw         io.Reader
	contentType string
	opts        callOptions
	// allowEmpty aceita corpo vazio em respostas 2xx (deletes).
	allowEmpty bool
}

// response é o resultado bruto do transporte.
type response struct {
	status  int
	header  http.Header
	body    []byte
	latency time.Duration
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// buildRequest monta a requisição na ordem fixa de cabeçalhos: identidade
// da aplicação, chave privilegiada, token de sessão e content type.
func (c *Client) buildRequest(ctx context.Context, r request) (*http.Request, error) {
	var body io.Reader
	contentType := r.contentType

	switch {
	case r.raw != nil:
		body = r.raw
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, parseerr.NewDecode(err, "encode request body")
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, parseerr.Wrap(parseerr.Precondition, err, "build request")
	}

	req.Header.Set(HeaderApplicationID, c.cfg.ApplicationID)

	if r.opts.useMaster {
		if c.cfg.MasterKey == "" {
			return nil, parseerr.NewPrecondition(ErrMasterKeyRequired)
		}
		req.Header.Set(HeaderMasterKey, c.cfg.MasterKey)
	} else if header, key := c.cfg.privilegedKey(); header != "" {
		req.Header.Set(header, key)
	}

	token := c.session.load().Token
	if r.opts.sessionToken != nil {
		token = *r.opts.sessionToken
	}
	if token != "" {
		req.Header.Set(HeaderSessionToken, token)
	}

	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cfg.Idempotency && r.method != http.MethodGet {
		req.Header.Set(HeaderRequestID, c.requestID())
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send executa a requisição no transporte e lê o corpo inteiro.
func (c *Client) send(ctx context.Context, r request) (*response, error) {
	req, err := c.buildRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	log := c.logger(ctx)
	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(ctx, r, 0, c.now().Sub(start), parseerr.Transport)
		log.Warn().Err(err).Str("method", r.method).Str("path", r.path).Msg("parse request failed")
		return nil, parseerr.NewTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(ctx, r, resp.StatusCode, c.now().Sub(start), parseerr.Transport)
		return nil, parseerr.NewTransport(err)
	}

	out := &response{status: resp.StatusCode, header: resp.Header, body: data, latency: c.now().Sub(start)}
	log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", out.status).
		Dur("latency", out.latency).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Msg("parse request")
	return out, nil
}

// do envia, classifica e decodifica em out (que pode ser nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	_, err := c.doResponse(ctx, r, out)
	return err
}

func (c *Client) doResponse(ctx context.Context, r request, out any) (*response, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := decodeResponse(resp.status, resp.body, r.allowEmpty, out); err != nil {
		c.observe(ctx, r, resp.status, resp.latency, parseerr.KindOf(err))
		c.logger(ctx).Warn().Err(err).Str("method", r.method).Str("path", r.path).Int("status", resp.status).Msg("parse request returned error")
		return resp, err
	}
	c.observe(ctx, r, resp.status, resp.latency, parseerr.Unknown)
	return resp, nil
}

// observe publica métricas por família de endpoint (classes, users, ...).
func (c *Client) observe(ctx context.Context, r request, status int, latency time.Duration, kind parseerr.Kind) {
	tags := []string{
		"method:" + r.method,
		"endpoint:" + endpointFamily(r.path),
		"status:" + strconv.Itoa(status),
	}
	errs := []error{
		c.metrics.Count("parse.client.request", 1, tags),
		c.metrics.Histogram("parse.client.latency_ms", float64(latency.Milliseconds()), tags),
	}
	if kind != parseerr.Unknown {
		errs = append(errs, c.metrics.Count("parse.client.error", 1, append(tags, "kind:"+kind.String())))
	}
	if err := errors.Join(errs...); err != nil {
		c.logger(ctx).Debug().Err(err).Str("path", r.path).Msg("parse metrics not published")
	}
}

func endpointFamily(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}
