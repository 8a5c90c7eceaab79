package parse

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter"
	"github.com/rs/zerolog"

	"github.com/raywall/parse-toolkit/pkg/metrics"
)

// Cabeçalhos do protocolo.
const (
	HeaderApplicationID = "X-Parse-Application-Id"
	HeaderMasterKey     = "X-Parse-Master-Key"
	HeaderJavaScriptKey = "X-Parse-JavaScript-Key"
	HeaderRESTAPIKey    = "X-Parse-REST-API-Key"
	HeaderSessionToken  = "X-Parse-Session-Token"
	HeaderRequestID     = "X-Parse-Request-Id"
	HeaderJobStatusID   = "X-Parse-Job-Status-Id"
)

const defaultUserAgent = "parse-toolkit-go/1.0"

// Doer é a fronteira de transporte. *http.Client satisfaz a interface.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client é o ponto de entrada. É seguro para uso concorrente; cada Client
// tem seu próprio estado de sessão.
type Client struct {
	cfg       Config
	base      *url.URL
	http      Doer
	log       zerolog.Logger
	metrics   metrics.Provider
	session   sessionState
	schemas   otter.Cache[string, *Schema]
	cacheOn   bool
	listeners []SessionListener
	userAgent string
	requestID func() string
	now       func() time.Time
}

// Option configura o Client em New.
type Option func(*Client)

func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(p metrics.Provider) Option {
	return func(c *Client) { c.metrics = p }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithSessionListener registra um callback chamado após cada mudança de
// sessão confirmada (login, signup, become, logout).
func WithSessionListener(l SessionListener) Option {
	return func(c *Client) { c.listeners = append(c.listeners, l) }
}

// New valida cfg e monta o Client. Erros são do tipo Configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))

	c := &Client{
		cfg:       cfg,
		base:      base,
		log:       zerolog.Nop(),
		metrics:   metrics.Noop{},
		userAgent: defaultUserAgent,
		requestID: uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}

	if cfg.SchemaCacheTTL > 0 {
		cache, err := otter.MustBuilder[string, *Schema](1000).
			WithTTL(cfg.SchemaCacheTTL).
			Build()
		if err != nil {
			return nil, err
		}
		c.schemas = cache
		c.cacheOn = true
	}
	return c, nil
}

// Config devolve a configuração usada na construção.
func (c *Client) Config() Config { return c.cfg }

// ServerURL devolve a base normalizada (sem barra final).
func (c *Client) ServerURL() string { return c.base.String() }

func (c *Client) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.log
}

// Health consulta /health e devolve o status informado pelo servidor.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/health"}, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
