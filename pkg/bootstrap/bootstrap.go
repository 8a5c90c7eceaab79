// Package bootstrap monta as peças comuns aos binários (parsectl, bridge) a
// partir do arquivo de configuração: logger, métricas, session store e o
// parse.Client.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/pkg/auth"
	"github.com/raywall/parse-toolkit/pkg/config"
	"github.com/raywall/parse-toolkit/pkg/logger"
	"github.com/raywall/parse-toolkit/pkg/metrics"
	"github.com/raywall/parse-toolkit/pkg/observability"
	"github.com/raywall/parse-toolkit/pkg/secrets"
	"github.com/raywall/parse-toolkit/sessionstore"
)

// App reúne o que um binário precisa para falar com o Parse.
type App struct {
	Config  *config.FileConfig
	Log     zerolog.Logger
	Metrics metrics.Provider
	Client  *parse.Client
	// Store é nil quando session.backend é "none".
	Store sessionstore.Store

	gateway *auth.Manager
}

// LoadConfig lê o arquivo em path. O Resolver da AWS só é criado se alguma
// referência ${ssm.x} ou ${secret.x} aparecer.
func LoadConfig(ctx context.Context, path string) (*config.FileConfig, error) {
	return config.Load(ctx, path, &lazyResolver{region: os.Getenv("AWS_REGION")})
}

// New monta o App com o store indicado em cfg.Session. out recebe os logs
// (nil usa o destino da configuração).
func New(ctx context.Context, cfg *config.FileConfig, out io.Writer, opts ...parse.Option) (*App, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStore(ctx, cfg, out, store, opts...)
}

// NewWithStore é New com um store já criado; nil desliga a persistência.
func NewWithStore(ctx context.Context, cfg *config.FileConfig, out io.Writer, store sessionstore.Store, opts ...parse.Option) (*App, error) {
	app := &App{Config: cfg, Store: store}
	if out != nil {
		app.Log = logger.ConfigureTo(cfg.Logging, out)
	} else {
		app.Log = logger.Configure(cfg.Logging)
	}

	provider, err := observability.SetupMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	app.Metrics = provider

	base := []parse.Option{parse.WithLogger(app.Log), parse.WithMetrics(provider)}
	if store != nil {
		base = append(base, parse.WithSessionListener(sessionstore.Persist(ctx, store, cfg.Session.Key, app.Log)))
	}
	if cfg.Gateway.Enabled() {
		mgr := auth.NewOAuth2Manager(cfg.Gateway, app.Log)
		if err := mgr.Start(ctx); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("bootstrap: gateway: %w", err)
		}
		app.gateway = mgr
		base = append(base, parse.WithHTTPClient(&http.Client{
			Timeout:   cfg.Parse.Timeout,
			Transport: auth.NewTransport(mgr, nil),
		}))
	}
	client, err := parse.New(cfg.Parse, append(base, opts...)...)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Client = client
	return app, nil
}

// RestoreSession recupera a sessão guardada, quando houver store.
func (a *App) RestoreSession(ctx context.Context) (*parse.User, error) {
	if a.Store == nil {
		return nil, sessionstore.ErrNotFound
	}
	return sessionstore.Restore(ctx, a.Client, a.Store, a.Config.Session.Key)
}

// Close para a renovação do token do gateway e descarrega as métricas.
func (a *App) Close() error {
	if a.gateway != nil {
		a.gateway.Stop()
	}
	if c, ok := a.Metrics.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewStore cria o backend de sessão configurado.
func NewStore(ctx context.Context, cfg *config.FileConfig) (sessionstore.Store, error) {
	s := cfg.Session
	switch s.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return sessionstore.NewMemoryStore(), nil
	case "redis":
		client := sessionstore.NewRedisClient(s.Redis.Addr, s.Redis.Password, s.Redis.DB)
		return sessionstore.NewRedisStore(client, s.Redis.Prefix, s.Redis.TTL), nil
	case "dynamodb":
		awsCfg, err := secrets.AWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return sessionstore.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), s.DynamoDB.Table, s.DynamoDB.TTL), nil
	}
	return nil, fmt.Errorf("bootstrap: unknown session backend %q", s.Backend)
}

// lazyResolver adia a criação dos clientes SSM e Secrets Manager.
type lazyResolver struct {
	region string

	once sync.Once
	r    *secrets.Resolver
	err  error
}

func (l *lazyResolver) get(ctx context.Context) (*secrets.Resolver, error) {
	l.once.Do(func() {
		l.r, l.err = secrets.NewAWSResolver(ctx, l.region)
	})
	return l.r, l.err
}

func (l *lazyResolver) Parameter(ctx context.Context, path string) (string, error) {
	r, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return r.Parameter(ctx, path)
}

func (l *lazyResolver) Secret(ctx context.Context, ref string) (string, error) {
	r, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return r.Secret(ctx, ref)
}
