// Package auth obtém e renova tokens OAuth2 (client credentials) usados
// quando o Parse Server fica atrás de um gateway que exige Bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

var ErrNotStarted = errors.New("auth: token manager not started")

// Config é a seção gateway do arquivo de configuração. TokenURL vazio
// desliga a autenticação no gateway.
type Config struct {
	TokenURL     string `yaml:"token_url" env:"PARSE_GATEWAY_TOKEN_URL" validate:"omitempty,url"`
	ClientID     string `yaml:"client_id" env:"PARSE_GATEWAY_CLIENT_ID" validate:"required_with=TokenURL"`
	ClientSecret string `yaml:"client_secret" env:"PARSE_GATEWAY_CLIENT_SECRET" validate:"required_with=TokenURL"`
	Scope        string `yaml:"scope" env:"PARSE_GATEWAY_SCOPE"`
}

func (c Config) Enabled() bool { return c.TokenURL != "" }

// tokenResponse segue a RFC 6749.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenFetcher busca um token novo e o tempo de vida informado.
type TokenFetcher func(ctx context.Context) (string, time.Duration, error)

// Manager mantém o token atual e o renova em background.
type Manager struct {
	mu          sync.RWMutex
	token       string
	initialized bool

	fetcher  TokenFetcher
	log      zerolog.Logger
	retry    time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewManager(fetcher TokenFetcher, log zerolog.Logger) *Manager {
	return &Manager{
		fetcher: fetcher,
		log:     log,
		retry:   10 * time.Second,
		stop:    make(chan struct{}),
	}
}

// Start faz a primeira busca de forma síncrona e inicia a renovação, que
// termina com Stop ou com o fim de ctx.
func (m *Manager) Start(ctx context.Context) error {
	token, ttl, err := m.fetcher(ctx)
	if err != nil {
		return fmt.Errorf("auth: initial token: %w", err)
	}
	m.mu.Lock()
	m.token = token
	m.initialized = true
	m.mu.Unlock()

	go m.refreshLoop(ctx, ttl)
	return nil
}

// Token devolve o token atual.
func (m *Manager) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return "", ErrNotStarted
	}
	return m.token, nil
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) refreshLoop(ctx context.Context, ttl time.Duration) {
	timer := time.NewTimer(calculateWait(ttl))
	defer timer.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			token, next, err := m.fetcher(ctx)
			if err != nil {
				m.log.Warn().Err(err).Dur("retry_in", m.retry).Msg("gateway token refresh failed")
				timer.Reset(m.retry)
				continue
			}
			m.mu.Lock()
			m.token = token
			m.mu.Unlock()
			m.log.Debug().Dur("ttl", next).Msg("gateway token refreshed")
			timer.Reset(calculateWait(next))
		}
	}
}

// calculateWait renova com 80% do tempo de vida consumido.
func calculateWait(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(float64(ttl) * 0.8)
}

// NewOAuth2Manager cria o Manager para o fluxo client credentials.
func NewOAuth2Manager(cfg Config, log zerolog.Logger) *Manager {
	return NewManager(NewOAuth2Fetcher(cfg, nil), log)
}

// NewOAuth2Fetcher busca tokens em cfg.TokenURL. client nil usa um
// http.Client com timeout de 10s.
func NewOAuth2Fetcher(cfg Config, client *http.Client) TokenFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return func(ctx context.Context) (string, time.Duration, error) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		form.Set("client_id", cfg.ClientID)
		form.Set("client_secret", cfg.ClientSecret)
		if cfg.Scope != "" {
			form.Set("scope", cfg.Scope)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return "", 0, fmt.Errorf("auth: build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", 0, fmt.Errorf("auth: token request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return "", 0, fmt.Errorf("auth: token endpoint returned %d", resp.StatusCode)
		}

		var tr tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return "", 0, fmt.Errorf("auth: decode token response: %w", err)
		}
		if tr.AccessToken == "" {
			return "", 0, errors.New("auth: empty access_token")
		}
		return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
	}
}
