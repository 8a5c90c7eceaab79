package parse

import (
	"net/url"
	"strings"
	"time"

	"github.com/raywall/parse-toolkit/parseerr"
)

// Config é a configuração fixa de um Client. Os campos trazem tags env
// para carga via envloader; nada é recarregado depois de New.
type Config struct {
	// ServerURL é a base da API, incluindo o mount path (ex.: http://localhost:1337/parse).
	ServerURL     string        `env:"PARSE_SERVER_URL" required:"true" yaml:"server_url" validate:"required,url"`
	ApplicationID string        `env:"PARSE_APPLICATION_ID" required:"true" yaml:"application_id" validate:"required"`
	JavaScriptKey string        `env:"PARSE_JAVASCRIPT_KEY" yaml:"javascript_key"`
	RESTAPIKey    string        `env:"PARSE_REST_API_KEY" yaml:"rest_api_key"`
	MasterKey     string        `env:"PARSE_MASTER_KEY" yaml:"master_key"`
	Timeout       time.Duration `env:"PARSE_TIMEOUT" envDefault:"30s" yaml:"timeout"`
	// Idempotency envia X-Parse-Request-Id em cada requisição.
	Idempotency bool `env:"PARSE_IDEMPOTENCY" envDefault:"false" yaml:"idempotency"`
	// SchemaCacheTTL controla o cache de schemas; zero desliga o cache.
	SchemaCacheTTL time.Duration `env:"PARSE_SCHEMA_CACHE_TTL" envDefault:"5m" yaml:"schema_cache_ttl"`
}

// Validate confere o mínimo para montar requisições: URL absoluta e
// application id. As chaves são opcionais.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ApplicationID) == "" {
		return parseerr.NewConfiguration("application id is required")
	}
	if c.ServerURL == "" {
		return parseerr.NewConfiguration("server url is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return parseerr.NewConfiguration("server url must be absolute: " + c.ServerURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return parseerr.NewConfiguration("server url scheme must be http or https")
	}
	return nil
}

// privilegedKey devolve o cabeçalho e a chave usados por padrão:
// master, depois JavaScript, depois REST.
func (c Config) privilegedKey() (header, key string) {
	switch {
	case c.MasterKey != "":
		return HeaderMasterKey, c.MasterKey
	case c.JavaScriptKey != "":
		return HeaderJavaScriptKey, c.JavaScriptKey
	case c.RESTAPIKey != "":
		return HeaderRESTAPIKey, c.RESTAPIKey
	}
	return "", ""
}
